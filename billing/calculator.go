// Package billing prices time entries and flat-fee matters.
package billing

import (
	"errors"
	"fmt"

	"github.com/xraph/docket/id"
	"github.com/xraph/docket/invoice"
	"github.com/xraph/docket/matter"
	"github.com/xraph/docket/timeentry"
	"github.com/xraph/docket/types"
)

const minutesPerHour = 60

var (
	// ErrMissingRate is returned for an hourly entry without a stored rate.
	ErrMissingRate = errors.New("billing: time entry has no hourly rate")
	// ErrNegativeInput is returned for a negative duration, rate or fee.
	ErrNegativeInput = errors.New("billing: negative amount or duration")
	// ErrUnknownBilling is returned when a matter has no billing variant.
	ErrUnknownBilling = errors.New("billing: matter has no billing mode")
)

// EntryAmount returns round_half_up(duration_minutes * rate / 60) using
// the rate stored on the entry, never the matter's current rate.
func EntryAmount(e *timeentry.TimeEntry) (types.Money, error) {
	if e.HourlyRate == nil {
		return types.Money{}, ErrMissingRate
	}
	if e.DurationMinutes < 0 || e.HourlyRate.IsNegative() {
		return types.Money{}, ErrNegativeInput
	}
	amt, err := e.HourlyRate.MulDivHalfUp(e.DurationMinutes, minutesPerHour)
	if err != nil {
		return types.Money{}, fmt.Errorf("billing: price entry %s: %w", e.ID, err)
	}
	return amt, nil
}

// Result is the priced snapshot of an invoice.
type Result struct {
	LineItems []invoice.LineItem
	Subtotal  types.Money
	Total     types.Money
}

// Price computes the line items and totals for entries on m. Hourly
// matters get one line per entry in the given order; flat-fee matters get
// a single line equal to the fee, whatever the entries say.
func Price(m *matter.Matter, entries []*timeentry.TimeEntry) (*Result, error) {
	switch b := m.Billing.(type) {
	case matter.Hourly:
		return priceHourly(m.Currency, entries)
	case matter.FlatFee:
		return priceFlatFee(m, b)
	default:
		return nil, ErrUnknownBilling
	}
}

func priceHourly(currency string, entries []*timeentry.TimeEntry) (*Result, error) {
	items := make([]invoice.LineItem, 0, len(entries))
	amounts := make([]types.Money, 0, len(entries))
	for _, e := range entries {
		amt, err := EntryAmount(e)
		if err != nil {
			return nil, err
		}
		rate := *e.HourlyRate
		items = append(items, invoice.LineItem{
			ID:              id.NewLineItemID(),
			Type:            invoice.LineItemTime,
			TimeEntryID:     e.ID,
			Description:     e.Description,
			EntryDate:       e.EntryDate,
			DurationMinutes: e.DurationMinutes,
			Rate:            &rate,
			Amount:          amt,
		})
		amounts = append(amounts, amt)
	}

	subtotal, err := types.Sum(currency, amounts...)
	if err != nil {
		return nil, fmt.Errorf("billing: subtotal: %w", err)
	}
	return &Result{LineItems: items, Subtotal: subtotal, Total: subtotal}, nil
}

func priceFlatFee(m *matter.Matter, b matter.FlatFee) (*Result, error) {
	if b.Fee.IsNegative() {
		return nil, ErrNegativeInput
	}
	desc := "Flat fee"
	if m.Title != "" {
		desc = "Flat fee: " + m.Title
	}
	return &Result{
		LineItems: []invoice.LineItem{{
			ID:          id.NewLineItemID(),
			Type:        invoice.LineItemFlatFee,
			Description: desc,
			Amount:      b.Fee,
		}},
		Subtotal: b.Fee,
		Total:    b.Fee,
	}, nil
}
