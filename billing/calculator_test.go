package billing

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/docket/id"
	"github.com/xraph/docket/invoice"
	"github.com/xraph/docket/matter"
	"github.com/xraph/docket/timeentry"
	"github.com/xraph/docket/types"
)

func entry(minutes int64, rate *types.Money, day int) *timeentry.TimeEntry {
	return &timeentry.TimeEntry{
		ID:              id.NewTimeEntryID(),
		Description:     "Drafting",
		DurationMinutes: minutes,
		HourlyRate:      rate,
		Billable:        true,
		EntryDate:       time.Date(2026, 2, day, 0, 0, 0, 0, time.UTC),
	}
}

func rate(cents int64) *types.Money {
	m := types.USD(cents)
	return &m
}

func TestEntryAmount(t *testing.T) {
	tests := []struct {
		name    string
		minutes int64
		rate    *types.Money
		want    int64
		wantErr error
	}{
		{"two hours", 120, rate(25000), 50000, nil},
		{"one hour", 60, rate(25000), 25000, nil},
		{"six minutes", 6, rate(25000), 2500, nil},
		{"rounds half up", 1, rate(30), 1, nil}, // 0.5
		{"rounds down", 1, rate(29), 0, nil},    // 0.48
		{"missing rate", 60, nil, 0, ErrMissingRate},
		{"negative rate", 60, rate(-1), 0, ErrNegativeInput},
		{"overflow", 120, rate(math.MaxInt64), 0, types.ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EntryAmount(entry(tt.minutes, tt.rate, 1))
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Amount)
			assert.False(t, got.IsNegative())
		})
	}
}

func TestPriceHourlyUsesEntryRate(t *testing.T) {
	m := &matter.Matter{Currency: "usd", Billing: matter.Hourly{Rate: types.USD(30000)}}
	entries := []*timeentry.TimeEntry{
		entry(120, rate(25000), 1),
		entry(60, rate(25000), 2),
	}

	res, err := Price(m, entries)
	require.NoError(t, err)

	require.Len(t, res.LineItems, 2)
	assert.Equal(t, int64(50000), res.LineItems[0].Amount.Amount)
	assert.Equal(t, int64(25000), res.LineItems[1].Amount.Amount)
	assert.Equal(t, entries[0].ID, res.LineItems[0].TimeEntryID)
	assert.Equal(t, invoice.LineItemTime, res.LineItems[0].Type)
	assert.True(t, res.Subtotal.Equal(types.USD(75000)))
	assert.True(t, res.Total.Equal(res.Subtotal))
}

func TestPriceFlatFeeIgnoresEntries(t *testing.T) {
	m := &matter.Matter{
		Title:    "Lease review",
		Currency: "usd",
		Billing:  matter.FlatFee{Fee: types.USD(150000)},
	}

	res, err := Price(m, []*timeentry.TimeEntry{entry(600, nil, 1), entry(45, nil, 2)})
	require.NoError(t, err)

	require.Len(t, res.LineItems, 1)
	assert.Equal(t, invoice.LineItemFlatFee, res.LineItems[0].Type)
	assert.Equal(t, "Flat fee: Lease review", res.LineItems[0].Description)
	assert.True(t, res.Total.Equal(types.USD(150000)))
}

func TestPriceWithoutBilling(t *testing.T) {
	_, err := Price(&matter.Matter{Currency: "usd"}, nil)
	assert.ErrorIs(t, err, ErrUnknownBilling)
}
