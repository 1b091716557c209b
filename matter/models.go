// Package matter defines the clients and matters that time is billed
// against. The billing engine only reads them.
package matter

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xraph/docket/id"
	"github.com/xraph/docket/types"
)

// Status of a matter.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Mode names a billing variant for storage and display.
type Mode string

const (
	ModeHourly  Mode = "hourly"
	ModeFlatFee Mode = "flat_fee"
)

// Billing is how a matter is priced: exactly one of Hourly or FlatFee.
type Billing interface {
	Mode() Mode
	// Amount is the hourly rate or the flat fee.
	Amount() types.Money
	isBilling()
}

// Hourly bills each time entry at its own logged rate. Rate is the
// default offered when logging new time.
type Hourly struct {
	Rate types.Money
}

func (Hourly) Mode() Mode            { return ModeHourly }
func (h Hourly) Amount() types.Money { return h.Rate }
func (Hourly) isBilling()            {}

// FlatFee bills one fixed amount regardless of logged time.
type FlatFee struct {
	Fee types.Money
}

func (FlatFee) Mode() Mode            { return ModeFlatFee }
func (f FlatFee) Amount() types.Money { return f.Fee }
func (FlatFee) isBilling()            {}

// NewBilling rebuilds a Billing from its stored mode and amount.
func NewBilling(mode Mode, amount types.Money) (Billing, error) {
	switch mode {
	case ModeHourly:
		return Hourly{Rate: amount}, nil
	case ModeFlatFee:
		return FlatFee{Fee: amount}, nil
	default:
		return nil, fmt.Errorf("matter: unknown billing mode %q", mode)
	}
}

// Client is a client of the firm.
type Client struct {
	types.Entity
	ID      id.ClientID `json:"id"`
	Name    string      `json:"name"`
	Email   string      `json:"email,omitempty"`
	Phone   string      `json:"phone,omitempty"`
	Address string      `json:"address,omitempty"`
}

// Matter is a legal engagement belonging to one client.
type Matter struct {
	types.Entity
	ID        id.MatterID       `json:"id"`
	ClientID  id.ClientID       `json:"client_id"`
	Title     string            `json:"title"`
	Reference string            `json:"reference,omitempty"`
	Currency  string            `json:"currency"`
	Status    Status            `json:"status"`
	Billing   Billing           `json:"-"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Validate checks that the billing variant is set, non-negative and in the
// matter's currency.
func (m *Matter) Validate() error {
	if m.Billing == nil {
		return errors.New("matter: billing is required")
	}
	amt := m.Billing.Amount()
	if amt.IsNegative() {
		return fmt.Errorf("matter: negative %s amount", m.Billing.Mode())
	}
	if !amt.SameCurrency(types.Zero(m.Currency)) {
		return fmt.Errorf("matter: billing currency %s differs from matter currency %s", amt.Currency, m.Currency)
	}
	return nil
}

type billingJSON struct {
	Mode   Mode        `json:"mode"`
	Amount types.Money `json:"amount"`
}

// MarshalJSON renders Billing as {"mode": ..., "amount": ...}.
func (m Matter) MarshalJSON() ([]byte, error) {
	type plain Matter
	out := struct {
		plain
		Billing *billingJSON `json:"billing,omitempty"`
	}{plain: plain(m)}
	if m.Billing != nil {
		out.Billing = &billingJSON{Mode: m.Billing.Mode(), Amount: m.Billing.Amount()}
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (m *Matter) UnmarshalJSON(data []byte) error {
	type plain Matter
	in := struct {
		*plain
		Billing *billingJSON `json:"billing"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Billing == nil {
		m.Billing = nil
		return nil
	}
	b, err := NewBilling(in.Billing.Mode, in.Billing.Amount)
	if err != nil {
		return err
	}
	m.Billing = b
	return nil
}
