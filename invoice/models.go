// Package invoice defines the frozen invoice snapshot and its lifecycle.
package invoice

import (
	"fmt"
	"time"

	"github.com/xraph/docket/id"
	"github.com/xraph/docket/types"
)

// Invoice is a billed snapshot of work on one matter. Totals, line items
// and the included entry set are fixed at creation; afterwards only the
// status, its timestamps and the export reference change.
type Invoice struct {
	types.Entity
	ID           id.InvoiceID     `json:"id"`
	Number       int64            `json:"number"`
	MatterID     id.MatterID      `json:"matter_id"`
	ClientID     id.ClientID      `json:"client_id"`
	TimeEntryIDs []id.TimeEntryID `json:"time_entry_ids"`
	LineItems    []LineItem       `json:"line_items"`
	Currency     string           `json:"currency"`
	Subtotal     types.Money      `json:"subtotal"`
	Total        types.Money      `json:"total"`
	DueDate      time.Time        `json:"due_date"`
	Notes        string           `json:"notes,omitempty"`
	Status       Status           `json:"status"`
	BillTo       BillTo           `json:"bill_to"`
	Export       *Export          `json:"export,omitempty"`
	SentAt       *time.Time       `json:"sent_at,omitempty"`
	PaidAt       *time.Time       `json:"paid_at,omitempty"`
	OverdueAt    *time.Time       `json:"overdue_at,omitempty"`
	VoidedAt     *time.Time       `json:"voided_at,omitempty"`
}

// DisplayNumber renders the durable number, e.g. "INV-000042".
func (inv *Invoice) DisplayNumber() string { return FormatNumber(inv.Number) }

// FileName is the blob key of the exported document.
func (inv *Invoice) FileName() string { return "invoice-" + inv.DisplayNumber() + ".pdf" }

// IsOverdue reports whether the due date has passed at now and the invoice
// can still move to overdue.
func (inv *Invoice) IsOverdue(now time.Time) bool {
	return now.After(inv.DueDate) && CanTransition(inv.Status, StatusOverdue)
}

// FormatNumber renders n as "INV-" followed by at least six digits.
func FormatNumber(n int64) string { return fmt.Sprintf("INV-%06d", n) }

// LineItem is one priced row of the snapshot.
type LineItem struct {
	ID              id.LineItemID  `json:"id"`
	Type            LineItemType   `json:"type"`
	TimeEntryID     id.TimeEntryID `json:"time_entry_id,omitzero"`
	Description     string         `json:"description"`
	EntryDate       time.Time      `json:"entry_date,omitzero"`
	DurationMinutes int64          `json:"duration_minutes,omitempty"`
	Rate            *types.Money   `json:"rate,omitempty"`
	Amount          types.Money    `json:"amount"`
}

// LineItemType distinguishes time-priced rows from the flat-fee row.
type LineItemType string

const (
	LineItemTime    LineItemType = "time"
	LineItemFlatFee LineItemType = "flat_fee"
)

// BillTo is the client and matter identity copied at creation, so that
// rendering never reads live client or matter state.
type BillTo struct {
	ClientName      string `json:"client_name"`
	ClientEmail     string `json:"client_email,omitempty"`
	ClientPhone     string `json:"client_phone,omitempty"`
	ClientAddress   string `json:"client_address,omitempty"`
	MatterTitle     string `json:"matter_title"`
	MatterReference string `json:"matter_reference,omitempty"`
}

// Export is the stored document reference of the latest successful export.
type Export struct {
	URL        string    `json:"url"`
	FileName   string    `json:"file_name"`
	ExportedAt time.Time `json:"exported_at"`
}
