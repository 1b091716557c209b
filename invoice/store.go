package invoice

import (
	"context"
	"time"

	"github.com/xraph/docket/id"
)

// Sequencer allocates invoice numbers. Every value is unique and greater
// than any value returned by an earlier completed call, across every
// process sharing the store. Gaps are allowed.
type Sequencer interface {
	NextInvoiceNumber(ctx context.Context) (int64, error)
}

// Store persists invoices.
type Store interface {
	Sequencer

	// CreateInvoice inserts inv and claims inv.TimeEntryIDs for it as one
	// atomic operation. If any entry is already claimed nothing is written
	// and a conflict is returned.
	CreateInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, invID id.InvoiceID) (*Invoice, error)
	ListInvoices(ctx context.Context, matterID id.MatterID, opts ListOpts) ([]*Invoice, error)

	// UpdateInvoiceStatus moves the invoice from → to only if its stored
	// status is still from, stamping the timestamp that belongs to to.
	UpdateInvoiceStatus(ctx context.Context, invID id.InvoiceID, from, to Status, at time.Time) error

	// SetInvoiceExport records the export reference. The last writer wins.
	SetInvoiceExport(ctx context.Context, invID id.InvoiceID, exp Export) error

	// ListOverdueCandidates returns draft and sent invoices whose due date
	// is before asOf.
	ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]*Invoice, error)
}

// ListOpts filters ListInvoices.
type ListOpts struct {
	Status Status
	Limit  int
	Offset int
}

// StampStatus sets the lifecycle timestamp for to on inv. Stores use it so
// every backend records the same columns.
func StampStatus(inv *Invoice, to Status, at time.Time) {
	t := at.UTC()
	switch to {
	case StatusSent:
		inv.SentAt = &t
	case StatusPaid:
		inv.PaidAt = &t
	case StatusOverdue:
		inv.OverdueAt = &t
	case StatusVoid:
		inv.VoidedAt = &t
	}
	inv.Status = to
	inv.UpdatedAt = t
}

// StatusColumn names the timestamp column stamped on entering to, or ""
// for statuses without one.
func StatusColumn(to Status) string {
	switch to {
	case StatusSent:
		return "sent_at"
	case StatusPaid:
		return "paid_at"
	case StatusOverdue:
		return "overdue_at"
	case StatusVoid:
		return "voided_at"
	}
	return ""
}
