package timeentry

import (
	"context"
	"time"

	"github.com/xraph/docket/id"
)

// Store is the time entry ledger.
type Store interface {
	CreateTimeEntry(ctx context.Context, e *TimeEntry) error
	GetTimeEntry(ctx context.Context, entryID id.TimeEntryID) (*TimeEntry, error)

	// ListUnbilled returns billable, unclaimed entries of the matter ordered
	// by entry date ascending.
	ListUnbilled(ctx context.Context, matterID id.MatterID) ([]*TimeEntry, error)

	// MarkInvoiced claims exactly entryIDs for invoiceID, stamping them
	// with at. If any entry is missing or already claimed nothing changes
	// and the offending entries are reported.
	MarkInvoiced(ctx context.Context, entryIDs []id.TimeEntryID, invoiceID id.InvoiceID, at time.Time) error
}
