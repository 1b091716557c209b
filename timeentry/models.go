// Package timeentry defines logged units of work and their ledger store.
package timeentry

import (
	"time"

	"github.com/xraph/docket/id"
	"github.com/xraph/docket/types"
)

// TimeEntry is a unit of work logged against a matter. InvoiceID is Nil
// until an invoice claims the entry and never changes after that.
type TimeEntry struct {
	types.Entity
	ID              id.TimeEntryID `json:"id"`
	MatterID        id.MatterID    `json:"matter_id"`
	Description     string         `json:"description"`
	RawDescription  string         `json:"raw_description"`
	DurationMinutes int64          `json:"duration_minutes"`
	HourlyRate      *types.Money   `json:"hourly_rate,omitempty"`
	Billable        bool           `json:"billable"`
	EntryDate       time.Time      `json:"entry_date"`
	InvoiceID       id.InvoiceID   `json:"invoice_id,omitzero"`
}

// IsInvoiced reports whether an invoice has claimed the entry.
func (e *TimeEntry) IsInvoiced() bool { return !e.InvoiceID.IsNil() }

// IsUnbilled reports whether the entry is billable and unclaimed.
func (e *TimeEntry) IsUnbilled() bool { return e.Billable && !e.IsInvoiced() }

// Less orders entries by entry date, then id.
func Less(a, b *TimeEntry) int {
	if c := a.EntryDate.Compare(b.EntryDate); c != 0 {
		return c
	}
	return id.Compare(a.ID, b.ID)
}
