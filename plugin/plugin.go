// Package plugin provides an extensible plugin system for Docket.
// Plugins hook into billing lifecycle events; a failing or slow plugin never
// fails the operation that emitted the event.
package plugin

import (
	"context"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Time entry hooks
// ──────────────────────────────────────────────────

// OnTimeEntryRecorded is called after a time entry is stored.
type OnTimeEntryRecorded interface {
	Plugin
	OnTimeEntryRecorded(ctx context.Context, entry interface{}) error
}

// ──────────────────────────────────────────────────
// Invoice lifecycle hooks
// ──────────────────────────────────────────────────

// OnInvoiceCreated is called after an invoice and its claims are committed.
type OnInvoiceCreated interface {
	Plugin
	OnInvoiceCreated(ctx context.Context, inv interface{}) error
}

// OnInvoiceStatusChanged is called after every committed transition.
type OnInvoiceStatusChanged interface {
	Plugin
	OnInvoiceStatusChanged(ctx context.Context, inv interface{}, from, to string) error
}

// OnInvoicePaid is called when an invoice is paid.
type OnInvoicePaid interface {
	Plugin
	OnInvoicePaid(ctx context.Context, inv interface{}) error
}

// OnInvoiceOverdue is called when an invoice becomes overdue, manually or
// through the sweep.
type OnInvoiceOverdue interface {
	Plugin
	OnInvoiceOverdue(ctx context.Context, inv interface{}) error
}

// OnInvoiceVoided is called when an invoice is voided.
type OnInvoiceVoided interface {
	Plugin
	OnInvoiceVoided(ctx context.Context, inv interface{}) error
}

// ──────────────────────────────────────────────────
// Export hooks
// ──────────────────────────────────────────────────

// OnInvoiceExported is called after a PDF is uploaded and recorded.
type OnInvoiceExported interface {
	Plugin
	OnInvoiceExported(ctx context.Context, inv interface{}, url string) error
}

// OnInvoiceExportFailed is called when rendering or uploading fails.
type OnInvoiceExportFailed interface {
	Plugin
	OnInvoiceExportFailed(ctx context.Context, invoiceID string, err error) error
}
