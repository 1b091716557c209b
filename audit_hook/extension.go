// Package audithook bridges Docket billing events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/docket/invoice"
	"github.com/xraph/docket/plugin"
	"github.com/xraph/docket/timeentry"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnTimeEntryRecorded    = (*Extension)(nil)
	_ plugin.OnInvoiceCreated       = (*Extension)(nil)
	_ plugin.OnInvoiceStatusChanged = (*Extension)(nil)
	_ plugin.OnInvoicePaid          = (*Extension)(nil)
	_ plugin.OnInvoiceOverdue       = (*Extension)(nil)
	_ plugin.OnInvoiceVoided        = (*Extension)(nil)
	_ plugin.OnInvoiceExported      = (*Extension)(nil)
	_ plugin.OnInvoiceExportFailed  = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a single audit trail record.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Docket billing events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Time entry hooks
// ──────────────────────────────────────────────────

// OnTimeEntryRecorded implements plugin.OnTimeEntryRecorded.
func (e *Extension) OnTimeEntryRecorded(ctx context.Context, entry interface{}) error {
	te, ok := entry.(*timeentry.TimeEntry)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionTimeEntryRecorded, SeverityInfo, OutcomeSuccess,
		ResourceTimeEntry, te.ID.String(), CategoryLedger, nil,
		"matter_id", te.MatterID.String(),
		"duration_minutes", te.DurationMinutes,
		"billable", te.Billable,
	)
}

// ──────────────────────────────────────────────────
// Invoice lifecycle hooks
// ──────────────────────────────────────────────────

// OnInvoiceCreated implements plugin.OnInvoiceCreated.
func (e *Extension) OnInvoiceCreated(ctx context.Context, v interface{}) error {
	inv, ok := v.(*invoice.Invoice)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionInvoiceCreated, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryBilling, nil,
		"number", inv.DisplayNumber(),
		"matter_id", inv.MatterID.String(),
		"entries", len(inv.TimeEntryIDs),
		"total", inv.Total.String(),
	)
}

// OnInvoiceStatusChanged implements plugin.OnInvoiceStatusChanged.
func (e *Extension) OnInvoiceStatusChanged(ctx context.Context, v interface{}, from, to string) error {
	inv, ok := v.(*invoice.Invoice)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionInvoiceStatusChanged, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryBilling, nil,
		"number", inv.DisplayNumber(),
		"from", from,
		"to", to,
	)
}

// OnInvoicePaid implements plugin.OnInvoicePaid.
func (e *Extension) OnInvoicePaid(ctx context.Context, v interface{}) error {
	inv, ok := v.(*invoice.Invoice)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionInvoicePaid, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryPayment, nil,
		"number", inv.DisplayNumber(),
		"total", inv.Total.String(),
	)
}

// OnInvoiceOverdue implements plugin.OnInvoiceOverdue.
func (e *Extension) OnInvoiceOverdue(ctx context.Context, v interface{}) error {
	inv, ok := v.(*invoice.Invoice)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionInvoiceOverdue, SeverityWarning, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryPayment, nil,
		"number", inv.DisplayNumber(),
		"due_date", inv.DueDate,
	)
}

// OnInvoiceVoided implements plugin.OnInvoiceVoided.
func (e *Extension) OnInvoiceVoided(ctx context.Context, v interface{}) error {
	inv, ok := v.(*invoice.Invoice)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionInvoiceVoided, SeverityWarning, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryBilling, nil,
		"number", inv.DisplayNumber(),
	)
}

// ──────────────────────────────────────────────────
// Export hooks
// ──────────────────────────────────────────────────

// OnInvoiceExported implements plugin.OnInvoiceExported.
func (e *Extension) OnInvoiceExported(ctx context.Context, v interface{}, url string) error {
	inv, ok := v.(*invoice.Invoice)
	if !ok {
		return nil
	}
	return e.record(ctx, ActionInvoiceExported, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryDocument, nil,
		"number", inv.DisplayNumber(),
		"url", url,
	)
}

// OnInvoiceExportFailed implements plugin.OnInvoiceExportFailed.
func (e *Extension) OnInvoiceExportFailed(ctx context.Context, invoiceID string, err error) error {
	return e.record(ctx, ActionInvoiceExportFailed, SeverityError, OutcomeFailure,
		ResourceInvoice, invoiceID, CategoryDocument, err,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
