// Package observability provides a metrics extension for Docket that
// records billing event counts through a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/docket/invoice"
	"github.com/xraph/docket/plugin"
	"github.com/xraph/docket/timeentry"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnTimeEntryRecorded    = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceCreated       = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceStatusChanged = (*MetricsExtension)(nil)
	_ plugin.OnInvoicePaid          = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceOverdue       = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceVoided        = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceExported      = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceExportFailed  = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records billing metrics.
// Register it as a Docket plugin to track them automatically.
type MetricsExtension struct {
	factory MetricFactory

	// Ledger metrics
	TimeEntriesRecorded Counter
	MinutesRecorded     Counter
	MinutesBillable     Counter

	// Invoice metrics
	InvoicesCreated  Counter
	InvoiceTotal     Histogram
	InvoiceLineItems Histogram
	StatusChanges    Counter
	InvoicesSent     Counter
	InvoicesPaid     Counter
	InvoicesOverdue  Counter
	InvoicesVoided   Counter

	// Export metrics
	ExportsSucceeded Counter
	ExportsFailed    Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		TimeEntriesRecorded: factory.Counter("docket.time_entries.recorded"),
		MinutesRecorded:     factory.Counter("docket.time_entries.minutes"),
		MinutesBillable:     factory.Counter("docket.time_entries.billable_minutes"),

		InvoicesCreated:  factory.Counter("docket.invoice.created"),
		InvoiceTotal:     factory.Histogram("docket.invoice.total_minor_units"),
		InvoiceLineItems: factory.Histogram("docket.invoice.line_items"),
		StatusChanges:    factory.Counter("docket.invoice.status_changes"),
		InvoicesSent:     factory.Counter("docket.invoice.sent"),
		InvoicesPaid:     factory.Counter("docket.invoice.paid"),
		InvoicesOverdue:  factory.Counter("docket.invoice.overdue"),
		InvoicesVoided:   factory.Counter("docket.invoice.voided"),

		ExportsSucceeded: factory.Counter("docket.export.succeeded"),
		ExportsFailed:    factory.Counter("docket.export.failed"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Time entry hooks
// ──────────────────────────────────────────────────

// OnTimeEntryRecorded implements plugin.OnTimeEntryRecorded.
func (m *MetricsExtension) OnTimeEntryRecorded(_ context.Context, entry interface{}) error {
	m.TimeEntriesRecorded.Inc()
	if te, ok := entry.(*timeentry.TimeEntry); ok {
		m.MinutesRecorded.Add(float64(te.DurationMinutes))
		if te.Billable {
			m.MinutesBillable.Add(float64(te.DurationMinutes))
		}
	}
	return nil
}

// ──────────────────────────────────────────────────
// Invoice lifecycle hooks
// ──────────────────────────────────────────────────

// OnInvoiceCreated implements plugin.OnInvoiceCreated.
func (m *MetricsExtension) OnInvoiceCreated(_ context.Context, v interface{}) error {
	m.InvoicesCreated.Inc()
	if inv, ok := v.(*invoice.Invoice); ok {
		m.InvoiceTotal.Observe(float64(inv.Total.Amount))
		m.InvoiceLineItems.Observe(float64(len(inv.LineItems)))
	}
	return nil
}

// OnInvoiceStatusChanged implements plugin.OnInvoiceStatusChanged.
func (m *MetricsExtension) OnInvoiceStatusChanged(_ context.Context, _ interface{}, _, to string) error {
	m.StatusChanges.Inc()
	if to == string(invoice.StatusSent) {
		m.InvoicesSent.Inc()
	}
	return nil
}

// OnInvoicePaid implements plugin.OnInvoicePaid.
func (m *MetricsExtension) OnInvoicePaid(_ context.Context, _ interface{}) error {
	m.InvoicesPaid.Inc()
	return nil
}

// OnInvoiceOverdue implements plugin.OnInvoiceOverdue.
func (m *MetricsExtension) OnInvoiceOverdue(_ context.Context, _ interface{}) error {
	m.InvoicesOverdue.Inc()
	return nil
}

// OnInvoiceVoided implements plugin.OnInvoiceVoided.
func (m *MetricsExtension) OnInvoiceVoided(_ context.Context, _ interface{}) error {
	m.InvoicesVoided.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Export hooks
// ──────────────────────────────────────────────────

// OnInvoiceExported implements plugin.OnInvoiceExported.
func (m *MetricsExtension) OnInvoiceExported(_ context.Context, _ interface{}, _ string) error {
	m.ExportsSucceeded.Inc()
	return nil
}

// OnInvoiceExportFailed implements plugin.OnInvoiceExportFailed.
func (m *MetricsExtension) OnInvoiceExportFailed(_ context.Context, _ string, _ error) error {
	m.ExportsFailed.Inc()
	return nil
}
