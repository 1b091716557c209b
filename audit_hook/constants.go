package audithook

// Action constants for audit events.
const (
	// Time entry actions
	ActionTimeEntryRecorded = "time_entry.recorded"

	// Invoice actions
	ActionInvoiceCreated       = "invoice.created"
	ActionInvoiceStatusChanged = "invoice.status_changed"
	ActionInvoicePaid          = "invoice.paid"
	ActionInvoiceOverdue       = "invoice.overdue"
	ActionInvoiceVoided        = "invoice.voided"

	// Export actions
	ActionInvoiceExported     = "invoice.exported"
	ActionInvoiceExportFailed = "invoice.export_failed"
)

// Resource constants for audit events.
const (
	ResourceTimeEntry = "time_entry"
	ResourceInvoice   = "invoice"
)

// Category constants for audit events.
const (
	CategoryLedger   = "ledger"
	CategoryBilling  = "billing"
	CategoryPayment  = "payment"
	CategoryDocument = "document"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
