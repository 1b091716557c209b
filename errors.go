package docket

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/docket/id"
	"github.com/xraph/docket/invoice"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("docket: not found")
	ErrAlreadyExists = errors.New("docket: already exists")
	ErrInvalidInput  = errors.New("docket: invalid input")
	ErrConflict      = errors.New("docket: conflict")
	ErrUnavailable   = errors.New("docket: unavailable")

	// Lifecycle errors
	ErrInvalidTransition = invoice.ErrInvalidTransition

	// Store errors
	ErrStoreClosed     = errors.New("docket: store is closed")
	ErrMigrationFailed = errors.New("docket: migration failed")

	// Export errors
	ErrNoBlobStore = errors.New("docket: no blob store configured")
)

// Not-found sentinels. Their messages are exactly "<Resource> not found".
var (
	ErrInvoiceNotFound   = &NotFoundError{Resource: "Invoice"}
	ErrMatterNotFound    = &NotFoundError{Resource: "Matter"}
	ErrClientNotFound    = &NotFoundError{Resource: "Client"}
	ErrTimeEntryNotFound = &NotFoundError{Resource: "Time entry"}
)

// Conflict sentinels, matched by Reason.
var (
	ErrEntryAlreadyInvoiced = &ConflictError{Reason: "time entry already invoiced"}
	ErrStatusChanged        = &ConflictError{Reason: "invoice status changed concurrently"}
	ErrDuplicateNumber      = &ConflictError{Reason: "invoice number already allocated"}
)

// InvalidTransitionError names the current and the requested invoice status.
type InvalidTransitionError = invoice.TransitionError

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("docket: validation failed for %s: %s", e.Field, e.Message)
}

// Is reports ErrInvalidInput as matching.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// Is matches ErrNotFound and any NotFoundError for the same resource.
func (e *NotFoundError) Is(target error) bool {
	if target == ErrNotFound {
		return true
	}
	var nf *NotFoundError
	if errors.As(target, &nf) {
		return nf.Resource == e.Resource
	}
	return false
}

// WithID returns a copy of e carrying the missing id.
func (e *NotFoundError) WithID(i id.ID) *NotFoundError {
	return &NotFoundError{Resource: e.Resource, ID: i.String()}
}

// ConflictError reports a lost race or a double claim. The caller must
// re-read state and decide again; it is never retried automatically.
type ConflictError struct {
	Reason string
	IDs    []string
}

func (e *ConflictError) Error() string {
	if len(e.IDs) == 0 {
		return "docket: conflict: " + e.Reason
	}
	return fmt.Sprintf("docket: conflict: %s: %s", e.Reason, strings.Join(e.IDs, ", "))
}

// Is matches ErrConflict and any ConflictError with the same reason.
func (e *ConflictError) Is(target error) bool {
	if target == ErrConflict {
		return true
	}
	var ce *ConflictError
	if errors.As(target, &ce) {
		return ce.Reason == e.Reason
	}
	return false
}

// EntriesAlreadyInvoiced builds the conflict returned when a claim finds an
// entry that already carries an invoice id.
func EntriesAlreadyInvoiced(ids ...id.ID) error {
	return &ConflictError{Reason: ErrEntryAlreadyInvoiced.Reason, IDs: id.Strings(ids)}
}

// UnavailableError wraps a storage or network failure. It is safe to retry.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("docket: %s unavailable: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Is reports ErrUnavailable as matching.
func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true for claim and status races.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidation returns true for caller input errors.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// classify leaves taxonomy errors untouched and wraps everything else,
// including context deadlines, as UnavailableError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrUnavailable):
		return err
	}
	return &UnavailableError{Op: op, Err: err}
}
