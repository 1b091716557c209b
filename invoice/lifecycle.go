package invoice

import (
	"errors"
	"fmt"
	"slices"
)

// Status is the lifecycle state of an invoice.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusSent    Status = "sent"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
	StatusVoid    Status = "void"
)

// ErrInvalidTransition is matched by every TransitionError.
var ErrInvalidTransition = errors.New("docket: invalid invoice status transition")

// transitions lists the allowed targets of each status. paid and void have
// no outgoing edges.
var transitions = map[Status][]Status{
	StatusDraft:   {StatusSent, StatusOverdue, StatusVoid},
	StatusSent:    {StatusPaid, StatusOverdue, StatusVoid},
	StatusOverdue: {StatusVoid},
}

// Statuses returns every known status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusVoid}
}

// ParseStatus validates s as a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("invoice: unknown status %q", s)
	}
	return st, nil
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return slices.Contains(Statuses(), s) }

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool { return s.Valid() && len(transitions[s]) == 0 }

// CanTransition reports whether from → to is an edge of the lifecycle.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// CheckTransition returns a *TransitionError unless from → to is allowed.
func CheckTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// TransitionError is a lifecycle violation.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("docket: invalid invoice transition from %q to %q", e.From, e.To)
}

// Is reports ErrInvalidTransition as matching.
func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }
