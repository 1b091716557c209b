package invoice

import (
	"errors"
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusDraft, StatusSent, true},
		{StatusSent, StatusPaid, true},
		{StatusDraft, StatusOverdue, true},
		{StatusSent, StatusOverdue, true},
		{StatusDraft, StatusVoid, true},
		{StatusSent, StatusVoid, true},
		{StatusOverdue, StatusVoid, true},

		{StatusDraft, StatusPaid, false},
		{StatusPaid, StatusDraft, false},
		{StatusPaid, StatusVoid, false},
		{StatusVoid, StatusDraft, false},
		{StatusVoid, StatusSent, false},
		{StatusOverdue, StatusPaid, false},
		{StatusOverdue, StatusSent, false},
		{StatusSent, StatusDraft, false},
		{StatusDraft, StatusDraft, false},
		{Status("bogus"), StatusSent, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range Statuses() {
		want := s == StatusPaid || s == StatusVoid
		if s.IsTerminal() != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, s.IsTerminal(), want)
		}
	}
	if Status("bogus").IsTerminal() {
		t.Error("unknown status reported terminal")
	}
}

func TestCheckTransitionError(t *testing.T) {
	err := CheckTransition(StatusPaid, StatusDraft)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	var te *TransitionError
	if !errors.As(err, &te) || te.From != StatusPaid || te.To != StatusDraft {
		t.Errorf("unexpected transition error: %#v", err)
	}
	if CheckTransition(StatusDraft, StatusSent) != nil {
		t.Error("draft -> sent rejected")
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseStatus("overdue"); err != nil || s != StatusOverdue {
		t.Errorf("got %q, %v", s, err)
	}
	if _, err := ParseStatus("cancelled"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{1, "INV-000001"},
		{42, "INV-000042"},
		{999999, "INV-999999"},
		{1234567, "INV-1234567"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.n); got != tt.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}

	inv := &Invoice{Number: 42}
	if got := inv.FileName(); got != "invoice-INV-000042.pdf" {
		t.Errorf("FileName() = %q", got)
	}
}

func TestStampStatus(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	inv := &Invoice{Status: StatusDraft}

	StampStatus(inv, StatusSent, at)
	if inv.Status != StatusSent || inv.SentAt == nil || !inv.SentAt.Equal(at) {
		t.Fatalf("sent not stamped: %+v", inv)
	}
	StampStatus(inv, StatusPaid, at.Add(time.Hour))
	if inv.PaidAt == nil || !inv.UpdatedAt.Equal(at.Add(time.Hour)) {
		t.Fatalf("paid not stamped: %+v", inv)
	}
	if StatusColumn(StatusDraft) != "" || StatusColumn(StatusVoid) != "voided_at" {
		t.Error("unexpected status columns")
	}
}

func TestIsOverdue(t *testing.T) {
	due := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	inv := &Invoice{Status: StatusSent, DueDate: due}

	if inv.IsOverdue(due.Add(-time.Minute)) {
		t.Error("overdue before due date")
	}
	if !inv.IsOverdue(due.Add(time.Minute)) {
		t.Error("not overdue after due date")
	}
	inv.Status = StatusPaid
	if inv.IsOverdue(due.Add(time.Minute)) {
		t.Error("paid invoice reported overdue")
	}
}
