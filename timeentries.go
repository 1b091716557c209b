package docket

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/xraph/docket/id"
	"github.com/xraph/docket/matter"
	"github.com/xraph/docket/timeentry"
	"github.com/xraph/docket/types"
)

// ──────────────────────────────────────────────────
// Time Entry Ledger
// ──────────────────────────────────────────────────

// TimeEntryInput is the work being logged. HourlyRate may be nil only on
// flat-fee matters. A zero EntryDate means today.
type TimeEntryInput struct {
	MatterID        id.MatterID
	Description     string
	DurationMinutes int64
	HourlyRate      *types.Money
	Billable        bool
	EntryDate       time.Time
}

// RecordTimeEntry validates and appends a time entry to the ledger.
func (e *Engine) RecordTimeEntry(ctx context.Context, in TimeEntryInput) (*timeentry.TimeEntry, error) {
	raw := strings.TrimSpace(in.Description)
	if raw == "" {
		return nil, invalid("description", "must not be empty")
	}
	if in.DurationMinutes <= 0 {
		return nil, invalid("duration_minutes", "must be positive, got %d", in.DurationMinutes)
	}
	if in.MatterID.IsNil() {
		return nil, invalid("matter_id", "is required")
	}

	m, err := e.getMatter(ctx, in.MatterID)
	if err != nil {
		return nil, err
	}
	if m.Status == matter.StatusClosed {
		return nil, invalid("matter_id", "matter %s is closed", m.ID)
	}
	if err := checkRate(m, in.HourlyRate); err != nil {
		return nil, err
	}

	now := e.clock()
	entryDate := in.EntryDate
	if entryDate.IsZero() {
		entryDate = now
	}

	te := &timeentry.TimeEntry{
		Entity:          types.NewEntity(now),
		ID:              id.NewTimeEntryID(),
		MatterID:        m.ID,
		Description:     e.narrator.Apply(ctx, raw),
		RawDescription:  raw,
		DurationMinutes: in.DurationMinutes,
		Billable:        in.Billable,
		EntryDate:       entryDate.UTC(),
	}
	if in.HourlyRate != nil {
		rate := types.New(in.HourlyRate.Amount, in.HourlyRate.Currency)
		te.HourlyRate = &rate
	}

	opCtx, cancel := e.opContext(ctx)
	defer cancel()
	if err := e.store.CreateTimeEntry(opCtx, te); err != nil {
		return nil, classify("create time entry", err)
	}

	e.plugins.EmitTimeEntryRecorded(ctx, te)
	e.logger.Debug("time entry recorded",
		"entry_id", te.ID.String(),
		"matter_id", te.MatterID.String(),
		"minutes", te.DurationMinutes,
		"billable", te.Billable,
	)
	return te, nil
}

// checkRate enforces the rate rules for the matter's billing variant.
func checkRate(m *matter.Matter, rate *types.Money) error {
	if rate == nil {
		if _, hourly := m.Billing.(matter.Hourly); hourly {
			return invalid("hourly_rate", "is required on hourly matter %s", m.ID)
		}
		return nil
	}
	if rate.IsNegative() {
		return invalid("hourly_rate", "must not be negative")
	}
	if !rate.SameCurrency(types.Zero(m.Currency)) {
		return invalid("hourly_rate", "currency %s differs from matter currency %s", rate.Currency, m.Currency)
	}
	return nil
}

// GetTimeEntry retrieves a time entry by ID.
func (e *Engine) GetTimeEntry(ctx context.Context, entryID id.TimeEntryID) (*timeentry.TimeEntry, error) {
	opCtx, cancel := e.opContext(ctx)
	defer cancel()

	te, err := e.store.GetTimeEntry(opCtx, entryID)
	if err != nil {
		return nil, classify("get time entry", err)
	}
	return te, nil
}

// ListUnbilled returns the billable, unclaimed entries of a matter by entry
// date.
func (e *Engine) ListUnbilled(ctx context.Context, matterID id.MatterID) ([]*timeentry.TimeEntry, error) {
	opCtx, cancel := e.opContext(ctx)
	defer cancel()

	entries, err := e.store.ListUnbilled(opCtx, matterID)
	if err != nil {
		return nil, classify("list unbilled", err)
	}
	return entries, nil
}

// MarkInvoiced claims entryIDs for invoiceID. The invoice must exist and
// every entry must belong to its matter. Claiming an entry twice is a
// ConflictError, never a no-op. CreateInvoice claims its own entries; this
// is for callers reconciling invoices created elsewhere.
func (e *Engine) MarkInvoiced(ctx context.Context, entryIDs []id.TimeEntryID, invoiceID id.InvoiceID) error {
	if len(entryIDs) == 0 {
		return invalid("time_entry_ids", "must not be empty")
	}
	if invoiceID.IsNil() {
		return invalid("invoice_id", "is required")
	}
	if dup, ok := firstDuplicate(entryIDs); ok {
		return invalid("time_entry_ids", "duplicate id %s", dup)
	}

	inv, err := e.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	for _, eid := range entryIDs {
		te, err := e.GetTimeEntry(ctx, eid)
		if errors.Is(err, ErrTimeEntryNotFound) {
			return ErrTimeEntryNotFound.WithID(eid)
		}
		if err != nil {
			return err
		}
		if te.MatterID != inv.MatterID {
			return ErrTimeEntryNotFound.WithID(eid)
		}
	}

	opCtx, cancel := e.opContext(ctx)
	defer cancel()

	if err := e.store.MarkInvoiced(opCtx, entryIDs, invoiceID, e.clock()); err != nil {
		return classify("mark invoiced", err)
	}
	return nil
}

func (e *Engine) getMatter(ctx context.Context, matterID id.MatterID) (*matter.Matter, error) {
	opCtx, cancel := e.opContext(ctx)
	defer cancel()

	m, err := e.store.GetMatter(opCtx, matterID)
	if errors.Is(err, ErrMatterNotFound) {
		return nil, ErrMatterNotFound.WithID(matterID)
	}
	if err != nil {
		return nil, classify("get matter", err)
	}
	if m.Billing == nil {
		return nil, invalid("matter_id", "matter %s has no billing mode", m.ID)
	}
	return m, nil
}

func firstDuplicate(ids []id.TimeEntryID) (id.TimeEntryID, bool) {
	seen := make(map[string]struct{}, len(ids))
	for _, eid := range ids {
		if _, ok := seen[eid.String()]; ok {
			return eid, true
		}
		seen[eid.String()] = struct{}{}
	}
	return id.Nil, false
}
