package docket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/docket/billing"
	"github.com/xraph/docket/id"
	"github.com/xraph/docket/invoice"
	"github.com/xraph/docket/matter"
	"github.com/xraph/docket/timeentry"
	"github.com/xraph/docket/types"
)

// ──────────────────────────────────────────────────
// Invoice Generation
// ──────────────────────────────────────────────────

// InvoiceInput selects the work to bill. TimeEntryIDs may be empty only on
// flat-fee matters.
type InvoiceInput struct {
	MatterID     id.MatterID
	ClientID     id.ClientID
	TimeEntryIDs []id.TimeEntryID
	DueDate      time.Time
	Notes        string
}

// CreateInvoice prices the selected entries, allocates an invoice number
// and persists a draft invoice together with the claims on its entries.
// Every check runs before anything is written; if the final write loses a
// race for any entry the whole invoice is rejected with a ConflictError.
func (e *Engine) CreateInvoice(ctx context.Context, in InvoiceInput) (*invoice.Invoice, error) {
	if in.MatterID.IsNil() {
		return nil, invalid("matter_id", "is required")
	}
	if in.ClientID.IsNil() {
		return nil, invalid("client_id", "is required")
	}
	if in.DueDate.IsZero() {
		return nil, invalid("due_date", "is required")
	}
	if dup, ok := firstDuplicate(in.TimeEntryIDs); ok {
		return nil, invalid("time_entry_ids", "duplicate id %s", dup)
	}

	m, err := e.getMatter(ctx, in.MatterID)
	if err != nil {
		return nil, err
	}
	if m.ClientID != in.ClientID {
		return nil, invalid("client_id", "matter %s does not belong to client %s", m.ID, in.ClientID)
	}
	if _, hourly := m.Billing.(matter.Hourly); hourly && len(in.TimeEntryIDs) == 0 {
		return nil, invalid("time_entry_ids", "an hourly invoice needs at least one entry")
	}

	client, err := e.getClient(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}

	entries, err := e.loadBillable(ctx, m, in.TimeEntryIDs)
	if err != nil {
		return nil, err
	}

	priced, err := billing.Price(m, entries)
	if err != nil {
		if errors.Is(err, billing.ErrMissingRate) || errors.Is(err, billing.ErrNegativeInput) {
			return nil, invalid("time_entry_ids", "%v", err)
		}
		return nil, fmt.Errorf("docket: price invoice: %w", err)
	}

	number, err := e.nextNumber(ctx)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	inv := &invoice.Invoice{
		Entity:       types.NewEntity(now),
		ID:           id.NewInvoiceID(),
		Number:       number,
		MatterID:     m.ID,
		ClientID:     client.ID,
		TimeEntryIDs: append([]id.TimeEntryID(nil), in.TimeEntryIDs...),
		LineItems:    priced.LineItems,
		Currency:     m.Currency,
		Subtotal:     priced.Subtotal,
		Total:        priced.Total,
		DueDate:      in.DueDate.UTC(),
		Notes:        in.Notes,
		Status:       invoice.StatusDraft,
		BillTo: invoice.BillTo{
			ClientName:      client.Name,
			ClientEmail:     client.Email,
			ClientPhone:     client.Phone,
			ClientAddress:   client.Address,
			MatterTitle:     m.Title,
			MatterReference: m.Reference,
		},
	}

	opCtx, cancel := e.opContext(ctx)
	defer cancel()
	if err := e.store.CreateInvoice(opCtx, inv); err != nil {
		e.logger.Warn("invoice not created",
			"matter_id", m.ID.String(),
			"number", inv.DisplayNumber(),
			"error", err,
		)
		return nil, classify("create invoice", err)
	}

	e.plugins.EmitInvoiceCreated(ctx, inv)
	e.logger.Info("invoice created",
		"invoice_id", inv.ID.String(),
		"number", inv.DisplayNumber(),
		"matter_id", m.ID.String(),
		"entries", len(inv.TimeEntryIDs),
		"total", inv.Total.String(),
	)
	return inv, nil
}

// loadBillable fetches entryIDs and checks that every one belongs to m, is
// billable and is still unclaimed. All claimed entries are reported
// together.
func (e *Engine) loadBillable(ctx context.Context, m *matter.Matter, entryIDs []id.TimeEntryID) ([]*timeentry.TimeEntry, error) {
	entries := make([]*timeentry.TimeEntry, 0, len(entryIDs))
	var claimed []id.ID

	for _, eid := range entryIDs {
		te, err := e.GetTimeEntry(ctx, eid)
		if errors.Is(err, ErrTimeEntryNotFound) {
			return nil, ErrTimeEntryNotFound.WithID(eid)
		}
		if err != nil {
			return nil, err
		}
		if te.MatterID != m.ID {
			return nil, ErrTimeEntryNotFound.WithID(eid)
		}
		if !te.Billable {
			return nil, invalid("time_entry_ids", "entry %s is not billable", eid)
		}
		if te.IsInvoiced() {
			claimed = append(claimed, eid)
			continue
		}
		entries = append(entries, te)
	}

	if len(claimed) > 0 {
		return nil, EntriesAlreadyInvoiced(claimed...)
	}
	return entries, nil
}

func (e *Engine) getClient(ctx context.Context, clientID id.ClientID) (*matter.Client, error) {
	opCtx, cancel := e.opContext(ctx)
	defer cancel()

	c, err := e.store.GetClient(opCtx, clientID)
	if errors.Is(err, ErrClientNotFound) {
		return nil, ErrClientNotFound.WithID(clientID)
	}
	if err != nil {
		return nil, classify("get client", err)
	}
	return c, nil
}

func (e *Engine) nextNumber(ctx context.Context) (int64, error) {
	opCtx, cancel := e.opContext(ctx)
	defer cancel()

	n, err := e.store.NextInvoiceNumber(opCtx)
	if err != nil {
		return 0, classify("allocate invoice number", err)
	}
	return n, nil
}

// GetInvoice retrieves an invoice by ID.
func (e *Engine) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	opCtx, cancel := e.opContext(ctx)
	defer cancel()

	inv, err := e.store.GetInvoice(opCtx, invID)
	if errors.Is(err, ErrInvoiceNotFound) {
		// The message stays "Invoice not found"; the id travels on the value.
		return nil, ErrInvoiceNotFound.WithID(invID)
	}
	if err != nil {
		return nil, classify("get invoice", err)
	}
	return inv, nil
}

// ListInvoices lists the invoices of a matter by number.
func (e *Engine) ListInvoices(ctx context.Context, matterID id.MatterID, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, invalid("status", "unknown invoice status %q", opts.Status)
	}
	if opts.Limit < 0 || opts.Offset < 0 {
		return nil, invalid("limit", "limit and offset must not be negative")
	}

	opCtx, cancel := e.opContext(ctx)
	defer cancel()

	invs, err := e.store.ListInvoices(opCtx, matterID, opts)
	if err != nil {
		return nil, classify("list invoices", err)
	}
	return invs, nil
}

// ──────────────────────────────────────────────────
// Invoice Lifecycle
// ──────────────────────────────────────────────────

// UpdateInvoiceStatus moves an invoice to status to. The move is applied
// only if the stored status is unchanged since it was read; otherwise a
// ConflictError is returned and the caller should re-read.
func (e *Engine) UpdateInvoiceStatus(ctx context.Context, invID id.InvoiceID, to invoice.Status) (*invoice.Invoice, error) {
	if !to.Valid() {
		return nil, invalid("status", "unknown invoice status %q", to)
	}

	inv, err := e.GetInvoice(ctx, invID)
	if err != nil {
		return nil, err
	}

	from := inv.Status
	if err := invoice.CheckTransition(from, to); err != nil {
		return nil, err
	}

	now := e.clock()
	if to == invoice.StatusOverdue && !now.After(inv.DueDate) {
		return nil, invalid("status", "invoice %s is not due until %s", inv.DisplayNumber(), inv.DueDate.Format(time.DateOnly))
	}

	if err := e.casStatus(ctx, inv, to, now); err != nil {
		return nil, err
	}
	return inv, nil
}

// casStatus commits from inv.Status to to and updates inv in place.
func (e *Engine) casStatus(ctx context.Context, inv *invoice.Invoice, to invoice.Status, now time.Time) error {
	from := inv.Status

	opCtx, cancel := e.opContext(ctx)
	defer cancel()
	if err := e.store.UpdateInvoiceStatus(opCtx, inv.ID, from, to, now); err != nil {
		return classify("update invoice status", err)
	}

	invoice.StampStatus(inv, to, now)

	e.plugins.EmitInvoiceStatusChanged(ctx, inv, string(from), string(to))
	e.logger.Info("invoice status changed",
		"invoice_id", inv.ID.String(),
		"number", inv.DisplayNumber(),
		"from", string(from),
		"to", string(to),
	)
	return nil
}

// SweepOverdue moves every draft or sent invoice whose due date is before
// now to overdue and returns how many moved. Invoices changed concurrently
// are skipped.
func (e *Engine) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	now = now.UTC()

	opCtx, cancel := e.opContext(ctx)
	candidates, err := e.store.ListOverdueCandidates(opCtx, now)
	cancel()
	if err != nil {
		return 0, classify("list overdue candidates", err)
	}

	var (
		marked int
		errs   []error
	)
	for _, inv := range candidates {
		if !inv.IsOverdue(now) {
			continue
		}
		err := e.casStatus(ctx, inv, invoice.StatusOverdue, now)
		switch {
		case err == nil:
			marked++
		case errors.Is(err, ErrStatusChanged):
			e.logger.Debug("overdue sweep skipped invoice", "invoice_id", inv.ID.String())
		default:
			errs = append(errs, fmt.Errorf("%s: %w", inv.DisplayNumber(), err))
		}
		if ctx.Err() != nil {
			errs = append(errs, classify("overdue sweep", ctx.Err()))
			break
		}
	}
	return marked, errors.Join(errs...)
}
