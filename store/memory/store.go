// Package memory is an in-process store.Store. A single mutex makes every
// operation, including the invoice-plus-claims write, atomic.
package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/xraph/docket"
	"github.com/xraph/docket/id"
	"github.com/xraph/docket/invoice"
	"github.com/xraph/docket/matter"
	"github.com/xraph/docket/store"
	"github.com/xraph/docket/timeentry"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	clients    map[string]*matter.Client
	matters    map[string]*matter.Matter
	entries    map[string]*timeentry.TimeEntry
	invoices   map[string]*invoice.Invoice
	numbers    map[int64]string
	lastNumber int64
	closed     bool
}

func New() *Store {
	return &Store{
		clients:  make(map[string]*matter.Client),
		matters:  make(map[string]*matter.Matter),
		entries:  make(map[string]*timeentry.TimeEntry),
		invoices: make(map[string]*invoice.Invoice),
		numbers:  make(map[int64]string),
	}
}

// ==================== Client / Matter Store ====================

func (s *Store) CreateClient(_ context.Context, c *matter.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return docket.ErrStoreClosed
	}

	if _, exists := s.clients[c.ID.String()]; exists {
		return docket.ErrAlreadyExists
	}
	cp := *c
	s.clients[c.ID.String()] = &cp
	return nil
}

func (s *Store) GetClient(_ context.Context, clientID id.ClientID) (*matter.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, docket.ErrStoreClosed
	}

	if c, ok := s.clients[clientID.String()]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, docket.ErrClientNotFound
}

func (s *Store) CreateMatter(_ context.Context, m *matter.Matter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return docket.ErrStoreClosed
	}

	if _, exists := s.matters[m.ID.String()]; exists {
		return docket.ErrAlreadyExists
	}
	s.matters[m.ID.String()] = cloneMatter(m)
	return nil
}

func (s *Store) GetMatter(_ context.Context, matterID id.MatterID) (*matter.Matter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, docket.ErrStoreClosed
	}

	if m, ok := s.matters[matterID.String()]; ok {
		return cloneMatter(m), nil
	}
	return nil, docket.ErrMatterNotFound
}

func (s *Store) UpdateMatter(_ context.Context, m *matter.Matter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return docket.ErrStoreClosed
	}

	if _, exists := s.matters[m.ID.String()]; !exists {
		return docket.ErrMatterNotFound
	}
	s.matters[m.ID.String()] = cloneMatter(m)
	return nil
}

// ==================== Time Entry Store ====================

func (s *Store) CreateTimeEntry(_ context.Context, e *timeentry.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return docket.ErrStoreClosed
	}

	if _, exists := s.entries[e.ID.String()]; exists {
		return docket.ErrAlreadyExists
	}
	s.entries[e.ID.String()] = cloneEntry(e)
	return nil
}

func (s *Store) GetTimeEntry(_ context.Context, entryID id.TimeEntryID) (*timeentry.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, docket.ErrStoreClosed
	}

	if e, ok := s.entries[entryID.String()]; ok {
		return cloneEntry(e), nil
	}
	return nil, docket.ErrTimeEntryNotFound
}

func (s *Store) ListUnbilled(_ context.Context, matterID id.MatterID) ([]*timeentry.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, docket.ErrStoreClosed
	}

	result := make([]*timeentry.TimeEntry, 0)
	for _, e := range s.entries {
		if e.MatterID == matterID && e.IsUnbilled() {
			result = append(result, cloneEntry(e))
		}
	}
	slices.SortFunc(result, timeentry.Less)
	return result, nil
}

func (s *Store) MarkInvoiced(_ context.Context, entryIDs []id.TimeEntryID, invoiceID id.InvoiceID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return docket.ErrStoreClosed
	}

	if err := s.checkClaimable(entryIDs); err != nil {
		return err
	}
	s.claim(entryIDs, invoiceID, at)
	return nil
}

// checkClaimable must be called with the write lock held.
func (s *Store) checkClaimable(entryIDs []id.TimeEntryID) error {
	var taken []id.ID
	for _, eid := range entryIDs {
		e, ok := s.entries[eid.String()]
		if !ok {
			return docket.ErrTimeEntryNotFound.WithID(eid)
		}
		if e.IsInvoiced() {
			taken = append(taken, eid)
		}
	}
	if len(taken) > 0 {
		return docket.EntriesAlreadyInvoiced(taken...)
	}
	return nil
}

func (s *Store) claim(entryIDs []id.TimeEntryID, invoiceID id.InvoiceID, at time.Time) {
	t := at.UTC()
	for _, eid := range entryIDs {
		e := s.entries[eid.String()]
		e.InvoiceID = invoiceID
		e.Touch(t)
	}
}

// ==================== Invoice Store ====================

func (s *Store) NextInvoiceNumber(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, docket.ErrStoreClosed
	}

	s.lastNumber++
	return s.lastNumber, nil
}

func (s *Store) CreateInvoice(_ context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return docket.ErrStoreClosed
	}

	if _, exists := s.invoices[inv.ID.String()]; exists {
		return docket.ErrAlreadyExists
	}
	if _, taken := s.numbers[inv.Number]; taken {
		return docket.ErrDuplicateNumber
	}
	if err := s.checkClaimable(inv.TimeEntryIDs); err != nil {
		return err
	}

	s.claim(inv.TimeEntryIDs, inv.ID, inv.UpdatedAt)
	s.invoices[inv.ID.String()] = cloneInvoice(inv)
	s.numbers[inv.Number] = inv.ID.String()
	return nil
}

func (s *Store) GetInvoice(_ context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, docket.ErrStoreClosed
	}

	if inv, ok := s.invoices[invID.String()]; ok {
		return cloneInvoice(inv), nil
	}
	return nil, docket.ErrInvoiceNotFound
}

func (s *Store) ListInvoices(_ context.Context, matterID id.MatterID, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, docket.ErrStoreClosed
	}

	result := make([]*invoice.Invoice, 0)
	for _, inv := range s.invoices {
		if inv.MatterID != matterID {
			continue
		}
		if opts.Status == "" || inv.Status == opts.Status {
			result = append(result, cloneInvoice(inv))
		}
	}
	slices.SortFunc(result, func(a, b *invoice.Invoice) int {
		return cmp.Compare(a.Number, b.Number)
	})

	// Apply limit/offset
	start := min(opts.Offset, len(result))
	end := len(result)
	if opts.Limit > 0 {
		end = min(start+opts.Limit, len(result))
	}
	return result[start:end], nil
}

func (s *Store) UpdateInvoiceStatus(_ context.Context, invID id.InvoiceID, from, to invoice.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return docket.ErrStoreClosed
	}

	inv, ok := s.invoices[invID.String()]
	if !ok {
		return docket.ErrInvoiceNotFound
	}
	if inv.Status != from {
		return docket.ErrStatusChanged
	}
	invoice.StampStatus(inv, to, at)
	return nil
}

func (s *Store) SetInvoiceExport(_ context.Context, invID id.InvoiceID, exp invoice.Export) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return docket.ErrStoreClosed
	}

	inv, ok := s.invoices[invID.String()]
	if !ok {
		return docket.ErrInvoiceNotFound
	}
	inv.Export = &exp
	inv.Touch(exp.ExportedAt)
	return nil
}

func (s *Store) ListOverdueCandidates(_ context.Context, asOf time.Time) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, docket.ErrStoreClosed
	}

	result := make([]*invoice.Invoice, 0)
	for _, inv := range s.invoices {
		if (inv.Status == invoice.StatusDraft || inv.Status == invoice.StatusSent) && inv.DueDate.Before(asOf) {
			result = append(result, cloneInvoice(inv))
		}
	}
	slices.SortFunc(result, func(a, b *invoice.Invoice) int {
		return cmp.Compare(a.Number, b.Number)
	})
	return result, nil
}

// ==================== Core ====================

func (s *Store) Migrate(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return docket.ErrStoreClosed
	}

	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return docket.ErrStoreClosed
	}

	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ==================== Helpers ====================

func cloneMatter(m *matter.Matter) *matter.Matter {
	cp := *m
	cp.Metadata = maps.Clone(m.Metadata)
	return &cp
}

func cloneEntry(e *timeentry.TimeEntry) *timeentry.TimeEntry {
	cp := *e
	if e.HourlyRate != nil {
		rate := *e.HourlyRate
		cp.HourlyRate = &rate
	}
	return &cp
}

func cloneInvoice(inv *invoice.Invoice) *invoice.Invoice {
	cp := *inv
	cp.TimeEntryIDs = slices.Clone(inv.TimeEntryIDs)
	cp.LineItems = slices.Clone(inv.LineItems)
	if inv.Export != nil {
		exp := *inv.Export
		cp.Export = &exp
	}
	return &cp
}
