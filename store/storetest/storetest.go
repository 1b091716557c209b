// Package storetest is a behavioural suite every store.Store backend must
// pass. Backends call Run from their own tests with a constructor that
// returns a fresh, migrated store.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/docket"
	"github.com/xraph/docket/id"
	"github.com/xraph/docket/invoice"
	"github.com/xraph/docket/matter"
	"github.com/xraph/docket/store"
	"github.com/xraph/docket/timeentry"
	"github.com/xraph/docket/types"
)

// base is the fixed wall clock the suite stamps records with.
var base = time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)

// Run executes the suite. newStore must return an empty, migrated store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, newStore(t)) })
	t.Run("ListUnbilledOrderAndFilter", func(t *testing.T) { testListUnbilled(t, newStore(t)) })
	t.Run("MarkInvoicedIsAllOrNothing", func(t *testing.T) { testMarkInvoicedAllOrNothing(t, newStore(t)) })
	t.Run("MarkInvoicedKeepsEarlierClaims", func(t *testing.T) { testMarkInvoicedKeepsEarlierClaims(t, newStore(t)) })
	t.Run("MarkInvoicedStampsTime", func(t *testing.T) { testMarkInvoicedStampsTime(t, newStore(t)) })
	t.Run("CreateInvoiceClaimsAtomically", func(t *testing.T) { testCreateInvoiceClaimsAtomically(t, newStore(t)) })
	t.Run("CreateInvoiceRejectsNumberReuse", func(t *testing.T) { testCreateInvoiceRejectsNumberReuse(t, newStore(t)) })
	t.Run("NextInvoiceNumberConcurrent", func(t *testing.T) { testNextInvoiceNumberConcurrent(t, newStore(t)) })
	t.Run("UpdateInvoiceStatusCompareAndSwap", func(t *testing.T) { testUpdateInvoiceStatus(t, newStore(t)) })
	t.Run("ListOverdueCandidates", func(t *testing.T) { testListOverdueCandidates(t, newStore(t)) })
}

// SeedEntries records n billable hour-long entries on matterID, dated in
// reverse order of creation.
func SeedEntries(t *testing.T, s store.Store, matterID id.MatterID, n int) []id.TimeEntryID {
	t.Helper()
	ids := make([]id.TimeEntryID, n)
	for i := range n {
		rate := types.USD(25000)
		e := &timeentry.TimeEntry{
			Entity:          types.NewEntity(base),
			ID:              id.NewTimeEntryID(),
			MatterID:        matterID,
			Description:     "work",
			DurationMinutes: 60,
			HourlyRate:      &rate,
			Billable:        true,
			EntryDate:       base.AddDate(0, 0, n-i),
		}
		require.NoError(t, s.CreateTimeEntry(context.Background(), e))
		ids[i] = e.ID
	}
	return ids
}

// NewInvoice returns a draft invoice over entryIDs, due a month after base.
func NewInvoice(number int64, matterID id.MatterID, entryIDs ...id.TimeEntryID) *invoice.Invoice {
	return &invoice.Invoice{
		Entity:       types.NewEntity(base),
		ID:           id.NewInvoiceID(),
		Number:       number,
		MatterID:     matterID,
		ClientID:     id.NewClientID(),
		TimeEntryIDs: entryIDs,
		LineItems:    []invoice.LineItem{},
		Currency:     "usd",
		Subtotal:     types.USD(0),
		Total:        types.USD(0),
		DueDate:      base.AddDate(0, 1, 0),
		Status:       invoice.StatusDraft,
	}
}

func testRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()

	c := &matter.Client{
		Entity:  types.NewEntity(base),
		ID:      id.NewClientID(),
		Name:    "Harriet Vane",
		Email:   "h.vane@example.com",
		Address: "12 Doughty Street, London",
	}
	require.NoError(t, s.CreateClient(ctx, c))
	gotClient, err := s.GetClient(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Name, gotClient.Name)
	assert.True(t, gotClient.CreatedAt.Equal(base))

	m := &matter.Matter{
		Entity:    types.NewEntity(base),
		ID:        id.NewMatterID(),
		ClientID:  c.ID,
		Title:     "Vane v. Boyes",
		Reference: "LIT-2026-004",
		Currency:  "usd",
		Status:    matter.StatusOpen,
		Billing:   matter.Hourly{Rate: types.USD(30000)},
	}
	require.NoError(t, s.CreateMatter(ctx, m))
	gotMatter, err := s.GetMatter(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Billing, gotMatter.Billing)
	assert.Equal(t, m.Reference, gotMatter.Reference)
	assert.True(t, gotMatter.UpdatedAt.Equal(base))

	ids := SeedEntries(t, s, m.ID, 1)
	gotEntry, err := s.GetTimeEntry(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, gotEntry.EntryDate.Equal(base.AddDate(0, 0, 1)))
	assert.True(t, gotEntry.CreatedAt.Equal(base))
	require.NotNil(t, gotEntry.HourlyRate)
	assert.Equal(t, types.USD(25000), *gotEntry.HourlyRate)
	assert.True(t, gotEntry.Billable)

	rate := types.USD(25000)
	inv := NewInvoice(1, m.ID, ids...)
	inv.ClientID = c.ID
	inv.LineItems = []invoice.LineItem{{
		ID:              id.NewLineItemID(),
		Type:            invoice.LineItemTime,
		TimeEntryID:     ids[0],
		Description:     "work",
		EntryDate:       base.AddDate(0, 0, 1),
		DurationMinutes: 60,
		Rate:            &rate,
		Amount:          types.USD(25000),
	}}
	inv.Subtotal = types.USD(25000)
	inv.Total = types.USD(25000)
	inv.BillTo = invoice.BillTo{ClientName: c.Name, MatterTitle: m.Title}
	require.NoError(t, s.CreateInvoice(ctx, inv))

	sentAt := base.Add(2 * time.Hour)
	require.NoError(t, s.UpdateInvoiceStatus(ctx, inv.ID, invoice.StatusDraft, invoice.StatusSent, sentAt))
	exp := invoice.Export{URL: "https://files.example.com/INV-000001.pdf", FileName: "INV-000001.pdf", ExportedAt: base.Add(3 * time.Hour)}
	require.NoError(t, s.SetInvoiceExport(ctx, inv.ID, exp))

	got, err := s.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.Number, got.Number)
	assert.Equal(t, id.Strings(inv.TimeEntryIDs), id.Strings(got.TimeEntryIDs))
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, inv.LineItems[0].Amount, got.LineItems[0].Amount)
	assert.Equal(t, inv.BillTo, got.BillTo)
	assert.Equal(t, invoice.StatusSent, got.Status)
	assert.True(t, got.DueDate.Equal(inv.DueDate))
	assert.True(t, got.CreatedAt.Equal(base))
	require.NotNil(t, got.SentAt)
	assert.True(t, got.SentAt.Equal(sentAt))
	require.NotNil(t, got.Export)
	assert.Equal(t, exp.URL, got.Export.URL)
	assert.True(t, got.Export.ExportedAt.Equal(exp.ExportedAt))
	assert.True(t, got.UpdatedAt.Equal(exp.ExportedAt))
	assert.Nil(t, got.PaidAt)

	claimed, err := s.GetTimeEntry(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, inv.ID.String(), claimed.InvoiceID.String())
}

func testListUnbilled(t *testing.T, s store.Store) {
	ctx := context.Background()
	matterID := id.NewMatterID()
	ids := SeedEntries(t, s, matterID, 3)

	nonBillable := &timeentry.TimeEntry{
		Entity:          types.NewEntity(base),
		ID:              id.NewTimeEntryID(),
		MatterID:        matterID,
		DurationMinutes: 30,
		EntryDate:       base,
	}
	require.NoError(t, s.CreateTimeEntry(ctx, nonBillable))
	SeedEntries(t, s, id.NewMatterID(), 2)

	got, err := s.ListUnbilled(ctx, matterID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, ids[2].String(), got[0].ID.String())
	assert.Equal(t, ids[1].String(), got[1].ID.String())
	assert.Equal(t, ids[0].String(), got[2].ID.String())

	require.NoError(t, s.MarkInvoiced(ctx, ids[:1], id.NewInvoiceID(), base))
	got, err = s.ListUnbilled(ctx, matterID)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func testMarkInvoicedAllOrNothing(t *testing.T, s store.Store) {
	ctx := context.Background()
	ids := SeedEntries(t, s, id.NewMatterID(), 3)

	first := id.NewInvoiceID()
	require.NoError(t, s.MarkInvoiced(ctx, ids[:1], first, base))

	err := s.MarkInvoiced(ctx, ids, id.NewInvoiceID(), base)
	require.ErrorIs(t, err, docket.ErrEntryAlreadyInvoiced)
	var ce *docket.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{ids[0].String()}, ce.IDs)

	for i, eid := range ids {
		e, err := s.GetTimeEntry(ctx, eid)
		require.NoError(t, err)
		if i == 0 {
			assert.Equal(t, first.String(), e.InvoiceID.String())
		} else {
			assert.False(t, e.IsInvoiced(), "entry %d claimed by failed call", i)
		}
	}

	// Re-claiming with the same invoice is still an error.
	assert.ErrorIs(t, s.MarkInvoiced(ctx, ids[:1], first, base), docket.ErrConflict)

	missing := id.NewTimeEntryID()
	err = s.MarkInvoiced(ctx, []id.TimeEntryID{ids[1], missing}, first, base)
	require.ErrorIs(t, err, docket.ErrTimeEntryNotFound)
	var nf *docket.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, missing.String(), nf.ID)

	e, err := s.GetTimeEntry(ctx, ids[1])
	require.NoError(t, err)
	assert.False(t, e.IsInvoiced())
}

func testMarkInvoicedKeepsEarlierClaims(t *testing.T, s store.Store) {
	ctx := context.Background()
	matterID := id.NewMatterID()
	ids := SeedEntries(t, s, matterID, 2)

	inv := NewInvoice(1, matterID, ids...)
	require.NoError(t, s.CreateInvoice(ctx, inv))

	err := s.MarkInvoiced(ctx, ids[:1], inv.ID, base)
	var ce *docket.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{ids[0].String()}, ce.IDs)

	for _, eid := range ids {
		e, err := s.GetTimeEntry(ctx, eid)
		require.NoError(t, err)
		assert.Equal(t, inv.ID.String(), e.InvoiceID.String())
	}
	unbilled, err := s.ListUnbilled(ctx, matterID)
	require.NoError(t, err)
	assert.Empty(t, unbilled)
}

func testMarkInvoicedStampsTime(t *testing.T, s store.Store) {
	ctx := context.Background()
	ids := SeedEntries(t, s, id.NewMatterID(), 1)

	at := base.Add(48 * time.Hour)
	require.NoError(t, s.MarkInvoiced(ctx, ids, id.NewInvoiceID(), at))

	e, err := s.GetTimeEntry(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, e.UpdatedAt.Equal(at), "updated_at %s, want %s", e.UpdatedAt, at)
}

func testCreateInvoiceClaimsAtomically(t *testing.T, s store.Store) {
	ctx := context.Background()
	matterID := id.NewMatterID()
	ids := SeedEntries(t, s, matterID, 2)
	other := id.NewInvoiceID()
	require.NoError(t, s.MarkInvoiced(ctx, ids[1:], other, base))

	inv := NewInvoice(1, matterID, ids...)
	err := s.CreateInvoice(ctx, inv)
	require.ErrorIs(t, err, docket.ErrEntryAlreadyInvoiced)
	var ce *docket.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{ids[1].String()}, ce.IDs)

	_, err = s.GetInvoice(ctx, inv.ID)
	assert.ErrorIs(t, err, docket.ErrInvoiceNotFound)

	e, err := s.GetTimeEntry(ctx, ids[0])
	require.NoError(t, err)
	assert.False(t, e.IsInvoiced())
	e, err = s.GetTimeEntry(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, other.String(), e.InvoiceID.String())

	// The number was not consumed by the failed insert.
	require.NoError(t, s.CreateInvoice(ctx, NewInvoice(1, matterID, ids[0])))
}

func testCreateInvoiceRejectsNumberReuse(t *testing.T, s store.Store) {
	ctx := context.Background()
	matterID := id.NewMatterID()
	ids := SeedEntries(t, s, matterID, 1)

	require.NoError(t, s.CreateInvoice(ctx, NewInvoice(7, matterID)))
	dup := NewInvoice(7, matterID, ids...)
	err := s.CreateInvoice(ctx, dup)
	require.ErrorIs(t, err, docket.ErrDuplicateNumber)

	_, err = s.GetInvoice(ctx, dup.ID)
	assert.ErrorIs(t, err, docket.ErrInvoiceNotFound)

	e, err := s.GetTimeEntry(ctx, ids[0])
	require.NoError(t, err)
	assert.False(t, e.IsInvoiced(), "rejected invoice left its claim behind")
}

func testNextInvoiceNumberConcurrent(t *testing.T, s store.Store) {
	const n = 50

	var (
		mu   sync.Mutex
		seen = make(map[int64]bool, n)
		wg   sync.WaitGroup
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := s.NextInvoiceNumber(context.Background())
			assert.NoError(t, err)
			mu.Lock()
			seen[num] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	last, err := s.NextInvoiceNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(n+1), last)
}

func testUpdateInvoiceStatus(t *testing.T, s store.Store) {
	ctx := context.Background()
	inv := NewInvoice(1, id.NewMatterID())
	require.NoError(t, s.CreateInvoice(ctx, inv))

	at := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpdateInvoiceStatus(ctx, inv.ID, invoice.StatusDraft, invoice.StatusSent, at))

	err := s.UpdateInvoiceStatus(ctx, inv.ID, invoice.StatusDraft, invoice.StatusVoid, at)
	assert.ErrorIs(t, err, docket.ErrStatusChanged)

	got, err := s.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusSent, got.Status)
	require.NotNil(t, got.SentAt)
	assert.True(t, got.SentAt.Equal(at))
	assert.Nil(t, got.VoidedAt)

	assert.ErrorIs(t, s.UpdateInvoiceStatus(ctx, id.NewInvoiceID(), invoice.StatusDraft, invoice.StatusSent, at), docket.ErrInvoiceNotFound)
}

func testListOverdueCandidates(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	matterID := id.NewMatterID()

	mk := func(num int64, status invoice.Status, due time.Time) {
		inv := NewInvoice(num, matterID)
		inv.Status = status
		inv.DueDate = due
		require.NoError(t, s.CreateInvoice(ctx, inv))
	}
	mk(1, invoice.StatusDraft, now.AddDate(0, 0, -1))
	mk(2, invoice.StatusSent, now.AddDate(0, 0, -5))
	mk(3, invoice.StatusPaid, now.AddDate(0, 0, -5))
	mk(4, invoice.StatusSent, now.AddDate(0, 0, 3))

	got, err := s.ListOverdueCandidates(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].Number)
	assert.Equal(t, int64(2), got[1].Number)
}
