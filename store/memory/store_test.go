package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/docket"
	"github.com/xraph/docket/id"
	"github.com/xraph/docket/invoice"
	"github.com/xraph/docket/matter"
	"github.com/xraph/docket/store"
	"github.com/xraph/docket/store/storetest"
	"github.com/xraph/docket/timeentry"
	"github.com/xraph/docket/types"
)

func TestStoreBehaviour(t *testing.T) {
	storetest.Run(t, func(*testing.T) store.Store { return New() })
}

func TestReturnedValuesAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	inv := &invoice.Invoice{ID: id.NewInvoiceID(), Number: 1, Total: types.USD(100)}
	require.NoError(t, s.CreateInvoice(ctx, inv))

	got, err := s.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	got.Total = types.USD(999)

	again, err := s.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), again.Total.Amount)
}

func TestClaimUsesCallerTime(t *testing.T) {
	s := New()
	ctx := context.Background()
	matterID := id.NewMatterID()
	ids := storetest.SeedEntries(t, s, matterID, 2)

	inv := storetest.NewInvoice(1, matterID, ids[:1]...)
	inv.UpdatedAt = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.CreateInvoice(ctx, inv))

	e, err := s.GetTimeEntry(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, inv.UpdatedAt, e.UpdatedAt)

	local := time.Date(2026, 5, 5, 12, 0, 0, 0, time.FixedZone("CEST", 2*60*60))
	require.NoError(t, s.MarkInvoiced(ctx, ids[1:], inv.ID, local))
	e, err = s.GetTimeEntry(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, local.UTC(), e.UpdatedAt)
}

func TestClosedStoreRejectsEveryCall(t *testing.T) {
	s := New()
	ctx := context.Background()
	matterID := id.NewMatterID()
	ids := storetest.SeedEntries(t, s, matterID, 1)
	require.NoError(t, s.Close())

	checks := map[string]error{
		"Migrate":             s.Migrate(ctx),
		"Ping":                s.Ping(ctx),
		"CreateClient":        s.CreateClient(ctx, &matter.Client{ID: id.NewClientID()}),
		"CreateTimeEntry":     s.CreateTimeEntry(ctx, &timeentry.TimeEntry{ID: id.NewTimeEntryID()}),
		"MarkInvoiced":        s.MarkInvoiced(ctx, ids, id.NewInvoiceID(), time.Now()),
		"CreateInvoice":       s.CreateInvoice(ctx, storetest.NewInvoice(1, matterID)),
		"SetInvoiceExport":    s.SetInvoiceExport(ctx, id.NewInvoiceID(), invoice.Export{}),
		"UpdateInvoiceStatus": s.UpdateInvoiceStatus(ctx, id.NewInvoiceID(), invoice.StatusDraft, invoice.StatusSent, time.Now()),
	}
	_, checks["GetTimeEntry"] = s.GetTimeEntry(ctx, ids[0])
	_, checks["ListUnbilled"] = s.ListUnbilled(ctx, matterID)
	_, checks["NextInvoiceNumber"] = s.NextInvoiceNumber(ctx)
	_, checks["ListOverdueCandidates"] = s.ListOverdueCandidates(ctx, time.Now())

	for name, err := range checks {
		assert.ErrorIs(t, err, docket.ErrStoreClosed, name)
	}
}
