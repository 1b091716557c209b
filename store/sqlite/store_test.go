package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/docket/id"
	"github.com/xraph/docket/invoice"
	"github.com/xraph/docket/types"
)

func TestInClause(t *testing.T) {
	a, b := id.NewTimeEntryID(), id.NewTimeEntryID()

	marks, args := inClause([]id.TimeEntryID{a, b})

	assert.Equal(t, "?, ?", marks)
	assert.Equal(t, []any{a.String(), b.String()}, args)
}

func TestInvoiceModelKeepsSnapshot(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	entryID := id.NewTimeEntryID()
	rate := types.USD(30000)
	inv := &invoice.Invoice{
		Entity:       types.NewEntity(now),
		ID:           id.NewInvoiceID(),
		Number:       7,
		MatterID:     id.NewMatterID(),
		ClientID:     id.NewClientID(),
		TimeEntryIDs: []id.TimeEntryID{entryID},
		LineItems: []invoice.LineItem{{
			ID:              id.NewLineItemID(),
			Type:            invoice.LineItemTime,
			TimeEntryID:     entryID,
			Description:     "Review lease",
			EntryDate:       now,
			DurationMinutes: 90,
			Rate:            &rate,
			Amount:          types.USD(45000),
		}},
		Currency: "usd",
		Subtotal: types.USD(45000),
		Total:    types.USD(45000),
		DueDate:  now.AddDate(0, 0, 30),
		Status:   invoice.StatusSent,
		BillTo:   invoice.BillTo{ClientName: "Ankh Holdings", MatterTitle: "Harbour lease"},
		Export:   &invoice.Export{URL: "https://files.example.com/invoice-INV-000007.pdf", FileName: "invoice-INV-000007.pdf", ExportedAt: now},
	}

	m, err := toInvoiceModel(inv)
	require.NoError(t, err)
	got, err := fromInvoiceModel(m)
	require.NoError(t, err)

	assert.Equal(t, inv.ID.String(), got.ID.String())
	assert.Equal(t, "INV-000007", got.DisplayNumber())
	require.Len(t, got.TimeEntryIDs, 1)
	assert.Equal(t, entryID.String(), got.TimeEntryIDs[0].String())
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, int64(45000), got.LineItems[0].Amount.Amount)
	assert.Equal(t, int64(30000), got.LineItems[0].Rate.Amount)
	assert.Equal(t, entryID.String(), got.LineItems[0].TimeEntryID.String())
	assert.True(t, got.Total.Equal(inv.Total))
	assert.Equal(t, inv.BillTo, got.BillTo)
	require.NotNil(t, got.Export)
	assert.Equal(t, inv.Export.URL, got.Export.URL)
}
