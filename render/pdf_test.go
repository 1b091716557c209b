package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/docket/id"
	"github.com/xraph/docket/invoice"
	"github.com/xraph/docket/types"
)

func sampleInvoice() *invoice.Invoice {
	created := time.Date(2026, 3, 2, 15, 4, 5, 0, time.UTC)
	rate := types.USD(25000)
	inv := &invoice.Invoice{
		Entity:   types.NewEntity(created),
		ID:       id.NewInvoiceID(),
		Number:   17,
		MatterID: id.NewMatterID(),
		ClientID: id.NewClientID(),
		Currency: "usd",
		Subtotal: types.USD(75000),
		Total:    types.USD(75000),
		DueDate:  created.AddDate(0, 0, 30),
		Notes:    "Payable within 30 days.",
		Status:   invoice.StatusDraft,
		BillTo: invoice.BillTo{
			ClientName:      "Harriet Vane",
			ClientEmail:     "h.vane@example.com",
			ClientAddress:   "12 Doughty Street, London",
			MatterTitle:     "Vane v. Boyes",
			MatterReference: "LIT-2026-004",
		},
	}
	inv.LineItems = []invoice.LineItem{
		{Type: invoice.LineItemTime, Description: "Draft statement of claim", EntryDate: created, DurationMinutes: 120, Rate: &rate, Amount: types.USD(50000)},
		{Type: invoice.LineItemTime, Description: "Client call", EntryDate: created, DurationMinutes: 60, Rate: &rate, Amount: types.USD(25000)},
	}
	return inv
}

func TestRenderProducesPDF(t *testing.T) {
	p := NewPDF(Firm{Name: "Wimsey & Partners", Address: "110A Piccadilly"})
	out, err := p.Render(sampleInvoice())
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")), "missing PDF header")
	assert.Equal(t, ContentTypePDF, p.ContentType())
}

func TestRenderIsDeterministic(t *testing.T) {
	p := NewPDF(Firm{Name: "Wimsey & Partners"})
	inv := sampleInvoice()

	first, err := p.Render(inv)
	require.NoError(t, err)
	second, err := p.Render(inv)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second), "renders of the same snapshot differ")
}

func TestRenderDependsOnSnapshot(t *testing.T) {
	p := NewPDF(Firm{Name: "Wimsey & Partners"})
	a := sampleInvoice()
	b := sampleInvoice()
	b.Number = 18

	outA, err := p.Render(a)
	require.NoError(t, err)
	outB, err := p.Render(b)
	require.NoError(t, err)

	assert.False(t, bytes.Equal(outA, outB))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
