package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/docket"
	blobmem "github.com/xraph/docket/blob/memory"
	"github.com/xraph/docket/id"
	"github.com/xraph/docket/invoice"
	"github.com/xraph/docket/matter"
	"github.com/xraph/docket/observability"
	"github.com/xraph/docket/store/memory"
	"github.com/xraph/docket/types"
)

// gathered returns counter values and histogram sample counts by name.
func gathered(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]float64, len(families))
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				out[mf.GetName()] = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				out[mf.GetName()] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestMetricsThroughBillingFlow(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))
	blobs := blobmem.New("https://files.example.com")

	s := memory.New()
	e := docket.New(s,
		docket.WithPlugin(metrics),
		docket.WithBlobStore(blobs),
		docket.WithBlobRetries(1),
		docket.WithOverdueSweepInterval(0),
	)
	ctx := context.Background()

	c := &matter.Client{ID: id.NewClientID(), Name: "Bunter Ltd"}
	require.NoError(t, s.CreateClient(ctx, c))
	m := &matter.Matter{
		ID:       id.NewMatterID(),
		ClientID: c.ID,
		Title:    "Lease dispute",
		Currency: "USD",
		Status:   matter.StatusOpen,
		Billing:  matter.Hourly{Rate: types.USD(20000)},
	}
	require.NoError(t, s.CreateMatter(ctx, m))

	rate := types.USD(20000)
	var ids []id.TimeEntryID
	for _, in := range []struct {
		minutes  int64
		billable bool
	}{{60, true}, {30, true}, {15, false}} {
		te, err := e.RecordTimeEntry(ctx, docket.TimeEntryInput{
			MatterID:        m.ID,
			Description:     "Drafting",
			DurationMinutes: in.minutes,
			HourlyRate:      &rate,
			Billable:        in.billable,
		})
		require.NoError(t, err)
		if in.billable {
			ids = append(ids, te.ID)
		}
	}

	inv, err := e.CreateInvoice(ctx, docket.InvoiceInput{
		MatterID:     m.ID,
		ClientID:     c.ID,
		TimeEntryIDs: ids,
		DueDate:      time.Now().AddDate(0, 0, 30),
	})
	require.NoError(t, err)

	_, err = e.UpdateInvoiceStatus(ctx, inv.ID, invoice.StatusSent)
	require.NoError(t, err)
	_, err = e.UpdateInvoiceStatus(ctx, inv.ID, invoice.StatusPaid)
	require.NoError(t, err)

	_, err = e.ExportInvoicePDF(ctx, inv.ID)
	require.NoError(t, err)
	blobs.FailNext(errors.New("offline"))
	_, err = e.ExportInvoicePDF(ctx, inv.ID)
	require.Error(t, err)

	got := gathered(t, reg)
	assert.Equal(t, 3.0, got["docket_time_entries_recorded"])
	assert.Equal(t, 105.0, got["docket_time_entries_minutes"])
	assert.Equal(t, 90.0, got["docket_time_entries_billable_minutes"])
	assert.Equal(t, 1.0, got["docket_invoice_created"])
	assert.Equal(t, 1.0, got["docket_invoice_total_minor_units"])
	assert.Equal(t, 2.0, got["docket_invoice_status_changes"])
	assert.Equal(t, 1.0, got["docket_invoice_sent"])
	assert.Equal(t, 1.0, got["docket_invoice_paid"])
	assert.Equal(t, 1.0, got["docket_export_succeeded"])
	assert.Equal(t, 1.0, got["docket_export_failed"])
}

func TestPrometheusFactoryReusesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := observability.NewPrometheusFactory(reg)

	a := f.Counter("docket.test.count")
	b := f.Counter("docket.test.count")
	a.Inc()
	b.Add(2)

	assert.Same(t, a, b)
	assert.Equal(t, 3.0, gathered(t, reg)["docket_test_count"])

	h := f.Histogram("docket.test.sizes")
	assert.Same(t, h, f.Histogram("docket.test.sizes"))
}

func TestTwoExtensionsOnOneRegistryShareMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := observability.NewPrometheusFactory(reg)

	assert.NotPanics(t, func() {
		observability.NewMetricsExtension(f)
		observability.NewMetricsExtension(f)
	})
}
