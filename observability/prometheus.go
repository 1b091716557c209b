package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultBuckets is used for histograms without registered buckets.
var DefaultBuckets = prometheus.ExponentialBuckets(1, 4, 12)

// PrometheusFactory is a MetricFactory that registers metrics with a
// Prometheus registerer. Dotted names become underscored, so
// "docket.invoice.created" is exported as docket_invoice_created.
// Asking twice for the same name returns the same metric.
type PrometheusFactory struct {
	factory promauto.Factory
	buckets map[string][]float64

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	histograms map[string]prometheus.Histogram
}

// PrometheusOption configures a PrometheusFactory.
type PrometheusOption func(*PrometheusFactory)

// WithBuckets sets the buckets of the histogram called name.
func WithBuckets(name string, buckets []float64) PrometheusOption {
	return func(f *PrometheusFactory) {
		f.buckets[name] = buckets
	}
}

// NewPrometheusFactory creates a factory registering with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func NewPrometheusFactory(reg prometheus.Registerer, opts ...PrometheusOption) *PrometheusFactory {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := &PrometheusFactory{
		factory: promauto.With(reg),
		buckets: map[string][]float64{
			"docket.invoice.total_minor_units": prometheus.ExponentialBuckets(1000, 4, 10),
			"docket.invoice.line_items":        prometheus.LinearBuckets(1, 5, 10),
		},
		counters:   make(map[string]prometheus.Counter),
		histograms: make(map[string]prometheus.Histogram),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Counter implements MetricFactory.
func (f *PrometheusFactory) Counter(name string) Counter {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.counters[name]; ok {
		return c
	}
	c := f.factory.NewCounter(prometheus.CounterOpts{
		Name: metricName(name),
		Help: "Docket " + strings.ReplaceAll(name, ".", " "),
	})
	f.counters[name] = c
	return c
}

// Histogram implements MetricFactory.
func (f *PrometheusFactory) Histogram(name string) Histogram {
	f.mu.Lock()
	defer f.mu.Unlock()

	if h, ok := f.histograms[name]; ok {
		return h
	}
	buckets, ok := f.buckets[name]
	if !ok {
		buckets = DefaultBuckets
	}
	h := f.factory.NewHistogram(prometheus.HistogramOpts{
		Name:    metricName(name),
		Help:    "Docket " + strings.ReplaceAll(name, ".", " "),
		Buckets: buckets,
	})
	f.histograms[name] = h
	return h
}

func metricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}
