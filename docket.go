package docket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xraph/docket/blob"
	"github.com/xraph/docket/narrative"
	"github.com/xraph/docket/plugin"
	"github.com/xraph/docket/render"
	"github.com/xraph/docket/store"
)

// Defaults applied by New.
const (
	DefaultOperationTimeout     = 10 * time.Second
	DefaultOverdueSweepInterval = time.Hour
)

// Engine is the billing ledger.
type Engine struct {
	store    store.Store
	plugins  *plugin.Registry
	logger   *slog.Logger
	blobs    blob.Store
	renderer render.Renderer
	narrator *narrative.Fallback
	exports  singleflight.Group
	now      func() time.Time

	// Background workers
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Configuration
	enhancer         narrative.Enhancer
	narrativeTimeout time.Duration
	opTimeout        time.Duration
	sweepInterval    time.Duration
	blobRetries      uint
	skipMigrate      bool
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:         s,
		plugins:       plugin.NewRegistry(),
		logger:        slog.Default(),
		renderer:      render.NewPDF(render.Firm{}),
		now:           time.Now,
		stopChan:      make(chan struct{}),
		opTimeout:     DefaultOperationTimeout,
		sweepInterval: DefaultOverdueSweepInterval,
		blobRetries:   4,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.blobs != nil {
		e.blobs = blob.NewRetrying(e.blobs,
			blob.WithMaxTries(e.blobRetries),
			blob.WithLogger(e.logger),
		)
	}
	if e.enhancer != nil {
		e.narrator = narrative.NewFallback(e.enhancer, e.narrativeTimeout, e.logger)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithBlobStore sets the storage exported documents are uploaded to.
// Uploads are retried with exponential backoff.
func WithBlobStore(b blob.Store) Option {
	return func(e *Engine) {
		e.blobs = b
	}
}

// WithBlobRetries sets how many upload attempts an export makes.
func WithBlobRetries(n uint) Option {
	return func(e *Engine) {
		if n > 0 {
			e.blobRetries = n
		}
	}
}

// WithNarrativeEnhancer rewrites time entry descriptions before they are
// stored. Failures and timeouts keep the raw description.
func WithNarrativeEnhancer(enh narrative.Enhancer, timeout time.Duration) Option {
	return func(e *Engine) {
		e.enhancer = enh
		e.narrativeTimeout = timeout
	}
}

// WithRenderer replaces the default PDF renderer.
func WithRenderer(r render.Renderer) Option {
	return func(e *Engine) {
		e.renderer = r
	}
}

// WithOperationTimeout bounds every store and blob call.
func WithOperationTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.opTimeout = d
		}
	}
}

// WithOverdueSweepInterval sets how often due invoices are moved to
// overdue. Zero disables the background sweep.
func WithOverdueSweepInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.sweepInterval = d
	}
}

// WithoutMigrate makes Start skip store migrations.
func WithoutMigrate() Option {
	return func(e *Engine) {
		e.skipMigrate = true
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Start migrates the store and begins background workers.
func (e *Engine) Start(ctx context.Context) error {
	if !e.skipMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return classify("migrate", err)
		}
	}

	e.plugins.EmitInit(ctx, e)

	if e.sweepInterval > 0 {
		e.wg.Add(1)
		go e.overdueSweepWorker(ctx)
	}

	e.logger.Info("docket started",
		"operation_timeout", e.opTimeout,
		"sweep_interval", e.sweepInterval,
		"blob_store", e.blobs != nil,
		"narrative", e.narrator != nil,
	)

	return nil
}

// Stop shuts down background workers and closes the store.
func (e *Engine) Stop() error {
	e.stopOnce.Do(func() { close(e.stopChan) })
	e.wg.Wait()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// overdueSweepWorker periodically moves due invoices to overdue.
func (e *Engine) overdueSweepWorker(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := e.SweepOverdue(ctx, e.now())
			if err != nil {
				e.logger.Error("overdue sweep failed", "marked", n, "error", err)
				continue
			}
			if n > 0 {
				e.logger.Info("overdue sweep", "marked", n)
			}
		}
	}
}

// opContext bounds a single storage or network call.
func (e *Engine) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.opTimeout)
}

func (e *Engine) clock() time.Time { return e.now().UTC() }
