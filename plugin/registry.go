package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// DefaultTimeout bounds every plugin call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Hook implementations are discovered once at registration.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                 []OnInit
	onShutdown             []OnShutdown
	onTimeEntryRecorded    []OnTimeEntryRecorded
	onInvoiceCreated       []OnInvoiceCreated
	onInvoiceStatusChanged []OnInvoiceStatusChanged
	onInvoicePaid          []OnInvoicePaid
	onInvoiceOverdue       []OnInvoiceOverdue
	onInvoiceVoided        []OnInvoiceVoided
	onInvoiceExported      []OnInvoiceExported
	onInvoiceExportFailed  []OnInvoiceExportFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout overrides the per-call plugin timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnTimeEntryRecorded); ok {
		r.onTimeEntryRecorded = append(r.onTimeEntryRecorded, v)
	}
	if v, ok := p.(OnInvoiceCreated); ok {
		r.onInvoiceCreated = append(r.onInvoiceCreated, v)
	}
	if v, ok := p.(OnInvoiceStatusChanged); ok {
		r.onInvoiceStatusChanged = append(r.onInvoiceStatusChanged, v)
	}
	if v, ok := p.(OnInvoicePaid); ok {
		r.onInvoicePaid = append(r.onInvoicePaid, v)
	}
	if v, ok := p.(OnInvoiceOverdue); ok {
		r.onInvoiceOverdue = append(r.onInvoiceOverdue, v)
	}
	if v, ok := p.(OnInvoiceVoided); ok {
		r.onInvoiceVoided = append(r.onInvoiceVoided, v)
	}
	if v, ok := p.(OnInvoiceExported); ok {
		r.onInvoiceExported = append(r.onInvoiceExported, v)
	}
	if v, ok := p.(OnInvoiceExportFailed); ok {
		r.onInvoiceExportFailed = append(r.onInvoiceExportFailed, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnTimeEntryRecorded)(nil)).Elem(), "OnTimeEntryRecorded")
	checkInterface(reflect.TypeOf((*OnInvoiceCreated)(nil)).Elem(), "OnInvoiceCreated")
	checkInterface(reflect.TypeOf((*OnInvoiceStatusChanged)(nil)).Elem(), "OnInvoiceStatusChanged")
	checkInterface(reflect.TypeOf((*OnInvoicePaid)(nil)).Elem(), "OnInvoicePaid")
	checkInterface(reflect.TypeOf((*OnInvoiceOverdue)(nil)).Elem(), "OnInvoiceOverdue")
	checkInterface(reflect.TypeOf((*OnInvoiceVoided)(nil)).Elem(), "OnInvoiceVoided")
	checkInterface(reflect.TypeOf((*OnInvoiceExported)(nil)).Elem(), "OnInvoiceExported")
	checkInterface(reflect.TypeOf((*OnInvoiceExportFailed)(nil)).Elem(), "OnInvoiceExportFailed")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTimeEntryRecorded emits a time entry recorded event.
func (r *Registry) EmitTimeEntryRecorded(ctx context.Context, entry interface{}) {
	r.mu.RLock()
	plugins := r.onTimeEntryRecorded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTimeEntryRecorded(ctx, entry)
		}); err != nil {
			r.logger.Warn("plugin OnTimeEntryRecorded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInvoiceCreated emits an invoice created event.
func (r *Registry) EmitInvoiceCreated(ctx context.Context, inv interface{}) {
	r.mu.RLock()
	plugins := r.onInvoiceCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInvoiceCreated(ctx, inv)
		}); err != nil {
			r.logger.Warn("plugin OnInvoiceCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInvoiceStatusChanged emits a status change and then the matching
// paid, overdue or voided event.
func (r *Registry) EmitInvoiceStatusChanged(ctx context.Context, inv interface{}, from, to string) {
	r.mu.RLock()
	plugins := r.onInvoiceStatusChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInvoiceStatusChanged(ctx, inv, from, to)
		}); err != nil {
			r.logger.Warn("plugin OnInvoiceStatusChanged failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}

	switch to {
	case "paid":
		r.emitInvoicePaid(ctx, inv)
	case "overdue":
		r.emitInvoiceOverdue(ctx, inv)
	case "void":
		r.emitInvoiceVoided(ctx, inv)
	}
}

func (r *Registry) emitInvoicePaid(ctx context.Context, inv interface{}) {
	r.mu.RLock()
	plugins := r.onInvoicePaid
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInvoicePaid(ctx, inv)
		}); err != nil {
			r.logger.Warn("plugin OnInvoicePaid failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

func (r *Registry) emitInvoiceOverdue(ctx context.Context, inv interface{}) {
	r.mu.RLock()
	plugins := r.onInvoiceOverdue
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInvoiceOverdue(ctx, inv)
		}); err != nil {
			r.logger.Warn("plugin OnInvoiceOverdue failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

func (r *Registry) emitInvoiceVoided(ctx context.Context, inv interface{}) {
	r.mu.RLock()
	plugins := r.onInvoiceVoided
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInvoiceVoided(ctx, inv)
		}); err != nil {
			r.logger.Warn("plugin OnInvoiceVoided failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInvoiceExported emits an invoice exported event.
func (r *Registry) EmitInvoiceExported(ctx context.Context, inv interface{}, url string) {
	r.mu.RLock()
	plugins := r.onInvoiceExported
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInvoiceExported(ctx, inv, url)
		}); err != nil {
			r.logger.Warn("plugin OnInvoiceExported failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInvoiceExportFailed emits an export failure event.
func (r *Registry) EmitInvoiceExportFailed(ctx context.Context, invoiceID string, exportErr error) {
	r.mu.RLock()
	plugins := r.onInvoiceExportFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInvoiceExportFailed(ctx, invoiceID, exportErr)
		}); err != nil {
			r.logger.Warn("plugin OnInvoiceExportFailed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the billing pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("plugin panic: %s: %v", pluginName, rec)
			}
		}()
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
