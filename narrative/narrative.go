// Package narrative turns a lawyer's raw time note into billing-ready
// text through an external text service. Enhancement is best effort: any
// failure keeps the raw note.
package narrative

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Enhancer rewrites raw text. Implementations may call a remote model.
type Enhancer interface {
	Enhance(ctx context.Context, raw string) (string, error)
}

// EnhancerFunc adapts a plain function to Enhancer.
type EnhancerFunc func(ctx context.Context, raw string) (string, error)

// Enhance implements Enhancer.
func (f EnhancerFunc) Enhance(ctx context.Context, raw string) (string, error) {
	return f(ctx, raw)
}

// DefaultTimeout bounds a single Enhance call.
const DefaultTimeout = 3 * time.Second

// Fallback wraps an Enhancer so that errors, timeouts and empty output
// all degrade to the raw text.
type Fallback struct {
	enhancer Enhancer
	timeout  time.Duration
	logger   *slog.Logger
}

// NewFallback wraps e. A non-positive timeout uses DefaultTimeout.
func NewFallback(e Enhancer, timeout time.Duration, logger *slog.Logger) *Fallback {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{enhancer: e, timeout: timeout, logger: logger}
}

// Apply returns the enhanced text, or raw if enhancement is unavailable.
func (f *Fallback) Apply(ctx context.Context, raw string) string {
	if f == nil || f.enhancer == nil {
		return raw
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := f.enhancer.Enhance(ctx, raw)
		done <- result{text, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			f.logger.Warn("narrative enhancement failed, keeping raw text", "error", r.err)
			return raw
		}
		if strings.TrimSpace(r.text) == "" {
			return raw
		}
		return r.text
	case <-ctx.Done():
		f.logger.Warn("narrative enhancement timed out, keeping raw text", "timeout", f.timeout)
		return raw
	}
}
