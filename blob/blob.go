// Package blob defines the durable document storage used for exported
// invoices.
package blob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrInvalidKey is returned for keys that are empty or contain path
// separators or dot segments.
var ErrInvalidKey = errors.New("blob: invalid key")

// Store writes whole objects by key. Put overwrites an existing object
// atomically: readers see the old bytes or the new bytes, never a prefix.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (url string, err error)
}

// ValidateKey rejects keys that could escape a bucket or directory.
func ValidateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key != path.Clean(key) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Retrying retries failed Puts with exponential backoff. Invalid keys and
// context cancellation are not retried.
type Retrying struct {
	next     Store
	maxTries uint
	initial  time.Duration
	logger   *slog.Logger
}

// RetryOption configures a Retrying store.
type RetryOption func(*Retrying)

// WithMaxTries bounds the number of attempts (default 4).
func WithMaxTries(n uint) RetryOption {
	return func(r *Retrying) { r.maxTries = n }
}

// WithInitialInterval sets the first backoff delay (default 100ms).
func WithInitialInterval(d time.Duration) RetryOption {
	return func(r *Retrying) { r.initial = d }
}

// WithLogger sets the logger used to report retried attempts.
func WithLogger(logger *slog.Logger) RetryOption {
	return func(r *Retrying) { r.logger = logger }
}

// NewRetrying wraps next.
func NewRetrying(next Store, opts ...RetryOption) *Retrying {
	r := &Retrying{
		next:     next,
		maxTries: 4,
		initial:  100 * time.Millisecond,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Put implements Store.
func (r *Retrying) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.initial

	attempt := 0
	return backoff.Retry(ctx, func() (string, error) {
		attempt++
		url, err := r.next.Put(ctx, key, contentType, data)
		if err == nil {
			return url, nil
		}
		if errors.Is(err, ErrInvalidKey) || ctx.Err() != nil {
			return "", backoff.Permanent(err)
		}
		r.logger.Warn("blob put failed, retrying",
			"key", key,
			"attempt", attempt,
			"error", err,
		)
		return "", err
	},
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(r.maxTries),
	)
}
