// Package store defines the unified persistence contract every Docket
// backend implements.
package store

import (
	"context"

	"github.com/xraph/docket/invoice"
	"github.com/xraph/docket/matter"
	"github.com/xraph/docket/timeentry"
)

// Store is the unified storage interface for all Docket entities.
//
// Backends return the docket sentinels (ErrInvoiceNotFound,
// ErrEntryAlreadyInvoiced, ...) for domain outcomes and raw driver errors
// for everything else; the engine classifies the latter as unavailable.
type Store interface {
	matter.Store
	timeentry.Store
	invoice.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
