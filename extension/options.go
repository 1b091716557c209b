package extension

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/docket"
	"github.com/xraph/docket/blob"
	"github.com/xraph/docket/plugin"
	"github.com/xraph/docket/store"
	"github.com/xraph/docket/store/mongo"
	"github.com/xraph/docket/store/postgres"
	"github.com/xraph/docket/store/sqlite"
)

// Option configures the Docket Forge extension.
type Option func(*Extension)

// WithStore sets the store for the docket engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithPostgres stores docket data in a PostgreSQL grove.DB.
func WithPostgres(db *grove.DB) Option {
	return func(e *Extension) { e.store = postgres.New(db) }
}

// WithSQLite stores docket data in a SQLite grove.DB.
func WithSQLite(db *grove.DB) Option {
	return func(e *Extension) { e.store = sqlite.New(db) }
}

// WithMongo stores docket data in a MongoDB grove.DB.
func WithMongo(db *grove.DB) Option {
	return func(e *Extension) { e.store = mongo.New(db) }
}

// WithBlobStore sets where exported PDFs are uploaded. It takes precedence
// over BlobDir.
func WithBlobStore(b blob.Store) Option {
	return func(e *Extension) { e.blobs = b }
}

// WithDocketOption passes a docket.Option through to the underlying engine.
func WithDocketOption(opt docket.Option) Option {
	return func(e *Extension) {
		e.docketOpts = append(e.docketOpts, opt)
	}
}

// WithPlugin registers a docket plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.docketOpts = append(e.docketOpts, docket.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithOperationTimeout bounds every store and blob call.
func WithOperationTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.OperationTimeout = d }
}

// WithOverdueSweepInterval sets how often due invoices are moved to overdue.
func WithOverdueSweepInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.OverdueSweepInterval = d }
}

// WithDisableOverdueSweep turns the background overdue sweep off.
func WithDisableOverdueSweep() Option {
	return func(e *Extension) { e.config.DisableOverdueSweep = true }
}

// WithBlobDir writes exported PDFs under dir, linked from baseURL.
func WithBlobDir(dir, baseURL string) Option {
	return func(e *Extension) {
		e.config.BlobDir = dir
		e.config.BlobBaseURL = baseURL
	}
}

// WithFirm sets the firm printed on rendered invoices.
func WithFirm(firm FirmConfig) Option {
	return func(e *Extension) { e.config.Firm = firm }
}
