package sqlite

import (
	"context"

	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // registers the "sqlite" executor
	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the docket store (SQLite).
var Migrations = migrate.NewGroup("docket")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_docket_clients",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS docket_clients (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    email      TEXT NOT NULL DEFAULT '',
    phone      TEXT NOT NULL DEFAULT '',
    address    TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS docket_clients`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_docket_matters",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS docket_matters (
    id             TEXT PRIMARY KEY,
    client_id      TEXT NOT NULL DEFAULT '',
    title          TEXT NOT NULL DEFAULT '',
    reference      TEXT NOT NULL DEFAULT '',
    currency       TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL DEFAULT 'open',
    billing_mode   TEXT NOT NULL DEFAULT 'hourly',
    billing_amount INTEGER NOT NULL DEFAULT 0,
    metadata       TEXT NOT NULL DEFAULT '{}',
    created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_docket_matters_client ON docket_matters (client_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS docket_matters`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_docket_time_entries",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS docket_time_entries (
    id                   TEXT PRIMARY KEY,
    matter_id            TEXT NOT NULL DEFAULT '',
    description          TEXT NOT NULL DEFAULT '',
    raw_description      TEXT NOT NULL DEFAULT '',
    duration_minutes     INTEGER NOT NULL DEFAULT 0,
    hourly_rate_amount   INTEGER,
    hourly_rate_currency TEXT NOT NULL DEFAULT '',
    billable             INTEGER NOT NULL DEFAULT 1,
    entry_date           DATETIME NOT NULL DEFAULT (datetime('now')),
    invoice_id           TEXT NOT NULL DEFAULT '',
    created_at           DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at           DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_docket_time_entries_unbilled ON docket_time_entries (matter_id, invoice_id, entry_date);
CREATE INDEX IF NOT EXISTS idx_docket_time_entries_invoice ON docket_time_entries (invoice_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS docket_time_entries`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_docket_invoices",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS docket_invoices (
    id               TEXT PRIMARY KEY,
    number           INTEGER NOT NULL,
    matter_id        TEXT NOT NULL DEFAULT '',
    client_id        TEXT NOT NULL DEFAULT '',
    time_entry_ids   TEXT NOT NULL DEFAULT '[]',
    line_items       TEXT NOT NULL DEFAULT '[]',
    currency         TEXT NOT NULL DEFAULT '',
    subtotal_amount  INTEGER NOT NULL DEFAULT 0,
    total_amount     INTEGER NOT NULL DEFAULT 0,
    due_date         DATETIME NOT NULL,
    notes            TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL DEFAULT 'draft',
    bill_to          TEXT NOT NULL DEFAULT '{}',
    export_url       TEXT NOT NULL DEFAULT '',
    export_file_name TEXT NOT NULL DEFAULT '',
    exported_at      DATETIME,
    sent_at          DATETIME,
    paid_at          DATETIME,
    overdue_at       DATETIME,
    voided_at        DATETIME,
    created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_docket_invoices_number ON docket_invoices (number);
CREATE INDEX IF NOT EXISTS idx_docket_invoices_matter ON docket_invoices (matter_id, status);
CREATE INDEX IF NOT EXISTS idx_docket_invoices_due ON docket_invoices (status, due_date);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS docket_invoices`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_docket_sequences",
			Version: "20240101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS docket_sequences (
    name  TEXT PRIMARY KEY,
    value INTEGER NOT NULL DEFAULT 0
);

INSERT OR IGNORE INTO docket_sequences (name, value) VALUES ('invoice_number', 0);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS docket_sequences`)
				return err
			},
		},
	)
}
