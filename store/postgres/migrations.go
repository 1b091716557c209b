package postgres

import (
	"context"

	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the "pg" executor
	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the docket store.
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
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    billing_amount BIGINT NOT NULL DEFAULT 0,
    metadata       JSONB NOT NULL DEFAULT '{}',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    duration_minutes     BIGINT NOT NULL DEFAULT 0,
    hourly_rate_amount   BIGINT,
    hourly_rate_currency TEXT NOT NULL DEFAULT '',
    billable             BOOLEAN NOT NULL DEFAULT TRUE,
    entry_date           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    invoice_id           TEXT NOT NULL DEFAULT '',
    created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_docket_time_entries_unbilled ON docket_time_entries (matter_id, entry_date) WHERE invoice_id = '';
CREATE INDEX IF NOT EXISTS idx_docket_time_entries_invoice ON docket_time_entries (invoice_id) WHERE invoice_id != '';
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
    number           BIGINT NOT NULL,
    matter_id        TEXT NOT NULL DEFAULT '',
    client_id        TEXT NOT NULL DEFAULT '',
    time_entry_ids   JSONB NOT NULL DEFAULT '[]',
    line_items       JSONB NOT NULL DEFAULT '[]',
    currency         TEXT NOT NULL DEFAULT '',
    subtotal_amount  BIGINT NOT NULL DEFAULT 0,
    total_amount     BIGINT NOT NULL DEFAULT 0,
    due_date         TIMESTAMPTZ NOT NULL,
    notes            TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL DEFAULT 'draft',
    bill_to          JSONB NOT NULL DEFAULT '{}',
    export_url       TEXT NOT NULL DEFAULT '',
    export_file_name TEXT NOT NULL DEFAULT '',
    exported_at      TIMESTAMPTZ,
    sent_at          TIMESTAMPTZ,
    paid_at          TIMESTAMPTZ,
    overdue_at       TIMESTAMPTZ,
    voided_at        TIMESTAMPTZ,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_docket_invoices_number ON docket_invoices (number);
CREATE INDEX IF NOT EXISTS idx_docket_invoices_matter ON docket_invoices (matter_id, status);
CREATE INDEX IF NOT EXISTS idx_docket_invoices_due ON docket_invoices (due_date) WHERE status IN ('draft', 'sent');
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS docket_invoices`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_docket_invoice_number_seq",
			Version: "20240101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `CREATE SEQUENCE IF NOT EXISTS docket_invoice_number_seq START WITH 1 INCREMENT BY 1`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP SEQUENCE IF EXISTS docket_invoice_number_seq`)
				return err
			},
		},
	)
}
