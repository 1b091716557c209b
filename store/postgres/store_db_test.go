package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"

	docketstore "github.com/xraph/docket/store"
	"github.com/xraph/docket/store/storetest"
)

// TestStoreBehaviour runs against the database named by
// DOCKET_POSTGRES_DSN and wipes the docket tables before every case.
func TestStoreBehaviour(t *testing.T) {
	dsn := os.Getenv("DOCKET_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DOCKET_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	pdb := pgdriver.New()
	require.NoError(t, pdb.Open(ctx, dsn))
	db, err := grove.Open(pdb)
	require.NoError(t, err)

	s := New(db)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))

	storetest.Run(t, func(t *testing.T) docketstore.Store {
		_, err := s.pg.NewRaw(`TRUNCATE docket_clients, docket_matters, docket_time_entries, docket_invoices`).Exec(ctx)
		require.NoError(t, err)
		_, err = s.pg.NewRaw(`ALTER SEQUENCE docket_invoice_number_seq RESTART WITH 1`).Exec(ctx)
		require.NoError(t, err)
		return s
	})
}
