package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"

	docketstore "github.com/xraph/docket/store"
	"github.com/xraph/docket/store/storetest"
)

// openTestStore returns a migrated store on a fresh database file.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	sdb := sqlitedriver.New()
	dsn := "file:" + filepath.Join(t.TempDir(), "docket.db") + "?_pragma=busy_timeout(5000)"
	require.NoError(t, sdb.Open(ctx, dsn))

	db, err := grove.Open(sdb)
	require.NoError(t, err)

	s := New(db)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestStoreBehaviour(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docketstore.Store { return openTestStore(t) })
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))

	n, err := s.NextInvoiceNumber(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
