package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/docket/blob"
)

func TestPutWritesAndOverwrites(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "invoices"), "https://files.example.com/invoices/")
	require.NoError(t, err)

	ctx := context.Background()
	url, err := s.Put(ctx, "invoice-INV-000001.pdf", "application/pdf", []byte("v1"))
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/invoices/invoice-INV-000001.pdf", url)

	_, err = s.Put(ctx, "invoice-INV-000001.pdf", "application/pdf", []byte("v2"))
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "invoices", "invoice-INV-000001.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))

	entries, err := os.ReadDir(filepath.Join(dir, "invoices"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files left behind")
}

func TestPutRejectsEscapingKeys(t *testing.T) {
	s, err := New(t.TempDir(), "https://files.example.com")
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "../outside.pdf", "application/pdf", []byte("x"))
	assert.ErrorIs(t, err, blob.ErrInvalidKey)
}

func TestConcurrentPutsNeverTear(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "https://files.example.com")
	require.NoError(t, err)

	payloads := make([][]byte, 8)
	for i := range payloads {
		payloads[i] = []byte(fmt.Sprintf("%d-%0512d", i, i))
	}

	var wg sync.WaitGroup
	for _, p := range payloads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Put(context.Background(), "same.pdf", "application/pdf", p)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := os.ReadFile(filepath.Join(dir, "same.pdf"))
	require.NoError(t, err)
	assert.Contains(t, payloads, got)
}
