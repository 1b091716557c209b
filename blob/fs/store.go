// Package fs is a blob.Store over a local directory, typically one served
// by a static file server or mounted from network storage.
package fs

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/xraph/docket/blob"
)

// Store writes each object to a temp file in Dir and renames it over the
// key, so a reader never opens a partially written document.
type Store struct {
	dir     string
	baseURL string
}

var _ blob.Store = (*Store)(nil)

// New creates the directory if needed. URLs are baseURL + "/" + key.
func New(dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blob/fs: create %s: %w", dir, err)
	}
	return &Store{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put implements blob.Store.
func (s *Store) Put(ctx context.Context, key, _ string, data []byte) (string, error) {
	if err := blob.ValidateKey(key); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-"+key+"-*")
	if err != nil {
		return "", fmt.Errorf("blob/fs: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error wins
		return "", fmt.Errorf("blob/fs: write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck,gosec // sync error wins
		return "", fmt.Errorf("blob/fs: sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("blob/fs: close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		return "", fmt.Errorf("blob/fs: rename %s: %w", key, err)
	}

	return s.baseURL + "/" + url.PathEscape(key), nil
}

// path returns the file that holds key.
func (s *Store) path(key string) string { return filepath.Join(s.dir, key) }
