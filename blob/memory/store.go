// Package memory is an in-process blob.Store for tests and development.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/xraph/docket/blob"
)

// Object is a stored blob.
type Object struct {
	ContentType string
	Data        []byte
}

// Store keeps objects in a map. Put replaces the whole object under the
// lock, so readers never observe a partial write.
type Store struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]Object
	puts    int

	failures []error
}

// New creates a store whose URLs are baseURL + "/" + key.
func New(baseURL string) *Store {
	return &Store{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]Object),
	}
}

var _ blob.Store = (*Store)(nil)

// Put implements blob.Store.
func (s *Store) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := blob.ValidateKey(key); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.puts++
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return "", err
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[key] = Object{ContentType: contentType, Data: buf}
	return s.baseURL + "/" + key, nil
}

// Get returns a copy of the object stored under key.
func (s *Store) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return Object{}, false
	}
	obj.Data = append([]byte(nil), obj.Data...)
	return obj, true
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Puts returns the number of Put calls, including failed ones.
func (s *Store) Puts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts
}

// FailNext makes the next len(errs) Puts fail with errs in order.
func (s *Store) FailNext(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, errs...)
}
