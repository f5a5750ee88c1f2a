// Package mstore implements a volatile store.IStore backed by a concurrent hash map.
// Data is kept in memory only and lost when the process exits.
package mstore

import (
	"sync/atomic"

	"github.com/ValentinKolb/dShare/lib/store"
	"github.com/puzpuzpuz/xsync/v3"
)

// EngineName identifies this backend in settings and metadata
const EngineName = "memory"

type storeImpl struct {
	data   *xsync.MapOf[string, []byte]
	closed atomic.Bool
}

// NewMemoryStore creates a new, empty in-memory store
func NewMemoryStore() store.IStore {
	return &storeImpl{
		data: xsync.NewMapOf[string, []byte](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, value []byte) error {
	if s.closed.Load() {
		return store.ErrClosed
	}
	// callers may reuse their buffer
	s.data.Store(key, append([]byte(nil), value...))
	return nil
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	if s.closed.Load() {
		return nil, false, store.ErrClosed
	}
	val, ok := s.data.Load(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), val...), true, nil
}

func (s *storeImpl) Delete(keys ...string) error {
	if s.closed.Load() {
		return store.ErrClosed
	}
	for _, key := range keys {
		s.data.Delete(key)
	}
	return nil
}

func (s *storeImpl) Info() (store.Info, error) {
	if s.closed.Load() {
		return store.Info{}, store.ErrClosed
	}
	return store.Info{Engine: EngineName, Keys: s.data.Size()}, nil
}

func (s *storeImpl) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.data.Clear()
	return nil
}
