// Package bstore implements a persistent store.IStore on top of BadgerDB.
//
// Values are written in their own transaction, batched deletes go through a
// single badger.WriteBatch. Badger's internal log output is routed to the
// "store" logger. For on-disk databases a background goroutine periodically
// runs the value log garbage collection until the store is closed.
//
// Usage Example:
//
//	s, err := bstore.NewBadgerStore(bstore.Options{Path: "data"})
//	if err != nil {
//		return err
//	}
//	defer s.Close()
package bstore

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dShare/lib/store"
	"github.com/dgraph-io/badger/v4"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("store")

const (
	// EngineName identifies this backend in settings and metadata
	EngineName = "badger"

	// MaxInMemoryValueSize is the exclusive upper bound for values of an in-memory
	// store. Badger writes larger values to the value log, which does not exist in memory.
	MaxInMemoryValueSize = 1 << 20

	defaultGCInterval     = 5 * time.Minute
	defaultGCDiscardRatio = 0.5
)

// Options configures the badger store
type Options struct {
	// Path is the directory holding the database files. Ignored if InMemory is set.
	Path string
	// InMemory keeps all data in memory, nothing is written to disk
	InMemory bool
	// SyncWrites fsyncs every write
	SyncWrites bool
	// GCInterval is the pause between value log garbage collections, 0 uses the default
	GCInterval time.Duration
}

type storeImpl struct {
	db       *badger.DB
	closed   atomic.Bool
	maxValue int // 0 means unlimited

	stop chan struct{}
	gcWg sync.WaitGroup
}

// NewBadgerStore opens (or creates) a badger database
func NewBadgerStore(opts Options) (store.IStore, error) {
	bOpts := badger.DefaultOptions(opts.Path).
		WithInMemory(opts.InMemory).
		WithSyncWrites(opts.SyncWrites).
		WithLogger(Logger)
	if opts.InMemory {
		bOpts = bOpts.WithDir("").WithValueDir("").WithValueThreshold(MaxInMemoryValueSize)
	}

	db, err := badger.Open(bOpts)
	if err != nil {
		return nil, store.WrapError(store.RetCInternalError, "open badger", err)
	}

	s := &storeImpl{
		db:   db,
		stop: make(chan struct{}),
	}
	if opts.InMemory {
		s.maxValue = MaxInMemoryValueSize
	}

	if !opts.InMemory {
		interval := opts.GCInterval
		if interval <= 0 {
			interval = defaultGCInterval
		}
		s.gcWg.Add(1)
		go s.runGC(interval)
	}

	Logger.Infof("opened badger store (path=%q, in-memory=%t)", opts.Path, opts.InMemory)
	return s, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, value []byte) error {
	if s.closed.Load() {
		return store.ErrClosed
	}
	if s.maxValue > 0 && len(value) >= s.maxValue {
		return store.NewError(store.RetCInvalidOperation,
			fmt.Sprintf("value of %d bytes exceeds the in-memory limit of %d bytes", len(value), s.maxValue-1))
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return store.WrapError(store.RetCInternalError, "set", err)
	}
	return nil
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	if s.closed.Load() {
		return nil, false, store.ErrClosed
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})

	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, store.WrapError(store.RetCInternalError, "get", err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true, nil
}

func (s *storeImpl) Delete(keys ...string) error {
	if s.closed.Load() {
		return store.ErrClosed
	}
	if len(keys) == 0 {
		return nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := wb.Delete([]byte(key)); err != nil {
			return store.WrapError(store.RetCInternalError, "delete", err)
		}
	}

	if err := wb.Flush(); err != nil {
		return store.WrapError(store.RetCInternalError, "delete", err)
	}
	return nil
}

func (s *storeImpl) Info() (store.Info, error) {
	if s.closed.Load() {
		return store.Info{}, store.ErrClosed
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return store.Info{}, store.WrapError(store.RetCInternalError, "info", err)
	}
	return store.Info{Engine: EngineName, Keys: count}, nil
}

func (s *storeImpl) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.stop)
	s.gcWg.Wait()

	if err := s.db.Close(); err != nil {
		return store.WrapError(store.RetCInternalError, "close", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// runGC reclaims value log space until the store is closed
func (s *storeImpl) runGC(interval time.Duration) {
	defer s.gcWg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			// one call rewrites at most one file, repeat until nothing is left
			for {
				err := s.db.RunValueLogGC(defaultGCDiscardRatio)
				if err == nil {
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) {
					Logger.Warningf("value log gc failed: %v", err)
				}
				break
			}
		}
	}
}
