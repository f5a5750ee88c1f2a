package testing

import (
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/dShare/lib/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreFactory creates a new, empty store for a single test
type StoreFactory func(t *testing.T) store.IStore

// Limits describes restrictions of a store implementation the suite has to respect
type Limits struct {
	// MaxValueSize is the exclusive upper bound for value sizes, 0 means unlimited.
	// Larger values must be rejected with store.RetCInvalidOperation.
	MaxValueSize int
}

// RunIStoreTests runs the shared test suite for an IStore implementation without limits.
func RunIStoreTests(t *testing.T, name string, factory StoreFactory) {
	RunIStoreTestsWithLimits(t, name, factory, Limits{})
}

// RunIStoreTestsWithLimits runs the shared test suite for a store with the given limits.
func RunIStoreTestsWithLimits(t *testing.T, name string, factory StoreFactory, limits Limits) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory(t))
		})

		t.Run("Overwrite", func(t *testing.T) {
			testOverwrite(t, factory(t))
		})

		t.Run("BatchDelete", func(t *testing.T) {
			testBatchDelete(t, factory(t))
		})

		t.Run("DeleteMissing", func(t *testing.T) {
			testDeleteMissing(t, factory(t))
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory(t), limits)
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, factory(t))
		})

		t.Run("Concurrent", func(t *testing.T) {
			testConcurrent(t, factory(t))
		})

		t.Run("Closed", func(t *testing.T) {
			testClosed(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, s store.IStore) {
	defer s.Close()

	require.NoError(t, s.Set("alpha", []byte("hello")))

	val, ok, err := s.Get("alpha")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("hello"), val)

	_, ok, err = s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testOverwrite(t *testing.T, s store.IStore) {
	defer s.Close()

	require.NoError(t, s.Set("k", []byte("v1")))
	require.NoError(t, s.Set("k", []byte("v2")))

	val, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v2"), val)
}

func testBatchDelete(t *testing.T, s store.IStore) {
	defer s.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Set(fmt.Sprintf("key-%d", i), []byte{byte(i)}))
	}

	require.NoError(t, s.Delete("key-1", "key-3", "key-5"))

	for i := 0; i < 10; i++ {
		_, ok, err := s.Get(fmt.Sprintf("key-%d", i))
		require.NoError(t, err)
		deleted := i == 1 || i == 3 || i == 5
		assert.Equal(t, !deleted, ok, "key-%d", i)
	}
}

func testDeleteMissing(t *testing.T, s store.IStore) {
	defer s.Close()

	require.NoError(t, s.Set("present", []byte("x")))
	require.NoError(t, s.Delete("absent", "present", "also-absent"))
	require.NoError(t, s.Delete())

	_, ok, err := s.Get("present")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testEdgeCases(t *testing.T, s store.IStore, limits Limits) {
	defer s.Close()

	// binary values including NUL bytes are stored unchanged
	binary := []byte{0x00, 0x01, 0xff, 0x00, '@', ':'}
	require.NoError(t, s.Set("binary", binary))
	val, ok, err := s.Get("binary")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, binary, val)

	// the store keeps its own copy of the value
	buf := []byte("original")
	require.NoError(t, s.Set("copy", buf))
	copy(buf, "mutated!")
	val, _, err = s.Get("copy")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), val)

	// large values
	large := make([]byte, 1<<20)
	for i := range large {
		large[i] = byte(i % 251)
	}

	if limits.MaxValueSize > 0 && len(large) >= limits.MaxValueSize {
		err = s.Set("large", large)
		require.Error(t, err)
		assert.ErrorIs(t, err, store.NewError(store.RetCInvalidOperation, ""))
		_, ok, err = s.Get("large")
		require.NoError(t, err)
		assert.False(t, ok, "a rejected value must not be stored")

		// the largest accepted value still round trips
		large = large[:limits.MaxValueSize-1]
	}

	require.NoError(t, s.Set("large", large))
	val, ok, err = s.Get("large")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, large, val)
}

func testInfo(t *testing.T, s store.IStore) {
	defer s.Close()

	info, err := s.Info()
	require.NoError(t, err)
	assert.NotEmpty(t, info.Engine)
	assert.Equal(t, 0, info.Keys)

	require.NoError(t, s.Set("a", []byte("1")))
	require.NoError(t, s.Set("b", []byte("2")))
	require.NoError(t, s.Delete("a"))

	info, err = s.Info()
	require.NoError(t, err)
	assert.Equal(t, 1, info.Keys)
}

func testConcurrent(t *testing.T, s store.IStore) {
	defer s.Close()

	const writers, perWriter = 8, 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				k := fmt.Sprintf("w%d-%d", w, i)
				if err := s.Set(k, []byte(k)); err != nil {
					t.Errorf("set %s: %v", k, err)
					return
				}
				if _, ok, err := s.Get(k); err != nil || !ok {
					t.Errorf("get %s: ok=%t err=%v", k, ok, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	info, err := s.Info()
	require.NoError(t, err)
	assert.Equal(t, writers*perWriter, info.Keys)
}

func testClosed(t *testing.T, s store.IStore) {
	require.NoError(t, s.Set("k", []byte("v")))
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Set("k", []byte("v")), store.ErrClosed)
	_, _, err := s.Get("k")
	assert.ErrorIs(t, err, store.ErrClosed)
	assert.ErrorIs(t, s.Delete("k"), store.ErrClosed)

	// closing twice is fine
	assert.NoError(t, s.Close())
}
