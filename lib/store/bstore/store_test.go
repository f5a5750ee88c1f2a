package bstore

import (
	"testing"

	"github.com/ValentinKolb/dShare/lib/store"
	storetesting "github.com/ValentinKolb/dShare/lib/store/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerStoreInMemory(t *testing.T) {
	storetesting.RunIStoreTestsWithLimits(t, "bstore(memory)", func(t *testing.T) store.IStore {
		s, err := NewBadgerStore(Options{InMemory: true})
		require.NoError(t, err)
		return s
	}, storetesting.Limits{MaxValueSize: MaxInMemoryValueSize})
}

func TestBadgerStoreInMemoryRejectsLargeValues(t *testing.T) {
	s, err := NewBadgerStore(Options{InMemory: true})
	require.NoError(t, err)
	defer s.Close()

	err = s.Set("too-large", make([]byte, MaxInMemoryValueSize))
	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, store.RetCInvalidOperation, storeErr.Code)

	// the store keeps working after the rejection
	require.NoError(t, s.Set("fits", make([]byte, MaxInMemoryValueSize-1)))
	val, ok, err := s.Get("fits")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, val, MaxInMemoryValueSize-1)
}

func TestBadgerStoreOnDiskAcceptsLargeValues(t *testing.T) {
	s, err := NewBadgerStore(Options{Path: t.TempDir()})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set("large", make([]byte, MaxInMemoryValueSize)))
	val, ok, err := s.Get("large")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, val, MaxInMemoryValueSize)
}

func TestBadgerStoreOnDisk(t *testing.T) {
	storetesting.RunIStoreTests(t, "bstore(disk)", func(t *testing.T) store.IStore {
		s, err := NewBadgerStore(Options{Path: t.TempDir()})
		require.NoError(t, err)
		return s
	})
}

func TestBadgerStorePersists(t *testing.T) {
	dir := t.TempDir()

	s, err := NewBadgerStore(Options{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, s.Set("kept", []byte("value")))
	require.NoError(t, s.Set("dropped", []byte("value")))
	require.NoError(t, s.Delete("dropped"))
	require.NoError(t, s.Close())

	s, err = NewBadgerStore(Options{Path: dir})
	require.NoError(t, err)
	defer s.Close()

	val, ok, err := s.Get("kept")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("value"), val)

	_, ok, err = s.Get("dropped")
	require.NoError(t, err)
	assert.False(t, ok)

	info, err := s.Info()
	require.NoError(t, err)
	assert.Equal(t, EngineName, info.Engine)
	assert.Equal(t, 1, info.Keys)
}
