package key

import (
	"sort"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHasKeyLength(t *testing.T) {
	k := New()
	assert.Len(t, k, Len)
	assert.Equal(t, 26, Len)
	assert.True(t, Valid(k))

	_, err := ulid.ParseStrict(k)
	require.NoError(t, err)
}

func TestNewIsUniqueAndSorted(t *testing.T) {
	const n = 1000
	keys := make([]string, n)
	for i := range keys {
		keys[i] = New()
	}

	seen := make(map[string]struct{}, n)
	for _, k := range keys {
		_, dup := seen[k]
		require.False(t, dup, "duplicate key %s", k)
		seen[k] = struct{}{}
	}

	assert.True(t, sort.StringsAreSorted(keys), "keys created in sequence must sort in creation order")
}

func TestNewConcurrent(t *testing.T) {
	const workers, perWorker = 8, 200

	var mu sync.Mutex
	seen := make(map[string]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				k := New()
				mu.Lock()
				seen[k] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}

func TestValid(t *testing.T) {
	assert.False(t, Valid(""))
	assert.False(t, Valid("short"))
	assert.False(t, Valid("01ARZ3NDEKTSV4RRFFQ69G5FAVX"))
	assert.True(t, Valid("01ARZ3NDEKTSV4RRFFQ69G5FAV"))
}
