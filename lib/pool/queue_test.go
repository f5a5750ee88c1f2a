package pool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueBasicOperations(t *testing.T) {
	q := newJobQueue[int]()
	defer q.Close()

	for i := 0; i < 10; i++ {
		v := i
		require.True(t, q.Push(&v))
	}

	for i := 0; i < 10; i++ {
		select {
		case val := <-q.Recv():
			assert.Equal(t, i, *val)
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for item %d", i)
		}
	}

	select {
	case val := <-q.Recv():
		t.Errorf("queue should be empty, got %v", *val)
	case <-time.After(10 * time.Millisecond):
	}
}

func TestQueueRejectsNil(t *testing.T) {
	q := newJobQueue[int]()
	defer q.Close()
	assert.False(t, q.Push(nil))
}

func TestQueueCloseDrains(t *testing.T) {
	q := newJobQueue[int]()

	for i := 0; i < 5; i++ {
		v := i
		q.Push(&v)
	}
	q.Close()

	v := 100
	assert.False(t, q.Push(&v), "push after close must fail")

	for i := 0; i < 5; i++ {
		select {
		case val := <-q.Recv():
			assert.Equal(t, i, *val)
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for item %d after close", i)
		}
	}

	_, ok := <-q.Recv()
	assert.False(t, ok, "channel must be closed after draining")
}

func TestQueueConcurrentProducersManyConsumers(t *testing.T) {
	q := newJobQueue[int]()

	const producers, perProducer = 10, 1000
	total := producers * perProducer

	var mu sync.Mutex
	received := make(map[int]bool, total)

	var consumers sync.WaitGroup
	for c := 0; c < 4; c++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for val := range q.Recv() {
				mu.Lock()
				if received[*val] {
					t.Errorf("duplicate item %d", *val)
				}
				received[*val] = true
				mu.Unlock()
			}
		}()
	}

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				v := base + i
				if !q.Push(&v) {
					t.Errorf("push %d failed", v)
				}
			}
		}(p * perProducer)
	}
	wg.Wait()
	q.Close()

	done := make(chan struct{})
	go func() {
		consumers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for consumers")
	}

	assert.Len(t, received, total)
	assert.Equal(t, 0, q.Len())
}
