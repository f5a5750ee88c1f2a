package pool

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// link is one element of the queue's list
type link[T any] struct {
	job  *T
	next atomic.Pointer[link[T]]
}

// jobQueue is an unbounded multi-producer queue backed by a lock-free linked list.
// A single internal goroutine moves jobs from the list to the out channel,
// from which any number of workers may receive.
//
// Push never blocks on a full queue, the list grows as needed.
type jobQueue[T any] struct {
	// front is the last delivered link, back the last appended one
	front   atomic.Pointer[link[T]]
	back    atomic.Pointer[link[T]]
	out     chan *T
	done    sync.WaitGroup
	closed  atomic.Bool
	pending atomic.Int64

	mu    sync.Mutex
	ready *sync.Cond
}

// newJobQueue creates a queue and starts its internal forwarding goroutine
func newJobQueue[T any]() *jobQueue[T] {
	q := &jobQueue[T]{out: make(chan *T)}
	q.ready = sync.NewCond(&q.mu)

	stub := &link[T]{}
	q.front.Store(stub)
	q.back.Store(stub)

	q.done.Add(1)
	go q.forward()
	return q
}

// Push appends a job. Returns false if the job is nil or the queue is closed.
func (q *jobQueue[T]) Push(job *T) bool {
	if job == nil || q.closed.Load() {
		return false
	}

	l := &link[T]{job: job}
	for spins := 0; ; spins++ {
		if q.append(l) {
			q.pending.Add(1)
			q.wake()
			return true
		}
		yield(spins)
	}
}

// append tries once to link l behind the current back of the list
func (q *jobQueue[T]) append(l *link[T]) bool {
	back := q.back.Load()
	if succ := back.next.Load(); succ != nil {
		// another producer linked its job but has not moved back yet
		q.back.CompareAndSwap(back, succ)
		return false
	}
	if !back.next.CompareAndSwap(nil, l) {
		return false
	}
	q.back.CompareAndSwap(back, l)
	return true
}

// pop detaches the oldest job, nil if the list is empty
func (q *jobQueue[T]) pop() *T {
	front := q.front.Load()
	succ := front.next.Load()
	if succ == nil {
		return nil
	}
	q.front.Store(succ)

	// succ becomes the new stub and must not keep the job alive
	job := succ.job
	succ.job = nil
	return job
}

// wake signals the forwarding goroutine while holding the lock, so a signal
// can not slip in between its emptiness check and Wait
func (q *jobQueue[T]) wake() {
	q.mu.Lock()
	q.ready.Signal()
	q.mu.Unlock()
}

// forward moves jobs from the list to the out channel until the queue is
// closed and drained, then closes the out channel
func (q *jobQueue[T]) forward() {
	defer q.done.Done()
	defer close(q.out)

	for {
		if job := q.pop(); job != nil {
			q.out <- job
			q.pending.Add(-1)
			continue
		}

		q.mu.Lock()
		for q.front.Load().next.Load() == nil && !q.closed.Load() {
			q.ready.Wait()
		}
		drained := q.front.Load().next.Load() == nil
		q.mu.Unlock()

		if drained {
			return
		}
	}
}

// Recv returns the channel jobs are delivered on. It is closed once the
// queue has been closed and every job was delivered.
func (q *jobQueue[T]) Recv() <-chan *T {
	return q.out
}

// Close rejects further pushes. Jobs already queued are still delivered.
func (q *jobQueue[T]) Close() {
	q.closed.Store(true)
	q.wake()
}

// Len returns the number of jobs not yet handed to a worker
func (q *jobQueue[T]) Len() int {
	return int(q.pending.Load())
}

// yield backs off a contended producer, growing with the number of failed tries
func yield(spins int) {
	for i := 0; i < 1<<min(spins, 10); i++ {
		runtime.Gosched()
	}
}
