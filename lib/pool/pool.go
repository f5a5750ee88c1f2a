// Package pool implements a fixed-size worker pool over one unbounded job queue.
//
// A Pool owns N long-lived worker goroutines. Jobs submitted with Submit are
// appended to a shared queue and claimed by whichever worker is free. Submit never
// blocks, the queue grows without bound, so there is no backpressure towards the
// submitter. Close stops accepting jobs, lets the workers finish everything that
// was already queued and waits for them to exit.
//
// Usage:
//
//	p, err := pool.New(15)
//	if err != nil {
//		return err
//	}
//	defer p.Close()
//
//	_ = p.Submit(func() { handle(conn) })
package pool

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("pool")

// DefaultWorkers is the worker count used by nodes that do not configure one
const DefaultWorkers = 15

var (
	// ErrPoolClosed is returned by Submit once Close has been called
	ErrPoolClosed = errors.New("pool is closed")
	// ErrNilJob is returned by Submit for a nil job
	ErrNilJob = errors.New("job must not be nil")
)

// Job is a unit of work executed by exactly one worker
type Job func()

// Pool is a fixed set of workers consuming jobs from one shared queue
type Pool struct {
	queue   *jobQueue[Job]
	workers sync.WaitGroup
	size    int
	active  atomic.Int64

	// mu orders Submit against Close: no job is pushed after the queue was closed
	mu     sync.RWMutex
	closed bool
}

// New starts a pool with the given number of workers
func New(workers int) (*Pool, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("invalid worker count %d: must be positive", workers)
	}

	p := &Pool{
		queue: newJobQueue[Job](),
		size:  workers,
	}

	p.workers.Add(workers)
	for id := 0; id < workers; id++ {
		go p.work(id)
	}

	Logger.Debugf("started pool with %d workers", workers)
	return p, nil
}

// Submit queues a job. It never blocks waiting for a free worker.
func (p *Pool) Submit(job Job) error {
	if job == nil {
		return ErrNilJob
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || !p.queue.Push(&job) {
		return ErrPoolClosed
	}
	return nil
}

// Close stops accepting jobs and waits until every queued job has run and all
// workers have exited. Calling Close more than once is a no-op.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.queue.Close()
	p.mu.Unlock()

	p.workers.Wait()
	Logger.Debugf("pool with %d workers stopped", p.size)
}

// Size returns the number of workers
func (p *Pool) Size() int {
	return p.size
}

// Active returns the number of jobs currently executing
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Pending returns the number of jobs waiting for a worker
func (p *Pool) Pending() int {
	return p.queue.Len()
}

// work runs jobs until the queue is closed and drained
func (p *Pool) work(id int) {
	defer p.workers.Done()

	for job := range p.queue.Recv() {
		p.run(id, *job)
	}
}

// run executes a single job. A panicking job is logged and does not take the worker down.
func (p *Pool) run(id int, job Job) {
	p.active.Add(1)
	defer p.active.Add(-1)

	defer func() {
		if r := recover(); r != nil {
			Logger.Errorf("worker %d recovered from panic in job: %v", id, r)
		}
	}()

	job()
}
