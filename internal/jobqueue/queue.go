// Package jobqueue implements the microtask queue promise reactions and
// native-async integration run through: a FIFO of synchronous jobs drained
// to completion, and a coarser set of async jobs a host event loop polls
// one at a time, draining the synchronous queue between each poll.
//
// Per the engine's single-threaded cooperative scheduling model, a Queue
// is owned by exactly one goroutine at a time and needs no internal
// locking — the same reasoning internal/gc's Heap documents for its own
// unlocked fields.
package jobqueue

import (
	"container/list"
	"context"
	"errors"
)

// ErrQueueFull is returned by Enqueue/EnqueueAsync once the combined
// pending job count has reached the queue's configured capacity — a
// backpressure signal for a host whose own event loop is enqueueing
// native-async work faster than this realm is draining it (e.g. via
// internal/config's ECMACORE_JOB_QUEUE_CAPACITY). Capacity 0 (the
// default) means unbounded; this never fires.
var ErrQueueFull = errors.New("jobqueue: capacity exceeded")

// Job is a closure-plus-realm descriptor the queue invokes later — a
// promise reaction, a `finally` cleanup, or the sync half of a settled
// async job.
type Job func() error

// AsyncWait blocks until a native future settles, returning the sync Job
// that should deliver its result (nil if the future needed no follow-up).
// It must respect ctx cancellation.
type AsyncWait func(ctx context.Context) (Job, error)

// Queue holds the two job lists spec's job-queue contract describes:
// synchronous jobs (promise reactions, cleanup callbacks) and asynchronous
// jobs (native futures awaiting host events). Both are plain FIFOs;
// list.List over a slice avoids the O(n) reslice DrainSync would
// otherwise do on every single job it pops.
type Queue struct {
	sync     *list.List
	async    *list.List
	capacity int
}

func New() *Queue {
	return &Queue{sync: list.New(), async: list.New()}
}

// SetCapacity bounds the combined number of pending sync+async jobs;
// n <= 0 means unbounded (the default). Lowering it below the current
// pending count does not evict already-queued jobs, only future Enqueue/
// EnqueueAsync calls are affected.
func (q *Queue) SetCapacity(n int) { q.capacity = n }

func (q *Queue) full() bool {
	return q.capacity > 0 && q.sync.Len()+q.async.Len() >= q.capacity
}

// Enqueue appends a synchronous job. Never blocks; returns ErrQueueFull
// without enqueueing if the queue is at capacity.
func (q *Queue) Enqueue(job Job) error {
	if job == nil {
		return nil
	}
	if q.full() {
		return ErrQueueFull
	}
	q.sync.PushBack(job)
	return nil
}

// EnqueueAsync registers a native future. Never blocks; returns
// ErrQueueFull without registering if the queue is at capacity.
func (q *Queue) EnqueueAsync(wait AsyncWait) error {
	if wait == nil {
		return nil
	}
	if q.full() {
		return ErrQueueFull
	}
	q.async.PushBack(wait)
	return nil
}

// Pending reports whether either queue still has work, so an embedder's
// driver loop knows when it can stop calling DrainSync/DrainAsync.
func (q *Queue) Pending() bool {
	return q.sync.Len() > 0 || q.async.Len() > 0
}

// DrainSync runs every synchronous job to completion, in FIFO order; a job
// enqueued while this drain is running (a `.then` reaction scheduling
// another `.then` reaction) is appended and runs within this same drain,
// per the ordering guarantee that promise then-chains execute in order.
// It stops and returns the first error any job produces (an uncaught
// exception escaping a promise reaction propagates out exactly like one
// escaping any other VM call).
func (q *Queue) DrainSync() error {
	for q.sync.Len() > 0 {
		front := q.sync.Remove(q.sync.Front()).(Job)
		if err := front(); err != nil {
			return err
		}
	}
	return nil
}

// DrainAsync lets a host integrate this engine with its own event loop
// without blocking it: it polls the async-job set one job at a time,
// draining the full synchronous queue before every poll and again after
// the last async job settles, so an async completion's follow-up sync job
// always runs before the next async job is even looked at. Returns when
// both queues are empty, ctx is cancelled, or a job errors.
func (q *Queue) DrainAsync(ctx context.Context) error {
	for {
		if err := q.DrainSync(); err != nil {
			return err
		}
		if q.async.Len() == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		wait := q.async.Remove(q.async.Front()).(AsyncWait)
		follow, err := wait(ctx)
		if err != nil {
			return err
		}
		// A settled async job's follow-up is a continuation of work
		// already accepted, not new external enqueueing, so it bypasses
		// the capacity check that governs Enqueue/EnqueueAsync.
		if follow != nil {
			q.sync.PushBack(follow)
		}
	}
}
