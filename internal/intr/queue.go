package intr

import (
	"github.com/go-kresource/kresource/internal/constants"
	"github.com/go-kresource/kresource/internal/sched"
)

// DeferredQueue is the single shared FIFO between every Event's
// top-half dispatch and the one worker goroutine that runs Service
// functions. It is backed by sched.WaitQueue, the sleep-queue
// primitive spec.md's external-collaborator section calls for.
type DeferredQueue struct {
	wq      *sched.WaitQueue
	pending []deferredItem
	closed  bool
}

// NewDeferredQueue returns a ready-to-use queue. capacity only sizes
// the initial backing slice; the queue grows past it under load.
func NewDeferredQueue(capacity int) *DeferredQueue {
	if capacity <= 0 {
		capacity = constants.DefaultDeferredQueueCapacity
	}
	return &DeferredQueue{
		wq:      sched.NewWaitQueue(),
		pending: make([]deferredItem, 0, capacity),
	}
}

// push enqueues item and wakes the worker. Called from the top half
// with ev.mu held; the queue has its own lock, independent of every
// Event's mu, shared by all pushes and by the draining worker.
func (q *DeferredQueue) push(item deferredItem) {
	q.wq.Lock()
	defer q.wq.Unlock()
	q.pending = append(q.pending, item)
	q.wq.Signal()
}

// Close wakes the worker permanently so Drain returns on next wakeup;
// used during shutdown.
func (q *DeferredQueue) Close() {
	q.wq.Lock()
	defer q.wq.Unlock()
	q.closed = true
	q.wq.Broadcast()
}

// Drain blocks the calling goroutine, invoking fn once per queued
// handler in FIFO order, until Close is called. It is meant to be run
// from exactly one long-lived worker goroutine.
func (q *DeferredQueue) Drain(fn func(deferredItem)) {
	q.wq.Lock()
	defer q.wq.Unlock()

	for {
		for len(q.pending) > 0 {
			item := q.pending[0]
			q.pending = q.pending[1:]
			q.wq.Unlock()
			fn(item)
			q.wq.Lock()
		}
		if q.closed {
			return
		}
		q.wq.Wait()
	}
}
