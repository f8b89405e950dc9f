package kresource

import (
	"context"

	"github.com/go-kresource/kresource/internal/intr"
)

// WorkerOptions configures the single Worker goroutine that drains
// delegated handlers and runs their Service functions.
type WorkerOptions = intr.WorkerOptions

// DefaultWorkerOptions returns the package defaults.
func DefaultWorkerOptions() WorkerOptions { return intr.DefaultWorkerOptions() }

// Worker is the single long-lived goroutine that runs every delegated
// Handler's Service function and re-arms its source Event once done.
type Worker struct {
	queue *intr.DeferredQueue
	inner *intr.Worker
}

// NewWorker returns a Worker ready to Run, with its own deferred queue.
// RunHandlers hands delegated handlers of any Event to the queue of the
// Worker it is given; the Worker need not come from any Registry.
func NewWorker(opts Options) *Worker {
	queue := intr.NewDeferredQueue(opts.Worker.QueueCapacity)
	return &Worker{
		queue: queue,
		inner: intr.NewWorker(queue, opts.Logger, opts.Worker),
	}
}

// Run blocks, draining delegated handlers and running their Service
// functions, until ctx is canceled. Meant to be launched in its own
// goroutine for the lifetime of the process.
func (w *Worker) Run(ctx context.Context) { w.inner.Run(ctx) }
