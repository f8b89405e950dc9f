package intr

import (
	"context"
	"runtime"
	"time"

	"github.com/go-kresource/kresource/internal/constants"
	"github.com/go-kresource/kresource/internal/interfaces"
	"golang.org/x/sys/unix"
)

// WorkerOptions configures the single Worker goroutine that drains
// DeferredQueue and runs Service functions.
type WorkerOptions struct {
	// QueueCapacity sizes the deferred queue's initial backing slice.
	QueueCapacity int
	// NiceDelta is set as the worker's OS thread nice value via
	// unix.Setpriority (an absolute value, not an offset), best effort.
	// Zero leaves the priority unchanged.
	NiceDelta int
}

// DefaultWorkerOptions returns the package defaults.
func DefaultWorkerOptions() WorkerOptions {
	return WorkerOptions{
		QueueCapacity: constants.DefaultDeferredQueueCapacity,
		NiceDelta:     constants.DefaultWorkerNiceDelta,
	}
}

// Worker is the single long-lived goroutine that runs every delegated
// Handler's Service function and re-arms its source Event once done.
// A real kernel gives each interrupt its own ithread; this engine
// deliberately uses one shared worker per spec's "single priority-driven
// worker" model, avoiding per-IRQ goroutine sprawl.
type Worker struct {
	queue *DeferredQueue
	log   interfaces.Logger
	opts  WorkerOptions
}

// NewWorker returns a Worker draining queue.
func NewWorker(queue *DeferredQueue, log interfaces.Logger, opts WorkerOptions) *Worker {
	return &Worker{queue: queue, log: log, opts: opts}
}

// Run pins the calling goroutine to its OS thread, applies the
// configured nice delta, and drains the deferred queue until ctx is
// canceled. It is meant to be launched with `go worker.Run(ctx)` and
// run for the lifetime of the process.
func (w *Worker) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if w.opts.NiceDelta != 0 {
		if err := unix.Setpriority(unix.PRIO_PROCESS, 0, w.opts.NiceDelta); err != nil && w.log != nil {
			w.log.Warnf("intr: worker priority adjust failed: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		w.queue.Close()
		close(done)
	}()

	w.queue.Drain(func(item deferredItem) {
		w.service(ctx, item)
	})
	<-done
}

func (w *Worker) service(ctx context.Context, item deferredItem) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		if r := recover(); r != nil && w.log != nil {
			w.log.Errorf("intr: handler %q panicked in service stage: %v", item.handler.Name, r)
		}
		if item.event.observer != nil {
			item.event.observer.ObserveServiceLatency(item.event.irq, uint64(elapsed.Nanoseconds()))
		}
		w.finish(item)
	}()

	if item.handler.Service != nil {
		item.handler.Service(ctx)
	}
}

// finish re-inserts item's handler into its owning event's
// priority-ordered list (the same algorithm AddHandler uses) and calls
// enable, mirroring the original worker loop's post-service handling:
// a handler is absent from its event's list for the duration of its
// deferred service and present again, in its correct priority
// position, immediately afterward.
func (w *Worker) finish(item deferredItem) {
	ev := item.event
	ev.mu.Lock()
	defer ev.mu.Unlock()
	ev.insertLocked(item.handler)
	if ev.enable != nil {
		ev.enable(&LockedEvent{ev})
	}
}
