package kresource

import (
	"context"

	"github.com/go-kresource/kresource/internal/intr"
)

// FilterResult is the outcome of a Handler's in-context filter stage.
type FilterResult = intr.FilterResult

const (
	// Filtered means the handler fully serviced the interrupt in
	// context; no deferred work is needed.
	Filtered = intr.Filtered
	// Delegate means the handler recognized the interrupt but needs its
	// Service function run later on the worker goroutine.
	Delegate = intr.Delegate
	// None means the handler does not recognize this interrupt.
	None = intr.None
)

// FilterFunc runs in the top half, with the source masked for the
// duration of the surrounding IntrDisable/IntrEnable span. It must not
// block.
type FilterFunc = intr.FilterFunc

// ServiceFunc runs on the worker goroutine, outside interrupt masking,
// and may block.
type ServiceFunc = intr.ServiceFunc

// Handler is one (Filter, Service) pair registered against an Event. A
// Handler with a nil Filter always delegates straight to Service.
type Handler = intr.Handler

// LockedEvent is the restricted view of an Event passed to a
// Controller's Enable/Disable callbacks, which are always invoked with
// the owning Event's internal lock held.
type LockedEvent = intr.LockedEvent

// EnableFunc and DisableFunc (re-)arm and mask an interrupt source.
type (
	EnableFunc  = intr.EnableFunc
	DisableFunc = intr.DisableFunc
)

// EventStats is a point-in-time snapshot of an Event's dispatch
// counters.
type EventStats = intr.EventStats

// Event is one interrupt source: a priority-ordered handler list plus
// the enable/disable callbacks that mask and unmask it at the
// controller.
type Event struct {
	inner *intr.Event
}

// IRQ returns the event's interrupt number.
func (e *Event) IRQ() uint32 { return e.inner.IRQ() }

// Stats returns a snapshot of the event's dispatch counters.
func (e *Event) Stats() EventStats { return e.inner.Stats() }

// AddHandler inserts h into the event's priority-ordered list
// (descending priority, FIFO among equal priorities). Panics (with a
// *Error, ErrCodeNoService) if h has neither a Filter nor a Service.
func (e *Event) AddHandler(h *Handler) { e.inner.AddHandler(h) }

// RemoveHandler detaches h from the event. Returns a *Error with
// ErrCodeHandlerDetached if h is not currently attached.
func (e *Event) RemoveHandler(h *Handler) error { return e.inner.RemoveHandler(h) }

// Dump renders the event's handler list and counters for diagnostics.
func (e *Event) Dump() string { return e.inner.Dump() }

// RunHandlers is the top-half dispatch entry point for ev: it disables
// CPU-interrupt delivery for the duration of the call via guard,
// filters ev's handlers in priority order, and hands any Delegate (or
// nil-Filter) handlers to worker's deferred queue.
func RunHandlers(ctx context.Context, guard *InterruptGuard, ev *Event, worker *Worker) {
	ctx = IntrDisable(ctx, guard)
	defer IntrEnable(ctx, guard)
	intr.RunHandlers(ctx, ev.inner, worker.queue)
}
