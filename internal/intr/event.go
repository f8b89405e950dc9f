// Package intr implements the two-stage interrupt dispatch engine: a
// priority-ordered list of Handlers per interrupt source (Event), an
// in-context filter stage, and a worker-goroutine-deferred service
// stage, modeled on Mimiker's sys/kern/intr.c ithread design.
package intr

import (
	"container/list"
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/go-kresource/kresource/internal/interfaces"
	"github.com/go-kresource/kresource/internal/kerr"
)

// FilterResult is the outcome of a Handler's in-context filter stage.
type FilterResult int

const (
	// Filtered means the handler fully serviced the condition in
	// context; no deferred work is needed.
	Filtered FilterResult = iota
	// Delegate means the handler recognized the condition but needs its
	// Service function run later on the worker goroutine.
	Delegate
	// None means the handler does not recognize this condition at all.
	None
)

func (r FilterResult) String() string {
	switch r {
	case Filtered:
		return "FILTERED"
	case Delegate:
		return "DELEGATE"
	case None:
		return "NONE"
	default:
		return fmt.Sprintf("FilterResult(%d)", int(r))
	}
}

// FilterFunc runs in the top-half dispatch, with the source's
// interrupt masked for the CPU-wide InterruptGuard duration. It must
// not block.
type FilterFunc func(ctx context.Context) FilterResult

// ServiceFunc runs on the worker goroutine, outside of any interrupt
// masking, and may block.
type ServiceFunc func(ctx context.Context)

// EnableFunc and DisableFunc (re-)arm and mask the underlying
// interrupt source. They receive a *LockedEvent because the dispatch
// engine always calls them with the owning Event's mutex held.
type (
	EnableFunc  func(*LockedEvent)
	DisableFunc func(*LockedEvent)
)

// Handler is one (Filter, Service) pair registered against an Event, a
// FreeBSD-style "resource + interrupt handler" entry. A Handler with a
// nil Filter is treated as always-delegate: every dispatch defers
// straight to Service, mirroring an ithread-only (non-MPSAFE-filter)
// driver.
type Handler struct {
	Name     string
	Priority int
	Filter   FilterFunc
	Service  ServiceFunc

	event *Event
	elem  *list.Element
}

// eventStats are the atomic per-Event dispatch counters exposed by
// Event.Stats().
type eventStats struct {
	dispatches atomic.Uint64
	filtered   atomic.Uint64
	delegated  atomic.Uint64
	spurious   atomic.Uint64
}

// EventStats is a point-in-time snapshot of an Event's counters.
type EventStats struct {
	Dispatches uint64
	Filtered   uint64
	Delegated  uint64
	Spurious   uint64
}

// Event is one interrupt source: an ordered handler list plus the
// enable/disable callbacks that mask and unmask it at the controller.
type Event struct {
	mu       sync.Mutex
	irq      uint32
	handlers *list.List // of *Handler, descending Priority, FIFO within a priority
	enable   EnableFunc
	disable  DisableFunc
	observer interfaces.Observer

	stats eventStats
}

// LockedEvent is the restricted view of an Event passed to
// enable/disable callbacks. The dispatch engine always calls them with
// Event.mu already held, so LockedEvent exposes read-only
// introspection rather than methods that would re-lock and deadlock.
type LockedEvent struct {
	e *Event
}

// IRQ returns the owning event's interrupt number.
func (l *LockedEvent) IRQ() uint32 { return l.e.irq }

// HandlerCount returns the number of handlers currently in the event's
// list. Handlers that were delegated and are waiting on or running in
// the deferred queue are not counted until the worker re-inserts them.
func (l *LockedEvent) HandlerCount() int { return l.e.handlers.Len() }

// NewEvent constructs an Event for irq. enable/disable may be nil for
// a source with no real masking (e.g. a software-only IRQ used in
// tests).
func NewEvent(irq uint32, enable EnableFunc, disable DisableFunc, observer interfaces.Observer) *Event {
	return &Event{
		irq:      irq,
		handlers: list.New(),
		enable:   enable,
		disable:  disable,
		observer: observer,
	}
}

// IRQ returns the event's interrupt number.
func (e *Event) IRQ() uint32 { return e.irq }

// Stats returns a snapshot of the event's dispatch counters.
func (e *Event) Stats() EventStats {
	return EventStats{
		Dispatches: e.stats.dispatches.Load(),
		Filtered:   e.stats.filtered.Load(),
		Delegated:  e.stats.delegated.Load(),
		Spurious:   e.stats.spurious.Load(),
	}
}

// insertLocked inserts h into the handler list in priority order
// (descending priority, FIFO among equal priorities). Caller must hold
// e.mu. Shared between AddHandler and the worker's post-service
// re-insertion, mirroring the original's single insert_handler helper
// used by both intr_event_add_handler and intr_thread.
func (e *Event) insertLocked(h *Handler) {
	var mark *list.Element
	for el := e.handlers.Front(); el != nil; el = el.Next() {
		if el.Value.(*Handler).Priority < h.Priority {
			mark = el
			break
		}
	}
	if mark != nil {
		h.elem = e.handlers.InsertBefore(h, mark)
	} else {
		h.elem = e.handlers.PushBack(h)
	}
	h.event = e
}

// AddHandler inserts h into the event's priority-ordered list
// (descending priority, FIFO among equal priorities) and calls enable
// if this is the event's first handler.
func (e *Event) AddHandler(h *Handler) {
	if h.Filter == nil && h.Service == nil {
		panic(kerr.New("ADD_HANDLER", kerr.CodeNoService,
			fmt.Sprintf("handler %q has neither a filter nor a service function", h.Name)))
	}
	if h.Name == "" {
		h.Name = fmt.Sprintf("h%p", h)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	wasEmpty := e.handlers.Len() == 0
	e.insertLocked(h)

	if wasEmpty && e.enable != nil {
		e.enable(&LockedEvent{e})
	}
}

// RemoveHandler detaches h from the event, calling disable if it was
// the last handler. Returns a *kerr.Error with CodeHandlerDetached if
// h is not currently attached to this event.
func (e *Event) RemoveHandler(h *Handler) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if h.event != e || h.elem == nil {
		return kerr.New("REMOVE_HANDLER", kerr.CodeHandlerDetached,
			fmt.Sprintf("handler %q is not attached to irq %d", h.Name, e.irq))
	}

	e.handlers.Remove(h.elem)
	h.elem, h.event = nil, nil

	if e.handlers.Len() == 0 && e.disable != nil {
		e.disable(&LockedEvent{e})
	}
	return nil
}

// Dump renders the handler list for diagnostics.
func (e *Event) Dump() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.stats
	out := fmt.Sprintf("irq %d: dispatches=%d filtered=%d delegated=%d spurious=%d attached=%d\n",
		e.irq, s.dispatches.Load(), s.filtered.Load(), s.delegated.Load(), s.spurious.Load(), e.handlers.Len())
	for el := e.handlers.Front(); el != nil; el = el.Next() {
		h := el.Value.(*Handler)
		out += fmt.Sprintf("  %-20s priority=%d filter=%v\n", h.Name, h.Priority, h.Filter != nil)
	}
	return out
}

// Registry tracks every Event by IRQ number, the external entry point
// a platform layer uses to establish and look up interrupt sources.
type Registry struct {
	mu     sync.Mutex
	events map[uint32]*Event
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{events: make(map[uint32]*Event)}
}

// Establish creates and registers a new Event for irq. It panics if
// irq is already established, mirroring the kernel's "double intr_event
// registration" programmer error.
func (r *Registry) Establish(irq uint32, enable EnableFunc, disable DisableFunc, observer interfaces.Observer) *Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.events[irq]; exists {
		panic(kerr.New("ESTABLISH", kerr.CodeOverlap, fmt.Sprintf("irq %d already has an event", irq)))
	}
	ev := NewEvent(irq, enable, disable, observer)
	r.events[irq] = ev
	return ev
}

// Lookup returns the Event for irq, if any.
func (r *Registry) Lookup(irq uint32) (*Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev, ok := r.events[irq]
	return ev, ok
}

// Remove drops irq's Event from the registry entirely.
func (r *Registry) Remove(irq uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.events, irq)
}

// Dump renders every registered event for diagnostics.
func (r *Registry) Dump() string {
	r.mu.Lock()
	irqs := make([]uint32, 0, len(r.events))
	for irq := range r.events {
		irqs = append(irqs, irq)
	}
	events := make([]*Event, 0, len(irqs))
	sort.Slice(irqs, func(i, j int) bool { return irqs[i] < irqs[j] })
	for _, irq := range irqs {
		events = append(events, r.events[irq])
	}
	r.mu.Unlock()

	out := ""
	for _, ev := range events {
		out += ev.Dump()
	}
	return out
}
