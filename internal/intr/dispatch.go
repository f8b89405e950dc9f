package intr

import (
	"container/list"
	"context"
	"fmt"

	"github.com/go-kresource/kresource/internal/kerr"
)

// deferredItem is one Handler queued for its Service stage, paired
// with the Event it was delegated from (needed to re-arm masking once
// service completes).
type deferredItem struct {
	handler *Handler
	event   *Event
}

// RunHandlers is the top-half dispatch entry point: it walks ev's
// handler list in priority order, running each Filter in context. A
// Delegate result (or a nil Filter, treated as always-delegate)
// unlinks the handler from ev's list — it is absent from the list for
// the duration of its deferred service, per the IE invariant that a
// delegated handler's attached count is decremented until the worker
// re-inserts it — and pushes it onto queue for the worker goroutine.
// disable is called exactly once, on any delegation during this
// dispatch.
//
// RunHandlers performs no locking of its own beyond ev.mu — the
// caller is expected to already hold guard for the duration of the
// call, matching the "CPU interrupts disabled" invariant real
// hardware would provide the top half for free.
func RunHandlers(ctx context.Context, ev *Event, queue *DeferredQueue) {
	ev.mu.Lock()
	defer ev.mu.Unlock()

	if ev.handlers.Len() == 0 {
		ev.stats.spurious.Add(1)
		if ev.observer != nil {
			ev.observer.ObserveDispatch(ev.irq, false, false, true)
		}
		return
	}

	ev.stats.dispatches.Add(1)
	handled := false
	delegatedAny := false

	for el := ev.handlers.Front(); el != nil; {
		next := el.Next() // captured before a possible Remove clears el's links
		h := el.Value.(*Handler)

		if h.Filter == nil {
			delegate(ev, el, h, queue)
			handled = true
			delegatedAny = true
			el = next
			continue
		}

		switch h.Filter(ctx) {
		case Filtered:
			handled = true
			ev.stats.filtered.Add(1)
		case Delegate:
			delegate(ev, el, h, queue)
			handled = true
			delegatedAny = true
		case None:
		}
		el = next
	}

	if !handled {
		ev.stats.spurious.Add(1)
	}
	if ev.observer != nil {
		ev.observer.ObserveDispatch(ev.irq, handled && !delegatedAny, delegatedAny, !handled)
	}

	// Mask the source on any delegation, not only when every handler
	// delegated: a filter-serviced handler's work is already done by
	// the time we'd decide whether to mask, so there is nothing left
	// for the source to re-signal about except the delegated handler's
	// condition, which disable is specifically there to quiet.
	if delegatedAny && ev.disable != nil {
		ev.disable(&LockedEvent{ev})
	}
}

// delegate unlinks h from ev's handler list and hands it to queue for
// deferred service. Called with ev.mu held. Panics with
// kerr.CodeNoService if h has no Service function — a filter (or a
// nil filter) that delegates with nothing to run on the worker is a
// programmer error, not a recoverable condition.
func delegate(ev *Event, el *list.Element, h *Handler, queue *DeferredQueue) {
	if h.Service == nil {
		panic(kerr.New("RUN_HANDLERS", kerr.CodeNoService,
			fmt.Sprintf("handler %q delegated with no service function", h.Name)))
	}
	ev.handlers.Remove(el)
	h.elem = nil
	ev.stats.delegated.Add(1)
	queue.push(deferredItem{handler: h, event: ev})
}
