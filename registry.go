package kresource

import "github.com/go-kresource/kresource/internal/intr"

// Registry tracks every Event by IRQ number; it is the entry point a
// platform layer uses to establish and look up interrupt sources.
type Registry struct {
	inner *intr.Registry
	opts  Options
}

// NewRegistry returns an empty registry sharing opts across every
// Event it establishes.
func NewRegistry(opts Options) *Registry {
	return &Registry{inner: intr.NewRegistry(), opts: opts}
}

// Establish creates and registers a new Event for irq, wiring opts'
// Observer in as the event's dispatch/latency sink. Panics (with a
// *Error, ErrCodeOverlap) if irq is already established.
func (r *Registry) Establish(irq uint32, enable EnableFunc, disable DisableFunc) *Event {
	ev := r.inner.Establish(irq, enable, disable, r.opts.Observer)
	return &Event{inner: ev}
}

// Lookup returns the Event for irq, if any.
func (r *Registry) Lookup(irq uint32) (*Event, bool) {
	ev, ok := r.inner.Lookup(irq)
	if !ok {
		return nil, false
	}
	return &Event{inner: ev}, true
}

// Remove drops irq's Event from the registry entirely.
func (r *Registry) Remove(irq uint32) { r.inner.Remove(irq) }

// Dump renders every registered event for diagnostics.
func (r *Registry) Dump() string { return r.inner.Dump() }
