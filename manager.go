package kresource

import "github.com/go-kresource/kresource/internal/rman"

// ResourceFlags records a Resource's reservation state plus any
// caller-defined opaque bits. Bits 0-1 (FlagReserved, FlagActive) are
// owned by the Manager; Reserve forces them to the correct state
// regardless of what a caller passes in. Callers may use bit 2 and up
// for their own bookkeeping (e.g. tagging a reservation by driver
// class); Reserve preserves those bits verbatim.
type ResourceFlags = rman.Flag

const (
	FlagReserved = rman.Reserved
	FlagActive   = rman.Active
)

// Resource is one reserved or free span of a Manager's address space.
type Resource struct {
	inner *rman.Resource
	mgr   *Manager
}

// Start returns the resource's first address.
func (r *Resource) Start() uint64 { return r.inner.Start() }

// End returns the resource's last address, inclusive.
func (r *Resource) End() uint64 { return r.inner.End() }

// Size returns End-Start+1.
func (r *Resource) Size() uint64 { return r.inner.Size() }

// Flags returns the resource's current flag bits.
func (r *Resource) Flags() ResourceFlags { return r.inner.Flags() }

// ClientTag returns the caller-supplied label attached at Reserve time.
func (r *Resource) ClientTag() string { return r.inner.ClientTag() }

// IsReserved reports whether the resource is currently carved out.
func (r *Resource) IsReserved() bool { return r.inner.IsReserved() }

// IsActive reports whether the resource is currently activated.
func (r *Resource) IsActive() bool { return r.inner.IsActive() }

func (r *Resource) String() string { return r.inner.String() }

// Activate marks the resource as actively in use by its owner.
func (r *Resource) Activate() {
	r.mgr.inner.Activate(r.inner)
}

// Deactivate clears the resource's active bit without releasing it.
func (r *Resource) Deactivate() {
	r.mgr.inner.Deactivate(r.inner)
}

// Release returns the resource to its manager's free pool, coalescing
// with adjacent free neighbors. Panics if the resource is still
// active (*Error with ErrCodeStillActive).
func (r *Resource) Release() {
	r.mgr.inner.Release(r.inner)
	r.mgr.metrics.ReleasesTotal.Add(1)
}

// Manager owns one ordered, non-overlapping sequence of address-range
// Resources — an MMIO window, a port-I/O range, a DMA channel space,
// or an IRQ number space, depending on what the caller donates to it.
type Manager struct {
	inner   *rman.Manager
	metrics *Metrics
}

// NewManager returns an empty manager identified by name (used only
// for diagnostics), recording counters against opts.Observer's
// underlying Metrics if one was supplied, or a fresh private Metrics
// otherwise.
func NewManager(name string, opts Options) *Manager {
	m, ok := opts.Observer.(*Metrics)
	if !ok || m == nil {
		m = NewMetrics()
	}
	return &Manager{inner: rman.NewManager(name), metrics: m}
}

// Name returns the manager's diagnostic label.
func (m *Manager) Name() string { return m.inner.Name() }

// Metrics returns the manager's metrics collector.
func (m *Manager) Metrics() *Metrics { return m.metrics }

// ManageRegion donates [start, start+size-1] to the manager. Panics
// (with a *Error) if the region is empty, overflows the address
// space, or overlaps an already-managed region.
func (m *Manager) ManageRegion(start, size uint64) {
	m.inner.ManageRegion(start, size)
	m.metrics.RegionsManaged.Add(1)
}

// NewManagerFromResource creates a manager whose sole managed region
// is the span of an already-reserved Resource owned by a parent
// Manager, e.g. a bus driver donating one of its windows to a child
// bus's resource manager.
func NewManagerFromResource(name string, r *Resource) *Manager {
	return &Manager{
		inner:   rman.NewManagerFromResource(name, r.inner),
		metrics: r.mgr.metrics,
	}
}

// Reserve carves a reserved Resource of exactly count addresses out of
// the manager's free space, somewhere within [start, end], aligned to
// alignment (a power of two; 0 means "no constraint"). flags' opaque
// bits and clientTag are recorded on the returned Resource verbatim.
//
// Returns a *Error with ErrCodeNoPlacement if no free run satisfies
// the constraints, leaving the manager unchanged.
func (m *Manager) Reserve(start, end, count, alignment uint64, flags ResourceFlags, clientTag string) (*Resource, error) {
	r, err := m.inner.Reserve(start, end, count, alignment, flags, clientTag)
	if err != nil {
		m.metrics.ReservationFailures.Add(1)
		return nil, err
	}
	m.metrics.ReservationsTotal.Add(1)
	return &Resource{inner: r, mgr: m}, nil
}

// Resources returns a snapshot of every Resource currently tracked by
// the manager, in address order.
func (m *Manager) Resources() []*Resource {
	inner := m.inner.Resources()
	out := make([]*Resource, len(inner))
	for i, r := range inner {
		out[i] = &Resource{inner: r, mgr: m}
	}
	return out
}

// Dump renders the manager's current resource list for diagnostics.
func (m *Manager) Dump() string { return m.inner.Dump() }

// Fini tears down the manager. Panics (with a *Error, ErrCodeNotEmpty)
// if any managed resource is still reserved.
func (m *Manager) Fini() { m.inner.Fini() }
