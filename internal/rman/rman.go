// Package rman implements the Resource Manager: an ordered,
// non-overlapping list of address-range resources supporting region
// donation, alignment-aware placement ("reserve"), activation
// bookkeeping, and release-time coalescing. It is a direct port of the
// algorithm in FreeBSD/Mimiker's sys/kern/rman.c, expressed with a
// container/list.List instead of a hand-rolled TAILQ and guarded by a
// single mutex instead of a kernel sleep-mutex.
package rman

import (
	"bytes"
	"container/list"
	"fmt"
	"strings"
	"sync"

	"github.com/go-kresource/kresource/internal/constants"
	"github.com/go-kresource/kresource/internal/heap"
	"github.com/go-kresource/kresource/internal/kerr"
)

// Flag records a Resource's reservation state plus any opaque bits a
// caller attached at Reserve time. Bits 0-1 are owned by this package;
// callers are free to use bits 2 and up for their own bookkeeping, and
// Reserve preserves them verbatim.
type Flag uint32

const (
	Reserved Flag = 1 << iota
	Active
)

func (f Flag) String() string {
	var parts []string
	if f&Reserved != 0 {
		parts = append(parts, "RESERVED")
	}
	if f&Active != 0 {
		parts = append(parts, "ACTIVE")
	}
	if extra := f &^ (Reserved | Active); extra != 0 {
		parts = append(parts, fmt.Sprintf("EXTRA(%#x)", uint32(extra)))
	}
	if len(parts) == 0 {
		return "FREE"
	}
	return strings.Join(parts, "|")
}

// Resource is one entry in a Manager's ordered address range. A
// freshly-donated Resource is unreserved (free); Reserve carves
// reserved Resources out of free space, and Release returns them,
// coalescing with free neighbors.
type Resource struct {
	start, end uint64
	flags      Flag
	clientTag  string

	rman *Manager
	elem *list.Element // this Resource's node in rman.resources; nil once released from a split-away existence
}

// Start returns the resource's first address.
func (r *Resource) Start() uint64 { return r.start }

// End returns the resource's last address (inclusive).
func (r *Resource) End() uint64 { return r.end }

// Size returns End-Start+1.
func (r *Resource) Size() uint64 { return r.end - r.start + 1 }

// Flags returns the resource's current flag bits.
func (r *Resource) Flags() Flag { return r.flags }

// ClientTag returns the caller-supplied label attached at Reserve time.
func (r *Resource) ClientTag() string { return r.clientTag }

// IsReserved reports whether the resource is currently carved out.
func (r *Resource) IsReserved() bool { return r.flags&Reserved != 0 }

// IsActive reports whether the resource is currently activated.
func (r *Resource) IsActive() bool { return r.flags&Active != 0 }

func (r *Resource) String() string {
	return fmt.Sprintf("[%#x,%#x] flags=%s tag=%q", r.start, r.end, r.flags, r.clientTag)
}

// Manager owns one ordered, non-overlapping sequence of Resources over
// a linear address space (an MMIO window, a port-I/O range, a DMA
// channel space, an IRQ number space — the caller picks the meaning).
type Manager struct {
	mu        sync.Mutex
	name      string
	resources *list.List // of *Resource, strictly increasing, non-overlapping
}

// NewManager returns an empty manager identified by name (used only
// for diagnostics).
func NewManager(name string) *Manager {
	return &Manager{name: name, resources: list.New()}
}

// NewManagerFromResource creates a manager whose sole managed region
// is the span of an already-reserved Resource owned by a parent
// Manager — e.g. a bus driver donating one of its own windows to a
// child bus's resource manager.
func NewManagerFromResource(name string, r *Resource) *Manager {
	m := NewManager(name)
	m.ManageRegion(r.start, r.Size())
	return m
}

// Name returns the manager's diagnostic label.
func (m *Manager) Name() string { return m.name }

func overlaps(a, b *Resource) bool {
	return a.start <= b.end && a.end >= b.start
}

// canMergeFree reports whether a directly precedes b (a.end+1 ==
// b.start). It does not look at reservation state; callers check that.
func canMergeFree(a, b *Resource) bool {
	return a.end+1 == b.start
}

// ManageRegion donates [start, start+size-1] to the manager. It panics
// if the region is empty, overflows the address space, or overlaps an
// already-managed region — these are all programmer errors (a static
// wiring mistake), never a runtime condition a caller should recover
// from, mirroring rman_manage_region's KASSERT-guarded contract.
func (m *Manager) ManageRegion(start, size uint64) {
	if size == 0 {
		panic(kerr.New("MANAGE_REGION", kerr.CodeInvalidAlignment, "region size must be non-zero"))
	}
	end := start + size - 1
	if end < start {
		panic(kerr.New("MANAGE_REGION", kerr.CodeOverlap, "region overflows the address space"))
	}
	r := &Resource{start: start, end: end, rman: m}

	m.mu.Lock()
	defer m.mu.Unlock()

	var cur *list.Element
	for e := m.resources.Front(); e != nil; e = e.Next() {
		c := e.Value.(*Resource)
		if c.end == constants.AddrMax || c.end+1 >= r.start {
			cur = e
			break
		}
	}

	if cur == nil {
		r.elem = m.resources.PushBack(r)
		return
	}

	curRes := cur.Value.(*Resource)
	if overlaps(curRes, r) {
		panic(kerr.New("MANAGE_REGION", kerr.CodeOverlap,
			fmt.Sprintf("region %s overlaps existing %s", r, curRes)))
	}

	next := cur.Next()
	var nextRes *Resource
	if next != nil {
		nextRes = next.Value.(*Resource)
		if overlaps(nextRes, r) {
			panic(kerr.New("MANAGE_REGION", kerr.CodeOverlap,
				fmt.Sprintf("region %s overlaps existing %s", r, nextRes)))
		}
		if nextRes.IsReserved() || !canMergeFree(r, nextRes) {
			next, nextRes = nil, nil
		}
	}

	switch {
	case curRes.end != constants.AddrMax && !curRes.IsReserved() && canMergeFree(curRes, r):
		if next != nil {
			curRes.end = nextRes.end
			m.resources.Remove(next)
		} else {
			curRes.end = r.end
		}
	case next != nil:
		nextRes.start = r.start
	case curRes.end < r.start:
		r.elem = m.resources.InsertAfter(r, cur)
	default:
		r.elem = m.resources.InsertBefore(r, cur)
	}
}

func isPowerOfTwo(x uint64) bool { return x != 0 && x&(x-1) == 0 }

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func roundUp(x, alignment uint64) uint64 {
	return (x + alignment - 1) &^ (alignment - 1)
}

// Reserve carves a reserved Resource of exactly count addresses out of
// the manager's free space, somewhere within [start, end], aligned to
// alignment (which must be a power of two; 0 means "no alignment
// requirement" and is treated as 1). flags' Reserved bit is forced on
// and Active bit forced off; any other bits, plus clientTag, are
// recorded on the returned Resource verbatim. The search is first-fit
// over the ordered free runs, mirroring rman_reserve_resource.
//
// Returns a *kerr.Error with CodeNoPlacement if no free run satisfies
// the constraints; the manager is left unchanged in that case.
func (m *Manager) Reserve(start, end, count, alignment uint64, flags Flag, clientTag string) (*Resource, error) {
	if count == 0 {
		panic(kerr.New("RESERVE", kerr.CodeInvalidAlignment, "count must be non-zero"))
	}
	if alignment == 0 {
		alignment = 1
	}
	if !isPowerOfTwo(alignment) {
		return nil, kerr.New("RESERVE", kerr.CodeInvalidAlignment,
			fmt.Sprintf("alignment %d is not a power of two", alignment))
	}
	if start+count-1 < start || start+count-1 > end {
		return nil, kerr.New("RESERVE", kerr.CodeNoPlacement,
			"requested span overflows or exceeds the search window")
	}

	flags &^= Active
	flags |= Reserved

	m.mu.Lock()
	defer m.mu.Unlock()

	for e := m.resources.Front(); e != nil; e = e.Next() {
		r := e.Value.(*Resource)

		if r.end < start+count-1 {
			continue
		}
		if r.IsReserved() {
			continue
		}
		if r.start > end {
			break
		}
		if room := end - r.start + 1; count > room {
			break
		}
		if r.start > constants.AddrMax-alignment+1 {
			break
		}

		newStart := roundUp(maxU64(r.start, start), alignment)
		if newStart < r.start || newStart < start {
			break // roundUp overflowed
		}
		newEnd := newStart + count - 1
		if newEnd < newStart {
			break // overflow
		}
		if newEnd > r.end {
			continue
		}
		if newEnd > end {
			break
		}

		var out *Resource
		if r.start == newStart && r.end == newEnd {
			r.flags = flags
			r.clientTag = clientTag
			out = r
		} else {
			out = m.split(e, newStart, newEnd, flags, clientTag)
		}
		return out, nil
	}

	return nil, kerr.New("RESERVE", kerr.CodeNoPlacement,
		fmt.Sprintf("no free run of %d addresses (alignment %d) in [%#x,%#x]", count, alignment, start, end))
}

// split carves [newStart, newEnd] (a sub-range of the free resource at
// e, which must be held under m.mu) into its own reserved Resource,
// leaving up to two free remainder Resources in its place.
//
// A real kernel's equivalent (rman_split) performs up to two M_NOWAIT
// allocations here and must unwind cleanly if either fails. Ordinary
// Go heap allocation has no analogous recoverable failure mode (it
// panics the process on exhaustion rather than returning an error), so
// that failure path has no reachable equivalent on this platform and
// split always succeeds.
func (m *Manager) split(e *list.Element, newStart, newEnd uint64, flags Flag, clientTag string) *Resource {
	r := e.Value.(*Resource)
	out := &Resource{start: newStart, end: newEnd, flags: flags, clientTag: clientTag, rman: m}

	switch {
	case r.start < newStart && r.end > newEnd:
		// Splits into three: [r.start, newStart-1], out, [newEnd+1, r.end].
		tail := &Resource{start: newEnd + 1, end: r.end, flags: r.flags, clientTag: r.clientTag, rman: m}
		r.end = newStart - 1
		out.elem = m.resources.InsertAfter(out, e)
		tail.elem = m.resources.InsertAfter(tail, out.elem)
	case r.start == newStart:
		// out takes the head; r keeps the tail remainder.
		r.start = newEnd + 1
		out.elem = m.resources.InsertBefore(out, e)
	default:
		// r.end == newEnd: out takes the tail; r keeps the head remainder.
		r.end = newStart - 1
		out.elem = m.resources.InsertAfter(out, e)
	}
	return out
}

// Activate marks r as actively in use by its owner.
func (m *Manager) Activate(r *Resource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.flags |= Active
}

// Deactivate clears r's active bit without releasing the reservation.
func (m *Manager) Deactivate(r *Resource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.flags &^= Active
}

// Release returns a reserved Resource to the free pool, coalescing it
// with adjacent free neighbors. It panics if r is still Active — the
// caller must Deactivate first, mirroring rman_release_resource's
// assertion that an active resource cannot be released out from under
// its user.
func (m *Manager) Release(r *Resource) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.IsActive() {
		panic(kerr.New("RELEASE", kerr.CodeStillActive, fmt.Sprintf("resource %s is still active", r)))
	}
	if r.elem == nil || r.rman != m {
		panic(kerr.New("RELEASE", kerr.CodeHandlerDetached, "resource does not belong to this manager"))
	}

	e := r.elem
	var prev, next *list.Element

	if pe := e.Prev(); pe != nil {
		pr := pe.Value.(*Resource)
		if !pr.IsReserved() && pr.end+1 == r.start {
			prev = pe
		}
	}
	if ne := e.Next(); ne != nil {
		nr := ne.Value.(*Resource)
		if !nr.IsReserved() && r.end+1 == nr.start {
			next = ne
		}
	}

	switch {
	case prev != nil && next != nil:
		pr, nr := prev.Value.(*Resource), next.Value.(*Resource)
		pr.end = nr.end
		m.resources.Remove(next)
		m.resources.Remove(e)
	case prev != nil:
		pr := prev.Value.(*Resource)
		pr.end = r.end
		m.resources.Remove(e)
	case next != nil:
		nr := next.Value.(*Resource)
		nr.start = r.start
		m.resources.Remove(e)
	default:
		r.flags &^= Reserved
		r.clientTag = ""
		return
	}
	r.elem = nil
	r.rman = nil
}

// Fini tears down the manager. It panics if any managed resource is
// still reserved, mirroring rman_fini's contract that a resource
// manager cannot be destroyed out from under live reservations.
func (m *Manager) Fini() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for e := m.resources.Front(); e != nil; e = e.Next() {
		r := e.Value.(*Resource)
		if r.IsReserved() {
			panic(kerr.New("FINI", kerr.CodeNotEmpty, fmt.Sprintf("resource %s is still reserved", r)))
		}
	}
	for e := m.resources.Front(); e != nil; {
		next := e.Next()
		r := e.Value.(*Resource)
		r.elem, r.rman = nil, nil
		m.resources.Remove(e)
		e = next
	}
}

// Resources returns a snapshot slice of every Resource currently
// tracked by the manager, in address order.
func (m *Manager) Resources() []*Resource {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Resource, 0, m.resources.Len())
	for e := m.resources.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*Resource))
	}
	return out
}

// Dump renders the manager's current resource list for diagnostics. It
// borrows its scratch buffer from internal/heap to avoid a hot-path
// allocation, the same rationale behind the teacher's pooled I/O
// buffers.
func (m *Manager) Dump() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	scratch := heap.Alloc("M_RMAN_DUMP", 256, heap.Zero)
	defer heap.Free("M_RMAN_DUMP", scratch)

	buf := bytes.NewBuffer(scratch[:0])
	fmt.Fprintf(buf, "rman %q:\n", m.name)
	for e := m.resources.Front(); e != nil; e = e.Next() {
		fmt.Fprintf(buf, "  %s\n", e.Value.(*Resource))
	}
	return buf.String()
}
