package kresource

import (
	"context"

	"github.com/go-kresource/kresource/internal/sched"
)

// InterruptGuard stands in for "CPU interrupts disabled on this CPU".
// A single process-wide instance should be shared by every Event's
// dispatch in a program, matching the "multi-CPU with global
// big-kernel locking" concurrency model.
type InterruptGuard = sched.InterruptGuard

// IntrDisable nests a per-call-chain counter threaded through ctx and
// acquires guard only at the outermost (0->1) transition. The returned
// context must be passed to the matching IntrEnable.
func IntrDisable(ctx context.Context, guard *InterruptGuard) context.Context {
	return sched.IntrDisable(ctx, guard)
}

// IntrEnable decrements the nesting counter carried by ctx and
// releases guard only at the innermost (1->0) transition. Panics if
// called without a matching prior IntrDisable on the same context
// chain.
func IntrEnable(ctx context.Context, guard *InterruptGuard) {
	sched.IntrEnable(ctx, guard)
}
