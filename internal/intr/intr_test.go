package intr

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddHandlerOrdersByPriorityThenFIFO(t *testing.T) {
	ev := NewEvent(1, nil, nil, nil)

	var order []string
	record := func(name string) FilterFunc {
		return func(ctx context.Context) FilterResult {
			order = append(order, name)
			return Filtered
		}
	}

	low := &Handler{Name: "low", Priority: 1, Filter: record("low")}
	highA := &Handler{Name: "highA", Priority: 10, Filter: record("highA")}
	highB := &Handler{Name: "highB", Priority: 10, Filter: record("highB")}
	mid := &Handler{Name: "mid", Priority: 5, Filter: record("mid")}

	ev.AddHandler(low)
	ev.AddHandler(highA)
	ev.AddHandler(mid)
	ev.AddHandler(highB)

	queue := NewDeferredQueue(4)
	RunHandlers(context.Background(), ev, queue)

	assert.Equal(t, []string{"highA", "highB", "mid", "low"}, order,
		"handlers must run in descending priority, FIFO among ties")
}

func TestAddHandlerEnablesOnlyOnFirstHandler(t *testing.T) {
	var enableCalls, disableCalls int
	ev := NewEvent(2,
		func(*LockedEvent) { enableCalls++ },
		func(*LockedEvent) { disableCalls++ },
		nil,
	)

	h1 := &Handler{Name: "h1", Filter: func(context.Context) FilterResult { return Filtered }}
	h2 := &Handler{Name: "h2", Filter: func(context.Context) FilterResult { return Filtered }}

	ev.AddHandler(h1)
	ev.AddHandler(h2)
	assert.Equal(t, 1, enableCalls, "enable must fire only on the 0->1 transition")

	require.NoError(t, ev.RemoveHandler(h1))
	assert.Equal(t, 0, disableCalls, "disable must not fire while a handler remains")

	require.NoError(t, ev.RemoveHandler(h2))
	assert.Equal(t, 1, disableCalls, "disable must fire on the 1->0 transition")
}

func TestRemoveHandlerNotAttachedErrors(t *testing.T) {
	ev := NewEvent(3, nil, nil, nil)
	h := &Handler{Name: "detached"}
	err := ev.RemoveHandler(h)
	require.Error(t, err)
}

func TestRunHandlersSpuriousWhenNoHandlerClaims(t *testing.T) {
	ev := NewEvent(4, nil, nil, nil)
	ev.AddHandler(&Handler{Name: "ignorer", Filter: func(context.Context) FilterResult { return None }})

	queue := NewDeferredQueue(4)
	RunHandlers(context.Background(), ev, queue)

	stats := ev.Stats()
	assert.EqualValues(t, 1, stats.Dispatches)
	assert.EqualValues(t, 1, stats.Spurious)
	assert.EqualValues(t, 0, stats.Filtered)
}

func TestRunHandlersSpuriousWhenNoHandlersRegistered(t *testing.T) {
	ev := NewEvent(5, nil, nil, nil)
	queue := NewDeferredQueue(4)
	RunHandlers(context.Background(), ev, queue)

	assert.EqualValues(t, 1, ev.Stats().Spurious)
	assert.EqualValues(t, 0, ev.Stats().Dispatches)
}

func TestDelegateMasksUntilWorkerFinishes(t *testing.T) {
	var mu sync.Mutex
	var masked bool

	ev := NewEvent(6,
		func(*LockedEvent) { mu.Lock(); masked = false; mu.Unlock() },
		func(*LockedEvent) { mu.Lock(); masked = true; mu.Unlock() },
		nil,
	)

	release := make(chan struct{})
	h := &Handler{
		Name:   "slow",
		Filter: func(context.Context) FilterResult { return Delegate },
		Service: func(context.Context) {
			<-release
		},
	}
	ev.AddHandler(h)

	queue := NewDeferredQueue(4)
	RunHandlers(context.Background(), ev, queue)

	mu.Lock()
	gotMasked := masked
	mu.Unlock()
	assert.True(t, gotMasked, "source must be masked as soon as a handler is delegated")

	require.Equal(t, 0, ev.handlers.Len(), "a delegated handler must be absent from the IE list during service")
	assert.Nil(t, h.elem, "a delegated handler's list element must be cleared while detached")

	worker := NewWorker(queue, nil, WorkerOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	close(release)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return !masked
	}, time.Second, time.Millisecond, "source must be re-enabled once the delegated handler's service completes")

	require.Eventually(t, func() bool {
		return ev.handlers.Len() == 1
	}, time.Second, time.Millisecond, "the delegated handler must be re-inserted once its service completes")
	assert.Same(t, h, ev.handlers.Front().Value.(*Handler), "the re-inserted handler must be h itself")
	assert.NotNil(t, h.elem, "a re-inserted handler's list element must be restored")

	cancel()
	<-done
}

func TestNilFilterHandlerAlwaysDelegates(t *testing.T) {
	ev := NewEvent(7, nil, nil, nil)
	ran := make(chan struct{}, 1)
	h := &Handler{Name: "ithread-only", Service: func(context.Context) { ran <- struct{}{} }}
	ev.AddHandler(h)

	queue := NewDeferredQueue(4)
	RunHandlers(context.Background(), ev, queue)
	assert.EqualValues(t, 1, ev.Stats().Delegated)
	assert.Equal(t, 0, ev.handlers.Len(), "a nil-filter handler must also be unlinked once delegated")

	worker := NewWorker(queue, nil, WorkerOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)
	defer cancel()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("service function never ran")
	}

	require.Eventually(t, func() bool {
		return ev.handlers.Len() == 1
	}, time.Second, time.Millisecond, "the handler must be re-inserted after its service function returns")
}

func TestDelegateWithNoServicePanics(t *testing.T) {
	ev := NewEvent(8, nil, nil, nil)
	ev.AddHandler(&Handler{
		Name:   "misconfigured",
		Filter: func(context.Context) FilterResult { return Delegate },
	})

	queue := NewDeferredQueue(4)
	assert.Panics(t, func() {
		RunHandlers(context.Background(), ev, queue)
	}, "delegating with no service function must panic, not silently no-op")
}

func TestRegistryEstablishDoubleRegistrationPanics(t *testing.T) {
	r := NewRegistry()
	r.Establish(1, nil, nil, nil)
	assert.Panics(t, func() {
		r.Establish(1, nil, nil, nil)
	})
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	ev := r.Establish(9, nil, nil, nil)

	got, ok := r.Lookup(9)
	require.True(t, ok)
	assert.Same(t, ev, got)

	_, ok = r.Lookup(404)
	assert.False(t, ok)
}
