package kresource_test

import (
	"context"
	"testing"
	"time"

	kresource "github.com/go-kresource/kresource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenario_DonateReserveReleaseCoalesces(t *testing.T) {
	opts := kresource.TestOptions()
	m := kresource.NewManager("mmio0", opts)
	m.ManageRegion(0x1000, 0x1000)

	r, err := m.Reserve(0x1000, 0x1fff, 0x100, 1, 0, "nic0")
	require.NoError(t, err)
	require.Len(t, m.Resources(), 2, "reserving from the front should split into [reserved][free]")

	r.Activate()
	assert.True(t, r.IsActive())
	r.Deactivate()
	r.Release()

	res := m.Resources()
	require.Len(t, res, 1, "releasing the only reservation must coalesce back to the original donation")
	assert.Equal(t, uint64(0x1000), res[0].Start())
	assert.Equal(t, uint64(0x1fff), res[0].End())

	assert.EqualValues(t, 1, m.Metrics().ReservationsTotal.Load())
	assert.EqualValues(t, 1, m.Metrics().ReleasesTotal.Load())
}

func TestScenario_ReserveNoPlacementIsRecoverable(t *testing.T) {
	opts := kresource.TestOptions()
	m := kresource.NewManager("irq", opts)
	m.ManageRegion(0, 8)

	_, err := m.Reserve(0, 7, 100, 1, 0, "too-big")
	require.Error(t, err)
	assert.True(t, kresource.IsCode(err, kresource.ErrCodeNoPlacement))
	assert.EqualValues(t, 1, m.Metrics().ReservationFailures.Load())
}

func TestScenario_ReserveInvalidAlignmentReturnsError(t *testing.T) {
	opts := kresource.TestOptions()
	m := kresource.NewManager("dma", opts)
	m.ManageRegion(0, 0x100)

	_, err := m.Reserve(0, 0xff, 0x10, 3, 0, "bad-align")
	require.Error(t, err)
	assert.True(t, kresource.IsCode(err, kresource.ErrCodeInvalidAlignment))
}

func TestScenario_FiniOnEmptyManagerSucceeds(t *testing.T) {
	opts := kresource.TestOptions()
	m := kresource.NewManager("scratch", opts)
	m.ManageRegion(0, 0x10)

	assert.NotPanics(t, func() { m.Fini() })
}

func TestScenario_SpuriousInterruptWithNoHandlers(t *testing.T) {
	opts := kresource.TestOptions()
	registry := kresource.NewRegistry(opts)
	ev := registry.Establish(7, nil, nil)

	guard := &kresource.InterruptGuard{}
	worker := kresource.NewWorker(opts)

	kresource.RunHandlers(context.Background(), guard, ev, worker)

	stats := ev.Stats()
	assert.EqualValues(t, 1, stats.Spurious)
	assert.EqualValues(t, 0, stats.Dispatches)
}

func TestScenario_DelegateMasksAndRearmsAfterService(t *testing.T) {
	opts := kresource.TestOptions()
	ctrl := kresource.NewMockController()
	registry := kresource.NewRegistry(opts)
	ev := registry.Establish(3, ctrl.Enable, ctrl.Disable)

	release := make(chan struct{})
	done := make(chan struct{}, 1)
	ev.AddHandler(&kresource.Handler{
		Name:     "nic-irq",
		Priority: 1,
		Filter: func(ctx context.Context) kresource.FilterResult {
			return kresource.Delegate
		},
		Service: func(ctx context.Context) {
			<-release
			done <- struct{}{}
		},
	})
	assert.Equal(t, 1, ctrl.EnableCalls(), "registering the first handler must enable the source")

	guard := &kresource.InterruptGuard{}
	worker := kresource.NewWorker(opts)
	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(workerCtx)

	kresource.RunHandlers(context.Background(), guard, ev, worker)
	assert.Equal(t, 1, ctrl.DisableCalls(), "a delegated handler must mask the source")
	assert.True(t, ctrl.Masked())

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("service function never ran")
	}

	require.Eventually(t, func() bool {
		return ctrl.EnableCalls() == 2
	}, time.Second, time.Millisecond, "the source must be re-enabled once the delegated handler finishes")
	assert.False(t, ctrl.Masked())
}

func TestScenario_PriorityOrderingWithFIFOTies(t *testing.T) {
	opts := kresource.TestOptions()
	registry := kresource.NewRegistry(opts)
	ev := registry.Establish(9, nil, nil)

	var order []string
	newHandler := func(name string, priority int) *kresource.Handler {
		return &kresource.Handler{
			Name:     name,
			Priority: priority,
			Filter: func(context.Context) kresource.FilterResult {
				order = append(order, name)
				return kresource.Filtered
			},
		}
	}

	ev.AddHandler(newHandler("low", 1))
	ev.AddHandler(newHandler("firstHigh", 10))
	ev.AddHandler(newHandler("secondHigh", 10))

	guard := &kresource.InterruptGuard{}
	worker := kresource.NewWorker(opts)
	kresource.RunHandlers(context.Background(), guard, ev, worker)

	assert.Equal(t, []string{"firstHigh", "secondHigh", "low"}, order)
}

func TestScenario_NestedIntrDisableDoesNotDeadlockDispatch(t *testing.T) {
	opts := kresource.TestOptions()
	registry := kresource.NewRegistry(opts)
	ev := registry.Establish(11, nil, nil)
	ev.AddHandler(&kresource.Handler{
		Name:     "h",
		Priority: 1,
		Filter:   func(context.Context) kresource.FilterResult { return kresource.Filtered },
	})

	guard := &kresource.InterruptGuard{}
	worker := kresource.NewWorker(opts)

	ctx := kresource.IntrDisable(context.Background(), guard)
	// A nested caller disabling interrupts again before dispatch must not
	// deadlock the guard against itself.
	ctx = kresource.IntrDisable(ctx, guard)
	kresource.IntrEnable(ctx, guard)
	kresource.IntrEnable(ctx, guard)

	assert.NotPanics(t, func() {
		kresource.RunHandlers(context.Background(), guard, ev, worker)
	})
}
