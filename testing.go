package kresource

import "sync"

// MockController is a test double standing in for a hardware interrupt
// controller: its Enable/Disable methods, bound as an Event's
// EnableFunc/DisableFunc, record every call for assertions instead of
// touching real hardware.
type MockController struct {
	mu            sync.Mutex
	enableCalls   int
	disableCalls  int
	lastMasked    bool
	handlerCounts []int
}

// NewMockController returns a ready-to-use mock controller.
func NewMockController() *MockController {
	return &MockController{}
}

// Enable is an EnableFunc: pass it to Registry.Establish. The event
// calls it when its first handler is added and after each deferred
// service completes.
func (c *MockController) Enable(ev *LockedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enableCalls++
	c.lastMasked = false
	c.handlerCounts = append(c.handlerCounts, ev.HandlerCount())
}

// Disable is a DisableFunc.
func (c *MockController) Disable(ev *LockedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disableCalls++
	c.lastMasked = true
	c.handlerCounts = append(c.handlerCounts, ev.HandlerCount())
}

// EnableCalls returns the number of times Enable has run.
func (c *MockController) EnableCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enableCalls
}

// DisableCalls returns the number of times Disable has run.
func (c *MockController) DisableCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disableCalls
}

// Masked reports whether the most recent Enable/Disable call masked
// the source.
func (c *MockController) Masked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastMasked
}

// NopObserver discards every dispatch/latency observation; useful when
// a test only cares about Manager/Event behavior, not metrics.
type NopObserver struct{}

func (NopObserver) ObserveDispatch(irq uint32, filtered, delegated, spurious bool) {}
func (NopObserver) ObserveServiceLatency(irq uint32, latencyNs uint64)             {}

// TestOptions returns an Options suitable for unit tests: a discard
// logger, a NopObserver, and a small deferred-queue capacity.
func TestOptions() Options {
	return Options{
		Logger:   nopLogger{},
		Observer: NopObserver{},
		Worker:   WorkerOptions{QueueCapacity: 4, NiceDelta: 0},
	}
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}
func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}
