package kresource

import "sync/atomic"

// LatencyBuckets defines the service-latency histogram buckets in
// nanoseconds, logarithmically spaced from 1us to 10s.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks operational statistics across every Manager and Event
// sharing it.
type Metrics struct {
	// Resource Manager counters.
	RegionsManaged      atomic.Uint64
	ReservationsTotal   atomic.Uint64
	ReservationFailures atomic.Uint64
	ReleasesTotal       atomic.Uint64

	// Interrupt Dispatch Engine counters.
	DispatchesTotal  atomic.Uint64
	FilteredTotal    atomic.Uint64
	DelegatedTotal   atomic.Uint64
	SpuriousTotal    atomic.Uint64
	ServiceCompleted atomic.Uint64

	// Cumulative deferred-service latency, for average-latency
	// calculation alongside the histogram below.
	TotalServiceLatencyNs atomic.Uint64
	ServiceLatencyCount   atomic.Uint64

	// ServiceLatencyBuckets[i] counts completed services whose latency
	// was <= LatencyBuckets[i].
	ServiceLatencyBuckets [numLatencyBuckets]atomic.Uint64
}

// NewMetrics returns a zeroed Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveDispatch implements interfaces.Observer, letting a Metrics
// instance be wired directly into an Event as its observer.
func (m *Metrics) ObserveDispatch(irq uint32, filtered, delegated, spurious bool) {
	m.DispatchesTotal.Add(1)
	if filtered {
		m.FilteredTotal.Add(1)
	}
	if delegated {
		m.DelegatedTotal.Add(1)
	}
	if spurious {
		m.SpuriousTotal.Add(1)
	}
}

// ObserveServiceLatency implements interfaces.Observer.
func (m *Metrics) ObserveServiceLatency(irq uint32, latencyNs uint64) {
	m.ServiceCompleted.Add(1)
	m.TotalServiceLatencyNs.Add(latencyNs)
	m.ServiceLatencyCount.Add(1)
	for i, bound := range LatencyBuckets {
		if latencyNs <= bound {
			m.ServiceLatencyBuckets[i].Add(1)
		}
	}
}

// AverageServiceLatencyNs returns the mean observed service latency,
// or 0 if none have been recorded.
func (m *Metrics) AverageServiceLatencyNs() uint64 {
	count := m.ServiceLatencyCount.Load()
	if count == 0 {
		return 0
	}
	return m.TotalServiceLatencyNs.Load() / count
}
