package goGate

import (
	"sync/atomic"
)

// MetricID defines a public type used by goGate APIs.
//
// MetricID instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricID uint16

const (
	// MetricLoginSuccess is an exported constant or variable used by the gateway engine.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure is an exported constant or variable used by the gateway engine.
	MetricLoginFailure
	// MetricLoginJailed is an exported constant or variable used by the gateway engine.
	MetricLoginJailed
	// MetricTokensIssued is an exported constant or variable used by the gateway engine.
	MetricTokensIssued
	// MetricRefreshSuccess is an exported constant or variable used by the gateway engine.
	MetricRefreshSuccess
	// MetricRefreshFailure is an exported constant or variable used by the gateway engine.
	MetricRefreshFailure
	// MetricAccessVerified is an exported constant or variable used by the gateway engine.
	MetricAccessVerified
	// MetricAccessRejected is an exported constant or variable used by the gateway engine.
	MetricAccessRejected
	// MetricRateLimitHit is an exported constant or variable used by the gateway engine.
	MetricRateLimitHit
	// MetricAccountCreated is an exported constant or variable used by the gateway engine.
	MetricAccountCreated
	// MetricAccountDuplicate is an exported constant or variable used by the gateway engine.
	MetricAccountDuplicate
	// MetricAccountUpdated is an exported constant or variable used by the gateway engine.
	MetricAccountUpdated
	// MetricKeyCreated is an exported constant or variable used by the gateway engine.
	MetricKeyCreated
	// MetricKeyRejected is an exported constant or variable used by the gateway engine.
	MetricKeyRejected
	// MetricPredictSuccess is an exported constant or variable used by the gateway engine.
	MetricPredictSuccess
	// MetricPredictFailure is an exported constant or variable used by the gateway engine.
	MetricPredictFailure
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics defines a public type used by goGate APIs.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot defines a public type used by goGate APIs.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Enabled describes the enabled operation and its observable behavior.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc describes the inc operation and its observable behavior.
//
// Inc does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value describes the value operation and its observable behavior.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, int(metricIDCount)),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
