package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	AuthSuccesses          uint64
	AuthFailures           uint64
	AuthCacheHits          uint64
	AuthCacheMisses        uint64
	RequestsForwarded      uint64
	ForwardTimeouts        uint64
	ForwardUnreachable     uint64
	ForwardDurationCount   uint64
	ForwardDurationTotalNs int64
	UsageRecorded          uint64
	UsageErrors            uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	authSuccesses          uint64
	authFailures           uint64
	authCacheHits          uint64
	authCacheMisses        uint64
	requestsForwarded      uint64
	forwardTimeouts        uint64
	forwardUnreachable     uint64
	forwardDurationCount   uint64
	forwardDurationTotalNs int64
	usageRecorded          uint64
	usageErrors            uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		AuthSuccesses:          atomic.LoadUint64(&m.authSuccesses),
		AuthFailures:           atomic.LoadUint64(&m.authFailures),
		AuthCacheHits:          atomic.LoadUint64(&m.authCacheHits),
		AuthCacheMisses:        atomic.LoadUint64(&m.authCacheMisses),
		RequestsForwarded:      atomic.LoadUint64(&m.requestsForwarded),
		ForwardTimeouts:        atomic.LoadUint64(&m.forwardTimeouts),
		ForwardUnreachable:     atomic.LoadUint64(&m.forwardUnreachable),
		ForwardDurationCount:   atomic.LoadUint64(&m.forwardDurationCount),
		ForwardDurationTotalNs: atomic.LoadInt64(&m.forwardDurationTotalNs),
		UsageRecorded:          atomic.LoadUint64(&m.usageRecorded),
		UsageErrors:            atomic.LoadUint64(&m.usageErrors),
	}
}

// IncAuthSuccess increments the auth success counter.
func (m *InMemoryRecorder) IncAuthSuccess() {
	atomic.AddUint64(&m.authSuccesses, 1)
}

// IncAuthFailure increments the auth failure counter.
func (m *InMemoryRecorder) IncAuthFailure(reason string) {
	atomic.AddUint64(&m.authFailures, 1)
}

// IncAuthCacheHit increments the auth cache hit counter.
func (m *InMemoryRecorder) IncAuthCacheHit() {
	atomic.AddUint64(&m.authCacheHits, 1)
}

// IncAuthCacheMiss increments the auth cache miss counter.
func (m *InMemoryRecorder) IncAuthCacheMiss() {
	atomic.AddUint64(&m.authCacheMisses, 1)
}

// IncRequestForwarded increments the forwarded request counter.
func (m *InMemoryRecorder) IncRequestForwarded() {
	atomic.AddUint64(&m.requestsForwarded, 1)
}

// IncForwardError increments the matching forward error counter.
func (m *InMemoryRecorder) IncForwardError(kind string) {
	if kind == "timeout" {
		atomic.AddUint64(&m.forwardTimeouts, 1)
		return
	}
	atomic.AddUint64(&m.forwardUnreachable, 1)
}

// ObserveForwardDuration records a forward exchange duration.
func (m *InMemoryRecorder) ObserveForwardDuration(duration time.Duration) {
	atomic.AddUint64(&m.forwardDurationCount, 1)
	atomic.AddInt64(&m.forwardDurationTotalNs, duration.Nanoseconds())
}

// IncUsageRecorded increments the usage recorded counter.
func (m *InMemoryRecorder) IncUsageRecorded() {
	atomic.AddUint64(&m.usageRecorded, 1)
}

// IncUsageError increments the usage error counter.
func (m *InMemoryRecorder) IncUsageError() {
	atomic.AddUint64(&m.usageErrors, 1)
}
