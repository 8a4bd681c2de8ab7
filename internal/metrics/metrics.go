// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the gateway.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Authentication metrics
	IncAuthSuccess()
	IncAuthFailure(reason string) // reason: "missing", "unknown", "inactive", "orphaned"
	IncAuthCacheHit()
	IncAuthCacheMiss()

	// Forwarding metrics
	IncRequestForwarded()
	IncForwardError(kind string) // kind: "timeout" or "unreachable"
	ObserveForwardDuration(duration time.Duration)

	// Usage tracking metrics
	IncUsageRecorded()
	IncUsageError()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
