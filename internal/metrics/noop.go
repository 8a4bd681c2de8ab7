package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncAuthSuccess is a no-op.
func (n *NoopRecorder) IncAuthSuccess() {}

// IncAuthFailure is a no-op.
func (n *NoopRecorder) IncAuthFailure(reason string) {}

// IncAuthCacheHit is a no-op.
func (n *NoopRecorder) IncAuthCacheHit() {}

// IncAuthCacheMiss is a no-op.
func (n *NoopRecorder) IncAuthCacheMiss() {}

// IncRequestForwarded is a no-op.
func (n *NoopRecorder) IncRequestForwarded() {}

// IncForwardError is a no-op.
func (n *NoopRecorder) IncForwardError(kind string) {}

// ObserveForwardDuration is a no-op.
func (n *NoopRecorder) ObserveForwardDuration(duration time.Duration) {}

// IncUsageRecorded is a no-op.
func (n *NoopRecorder) IncUsageRecorded() {}

// IncUsageError is a no-op.
func (n *NoopRecorder) IncUsageError() {}
