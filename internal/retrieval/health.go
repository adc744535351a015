package retrieval

import "sync/atomic"

// HealthTracker counts consecutive failures per backend. It exists for
// observability and alerting only; no call path is ever skipped based on
// its counters, so a backend is never permanently disabled.
//
// Trackers are injectable rather than package-level so concurrent tests
// can construct isolated instances.
type HealthTracker struct {
	vectorFailures  atomic.Int64
	keywordFailures atomic.Int64
}

// NewHealthTracker returns a tracker with zeroed counters.
func NewHealthTracker() *HealthTracker {
	return &HealthTracker{}
}

func (h *HealthTracker) counter(backend Backend) *atomic.Int64 {
	if backend == BackendVector {
		return &h.vectorFailures
	}
	return &h.keywordFailures
}

// RecordSuccess resets the backend's consecutive-failure counter.
func (h *HealthTracker) RecordSuccess(backend Backend) {
	h.counter(backend).Store(0)
}

// RecordFailure increments the backend's consecutive-failure counter and
// returns the new count.
func (h *HealthTracker) RecordFailure(backend Backend) int64 {
	return h.counter(backend).Add(1)
}

// ConsecutiveFailures returns the current consecutive-failure count.
func (h *HealthTracker) ConsecutiveFailures(backend Backend) int64 {
	return h.counter(backend).Load()
}

// HealthSnapshot is a point-in-time view of the counters.
type HealthSnapshot struct {
	VectorConsecutiveFailures  int64
	KeywordConsecutiveFailures int64
}

// Snapshot returns the current counter values.
func (h *HealthTracker) Snapshot() HealthSnapshot {
	return HealthSnapshot{
		VectorConsecutiveFailures:  h.vectorFailures.Load(),
		KeywordConsecutiveFailures: h.keywordFailures.Load(),
	}
}
