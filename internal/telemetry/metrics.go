// Package telemetry collects retrieval metrics for operational alerting.
// All data is held in memory and exposed through snapshots; nothing is
// reported externally.
package telemetry

import (
	"sync"
	"time"
)

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// QueryEvent describes one completed retrieval for recording.
type QueryEvent struct {
	TenantID    string
	Tier        string
	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// IsZeroResult reports whether the query returned no results.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// defaultRecentCapacity bounds the recent-event buffer.
const defaultRecentCapacity = 100

// QueryMetrics aggregates retrieval telemetry. Degraded-tier counts are
// the hook the surrounding system uses to raise alerts; the engine itself
// never branches on them.
type QueryMetrics struct {
	mu sync.RWMutex

	totalQueries    int64
	zeroResults     int64
	tierCounts      map[string]int64
	backendFailures map[string]int64
	latencyBuckets  map[LatencyBucket]int64

	recent []QueryEvent
	head   int
	size   int
}

// NewQueryMetrics creates an empty collector.
func NewQueryMetrics() *QueryMetrics {
	return &QueryMetrics{
		tierCounts:      make(map[string]int64),
		backendFailures: make(map[string]int64),
		latencyBuckets:  make(map[LatencyBucket]int64),
		recent:          make([]QueryEvent, defaultRecentCapacity),
	}
}

// RecordQuery records one completed retrieval.
func (m *QueryMetrics) RecordQuery(event QueryEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalQueries++
	m.tierCounts[event.Tier]++
	m.latencyBuckets[LatencyToBucket(event.Latency)]++
	if event.IsZeroResult() {
		m.zeroResults++
	}

	m.recent[m.head] = event
	m.head = (m.head + 1) % len(m.recent)
	if m.size < len(m.recent) {
		m.size++
	}
}

// RecordBackendFailure counts a failed or timed-out backend attempt.
func (m *QueryMetrics) RecordBackendFailure(backend string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backendFailures[backend]++
}

// Snapshot is a point-in-time copy of the collected metrics.
type Snapshot struct {
	TotalQueries    int64
	ZeroResults     int64
	TierCounts      map[string]int64
	BackendFailures map[string]int64
	LatencyBuckets  map[LatencyBucket]int64
	RecentEvents    []QueryEvent // Oldest first
}

// Snapshot returns a copy of the current metrics.
func (m *QueryMetrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		TotalQueries:    m.totalQueries,
		ZeroResults:     m.zeroResults,
		TierCounts:      make(map[string]int64, len(m.tierCounts)),
		BackendFailures: make(map[string]int64, len(m.backendFailures)),
		LatencyBuckets:  make(map[LatencyBucket]int64, len(m.latencyBuckets)),
		RecentEvents:    make([]QueryEvent, 0, m.size),
	}
	for k, v := range m.tierCounts {
		snap.TierCounts[k] = v
	}
	for k, v := range m.backendFailures {
		snap.BackendFailures[k] = v
	}
	for k, v := range m.latencyBuckets {
		snap.LatencyBuckets[k] = v
	}

	start := m.head - m.size
	if start < 0 {
		start += len(m.recent)
	}
	for i := 0; i < m.size; i++ {
		snap.RecentEvents = append(snap.RecentEvents, m.recent[(start+i)%len(m.recent)])
	}
	return snap
}
