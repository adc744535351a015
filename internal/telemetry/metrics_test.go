package telemetry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		latency time.Duration
		want    LatencyBucket
	}{
		{5 * time.Millisecond, BucketP10},
		{25 * time.Millisecond, BucketP50},
		{75 * time.Millisecond, BucketP100},
		{250 * time.Millisecond, BucketP500},
		{900 * time.Millisecond, BucketP1000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LatencyToBucket(tt.latency))
	}
}

func TestQueryMetrics_RecordAndSnapshot(t *testing.T) {
	m := NewQueryMetrics()

	m.RecordQuery(QueryEvent{TenantID: "acme", Tier: "both", ResultCount: 5, Latency: 8 * time.Millisecond})
	m.RecordQuery(QueryEvent{TenantID: "acme", Tier: "vector_only", ResultCount: 0, Latency: 120 * time.Millisecond})
	m.RecordBackendFailure("keyword")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.TotalQueries)
	assert.Equal(t, int64(1), snap.ZeroResults)
	assert.Equal(t, int64(1), snap.TierCounts["both"])
	assert.Equal(t, int64(1), snap.TierCounts["vector_only"])
	assert.Equal(t, int64(1), snap.BackendFailures["keyword"])
	assert.Equal(t, int64(1), snap.LatencyBuckets[BucketP10])
	assert.Equal(t, int64(1), snap.LatencyBuckets[BucketP500])
	assert.Len(t, snap.RecentEvents, 2)
	assert.Equal(t, "both", snap.RecentEvents[0].Tier)
}

func TestQueryMetrics_RecentBufferEvictsOldest(t *testing.T) {
	m := NewQueryMetrics()

	for i := 0; i < defaultRecentCapacity+10; i++ {
		m.RecordQuery(QueryEvent{Tier: fmt.Sprintf("tier-%d", i)})
	}

	snap := m.Snapshot()
	assert.Len(t, snap.RecentEvents, defaultRecentCapacity)
	assert.Equal(t, "tier-10", snap.RecentEvents[0].Tier)
}

func TestQueryMetrics_ConcurrentRecording(t *testing.T) {
	m := NewQueryMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.RecordQuery(QueryEvent{Tier: "both", ResultCount: 1})
				m.RecordBackendFailure("vector")
			}
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.Equal(t, int64(400), snap.TotalQueries)
	assert.Equal(t, int64(400), snap.BackendFailures["vector"])
}
