package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDims = 4

func newTestVectorIndex(t *testing.T) *HNSWVectorIndex {
	t.Helper()
	idx, err := NewHNSWVectorIndex(DefaultVectorConfig(testDims))
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func vectorDocs() ([]*Document, [][]float32) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	docs := []*Document{
		{ID: "vec-1", TenantID: "acme", DocType: "note", Tags: []string{"payments"}, Timestamp: base},
		{ID: "vec-2", TenantID: "acme", DocType: "note", Tags: []string{"hr"}, Timestamp: base.AddDate(0, 1, 0)},
		{ID: "vec-3", TenantID: "acme", DocType: "runbook", Tags: []string{"payments"}, Timestamp: base.AddDate(0, 2, 0)},
	}
	vectors := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}
	return docs, vectors
}

func TestHNSWVectorIndex_AddAndSearch(t *testing.T) {
	idx := newTestVectorIndex(t)
	docs, vectors := vectorDocs()
	require.NoError(t, idx.Add(context.Background(), docs, vectors))
	assert.Equal(t, 3, idx.Count())

	results, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, nil, 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "vec-1", results[0].DocID)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-5)
}

func TestHNSWVectorIndex_ScoreOrdering(t *testing.T) {
	idx := newTestVectorIndex(t)
	docs, vectors := vectorDocs()
	require.NoError(t, idx.Add(context.Background(), docs, vectors))

	// Query closest to vec-1, with some similarity to vec-2.
	results, err := idx.Search(context.Background(), []float32{0.9, 0.4, 0, 0}, nil, 3)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(results), 2)

	assert.Equal(t, "vec-1", results[0].DocID)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestHNSWVectorIndex_Filter(t *testing.T) {
	idx := newTestVectorIndex(t)
	docs, vectors := vectorDocs()
	require.NoError(t, idx.Add(context.Background(), docs, vectors))

	results, err := idx.Search(context.Background(), []float32{1, 1, 1, 0}, &Filter{DocType: "runbook"}, 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "vec-3", results[0].DocID)

	results, err = idx.Search(context.Background(), []float32{1, 1, 1, 0}, &Filter{Tags: []string{"payments"}}, 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Contains(t, []string{"vec-1", "vec-3"}, r.DocID)
	}
}

func TestHNSWVectorIndex_DateFilter(t *testing.T) {
	idx := newTestVectorIndex(t)
	docs, vectors := vectorDocs()
	require.NoError(t, idx.Add(context.Background(), docs, vectors))

	filter := &Filter{
		DateFrom: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		DateTo:   time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC),
	}
	results, err := idx.Search(context.Background(), []float32{1, 1, 1, 0}, filter, 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "vec-2", results[0].DocID)
}

func TestHNSWVectorIndex_Replace(t *testing.T) {
	idx := newTestVectorIndex(t)
	docs, vectors := vectorDocs()
	require.NoError(t, idx.Add(context.Background(), docs, vectors))

	// Move vec-2 next to the first axis.
	require.NoError(t, idx.Add(context.Background(), docs[1:2], [][]float32{{1, 0.01, 0, 0}}))
	assert.Equal(t, 3, idx.Count())

	results, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, nil, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	got := []string{results[0].DocID, results[1].DocID}
	assert.ElementsMatch(t, []string{"vec-1", "vec-2"}, got)
}

func TestHNSWVectorIndex_Delete(t *testing.T) {
	idx := newTestVectorIndex(t)
	docs, vectors := vectorDocs()
	require.NoError(t, idx.Add(context.Background(), docs, vectors))

	require.NoError(t, idx.Delete(context.Background(), []string{"vec-1"}))
	assert.Equal(t, 2, idx.Count())

	results, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, nil, 3)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "vec-1", r.DocID)
	}
}

func TestHNSWVectorIndex_DimensionMismatch(t *testing.T) {
	idx := newTestVectorIndex(t)
	docs, _ := vectorDocs()

	err := idx.Add(context.Background(), docs[:1], [][]float32{{1, 0}})
	require.Error(t, err)
	assert.ErrorAs(t, err, &ErrDimensionMismatch{})

	_, err = idx.Search(context.Background(), []float32{1, 0}, nil, 3)
	require.Error(t, err)
	assert.ErrorAs(t, err, &ErrDimensionMismatch{})
}

func TestHNSWVectorIndex_EmptyIndex(t *testing.T) {
	idx := newTestVectorIndex(t)

	results, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, nil, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWVectorIndex_SaveLoad(t *testing.T) {
	idx := newTestVectorIndex(t)
	docs, vectors := vectorDocs()
	require.NoError(t, idx.Add(context.Background(), docs, vectors))

	path := filepath.Join(t.TempDir(), "vectors.hnsw")
	require.NoError(t, idx.Save(path))

	loaded, err := NewHNSWVectorIndex(DefaultVectorConfig(testDims))
	require.NoError(t, err)
	defer loaded.Close()
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, 3, loaded.Count())

	results, err := loaded.Search(context.Background(), []float32{0, 1, 0, 0}, nil, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "vec-2", results[0].DocID)

	// Attributes survive the round trip.
	filtered, err := loaded.Search(context.Background(), []float32{1, 1, 1, 0}, &Filter{DocType: "runbook"}, 3)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "vec-3", filtered[0].DocID)
}

func TestHNSWVectorIndex_ClosedErrors(t *testing.T) {
	idx := newTestVectorIndex(t)
	require.NoError(t, idx.Close())

	docs, vectors := vectorDocs()
	assert.Error(t, idx.Add(context.Background(), docs, vectors))

	_, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, nil, 3)
	assert.Error(t, err)
	assert.Zero(t, idx.Count())
}
