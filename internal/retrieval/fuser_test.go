package retrieval

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cand(docID string, backend Backend, score float64) *Candidate {
	return &Candidate{DocID: docID, TenantID: "acme", Backend: backend, Score: score}
}

func vecCands(scores map[string]float64) []*Candidate {
	out := make([]*Candidate, 0, len(scores))
	for id, s := range scores {
		out = append(out, cand(id, BackendVector, s))
	}
	return out
}

func keyCands(scores map[string]float64) []*Candidate {
	out := make([]*Candidate, 0, len(scores))
	for id, s := range scores {
		out = append(out, cand(id, BackendKeyword, s))
	}
	return out
}

func TestFuse_NoDuplicates(t *testing.T) {
	f := NewResultFuser(DefaultWeights())

	// doc-b and doc-c overlap between the lists.
	vector := vecCands(map[string]float64{"doc-a": 0.9, "doc-b": 0.7, "doc-c": 0.3})
	keyword := keyCands(map[string]float64{"doc-b": 5.0, "doc-c": 3.0, "doc-d": 1.0})

	results := f.Fuse(vector, keyword, 10)

	seen := make(map[string]bool)
	for _, r := range results {
		assert.False(t, seen[r.DocID], "duplicate doc %s", r.DocID)
		seen[r.DocID] = true
	}
	assert.Len(t, results, 4)
}

func TestFuse_WeightedCombination(t *testing.T) {
	f := NewResultFuser(DefaultWeights())

	// Anchor candidates pin each list's min to 0 and max to 1 so doc-a
	// normalizes to exactly its raw score.
	vector := vecCands(map[string]float64{"doc-a": 0.9, "v-high": 1.0, "v-low": 0.0})
	keyword := keyCands(map[string]float64{"doc-a": 0.5, "k-high": 1.0, "k-low": 0.0})

	results := f.Fuse(vector, keyword, 10)

	var docA *FusedResult
	for _, r := range results {
		if r.DocID == "doc-a" {
			docA = r
		}
	}
	require.NotNil(t, docA)

	// 0.6*0.9 + 0.4*0.5 = 0.74
	assert.InDelta(t, 0.74, docA.Score, 1e-9)
	assert.Equal(t, []Backend{BackendVector, BackendKeyword}, docA.Backends)
}

func TestFuse_SingleListDegenerates(t *testing.T) {
	f := NewResultFuser(DefaultWeights())

	vector := vecCands(map[string]float64{"doc-a": 1.0, "doc-b": 0.5, "doc-c": 0.0})
	results := f.Fuse(vector, nil, 10)
	require.Len(t, results, 3)

	// Same formula with a single term: w_v * norm.
	assert.Equal(t, "doc-a", results[0].DocID)
	assert.InDelta(t, 0.6, results[0].Score, 1e-9)
	assert.InDelta(t, 0.3, results[1].Score, 1e-9)
	assert.InDelta(t, 0.0, results[2].Score, 1e-9)
	for _, r := range results {
		assert.Equal(t, []Backend{BackendVector}, r.Backends)
	}
}

func TestFuse_MissingBackendNotPenalized(t *testing.T) {
	f := NewResultFuser(DefaultWeights())

	// doc-solo appears only in the vector list; its score is the single
	// weighted term, not zeroed and not boosted.
	vector := vecCands(map[string]float64{"doc-solo": 1.0, "v-low": 0.0})
	keyword := keyCands(map[string]float64{"k-a": 1.0, "k-b": 0.0})

	results := f.Fuse(vector, keyword, 10)

	for _, r := range results {
		if r.DocID == "doc-solo" {
			assert.InDelta(t, 0.6, r.Score, 1e-9)
		}
	}
}

func TestFuse_DeterministicTieBreak(t *testing.T) {
	f := NewResultFuser(DefaultWeights())

	// All identical raw scores normalize to 1.0; ties break by doc ID.
	vector := vecCands(map[string]float64{"zebra": 0.5, "alpha": 0.5, "mango": 0.5})

	for i := 0; i < 20; i++ {
		results := f.Fuse(vector, nil, 10)
		require.Len(t, results, 3)
		assert.Equal(t, "alpha", results[0].DocID)
		assert.Equal(t, "mango", results[1].DocID)
		assert.Equal(t, "zebra", results[2].DocID)
	}
}

func TestFuse_Truncation(t *testing.T) {
	f := NewResultFuser(DefaultWeights())

	vector := make([]*Candidate, 0, 12)
	for i := 0; i < 12; i++ {
		vector = append(vector, cand(fmt.Sprintf("doc-%02d", i), BackendVector, float64(i)))
	}

	results := f.Fuse(vector, nil, 5)
	require.Len(t, results, 5)

	// Highest raw scores survive.
	assert.Equal(t, "doc-11", results[0].DocID)
	assert.Equal(t, "doc-07", results[4].DocID)
}

func TestFuse_KExceedsCandidates(t *testing.T) {
	f := NewResultFuser(DefaultWeights())

	vector := vecCands(map[string]float64{"doc-a": 0.9, "doc-b": 0.1})
	results := f.Fuse(vector, nil, 50)
	assert.Len(t, results, 2)
}

func TestFuse_EmptyInputs(t *testing.T) {
	f := NewResultFuser(DefaultWeights())

	results := f.Fuse(nil, nil, 10)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	results = f.Fuse(vecCands(map[string]float64{"doc-a": 1.0}), nil, 0)
	assert.Empty(t, results)
}

func TestFuse_RanksAreStable(t *testing.T) {
	f := NewResultFuser(DefaultWeights())

	vector := vecCands(map[string]float64{"doc-a": 1.0, "doc-b": 0.5, "doc-c": 0.0})
	results := f.Fuse(vector, nil, 10)

	for i, r := range results {
		assert.Equal(t, i, r.Rank)
	}
}

func TestFuse_OrderedByScoreDescending(t *testing.T) {
	f := NewResultFuser(Weights{Vector: 0.5, Keyword: 0.5})

	vector := vecCands(map[string]float64{"doc-a": 0.2, "doc-b": 0.9, "doc-c": 0.6})
	keyword := keyCands(map[string]float64{"doc-c": 8.0, "doc-d": 2.0})

	results := f.Fuse(vector, keyword, 10)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestNewResultFuser_InvalidWeightsFallBack(t *testing.T) {
	f := NewResultFuser(Weights{Vector: -1, Keyword: 0})
	assert.Equal(t, DefaultWeights(), f.Weights())
}

func TestNormalizeScores_UniformListMapsToOne(t *testing.T) {
	norm := normalizeScores(vecCands(map[string]float64{"doc-a": 3.0, "doc-b": 3.0}))
	assert.InDelta(t, 1.0, norm["doc-a"], 1e-9)
	assert.InDelta(t, 1.0, norm["doc-b"], 1e-9)
}

func TestNormalizeScores_SingleElement(t *testing.T) {
	norm := normalizeScores(vecCands(map[string]float64{"doc-a": 0.123}))
	assert.InDelta(t, 1.0, norm["doc-a"], 1e-9)
}
