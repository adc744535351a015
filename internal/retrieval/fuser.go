package retrieval

import "sort"

// ResultFuser merges the two candidate lists into one deduplicated, ranked
// list using weighted combination of per-list min-max normalized scores.
type ResultFuser struct {
	weights Weights
}

// NewResultFuser creates a fuser with the given weights. Non-positive
// weights fall back to the defaults.
func NewResultFuser(weights Weights) *ResultFuser {
	if weights.Vector <= 0 || weights.Keyword <= 0 {
		weights = DefaultWeights()
	}
	return &ResultFuser{weights: weights}
}

// Weights returns the active fusion weights.
func (f *ResultFuser) Weights() Weights {
	return f.weights
}

// fusedEntry holds intermediate fusion state for one document.
type fusedEntry struct {
	docID     string
	score     float64
	inVector  bool
	inKeyword bool
	candidate *Candidate // first-seen candidate, for metadata echo
}

// Fuse combines the candidate lists into at most k FusedResults.
//
// Each list's raw scores are min-max normalized independently; the two
// scoring systems are not numerically comparable, so there is no shared
// scale. A document in both lists scores w_v*normV + w_k*normK; a document
// in one list keeps just that single weighted term. Sorting is by combined
// score descending with ties broken by DocID ascending.
func (f *ResultFuser) Fuse(vector, keyword []*Candidate, k int) []*FusedResult {
	if k <= 0 || (len(vector) == 0 && len(keyword) == 0) {
		return []*FusedResult{}
	}

	entries := make(map[string]*fusedEntry, len(vector)+len(keyword))

	for docID, norm := range normalizeScores(vector) {
		e := getOrCreate(entries, docID)
		e.score += f.weights.Vector * norm
		e.inVector = true
	}
	for docID, norm := range normalizeScores(keyword) {
		e := getOrCreate(entries, docID)
		e.score += f.weights.Keyword * norm
		e.inKeyword = true
	}

	// Remember one source candidate per document for metadata echo.
	for _, c := range vector {
		if e, ok := entries[c.DocID]; ok && e.candidate == nil {
			e.candidate = c
		}
	}
	for _, c := range keyword {
		if e, ok := entries[c.DocID]; ok && e.candidate == nil {
			e.candidate = c
		}
	}

	sorted := make([]*fusedEntry, 0, len(entries))
	for _, e := range entries {
		sorted = append(sorted, e)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].score != sorted[j].score {
			return sorted[i].score > sorted[j].score
		}
		return sorted[i].docID < sorted[j].docID
	})

	if len(sorted) > k {
		sorted = sorted[:k]
	}

	results := make([]*FusedResult, len(sorted))
	for i, e := range sorted {
		r := &FusedResult{
			DocID:    e.docID,
			Score:    e.score,
			Backends: contributors(e),
			Rank:     i,
		}
		if e.candidate != nil {
			r.Title = e.candidate.Title
			r.Source = e.candidate.Source
			r.Timestamp = e.candidate.Timestamp
		}
		results[i] = r
	}
	return results
}

func getOrCreate(m map[string]*fusedEntry, docID string) *fusedEntry {
	if e, ok := m[docID]; ok {
		return e
	}
	e := &fusedEntry{docID: docID}
	m[docID] = e
	return e
}

// normalizeScores min-max scales one list's raw scores into [0,1] keyed by
// document ID. When every score is identical (including a single-element
// list) all documents normalize to 1.0. A document listed twice keeps its
// best raw score.
func normalizeScores(candidates []*Candidate) map[string]float64 {
	if len(candidates) == 0 {
		return nil
	}

	raw := make(map[string]float64, len(candidates))
	minScore, maxScore := candidates[0].Score, candidates[0].Score
	for _, c := range candidates {
		if prev, ok := raw[c.DocID]; !ok || c.Score > prev {
			raw[c.DocID] = c.Score
		}
		if c.Score < minScore {
			minScore = c.Score
		}
		if c.Score > maxScore {
			maxScore = c.Score
		}
	}

	norm := make(map[string]float64, len(raw))
	spread := maxScore - minScore
	for docID, score := range raw {
		if spread == 0 {
			norm[docID] = 1.0
		} else {
			norm[docID] = (score - minScore) / spread
		}
	}
	return norm
}

func contributors(e *fusedEntry) []Backend {
	backends := make([]Backend, 0, 2)
	if e.inVector {
		backends = append(backends, BackendVector)
	}
	if e.inKeyword {
		backends = append(backends, BackendKeyword)
	}
	return backends
}
