// Package retrieval implements the hybrid retrieval engine: concurrent
// vector and keyword searches over tenant-scoped indices, weighted score
// fusion, and tiered fallback when a backend fails or misses the deadline.
package retrieval

import (
	"context"
	"time"
)

// Backend identifies which search path produced a candidate.
type Backend string

const (
	// BackendVector is the vector-similarity search path.
	BackendVector Backend = "vector"
	// BackendKeyword is the full-text keyword search path.
	BackendKeyword Backend = "keyword"
)

// Tier classifies a response by which backends contributed.
type Tier string

const (
	// TierBoth means both backends returned in time.
	TierBoth Tier = "both"
	// TierVectorOnly means the keyword backend failed or timed out.
	TierVectorOnly Tier = "vector_only"
	// TierKeywordOnly means the vector backend failed or timed out.
	TierKeywordOnly Tier = "keyword_only"
	// TierNone means both backends failed. The response is empty but
	// carries no error; callers distinguish it from "zero matches" by tier.
	TierNone Tier = "none"
)

// Filter restricts a search to matching documents. Filters are passed
// through to both backends and evaluated there, never post-applied.
type Filter struct {
	DocType  string    // Exact document type match
	Tags     []string  // Document must carry all listed tags
	DateFrom time.Time // Inclusive lower bound; zero = unbounded
	DateTo   time.Time // Inclusive upper bound; zero = unbounded
}

// IsZero reports whether the filter restricts nothing.
func (f *Filter) IsZero() bool {
	return f == nil ||
		(f.DocType == "" && len(f.Tags) == 0 && f.DateFrom.IsZero() && f.DateTo.IsZero())
}

// Query is one retrieval request. Queries are request-scoped values,
// constructed fresh per call and never mutated.
type Query struct {
	// TenantID names the tenant whose indices are searched. Required.
	TenantID string

	// UserID identifies the requesting user. Informational.
	UserID string

	// Text is the free-text query. Required, non-blank.
	Text string

	// Filter optionally restricts matching documents.
	Filter *Filter

	// K is the requested result count. Zero means the engine default;
	// otherwise it must be within [1, MaxK].
	K int

	// DisablePersonalization is accepted for API compatibility with the
	// surrounding service layer. The engine does not personalize.
	DisablePersonalization bool
}

// Candidate is a single backend's proposed match, prior to fusion.
type Candidate struct {
	// DocID is the document identifier, unique within a tenant.
	DocID string

	// TenantID is the tenant the document belongs to. The fallback
	// controller drops candidates whose tenant differs from the query's.
	TenantID string

	// Score is the raw backend-native score. Vector and keyword scores
	// are not numerically comparable; the fuser normalizes per list.
	Score float64

	// Backend tags the originating search path.
	Backend Backend

	// Display metadata echoed by the backend, if it has it handy.
	Title     string
	Source    string
	Timestamp time.Time
}

// FusedResult is a post-fusion, deduplicated, ranked document entry.
type FusedResult struct {
	// DocID is the document identifier.
	DocID string

	// Score is the combined weighted score.
	Score float64

	// Backends lists which backends contributed, for transparency.
	// Informational only.
	Backends []Backend

	// Rank is the 0-based position within the response.
	Rank int

	// Display metadata, populated after fusion for the final K only.
	Title     string
	Source    string
	Timestamp time.Time
}

// Weights are the fusion weights applied to normalized backend scores.
// They need not sum to 1.
type Weights struct {
	Vector  float64
	Keyword float64
}

// DefaultWeights returns the standard fusion weights.
func DefaultWeights() Weights {
	return Weights{Vector: 0.6, Keyword: 0.4}
}

// Engine defaults.
const (
	// DefaultDeadline bounds both backend calls per request.
	DefaultDeadline = 500 * time.Millisecond

	// DefaultK is the result count used when the query leaves K at zero.
	DefaultK = 10

	// MaxK is the largest permitted result count.
	MaxK = 100
)

// EngineConfig configures the hybrid retrieval engine.
type EngineConfig struct {
	// Weights are the fusion weights.
	Weights Weights

	// Deadline is the shared per-request deadline for both backends.
	Deadline time.Duration

	// DefaultK is used when a query requests zero results.
	DefaultK int

	// MaxK caps the requested result count.
	MaxK int
}

// DefaultEngineConfig returns the standard engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Weights:  DefaultWeights(),
		Deadline: DefaultDeadline,
		DefaultK: DefaultK,
		MaxK:     MaxK,
	}
}

// VectorSearcher issues a similarity query against a tenant-scoped vector
// index. Implementations must honor ctx cancellation promptly and return
// candidates for the named tenant only.
type VectorSearcher interface {
	Search(ctx context.Context, tenantID, queryText string, filter *Filter, k int) ([]*Candidate, error)
}

// KeywordSearcher issues a full-text query against a tenant-scoped keyword
// index, under the same contract as VectorSearcher.
type KeywordSearcher interface {
	Search(ctx context.Context, tenantID, queryText string, filter *Filter, k int) ([]*Candidate, error)
}

// DocumentMeta is display metadata attached to final results.
type DocumentMeta struct {
	Title     string
	Source    string
	Timestamp time.Time
}

// MetadataProvider fetches display metadata for final results. It is
// consulted only for the K documents that survive fusion.
type MetadataProvider interface {
	GetMetadata(ctx context.Context, tenantID string, docIDs []string) (map[string]*DocumentMeta, error)
}
