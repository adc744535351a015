// Package store provides the tenant-scoped search indices (bleve keyword,
// HNSW vector) and SQLite metadata persistence backing the retrieval engine.
package store

import (
	"context"
	"fmt"
	"time"
)

// Document is a retrievable unit as handed to the indices at ingestion time.
type Document struct {
	ID        string    // Unique within a tenant
	TenantID  string    // Owning tenant
	Title     string    // Display title
	Source    string    // Origin identifier (URL, path, system name)
	Content   string    // Full text used for keyword and vector indexing
	DocType   string    // Document type for filtering (e.g. "note", "ticket")
	Tags      []string  // Free-form tags for filtering
	Timestamp time.Time // Document time for date-range filtering
}

// DocumentMeta is the display metadata echoed on final results.
type DocumentMeta struct {
	DocID     string
	Title     string
	Source    string
	Timestamp time.Time
}

// Filter restricts a search to matching documents.
// Zero values mean "no restriction" for each field.
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

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	DocID string
	Score float64
}

// VectorResult is a single vector search hit.
type VectorResult struct {
	DocID    string
	Distance float32 // Raw distance (0-2 for cosine); lower is more similar
	Score    float32 // Normalized similarity (0-1); higher is more similar
}

// KeywordIndex provides full-text search over one tenant's documents.
type KeywordIndex interface {
	// Index adds documents to the index, replacing existing IDs.
	Index(ctx context.Context, docs []*Document) error

	// Search returns up to k documents matching the query and filter.
	Search(ctx context.Context, query string, filter *Filter, k int) ([]*KeywordResult, error)

	// Delete removes documents from the index.
	Delete(ctx context.Context, docIDs []string) error

	// Count returns the number of indexed documents.
	Count() (uint64, error)

	// Close releases index resources.
	Close() error
}

// VectorIndex provides similarity search over one tenant's embeddings.
type VectorIndex interface {
	// Add inserts document vectors. Existing IDs are replaced.
	Add(ctx context.Context, docs []*Document, vectors [][]float32) error

	// Search finds the k nearest documents matching the filter.
	Search(ctx context.Context, query []float32, filter *Filter, k int) ([]*VectorResult, error)

	// Delete removes vectors by document ID.
	Delete(ctx context.Context, docIDs []string) error

	// Count returns the number of stored vectors.
	Count() int

	// Persistence
	Save(path string) error
	Load(path string) error
	Close() error
}

// MetadataStore persists display metadata, fetched only for final results.
type MetadataStore interface {
	SaveDocuments(ctx context.Context, docs []*Document) error
	GetDocuments(ctx context.Context, tenantID string, docIDs []string) (map[string]*DocumentMeta, error)
	DeleteDocuments(ctx context.Context, tenantID string, docIDs []string) error
	Close() error
}

// VectorConfig configures the vector index.
type VectorConfig struct {
	// Dimensions is the vector dimension.
	Dimensions int

	// Metric is the distance metric: "cos" (cosine) or "l2" (euclidean).
	Metric string

	// M is HNSW max connections per layer.
	M int

	// EfSearch is HNSW query-time search width.
	EfSearch int
}

// DefaultVectorConfig returns sensible defaults for the vector index.
func DefaultVectorConfig(dimensions int) VectorConfig {
	return VectorConfig{
		Dimensions: dimensions,
		Metric:     "cos",
		M:          16,
		EfSearch:   20,
	}
}

// ErrDimensionMismatch indicates a vector dimension mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// matchesFilter reports whether a document's attributes satisfy the filter.
// Used by the vector index, which filters after the nearest-neighbor pass.
func matchesFilter(f *Filter, docType string, tags []string, ts time.Time) bool {
	if f.IsZero() {
		return true
	}
	if f.DocType != "" && f.DocType != docType {
		return false
	}
	if len(f.Tags) > 0 {
		have := make(map[string]bool, len(tags))
		for _, tag := range tags {
			have[tag] = true
		}
		for _, want := range f.Tags {
			if !have[want] {
				return false
			}
		}
	}
	if !f.DateFrom.IsZero() && ts.Before(f.DateFrom) {
		return false
	}
	if !f.DateTo.IsZero() && ts.After(f.DateTo) {
		return false
	}
	return true
}
