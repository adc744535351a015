package store

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Indexed field names.
const (
	fieldContent   = "content"
	fieldTitle     = "title"
	fieldDocType   = "doc_type"
	fieldTags      = "tags"
	fieldTimestamp = "timestamp"
)

// BleveKeywordIndex wraps bleve v2 for full-text keyword search.
// Each instance indexes exactly one tenant's documents; tenant isolation is
// structural, not filtered.
type BleveKeywordIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

var _ KeywordIndex = (*BleveKeywordIndex)(nil)

// bleveDocument is the shape handed to bleve for indexing.
type bleveDocument struct {
	Content   string    `json:"content"`
	Title     string    `json:"title"`
	DocType   string    `json:"doc_type"`
	Tags      []string  `json:"tags"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBleveKeywordIndex creates or opens a keyword index.
// An empty path creates an in-memory index.
func NewBleveKeywordIndex(path string) (*BleveKeywordIndex, error) {
	var idx bleve.Index
	var err error

	if path == "" {
		idx, err = bleve.NewMemOnly(buildIndexMapping())
	} else if _, statErr := os.Stat(path); statErr == nil {
		idx, err = bleve.Open(path)
	} else {
		idx, err = bleve.New(path, buildIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("open keyword index: %w", err)
	}

	return &BleveKeywordIndex{index: idx, path: path}, nil
}

// buildIndexMapping defines the document mapping: analyzed text for content
// and title, exact-match keyword fields for doc_type and tags, and a datetime
// field for the timestamp.
func buildIndexMapping() mapping.IndexMapping {
	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	contentField.Store = false

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = standard.Name
	titleField.Store = false

	docTypeField := bleve.NewTextFieldMapping()
	docTypeField.Analyzer = keyword.Name
	docTypeField.Store = false

	tagsField := bleve.NewTextFieldMapping()
	tagsField.Analyzer = keyword.Name
	tagsField.Store = false

	tsField := bleve.NewDateTimeFieldMapping()
	tsField.Store = false

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt(fieldContent, contentField)
	docMapping.AddFieldMappingsAt(fieldTitle, titleField)
	docMapping.AddFieldMappingsAt(fieldDocType, docTypeField)
	docMapping.AddFieldMappingsAt(fieldTags, tagsField)
	docMapping.AddFieldMappingsAt(fieldTimestamp, tsField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name
	return indexMapping
}

// Index adds documents to the index in a single batch.
// Re-indexing an existing ID replaces it.
func (b *BleveKeywordIndex) Index(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("keyword index is closed")
	}

	batch := b.index.NewBatch()
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc := bleveDocument{
			Content:   d.Content,
			Title:     d.Title,
			DocType:   d.DocType,
			Tags:      d.Tags,
			Timestamp: d.Timestamp,
		}
		if err := batch.Index(d.ID, doc); err != nil {
			return fmt.Errorf("batch document %s: %w", d.ID, err)
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("index batch: %w", err)
	}
	return nil
}

// Search returns up to k documents matching the query text and filter,
// ranked by bleve's relevance score.
func (b *BleveKeywordIndex) Search(ctx context.Context, query string, filter *Filter, k int) ([]*KeywordResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("keyword index is closed")
	}
	if k <= 0 {
		return []*KeywordResult{}, nil
	}

	req := bleve.NewSearchRequest(buildQuery(query, filter))
	req.Size = k

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, err
	}
	// SearchInContext can return partial results with a context error attached.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]*KeywordResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		results = append(results, &KeywordResult{
			DocID: hit.ID,
			Score: hit.Score,
		})
	}
	return results, nil
}

// buildQuery compiles the free-text query plus filter into one bleve query.
// Text matches on content or title; filters are conjunctive.
func buildQuery(queryText string, filter *Filter) query.Query {
	contentMatch := bleve.NewMatchQuery(queryText)
	contentMatch.SetField(fieldContent)

	titleMatch := bleve.NewMatchQuery(queryText)
	titleMatch.SetField(fieldTitle)

	textQuery := bleve.NewDisjunctionQuery(contentMatch, titleMatch)

	if filter.IsZero() {
		return textQuery
	}

	conj := bleve.NewConjunctionQuery(textQuery)

	if filter.DocType != "" {
		tq := bleve.NewTermQuery(filter.DocType)
		tq.SetField(fieldDocType)
		conj.AddQuery(tq)
	}

	for _, tag := range filter.Tags {
		tq := bleve.NewTermQuery(tag)
		tq.SetField(fieldTags)
		conj.AddQuery(tq)
	}

	if !filter.DateFrom.IsZero() || !filter.DateTo.IsZero() {
		inclusive := true
		dq := bleve.NewDateRangeInclusiveQuery(filter.DateFrom, filter.DateTo, &inclusive, &inclusive)
		dq.SetField(fieldTimestamp)
		conj.AddQuery(dq)
	}

	return conj
}

// Delete removes documents from the index.
func (b *BleveKeywordIndex) Delete(ctx context.Context, docIDs []string) error {
	if len(docIDs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("keyword index is closed")
	}

	batch := b.index.NewBatch()
	for _, id := range docIDs {
		batch.Delete(id)
	}
	return b.index.Batch(batch)
}

// Count returns the number of indexed documents.
func (b *BleveKeywordIndex) Count() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, fmt.Errorf("keyword index is closed")
	}
	return b.index.DocCount()
}

// Close releases the underlying bleve index.
func (b *BleveKeywordIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}
