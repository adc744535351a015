package backend

import (
	"context"
	"errors"

	"github.com/kestrel-search/kestrel/internal/retrieval"
	"github.com/kestrel-search/kestrel/internal/store"
)

// KeywordClient adapts a tenant's bleve index to the engine's
// KeywordSearcher contract.
type KeywordClient struct {
	registry *Registry
}

var _ retrieval.KeywordSearcher = (*KeywordClient)(nil)

// NewKeywordClient creates the keyword search adapter.
func NewKeywordClient(registry *Registry) *KeywordClient {
	return &KeywordClient{registry: registry}
}

// Search runs the full-text query against the tenant's keyword index.
// An unknown tenant is an error; a registered tenant with no matching
// documents is a normal empty result.
func (c *KeywordClient) Search(ctx context.Context, tenantID, queryText string, filter *retrieval.Filter, k int) ([]*retrieval.Candidate, error) {
	tenant, err := c.registry.Get(tenantID)
	if err != nil {
		return nil, retrieval.TenantNotFoundError(tenantID)
	}

	hits, err := tenant.Keyword.Search(ctx, queryText, toStoreFilter(filter), k)
	if err != nil {
		return nil, classifyBackendErr(retrieval.BackendKeyword, err)
	}

	candidates := make([]*retrieval.Candidate, len(hits))
	for i, hit := range hits {
		candidates[i] = &retrieval.Candidate{
			DocID:    hit.DocID,
			TenantID: tenantID,
			Score:    hit.Score,
			Backend:  retrieval.BackendKeyword,
		}
	}
	return candidates, nil
}

// toStoreFilter converts the engine's filter into the store layer's.
func toStoreFilter(f *retrieval.Filter) *store.Filter {
	if f.IsZero() {
		return nil
	}
	return &store.Filter{
		DocType:  f.DocType,
		Tags:     f.Tags,
		DateFrom: f.DateFrom,
		DateTo:   f.DateTo,
	}
}

// classifyBackendErr maps raw index errors onto the timeout/unavailable
// taxonomy the fallback controller logs against.
func classifyBackendErr(backend retrieval.Backend, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return retrieval.TimeoutError(backend, err)
	}
	return retrieval.UnavailableError(backend, err)
}
