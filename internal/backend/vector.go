package backend

import (
	"context"

	"github.com/kestrel-search/kestrel/internal/embed"
	"github.com/kestrel-search/kestrel/internal/retrieval"
)

// VectorClient adapts a tenant's HNSW index to the engine's
// VectorSearcher contract. The query text is embedded on the fly; the
// embedder is expected to be cached so repeated queries stay cheap.
type VectorClient struct {
	registry *Registry
	embedder embed.Embedder
}

var _ retrieval.VectorSearcher = (*VectorClient)(nil)

// NewVectorClient creates the vector search adapter.
func NewVectorClient(registry *Registry, embedder embed.Embedder) *VectorClient {
	return &VectorClient{registry: registry, embedder: embedder}
}

// Search embeds the query text and runs a nearest-neighbor search against
// the tenant's vector index.
func (c *VectorClient) Search(ctx context.Context, tenantID, queryText string, filter *retrieval.Filter, k int) ([]*retrieval.Candidate, error) {
	tenant, err := c.registry.Get(tenantID)
	if err != nil {
		return nil, retrieval.TenantNotFoundError(tenantID)
	}

	queryVec, err := c.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, classifyBackendErr(retrieval.BackendVector, err)
	}

	hits, err := tenant.Vector.Search(ctx, queryVec, toStoreFilter(filter), k)
	if err != nil {
		return nil, classifyBackendErr(retrieval.BackendVector, err)
	}

	candidates := make([]*retrieval.Candidate, len(hits))
	for i, hit := range hits {
		candidates[i] = &retrieval.Candidate{
			DocID:    hit.DocID,
			TenantID: tenantID,
			Score:    float64(hit.Score),
			Backend:  retrieval.BackendVector,
		}
	}
	return candidates, nil
}
