package backend

import (
	"context"

	"github.com/kestrel-search/kestrel/internal/retrieval"
	"github.com/kestrel-search/kestrel/internal/store"
)

// MetadataClient adapts the SQLite metadata store to the engine's
// MetadataProvider contract.
type MetadataClient struct {
	store store.MetadataStore
}

var _ retrieval.MetadataProvider = (*MetadataClient)(nil)

// NewMetadataClient creates the metadata adapter.
func NewMetadataClient(s store.MetadataStore) *MetadataClient {
	return &MetadataClient{store: s}
}

// GetMetadata fetches display metadata for the given documents.
func (c *MetadataClient) GetMetadata(ctx context.Context, tenantID string, docIDs []string) (map[string]*retrieval.DocumentMeta, error) {
	metas, err := c.store.GetDocuments(ctx, tenantID, docIDs)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*retrieval.DocumentMeta, len(metas))
	for id, m := range metas {
		out[id] = &retrieval.DocumentMeta{
			Title:     m.Title,
			Source:    m.Source,
			Timestamp: m.Timestamp,
		}
	}
	return out, nil
}
