package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kestrel-search/kestrel/internal/embed"
	"github.com/kestrel-search/kestrel/internal/store"
)

// Ingestor writes documents into a tenant's keyword index, vector index,
// and the shared metadata store. Documents are embedded in batches.
type Ingestor struct {
	registry  *Registry
	embedder  embed.Embedder
	batchSize int
	logger    *slog.Logger
}

// NewIngestor creates an ingestor over the registry.
func NewIngestor(registry *Registry, embedder embed.Embedder, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		registry:  registry,
		embedder:  embedder,
		batchSize: embed.DefaultBatchSize,
		logger:    logger,
	}
}

// Ingest indexes documents for a tenant, registering the tenant on first
// use. Re-ingesting an existing document ID replaces it everywhere.
func (in *Ingestor) Ingest(ctx context.Context, tenantID string, docs []*store.Document) error {
	if len(docs) == 0 {
		return nil
	}

	tenant, err := in.registry.GetOrCreate(tenantID)
	if err != nil {
		return err
	}

	// Stamp the tenant so downstream filters can rely on it.
	for _, d := range docs {
		d.TenantID = tenantID
	}

	for start := 0; start < len(docs); start += in.batchSize {
		end := start + in.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := in.ingestBatch(ctx, tenant, docs[start:end]); err != nil {
			return err
		}
	}

	in.logger.Info("documents ingested",
		slog.String("tenant_id", tenantID),
		slog.Int("count", len(docs)))
	return nil
}

func (in *Ingestor) ingestBatch(ctx context.Context, tenant *Tenant, docs []*store.Document) error {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}

	vectors, err := in.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}

	if err := tenant.Keyword.Index(ctx, docs); err != nil {
		return fmt.Errorf("index keyword batch: %w", err)
	}
	if err := tenant.Vector.Add(ctx, docs, vectors); err != nil {
		return fmt.Errorf("index vector batch: %w", err)
	}
	if err := in.registry.Metadata().SaveDocuments(ctx, docs); err != nil {
		return fmt.Errorf("save metadata batch: %w", err)
	}
	return nil
}

// Delete removes documents from all three stores.
func (in *Ingestor) Delete(ctx context.Context, tenantID string, docIDs []string) error {
	if len(docIDs) == 0 {
		return nil
	}

	tenant, err := in.registry.Get(tenantID)
	if err != nil {
		return err
	}

	if err := tenant.Keyword.Delete(ctx, docIDs); err != nil {
		return fmt.Errorf("delete from keyword index: %w", err)
	}
	if err := tenant.Vector.Delete(ctx, docIDs); err != nil {
		return fmt.Errorf("delete from vector index: %w", err)
	}
	if err := in.registry.Metadata().DeleteDocuments(ctx, tenantID, docIDs); err != nil {
		return fmt.Errorf("delete metadata: %w", err)
	}
	return nil
}
