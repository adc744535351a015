package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kestrel-search/kestrel/internal/backend"
	"github.com/kestrel-search/kestrel/internal/config"
	"github.com/kestrel-search/kestrel/internal/embed"
	"github.com/kestrel-search/kestrel/internal/retrieval"
	"github.com/kestrel-search/kestrel/internal/telemetry"
)

// app bundles the wired components a command needs.
type app struct {
	cfg      *config.Config
	registry *backend.Registry
	embedder embed.Embedder
	ingestor *backend.Ingestor
	engine   *retrieval.Engine
	metrics  *telemetry.QueryMetrics
}

// buildApp loads configuration and wires the registry, embedder, clients,
// and engine. The returned cleanup closes everything in order.
func buildApp() (*app, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}

	registry, err := backend.NewRegistry(cfg.Storage.DataDir, cfg.Embeddings.Dimensions, slog.Default())
	if err != nil {
		return nil, nil, err
	}

	embedder := embed.NewCachedEmbedder(embed.NewStaticEmbedder(), cfg.Embeddings.CacheSize)

	// Reopen tenants persisted by earlier runs.
	if err := registerExistingTenants(registry, cfg.Storage.DataDir); err != nil {
		_ = embedder.Close()
		_ = registry.Close()
		return nil, nil, err
	}

	metrics := telemetry.NewQueryMetrics()
	engine, err := retrieval.NewEngine(
		backend.NewVectorClient(registry, embedder),
		backend.NewKeywordClient(registry),
		retrieval.EngineConfig{
			Weights: retrieval.Weights{
				Vector:  cfg.Search.VectorWeight,
				Keyword: cfg.Search.KeywordWeight,
			},
			Deadline: cfg.Search.Deadline,
			DefaultK: cfg.Search.DefaultK,
			MaxK:     cfg.Search.MaxK,
		},
		retrieval.WithMetadataProvider(backend.NewMetadataClient(registry.Metadata())),
		retrieval.WithMetrics(metrics),
		retrieval.WithLogger(slog.Default()),
	)
	if err != nil {
		_ = embedder.Close()
		_ = registry.Close()
		return nil, nil, err
	}

	a := &app{
		cfg:      cfg,
		registry: registry,
		embedder: embedder,
		ingestor: backend.NewIngestor(registry, embedder, slog.Default()),
		engine:   engine,
		metrics:  metrics,
	}
	cleanup := func() {
		_ = a.embedder.Close()
		_ = a.registry.Close()
	}
	return a, cleanup, nil
}

// registerExistingTenants reopens every tenant directory found on disk.
func registerExistingTenants(registry *backend.Registry, dataDir string) error {
	if dataDir == "" {
		return nil
	}
	entries, err := os.ReadDir(filepath.Join(dataDir, "tenants"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("scan tenant directories: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := registry.Create(e.Name()); err != nil {
			return fmt.Errorf("reopen tenant %q: %w", e.Name(), err)
		}
	}
	return nil
}

// formatDuration renders a latency for human output.
func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
