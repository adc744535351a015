package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kestrel-search/kestrel/internal/telemetry"
)

// Engine is the hybrid retrieval entry point. It validates queries, drives
// the fallback controller, fuses surviving candidates, and enriches the
// final results with display metadata.
type Engine struct {
	fallback *FallbackController
	fuser    *ResultFuser
	metadata MetadataProvider
	metrics  *telemetry.QueryMetrics
	config   EngineConfig
	logger   *slog.Logger
}

// EngineOption configures the engine.
type EngineOption func(*Engine)

// WithMetadataProvider enables display-metadata enrichment of final
// results. Enrichment is best effort and only runs for the K documents
// that survive fusion.
func WithMetadataProvider(p MetadataProvider) EngineOption {
	return func(e *Engine) {
		e.metadata = p
	}
}

// WithMetrics sets an optional telemetry collector. When set, per-query
// tier, latency, and backend failures are recorded.
func WithMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithHealthTracker injects a shared health tracker.
func WithHealthTracker(h *HealthTracker) EngineOption {
	return func(e *Engine) {
		e.fallback.health = h
	}
}

// NewEngine creates a hybrid retrieval engine over the two backends.
func NewEngine(vector VectorSearcher, keyword KeywordSearcher, config EngineConfig, opts ...EngineOption) (*Engine, error) {
	if vector == nil {
		return nil, fmt.Errorf("vector searcher is required")
	}
	if keyword == nil {
		return nil, fmt.Errorf("keyword searcher is required")
	}
	config = applyConfigDefaults(config)

	e := &Engine{
		fuser:  NewResultFuser(config.Weights),
		config: config,
		logger: slog.Default(),
	}
	e.fallback = NewFallbackController(vector, keyword, config.Deadline, nil, e.logger)

	for _, opt := range opts {
		opt(e)
	}
	e.fallback.logger = e.logger
	return e, nil
}

func applyConfigDefaults(config EngineConfig) EngineConfig {
	if config.Weights.Vector <= 0 || config.Weights.Keyword <= 0 {
		config.Weights = DefaultWeights()
	}
	if config.Deadline <= 0 {
		config.Deadline = DefaultDeadline
	}
	if config.DefaultK <= 0 {
		config.DefaultK = DefaultK
	}
	if config.MaxK <= 0 {
		config.MaxK = MaxK
	}
	return config
}

// Health exposes the backend health counters for observability.
func (e *Engine) Health() HealthSnapshot {
	return e.fallback.Health().Snapshot()
}

// Search answers a query by fusing concurrent vector and keyword searches.
//
// The returned error is non-nil only for input-validation failures.
// Backend failures degrade the tier instead: a single failure yields
// vector_only or keyword_only, and total failure yields an empty list with
// tier none, so callers can distinguish "searched, found nothing" from
// "could not search."
func (e *Engine) Search(ctx context.Context, q *Query) ([]*FusedResult, Tier, error) {
	start := time.Now()

	k, err := e.validate(q)
	if err != nil {
		return nil, TierNone, err
	}

	// Both backends are asked for k candidates each; fusion dedupes and
	// truncates back down to k.
	outcome := e.fallback.Run(ctx, q, k)
	e.recordBackendFailures(outcome)

	results := e.fuser.Fuse(outcome.Vector, outcome.Keyword, k)

	if e.metadata != nil && len(results) > 0 {
		e.enrich(ctx, q.TenantID, results)
	}

	latency := time.Since(start)
	if e.metrics != nil {
		e.metrics.RecordQuery(telemetry.QueryEvent{
			TenantID:    q.TenantID,
			Tier:        string(outcome.Tier),
			ResultCount: len(results),
			Latency:     latency,
		})
	}

	e.logger.Debug("search completed",
		slog.String("tenant_id", q.TenantID),
		slog.String("tier", string(outcome.Tier)),
		slog.Int("results", len(results)),
		slog.Duration("latency", latency))

	return results, outcome.Tier, nil
}

// validate checks the query and resolves the effective K.
// K=0 means "use the default"; anything else outside [1, MaxK] is rejected.
func (e *Engine) validate(q *Query) (int, error) {
	if q == nil {
		return 0, InvalidQueryError("query is required")
	}
	if strings.TrimSpace(q.TenantID) == "" {
		return 0, InvalidQueryError("tenant ID is required")
	}
	if strings.TrimSpace(q.Text) == "" {
		return 0, InvalidQueryError("query text must not be empty")
	}

	k := q.K
	if k == 0 {
		k = e.config.DefaultK
	}
	if k < 1 || k > e.config.MaxK {
		return 0, InvalidQueryError(
			fmt.Sprintf("result count %d out of range [1, %d]", q.K, e.config.MaxK))
	}
	return k, nil
}

func (e *Engine) recordBackendFailures(outcome *Outcome) {
	if e.metrics == nil {
		return
	}
	if outcome.VectorErr != nil {
		e.metrics.RecordBackendFailure(string(BackendVector))
	}
	if outcome.KeywordErr != nil {
		e.metrics.RecordBackendFailure(string(BackendKeyword))
	}
}

// enrich fills in display metadata for the final results. Failures are
// logged and the results returned without metadata.
func (e *Engine) enrich(ctx context.Context, tenantID string, results []*FusedResult) {
	docIDs := make([]string, len(results))
	for i, r := range results {
		docIDs[i] = r.DocID
	}

	metas, err := e.metadata.GetMetadata(ctx, tenantID, docIDs)
	if err != nil {
		e.logger.Warn("metadata enrichment failed",
			slog.String("tenant_id", tenantID),
			slog.String("error", err.Error()))
		return
	}

	for _, r := range results {
		if meta, ok := metas[r.DocID]; ok {
			r.Title = meta.Title
			r.Source = meta.Source
			r.Timestamp = meta.Timestamp
		}
	}
}
