package retrieval

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// FallbackController runs both backend searches under one shared deadline
// and decides which subset of results is usable. Backend failures degrade
// the result set; they never fail the request.
type FallbackController struct {
	vector   VectorSearcher
	keyword  KeywordSearcher
	health   *HealthTracker
	deadline time.Duration
	logger   *slog.Logger
}

// NewFallbackController wires the two backends with a shared deadline.
// A nil health tracker gets a fresh one; a nil logger uses the default.
func NewFallbackController(vector VectorSearcher, keyword KeywordSearcher, deadline time.Duration, health *HealthTracker, logger *slog.Logger) *FallbackController {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	if health == nil {
		health = NewHealthTracker()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackController{
		vector:   vector,
		keyword:  keyword,
		health:   health,
		deadline: deadline,
		logger:   logger,
	}
}

// Health exposes the controller's tracker for observability.
func (f *FallbackController) Health() *HealthTracker {
	return f.health
}

// backendOutcome is the tagged result of one backend attempt.
// Exactly one of candidates or err is meaningful; a successful call with
// zero candidates is a normal empty result, not a failure.
type backendOutcome struct {
	backend    Backend
	candidates []*Candidate
	err        error
}

func (o *backendOutcome) ok() bool {
	return o.err == nil
}

// Outcome is the controller's decision after both attempts complete.
type Outcome struct {
	// Vector and Keyword hold the surviving tenant-scoped candidates.
	// A failed backend contributes nil.
	Vector  []*Candidate
	Keyword []*Candidate

	// Tier classifies the outcome: both, vector_only, keyword_only, none.
	Tier Tier

	// VectorErr and KeywordErr record per-backend failures for logging.
	// They are never surfaced to the engine's caller.
	VectorErr  error
	KeywordErr error
}

// Run launches both backend searches concurrently under the shared
// deadline, awaits both, and classifies the outcome. It never returns an
// error; total failure is expressed as TierNone.
func (f *FallbackController) Run(ctx context.Context, q *Query, k int) *Outcome {
	callCtx, cancel := context.WithTimeout(ctx, f.deadline)
	defer cancel()

	var vecOut, keyOut *backendOutcome

	g, gctx := errgroup.WithContext(callCtx)
	g.Go(func() error {
		vecOut = f.attempt(gctx, BackendVector, func(ctx context.Context) ([]*Candidate, error) {
			return f.vector.Search(ctx, q.TenantID, q.Text, q.Filter, k)
		})
		return nil
	})
	g.Go(func() error {
		keyOut = f.attempt(gctx, BackendKeyword, func(ctx context.Context) ([]*Candidate, error) {
			return f.keyword.Search(ctx, q.TenantID, q.Text, q.Filter, k)
		})
		return nil
	})
	_ = g.Wait()

	f.record(q.TenantID, vecOut)
	f.record(q.TenantID, keyOut)

	out := &Outcome{
		VectorErr:  vecOut.err,
		KeywordErr: keyOut.err,
	}
	if vecOut.ok() {
		out.Vector = f.filterTenant(q.TenantID, vecOut.candidates, BackendVector)
	}
	if keyOut.ok() {
		out.Keyword = f.filterTenant(q.TenantID, keyOut.candidates, BackendKeyword)
	}

	switch {
	case vecOut.ok() && keyOut.ok():
		out.Tier = TierBoth
	case vecOut.ok():
		out.Tier = TierVectorOnly
	case keyOut.ok():
		out.Tier = TierKeywordOnly
	default:
		out.Tier = TierNone
	}
	return out
}

// attempt runs one backend search in its own goroutine. If the shared
// deadline elapses first, the attempt resolves to a timeout immediately and
// any late result is dropped on the buffered channel, never merged.
func (f *FallbackController) attempt(ctx context.Context, backend Backend, search func(context.Context) ([]*Candidate, error)) *backendOutcome {
	done := make(chan *backendOutcome, 1)

	go func() {
		candidates, err := search(ctx)
		if err != nil {
			done <- &backendOutcome{backend: backend, err: f.classify(backend, err)}
			return
		}
		done <- &backendOutcome{backend: backend, candidates: candidates}
	}()

	select {
	case out := <-done:
		return out
	case <-ctx.Done():
		return &backendOutcome{backend: backend, err: TimeoutError(backend, ctx.Err())}
	}
}

// classify maps a raw backend error onto the timeout/unavailable taxonomy.
// Errors already carrying a code pass through unchanged.
func (f *FallbackController) classify(backend Backend, err error) error {
	if IsTimeout(err) || IsUnavailable(err) || IsTenantNotFound(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return TimeoutError(backend, err)
	}
	return UnavailableError(backend, err)
}

// record updates health counters and logs degradation.
func (f *FallbackController) record(tenantID string, out *backendOutcome) {
	if out.ok() {
		f.health.RecordSuccess(out.backend)
		return
	}
	failures := f.health.RecordFailure(out.backend)
	f.logger.Warn("backend degraded",
		slog.String("tenant_id", tenantID),
		slog.String("backend", string(out.backend)),
		slog.Int64("consecutive_failures", failures),
		slog.Bool("timeout", IsTimeout(out.err)),
		slog.String("error", out.err.Error()))
}

// filterTenant drops candidates that do not belong to the query's tenant
// and stamps the backend tag. Cross-tenant leakage from a misbehaving
// backend is a correctness violation, so the check is unconditional.
func (f *FallbackController) filterTenant(tenantID string, candidates []*Candidate, backend Backend) []*Candidate {
	filtered := make([]*Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if c.TenantID != tenantID {
			f.logger.Error("cross-tenant candidate dropped",
				slog.String("tenant_id", tenantID),
				slog.String("candidate_tenant_id", c.TenantID),
				slog.String("doc_id", c.DocID),
				slog.String("backend", string(backend)))
			continue
		}
		c.Backend = backend
		filtered = append(filtered, c)
	}
	return filtered
}
