// Package engine runs heuristics and model-assisted analysis over a metadata snapshot and
// aggregates the results.
package engine

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
	"github.com/kailas-cloud/tableadvisor/internal/metrics"
	"github.com/kailas-cloud/tableadvisor/internal/sqlref"
	"github.com/kailas-cloud/tableadvisor/internal/usecase/aggregate"
	"github.com/kailas-cloud/tableadvisor/internal/workerpool"
)

// Options sizes the run.
type Options struct {
	HeuristicWorkers    int
	Workers             int
	QueryTimeout        time.Duration
	QueryLimit          int // most expensive queries sent to the model; 0 disables model analysis
	RecommendationLimit int
	VectorDBEnabled     bool
}

// Engine is the orchestration root. A nil analyzer runs heuristics only.
type Engine struct {
	rules    RuleSet
	analyzer QueryAnalyzer
	opts     Options
	logger   *zap.Logger

	embeddingStats  EmbeddingStats
	indexStats      IndexStats
	generationStats GenerationStats
	progress        func(done, total int)
}

// Option wires an optional status source.
type Option func(*Engine)

// WithEmbeddingStats reports embedding tiers in the run status.
func WithEmbeddingStats(s EmbeddingStats) Option { return func(e *Engine) { e.embeddingStats = s } }

// WithIndexStats reports similarity index degradation in the run status.
func WithIndexStats(s IndexStats) Option { return func(e *Engine) { e.indexStats = s } }

// WithGenerationStats reports text-generation availability in the run status.
func WithGenerationStats(s GenerationStats) Option { return func(e *Engine) { e.generationStats = s } }

// WithProgress receives model-analysis progress as queries finish.
func WithProgress(fn func(done, total int)) Option { return func(e *Engine) { e.progress = fn } }

// New creates an engine.
func New(rules RuleSet, an QueryAnalyzer, opts Options, logger *zap.Logger, options ...Option) *Engine {
	e := &Engine{rules: rules, analyzer: an, opts: opts, logger: logger}
	for _, o := range options {
		o(e)
	}
	return e
}

// Run analyzes the snapshot. Unavailable dependencies degrade the result and are reported
// in Result.Status; only cancellation of ctx is returned as an error.
func (e *Engine) Run(ctx context.Context, snap *domain.Snapshot) (Result, error) {
	res := Result{Tables: len(snap.Tables)}
	snap = withReferences(snap)
	tables := snap.TableByID()

	heuristic, err := e.runHeuristics(ctx, snap)
	if err != nil {
		return res, err
	}
	res.HeuristicCount = len(heuristic)

	var model []domain.Recommendation
	if e.analyzer != nil && e.opts.QueryLimit > 0 {
		queries := selectQueries(snap.Queries, e.opts.QueryLimit)
		model, res.Status.TimedOutQueries = e.runModel(ctx, queries, tables)
		res.QueriesAnalyzed = len(queries)
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("model analysis: %w", err)
		}
	}
	res.ModelCount = len(model)

	start := time.Now()
	res.Recommendations = aggregate.Aggregate(heuristic, model, e.opts.RecommendationLimit)
	metrics.AnalysisDuration.WithLabelValues("aggregate").Observe(time.Since(start).Seconds())
	for _, r := range res.Recommendations {
		metrics.RecommendationsTotal.WithLabelValues(string(r.Category), string(r.Source)).Inc()
	}

	res.Status = e.status(res.Status.TimedOutQueries)
	e.logger.Info("analysis complete",
		zap.Int("tables", res.Tables),
		zap.Int("queries_analyzed", res.QueriesAnalyzed),
		zap.Int("heuristic", res.HeuristicCount),
		zap.Int("model", res.ModelCount),
		zap.Int("recommendations", len(res.Recommendations)),
		zap.Bool("degraded", res.Status.Degraded()))
	return res, nil
}

func (e *Engine) runHeuristics(ctx context.Context, snap *domain.Snapshot) ([]domain.Recommendation, error) {
	start := time.Now()
	defer func() {
		metrics.AnalysisDuration.WithLabelValues("heuristic").Observe(time.Since(start).Seconds())
	}()

	perTable := make([][]domain.Recommendation, len(snap.Tables))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.opts.HeuristicWorkers, 1))
	for i := range snap.Tables {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t := &snap.Tables[i]
			perTable[i] = e.rules.Evaluate(t, snap.QueriesFor(t.Ref))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("heuristics: %w", err)
	}

	var out []domain.Recommendation
	for _, recs := range perTable {
		out = append(out, recs...)
	}
	return out, nil
}

func (e *Engine) runModel(
	ctx context.Context, queries []domain.QueryRecord, tables map[string]*domain.TableMetadata,
) ([]domain.Recommendation, int) {
	start := time.Now()
	defer func() {
		metrics.AnalysisDuration.WithLabelValues("model").Observe(time.Since(start).Seconds())
	}()

	pool := workerpool.New(workerpool.Config{Workers: e.opts.Workers, ItemTimeout: e.opts.QueryTimeout}, e.logger)
	items := make([]workerpool.Item[[]domain.Recommendation], len(queries))
	for i := range queries {
		q := &queries[i]
		items[i] = workerpool.Item[[]domain.Recommendation]{
			ID: queryLabel(q, i),
			Run: func(ctx context.Context) ([]domain.Recommendation, error) {
				return e.analyzer.Analyze(ctx, q, tables), nil
			},
		}
	}

	results := workerpool.Run(ctx, pool, items, func(done, total int) {
		e.logger.Debug("model analysis progress", zap.Int("done", done), zap.Int("total", total))
		if e.progress != nil {
			e.progress(done, total)
		}
	})

	var out []domain.Recommendation
	timedOut := 0
	for _, r := range results {
		if r.TimedOut {
			timedOut++
			metrics.QueryTimeoutsTotal.Inc()
			e.logger.Warn("query analysis timed out, keeping heuristic results only", zap.String("query", r.ID))
			continue
		}
		out = append(out, r.Value...)
	}
	return out, timedOut
}

func (e *Engine) status(timedOut int) Status {
	s := Status{
		LLMEnabled:      e.analyzer != nil && e.opts.QueryLimit > 0,
		VectorDBEnabled: e.opts.VectorDBEnabled,
		TimedOutQueries: timedOut,
	}
	s.GenerationAvailable = s.LLMEnabled
	if e.generationStats != nil && s.LLMEnabled {
		s.GenerationAvailable = e.generationStats.Available()
	}
	if e.indexStats != nil {
		s.IndexDegradedOps = e.indexStats.Degraded()
	}
	if e.embeddingStats != nil {
		s.EmbeddingTiers = e.embeddingStats.Fired()
	}
	if ps, ok := e.analyzer.(ParserStats); ok {
		s.ParserTiers = ps.ParserTiers()
	}
	return s
}

// withReferences fills in table references for queries that arrived without them, so the
// per-table query slices see every query naming the table. The input is not modified.
func withReferences(snap *domain.Snapshot) *domain.Snapshot {
	out := &domain.Snapshot{Tables: snap.Tables, Queries: slices.Clone(snap.Queries)}
	for i := range out.Queries {
		if len(out.Queries[i].Tables) == 0 {
			out.Queries[i].Tables = sqlref.Extract(out.Queries[i].Text)
		}
	}
	return out
}

// selectQueries picks the limit most expensive queries by total bytes scanned.
func selectQueries(queries []domain.QueryRecord, limit int) []domain.QueryRecord {
	sorted := slices.Clone(queries)
	slices.SortStableFunc(sorted, func(a, b domain.QueryRecord) int {
		return cmp.Compare(b.BytesScanned, a.BytesScanned)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func queryLabel(q *domain.QueryRecord, i int) string {
	if q.ID != "" {
		return q.ID
	}
	return fmt.Sprintf("query-%d", i)
}
