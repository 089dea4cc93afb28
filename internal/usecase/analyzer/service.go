// Package analyzer asks a text-generation model for recommendations about one query,
// using the target table schema and structurally similar schemas as context.
package analyzer

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
	"github.com/kailas-cloud/tableadvisor/internal/metrics"
	"github.com/kailas-cloud/tableadvisor/internal/sqlref"
)

// payloadTableID is the payload field used for lookups when the key scheme misses.
const payloadTableID = "table_id"

// Options tunes prompt construction and generation.
type Options struct {
	Temperature      float32
	MaxTokens        int
	SimilarityTopK   int
	PromptCharBudget int
}

// Service is the Model-Assisted Analyzer. It is safe for concurrent use.
type Service struct {
	index  SimilarityIndex
	embed  Embedder
	gen    TextGenerator
	opts   Options
	logger *zap.Logger

	mu    sync.Mutex
	tiers map[ParseTier]int
}

// New creates an analyzer.
func New(index SimilarityIndex, embed Embedder, gen TextGenerator, opts Options, logger *zap.Logger) *Service {
	return &Service{
		index:  index,
		embed:  embed,
		gen:    gen,
		opts:   opts,
		logger: logger,
		tiers:  make(map[ParseTier]int),
	}
}

// Analyze returns the model's recommendations for one query. A failed generation call
// yields nil; a received but unparseable response yields exactly one Low recommendation.
func (s *Service) Analyze(
	ctx context.Context, q *domain.QueryRecord, tables map[string]*domain.TableMetadata,
) []domain.Recommendation {
	targets, ids := s.resolve(q, tables)
	primary := ids[0]

	var similar []domain.SimilarSchema
	if len(targets) > 0 {
		if vec := s.schemaVector(ctx, targets[0]); len(vec) > 0 {
			similar = s.index.Query(ctx, vec, s.opts.SimilarityTopK, primary)
		}
	}

	resp, err := s.gen.Generate(ctx, domain.GenerationRequest{
		System:      systemPrompt,
		Prompt:      buildPrompt(q, targets, similar, s.opts.PromptCharBudget),
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	})
	if err != nil {
		s.logger.Warn("model analysis skipped",
			zap.String("query_id", q.ID), zap.String("table", primary), zap.Error(err))
		return nil
	}

	cands, tier := Parse(resp)
	s.recordTier(tier)
	if tier == TierFallback {
		s.logger.Info("model response unparseable, using generic recommendation",
			zap.String("query_id", q.ID), zap.Int("response_len", len(resp)))
		rec := inconclusive(primary, resp)
		rec.QueryID = q.ID
		return []domain.Recommendation{rec}
	}

	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}

	out := make([]domain.Recommendation, 0, len(cands))
	for _, c := range cands {
		tableID := primary
		if t, ok := tables[sqlref.Clean(c.Table)]; ok && known[t.ID()] {
			tableID = t.ID()
		}
		rec := toRecommendation(c, tableID)
		rec.QueryID = q.ID
		out = append(out, rec)
	}
	s.logger.Debug("model analysis done",
		zap.String("query_id", q.ID), zap.String("tier", string(tier)),
		zap.Int("similar", len(similar)), zap.Int("recommendations", len(out)))
	return out
}

// ParserTiers returns how many responses each parser tier resolved.
func (s *Service) ParserTiers() map[ParseTier]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[ParseTier]int, len(s.tiers))
	for k, v := range s.tiers {
		out[k] = v
	}
	return out
}

func (s *Service) recordTier(t ParseTier) {
	metrics.ParserTierTotal.WithLabelValues(string(t)).Inc()
	s.mu.Lock()
	s.tiers[t]++
	s.mu.Unlock()
}

// resolve finds the query's tables: the explicit list first, else FROM/JOIN references in
// the text. Known tables win over unknown references; with nothing at all the sentinel
// identifier is used. ids is never empty.
func (s *Service) resolve(
	q *domain.QueryRecord, tables map[string]*domain.TableMetadata,
) (targets []*domain.TableMetadata, ids []string) {
	var refs []string
	for _, t := range q.Tables {
		if ref := sqlref.Clean(t); sqlref.IsTableRef(ref) {
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		refs = sqlref.Extract(q.Text)
	}

	seen := make(map[string]bool)
	for _, ref := range refs {
		t, ok := tables[ref]
		if !ok || seen[t.ID()] {
			continue
		}
		seen[t.ID()] = true
		targets = append(targets, t)
		ids = append(ids, t.ID())
	}
	switch {
	case len(ids) > 0:
	case len(refs) > 0:
		ids = refs[:1]
	default:
		ids = []string{domain.UnknownTable}
	}
	return targets, ids
}

// schemaVector returns the stored vector for the table, re-embedding when it is missing
// or its schema text changed since it was stored.
func (s *Service) schemaVector(ctx context.Context, t *domain.TableMetadata) []float32 {
	id := t.ID()
	text := domain.SchemaText(t)
	key := s.index.KeyFor(id)

	if rec, ok := s.index.GetByKey(ctx, key); ok && rec.Payload.SchemaText == text && len(rec.Vector) > 0 {
		return rec.Vector
	}
	if rec, ok := s.index.FindByPayloadField(ctx, payloadTableID, id); ok &&
		rec.Payload.SchemaText == text && len(rec.Vector) > 0 {
		return rec.Vector
	}

	res, err := s.embed.Embed(ctx, text)
	if err != nil {
		s.logger.Warn("schema embedding failed", zap.String("table", id), zap.Error(err))
		return nil
	}
	s.index.Upsert(ctx, domain.SchemaEmbeddingRecord{
		Key:    key,
		Vector: res.Embedding,
		Payload: domain.SchemaPayload{
			TableID:    id,
			SchemaText: text,
			Metadata:   schemaMetadata(t),
		},
	})
	return res.Embedding
}

func schemaMetadata(t *domain.TableMetadata) map[string]string {
	return map[string]string{
		"size_gb":     fmt.Sprintf("%.2f", t.SizeGB()),
		"num_rows":    strconv.FormatInt(t.NumRows, 10),
		"columns":     strconv.Itoa(len(t.Columns)),
		"partitioned": strconv.FormatBool(t.IsPartitioned()),
		"clustered":   strconv.FormatBool(t.IsClustered()),
	}
}
