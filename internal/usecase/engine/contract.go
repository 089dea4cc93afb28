package engine

import (
	"context"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
	"github.com/kailas-cloud/tableadvisor/internal/usecase/analyzer"
)

// RuleSet evaluates heuristics for one table.
type RuleSet interface {
	Evaluate(table *domain.TableMetadata, queries []domain.QueryRecord) []domain.Recommendation
}

// QueryAnalyzer runs model-assisted analysis for one query.
type QueryAnalyzer interface {
	Analyze(ctx context.Context, q *domain.QueryRecord, tables map[string]*domain.TableMetadata) []domain.Recommendation
}

// ParserStats reports which parser tiers resolved model responses.
type ParserStats interface {
	ParserTiers() map[analyzer.ParseTier]int
}

// EmbeddingStats reports which embedding tiers fired.
type EmbeddingStats interface {
	Fired() map[domain.EmbeddingTier]int
}

// IndexStats reports similarity index degradation.
type IndexStats interface {
	Degraded() int64
}

// GenerationStats reports whether the text-generation service answered.
type GenerationStats interface {
	Available() bool
}
