package analyzer

import (
	"context"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

// SimilarityIndex stores schema vectors and answers nearest-neighbor queries.
// Implementations degrade to empty results instead of failing.
type SimilarityIndex interface {
	KeyFor(tableID string) string
	Upsert(ctx context.Context, rec domain.SchemaEmbeddingRecord) bool
	Query(ctx context.Context, vector []float32, topK int, excludeTableID string) []domain.SimilarSchema
	GetByKey(ctx context.Context, key string) (domain.SchemaEmbeddingRecord, bool)
	FindByPayloadField(ctx context.Context, field, value string) (domain.SchemaEmbeddingRecord, bool)
}

// Embedder vectorizes schema text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// TextGenerator answers prompts.
type TextGenerator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (string, error)
}
