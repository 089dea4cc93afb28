package domain

import (
	"context"
	"fmt"
)

// Embedder is the text vectorization contract shared by every embedding tier.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingTier names the strategy that produced a vector.
type EmbeddingTier string

const (
	// TierAPI is a native embeddings endpoint.
	TierAPI EmbeddingTier = "api"
	// TierSemantic is a vector seeded from a model-written summary.
	TierSemantic EmbeddingTier = "semantic"
	// TierHash is the deterministic hash expansion of the raw text.
	TierHash EmbeddingTier = "hash"
)

// EmbeddingResult carries the vector, token usage and the tier that fired.
type EmbeddingResult struct {
	Embedding    []float32
	Tier         EmbeddingTier
	PromptTokens int
	TotalTokens  int
}

// InstructionEmbedder prepends instruction text before embedding.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder creates a decorator that prepends instruction text.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

// Embed prepends instruction and delegates to inner embedder.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.instruction+text)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}

// SchemaPayload is the payload stored next to a schema vector.
type SchemaPayload struct {
	TableID    string
	SchemaText string
	Metadata   map[string]string
}

// SchemaEmbeddingRecord is a keyed schema vector. Re-embedding overwrites by key.
type SchemaEmbeddingRecord struct {
	Key     string
	Vector  []float32
	Payload SchemaPayload
}

// SimilarSchema is one nearest-neighbor hit, best first, score in [0,1].
type SimilarSchema struct {
	Key     string
	Payload SchemaPayload
	Score   float64
}
