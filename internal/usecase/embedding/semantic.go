package embedding

import (
	"context"
	"crypto/md5" //nolint:gosec // seed derivation, not security
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

const summaryPrompt = "Summarize this text in a few key points, focusing on the main concepts:\n\n"

// Blend weights between the summary-seeded and raw-text-seeded vectors.
const (
	summaryWeight = 0.7
	rawWeight     = 0.3
)

// SemanticEmbedder asks the text generator for a short summary and seeds a vector from it.
// Texts with the same summary land close together; the raw-text component keeps them distinct.
type SemanticEmbedder struct {
	gen         domain.TextGenerator
	dim         int
	temperature float32
	maxTokens   int
}

// NewSemanticEmbedder creates the summary-seeded tier.
func NewSemanticEmbedder(gen domain.TextGenerator, dim int, temperature float32, maxTokens int) *SemanticEmbedder {
	return &SemanticEmbedder{gen: gen, dim: dim, temperature: temperature, maxTokens: maxTokens}
}

// Embed fails when the summary cannot be produced; the chain then falls through to the hash tier.
func (s *SemanticEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	summary, err := s.gen.Generate(ctx, domain.GenerationRequest{
		Prompt:      summaryPrompt + text,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("summarize: %w", err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return domain.EmbeddingResult{}, fmt.Errorf("summarize: %w", domain.ErrEmptyResponse)
	}

	return domain.EmbeddingResult{
		Embedding: summaryVector(summary, text, s.dim),
		Tier:      domain.TierSemantic,
	}, nil
}

func summaryVector(summary, text string, dim int) []float32 {
	sd := md5.Sum([]byte(summary)) //nolint:gosec // seed derivation, not security
	rd := sha256.Sum256([]byte(text))
	v := blend(seededVector(sd[:], dim), seededVector(rd[:], dim), summaryWeight, rawWeight)
	return Normalize(v)
}
