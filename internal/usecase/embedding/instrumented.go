package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

// InstrumentedEmbedder logs every call of one tier. Failures are logged at Warn
// because the chain recovers from them; they are still returned so it can.
// Request counters and token usage are recorded by transport/openai.
type InstrumentedEmbedder struct {
	inner  domain.Embedder
	logger *zap.Logger
}

// NewInstrumentedEmbedder tags every log line with the provider and model.
func NewInstrumentedEmbedder(inner domain.Embedder, provider, model string, logger *zap.Logger) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:  inner,
		logger: logger.With(zap.String("provider", provider), zap.String("model", model)),
	}
}

// Embed delegates to the wrapped tier.
func (p *InstrumentedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()
	res, err := p.inner.Embed(ctx, text)
	elapsed := zap.Duration("duration", time.Since(start))

	if err != nil {
		p.logger.Warn("Embedding tier failed", elapsed, zap.Int("text_len", len(text)), zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.logger.Debug("Embedding tier answered", elapsed,
		zap.String("tier", string(res.Tier)),
		zap.Int("dimensions", len(res.Embedding)),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return res, nil
}
