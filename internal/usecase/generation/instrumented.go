package generation

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

// InstrumentedGenerator logs every call and counts outcomes for the run status.
// Transport metrics are recorded in transport/openai.
type InstrumentedGenerator struct {
	inner     domain.TextGenerator
	model     string
	logger    *zap.Logger
	succeeded atomic.Int64
	failed    atomic.Int64
}

// NewInstrumentedGenerator wraps a generator with observability.
func NewInstrumentedGenerator(inner domain.TextGenerator, model string, logger *zap.Logger) *InstrumentedGenerator {
	return &InstrumentedGenerator{inner: inner, model: model, logger: logger}
}

// Generate delegates and records the outcome.
func (g *InstrumentedGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	start := time.Now()
	out, err := g.inner.Generate(ctx, req)
	duration := time.Since(start)

	if err != nil {
		g.failed.Add(1)
		g.logger.Warn("Generation request failed",
			zap.String("model", g.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", fmt.Errorf("generate: %w", err)
	}

	g.succeeded.Add(1)
	g.logger.Debug("Generation request completed",
		zap.String("model", g.model),
		zap.Duration("duration", duration),
		zap.Int("response_chars", len(out)),
	)
	return out, nil
}

// Stats returns the number of successful and failed calls so far.
func (g *InstrumentedGenerator) Stats() (succeeded, failed int64) {
	return g.succeeded.Load(), g.failed.Load()
}

// Available reports whether the endpoint answered at least once, or was never tried.
func (g *InstrumentedGenerator) Available() bool {
	s, f := g.Stats()
	return s > 0 || f == 0
}
