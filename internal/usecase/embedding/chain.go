package embedding

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
	"github.com/kailas-cloud/tableadvisor/internal/metrics"
)

// Tier is one named strategy in the chain.
type Tier struct {
	Name     domain.EmbeddingTier
	Embedder domain.Embedder
}

// Chain tries each tier in order and returns the first vector of the configured dimension.
// A hash tier is always appended, so Embed never fails.
type Chain struct {
	tiers  []Tier
	dim    int
	logger *zap.Logger

	mu    sync.Mutex
	fired map[domain.EmbeddingTier]int
}

// NewChain builds the provider from preferred tiers, most capable first.
func NewChain(dim int, logger *zap.Logger, tiers ...Tier) *Chain {
	all := make([]Tier, 0, len(tiers)+1)
	all = append(all, tiers...)
	all = append(all, Tier{Name: domain.TierHash, Embedder: NewHashEmbedder(dim)})
	return &Chain{
		tiers:  all,
		dim:    dim,
		logger: logger,
		fired:  make(map[domain.EmbeddingTier]int),
	}
}

// Embed implements domain.Embedder. The returned error is always nil.
func (c *Chain) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	for i, t := range c.tiers {
		last := i == len(c.tiers)-1
		if !last && ctx.Err() != nil {
			continue
		}

		res, err := t.Embedder.Embed(ctx, text)
		if err == nil && len(res.Embedding) != c.dim {
			err = fmt.Errorf("%s tier returned %d dimensions, want %d: %w",
				t.Name, len(res.Embedding), c.dim, domain.ErrDimensionMismatch)
		}
		if err != nil {
			c.logger.Info("Embedding tier unavailable, falling back",
				zap.String("tier", string(t.Name)), zap.Error(err))
			continue
		}

		res.Embedding = Normalize(res.Embedding)
		res.Tier = t.Name
		c.record(t.Name)
		return res, nil
	}

	// unreachable while the hash tier terminates the chain
	return domain.EmbeddingResult{Embedding: hashVector(text, c.dim), Tier: domain.TierHash}, nil
}

// Fired returns how many vectors each tier produced so far.
func (c *Chain) Fired() map[domain.EmbeddingTier]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[domain.EmbeddingTier]int, len(c.fired))
	for k, v := range c.fired {
		out[k] = v
	}
	return out
}

func (c *Chain) record(tier domain.EmbeddingTier) {
	c.mu.Lock()
	c.fired[tier]++
	c.mu.Unlock()
	metrics.EmbeddingTierTotal.WithLabelValues(string(tier)).Inc()
}
