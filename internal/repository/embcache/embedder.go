package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tableadvisor/internal/db"
	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedEmbedder caches the vectors of one embedding tier in a key-value store.
// Summary-seeded vectors cost a generation call each, so reruns over the same schemas hit the cache.
type CachedEmbedder struct {
	inner      domain.Embedder
	tier       domain.EmbeddingTier
	store      store
	prefix     string
	cacheTotal *prometheus.CounterVec
	ttl        time.Duration
	logger     *zap.Logger
}

// New creates a caching decorator for inner, which produces vectors of the given tier.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Embedder,
	tier domain.EmbeddingTier,
	s store,
	keyPrefix string,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	return &CachedEmbedder{
		inner:      inner,
		tier:       tier,
		store:      s,
		prefix:     keyPrefix + "emb_cache:" + string(tier) + ":",
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// WithTTL expires cached vectors after ttl. Zero keeps them forever.
func (c *CachedEmbedder) WithTTL(ttl time.Duration) *CachedEmbedder {
	c.ttl = ttl
	return c
}

// Embed serves text from the cache or computes and stores it. A hit reports zero
// tokens because nothing was spent. Store failures only cost a miss.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)

	if vec, ok := c.lookup(ctx, key); ok {
		c.count("hit")
		return domain.EmbeddingResult{Embedding: vec, Tier: c.tier}, nil
	}
	c.count("miss")

	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed %s tier: %w", c.tier, err)
	}
	if len(res.Embedding) > 0 {
		c.save(ctx, key, res.Embedding)
	}
	return res, nil
}

// key hashes the text so arbitrarily long schema descriptions map to fixed-size keys.
func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	blob, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return nil, false
	case err != nil:
		c.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	case len(blob) == 0:
		return nil, false
	}

	vec, err := db.DecodeVector(string(blob))
	if err != nil {
		c.logger.Warn("Discarding corrupt cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) save(ctx context.Context, key string, vec []float32) {
	blob := []byte(db.EncodeVector(vec))
	var err error
	if c.ttl > 0 {
		err = c.store.SetWithTTL(ctx, key, blob, c.ttl)
	} else {
		err = c.store.Set(ctx, key, blob)
	}
	if err != nil {
		c.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedEmbedder) count(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
