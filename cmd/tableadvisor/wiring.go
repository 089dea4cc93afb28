package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tableadvisor/internal/collector"
	bqsource "github.com/kailas-cloud/tableadvisor/internal/collector/bigquery"
	"github.com/kailas-cloud/tableadvisor/internal/collector/snapshot"
	"github.com/kailas-cloud/tableadvisor/internal/config"
	"github.com/kailas-cloud/tableadvisor/internal/db"
	dbRedis "github.com/kailas-cloud/tableadvisor/internal/db/redis"
	"github.com/kailas-cloud/tableadvisor/internal/domain"
	"github.com/kailas-cloud/tableadvisor/internal/metrics"
	"github.com/kailas-cloud/tableadvisor/internal/repository/embcache"
	"github.com/kailas-cloud/tableadvisor/internal/repository/schemaindex"
	openaiTransport "github.com/kailas-cloud/tableadvisor/internal/transport/openai"
	"github.com/kailas-cloud/tableadvisor/internal/usecase/analyzer"
	embeddinguc "github.com/kailas-cloud/tableadvisor/internal/usecase/embedding"
	"github.com/kailas-cloud/tableadvisor/internal/usecase/engine"
	generationuc "github.com/kailas-cloud/tableadvisor/internal/usecase/generation"
	"github.com/kailas-cloud/tableadvisor/internal/usecase/heuristic"
)

// vectorStore is the connected store, or empty when disabled or unreachable.
type vectorStore struct {
	store *dbRedis.Store
}

func (v vectorStore) Close() {
	if v.store != nil {
		v.store.Close()
	}
}

// connectVectorStore never fails the run: an unreachable store degrades to no similarity context.
func connectVectorStore(ctx context.Context, cfg config.Config, logger *zap.Logger) vectorStore {
	if !cfg.Analysis.VectorDBEnabled() {
		return vectorStore{}
	}

	store, err := dbRedis.Connect(ctx, dbRedis.Config{
		Addrs:    cfg.VectorStore.Addrs,
		Password: cfg.VectorStore.Password,
	}, time.Duration(cfg.VectorStore.ReadinessTimeout)*time.Second)
	if err != nil {
		metrics.IndexDegradedTotal.WithLabelValues("connect").Inc()
		logger.Warn("Vector store unavailable, continuing without similarity context",
			zap.Strings("addrs", cfg.VectorStore.Addrs), zap.Error(err))
		return vectorStore{}
	}

	logger.Info("Connected to vector store", zap.Strings("addrs", cfg.VectorStore.Addrs))
	return vectorStore{store: store}
}

// similarityIndex is what the analyzer queries and the engine reports on.
type similarityIndex interface {
	analyzer.SimilarityIndex
	engine.IndexStats
}

// unreachableIndex misses every lookup and reports the failed connect as one degraded op.
type unreachableIndex struct{ schemaindex.Disabled }

func (unreachableIndex) Degraded() int64 { return 1 }

func buildIndex(ctx context.Context, cfg config.Config, vs vectorStore, logger *zap.Logger) similarityIndex {
	switch {
	case !cfg.Analysis.VectorDBEnabled():
		return schemaindex.Disabled{}
	case vs.store == nil:
		return unreachableIndex{}
	}
	repo := schemaindex.New(vs.store, schemaindex.Options{
		Collection:  cfg.VectorStore.Collection,
		KeyPrefix:   cfg.VectorStore.KeyPrefix,
		Dimension:   cfg.Embedding.Dimension,
		Algorithm:   db.ParseVectorAlgorithm(cfg.VectorStore.Algorithm),
		M:           cfg.VectorStore.HNSWM,
		EFConstruct: cfg.VectorStore.HNSWEFConstruct,
	}, logger.Named("schemaindex"))

	if cfg.VectorStore.ResetIndex {
		if err := repo.Reset(ctx); err != nil {
			logger.Warn("Similarity index reset failed, keeping the existing index", zap.Error(err))
		}
	}
	return repo
}

// generation holds both ends of the decorator chain: base answers health checks,
// top is what callers use.
type generation struct {
	base *openaiTransport.Generator
	top  *generationuc.InstrumentedGenerator
}

// buildGeneration assembles OpenAI -> Limiter -> Breaker -> Instrumented. Nil when LLM use is off.
func buildGeneration(cfg config.Config, logger *zap.Logger) *generation {
	if !cfg.Analysis.LLMEnabled() {
		return nil
	}
	g := cfg.Generation

	base := openaiTransport.NewGenerator(&openaiTransport.Config{
		APIKey:   g.APIKey,
		BaseURL:  g.BaseURL,
		Model:    g.Model,
		Provider: "generation",
		Logger:   logger,
	})

	var gen domain.TextGenerator = generationuc.NewLimiter(base, g.RequestsPerSecond)
	gen = generationuc.NewBreaker(gen, generationuc.BreakerOptions{
		Name:         "generation",
		MinRequests:  g.Breaker.MinRequests,
		FailureRatio: g.Breaker.FailureRatio,
		OpenTimeout:  time.Duration(g.Breaker.OpenTimeoutSec) * time.Second,
	}, logger)

	return &generation{
		base: base,
		top:  generationuc.NewInstrumentedGenerator(gen, g.Model, logger.Named("generation")),
	}
}

// embeddingStack is the tier chain plus the native endpoint, kept for health checks.
type embeddingStack struct {
	chain *embeddinguc.Chain
	api   *openaiTransport.Embedder
}

// buildEmbedding assembles api -> semantic (cached) -> hash. Tiers whose dependency is
// disabled are left out; the hash tier is always there.
func buildEmbedding(cfg config.Config, gen *generation, vs vectorStore, logger *zap.Logger) embeddingStack {
	dim := cfg.Embedding.Dimension
	var (
		tiers []embeddinguc.Tier
		stack embeddingStack
	)

	if api := cfg.Embedding.API; api.Model != "" {
		stack.api = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     api.APIKey,
			BaseURL:    api.BaseURL,
			Model:      api.Model,
			Dimensions: dim,
			Provider:   "api",
			Logger:     logger,
		})
		tiers = append(tiers, embeddinguc.Tier{
			Name:     domain.TierAPI,
			Embedder: embeddinguc.NewInstrumentedEmbedder(stack.api, "api", api.Model, logger),
		})
	}

	if gen != nil && cfg.Embedding.SemanticEnabled() {
		var sem domain.Embedder = embeddinguc.NewSemanticEmbedder(
			gen.top, dim, cfg.Generation.SummaryTemperature, cfg.Generation.SummaryMaxTokens,
		)
		if vs.store != nil && cfg.VectorStore.CacheEnabled() {
			sem = embcache.New(sem, domain.TierSemantic, vs.store, cfg.VectorStore.KeyPrefix,
				metrics.EmbeddingCacheTotal, logger).
				WithTTL(time.Duration(cfg.VectorStore.CacheTTLHours) * time.Hour)
		}
		tiers = append(tiers, embeddinguc.Tier{
			Name:     domain.TierSemantic,
			Embedder: embeddinguc.NewInstrumentedEmbedder(sem, "semantic", cfg.Generation.Model, logger),
		})
	}

	stack.chain = embeddinguc.NewChain(dim, logger.Named("embedding"), tiers...)
	return stack
}

func buildAnalyzer(
	cfg config.Config,
	index analyzer.SimilarityIndex,
	embed analyzer.Embedder,
	gen analyzer.TextGenerator,
	logger *zap.Logger,
) *analyzer.Service {
	return analyzer.New(index, embed, gen, analyzerOptions(cfg), logger.Named("analyzer"))
}

func buildRuleSet(cfg config.Config, logger *zap.Logger) *heuristic.RuleSet {
	return heuristic.New(thresholds(cfg), heuristic.WithLogger(logger.Named("heuristic")))
}

// buildSource returns the configured metadata source and its cleanup.
func buildSource(ctx context.Context, cfg config.Config, logger *zap.Logger) (collector.Source, func(), error) {
	opts := collector.Options{
		MinTableSizeGB: cfg.Collector.MinTableSizeGB,
		LookbackDays:   cfg.Collector.LookbackDays,
	}

	switch cfg.Collector.Source {
	case "bigquery":
		src, err := bqsource.New(ctx, bqsource.Config{
			Project:         cfg.Collector.Project,
			CredentialsFile: cfg.Collector.CredentialsFile,
			Region:          cfg.Collector.Region,
			Datasets:        cfg.Collector.Datasets,
		}, opts, logger.Named("bigquery"))
		if err != nil {
			return nil, nil, fmt.Errorf("bigquery source: %w", err)
		}
		return src, func() { _ = src.Close() }, nil
	default:
		return snapshot.New(cfg.Collector.SnapshotPath, opts, logger.Named("snapshot")), func() {}, nil
	}
}

func thresholds(cfg config.Config) heuristic.Thresholds {
	a := cfg.Analysis
	return heuristic.Thresholds{
		LargeTableGB:           a.LargeTableThresholdGB,
		VeryLargeTableGB:       a.VeryLargeThresholdGB,
		ScanRatio:              a.ScanRatioThreshold,
		MinFilterColumns:       a.MinFilterColumns,
		MVMinRepeats:           a.MVMinRepeats,
		StaleDays:              a.StaleDays,
		PartitionStaleDays:     a.PartitionStaleDays,
		WideTableColumns:       a.WideTableColumns,
		StringColumnsThreshold: a.StringColumnsThreshold,
	}
}

func analyzerOptions(cfg config.Config) analyzer.Options {
	return analyzer.Options{
		Temperature:      cfg.Generation.Temperature,
		MaxTokens:        cfg.Generation.MaxTokens,
		SimilarityTopK:   cfg.Analysis.SimilarityTopK,
		PromptCharBudget: cfg.Analysis.PromptCharBudget,
	}
}

func engineOptions(cfg config.Config) engine.Options {
	return engine.Options{
		HeuristicWorkers:    cfg.Analysis.HeuristicWorkers,
		Workers:             cfg.Analysis.Workers,
		QueryTimeout:        time.Duration(cfg.Analysis.QueryTimeoutSec) * time.Second,
		QueryLimit:          cfg.Collector.QueryLimit,
		RecommendationLimit: cfg.Analysis.RecommendationLimit,
		VectorDBEnabled:     cfg.Analysis.VectorDBEnabled(),
	}
}
