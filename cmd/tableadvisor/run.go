package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tableadvisor/internal/config"
	logpkg "github.com/kailas-cloud/tableadvisor/internal/logger"
	"github.com/kailas-cloud/tableadvisor/internal/metrics"
	"github.com/kailas-cloud/tableadvisor/internal/report"
	"github.com/kailas-cloud/tableadvisor/internal/transport/httpapi"
	"github.com/kailas-cloud/tableadvisor/internal/usecase/engine"
	healthuc "github.com/kailas-cloud/tableadvisor/internal/usecase/health"
	"github.com/kailas-cloud/tableadvisor/internal/version"
)

func run(ctx context.Context, cfg config.Config, env string) error {
	logger, err := logpkg.NewLoggerWithFile(env, cfg.Logging.Level, logpkg.FileConfig{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting tableadvisor",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("source", cfg.Collector.Source),
		zap.Bool("use_llm", cfg.Analysis.LLMEnabled()),
		zap.Bool("use_vector_db", cfg.Analysis.VectorDBEnabled()),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterAll()

	progress := httpapi.NewProgress()

	vs := connectVectorStore(ctx, cfg, logger)
	defer vs.Close()

	gen := buildGeneration(cfg, logger)
	embedder := buildEmbedding(cfg, gen, vs, logger)
	index := buildIndex(ctx, cfg, vs, logger)

	if cfg.Metrics.ListenAddr != "" {
		// Pass nil interfaces (not typed nil pointers) for disabled dependencies.
		var (
			storeCheck healthuc.StorePinger
			genCheck   healthuc.Checker
			embCheck   healthuc.Checker
		)
		if vs.store != nil {
			storeCheck = vs.store
		}
		if gen != nil {
			genCheck = gen.base
		}
		if embedder.api != nil {
			embCheck = embedder.api
		}
		srv := httpapi.NewServer(healthuc.New(storeCheck, genCheck, embCheck), progress, logger)

		srvCtx, stopServer := context.WithCancel(ctx)
		defer stopServer()
		go func() {
			if err := httpapi.ListenAndServe(srvCtx, cfg.Metrics.ListenAddr, srv.Router(), logger); err != nil {
				logger.Error("HTTP server error", zap.Error(err))
			}
		}()
	}

	progress.SetPhase(httpapi.PhaseCollecting)
	source, closeSource, err := buildSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	snap, err := source.Collect(ctx)
	if err != nil {
		logger.Error("Metadata collection failed", zap.Error(err))
		return fmt.Errorf("collect metadata: %w", err)
	}

	progress.SetPhase(httpapi.PhaseAnalyzing)
	opts := []engine.Option{
		engine.WithEmbeddingStats(embedder.chain),
		engine.WithIndexStats(index),
		engine.WithProgress(progress.Update),
	}
	var an engine.QueryAnalyzer
	if gen != nil {
		an = buildAnalyzer(cfg, index, embedder.chain, gen.top, logger)
		opts = append(opts, engine.WithGenerationStats(gen.top))
	}
	eng := engine.New(buildRuleSet(cfg, logger), an, engineOptions(cfg), logger, opts...)

	start := time.Now()
	res, err := eng.Run(ctx, snap)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Run interrupted")
		}
		return fmt.Errorf("analysis: %w", err)
	}

	progress.SetPhase(httpapi.PhaseReporting)
	if cfg.Output.CSVPath != "" {
		if err := report.WriteFile(cfg.Output.CSVPath, res.Recommendations); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		logger.Info("Report written", zap.String("path", cfg.Output.CSVPath))
	}

	summary := report.Summarize(res.Recommendations, cfg.Output.TopN)
	summary.Log(logger)
	if err := summary.Write(os.Stdout); err != nil {
		return fmt.Errorf("print summary: %w", err)
	}

	logStatus(logger, res, time.Since(start))
	progress.SetPhase(httpapi.PhaseDone)
	return nil
}

// logStatus reports degraded operation at Info level; it is never an error.
func logStatus(logger *zap.Logger, res engine.Result, elapsed time.Duration) {
	st := res.Status
	tiers := make(map[string]int, len(st.EmbeddingTiers))
	for k, v := range st.EmbeddingTiers {
		tiers[string(k)] = v
	}
	parser := make(map[string]int, len(st.ParserTiers))
	for k, v := range st.ParserTiers {
		parser[string(k)] = v
	}

	logger.Info("Run status",
		zap.Bool("degraded", st.Degraded()),
		zap.Bool("llm_enabled", st.LLMEnabled),
		zap.Bool("generation_available", st.GenerationAvailable),
		zap.Bool("vector_db_enabled", st.VectorDBEnabled),
		zap.Int64("index_degraded_ops", st.IndexDegradedOps),
		zap.Int("timed_out_queries", st.TimedOutQueries),
		zap.Any("embedding_tiers", tiers),
		zap.Any("parser_tiers", parser),
		zap.Int("tables", res.Tables),
		zap.Int("queries_analyzed", res.QueriesAnalyzed),
		zap.Duration("elapsed", elapsed),
	)
}
