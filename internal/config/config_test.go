package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

func validConfig() Config {
	cfg := Config{
		Collector: CollectorConfig{SnapshotPath: "snapshot.json"},
		VectorStore: VectorStoreConfig{
			Addrs: []string{"localhost:6379"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	if cfg.Embedding.Dimension != 768 {
		t.Errorf("expected dimension 768, got %d", cfg.Embedding.Dimension)
	}
	if cfg.Analysis.RecommendationLimit != 100 {
		t.Errorf("expected limit 100, got %d", cfg.Analysis.RecommendationLimit)
	}
	if cfg.Collector.LookbackDays != 30 {
		t.Errorf("expected lookback 30, got %d", cfg.Collector.LookbackDays)
	}
	if cfg.Generation.Model != "llama3" || cfg.Generation.Temperature != 0.2 || cfg.Generation.MaxTokens != 4096 {
		t.Errorf("unexpected generation defaults: %+v", cfg.Generation)
	}
	if cfg.VectorStore.Collection != "bigquery_schemas" {
		t.Errorf("expected collection bigquery_schemas, got %q", cfg.VectorStore.Collection)
	}
	if cfg.VectorStore.CacheTTLHours != 720 {
		t.Errorf("expected cache ttl 720h, got %d", cfg.VectorStore.CacheTTLHours)
	}
	if !cfg.Analysis.LLMEnabled() || !cfg.Analysis.VectorDBEnabled() || !cfg.Embedding.SemanticEnabled() {
		t.Error("feature flags default to enabled")
	}
	if cfg.Embedding.API.BaseURL != cfg.Generation.BaseURL {
		t.Error("embedding api base url should inherit generation base url")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate_Fatal(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero dimension", func(c *Config) { c.Embedding.Dimension = 0 }, "embedding.dimension"},
		{"negative dimension", func(c *Config) { c.Embedding.Dimension = -5 }, "embedding.dimension"},
		{"zero limit", func(c *Config) { c.Analysis.RecommendationLimit = 0 }, "recommendation_limit"},
		{"zero top k", func(c *Config) { c.Analysis.SimilarityTopK = 0 }, "similarity_top_k"},
		{"zero workers", func(c *Config) { c.Analysis.Workers = 0 }, "analysis.workers"},
		{"zero timeout", func(c *Config) { c.Analysis.QueryTimeoutSec = 0 }, "query_timeout_sec"},
		{"negative threshold", func(c *Config) { c.Analysis.ScanRatioThreshold = -1 }, "must not be negative"},
		{"very large below large", func(c *Config) { c.Analysis.VeryLargeThresholdGB = 0.5 }, "very_large"},
		{"unknown source", func(c *Config) { c.Collector.Source = "mysql" }, "collector.source"},
		{"missing snapshot path", func(c *Config) { c.Collector.SnapshotPath = "" }, "snapshot_path"},
		{"bigquery without project", func(c *Config) { c.Collector.Source = "bigquery" }, "collector.project"},
		{"vector db without addrs", func(c *Config) { c.VectorStore.Addrs = nil }, "vector_store.addrs"},
		{"bad algorithm", func(c *Config) { c.VectorStore.Algorithm = "IVF" }, "vector_store.algorithm"},
		{"bad breaker ratio", func(c *Config) { c.Generation.Breaker.FailureRatio = 2 }, "failure_ratio"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tc.want)
			}
		})
	}
}

func TestValidate_VectorDBDisabledNeedsNoAddrs(t *testing.T) {
	cfg := validConfig()
	off := false
	cfg.Analysis.UseVectorDB = &off
	cfg.VectorStore.Addrs = nil
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParse_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TA_SNAPSHOT", "/tmp/snap.json")

	data := []byte(`
collector:
  snapshot_path: ${TA_SNAPSHOT}
  lookback_days: ${TA_LOOKBACK:-14}
analysis:
  use_llm: false
vector_store:
  addrs: ["${TA_REDIS:-localhost:6379}"]
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Collector.SnapshotPath != "/tmp/snap.json" {
		t.Errorf("unexpected snapshot path %q", cfg.Collector.SnapshotPath)
	}
	if cfg.Collector.LookbackDays != 14 {
		t.Errorf("expected default 14, got %d", cfg.Collector.LookbackDays)
	}
	if cfg.Analysis.LLMEnabled() {
		t.Error("use_llm: false must disable model analysis")
	}
	if len(cfg.VectorStore.Addrs) != 1 || cfg.VectorStore.Addrs[0] != "localhost:6379" {
		t.Errorf("unexpected addrs %v", cfg.VectorStore.Addrs)
	}
}

func TestParse_InvalidIsFatal(t *testing.T) {
	_, err := Parse([]byte("embedding:\n  dimension: -1\ncollector:\n  snapshot_path: x\nvector_store:\n  addrs: [a]\n"))
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	content := "collector:\n  snapshot_path: s.json\nvector_store:\n  addrs: [\"localhost:6379\"]\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Collector.Source != "snapshot" {
		t.Errorf("expected default source snapshot, got %q", cfg.Collector.Source)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
