package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/tableadvisor/internal/domain"
)

// Config holds the tableadvisor run configuration.
type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Collector   CollectorConfig   `yaml:"collector"`
	Analysis    AnalysisConfig    `yaml:"analysis"`
	Generation  GenerationConfig  `yaml:"generation"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Output      OutputConfig      `yaml:"output"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error (default: determined by env)
	File       string `yaml:"file"`  // optional rotating log file
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// CollectorConfig selects and configures the metadata source.
type CollectorConfig struct {
	Source          string   `yaml:"source"` // snapshot, bigquery
	SnapshotPath    string   `yaml:"snapshot_path"`
	Project         string   `yaml:"project"`
	Datasets        []string `yaml:"datasets"` // empty = all datasets
	CredentialsFile string   `yaml:"credentials_file"`
	Region          string   `yaml:"region"`
	LookbackDays    int      `yaml:"lookback_days"`
	QueryLimit      int      `yaml:"query_limit"`
	MinTableSizeGB  float64  `yaml:"min_table_size_gb"`
}

// AnalysisConfig holds rule thresholds, feature flags and concurrency limits.
type AnalysisConfig struct {
	UseLLM                 *bool   `yaml:"use_llm"`
	UseVectorDB            *bool   `yaml:"use_vector_db"`
	LargeTableThresholdGB  float64 `yaml:"large_table_threshold_gb"`
	VeryLargeThresholdGB   float64 `yaml:"very_large_table_threshold_gb"`
	ScanRatioThreshold     float64 `yaml:"scan_ratio_threshold"`
	MinFilterColumns       int     `yaml:"min_filter_columns"`
	MVMinRepeats           int     `yaml:"mv_min_repeats"`
	StaleDays              int     `yaml:"stale_days"`
	PartitionStaleDays     int     `yaml:"partition_stale_days"`
	WideTableColumns       int     `yaml:"wide_table_columns"`
	StringColumnsThreshold int     `yaml:"string_columns_threshold"`
	RecommendationLimit    int     `yaml:"recommendation_limit"`
	SimilarityTopK         int     `yaml:"similarity_top_k"`
	PromptCharBudget       int     `yaml:"prompt_char_budget"`
	Workers                int     `yaml:"workers"`
	HeuristicWorkers       int     `yaml:"heuristic_workers"`
	QueryTimeoutSec        int     `yaml:"query_timeout_sec"`
}

// LLMEnabled reports whether model-assisted analysis runs.
func (a AnalysisConfig) LLMEnabled() bool { return a.UseLLM == nil || *a.UseLLM }

// VectorDBEnabled reports whether the similarity index is used.
func (a AnalysisConfig) VectorDBEnabled() bool { return a.UseVectorDB == nil || *a.UseVectorDB }

// GenerationConfig holds text-generation service settings (OpenAI-compatible API).
type GenerationConfig struct {
	BaseURL            string        `yaml:"base_url"`
	APIKey             string        `yaml:"api_key"`
	Model              string        `yaml:"model"`
	Temperature        float32       `yaml:"temperature"`
	MaxTokens          int           `yaml:"max_tokens"`
	SummaryTemperature float32       `yaml:"summary_temperature"`
	SummaryMaxTokens   int           `yaml:"summary_max_tokens"`
	RequestsPerSecond  float64       `yaml:"requests_per_second"` // 0 = unlimited
	Breaker            BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the circuit breaker around text generation.
type BreakerConfig struct {
	MinRequests    uint32  `yaml:"min_requests"`
	FailureRatio   float64 `yaml:"failure_ratio"`
	OpenTimeoutSec int     `yaml:"open_timeout_sec"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Dimension int                `yaml:"dimension"`
	Semantic  *bool              `yaml:"semantic"` // summary-seeded tier
	API       APIEmbeddingConfig `yaml:"api"`
}

// SemanticEnabled reports whether the summary-seeded tier is in the chain.
func (e EmbeddingConfig) SemanticEnabled() bool { return e.Semantic == nil || *e.Semantic }

// APIEmbeddingConfig enables a native embeddings endpoint as the first tier.
type APIEmbeddingConfig struct {
	Model   string `yaml:"model"` // empty = disabled
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// VectorStoreConfig holds similarity index connection settings.
type VectorStoreConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Collection       string   `yaml:"collection"`
	Algorithm        string   `yaml:"algorithm"` // HNSW, FLAT
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	CacheEmbeddings  *bool    `yaml:"cache_embeddings"`
	CacheTTLHours    int      `yaml:"cache_ttl_hours"` // semantic vector cache expiry
	ResetIndex       bool     `yaml:"reset_index"`     // drop the FT index before the run
}

// CacheEnabled reports whether semantic vectors are cached in the store.
func (v VectorStoreConfig) CacheEnabled() bool { return v.CacheEmbeddings == nil || *v.CacheEmbeddings }

// MetricsConfig holds the optional metrics endpoint.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"` // empty = disabled
}

// OutputConfig holds report settings.
type OutputConfig struct {
	CSVPath string `yaml:"csv_path"`
	TopN    int    `yaml:"top_n"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands env variables, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	c.applyCollectorDefaults()
	c.applyAnalysisDefaults()
	c.applyGenerationDefaults()

	if c.Embedding.Dimension == 0 {
		c.Embedding.Dimension = 768
	}
	if c.Embedding.API.BaseURL == "" {
		c.Embedding.API.BaseURL = c.Generation.BaseURL
	}
	if c.Embedding.API.APIKey == "" {
		c.Embedding.API.APIKey = c.Generation.APIKey
	}

	if c.VectorStore.Collection == "" {
		c.VectorStore.Collection = "bigquery_schemas"
	}
	if c.VectorStore.Algorithm == "" {
		c.VectorStore.Algorithm = "HNSW"
	}
	if c.VectorStore.HNSWM <= 0 {
		c.VectorStore.HNSWM = 16
	}
	if c.VectorStore.HNSWEFConstruct <= 0 {
		c.VectorStore.HNSWEFConstruct = 200
	}
	if c.VectorStore.KeyPrefix == "" {
		c.VectorStore.KeyPrefix = "tableadvisor:"
	}
	if c.VectorStore.ReadinessTimeout <= 0 {
		c.VectorStore.ReadinessTimeout = 5
	}
	if c.VectorStore.CacheTTLHours == 0 {
		c.VectorStore.CacheTTLHours = 720
	}

	if c.Output.TopN <= 0 {
		c.Output.TopN = 5
	}
	if c.Logging.File != "" {
		if c.Logging.MaxSizeMB <= 0 {
			c.Logging.MaxSizeMB = 100
		}
		if c.Logging.MaxAgeDays <= 0 {
			c.Logging.MaxAgeDays = 7
		}
	}
}

func (c *Config) applyCollectorDefaults() {
	if c.Collector.Source == "" {
		c.Collector.Source = "snapshot"
	}
	if c.Collector.Region == "" {
		c.Collector.Region = "region-us"
	}
	if c.Collector.LookbackDays <= 0 {
		c.Collector.LookbackDays = 30
	}
	if c.Collector.QueryLimit == 0 {
		c.Collector.QueryLimit = 10
	}
	if c.Collector.MinTableSizeGB == 0 {
		c.Collector.MinTableSizeGB = 0.01
	}
}

func (c *Config) applyAnalysisDefaults() {
	a := &c.Analysis
	if a.LargeTableThresholdGB == 0 {
		a.LargeTableThresholdGB = 1
	}
	if a.VeryLargeThresholdGB == 0 {
		a.VeryLargeThresholdGB = 100
	}
	if a.ScanRatioThreshold == 0 {
		a.ScanRatioThreshold = 0.5
	}
	if a.MinFilterColumns == 0 {
		a.MinFilterColumns = 2
	}
	if a.MVMinRepeats == 0 {
		a.MVMinRepeats = 3
	}
	if a.StaleDays == 0 {
		a.StaleDays = 180
	}
	if a.PartitionStaleDays == 0 {
		a.PartitionStaleDays = 90
	}
	if a.WideTableColumns == 0 {
		a.WideTableColumns = 50
	}
	if a.StringColumnsThreshold == 0 {
		a.StringColumnsThreshold = 3
	}
	if a.RecommendationLimit == 0 {
		a.RecommendationLimit = 100
	}
	if a.SimilarityTopK == 0 {
		a.SimilarityTopK = 3
	}
	if a.PromptCharBudget == 0 {
		a.PromptCharBudget = 12000
	}
	if a.Workers == 0 {
		a.Workers = 4
	}
	if a.HeuristicWorkers == 0 {
		a.HeuristicWorkers = 32
	}
	if a.QueryTimeoutSec == 0 {
		a.QueryTimeoutSec = 60
	}
}

func (c *Config) applyGenerationDefaults() {
	g := &c.Generation
	if g.BaseURL == "" {
		g.BaseURL = "http://127.0.0.1:11434/v1"
	}
	if g.APIKey == "" {
		g.APIKey = "ollama"
	}
	if g.Model == "" {
		g.Model = "llama3"
	}
	if g.Temperature == 0 {
		g.Temperature = 0.2
	}
	if g.MaxTokens == 0 {
		g.MaxTokens = 4096
	}
	if g.SummaryTemperature == 0 {
		g.SummaryTemperature = 0.1
	}
	if g.SummaryMaxTokens == 0 {
		g.SummaryMaxTokens = 256
	}
	if g.Breaker.MinRequests == 0 {
		g.Breaker.MinRequests = 5
	}
	if g.Breaker.FailureRatio == 0 {
		g.Breaker.FailureRatio = 0.6
	}
	if g.Breaker.OpenTimeoutSec == 0 {
		g.Breaker.OpenTimeoutSec = 30
	}
}

// Validate checks the configuration for correctness.
// Every failure wraps domain.ErrInvalidConfig and is fatal before any analysis starts.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidConfig}, args...)...))
	}

	if c.Embedding.Dimension <= 0 {
		add("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}

	a := c.Analysis
	if a.RecommendationLimit <= 0 {
		add("analysis.recommendation_limit must be positive, got %d", a.RecommendationLimit)
	}
	if a.SimilarityTopK <= 0 {
		add("analysis.similarity_top_k must be positive, got %d", a.SimilarityTopK)
	}
	if a.Workers <= 0 {
		add("analysis.workers must be positive, got %d", a.Workers)
	}
	if a.HeuristicWorkers <= 0 {
		add("analysis.heuristic_workers must be positive, got %d", a.HeuristicWorkers)
	}
	if a.QueryTimeoutSec <= 0 {
		add("analysis.query_timeout_sec must be positive, got %d", a.QueryTimeoutSec)
	}
	if a.PromptCharBudget <= 0 {
		add("analysis.prompt_char_budget must be positive, got %d", a.PromptCharBudget)
	}
	if a.LargeTableThresholdGB < 0 || a.ScanRatioThreshold < 0 || a.StaleDays < 0 ||
		a.PartitionStaleDays < 0 || a.MinFilterColumns < 0 || a.MVMinRepeats < 0 ||
		a.WideTableColumns < 0 || a.StringColumnsThreshold < 0 {
		add("analysis thresholds must not be negative")
	}
	if a.VeryLargeThresholdGB < a.LargeTableThresholdGB {
		add("analysis.very_large_table_threshold_gb (%g) must be >= large_table_threshold_gb (%g)",
			a.VeryLargeThresholdGB, a.LargeTableThresholdGB)
	}

	if c.Collector.QueryLimit < 0 {
		add("collector.query_limit must not be negative, got %d", c.Collector.QueryLimit)
	}
	switch c.Collector.Source {
	case "snapshot":
		if c.Collector.SnapshotPath == "" {
			add("collector.snapshot_path is required for source \"snapshot\"")
		}
	case "bigquery":
		if c.Collector.Project == "" {
			add("collector.project is required for source \"bigquery\"")
		}
	default:
		add("collector.source must be \"snapshot\" or \"bigquery\", got %q", c.Collector.Source)
	}

	if a.VectorDBEnabled() && len(c.VectorStore.Addrs) == 0 {
		add("vector_store.addrs is required when analysis.use_vector_db is enabled")
	}
	switch strings.ToUpper(c.VectorStore.Algorithm) {
	case "HNSW", "FLAT":
	default:
		add("vector_store.algorithm must be \"HNSW\" or \"FLAT\", got %q", c.VectorStore.Algorithm)
	}

	if c.Generation.Breaker.FailureRatio <= 0 || c.Generation.Breaker.FailureRatio > 1 {
		add("generation.breaker.failure_ratio must be in (0, 1], got %g", c.Generation.Breaker.FailureRatio)
	}
	if c.VectorStore.CacheTTLHours < 0 {
		add("vector_store.cache_ttl_hours must not be negative, got %d", c.VectorStore.CacheTTLHours)
	}
	if c.Generation.RequestsPerSecond < 0 {
		add("generation.requests_per_second must not be negative, got %g", c.Generation.RequestsPerSecond)
	}

	return errors.Join(errs...)
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
