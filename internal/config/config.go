package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/newsdex/internal/domain/variant"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverValkey = "valkey"
	DriverRedis  = "redis"
	DriverQdrant = "qdrant"
	DriverHNSW   = "hnsw"
)

// ProviderFastembed selects the local ONNX runtime instead of an HTTP provider.
const ProviderFastembed = "fastembed"

// Config holds the newsdex configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
	Store      StoreConfig      `yaml:"store"`
	Articles   ArticlesConfig   `yaml:"articles"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Index      IndexConfig      `yaml:"index"`
	Search     SearchConfig     `yaml:"search"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: determined by env)
	Format string `yaml:"format"` // json, console (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StoreConfig selects and configures the vector store.
type StoreConfig struct {
	Driver           string       `yaml:"driver"` // memory, valkey, redis, qdrant, hnsw (default: valkey)
	Addrs            []string     `yaml:"addrs"`
	Password         string       `yaml:"password"`
	ReadinessTimeout int          `yaml:"readiness_timeout_sec"`
	KeyPrefix        string       `yaml:"key_prefix"`
	Qdrant           QdrantConfig `yaml:"qdrant"`
	HNSW             HNSWConfig   `yaml:"hnsw"`
}

// QdrantConfig holds the Qdrant connection settings.
type QdrantConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	APIKey      string `yaml:"api_key"`
	UseTLS      bool   `yaml:"use_tls"`
	HNSWEF      int    `yaml:"hnsw_ef"`
	UploadBatch int    `yaml:"upload_batch"`
	TimeoutSec  int    `yaml:"timeout_sec"`
}

// HNSWConfig holds the embedded graph store settings.
type HNSWConfig struct {
	Dir      string `yaml:"dir"`
	M        int    `yaml:"m"`
	EfSearch int    `yaml:"ef_search"`
}

// ArticlesConfig points at the relational article source.
type ArticlesConfig struct {
	DSN          string `yaml:"dsn"`
	MinWords     int    `yaml:"min_words"`
	MaxWords     int    `yaml:"max_words"`
	UseProcessed bool   `yaml:"use_processed"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Providers map[string]ProviderConfig `yaml:"providers"`
	Variants  map[string]VariantConfig  `yaml:"variants"`
	Lexical   LexicalConfig             `yaml:"lexical"`
	// CacheSize bounds the in-process embedding cache used when the store has no KV.
	CacheSize int    `yaml:"cache_size"`
	CacheDir  string `yaml:"cache_dir"` // fastembed model downloads
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// ProviderConfig holds embedding provider settings.
type ProviderConfig struct {
	APIKey  string       `yaml:"api_key"`
	BaseURL string       `yaml:"base_url"`
	Budget  BudgetConfig `yaml:"budget"`
}

// VariantConfig configures one pretrained variant. Corpus-fitted variants
// only read Dimensions.
type VariantConfig struct {
	Provider     string `yaml:"provider"` // provider name or "fastembed"
	Model        string `yaml:"model"`
	PassageModel string `yaml:"passage_model"`
	Dimensions   int    `yaml:"dimensions"`
	// Fallback serves a fastembed variant in binaries built without cgo.
	Fallback string `yaml:"fallback_provider"`
}

// LexicalConfig holds BM25 weighting parameters.
type LexicalConfig struct {
	K1 float64 `yaml:"k1"`
	B  float64 `yaml:"b"`
}

// IndexConfig holds indexing and Valkey HNSW settings.
type IndexConfig struct {
	BatchSize       int `yaml:"batch_size"`
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// SearchConfig holds engine settings.
type SearchConfig struct {
	DefaultVariant   string  `yaml:"default_variant"`
	CandidatePool    int     `yaml:"candidate_pool"`
	ScanLimit        int     `yaml:"scan_limit"` // 0 scans every keyword match
	SimilarThreshold float64 `yaml:"similar_threshold"`
}

// EvaluationConfig holds test set and evaluation settings.
type EvaluationConfig struct {
	K                   int     `yaml:"k"`
	QueriesPerSection   int     `yaml:"queries_per_section"`
	MinKeywordScore     float64 `yaml:"min_keyword_score"`
	IncludeCrossSection bool    `yaml:"include_cross_section"`
	Seed                uint64  `yaml:"seed"`
	Concurrency         int     `yaml:"concurrency"`
	OutputDir           string  `yaml:"output_dir"`
}

// Load reads configuration from a YAML file by environment name (local, test, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
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

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
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
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DriverValkey
	}
	if c.Store.ReadinessTimeout <= 0 {
		c.Store.ReadinessTimeout = 10
	}
	if c.Store.KeyPrefix == "" {
		c.Store.KeyPrefix = "newsdex:"
	}
	if c.Articles.MinWords <= 0 {
		c.Articles.MinWords = 500
	}
	if c.Articles.MaxWords <= 0 {
		c.Articles.MaxWords = 20000
	}
	if c.Embedding.Lexical.K1 <= 0 {
		c.Embedding.Lexical.K1 = 1.5
	}
	if c.Embedding.Lexical.B <= 0 {
		c.Embedding.Lexical.B = 0.75
	}
	if c.Embedding.CacheSize <= 0 {
		c.Embedding.CacheSize = 10000
	}
	if c.Embedding.CacheDir == "" {
		c.Embedding.CacheDir = "local_cache"
	}
	if c.Index.BatchSize <= 0 {
		c.Index.BatchSize = 32
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Search.DefaultVariant == "" {
		c.Search.DefaultVariant = "sbert"
	}
	if c.Search.CandidatePool <= 0 {
		c.Search.CandidatePool = 100
	}
	if c.Search.SimilarThreshold <= 0 {
		c.Search.SimilarThreshold = 0.75
	}
	if c.Evaluation.K <= 0 {
		c.Evaluation.K = 10
	}
	if c.Evaluation.QueriesPerSection <= 0 {
		c.Evaluation.QueriesPerSection = 5
	}
	if c.Evaluation.MinKeywordScore <= 0 {
		c.Evaluation.MinKeywordScore = 0.1
	}
	if c.Evaluation.Seed == 0 {
		c.Evaluation.Seed = 42
	}
	if c.Evaluation.Concurrency <= 0 {
		c.Evaluation.Concurrency = 2
	}
	if c.Evaluation.OutputDir == "" {
		c.Evaluation.OutputDir = "results"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Store.Driver {
	case DriverMemory, DriverQdrant:
	case DriverValkey, DriverRedis:
		if len(c.Store.Addrs) == 0 {
			return fmt.Errorf("store.addrs is required for driver %s", c.Store.Driver)
		}
	case DriverHNSW:
		if c.Store.HNSW.Dir == "" {
			return fmt.Errorf("store.hnsw.dir is required for driver hnsw")
		}
	default:
		return fmt.Errorf("store.driver must be one of memory, valkey, redis, qdrant, hnsw, got %q", c.Store.Driver)
	}
	if c.Articles.MinWords > c.Articles.MaxWords {
		return fmt.Errorf("articles.min_words (%d) exceeds articles.max_words (%d)",
			c.Articles.MinWords, c.Articles.MaxWords)
	}
	if c.Search.ScanLimit < 0 {
		return fmt.Errorf("search.scan_limit must not be negative, got %d", c.Search.ScanLimit)
	}
	if c.Search.SimilarThreshold > 1 {
		return fmt.Errorf("search.similar_threshold must be at most 1, got %v", c.Search.SimilarThreshold)
	}
	if _, ok := c.Embedding.Variants[c.Search.DefaultVariant]; !ok && len(c.Embedding.Variants) > 0 {
		return fmt.Errorf("search.default_variant %q is not configured under embedding.variants",
			c.Search.DefaultVariant)
	}
	for name, p := range c.Embedding.Providers {
		switch p.Budget.Action {
		case "", "warn", "reject":
			// ok
		default:
			return fmt.Errorf(
				"embedding.providers.%s.budget.action must be \"warn\" or \"reject\", got %q",
				name, p.Budget.Action,
			)
		}
	}
	for name, vc := range c.Embedding.Variants {
		v, err := variant.Parse(name)
		if err != nil {
			return fmt.Errorf("embedding.variants.%s: %w", name, err)
		}
		if v.IsCorpusFitted() {
			continue
		}
		if vc.Provider == "" {
			return fmt.Errorf("embedding.variants.%s.provider is required", name)
		}
		if vc.Provider == ProviderFastembed {
			if _, ok := c.Embedding.Providers[vc.Fallback]; vc.Fallback != "" && !ok {
				return fmt.Errorf("embedding.variants.%s: unknown fallback provider %q", name, vc.Fallback)
			}
			continue
		}
		if _, ok := c.Embedding.Providers[vc.Provider]; !ok {
			return fmt.Errorf("embedding.variants.%s: unknown provider %q", name, vc.Provider)
		}
		if vc.Model == "" {
			return fmt.Errorf("embedding.variants.%s.model is required", name)
		}
	}
	return nil
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
