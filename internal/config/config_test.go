package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		Store: StoreConfig{Driver: DriverValkey, Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{
			Providers: map[string]ProviderConfig{
				"tei": {BaseURL: "http://localhost:8081/v1"},
			},
			Variants: map[string]VariantConfig{
				"tfidf":  {Dimensions: 384},
				"sbert":  {Provider: "tei", Model: "hiiamsid/sentence_similarity_spanish_es", Dimensions: 768},
				"minilm": {Provider: ProviderFastembed},
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidBudgetAction(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Providers["tei"] = ProviderConfig{Budget: BudgetConfig{DailyTokenLimit: 1000000, Action: "invalid_action"}}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid budget action")
	}

	expected := `embedding.providers.tei.budget.action must be "warn" or "reject", got "invalid_action"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_ValidBudgetActions(t *testing.T) {
	for _, action := range []string{"", "warn", "reject"} {
		t.Run("action="+action, func(t *testing.T) {
			cfg := validConfig()
			cfg.Embedding.Providers["tei"] = ProviderConfig{Budget: BudgetConfig{Action: action}}
			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected error for valid action %q: %v", action, err)
			}
		})
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "milvus" }, "store.driver"},
		{"valkey without addrs", func(c *Config) { c.Store.Addrs = nil }, "store.addrs"},
		{"hnsw without dir", func(c *Config) { c.Store.Driver = DriverHNSW }, "store.hnsw.dir"},
		{"word bounds", func(c *Config) { c.Articles.MinWords = 30000 }, "articles.min_words"},
		{"scan limit", func(c *Config) { c.Search.ScanLimit = -1 }, "search.scan_limit"},
		{"threshold", func(c *Config) { c.Search.SimilarThreshold = 1.5 }, "similar_threshold"},
		{"unconfigured default variant", func(c *Config) { c.Search.DefaultVariant = "dpr" }, "search.default_variant"},
		{"unknown variant", func(c *Config) {
			c.Embedding.Variants["word2vec"] = VariantConfig{}
		}, "embedding.variants.word2vec"},
		{"missing provider", func(c *Config) {
			c.Embedding.Variants["dpr"] = VariantConfig{Model: "facebook/dpr-question_encoder-single-nq-base"}
		}, "provider is required"},
		{"unknown provider", func(c *Config) {
			c.Embedding.Variants["dpr"] = VariantConfig{Provider: "nebius", Model: "m"}
		}, `unknown provider "nebius"`},
		{"unknown fallback", func(c *Config) {
			c.Embedding.Variants["minilm"] = VariantConfig{Provider: ProviderFastembed, Fallback: "nebius"}
		}, `unknown fallback provider "nebius"`},
		{"missing model", func(c *Config) {
			c.Embedding.Variants["dpr"] = VariantConfig{Provider: "tei"}
		}, "model is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidate_MemoryAndQdrantNeedNoAddrs(t *testing.T) {
	for _, driver := range []string{DriverMemory, DriverQdrant} {
		cfg := validConfig()
		cfg.Store = StoreConfig{Driver: driver}
		if err := cfg.Validate(); err != nil {
			t.Errorf("%s: unexpected error: %v", driver, err)
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Store.Driver != DriverValkey {
		t.Errorf("expected driver valkey, got %q", cfg.Store.Driver)
	}
	if cfg.Store.KeyPrefix != "newsdex:" {
		t.Errorf("expected KeyPrefix='newsdex:', got %q", cfg.Store.KeyPrefix)
	}
	if cfg.Articles.MinWords != 500 || cfg.Articles.MaxWords != 20000 {
		t.Errorf("expected word bounds 500/20000, got %d/%d", cfg.Articles.MinWords, cfg.Articles.MaxWords)
	}
	if cfg.Embedding.Lexical.K1 != 1.5 || cfg.Embedding.Lexical.B != 0.75 {
		t.Errorf("unexpected BM25 params: %+v", cfg.Embedding.Lexical)
	}
	if cfg.Index.BatchSize != 32 {
		t.Errorf("expected BatchSize=32, got %d", cfg.Index.BatchSize)
	}
	if cfg.Search.CandidatePool != 100 || cfg.Search.ScanLimit != 0 {
		t.Errorf("unexpected search defaults: %+v", cfg.Search)
	}
	if cfg.Search.SimilarThreshold != 0.75 || cfg.Search.DefaultVariant != "sbert" {
		t.Errorf("unexpected similar/default variant: %+v", cfg.Search)
	}
	if cfg.Evaluation.K != 10 || cfg.Evaluation.QueriesPerSection != 5 || cfg.Evaluation.Seed != 42 {
		t.Errorf("unexpected evaluation defaults: %+v", cfg.Evaluation)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:   HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Store:  StoreConfig{Driver: DriverQdrant, KeyPrefix: "custom:"},
		Index:  IndexConfig{BatchSize: 64},
		Search: SearchConfig{SimilarThreshold: 0.5},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Store.Driver != DriverQdrant || cfg.Store.KeyPrefix != "custom:" {
		t.Errorf("store overridden: %+v", cfg.Store)
	}
	if cfg.Index.BatchSize != 64 {
		t.Errorf("expected BatchSize=64, got %d", cfg.Index.BatchSize)
	}
	if cfg.Search.SimilarThreshold != 0.5 {
		t.Errorf("expected SimilarThreshold=0.5, got %v", cfg.Search.SimilarThreshold)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("NEWSDEX_TEST_HOST", "qdrant.internal")
	got := string(expandEnvVars([]byte("host: ${NEWSDEX_TEST_HOST}\nport: ${NEWSDEX_TEST_PORT:-6334}\n")))
	want := "host: qdrant.internal\nport: 6334\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoad_TestEnvironment(t *testing.T) {
	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.Driver != DriverMemory {
		t.Errorf("expected memory driver, got %q", cfg.Store.Driver)
	}
	if cfg.Articles.MinWords != 1 || cfg.Articles.MaxWords != 20000 {
		t.Errorf("unexpected word bounds: %d/%d", cfg.Articles.MinWords, cfg.Articles.MaxWords)
	}
	if cfg.Evaluation.Seed != 7 {
		t.Errorf("expected seed 7, got %d", cfg.Evaluation.Seed)
	}
	if _, ok := cfg.Embedding.Variants["bm25"]; !ok {
		t.Error("expected bm25 variant configured")
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if got := GetEnv(); got != "local" {
		t.Errorf("expected local, got %q", got)
	}
	t.Setenv("ENV", "prod")
	if got := GetEnv(); got != "prod" {
		t.Errorf("expected prod, got %q", got)
	}
}
