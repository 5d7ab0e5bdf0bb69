package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/config"
	dbRedis "github.com/kailas-cloud/newsdex/internal/db/redis"
	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/article"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
	"github.com/kailas-cloud/newsdex/internal/lexical"
	"github.com/kailas-cloud/newsdex/internal/metrics"
	artrepo "github.com/kailas-cloud/newsdex/internal/repository/article"
	budgetrepo "github.com/kailas-cloud/newsdex/internal/repository/budget"
	"github.com/kailas-cloud/newsdex/internal/repository/embcache"
	"github.com/kailas-cloud/newsdex/internal/transport/fastembed"
	openaiEmb "github.com/kailas-cloud/newsdex/internal/transport/openai"
	collectionuc "github.com/kailas-cloud/newsdex/internal/usecase/collection"
	embeddinguc "github.com/kailas-cloud/newsdex/internal/usecase/embedding"
	evaluationuc "github.com/kailas-cloud/newsdex/internal/usecase/evaluation"
	healthuc "github.com/kailas-cloud/newsdex/internal/usecase/health"
	"github.com/kailas-cloud/newsdex/internal/usecase/indexing"
	searchuc "github.com/kailas-cloud/newsdex/internal/usecase/search"
	"github.com/kailas-cloud/newsdex/internal/vectorstore"
	"github.com/kailas-cloud/newsdex/internal/vectorstore/hnsw"
	"github.com/kailas-cloud/newsdex/internal/vectorstore/memory"
	"github.com/kailas-cloud/newsdex/internal/vectorstore/qdrant"
	"github.com/kailas-cloud/newsdex/internal/vectorstore/valkey"
)

// kvCache is what the embedding cache needs from Valkey or the in-process LRU.
type kvCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// app is the composition root shared by every command.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	store     vectorstore.Store
	db        *sql.DB
	articles  *artrepo.Repo
	embedders *embeddinguc.Registry
	handles   []*embeddinguc.Handle

	collections *collectionuc.Service
	indexer     *indexing.Service
	search      *searchuc.Service
	health      *healthuc.Service
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	store, kv, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.store = store

	a.articles, a.db, err = openArticles(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	b := &embedderBuilder{
		cfg:     cfg,
		kv:      kv,
		local:   newFastembed,
		logger:  logger,
		budgets: map[string]embeddinguc.BudgetChecker{},
	}
	if kv != nil {
		b.cache = kv
	} else {
		lru, err := embcache.NewLRUStore(cfg.Embedding.CacheSize)
		if err != nil {
			a.Close()
			return nil, err
		}
		b.cache = lru
	}
	a.embedders, err = b.build()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.handles = b.handles

	a.collections = collectionuc.New(store, logger)
	a.indexer = indexing.New(a.articles, store, a.embedders, logger).WithBatchSize(cfg.Index.BatchSize)
	a.search = searchuc.New(store, a.embedders, logger).
		WithCandidatePool(cfg.Search.CandidatePool).
		WithScanLimit(cfg.Search.ScanLimit)
	a.health = healthuc.New(store, a.embedders)

	logger.Info("newsdex initialised",
		zap.String("store", cfg.Store.Driver),
		zap.String("articles", cfg.Articles.DSN),
		zap.Int("variants", len(a.embedders.Variants())),
	)
	return a, nil
}

// corpusQuery is the article selection shared by indexing and fitting.
func (a *app) corpusQuery() article.Query {
	return article.Query{
		MinWords:     a.cfg.Articles.MinWords,
		MaxWords:     a.cfg.Articles.MaxWords,
		UseProcessed: a.cfg.Articles.UseProcessed,
	}
}

// fit trains the corpus-fitted variants among vs so their query vectors
// match the indexed collections.
func (a *app) fit(ctx context.Context, vs ...variant.Variant) error {
	return a.indexer.Fit(ctx, vs, a.corpusQuery())
}

func (a *app) evaluator() *evaluationuc.Service {
	return evaluationuc.New(a.search, a.logger).
		WithK(a.cfg.Evaluation.K).
		WithConcurrency(a.cfg.Evaluation.Concurrency)
}

// Close releases models, the corpus database and the store.
func (a *app) Close() {
	for _, h := range a.handles {
		if err := h.Close(); err != nil {
			a.logger.Warn("Close model failed", zap.String("model", h.Name()), zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Close article database failed", zap.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("Close vector store failed", zap.Error(err))
		}
	}
}

// openArticles opens the corpus database and creates its schema when missing.
func openArticles(ctx context.Context, cfg config.Config, logger *zap.Logger) (*artrepo.Repo, *sql.DB, error) {
	db, err := artrepo.OpenSQLite(cfg.Articles.DSN)
	if err != nil {
		return nil, nil, err
	}
	repo := artrepo.New(db, logger)
	if err := repo.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return repo, db, nil
}

// openStore builds the vector store for the configured driver. The returned
// KV store is non-nil for valkey and redis, where it also backs the embedding
// cache and budget counters; closing the vector store closes it.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (vectorstore.Store, *dbRedis.Store, error) {
	sc := cfg.Store
	switch sc.Driver {
	case config.DriverMemory:
		return memory.New(), nil, nil

	case config.DriverValkey, config.DriverRedis:
		flavor := dbRedis.FlavorRedis
		if sc.Driver == config.DriverValkey {
			flavor = dbRedis.FlavorValkey
		}
		kv, err := dbRedis.NewStore(dbRedis.Config{Addrs: sc.Addrs, Password: sc.Password, Flavor: flavor})
		if err != nil {
			return nil, nil, fmt.Errorf("connect %s: %w", sc.Driver, err)
		}
		if err := kv.WaitForReady(ctx, time.Duration(sc.ReadinessTimeout)*time.Second); err != nil {
			kv.Close()
			return nil, nil, fmt.Errorf("%s not ready: %w", sc.Driver, err)
		}
		logger.Info("Connected to store", zap.String("driver", sc.Driver), zap.String("flavor", string(kv.Flavor())), zap.Strings("addrs", sc.Addrs))
		store := valkey.New(kv, sc.KeyPrefix).WithHNSW(valkey.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		})
		return store, kv, nil

	case config.DriverQdrant:
		store, err := qdrant.New(qdrant.Config{
			Host:        sc.Qdrant.Host,
			Port:        sc.Qdrant.Port,
			APIKey:      sc.Qdrant.APIKey,
			UseTLS:      sc.Qdrant.UseTLS,
			HNSWEF:      sc.Qdrant.HNSWEF,
			UploadBatch: sc.Qdrant.UploadBatch,
			Timeout:     time.Duration(sc.Qdrant.TimeoutSec) * time.Second,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect qdrant: %w", err)
		}
		return store, nil, nil

	case config.DriverHNSW:
		store, err := hnsw.Open(hnsw.Config{Dir: sc.HNSW.Dir, M: sc.HNSW.M, EfSearch: sc.HNSW.EfSearch}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open hnsw store: %w", err)
		}
		return store, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", sc.Driver)
}

// embedderBuilder assembles one embedder per configured variant.
// Pretrained variants chain provider -> cache -> budget/metrics behind a
// lazily loaded handle.
type embedderBuilder struct {
	cfg    config.Config
	kv     *dbRedis.Store
	cache  kvCache
	local  func(fastembed.Config) (domain.TextEmbedder, error)
	logger *zap.Logger

	mu      sync.Mutex
	budgets map[string]embeddinguc.BudgetChecker
	handles []*embeddinguc.Handle
}

func (b *embedderBuilder) build() (*embeddinguc.Registry, error) {
	if len(b.cfg.Embedding.Variants) == 0 {
		return nil, errors.New("no embedding variants configured")
	}
	analyzer, err := lexical.NewSpanishAnalyzer()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(b.cfg.Embedding.Variants))
	for name := range b.cfg.Embedding.Variants {
		names = append(names, name)
	}
	sort.Strings(names)

	reg := embeddinguc.NewRegistry()
	for _, name := range names {
		vc := b.cfg.Embedding.Variants[name]
		v, err := variant.Parse(name)
		if err != nil {
			return nil, err
		}
		dim := vc.Dimensions
		if dim <= 0 {
			dim = v.DefaultDimension()
		}

		var emb domain.Embedder
		switch v {
		case variant.TFIDF:
			emb, err = lexical.NewTFIDF(dim, analyzer)
		case variant.BM25:
			emb, err = lexical.NewBM25(dim, b.cfg.Embedding.Lexical.K1, b.cfg.Embedding.Lexical.B, analyzer)
		default:
			var passage *embeddinguc.Handle
			if vc.PassageModel != "" {
				passage = b.handle(vc, vc.PassageModel)
			}
			emb, err = embeddinguc.NewPretrained(v, dim, b.handle(vc, vc.Model), passage)
		}
		if err != nil {
			return nil, fmt.Errorf("build %s embedder: %w", v, err)
		}
		reg.Register(emb)
		b.logger.Debug("Embedder registered",
			zap.String("variant", string(v)),
			zap.String("provider", vc.Provider),
			zap.String("model", vc.Model),
			zap.Int("dimension", dim),
		)
	}
	return reg, nil
}

func (b *embedderBuilder) handle(vc config.VariantConfig, model string) *embeddinguc.Handle {
	if model == "" && vc.Provider == config.ProviderFastembed {
		model = fastembed.DefaultModel
	}
	h := embeddinguc.NewHandle(model, func(ctx context.Context) (domain.TextEmbedder, error) {
		base, provider, err := b.provider(vc, model)
		if err != nil {
			return nil, err
		}
		cached := embcache.New(base, b.cache, b.cfg.Store.KeyPrefix, model, metrics.EmbeddingCacheTotal, b.logger)
		return embeddinguc.NewMeteredEmbedder(cached, provider, model, b.budget(ctx, provider), b.logger).
			WithMaxBatchSize(b.cfg.Index.BatchSize), nil
	}, b.logger)
	b.handles = append(b.handles, h)
	return h
}

func newFastembed(cfg fastembed.Config) (domain.TextEmbedder, error) {
	fe, err := fastembed.New(cfg)
	if err != nil {
		return nil, err
	}
	return fe, nil
}

// provider builds the text embedder for a variant and returns the name of the
// provider actually serving it. A fastembed variant with a fallback provider
// switches to it when the local runtime is not compiled in.
func (b *embedderBuilder) provider(vc config.VariantConfig, model string) (domain.TextEmbedder, string, error) {
	if vc.Provider == config.ProviderFastembed {
		fe, err := b.local(fastembed.Config{
			Model:     model,
			CacheDir:  b.cfg.Embedding.CacheDir,
			BatchSize: b.cfg.Index.BatchSize,
		})
		switch {
		case err == nil:
			return fe, vc.Provider, nil
		case errors.Is(err, fastembed.ErrUnavailable) && vc.Fallback != "":
			b.logger.Warn("Local fastembed runtime unavailable, using fallback provider",
				zap.String("provider", vc.Fallback),
				zap.String("model", model),
			)
			vc.Provider = vc.Fallback
		default:
			return nil, "", err
		}
	}

	pc := b.cfg.Embedding.Providers[vc.Provider]
	dims := 0
	if vc.Provider == "openai" {
		// only OpenAI's text-embedding-3 models accept a requested size
		dims = vc.Dimensions
	}
	return openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     pc.APIKey,
		BaseURL:    pc.BaseURL,
		Model:      model,
		Dimensions: dims,
		Provider:   vc.Provider,
		Logger:     b.logger,
	}), vc.Provider, nil
}

// budget returns the shared tracker of a provider, or nil when the provider
// has no limits. The nil is an untyped interface so callers can compare it.
func (b *embedderBuilder) budget(ctx context.Context, provider string) embeddinguc.BudgetChecker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if checker, ok := b.budgets[provider]; ok {
		return checker
	}

	var checker embeddinguc.BudgetChecker
	bc := b.cfg.Embedding.Providers[provider].Budget
	if provider != config.ProviderFastembed && (bc.DailyTokenLimit > 0 || bc.MonthlyTokenLimit > 0) {
		action := embeddinguc.BudgetActionWarn
		if bc.Action == string(embeddinguc.BudgetActionReject) {
			action = embeddinguc.BudgetActionReject
		}
		limits := embeddinguc.Limits{Daily: bc.DailyTokenLimit, Monthly: bc.MonthlyTokenLimit}
		tracker := embeddinguc.NewBudgetTracker(b.cfg.Store.KeyPrefix, provider, limits, action, b.logger)
		if b.kv != nil {
			tracker.WithStore(ctx, budgetrepo.New(b.kv, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))
		}
		checker = tracker
	}
	b.budgets[provider] = checker
	return checker
}
