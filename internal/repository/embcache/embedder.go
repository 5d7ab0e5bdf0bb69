// Package embcache memoizes embeddings per model and text.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/db"
	"github.com/kailas-cloud/newsdex/internal/domain"
)

const keySegment = "emb_cache:"

// Store holds encoded vectors. Misses are db.ErrKeyNotFound.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// CachedEmbedder serves repeated texts from a Store. Hits report zero tokens,
// so budgets are only charged for texts the provider actually saw. Cache
// failures degrade to a miss.
type CachedEmbedder struct {
	inner  domain.TextEmbedder
	store  Store
	prefix string
	hits   prometheus.Counter
	misses prometheus.Counter
	log    *zap.Logger
}

// New keys entries as <prefix>emb_cache:<model>:<sha256(text)>; the query and
// passage encoders of one variant pass different models and never collide.
// counter, if set, is labelled by result ("hit" or "miss").
func New(
	inner domain.TextEmbedder, store Store, prefix, model string,
	counter *prometheus.CounterVec, logger *zap.Logger,
) *CachedEmbedder {
	c := &CachedEmbedder{
		inner:  inner,
		store:  store,
		prefix: prefix + keySegment + model + ":",
		log:    logger.With(zap.String("model", model)),
	}
	if counter != nil {
		c.hits = counter.WithLabelValues("hit")
		c.misses = counter.WithLabelValues("miss")
	}
	return c
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)
	if vec := c.load(ctx, key); vec != nil {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	c.save(ctx, key, res.Embedding)
	return res, nil
}

// BatchEmbed forwards only the misses, in one call, and splices the results
// back in input order. Token counts cover the misses.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	keys := make([]string, len(texts))
	var pending []int
	for i, t := range texts {
		keys[i] = c.key(t)
		if out.Embeddings[i] = c.load(ctx, keys[i]); out.Embeddings[i] == nil {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return out, nil
	}

	missTexts := make([]string, len(pending))
	for j, i := range pending {
		missTexts[j] = texts[i]
	}
	res, err := c.embedMany(ctx, missTexts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	if len(res.Embeddings) != len(pending) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("%w: expected %d embeddings, got %d",
			domain.ErrEmbeddingProviderError, len(pending), len(res.Embeddings))
	}
	for j, i := range pending {
		out.Embeddings[i] = res.Embeddings[j]
		c.save(ctx, keys[i], res.Embeddings[j])
	}
	out.PromptTokens, out.TotalTokens = res.PromptTokens, res.TotalTokens
	return out, nil
}

// HealthCheck probes the wrapped provider when it can be probed.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (c *CachedEmbedder) embedMany(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	var (
		res domain.BatchEmbeddingResult
		err error
	)
	if be, ok := c.inner.(domain.BatchEmbedder); ok {
		res, err = be.BatchEmbed(ctx, texts)
	} else {
		res, err = domain.BatchFallback(ctx, c.inner.Embed, texts)
	}
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}
	return res, nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(sum[:])
}

// load returns nil on a miss, including unreadable entries.
func (c *CachedEmbedder) load(ctx context.Context, key string) []float32 {
	data, err := c.store.Get(ctx, key)
	var vec []float32
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
	case err != nil:
		c.log.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
	default:
		if vec = db.BytesToVector(string(data)); len(vec) == 0 {
			c.log.Warn("Discarding malformed cached embedding", zap.String("key", key), zap.Int("bytes", len(data)))
			vec = nil
		}
	}
	if vec == nil {
		inc(c.misses)
	} else {
		inc(c.hits)
	}
	return vec
}

func (c *CachedEmbedder) save(ctx context.Context, key string, vec []float32) {
	if err := c.store.Set(ctx, key, []byte(db.VectorToBytes(vec))); err != nil {
		c.log.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}
