//go:build cgo

package fastembed

import (
	"context"
	"fmt"
	"sync"

	fe "github.com/anush008/fastembed-go"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/metrics"
)

var models = map[string]fe.EmbeddingModel{
	"sentence-transformers/all-MiniLM-L6-v2": fe.AllMiniLML6V2,
	"fast-all-MiniLM-L6-v2":                 fe.AllMiniLML6V2,
	"BAAI/bge-small-en-v1.5":                fe.BGESmallENV15,
	"BAAI/bge-base-en-v1.5":                 fe.BGEBaseENV15,
}

// Embedder embeds text with a local ONNX model.
type Embedder struct {
	mu        sync.RWMutex
	model     *fe.FlagEmbedding
	name      string
	dimension int
	batchSize int
}

// New loads the model, downloading it into CacheDir on first use.
func New(cfg Config) (*Embedder, error) {
	cfg = cfg.withDefaults()
	model, ok := models[cfg.Model]
	if !ok {
		return nil, fmt.Errorf("fastembed: unsupported model %q", cfg.Model)
	}
	dim, _ := ModelDimension(cfg.Model)

	showProgress := false
	flag, err := fe.NewFlagEmbedding(&fe.InitOptions{
		Model:                model,
		CacheDir:             cfg.CacheDir,
		MaxLength:            cfg.MaxLength,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("fastembed: init %s: %w", cfg.Model, err)
	}
	return &Embedder{model: flag, name: cfg.Model, dimension: dim, batchSize: cfg.BatchSize}, nil
}

// Dimension returns the model output size.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed implements domain.TextEmbedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: res.Embeddings[0]}, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	if err := ctx.Err(); err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("fastembed: %w", err)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.model == nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("fastembed: model closed: %w", domain.ErrEmbeddingProviderError)
	}

	vectors, err := e.model.Embed(texts, e.batchSize)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("fastembed", e.name, "error").Inc()
		return domain.BatchEmbeddingResult{}, fmt.Errorf("fastembed: %v: %w", err, domain.ErrEmbeddingProviderError)
	}
	metrics.EmbeddingRequestsTotal.WithLabelValues("fastembed", e.name, "success").Inc()
	return domain.BatchEmbeddingResult{Embeddings: vectors}, nil
}

// Close releases the ONNX session.
func (e *Embedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return nil
	}
	err := e.model.Destroy()
	e.model = nil
	return err
}
