package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
)

// Compile-time checks.
var (
	_ domain.Embedder              = (*Pretrained)(nil)
	_ domain.DocumentEmbedder      = (*Pretrained)(nil)
	_ domain.DocumentBatchEmbedder = (*Pretrained)(nil)
)

// Pretrained adapts model handles to domain.Embedder. Queries go through the
// query model; passages go through the passage model when one is configured.
type Pretrained struct {
	variant   variant.Variant
	dimension int
	query     *Handle
	passage   *Handle
}

// NewPretrained creates a pretrained embedder. passage may be nil.
func NewPretrained(v variant.Variant, dimension int, query, passage *Handle) (*Pretrained, error) {
	if !v.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownVariant, v)
	}
	if v.IsCorpusFitted() {
		return nil, fmt.Errorf("variant %s is corpus fitted, not pretrained", v)
	}
	if dimension <= 0 {
		return nil, errors.New("dimension must be positive")
	}
	if query == nil {
		return nil, errors.New("query model handle is required")
	}
	return &Pretrained{variant: v, dimension: dimension, query: query, passage: passage}, nil
}

// Variant returns the embedding strategy.
func (p *Pretrained) Variant() variant.Variant { return p.variant }

// Dimension returns the vector size.
func (p *Pretrained) Dimension() int { return p.dimension }

// Fit is a no-op: pretrained models do not learn from the corpus.
func (p *Pretrained) Fit(context.Context, []string) error { return nil }

// Embed encodes a query.
func (p *Pretrained) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return p.embed(ctx, p.query, text)
}

// EmbedDocument encodes a passage for indexing.
func (p *Pretrained) EmbedDocument(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return p.embed(ctx, p.passageHandle(), text)
}

// BatchEmbedDocuments encodes many passages, in one provider call when the model supports it.
func (p *Pretrained) BatchEmbedDocuments(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	h := p.passageHandle()
	model, err := h.Get(ctx)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	var res domain.BatchEmbeddingResult
	if be, ok := model.(domain.BatchEmbedder); ok {
		res, err = be.BatchEmbed(ctx, texts)
	} else {
		res, err = domain.BatchFallback(ctx, model.Embed, texts)
	}
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("%s batch embed: %w", p.variant, err)
	}
	if len(res.Embeddings) != len(texts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("%w: %s returned %d vectors for %d texts",
			domain.ErrEmbeddingProviderError, h.Name(), len(res.Embeddings), len(texts))
	}
	for _, vec := range res.Embeddings {
		if len(vec) != p.dimension {
			return domain.BatchEmbeddingResult{}, domain.NewDimensionMismatch("", p.dimension, len(vec))
		}
	}
	return res, nil
}

// HealthCheck probes the query model. Unloaded models are loaded first.
func (p *Pretrained) HealthCheck(ctx context.Context) error {
	model, err := p.query.Get(ctx)
	if err != nil {
		return err
	}
	if hc, ok := model.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (p *Pretrained) passageHandle() *Handle {
	if p.passage != nil {
		return p.passage
	}
	return p.query
}

func (p *Pretrained) embed(ctx context.Context, h *Handle, text string) (domain.EmbeddingResult, error) {
	model, err := h.Get(ctx)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	res, err := model.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("%s embed: %w", p.variant, err)
	}
	if len(res.Embedding) != p.dimension {
		return domain.EmbeddingResult{}, domain.NewDimensionMismatch("", p.dimension, len(res.Embedding))
	}
	return res, nil
}
