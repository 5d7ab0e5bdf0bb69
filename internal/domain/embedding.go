package domain

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/newsdex/internal/domain/variant"
)

// TextEmbedder is the provider-level vectorization contract shared by the
// decorator chain (provider -> cache -> instrumentation).
type TextEmbedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// Embedder is one embedding strategy. Pretrained variants treat Fit as a no-op;
// corpus-fitted variants fail Embed with NotFittedError until Fit succeeds.
type Embedder interface {
	TextEmbedder
	Variant() variant.Variant
	Dimension() int
	Fit(ctx context.Context, corpus []string) error
}

// DocumentEmbedder is implemented by variants that encode passages with a
// different model than queries (DPR context vs question encoder).
type DocumentEmbedder interface {
	EmbedDocument(ctx context.Context, text string) (EmbeddingResult, error)
}

// DocumentBatchEmbedder encodes many passages for indexing in one call.
type DocumentBatchEmbedder interface {
	BatchEmbedDocuments(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// EmbedForIndex encodes a passage, preferring the document encoder when the
// embedder has one.
func EmbedForIndex(ctx context.Context, e Embedder, text string) (EmbeddingResult, error) {
	if de, ok := e.(DocumentEmbedder); ok {
		return de.EmbedDocument(ctx, text)
	}
	return e.Embed(ctx, text)
}

// EmbedBatchForIndex encodes passages for indexing, batching when the embedder
// supports it and falling back to EmbedForIndex per text otherwise.
func EmbedBatchForIndex(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	if be, ok := e.(DocumentBatchEmbedder); ok {
		return be.BatchEmbedDocuments(ctx, texts)
	}
	return BatchFallback(ctx, func(ctx context.Context, text string) (EmbeddingResult, error) {
		return EmbedForIndex(ctx, e, text)
	}, texts)
}

// BatchFallback calls embed once per text. Safety net for providers without a native batch call.
func BatchFallback(
	ctx context.Context, embed func(context.Context, string) (EmbeddingResult, error), texts []string,
) (BatchEmbeddingResult, error) {
	embeddings := make([][]float32, len(texts))
	var totalPrompt, totalTokens int

	for i, text := range texts {
		res, err := embed(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("fallback embed [%d]: %w", i, err)
		}
		embeddings[i] = res.Embedding
		totalPrompt += res.PromptTokens
		totalTokens += res.TotalTokens
	}

	return BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}
