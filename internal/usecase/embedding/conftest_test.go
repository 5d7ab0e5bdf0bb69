package embedding

import (
	"context"

	"github.com/kailas-cloud/newsdex/internal/domain"
)

// fixedEmbedder answers every text with result and supports batching.
type fixedEmbedder struct {
	result     domain.EmbeddingResult
	batchCalls int
}

func (f *fixedEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return f.result, nil
}

func (f *fixedEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	f.batchCalls++
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i := range texts {
		out.Embeddings[i] = f.result.Embedding
		out.TotalTokens += f.result.TotalTokens
	}
	out.PromptTokens = out.TotalTokens
	return out, nil
}

// singleFixed is fixedEmbedder without BatchEmbed.
type singleFixed struct {
	result domain.EmbeddingResult
}

func (s *singleFixed) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return s.result, nil
}
