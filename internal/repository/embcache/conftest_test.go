package embcache

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/domain"
)

// countingProvider embeds a text as [len(text)] and charges tokens per text.
type countingProvider struct {
	tokens  int
	err     error
	batches [][]string
	singles int
}

func (p *countingProvider) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	p.singles++
	if p.err != nil {
		return domain.EmbeddingResult{}, p.err
	}
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text))}, TotalTokens: p.tokens}, nil
}

func (p *countingProvider) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	p.batches = append(p.batches, texts)
	if p.err != nil {
		return domain.BatchEmbeddingResult{}, p.err
	}
	out := domain.BatchEmbeddingResult{PromptTokens: p.tokens * len(texts), TotalTokens: p.tokens * len(texts)}
	for _, t := range texts {
		out.Embeddings = append(out.Embeddings, []float32{float32(len(t))})
	}
	return out, nil
}

// brokenStore fails every call.
type brokenStore struct{ err error }

func (b brokenStore) Get(context.Context, string) ([]byte, error) { return nil, b.err }
func (b brokenStore) Set(context.Context, string, []byte) error   { return b.err }

func newLRUCached(t *testing.T, inner domain.TextEmbedder) (*CachedEmbedder, *LRUStore) {
	t.Helper()
	s, err := NewLRUStore(64)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return New(inner, s, "newsdex:", "minilm", nil, zap.NewNop()), s
}
