package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
)

type recordingEmbedder struct {
	fixedEmbedder
	texts []string
}

func (r *recordingEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r.texts = append(r.texts, text)
	return r.fixedEmbedder.Embed(ctx, text)
}

func TestPretrained_QueryAndPassageModels(t *testing.T) {
	question := &recordingEmbedder{fixedEmbedder: fixedEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 0}}}}
	passage := &recordingEmbedder{fixedEmbedder: fixedEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0, 1}}}}

	p, err := NewPretrained(variant.DPR, 2, Preloaded("q", question), Preloaded("ctx", passage))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q, err := p.Embed(context.Background(), "¿qué pasó con la inflación?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Embedding[0] != 1 {
		t.Errorf("query must use the question encoder, got %v", q.Embedding)
	}

	d, err := domain.EmbedForIndex(context.Background(), p, "La inflación bajó en octubre.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Embedding[1] != 1 {
		t.Errorf("passage must use the context encoder, got %v", d.Embedding)
	}
	if len(question.texts) != 1 || len(passage.texts) != 1 {
		t.Errorf("unexpected routing: question=%v passage=%v", question.texts, passage.texts)
	}
}

func TestPretrained_PassageDefaultsToQueryModel(t *testing.T) {
	model := &fixedEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.5, 0.5, 0.5}}}
	p, err := NewPretrained(variant.SBERT, 3, Preloaded("sbert", model), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := domain.EmbedBatchForIndex(context.Background(), p, []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(res.Embeddings))
	}
	if model.batchCalls != 1 {
		t.Errorf("expected one batch call, got %d", model.batchCalls)
	}
}

func TestPretrained_DimensionMismatch(t *testing.T) {
	model := &fixedEmbedder{result: domain.EmbeddingResult{Embedding: []float32{1, 2}}}
	p, err := NewPretrained(variant.MiniLM, 384, Preloaded("minilm", model), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := p.Embed(context.Background(), "hola"); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := p.BatchEmbedDocuments(context.Background(), []string{"hola"}); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for batch, got %v", err)
	}
}

func TestPretrained_FitIsNoop(t *testing.T) {
	p, err := NewPretrained(variant.SBERT, 1, Preloaded("m", &fixedEmbedder{}), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Fit(context.Background(), nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewPretrained_Validation(t *testing.T) {
	h := Preloaded("m", &fixedEmbedder{})
	tests := []struct {
		name string
		v    variant.Variant
		dim  int
		h    *Handle
	}{
		{"corpus fitted", variant.TFIDF, 384, h},
		{"unknown", variant.Variant("word2vec"), 300, h},
		{"zero dim", variant.SBERT, 0, h},
		{"no handle", variant.SBERT, 768, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPretrained(tt.v, tt.dim, tt.h, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}
