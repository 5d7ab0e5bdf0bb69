package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/keyword"
	"github.com/kailas-cloud/newsdex/internal/domain/record"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
	"github.com/kailas-cloud/newsdex/internal/vectorstore"
)

// --- Stubs ---

type stubStore struct {
	hits     []vectorstore.Hit
	scanHits []vectorstore.Hit
	seed     record.Record
	err      error

	lastSearch *vectorstore.SearchQuery
	lastScan   *vectorstore.ScanQuery
}

func (s *stubStore) Search(_ context.Context, q vectorstore.SearchQuery) ([]vectorstore.Hit, error) {
	s.lastSearch = &q
	if s.err != nil {
		return nil, s.err
	}
	out := s.hits
	if len(out) > q.TopK {
		out = out[:q.TopK]
	}
	return out, nil
}

func (s *stubStore) Scan(_ context.Context, q vectorstore.ScanQuery) ([]vectorstore.Hit, error) {
	s.lastScan = &q
	if s.err != nil {
		return nil, s.err
	}
	var out []vectorstore.Hit
	for _, h := range s.scanHits {
		if q.Filters.Matches(h.Payload.Values) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *stubStore) Get(_ context.Context, collection, id string) (record.Record, error) {
	if s.seed.ID != id {
		return record.Record{}, fmt.Errorf("record %s in %s: %w", id, collection, domain.ErrNotFound)
	}
	return s.seed, nil
}

type stubEmbedder struct {
	variant variant.Variant
	vec     []float32
	err     error
	prompts []string
}

func (e *stubEmbedder) Variant() variant.Variant            { return e.variant }
func (e *stubEmbedder) Dimension() int                      { return len(e.vec) }
func (e *stubEmbedder) Fit(context.Context, []string) error { return nil }

func (e *stubEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.prompts = append(e.prompts, text)
	return domain.EmbeddingResult{Embedding: e.vec}, e.err
}

type stubRegistry map[variant.Variant]domain.Embedder

func (r stubRegistry) Get(v variant.Variant) (domain.Embedder, error) {
	e, ok := r[v]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownVariant, v)
	}
	return e, nil
}

func hit(id string, score float64, date string, kws ...keyword.Keyword) vectorstore.Hit {
	return vectorstore.Hit{
		ID:    id,
		Score: score,
		Payload: record.Payload{
			OriginalID:  id,
			Section:     "Economía",
			PublishedAt: date,
			Newspaper:   "El País",
			Keywords:    kws,
		},
	}
}

func kw(term string, score float64) keyword.Keyword {
	return keyword.Keyword{Term: term, Score: score}
}
