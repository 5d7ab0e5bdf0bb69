package indexing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/article"
	"github.com/kailas-cloud/newsdex/internal/domain/keyword"
	"github.com/kailas-cloud/newsdex/internal/domain/record"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
)

// --- Stubs ---

type stubEmbedder struct {
	variant  variant.Variant
	dim      int
	fitCalls int
	fitSize  int
	calls    int
	// failOn makes Embed return err for texts containing the marker.
	failOn string
	err    error
}

func (s *stubEmbedder) Variant() variant.Variant { return s.variant }
func (s *stubEmbedder) Dimension() int           { return s.dim }

func (s *stubEmbedder) Fit(_ context.Context, corpus []string) error {
	s.fitCalls++
	s.fitSize = len(corpus)
	return nil
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	s.calls++
	if s.failOn != "" && strings.Contains(text, s.failOn) {
		return domain.EmbeddingResult{}, s.err
	}
	vec := make([]float32, s.dim)
	vec[len(text)%s.dim] = 1
	return domain.EmbeddingResult{Embedding: vec}, nil
}

type stubRegistry map[variant.Variant]domain.Embedder

func (r stubRegistry) Get(v variant.Variant) (domain.Embedder, error) {
	e, ok := r[v]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownVariant, v)
	}
	return e, nil
}

type stubReader struct {
	docs []article.Document
	err  error
}

func (r *stubReader) Read(_ context.Context, q article.Query) ([]article.Document, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []article.Document
	for _, d := range r.docs {
		if q.Matches(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

type recordingStore struct {
	ensured   map[string]int
	upserts   int
	records   map[string]map[string]record.Record
	upsertErr error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{ensured: map[string]int{}, records: map[string]map[string]record.Record{}}
}

func (s *recordingStore) EnsureCollection(_ context.Context, name string, dim int) error {
	if d, ok := s.ensured[name]; ok && d != dim {
		return domain.NewDimensionMismatch(name, d, dim)
	}
	s.ensured[name] = dim
	if s.records[name] == nil {
		s.records[name] = map[string]record.Record{}
	}
	return nil
}

func (s *recordingStore) Upsert(_ context.Context, collection string, records []record.Record) error {
	s.upserts++
	if s.upsertErr != nil {
		return s.upsertErr
	}
	for _, r := range records {
		s.records[collection][r.ID] = r
	}
	return nil
}

// corpus builds n eligible documents with processed keywords.
func corpus(n int) []article.Document {
	day, _ := time.Parse(article.DateLayout, "2024-11-18")
	docs := make([]article.Document, n)
	for i := range docs {
		id := fmt.Sprintf("art-%03d", i)
		docs[i] = article.Document{
			Article: article.Article{
				ID:          id,
				Newspaper:   "El País",
				Section:     article.Economy,
				Title:       "Titular " + id,
				Body:        "cuerpo del artículo " + id,
				PublishedAt: day,
				WordCount:   600,
			},
			Processed: &article.Processed{
				ArticleID:     id,
				ProcessedText: "texto procesado " + id,
				Keywords:      keyword.List{{Term: "inflación", Score: 0.4}},
			},
		}
	}
	return docs
}
