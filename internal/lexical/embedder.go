package lexical

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
)

// weighting scores one vocabulary slot of a text from its term frequency.
type weighting interface {
	weight(slot, tf, docLen int) float64
}

// fitFunc derives corpus statistics (idf, average length) from a vocabulary.
type fitFunc func(v *Vocabulary) weighting

type model struct {
	vocab   *Vocabulary
	weights weighting
}

// Embedder is a corpus-fitted sparse embedder producing dense L2-normalized
// vectors of a fixed dimension. Slots beyond the vocabulary size stay zero.
type Embedder struct {
	variant   variant.Variant
	dimension int
	analyzer  *Analyzer
	fit       fitFunc

	mu    sync.RWMutex
	model *model
}

func newEmbedder(v variant.Variant, dimension int, analyzer *Analyzer, fit fitFunc) (*Embedder, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%s: dimension must be positive, got %d", v, dimension)
	}
	if analyzer == nil {
		return nil, fmt.Errorf("%s: analyzer is required", v)
	}
	return &Embedder{variant: v, dimension: dimension, analyzer: analyzer, fit: fit}, nil
}

// Variant returns the embedder variant.
func (e *Embedder) Variant() variant.Variant { return e.variant }

// Dimension returns the vector size.
func (e *Embedder) Dimension() int { return e.dimension }

// Fitted reports whether Fit has succeeded.
func (e *Embedder) Fitted() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model != nil
}

// Vocabulary returns the fitted vocabulary, nil before Fit.
func (e *Embedder) Vocabulary() *Vocabulary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.model == nil {
		return nil
	}
	return e.model.vocab
}

// Fit rebuilds the vocabulary and term statistics from corpus.
// Vectors issued before a re-fit are no longer comparable with new ones.
func (e *Embedder) Fit(ctx context.Context, corpus []string) error {
	if len(corpus) == 0 {
		return fmt.Errorf("%s fit: empty corpus", e.variant)
	}
	docs := make([][]string, len(corpus))
	for i, text := range corpus {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%s fit: %w", e.variant, err)
			}
		}
		docs[i] = e.analyzer.Terms(text)
	}

	vocab := BuildVocabulary(docs, e.dimension)
	if vocab.Len() == 0 {
		return fmt.Errorf("%s fit: corpus has no indexable terms", e.variant)
	}
	m := &model{vocab: vocab, weights: e.fit(vocab)}

	e.mu.Lock()
	e.model = m
	e.mu.Unlock()
	return nil
}

// Embed projects text onto the fitted vocabulary.
func (e *Embedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.mu.RLock()
	m := e.model
	e.mu.RUnlock()
	if m == nil {
		return domain.EmbeddingResult{}, domain.NewNotFitted(string(e.variant))
	}

	terms := e.analyzer.Terms(text)
	weights := make([]float64, e.dimension)
	for slot, tf := range m.vocab.counts(terms) {
		weights[slot] = m.weights.weight(slot, tf, len(terms))
	}
	// summed in slot order so equal texts give bit-identical vectors
	var norm float64
	for _, w := range weights {
		norm += w * w
	}
	vec := make([]float32, e.dimension)
	if norm > 0 {
		inv := 1 / math.Sqrt(norm)
		for i, w := range weights {
			vec[i] = float32(w * inv)
		}
	}
	return domain.EmbeddingResult{Embedding: vec, TotalTokens: len(terms)}, nil
}
