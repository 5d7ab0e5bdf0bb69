package lexical

import (
	"math"

	"github.com/kailas-cloud/newsdex/internal/domain/variant"
)

// NewTFIDF creates a TF-IDF embedder with raw term counts and smoothed idf,
// ln((1+N)/(1+df)) + 1.
func NewTFIDF(dimension int, analyzer *Analyzer) (*Embedder, error) {
	return newEmbedder(variant.TFIDF, dimension, analyzer, fitTFIDF)
}

type tfidf struct {
	idf []float64
}

func fitTFIDF(v *Vocabulary) weighting {
	idf := make([]float64, v.Len())
	n := float64(v.Docs())
	for i := range idf {
		idf[i] = math.Log((1+n)/(1+float64(v.DocFreq(i)))) + 1
	}
	return &tfidf{idf: idf}
}

func (w *tfidf) weight(slot, tf, _ int) float64 {
	return float64(tf) * w.idf[slot]
}
