package lexical

import (
	"math"

	"github.com/kailas-cloud/newsdex/internal/domain/variant"
)

// Okapi BM25 parameters.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// NewBM25 creates a BM25 embedder: each vocabulary slot carries the Okapi
// term weight of the text, idf = ln((N-df+0.5)/(df+0.5) + 1).
func NewBM25(dimension int, k1, b float64, analyzer *Analyzer) (*Embedder, error) {
	if k1 <= 0 {
		k1 = DefaultK1
	}
	if b < 0 || b > 1 {
		b = DefaultB
	}
	fit := func(v *Vocabulary) weighting {
		idf := make([]float64, v.Len())
		n := float64(v.Docs())
		for i := range idf {
			df := float64(v.DocFreq(i))
			idf[i] = math.Log((n-df+0.5)/(df+0.5) + 1)
		}
		avg := v.AvgDocLen()
		if avg == 0 {
			avg = 1
		}
		return &bm25{k1: k1, b: b, idf: idf, avgDocLen: avg}
	}
	return newEmbedder(variant.BM25, dimension, analyzer, fit)
}

type bm25 struct {
	k1, b     float64
	idf       []float64
	avgDocLen float64
}

func (w *bm25) weight(slot, tf, docLen int) float64 {
	f := float64(tf)
	norm := f + w.k1*(1-w.b+w.b*float64(docLen)/w.avgDocLen)
	return w.idf[slot] * f * (w.k1 + 1) / norm
}
