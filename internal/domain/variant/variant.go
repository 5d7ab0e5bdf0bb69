package variant

import (
	"fmt"
	"strings"
)

// CollectionPrefix is prepended to the variant name to form its collection.
const CollectionPrefix = "news_"

// Variant identifies an embedding strategy.
type Variant string

// Supported embedder variants.
const (
	TFIDF  Variant = "tfidf"
	BM25   Variant = "bm25"
	DPR    Variant = "dpr"
	SBERT  Variant = "sbert"
	MiniLM Variant = "minilm"
)

// All lists every variant in evaluation order.
func All() []Variant {
	return []Variant{TFIDF, BM25, DPR, SBERT, MiniLM}
}

// IsValid checks if the variant is one of the supported values.
func (v Variant) IsValid() bool {
	switch v {
	case TFIDF, BM25, DPR, SBERT, MiniLM:
		return true
	}
	return false
}

// IsCorpusFitted reports whether the variant must see the corpus before encoding.
func (v Variant) IsCorpusFitted() bool {
	return v == TFIDF || v == BM25
}

// Collection returns the collection name that stores this variant's vectors.
func (v Variant) Collection() string {
	return CollectionPrefix + string(v)
}

// DefaultDimension is the vector size each variant produces out of the box.
func (v Variant) DefaultDimension() int {
	switch v {
	case DPR, SBERT:
		return 768
	case TFIDF, BM25, MiniLM:
		return 384
	}
	return 0
}

// Parse converts user input into a Variant.
func Parse(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	if !v.IsValid() {
		return "", fmt.Errorf("unknown embedder variant %q (want one of tfidf, bm25, dpr, sbert, minilm)", s)
	}
	return v, nil
}

// FromCollection maps a collection name back to its variant.
func FromCollection(name string) (Variant, bool) {
	rest, ok := strings.CutPrefix(name, CollectionPrefix)
	if !ok {
		return "", false
	}
	v := Variant(rest)
	return v, v.IsValid()
}
