package request

import (
	"strings"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
)

// DefaultSimilarThreshold is the minimum similarity for "more like this" results.
const DefaultSimilarThreshold = 0.75

// SimilarRequest is a validated "find similar articles" query.
type SimilarRequest struct {
	articleID string
	variant   variant.Variant
	limit     int
	threshold float64
}

// NewSimilar validates and normalizes similar request parameters.
func NewSimilar(v variant.Variant, articleID string, limit int, threshold float64) (SimilarRequest, error) {
	articleID = strings.TrimSpace(articleID)
	if articleID == "" {
		return SimilarRequest{}, domain.NewInvalidQuery("article id is required")
	}
	if !v.IsValid() {
		return SimilarRequest{}, domain.NewInvalidQuery("unknown embedder variant %q", v)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if threshold == 0 {
		threshold = DefaultSimilarThreshold
	}
	if threshold < -1 || threshold > 1 {
		return SimilarRequest{}, domain.NewInvalidQuery("threshold must be between -1 and 1")
	}
	return SimilarRequest{articleID: articleID, variant: v, limit: limit, threshold: threshold}, nil
}

// ArticleID returns the seed article.
func (r *SimilarRequest) ArticleID() string { return r.articleID }

// Variant returns the collection variant to search.
func (r *SimilarRequest) Variant() variant.Variant { return r.variant }

// Limit returns the maximum results to return.
func (r *SimilarRequest) Limit() int { return r.limit }

// Threshold returns the minimum semantic score.
func (r *SimilarRequest) Threshold() float64 { return r.threshold }
