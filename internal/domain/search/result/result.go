package result

import (
	"time"

	"github.com/kailas-cloud/newsdex/internal/domain/record"
)

// Result is a single ranked article.
type Result struct {
	id       string
	semantic float64
	keyword  float64
	combined float64
	payload  record.Payload
}

// New creates a search result. The combined score starts at zero until fused.
func New(id string, semantic, keyword float64, payload record.Payload) Result {
	return Result{id: id, semantic: semantic, keyword: keyword, payload: payload}
}

// WithCombined returns a copy carrying the fused score.
func (r Result) WithCombined(combined float64) Result {
	r.combined = combined
	return r
}

// ID returns the article identifier.
func (r *Result) ID() string { return r.id }

// SemanticScore returns the cosine similarity to the prompt, 0 for keyword-only search.
func (r *Result) SemanticScore() float64 { return r.semantic }

// KeywordScore returns the aggregate keyword relevance.
func (r *Result) KeywordScore() float64 { return r.keyword }

// CombinedScore returns the fused ranking score.
func (r *Result) CombinedScore() float64 { return r.combined }

// Payload returns the stored article metadata.
func (r *Result) Payload() record.Payload { return r.payload }

// PublishedAt returns the publication day used as ranking tie-break.
func (r *Result) PublishedAt() time.Time { return r.payload.Published() }
