package request

import (
	"strings"
	"time"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/article"
	"github.com/kailas-cloud/newsdex/internal/domain/keyword"
	"github.com/kailas-cloud/newsdex/internal/domain/record"
	"github.com/kailas-cloud/newsdex/internal/domain/search/filter"
	"github.com/kailas-cloud/newsdex/internal/domain/search/mode"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed prompt length.
	MaxQueryLength = 4096
	// MaxKeywords leaves room for the date, section and newspaper clauses
	// that share the must group with match-all keywords.
	MaxKeywords    = filter.MaxConditionsPerGroup - 3
	DefaultLimit   = 20
	MaxLimit       = 100
)

// Params is the raw query as received from a caller.
type Params struct {
	Prompt          string
	Keywords        []string
	Match           mode.Match
	SortBy          mode.Sort
	Date            string
	Section         string
	Newspaper       string
	MinKeywordScore float64
	Limit           int
	Variant         variant.Variant
	// Collection overrides the variant's own collection.
	Collection string
}

// Request is a validated search query.
type Request struct {
	prompt          string
	keywords        []string
	match           mode.Match
	sortBy          mode.Sort
	date            string
	section         string
	newspaper       string
	minKeywordScore float64
	limit           int
	variant         variant.Variant
	collection      string
}

// New validates and normalizes search parameters.
// Defaults: match=any, sort=combined, limit=20. Every failure is an InvalidQueryError.
func New(p Params) (Request, error) {
	prompt := strings.TrimSpace(p.Prompt)
	kws := normalizeKeywords(p.Keywords)

	if prompt == "" && len(kws) == 0 {
		return Request{}, domain.NewInvalidQuery("prompt or keywords required")
	}
	if len(prompt) > MaxQueryLength {
		return Request{}, domain.NewInvalidQuery("prompt too long (max %d chars)", MaxQueryLength)
	}
	if len(kws) > MaxKeywords {
		return Request{}, domain.NewInvalidQuery("too many keywords (max %d)", MaxKeywords)
	}
	if p.Match == "" {
		p.Match = mode.MatchAny
	}
	if !p.Match.IsValid() {
		return Request{}, domain.NewInvalidQuery("invalid match mode: %q", p.Match)
	}
	if p.SortBy == "" {
		p.SortBy = mode.SortCombined
	}
	if !p.SortBy.IsValid() {
		return Request{}, domain.NewInvalidQuery("invalid sort key: %q", p.SortBy)
	}
	if p.Date != "" {
		if _, err := time.Parse(article.DateLayout, p.Date); err != nil {
			return Request{}, domain.NewInvalidQuery("date must be YYYY-MM-DD, got %q", p.Date)
		}
	}
	if p.MinKeywordScore < 0 || p.MinKeywordScore > 1 {
		return Request{}, domain.NewInvalidQuery("min_keyword_score must be between 0 and 1")
	}
	if p.Limit < 0 {
		return Request{}, domain.NewInvalidQuery("limit must be positive")
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if !p.Variant.IsValid() {
		return Request{}, domain.NewInvalidQuery("unknown embedder variant %q", p.Variant)
	}
	collection := strings.TrimSpace(p.Collection)
	if collection == "" {
		collection = p.Variant.Collection()
	}

	return Request{
		prompt:          prompt,
		keywords:        kws,
		match:           p.Match,
		sortBy:          p.SortBy,
		date:            p.Date,
		section:         strings.TrimSpace(p.Section),
		newspaper:       strings.TrimSpace(p.Newspaper),
		minKeywordScore: p.MinKeywordScore,
		limit:           p.Limit,
		variant:         p.Variant,
		collection:      collection,
	}, nil
}

func normalizeKeywords(in []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(in))
	for _, k := range in {
		n := keyword.Normalize(k)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Prompt returns the free-text query, empty for keyword-only search.
func (r *Request) Prompt() string { return r.prompt }

// Keywords returns the normalized, deduplicated query keywords.
func (r *Request) Keywords() []string { return r.keywords }

// Match returns the keyword match mode.
func (r *Request) Match() mode.Match { return r.match }

// SortBy returns the ranking key.
func (r *Request) SortBy() mode.Sort { return r.sortBy }

// Date returns the publication-day filter (YYYY-MM-DD), empty when unset.
func (r *Request) Date() string { return r.date }

// Section returns the section filter.
func (r *Request) Section() string { return r.section }

// Newspaper returns the newspaper filter.
func (r *Request) Newspaper() string { return r.newspaper }

// MinKeywordScore returns the keyword score post-filter threshold.
func (r *Request) MinKeywordScore() float64 { return r.minKeywordScore }

// Limit returns the maximum results to return.
func (r *Request) Limit() int { return r.limit }

// Variant returns the embedder variant used to encode the prompt.
func (r *Request) Variant() variant.Variant { return r.variant }

// Collection returns the target collection.
func (r *Request) Collection() string { return r.collection }

// Mode reports which components the query carries.
func (r *Request) Mode() mode.Mode { return mode.Of(r.prompt != "", len(r.keywords) > 0) }

// Filters returns the structural filters as a store pre-filter.
func (r *Request) Filters() filter.Expression {
	var must []filter.Condition
	add := func(key, value string) {
		if value == "" {
			return
		}
		if c, err := filter.NewMatch(key, value); err == nil {
			must = append(must, c)
		}
	}
	add(record.FieldPublishedAt, r.date)
	add(record.FieldSection, r.section)
	add(record.FieldNewspaper, r.newspaper)

	e, _ := filter.NewExpression(must, nil, nil)
	return e
}

// KeywordPrefilter adds the query keywords to the structural filters so the
// store only returns keyword-eligible articles: every term under match-all,
// at least one under match-any. Without keywords it equals Filters. Final
// eligibility and scores still come from the keyword scorer.
func (r *Request) KeywordPrefilter() filter.Expression {
	must := r.Filters().Must()
	var should []filter.Condition
	for _, k := range r.keywords {
		c, err := filter.NewMatch(record.FieldKeywords, k)
		if err != nil {
			continue
		}
		if r.match == mode.MatchAll {
			must = append(must, c)
		} else {
			should = append(should, c)
		}
	}
	e, _ := filter.NewExpression(must, should, nil)
	return e
}
