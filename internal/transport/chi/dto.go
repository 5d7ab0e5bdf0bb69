package chi

import (
	"github.com/kailas-cloud/newsdex/internal/domain/search/result"
	"github.com/kailas-cloud/newsdex/internal/vectorstore"
)

// ErrorCode is the machine-readable error kind returned to clients.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeInvalidQuery           ErrorCode = "invalid_query"
	ErrorCodeNotFound               ErrorCode = "not_found"
	ErrorCodeUnknownVariant         ErrorCode = "unknown_variant"
	ErrorCodeVariantMismatch        ErrorCode = "variant_mismatch"
	ErrorCodeDimensionMismatch      ErrorCode = "dimension_mismatch"
	ErrorCodeNotFitted              ErrorCode = "variant_not_fitted"
	ErrorCodeRateLimited            ErrorCode = "rate_limited"
	ErrorCodeEmbeddingQuotaExceeded ErrorCode = "embedding_quota_exceeded"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	Prompt          string   `json:"prompt,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	Match           string   `json:"match,omitempty"`
	SortBy          string   `json:"sort_by,omitempty"`
	Date            string   `json:"date,omitempty"`
	Section         string   `json:"section,omitempty"`
	Newspaper       string   `json:"newspaper,omitempty"`
	MinKeywordScore float64  `json:"min_keyword_score,omitempty"`
	Limit           int      `json:"limit,omitempty"`
	Variant         string   `json:"variant,omitempty"`
	Collection      string   `json:"collection,omitempty"`
}

// searchQueryParams are the query parameters of GET /v1/search.
type searchQueryParams struct {
	Prompt          *string
	Keywords        *[]string
	Match           *string
	SortBy          *string
	Date            *string
	Section         *string
	Newspaper       *string
	MinKeywordScore *float64
	Limit           *int
	Variant         *string
	Collection      *string
}

// KeywordItem is one scored article keyword.
type KeywordItem struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// SearchResultItem is one ranked article.
type SearchResultItem struct {
	ArticleID     string        `json:"article_id"`
	SemanticScore float64       `json:"semantic_score"`
	KeywordScore  float64       `json:"keyword_score"`
	CombinedScore float64       `json:"combined_score"`
	Title         string        `json:"title"`
	Section       string        `json:"section"`
	PublishedAt   string        `json:"published_at"`
	Newspaper     string        `json:"newspaper"`
	URL           string        `json:"url,omitempty"`
	Keywords      []KeywordItem `json:"keywords,omitempty"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Variant    string             `json:"variant"`
	Collection string             `json:"collection,omitempty"`
	Count      int                `json:"count"`
	Results    []SearchResultItem `json:"results"`
}

// CollectionResponse describes one stored collection.
type CollectionResponse struct {
	Name      string `json:"name"`
	Variant   string `json:"variant,omitempty"`
	Dimension int    `json:"dimension"`
	Count     int    `json:"count"`
}

// CollectionListResponse is the body of GET /v1/collections.
type CollectionListResponse struct {
	Collections []CollectionResponse `json:"collections"`
}

// EnsureCollectionRequest is the body of POST /v1/collections.
type EnsureCollectionRequest struct {
	Variant   string `json:"variant"`
	Name      string `json:"name,omitempty"`
	Dimension int    `json:"dimension,omitempty"`
}

// DeleteCollectionsResponse lists the collections removed by a bulk delete.
type DeleteCollectionsResponse struct {
	Deleted []string `json:"deleted"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func resultToItem(r *result.Result) SearchResultItem {
	p := r.Payload()
	item := SearchResultItem{
		ArticleID:     r.ID(),
		SemanticScore: r.SemanticScore(),
		KeywordScore:  r.KeywordScore(),
		CombinedScore: r.CombinedScore(),
		Title:         p.Title,
		Section:       p.Section,
		PublishedAt:   p.PublishedAt,
		Newspaper:     p.Newspaper,
		URL:           p.URL,
	}
	if len(p.Keywords) > 0 {
		item.Keywords = make([]KeywordItem, len(p.Keywords))
		for i, k := range p.Keywords {
			item.Keywords[i] = KeywordItem{Term: k.Term, Score: k.Score}
		}
	}
	return item
}

func collectionToResponse(c vectorstore.CollectionInfo) CollectionResponse {
	return CollectionResponse{
		Name:      c.Name,
		Variant:   string(c.Variant),
		Dimension: c.Dimension,
		Count:     c.Count,
	}
}
