package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/search/mode"
	"github.com/kailas-cloud/newsdex/internal/domain/search/request"
	"github.com/kailas-cloud/newsdex/internal/domain/search/result"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
	healthuc "github.com/kailas-cloud/newsdex/internal/usecase/health"
	"github.com/kailas-cloud/newsdex/internal/vectorstore"
)

// Searcher runs hybrid and similar-article queries.
type Searcher interface {
	Search(ctx context.Context, req request.Request) ([]result.Result, error)
	Similar(ctx context.Context, req request.SimilarRequest) ([]result.Result, error)
}

// CollectionAdmin manages vector collections.
type CollectionAdmin interface {
	Ensure(ctx context.Context, v variant.Variant, name string, dim int) (vectorstore.CollectionInfo, error)
	Get(ctx context.Context, name string) (vectorstore.CollectionInfo, error)
	List(ctx context.Context) ([]vectorstore.CollectionInfo, error)
	Delete(ctx context.Context, name string) error
	DeleteAll(ctx context.Context, except []string) ([]string, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Options holds request defaults taken from configuration.
type Options struct {
	DefaultVariant   variant.Variant
	SimilarThreshold float64
}

// Server serves the search and administration API.
type Server struct {
	search        Searcher
	collections   CollectionAdmin
	health        HealthChecker
	opts          Options
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search Searcher,
	collections CollectionAdmin,
	health HealthChecker,
	opts Options,
	logger *zap.Logger,
) *Server {
	if opts.SimilarThreshold == 0 {
		opts.SimilarThreshold = request.DefaultSimilarThreshold
	}
	s := &Server{
		search:      search,
		collections: collections,
		health:      health,
		opts:        opts,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeInvalidQuery),
		sentinelHandler(domain.ErrUnknownVariant, http.StatusBadRequest, ErrorCodeUnknownVariant),
		sentinelHandler(domain.ErrVariantMismatch, http.StatusBadRequest, ErrorCodeVariantMismatch),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusConflict, ErrorCodeDimensionMismatch),
		sentinelHandler(domain.ErrNotFitted, http.StatusServiceUnavailable, ErrorCodeNotFitted),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded,
			http.StatusTooManyRequests, ErrorCodeEmbeddingQuotaExceeded),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/search", s.SearchPost)
		r.Get("/search", s.SearchGet)
		r.Get("/articles/{id}/similar", s.Similar)
		r.Get("/collections", s.ListCollections)
		r.Post("/collections", s.EnsureCollection)
		r.Delete("/collections", s.DeleteCollections)
		r.Get("/collections/{name}", s.GetCollection)
		r.Delete("/collections/{name}", s.DeleteCollection)
	})
}

// SearchPost handles POST /v1/search.
func (s *Server) SearchPost(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.runSearch(w, r, request.Params{
		Prompt:          body.Prompt,
		Keywords:        body.Keywords,
		Match:           mode.Match(body.Match),
		SortBy:          mode.Sort(body.SortBy),
		Date:            body.Date,
		Section:         body.Section,
		Newspaper:       body.Newspaper,
		MinKeywordScore: body.MinKeywordScore,
		Limit:           body.Limit,
		Variant:         variant.Variant(body.Variant),
		Collection:      body.Collection,
	})
}

// SearchGet handles GET /v1/search.
func (s *Server) SearchGet(w http.ResponseWriter, r *http.Request) {
	p, err := bindSearchParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	s.runSearch(w, r, request.Params{
		Prompt:          deref(p.Prompt),
		Keywords:        deref(p.Keywords),
		Match:           mode.Match(deref(p.Match)),
		SortBy:          mode.Sort(deref(p.SortBy)),
		Date:            deref(p.Date),
		Section:         deref(p.Section),
		Newspaper:       deref(p.Newspaper),
		MinKeywordScore: deref(p.MinKeywordScore),
		Limit:           deref(p.Limit),
		Variant:         variant.Variant(deref(p.Variant)),
		Collection:      deref(p.Collection),
	})
}

func bindSearchParams(r *http.Request) (searchQueryParams, error) {
	var p searchQueryParams
	q := r.URL.Query()
	binds := []struct {
		name string
		dest any
	}{
		{"prompt", &p.Prompt},
		{"keywords", &p.Keywords},
		{"match", &p.Match},
		{"sort_by", &p.SortBy},
		{"date", &p.Date},
		{"section", &p.Section},
		{"newspaper", &p.Newspaper},
		{"min_keyword_score", &p.MinKeywordScore},
		{"limit", &p.Limit},
		{"variant", &p.Variant},
		{"collection", &p.Collection},
	}
	for _, b := range binds {
		if err := runtime.BindQueryParameter("form", true, false, b.name, q, b.dest); err != nil {
			return searchQueryParams{}, fmt.Errorf("invalid format for parameter %s: %w", b.name, err)
		}
	}
	return p, nil
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, p request.Params) {
	if p.Variant == "" {
		p.Variant = s.opts.DefaultVariant
	}
	req, err := request.New(p)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	results, err := s.search.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse(string(req.Variant()), req.Collection(), results))
}

// Similar handles GET /v1/articles/{id}/similar.
func (s *Server) Similar(w http.ResponseWriter, r *http.Request) {
	var (
		v         *string
		limit     *int
		threshold *float64
	)
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "variant", q, &v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter variant: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter limit: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "threshold", q, &threshold); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter threshold: "+err.Error())
		return
	}

	vv := s.opts.DefaultVariant
	if v != nil && *v != "" {
		vv = variant.Variant(*v)
	}
	th := s.opts.SimilarThreshold
	if threshold != nil {
		th = *threshold
	}
	req, err := request.NewSimilar(vv, chi.URLParam(r, "id"), deref(limit), th)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	results, err := s.search.Similar(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse(string(vv), vv.Collection(), results))
}

// ListCollections handles GET /v1/collections.
func (s *Server) ListCollections(w http.ResponseWriter, r *http.Request) {
	infos, err := s.collections.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	items := make([]CollectionResponse, len(infos))
	for i := range infos {
		items[i] = collectionToResponse(infos[i])
	}
	writeJSON(w, http.StatusOK, CollectionListResponse{Collections: items})
}

// EnsureCollection handles POST /v1/collections.
func (s *Server) EnsureCollection(w http.ResponseWriter, r *http.Request) {
	var body EnsureCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	v, err := variant.Parse(body.Variant)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeUnknownVariant, err.Error())
		return
	}
	info, err := s.collections.Ensure(r.Context(), v, body.Name, body.Dimension)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collectionToResponse(info))
}

// GetCollection handles GET /v1/collections/{name}.
func (s *Server) GetCollection(w http.ResponseWriter, r *http.Request) {
	info, err := s.collections.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collectionToResponse(info))
}

// DeleteCollection handles DELETE /v1/collections/{name}.
func (s *Server) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.collections.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCollections handles DELETE /v1/collections?except=...
func (s *Server) DeleteCollections(w http.ResponseWriter, r *http.Request) {
	var except *[]string
	if err := runtime.BindQueryParameter("form", true, false, "except", r.URL.Query(), &except); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter except: "+err.Error())
		return
	}
	deleted, err := s.collections.DeleteAll(r.Context(), deref(except))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if deleted == nil {
		deleted = []string{}
	}
	writeJSON(w, http.StatusOK, DeleteCollectionsResponse{Deleted: deleted})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func searchResponse(v, collection string, results []result.Result) SearchResponse {
	items := make([]SearchResultItem, len(results))
	for i := range results {
		items[i] = resultToItem(&results[i])
	}
	return SearchResponse{Variant: v, Collection: collection, Count: len(items), Results: items}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns the error text for client errors and a fixed
// message for everything else, so storage internals never leak.
func safeDomainMessage(err error) string {
	clientErrors := []error{
		domain.ErrInvalidQuery,
		domain.ErrUnknownVariant,
		domain.ErrVariantMismatch,
		domain.ErrDimensionMismatch,
		domain.ErrNotFitted,
	}
	for _, s := range clientErrors {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrRateLimited,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
