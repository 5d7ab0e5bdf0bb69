package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/keyword"
	"github.com/kailas-cloud/newsdex/internal/domain/search/request"
	"github.com/kailas-cloud/newsdex/internal/domain/search/result"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
	"github.com/kailas-cloud/newsdex/internal/metrics"
	"github.com/kailas-cloud/newsdex/internal/vectorstore"
)

// DefaultCandidatePool is the number of vector hits scored per prompt query.
const DefaultCandidatePool = 100

// Service is the hybrid search engine: it embeds the prompt, pulls vector
// candidates under the structural and keyword filters, scores keywords and fuses.
type Service struct {
	store     Store
	embedders EmbedderRegistry
	logger    *zap.Logger

	candidatePool int
	scanLimit     int
}

// New creates a search service.
func New(store Store, embedders EmbedderRegistry, logger *zap.Logger) *Service {
	return &Service{
		store:         store,
		embedders:     embedders,
		logger:        logger,
		candidatePool: DefaultCandidatePool,
	}
}

// WithCandidatePool configures how many vector candidates are scored per query.
func (s *Service) WithCandidatePool(n int) *Service {
	if n > 0 {
		s.candidatePool = n
	}
	return s
}

// WithScanLimit caps the payload scan of keyword-only queries. By default
// every keyword match is scanned. A capped scan ranks only the first n
// matches in ID order and logs a warning when the cap is hit.
func (s *Service) WithScanLimit(n int) *Service {
	if n > 0 {
		s.scanLimit = n
	}
	return s
}

// Search runs a validated request. An empty slice means no matches.
func (s *Service) Search(ctx context.Context, req request.Request) (_ []result.Result, err error) {
	start := time.Now()
	m := string(req.Mode())
	v := string(req.Variant())
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.SearchRequestsTotal.WithLabelValues(v, m, status).Inc()
		metrics.SearchDuration.WithLabelValues(v, m).Observe(time.Since(start).Seconds())
	}()

	candidates, err := s.candidates(ctx, req)
	if err != nil {
		return nil, err
	}

	results := make([]result.Result, 0, len(candidates))
	for _, h := range candidates {
		kwScore, ok := keyword.Score(req.Keywords(), h.Payload.Keywords, req.Match())
		if !ok || kwScore < req.MinKeywordScore() {
			continue
		}
		results = append(results, result.New(h.ID, h.Score, kwScore, h.Payload))
	}

	fuse(results, req.Prompt() != "")
	rank(results, req.SortBy())
	if len(results) > req.Limit() {
		results = results[:req.Limit()]
	}

	metrics.SearchResults.WithLabelValues(v).Observe(float64(len(results)))
	s.logger.Debug("Search completed",
		zap.String("variant", v),
		zap.String("collection", req.Collection()),
		zap.String("mode", m),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(results)),
		zap.Duration("took", time.Since(start)),
	)
	return results, nil
}

// candidates returns vector hits for prompt queries and a filtered payload
// scan for keyword-only queries. Both push the keyword terms down so the
// store only hands back keyword-eligible articles.
func (s *Service) candidates(ctx context.Context, req request.Request) ([]vectorstore.Hit, error) {
	if req.Prompt() == "" {
		return s.scan(ctx, req)
	}

	emb, err := s.embedderFor(req.Variant(), req.Collection())
	if err != nil {
		return nil, err
	}
	res, err := emb.Embed(ctx, req.Prompt())
	if err != nil {
		return nil, fmt.Errorf("embed prompt: %w", err)
	}

	hits, err := s.store.Search(ctx, vectorstore.SearchQuery{
		Collection: req.Collection(),
		Vector:     res.Embedding,
		Filters:    req.KeywordPrefilter(),
		TopK:       max(s.candidatePool, req.Limit()),
	})
	if err != nil {
		return nil, fmt.Errorf("vector search %s: %w", req.Collection(), err)
	}
	return hits, nil
}

func (s *Service) scan(ctx context.Context, req request.Request) ([]vectorstore.Hit, error) {
	q := vectorstore.ScanQuery{Collection: req.Collection(), Filters: req.KeywordPrefilter()}
	if s.scanLimit > 0 {
		q.Limit = s.scanLimit + 1
	}
	hits, err := s.store.Scan(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", req.Collection(), err)
	}
	if s.scanLimit > 0 && len(hits) > s.scanLimit {
		s.logger.Warn("Keyword scan hit the scan limit, ranking a partial candidate set",
			zap.String("collection", req.Collection()),
			zap.Strings("keywords", req.Keywords()),
			zap.Int("scan_limit", s.scanLimit),
		)
		hits = hits[:s.scanLimit]
	}
	return hits, nil
}

// embedderFor resolves the variant's embedder and checks it may query the collection.
func (s *Service) embedderFor(v variant.Variant, collection string) (domain.Embedder, error) {
	if owner, ok := variant.FromCollection(collection); ok && owner != v {
		return nil, domain.NewVariantMismatch(string(v), collection)
	}
	emb, err := s.embedders.Get(v)
	if err != nil {
		return nil, err
	}
	if emb.Variant() != v {
		return nil, domain.NewVariantMismatch(string(emb.Variant()), collection)
	}
	return emb, nil
}

// Similar finds articles close to an already indexed one, using its stored
// vector as the query. The seed article is excluded.
func (s *Service) Similar(ctx context.Context, req request.SimilarRequest) ([]result.Result, error) {
	collection := req.Variant().Collection()

	seed, err := s.store.Get(ctx, collection, req.ArticleID())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("article %s in %s: %w", req.ArticleID(), collection, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get seed article: %w", err)
	}

	hits, err := s.store.Search(ctx, vectorstore.SearchQuery{
		Collection: collection,
		Vector:     seed.Vector,
		TopK:       req.Limit() + 1,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search %s: %w", collection, err)
	}

	results := make([]result.Result, 0, len(hits))
	for _, h := range hits {
		if h.ID == seed.ID || h.Score < req.Threshold() {
			continue
		}
		results = append(results, result.New(h.ID, h.Score, 0, h.Payload).WithCombined(h.Score))
	}
	if len(results) > req.Limit() {
		results = results[:req.Limit()]
	}
	return results, nil
}
