package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	domeval "github.com/kailas-cloud/newsdex/internal/domain/evaluation"
	"github.com/kailas-cloud/newsdex/internal/domain/search/request"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
)

// Evaluation defaults.
const (
	DefaultK           = 10
	DefaultConcurrency = 2
)

// Report is the evaluation of one variant: aggregate metrics and per-query records.
type Report struct {
	Metrics domeval.Metrics
	Records []domeval.Record
}

// Service runs labeled queries through the search engine and scores the rankings.
type Service struct {
	searcher    Searcher
	logger      *zap.Logger
	k           int
	concurrency int
}

// New creates an evaluation service.
func New(searcher Searcher, logger *zap.Logger) *Service {
	return &Service{searcher: searcher, logger: logger, k: DefaultK, concurrency: DefaultConcurrency}
}

// WithK sets the result list length each query retrieves.
func (s *Service) WithK(k int) *Service {
	if k > 0 {
		s.k = k
	}
	return s
}

// WithConcurrency bounds how many variants Compare evaluates at once.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// Evaluate runs every query against the variant's collection. A failed query
// is recorded and counted; only cancellation aborts the run.
func (s *Service) Evaluate(ctx context.Context, v variant.Variant, queries []domeval.TestQuery) (Report, error) {
	start := time.Now()
	records := make([]domeval.Record, 0, len(queries))
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return Report{}, fmt.Errorf("evaluate %s: %w", v, err)
		}
		rec, err := s.run(ctx, v, q)
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return Report{}, fmt.Errorf("evaluate %s: %w", v, err)
		}
		if err != nil {
			s.logger.Warn("Evaluation query failed",
				zap.String("variant", string(v)),
				zap.String("query", q.ID),
				zap.Error(err),
			)
		}
		records = append(records, rec)
	}

	m := domeval.Aggregate(records, s.k)
	m.Variant = string(v)
	m.Collection = v.Collection()
	s.logger.Info("Variant evaluated",
		zap.String("variant", m.Variant),
		zap.Int("queries", m.Queries),
		zap.Int("failed", m.Failed),
		zap.Float64("mrr", m.MRR),
		zap.Float64("map", m.MAP),
		zap.Duration("took", time.Since(start)),
	)
	return Report{Metrics: m, Records: records}, nil
}

func (s *Service) run(ctx context.Context, v variant.Variant, q domeval.TestQuery) (domeval.Record, error) {
	req, err := request.New(request.Params{
		Prompt:          q.Prompt,
		Keywords:        q.Keywords,
		Date:            q.Date,
		Section:         q.Section,
		MinKeywordScore: q.MinKeywordScore,
		Limit:           s.k,
		Variant:         v,
	})
	if err != nil {
		return domeval.Record{QueryID: q.ID, Expected: len(q.ExpectedArticleIDs), Err: err}, err
	}

	start := time.Now()
	results, err := s.searcher.Search(ctx, req)
	latency := time.Since(start)
	if err != nil {
		return domeval.Record{QueryID: q.ID, Expected: len(q.ExpectedArticleIDs), Latency: latency, Err: err}, err
	}

	returned := make([]string, len(results))
	for i := range results {
		returned[i] = results[i].ID()
	}
	return domeval.NewRecord(q.ID, returned, q.ExpectedArticleIDs, latency), nil
}

// Compare evaluates the variants concurrently and returns one row per variant
// in input order.
func (s *Service) Compare(ctx context.Context, variants []variant.Variant, queries []domeval.TestQuery) ([]Report, error) {
	reports := make([]Report, len(variants))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, v := range variants {
		g.Go(func() error {
			r, err := s.Evaluate(gctx, v, queries)
			if err != nil {
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
