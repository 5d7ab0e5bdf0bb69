package indexing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/article"
	dombatch "github.com/kailas-cloud/newsdex/internal/domain/batch"
	"github.com/kailas-cloud/newsdex/internal/domain/record"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
	"github.com/kailas-cloud/newsdex/internal/metrics"
)

// DefaultBatchSize is the number of articles embedded and upserted together.
const DefaultBatchSize = 32

// Options selects what one run indexes.
type Options struct {
	Variant variant.Variant
	// Collection overrides the variant's own collection.
	Collection string
	Query      article.Query
}

// Service embeds the corpus with one variant and writes it to the store.
type Service struct {
	articles  ArticleReader
	store     Store
	embedders EmbedderRegistry
	logger    *zap.Logger
	batchSize int
}

// New creates an indexing service.
func New(articles ArticleReader, store Store, embedders EmbedderRegistry, logger *zap.Logger) *Service {
	return &Service{
		articles:  articles,
		store:     store,
		embedders: embedders,
		logger:    logger,
		batchSize: DefaultBatchSize,
	}
}

// WithBatchSize configures the batch size.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// Index runs one indexing pass. Setup failures (unknown variant, corpus read,
// fit, collection creation) are returned as errors; failed batches are
// skipped and reported in the summary.
func (s *Service) Index(ctx context.Context, opts Options) (dombatch.Summary, error) {
	start := time.Now()

	collection, err := resolveCollection(opts.Variant, opts.Collection)
	if err != nil {
		return dombatch.Summary{}, err
	}
	emb, err := s.embedders.Get(opts.Variant)
	if err != nil {
		return dombatch.Summary{}, err
	}
	log := s.logger.With(zap.String("variant", string(opts.Variant)), zap.String("collection", collection))

	docs, err := s.articles.Read(ctx, opts.Query)
	if err != nil {
		return dombatch.Summary{}, fmt.Errorf("read articles: %w", err)
	}
	summary := dombatch.Summary{Collection: collection, Total: len(docs)}
	if len(docs) == 0 {
		log.Warn("No eligible articles to index")
		summary.Duration = time.Since(start)
		return summary, nil
	}

	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].Text(opts.Query.UseProcessed)
	}

	if opts.Variant.IsCorpusFitted() {
		if err := s.fit(ctx, emb, texts); err != nil {
			return summary, err
		}
	}

	if err := s.store.EnsureCollection(ctx, collection, emb.Dimension()); err != nil {
		return summary, fmt.Errorf("ensure collection %s: %w", collection, err)
	}

	var stop error
	for n, offset := 0, 0; offset < len(docs); n, offset = n+1, offset+s.batchSize {
		end := min(offset+s.batchSize, len(docs))
		size := end - offset

		if stop == nil {
			stop = ctx.Err()
		}
		if stop != nil {
			s.skip(&summary, collection, n, offset, size, stop)
			continue
		}

		err := s.indexBatch(ctx, emb, collection, docs[offset:end], texts[offset:end])
		if err == nil {
			summary.Add(dombatch.Result{Batch: n, Offset: offset, Size: size})
			metrics.IndexBatchesTotal.WithLabelValues(collection, "ok").Inc()
			metrics.IndexRecordsTotal.WithLabelValues(collection, "indexed").Add(float64(size))
			log.Debug("Batch indexed", zap.Int("batch", n), zap.Int("offset", offset), zap.Int("size", size))
			continue
		}

		s.skip(&summary, collection, n, offset, size, err)
		if errors.Is(err, domain.ErrEmbeddingQuotaExceeded) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			stop = err
			log.Warn("Stopping indexing, remaining batches skipped", zap.Error(err))
		}
	}

	summary.Duration = time.Since(start)
	log.Info("Indexing finished",
		zap.Int("total", summary.Total),
		zap.Int("indexed", summary.Indexed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("batches", len(summary.Results)),
		zap.Int("failed_batches", summary.Failed()),
		zap.Duration("took", summary.Duration),
	)
	return summary, nil
}

// Fit trains the corpus-fitted variants among vs on the eligible corpus
// without writing vectors. Processes that only search call it at startup so
// query vectors share the vocabulary of the indexed ones, which holds as long
// as the corpus and q match the indexing run. Pretrained variants are ignored.
func (s *Service) Fit(ctx context.Context, vs []variant.Variant, q article.Query) error {
	var fitted []domain.Embedder
	for _, v := range vs {
		if !v.IsCorpusFitted() {
			continue
		}
		emb, err := s.embedders.Get(v)
		if err != nil {
			return err
		}
		fitted = append(fitted, emb)
	}
	if len(fitted) == 0 {
		return nil
	}

	docs, err := s.articles.Read(ctx, q)
	if err != nil {
		return fmt.Errorf("read articles: %w", err)
	}
	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].Text(q.UseProcessed)
	}
	for _, emb := range fitted {
		if err := s.fit(ctx, emb, texts); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) fit(ctx context.Context, emb domain.Embedder, texts []string) error {
	start := time.Now()
	if err := emb.Fit(ctx, texts); err != nil {
		return fmt.Errorf("fit %s: %w", emb.Variant(), err)
	}
	metrics.FitDuration.WithLabelValues(string(emb.Variant())).Observe(time.Since(start).Seconds())
	s.logger.Info("Embedder fitted",
		zap.String("variant", string(emb.Variant())),
		zap.Int("documents", len(texts)),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func (s *Service) indexBatch(
	ctx context.Context, emb domain.Embedder, collection string, docs []article.Document, texts []string,
) error {
	res, err := domain.EmbedBatchForIndex(ctx, emb, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(res.Embeddings) != len(docs) {
		return fmt.Errorf("embed: got %d vectors for %d articles", len(res.Embeddings), len(docs))
	}

	records := make([]record.Record, len(docs))
	for i := range docs {
		records[i] = record.Record{
			ID:      docs[i].ID,
			Vector:  res.Embeddings[i],
			Payload: record.NewPayload(docs[i]),
		}
	}
	if err := s.store.Upsert(ctx, collection, records); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

func (s *Service) skip(summary *dombatch.Summary, collection string, n, offset, size int, cause error) {
	err := &domain.BatchIndexError{Collection: collection, Batch: n, Offset: offset, Size: size, Err: cause}
	summary.Add(dombatch.Result{Batch: n, Offset: offset, Size: size, Err: err})
	metrics.IndexBatchesTotal.WithLabelValues(collection, "error").Inc()
	metrics.IndexRecordsTotal.WithLabelValues(collection, "skipped").Add(float64(size))
	s.logger.Error("Batch skipped",
		zap.String("collection", collection),
		zap.Int("batch", n),
		zap.Int("offset", offset),
		zap.Int("size", size),
		zap.Error(cause),
	)
}

// resolveCollection picks the target collection and rejects an override that
// belongs to another variant.
func resolveCollection(v variant.Variant, override string) (string, error) {
	if !v.IsValid() {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownVariant, v)
	}
	if override == "" {
		return v.Collection(), nil
	}
	if owner, ok := variant.FromCollection(override); ok && owner != v {
		return "", domain.NewVariantMismatch(string(v), override)
	}
	return override, nil
}
