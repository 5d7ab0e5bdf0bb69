package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/metrics"
)

// DefaultMaxAPIBatchSize caps the number of texts sent in one provider call.
const DefaultMaxAPIBatchSize = 256

// BudgetChecker gates provider calls on token spend.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	Usage() []Usage
}

// MeteredEmbedder charges provider calls against a token budget. Request
// metrics belong to the providers themselves.
type MeteredEmbedder struct {
	inner    domain.TextEmbedder
	provider string
	budget   BudgetChecker
	maxBatch int
	log      *zap.Logger
}

// NewMeteredEmbedder wraps inner. A nil budget disables enforcement, which
// is what local models use.
func NewMeteredEmbedder(
	inner domain.TextEmbedder, provider, model string, budget BudgetChecker, logger *zap.Logger,
) *MeteredEmbedder {
	return &MeteredEmbedder{
		inner:    inner,
		provider: provider,
		budget:   budget,
		maxBatch: DefaultMaxAPIBatchSize,
		log:      logger.With(zap.String("provider", provider), zap.String("model", model)),
	}
}

// WithMaxBatchSize sets how many texts go in one provider call; n <= 0 keeps the default.
func (m *MeteredEmbedder) WithMaxBatchSize(n int) *MeteredEmbedder {
	if n > 0 {
		m.maxBatch = n
	}
	return m
}

// HealthCheck probes the provider when it can be probed.
func (m *MeteredEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := m.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (m *MeteredEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := m.admit(ctx, 1); err != nil {
		return domain.EmbeddingResult{}, err
	}
	start := time.Now()
	res, err := m.inner.Embed(ctx, text)
	if err != nil {
		m.log.Error("Embedding request failed", zap.Duration("took", time.Since(start)), zap.Error(err))
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	m.charge(res.TotalTokens)
	m.log.Debug("Embedding request completed",
		zap.Duration("took", time.Since(start)),
		zap.Int("dimensions", len(res.Embedding)),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return res, nil
}

// BatchEmbed sends texts in chunks of at most maxBatch. The budget is checked
// before every chunk and charged after each one, so a long batch stops once
// the limit is crossed and tokens already spent are still counted.
func (m *MeteredEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	var out domain.BatchEmbeddingResult
	if len(texts) == 0 {
		return out, nil
	}
	start := time.Now()
	for offset := 0; offset < len(texts); offset += m.maxBatch {
		chunk := texts[offset:min(offset+m.maxBatch, len(texts))]
		if err := m.admit(ctx, len(chunk)); err != nil {
			return domain.BatchEmbeddingResult{}, err
		}
		res, err := m.embedChunk(ctx, chunk)
		if err != nil {
			m.log.Error("Batch embedding request failed",
				zap.Int("chunk_offset", offset), zap.Int("chunk_size", len(chunk)), zap.Error(err))
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}
		m.charge(res.TotalTokens)
		out.Embeddings = append(out.Embeddings, res.Embeddings...)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}
	m.log.Debug("Batch embedding completed",
		zap.Duration("took", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("total_tokens", out.TotalTokens),
	)
	return out, nil
}

func (m *MeteredEmbedder) embedChunk(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := m.inner.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, m.inner.Embed, texts)
}

func (m *MeteredEmbedder) admit(ctx context.Context, texts int) error {
	if m.budget == nil {
		return nil
	}
	if err := m.budget.Check(ctx); err != nil {
		m.log.Error("Embedding budget exceeded", zap.Int("texts", texts), zap.Error(err))
		return fmt.Errorf("budget check: %w", err)
	}
	return nil
}

func (m *MeteredEmbedder) charge(tokens int) {
	if m.budget == nil || tokens <= 0 {
		return
	}
	m.budget.Record(int64(tokens))
	for _, u := range m.budget.Usage() {
		metrics.EmbeddingBudgetTokensRemaining.WithLabelValues(m.provider, string(u.Period)).Set(float64(u.Remaining()))
	}
}
