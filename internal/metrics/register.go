package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var registerOnce sync.Once

// Register registers every collector with the default registry. Must be called from main.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingBudgetTokensRemaining,
			EmbeddingCacheTotal,
			SearchRequestsTotal,
			SearchDuration,
			SearchResults,
			IndexBatchesTotal,
			IndexRecordsTotal,
			FitDuration,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}
