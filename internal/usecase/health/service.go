package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/newsdex/internal/domain"
)

// Status is the overall verdict.
type Status string

const (
	Healthy   Status = "ok"
	Degraded  Status = "degraded" // an embedding provider is failing
	Unhealthy Status = "error"    // the vector store is unreachable
)

// CheckResult is the outcome of one component probe.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// StoreCheck names the vector store probe; embedder probes are embedding_<variant>.
const StoreCheck = "store"

// DefaultCheckTimeout bounds each probe.
const DefaultCheckTimeout = 3 * time.Second

type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type Service struct {
	store     StorePinger
	embedders EmbedderRegistry
	timeout   time.Duration
}

// New creates a Service. embedders may be nil.
func New(store StorePinger, embedders EmbedderRegistry) *Service {
	return &Service{store: store, embedders: embedders, timeout: DefaultCheckTimeout}
}

// Check probes the store and every embedder backed by a remote provider, all
// at once. Corpus-fitted and local embedders have nothing to probe and are
// not listed. A failing store makes the report Unhealthy; a failing provider
// only Degraded.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult)
		failed = make(map[string]bool)
	)
	probe := func(name string, fn func(context.Context) error) func() error {
		return func() error {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			err := fn(pctx)
			mu.Lock()
			defer mu.Unlock()
			checks[name] = CheckOK
			if err != nil {
				checks[name] = CheckError
				failed[name] = true
			}
			return nil
		}
	}

	var g errgroup.Group
	g.Go(probe(StoreCheck, s.store.Ping))
	if s.embedders != nil {
		for _, v := range s.embedders.Variants() {
			e, err := s.embedders.Get(v)
			if err != nil {
				continue
			}
			if hc, ok := e.(domain.HealthChecker); ok {
				g.Go(probe("embedding_"+string(v), hc.HealthCheck))
			}
		}
	}
	_ = g.Wait()

	status := Healthy
	switch {
	case failed[StoreCheck]:
		status = Unhealthy
	case len(failed) > 0:
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}
