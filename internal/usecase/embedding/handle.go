package embedding

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/domain"
)

// Loader opens a model provider. It runs at most once per Handle.
type Loader func(ctx context.Context) (domain.TextEmbedder, error)

// Handle owns one lazily loaded model for the lifetime of the process.
// A failed load is not retried: every later call reports the same error.
type Handle struct {
	name   string
	load   Loader
	logger *zap.Logger

	once  sync.Once
	mu    sync.RWMutex
	model domain.TextEmbedder
	err   error
}

// NewHandle creates a handle that calls load on first use.
func NewHandle(name string, load Loader, logger *zap.Logger) *Handle {
	return &Handle{name: name, load: load, logger: logger}
}

// Preloaded wraps an already constructed provider.
func Preloaded(name string, model domain.TextEmbedder) *Handle {
	h := &Handle{name: name, model: model, logger: zap.NewNop()}
	h.once.Do(func() {})
	return h
}

// Name identifies the model behind the handle.
func (h *Handle) Name() string { return h.name }

// Get returns the loaded model, loading it on the first call.
func (h *Handle) Get(ctx context.Context) (domain.TextEmbedder, error) {
	h.once.Do(func() {
		h.logger.Info("Loading embedding model", zap.String("model", h.name))
		model, err := h.load(ctx)
		h.mu.Lock()
		defer h.mu.Unlock()
		if err != nil {
			h.err = fmt.Errorf("load model %s: %w", h.name, err)
			h.logger.Error("Embedding model load failed", zap.String("model", h.name), zap.Error(err))
			return
		}
		h.model = model
	})

	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.model, h.err
}

// Loaded reports whether a model is resident.
func (h *Handle) Loaded() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.model != nil
}

// Close releases the model if it holds native resources.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.model.(io.Closer)
	if !ok {
		return nil
	}
	if err := c.Close(); err != nil {
		return fmt.Errorf("close model %s: %w", h.name, err)
	}
	return nil
}
