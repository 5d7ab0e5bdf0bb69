//go:build !cgo

package fastembed

import (
	"context"

	"github.com/kailas-cloud/newsdex/internal/domain"
)

// Embedder is a stub for builds without cgo.
type Embedder struct{}

// New always fails with ErrUnavailable.
func New(Config) (*Embedder, error) { return nil, ErrUnavailable }

// Dimension returns 0.
func (e *Embedder) Dimension() int { return 0 }

// Embed always fails with ErrUnavailable.
func (e *Embedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, ErrUnavailable
}

// BatchEmbed always fails with ErrUnavailable.
func (e *Embedder) BatchEmbed(context.Context, []string) (domain.BatchEmbeddingResult, error) {
	return domain.BatchEmbeddingResult{}, ErrUnavailable
}

// Close is a no-op.
func (e *Embedder) Close() error { return nil }
