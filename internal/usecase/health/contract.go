package health

import (
	"context"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
)

// StorePinger checks vector store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// EmbedderRegistry lists the configured embedders.
type EmbedderRegistry interface {
	Variants() []variant.Variant
	Get(v variant.Variant) (domain.Embedder, error)
}
