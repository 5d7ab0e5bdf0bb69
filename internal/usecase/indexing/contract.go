package indexing

import (
	"context"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/article"
	"github.com/kailas-cloud/newsdex/internal/domain/record"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
)

// ArticleReader reads the corpus to index.
type ArticleReader interface {
	Read(ctx context.Context, q article.Query) ([]article.Document, error)
}

// Store writes vectors into a collection.
type Store interface {
	EnsureCollection(ctx context.Context, name string, dim int) error
	Upsert(ctx context.Context, collection string, records []record.Record) error
}

// EmbedderRegistry resolves the embedder of a variant.
type EmbedderRegistry interface {
	Get(v variant.Variant) (domain.Embedder, error)
}
