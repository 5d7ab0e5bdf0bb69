package search

import (
	"context"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/record"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
	"github.com/kailas-cloud/newsdex/internal/vectorstore"
)

// Store is the read side of the vector store.
type Store interface {
	Search(ctx context.Context, q vectorstore.SearchQuery) ([]vectorstore.Hit, error)
	Scan(ctx context.Context, q vectorstore.ScanQuery) ([]vectorstore.Hit, error)
	Get(ctx context.Context, collection, id string) (record.Record, error)
}

// EmbedderRegistry resolves the embedder that encodes prompts for a variant.
type EmbedderRegistry interface {
	Get(v variant.Variant) (domain.Embedder, error)
}
