package collection

import (
	"context"

	"github.com/kailas-cloud/newsdex/internal/vectorstore"
)

// Store defines the collection administration contract of a vector store.
type Store interface {
	EnsureCollection(ctx context.Context, name string, dim int) error
	CollectionInfo(ctx context.Context, name string) (vectorstore.CollectionInfo, error)
	ListCollections(ctx context.Context) ([]string, error)
	DeleteCollection(ctx context.Context, name string) error
}
