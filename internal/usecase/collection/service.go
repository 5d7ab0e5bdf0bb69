package collection

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
	"github.com/kailas-cloud/newsdex/internal/vectorstore"
)

// Service handles collection administration.
type Service struct {
	store  Store
	logger *zap.Logger
}

// New creates a collection service.
func New(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Ensure creates the collection of a variant. A zero dim uses the variant's
// default dimension; name overrides the news_<variant> collection.
func (s *Service) Ensure(ctx context.Context, v variant.Variant, name string, dim int) (vectorstore.CollectionInfo, error) {
	if !v.IsValid() {
		return vectorstore.CollectionInfo{}, fmt.Errorf("%w: %q", domain.ErrUnknownVariant, v)
	}
	if name == "" {
		name = v.Collection()
	}
	if owner, ok := variant.FromCollection(name); ok && owner != v {
		return vectorstore.CollectionInfo{}, domain.NewVariantMismatch(string(v), name)
	}
	if dim <= 0 {
		dim = v.DefaultDimension()
	}

	if err := s.store.EnsureCollection(ctx, name, dim); err != nil {
		return vectorstore.CollectionInfo{}, fmt.Errorf("ensure collection: %w", err)
	}
	s.logger.Info("Collection ensured",
		zap.String("collection", name),
		zap.String("variant", string(v)),
		zap.Int("dimension", dim),
	)
	return s.Get(ctx, name)
}

// Get retrieves a collection by name.
func (s *Service) Get(ctx context.Context, name string) (vectorstore.CollectionInfo, error) {
	info, err := s.store.CollectionInfo(ctx, name)
	if err != nil {
		return vectorstore.CollectionInfo{}, fmt.Errorf("get collection: %w", err)
	}
	return info, nil
}

// List returns every collection with its dimension and record count.
func (s *Service) List(ctx context.Context) ([]vectorstore.CollectionInfo, error) {
	names, err := s.store.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	infos := make([]vectorstore.CollectionInfo, 0, len(names))
	for _, n := range names {
		info, err := s.Get(ctx, n)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Delete removes a collection.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.store.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	s.logger.Info("Collection deleted", zap.String("collection", name))
	return nil
}

// DeleteAll removes every collection not named in except.
func (s *Service) DeleteAll(ctx context.Context, except []string) ([]string, error) {
	deleted, err := vectorstore.DeleteAll(ctx, s.store, except)
	s.logger.Info("Collections deleted",
		zap.Strings("deleted", deleted),
		zap.Strings("kept", except),
		zap.Error(err),
	)
	if err != nil {
		return deleted, fmt.Errorf("delete collections: %w", err)
	}
	return deleted, nil
}
