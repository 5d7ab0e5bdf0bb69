package qdrant

import (
	"context"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

// fakeClient implements client for tests. Nil funcs return zero values.
type fakeClient struct {
	existsFn     func(ctx context.Context, name string) (bool, error)
	infoFn       func(ctx context.Context, name string) (*qdrant.CollectionInfo, error)
	listFn       func(ctx context.Context) ([]string, error)
	createFn     func(ctx context.Context, req *qdrant.CreateCollection) error
	fieldIndexFn func(ctx context.Context, req *qdrant.CreateFieldIndexCollection) (*qdrant.UpdateResult, error)
	deleteFn     func(ctx context.Context, name string) error
	upsertFn     func(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	queryFn      func(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	scrollFn     func(ctx context.Context, req *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, *qdrant.PointId, error)
	getFn        func(ctx context.Context, req *qdrant.GetPoints) ([]*qdrant.RetrievedPoint, error)
	healthErr    error
	closed       bool
}

func (f *fakeClient) HealthCheck(context.Context) (*qdrant.HealthCheckReply, error) {
	if f.healthErr != nil {
		return nil, f.healthErr
	}
	return &qdrant.HealthCheckReply{}, nil
}

func (f *fakeClient) CollectionExists(ctx context.Context, name string) (bool, error) {
	if f.existsFn != nil {
		return f.existsFn(ctx, name)
	}
	return false, nil
}

func (f *fakeClient) GetCollectionInfo(ctx context.Context, name string) (*qdrant.CollectionInfo, error) {
	if f.infoFn != nil {
		return f.infoFn(ctx, name)
	}
	return &qdrant.CollectionInfo{}, nil
}

func (f *fakeClient) ListCollections(ctx context.Context) ([]string, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

func (f *fakeClient) CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error {
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}
	return nil
}

func (f *fakeClient) CreateFieldIndex(
	ctx context.Context, req *qdrant.CreateFieldIndexCollection,
) (*qdrant.UpdateResult, error) {
	if f.fieldIndexFn != nil {
		return f.fieldIndexFn(ctx, req)
	}
	return &qdrant.UpdateResult{}, nil
}

func (f *fakeClient) DeleteCollection(ctx context.Context, name string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, name)
	}
	return nil
}

func (f *fakeClient) Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	if f.upsertFn != nil {
		return f.upsertFn(ctx, req)
	}
	return &qdrant.UpdateResult{}, nil
}

func (f *fakeClient) Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	if f.queryFn != nil {
		return f.queryFn(ctx, req)
	}
	return nil, nil
}

func (f *fakeClient) ScrollAndOffset(
	ctx context.Context, req *qdrant.ScrollPoints,
) ([]*qdrant.RetrievedPoint, *qdrant.PointId, error) {
	if f.scrollFn != nil {
		return f.scrollFn(ctx, req)
	}
	return nil, nil, nil
}

func (f *fakeClient) Get(ctx context.Context, req *qdrant.GetPoints) ([]*qdrant.RetrievedPoint, error) {
	if f.getFn != nil {
		return f.getFn(ctx, req)
	}
	return nil, nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func newTestStore(c *fakeClient) *Store {
	return newStore(c, Config{UploadBatch: 2}, zap.NewNop())
}

// infoWithDim builds a CollectionInfo reporting a dense vector size and point count.
func infoWithDim(dim, count uint64) *qdrant.CollectionInfo {
	return &qdrant.CollectionInfo{
		PointsCount: qdrant.PtrOf(count),
		Config: &qdrant.CollectionConfig{
			Params: &qdrant.CollectionParams{
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{Size: dim, Distance: qdrant.Distance_Cosine}),
			},
		},
	}
}
