// Package qdrant stores collections in Qdrant over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/record"
	"github.com/kailas-cloud/newsdex/internal/domain/search/filter"
	"github.com/kailas-cloud/newsdex/internal/vectorstore"
)

// scrollPage bounds a single Scroll round-trip.
const scrollPage = 256

// indexedFields get keyword payload indexes so filters do not fall back to full scans.
var indexedFields = []string{
	record.FieldSection, record.FieldPublishedAt, record.FieldNewspaper, record.FieldKeywords,
}

// client is the subset of *qdrant.Client the store uses.
//
//nolint:interfacebloat // mirrors the client surface one-to-one
type client interface {
	HealthCheck(ctx context.Context) (*qdrant.HealthCheckReply, error)
	CollectionExists(ctx context.Context, name string) (bool, error)
	GetCollectionInfo(ctx context.Context, name string) (*qdrant.CollectionInfo, error)
	ListCollections(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	CreateFieldIndex(ctx context.Context, req *qdrant.CreateFieldIndexCollection) (*qdrant.UpdateResult, error)
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	ScrollAndOffset(ctx context.Context, req *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, *qdrant.PointId, error)
	Get(ctx context.Context, req *qdrant.GetPoints) ([]*qdrant.RetrievedPoint, error)
	Close() error
}

// Store implements vectorstore.Store on Qdrant.
type Store struct {
	client client
	cfg    Config
	logger *zap.Logger
}

// New dials Qdrant. The connection is lazy; use Ping to verify it.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid qdrant config: %w", err)
	}

	qcfg := &qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	}
	if !cfg.UseTLS {
		qcfg.GrpcOptions = append(qcfg.GrpcOptions, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	c, err := qdrant.NewClient(qcfg)
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	return newStore(c, cfg, logger), nil
}

func newStore(c client, cfg Config, logger *zap.Logger) *Store {
	cfg.ApplyDefaults()
	return &Store{client: c, cfg: cfg, logger: logger}
}

// EnsureCollection creates a cosine collection with keyword payload indexes.
func (s *Store) EnsureCollection(ctx context.Context, name string, dim int) error {
	if err := vectorstore.ValidateName(name); err != nil {
		return err
	}
	if dim <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", dim)
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", name, err)
	}
	if exists {
		info, err := s.info(ctx, name)
		if err != nil {
			return err
		}
		if info.Dimension != dim {
			return domain.NewDimensionMismatch(name, info.Dimension, dim)
		}
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil
		}
		return fmt.Errorf("create collection %s: %w", name, err)
	}

	for _, field := range indexedFields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: name,
			Wait:           qdrant.PtrOf(true),
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("create payload index %s.%s: %w", name, field, err)
		}
	}

	s.logger.Info("qdrant collection created", zap.String("collection", name), zap.Int("dimension", dim))
	return nil
}

// Upsert sends records in chunks of UploadBatch points and waits for each to apply.
func (s *Store) Upsert(ctx context.Context, collection string, records []record.Record) error {
	if len(records) == 0 {
		return nil
	}
	info, err := s.info(ctx, collection)
	if err != nil {
		return err
	}
	if err := vectorstore.CheckRecords(collection, info.Dimension, records); err != nil {
		return err
	}

	for start := 0; start < len(records); start += s.cfg.UploadBatch {
		chunk := records[start:min(start+s.cfg.UploadBatch, len(records))]
		points := make([]*qdrant.PointStruct, len(chunk))
		for i := range chunk {
			points[i] = toPoint(chunk[i])
		}
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		if err != nil {
			return fmt.Errorf("upsert %d points into %s: %w", len(points), collection, s.mapErr(collection, err))
		}
	}
	return nil
}

// Search runs a dense query with hnsw_ef set from config.
func (s *Store) Search(ctx context.Context, q vectorstore.SearchQuery) ([]vectorstore.Hit, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.Collection,
		Query:          qdrant.NewQuery(q.Vector...),
		Filter:         toFilter(q.Filters),
		Params:         &qdrant.SearchParams{HnswEf: qdrant.PtrOf(uint64(s.cfg.HNSWEF))},
		Limit:          qdrant.PtrOf(uint64(q.TopK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, s.mapErr(q.Collection, err))
	}

	hits := make([]vectorstore.Hit, 0, len(points))
	for _, p := range points {
		id, payload, err := fromPayload(p.GetPayload())
		if err != nil {
			return nil, err
		}
		hits = append(hits, vectorstore.Hit{ID: id, Score: float64(p.GetScore()), Payload: payload})
	}
	vectorstore.SortHits(hits)
	return hits, nil
}

// Scan pages through matching points until Limit is reached.
func (s *Store) Scan(ctx context.Context, q vectorstore.ScanQuery) ([]vectorstore.Hit, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var hits []vectorstore.Hit
	var offset *qdrant.PointId
	for q.Limit == 0 || len(hits) < q.Limit {
		page := scrollPage
		if q.Limit > 0 {
			page = min(q.Limit-len(hits), scrollPage)
		}
		points, next, err := s.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: q.Collection,
			Filter:         toFilter(q.Filters),
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(page)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("scroll %s: %w", q.Collection, s.mapErr(q.Collection, err))
		}
		for _, p := range points {
			id, payload, err := fromPayload(p.GetPayload())
			if err != nil {
				return nil, err
			}
			hits = append(hits, vectorstore.Hit{ID: id, Payload: payload})
		}
		if next == nil || len(points) == 0 {
			break
		}
		offset = next
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].ID < hits[j].ID })
	return hits, nil
}

// Get fetches one point by the article's derived UUID.
func (s *Store) Get(ctx context.Context, collection, id string) (record.Record, error) {
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(PointID(id))},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return record.Record{}, fmt.Errorf("get %s from %s: %w", id, collection, s.mapErr(collection, err))
	}
	if len(points) == 0 {
		return record.Record{}, fmt.Errorf("record %s in %s: %w", id, collection, domain.ErrNotFound)
	}
	_, payload, err := fromPayload(points[0].GetPayload())
	if err != nil {
		return record.Record{}, err
	}
	return record.Record{ID: id, Vector: vectorOf(points[0].GetVectors()), Payload: payload}, nil
}

// CollectionInfo reports the configured dimension and the approximate point count.
func (s *Store) CollectionInfo(ctx context.Context, name string) (vectorstore.CollectionInfo, error) {
	return s.info(ctx, name)
}

func (s *Store) info(ctx context.Context, name string) (vectorstore.CollectionInfo, error) {
	info, err := s.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return vectorstore.CollectionInfo{}, fmt.Errorf("collection info %s: %w", name, s.mapErr(name, err))
	}
	dim := int(info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize())
	return vectorstore.NewCollectionInfo(name, dim, int(info.GetPointsCount())), nil
}

// ListCollections returns collection names sorted.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// DeleteCollection drops a collection. Missing collections are ErrNotFound.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", name, err)
	}
	if !exists {
		return fmt.Errorf("collection %s: %w", name, domain.ErrNotFound)
	}
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("delete collection %s: %w", name, s.mapErr(name, err))
	}
	s.logger.Info("qdrant collection deleted", zap.String("collection", name))
	return nil
}

// Ping runs the gRPC health check.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// Close closes the gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) mapErr(collection string, err error) error {
	if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
		return fmt.Errorf("collection %s: %w", collection, errors.Join(domain.ErrNotFound, err))
	}
	return err
}

// toFilter maps an expression onto Qdrant conditions. Should clauses on
// the same key collapse into one MatchKeywords (match any).
func toFilter(e filter.Expression) *qdrant.Filter {
	if e.IsEmpty() {
		return nil
	}
	f := &qdrant.Filter{}
	for _, c := range e.Must() {
		f.Must = append(f.Must, qdrant.NewMatchKeyword(c.Key(), c.Match()))
	}
	for _, c := range e.MustNot() {
		f.MustNot = append(f.MustNot, qdrant.NewMatchKeyword(c.Key(), c.Match()))
	}

	var keys []string
	grouped := make(map[string][]string)
	for _, c := range e.Should() {
		if _, ok := grouped[c.Key()]; !ok {
			keys = append(keys, c.Key())
		}
		grouped[c.Key()] = append(grouped[c.Key()], c.Match())
	}
	for _, k := range keys {
		values := grouped[k]
		if len(values) == 1 {
			f.Should = append(f.Should, qdrant.NewMatchKeyword(k, values[0]))
			continue
		}
		f.Should = append(f.Should, qdrant.NewMatchKeywords(k, values...))
	}
	return f
}
