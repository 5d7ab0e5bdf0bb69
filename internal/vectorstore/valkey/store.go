// Package valkey stores collections as FT indexes over HASH records in
// Valkey or Redis.
package valkey

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kailas-cloud/newsdex/internal/db"
	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/record"
	"github.com/kailas-cloud/newsdex/internal/vectorstore"
)

// store is the consumer interface over db.Store (ISP).
//
//nolint:interfacebloat // collection lifecycle needs hash, index and search operations
type store interface {
	Ping(ctx context.Context) error
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchFilter(ctx context.Context, q *db.FilterQuery) (*db.SearchResult, error)
	Close()
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Store implements vectorstore.Store on top of db.Store.
type Store struct {
	store  store
	prefix string
	hnsw   HNSWConfig

	mu   sync.RWMutex
	dims map[string]int
}

// New creates a store. prefix namespaces every key, e.g. "newsdex:".
func New(s store, prefix string) *Store {
	return &Store{
		store:  s,
		prefix: prefix,
		hnsw:   HNSWConfig{M: 16, EFConstruct: 200},
		dims:   make(map[string]int),
	}
}

// WithHNSW configures HNSW index parameters.
func (s *Store) WithHNSW(cfg HNSWConfig) *Store {
	if cfg.M > 0 {
		s.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		s.hnsw.EFConstruct = cfg.EFConstruct
	}
	return s
}

// EnsureCollection creates metadata and the FT index when missing.
// A missing index next to existing metadata is recreated.
func (s *Store) EnsureCollection(ctx context.Context, name string, dim int) error {
	if err := vectorstore.ValidateName(name); err != nil {
		return err
	}
	if dim <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", dim)
	}

	m, err := s.store.HGetAll(ctx, s.metaKey(name))
	if err != nil {
		return fmt.Errorf("hgetall collection %s: %w", name, err)
	}
	if len(m) > 0 {
		meta, err := metaFromHash(m)
		if err != nil {
			return fmt.Errorf("parse collection %s: %w", name, err)
		}
		if meta.Dimension != dim {
			return domain.NewDimensionMismatch(name, meta.Dimension, dim)
		}
		exists, err := s.store.IndexExists(ctx, s.indexName(name))
		if err != nil {
			return fmt.Errorf("check index exists: %w", err)
		}
		if !exists {
			if err := s.createIndex(ctx, name, dim); err != nil {
				return err
			}
		}
		s.remember(name, dim)
		return nil
	}

	// Step 1: HSET metadata
	if err := s.store.HSet(ctx, s.metaKey(name), metaToHash(newMeta(name, dim))); err != nil {
		return fmt.Errorf("hset collection %s: %w", name, err)
	}

	// FT.CREATE, rollback HSET on error
	if err := s.createIndex(ctx, name, dim); err != nil {
		cleanupErr := s.store.Del(ctx, s.metaKey(name))
		return errors.Join(err, cleanupErr)
	}

	s.remember(name, dim)
	return nil
}

func (s *Store) createIndex(ctx context.Context, name string, dim int) error {
	def, err := buildIndex(s.indexName(name), s.recordPrefix(name), dim, s.hnsw)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := s.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return nil
}

// Upsert writes one pipelined HSET per record.
func (s *Store) Upsert(ctx context.Context, collection string, records []record.Record) error {
	dim, err := s.dimension(ctx, collection)
	if err != nil {
		return err
	}
	if err := vectorstore.CheckRecords(collection, dim, records); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(records))
	for i := range records {
		items[i] = db.HashSetItem{
			Key:    s.recordKey(collection, records[i].ID),
			Fields: recordToHash(records[i]),
		}
	}
	if err := s.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d records into %s: %w", len(records), collection, err)
	}
	return nil
}

// Search runs FT.SEARCH KNN with the payload filter as a tag pre-filter.
func (s *Store) Search(ctx context.Context, q vectorstore.SearchQuery) ([]vectorstore.Hit, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	dim, err := s.dimension(ctx, q.Collection)
	if err != nil {
		return nil, err
	}
	if len(q.Vector) != dim {
		return nil, domain.NewDimensionMismatch(q.Collection, dim, len(q.Vector))
	}

	sr, err := s.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    s.indexName(q.Collection),
		Filters:      q.Filters,
		Vector:       q.Vector,
		K:            q.TopK,
		ReturnFields: record.FieldNames(),
	})
	if err != nil {
		return nil, s.searchErr(q.Collection, err)
	}

	hits, err := s.toHits(q.Collection, sr)
	if err != nil {
		return nil, err
	}
	vectorstore.SortHits(hits)
	return hits, nil
}

// Scan enumerates matching payloads ordered by ID.
func (s *Store) Scan(ctx context.Context, q vectorstore.ScanQuery) ([]vectorstore.Hit, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.dimension(ctx, q.Collection); err != nil {
		return nil, err
	}

	sr, err := s.store.SearchFilter(ctx, &db.FilterQuery{
		IndexName:    s.indexName(q.Collection),
		KeyPrefix:    s.recordPrefix(q.Collection),
		Filters:      q.Filters,
		Limit:        q.Limit,
		ReturnFields: record.FieldNames(),
	})
	if err != nil {
		return nil, s.searchErr(q.Collection, err)
	}

	hits, err := s.toHits(q.Collection, sr)
	if err != nil {
		return nil, err
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].ID < hits[j].ID })
	return hits, nil
}

// Get reads one record hash, vector included.
func (s *Store) Get(ctx context.Context, collection, id string) (record.Record, error) {
	if _, err := s.dimension(ctx, collection); err != nil {
		return record.Record{}, err
	}
	m, err := s.store.HGetAll(ctx, s.recordKey(collection, id))
	if err != nil {
		return record.Record{}, fmt.Errorf("hgetall record %s: %w", id, err)
	}
	if len(m) == 0 {
		return record.Record{}, fmt.Errorf("record %s in %s: %w", id, collection, domain.ErrNotFound)
	}
	return recordFromHash(id, m)
}

// CollectionInfo reads metadata and counts records by key scan.
func (s *Store) CollectionInfo(ctx context.Context, name string) (vectorstore.CollectionInfo, error) {
	dim, err := s.dimension(ctx, name)
	if err != nil {
		return vectorstore.CollectionInfo{}, err
	}
	keys, err := s.store.Scan(ctx, s.recordPrefix(name)+"*")
	if err != nil {
		return vectorstore.CollectionInfo{}, fmt.Errorf("scan records %s: %w", name, err)
	}
	return vectorstore.NewCollectionInfo(name, dim, len(keys)), nil
}

// ListCollections returns collection names sorted by creation time.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	keys, err := s.store.Scan(ctx, s.metaKey("*"))
	if err != nil {
		return nil, fmt.Errorf("scan collections: %w", err)
	}
	if len(keys) == 0 {
		return []string{}, nil
	}

	results, err := s.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi collections: %w", err)
	}

	metas := make([]meta, 0, len(results))
	for i, m := range results {
		if len(m) == 0 {
			continue
		}
		cm, err := metaFromHash(m)
		if err != nil {
			return nil, fmt.Errorf("parse collection %s: %w", keys[i], err)
		}
		metas = append(metas, cm)
	}

	sort.Slice(metas, func(i, j int) bool {
		if metas[i].CreatedAt != metas[j].CreatedAt {
			return metas[i].CreatedAt < metas[j].CreatedAt
		}
		return metas[i].Name < metas[j].Name
	})
	names := make([]string, len(metas))
	for i := range metas {
		names[i] = metas[i].Name
	}
	return names, nil
}

// DeleteCollection removes metadata, drops the index (restoring metadata on
// failure) and then deletes the record hashes.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	metaKey := s.metaKey(name)

	// Backup metadata
	metaBackup, err := s.store.HGetAll(ctx, metaKey)
	if err != nil {
		return fmt.Errorf("hgetall collection %s: %w", name, err)
	}
	if len(metaBackup) == 0 {
		return fmt.Errorf("collection %s: %w", name, domain.ErrNotFound)
	}

	if err := s.store.Del(ctx, metaKey); err != nil {
		return fmt.Errorf("del collection %s: %w", name, err)
	}
	s.forget(name)

	// FT.DROPINDEX, rollback HSET on error
	if err := s.store.DropIndex(ctx, s.indexName(name)); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		cleanupErr := s.store.HSet(ctx, metaKey, metaBackup)
		return errors.Join(err, cleanupErr)
	}

	keys, err := s.store.Scan(ctx, s.recordPrefix(name)+"*")
	if err != nil {
		return fmt.Errorf("scan records %s: %w", name, err)
	}
	if err := s.store.DelMulti(ctx, keys); err != nil {
		return fmt.Errorf("delete records %s: %w", name, err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close closes the underlying client.
func (s *Store) Close() error {
	s.store.Close()
	return nil
}

// dimension returns the collection dimension, reading metadata on a cache miss.
func (s *Store) dimension(ctx context.Context, name string) (int, error) {
	s.mu.RLock()
	dim, ok := s.dims[name]
	s.mu.RUnlock()
	if ok {
		return dim, nil
	}

	m, err := s.store.HGetAll(ctx, s.metaKey(name))
	if err != nil {
		return 0, fmt.Errorf("hgetall collection %s: %w", name, err)
	}
	if len(m) == 0 {
		return 0, fmt.Errorf("collection %s: %w", name, domain.ErrNotFound)
	}
	cm, err := metaFromHash(m)
	if err != nil {
		return 0, fmt.Errorf("parse collection %s: %w", name, err)
	}
	s.remember(name, cm.Dimension)
	return cm.Dimension, nil
}

func (s *Store) remember(name string, dim int) {
	s.mu.Lock()
	s.dims[name] = dim
	s.mu.Unlock()
}

func (s *Store) forget(name string) {
	s.mu.Lock()
	delete(s.dims, name)
	s.mu.Unlock()
}

func (s *Store) searchErr(collection string, err error) error {
	if errors.Is(err, db.ErrIndexNotFound) {
		s.forget(collection)
		return fmt.Errorf("index for %s: %w", collection, domain.ErrNotFound)
	}
	return fmt.Errorf("search %s: %w", collection, err)
}

func (s *Store) toHits(collection string, sr *db.SearchResult) ([]vectorstore.Hit, error) {
	if sr == nil || len(sr.Entries) == 0 {
		return []vectorstore.Hit{}, nil
	}
	prefix := s.recordPrefix(collection)
	hits := make([]vectorstore.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		payload, err := record.FromFields(entry.Fields)
		if err != nil {
			return nil, err
		}
		hits = append(hits, vectorstore.Hit{
			ID:      strings.TrimPrefix(entry.Key, prefix),
			Score:   entry.Score,
			Payload: payload,
		})
	}
	return hits, nil
}

// Valkey key patterns: {prefix}collection:{name}, {prefix}{name}:idx, {prefix}{name}:{id}

func (s *Store) metaKey(name string) string {
	return fmt.Sprintf("%scollection:%s", s.prefix, name)
}

func (s *Store) indexName(name string) string {
	return fmt.Sprintf("%s%s:idx", s.prefix, name)
}

func (s *Store) recordPrefix(name string) string {
	return fmt.Sprintf("%s%s:", s.prefix, name)
}

func (s *Store) recordKey(name, id string) string {
	return s.recordPrefix(name) + id
}
