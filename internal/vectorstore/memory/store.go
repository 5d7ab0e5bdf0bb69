// Package memory is a brute-force in-process vector store for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/record"
	"github.com/kailas-cloud/newsdex/internal/vectorstore"
)

type collection struct {
	dim     int
	records map[string]record.Record
}

// Store implements vectorstore.Store in memory.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// New creates an empty store.
func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

// EnsureCollection creates the collection if missing.
func (s *Store) EnsureCollection(_ context.Context, name string, dim int) error {
	if err := vectorstore.ValidateName(name); err != nil {
		return err
	}
	if dim <= 0 {
		return fmt.Errorf("dimension must be positive, got %d", dim)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		if c.dim != dim {
			return domain.NewDimensionMismatch(name, c.dim, dim)
		}
		return nil
	}
	s.collections[name] = &collection{dim: dim, records: make(map[string]record.Record)}
	return nil
}

// Upsert overwrites records by ID. The batch is rejected as a whole on a dimension mismatch.
func (s *Store) Upsert(_ context.Context, name string, records []record.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.get(name)
	if err != nil {
		return err
	}
	if err := vectorstore.CheckRecords(name, c.dim, records); err != nil {
		return err
	}
	for _, r := range records {
		r.Vector = slices.Clone(r.Vector)
		c.records[r.ID] = r
	}
	return nil
}

// Search scores every record that passes the filter.
func (s *Store) Search(_ context.Context, q vectorstore.SearchQuery) ([]vectorstore.Hit, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.get(q.Collection)
	if err != nil {
		return nil, err
	}
	if len(q.Vector) != c.dim {
		return nil, domain.NewDimensionMismatch(q.Collection, c.dim, len(q.Vector))
	}

	hits := make([]vectorstore.Hit, 0, len(c.records))
	for id, r := range c.records {
		if !q.Filters.Matches(r.Payload.Values) {
			continue
		}
		hits = append(hits, vectorstore.Hit{ID: id, Score: vectorstore.Cosine(q.Vector, r.Vector), Payload: r.Payload})
	}
	vectorstore.SortHits(hits)
	if len(hits) > q.TopK {
		hits = hits[:q.TopK]
	}
	return hits, nil
}

// Scan returns matching payloads ordered by ID.
func (s *Store) Scan(_ context.Context, q vectorstore.ScanQuery) ([]vectorstore.Hit, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.get(q.Collection)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(c.records))
	for id := range c.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var hits []vectorstore.Hit
	for _, id := range ids {
		r := c.records[id]
		if !q.Filters.Matches(r.Payload.Values) {
			continue
		}
		hits = append(hits, vectorstore.Hit{ID: id, Payload: r.Payload})
		if q.Limit > 0 && len(hits) == q.Limit {
			break
		}
	}
	return hits, nil
}

// Get returns a copy of a stored record.
func (s *Store) Get(_ context.Context, name, id string) (record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.get(name)
	if err != nil {
		return record.Record{}, err
	}
	r, ok := c.records[id]
	if !ok {
		return record.Record{}, fmt.Errorf("record %s in %s: %w", id, name, domain.ErrNotFound)
	}
	r.Vector = slices.Clone(r.Vector)
	return r, nil
}

// CollectionInfo reports dimension and record count.
func (s *Store) CollectionInfo(_ context.Context, name string) (vectorstore.CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.get(name)
	if err != nil {
		return vectorstore.CollectionInfo{}, err
	}
	return vectorstore.NewCollectionInfo(name, c.dim, len(c.records)), nil
}

// ListCollections returns collection names sorted.
func (s *Store) ListCollections(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for n := range s.collections {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// DeleteCollection drops a collection and its records.
func (s *Store) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.get(name); err != nil {
		return err
	}
	delete(s.collections, name)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// get must be called with s.mu held.
func (s *Store) get(name string) (*collection, error) {
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", name, domain.ErrNotFound)
	}
	return c, nil
}
