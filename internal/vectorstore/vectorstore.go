// Package vectorstore defines the collection-per-variant vector storage used
// by the indexer and the search engine.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/record"
	"github.com/kailas-cloud/newsdex/internal/domain/search/filter"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
)

// Store persists article vectors, one collection per embedder variant.
// Collections use cosine similarity and a fixed dimension.
//
//nolint:interfacebloat // one facade per backend, consumers declare narrow interfaces
type Store interface {
	// EnsureCollection creates the collection if missing. An existing
	// collection with another dimension fails with DimensionMismatchError.
	EnsureCollection(ctx context.Context, name string, dim int) error
	// Upsert writes records keyed by ID as one batch. Existing IDs are overwritten.
	Upsert(ctx context.Context, collection string, records []record.Record) error
	// Search returns at most TopK hits ordered by descending similarity.
	Search(ctx context.Context, q SearchQuery) ([]Hit, error)
	// Scan enumerates payloads matching a filter without scoring, ordered by ID.
	Scan(ctx context.Context, q ScanQuery) ([]Hit, error)
	// Get returns a stored record with its vector. Missing IDs are ErrNotFound.
	Get(ctx context.Context, collection, id string) (record.Record, error)
	CollectionInfo(ctx context.Context, name string) (CollectionInfo, error)
	ListCollections(ctx context.Context) ([]string, error)
	DeleteCollection(ctx context.Context, name string) error
	Ping(ctx context.Context) error
	Close() error
}

// SearchQuery is a similarity query against one collection.
type SearchQuery struct {
	Collection string
	Vector     []float32
	Filters    filter.Expression
	TopK       int
}

// Validate checks the query shape shared by every backend.
func (q SearchQuery) Validate() error {
	if q.Collection == "" {
		return fmt.Errorf("collection is required")
	}
	if len(q.Vector) == 0 {
		return fmt.Errorf("query vector is required")
	}
	if q.TopK <= 0 {
		return fmt.Errorf("top_k must be positive")
	}
	return nil
}

// ScanQuery enumerates payloads of one collection. A zero Limit returns
// every match, paging through the backend as needed.
type ScanQuery struct {
	Collection string
	Filters    filter.Expression
	Limit      int
}

// Validate checks the query shape shared by every backend.
func (q ScanQuery) Validate() error {
	if q.Collection == "" {
		return fmt.Errorf("collection is required")
	}
	if q.Limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	return nil
}

// Hit is one matched record. Score is zero for Scan results.
type Hit struct {
	ID      string
	Score   float64
	Payload record.Payload
}

// CollectionInfo describes a stored collection.
type CollectionInfo struct {
	Name      string
	Dimension int
	Count     int
	// Variant is empty for collections outside the news_<variant> naming scheme.
	Variant variant.Variant
}

// NewCollectionInfo fills Variant from the collection name.
func NewCollectionInfo(name string, dim, count int) CollectionInfo {
	v, _ := variant.FromCollection(name)
	return CollectionInfo{Name: name, Dimension: dim, Count: count, Variant: v}
}

// ValidateName rejects names that cannot be used as keys or index names by every backend.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name is required")
	}
	for _, r := range name {
		ok := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-'
		if !ok {
			return fmt.Errorf("collection name %q contains invalid characters", name)
		}
	}
	return nil
}

// CheckRecords validates IDs and vector dimensions before a write.
func CheckRecords(collection string, dim int, records []record.Record) error {
	for i := range records {
		if strings.TrimSpace(records[i].ID) == "" {
			return fmt.Errorf("record %d: id is required", i)
		}
		if len(records[i].Vector) != dim {
			return domain.NewDimensionMismatch(collection, dim, len(records[i].Vector))
		}
	}
	return nil
}

// SortHits orders hits by descending score, then newer published_at, then ID.
func SortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Payload.PublishedAt != hits[j].Payload.PublishedAt {
			// YYYY-MM-DD compares lexicographically
			return hits[i].Payload.PublishedAt > hits[j].Payload.PublishedAt
		}
		return hits[i].ID < hits[j].ID
	})
}

// Cosine returns the cosine similarity of a and b, 0 when either is a zero vector.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Dropper lists and deletes collections.
type Dropper interface {
	ListCollections(ctx context.Context) ([]string, error)
	DeleteCollection(ctx context.Context, name string) error
}

// DeleteAll drops every collection whose name is not in except.
// It keeps going after a failure and returns the deleted names with the joined errors.
func DeleteAll(ctx context.Context, s Dropper, except []string) ([]string, error) {
	names, err := s.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	keep := make(map[string]struct{}, len(except))
	for _, n := range except {
		keep[n] = struct{}{}
	}

	var deleted []string
	var errs []error
	for _, n := range names {
		if _, ok := keep[n]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.DeleteCollection(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", n, err))
			continue
		}
		deleted = append(deleted, n)
	}
	return deleted, errors.Join(errs...)
}
