package embcache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kailas-cloud/newsdex/internal/db"
)

// DefaultLRUSize is the in-process cache capacity in entries.
const DefaultLRUSize = 10000

// LRUStore is an in-process bounded store for deployments without Valkey.
type LRUStore struct {
	cache *lru.Cache[string, []byte]
}

// NewLRUStore creates an LRU store holding at most size entries.
func NewLRUStore(size int) (*LRUStore, error) {
	if size <= 0 {
		size = DefaultLRUSize
	}
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRUStore{cache: cache}, nil
}

// Get returns db.ErrKeyNotFound on a miss, like the Valkey store.
func (s *LRUStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

// Set stores a copy of value, evicting the least recently used entry when full.
func (s *LRUStore) Set(_ context.Context, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	s.cache.Add(key, cp)
	return nil
}

// Len returns the number of cached entries.
func (s *LRUStore) Len() int { return s.cache.Len() }
