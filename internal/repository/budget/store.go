// Package budget persists embedding token counters in the key-value store.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/newsdex/internal/db"
)

// Counter lifetimes. A key must outlive the window it counts.
const (
	DefaultDailyTTL   = 48 * time.Hour
	DefaultMonthlyTTL = 62 * 24 * time.Hour
)

// KV is the subset of db.KVStore the counters need.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store keeps one integer counter per budget window key.
type Store struct {
	kv       KV
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New uses the default TTLs for non-positive arguments.
func New(kv KV, dailyTTL, monthTTL time.Duration) *Store {
	s := &Store{kv: kv, dailyTTL: DefaultDailyTTL, monthTTL: DefaultMonthlyTTL}
	if dailyTTL > 0 {
		s.dailyTTL = dailyTTL
	}
	if monthTTL > 0 {
		s.monthTTL = monthTTL
	}
	return s
}

// IncrBy adds val and sets the TTL on first write only; later increments
// never push the expiry forward.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if err := s.kv.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("charge budget: %w", err)
	}
	if err := s.kv.Expire(ctx, key, s.ttl(key), true); err != nil {
		return fmt.Errorf("expire budget: %w", err)
	}
	return nil
}

// Get reads a counter; a missing key is zero.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	raw, err := s.kv.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read budget: %w", err)
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("read budget %s: %w", key, err)
	}
	return n, nil
}

// ttl picks the lifetime from the period segment of
// <prefix>budget:<provider>:<period>:<stamp>.
func (s *Store) ttl(key string) time.Duration {
	if strings.Contains(key, ":daily:") {
		return s.dailyTTL
	}
	return s.monthTTL
}
