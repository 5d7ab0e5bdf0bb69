package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/newsdex/internal/db"
)

// Get returns db.ErrKeyNotFound for a missing key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.do(ctx, s.b().Get().Key(key).Build()).AsBytes()
	switch {
	case err == nil:
		return data, nil
	case rueidis.IsRedisNil(err):
		return nil, db.ErrKeyNotFound
	default:
		return nil, &db.Error{Op: db.OpGet, Key: key, Err: err}
	}
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.exec(ctx, db.OpSet, key, s.b().Set().Key(key).Value(rueidis.BinaryString(value)).Build())
}

func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	return s.exec(ctx, db.OpIncrBy, key, s.b().Incrby().Key(key).Increment(val).Build())
}

// Expire sets a TTL in whole seconds. With nx the TTL is only set on keys
// that have none yet.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error {
	exp := s.b().Expire().Key(key).Seconds(int64(ttl / time.Second))
	cmd := exp.Build()
	if nx {
		cmd = exp.Nx().Build()
	}
	return s.exec(ctx, db.OpExpire, key, cmd)
}

// exec runs a command whose reply only matters for its error.
func (s *Store) exec(ctx context.Context, op, key string, cmd rueidis.Completed) error {
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: op, Key: key, Err: err}
	}
	return nil
}
