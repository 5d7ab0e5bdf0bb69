package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/newsdex/internal/db"
)

// scanCount is the SCAN COUNT hint and the number of keys per DEL.
const scanCount = 100

func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	return s.exec(ctx, db.OpHSet, key, s.hset(key, fields))
}

// HSetMulti pipelines one HSET per item and reports the first failed key.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if len(items) == 0 {
		return nil
	}
	cmds := make([]rueidis.Completed, 0, len(items))
	for _, it := range items {
		cmds = append(cmds, s.hset(it.Key, it.Fields))
	}
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Key: items[i].Key, Err: err}
		}
	}
	return nil
}

func (s *Store) hset(key string, fields map[string]string) rueidis.Completed {
	fv := s.b().Hset().Key(key).FieldValue()
	for k, v := range fields {
		fv = fv.FieldValue(k, v)
	}
	return fv.Build()
}

// HGetAll returns an empty map for a missing key.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.do(ctx, s.b().Hgetall().Key(key).Build()).AsStrMap()
	if err != nil {
		return nil, &db.Error{Op: db.OpHGetAll, Key: key, Err: err}
	}
	return m, nil
}

// HGetAllMulti pipelines HGETALL; the result is aligned with keys.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	cmds := make([]rueidis.Completed, 0, len(keys))
	for _, k := range keys {
		cmds = append(cmds, s.b().Hgetall().Key(k).Build())
	}

	out := make([]map[string]string, len(keys))
	for i, res := range s.client.DoMulti(ctx, cmds...) {
		m, err := res.AsStrMap()
		if err != nil {
			return nil, &db.Error{Op: db.OpHGetAll, Key: keys[i], Err: err}
		}
		out[i] = m
	}
	return out, nil
}

func (s *Store) Del(ctx context.Context, key string) error {
	return s.exec(ctx, db.OpDel, key, s.b().Del().Key(key).Build())
}

// DelMulti issues one DEL per scanCount keys.
func (s *Store) DelMulti(ctx context.Context, keys []string) error {
	for len(keys) > 0 {
		n := min(scanCount, len(keys))
		if err := s.exec(ctx, db.OpDel, "", s.b().Del().Key(keys[:n]...).Build()); err != nil {
			return err
		}
		keys = keys[n:]
	}
	return nil
}

// Scan follows the SCAN cursor until the server returns 0.
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		cmd := s.b().Scan().Cursor(cursor).Match(pattern).Count(scanCount).Build()
		page, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Key: pattern, Err: err}
		}
		keys = append(keys, page.Elements...)
		if cursor = page.Cursor; cursor == 0 {
			return keys, nil
		}
	}
}
