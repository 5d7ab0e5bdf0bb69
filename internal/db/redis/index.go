package redis

import (
	"context"
	"strconv"

	"github.com/kailas-cloud/newsdex/internal/db"
)

// CreateIndex runs FT.CREATE for a validated definition.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(createArgs(def)...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Key: def.Name, Err: err}
	}
	return nil
}

// DropIndex removes an FT index; the hashes it covered are left in place.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Key: name, Err: err}
	}
	return nil
}

// IndexExists probes FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	err := s.do(ctx, cmd).Error()
	switch {
	case err == nil:
		return true, nil
	case isRedisErr(err, "unknown index name"):
		return false, nil
	default:
		return false, &db.Error{Op: db.OpIndexInfo, Key: name, Err: err}
	}
}

// createArgs renders
//
//	<name> ON HASH [PREFIX n p...] SCHEMA <tag> TAG [SEPARATOR s] [CASESENSITIVE]...
//	<field> AS <alias> VECTOR HNSW 10 TYPE FLOAT32 DIM d DISTANCE_METRIC COSINE M m EF_CONSTRUCTION e
func createArgs(idx *db.IndexDefinition) []string {
	args := []string{idx.Name, "ON", "HASH"}
	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}

	args = append(args, "SCHEMA")
	for _, t := range idx.Tags {
		args = append(args, t.Name, "TAG")
		if t.Separator != "" {
			args = append(args, "SEPARATOR", t.Separator)
		}
		if t.CaseSensitive {
			args = append(args, "CASESENSITIVE")
		}
	}
	return append(args, vectorArgs(idx.Vector)...)
}

func vectorArgs(v db.VectorSpec) []string {
	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(v.Dim),
		"DISTANCE_METRIC", "COSINE",
		"M", strconv.Itoa(v.M),
		"EF_CONSTRUCTION", strconv.Itoa(v.EFConstruct),
	}
	args := []string{v.Field}
	if v.Alias != "" {
		args = append(args, "AS", v.Alias)
	}
	args = append(args, "VECTOR", "HNSW", strconv.Itoa(len(attrs)))
	return append(args, attrs...)
}
