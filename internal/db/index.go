package db

import (
	"errors"
	"fmt"
)

// Index defaults match the server-side HNSW defaults.
const (
	DefaultHNSWM           = 16
	DefaultHNSWEFConstruct = 200
)

// TagField is a TAG attribute. A non-empty Separator makes it multi-valued.
type TagField struct {
	Name          string
	Separator     string
	CaseSensitive bool
}

// VectorSpec is the single FLOAT32 vector attribute of an index.
// Distance is always COSINE.
type VectorSpec struct {
	Field       string // hash field holding the blob
	Alias       string // name used in KNN clauses
	Dim         int
	M           int
	EFConstruct int
}

// IndexDefinition is an FT.CREATE over HASH keys: payload tags plus one HNSW vector.
type IndexDefinition struct {
	Name     string
	Prefixes []string
	Tags     []TagField
	Vector   VectorSpec
}

// Validate checks that the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if !validIdentifier(idx.Name) {
		return fmt.Errorf("index name %q contains invalid characters", idx.Name)
	}
	if idx.Vector.Field == "" {
		return errors.New("vector field is required")
	}
	if idx.Vector.Dim <= 0 {
		return fmt.Errorf("vector field requires positive DIM, got %d", idx.Vector.Dim)
	}

	seen := map[string]bool{idx.Vector.Field: true}
	if idx.Vector.Alias != "" {
		seen[idx.Vector.Alias] = true
	}
	for i, t := range idx.Tags {
		if t.Name == "" {
			return fmt.Errorf("tag name is required at position %d", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate field name: %s", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// validIdentifier accepts [a-zA-Z0-9_:-]+.
func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == ':' || r == '-':
		default:
			return false
		}
	}
	return true
}
