package valkey

import (
	"fmt"
	"maps"
	"strconv"
	"time"

	"github.com/kailas-cloud/newsdex/internal/db"
	"github.com/kailas-cloud/newsdex/internal/domain/record"
)

const distanceCosine = "cosine"

// meta is the collection metadata hash.
type meta struct {
	Name      string
	Dimension int
	Distance  string
	CreatedAt int64
}

func newMeta(name string, dim int) meta {
	return meta{Name: name, Dimension: dim, Distance: distanceCosine, CreatedAt: time.Now().UnixMilli()}
}

func metaToHash(m meta) map[string]string {
	return map[string]string{
		"name":       m.Name,
		"vector_dim": strconv.Itoa(m.Dimension),
		"distance":   m.Distance,
		"created_at": strconv.FormatInt(m.CreatedAt, 10),
	}
}

func metaFromHash(h map[string]string) (meta, error) {
	dim, err := strconv.Atoi(h["vector_dim"])
	if err != nil {
		return meta{}, fmt.Errorf("invalid vector_dim: %w", err)
	}
	var createdAt int64
	if s := h["created_at"]; s != "" {
		createdAt, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return meta{}, fmt.Errorf("invalid created_at: %w", err)
		}
	}
	return meta{Name: h["name"], Dimension: dim, Distance: h["distance"], CreatedAt: createdAt}, nil
}

// recordToHash flattens the payload and appends the raw vector.
func recordToHash(r record.Record) map[string]string {
	m := make(map[string]string, len(record.FieldNames())+1)
	maps.Copy(m, r.Payload.Fields())
	m[db.VectorField] = db.VectorToBytes(r.Vector)
	return m
}

func recordFromHash(id string, h map[string]string) (record.Record, error) {
	payload, err := record.FromFields(h)
	if err != nil {
		return record.Record{}, err
	}
	vec := db.BytesToVector(h[db.VectorField])
	if len(vec) == 0 {
		return record.Record{}, fmt.Errorf("record %s: malformed vector field", id)
	}
	return record.Record{ID: id, Vector: vec, Payload: payload}, nil
}
