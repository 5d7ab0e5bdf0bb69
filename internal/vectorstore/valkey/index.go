package valkey

import (
	"github.com/kailas-cloud/newsdex/internal/db"
	"github.com/kailas-cloud/newsdex/internal/domain/record"
)

// vectorAlias is the name KNN queries use for the vector field.
const vectorAlias = "vector"

// buildIndex declares the filterable payload fields as TAGs and the vector as HNSW/COSINE.
// Keyword terms share one multi-valued TAG.
func buildIndex(name, prefix string, dim int, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	return db.NewIndex(name).
		Prefix(prefix).
		Tag(record.FieldOriginalID, record.FieldSection, record.FieldPublishedAt, record.FieldNewspaper).
		MultiTag(record.FieldKeywords).
		Vector(vectorAlias, dim, hnsw.M, hnsw.EFConstruct).
		Build()
}
