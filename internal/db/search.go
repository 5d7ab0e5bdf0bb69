package db

import "github.com/kailas-cloud/newsdex/internal/domain/search/filter"

// TagSeparator splits multi-valued TAG fields (keyword terms) in hashes and indexes.
const TagSeparator = "|"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Filters      filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// FilterQuery enumerates documents matching a payload filter, without scoring.
// KeyPrefix is used by backends that cannot run FT.SEARCH without KNN.
// A zero Limit lists every match.
type FilterQuery struct {
	IndexName    string
	KeyPrefix    string
	Filters      filter.Expression
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
