package search

import (
	"sort"

	"github.com/kailas-cloud/newsdex/internal/domain/search/mode"
	"github.com/kailas-cloud/newsdex/internal/domain/search/result"
)

// fuse sets the combined score: semantic when the query has a prompt,
// keyword relevance otherwise.
func fuse(results []result.Result, hasPrompt bool) {
	for i := range results {
		c := results[i].KeywordScore()
		if hasPrompt {
			c = results[i].SemanticScore()
		}
		results[i] = results[i].WithCombined(c)
	}
}

// rank sorts results by the requested key, descending. Combined ranking
// breaks ties by keyword score; every key then prefers the newer article,
// then the lower ID.
func rank(results []result.Result, by mode.Sort) {
	primary := func(r *result.Result) float64 {
		switch by {
		case mode.SortSemantic:
			return r.SemanticScore()
		case mode.SortKeyword:
			return r.KeywordScore()
		}
		return r.CombinedScore()
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := &results[i], &results[j]
		if pa, pb := primary(a), primary(b); pa != pb {
			return pa > pb
		}
		if by == mode.SortCombined && a.KeywordScore() != b.KeywordScore() {
			return a.KeywordScore() > b.KeywordScore()
		}
		if da, db := a.PublishedAt(), b.PublishedAt(); !da.Equal(db) {
			return da.After(db)
		}
		return a.ID() < b.ID()
	})
}
