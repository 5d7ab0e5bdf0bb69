package evaluation

import (
	"math"
	"sort"
	"time"

	"github.com/kailas-cloud/newsdex/internal/domain/search/mode"
)

// TestQuery is a labeled query: the articles it should retrieve are known upfront.
type TestQuery struct {
	ID                 string   `json:"id"`
	Prompt             string   `json:"prompt,omitempty"`
	Keywords           []string `json:"keywords,omitempty"`
	Date               string   `json:"date,omitempty"`
	Section            string   `json:"section,omitempty"`
	MinKeywordScore    float64  `json:"min_keyword_score"`
	Topic              string   `json:"topic,omitempty"`
	ExpectedArticleIDs []string `json:"expected_article_ids"`
}

// Mode reports which components the query carries.
func (q TestQuery) Mode() mode.Mode {
	return mode.Of(q.Prompt != "", len(q.Keywords) > 0)
}

// Record holds the outcome of running one TestQuery.
type Record struct {
	QueryID  string
	Returned int
	Expected int
	// Ranks are the 1-based positions of expected articles found in the
	// returned list, ascending. Missing articles have no rank.
	Ranks   []int
	Latency time.Duration
	Err     error
}

// NewRecord ranks the expected ids inside the returned list.
func NewRecord(queryID string, returned, expected []string, latency time.Duration) Record {
	want := make(map[string]struct{}, len(expected))
	for _, id := range expected {
		want[id] = struct{}{}
	}
	var ranks []int
	for i, id := range returned {
		if _, ok := want[id]; ok {
			ranks = append(ranks, i+1)
			delete(want, id)
		}
	}
	return Record{
		QueryID:  queryID,
		Returned: len(returned),
		Expected: len(expected),
		Ranks:    ranks,
		Latency:  latency,
	}
}

// ReciprocalRank is 1/rank of the first hit, 0 without hits.
func ReciprocalRank(ranks []int) float64 {
	if len(ranks) == 0 {
		return 0
	}
	first := ranks[0]
	for _, r := range ranks[1:] {
		if r < first {
			first = r
		}
	}
	return 1 / float64(first)
}

// AveragePrecision is the mean of precision@rank over the expected articles
// that were found. Ranks 1 and 3 give (1/1 + 2/3) / 2.
func AveragePrecision(ranks []int) float64 {
	if len(ranks) == 0 {
		return 0
	}
	sorted := append([]int(nil), ranks...)
	sort.Ints(sorted)
	var sum float64
	for i, r := range sorted {
		sum += float64(i+1) / float64(r)
	}
	return sum / float64(len(sorted))
}

// Precision is the share of returned articles that were expected.
func (r Record) Precision() float64 {
	if r.Returned == 0 {
		return 0
	}
	return float64(len(r.Ranks)) / float64(r.Returned)
}

// Recall is the share of expected articles that were returned.
func (r Record) Recall() float64 {
	if r.Expected == 0 {
		return 0
	}
	return float64(len(r.Ranks)) / float64(r.Expected)
}

// NDCG is the normalized discounted cumulative gain at k with binary relevance.
func (r Record) NDCG(k int) float64 {
	if r.Expected == 0 || k <= 0 {
		return 0
	}
	var dcg float64
	for _, rank := range r.Ranks {
		if rank <= k {
			dcg += 1 / math.Log2(float64(rank+1))
		}
	}
	ideal := min(r.Expected, k)
	var idcg float64
	for i := 1; i <= ideal; i++ {
		idcg += 1 / math.Log2(float64(i+1))
	}
	return dcg / idcg
}
