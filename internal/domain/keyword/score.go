package keyword

import "github.com/kailas-cloud/newsdex/internal/domain/search/mode"

// Score matches the query terms against an article's keywords.
// ok is false when the article is not eligible under the match mode.
// An empty query scores 1.0 so keyword filtering becomes a no-op.
func Score(query []string, kws List, m mode.Match) (score float64, ok bool) {
	if len(query) == 0 {
		return 1.0, true
	}

	index := make(map[string]float64, len(kws))
	for _, k := range kws {
		t := Normalize(k.Term)
		if prev, seen := index[t]; !seen || k.Score > prev {
			index[t] = k.Score
		}
	}

	var sum, maxScore float64
	matched := 0
	seen := make(map[string]struct{}, len(query))
	for _, q := range query {
		t := Normalize(q)
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}

		s, hit := index[t]
		if !hit {
			if m == mode.MatchAll {
				return 0, false
			}
			continue
		}
		matched++
		sum += s
		if s > maxScore {
			maxScore = s
		}
	}

	if matched == 0 {
		return 0, false
	}
	if m == mode.MatchAll {
		return sum / float64(matched), true
	}
	return maxScore, true
}
