package keyword

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Keyword is a term with its relevance in [0,1].
type Keyword struct {
	Term  string
	Score float64
}

// List is an article's keywords, ordered by descending relevance.
type List []Keyword

// Normalize lowercases, trims and strips diacritics so "Economía" and
// "economia" compare equal.
func Normalize(term string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(term)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(term))
	}
	return folded
}

// Sorted returns a copy ordered by descending score. Equal scores keep their order.
func (l List) Sorted() List {
	out := make(List, len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Terms returns the normalized terms in list order.
func (l List) Terms() []string {
	out := make([]string, len(l))
	for i, k := range l {
		out[i] = Normalize(k.Term)
	}
	return out
}

// Top returns at most n keywords whose score is at least minScore.
func (l List) Top(n int, minScore float64) List {
	var out List
	for _, k := range l.Sorted() {
		if len(out) == n {
			break
		}
		if k.Score >= minScore {
			out = append(out, k)
		}
	}
	return out
}

// Lookup returns the score of term, compared after normalization.
func (l List) Lookup(term string) (float64, bool) {
	want := Normalize(term)
	for _, k := range l {
		if Normalize(k.Term) == want {
			return k.Score, true
		}
	}
	return 0, false
}

// Format renders the list as "(term1,0.412),(term2,0.200)", descending by score.
func Format(l List) string {
	var b strings.Builder
	for i, k := range l.Sorted() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('(')
		b.WriteString(k.Term)
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(k.Score, 'f', 3, 64))
		b.WriteByte(')')
	}
	return b.String()
}

// Parse reads the text produced by Format. Terms may contain commas;
// the score is whatever follows the last comma of each pair.
func Parse(s string) (List, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("parse keywords: expected (term,score) pairs, got %q", s)
	}
	pairs := strings.Split(s[1:len(s)-1], "),(")
	out := make(List, 0, len(pairs))
	for i, p := range pairs {
		idx := strings.LastIndexByte(p, ',')
		if idx <= 0 {
			return nil, fmt.Errorf("parse keywords: pair %d %q has no term", i, p)
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(p[idx+1:]), 64)
		if err != nil {
			return nil, fmt.Errorf("parse keywords: pair %d score: %w", i, err)
		}
		out = append(out, Keyword{Term: strings.TrimSpace(p[:idx]), Score: score})
	}
	return out, nil
}
