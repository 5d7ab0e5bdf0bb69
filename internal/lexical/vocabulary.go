package lexical

import "sort"

// Vocabulary maps the most document-frequent corpus terms to vector slots.
type Vocabulary struct {
	slots     map[string]int
	terms     []string
	df        []int
	docs      int
	avgDocLen float64
}

// BuildVocabulary keeps the size terms with the highest document frequency.
// Ties are broken lexicographically so the same corpus always yields the same slots.
func BuildVocabulary(docs [][]string, size int) *Vocabulary {
	df := make(map[string]int)
	var totalLen int
	for _, terms := range docs {
		totalLen += len(terms)
		seen := make(map[string]struct{}, len(terms))
		for _, t := range terms {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if df[terms[i]] != df[terms[j]] {
			return df[terms[i]] > df[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > size {
		terms = terms[:size]
	}

	v := &Vocabulary{
		slots: make(map[string]int, len(terms)),
		terms: terms,
		df:    make([]int, len(terms)),
		docs:  len(docs),
	}
	for i, t := range terms {
		v.slots[t] = i
		v.df[i] = df[t]
	}
	if len(docs) > 0 {
		v.avgDocLen = float64(totalLen) / float64(len(docs))
	}
	return v
}

// Len returns the number of terms kept.
func (v *Vocabulary) Len() int { return len(v.terms) }

// Slot returns the vector position of term.
func (v *Vocabulary) Slot(term string) (int, bool) {
	i, ok := v.slots[term]
	return i, ok
}

// Term returns the term stored at slot i.
func (v *Vocabulary) Term(i int) string { return v.terms[i] }

// DocFreq returns the number of corpus documents containing the term at slot i.
func (v *Vocabulary) DocFreq(i int) int { return v.df[i] }

// Docs returns the corpus size the vocabulary was built from.
func (v *Vocabulary) Docs() int { return v.docs }

// AvgDocLen returns the mean analyzed document length.
func (v *Vocabulary) AvgDocLen() float64 { return v.avgDocLen }

// counts returns in-vocabulary term frequencies by slot.
func (v *Vocabulary) counts(terms []string) map[int]int {
	tf := make(map[int]int)
	for _, t := range terms {
		if i, ok := v.slots[t]; ok {
			tf[i]++
		}
	}
	return tf
}
