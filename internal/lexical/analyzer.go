// Package lexical implements the corpus-fitted sparse embedders (TF-IDF and BM25)
// on top of bleve's Spanish text analysis.
package lexical

import (
	"fmt"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/es"
	"github.com/blevesearch/bleve/v2/registry"

	"github.com/kailas-cloud/newsdex/internal/domain/keyword"
)

// Analyzer turns Spanish text into index terms: unicode tokenization,
// lowercasing, Spanish stop words, light stemming, then diacritic folding.
type Analyzer struct {
	analyzer analysis.Analyzer
}

// NewSpanishAnalyzer builds the analyzer from bleve's registry.
func NewSpanishAnalyzer() (*Analyzer, error) {
	a, err := registry.NewCache().AnalyzerNamed(es.AnalyzerName)
	if err != nil {
		return nil, fmt.Errorf("load %s analyzer: %w", es.AnalyzerName, err)
	}
	return &Analyzer{analyzer: a}, nil
}

// Terms returns the analyzed terms of text in order, duplicates included.
func (a *Analyzer) Terms(text string) []string {
	stream := a.analyzer.Analyze([]byte(text))
	out := make([]string, 0, len(stream))
	for _, tok := range stream {
		term := keyword.Normalize(string(tok.Term))
		if utf8.RuneCountInString(term) < 2 {
			continue
		}
		out = append(out, term)
	}
	return out
}
