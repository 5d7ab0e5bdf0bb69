package article

import (
	"time"

	"github.com/kailas-cloud/newsdex/internal/domain/keyword"
)

// DateLayout is the calendar-day format used in payloads and filters.
const DateLayout = "2006-01-02"

// Word count bounds applied when reading the corpus.
const (
	DefaultMinWords = 500
	DefaultMaxWords = 20000
)

// Section is the newspaper section an article was published in.
type Section string

// Known sections.
const (
	Economy       Section = "Economía"
	International Section = "Internacional"
	Politics      Section = "Política"
	Society       Section = "Sociedad"
)

// Sections lists the known sections in display order.
func Sections() []Section {
	return []Section{Economy, International, Politics, Society}
}

// IsValid checks if the section is one of the known values.
func (s Section) IsValid() bool {
	switch s {
	case Economy, International, Politics, Society:
		return true
	}
	return false
}

// Article is a scraped news article as produced by the ingestion pipeline.
type Article struct {
	ID          string
	Newspaper   string
	Section     Section
	URL         string
	Title       string
	Body        string
	PublishedAt time.Time
	WordCount   int
}

// Processed is the preprocessing output for one article (same ID).
type Processed struct {
	ArticleID     string
	ProcessedText string
	Keywords      keyword.List
}

// Document is what the retrieval core reads: the article joined with its
// processed row, when one exists.
type Document struct {
	Article
	Processed *Processed
}

// Text returns the text to embed. Processed text is used when requested and available.
func (d Document) Text(useProcessed bool) string {
	if useProcessed && d.Processed != nil && d.Processed.ProcessedText != "" {
		return d.Processed.ProcessedText
	}
	return d.Body
}

// Keywords returns the processed keywords, nil when the article has not been processed.
func (d Document) Keywords() keyword.List {
	if d.Processed == nil {
		return nil
	}
	return d.Processed.Keywords
}

// Query selects the articles to read from the corpus.
type Query struct {
	MinWords     int
	MaxWords     int
	Sections     []Section
	From         time.Time
	To           time.Time
	UseProcessed bool
	Limit        int
}

// WithDefaults fills the word-count bounds when they are unset.
func (q Query) WithDefaults() Query {
	if q.MinWords <= 0 {
		q.MinWords = DefaultMinWords
	}
	if q.MaxWords <= 0 {
		q.MaxWords = DefaultMaxWords
	}
	return q
}

// Matches applies the query to a single document. Used by in-memory readers.
func (q Query) Matches(d Document) bool {
	q = q.WithDefaults()
	if d.WordCount < q.MinWords || d.WordCount > q.MaxWords {
		return false
	}
	if len(q.Sections) > 0 {
		found := false
		for _, s := range q.Sections {
			if s == d.Section {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !q.From.IsZero() && d.PublishedAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && d.PublishedAt.After(q.To) {
		return false
	}
	if q.UseProcessed && d.Processed == nil {
		return false
	}
	return true
}
