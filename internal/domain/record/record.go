package record

import (
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/newsdex/internal/domain/article"
	"github.com/kailas-cloud/newsdex/internal/domain/keyword"
)

// Payload field names shared by every vector store.
const (
	FieldOriginalID   = "original_id"
	FieldTitle        = "title"
	FieldSection      = "section"
	FieldPublishedAt  = "published_at"
	FieldNewspaper    = "newspaper"
	FieldURL          = "url"
	FieldKeywords     = "keywords"
	FieldKeywordsText = "keywords_text"
)

// TermSeparator joins normalized keyword terms in flat string encodings.
const TermSeparator = "|"

// Record is one article's vector in a collection, keyed by article ID.
type Record struct {
	ID      string
	Vector  []float32
	Payload Payload
}

// Payload is the filterable metadata stored next to a vector.
type Payload struct {
	OriginalID  string
	Title       string
	Section     string
	PublishedAt string
	Newspaper   string
	URL         string
	Keywords    keyword.List
}

// NewPayload denormalizes an article into a payload.
func NewPayload(d article.Document) Payload {
	return Payload{
		OriginalID:  d.ID,
		Title:       d.Title,
		Section:     string(d.Section),
		PublishedAt: d.PublishedAt.Format(article.DateLayout),
		Newspaper:   d.Newspaper,
		URL:         d.URL,
		Keywords:    d.Keywords().Sorted(),
	}
}

// Published parses PublishedAt. Returns the zero time when unset or malformed.
func (p Payload) Published() time.Time {
	t, err := time.Parse(article.DateLayout, p.PublishedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Values returns the values stored under a field for filter evaluation.
// Keyword terms are normalized.
func (p Payload) Values(key string) []string {
	switch key {
	case FieldOriginalID:
		return nonEmpty(p.OriginalID)
	case FieldTitle:
		return nonEmpty(p.Title)
	case FieldSection:
		return nonEmpty(p.Section)
	case FieldPublishedAt:
		return nonEmpty(p.PublishedAt)
	case FieldNewspaper:
		return nonEmpty(p.Newspaper)
	case FieldURL:
		return nonEmpty(p.URL)
	case FieldKeywords:
		return p.Keywords.Terms()
	}
	return nil
}

func nonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}

// Fields flattens the payload into string fields. Keyword terms are joined
// with TermSeparator and the full list is kept in the literal keyword text format.
func (p Payload) Fields() map[string]string {
	return map[string]string{
		FieldOriginalID:   p.OriginalID,
		FieldTitle:        p.Title,
		FieldSection:      p.Section,
		FieldPublishedAt:  p.PublishedAt,
		FieldNewspaper:    p.Newspaper,
		FieldURL:          p.URL,
		FieldKeywords:     strings.Join(p.Keywords.Terms(), TermSeparator),
		FieldKeywordsText: keyword.Format(p.Keywords),
	}
}

// FromFields rebuilds a payload from Fields output.
func FromFields(fields map[string]string) (Payload, error) {
	kws, err := keyword.Parse(fields[FieldKeywordsText])
	if err != nil {
		return Payload{}, fmt.Errorf("payload %s: %w", fields[FieldOriginalID], err)
	}
	return Payload{
		OriginalID:  fields[FieldOriginalID],
		Title:       fields[FieldTitle],
		Section:     fields[FieldSection],
		PublishedAt: fields[FieldPublishedAt],
		Newspaper:   fields[FieldNewspaper],
		URL:         fields[FieldURL],
		Keywords:    kws,
	}, nil
}

// FieldNames lists the payload fields in storage order.
func FieldNames() []string {
	return []string{
		FieldOriginalID, FieldTitle, FieldSection, FieldPublishedAt,
		FieldNewspaper, FieldURL, FieldKeywords, FieldKeywordsText,
	}
}
