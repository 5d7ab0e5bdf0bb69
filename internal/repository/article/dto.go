package article

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	domart "github.com/kailas-cloud/newsdex/internal/domain/article"
	"github.com/kailas-cloud/newsdex/internal/domain/keyword"
)

// Timestamp layouts written by the ingestion pipeline, most specific first.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	domart.DateLayout,
}

type documentRow struct {
	ID               int64
	Title            string
	Link             string
	Content          string
	PublishedAt      sql.NullString
	Newspaper        string
	Section          string
	ProcessedContent sql.NullString
	Keywords         sql.NullString
}

// toDocument builds the document. Malformed dates and keyword text are
// reported but do not drop the row.
func (r documentRow) toDocument(useProcessed bool) (domart.Document, error) {
	id := strconv.FormatInt(r.ID, 10)
	d := domart.Document{Article: domart.Article{
		ID:        id,
		Newspaper: r.Newspaper,
		Section:   domart.Section(r.Section),
		URL:       r.Link,
		Title:     r.Title,
		Body:      r.Content,
	}}

	var errs []error
	if r.PublishedAt.Valid && r.PublishedAt.String != "" {
		ts, err := parseTime(r.PublishedAt.String)
		if err != nil {
			errs = append(errs, err)
		}
		d.PublishedAt = ts
	}

	if r.ProcessedContent.Valid {
		kws, err := keyword.Parse(r.Keywords.String)
		if err != nil {
			errs = append(errs, fmt.Errorf("keywords: %w", err))
		}
		d.Processed = &domart.Processed{
			ArticleID:     id,
			ProcessedText: r.ProcessedContent.String,
			Keywords:      kws,
		}
	}

	d.WordCount = len(strings.Fields(d.Text(useProcessed)))
	return d, errors.Join(errs...)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("published_at %q: unrecognized timestamp", s)
}
