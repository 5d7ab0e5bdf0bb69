// Package article reads the scraped news corpus the retrieval core indexes.
package article

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure Go driver registered as "sqlite"

	domart "github.com/kailas-cloud/newsdex/internal/domain/article"
)

// Schema creates the corpus tables when they do not exist yet.
// Matches the layout written by the ingestion pipeline.
const Schema = `
CREATE TABLE IF NOT EXISTS newspapers (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	url  TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS sections (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS articles (
	id           INTEGER PRIMARY KEY,
	title        TEXT NOT NULL,
	link         TEXT NOT NULL UNIQUE,
	content      TEXT NOT NULL,
	created_at   TEXT,
	published_at TEXT,
	newspaper_id INTEGER NOT NULL REFERENCES newspapers(id),
	section_id   INTEGER NOT NULL REFERENCES sections(id)
);
CREATE TABLE IF NOT EXISTS processed_articles (
	id                 INTEGER PRIMARY KEY,
	article_id         INTEGER NOT NULL UNIQUE REFERENCES articles(id),
	article_created_at TEXT,
	processed_title    TEXT NOT NULL DEFAULT '',
	processed_content  TEXT NOT NULL,
	processed_at       TEXT,
	keywords           TEXT NOT NULL DEFAULT ''
);`

const selectDocuments = `
SELECT a.id, a.title, a.link, a.content, a.published_at,
       n.name, s.name,
       p.processed_content, p.keywords
FROM articles a
JOIN newspapers n ON n.id = a.newspaper_id
JOIN sections s ON s.id = a.section_id
LEFT JOIN processed_articles p ON p.article_id = a.id`

// querier is the consumer interface over *sql.DB (ISP).
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Repo reads articles joined with their processed rows.
type Repo struct {
	db     querier
	logger *zap.Logger
}

// New creates an article repository over an open database.
func New(db querier, logger *zap.Logger) *Repo {
	return &Repo{db: db, logger: logger}
}

// OpenSQLite opens a SQLite corpus. ":memory:" gives an empty private database.
func OpenSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	// an in-memory database lives and dies with its connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragma: %w", err)
	}
	return db, nil
}

// Migrate creates the corpus schema.
func (r *Repo) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Read returns the documents selected by q ordered by article ID.
// Sections are pushed down to SQL, word bounds and dates are applied per row.
func (r *Repo) Read(ctx context.Context, q domart.Query) ([]domart.Document, error) {
	q = q.WithDefaults()

	query := selectDocuments
	var args []any
	if len(q.Sections) > 0 {
		marks := make([]string, len(q.Sections))
		for i, s := range q.Sections {
			marks[i] = "?"
			args = append(args, string(s))
		}
		query += " WHERE s.name IN (" + strings.Join(marks, ", ") + ")"
	}
	query += " ORDER BY a.id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []domart.Document
	for rows.Next() {
		var row documentRow
		if err := rows.Scan(
			&row.ID, &row.Title, &row.Link, &row.Content, &row.PublishedAt,
			&row.Newspaper, &row.Section,
			&row.ProcessedContent, &row.Keywords,
		); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}

		d, warn := row.toDocument(q.UseProcessed)
		if warn != nil {
			r.logger.Warn("article row partially decoded",
				zap.Int64("article_id", row.ID),
				zap.Error(warn),
			)
		}
		if !q.Matches(d) {
			continue
		}
		docs = append(docs, d)
		if q.Limit > 0 && len(docs) == q.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return docs, nil
}
