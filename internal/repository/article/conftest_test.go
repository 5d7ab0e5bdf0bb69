package article

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// words returns a body of n words.
func words(n int) string {
	return strings.TrimSpace(strings.Repeat("palabra ", n))
}

func newTestRepo(t *testing.T) (*Repo, *sql.DB) {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	r := New(db, zap.NewNop())
	if err := r.Migrate(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	exec(t, db, `INSERT INTO newspapers (id, name) VALUES (1, 'El País'), (2, 'El Mundo')`)
	exec(t, db, `INSERT INTO sections (id, name) VALUES (1, 'Economía'), (2, 'Política')`)
	return r, db
}

func exec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func insertArticle(t *testing.T, db *sql.DB, id, newspaper, section int, published, content string) {
	t.Helper()
	exec(t, db,
		`INSERT INTO articles (id, title, link, content, published_at, newspaper_id, section_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, "Titular", "https://example.es/"+strings.Repeat("a", id), content, published, newspaper, section,
	)
}

func insertProcessed(t *testing.T, db *sql.DB, articleID int, content, keywords string) {
	t.Helper()
	exec(t, db,
		`INSERT INTO processed_articles (article_id, processed_content, keywords) VALUES (?, ?, ?)`,
		articleID, content, keywords,
	)
}
