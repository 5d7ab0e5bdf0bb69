package article

import (
	"context"
	"sort"
	"strings"

	domart "github.com/kailas-cloud/newsdex/internal/domain/article"
)

// Memory is an in-process corpus for tests and fixtures.
type Memory struct {
	docs []domart.Document
}

// NewMemory stores the documents ordered by ID. Missing word counts are
// computed from the body.
func NewMemory(docs ...domart.Document) *Memory {
	m := &Memory{docs: make([]domart.Document, len(docs))}
	copy(m.docs, docs)
	for i := range m.docs {
		if m.docs[i].WordCount == 0 {
			m.docs[i].WordCount = len(strings.Fields(m.docs[i].Body))
		}
	}
	sort.SliceStable(m.docs, func(i, j int) bool { return m.docs[i].ID < m.docs[j].ID })
	return m
}

// Read applies q to the stored documents.
func (m *Memory) Read(ctx context.Context, q domart.Query) ([]domart.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []domart.Document
	for _, d := range m.docs {
		if !q.Matches(d) {
			continue
		}
		out = append(out, d)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}
