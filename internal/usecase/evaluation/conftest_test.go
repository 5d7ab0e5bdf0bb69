package evaluation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kailas-cloud/newsdex/internal/domain/article"
	"github.com/kailas-cloud/newsdex/internal/domain/keyword"
	"github.com/kailas-cloud/newsdex/internal/domain/record"
	"github.com/kailas-cloud/newsdex/internal/domain/search/request"
	"github.com/kailas-cloud/newsdex/internal/domain/search/result"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
)

type stubReader struct {
	docs []article.Document
	err  error
	got  article.Query
}

func (s *stubReader) Read(_ context.Context, q article.Query) ([]article.Document, error) {
	s.got = q
	return s.docs, s.err
}

var errSearch = errors.New("search backend down")

// stubSearcher returns a fixed ranking per variant and fails the prompts listed in failOn.
type stubSearcher struct {
	mu       sync.Mutex
	rankings map[variant.Variant][]string
	failOn   map[string]bool
	calls    []request.Request
}

func (s *stubSearcher) Search(_ context.Context, req request.Request) ([]result.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	if s.failOn[req.Prompt()] {
		return nil, errSearch
	}
	ids := s.rankings[req.Variant()]
	out := make([]result.Result, len(ids))
	for i, id := range ids {
		score := 1 - float64(i)*0.1
		out[i] = result.New(id, score, 0, record.Payload{}).WithCombined(score)
	}
	return out, nil
}

func doc(id string, section article.Section, day string, kws ...keyword.Keyword) article.Document {
	published, err := time.Parse(article.DateLayout, day)
	if err != nil {
		panic(err)
	}
	return article.Document{
		Article: article.Article{
			ID:          id,
			Newspaper:   "El Mundo",
			Section:     section,
			Title:       "Titular " + id,
			Body:        "cuerpo " + id,
			PublishedAt: published,
			WordCount:   600,
		},
		Processed: &article.Processed{
			ArticleID:     id,
			ProcessedText: "texto procesado " + id,
			Keywords:      kws,
		},
	}
}

func kw(term string, score float64) keyword.Keyword {
	return keyword.Keyword{Term: term, Score: score}
}

// economyCorpus has six dollar articles over two days plus two unrelated ones.
func economyCorpus() []article.Document {
	var docs []article.Document
	for i := range 6 {
		day := "2024-11-18"
		if i%2 == 1 {
			day = "2024-11-19"
		}
		docs = append(docs, doc(fmt.Sprintf("eco-%d", i), article.Economy, day,
			kw("Dólar", 0.5), kw("bolsa", 0.3), kw("bonos", 0.2), kw("ruido", 0.05)))
	}
	docs = append(docs,
		doc("eco-x", article.Economy, "2024-11-18", kw("pesca", 0.4)),
		doc("pol-0", article.Politics, "2024-11-18", kw("milei", 0.6), kw("congreso", 0.4)),
	)
	return docs
}
