package evaluation

import (
	"context"

	"github.com/kailas-cloud/newsdex/internal/domain/article"
	"github.com/kailas-cloud/newsdex/internal/domain/search/request"
	"github.com/kailas-cloud/newsdex/internal/domain/search/result"
)

// ArticleReader reads the processed corpus the test set is generated from.
type ArticleReader interface {
	Read(ctx context.Context, q article.Query) ([]article.Document, error)
}

// Searcher runs one query through the search engine.
type Searcher interface {
	Search(ctx context.Context, req request.Request) ([]result.Result, error)
}
