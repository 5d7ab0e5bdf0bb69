package evaluation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsdex/internal/domain/article"
	domeval "github.com/kailas-cloud/newsdex/internal/domain/evaluation"
	"github.com/kailas-cloud/newsdex/internal/domain/keyword"
)

// Test set generation defaults.
const (
	DefaultQueriesPerSection = 5
	DefaultMinKeywordScore   = 0.1
	// seedKeywords is how many top keywords of a seed article form a query.
	seedKeywords = 3
	// topicMinArticles is how many articles must carry a topic keyword for it to be used.
	topicMinArticles = 5
)

// GenerateOptions controls test set generation.
type GenerateOptions struct {
	QueriesPerSection   int
	MinKeywordScore     float64
	IncludeCrossSection bool
	// Query narrows the corpus. UseProcessed is always set.
	Query article.Query
}

func (o *GenerateOptions) applyDefaults() {
	if o.QueriesPerSection <= 0 {
		o.QueriesPerSection = DefaultQueriesPerSection
	}
	if o.MinKeywordScore <= 0 {
		o.MinKeywordScore = DefaultMinKeywordScore
	}
	o.Query.UseProcessed = true
}

// Generator builds labeled test queries from the processed corpus.
type Generator struct {
	articles ArticleReader
	seed     uint64
	logger   *zap.Logger
}

// NewGenerator creates a generator. The same seed over the same corpus
// yields the same test set.
func NewGenerator(articles ArticleReader, seed uint64, logger *zap.Logger) *Generator {
	return &Generator{articles: articles, seed: seed, logger: logger}
}

type builder struct {
	rng      *rand.Rand
	minScore float64
	queries  []domeval.TestQuery
}

func (b *builder) add(q domeval.TestQuery) {
	if len(q.ExpectedArticleIDs) == 0 {
		return
	}
	q.ID = fmt.Sprintf("q%04d", len(b.queries)+1)
	q.MinKeywordScore = b.minScore
	b.queries = append(b.queries, q)
}

// GenerateTestSet samples seed articles per section and expands the topic
// templates whose keywords occur in the corpus.
func (g *Generator) GenerateTestSet(ctx context.Context, opts GenerateOptions) ([]domeval.TestQuery, error) {
	opts.applyDefaults()

	docs, err := g.articles.Read(ctx, opts.Query)
	if err != nil {
		return nil, fmt.Errorf("read articles: %w", err)
	}
	bySection := make(map[article.Section][]article.Document)
	for _, d := range docs {
		bySection[d.Section] = append(bySection[d.Section], d)
	}

	b := &builder{rng: rand.New(rand.NewPCG(g.seed, g.seed)), minScore: opts.MinKeywordScore}
	for _, section := range article.Sections() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pool := bySection[section]
		if len(pool) == 0 {
			continue
		}
		g.seedQueries(b, section, pool, opts.QueriesPerSection)
		topics := sample(b.rng, sectionTopics[section], opts.QueriesPerSection)
		for _, t := range topics {
			g.topicQueries(b, t, string(section), pool, docs)
		}
	}
	if opts.IncludeCrossSection {
		for _, t := range crossSectionTopics {
			g.topicQueries(b, t, "", docs, docs)
		}
	}

	g.logger.Info("Test set generated",
		zap.Int("articles", len(docs)),
		zap.Int("queries", len(b.queries)),
	)
	return b.queries, nil
}

// seedQueries builds prompt+keywords, keyword-only and prompt-only queries
// from the top keywords and title of sampled articles.
func (g *Generator) seedQueries(b *builder, section article.Section, pool []article.Document, n int) {
	for _, seed := range sample(b.rng, pool, n) {
		kws := seed.Keywords().Top(seedKeywords, b.minScore)
		if len(kws) == 0 {
			continue
		}
		terms := kws.Terms()
		expected := expectedIDs(pool, terms, b.minScore, "")
		date := seed.PublishedAt.Format(article.DateLayout)

		b.add(domeval.TestQuery{
			Prompt:             seed.Title,
			Keywords:           terms,
			Date:               date,
			Section:            string(section),
			ExpectedArticleIDs: expectedIDs(pool, terms, b.minScore, date),
		})
		b.add(domeval.TestQuery{
			Keywords:           terms,
			Section:            string(section),
			ExpectedArticleIDs: expected,
		})
		b.add(domeval.TestQuery{
			Prompt:             seed.Title,
			Section:            string(section),
			ExpectedArticleIDs: expected,
		})
	}
}

// topicQueries expands a topic into prompt variations. Keywords that are rare
// or weak in the corpus are dropped first.
func (g *Generator) topicQueries(b *builder, t Topic, section string, pool, corpus []article.Document) {
	terms := corpusKeywords(corpus, t.Keywords, b.minScore)
	if len(terms) == 0 {
		g.logger.Debug("Topic skipped, keywords absent from corpus", zap.String("topic", t.Name))
		return
	}
	expected := expectedIDs(pool, terms, b.minScore, "")
	if len(expected) == 0 {
		return
	}
	dates := datesOf(pool, expected)

	for _, prompt := range promptVariations(t.Name) {
		date := dates[b.rng.IntN(len(dates))]
		b.add(domeval.TestQuery{
			Prompt:             prompt,
			Keywords:           terms,
			Date:               date,
			Section:            section,
			Topic:              t.Name,
			ExpectedArticleIDs: expectedIDs(pool, terms, b.minScore, date),
		})
		b.add(domeval.TestQuery{
			Keywords:           terms,
			Section:            section,
			Topic:              t.Name,
			ExpectedArticleIDs: expected,
		})
	}
}

// corpusKeywords keeps the terms carried by enough articles whose mean score
// reaches minScore. Terms come back normalized.
func corpusKeywords(corpus []article.Document, terms []string, minScore float64) []string {
	var out []string
	for _, term := range terms {
		var sum float64
		n := 0
		for _, d := range corpus {
			if s, ok := d.Keywords().Lookup(term); ok {
				sum += s
				n++
			}
		}
		if n >= topicMinArticles && sum/float64(n) >= minScore {
			out = append(out, keyword.Normalize(term))
		}
	}
	return out
}

// expectedIDs lists, in ID order, the articles sharing at least one term at
// or above minScore, restricted to a publication day when date is set.
func expectedIDs(pool []article.Document, terms []string, minScore float64, date string) []string {
	var ids []string
	for _, d := range pool {
		if date != "" && d.PublishedAt.Format(article.DateLayout) != date {
			continue
		}
		for _, term := range terms {
			if s, ok := d.Keywords().Lookup(term); ok && s >= minScore {
				ids = append(ids, d.ID)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids
}

func datesOf(pool []article.Document, ids []string) []string {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	seen := make(map[string]struct{})
	var dates []string
	for _, d := range pool {
		if _, ok := want[d.ID]; !ok {
			continue
		}
		day := d.PublishedAt.Format(article.DateLayout)
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		dates = append(dates, day)
	}
	sort.Strings(dates)
	return dates
}

// sample picks up to n items without replacement.
func sample[T any](rng *rand.Rand, items []T, n int) []T {
	if n >= len(items) {
		out := make([]T, len(items))
		copy(out, items)
		return out
	}
	out := make([]T, 0, n)
	for _, i := range rng.Perm(len(items))[:n] {
		out = append(out, items[i])
	}
	return out
}
