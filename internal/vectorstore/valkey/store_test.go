package valkey

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/newsdex/internal/db"
	"github.com/kailas-cloud/newsdex/internal/domain"
	"github.com/kailas-cloud/newsdex/internal/domain/keyword"
	"github.com/kailas-cloud/newsdex/internal/domain/record"
	"github.com/kailas-cloud/newsdex/internal/domain/search/filter"
	"github.com/kailas-cloud/newsdex/internal/vectorstore"
)

func testRecord(id, date string, vec ...float32) record.Record {
	return record.Record{
		ID:     id,
		Vector: vec,
		Payload: record.Payload{
			OriginalID:  id,
			Title:       "Titular " + id,
			Section:     "Economía",
			PublishedAt: date,
			Newspaper:   "El País",
			Keywords:    keyword.List{{Term: "Inflación", Score: 0.5}, {Term: "BCE", Score: 0.25}},
		},
	}
}

func entryFor(r record.Record, score float64) db.SearchEntry {
	return db.SearchEntry{Key: testPrefix + "news_tfidf:" + r.ID, Score: score, Fields: r.Payload.Fields()}
}

// --- EnsureCollection ---

func TestEnsureCollection_CreatesMetaAndIndex(t *testing.T) {
	var hsetKey string
	var def *db.IndexDefinition
	ms := &mockStore{
		hsetFn: func(_ context.Context, key string, fields map[string]string) error {
			hsetKey = key
			if fields["vector_dim"] != "384" {
				t.Errorf("expected vector_dim=384, got %q", fields["vector_dim"])
			}
			return nil
		},
		createIndexFn: func(_ context.Context, d *db.IndexDefinition) error {
			def = d
			return nil
		},
	}
	if err := New(ms, testPrefix).EnsureCollection(context.Background(), "news_tfidf", 384); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hsetKey != "newsdex:collection:news_tfidf" {
		t.Errorf("unexpected meta key: %s", hsetKey)
	}
	if def == nil {
		t.Fatal("expected FT.CREATE")
	}
	if def.Name != "newsdex:news_tfidf:idx" {
		t.Errorf("unexpected index name: %s", def.Name)
	}
	if len(def.Prefixes) != 1 || def.Prefixes[0] != "newsdex:news_tfidf:" {
		t.Errorf("unexpected prefixes: %v", def.Prefixes)
	}

	if def.Vector.Alias != "vector" || def.Vector.Dim != 384 || def.Vector.Field != db.VectorField {
		t.Errorf("unexpected vector: %+v", def.Vector)
	}
	var sawKeywords bool
	for _, tag := range def.Tags {
		if tag.Name == record.FieldKeywords {
			sawKeywords = true
			if tag.Separator != db.TagSeparator {
				t.Errorf("keywords separator = %q", tag.Separator)
			}
		}
	}
	if !sawKeywords {
		t.Errorf("keywords tag missing: %+v", def.Tags)
	}
}

func TestEnsureCollection_RollbackOnIndexFailure(t *testing.T) {
	indexErr := errors.New("ft.create failed")
	var deleted string
	ms := &mockStore{
		createIndexFn: func(context.Context, *db.IndexDefinition) error { return indexErr },
		delFn: func(_ context.Context, key string) error {
			deleted = key
			return nil
		},
	}
	err := New(ms, testPrefix).EnsureCollection(context.Background(), "news_tfidf", 384)
	if !errors.Is(err, indexErr) {
		t.Fatalf("expected index error, got %v", err)
	}
	if deleted != "newsdex:collection:news_tfidf" {
		t.Errorf("expected rollback DEL of meta, got %q", deleted)
	}
}

func TestEnsureCollection_ExistingSameDimension(t *testing.T) {
	ms := &mockStore{
		hgetAllFn: metaFor("news_tfidf", 384),
		hsetFn: func(context.Context, string, map[string]string) error {
			t.Error("existing collection must not be rewritten")
			return nil
		},
		createIndexFn: func(context.Context, *db.IndexDefinition) error {
			t.Error("existing index must not be recreated")
			return nil
		},
	}
	if err := New(ms, testPrefix).EnsureCollection(context.Background(), "news_tfidf", 384); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureCollection_ExistingOtherDimension(t *testing.T) {
	ms := &mockStore{hgetAllFn: metaFor("news_tfidf", 384)}
	err := New(ms, testPrefix).EnsureCollection(context.Background(), "news_tfidf", 768)
	var dm *domain.DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
	if dm.Expected != 384 || dm.Got != 768 {
		t.Errorf("unexpected mismatch: %+v", dm)
	}
}

func TestEnsureCollection_RecreatesMissingIndex(t *testing.T) {
	created := false
	ms := &mockStore{
		hgetAllFn:     metaFor("news_tfidf", 384),
		indexExistsFn: func(context.Context, string) (bool, error) { return false, nil },
		createIndexFn: func(context.Context, *db.IndexDefinition) error {
			created = true
			return nil
		},
	}
	if err := New(ms, testPrefix).EnsureCollection(context.Background(), "news_tfidf", 384); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected missing index to be recreated")
	}
}

func TestEnsureCollection_InvalidName(t *testing.T) {
	err := New(&mockStore{}, testPrefix).EnsureCollection(context.Background(), "news tfidf", 384)
	if err == nil {
		t.Fatal("expected error")
	}
}

// --- Upsert ---

func TestUpsert_WritesHashes(t *testing.T) {
	var items []db.HashSetItem
	ms := &mockStore{
		hgetAllFn: metaFor("news_tfidf", 2),
		hsetMultiFn: func(_ context.Context, in []db.HashSetItem) error {
			items = in
			return nil
		},
	}
	r := testRecord("a1", "2024-11-18", 0.6, 0.8)
	if err := New(ms, testPrefix).Upsert(context.Background(), "news_tfidf", []record.Record{r}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Key != "newsdex:news_tfidf:a1" {
		t.Errorf("unexpected key: %s", items[0].Key)
	}
	f := items[0].Fields
	if f[record.FieldKeywords] != "inflacion|bce" {
		t.Errorf("unexpected keywords tag: %q", f[record.FieldKeywords])
	}
	if f[record.FieldKeywordsText] != "(Inflación,0.500),(BCE,0.250)" {
		t.Errorf("unexpected keywords text: %q", f[record.FieldKeywordsText])
	}
	if got := db.BytesToVector(f[db.VectorField]); len(got) != 2 || got[1] != 0.8 {
		t.Errorf("unexpected vector: %v", got)
	}
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	ms := &mockStore{
		hgetAllFn: metaFor("news_tfidf", 2),
		hsetMultiFn: func(context.Context, []db.HashSetItem) error {
			t.Error("no write expected")
			return nil
		},
	}
	err := New(ms, testPrefix).Upsert(context.Background(), "news_tfidf",
		[]record.Record{testRecord("a1", "2024-11-18", 1, 2, 3)})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestUpsert_UnknownCollection(t *testing.T) {
	err := New(&mockStore{}, testPrefix).Upsert(context.Background(), "news_dpr", nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsert_CachesDimension(t *testing.T) {
	calls := 0
	lookup := metaFor("news_tfidf", 2)
	ms := &mockStore{
		hgetAllFn: func(ctx context.Context, key string) (map[string]string, error) {
			calls++
			return lookup(ctx, key)
		},
	}
	s := New(ms, testPrefix)
	for range 3 {
		if err := s.Upsert(context.Background(), "news_tfidf", []record.Record{testRecord("a", "2024-11-18", 1, 0)}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("expected metadata read once, got %d", calls)
	}
}

// --- Search ---

func TestSearch_BuildsKNNAndMapsHits(t *testing.T) {
	older := testRecord("old", "2024-11-10", 1, 0)
	newer := testRecord("new", "2024-11-18", 1, 0)
	cond, _ := filter.NewMatch(record.FieldSection, "Economía")
	expr, _ := filter.NewExpression([]filter.Condition{cond}, nil, nil)

	var got *db.KNNQuery
	ms := &mockStore{
		hgetAllFn: metaFor("news_tfidf", 2),
		searchKNNFn: func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
			got = q
			return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{entryFor(older, 0.9), entryFor(newer, 0.9)}}, nil
		},
	}
	hits, err := New(ms, testPrefix).Search(context.Background(), vectorstore.SearchQuery{
		Collection: "news_tfidf", Vector: []float32{1, 0}, TopK: 5, Filters: expr,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IndexName != "newsdex:news_tfidf:idx" || got.K != 5 || len(got.Filters.Must()) != 1 {
		t.Errorf("unexpected KNN query: %+v", got)
	}
	if len(hits) != 2 || hits[0].ID != "new" || hits[1].ID != "old" {
		t.Fatalf("expected tie broken by newer date, got %+v", hits)
	}
	if hits[0].Payload.Title != "Titular new" || len(hits[0].Payload.Keywords) != 2 {
		t.Errorf("payload not decoded: %+v", hits[0].Payload)
	}
}

func TestSearch_MissingIndexIsNotFound(t *testing.T) {
	ms := &mockStore{
		hgetAllFn: metaFor("news_tfidf", 2),
		searchKNNFn: func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
			return nil, db.ErrIndexNotFound
		},
	}
	_, err := New(ms, testPrefix).Search(context.Background(), vectorstore.SearchQuery{
		Collection: "news_tfidf", Vector: []float32{1, 0}, TopK: 5,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	ms := &mockStore{hgetAllFn: metaFor("news_tfidf", 2)}
	_, err := New(ms, testPrefix).Search(context.Background(), vectorstore.SearchQuery{
		Collection: "news_tfidf", Vector: []float32{1}, TopK: 5,
	})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

// --- Scan ---

func TestScan_PassesPrefixAndSortsByID(t *testing.T) {
	var got *db.FilterQuery
	ms := &mockStore{
		hgetAllFn: metaFor("news_tfidf", 2),
		searchFilterFn: func(_ context.Context, q *db.FilterQuery) (*db.SearchResult, error) {
			got = q
			return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
				entryFor(testRecord("b", "2024-11-18"), 0),
				entryFor(testRecord("a", "2024-11-18"), 0),
			}}, nil
		},
	}
	hits, err := New(ms, testPrefix).Scan(context.Background(), vectorstore.ScanQuery{Collection: "news_tfidf", Limit: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.KeyPrefix != "newsdex:news_tfidf:" || got.Limit != 50 {
		t.Errorf("unexpected filter query: %+v", got)
	}
	if len(hits) != 2 || hits[0].ID != "a" {
		t.Errorf("expected hits sorted by id, got %+v", hits)
	}
}

// --- Get ---

func TestGet_DecodesVector(t *testing.T) {
	r := testRecord("a1", "2024-11-18", 0.6, 0.8)
	lookup := metaFor("news_tfidf", 2)
	ms := &mockStore{
		hgetAllFn: func(ctx context.Context, key string) (map[string]string, error) {
			if key == "newsdex:news_tfidf:a1" {
				return recordToHash(r), nil
			}
			return lookup(ctx, key)
		},
	}
	got, err := New(ms, testPrefix).Get(context.Background(), "news_tfidf", "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "a1" || len(got.Vector) != 2 || got.Vector[0] != 0.6 {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.Payload.Section != "Economía" {
		t.Errorf("unexpected payload: %+v", got.Payload)
	}

	if _, err := New(ms, testPrefix).Get(context.Background(), "news_tfidf", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// --- CollectionInfo / List ---

func TestCollectionInfo_CountsRecords(t *testing.T) {
	ms := &mockStore{
		hgetAllFn: metaFor("news_bm25", 384),
		scanFn: func(_ context.Context, pattern string) ([]string, error) {
			if pattern != "newsdex:news_bm25:*" {
				t.Errorf("unexpected pattern: %s", pattern)
			}
			return []string{"newsdex:news_bm25:1", "newsdex:news_bm25:2"}, nil
		},
	}
	info, err := New(ms, testPrefix).CollectionInfo(context.Background(), "news_bm25")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Count != 2 || info.Dimension != 384 || info.Variant != "bm25" {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestListCollections_SortedByCreation(t *testing.T) {
	ms := &mockStore{
		scanFn: func(context.Context, string) ([]string, error) {
			return []string{"k1", "k2", "k3"}, nil
		},
		hgetAllMultiFn: func(context.Context, []string) ([]map[string]string, error) {
			return []map[string]string{
				metaToHash(meta{Name: "news_sbert", Dimension: 768, CreatedAt: 20}),
				{},
				metaToHash(meta{Name: "news_tfidf", Dimension: 384, CreatedAt: 10}),
			}, nil
		},
	}
	names, err := New(ms, testPrefix).ListCollections(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(names, ",") != "news_tfidf,news_sbert" {
		t.Errorf("unexpected names: %v", names)
	}
}

// --- DeleteCollection ---

func TestDeleteCollection_DropsIndexAndRecords(t *testing.T) {
	var dropped string
	var deletedKeys []string
	ms := &mockStore{
		hgetAllFn: metaFor("news_tfidf", 2),
		dropIndexFn: func(_ context.Context, name string) error {
			dropped = name
			return nil
		},
		scanFn: func(context.Context, string) ([]string, error) {
			return []string{"newsdex:news_tfidf:a", "newsdex:news_tfidf:b"}, nil
		},
		delMultiFn: func(_ context.Context, keys []string) error {
			deletedKeys = keys
			return nil
		},
	}
	if err := New(ms, testPrefix).DeleteCollection(context.Background(), "news_tfidf"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dropped != "newsdex:news_tfidf:idx" {
		t.Errorf("unexpected dropped index: %s", dropped)
	}
	if len(deletedKeys) != 2 {
		t.Errorf("expected record hashes deleted, got %v", deletedKeys)
	}
}

func TestDeleteCollection_RollbackOnDropFailure(t *testing.T) {
	dropErr := errors.New("dropindex failed")
	var restored string
	ms := &mockStore{
		hgetAllFn:   metaFor("news_tfidf", 2),
		dropIndexFn: func(context.Context, string) error { return dropErr },
		hsetFn: func(_ context.Context, key string, _ map[string]string) error {
			restored = key
			return nil
		},
		delMultiFn: func(context.Context, []string) error {
			t.Error("records must survive a failed drop")
			return nil
		},
	}
	err := New(ms, testPrefix).DeleteCollection(context.Background(), "news_tfidf")
	if !errors.Is(err, dropErr) {
		t.Fatalf("expected drop error, got %v", err)
	}
	if restored != "newsdex:collection:news_tfidf" {
		t.Errorf("expected metadata restored, got %q", restored)
	}
}

func TestDeleteCollection_NotFound(t *testing.T) {
	err := New(&mockStore{}, testPrefix).DeleteCollection(context.Background(), "news_tfidf")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClose_ClosesClient(t *testing.T) {
	ms := &mockStore{}
	if err := New(ms, testPrefix).Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ms.closed {
		t.Error("expected client closed")
	}
}
