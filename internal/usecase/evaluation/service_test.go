package evaluation

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"math"
	"strings"
	"testing"

	"go.uber.org/zap"

	domeval "github.com/kailas-cloud/newsdex/internal/domain/evaluation"
	"github.com/kailas-cloud/newsdex/internal/domain/variant"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func testQueries() []domeval.TestQuery {
	return []domeval.TestQuery{
		{ID: "q0001", Prompt: "inflación en argentina", ExpectedArticleIDs: []string{"a", "b"}},
	}
}

func TestEvaluate_Metrics(t *testing.T) {
	s := &stubSearcher{rankings: map[variant.Variant][]string{
		variant.TFIDF: {"a", "x", "b", "y", "z"},
	}}
	report, err := New(s, zap.NewNop()).WithK(5).Evaluate(context.Background(), variant.TFIDF, testQueries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := report.Metrics
	if m.Variant != "tfidf" || m.Collection != "news_tfidf" {
		t.Errorf("unexpected identity: %s %s", m.Variant, m.Collection)
	}
	if !near(m.MRR, 1) {
		t.Errorf("expected MRR 1, got %f", m.MRR)
	}
	if !near(m.MAP, (1.0+2.0/3.0)/2) {
		t.Errorf("expected MAP %f, got %f", (1.0+2.0/3.0)/2, m.MAP)
	}
	if m.Queries != 1 || m.Failed != 0 || m.K != 5 {
		t.Errorf("unexpected counts: %+v", m)
	}
	if len(report.Records) != 1 || report.Records[0].QueryID != "q0001" {
		t.Errorf("unexpected records: %+v", report.Records)
	}
	if got := s.calls[0].Limit(); got != 5 {
		t.Errorf("expected limit 5 passed to search, got %d", got)
	}
}

func TestEvaluate_FailedQueryCounted(t *testing.T) {
	s := &stubSearcher{
		rankings: map[variant.Variant][]string{variant.BM25: {"a"}},
		failOn:   map[string]bool{"roto": true},
	}
	queries := append(testQueries(), domeval.TestQuery{ID: "q0002", Prompt: "roto", ExpectedArticleIDs: []string{"a"}})
	report, err := New(s, zap.NewNop()).Evaluate(context.Background(), variant.BM25, queries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Metrics.Queries != 2 || report.Metrics.Failed != 1 {
		t.Errorf("expected 2 queries with 1 failure, got %+v", report.Metrics)
	}
	if !errors.Is(report.Records[1].Err, errSearch) {
		t.Errorf("expected search error recorded, got %v", report.Records[1].Err)
	}
	if !near(report.Metrics.MRR, 1) {
		t.Errorf("failed query should not drag MRR, got %f", report.Metrics.MRR)
	}
}

func TestEvaluate_InvalidQueryRecorded(t *testing.T) {
	s := &stubSearcher{}
	queries := []domeval.TestQuery{{ID: "q0001", ExpectedArticleIDs: []string{"a"}}}
	report, err := New(s, zap.NewNop()).Evaluate(context.Background(), variant.SBERT, queries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Metrics.Failed != 1 || len(s.calls) != 0 {
		t.Errorf("empty query should fail without searching: %+v, calls %d", report.Metrics, len(s.calls))
	}
}

func TestEvaluate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(&stubSearcher{}, zap.NewNop()).Evaluate(ctx, variant.DPR, testQueries())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCompare_PreservesOrder(t *testing.T) {
	s := &stubSearcher{rankings: map[variant.Variant][]string{
		variant.TFIDF:  {"x", "a"},
		variant.MiniLM: {"a", "b"},
		variant.SBERT:  {"x", "y", "z"},
	}}
	variants := []variant.Variant{variant.MiniLM, variant.TFIDF, variant.SBERT}
	reports, err := New(s, zap.NewNop()).WithConcurrency(3).Compare(context.Background(), variants, testQueries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(reports))
	}
	for i, v := range variants {
		if reports[i].Metrics.Variant != string(v) {
			t.Errorf("row %d: expected %s, got %s", i, v, reports[i].Metrics.Variant)
		}
	}
	if !near(reports[0].Metrics.MRR, 1) || !near(reports[1].Metrics.MRR, 0.5) || reports[2].Metrics.MRR != 0 {
		t.Errorf("unexpected MRRs: %f %f %f",
			reports[0].Metrics.MRR, reports[1].Metrics.MRR, reports[2].Metrics.MRR)
	}
}

func TestWriteCSV(t *testing.T) {
	reports := []Report{
		{Metrics: domeval.Metrics{Variant: "bm25", Collection: "news_bm25", Queries: 3, K: 10, MRR: 0.5}},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, reports); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 || rows[0][0] != "variant" || rows[1][0] != "bm25" || rows[1][5] != "0.5000" {
		t.Errorf("unexpected csv: %v", rows)
	}
}

func TestTestSet_RoundTrip(t *testing.T) {
	queries := []domeval.TestQuery{
		{ID: "q0001", Prompt: "inflación", Section: "Economía", MinKeywordScore: 0.1, ExpectedArticleIDs: []string{"a"}},
		{ID: "q0002", Keywords: []string{"milei"}, ExpectedArticleIDs: []string{"b"}},
	}
	var buf bytes.Buffer
	if err := WriteTestSet(&buf, queries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), `"summary"`) {
		t.Error("expected summary in test set file")
	}
	got, err := ReadTestSet(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Section != "Economía" || got[1].Keywords[0] != "milei" {
		t.Errorf("unexpected queries: %+v", got)
	}
}
