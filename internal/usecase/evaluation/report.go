package evaluation

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	domeval "github.com/kailas-cloud/newsdex/internal/domain/evaluation"
)

var csvHeader = []string{
	"variant", "collection", "queries", "failed", "k",
	"mrr", "map", "precision_at_k", "recall_at_k", "ndcg", "mean_latency_ms", "qps",
}

// WriteCSV writes one comparison row per report.
func WriteCSV(w io.Writer, reports []Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range reports {
		m := r.Metrics
		row := []string{
			m.Variant, m.Collection,
			strconv.Itoa(m.Queries), strconv.Itoa(m.Failed), strconv.Itoa(m.K),
			formatFloat(m.MRR), formatFloat(m.MAP),
			formatFloat(m.Precision), formatFloat(m.Recall), formatFloat(m.NDCG),
			formatFloat(float64(m.MeanLatency.Microseconds()) / 1000),
			formatFloat(m.QPS),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", m.Variant, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

// WriteJSON writes the aggregate metrics of every report.
func WriteJSON(w io.Writer, reports []Report) error {
	rows := make([]domeval.Metrics, len(reports))
	for i, r := range reports {
		rows[i] = r.Metrics
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// TestSet is the on-disk form of generated queries.
type TestSet struct {
	Queries []domeval.TestQuery `json:"queries"`
	Summary domeval.Summary     `json:"summary"`
}

// WriteTestSet writes the queries with their composition summary.
func WriteTestSet(w io.Writer, queries []domeval.TestQuery) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(TestSet{Queries: queries, Summary: domeval.Summarize(queries)})
}

// ReadTestSet reads queries written by WriteTestSet.
func ReadTestSet(r io.Reader) ([]domeval.TestQuery, error) {
	var ts TestSet
	if err := json.NewDecoder(r).Decode(&ts); err != nil {
		return nil, fmt.Errorf("decode test set: %w", err)
	}
	return ts.Queries, nil
}
