package evaluation

import "time"

// Metrics is one comparison row: aggregate ranking quality of one variant.
type Metrics struct {
	Variant     string        `json:"variant"`
	Collection  string        `json:"collection"`
	Queries     int           `json:"queries"`
	Failed      int           `json:"failed"`
	K           int           `json:"k"`
	MRR         float64       `json:"mrr"`
	MAP         float64       `json:"map"`
	Precision   float64       `json:"precision_at_k"`
	Recall      float64       `json:"recall_at_k"`
	NDCG        float64       `json:"ndcg"`
	MeanLatency time.Duration `json:"mean_latency_ns"`
	QPS         float64       `json:"queries_per_second"`
}

// Aggregate averages per-query records. Failed queries count in Failed and
// are excluded from the quality means.
func Aggregate(records []Record, k int) Metrics {
	m := Metrics{Queries: len(records), K: k}
	var rr, ap, prec, rec, ndcg float64
	var latency time.Duration
	ok := 0
	for _, r := range records {
		latency += r.Latency
		if r.Err != nil {
			m.Failed++
			continue
		}
		ok++
		rr += ReciprocalRank(r.Ranks)
		ap += AveragePrecision(r.Ranks)
		prec += r.Precision()
		rec += r.Recall()
		ndcg += r.NDCG(k)
	}
	if ok > 0 {
		n := float64(ok)
		m.MRR = rr / n
		m.MAP = ap / n
		m.Precision = prec / n
		m.Recall = rec / n
		m.NDCG = ndcg / n
	}
	if len(records) > 0 {
		m.MeanLatency = latency / time.Duration(len(records))
	}
	if m.MeanLatency > 0 {
		m.QPS = float64(time.Second) / float64(m.MeanLatency)
	}
	return m
}
