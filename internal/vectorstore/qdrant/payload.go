package qdrant

import (
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/newsdex/internal/domain/keyword"
	"github.com/kailas-cloud/newsdex/internal/domain/record"
)

// fieldKeywordScores holds the scores aligned with the keywords list.
const fieldKeywordScores = "keyword_scores"

// pointNamespace seeds the deterministic point IDs derived from article IDs.
var pointNamespace = uuid.MustParse("6f1c3d1e-6a52-4b8e-9d1f-0c5a7e2b9f40")

// PointID maps an article ID to its UUIDv5 point ID.
func PointID(articleID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(articleID)).String()
}

func toPoint(r record.Record) *qdrant.PointStruct {
	return &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(PointID(r.ID)),
		Vectors: qdrant.NewVectors(r.Vector...),
		Payload: toPayload(r.ID, r.Payload),
	}
}

// toPayload stores keyword terms and scores as parallel lists so that
// MatchKeyword on "keywords" tests list membership.
func toPayload(id string, p record.Payload) map[string]*qdrant.Value {
	terms := p.Keywords.Terms()
	termValues := make([]*qdrant.Value, len(terms))
	scoreValues := make([]*qdrant.Value, len(p.Keywords))
	for i := range p.Keywords {
		termValues[i] = qdrant.NewValueString(terms[i])
		scoreValues[i] = qdrant.NewValueDouble(p.Keywords[i].Score)
	}

	originalID := p.OriginalID
	if originalID == "" {
		originalID = id
	}
	return map[string]*qdrant.Value{
		record.FieldOriginalID:   qdrant.NewValueString(originalID),
		record.FieldTitle:        qdrant.NewValueString(p.Title),
		record.FieldSection:      qdrant.NewValueString(p.Section),
		record.FieldPublishedAt:  qdrant.NewValueString(p.PublishedAt),
		record.FieldNewspaper:    qdrant.NewValueString(p.Newspaper),
		record.FieldURL:          qdrant.NewValueString(p.URL),
		record.FieldKeywords:     qdrant.NewValueFromList(termValues...),
		fieldKeywordScores:       qdrant.NewValueFromList(scoreValues...),
		record.FieldKeywordsText: qdrant.NewValueString(keyword.Format(p.Keywords)),
	}
}

// fromPayload prefers the literal keyword text, which keeps the original
// spelling of each term, and falls back to the parallel lists.
func fromPayload(m map[string]*qdrant.Value) (string, record.Payload, error) {
	str := func(k string) string { return m[k].GetStringValue() }

	p := record.Payload{
		OriginalID:  str(record.FieldOriginalID),
		Title:       str(record.FieldTitle),
		Section:     str(record.FieldSection),
		PublishedAt: str(record.FieldPublishedAt),
		Newspaper:   str(record.FieldNewspaper),
		URL:         str(record.FieldURL),
	}

	if text := str(record.FieldKeywordsText); text != "" {
		kws, err := keyword.Parse(text)
		if err != nil {
			return "", record.Payload{}, err
		}
		p.Keywords = kws
		return p.OriginalID, p, nil
	}

	terms := m[record.FieldKeywords].GetListValue().GetValues()
	scores := m[fieldKeywordScores].GetListValue().GetValues()
	for i, t := range terms {
		var s float64
		if i < len(scores) {
			s = scores[i].GetDoubleValue()
		}
		p.Keywords = append(p.Keywords, keyword.Keyword{Term: t.GetStringValue(), Score: s})
	}
	return p.OriginalID, p, nil
}

func vectorOf(v *qdrant.VectorsOutput) []float32 {
	out := v.GetVector()
	if dense := out.GetDense(); dense != nil {
		return dense.GetData()
	}
	return out.GetData() //nolint:staticcheck // servers before 1.16 only fill the flat field
}
