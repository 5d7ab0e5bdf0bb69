package evaluation

import "github.com/kailas-cloud/newsdex/internal/domain/search/mode"

// Summary describes the composition of a generated test set.
type Summary struct {
	TotalQueries int            `json:"total_queries"`
	BySection    map[string]int `json:"by_section"`
	QueryTypes   QueryTypes     `json:"query_types"`
	WithDate     int            `json:"with_date"`
	WithSection  int            `json:"with_section"`
	CrossSection int            `json:"cross_section"`
	Categories   Categories     `json:"query_categories"`
}

// QueryTypes counts queries by the components they carry.
type QueryTypes struct {
	SemanticOnly int `json:"semantic_only"`
	KeywordOnly  int `json:"keyword_only"`
	Combined     int `json:"combined"`
}

// Categories counts queries by the structural filters they apply.
type Categories struct {
	DateAndSection int `json:"date_and_section"`
	DateOnly       int `json:"date_only"`
	SectionOnly    int `json:"section_only"`
	NoFilters      int `json:"no_filters"`
}

// Summarize counts a test set by section, query type and filters.
func Summarize(queries []TestQuery) Summary {
	s := Summary{TotalQueries: len(queries), BySection: make(map[string]int)}
	for _, q := range queries {
		switch q.Mode() {
		case mode.Semantic:
			s.QueryTypes.SemanticOnly++
		case mode.Keyword:
			s.QueryTypes.KeywordOnly++
		case mode.Hybrid:
			s.QueryTypes.Combined++
		}

		if q.Section != "" {
			s.BySection[q.Section]++
			s.WithSection++
		} else {
			s.CrossSection++
		}
		if q.Date != "" {
			s.WithDate++
		}

		switch {
		case q.Date != "" && q.Section != "":
			s.Categories.DateAndSection++
		case q.Date != "":
			s.Categories.DateOnly++
		case q.Section != "":
			s.Categories.SectionOnly++
		default:
			s.Categories.NoFilters++
		}
	}
	return s
}
