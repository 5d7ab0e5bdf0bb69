package mode

// Mode is the search strategy implied by the query components.
type Mode string

// Search mode constants.
const (
	// Hybrid combines semantic and keyword search.
	Hybrid   Mode = "hybrid"
	Semantic Mode = "semantic"
	Keyword  Mode = "keyword"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Hybrid || m == Semantic || m == Keyword
}

// Of derives the mode from the components a query carries.
// Returns "" when the query has neither.
func Of(hasPrompt, hasKeywords bool) Mode {
	switch {
	case hasPrompt && hasKeywords:
		return Hybrid
	case hasPrompt:
		return Semantic
	case hasKeywords:
		return Keyword
	}
	return ""
}

// Match controls how query keywords are matched against article keywords.
type Match string

// Keyword match modes.
const (
	// MatchAny admits articles holding at least one query keyword.
	MatchAny Match = "any"
	// MatchAll admits articles holding every query keyword.
	MatchAll Match = "all"
)

// IsValid checks if the match mode is one of the supported values.
func (m Match) IsValid() bool {
	return m == MatchAny || m == MatchAll
}

// Sort is the ranking key.
type Sort string

// Ranking keys.
const (
	SortSemantic Sort = "semantic_score"
	SortKeyword  Sort = "keyword_score"
	// SortCombined ranks by the fused score with keyword score as tie-break.
	SortCombined Sort = "combined"
)

// IsValid checks if the sort key is one of the supported values.
func (s Sort) IsValid() bool {
	return s == SortSemantic || s == SortKeyword || s == SortCombined
}
