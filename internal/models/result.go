package models

// Recommendations is the response for one profile after the score threshold is applied.
// Empty reports the "no recommendations available" state.
type Recommendations struct {
	Profile   *QueryProfile   `json:"profile"`
	Results   []*ScoredRecord `json:"results"`
	Total     int             `json:"total"`
	Empty     bool            `json:"empty"`
	MinScore  float64         `json:"min_score"`
	Weights   FusionWeights   `json:"weights"`
	QueryTime int64           `json:"query_time_ms"`
	// Fallback is set when semantic scoring timed out and lexical-only weights were used.
	Fallback bool `json:"fallback,omitempty"`
}
