package models

// CorpusRecord is one listing in the corpus. Title is the deduplication key.
type CorpusRecord struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	RequiredSkills string            `json:"required_skills"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// ScoredRecord is a corpus record with the scores that ranked it.
type ScoredRecord struct {
	Record        CorpusRecord `json:"record"`
	LexicalScore  float64      `json:"lexical_score"`
	SemanticScore float64      `json:"semantic_score"`
	HybridScore   float64      `json:"hybrid_score"`
	Rank          int          `json:"rank"`
}

// DefaultTopN is the number of results returned when the caller does not say.
const DefaultTopN = 5

// FusionWeights are the coefficients applied to lexical and semantic scores.
// They usually sum to 1.0 but are not renormalized.
type FusionWeights struct {
	Lexical  float64 `json:"lexical"`
	Semantic float64 `json:"semantic"`
}

// DefaultFusionWeights returns the weights used when none are configured.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{Lexical: 0.4, Semantic: 0.6}
}
