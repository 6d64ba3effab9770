package normalize

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
)

type analyzer interface {
	Analyze(input []byte) analysis.TokenStream
}

// StopWords decides stop words with bleve's standard English analyzer,
// which drops stop words and bare punctuation.
type StopWords struct {
	analyzer analyzer
}

// NewStopWords returns a stop word filter backed by the standard analyzer.
func NewStopWords() *StopWords {
	m := bleve.NewIndexMapping()
	return &StopWords{analyzer: m.AnalyzerNamed(standard.Name)}
}

// IsStop reports whether the analyzer discards word entirely.
func (s *StopWords) IsStop(word string) bool {
	return len(s.analyzer.Analyze([]byte(word))) == 0
}
