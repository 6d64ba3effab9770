// Package keyword provides the lexical side of matching: a fitted TF-IDF
// vectorizer and cosine scoring over a sparse corpus.
package keyword

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/kljensen/snowball/english"
)

// ErrInvalidVectorizer is returned when a fitted vectorizer is inconsistent.
var ErrInvalidVectorizer = errors.New("invalid vectorizer")

// DefaultTokenPattern matches runs of two or more word characters.
const DefaultTokenPattern = `[\p{L}\p{N}_]{2,}`

// sklearnTokenPattern is the scikit-learn default, which Go's regexp cannot compile.
const sklearnTokenPattern = `(?u)\b\w\w+\b`

// VectorizerSpec is the on-disk form of a fitted vectorizer.
type VectorizerSpec struct {
	Vocabulary   map[string]int  `json:"vocabulary"`
	IDF          []float64       `json:"idf"`
	Lowercase    *bool           `json:"lowercase,omitempty"`
	TokenPattern string          `json:"token_pattern,omitempty"`
	StopWords    json.RawMessage `json:"stop_words,omitempty"`
	NgramRange   [2]int          `json:"ngram_range,omitempty"`
	SublinearTF  bool            `json:"sublinear_tf,omitempty"`
	Norm         json.RawMessage `json:"norm,omitempty"`
	Stem         bool            `json:"stem,omitempty"`
}

type stopFilter func(string) bool

// Vectorizer projects text into a fitted TF-IDF space. It never refits.
type Vectorizer struct {
	spec        VectorizerSpec
	vocabulary  map[string]int
	idf         []float64
	lowercase   bool
	token       *regexp.Regexp
	stop        stopFilter
	ngramMin    int
	ngramMax    int
	sublinearTF bool
	norm        string
	stem        bool
}

// LoadVectorizer reads a fitted vectorizer from a JSON file.
func LoadVectorizer(path string) (*Vectorizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vectorizer: %w", err)
	}
	var spec VectorizerSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVectorizer, err)
	}
	return NewVectorizer(spec)
}

// NewVectorizer validates spec and builds a Vectorizer.
func NewVectorizer(spec VectorizerSpec) (*Vectorizer, error) {
	if len(spec.Vocabulary) != len(spec.IDF) {
		return nil, fmt.Errorf("%w: vocabulary has %d terms but idf has %d", ErrInvalidVectorizer, len(spec.Vocabulary), len(spec.IDF))
	}
	used := make([]bool, len(spec.IDF))
	for term, col := range spec.Vocabulary {
		if col < 0 || col >= len(spec.IDF) {
			return nil, fmt.Errorf("%w: term %q has column %d out of range", ErrInvalidVectorizer, term, col)
		}
		if used[col] {
			return nil, fmt.Errorf("%w: column %d assigned twice", ErrInvalidVectorizer, col)
		}
		used[col] = true
	}

	v := &Vectorizer{
		spec:        spec,
		vocabulary:  spec.Vocabulary,
		idf:         spec.IDF,
		lowercase:   spec.Lowercase == nil || *spec.Lowercase,
		ngramMin:    spec.NgramRange[0],
		ngramMax:    spec.NgramRange[1],
		sublinearTF: spec.SublinearTF,
		stem:        spec.Stem,
	}
	if v.ngramMin == 0 && v.ngramMax == 0 {
		v.ngramMin, v.ngramMax = 1, 1
	}
	if v.ngramMin < 1 || v.ngramMax < v.ngramMin {
		return nil, fmt.Errorf("%w: bad ngram_range %v", ErrInvalidVectorizer, spec.NgramRange)
	}
	norm, err := parseNorm(spec.Norm)
	if err != nil {
		return nil, err
	}
	v.norm = norm

	pattern := spec.TokenPattern
	if pattern == "" || pattern == sklearnTokenPattern {
		pattern = DefaultTokenPattern
	}
	pattern = strings.TrimPrefix(pattern, "(?u)")
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: token_pattern: %v", ErrInvalidVectorizer, err)
	}
	v.token = re

	stop, err := parseStopWords(spec.StopWords)
	if err != nil {
		return nil, err
	}
	v.stop = stop
	return v, nil
}

// parseNorm accepts "l1", "l2" or null; an absent norm means "l2".
func parseNorm(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "l2", nil
	}
	if bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	var norm string
	if err := json.Unmarshal(raw, &norm); err != nil {
		return "", fmt.Errorf("%w: norm: %v", ErrInvalidVectorizer, err)
	}
	switch norm {
	case "l1", "l2", "":
		return norm, nil
	}
	return "", fmt.Errorf("%w: unknown norm %q", ErrInvalidVectorizer, norm)
}

// parseStopWords accepts null, "english", or an explicit list.
func parseStopWords(raw json.RawMessage) (stopFilter, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		if name != "english" {
			return nil, fmt.Errorf("%w: unknown stop word set %q", ErrInvalidVectorizer, name)
		}
		a := bleve.NewIndexMapping().AnalyzerNamed(standard.Name)
		return func(w string) bool {
			return len(a.Analyze([]byte(w))) == 0
		}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: stop_words: %v", ErrInvalidVectorizer, err)
	}
	set := make(map[string]struct{}, len(list))
	for _, w := range list {
		set[w] = struct{}{}
	}
	return func(w string) bool {
		_, ok := set[w]
		return ok
	}, nil
}

// Spec returns the fitted parameters the vectorizer was built from.
func (v *Vectorizer) Spec() VectorizerSpec { return v.spec }

// Size returns the vocabulary size.
func (v *Vectorizer) Size() int { return len(v.idf) }

// Tokens returns the analyzed terms of text, n-grams included.
func (v *Vectorizer) Tokens(text string) []string {
	if v.lowercase {
		text = strings.ToLower(text)
	}
	words := v.token.FindAllString(text, -1)
	kept := words[:0]
	for _, w := range words {
		if v.stop != nil && v.stop(w) {
			continue
		}
		if v.stem {
			w = english.Stem(w, false)
		}
		kept = append(kept, w)
	}
	if v.ngramMin == 1 && v.ngramMax == 1 {
		return kept
	}
	var terms []string
	for n := v.ngramMin; n <= v.ngramMax; n++ {
		for i := 0; i+n <= len(kept); i++ {
			terms = append(terms, strings.Join(kept[i:i+n], " "))
		}
	}
	return terms
}

// Transform projects text into the fitted space. Terms outside the
// vocabulary are ignored; text with no known terms yields an empty vector.
func (v *Vectorizer) Transform(text string) SparseVector {
	counts := make(map[int]float64)
	for _, term := range v.Tokens(text) {
		if col, ok := v.vocabulary[term]; ok {
			counts[col]++
		}
	}
	if len(counts) == 0 {
		return SparseVector{}
	}

	indices := make([]int, 0, len(counts))
	for col := range counts {
		indices = append(indices, col)
	}
	sort.Ints(indices)

	values := make([]float64, len(indices))
	for i, col := range indices {
		tf := counts[col]
		if v.sublinearTF {
			tf = 1 + math.Log(tf)
		}
		values[i] = tf * v.idf[col]
	}

	var norm float64
	switch v.norm {
	case "l2":
		for _, x := range values {
			norm += x * x
		}
		norm = math.Sqrt(norm)
	case "l1":
		for _, x := range values {
			norm += math.Abs(x)
		}
	}
	if norm > 0 {
		for i := range values {
			values[i] /= norm
		}
	}
	return SparseVector{Indices: indices, Values: values}
}
