// Package keywordtest fits small TF-IDF vectorizers for tests. Production
// code always loads a vectorizer fitted elsewhere.
package keywordtest

import (
	"math"
	"sort"

	"github.com/hyperjump/internmatch/internal/keyword"
)

// Fit builds a smooth-idf vectorizer over docs the way scikit-learn's
// TfidfVectorizer does with default settings, and returns the corpus vectors.
func Fit(docs []string) (*keyword.Vectorizer, []keyword.SparseVector, error) {
	probe, err := keyword.NewVectorizer(keyword.VectorizerSpec{
		Vocabulary: map[string]int{},
		IDF:        []float64{},
	})
	if err != nil {
		return nil, nil, err
	}

	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, term := range probe.Tokens(doc) {
			if !seen[term] {
				seen[term] = true
				df[term]++
			}
		}
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	n := float64(len(docs))
	for i, term := range terms {
		vocab[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	v, err := keyword.NewVectorizer(keyword.VectorizerSpec{Vocabulary: vocab, IDF: idf})
	if err != nil {
		return nil, nil, err
	}
	vectors := make([]keyword.SparseVector, len(docs))
	for i, doc := range docs {
		vectors[i] = v.Transform(doc)
	}
	return v, vectors, nil
}
