// Package corpus holds the index-aligned listing corpus: records, their
// lexical vectors and their embeddings, plus readers for the files they come from.
package corpus

import (
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/internmatch/internal/keyword"
	"github.com/hyperjump/internmatch/internal/models"
	"github.com/hyperjump/internmatch/internal/vector"
)

// ErrShapeMismatch is returned when records, lexical vectors and embeddings
// are not the same length, or embeddings disagree on dimension.
var ErrShapeMismatch = errors.New("corpus shape mismatch")

// Meta describes how a corpus was built.
type Meta struct {
	BuildID        string    `json:"build_id"`
	CreatedAt      time.Time `json:"created_at"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimensions     int       `json:"dimensions"`
}

// Corpus is a struct of arrays: index i of Records, Lexical and Embeddings
// describe the same listing. It is never re-sorted.
type Corpus struct {
	Records    []models.CorpusRecord
	Vectorizer *keyword.Vectorizer
	Lexical    []keyword.SparseVector
	Embeddings [][]float32
	// Weights are tuned fusion weights shipped with the corpus, if any.
	Weights *models.FusionWeights
	Meta    Meta
}

// Len returns the number of listings.
func (c *Corpus) Len() int { return len(c.Records) }

// Validate checks alignment and that every embedding has the same dimension.
func (c *Corpus) Validate() error {
	if c.Vectorizer == nil {
		return fmt.Errorf("%w: missing vectorizer", ErrShapeMismatch)
	}
	n := len(c.Records)
	if len(c.Lexical) != n || len(c.Embeddings) != n {
		return fmt.Errorf("%w: %d records, %d lexical vectors, %d embeddings",
			ErrShapeMismatch, n, len(c.Lexical), len(c.Embeddings))
	}
	for i, emb := range c.Embeddings {
		if len(emb) != len(c.Embeddings[0]) || len(emb) == 0 {
			return fmt.Errorf("%w: embedding %d has %d dimensions", ErrShapeMismatch, i, len(emb))
		}
	}
	if c.Meta.Dimensions != 0 && n > 0 && c.Meta.Dimensions != len(c.Embeddings[0]) {
		return fmt.Errorf("%w: meta says %d dimensions, embeddings have %d",
			ErrShapeMismatch, c.Meta.Dimensions, len(c.Embeddings[0]))
	}
	return nil
}

// Dimensions returns the embedding width, or 0 for an empty corpus.
func (c *Corpus) Dimensions() int {
	if len(c.Embeddings) == 0 {
		return 0
	}
	return len(c.Embeddings[0])
}

// LexicalSpace builds the sparse scoring space.
func (c *Corpus) LexicalSpace() (*keyword.Space, error) {
	return keyword.NewSpace(c.Vectorizer, c.Lexical)
}

// SemanticSpace builds the dense scoring space.
func (c *Corpus) SemanticSpace() (*vector.Space, error) {
	return vector.NewSpace(c.Embeddings)
}
