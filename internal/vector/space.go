// Package vector holds the dense semantic space: corpus embeddings as a
// matrix and cosine scoring of a query embedding against every row.
package vector

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrDimensionMismatch is returned when vectors disagree on length.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// Space is an immutable matrix of corpus embeddings. Row i belongs to record i.
type Space struct {
	rows  *mat.Dense
	norms []float64
	n     int
	dim   int
}

// NewSpace copies embeddings into a matrix. All rows must share one dimension.
// An empty corpus is allowed and scores to an empty slice.
func NewSpace(embeddings [][]float32) (*Space, error) {
	s := &Space{n: len(embeddings)}
	if s.n == 0 {
		return s, nil
	}
	s.dim = len(embeddings[0])
	if s.dim == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrDimensionMismatch)
	}
	data := make([]float64, 0, s.n*s.dim)
	for i, emb := range embeddings {
		if len(emb) != s.dim {
			return nil, fmt.Errorf("%w: row %d has %d values, expected %d", ErrDimensionMismatch, i, len(emb), s.dim)
		}
		for _, x := range emb {
			data = append(data, float64(x))
		}
	}
	s.rows = mat.NewDense(s.n, s.dim, data)
	s.norms = make([]float64, s.n)
	for i := 0; i < s.n; i++ {
		s.norms[i] = mat.Norm(s.rows.RowView(i), 2)
	}
	return s, nil
}

// Len returns the number of rows.
func (s *Space) Len() int { return s.n }

// Dimensions returns the embedding width, or 0 for an empty space.
func (s *Space) Dimensions() int { return s.dim }

// Row returns a copy of row i as float32.
func (s *Space) Row(i int) []float32 {
	out := make([]float32, s.dim)
	for j := range out {
		out[j] = float32(s.rows.At(i, j))
	}
	return out
}

// Score returns the cosine similarity of query to every row, in row order.
// Rows or queries with zero norm score 0.
func (s *Space) Score(query []float32) ([]float64, error) {
	scores := make([]float64, s.n)
	if s.n == 0 {
		return scores, nil
	}
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: query has %d values, expected %d", ErrDimensionMismatch, len(query), s.dim)
	}
	q := make([]float64, s.dim)
	for i, x := range query {
		q[i] = float64(x)
	}
	qv := mat.NewVecDense(s.dim, q)
	qn := mat.Norm(qv, 2)
	if qn == 0 {
		return scores, nil
	}
	dots := mat.NewVecDense(s.n, nil)
	dots.MulVec(s.rows, qv)
	for i := range scores {
		if s.norms[i] == 0 {
			continue
		}
		scores[i] = dots.AtVec(i) / (s.norms[i] * qn)
	}
	return scores, nil
}
