package keyword

import "fmt"

// Space is a fitted vectorizer plus one sparse vector per corpus record.
// Vector i belongs to record i.
type Space struct {
	vectorizer *Vectorizer
	vectors    []SparseVector
	norms      []float64
}

// NewSpace checks that every vector fits the vectorizer's vocabulary.
func NewSpace(v *Vectorizer, vectors []SparseVector) (*Space, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil vectorizer", ErrInvalidVectorizer)
	}
	norms := make([]float64, len(vectors))
	for i, vec := range vectors {
		if len(vec.Indices) != len(vec.Values) {
			return nil, fmt.Errorf("vector %d: %d indices but %d values", i, len(vec.Indices), len(vec.Values))
		}
		prev := -1
		for _, col := range vec.Indices {
			if col <= prev || col >= v.Size() {
				return nil, fmt.Errorf("vector %d: column %d out of order or range", i, col)
			}
			prev = col
		}
		norms[i] = vec.Norm()
	}
	return &Space{vectorizer: v, vectors: vectors, norms: norms}, nil
}

// Len returns the number of corpus vectors.
func (s *Space) Len() int { return len(s.vectors) }

// Vectorizer returns the fitted vectorizer.
func (s *Space) Vectorizer() *Vectorizer { return s.vectorizer }

// Vectors returns the corpus vectors. Callers must not modify them.
func (s *Space) Vectors() []SparseVector { return s.vectors }

// Score returns the cosine similarity of text to every corpus vector, in
// corpus order. Text sharing no terms with the vocabulary scores all zeros.
func (s *Space) Score(text string) []float64 {
	scores := make([]float64, len(s.vectors))
	q := s.vectorizer.Transform(text)
	qn := q.Norm()
	if qn == 0 {
		return scores
	}
	for i, vec := range s.vectors {
		if s.norms[i] == 0 {
			continue
		}
		scores[i] = q.Dot(vec) / (qn * s.norms[i])
	}
	return scores
}
