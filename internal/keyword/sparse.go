package keyword

import "math"

// SparseVector is a sparse row with strictly increasing column indices.
type SparseVector struct {
	Indices []int     `json:"indices"`
	Values  []float64 `json:"values"`
}

// Len returns the number of stored entries.
func (v SparseVector) Len() int { return len(v.Indices) }

// Dot returns the inner product of two sparse vectors.
func (v SparseVector) Dot(o SparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			sum += v.Values[i] * o.Values[j]
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Norm returns the L2 norm.
func (v SparseVector) Norm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity, or 0 when either vector has zero norm.
func Cosine(a, b SparseVector) float64 {
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	return a.Dot(b) / (na * nb)
}
