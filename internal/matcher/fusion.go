package matcher

import (
	"math"
	"sort"

	"github.com/hyperjump/internmatch/internal/models"
)

// Fuse combines aligned lexical and semantic scores as lw*lex + sw*sem.
// Weights are applied as given, without renormalization.
func Fuse(lexical, semantic []float64, w models.FusionWeights) ([]float64, error) {
	if len(lexical) != len(semantic) {
		return nil, ErrShapeMismatch
	}
	hybrid := make([]float64, len(lexical))
	for i := range lexical {
		hybrid[i] = w.Lexical*lexical[i] + w.Semantic*semantic[i]
	}
	return hybrid, nil
}

// SelectTop returns the indices of the k highest scores, best first.
// Equal scores keep index order and NaN sorts below every number.
func SelectTop(scores []float64, k int) []int {
	if k > len(scores) {
		k = len(scores)
	}
	if k <= 0 {
		return nil
	}
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return rankKey(scores[idx[a]]) > rankKey(scores[idx[b]])
	})
	return idx[:k]
}

func rankKey(s float64) float64 {
	if math.IsNaN(s) {
		return math.Inf(-1)
	}
	return s
}

// DedupeByTitle keeps the first index seen for each exact title and stops
// after limit survivors.
func DedupeByTitle(idx []int, records []models.CorpusRecord, limit int) []int {
	if limit <= 0 {
		return []int{}
	}
	seen := make(map[string]bool, len(idx))
	out := make([]int, 0, min(limit, len(idx)))
	for _, i := range idx {
		if len(out) == limit {
			break
		}
		title := records[i].Title
		if seen[title] {
			continue
		}
		seen[title] = true
		out = append(out, i)
	}
	return out
}
