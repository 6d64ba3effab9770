package embedding

import "fmt"

// Pooling selects how token states become one sentence vector.
type Pooling string

const (
	// PoolingMean averages token states under the attention mask.
	PoolingMean Pooling = "mean"
	// PoolingCLS takes the first token's state (BERT [CLS], BGE models).
	PoolingCLS Pooling = "cls"
	// PoolingNone reads a model output that is already a sentence embedding.
	PoolingNone Pooling = "none"
)

// ONNXOptions configures an ONNXEmbedder.
type ONNXOptions struct {
	ModelPath   string
	LibraryPath string
	Dimensions  int
	MaxTokens   int
	OutputName  string
	Pooling     Pooling
	// TokenTypeIDs feeds a token_type_ids input; MPNet-style models have none.
	TokenTypeIDs bool
	Tokenizer    Tokenizer
}

func (o ONNXOptions) withDefaults() ONNXOptions {
	if o.Dimensions <= 0 {
		o.Dimensions = 768
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 384
	}
	if o.OutputName == "" {
		o.OutputName = "last_hidden_state"
	}
	if o.Pooling == "" {
		o.Pooling = PoolingMean
	}
	return o
}

func (o ONNXOptions) validate() error {
	switch o.Pooling {
	case PoolingMean, PoolingCLS, PoolingNone:
		return nil
	}
	return fmt.Errorf("unknown pooling %q", o.Pooling)
}

// MeanPool averages rows of a flattened (tokens x dimensions) matrix where the
// mask is set. An all-zero mask yields the zero vector.
func MeanPool(states []float32, mask []int64, dimensions int) []float32 {
	out := make([]float32, dimensions)
	var count float32
	for t, m := range mask {
		if m == 0 {
			continue
		}
		base := t * dimensions
		if base+dimensions > len(states) {
			break
		}
		for d := 0; d < dimensions; d++ {
			out[d] += states[base+d]
		}
		count++
	}
	if count == 0 {
		return out
	}
	for d := range out {
		out[d] /= count
	}
	return out
}

// CLSPool returns a copy of the first row of a flattened (tokens x dimensions)
// matrix.
func CLSPool(states []float32, dimensions int) []float32 {
	out := make([]float32, dimensions)
	copy(out, states)
	return out
}

// tokenStates reports whether pooling reads per-token output.
func (p Pooling) tokenStates() bool {
	return p == PoolingMean || p == PoolingCLS
}
