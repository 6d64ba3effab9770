package corpus

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hyperjump/internmatch/internal/models"
)

type weightsFile struct {
	Weights []float64 `json:"weights"`
}

// LoadWeights reads tuned fusion weights stored as {"weights": [lexical, semantic]}.
func LoadWeights(path string) (models.FusionWeights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.FusionWeights{}, fmt.Errorf("failed to read weights: %w", err)
	}
	return ParseWeights(data)
}

// ParseWeights decodes a weights document.
func ParseWeights(data []byte) (models.FusionWeights, error) {
	var wf weightsFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return models.FusionWeights{}, fmt.Errorf("failed to parse weights: %w", err)
	}
	if len(wf.Weights) != 2 {
		return models.FusionWeights{}, fmt.Errorf("weights: want 2 values, got %d", len(wf.Weights))
	}
	w := models.FusionWeights{Lexical: wf.Weights[0], Semantic: wf.Weights[1]}
	if w.Lexical < 0 || w.Semantic < 0 {
		return models.FusionWeights{}, fmt.Errorf("weights must not be negative: %v", wf.Weights)
	}
	return w, nil
}

// MarshalWeights encodes w in the same document shape LoadWeights reads.
func MarshalWeights(w models.FusionWeights) ([]byte, error) {
	return json.Marshal(weightsFile{Weights: []float64{w.Lexical, w.Semantic}})
}
