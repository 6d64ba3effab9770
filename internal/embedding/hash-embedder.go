package embedding

import (
	"context"
	"strings"
	"unicode"

	"github.com/hyperjump/internmatch/pkg/utils"
)

// HashEmbedder is a deterministic embedder that hashes words into signed
// buckets. Texts sharing words get similar vectors, which makes it usable for
// tests and for running without a model.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns an embedder producing vectors of the given dimensions.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed returns the unit-length hashed bag of words for text. Text without
// words embeds to the zero vector.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := HashString(w)
		idx := int(h % uint64(e.dimensions))
		if (h>>32)&1 == 0 {
			emb[idx]++
		} else {
			emb[idx]--
		}
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch calls Embed for each text.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for HashEmbedder.
func (e *HashEmbedder) Close() error {
	return nil
}
