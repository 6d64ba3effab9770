// Package embedding provides text embedding models: ONNX Runtime, an
// OpenAI-compatible HTTP API, and a deterministic hash model, plus caching.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations are safe for
// concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
