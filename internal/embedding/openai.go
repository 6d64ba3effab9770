package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hyperjump/internmatch/pkg/utils"
)

// OpenAIOptions configures an embedder backed by an OpenAI-compatible API.
type OpenAIOptions struct {
	Host       string
	Model      string
	Token      string
	Dimensions int
	// RequestsPerSecond limits calls to the API; zero disables the limit.
	RequestsPerSecond float64
	Logger            *zap.Logger
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint through langchaingo.
type OpenAIEmbedder struct {
	embedder   embeddings.Embedder
	limiter    *rate.Limiter
	dimensions int
	logger     *zap.Logger
}

// NewOpenAIEmbedder creates the client. Local services that need no key get the token "none".
func NewOpenAIEmbedder(opts OpenAIOptions) (*OpenAIEmbedder, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	if opts.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive")
	}
	token := opts.Token
	if token == "" {
		token = "none"
	}
	clientOpts := []openai.Option{
		openai.WithToken(token),
		openai.WithEmbeddingModel(opts.Model),
	}
	if opts.Host != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(opts.Host))
	}
	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &OpenAIEmbedder{
		embedder:   embedder,
		dimensions: opts.Dimensions,
		logger:     logger,
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Every(time.Duration(float64(time.Second)/opts.RequestsPerSecond)), burst)
	}
	return e, nil
}

// Embed returns the embedding for one text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in one request and checks the returned dimensions.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	e.logger.Debug("requesting embeddings", zap.Int("count", len(texts)))
	out, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(out), len(texts))
	}
	for i, v := range out {
		if len(v) != e.dimensions {
			return nil, fmt.Errorf("embedding %d has %d dimensions, expected %d", i, len(v), e.dimensions)
		}
		utils.NormalizeL2(v)
	}
	return out, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
