package embedding

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/internmatch/internal/config"
)

// Provider names accepted in configuration.
const (
	ProviderONNX   = "onnx"
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

// New builds the configured embedder wrapped in an LRU cache. There is no
// silent fallback: a provider that cannot start is an error.
func New(cfg *config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case ProviderONNX:
		var tok Tokenizer
		if cfg.TokenizerPath != "" {
			tok, err = NewHFTokenizer(cfg.TokenizerPath)
			if err != nil {
				return nil, err
			}
		} else {
			logger.Warn("no tokenizer configured, using word-hash tokenizer")
		}
		e, err = NewONNXEmbedder(ONNXOptions{
			ModelPath:    cfg.ModelPath,
			LibraryPath:  cfg.LibraryPath,
			Dimensions:   cfg.Dimensions,
			MaxTokens:    cfg.MaxTokens,
			OutputName:   cfg.OutputName,
			Pooling:      Pooling(cfg.Pooling),
			TokenTypeIDs: cfg.TokenTypeIDs,
			Tokenizer:    tok,
		})
	case ProviderOpenAI:
		e, err = NewOpenAIEmbedder(OpenAIOptions{
			Host:              cfg.Host,
			Model:             cfg.Model,
			Token:             cfg.Token,
			Dimensions:        cfg.Dimensions,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Logger:            logger,
		})
	case ProviderHash:
		e = NewHashEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	logger.Info("embedder ready",
		zap.String("provider", cfg.Provider),
		zap.Int("dimensions", e.Dimensions()),
		zap.Int("cache_size", cfg.CacheSize),
	)
	return NewCachedEmbedder(e, cfg.CacheSize), nil
}
