package recommend

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/internmatch/internal/config"
	"github.com/hyperjump/internmatch/internal/corpus"
	"github.com/hyperjump/internmatch/internal/embedding"
	"github.com/hyperjump/internmatch/internal/matcher"
	"github.com/hyperjump/internmatch/internal/models"
	"github.com/hyperjump/internmatch/internal/storage"
)

// Open loads the stored corpus and the configured model and returns a ready
// Service. Default weights come from, in order: the weights file named in
// config, weights stored with the corpus, then the config values.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMatcherUnavailable, err)
	}
	c, err := store.LoadCorpus(ctx)
	if err != nil {
		_ = store.Close()
		if errors.Is(err, storage.ErrNoCorpus) {
			return nil, fmt.Errorf("%w: %v; run import first", ErrMatcherUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMatcherUnavailable, err)
	}

	model, err := embedding.New(&cfg.Embedding, logger)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("%w: %v", ErrMatcherUnavailable, err)
	}

	m, err := matcher.NewFromCorpus(c, model,
		matcher.WithLogger(logger),
		matcher.WithScoringTimeout(cfg.Match.Timeout()),
	)
	if err != nil {
		_ = model.Close()
		_ = store.Close()
		return nil, fmt.Errorf("%w: %v", ErrMatcherUnavailable, err)
	}

	weights, err := resolveWeights(cfg, c)
	if err != nil {
		_ = model.Close()
		_ = store.Close()
		return nil, err
	}
	logger.Info("matcher ready",
		zap.Int("listings", c.Len()),
		zap.String("build_id", c.Meta.BuildID),
		zap.Float64("lexical_weight", weights.Lexical),
		zap.Float64("semantic_weight", weights.Semantic),
	)

	return NewService(m,
		WithWeights(weights),
		WithTopN(cfg.Match.TopN),
		WithMinScore(cfg.Match.Threshold()),
		WithLexicalFallback(cfg.Match.LexicalFallback),
		WithWorkers(cfg.Batch.Workers),
		WithLogger(logger),
		WithClosers(model, store),
	), nil
}

func resolveWeights(cfg *config.Config, c *corpus.Corpus) (models.FusionWeights, error) {
	if cfg.Match.WeightsPath != "" {
		return corpus.LoadWeights(cfg.Match.WeightsPath)
	}
	if c.Weights != nil {
		return *c.Weights, nil
	}
	return models.FusionWeights{Lexical: cfg.Match.LexicalWeight, Semantic: cfg.Match.SemanticWeight}, nil
}
