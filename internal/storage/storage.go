// Package storage persists the precomputed listing corpus and its artifacts.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/internmatch/internal/corpus"
	"github.com/hyperjump/internmatch/internal/models"
)

// ErrNoCorpus is returned when nothing has been imported yet.
var ErrNoCorpus = errors.New("no corpus imported")

// Store defines corpus persistence operations. The corpus is written whole and
// read whole; it is immutable between imports.
type Store interface {
	SaveCorpus(ctx context.Context, c *corpus.Corpus) error
	LoadCorpus(ctx context.Context) (*corpus.Corpus, error)

	SaveWeights(ctx context.Context, w models.FusionWeights) error
	// Weights returns the stored tuned weights, or nil if none were saved.
	Weights(ctx context.Context) (*models.FusionWeights, error)

	Stats(ctx context.Context) (*Stats, error)

	Close() error
}

// Stats summarizes what the store holds.
type Stats struct {
	Listings       int64
	Vocabulary     int
	Dimensions     int
	BuildID        string
	EmbeddingModel string
	CreatedAt      time.Time
	Weights        *models.FusionWeights
}
