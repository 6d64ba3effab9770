// Package recommend turns matcher output into user-facing recommendations:
// it applies the score threshold, reports the empty state and runs batches.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/internmatch/internal/matcher"
	"github.com/hyperjump/internmatch/internal/models"
	"github.com/hyperjump/internmatch/pkg/utils"
)

// DefaultMinScore is the hybrid score a listing needs to be recommended.
const DefaultMinScore = 0.5

// ErrMatcherUnavailable is returned when no corpus or model could be loaded.
var ErrMatcherUnavailable = errors.New("matcher unavailable")

// Query is one recommendation request. Zero TopN and nil Weights use the
// service defaults.
type Query struct {
	Profile *models.QueryProfile
	TopN    int
	Weights *models.FusionWeights
}

// Service produces recommendations from a Matcher.
type Service struct {
	matcher         *matcher.Matcher
	weights         models.FusionWeights
	topN            int
	minScore        float64
	lexicalFallback bool
	workers         int
	logger          *zap.Logger
	closers         []io.Closer
}

// Option configures a Service.
type Option func(*Service)

// WithWeights sets the default fusion weights.
func WithWeights(w models.FusionWeights) Option {
	return func(s *Service) { s.weights = w }
}

// WithTopN sets the default number of results.
func WithTopN(n int) Option {
	return func(s *Service) { s.topN = n }
}

// WithMinScore sets the hybrid score threshold.
func WithMinScore(score float64) Option {
	return func(s *Service) { s.minScore = score }
}

// WithLexicalFallback retries a timed-out query on lexical scores alone.
func WithLexicalFallback(enabled bool) Option {
	return func(s *Service) { s.lexicalFallback = enabled }
}

// WithWorkers sets the batch worker pool size.
func WithWorkers(n int) Option {
	return func(s *Service) { s.workers = max(n, 1) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = utils.OrNop(l) }
}

// WithClosers registers resources released by Close.
func WithClosers(c ...io.Closer) Option {
	return func(s *Service) { s.closers = append(s.closers, c...) }
}

// NewService creates a Service. m may be nil, in which case every request
// fails with ErrMatcherUnavailable.
func NewService(m *matcher.Matcher, opts ...Option) *Service {
	s := &Service{
		matcher:  m,
		weights:  models.DefaultFusionWeights(),
		topN:     models.DefaultTopN,
		minScore: DefaultMinScore,
		workers:  4,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the default fusion weights.
func (s *Service) Weights() models.FusionWeights { return s.weights }

// Size returns the corpus size, or 0 when no matcher is loaded.
func (s *Service) Size() int {
	if s.matcher == nil {
		return 0
	}
	return s.matcher.Size()
}

// Recommend matches one profile and keeps the results at or above the
// threshold. An empty result is reported through Recommendations.Empty.
func (s *Service) Recommend(ctx context.Context, q Query) (*models.Recommendations, error) {
	if s.matcher == nil {
		return nil, ErrMatcherUnavailable
	}
	start := time.Now()
	topN := q.TopN
	if topN == 0 {
		topN = s.topN
	}
	weights := s.weights
	if q.Weights != nil {
		weights = *q.Weights
	}

	results, err := s.matcher.Match(ctx, q.Profile, topN, weights)
	fallback := false
	if errors.Is(err, matcher.ErrScoringTimeout) && s.lexicalFallback {
		s.logger.Warn("falling back to lexical scoring", zap.Error(err))
		results, err = s.matcher.MatchLexical(ctx, q.Profile, topN)
		weights = models.FusionWeights{Lexical: 1}
		fallback = true
	}
	if err != nil {
		return nil, err
	}

	kept := make([]*models.ScoredRecord, 0, len(results))
	for _, r := range results {
		if r.HybridScore >= s.minScore {
			kept = append(kept, r)
		}
	}
	recs := &models.Recommendations{
		Profile:   q.Profile,
		Results:   kept,
		Total:     len(kept),
		Empty:     len(kept) == 0,
		MinScore:  s.minScore,
		Weights:   weights,
		QueryTime: time.Since(start).Milliseconds(),
		Fallback:  fallback,
	}
	s.logger.Debug("recommendations ready",
		zap.Int("matched", len(results)),
		zap.Int("kept", len(kept)),
		zap.Bool("fallback", fallback),
	)
	return recs, nil
}

// BatchResult is the outcome for the query at Index.
type BatchResult struct {
	Index           int
	Recommendations *models.Recommendations
	Err             error
}

// RecommendBatch runs queries on a worker pool. Results keep query order;
// a failed query does not stop the others.
func (s *Service) RecommendBatch(ctx context.Context, queries []Query) ([]BatchResult, error) {
	if s.matcher == nil {
		return nil, ErrMatcherUnavailable
	}
	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	out := make([]BatchResult, len(queries))
	var wg sync.WaitGroup
	for i := range queries {
		i := i
		out[i].Index = i
		if err := ctx.Err(); err != nil {
			out[i].Err = err
			continue
		}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			out[i].Recommendations, out[i].Err = s.Recommend(ctx, queries[i])
		}); err != nil {
			wg.Done()
			out[i].Err = err
		}
	}
	wg.Wait()
	return out, nil
}

// Close releases the resources registered with WithClosers.
func (s *Service) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
