// Package matcher ranks corpus listings against a profile by fusing TF-IDF
// and embedding similarity.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/internmatch/internal/corpus"
	"github.com/hyperjump/internmatch/internal/embedding"
	"github.com/hyperjump/internmatch/internal/keyword"
	"github.com/hyperjump/internmatch/internal/models"
	"github.com/hyperjump/internmatch/internal/normalize"
	"github.com/hyperjump/internmatch/internal/vector"
	"github.com/hyperjump/internmatch/pkg/utils"
)

// DefaultScoringTimeout bounds profile embedding when no option overrides it.
const DefaultScoringTimeout = 5 * time.Second

// Matcher scores profiles against an immutable corpus. It is safe for
// concurrent use.
type Matcher struct {
	records    []models.CorpusRecord
	lexical    *keyword.Space
	semantic   *vector.Space
	model      embedding.Embedder
	normalizer *normalize.Normalizer
	timeout    time.Duration
	logger     *zap.Logger
	tracer     trace.Tracer
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger sets the logger. Nil means no logging.
func WithLogger(l *zap.Logger) Option {
	return func(m *Matcher) { m.logger = utils.OrNop(l) }
}

// WithScoringTimeout bounds the profile embedding call. Zero disables the bound.
func WithScoringTimeout(d time.Duration) Option {
	return func(m *Matcher) { m.timeout = d }
}

// WithNormalizer replaces the default text normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(m *Matcher) { m.normalizer = n }
}

// New builds a Matcher. The lexical space, semantic space and records must be
// index-aligned, and the model must produce vectors of the corpus dimension.
func New(lexical *keyword.Space, model embedding.Embedder, semantic *vector.Space, records []models.CorpusRecord, opts ...Option) (*Matcher, error) {
	if lexical == nil || semantic == nil || model == nil {
		return nil, errors.New("matcher: lexical space, semantic space and model are required")
	}
	if lexical.Len() != len(records) || semantic.Len() != len(records) {
		return nil, fmt.Errorf("%w: %d records, %d lexical vectors, %d embeddings",
			ErrShapeMismatch, len(records), lexical.Len(), semantic.Len())
	}
	if semantic.Len() > 0 && model.Dimensions() != semantic.Dimensions() {
		return nil, fmt.Errorf("%w: model produces %d dimensions, corpus has %d",
			ErrShapeMismatch, model.Dimensions(), semantic.Dimensions())
	}
	m := &Matcher{
		records:  records,
		lexical:  lexical,
		semantic: semantic,
		model:    model,
		timeout:  DefaultScoringTimeout,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("github.com/hyperjump/internmatch/internal/matcher"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.normalizer == nil {
		m.normalizer = normalize.New()
	}
	return m, nil
}

// NewFromCorpus builds the scoring spaces from a loaded corpus.
func NewFromCorpus(c *corpus.Corpus, model embedding.Embedder, opts ...Option) (*Matcher, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	lex, err := c.LexicalSpace()
	if err != nil {
		return nil, err
	}
	sem, err := c.SemanticSpace()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	return New(lex, model, sem, c.Records, opts...)
}

// Size returns the number of listings in the corpus.
func (m *Matcher) Size() int { return len(m.records) }

// Match returns up to topN listings for profile, best first, with unique
// titles. Both similarity signals are computed for every listing; weights
// pick how they combine. An empty corpus or topN <= 0 yields no results.
func (m *Matcher) Match(ctx context.Context, profile *models.QueryProfile, topN int, weights models.FusionWeights) ([]*models.ScoredRecord, error) {
	ctx, span := m.tracer.Start(ctx, "matcher.Match", trace.WithAttributes(
		attribute.Int("match.top_n", topN),
		attribute.Int("match.corpus_size", len(m.records)),
		attribute.Float64("match.lexical_weight", weights.Lexical),
		attribute.Float64("match.semantic_weight", weights.Semantic),
	))
	defer span.End()

	results, err := m.match(ctx, profile, topN, weights, false)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("match.results", len(results)))
	return results, nil
}

// MatchLexical ranks by TF-IDF similarity alone without calling the model.
// Semantic scores are reported as zero and the hybrid score equals the
// lexical score.
func (m *Matcher) MatchLexical(ctx context.Context, profile *models.QueryProfile, topN int) ([]*models.ScoredRecord, error) {
	ctx, span := m.tracer.Start(ctx, "matcher.MatchLexical", trace.WithAttributes(
		attribute.Int("match.top_n", topN),
		attribute.Int("match.corpus_size", len(m.records)),
	))
	defer span.End()

	results, err := m.match(ctx, profile, topN, models.FusionWeights{Lexical: 1}, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return results, nil
}

func (m *Matcher) match(ctx context.Context, profile *models.QueryProfile, topN int, weights models.FusionWeights, lexicalOnly bool) ([]*models.ScoredRecord, error) {
	start := time.Now()
	if profile == nil {
		return nil, ErrMalformedProfile
	}
	results := make([]*models.ScoredRecord, 0)
	if topN <= 0 || len(m.records) == 0 {
		return results, nil
	}

	text, err := m.normalizer.Profile(profile)
	if err != nil {
		return nil, err
	}

	var lexical, semantic []float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lexical = m.lexical.Score(text)
		return nil
	})
	g.Go(func() error {
		if lexicalOnly {
			semantic = make([]float64, len(m.records))
			return nil
		}
		scores, err := m.semanticScores(gctx, text)
		if err != nil {
			return err
		}
		semantic = scores
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, ErrScoringTimeout) {
			m.logger.Warn("semantic scoring timed out", zap.Duration("timeout", m.timeout))
		}
		return nil, err
	}

	hybrid, err := Fuse(lexical, semantic, weights)
	if err != nil {
		return nil, err
	}
	fetch := min(2*topN, len(m.records))
	picked := DedupeByTitle(SelectTop(hybrid, fetch), m.records, topN)

	for rank, i := range picked {
		results = append(results, &models.ScoredRecord{
			Record:        m.records[i],
			LexicalScore:  lexical[i],
			SemanticScore: semantic[i],
			HybridScore:   hybrid[i],
			Rank:          rank + 1,
		})
	}

	m.logger.Debug("match complete",
		zap.Int("candidates", fetch),
		zap.Int("results", len(results)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return results, nil
}
