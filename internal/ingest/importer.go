// Package ingest builds the listing corpus from a listing sheet, a fitted
// vectorizer and an embedding model, and writes it to the artifact store.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/internmatch/internal/corpus"
	"github.com/hyperjump/internmatch/internal/embedding"
	"github.com/hyperjump/internmatch/internal/keyword"
	"github.com/hyperjump/internmatch/internal/models"
	"github.com/hyperjump/internmatch/internal/normalize"
	"github.com/hyperjump/internmatch/internal/storage"
	"github.com/hyperjump/internmatch/internal/vector"
	"github.com/hyperjump/internmatch/pkg/utils"
)

// Source names the files an import reads.
type Source struct {
	ListingsPath   string
	Columns        corpus.Columns
	VectorizerPath string
	// EmbeddingsPath optionally points at precomputed listing embeddings.
	// When empty, listings are embedded with the importer's model.
	EmbeddingsPath string
	// WeightsPath optionally points at tuned fusion weights.
	WeightsPath string
}

// Summary reports what an import wrote.
type Summary struct {
	BuildID    string
	Listings   int
	Vocabulary int
	Dimensions int
	Embedded   int
	Duration   time.Duration
}

// Importer builds and stores corpora.
type Importer struct {
	store      storage.Store
	model      embedding.Embedder
	modelName  string
	normalizer *normalize.Normalizer
	workers    int
	batchSize  int
	logger     *zap.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets a logger for progress output.
func WithLogger(l *zap.Logger) Option {
	return func(im *Importer) { im.logger = utils.OrNop(l) }
}

// WithNormalizer replaces the default text normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(im *Importer) { im.normalizer = n }
}

// WithWorkers sets the worker pool size. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(im *Importer) { im.workers = max(n, 1) }
}

// WithBatchSize sets how many listings go to the model per call.
func WithBatchSize(n int) Option {
	return func(im *Importer) { im.batchSize = max(n, 1) }
}

// WithModelName records the embedding model in the corpus metadata.
func WithModelName(name string) Option {
	return func(im *Importer) { im.modelName = name }
}

// New creates an importer. model may be nil when every import supplies
// precomputed embeddings.
func New(store storage.Store, model embedding.Embedder, opts ...Option) *Importer {
	im := &Importer{
		store:     store,
		model:     model,
		workers:   4,
		batchSize: 32,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(im)
	}
	if im.normalizer == nil {
		im.normalizer = normalize.New()
	}
	return im
}

// Import reads src, builds the corpus and replaces the stored one.
func (im *Importer) Import(ctx context.Context, src Source) (*Summary, error) {
	start := time.Now()
	records, err := corpus.ReadRecords(src.ListingsPath, src.Columns)
	if err != nil {
		return nil, err
	}
	v, err := keyword.LoadVectorizer(src.VectorizerPath)
	if err != nil {
		return nil, err
	}

	var precomputed []vector.Embedding
	if src.EmbeddingsPath != "" {
		if precomputed, err = vector.ReadFile(src.EmbeddingsPath); err != nil {
			return nil, err
		}
	}

	c, err := im.Build(ctx, records, v, precomputed)
	if err != nil {
		return nil, err
	}
	if src.WeightsPath != "" {
		w, err := corpus.LoadWeights(src.WeightsPath)
		if err != nil {
			return nil, err
		}
		c.Weights = &w
	}

	if err := im.store.SaveCorpus(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to store corpus: %w", err)
	}
	sum := &Summary{
		BuildID:    c.Meta.BuildID,
		Listings:   c.Len(),
		Vocabulary: v.Size(),
		Dimensions: c.Dimensions(),
		Duration:   time.Since(start),
	}
	if precomputed == nil {
		sum.Embedded = c.Len()
	}
	im.logger.Info("corpus imported",
		zap.String("build_id", sum.BuildID),
		zap.Int("listings", sum.Listings),
		zap.Int("vocabulary", sum.Vocabulary),
		zap.Int("dimensions", sum.Dimensions),
		zap.Duration("elapsed", sum.Duration),
	)
	return sum, nil
}

// Build normalizes every listing, projects it into v and attaches an
// embedding, either from precomputed or from the model.
func (im *Importer) Build(ctx context.Context, records []models.CorpusRecord, v *keyword.Vectorizer, precomputed []vector.Embedding) (*corpus.Corpus, error) {
	pool, err := ants.NewPool(im.workers)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	texts := make([]string, len(records))
	lexical := make([]keyword.SparseVector, len(records))
	err = run(ctx, pool, len(records), func(i int) error {
		text, err := im.normalizer.Listing(&records[i])
		if err != nil {
			return fmt.Errorf("listing %s: %w", records[i].ID, err)
		}
		texts[i] = text
		lexical[i] = v.Transform(text)
		return nil
	})
	if err != nil {
		return nil, err
	}
	im.logger.Debug("listings normalized", zap.Int("count", len(records)))

	var embeddings [][]float32
	modelName := im.modelName
	if precomputed != nil {
		if embeddings, err = align(records, precomputed); err != nil {
			return nil, err
		}
		modelName = "precomputed"
	} else {
		if embeddings, err = im.embed(ctx, pool, texts); err != nil {
			return nil, err
		}
	}

	c := &corpus.Corpus{
		Records:    records,
		Vectorizer: v,
		Lexical:    lexical,
		Embeddings: embeddings,
		Meta: corpus.Meta{
			BuildID:        uuid.New().String(),
			CreatedAt:      time.Now().UTC(),
			EmbeddingModel: modelName,
		},
	}
	c.Meta.Dimensions = c.Dimensions()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// embed sends texts to the model in batches spread over the pool.
func (im *Importer) embed(ctx context.Context, pool *ants.Pool, texts []string) ([][]float32, error) {
	if im.model == nil {
		return nil, fmt.Errorf("no embedding model configured and no precomputed embeddings given")
	}
	out := make([][]float32, len(texts))
	batches := (len(texts) + im.batchSize - 1) / im.batchSize
	err := run(ctx, pool, batches, func(b int) error {
		lo := b * im.batchSize
		hi := min(lo+im.batchSize, len(texts))
		vecs, err := im.model.EmbedBatch(ctx, texts[lo:hi])
		if err != nil {
			return fmt.Errorf("failed to embed listings %d-%d: %w", lo, hi-1, err)
		}
		if len(vecs) != hi-lo {
			return fmt.Errorf("%w: model returned %d embeddings for %d listings", corpus.ErrShapeMismatch, len(vecs), hi-lo)
		}
		copy(out[lo:hi], vecs)
		im.logger.Debug("embedded batch", zap.Int("from", lo), zap.Int("to", hi))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// align orders precomputed embeddings to match records: by ID when every
// record has one in the file, otherwise by position.
func align(records []models.CorpusRecord, rows []vector.Embedding) ([][]float32, error) {
	byID := make(map[string][]float32, len(rows))
	for _, r := range rows {
		byID[r.ID] = r.Vector
	}
	out := make([][]float32, len(records))
	matched := true
	for i, rec := range records {
		vec, ok := byID[rec.ID]
		if !ok {
			matched = false
			break
		}
		out[i] = vec
	}
	if matched {
		return out, nil
	}
	if len(rows) != len(records) {
		return nil, fmt.Errorf("%w: %d listings but %d precomputed embeddings", corpus.ErrShapeMismatch, len(records), len(rows))
	}
	for i, r := range rows {
		out[i] = r.Vector
	}
	return out, nil
}

// run calls fn(0..n-1) on the pool and returns the first error. Remaining
// tasks are skipped once an error occurs or ctx is done.
func run(ctx context.Context, pool *ants.Pool, n int, fn func(i int) error) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}
	failed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firstErr != nil
	}

	for i := 0; i < n; i++ {
		i := i
		if err := ctx.Err(); err != nil {
			fail(err)
			break
		}
		if failed() {
			break
		}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if failed() {
				return
			}
			if err := fn(i); err != nil {
				fail(err)
			}
		}); err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()
	return firstErr
}
