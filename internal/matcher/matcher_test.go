package matcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/internmatch/internal/corpus"
	"github.com/hyperjump/internmatch/internal/keyword"
	"github.com/hyperjump/internmatch/internal/keyword/keywordtest"
	"github.com/hyperjump/internmatch/internal/models"
	"github.com/hyperjump/internmatch/internal/normalize"
	"github.com/hyperjump/internmatch/internal/vector"
)

// nounTagger tags every whitespace-separated word as a noun.
type nounTagger struct{}

func (nounTagger) Tag(text string) ([]normalize.Token, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool { return r == ' ' || r == '.' || r == ':' || r == ',' })
	out := make([]normalize.Token, len(fields))
	for i, f := range fields {
		out[i] = normalize.Token{Text: f, Tag: "NN"}
	}
	return out, nil
}

// fixedEmbedder embeds every text to the same vector.
type fixedEmbedder struct {
	vec   []float32
	delay time.Duration
}

func (e *fixedEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	return e.vec, nil
}

func (e *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i], _ = e.Embed(ctx, texts[i])
	}
	return out, nil
}

func (e *fixedEmbedder) Dimensions() int { return len(e.vec) }
func (e *fixedEmbedder) Close() error    { return nil }

// unitAt returns a 2-d unit vector whose cosine with (1, 0) is c.
func unitAt(c float64) []float32 {
	return []float32{float32(c), float32(math.Sqrt(1 - c*c))}
}

// newTestMatcher builds a matcher whose semantic scores are the given cosines.
func newTestMatcher(t *testing.T, titles []string, cosines []float64, opts ...Option) *Matcher {
	t.Helper()
	require.Equal(t, len(titles), len(cosines))
	norm := normalize.New(normalize.WithTagger(nounTagger{}))

	records := make([]models.CorpusRecord, len(titles))
	texts := make([]string, len(titles))
	embeddings := make([][]float32, len(titles))
	for i, title := range titles {
		records[i] = models.CorpusRecord{ID: title + string(rune('a'+i)), Title: title, Description: "work on " + title}
		text, err := norm.Listing(&records[i])
		require.NoError(t, err)
		texts[i] = text
		embeddings[i] = unitAt(cosines[i])
	}
	v, lex, err := keywordtest.Fit(texts)
	require.NoError(t, err)

	c := &corpus.Corpus{Records: records, Vectorizer: v, Lexical: lex, Embeddings: embeddings}
	m, err := NewFromCorpus(c, &fixedEmbedder{vec: []float32{1, 0}}, append([]Option{WithNormalizer(norm)}, opts...)...)
	require.NoError(t, err)
	return m
}

var semanticOnly = models.FusionWeights{Lexical: 0, Semantic: 1}

func titlesOf(results []*models.ScoredRecord) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Record.Title
	}
	return out
}

func TestMatch_DedupesByTitle(t *testing.T) {
	m := newTestMatcher(t,
		[]string{"Backend Intern", "Backend Intern", "Data Intern"},
		[]float64{0.9, 0.8, 0.7})

	got, err := m.Match(context.Background(), &models.QueryProfile{Skillsets: "Go"}, 2, semanticOnly)
	require.NoError(t, err)
	assert.Equal(t, []string{"Backend Intern", "Data Intern"}, titlesOf(got))
	assert.Equal(t, "Backend Intern"+"a", got[0].Record.ID, "first occurrence is kept")
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, 2, got[1].Rank)
	assert.InDelta(t, 0.9, got[0].SemanticScore, 1e-6)
}

func TestMatch_OverFetchIsBounded(t *testing.T) {
	titles := make([]string, 10)
	cosines := make([]float64, 10)
	for i := range titles {
		titles[i] = "Same Intern"
		cosines[i] = 0.95 - float64(i)*0.05
	}
	titles[6] = "Other Intern"

	m := newTestMatcher(t, titles, cosines)
	got, err := m.Match(context.Background(), &models.QueryProfile{InterestedRoles: "intern"}, 3, semanticOnly)
	require.NoError(t, err)
	assert.Equal(t, []string{"Same Intern"}, titlesOf(got), "only the top 6 candidates are considered")
}

func TestMatch_FewerThanTopN(t *testing.T) {
	m := newTestMatcher(t, []string{"A", "B"}, []float64{0.1, 0.2})
	got, err := m.Match(context.Background(), &models.QueryProfile{Skillsets: "x"}, 5, semanticOnly)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, titlesOf(got))
}

func TestMatch_TiesKeepCorpusOrder(t *testing.T) {
	m := newTestMatcher(t, []string{"First", "Second", "Third"}, []float64{0.5, 0.5, 0.5})
	got, err := m.Match(context.Background(), &models.QueryProfile{Skillsets: "x"}, 3, semanticOnly)
	require.NoError(t, err)
	assert.Equal(t, []string{"First", "Second", "Third"}, titlesOf(got))
}

func TestMatch_WeightsApplyWithoutRenormalizing(t *testing.T) {
	m := newTestMatcher(t,
		[]string{"Python Data Intern", "Backend Intern", "Design Intern"},
		[]float64{0.2, 0.6, 0.4})
	profile := &models.QueryProfile{Skillsets: "python data"}
	ctx := context.Background()

	lexOnly, err := m.Match(ctx, profile, 3, models.FusionWeights{Lexical: 1})
	require.NoError(t, err)
	assert.Equal(t, "Python Data Intern", lexOnly[0].Record.Title)
	for _, r := range lexOnly {
		assert.Equal(t, r.LexicalScore, r.HybridScore)
		assert.NotZero(t, r.SemanticScore, "semantic score is still reported")
	}

	semOnly, err := m.Match(ctx, profile, 3, semanticOnly)
	require.NoError(t, err)
	assert.Equal(t, "Backend Intern", semOnly[0].Record.Title)

	doubled, err := m.Match(ctx, profile, 3, models.FusionWeights{Lexical: 0.8, Semantic: 1.2})
	require.NoError(t, err)
	for _, r := range doubled {
		assert.InDelta(t, 0.8*r.LexicalScore+1.2*r.SemanticScore, r.HybridScore, 1e-12)
	}
}

var signalTitles = []string{
	"Python Data Analysis Intern",
	"Data Engineering Intern",
	"Python Backend Intern",
	"Marketing Intern",
	"Data Visualization Intern",
	"Python Data Intern",
}

var signalCosines = []float64{0.35, 0.9, 0.15, 0.6, 0.75, 0.05}

// orderBy returns corpus indices sorted by descending score, ties by index.
func orderBy(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	return idx
}

func idsOf(results []*models.ScoredRecord) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Record.ID
	}
	return out
}

func TestMatch_ZeroOverlap(t *testing.T) {
	m := newTestMatcher(t, signalTitles, signalCosines)
	weights := models.DefaultFusionWeights()

	got, err := m.Match(context.Background(), &models.QueryProfile{Skillsets: "zyxwv qqqq"}, len(signalTitles), weights)
	require.NoError(t, err)
	require.Len(t, got, len(signalTitles))
	for _, r := range got {
		assert.Zero(t, r.LexicalScore, r.Record.Title)
		assert.InDelta(t, weights.Semantic*r.SemanticScore, r.HybridScore, 1e-12, r.Record.Title)
	}

	want := make([]string, 0, len(signalTitles))
	for _, i := range orderBy(signalCosines) {
		want = append(want, signalTitles[i])
	}
	assert.Equal(t, want, titlesOf(got), "order follows the semantic signal alone")
}

func TestMatch_PureWeightsFollowSignalOrder(t *testing.T) {
	m := newTestMatcher(t, signalTitles, signalCosines)
	profile := &models.QueryProfile{InterestedRoles: "data", Skillsets: "python, data analysis"}
	ctx := context.Background()
	n := len(signalTitles)

	text, err := m.normalizer.Profile(profile)
	require.NoError(t, err)
	q := m.lexical.Vectorizer().Transform(text)
	lexical := make([]float64, n)
	for i, vec := range m.lexical.Vectors() {
		lexical[i] = keyword.Cosine(q, vec)
	}
	require.NotEqual(t, lexical[0], lexical[3], "profile must separate listings lexically")

	wantIDs := func(scores []float64) []string {
		out := make([]string, 0, n)
		for _, i := range orderBy(scores) {
			out = append(out, m.records[i].ID)
		}
		return out
	}

	lexOnly, err := m.Match(ctx, profile, n, models.FusionWeights{Lexical: 1, Semantic: 0})
	require.NoError(t, err)
	assert.Equal(t, wantIDs(lexical), idsOf(lexOnly))

	semOnly, err := m.Match(ctx, profile, n, models.FusionWeights{Lexical: 0, Semantic: 1})
	require.NoError(t, err)
	assert.Equal(t, wantIDs(signalCosines), idsOf(semOnly))
	for _, r := range semOnly {
		assert.Equal(t, r.SemanticScore, r.HybridScore)
	}
}

func TestMatch_Concurrent(t *testing.T) {
	m := newTestMatcher(t, signalTitles, signalCosines)
	profiles := []*models.QueryProfile{
		{Skillsets: "python"},
		{InterestedRoles: "data engineering"},
		{InterestedRoles: "marketing", Skillsets: "visualization"},
		{Skillsets: "backend python data"},
	}
	weights := models.DefaultFusionWeights()
	ctx := context.Background()

	want := make([][]*models.ScoredRecord, len(profiles))
	for i, p := range profiles {
		got, err := m.Match(ctx, p, 3, weights)
		require.NoError(t, err)
		want[i] = got
	}

	var wg sync.WaitGroup
	for g := 0; g < 32; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for k := 0; k < 10; k++ {
				i := (g + k) % len(profiles)
				got, err := m.Match(ctx, profiles[i], 3, weights)
				if assert.NoError(t, err) {
					assert.Equal(t, want[i], got, fmt.Sprintf("goroutine %d profile %d", g, i))
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestMatch_Deterministic(t *testing.T) {
	m := newTestMatcher(t,
		[]string{"Backend Intern", "Data Intern", "Design Intern", "Data Intern"},
		[]float64{0.3, 0.7, 0.5, 0.7})
	profile := &models.QueryProfile{InterestedRoles: "data", Skillsets: "design"}
	weights := models.DefaultFusionWeights()

	first, err := m.Match(context.Background(), profile, 3, weights)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := m.Match(context.Background(), profile, 3, weights)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestMatch_EmptyCases(t *testing.T) {
	ctx := context.Background()

	empty := newTestMatcher(t, nil, nil)
	got, err := empty.Match(ctx, &models.QueryProfile{Skillsets: "go"}, 5, semanticOnly)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 0, empty.Size())

	m := newTestMatcher(t, []string{"A"}, []float64{0.5})
	got, err = m.Match(ctx, &models.QueryProfile{Skillsets: "go"}, 0, semanticOnly)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = m.Match(ctx, nil, 5, semanticOnly)
	assert.True(t, errors.Is(err, ErrMalformedProfile))
}

func TestMatch_Timeout(t *testing.T) {
	norm := normalize.New(normalize.WithTagger(nounTagger{}))
	v, lex, err := keywordtest.Fit([]string{"go"})
	require.NoError(t, err)
	lexSpace, err := keyword.NewSpace(v, lex)
	require.NoError(t, err)
	semSpace, err := vector.NewSpace([][]float32{{1, 0}})
	require.NoError(t, err)

	slow := &fixedEmbedder{vec: []float32{1, 0}, delay: 200 * time.Millisecond}
	m, err := New(lexSpace, slow, semSpace, []models.CorpusRecord{{Title: "Go Intern"}},
		WithNormalizer(norm), WithScoringTimeout(10*time.Millisecond))
	require.NoError(t, err)

	_, err = m.Match(context.Background(), &models.QueryProfile{Skillsets: "go"}, 5, semanticOnly)
	assert.True(t, errors.Is(err, ErrScoringTimeout), "got %v", err)
}

func TestNew_ShapeMismatch(t *testing.T) {
	v, lex, err := keywordtest.Fit([]string{"go", "python"})
	require.NoError(t, err)
	lexSpace, err := keyword.NewSpace(v, lex)
	require.NoError(t, err)
	records := []models.CorpusRecord{{Title: "a"}, {Title: "b"}}

	short, err := vector.NewSpace([][]float32{{1, 0}})
	require.NoError(t, err)
	_, err = New(lexSpace, &fixedEmbedder{vec: []float32{1, 0}}, short, records)
	assert.True(t, errors.Is(err, ErrShapeMismatch))

	sem, err := vector.NewSpace([][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)
	_, err = New(lexSpace, &fixedEmbedder{vec: []float32{1, 0, 0}}, sem, records)
	assert.True(t, errors.Is(err, ErrShapeMismatch), "model dimension must match corpus")

	_, err = New(nil, &fixedEmbedder{vec: []float32{1, 0}}, sem, records)
	assert.Error(t, err)
}

func TestSelectTop(t *testing.T) {
	scores := []float64{0.2, math.NaN(), 0.9, 0.2, 0.5}
	assert.Equal(t, []int{2, 4, 0, 3}, SelectTop(scores, 4))
	assert.Equal(t, []int{2, 4, 0, 3, 1}, SelectTop(scores, 10))
	assert.Nil(t, SelectTop(scores, 0))
	assert.Nil(t, SelectTop(nil, 3))
}

func TestFuse(t *testing.T) {
	got, err := Fuse([]float64{1, 0.5}, []float64{0, 0.5}, models.FusionWeights{Lexical: 0.4, Semantic: 0.6})
	require.NoError(t, err)
	assert.InDelta(t, 0.4, got[0], 1e-12)
	assert.InDelta(t, 0.5, got[1], 1e-12)

	_, err = Fuse([]float64{1}, nil, models.DefaultFusionWeights())
	assert.True(t, errors.Is(err, ErrShapeMismatch))
}

func TestDedupeByTitle(t *testing.T) {
	records := []models.CorpusRecord{{Title: "A"}, {Title: "B"}, {Title: "A"}, {Title: "C"}}
	assert.Equal(t, []int{2, 1, 3}, DedupeByTitle([]int{2, 0, 1, 3}, records, 5))
	assert.Equal(t, []int{2, 1}, DedupeByTitle([]int{2, 0, 1, 3}, records, 2))
	assert.Empty(t, DedupeByTitle([]int{0, 1}, records, 0))
}

func TestMatchLexical_SkipsModel(t *testing.T) {
	norm := normalize.New(normalize.WithTagger(nounTagger{}))
	v, lex, err := keywordtest.Fit([]string{"go backend", "python data"})
	require.NoError(t, err)
	lexSpace, err := keyword.NewSpace(v, lex)
	require.NoError(t, err)
	semSpace, err := vector.NewSpace([][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)

	slow := &fixedEmbedder{vec: []float32{1, 0}, delay: time.Second}
	m, err := New(lexSpace, slow, semSpace,
		[]models.CorpusRecord{{Title: "Backend Intern"}, {Title: "Data Intern"}},
		WithNormalizer(norm), WithScoringTimeout(time.Millisecond))
	require.NoError(t, err)

	got, err := m.MatchLexical(context.Background(), &models.QueryProfile{Skillsets: "python data"}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Data Intern", got[0].Record.Title)
	assert.Zero(t, got[0].SemanticScore)
	assert.Equal(t, got[0].LexicalScore, got[0].HybridScore)
}
