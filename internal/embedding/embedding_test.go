package embedding

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugarme/tokenizer"

	"github.com/hyperjump/internmatch/internal/config"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Get("a")                // a is now most recent
	c.Set("c", []float32{6}) // evicts b
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to remain")
	}
	if c.Len() != 2 {
		t.Errorf("Len: got %d", c.Len())
	}
}

type countingEmbedder struct {
	*HashEmbedder
	calls int
	texts int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	c.texts++
	return c.HashEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.texts += len(texts)
	return c.HashEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{HashEmbedder: NewHashEmbedder(16)}
	e := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	first, err := e.Embed(ctx, "go developer")
	require.NoError(t, err)
	second, err := e.Embed(ctx, "go developer")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)

	out, err := e.EmbedBatch(ctx, []string{"go developer", "data analyst"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, first, out[0])
	assert.Equal(t, 2, inner.texts, "only the uncached text is embedded")
	assert.Equal(t, 16, e.Dimensions())
}

func TestNewCachedEmbedder_disabled(t *testing.T) {
	inner := NewHashEmbedder(8)
	assert.Same(t, inner, NewCachedEmbedder(inner, 0))
}

func TestHashEmbedder(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "Python data science")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "python, DATA science!")
	require.NoError(t, err)
	assert.Equal(t, a, b, "tokenization ignores case and punctuation")

	var norm float64
	for _, x := range a {
		norm += float64(x * x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)

	zero, err := e.Embed(ctx, "   ")
	require.NoError(t, err)
	for _, x := range zero {
		assert.Equal(t, float32(0), x)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = e.Embed(cancelled, "x")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types, err := tok.Tokenize("hello world", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("lengths: %d %d %d", len(ids), len(attn), len(types))
	}
	if ids[0] != clsTokenID {
		t.Errorf("expected CLS %d, got %d", clsTokenID, ids[0])
	}
	if ids[3] != sepTokenID {
		t.Errorf("expected SEP at 3, got %d", ids[3])
	}
	if attn[3] != 1 || attn[4] != 0 {
		t.Errorf("attention mask: %v", attn)
	}

	ids, _, _, _ = tok.Tokenize("a b c d e f", 4)
	if ids[3] != sepTokenID {
		t.Errorf("truncated sequence should end with SEP, got %v", ids)
	}
}

func TestHashString(t *testing.T) {
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
	if HashString("abc") == HashString("abd") {
		t.Error("different strings should hash differently")
	}
}

func TestMeanPool(t *testing.T) {
	states := []float32{
		1, 2,
		3, 4,
		100, 100,
	}
	got := MeanPool(states, []int64{1, 1, 0}, 2)
	assert.Equal(t, []float32{2, 3}, got)
	assert.Equal(t, []float32{0, 0}, MeanPool(states, []int64{0, 0, 0}, 2))
}

func TestCLSPool(t *testing.T) {
	states := []float32{
		1, 2,
		3, 4,
	}
	got := CLSPool(states, 2)
	assert.Equal(t, []float32{1, 2}, got)
	got[0] = 9
	assert.Equal(t, float32(1), states[0], "pooled vector must not alias the output tensor")
}

func TestONNXOptions_defaults(t *testing.T) {
	o := ONNXOptions{}.withDefaults()
	assert.Equal(t, 768, o.Dimensions)
	assert.Equal(t, "last_hidden_state", o.OutputName)
	assert.Equal(t, PoolingMean, o.Pooling)
	assert.NoError(t, o.validate())
	assert.True(t, o.Pooling.tokenStates())
}

func TestONNXOptions_pooling(t *testing.T) {
	for _, p := range []Pooling{PoolingMean, PoolingCLS, PoolingNone} {
		assert.NoError(t, ONNXOptions{Pooling: p}.withDefaults().validate(), p)
	}
	assert.True(t, PoolingCLS.tokenStates())
	assert.False(t, PoolingNone.tokenStates())
	assert.Error(t, ONNXOptions{Pooling: "max"}.withDefaults().validate())
}

func TestFitEncoding(t *testing.T) {
	// [CLS] go sql docker [SEP]
	enc := &tokenizer.Encoding{
		Ids:              []int{101, 2175, 29296, 8946, 102},
		TypeIds:          []int{0, 0, 0, 0, 0},
		SpecialTokenMask: []int{1, 0, 0, 0, 1},
		AttentionMask:    []int{1, 1, 1, 1, 1},
	}

	ids, attn, types := fitEncoding(enc, 8)
	assert.Equal(t, []int64{101, 2175, 29296, 8946, 102, 0, 0, 0}, ids)
	assert.Equal(t, []int64{1, 1, 1, 1, 1, 0, 0, 0}, attn)
	assert.Equal(t, make([]int64, 8), types)

	ids, attn, _ = fitEncoding(enc, 4)
	assert.Equal(t, []int64{101, 2175, 29296, 102}, ids, "cut sequence keeps the closing separator")
	assert.Equal(t, []int64{1, 1, 1, 1}, attn)

	padded := &tokenizer.Encoding{
		Ids:              []int{101, 2175, 102, 0, 0},
		SpecialTokenMask: []int{1, 0, 1, 1, 1},
		AttentionMask:    []int{1, 1, 1, 0, 0},
	}
	ids, attn, _ = fitEncoding(padded, 2)
	assert.Equal(t, []int64{101, 102}, ids, "tokenizer padding is not mistaken for the closing token")
	assert.Equal(t, []int64{1, 1}, attn)

	plain := &tokenizer.Encoding{Ids: []int{5, 6, 7}, SpecialTokenMask: []int{0, 0, 0}}
	ids, _, _ = fitEncoding(plain, 2)
	assert.Equal(t, []int64{5, 6}, ids)
}

func TestNewHFTokenizer_missingFile(t *testing.T) {
	_, err := NewHFTokenizer(filepath.Join(t.TempDir(), "tokenizer.json"))
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	e, err := New(&config.EmbeddingConfig{Provider: ProviderHash, Dimensions: 32, CacheSize: 4}, nil)
	require.NoError(t, err)
	assert.Equal(t, 32, e.Dimensions())
	_, isCached := e.(*CachedEmbedder)
	assert.True(t, isCached)

	_, err = New(&config.EmbeddingConfig{Provider: "word2vec"}, nil)
	assert.Error(t, err)

	_, err = New(&config.EmbeddingConfig{Provider: ProviderOpenAI, Dimensions: 8}, nil)
	assert.Error(t, err, "openai provider requires a model")

	_, err = New(&config.EmbeddingConfig{Provider: ProviderONNX, TokenizerPath: "/nonexistent/tokenizer.json"}, nil)
	assert.Error(t, err)
}

func TestNewOpenAIEmbedder(t *testing.T) {
	e, err := NewOpenAIEmbedder(OpenAIOptions{
		Host:              "http://127.0.0.1:1/v1",
		Model:             "nomic-embed-text",
		Dimensions:        768,
		RequestsPerSecond: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 768, e.Dimensions())
	assert.NotNil(t, e.limiter)
	assert.NoError(t, e.Close())
}
