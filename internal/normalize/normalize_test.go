package normalize

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/internmatch/internal/models"
)

// stubTagger splits on non-word runes and tags from a fixed table; unknown words get DT.
type stubTagger map[string]string

func (s stubTagger) Tag(text string) ([]Token, error) {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
	out := make([]Token, 0, len(words))
	for _, w := range words {
		tag, ok := s[strings.ToLower(w)]
		if !ok {
			tag = "DT"
		}
		out = append(out, Token{Text: w, Tag: tag})
	}
	return out, nil
}

var testTags = stubTagger{
	"interested":   "VBN",
	"roles":        "NNS",
	"data":         "NNP",
	"science":      "NNP",
	"skillset":     "NN",
	"python":       "NNP",
	"experience":   "NN",
	"achievements": "NNS",
	"title":        "NN",
	"description":  "NN",
	"required":     "VBN",
	"skills":       "NNS",
	"the":          "NN",
	"built":        "VBD",
	"services":     "NNS",
}

func TestNormalizer_Profile(t *testing.T) {
	n := New(WithTagger(testTags))
	got, err := n.Profile(&models.QueryProfile{InterestedRoles: "Data Science", Skillsets: "Python"})
	require.NoError(t, err)
	want := "Interested Roles: Data Science. Skillset: Python. Experience: . Achievements: ." +
		" achievement data experience interest python role science skillset"
	assert.Equal(t, want, got)
}

func TestNormalizer_ListingEmptyFields(t *testing.T) {
	n := New(WithTagger(testTags))
	got, err := n.Listing(&models.CorpusRecord{})
	require.NoError(t, err)
	assert.Equal(t, "Title: . Description: . Required Skills: . description require skill title", got)
}

func TestNormalizer_NoKeywordsKeepsSeparator(t *testing.T) {
	n := New(WithTagger(stubTagger{}))
	got, err := n.Listing(&models.CorpusRecord{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Title: x. Description: . Required Skills: . ", got)
}

func TestNormalizer_DedupAndStopWords(t *testing.T) {
	n := New(WithTagger(stubTagger{"python": "NNP", "the": "NN", "built": "VBD", "services": "NNS"}))
	kw, err := n.Keywords("Python, python and the PYTHON; built services")
	require.NoError(t, err)
	assert.Equal(t, []string{"build", "python", "service"}, kw)
}

func TestNormalizer_Deterministic(t *testing.T) {
	n := New()
	p := &models.QueryProfile{
		InterestedRoles: "Backend Developer",
		Skillsets:       "Go, PostgreSQL, Docker",
		Experience:      "Built payment services for two years",
		Achievements:    "Won a national hackathon",
	}
	first, err := n.Profile(p)
	require.NoError(t, err)
	second, err := n.Profile(p)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first,
		"Interested Roles: Backend Developer. Skillset: Go, PostgreSQL, Docker. Experience: Built payment services for two years. Achievements: Won a national hackathon. "))
}

func TestNormalizer_SharedModelConcurrent(t *testing.T) {
	assert.Same(t, New().tagger, New().tagger, "normalizers share one tagger")

	n := New()
	profiles := []*models.QueryProfile{
		{InterestedRoles: "Data Science", Skillsets: "Python, Pandas", Experience: "Analyzed sales datasets"},
		{InterestedRoles: "Backend Developer", Skillsets: "Go, PostgreSQL", Achievements: "Won a hackathon"},
		{InterestedRoles: "UI Designer", Skillsets: "Figma", Experience: "Designed mobile screens"},
	}
	want := make([]string, len(profiles))
	for i, p := range profiles {
		var err error
		want[i], err = n.Profile(p)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 16*len(profiles))
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := range profiles {
				k := (i + g) % len(profiles)
				got, err := New().Profile(profiles[k])
				if err != nil {
					errs <- err
					continue
				}
				if got != want[k] {
					errs <- fmt.Errorf("profile %d: got %q, want %q", k, got, want[k])
				}
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestNormalizer_NilInput(t *testing.T) {
	n := New(WithTagger(testTags))
	_, err := n.Profile(nil)
	assert.True(t, errors.Is(err, models.ErrMalformedProfile))
	_, err = n.Listing(nil)
	assert.True(t, errors.Is(err, models.ErrMalformedProfile))
}

func TestLemmatizer_Lemma(t *testing.T) {
	l := NewLemmatizer()
	tests := []struct {
		word, tag, want string
	}{
		{"developed", "VBD", "develop"},
		{"running", "VBG", "run"},
		{"studied", "VBD", "study"},
		{"skills", "NNS", "skill"},
		{"technologies", "NNS", "technology"},
		{"services", "NNS", "service"},
		{"children", "NNS", "child"},
		{"apis", "NNS", "api"},
		{"business", "NN", "business"},
		{"other", "JJ", "other"},
		{"python", "NNP", "python"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.word+"/"+tt.tag, func(t *testing.T) {
			got, err := l.Lemma(tt.word, tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFallbackLemma(t *testing.T) {
	tests := []struct {
		word, tag, want string
	}{
		{"apis", "NNS", "api"},
		{"sdks", "NNPS", "sdk"},
		{"deploys", "VBZ", "deploy"},
		{"repositories", "NNS", "repository"},
		{"matches", "NNS", "match"},
		{"boxes", "NNS", "box"},
		{"classes", "NNS", "class"},
		{"kubernetes", "NN", "kubernetes"},
		{"status", "NNS", "status"},
		{"gas", "NNS", "gas"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, fallbackLemma(tt.word, tt.tag))
		})
	}
}

func TestStopWords(t *testing.T) {
	s := NewStopWords()
	assert.True(t, s.IsStop("the"))
	assert.True(t, s.IsStop("and"))
	assert.True(t, s.IsStop(","))
	assert.False(t, s.IsStop("python"))
}

func TestToken_Class(t *testing.T) {
	assert.Equal(t, ClassProperNoun, Token{Tag: "NNPS"}.Class())
	assert.Equal(t, ClassNoun, Token{Tag: "NNS"}.Class())
	assert.Equal(t, ClassAdjective, Token{Tag: "JJR"}.Class())
	assert.Equal(t, ClassVerb, Token{Tag: "VBG"}.Class())
	assert.Equal(t, ClassOther, Token{Tag: "DT"}.Class())
}
