package normalize

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jdkato/prose/v2"
)

// Class is a coarse part-of-speech class.
type Class int

const (
	ClassOther Class = iota
	ClassNoun
	ClassProperNoun
	ClassAdjective
	ClassVerb
)

// Token is a tagged token. Tag is a Penn Treebank tag.
type Token struct {
	Text string
	Tag  string
}

// Class maps the Penn Treebank tag to a coarse class.
func (t Token) Class() Class {
	switch {
	case strings.HasPrefix(t.Tag, "NNP"):
		return ClassProperNoun
	case strings.HasPrefix(t.Tag, "NN"):
		return ClassNoun
	case strings.HasPrefix(t.Tag, "JJ"):
		return ClassAdjective
	case strings.HasPrefix(t.Tag, "VB"):
		return ClassVerb
	default:
		return ClassOther
	}
}

// Tagger assigns part-of-speech tags to text.
type Tagger interface {
	Tag(text string) ([]Token, error)
}

// ProseTagger tags with the averaged perceptron model bundled in prose. The
// model is loaded on first use and shared by all calls; tagging only reads it.
type ProseTagger struct {
	once  sync.Once
	model *prose.Model
}

// NewProseTagger returns a tagger whose model is loaded lazily.
func NewProseTagger() *ProseTagger {
	return &ProseTagger{}
}

func (t *ProseTagger) loadModel() *prose.Model {
	t.once.Do(func() {
		t.model = prose.ModelFromData("en")
	})
	return t.model
}

// Tag tokenizes and tags text. Segmentation and entity extraction are disabled.
func (t *ProseTagger) Tag(text string) ([]Token, error) {
	doc, err := prose.NewDocument(text,
		prose.UsingModel(t.loadModel()),
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to tag text: %w", err)
	}
	tokens := doc.Tokens()
	out := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, Token{Text: tok.Text, Tag: tok.Tag})
	}
	return out, nil
}
