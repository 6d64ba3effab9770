package normalize

import (
	"fmt"
	"strings"
	"sync"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

// Lemmatizer maps inflected words to their dictionary form with golem's
// English lookup table. The Penn Treebank tag decides whether a word is
// inflected at all: base forms are returned unchanged.
type Lemmatizer struct {
	once sync.Once
	dict *golem.Lemmatizer
	err  error
}

// NewLemmatizer returns a lemmatizer whose dictionary is loaded on first use.
func NewLemmatizer() *Lemmatizer {
	return &Lemmatizer{}
}

func (l *Lemmatizer) load() (*golem.Lemmatizer, error) {
	l.once.Do(func() {
		l.dict, l.err = golem.New(en.New())
		if l.err != nil {
			l.err = fmt.Errorf("failed to load lemma dictionary: %w", l.err)
		}
	})
	return l.dict, l.err
}

// Lemma returns the dictionary form of a lower-cased word given its tag.
func (l *Lemmatizer) Lemma(word, tag string) (string, error) {
	if !inflected(tag) {
		return word, nil
	}
	dict, err := l.load()
	if err != nil {
		return "", err
	}
	for _, lemma := range dict.Lemmas(word) {
		if lemma != word {
			return lemma, nil
		}
	}
	return fallbackLemma(word, tag), nil
}

// inflected reports whether tag marks a plural, past, participle, third
// person or comparative form.
func inflected(tag string) bool {
	switch tag {
	case "NNS", "NNPS", "VBD", "VBN", "VBG", "VBZ", "JJR", "JJS":
		return true
	}
	return false
}

// fallbackLemma strips a plural or third person "s" from words missing in
// the dictionary, such as product names and acronyms ("apis", "sdks").
func fallbackLemma(w, tag string) string {
	switch tag {
	case "NNS", "NNPS", "VBZ":
	default:
		return w
	}
	switch {
	case len(w) <= 3:
		return w
	case strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "sses"), strings.HasSuffix(w, "xes"),
		strings.HasSuffix(w, "ches"), strings.HasSuffix(w, "shes"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ss"), strings.HasSuffix(w, "us"):
		return w
	case strings.HasSuffix(w, "s"):
		return w[:len(w)-1]
	}
	return w
}
