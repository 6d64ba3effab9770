// Package normalize turns profiles and listings into the canonical text that
// both scorers consume: a templated sentence followed by its sorted keywords.
package normalize

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/hyperjump/internmatch/internal/models"
)

const (
	profileTemplate = "Interested Roles: %s. Skillset: %s. Experience: %s. Achievements: %s."
	listingTemplate = "Title: %s. Description: %s. Required Skills: %s."
)

// Normalizer builds canonical documents. It holds no per-call state and is
// safe for concurrent use when its Tagger is.
type Normalizer struct {
	tagger Tagger
	lemmas *Lemmatizer
	stop   *StopWords
}

// The default tagger and lemmatizer are shared by every Normalizer so their
// models load once per process.
var (
	defaultTagger     = NewProseTagger()
	defaultLemmatizer = NewLemmatizer()
)

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithTagger replaces the default prose tagger.
func WithTagger(t Tagger) Option {
	return func(n *Normalizer) { n.tagger = t }
}

// New returns a Normalizer using the prose tagger, the golem lemmatizer and
// bleve stop words.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		tagger: defaultTagger,
		lemmas: defaultLemmatizer,
		stop:   NewStopWords(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Profile renders a query profile.
func (n *Normalizer) Profile(p *models.QueryProfile) (string, error) {
	if p == nil {
		return "", models.ErrMalformedProfile
	}
	sentence := fmt.Sprintf(profileTemplate, p.InterestedRoles, p.Skillsets, p.Experience, p.Achievements)
	return n.document(sentence)
}

// Listing renders a corpus record.
func (n *Normalizer) Listing(r *models.CorpusRecord) (string, error) {
	if r == nil {
		return "", models.ErrMalformedProfile
	}
	sentence := fmt.Sprintf(listingTemplate, r.Title, r.Description, r.RequiredSkills)
	return n.document(sentence)
}

// document appends the keyword augmentation. The separator is written even
// when there are no keywords.
func (n *Normalizer) document(sentence string) (string, error) {
	keywords, err := n.Keywords(sentence)
	if err != nil {
		return "", err
	}
	return sentence + " " + strings.Join(keywords, " "), nil
}

// Keywords returns the sorted, unique, lower-cased lemmas of the nouns,
// proper nouns, adjectives and verbs in text that are not stop words.
func (n *Normalizer) Keywords(text string) ([]string, error) {
	tokens, err := n.tagger.Tag(text)
	if err != nil {
		return nil, err
	}
	lower := cases.Lower(language.English)
	seen := make(map[string]struct{}, len(tokens))
	keywords := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Class() == ClassOther || !hasWordRune(tok.Text) {
			continue
		}
		word := lower.String(norm.NFKC.String(tok.Text))
		if n.stop.IsStop(word) {
			continue
		}
		lemma, err := n.lemmas.Lemma(word, tok.Tag)
		if err != nil {
			return nil, err
		}
		if lemma == "" {
			continue
		}
		if _, ok := seen[lemma]; ok {
			continue
		}
		seen[lemma] = struct{}{}
		keywords = append(keywords, lemma)
	}
	sort.Strings(keywords)
	return keywords, nil
}

func hasWordRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
