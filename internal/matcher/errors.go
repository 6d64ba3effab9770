package matcher

import (
	"errors"

	"github.com/hyperjump/internmatch/internal/corpus"
	"github.com/hyperjump/internmatch/internal/models"
)

var (
	// ErrShapeMismatch is returned when the corpus artifacts disagree on length or dimension.
	ErrShapeMismatch = corpus.ErrShapeMismatch
	// ErrScoringTimeout is returned when embedding the profile exceeds the scoring timeout.
	ErrScoringTimeout = errors.New("semantic scoring timed out")
	// ErrMalformedProfile is returned for a missing or unparseable profile.
	ErrMalformedProfile = models.ErrMalformedProfile
)
