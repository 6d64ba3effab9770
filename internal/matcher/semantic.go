package matcher

import (
	"context"
	"errors"
	"fmt"
)

type embedResult struct {
	vec []float32
	err error
}

// semanticScores embeds text under the scoring timeout and scores it against
// every corpus embedding. A model that ignores cancellation is abandoned at
// the deadline; its goroutine finishes into a buffered channel.
func (m *Matcher) semanticScores(ctx context.Context, text string) ([]float64, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	done := make(chan embedResult, 1)
	go func() {
		vec, err := m.model.Embed(ctx, text)
		done <- embedResult{vec: vec, err: err}
	}()

	var res embedResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	if res.err != nil {
		if errors.Is(res.err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrScoringTimeout, m.timeout)
		}
		return nil, fmt.Errorf("embedding failed: %w", res.err)
	}
	if len(res.vec) != m.semantic.Dimensions() && m.semantic.Len() > 0 {
		return nil, fmt.Errorf("%w: profile embedding has %d dimensions, corpus has %d",
			ErrShapeMismatch, len(res.vec), m.semantic.Dimensions())
	}
	return m.semantic.Score(res.vec)
}
