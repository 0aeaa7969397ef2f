package llm

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable indicates the provider failed to produce a completion.
	ErrUnavailable = errors.New("llm: provider unavailable")

	// ErrTimeout indicates the completion did not finish within the turn's
	// time budget.
	ErrTimeout = errors.New("llm: completion timed out")
)

// classify maps a raw provider error to one of the sentinel errors so callers
// can make degrade-or-fail decisions with errors.Is.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.Join(ErrTimeout, err)
	}
	return errors.Join(ErrUnavailable, err)
}
