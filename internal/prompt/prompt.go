// Package prompt selects the slice of prior conversation sent to the model
// provider alongside a new prompt.
package prompt

import (
	"fmt"

	"github.com/anthropics/relay/internal/session"
)

const (
	// DefaultWindow is the number of conversation turns of context included
	// when the caller does not choose one.
	DefaultWindow = 10

	// MaxWindow bounds the context window a caller may request.
	MaxWindow = 50
)

// ValidateWindow checks a context window against the allowed range.
func ValidateWindow(window int) error {
	if window < 0 || window > MaxWindow {
		return session.NewValidationError("window", fmt.Sprintf("must be between 0 and %d turns", MaxWindow))
	}
	return nil
}

// Window returns the messages to accompany a new prompt: the last 2*window
// messages in conversation order, where window counts user+assistant turns.
// A window of 0 selects nothing; a session shorter than the window is
// returned whole. The input is never mutated.
func Window(msgs []session.Message, window int) ([]session.Message, error) {
	if err := ValidateWindow(window); err != nil {
		return nil, err
	}
	n := 2 * window
	if n > len(msgs) {
		n = len(msgs)
	}
	out := make([]session.Message, n)
	copy(out, msgs[len(msgs)-n:])
	return out, nil
}
