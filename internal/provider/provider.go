// Package provider defines the model-provider collaborator the gateway calls
// to turn a prompt plus context into an assistant reply.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/relay/internal/session"
)

// ErrEmptyReply is returned when a provider call succeeds at the transport
// level but yields no usable text.
var ErrEmptyReply = errors.New("provider returned an empty reply")

// Params carries optional generation parameters, passed through to the
// provider untouched.
type Params struct {
	Temperature     *float32
	MaxOutputTokens *int32
}

// Request is one completion call: a system prompt, the selected context
// window and the new user prompt.
type Request struct {
	SystemPrompt string
	Context      []session.Message
	Prompt       string
	Params       Params
}

// Provider is a model-completion backend. Implementations do not retry;
// failures surface to the caller as-is.
type Provider interface {
	// Name returns the provider identifier, e.g. "gemini".
	Name() string

	// Complete sends the request to the model and returns the assistant text.
	Complete(ctx context.Context, req Request) (string, error)

	// List returns the model names available from this provider.
	List(ctx context.Context) ([]string, error)
}

// Error wraps a failure from a named provider so callers can tell provider
// faults apart from store and validation errors.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsProviderError returns true if err is (or wraps) a provider Error.
func IsProviderError(err error) bool {
	var pe *Error
	return errors.As(err, &pe)
}
