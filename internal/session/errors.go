package session

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation references a session id that does
// not exist. Callers map it to a client-visible "not found"; it is never
// retried internally.
var ErrNotFound = errors.New("session not found")

// ValidationError reports malformed input: a bad role, an out-of-range
// parameter, or an invalid import payload. The operation that returns it was
// rejected whole; nothing was applied.
type ValidationError struct {
	Field  string // offending field, when known
	Index  int    // offending element index for batch input, -1 otherwise
	Reason string
}

// NewValidationError builds a ValidationError with no batch index.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Index: -1, Reason: reason}
}

func (e *ValidationError) Error() string {
	switch {
	case e.Field != "" && e.Index >= 0:
		return fmt.Sprintf("invalid %s at index %d: %s", e.Field, e.Index, e.Reason)
	case e.Index >= 0:
		return fmt.Sprintf("invalid entry at index %d: %s", e.Index, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	default:
		return e.Reason
	}
}

// IsValidation returns true if err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
