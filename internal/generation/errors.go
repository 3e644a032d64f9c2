package generation

import (
	"errors"
	"fmt"
)

// Common errors returned by the generation package
var (
	// ErrInvalidConfig is returned when a generator or provider is misconfigured
	ErrInvalidConfig = errors.New("invalid generation configuration")

	// ErrEmptyResponse is returned when a provider answers with no text
	ErrEmptyResponse = errors.New("empty response from language model")

	// ErrParse is returned when a response cannot be parsed into items
	ErrParse = errors.New("unable to parse items from response")

	// ErrNoProviderForTier is returned when a tier has no backend configured
	ErrNoProviderForTier = errors.New("no provider configured for tier")
)

// ProviderError is the normalized failure reported by provider adapters.
// Status carries the HTTP-like status code when the backend exposed one.
type ProviderError struct {
	Provider string
	Status   int
	Blocked  bool
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	switch {
	case e.Blocked:
		return fmt.Sprintf("%s: content blocked: %s", e.Provider, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// AbandonedError reports that a batch produced no usable candidates.
// Abandonment is recorded against the job but never aborts it.
type AbandonedError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *AbandonedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("batch abandoned: %s: %v", e.Reason, e.Err)
	}
	return "batch abandoned: " + e.Reason
}

// Unwrap returns the last provider error, if any.
func (e *AbandonedError) Unwrap() error {
	return e.Err
}

// IsAbandoned reports whether err is an AbandonedError.
func IsAbandoned(err error) bool {
	var ae *AbandonedError
	return errors.As(err, &ae)
}
