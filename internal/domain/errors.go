package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrJobStopRequested is returned when an operator has asked the job to stop.
	ErrJobStopRequested = errors.New("job stop requested")

	// ErrJobPaused is returned when a job stayed paused past the bounded wait.
	ErrJobPaused = errors.New("job paused")

	// ErrJobTerminal is returned when work is requested on a finished job.
	ErrJobTerminal = errors.New("job is in a terminal state")
)

// ValidationError names the field that failed validation. It unwraps to
// the sentinel passed to NewValidationError.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

// Unwrap returns the wrapped sentinel.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
