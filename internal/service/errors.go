package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/scry-bulkgen/internal/store"
)

// Common service errors. Callers check them with errors.Is; the API layer
// maps them to HTTP status codes.
var (
	// ErrJobNotFound indicates the job does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidTransition indicates a control request that the job's current
	// state does not allow, such as resuming a job that is not paused or
	// cancelling a finished job.
	// API layer should map this to HTTP 409 Conflict.
	ErrInvalidTransition = errors.New("invalid job state transition")

	// ErrNotStale indicates a recover request for a job that is still making
	// progress. Use force to override.
	// API layer should map this to HTTP 409 Conflict.
	ErrNotStale = errors.New("job is not stale")

	// ErrInvalidRequest indicates malformed start parameters.
	// API layer should map this to HTTP 400 Bad Request.
	ErrInvalidRequest = errors.New("invalid job request")
)

// JobServiceError wraps unexpected errors from the job service with context.
type JobServiceError struct {
	// Operation is the operation that failed (e.g. "pause_job")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for JobServiceError.
func (e *JobServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("job service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("job service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *JobServiceError) Unwrap() error {
	return e.Err
}

// NewJobServiceError creates a JobServiceError. Known sentinel errors are
// returned directly, and store not-found errors become ErrJobNotFound.
func NewJobServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrJobNotFound), errors.Is(err, store.ErrJobNotFound):
		return ErrJobNotFound
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrNotStale),
		errors.Is(err, ErrInvalidRequest):
		return err
	}

	return &JobServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
