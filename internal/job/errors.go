package job

import "errors"

var (
	// ErrJobStore wraps job store failures. They are the only errors that
	// abort a run.
	ErrJobStore = errors.New("job store failure")

	// ErrInvalidConfig is returned when a component is misconfigured.
	ErrInvalidConfig = errors.New("invalid job configuration")
)
