// Package service contains the job control plane: the use cases behind the
// HTTP API that start, pause, resume, cancel, inspect and recover bulk
// generation jobs.
//
// The service writes only the operator-owned control flags of a job; status,
// progress and counters belong to the orchestrator. Scheduling is decoupled
// through events: the service emits job lifecycle events and the task
// package's handler submits the affected job to the runner.
//
// Error handling:
//   - Expected conditions are sentinel errors (ErrJobNotFound,
//     ErrInvalidTransition, ErrNotStale, ErrInvalidRequest)
//   - Unexpected failures are wrapped in *JobServiceError
//   - The API layer maps both to HTTP status codes
package service
