package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a bulk generation job
type JobStatus string

// Possible job status values
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusPaused     JobStatus = "paused"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Common validation errors for Job
var (
	ErrEmptyJobID          = errors.New("job ID cannot be empty")
	ErrNoUnits             = errors.New("job must have at least one unit")
	ErrEmptyUnit           = errors.New("unit identifier cannot be empty")
	ErrInvalidItemsPerUnit = errors.New("items per unit must be positive")
	ErrInvalidJobStatus    = errors.New("invalid job status")
	ErrUnitIndexOutOfRange = errors.New("current unit index out of range")
	ErrNegativeCounter     = errors.New("job counters cannot be negative")
	ErrSavedExceedsTotal   = errors.New("total saved cannot exceed total generated")
)

// validTransitions lists the statuses reachable from each non-terminal status.
// Terminal statuses have no outgoing transitions.
var validTransitions = map[JobStatus][]JobStatus{
	JobStatusPending: {
		JobStatusProcessing, JobStatusPaused, JobStatusFailed, JobStatusCancelled,
	},
	JobStatusProcessing: {
		JobStatusPaused, JobStatusCompleted, JobStatusFailed, JobStatusCancelled,
	},
	JobStatusPaused: {
		JobStatusProcessing, JobStatusFailed, JobStatusCancelled,
	},
}

// IsValid reports whether s is one of the known job statuses.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusPaused,
		JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether s is a final state. Terminal jobs never revert.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// CanTransitionTo reports whether a job may move from s to next.
// Staying in the same non-terminal status is always allowed.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if s == next {
		return true
	}
	for _, candidate := range validTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Job is a bulk generation run over an immutable, ordered list of units.
// Progress fields are written only by the orchestrator; the control flags
// ShouldStop and IsPaused are written only by the control plane.
type Job struct {
	ID               uuid.UUID  `json:"id"`
	Units            []string   `json:"units"`
	ItemsPerUnit     int        `json:"items_per_unit"`
	Status           JobStatus  `json:"status"`
	CurrentUnitIndex int        `json:"current_unit_index"`
	ShouldStop       bool       `json:"should_stop"`
	IsPaused         bool       `json:"is_paused"`
	TotalGenerated   int        `json:"total_generated"`
	TotalSaved       int        `json:"total_saved"`
	TotalFailed      int        `json:"total_failed"`
	LastError        string     `json:"last_error,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a pending Job for the given units. Unit identifiers are
// trimmed; the resulting list is copied so later mutation of the caller's
// slice cannot change the job.
func NewJob(units []string, itemsPerUnit int) (*Job, error) {
	cleaned := make([]string, 0, len(units))
	for _, u := range units {
		cleaned = append(cleaned, strings.TrimSpace(u))
	}

	now := time.Now().UTC()
	job := &Job{
		ID:           uuid.New(),
		Units:        cleaned,
		ItemsPerUnit: itemsPerUnit,
		Status:       JobStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// Validate checks the static invariants of the job.
func (j *Job) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyJobID
	}

	if len(j.Units) == 0 {
		return ErrNoUnits
	}

	for i, u := range j.Units {
		if u == "" {
			return fmt.Errorf("%w: position %d", ErrEmptyUnit, i)
		}
	}

	if j.ItemsPerUnit <= 0 {
		return ErrInvalidItemsPerUnit
	}

	if !j.Status.IsValid() {
		return ErrInvalidJobStatus
	}

	if j.CurrentUnitIndex < 0 || j.CurrentUnitIndex > len(j.Units) {
		return ErrUnitIndexOutOfRange
	}

	if j.TotalGenerated < 0 || j.TotalSaved < 0 || j.TotalFailed < 0 {
		return ErrNegativeCounter
	}

	if j.TotalSaved > j.TotalGenerated {
		return ErrSavedExceedsTotal
	}

	return nil
}

// TotalUnits returns the number of units in the job.
func (j *Job) TotalUnits() int {
	return len(j.Units)
}

// IsFinished reports whether every unit has been checkpointed.
func (j *Job) IsFinished() bool {
	return j.CurrentUnitIndex >= len(j.Units)
}

// Clone returns a deep copy of the job.
func (j *Job) Clone() *Job {
	c := *j
	c.Units = append([]string(nil), j.Units...)
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
