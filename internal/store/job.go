package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-bulkgen/internal/domain"
)

// JobUpdate is a partial update of a job record. Nil fields are left
// untouched. Concurrent updates are last-write-wins per field.
type JobUpdate struct {
	Status           *domain.JobStatus
	CurrentUnitIndex *int
	ShouldStop       *bool
	IsPaused         *bool
	LastError        *string
	StartedAt        *time.Time
	CompletedAt      *time.Time
}

// IsEmpty reports whether the update changes nothing.
func (u JobUpdate) IsEmpty() bool {
	return u.Status == nil && u.CurrentUnitIndex == nil && u.ShouldStop == nil &&
		u.IsPaused == nil && u.LastError == nil && u.StartedAt == nil && u.CompletedAt == nil
}

// Apply copies the set fields of u onto job and bumps UpdatedAt.
// Store implementations without native partial updates use it.
func (u JobUpdate) Apply(job *domain.Job, now time.Time) {
	if u.Status != nil {
		job.Status = *u.Status
	}
	if u.CurrentUnitIndex != nil {
		job.CurrentUnitIndex = *u.CurrentUnitIndex
	}
	if u.ShouldStop != nil {
		job.ShouldStop = *u.ShouldStop
	}
	if u.IsPaused != nil {
		job.IsPaused = *u.IsPaused
	}
	if u.LastError != nil {
		job.LastError = *u.LastError
	}
	if u.StartedAt != nil {
		t := *u.StartedAt
		job.StartedAt = &t
	}
	if u.CompletedAt != nil {
		t := *u.CompletedAt
		job.CompletedAt = &t
	}
	job.UpdatedAt = now
}

// CounterDelta is an atomic increment applied to the job counters.
// Deltas are never negative, so counters only grow.
type CounterDelta struct {
	Generated int
	Saved     int
	Failed    int
}

// IsZero reports whether the delta adds nothing.
func (d CounterDelta) IsZero() bool {
	return d.Generated == 0 && d.Saved == 0 && d.Failed == 0
}

// Valid reports whether every component of the delta is non-negative.
func (d CounterDelta) Valid() bool {
	return d.Generated >= 0 && d.Saved >= 0 && d.Failed >= 0
}

// JobStore defines the interface for job state persistence. It is the single
// source of truth for progress and control flags, and every read must observe
// the latest committed write.
type JobStore interface {
	// Create persists a new pending job for the given units.
	// Returns ErrInvalidEntity wrapping the domain error if the input is invalid.
	Create(ctx context.Context, units []string, itemsPerUnit int) (*domain.Job, error)

	// Get returns a fresh copy of the job.
	// Returns ErrJobNotFound if the job does not exist.
	Get(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// Update applies a partial update.
	// Returns ErrJobNotFound if the job does not exist.
	Update(ctx context.Context, id uuid.UUID, update JobUpdate) error

	// IncrementCounters atomically adds delta to the job counters.
	// Returns ErrJobNotFound if the job does not exist and ErrInvalidEntity
	// if the delta is negative.
	IncrementCounters(ctx context.Context, id uuid.UUID, delta CounterDelta) error

	// ListStale returns non-terminal jobs whose last update is older than
	// olderThan.
	ListStale(ctx context.Context, olderThan time.Time) ([]*domain.Job, error)

	// ListActive returns all non-terminal jobs that are not paused.
	ListActive(ctx context.Context) ([]*domain.Job, error)
}

// Ptr returns a pointer to v. It keeps JobUpdate literals short.
func Ptr[T any](v T) *T {
	return &v
}
