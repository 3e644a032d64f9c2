package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	t.Parallel()

	units := []string{" Fitness ", "Legal"}
	job, err := NewJob(units, 10)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, job.ID)
	assert.Equal(t, []string{"Fitness", "Legal"}, job.Units)
	assert.Equal(t, 10, job.ItemsPerUnit)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 0, job.CurrentUnitIndex)
	assert.Equal(t, 2, job.TotalUnits())
	assert.False(t, job.CreatedAt.IsZero())
	assert.False(t, job.UpdatedAt.IsZero())
	assert.Nil(t, job.StartedAt)

	units[0] = "Changed"
	assert.Equal(t, "Fitness", job.Units[0], "job must not share the caller's slice")
}

func TestNewJob_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		units        []string
		itemsPerUnit int
		wantErr      error
	}{
		{"no units", nil, 10, ErrNoUnits},
		{"blank unit", []string{"Fitness", "  "}, 10, ErrEmptyUnit},
		{"zero items", []string{"Fitness"}, 0, ErrInvalidItemsPerUnit},
		{"negative items", []string{"Fitness"}, -3, ErrInvalidItemsPerUnit},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			job, err := NewJob(tc.units, tc.itemsPerUnit)
			assert.Nil(t, job)
			assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
		})
	}
}

func TestJobValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Job {
		j, err := NewJob([]string{"a", "b"}, 5)
		require.NoError(t, err)
		return j
	}

	j := valid()
	j.CurrentUnitIndex = 2
	assert.NoError(t, j.Validate(), "index equal to len(units) means finished")

	j = valid()
	j.CurrentUnitIndex = 3
	assert.ErrorIs(t, j.Validate(), ErrUnitIndexOutOfRange)

	j = valid()
	j.TotalGenerated = 4
	j.TotalSaved = 5
	assert.ErrorIs(t, j.Validate(), ErrSavedExceedsTotal)

	j = valid()
	j.TotalFailed = -1
	assert.ErrorIs(t, j.Validate(), ErrNegativeCounter)

	j = valid()
	j.Status = "exploded"
	assert.ErrorIs(t, j.Validate(), ErrInvalidJobStatus)

	j = valid()
	j.ID = uuid.Nil
	assert.ErrorIs(t, j.Validate(), ErrEmptyJobID)
}

func TestJobStatusTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from JobStatus
		to   JobStatus
		want bool
	}{
		{JobStatusPending, JobStatusProcessing, true},
		{JobStatusPending, JobStatusPaused, true},
		{JobStatusPending, JobStatusCompleted, false},
		{JobStatusProcessing, JobStatusPaused, true},
		{JobStatusProcessing, JobStatusCompleted, true},
		{JobStatusProcessing, JobStatusPending, false},
		{JobStatusPaused, JobStatusProcessing, true},
		{JobStatusPaused, JobStatusCancelled, true},
		{JobStatusPaused, JobStatusCompleted, false},
		{JobStatusProcessing, JobStatusProcessing, true},
		{JobStatusCompleted, JobStatusProcessing, false},
		{JobStatusFailed, JobStatusPending, false},
		{JobStatusCancelled, JobStatusCancelled, false},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestJobStatusIsTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
	assert.True(t, JobStatusCancelled.IsTerminal())
	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusProcessing.IsTerminal())
	assert.False(t, JobStatusPaused.IsTerminal())
}

func TestJobClone(t *testing.T) {
	t.Parallel()

	j, err := NewJob([]string{"a"}, 1)
	require.NoError(t, err)
	now := j.CreatedAt
	j.StartedAt = &now

	c := j.Clone()
	c.Units[0] = "z"
	later := now.Add(1)
	*c.StartedAt = later

	assert.Equal(t, "a", j.Units[0])
	assert.Equal(t, now, *j.StartedAt)
}
