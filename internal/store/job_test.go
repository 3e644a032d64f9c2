package store_test

import (
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobUpdateApply(t *testing.T) {
	t.Parallel()

	job, err := domain.NewJob([]string{"a", "b"}, 5)
	require.NoError(t, err)

	now := time.Now().UTC().Add(time.Minute)
	update := store.JobUpdate{
		Status:           store.Ptr(domain.JobStatusProcessing),
		CurrentUnitIndex: store.Ptr(1),
		LastError:        store.Ptr("boom"),
		StartedAt:        store.Ptr(now),
	}
	assert.False(t, update.IsEmpty())

	update.Apply(job, now)

	assert.Equal(t, domain.JobStatusProcessing, job.Status)
	assert.Equal(t, 1, job.CurrentUnitIndex)
	assert.Equal(t, "boom", job.LastError)
	assert.False(t, job.IsPaused, "unset fields are untouched")
	require.NotNil(t, job.StartedAt)
	assert.Equal(t, now, *job.StartedAt)
	assert.Equal(t, now, job.UpdatedAt)
}

func TestJobUpdateIsEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, store.JobUpdate{}.IsEmpty())
	assert.False(t, store.JobUpdate{IsPaused: store.Ptr(false)}.IsEmpty())
}

func TestCounterDelta(t *testing.T) {
	t.Parallel()

	assert.True(t, store.CounterDelta{}.IsZero())
	assert.True(t, store.CounterDelta{Saved: 1}.Valid())
	assert.False(t, store.CounterDelta{Failed: -1}.Valid())
}

func TestErrorHierarchy(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.Is(store.ErrJobNotFound, store.ErrNotFound))
	assert.True(t, store.IsNotFoundError(store.ErrJobNotFound))
	assert.True(t, store.IsDuplicateError(store.ErrItemExists))
	assert.False(t, store.IsNotFoundError(store.ErrRejected))

	wrapped := store.NewStoreError("job", "update", "no rows", store.ErrJobNotFound)
	assert.ErrorIs(t, wrapped, store.ErrNotFound)
	assert.Contains(t, wrapped.Error(), "update operation on job failed")
}
