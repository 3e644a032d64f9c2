package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/events"
	"github.com/phrazzld/scry-bulkgen/internal/mocks"
	"github.com/phrazzld/scry-bulkgen/internal/service"
	"github.com/phrazzld/scry-bulkgen/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (service.JobService, *mocks.MemoryJobStore, *mocks.MockEventEmitter) {
	t.Helper()

	jobs := mocks.NewMemoryJobStore()
	emitter := &mocks.MockEventEmitter{}
	svc, err := service.NewJobService(jobs, emitter, service.JobServiceConfig{StaleAfter: 10 * time.Minute},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return svc, jobs, emitter
}

func TestNewJobService_RequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := service.NewJobService(nil, &mocks.MockEventEmitter{}, service.JobServiceConfig{}, nil)
	var svcErr *service.JobServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "create_service", svcErr.Operation)

	_, err = service.NewJobService(mocks.NewMemoryJobStore(), nil, service.JobServiceConfig{}, nil)
	require.Error(t, err)
}

func TestStart(t *testing.T) {
	t.Parallel()

	t.Run("creates pending job and schedules it", func(t *testing.T) {
		t.Parallel()
		svc, jobs, emitter := newService(t)

		job, err := svc.Start(context.Background(), []string{" Fitness ", "Legal"}, 10)
		require.NoError(t, err)

		assert.Equal(t, domain.JobStatusPending, job.Status)
		assert.Equal(t, []string{"Fitness", "Legal"}, job.Units)
		assert.NotNil(t, jobs.Snapshot(job.ID))

		evs := emitter.Events()
		require.Len(t, evs, 1)
		assert.Equal(t, events.JobStarted, evs[0].Type)
		assert.Equal(t, job.ID, evs[0].JobID)
	})

	t.Run("invalid request", func(t *testing.T) {
		t.Parallel()
		svc, _, emitter := newService(t)

		_, err := svc.Start(context.Background(), nil, 10)
		require.ErrorIs(t, err, service.ErrInvalidRequest)
		require.ErrorIs(t, err, domain.ErrNoUnits)

		_, err = svc.Start(context.Background(), []string{"Fitness"}, 0)
		require.ErrorIs(t, err, service.ErrInvalidRequest)
		assert.Empty(t, emitter.Events())
	})

	t.Run("scheduling failure keeps the job", func(t *testing.T) {
		t.Parallel()
		svc, jobs, emitter := newService(t)
		emitter.EmitFn = func(ctx context.Context, event *events.JobEvent) error {
			return errors.New("queue full")
		}

		job, err := svc.Start(context.Background(), []string{"Fitness"}, 5)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusPending, jobs.Snapshot(job.ID).Status)
	})
}

func TestControlTransitions(t *testing.T) {
	t.Parallel()

	type op func(svc service.JobService, id uuid.UUID) error
	pause := func(svc service.JobService, id uuid.UUID) error { return svc.Pause(context.Background(), id) }
	resume := func(svc service.JobService, id uuid.UUID) error { return svc.Resume(context.Background(), id) }
	cancel := func(svc service.JobService, id uuid.UUID) error { return svc.Cancel(context.Background(), id) }

	tests := []struct {
		name      string
		setup     func(j *domain.Job)
		op        op
		wantErr   error
		wantEvent string
		check     func(t *testing.T, j *domain.Job)
	}{
		{
			name:      "pause processing job",
			setup:     func(j *domain.Job) { j.Status = domain.JobStatusProcessing },
			op:        pause,
			wantEvent: events.JobPaused,
			check: func(t *testing.T, j *domain.Job) {
				assert.True(t, j.IsPaused)
				assert.Equal(t, domain.JobStatusProcessing, j.Status, "status belongs to the orchestrator")
			},
		},
		{
			name:    "pause paused job",
			setup:   func(j *domain.Job) { j.Status, j.IsPaused = domain.JobStatusPaused, true },
			op:      pause,
			wantErr: service.ErrInvalidTransition,
		},
		{
			name:    "pause completed job",
			setup:   func(j *domain.Job) { j.Status = domain.JobStatusCompleted },
			op:      pause,
			wantErr: service.ErrInvalidTransition,
		},
		{
			name:      "resume paused job",
			setup:     func(j *domain.Job) { j.Status, j.IsPaused = domain.JobStatusPaused, true },
			op:        resume,
			wantEvent: events.JobResumed,
			check:     func(t *testing.T, j *domain.Job) { assert.False(t, j.IsPaused) },
		},
		{
			name:    "resume running job",
			setup:   func(j *domain.Job) { j.Status = domain.JobStatusProcessing },
			op:      resume,
			wantErr: service.ErrInvalidTransition,
		},
		{
			name: "resume cancelled job",
			setup: func(j *domain.Job) {
				j.Status, j.IsPaused = domain.JobStatusCancelled, true
			},
			op:      resume,
			wantErr: service.ErrInvalidTransition,
		},
		{
			name:      "cancel pending job",
			op:        cancel,
			wantEvent: events.JobCancelled,
			check:     func(t *testing.T, j *domain.Job) { assert.True(t, j.ShouldStop) },
		},
		{
			name:      "cancel paused job",
			setup:     func(j *domain.Job) { j.Status, j.IsPaused = domain.JobStatusPaused, true },
			op:        cancel,
			wantEvent: events.JobCancelled,
			check:     func(t *testing.T, j *domain.Job) { assert.True(t, j.ShouldStop) },
		},
		{
			name:    "cancel twice",
			setup:   func(j *domain.Job) { j.ShouldStop = true },
			op:      cancel,
			wantErr: service.ErrInvalidTransition,
		},
		{
			name:    "cancel failed job",
			setup:   func(j *domain.Job) { j.Status = domain.JobStatusFailed },
			op:      cancel,
			wantErr: service.ErrInvalidTransition,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc, jobs, emitter := newService(t)

			job, err := jobs.Create(context.Background(), []string{"Fitness"}, 5)
			require.NoError(t, err)
			if tc.setup != nil {
				jobs.Mutate(job.ID, tc.setup)
			}

			err = tc.op(svc, job.ID)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, emitter.Events())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{tc.wantEvent}, emitter.Types())
			if tc.check != nil {
				tc.check(t, jobs.Snapshot(job.ID))
			}
		})
	}
}

func TestControl_UnknownJob(t *testing.T) {
	t.Parallel()
	svc, _, _ := newService(t)
	id := uuid.New()

	assert.ErrorIs(t, svc.Pause(context.Background(), id), service.ErrJobNotFound)
	assert.ErrorIs(t, svc.Resume(context.Background(), id), service.ErrJobNotFound)
	assert.ErrorIs(t, svc.Cancel(context.Background(), id), service.ErrJobNotFound)
	assert.ErrorIs(t, svc.Recover(context.Background(), id, true), service.ErrJobNotFound)
	_, err := svc.Status(context.Background(), id)
	assert.ErrorIs(t, err, service.ErrJobNotFound)
}

func TestControl_StoreFailure(t *testing.T) {
	t.Parallel()
	svc, jobs, _ := newService(t)

	job, err := jobs.Create(context.Background(), []string{"Fitness"}, 5)
	require.NoError(t, err)
	jobs.UpdateErr = errors.New("connection refused")

	err = svc.Pause(context.Background(), job.ID)
	var svcErr *service.JobServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "pause_job", svcErr.Operation)
	assert.NotErrorIs(t, err, store.ErrJobNotFound)
}

func TestStatus(t *testing.T) {
	t.Parallel()
	svc, jobs, _ := newService(t)

	job, err := jobs.Create(context.Background(), []string{"Fitness", "Legal"}, 10)
	require.NoError(t, err)
	jobs.Mutate(job.ID, func(j *domain.Job) {
		j.Status = domain.JobStatusProcessing
		j.CurrentUnitIndex = 1
		j.TotalGenerated = 12
		j.TotalSaved = 10
		j.TotalFailed = 2
		j.LastError = `unit "Fitness" batch 2: no valid items`
	})

	report, err := svc.Status(context.Background(), job.ID)
	require.NoError(t, err)

	assert.Equal(t, service.JobStatusReport{
		JobID:            job.ID,
		Status:           domain.JobStatusProcessing,
		CurrentUnitIndex: 1,
		TotalUnits:       2,
		TotalGenerated:   12,
		TotalSaved:       10,
		TotalFailed:      2,
		LastError:        `unit "Fitness" batch 2: no valid items`,
		UpdatedAt:        jobs.Snapshot(job.ID).UpdatedAt,
	}, report)
}

func TestRecover(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(j *domain.Job)
		force   bool
		wantErr error
	}{
		{
			name: "stale processing job",
			setup: func(j *domain.Job) {
				j.Status = domain.JobStatusProcessing
				j.UpdatedAt = time.Now().Add(-time.Hour)
			},
		},
		{
			name: "stale paused job",
			setup: func(j *domain.Job) {
				j.Status, j.IsPaused = domain.JobStatusPaused, true
				j.UpdatedAt = time.Now().Add(-11 * time.Minute)
			},
		},
		{
			name:    "fresh job",
			setup:   func(j *domain.Job) { j.Status = domain.JobStatusProcessing },
			wantErr: service.ErrNotStale,
		},
		{
			name:  "fresh job forced",
			setup: func(j *domain.Job) { j.Status = domain.JobStatusProcessing },
			force: true,
		},
		{
			name: "terminal job even when forced",
			setup: func(j *domain.Job) {
				j.Status = domain.JobStatusCompleted
				j.UpdatedAt = time.Now().Add(-time.Hour)
			},
			force:   true,
			wantErr: service.ErrInvalidTransition,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc, jobs, emitter := newService(t)

			job, err := jobs.Create(context.Background(), []string{"Fitness"}, 5)
			require.NoError(t, err)
			jobs.Mutate(job.ID, tc.setup)
			before := jobs.Snapshot(job.ID)

			err = svc.Recover(context.Background(), job.ID, tc.force)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, emitter.Events())
				return
			}
			require.NoError(t, err)

			evs := emitter.Events()
			require.Len(t, evs, 1)
			assert.Equal(t, events.JobRecovered, evs[0].Type)
			var payload struct {
				Force bool `json:"force"`
			}
			require.NoError(t, evs[0].UnmarshalPayload(&payload))
			assert.Equal(t, tc.force, payload.Force)

			after := jobs.Snapshot(job.ID)
			assert.Equal(t, before.CurrentUnitIndex, after.CurrentUnitIndex)
			assert.Equal(t, before.TotalSaved, after.TotalSaved, "recovery never touches progress")
		})
	}
}
