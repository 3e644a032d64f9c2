package task

import (
	"context"

	"github.com/google/uuid"
)

// JobExecutor runs a job to a terminal or paused state.
type JobExecutor interface {
	Run(ctx context.Context, jobID uuid.UUID) error
}

// JobRunTask executes one job. Its ID is the job ID, so the runner can keep
// a job on a single worker.
type JobRunTask struct {
	jobID    uuid.UUID
	executor JobExecutor
}

// ID implements Task.
func (t *JobRunTask) ID() uuid.UUID { return t.jobID }

// Type implements Task.
func (t *JobRunTask) Type() string { return TaskTypeJobRun }

// Execute implements Task.
func (t *JobRunTask) Execute(ctx context.Context) error {
	return t.executor.Run(ctx, t.jobID)
}

// JobTaskFactory creates JobRunTasks bound to one executor.
type JobTaskFactory struct {
	executor JobExecutor
}

// NewJobTaskFactory creates a factory.
func NewJobTaskFactory(executor JobExecutor) *JobTaskFactory {
	return &JobTaskFactory{executor: executor}
}

// CreateTask returns the task running jobID.
func (f *JobTaskFactory) CreateTask(jobID uuid.UUID) *JobRunTask {
	return &JobRunTask{jobID: jobID, executor: f.executor}
}
