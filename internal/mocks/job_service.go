package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/service"
)

// MockJobService implements service.JobService for handler tests.
type MockJobService struct {
	StartFn   func(ctx context.Context, units []string, itemsPerUnit int) (*domain.Job, error)
	PauseFn   func(ctx context.Context, jobID uuid.UUID) error
	ResumeFn  func(ctx context.Context, jobID uuid.UUID) error
	CancelFn  func(ctx context.Context, jobID uuid.UUID) error
	StatusFn  func(ctx context.Context, jobID uuid.UUID) (service.JobStatusReport, error)
	RecoverFn func(ctx context.Context, jobID uuid.UUID, force bool) error

	mu    sync.Mutex
	calls []string
}

var _ service.JobService = (*MockJobService)(nil)

func (m *MockJobService) record(name string) {
	m.mu.Lock()
	m.calls = append(m.calls, name)
	m.mu.Unlock()
}

// Calls returns the names of the invoked methods, in order.
func (m *MockJobService) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Start implements service.JobService. By default it builds a pending job.
func (m *MockJobService) Start(ctx context.Context, units []string, itemsPerUnit int) (*domain.Job, error) {
	m.record("Start")
	if m.StartFn != nil {
		return m.StartFn(ctx, units, itemsPerUnit)
	}
	return domain.NewJob(units, itemsPerUnit)
}

// Pause implements service.JobService.
func (m *MockJobService) Pause(ctx context.Context, jobID uuid.UUID) error {
	m.record("Pause")
	if m.PauseFn != nil {
		return m.PauseFn(ctx, jobID)
	}
	return nil
}

// Resume implements service.JobService.
func (m *MockJobService) Resume(ctx context.Context, jobID uuid.UUID) error {
	m.record("Resume")
	if m.ResumeFn != nil {
		return m.ResumeFn(ctx, jobID)
	}
	return nil
}

// Cancel implements service.JobService.
func (m *MockJobService) Cancel(ctx context.Context, jobID uuid.UUID) error {
	m.record("Cancel")
	if m.CancelFn != nil {
		return m.CancelFn(ctx, jobID)
	}
	return nil
}

// Status implements service.JobService.
func (m *MockJobService) Status(ctx context.Context, jobID uuid.UUID) (service.JobStatusReport, error) {
	m.record("Status")
	if m.StatusFn != nil {
		return m.StatusFn(ctx, jobID)
	}
	return service.JobStatusReport{JobID: jobID, Status: domain.JobStatusPending}, nil
}

// Recover implements service.JobService.
func (m *MockJobService) Recover(ctx context.Context, jobID uuid.UUID, force bool) error {
	m.record("Recover")
	if m.RecoverFn != nil {
		return m.RecoverFn(ctx, jobID, force)
	}
	return nil
}
