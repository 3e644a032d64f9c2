package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/store"
)

// MemoryJobStore is an in-memory store.JobStore with hooks for tests.
type MemoryJobStore struct {
	// GetErr, UpdateErr and IncrementErr, when set, are returned by the
	// corresponding methods.
	GetErr       error
	UpdateErr    error
	IncrementErr error

	// OnGet runs before every Get with the 1-based call number. It may
	// mutate the stored job, simulating an operator acting between reads.
	OnGet func(call int, job *domain.Job)

	// OnUpdate runs after every applied Update. It may mutate the stored
	// job, simulating an operator acting right after a write.
	OnUpdate func(update store.JobUpdate, job *domain.Job)

	mu        sync.Mutex
	jobs      map[uuid.UUID]*domain.Job
	getCalls  int
	snapshots []domain.Job
	now       func() time.Time
}

// NewMemoryJobStore creates an empty store.
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs: make(map[uuid.UUID]*domain.Job),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

var _ store.JobStore = (*MemoryJobStore)(nil)

// Create implements store.JobStore.
func (s *MemoryJobStore) Create(ctx context.Context, units []string, itemsPerUnit int) (*domain.Job, error) {
	job, err := domain.NewJob(units, itemsPerUnit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	s.Put(job)
	return job.Clone(), nil
}

// Put stores job as-is, replacing any job with the same ID.
func (s *MemoryJobStore) Put(job *domain.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.Clone()
	s.snapshots = append(s.snapshots, *job.Clone())
}

// Get implements store.JobStore.
func (s *MemoryJobStore) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.getCalls++
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrJobNotFound
	}
	if s.OnGet != nil {
		s.OnGet(s.getCalls, job)
	}
	return job.Clone(), nil
}

// Update implements store.JobStore.
func (s *MemoryJobStore) Update(ctx context.Context, id uuid.UUID, update store.JobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.UpdateErr != nil {
		return s.UpdateErr
	}
	job, ok := s.jobs[id]
	if !ok {
		return store.ErrJobNotFound
	}
	update.Apply(job, s.now())
	if s.OnUpdate != nil {
		s.OnUpdate(update, job)
	}
	s.snapshots = append(s.snapshots, *job.Clone())
	return nil
}

// IncrementCounters implements store.JobStore.
func (s *MemoryJobStore) IncrementCounters(ctx context.Context, id uuid.UUID, delta store.CounterDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.IncrementErr != nil {
		return s.IncrementErr
	}
	if !delta.Valid() {
		return fmt.Errorf("%w: negative counter delta", store.ErrInvalidEntity)
	}
	job, ok := s.jobs[id]
	if !ok {
		return store.ErrJobNotFound
	}
	job.TotalGenerated += delta.Generated
	job.TotalSaved += delta.Saved
	job.TotalFailed += delta.Failed
	job.UpdatedAt = s.now()
	s.snapshots = append(s.snapshots, *job.Clone())
	return nil
}

// ListStale implements store.JobStore.
func (s *MemoryJobStore) ListStale(ctx context.Context, olderThan time.Time) ([]*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Job
	for _, job := range s.jobs {
		if !job.Status.IsTerminal() && job.UpdatedAt.Before(olderThan) {
			out = append(out, job.Clone())
		}
	}
	return out, nil
}

// ListActive implements store.JobStore.
func (s *MemoryJobStore) ListActive(ctx context.Context) ([]*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Job
	for _, job := range s.jobs {
		if !job.Status.IsTerminal() && !job.IsPaused {
			out = append(out, job.Clone())
		}
	}
	return out, nil
}

// Mutate applies fn to the stored job under the store lock.
func (s *MemoryJobStore) Mutate(id uuid.UUID, fn func(job *domain.Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		fn(job)
	}
}

// Snapshot returns a copy of the stored job without counting as a Get.
func (s *MemoryJobStore) Snapshot(id uuid.UUID) *domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		return job.Clone()
	}
	return nil
}

// History returns every state the store recorded, in write order.
func (s *MemoryJobStore) History() []domain.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Job(nil), s.snapshots...)
}

// GetCalls returns the number of Get calls.
func (s *MemoryJobStore) GetCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCalls
}
