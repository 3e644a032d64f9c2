package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/platform/logger"
	"github.com/phrazzld/scry-bulkgen/internal/store"
)

const jobColumns = `id, units, items_per_unit, status, current_unit_index, should_stop, is_paused,
	total_generated, total_saved, total_failed, last_error,
	created_at, updated_at, started_at, completed_at`

// terminalStatuses is the SQL list of statuses a job never leaves.
var terminalStatuses = fmt.Sprintf("'%s', '%s', '%s'",
	domain.JobStatusCompleted, domain.JobStatusFailed, domain.JobStatusCancelled)

// PostgresJobStore implements store.JobStore on the generation_jobs table.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.JobStore = (*PostgresJobStore)(nil)

// NewPostgresJobStore creates a new PostgresJobStore.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

// Create inserts a new pending job.
func (s *PostgresJobStore) Create(ctx context.Context, units []string, itemsPerUnit int) (*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	job, err := domain.NewJob(units, itemsPerUnit)
	if err != nil {
		log.Warn("job validation failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	unitsJSON, err := json.Marshal(job.Units)
	if err != nil {
		return nil, fmt.Errorf("failed to encode units: %w", err)
	}

	query := `
		INSERT INTO generation_jobs (id, units, items_per_unit, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(ctx, query,
		job.ID, unitsJSON, job.ItemsPerUnit, job.Status, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		log.Error("failed to insert job",
			slog.String("job_id", job.ID.String()),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	log.Debug("job created",
		slog.String("job_id", job.ID.String()),
		slog.Int("units", len(job.Units)),
		slog.Int("items_per_unit", job.ItemsPerUnit))
	return job, nil
}

// Get reads the job straight from the table; nothing is cached.
func (s *PostgresJobStore) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM generation_jobs WHERE id = $1`

	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrJobNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get job",
			slog.String("job_id", id.String()),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return job, nil
}

// Update writes the non-nil fields of update in one statement and bumps
// updated_at.
func (s *PostgresJobStore) Update(ctx context.Context, id uuid.UUID, update store.JobUpdate) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	sets, args := updateAssignments(update)
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE generation_jobs SET %s WHERE id = $%d",
		strings.Join(sets, ", "), len(args))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update job",
			slog.String("job_id", id.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrJobNotFound)
}

func updateAssignments(u store.JobUpdate) ([]string, []any) {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if u.Status != nil {
		add("status", *u.Status)
	}
	if u.CurrentUnitIndex != nil {
		add("current_unit_index", *u.CurrentUnitIndex)
	}
	if u.ShouldStop != nil {
		add("should_stop", *u.ShouldStop)
	}
	if u.IsPaused != nil {
		add("is_paused", *u.IsPaused)
	}
	if u.LastError != nil {
		add("last_error", *u.LastError)
	}
	if u.StartedAt != nil {
		add("started_at", *u.StartedAt)
	}
	if u.CompletedAt != nil {
		add("completed_at", *u.CompletedAt)
	}
	return sets, args
}

// IncrementCounters adds delta in a single UPDATE so concurrent increments
// are never lost.
func (s *PostgresJobStore) IncrementCounters(ctx context.Context, id uuid.UUID, delta store.CounterDelta) error {
	if !delta.Valid() {
		return fmt.Errorf("%w: negative counter delta", store.ErrInvalidEntity)
	}

	query := `
		UPDATE generation_jobs
		SET total_generated = total_generated + $1,
			total_saved = total_saved + $2,
			total_failed = total_failed + $3,
			updated_at = NOW()
		WHERE id = $4
	`
	result, err := s.db.ExecContext(ctx, query, delta.Generated, delta.Saved, delta.Failed, id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to increment job counters",
			slog.String("job_id", id.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrJobNotFound)
}

// ListStale returns non-terminal jobs not updated since olderThan.
func (s *PostgresJobStore) ListStale(ctx context.Context, olderThan time.Time) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM generation_jobs
		WHERE status NOT IN (` + terminalStatuses + `) AND updated_at < $1
		ORDER BY updated_at ASC`
	return s.list(ctx, "stale", query, olderThan)
}

// ListActive returns non-terminal jobs that are not paused.
func (s *PostgresJobStore) ListActive(ctx context.Context) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM generation_jobs
		WHERE status NOT IN (` + terminalStatuses + `) AND NOT is_paused
		ORDER BY created_at ASC`
	return s.list(ctx, "active", query)
}

func (s *PostgresJobStore) list(ctx context.Context, kind, query string, args ...any) ([]*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list jobs", slog.String("kind", kind), slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			log.Warn("failed to close rows", slog.String("error", cerr.Error()))
		}
	}()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			log.Error("failed to scan job", slog.String("kind", kind), slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return jobs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job         domain.Job
		unitsJSON   []byte
		status      string
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)

	err := row.Scan(
		&job.ID,
		&unitsJSON,
		&job.ItemsPerUnit,
		&status,
		&job.CurrentUnitIndex,
		&job.ShouldStop,
		&job.IsPaused,
		&job.TotalGenerated,
		&job.TotalSaved,
		&job.TotalFailed,
		&job.LastError,
		&job.CreatedAt,
		&job.UpdatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(unitsJSON, &job.Units); err != nil {
		return nil, fmt.Errorf("failed to decode units of job %s: %w", job.ID, err)
	}
	job.Status = domain.JobStatus(status)
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return &job, nil
}
