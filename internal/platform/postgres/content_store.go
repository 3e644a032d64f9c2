package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-bulkgen/internal/domain"
	"github.com/phrazzld/scry-bulkgen/internal/platform/logger"
	"github.com/phrazzld/scry-bulkgen/internal/store"
)

// PostgresContentStore implements store.ContentStore on the generated_items
// table.
type PostgresContentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.ContentStore = (*PostgresContentStore)(nil)

// NewPostgresContentStore creates a new PostgresContentStore.
func NewPostgresContentStore(db store.DBTX, logger *slog.Logger) *PostgresContentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresContentStore{
		db:     db,
		logger: logger.With(slog.String("component", "content_store")),
	}
}

// Create inserts one accepted item. An item whose content hash already exists
// for the same job and unit is rejected rather than duplicated, which makes
// re-running a unit after a resume safe.
func (s *PostgresContentStore) Create(ctx context.Context, item *domain.AcceptedItem) (uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if item == nil {
		return uuid.Nil, fmt.Errorf("%w: nil item", store.ErrInvalidEntity)
	}
	if err := item.Validate(); err != nil {
		log.Warn("item validation failed", slog.String("error", err.Error()))
		return uuid.Nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO generated_items
			(id, job_id, unit, tier, text, content_hash, slug, title, word_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		item.ID,
		item.JobID,
		item.Unit,
		int(item.Tier),
		item.Text,
		item.ContentHash,
		item.Slug,
		item.Title,
		item.WordCount,
		item.CreatedAt,
	)
	if err != nil {
		return uuid.Nil, s.mapInsertError(log, item, err)
	}

	log.Debug("item saved",
		slog.String("item_id", item.ID.String()),
		slog.String("job_id", item.JobID.String()),
		slog.String("unit", item.Unit),
		slog.String("slug", item.Slug))
	return item.ID, nil
}

func (s *PostgresContentStore) mapInsertError(log *slog.Logger, item *domain.AcceptedItem, err error) error {
	attrs := []any{
		slog.String("job_id", item.JobID.String()),
		slog.String("unit", item.Unit),
		slog.String("content_hash", item.ContentHash),
	}

	switch {
	case IsUniqueViolation(err):
		log.Info("item already stored, rejecting", attrs...)
		return fmt.Errorf("%w: %w", store.ErrRejected, store.ErrItemExists)
	case IsCheckConstraintViolation(err):
		log.Warn("item refused by check constraint", append(attrs, slog.String("error", err.Error()))...)
		return fmt.Errorf("%w: %w", store.ErrRejected, MapError(err))
	default:
		log.Error("failed to insert item", append(attrs, slog.String("error", err.Error()))...)
		return MapError(err)
	}
}
