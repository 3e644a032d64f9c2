package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-bulkgen/internal/domain"
)

// ContentStore persists accepted items.
type ContentStore interface {
	// Create saves a single item and returns its identifier.
	// Returns ErrRejected when the store refuses the item on domain grounds
	// and ErrInvalidEntity when the item fails validation. Any other error
	// is treated as transient by callers.
	Create(ctx context.Context, item *domain.AcceptedItem) (uuid.UUID, error)
}
