package ports

import (
	"context"

	"github.com/parcelops/shipledger/internal/domain"
)

// Mirror is an optional, user-configured, best-effort replicated copy of
// the dataset. It is never a source of truth when local data exists: the
// orchestrator reads from it exactly once, and only when every local store
// is empty. Write failures against a mirror are logged and never propagate.
type Mirror interface {
	// GetAll returns the mirror's full record set.
	GetAll(ctx context.Context) ([]domain.Order, error)

	// PutAll replicates a batch of records into the mirror.
	PutAll(ctx context.Context, orders []domain.Order) error

	// Subscribe registers a callback invoked when another writer updates
	// the mirror, and returns a cancel function. The engine itself never
	// requires the subscription; it exists for multi-device sync surfaces.
	Subscribe(ctx context.Context, fn func([]domain.Order)) (func(), error)
}
