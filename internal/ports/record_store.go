package ports

import (
	"context"

	"github.com/parcelops/shipledger/internal/domain"
)

// PutOutcome tells whether a Put created a new record or merged into an
// existing one.
type PutOutcome int

const (
	// PutCreated means no record with the tracking number existed.
	PutCreated PutOutcome = iota

	// PutUpdated means the incoming record was merged into an existing one.
	PutUpdated
)

// RecordStore is the capability interface every persistence backend
// implements. The orchestrator composes an ordered list of stores under a
// documented precedence policy; all backends honor the same merge-on-write
// contract.
//
// Lifecycle: a store is constructed, opened once, and closed once. An open
// failure marks the store unavailable for the whole session; every
// subsequent call fails fast with domain.ErrStoreUnavailable instead of
// retrying silently.
type RecordStore interface {
	// Open prepares the backend. Calling any other method before a
	// successful Open is an error.
	Open(ctx context.Context) error

	// Close releases the backend. Safe to call on a store that failed to
	// open.
	Close() error

	// Available reports whether the store opened successfully and has not
	// been closed.
	Available() bool

	// Put creates the record if no record with its tracking number exists,
	// otherwise merges it into the existing record per domain.Merge.
	// The write is atomic per record: it either fully replaces/creates the
	// record or fails.
	Put(ctx context.Context, o domain.Order) (PutOutcome, error)

	// GetAll returns every live record. Order unspecified.
	GetAll(ctx context.Context) ([]domain.Order, error)

	// GetByTrackingNumber returns the live record for the business key,
	// with ok=false when absent.
	GetByTrackingNumber(ctx context.Context, key string) (domain.Order, bool, error)

	// Delete removes one record by primary key. Deleting an unknown id
	// returns domain.ErrNotFound.
	Delete(ctx context.Context, id string) error

	// Clear removes every record. Destructive and unrecoverable; snapshot
	// export is the only recovery path.
	Clear(ctx context.Context) error

	// Exists partitions keys into present and absent without mutating
	// state. The two slices union to the (deduplicated) input and never
	// intersect.
	Exists(ctx context.Context, keys []string) (present, absent []string, err error)

	// Count returns the number of live records.
	Count(ctx context.Context) (int64, error)

	// EstimatedSize returns the backend's approximate footprint in bytes.
	EstimatedSize(ctx context.Context) (int64, error)
}
