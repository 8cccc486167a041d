// Package mem provides the volatile fallback RecordStore: an in-process,
// size-limited map store used when the embedded store is unavailable.
// Contents do not survive the process; the engine migrates them into the
// durable store on first read once that store becomes usable.
package mem

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/parcelops/shipledger/internal/domain"
	"github.com/parcelops/shipledger/internal/ports"
)

// DefaultLimit caps the fallback store so degraded mode cannot grow
// unbounded in memory.
const DefaultLimit = 5000

// ErrFull is returned when a create would exceed the store's record limit.
// Merges into existing records are always allowed.
var ErrFull = errors.New("mem: volatile store full")

// Store is an in-memory RecordStore guarded by a single mutex.
type Store struct {
	limit int
	now   func() time.Time

	mu    sync.Mutex
	open  bool
	byID  map[string]domain.Order
	byKey map[string]string // tracking number -> record id
}

var _ ports.RecordStore = (*Store)(nil)

// NewStore creates a volatile store holding at most limit records.
// A non-positive limit falls back to DefaultLimit.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{limit: limit, now: time.Now}
}

// SetNow overrides the clock, for tests.
func (s *Store) SetNow(now func() time.Time) { s.now = now }

// Open initializes the maps. Never fails.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return nil
	}
	s.byID = make(map[string]domain.Order)
	s.byKey = make(map[string]string)
	s.open = true
	return nil
}

// Close discards all records.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	s.byID = nil
	s.byKey = nil
	return nil
}

// Available reports whether the store is open.
func (s *Store) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Put creates or merges a record under its tracking number.
func (s *Store) Put(ctx context.Context, o domain.Order) (ports.PutOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, domain.ErrStoreUnavailable
	}

	now := s.now()
	if id, ok := s.byKey[o.TrackingNumber]; ok {
		merged := domain.Merge(s.byID[id], o, now)
		s.byID[id] = merged
		return ports.PutUpdated, nil
	}

	if len(s.byID) >= s.limit {
		return 0, ErrFull
	}
	o = domain.Normalize(o, now)
	s.byID[o.ID] = o
	s.byKey[o.TrackingNumber] = o.ID
	return ports.PutCreated, nil
}

// GetAll returns every live record, order unspecified.
func (s *Store) GetAll(ctx context.Context) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, domain.ErrStoreUnavailable
	}
	out := make([]domain.Order, 0, len(s.byID))
	for _, o := range s.byID {
		out = append(out, o)
	}
	return out, nil
}

// GetByTrackingNumber returns the live record for the business key.
func (s *Store) GetByTrackingNumber(ctx context.Context, key string) (domain.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return domain.Order{}, false, domain.ErrStoreUnavailable
	}
	id, ok := s.byKey[key]
	if !ok {
		return domain.Order{}, false, nil
	}
	return s.byID[id], true, nil
}

// Delete removes one record by primary key.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return domain.ErrStoreUnavailable
	}
	o, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.byID, id)
	if s.byKey[o.TrackingNumber] == id {
		delete(s.byKey, o.TrackingNumber)
	}
	return nil
}

// Clear removes every record.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return domain.ErrStoreUnavailable
	}
	s.byID = make(map[string]domain.Order)
	s.byKey = make(map[string]string)
	return nil
}

// Exists partitions keys into present and absent without mutating state.
func (s *Store) Exists(ctx context.Context, keys []string) (present, absent []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, nil, domain.ErrStoreUnavailable
	}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		if _, ok := s.byKey[k]; ok {
			present = append(present, k)
		} else {
			absent = append(absent, k)
		}
	}
	return present, absent, nil
}

// Count returns the number of live records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, domain.ErrStoreUnavailable
	}
	return int64(len(s.byID)), nil
}

// EstimatedSize approximates the footprint as the JSON-encoded size of the
// record set.
func (s *Store) EstimatedSize(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, domain.ErrStoreUnavailable
	}
	var total int64
	for _, o := range s.byID {
		b, err := json.Marshal(o)
		if err != nil {
			continue
		}
		total += int64(len(b))
	}
	return total, nil
}
