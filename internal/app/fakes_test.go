package app

import (
	"context"
	"sync"
	"time"

	"github.com/parcelops/shipledger/internal/domain"
	"github.com/parcelops/shipledger/internal/ports"
)

// testClock returns a deterministic, monotonic-free clock for tests.
func testClock() func() time.Time {
	base := time.Unix(1700000000, 0).UTC()
	var mu sync.Mutex
	step := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		step++
		return base.Add(time.Duration(step) * time.Second)
	}
}

// fakeStore is a duplicate-capable in-memory store. Unlike the real
// backends it indexes by ID only, so tests can inject records that share a
// tracking number and exercise the verifier's duplicate handling.
type fakeStore struct {
	mu        sync.Mutex
	open      bool
	openErr   error
	downFor   int // Available() reports false this many times
	putErr    error
	putBudget int // puts that succeed before putErr kicks in
	recs      map[string]domain.Order
	now       func() time.Time
}

var _ ports.RecordStore = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{recs: make(map[string]domain.Order), now: testClock()}
}

// inject writes a record directly, bypassing the merge contract.
func (s *fakeStore) inject(o domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[o.ID] = o
}

func (s *fakeStore) Open(ctx context.Context) error {
	if s.openErr != nil {
		return s.openErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = true
	return nil
}

func (s *fakeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

func (s *fakeStore) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.downFor > 0 {
		s.downFor--
		return false
	}
	return s.open
}

// latest returns the record with the newest UpdatedAt for the key.
func (s *fakeStore) latest(key string) (domain.Order, bool) {
	var best domain.Order
	found := false
	for _, o := range s.recs {
		if o.TrackingNumber != key {
			continue
		}
		if !found || o.UpdatedAt.After(best.UpdatedAt) {
			best = o
			found = true
		}
	}
	return best, found
}

func (s *fakeStore) Put(ctx context.Context, o domain.Order) (ports.PutOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, domain.ErrStoreUnavailable
	}
	if s.putErr != nil {
		if s.putBudget == 0 {
			return 0, s.putErr
		}
		s.putBudget--
	}
	now := s.now()
	if existing, ok := s.latest(o.TrackingNumber); ok {
		merged := domain.Merge(existing, o, now)
		s.recs[merged.ID] = merged
		return ports.PutUpdated, nil
	}
	o = domain.Normalize(o, now)
	s.recs[o.ID] = o
	return ports.PutCreated, nil
}

func (s *fakeStore) GetAll(ctx context.Context) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return nil, domain.ErrStoreUnavailable
	}
	out := make([]domain.Order, 0, len(s.recs))
	for _, o := range s.recs {
		out = append(out, o)
	}
	return out, nil
}

func (s *fakeStore) GetByTrackingNumber(ctx context.Context, key string) (domain.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return domain.Order{}, false, domain.ErrStoreUnavailable
	}
	o, ok := s.latest(key)
	return o, ok, nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return domain.ErrStoreUnavailable
	}
	if _, ok := s.recs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.recs, id)
	return nil
}

func (s *fakeStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return domain.ErrStoreUnavailable
	}
	s.recs = make(map[string]domain.Order)
	return nil
}

func (s *fakeStore) Exists(ctx context.Context, keys []string) (present, absent []string, err error) {
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
		if _, ok := s.latest(k); ok {
			present = append(present, k)
		} else {
			absent = append(absent, k)
		}
	}
	return present, absent, nil
}

func (s *fakeStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, domain.ErrStoreUnavailable
	}
	return int64(len(s.recs)), nil
}

func (s *fakeStore) EstimatedSize(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, domain.ErrStoreUnavailable
	}
	return int64(len(s.recs)) * 100, nil
}

// fakeMirror is an in-memory Mirror counting its calls.
type fakeMirror struct {
	mu       sync.Mutex
	recs     map[string]domain.Order
	getCalls int
	putCalls int
	getErr   error
}

var _ ports.Mirror = (*fakeMirror)(nil)

func newFakeMirror() *fakeMirror {
	return &fakeMirror{recs: make(map[string]domain.Order)}
}

func (m *fakeMirror) GetAll(ctx context.Context) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([]domain.Order, 0, len(m.recs))
	for _, o := range m.recs {
		out = append(out, o)
	}
	return out, nil
}

func (m *fakeMirror) PutAll(ctx context.Context, orders []domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++
	for _, o := range orders {
		m.recs[o.ID] = o
	}
	return nil
}

func (m *fakeMirror) Subscribe(ctx context.Context, fn func([]domain.Order)) (func(), error) {
	return func() {}, nil
}

func (m *fakeMirror) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

// testOrder builds a dispatched order with consistent provenance.
func testOrder(key string, status domain.Status) domain.Order {
	now := time.Unix(1690000000, 0).UTC()
	return domain.Order{
		ID:             "id-" + key,
		TrackingNumber: key,
		Status:         status,
		SendDate:       "2026-08-01",
		Source:         domain.StatusImpliedSource(status),
		WarningStatus:  domain.WarningNone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
