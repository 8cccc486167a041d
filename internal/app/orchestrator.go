package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/parcelops/shipledger/internal/domain"
	"github.com/parcelops/shipledger/internal/ports"
)

// DefaultOpTimeout bounds one store operation. A batch write that exceeds
// it is treated as settled rather than failed, so a wedged transaction
// cannot hang the whole pipeline (liveness over strict consistency).
const DefaultOpTimeout = 30 * time.Second

// Orchestrator is the single entry point over the backend topology: an
// ordered list of record stores (durable first, volatile fallback second)
// plus an optional remote mirror.
//
// Precedence policy, evaluated per call:
//   - reads and writes use the first available store in the list;
//   - the mirror receives a best-effort copy of every successful write and
//     is read exactly once, only when the local stores hold nothing;
//   - records held by a later store are migrated into an empty earlier
//     store lazily, on the first read of the process lifetime.
type Orchestrator struct {
	stores []ports.RecordStore
	mirror ports.Mirror
	logger ports.Logger

	opTimeout time.Duration
	now       func() time.Time

	// writeMu serializes logical write operations; within one batch the
	// store's own transaction isolation orders the per-record writes.
	writeMu sync.Mutex

	migrateOnce sync.Once
}

// NewOrchestrator composes the given stores under the documented precedence
// policy. The store slice must be ordered most-preferred first. A nil
// mirror disables replication.
func NewOrchestrator(stores []ports.RecordStore, mirror ports.Mirror, logger ports.Logger, opTimeout time.Duration, now func() time.Time) *Orchestrator {
	if opTimeout <= 0 {
		opTimeout = DefaultOpTimeout
	}
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		stores:    stores,
		mirror:    mirror,
		logger:    logger,
		opTimeout: opTimeout,
		now:       now,
	}
}

// Open opens every store in precedence order. Individual open failures are
// logged and tolerated; Open fails only when no backend is usable.
func (o *Orchestrator) Open(ctx context.Context) error {
	available := 0
	for _, st := range o.stores {
		if err := st.Open(ctx); err != nil {
			// The store logs its own failure once; note the degradation here.
			o.logger.Warn("store unavailable, continuing with next backend", ports.Err(err))
			continue
		}
		available++
	}
	if available == 0 {
		return domain.ErrStoreUnavailable
	}
	return nil
}

// Close closes every store.
func (o *Orchestrator) Close() error {
	var firstErr error
	for _, st := range o.stores {
		if err := st.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// active returns the first available store, or nil when every backend is
// down.
func (o *Orchestrator) active() ports.RecordStore {
	for _, st := range o.stores {
		if st.Available() {
			return st
		}
	}
	return nil
}

// GetAllOrders returns the full record set under the read policy: active
// store first; if it holds nothing and a mirror is configured, the mirror
// is queried once and its contents repopulate the store before being
// returned.
func (o *Orchestrator) GetAllOrders(ctx context.Context) ([]domain.Order, error) {
	o.migrateFallback(ctx)

	st := o.active()
	if st == nil {
		return nil, domain.ErrStoreUnavailable
	}

	opCtx, cancel := context.WithTimeout(ctx, o.opTimeout)
	defer cancel()

	orders, err := st.GetAll(opCtx)
	if err != nil {
		return nil, err
	}
	if len(orders) > 0 || o.mirror == nil {
		return orders, nil
	}

	// One-time repopulation from the mirror, not a standing subscription.
	mirrored, err := o.mirror.GetAll(opCtx)
	if err != nil {
		o.logger.Warn("mirror read failed, returning empty set", ports.Err(err))
		return orders, nil
	}
	if len(mirrored) == 0 {
		return orders, nil
	}

	o.logger.Info("repopulating empty store from mirror", ports.Int("count", len(mirrored)))
	o.writeMu.Lock()
	for _, rec := range mirrored {
		if _, err := st.Put(opCtx, rec); err != nil {
			o.logger.Warn("mirror record not repopulated",
				ports.String("trackingNumber", rec.TrackingNumber), ports.Err(err))
		}
	}
	o.writeMu.Unlock()
	return st.GetAll(opCtx)
}

// migrateFallback copies records held by a later store into an empty
// earlier store, once per process lifetime. Merge-on-write makes a rerun a
// no-op, so the once-guard is an optimization, not a correctness need.
func (o *Orchestrator) migrateFallback(ctx context.Context) {
	o.migrateOnce.Do(func() {
		if len(o.stores) < 2 {
			return
		}
		primary := o.stores[0]
		if !primary.Available() {
			return
		}
		n, err := primary.Count(ctx)
		if err != nil || n > 0 {
			return
		}
		for _, fallback := range o.stores[1:] {
			if !fallback.Available() {
				continue
			}
			held, err := fallback.GetAll(ctx)
			if err != nil || len(held) == 0 {
				continue
			}
			o.logger.Info("migrating fallback records into record store",
				ports.Int("count", len(held)))
			for _, rec := range held {
				if _, err := primary.Put(ctx, rec); err != nil {
					o.logger.Warn("fallback record not migrated",
						ports.String("trackingNumber", rec.TrackingNumber), ports.Err(err))
				}
			}
		}
	})
}

// AddOrders writes one batch through the active store and mirrors it
// best-effort. Per-record failures are counted, never thrown; the batch
// result is authoritative even when the mirror write fails. Exceeding the
// operation deadline settles the batch without an error: the unwritten
// remainder is counted as failed, so the result still accounts for every
// record submitted.
func (o *Orchestrator) AddOrders(ctx context.Context, batch []domain.Order) (domain.BatchResult, error) {
	var res domain.BatchResult
	if len(batch) == 0 {
		return res, nil
	}

	st := o.active()
	if st == nil {
		return res, domain.ErrStoreUnavailable
	}

	res.DuplicatesSeen = countDuplicates(batch)

	opCtx, cancel := context.WithTimeout(ctx, o.opTimeout)
	defer cancel()

	o.writeMu.Lock()
	written := make([]domain.Order, 0, len(batch))
	for i, rec := range batch {
		outcome, err := st.Put(opCtx, rec)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				// The current record and everything after it were never
				// written; they belong in the failure count.
				res.Failed += len(batch) - i
				o.logger.Warn("store transaction exceeded deadline, settling batch",
					ports.Int("written", len(written)), ports.Int("failed", len(batch)-i))
				break
			}
			res.Failed++
			o.logger.Warn("order not written",
				ports.String("trackingNumber", rec.TrackingNumber), ports.Err(err))
			continue
		}
		written = append(written, rec)
		if outcome == ports.PutCreated {
			res.Created++
		} else {
			res.Updated++
		}
	}
	o.writeMu.Unlock()

	o.mirrorPut(ctx, written)
	return res, nil
}

// mirrorPut replicates written records best-effort. Failures are logged
// and never propagate: the local write's outcome is the operation's result.
func (o *Orchestrator) mirrorPut(ctx context.Context, written []domain.Order) {
	if o.mirror == nil || len(written) == 0 {
		return
	}
	opCtx, cancel := context.WithTimeout(ctx, o.opTimeout)
	defer cancel()
	if err := o.mirror.PutAll(opCtx, written); err != nil {
		o.logger.Warn("mirror write failed", ports.Int("count", len(written)), ports.Err(err))
	}
}

// UpdateStatus sets the status on every record whose tracking number is in
// keys, aligning the provenance source with the new status. Unknown keys
// are skipped; the number of records actually updated is returned.
func (o *Orchestrator) UpdateStatus(ctx context.Context, keys []string, status domain.Status) (int, error) {
	st := o.active()
	if st == nil {
		return 0, domain.ErrStoreUnavailable
	}

	opCtx, cancel := context.WithTimeout(ctx, o.opTimeout)
	defer cancel()

	updated := 0
	changed := make([]domain.Order, 0, len(keys))
	o.writeMu.Lock()
	for _, key := range keys {
		rec, ok, err := st.GetByTrackingNumber(opCtx, key)
		if err != nil {
			o.writeMu.Unlock()
			return updated, err
		}
		if !ok {
			continue
		}
		rec.Status = status
		rec.Source = domain.StatusImpliedSource(status)
		if _, err := st.Put(opCtx, rec); err != nil {
			o.logger.Warn("status not updated", ports.String("trackingNumber", key), ports.Err(err))
			continue
		}
		rec.UpdatedAt = o.now()
		changed = append(changed, rec)
		updated++
	}
	o.writeMu.Unlock()

	o.mirrorPut(ctx, changed)
	return updated, nil
}

// DeleteOrder removes one record by primary key. Destructive and
// unrecoverable within the engine; snapshots are the only recovery path.
func (o *Orchestrator) DeleteOrder(ctx context.Context, id string) error {
	st := o.active()
	if st == nil {
		return domain.ErrStoreUnavailable
	}
	opCtx, cancel := context.WithTimeout(ctx, o.opTimeout)
	defer cancel()
	o.writeMu.Lock()
	defer o.writeMu.Unlock()
	return st.Delete(opCtx, id)
}

// ClearAll removes every record from every available local store. The
// mirror is left untouched: it is user-configured state, and a configured
// mirror will repopulate the store on the next read.
func (o *Orchestrator) ClearAll(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, o.opTimeout)
	defer cancel()
	o.writeMu.Lock()
	defer o.writeMu.Unlock()
	cleared := false
	for _, st := range o.stores {
		if !st.Available() {
			continue
		}
		if err := st.Clear(opCtx); err != nil {
			return err
		}
		cleared = true
	}
	if !cleared {
		return domain.ErrStoreUnavailable
	}
	return nil
}

// CheckDuplicates partitions the given business keys into present and
// absent. Advisory: importers use it to warn before a merge-heavy import.
func (o *Orchestrator) CheckDuplicates(ctx context.Context, keys []string) (present, absent []string, err error) {
	st := o.active()
	if st == nil {
		return nil, nil, domain.ErrStoreUnavailable
	}
	opCtx, cancel := context.WithTimeout(ctx, o.opTimeout)
	defer cancel()
	return st.Exists(opCtx, keys)
}

// StorageInfo reports the active backend's record count and estimated
// footprint.
func (o *Orchestrator) StorageInfo(ctx context.Context) (domain.StorageInfo, error) {
	st := o.active()
	if st == nil {
		return domain.StorageInfo{}, domain.ErrStoreUnavailable
	}
	opCtx, cancel := context.WithTimeout(ctx, o.opTimeout)
	defer cancel()

	count, err := st.Count(opCtx)
	if err != nil {
		return domain.StorageInfo{}, err
	}
	size, err := st.EstimatedSize(opCtx)
	if err != nil {
		return domain.StorageInfo{}, err
	}
	return domain.StorageInfo{Count: count, EstimatedSizeBytes: size}, nil
}

// countDuplicates counts the extra occurrences of tracking numbers that
// appear more than once in the batch.
func countDuplicates(batch []domain.Order) int {
	seen := make(map[string]bool, len(batch))
	dupes := 0
	for _, rec := range batch {
		if seen[rec.TrackingNumber] {
			dupes++
			continue
		}
		seen[rec.TrackingNumber] = true
	}
	return dupes
}
