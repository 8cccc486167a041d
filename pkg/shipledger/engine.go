package shipledger

import (
	"context"
	"sync"

	"github.com/parcelops/shipledger/internal/adapters/mem"
	"github.com/parcelops/shipledger/internal/adapters/sqlite"
	"github.com/parcelops/shipledger/internal/app"
	"github.com/parcelops/shipledger/internal/domain"
	"github.com/parcelops/shipledger/internal/ports"
)

// Re-export the domain vocabulary so embedders rarely need to import
// internal packages.
type (
	// Order is the persisted shipment record.
	Order = domain.Order

	// Status is an order lifecycle state.
	Status = domain.Status

	// ImportSummary aggregates the outcome of a batch import.
	ImportSummary = domain.ImportSummary

	// IntegrityReport is the result of an integrity check.
	IntegrityReport = domain.IntegrityReport

	// RepairResult lists what an integrity repair changed.
	RepairResult = domain.RepairResult

	// StorageInfo reports record count and estimated footprint.
	StorageInfo = domain.StorageInfo

	// OrderStats aggregates counts and money totals over the record set.
	OrderStats = domain.OrderStats

	// RegionStats aggregates per-region delivery performance.
	RegionStats = domain.RegionStats
)

// Order lifecycle states.
const (
	StatusSent      = domain.StatusSent
	StatusDelivered = domain.StatusDelivered
	StatusReturned  = domain.StatusReturned
	StatusPending   = domain.StatusPending
	StatusCancelled = domain.StatusCancelled
)

// Sentinel errors returned by engine operations.
var (
	ErrStoreUnavailable = domain.ErrStoreUnavailable
	ErrNotFound         = domain.ErrNotFound
	ErrAlreadyOpen      = domain.ErrAlreadyOpen
	ErrNotOpen          = domain.ErrNotOpen
	ErrInvalidSnapshot  = domain.ErrInvalidSnapshot
	ErrInvalidConfig    = domain.ErrInvalidConfig
)

// Engine is the embeddable shipment ledger: an embedded durable store with
// a volatile fallback and an optional remote mirror, plus the import,
// integrity, and snapshot pipelines on top.
//
// Use New() to create an instance, Open() before the first operation, and
// Close() when done. All methods are safe for concurrent use once open.
type Engine struct {
	config Config
	opts   options

	orch     *app.Orchestrator
	importer *app.Importer
	verifier *app.Verifier
	snap     *app.Snapshotter
	logger   ports.Logger

	mu   sync.Mutex
	open bool
}

// New creates an engine with the given configuration. The engine starts
// closed; call Open() before using it.
func New(cfg Config, opts ...Option) (*Engine, error) {
	// Validate before SetDefaults: negative values are caller mistakes,
	// not unset fields, and must not be silently replaced.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	primary := o.store
	if primary == nil {
		if cfg.DBPath == "" {
			return nil, domain.ErrInvalidConfig
		}
		primary = sqlite.NewStore(cfg.DBPath, o.logger)
	}
	fallback := o.fallback
	if fallback == nil {
		fallback = mem.NewStore(cfg.VolatileLimit)
	}

	orch := app.NewOrchestrator(
		[]ports.RecordStore{primary, fallback},
		o.mirror, o.logger, cfg.OpTimeout, o.now,
	)
	importer := app.NewImporter(app.ImporterConfig{
		ChunkSize:   cfg.ChunkSize,
		MaxAttempts: cfg.MaxAttempts,
		RetryBase:   cfg.RetryDelay,
		ChunkPause:  cfg.ChunkPause,
		Preflight:   cfg.Preflight,
	}, orch, o.logger)

	return &Engine{
		config:   cfg,
		opts:     o,
		orch:     orch,
		importer: importer,
		verifier: app.NewVerifier(orch, o.logger),
		snap:     app.NewSnapshotter(orch, importer, o.logger, o.now),
		logger:   o.logger,
	}, nil
}

// Open opens the backend stores. The engine is usable while at least one
// store opened; a failed embedded store degrades the engine to the volatile
// fallback for the rest of the session.
func (e *Engine) Open(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.open {
		return domain.ErrAlreadyOpen
	}
	if err := e.orch.Open(ctx); err != nil {
		return err
	}
	e.open = true
	return nil
}

// Close closes the backend stores. Volatile records not migrated to the
// durable store are lost.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.open {
		return domain.ErrNotOpen
	}
	e.open = false
	return e.orch.Close()
}

func (e *Engine) ensureOpen() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.open {
		return domain.ErrNotOpen
	}
	return nil
}

// GetAllOrders returns every live record.
func (e *Engine) GetAllOrders(ctx context.Context) ([]Order, error) {
	if err := e.ensureOpen(); err != nil {
		return nil, err
	}
	return e.orch.GetAllOrders(ctx)
}

// AddOrders imports records through the chunked pipeline: merge-on-write,
// bounded retries, partial-failure accounting. The summary is meaningful
// even when err is non-nil (context cancellation between chunks).
func (e *Engine) AddOrders(ctx context.Context, orders []Order) (ImportSummary, error) {
	if err := e.ensureOpen(); err != nil {
		return ImportSummary{}, err
	}
	return e.importer.Run(ctx, orders)
}

// UpdateStatus sets the status on every record whose tracking number is in
// keys and returns how many records were updated. Unknown keys are skipped.
func (e *Engine) UpdateStatus(ctx context.Context, keys []string, status Status) (int, error) {
	if err := e.ensureOpen(); err != nil {
		return 0, err
	}
	return e.orch.UpdateStatus(ctx, keys, status)
}

// CheckDuplicates partitions tracking numbers into present and absent.
func (e *Engine) CheckDuplicates(ctx context.Context, keys []string) (present, absent []string, err error) {
	if err := e.ensureOpen(); err != nil {
		return nil, nil, err
	}
	return e.orch.CheckDuplicates(ctx, keys)
}

// DeleteOrder removes one record by ID. Returns ErrNotFound for unknown IDs.
func (e *Engine) DeleteOrder(ctx context.Context, id string) error {
	if err := e.ensureOpen(); err != nil {
		return err
	}
	return e.orch.DeleteOrder(ctx, id)
}

// ClearAll removes every record from the local stores. A configured mirror
// is left untouched and will repopulate the store on the next read.
func (e *Engine) ClearAll(ctx context.Context) error {
	if err := e.ensureOpen(); err != nil {
		return err
	}
	return e.orch.ClearAll(ctx)
}

// StorageInfo reports the active backend's record count and footprint.
func (e *Engine) StorageInfo(ctx context.Context) (StorageInfo, error) {
	if err := e.ensureOpen(); err != nil {
		return StorageInfo{}, err
	}
	return e.orch.StorageInfo(ctx)
}

// ExportSnapshot serializes the full record set as an indented JSON
// snapshot document.
func (e *Engine) ExportSnapshot(ctx context.Context) ([]byte, error) {
	if err := e.ensureOpen(); err != nil {
		return nil, err
	}
	return e.snap.Export(ctx)
}

// ExportSnapshotToFile writes the snapshot atomically to path.
func (e *Engine) ExportSnapshotToFile(ctx context.Context, path string) error {
	if err := e.ensureOpen(); err != nil {
		return err
	}
	return e.snap.ExportToFile(ctx, path)
}

// ImportSnapshot restores records from snapshot data (the wrapped document
// or a bare record array) through the import pipeline.
func (e *Engine) ImportSnapshot(ctx context.Context, data []byte) (ImportSummary, error) {
	if err := e.ensureOpen(); err != nil {
		return ImportSummary{}, err
	}
	return e.snap.Import(ctx, data)
}

// RunIntegrityCheck evaluates duplicates, the accounting identity, and
// provenance consistency over the full record set.
func (e *Engine) RunIntegrityCheck(ctx context.Context) (IntegrityReport, error) {
	if err := e.ensureOpen(); err != nil {
		return IntegrityReport{}, err
	}
	return e.verifier.Check(ctx)
}

// AutoFixIntegrity applies the opt-in repairs: duplicate keys collapse to
// the latest record, provenance mismatches get the status-implied source.
func (e *Engine) AutoFixIntegrity(ctx context.Context) (RepairResult, error) {
	if err := e.ensureOpen(); err != nil {
		return RepairResult{}, err
	}
	return e.verifier.Repair(ctx)
}

// OrderStats aggregates counts and money totals over the full record set.
func (e *Engine) OrderStats(ctx context.Context) (OrderStats, error) {
	orders, err := e.GetAllOrders(ctx)
	if err != nil {
		return OrderStats{}, err
	}
	return domain.ComputeOrderStats(orders), nil
}

// RegionStats aggregates per-region delivery performance.
func (e *Engine) RegionStats(ctx context.Context) ([]RegionStats, error) {
	orders, err := e.GetAllOrders(ctx)
	if err != nil {
		return nil, err
	}
	return domain.ComputeRegionStats(orders), nil
}
