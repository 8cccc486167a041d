package app

import (
	"context"
	"time"

	"github.com/parcelops/shipledger/internal/domain"
	"github.com/parcelops/shipledger/internal/ports"
)

// Default import pipeline tuning. The chunk size stays well under the
// embedded store's practical per-transaction limit; the pause keeps a
// large import from monopolizing the engine between chunks.
const (
	DefaultChunkSize  = 200
	DefaultChunkPause = 25 * time.Millisecond
)

// ImporterConfig tunes the batch import pipeline.
type ImporterConfig struct {
	// ChunkSize is the number of records submitted per store write.
	ChunkSize int

	// MaxAttempts bounds the retries of one chunk.
	MaxAttempts int

	// RetryBase is the base of the linear retry delay (attempt × base).
	RetryBase time.Duration

	// ChunkPause is the fixed yield between chunks.
	ChunkPause time.Duration

	// Preflight runs an advisory duplicate check over the whole key set
	// before the first write. It never changes write behavior.
	Preflight bool
}

// SetDefaults fills unset fields.
func (c *ImporterConfig) SetDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryBase <= 0 {
		c.RetryBase = DefaultRetryBase
	}
	if c.ChunkPause <= 0 {
		c.ChunkPause = DefaultChunkPause
	}
}

// Importer turns an unbounded sequence of candidate records into bounded
// store writes with retry and partial-failure accounting. One chunk's
// exhaustion never aborts the whole import; chunk N+1 is submitted only
// after chunk N has fully settled.
type Importer struct {
	cfg    ImporterConfig
	orch   *Orchestrator
	logger ports.Logger
}

// NewImporter creates an importer over the given orchestrator.
func NewImporter(cfg ImporterConfig, orch *Orchestrator, logger ports.Logger) *Importer {
	cfg.SetDefaults()
	return &Importer{cfg: cfg, orch: orch, logger: logger}
}

// Run imports the whole sequence and always returns a summary; the error
// is non-nil only when the caller's context ends the import early. Records
// already committed stay committed — there is no compensating rollback.
func (im *Importer) Run(ctx context.Context, orders []domain.Order) (domain.ImportSummary, error) {
	var sum domain.ImportSummary
	if len(orders) == 0 {
		return sum, nil
	}

	sum.Duplicates = countDuplicates(orders)

	if im.cfg.Preflight {
		keys := make([]string, len(orders))
		for i, rec := range orders {
			keys[i] = rec.TrackingNumber
		}
		present, _, err := im.orch.CheckDuplicates(ctx, keys)
		if err != nil {
			im.logger.Warn("pre-flight duplicate check failed", ports.Err(err))
		} else {
			sum.Preexisting = len(present)
			if len(present) > 0 {
				im.logger.Info("incoming keys already exist and will be merged",
					ports.Int("count", len(present)))
			}
		}
	}

	back := newBackoff(im.cfg.RetryBase)
	for off := 0; off < len(orders); off += im.cfg.ChunkSize {
		end := off + im.cfg.ChunkSize
		if end > len(orders) {
			end = len(orders)
		}
		chunk := orders[off:end]

		res, err := im.submitChunk(ctx, chunk, back)
		if err != nil {
			// Retry budget exhausted: the whole chunk counts as failed and
			// the import moves on.
			sum.Failed += len(chunk)
			sum.FailedChunks = append(sum.FailedChunks, domain.ChunkFailure{
				Offset: off,
				Size:   len(chunk),
				Err:    err,
			})
			im.logger.Warn("chunk failed after retries",
				ports.Int("offset", off), ports.Int("size", len(chunk)), ports.Err(err))
		} else {
			sum.Created += res.Created
			sum.Updated += res.Updated
			sum.Failed += res.Failed
		}

		if end == len(orders) {
			break
		}
		// Yield between chunks. A canceled caller stops here with every
		// settled chunk durably committed.
		select {
		case <-ctx.Done():
			return sum, ctx.Err()
		case <-time.After(im.cfg.ChunkPause):
		}
	}
	return sum, nil
}

// submitChunk dedupes the chunk (last occurrence of a tracking number
// wins, so the store's merge order is not left undefined) and writes it
// with bounded, linearly delayed retries.
func (im *Importer) submitChunk(ctx context.Context, chunk []domain.Order, back *backoff) (domain.BatchResult, error) {
	deduped := dedupeLastWins(chunk)
	back.Reset()

	var lastErr error
	for attempt := 1; attempt <= im.cfg.MaxAttempts; attempt++ {
		res, err := im.orch.AddOrders(ctx, deduped)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if attempt == im.cfg.MaxAttempts {
			break
		}
		im.logger.Warn("chunk write failed, retrying",
			ports.Int("attempt", attempt), ports.Err(err))
		if serr := back.Sleep(ctx); serr != nil {
			return domain.BatchResult{}, lastErr
		}
	}
	return domain.BatchResult{}, lastErr
}

// dedupeLastWins collapses repeated tracking numbers within one chunk,
// keeping the last occurrence in its original position order.
func dedupeLastWins(chunk []domain.Order) []domain.Order {
	lastIdx := make(map[string]int, len(chunk))
	for i, rec := range chunk {
		lastIdx[rec.TrackingNumber] = i
	}
	if len(lastIdx) == len(chunk) {
		return chunk
	}
	out := make([]domain.Order, 0, len(lastIdx))
	for i, rec := range chunk {
		if lastIdx[rec.TrackingNumber] == i {
			out = append(out, rec)
		}
	}
	return out
}
