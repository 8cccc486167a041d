package shipledger

import (
	"fmt"
	"time"

	"github.com/parcelops/shipledger/internal/adapters/mem"
	"github.com/parcelops/shipledger/internal/app"
	"github.com/parcelops/shipledger/internal/domain"
)

// Config holds the configuration for a shipment ledger engine.
// Use DefaultConfig() to get a Config with sensible defaults, or construct
// one directly: only DBPath is required (unless a custom record store is
// injected via WithRecordStore).
type Config struct {
	// DBPath is the embedded database file. The parent directory is
	// created on Open when missing.
	DBPath string

	// VolatileLimit caps the in-memory fallback store used when the
	// embedded database is unavailable.
	VolatileLimit int

	// ChunkSize is the number of records per store write during imports.
	ChunkSize int

	// MaxAttempts bounds the retries of one import chunk.
	MaxAttempts int

	// RetryDelay is the base of the linear retry delay (attempt × delay).
	RetryDelay time.Duration

	// ChunkPause is the fixed yield between import chunks.
	ChunkPause time.Duration

	// OpTimeout bounds one store operation. A batch exceeding it settles
	// with partial counts instead of failing.
	OpTimeout time.Duration

	// Preflight enables the advisory duplicate check before imports.
	Preflight bool
}

// DefaultConfig returns a Config with sensible default values.
// At minimum, set DBPath before calling New.
func DefaultConfig() Config {
	return Config{
		VolatileLimit: mem.DefaultLimit,
		ChunkSize:     app.DefaultChunkSize,
		MaxAttempts:   app.DefaultMaxAttempts,
		RetryDelay:    app.DefaultRetryBase,
		ChunkPause:    app.DefaultChunkPause,
		OpTimeout:     app.DefaultOpTimeout,
	}
}

// SetDefaults fills unset fields with their default values.
func (c *Config) SetDefaults() {
	if c.VolatileLimit <= 0 {
		c.VolatileLimit = mem.DefaultLimit
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = app.DefaultChunkSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = app.DefaultMaxAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = app.DefaultRetryBase
	}
	if c.ChunkPause <= 0 {
		c.ChunkPause = app.DefaultChunkPause
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = app.DefaultOpTimeout
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c Config) Validate() error {
	if c.ChunkSize < 0 || c.MaxAttempts < 0 {
		return fmt.Errorf("%w: negative chunk size or attempt count", domain.ErrInvalidConfig)
	}
	if c.RetryDelay < 0 || c.ChunkPause < 0 || c.OpTimeout < 0 {
		return fmt.Errorf("%w: negative duration", domain.ErrInvalidConfig)
	}
	return nil
}
