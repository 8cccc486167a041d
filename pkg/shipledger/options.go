package shipledger

import (
	"time"

	"github.com/parcelops/shipledger/internal/ports"
	"github.com/parcelops/shipledger/pkg/log"
)

// Logger is the interface for structured logging. Implementations from
// pkg/log satisfy it; so does any adapter with the same four methods.
type Logger = log.Logger

// LogField represents a structured log field.
type LogField = log.Field

// Option configures optional behavior of the engine.
type Option func(*options)

// options holds the optional configuration for an engine instance.
type options struct {
	logger   ports.Logger
	mirror   ports.Mirror
	store    ports.RecordStore
	fallback ports.RecordStore
	now      func() time.Time
}

func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
		now:    time.Now,
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMirror attaches a remote mirror. Every successful write is replicated
// to it best-effort, and an empty local store is repopulated from it once.
// If not provided, mirroring is disabled.
func WithMirror(mirror ports.Mirror) Option {
	return func(o *options) {
		o.mirror = mirror
	}
}

// WithRecordStore replaces the embedded database with a custom primary
// store. DBPath is ignored when set. Intended for tests and embedders with
// their own persistence.
func WithRecordStore(store ports.RecordStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithFallbackStore replaces the in-memory fallback store.
func WithFallbackStore(store ports.RecordStore) Option {
	return func(o *options) {
		o.fallback = store
	}
}

// WithNow overrides the engine clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}
