package app

import (
	"context"
	"time"
)

// Default retry configuration for chunked imports.
const (
	DefaultRetryBase   = 500 * time.Millisecond
	DefaultMaxAttempts = 3
)

// backoff implements the import pipeline's linearly increasing retry delay:
// the pause before retrying attempt n is n times the base delay.
type backoff struct {
	base    time.Duration
	attempt int
}

// newBackoff creates a backoff with the given base delay.
func newBackoff(base time.Duration) *backoff {
	if base <= 0 {
		base = DefaultRetryBase
	}
	return &backoff{base: base}
}

// Sleep waits for the next linearly increased delay, or returns early with
// the context's error when it is canceled.
func (b *backoff) Sleep(ctx context.Context) error {
	b.attempt++
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(b.attempt) * b.base):
		return nil
	}
}

// Reset restarts the progression for the next chunk.
func (b *backoff) Reset() {
	b.attempt = 0
}
