package domain

import "errors"

// Domain errors returned by the public API. Check with errors.Is.
var (
	// ErrStoreUnavailable is returned by every call against a store whose
	// open failed. The failure is reported once; later calls fail fast.
	ErrStoreUnavailable = errors.New("shipledger: record store unavailable")

	// ErrNotFound is returned when a record id or tracking number does not
	// resolve to a live record.
	ErrNotFound = errors.New("shipledger: order not found")

	// ErrAlreadyOpen is returned when Open is called on an open engine.
	ErrAlreadyOpen = errors.New("shipledger: already open")

	// ErrNotOpen is returned when an operation runs before Open.
	ErrNotOpen = errors.New("shipledger: not open")

	// ErrInvalidSnapshot is returned when snapshot data cannot be parsed.
	// This is a structural failure: the whole import call is rejected.
	ErrInvalidSnapshot = errors.New("shipledger: invalid snapshot")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("shipledger: invalid configuration")
)
