// Package domain contains the core entities of the shipledger engine:
// the shipment order record, its merge semantics, derived statistics,
// result types returned by bulk operations, and domain errors.
//
// The package has no dependencies outside the standard library and
// github.com/google/uuid, keeping the dependency direction one-way
// (adapters and app depend on domain, never the reverse).
package domain
