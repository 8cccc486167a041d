// Package shipledger is the root convenience import for the shipment
// ledger engine. It re-exports the embeddable API from pkg/shipledger;
// import that package directly for the full surface.
//
// Example usage:
//
//	cfg := shipledger.DefaultConfig()
//	cfg.DBPath = "/var/lib/shipledger/orders.db"
//	eng, err := shipledger.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := eng.Open(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
package shipledger

import (
	engine "github.com/parcelops/shipledger/pkg/shipledger"
)

// Engine is the embeddable shipment ledger.
type Engine = engine.Engine

// Config holds the engine configuration. Use DefaultConfig() for sensible
// defaults.
type Config = engine.Config

// Option configures optional engine behavior.
type Option = engine.Option

// Order is the persisted shipment record.
type Order = engine.Order

// Status is an order lifecycle state.
type Status = engine.Status

// New creates an engine with the given configuration.
func New(cfg Config, opts ...Option) (*Engine, error) {
	return engine.New(cfg, opts...)
}

// DefaultConfig returns a Config with sensible default values.
// At minimum, set DBPath before calling New.
func DefaultConfig() Config {
	return engine.DefaultConfig()
}
