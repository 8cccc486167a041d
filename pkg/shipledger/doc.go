// Package shipledger provides an embeddable shipment order ledger.
//
// The engine persists shipment records in an embedded database, keyed by
// tracking number with merge-on-write semantics, and layers three pipelines
// on top: chunked batch import with retry, integrity verification against
// an accounting identity, and JSON snapshot export/import. When the
// embedded database cannot open, the engine degrades to a bounded
// in-memory store for the session; an optional remote mirror receives a
// best-effort copy of every write.
//
// # Basic Usage
//
//	cfg := shipledger.DefaultConfig()
//	cfg.DBPath = "/var/lib/shipledger/orders.db"
//
//	eng, err := shipledger.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if err := eng.Open(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
//	summary, err := eng.AddOrders(ctx, orders)
//
// # Configuration
//
// Create a [Config] with at minimum DBPath. All other fields have sensible
// defaults set via [Config.SetDefaults].
//
// # Dependency Injection
//
// For testing or custom persistence, inject implementations of the backend
// interfaces:
//
//	eng, err := shipledger.New(cfg,
//	    shipledger.WithLogger(customLogger),
//	    shipledger.WithRecordStore(customStore),
//	    shipledger.WithMirror(redisMirror),
//	)
//
// # Integrity
//
// [Engine.RunIntegrityCheck] reports violations as data without touching
// records; [Engine.AutoFixIntegrity] applies the documented repairs on
// explicit request.
package shipledger
