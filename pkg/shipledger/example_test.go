package shipledger_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/parcelops/shipledger/pkg/shipledger"
)

// ExampleNew demonstrates embedding the engine in an application.
func ExampleNew() {
	dir, err := os.MkdirTemp("", "shipledger-example")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)

	cfg := shipledger.DefaultConfig()
	cfg.DBPath = filepath.Join(dir, "orders.db")

	eng, err := shipledger.New(cfg)
	if err != nil {
		fmt.Printf("failed to create engine: %v\n", err)
		return
	}

	ctx := context.Background()
	if err := eng.Open(ctx); err != nil {
		fmt.Printf("failed to open: %v\n", err)
		return
	}
	defer eng.Close()

	summary, err := eng.AddOrders(ctx, []shipledger.Order{
		{ID: "a0001", TrackingNumber: "PK-1001", Status: shipledger.StatusSent, SendDate: "2026-08-01"},
		{ID: "a0002", TrackingNumber: "PK-1002", Status: shipledger.StatusDelivered, SendDate: "2026-08-02"},
	})
	if err != nil {
		fmt.Printf("import failed: %v\n", err)
		return
	}
	fmt.Printf("created=%d updated=%d failed=%d\n", summary.Created, summary.Updated, summary.Failed)

	// Output: created=2 updated=0 failed=0
}

// ExampleEngine_RunIntegrityCheck demonstrates the on-demand verifier.
func ExampleEngine_RunIntegrityCheck() {
	dir, err := os.MkdirTemp("", "shipledger-example")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)

	cfg := shipledger.DefaultConfig()
	cfg.DBPath = filepath.Join(dir, "orders.db")

	eng, err := shipledger.New(cfg)
	if err != nil {
		fmt.Println(err)
		return
	}
	ctx := context.Background()
	if err := eng.Open(ctx); err != nil {
		fmt.Println(err)
		return
	}
	defer eng.Close()

	if _, err := eng.AddOrders(ctx, []shipledger.Order{
		{ID: "a0001", TrackingNumber: "PK-1001", Status: shipledger.StatusSent, SendDate: "2026-08-01", Source: "sent"},
	}); err != nil {
		fmt.Println(err)
		return
	}

	report, err := eng.RunIntegrityCheck(ctx)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("records=%d clean=%v\n", report.RecordCount, report.Clean())

	// Output: records=1 clean=true
}
