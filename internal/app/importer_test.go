package app

import (
	"context"
	"testing"
	"time"

	"github.com/parcelops/shipledger/internal/adapters/mem"
	"github.com/parcelops/shipledger/internal/domain"
	"github.com/parcelops/shipledger/internal/ports"
	"github.com/parcelops/shipledger/pkg/log"
)

func newTestImporter(t *testing.T, cfg ImporterConfig, stores []ports.RecordStore) (*Importer, *Orchestrator) {
	t.Helper()
	orch := newTestOrchestrator(t, stores, nil)
	return NewImporter(cfg, orch, log.NewNoopLogger()), orch
}

func fastConfig() ImporterConfig {
	return ImporterConfig{
		ChunkSize:   2,
		MaxAttempts: 3,
		RetryBase:   time.Millisecond,
		ChunkPause:  time.Millisecond,
	}
}

func TestImporterEmptyInput(t *testing.T) {
	im, _ := newTestImporter(t, fastConfig(), []ports.RecordStore{mem.NewStore(0)})
	sum, err := im.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Created != 0 || sum.Updated != 0 || sum.Failed != 0 ||
		sum.Duplicates != 0 || sum.Preexisting != 0 || len(sum.FailedChunks) != 0 {
		t.Fatalf("summary = %+v, want zero value", sum)
	}
}

func TestImporterFailedChunkDoesNotAbortLaterChunks(t *testing.T) {
	store := newFakeStore()
	im, _ := newTestImporter(t, fastConfig(), []ports.RecordStore{store})

	// The store reports unavailable for exactly the first chunk's three
	// attempts, then recovers.
	store.mu.Lock()
	store.downFor = 3
	store.mu.Unlock()

	batch := []domain.Order{
		testOrder("PK-1", domain.StatusSent),
		testOrder("PK-2", domain.StatusSent),
		testOrder("PK-3", domain.StatusSent),
		testOrder("PK-4", domain.StatusSent),
		testOrder("PK-5", domain.StatusSent),
	}
	sum, err := im.Run(context.Background(), batch)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Failed != 2 {
		t.Fatalf("Failed = %d, want 2 (the whole first chunk)", sum.Failed)
	}
	if sum.Created != 3 {
		t.Fatalf("Created = %d, want 3", sum.Created)
	}
	if len(sum.FailedChunks) != 1 {
		t.Fatalf("FailedChunks = %+v, want exactly one entry", sum.FailedChunks)
	}
	if fc := sum.FailedChunks[0]; fc.Offset != 0 || fc.Size != 2 {
		t.Fatalf("failed chunk = %+v, want offset 0 size 2", fc)
	}

	// Records from the surviving chunks are committed.
	n, err := store.Count(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("store count = %d, %v; want 3", n, err)
	}
}

func TestImporterDedupeLastOccurrenceWins(t *testing.T) {
	store := mem.NewStore(0)
	im, _ := newTestImporter(t, fastConfig(), []ports.RecordStore{store})

	first := testOrder("PK-1", domain.StatusSent)
	first.COD = 100
	last := testOrder("PK-1", domain.StatusSent)
	last.COD = 250

	sum, err := im.Run(context.Background(), []domain.Order{first, last})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Duplicates != 1 {
		t.Fatalf("Duplicates = %d, want 1", sum.Duplicates)
	}
	if sum.Created != 1 {
		t.Fatalf("Created = %d, want 1", sum.Created)
	}

	rec, ok, err := store.GetByTrackingNumber(context.Background(), "PK-1")
	if err != nil || !ok {
		t.Fatalf("record missing: %v", err)
	}
	if rec.COD != 250 {
		t.Fatalf("COD = %v, want 250 (last occurrence wins)", rec.COD)
	}
}

func TestImporterPreflightCountsPreexistingKeys(t *testing.T) {
	store := mem.NewStore(0)
	cfg := fastConfig()
	cfg.Preflight = true
	im, orch := newTestImporter(t, cfg, []ports.RecordStore{store})
	ctx := context.Background()

	if _, err := orch.AddOrders(ctx, []domain.Order{testOrder("PK-1", domain.StatusSent)}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sum, err := im.Run(ctx, []domain.Order{
		testOrder("PK-1", domain.StatusDelivered),
		testOrder("PK-2", domain.StatusSent),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Preexisting != 1 {
		t.Fatalf("Preexisting = %d, want 1", sum.Preexisting)
	}
	if sum.Created != 1 || sum.Updated != 1 {
		t.Fatalf("summary = %+v, want 1 created 1 updated", sum)
	}
}

func TestImporterStopsBetweenChunksOnCancel(t *testing.T) {
	store := mem.NewStore(0)
	cfg := fastConfig()
	cfg.ChunkPause = 50 * time.Millisecond
	im, _ := newTestImporter(t, cfg, []ports.RecordStore{store})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := []domain.Order{
		testOrder("PK-1", domain.StatusSent),
		testOrder("PK-2", domain.StatusSent),
		testOrder("PK-3", domain.StatusSent),
	}
	sum, err := im.Run(ctx, batch)
	if err == nil {
		t.Fatal("Run with canceled context: want error")
	}
	// The first chunk settled before the cancellation was observed.
	if sum.Created != 2 {
		t.Fatalf("Created = %d, want 2 (first chunk committed)", sum.Created)
	}
}

func TestDedupeLastWinsPreservesOrder(t *testing.T) {
	chunk := []domain.Order{
		{TrackingNumber: "A", COD: 1},
		{TrackingNumber: "B", COD: 2},
		{TrackingNumber: "A", COD: 3},
		{TrackingNumber: "C", COD: 4},
	}
	out := dedupeLastWins(chunk)
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	want := []string{"B", "A", "C"}
	for i, key := range want {
		if out[i].TrackingNumber != key {
			t.Fatalf("out[%d] = %q, want %q", i, out[i].TrackingNumber, key)
		}
	}
	if out[1].COD != 3 {
		t.Fatalf("kept COD = %v, want 3 (last occurrence)", out[1].COD)
	}
}
