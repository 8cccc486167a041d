package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parcelops/shipledger/internal/domain"
	"github.com/parcelops/shipledger/internal/ports"
)

// SnapshotVersion is the current snapshot document version.
const SnapshotVersion = "1.0"

// Snapshot is the export/import document: a versioned wrapper around the
// full record set.
type Snapshot struct {
	Version    string         `json:"version"`
	ExportDate time.Time      `json:"exportDate"`
	Orders     []domain.Order `json:"orders"`
}

// Snapshotter exports and imports the full record set as JSON documents.
// Imports run through the batch pipeline, so chunking, retries, and
// merge-on-write all apply.
type Snapshotter struct {
	orch     *Orchestrator
	importer *Importer
	logger   ports.Logger
	now      func() time.Time
}

// NewSnapshotter creates a snapshotter over the given orchestrator and
// importer.
func NewSnapshotter(orch *Orchestrator, importer *Importer, logger ports.Logger, now func() time.Time) *Snapshotter {
	if now == nil {
		now = time.Now
	}
	return &Snapshotter{orch: orch, importer: importer, logger: logger, now: now}
}

// Export serializes the full record set into a snapshot document.
func (s *Snapshotter) Export(ctx context.Context) ([]byte, error) {
	orders, err := s.orch.GetAllOrders(ctx)
	if err != nil {
		return nil, err
	}
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportDate: s.now().UTC(),
		Orders:     orders,
	}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

// ExportToFile writes the snapshot atomically (temp file, then rename) to
// prevent a half-written backup on crash.
func (s *Snapshotter) ExportToFile(ctx context.Context, path string) error {
	b, err := s.Export(ctx)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Import parses snapshot data — either the versioned wrapper or a bare
// record array for backward compatibility — and writes the records through
// the import pipeline. Records missing id, trackingNumber, or sendDate are
// rejected and counted without blocking the rest. Malformed JSON rejects
// the whole call: there is no partial state to preserve yet.
func (s *Snapshotter) Import(ctx context.Context, data []byte) (domain.ImportSummary, error) {
	orders, err := parseSnapshot(data)
	if err != nil {
		return domain.ImportSummary{}, err
	}

	accepted := make([]domain.Order, 0, len(orders))
	rejected := 0
	for _, o := range orders {
		if !o.HasRequiredFields() {
			rejected++
			continue
		}
		accepted = append(accepted, o)
	}
	if rejected > 0 {
		s.logger.Warn("snapshot records rejected for missing required fields",
			ports.Int("rejected", rejected))
	}

	sum, err := s.importer.Run(ctx, accepted)
	sum.Rejected = rejected
	sum.Failed += rejected
	return sum, err
}

// parseSnapshot accepts the wrapped document or a bare array.
func parseSnapshot(data []byte) ([]domain.Order, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err == nil && (snap.Version != "" || snap.Orders != nil) {
		return snap.Orders, nil
	}

	var bare []domain.Order
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare, nil
	}

	return nil, fmt.Errorf("%w: neither a snapshot document nor a record array", domain.ErrInvalidSnapshot)
}
