package cliconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parcelops/shipledger/pkg/log"
)

func TestWatcherFiresOnConfigChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("log_level = \"info\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	fired := make(chan struct{}, 1)
	w := NewWatcher(path, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}, log.NewNoopLogger())

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("log_level = \"debug\"\n"), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("callback not invoked after config change")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("log_level = \"info\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	fired := make(chan struct{}, 1)
	w := NewWatcher(path, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}, log.NewNoopLogger())

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write other: %v", err)
	}

	select {
	case <-fired:
		t.Fatal("callback fired for unrelated file")
	case <-time.After(300 * time.Millisecond):
	}
}
