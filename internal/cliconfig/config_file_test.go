package cliconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadFileConfig(t *testing.T) {
	path := writeConfigFile(t, `
data_dir = "/var/lib/shipledger"
log_level = "debug"
chunk_size = 100
retry_delay = "250ms"
op_timeout = "10s"
preflight = true
mirror_addr = "localhost:6379"
mirror_prefix = "orders"
`)

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig: %v", err)
	}
	if fc.DataDir != "/var/lib/shipledger" {
		t.Errorf("DataDir = %v", fc.DataDir)
	}
	if fc.ChunkSize != 100 {
		t.Errorf("ChunkSize = %v, want 100", fc.ChunkSize)
	}
	if fc.RetryDelay != "250ms" {
		t.Errorf("RetryDelay = %v, want 250ms", fc.RetryDelay)
	}
	if fc.Preflight == nil || !*fc.Preflight {
		t.Error("Preflight should be true")
	}
	if fc.MirrorAddr != "localhost:6379" {
		t.Errorf("MirrorAddr = %v", fc.MirrorAddr)
	}
}

func TestLoadFileConfigErrors(t *testing.T) {
	if _, err := LoadFileConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("want error for missing file")
	}

	path := writeConfigFile(t, `chunk_size = "not a number"`)
	if _, err := LoadFileConfig(path); err == nil {
		t.Error("want error for malformed file")
	}
}

func TestApplyFileConfig(t *testing.T) {
	cfg := DefaultConfig()
	yes := true
	fc := FileConfig{
		DataDir:    "/data",
		LogLevel:   "warn",
		ChunkSize:  100,
		RetryDelay: "1s",
		Preflight:  &yes,
		MirrorAddr: "localhost:6379",
	}

	if err := ApplyFileConfig(&cfg, fc, map[string]bool{}); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}
	if cfg.DataDir != "/data" || cfg.LogLevel != "warn" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ChunkSize != 100 {
		t.Errorf("ChunkSize = %v, want 100", cfg.ChunkSize)
	}
	if cfg.RetryDelay != time.Second {
		t.Errorf("RetryDelay = %v, want 1s", cfg.RetryDelay)
	}
	if !cfg.Preflight {
		t.Error("Preflight should be true")
	}
}

func TestApplyFileConfigFlagPrecedence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "debug" // from --log-level

	fc := FileConfig{LogLevel: "error", ChunkSize: 100}
	changed := map[string]bool{"log-level": true}

	if err := ApplyFileConfig(&cfg, fc, changed); err != nil {
		t.Fatalf("ApplyFileConfig: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %v, want flag value debug preserved", cfg.LogLevel)
	}
	if cfg.ChunkSize != 100 {
		t.Errorf("ChunkSize = %v, want file value 100 applied", cfg.ChunkSize)
	}
}

func TestApplyFileConfigBadDuration(t *testing.T) {
	cfg := DefaultConfig()
	fc := FileConfig{RetryDelay: "soon"}
	if err := ApplyFileConfig(&cfg, fc, map[string]bool{}); err == nil {
		t.Error("want error for unparseable duration")
	}
}
