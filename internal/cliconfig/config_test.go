package cliconfig

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.ChunkSize != 200 {
		t.Errorf("ChunkSize = %v, want 200", cfg.ChunkSize)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %v, want 3", cfg.MaxAttempts)
	}
	if cfg.RetryDelay != 500*time.Millisecond {
		t.Errorf("RetryDelay = %v, want 500ms", cfg.RetryDelay)
	}
	if cfg.OpTimeout != 30*time.Second {
		t.Errorf("OpTimeout = %v, want 30s", cfg.OpTimeout)
	}
	if cfg.MirrorAddr != "" {
		t.Errorf("MirrorAddr = %v, want empty (mirroring off)", cfg.MirrorAddr)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name       string
		config     Config
		wantErr    bool
		wantDBPath string
	}{
		{
			name: "valid minimal config",
			config: Config{
				DBPath:      "/tmp/orders.db",
				ChunkSize:   200,
				MaxAttempts: 3,
			},
			wantErr: false,
		},
		{
			name: "derived db path from data dir",
			config: Config{
				DataDir:     "/tmp/shipledger",
				ChunkSize:   200,
				MaxAttempts: 3,
			},
			wantErr:    false,
			wantDBPath: filepath.Join("/tmp/shipledger", "orders.db"),
		},
		{
			name: "invalid chunk size",
			config: Config{
				DBPath:      "/tmp/orders.db",
				ChunkSize:   0,
				MaxAttempts: 3,
			},
			wantErr: true,
		},
		{
			name: "invalid max attempts",
			config: Config{
				DBPath:      "/tmp/orders.db",
				ChunkSize:   200,
				MaxAttempts: -1,
			},
			wantErr: true,
		},
		{
			name: "negative duration",
			config: Config{
				DBPath:      "/tmp/orders.db",
				ChunkSize:   200,
				MaxAttempts: 3,
				OpTimeout:   -time.Second,
			},
			wantErr: true,
		},
		{
			name: "negative mirror db",
			config: Config{
				DBPath:      "/tmp/orders.db",
				ChunkSize:   200,
				MaxAttempts: 3,
				MirrorDB:    -1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantDBPath != "" && tt.config.DBPath != tt.wantDBPath {
				t.Errorf("DBPath = %v, want %v", tt.config.DBPath, tt.wantDBPath)
			}
		})
	}
}

func TestConfigSetterRespectsChangedFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChunkSize = 50 // pretend --chunk-size was passed

	s := newConfigSetter(map[string]bool{"chunk-size": true})
	s.setInt("chunk-size", 500, &cfg.ChunkSize)
	s.setInt("volatile-limit", 100, &cfg.VolatileLimit)

	if cfg.ChunkSize != 50 {
		t.Errorf("ChunkSize = %v, want flag value 50 preserved", cfg.ChunkSize)
	}
	if cfg.VolatileLimit != 100 {
		t.Errorf("VolatileLimit = %v, want 100 applied", cfg.VolatileLimit)
	}
}
