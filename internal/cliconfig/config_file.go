package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML
// friendly.
type FileConfig struct {
	DataDir  string `toml:"data_dir"`
	DBPath   string `toml:"db_path"`
	LogLevel string `toml:"log_level"`

	ChunkSize     int    `toml:"chunk_size"`
	MaxAttempts   int    `toml:"max_attempts"`
	RetryDelay    string `toml:"retry_delay"`
	ChunkPause    string `toml:"chunk_pause"`
	OpTimeout     string `toml:"op_timeout"`
	VolatileLimit int    `toml:"volatile_limit"`
	Preflight     *bool  `toml:"preflight"`

	MirrorAddr     string `toml:"mirror_addr"`
	MirrorPassword string `toml:"mirror_password"`
	MirrorDB       int    `toml:"mirror_db"`
	MirrorPrefix   string `toml:"mirror_prefix"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.shipledger/config.toml if the home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".shipledger", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("data-dir", fc.DataDir, &cfg.DataDir)
	s.setString("db-path", fc.DBPath, &cfg.DBPath)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setInt("chunk-size", fc.ChunkSize, &cfg.ChunkSize)
	s.setInt("max-attempts", fc.MaxAttempts, &cfg.MaxAttempts)
	s.setInt("volatile-limit", fc.VolatileLimit, &cfg.VolatileLimit)

	if err := s.setDuration("retry-delay", fc.RetryDelay, &cfg.RetryDelay); err != nil {
		return err
	}
	if err := s.setDuration("chunk-pause", fc.ChunkPause, &cfg.ChunkPause); err != nil {
		return err
	}
	if err := s.setDuration("op-timeout", fc.OpTimeout, &cfg.OpTimeout); err != nil {
		return err
	}

	s.setBool("preflight", fc.Preflight, &cfg.Preflight)

	s.setString("mirror-addr", fc.MirrorAddr, &cfg.MirrorAddr)
	s.setString("mirror-password", fc.MirrorPassword, &cfg.MirrorPassword)
	s.setInt("mirror-db", fc.MirrorDB, &cfg.MirrorDB)
	s.setString("mirror-prefix", fc.MirrorPrefix, &cfg.MirrorPrefix)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
