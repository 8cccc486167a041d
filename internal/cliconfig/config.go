// Package cliconfig holds the CLI-facing configuration for shipledger:
// defaults, file loading, environment overrides, and flag precedence.
//
// Precedence, lowest to highest: defaults, config file, environment
// variables (SHIPLEDGER_*), command-line flags.
package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds CLI configuration for shipledger.
type Config struct {
	// DataDir is the base directory for the database and snapshots.
	DataDir string

	// DBPath is the embedded database file. Derived from DataDir during
	// Validate when unset.
	DBPath string

	LogLevel string

	ChunkSize     int
	MaxAttempts   int
	RetryDelay    time.Duration
	ChunkPause    time.Duration
	OpTimeout     time.Duration
	VolatileLimit int
	Preflight     bool

	// Mirror settings. An empty MirrorAddr disables mirroring.
	MirrorAddr     string
	MirrorPassword string
	MirrorDB       int
	MirrorPrefix   string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		LogLevel:       "info",
		ChunkSize:      200,
		MaxAttempts:    3,
		RetryDelay:     500 * time.Millisecond,
		ChunkPause:     25 * time.Millisecond,
		OpTimeout:      30 * time.Second,
		VolatileLimit:  5000,
		MirrorPassword: os.Getenv("SHIPLEDGER_MIRROR_PASSWORD"),
	}
}

// DefaultDataDir returns ~/.shipledger, or empty when the home directory
// is not accessible.
func DefaultDataDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".shipledger")
	}
	return ""
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.DBPath == "" {
		if c.DataDir == "" {
			return fmt.Errorf("db-path is required (or data-dir)")
		}
		c.DBPath = filepath.Join(c.DataDir, "orders.db")
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if c.RetryDelay < 0 || c.ChunkPause < 0 || c.OpTimeout < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if c.MirrorDB < 0 {
		return fmt.Errorf("mirror db must not be negative")
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag
// precedence. It only applies values if the corresponding flag hasn't been
// explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not
// changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if
// valid. Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false. Used for
// environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
