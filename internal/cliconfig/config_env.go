package cliconfig

import "os"

// Environment variable names. Environment overrides the config file but is
// overridden by explicitly set flags.
const (
	EnvDataDir       = "SHIPLEDGER_DATA_DIR"
	EnvDBPath        = "SHIPLEDGER_DB_PATH"
	EnvLogLevel      = "SHIPLEDGER_LOG_LEVEL"
	EnvChunkSize     = "SHIPLEDGER_CHUNK_SIZE"
	EnvMaxAttempts   = "SHIPLEDGER_MAX_ATTEMPTS"
	EnvRetryDelay    = "SHIPLEDGER_RETRY_DELAY"
	EnvChunkPause    = "SHIPLEDGER_CHUNK_PAUSE"
	EnvOpTimeout     = "SHIPLEDGER_OP_TIMEOUT"
	EnvVolatileLimit = "SHIPLEDGER_VOLATILE_LIMIT"
	EnvPreflight     = "SHIPLEDGER_PREFLIGHT"
	EnvMirrorAddr    = "SHIPLEDGER_MIRROR_ADDR"
	EnvMirrorDB      = "SHIPLEDGER_MIRROR_DB"
	EnvMirrorPrefix  = "SHIPLEDGER_MIRROR_PREFIX"
)

// ApplyEnvConfig applies SHIPLEDGER_* environment variables to the Config.
// It respects flags that have been explicitly set (changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("data-dir", os.Getenv(EnvDataDir), &cfg.DataDir)
	s.setString("db-path", os.Getenv(EnvDBPath), &cfg.DBPath)
	s.setString("log-level", os.Getenv(EnvLogLevel), &cfg.LogLevel)

	if err := s.setIntFromString("chunk-size", os.Getenv(EnvChunkSize), &cfg.ChunkSize); err != nil {
		return err
	}
	if err := s.setIntFromString("max-attempts", os.Getenv(EnvMaxAttempts), &cfg.MaxAttempts); err != nil {
		return err
	}
	if err := s.setIntFromString("volatile-limit", os.Getenv(EnvVolatileLimit), &cfg.VolatileLimit); err != nil {
		return err
	}
	if err := s.setIntFromString("mirror-db", os.Getenv(EnvMirrorDB), &cfg.MirrorDB); err != nil {
		return err
	}

	if err := s.setDuration("retry-delay", os.Getenv(EnvRetryDelay), &cfg.RetryDelay); err != nil {
		return err
	}
	if err := s.setDuration("chunk-pause", os.Getenv(EnvChunkPause), &cfg.ChunkPause); err != nil {
		return err
	}
	if err := s.setDuration("op-timeout", os.Getenv(EnvOpTimeout), &cfg.OpTimeout); err != nil {
		return err
	}

	s.setBoolFromString("preflight", os.Getenv(EnvPreflight), &cfg.Preflight)
	s.setString("mirror-addr", os.Getenv(EnvMirrorAddr), &cfg.MirrorAddr)
	s.setString("mirror-prefix", os.Getenv(EnvMirrorPrefix), &cfg.MirrorPrefix)

	return nil
}
