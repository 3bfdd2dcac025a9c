package config

import (
	"fmt"
	"time"
)

// Storage backends
const (
	BackendPebble  = "pebble"
	BackendBBolt   = "bbolt"
	BackendLevelDB = "leveldb"
	BackendMemory  = "memory"
)

// StorageConfig represents the [storage] section
// Configures the key-value store that holds ledger entries
type StorageConfig struct {
	Backend   string `toml:"backend" mapstructure:"backend"`
	Path      string `toml:"path" mapstructure:"path"`
	CacheSize int    `toml:"cache_size" mapstructure:"cache_size"`
}

// JournalConfig represents the [journal] section
// Configures the transaction outcome log
type JournalConfig struct {
	Driver         string `toml:"driver" mapstructure:"driver"`
	DSN            string `toml:"dsn" mapstructure:"dsn"`
	JournalMode    string `toml:"journal_mode" mapstructure:"journal_mode"`
	TimeoutSeconds int    `toml:"timeout_seconds" mapstructure:"timeout_seconds"`
	ReplayWindow   int    `toml:"replay_window" mapstructure:"replay_window"`
}

// Timeout returns the per-query journal timeout.
func (j JournalConfig) Timeout() time.Duration {
	return time.Duration(j.TimeoutSeconds) * time.Second
}

// Validate performs validation on the storage configuration
func (s *StorageConfig) Validate() error {
	validBackends := []string{BackendPebble, BackendBBolt, BackendLevelDB, BackendMemory}
	if !containsString(validBackends, s.Backend) {
		return fmt.Errorf("invalid storage backend: %q (valid options: pebble, bbolt, leveldb, memory)", s.Backend)
	}
	if s.CacheSize < 0 {
		return fmt.Errorf("cache_size must be non-negative, got %d", s.CacheSize)
	}
	return nil
}

// Validate performs validation on the journal configuration
func (j *JournalConfig) Validate() error {
	switch j.Driver {
	case "sqlite":
		validModes := []string{"", "delete", "truncate", "persist", "memory", "wal", "off"}
		if !containsString(validModes, j.JournalMode) {
			return fmt.Errorf("invalid journal_mode: %s", j.JournalMode)
		}
	case "postgres":
		if j.DSN == "" {
			return fmt.Errorf("postgres journal requires a dsn")
		}
	default:
		return fmt.Errorf("invalid journal driver: %q (valid options: sqlite, postgres)", j.Driver)
	}
	if j.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %d", j.TimeoutSeconds)
	}
	if j.ReplayWindow < 0 {
		return fmt.Errorf("replay_window must be non-negative, got %d", j.ReplayWindow)
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
