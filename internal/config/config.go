package config

import (
	"path/filepath"
	"time"

	"github.com/LeJamon/offerd/internal/core/tx"
)

// Config represents the complete offerd configuration
type Config struct {
	// DataDir holds the ledger database and, by default, the journal
	DataDir string `toml:"data_dir" mapstructure:"data_dir"`

	// LogLevel is a logrus level name
	LogLevel string `toml:"log_level" mapstructure:"log_level"`

	Storage StorageConfig `toml:"storage" mapstructure:"storage"`
	Journal JournalConfig `toml:"journal" mapstructure:"journal"`
	Engine  EngineConfig  `toml:"engine" mapstructure:"engine"`
	RPC     RPCConfig     `toml:"rpc" mapstructure:"rpc"`
	GRPC    GRPCConfig    `toml:"grpc" mapstructure:"grpc"`

	// Internal fields for configuration management
	configPath string `toml:"-" mapstructure:"-"`
}

// EngineConfig represents the [engine] section
type EngineConfig struct {
	DepositBase     uint64 `toml:"deposit_base" mapstructure:"deposit_base"`
	DepositPerByte  uint64 `toml:"deposit_per_byte" mapstructure:"deposit_per_byte"`
	FaucetEnabled   bool   `toml:"faucet_enabled" mapstructure:"faucet_enabled"`
	ReplayCacheSize int    `toml:"replay_cache_size" mapstructure:"replay_cache_size"`
}

// RPCConfig represents the [rpc] section
type RPCConfig struct {
	Listen              string `toml:"listen" mapstructure:"listen"`
	WebSocket           bool   `toml:"websocket" mapstructure:"websocket"`
	Metrics             bool   `toml:"metrics" mapstructure:"metrics"`
	ReadTimeoutSeconds  int    `toml:"read_timeout_seconds" mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `toml:"write_timeout_seconds" mapstructure:"write_timeout_seconds"`
	MaxBodyBytes        int64  `toml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// GRPCConfig represents the [grpc] section
type GRPCConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

// GetConfigPath returns the path of the loaded configuration file, empty
// when only defaults and environment were used.
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// StoragePath is the directory of the ledger database.
func (c *Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	return filepath.Join(c.DataDir, "ledger")
}

// JournalDSN is the journal data source, defaulting to a sqlite file in
// the data directory.
func (c *Config) JournalDSN() string {
	if c.Journal.DSN != "" {
		return c.Journal.DSN
	}
	return filepath.Join(c.DataDir, "journal.db")
}

// TxConfig converts the [engine] section to engine parameters.
func (c *Config) TxConfig() tx.EngineConfig {
	return tx.EngineConfig{
		DepositBase:     c.Engine.DepositBase,
		DepositPerByte:  c.Engine.DepositPerByte,
		FaucetEnabled:   c.Engine.FaucetEnabled,
		ReplayCacheSize: c.Engine.ReplayCacheSize,
	}
}

// ReadTimeout returns the RPC read timeout.
func (r RPCConfig) ReadTimeout() time.Duration {
	return time.Duration(r.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the RPC write timeout.
func (r RPCConfig) WriteTimeout() time.Duration {
	return time.Duration(r.WriteTimeoutSeconds) * time.Second
}
