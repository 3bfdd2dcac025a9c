package config

import (
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
)

// ValidateConfig performs validation on the complete configuration
func ValidateConfig(config *Config) error {
	if config.DataDir == "" {
		if config.Storage.Path == "" && config.Storage.Backend != BackendMemory {
			return fmt.Errorf("data_dir is required unless storage.path is set")
		}
		if config.Journal.DSN == "" {
			return fmt.Errorf("data_dir is required unless journal.dsn is set")
		}
	}
	if _, err := logrus.ParseLevel(config.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}

	// Validate database configuration
	if err := config.Storage.Validate(); err != nil {
		return fmt.Errorf("storage validation failed: %w", err)
	}
	if err := config.Journal.Validate(); err != nil {
		return fmt.Errorf("journal validation failed: %w", err)
	}

	// Validate engine parameters
	if err := config.Engine.Validate(); err != nil {
		return fmt.Errorf("engine validation failed: %w", err)
	}

	// Validate listeners
	if err := validateListen("rpc.listen", config.RPC.Listen); err != nil {
		return err
	}
	if config.RPC.MaxBodyBytes <= 0 {
		return fmt.Errorf("rpc.max_body_bytes must be positive, got %d", config.RPC.MaxBodyBytes)
	}
	if config.RPC.ReadTimeoutSeconds < 0 || config.RPC.WriteTimeoutSeconds < 0 {
		return fmt.Errorf("rpc timeouts must be non-negative")
	}
	if config.GRPC.Enabled {
		if err := validateListen("grpc.listen", config.GRPC.Listen); err != nil {
			return err
		}
		if config.GRPC.Listen == config.RPC.Listen {
			return fmt.Errorf("grpc.listen and rpc.listen must differ, both are %s", config.RPC.Listen)
		}
	}
	return nil
}

// Validate performs validation on the engine configuration
func (e *EngineConfig) Validate() error {
	if e.ReplayCacheSize <= 0 {
		return fmt.Errorf("replay_cache_size must be positive, got %d", e.ReplayCacheSize)
	}
	if e.DepositBase == 0 && e.DepositPerByte == 0 {
		return fmt.Errorf("deposit_base and deposit_per_byte cannot both be zero")
	}
	return nil
}

func validateListen(key, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s is required", key)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, addr, err)
	}
	return nil
}
