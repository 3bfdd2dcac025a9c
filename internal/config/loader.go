package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigFile is looked up in the working directory when no path is
// given.
const DefaultConfigFile = "offerd.toml"

// EnvPrefix prefixes every environment override, e.g. OFFERD_RPC_LISTEN.
const EnvPrefix = "OFFERD"

// LoadConfig loads configuration from multiple sources in priority order:
// 1. Default values
// 2. Configuration file (offerd.toml)
// 3. Environment variables (OFFERD_ prefix)
//
// An empty path falls back to offerd.toml in the working directory, and
// to defaults alone when that file does not exist either.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults first
	setDefaults(v)

	// 2. Load configuration file
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	loaded, err := loadConfigFile(v, path, explicit)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. Set up environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Unmarshal into struct
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if loaded {
		config.configPath = path
	}

	// 5. Validate the complete configuration
	if err := ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

// Default returns the configuration built from defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Sprintf("config: defaults do not unmarshal: %v", err))
	}
	return &config
}

// loadConfigFile reads path into v. A missing file is an error only when
// the caller named it explicitly.
func loadConfigFile(v *viper.Viper, path string, explicit bool) (bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if explicit {
			return false, fmt.Errorf("config file does not exist: %s", path)
		}
		return false, nil
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return false, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return true, nil
}
