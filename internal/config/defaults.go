package config

import "github.com/spf13/viper"

// setDefaults sets every default value
func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "./data")
	v.SetDefault("log_level", "info")

	// Storage defaults
	v.SetDefault("storage.backend", BackendPebble)
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.cache_size", 4096)

	// Journal defaults
	v.SetDefault("journal.driver", "sqlite")
	v.SetDefault("journal.dsn", "")
	v.SetDefault("journal.journal_mode", "wal")
	v.SetDefault("journal.timeout_seconds", 30)
	v.SetDefault("journal.replay_window", 1000)

	// Engine defaults
	v.SetDefault("engine.deposit_base", 890_880)
	v.SetDefault("engine.deposit_per_byte", 6_960)
	v.SetDefault("engine.faucet_enabled", false)
	v.SetDefault("engine.replay_cache_size", 16384)

	// RPC defaults
	v.SetDefault("rpc.listen", "127.0.0.1:5005")
	v.SetDefault("rpc.websocket", true)
	v.SetDefault("rpc.metrics", true)
	v.SetDefault("rpc.read_timeout_seconds", 30)
	v.SetDefault("rpc.write_timeout_seconds", 30)
	v.SetDefault("rpc.max_body_bytes", 1<<20)

	// gRPC defaults
	v.SetDefault("grpc.enabled", false)
	v.SetDefault("grpc.listen", "127.0.0.1:50051")
}
