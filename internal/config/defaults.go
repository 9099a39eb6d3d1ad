package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Tracking: TrackingConfig{
			MinSessionSeconds:  1,
			MaxSessionSeconds:  0,
			HeartbeatSeconds:   30,
			FaviconMaxAttempts: 4,
			FaviconDelayMs:     750,
		},
		Ignore: IgnoreConfig{
			Domains:      DefaultIgnoreDomains(),
			PathPrefixes: DefaultIgnorePathPrefixes(),
		},
		Block: BlockConfig{
			Domains: []string{},
		},
		Retention: RetentionConfig{
			Weeks: 0, // keep everything unless pruned explicitly
		},
		Storage: StorageConfig{
			Path:       "~/.config/tempo",
			SQLiteFile: "tempo.db",
		},
		Daemon: DaemonConfig{
			Host:           "127.0.0.1",
			Port:           8177,
			MaxRequestSize: 1048576,
		},
		Auth: AuthConfig{
			Secret:        "",
			TokenTTLHours: 72,
			BcryptCost:    10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
