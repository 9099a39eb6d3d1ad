package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/tempo/config.yaml"

// Config holds all tempo configuration.
type Config struct {
	Tracking  TrackingConfig  `yaml:"tracking"`
	Ignore    IgnoreConfig    `yaml:"ignore"`
	Block     BlockConfig     `yaml:"block"`
	Retention RetentionConfig `yaml:"retention"`
	Storage   StorageConfig   `yaml:"storage"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// TrackingConfig tunes the session tracker.
type TrackingConfig struct {
	// MinSessionSeconds is the close-out threshold below which a session
	// is discarded instead of being recorded.
	MinSessionSeconds int `yaml:"min_session_seconds"`
	// MaxSessionSeconds caps a single close-out; 0 means uncapped.
	MaxSessionSeconds int `yaml:"max_session_seconds"`
	// HeartbeatSeconds is the interval at which a long-lived session is
	// flushed and reopened.
	HeartbeatSeconds int `yaml:"heartbeat_seconds"`
	// FaviconMaxAttempts bounds favicon polling for a new session.
	FaviconMaxAttempts int `yaml:"favicon_max_attempts"`
	// FaviconDelayMs is the fixed wait between favicon poll attempts.
	FaviconDelayMs int `yaml:"favicon_delay_ms"`
}

// IgnoreConfig lists hostnames and path prefixes excluded from tracking.
type IgnoreConfig struct {
	Domains      []string `yaml:"domains"`
	PathPrefixes []string `yaml:"path_prefixes"`
}

// BlockConfig seeds the blocklist of domains closed automatically.
type BlockConfig struct {
	Domains []string `yaml:"domains"`
}

type RetentionConfig struct {
	Weeks int `yaml:"weeks"`
}

type StorageConfig struct {
	Path       string `yaml:"path"`
	SQLiteFile string `yaml:"sqlite_file"`
}

type DaemonConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxRequestSize int    `yaml:"max_request_size"`
}

type AuthConfig struct {
	Secret        string `yaml:"secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
	BcryptCost    int    `yaml:"bcrypt_cost"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.Tracking.MinSessionSeconds < 0 {
		return nil, fmt.Errorf("tracking.min_session_seconds must not be negative")
	}
	if cfg.Tracking.MaxSessionSeconds < 0 {
		return nil, fmt.Errorf("tracking.max_session_seconds must not be negative")
	}
	if cfg.Tracking.HeartbeatSeconds <= 0 {
		return nil, fmt.Errorf("tracking.heartbeat_seconds must be positive")
	}

	return cfg, nil
}

// DBPath resolves the configured SQLite database path.
func (c *Config) DBPath() (string, error) {
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
