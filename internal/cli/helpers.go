package cli

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/soleren/tempo/internal/config"
	"github.com/soleren/tempo/internal/storage"
)

// loadConfig resolves the config for a command: an explicit --config
// path is loaded strictly; otherwise the default path is loaded,
// creating it with defaults on first run.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	if globals != nil && globals.Config != "" {
		return config.Load(globals.Config)
	}
	return config.LoadOrCreate()
}

// openStore opens the configured SQLite store with migrations applied.
func openStore(cfg *config.Config) (*storage.SQLiteStore, *sql.DB, error) {
	dbPath, err := cfg.DBPath()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve db path: %w", err)
	}
	return storage.Open(dbPath)
}

// newLogger builds a slog logger honoring the configured level and the
// --verbose flag.
func newLogger(cfg *config.Config, globals *GlobalFlags) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if globals != nil && globals.Verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
