package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/grazerhq/grazer/internal/api"
	"github.com/grazerhq/grazer/internal/config"
	"github.com/grazerhq/grazer/internal/store"
)

// loadConfig loads the user config plus env overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger at the configured level. Logs go to
// stderr so they never mix with command output or the TUI.
func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// newClient builds the content API client from config.
func newClient(cfg *config.Config, logger *slog.Logger) *api.Client {
	return api.NewClient(api.Options{
		BaseURL:      cfg.API.BaseURL,
		Timeout:      time.Duration(cfg.API.RequestTimeoutMs) * time.Millisecond,
		SuggestLimit: cfg.Search.SuggestLimit,
		Logger:       logger,
	})
}

// openStore opens the local search database, creating directories on
// first use. Callers must Close it.
func openStore() (*store.SQLiteStore, error) {
	paths := config.DefaultPaths()
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create data directories: %w", err)
	}
	st, err := store.NewSQLiteStore(paths.DatabaseFile())
	if err != nil {
		return nil, fmt.Errorf("failed to open search database: %w", err)
	}
	return st, nil
}
