package cli

import (
	"io"
	"log/slog"

	"github.com/roach88/hotclick/internal/config"
)

// newLogger builds the process logger. --verbose forces debug; otherwise
// the config's log_level applies.
func newLogger(w io.Writer, opts *RootOptions, cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil {
		level = cfg.Level()
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads --config, or returns the defaults when it is unset.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	if opts.Config == "" {
		return config.Default(), nil
	}
	return config.Load(opts.Config)
}

// databasePath resolves the store location: --db, then the config, then
// DefaultDatabase.
func databasePath(opts *RootOptions, cfg *config.Config) string {
	if opts.Database != "" {
		return opts.Database
	}
	if cfg != nil && cfg.Store != "" {
		return cfg.Store
	}
	return DefaultDatabase
}
