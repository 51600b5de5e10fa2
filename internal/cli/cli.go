// Package cli holds the startup steps shared by the welcome commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/chaz8081/gatt-welcome/internal/config"
	"github.com/chaz8081/gatt-welcome/internal/logging"
	"github.com/chaz8081/gatt-welcome/internal/trace"
)

// LoadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults. source describes
// where the config came from.
func LoadConfig(path string) (cfg *config.Config, source string, err error) {
	if path != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, "", fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, defaultPath, nil
	}

	return config.Default(), "built-in defaults", nil
}

// Setup loads and validates the config and builds the logger. A non-empty
// tracePath overrides trace_path from the config.
func Setup(w io.Writer, configPath, tracePath string) (*config.Config, *slog.Logger, error) {
	cfg, source, err := LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config validation: %w", err)
	}
	if tracePath != "" {
		cfg.TracePath = tracePath
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	log := logging.New(w, level)
	log.Debug("config loaded", "source", source)
	return cfg, log, nil
}

// OpenTrace returns the recorder for path and a function that closes it.
// An empty path records nothing.
func OpenTrace(path string) (trace.Recorder, func() error, error) {
	if path == "" {
		return trace.NoopRecorder{}, func() error { return nil }, nil
	}
	rec, err := trace.NewFileRecorder(path)
	if err != nil {
		return nil, nil, err
	}
	return rec, rec.Close, nil
}

// WriteDefaultConfig handles -write-config.
func WriteDefaultConfig(w io.Writer) error {
	path, err := config.WriteDefault()
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Fprintf(w, "Config already exists at %s\n", config.DefaultConfigPath())
		return nil
	}
	fmt.Fprintf(w, "Wrote default config to %s\n", path)
	return nil
}

// Fatal logs msg at FATAL and exits 1.
func Fatal(log *slog.Logger, msg string, args ...any) {
	log.Log(context.Background(), logging.LevelFatal, msg, args...)
	os.Exit(1)
}
