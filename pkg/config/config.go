// Package config loads the chisel configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	// Workers bounds the goroutines of each parallel phase; zero means
	// one per CPU.
	Workers int `yaml:"workers"`
	// BroadPhase selects the R-tree pair search; false classifies every
	// pair of brushes.
	BroadPhase bool `yaml:"broad_phase"`
	// UpdateTimeout bounds one update pass; zero means no limit.
	UpdateTimeout time.Duration `yaml:"update_timeout"`
	Log           LogConfig     `yaml:"log"`
	Preview       PreviewConfig `yaml:"preview"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// PreviewConfig tunes the preview mesh.
type PreviewConfig struct {
	// Cells is the marching cubes resolution along the longest side.
	Cells int `yaml:"cells"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		BroadPhase:    true,
		UpdateTimeout: 5 * time.Second,
		Log:           LogConfig{Level: "info", Format: "text"},
		Preview:       PreviewConfig{Cells: 64},
	}
}

// Load reads the file at path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.UpdateTimeout < 0 {
		errs = append(errs, fmt.Errorf("update_timeout must not be negative, got %s", c.UpdateTimeout))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Preview.Cells <= 0 {
		errs = append(errs, fmt.Errorf("preview.cells must be positive, got %d", c.Preview.Cells))
	}
	return errors.Join(errs...)
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
}

// NewLogger builds the logger the log settings describe, writing to w.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
