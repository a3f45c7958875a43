package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chisel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.BroadPhase)
	assert.Equal(t, 5*time.Second, cfg.UpdateTimeout)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
workers: 4
broad_phase: false
update_timeout: 250ms
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
	assert.False(t, cfg.BroadPhase)
	assert.Equal(t, 250*time.Millisecond, cfg.UpdateTimeout)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
	// Unset sections keep their defaults.
	assert.Equal(t, 64, cfg.Preview.Cells)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"negative workers", "workers: -1", "workers must not be negative"},
		{"bad level", "log:\n  level: loud", "log.level"},
		{"bad format", "log:\n  format: xml", "log.format"},
		{"zero cells", "preview:\n  cells: 0", "preview.cells"},
		{"not yaml", "workers: [", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = -2
	cfg.Preview.Cells = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
	assert.Contains(t, err.Error(), "preview.cells")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "brush", "1.1")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"brush":"1.1"`)

	_, err = LogConfig{Level: "nope"}.NewLogger(&buf)
	assert.Error(t, err)
}
