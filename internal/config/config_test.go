package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, NewValidator().Validate(cfg))

	assert.Equal(t, 4, cfg.Core.MaxParallel)
	assert.InDelta(t, 0.5, cfg.Gate.RiskThreshold, 1e-9)
	assert.Equal(t, 2, cfg.Gate.MaxRevisions)
	assert.Equal(t, 2*time.Minute, cfg.Auction.Timeout)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
core:
  max_parallel: 8
gate:
  risk_threshold: 0.3
  max_revisions: 1
server:
  host: 0.0.0.0
  port: 9000
logging:
  level: debug
  format: text
`)

	cfg, err := NewLoader(NewValidator()).Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Core.MaxParallel)
	assert.InDelta(t, 0.3, cfg.Gate.RiskThreshold, 1e-9)
	assert.Equal(t, 1, cfg.Gate.MaxRevisions)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Address())
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched sections keep their defaults.
	assert.Equal(t, 2*time.Minute, cfg.Auction.Timeout)
}

func TestLoadInterpolatesEnvVars(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "/tmp/jarvis-test.db")
	path := writeConfig(t, `
database:
  path: ${TEST_DB_PATH}
`)

	cfg, err := NewLoader(NewValidator()).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/jarvis-test.db", cfg.Database.Path)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"max_parallel too low", "core:\n  max_parallel: 0\n"},
		{"risk threshold above one", "gate:\n  risk_threshold: 1.5\n"},
		{"bad log level", "logging:\n  level: loud\n"},
		{"bad port", "server:\n  port: 99999\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(NewValidator()).Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Equal(t, types.CONFIG_INVALID, types.CodeOf(err))
		})
	}
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := NewLoader(NewValidator()).LoadWithDefaults(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Core.MaxParallel, cfg.Core.MaxParallel)
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := NewLoader(NewValidator()).Load(writeConfig(t, "core: [not a map"))
	require.Error(t, err)
	assert.Equal(t, types.CONFIG_LOAD_FAILED, types.CodeOf(err))
}
