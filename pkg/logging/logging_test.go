package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gridpool.log")

	logger, err := New(Config{Level: "debug", Encoding: "json", OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.Debug("created pool")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "created pool", entry["message"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "gridpool", entry["logger"])
}

func TestNew_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gridpool.log")

	logger, err := New(Config{Level: "warn", OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.Info("ignored")
	logger.Warn("failed to release pool")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "ignored")
	assert.Contains(t, string(data), "failed to release pool")
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "unknown level", cfg: Config{Level: "loud"}},
		{name: "unknown encoding", cfg: Config{Encoding: "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			require.Error(t, err)
			assert.Nil(t, logger)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Encoding)
	assert.NotNil(t, Nop())
}
