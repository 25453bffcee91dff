package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.NotEmpty(t, c.DataDir)
	assert.Equal(t, "https://api.hypothes.is", c.APIBaseURL)
	assert.Equal(t, "hypothes.is", c.Authority)
	assert.Equal(t, 10000, c.PageSize)
	assert.Equal(t, 10*time.Second, c.DebounceInterval)
	assert.Equal(t, 4, c.UploadConcurrency)
	assert.Equal(t, 8, c.DeleteConcurrency)
	assert.Equal(t, "info", c.LogLevel)
	assert.Empty(t, c.MetricsAddr)
	assert.Empty(t, c.Username)
	assert.Empty(t, c.APIToken)
}

func TestPaths(t *testing.T) {
	c := Config{DataDir: "/var/lib/annosync"}

	assert.Equal(t, filepath.Join("/var/lib/annosync", "annosync.db"), c.DBPath())
	assert.Equal(t, filepath.Join("/var/lib/annosync", "device.key"), c.KeyPath())
}

func TestLoadConfig_Precedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	jsonPath := writeTempJSON(t, dir, "cfg.json", map[string]any{
		"data_dir":  "/from/json",
		"log_level": "warn",
		"burst":     9,
	})
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envUsername, "reader")

	os.Args = []string{"annosync", "-c", jsonPath, "-d", "/from/flag"}

	cfg := LoadConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, "/from/flag", cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9, cfg.Burst)
	assert.Equal(t, "reader", cfg.Username)
	assert.Equal(t, 10*time.Second, cfg.DebounceInterval)
}
