package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	full := writeTempJSON(t, dir, "full.json", map[string]any{
		"data_dir":            "/srv/annosync",
		"api_base_url":        "http://localhost:5000",
		"authority":           "localhost",
		"request_timeout":     "5s",
		"requests_per_second": 2.5,
		"burst":               3,
		"page_size":           200,
		"debounce_interval":   "250ms",
		"upload_concurrency":  2,
		"delete_concurrency":  6,
		"log_level":           "debug",
		"metrics_addr":        ":9464",
	})

	t.Run("loads every field", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", full}

		cfg := &Config{}
		parseJson(cfg)

		want := &Config{
			DataDir:           "/srv/annosync",
			APIBaseURL:        "http://localhost:5000",
			Authority:         "localhost",
			RequestTimeout:    5 * time.Second,
			RequestsPerSecond: 2.5,
			Burst:             3,
			PageSize:          200,
			DebounceInterval:  250 * time.Millisecond,
			UploadConcurrency: 2,
			DeleteConcurrency: 6,
			LogLevel:          "debug",
			MetricsAddr:       ":9464",
		}
		assert.Empty(t, cmp.Diff(want, cfg))
	})

	t.Run("partial file keeps other values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{"log_level": "error"})
		os.Args = []string{"testbin", "-c", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "error", cfg.LogLevel)
		assert.Equal(t, "https://api.hypothes.is", cfg.APIBaseURL)
		assert.Equal(t, 10*time.Second, cfg.DebounceInterval)
	})

	t.Run("no flag, no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{DataDir: "/defaults", LogLevel: "info"}
		parseJson(cfg)

		assert.Equal(t, "/defaults", cfg.DataDir)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "absent.json")}

		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
