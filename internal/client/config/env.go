package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/annosync/internal/flagx"
)

const (
	envDataDir           = "ANNOSYNC_DATA_DIR"
	envAPIBaseURL        = "ANNOSYNC_API_URL"
	envAuthority         = "ANNOSYNC_AUTHORITY"
	envRequestTimeout    = "ANNOSYNC_REQUEST_TIMEOUT"
	envRequestsPerSecond = "ANNOSYNC_REQUESTS_PER_SECOND"
	envBurst             = "ANNOSYNC_BURST"
	envPageSize          = "ANNOSYNC_PAGE_SIZE"
	envDebounceInterval  = "ANNOSYNC_DEBOUNCE_INTERVAL"
	envUploadConcurrency = "ANNOSYNC_UPLOAD_CONCURRENCY"
	envDeleteConcurrency = "ANNOSYNC_DELETE_CONCURRENCY"
	envLogLevel          = "ANNOSYNC_LOG_LEVEL"
	envMetricsAddr       = "ANNOSYNC_METRICS_ADDR"
	envUsername          = "HYPOTHESIS_USERNAME"
	envAPIToken          = "HYPOTHESIS_API_TOKEN"
)

// parseEnv overlays Config with environment variables. A dotenv file named
// by -e or -env is loaded first and must exist; otherwise ".env" is loaded
// when present. Variables already set in the process environment win over
// the file. Panics on unreadable files and malformed values.
func parseEnv(cfg *Config) {
	loadDotEnv(flagx.EnvFileFlags())

	envString(&cfg.DataDir, envDataDir)
	envString(&cfg.APIBaseURL, envAPIBaseURL)
	envString(&cfg.Authority, envAuthority)
	envDuration(&cfg.RequestTimeout, envRequestTimeout)
	envFloat(&cfg.RequestsPerSecond, envRequestsPerSecond)
	envInt(&cfg.Burst, envBurst)
	envInt(&cfg.PageSize, envPageSize)
	envDuration(&cfg.DebounceInterval, envDebounceInterval)
	envInt(&cfg.UploadConcurrency, envUploadConcurrency)
	envInt(&cfg.DeleteConcurrency, envDeleteConcurrency)
	envString(&cfg.LogLevel, envLogLevel)
	envString(&cfg.MetricsAddr, envMetricsAddr)
	envString(&cfg.Username, envUsername)
	envString(&cfg.APIToken, envAPIToken)
}

func loadDotEnv(path string) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	*dst = n
}

func envFloat(dst *float64, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	*dst = f
}

func envDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	*dst = d
}
