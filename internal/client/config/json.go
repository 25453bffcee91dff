package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/annosync/internal/flagx"
	"github.com/dmitrijs2005/annosync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields tell "absent" apart from zero values, so a partial file only
// overrides what it names.
type JsonConfig struct {
	DataDir           *string         `json:"data_dir"`
	APIBaseURL        *string         `json:"api_base_url"`
	Authority         *string         `json:"authority"`
	RequestTimeout    *timex.Duration `json:"request_timeout"`
	RequestsPerSecond *float64        `json:"requests_per_second"`
	Burst             *int            `json:"burst"`
	PageSize          *int            `json:"page_size"`
	DebounceInterval  *timex.Duration `json:"debounce_interval"`
	UploadConcurrency *int            `json:"upload_concurrency"`
	DeleteConcurrency *int            `json:"delete_concurrency"`
	LogLevel          *string         `json:"log_level"`
	MetricsAddr       *string         `json:"metrics_addr"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Without the flag nothing happens. Panics on read or
// unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	setIf(&cfg.DataDir, jc.DataDir)
	setIf(&cfg.APIBaseURL, jc.APIBaseURL)
	setIf(&cfg.Authority, jc.Authority)
	setIf(&cfg.RequestsPerSecond, jc.RequestsPerSecond)
	setIf(&cfg.Burst, jc.Burst)
	setIf(&cfg.PageSize, jc.PageSize)
	setIf(&cfg.UploadConcurrency, jc.UploadConcurrency)
	setIf(&cfg.DeleteConcurrency, jc.DeleteConcurrency)
	setIf(&cfg.LogLevel, jc.LogLevel)
	setIf(&cfg.MetricsAddr, jc.MetricsAddr)

	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.DebounceInterval != nil {
		cfg.DebounceInterval = jc.DebounceInterval.Duration
	}
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
