package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/annosync/internal/common"
)

const (
	dbFileName  = "annosync.db"
	keyFileName = "device.key"
)

// Config holds runtime settings for the annosync CLI.
//
// Username and APIToken are bootstrap credentials: when both are set the
// app stores them through the account service on start, so a fresh machine
// can be set up from the environment instead of the login prompt.
type Config struct {
	DataDir string

	APIBaseURL        string
	Authority         string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Burst             int

	PageSize          int
	DebounceInterval  time.Duration
	UploadConcurrency int
	DeleteConcurrency int

	LogLevel    string
	MetricsAddr string

	Username string
	APIToken string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = defaultDataDir()
	c.APIBaseURL = "https://api.hypothes.is"
	c.Authority = "hypothes.is"
	c.RequestTimeout = 30 * time.Second
	c.RequestsPerSecond = 5
	c.Burst = 5
	c.PageSize = common.RemotePageSize
	c.DebounceInterval = common.UploadDebounceInterval
	c.UploadConcurrency = 4
	c.DeleteConcurrency = 8
	c.LogLevel = "info"
	c.MetricsAddr = ""
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".annosync"
	}
	return filepath.Join(home, ".annosync")
}

// DBPath is the SQLite database file inside DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, dbFileName)
}

// KeyPath is the device key file inside DataDir.
func (c *Config) KeyPath() string {
	return filepath.Join(c.DataDir, keyFileName)
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
