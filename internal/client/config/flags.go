package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/annosync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   data directory
//	-u string   hypothes.is API base URL
//	-l string   log level
//	-m string   metrics listen address
//	-i int      debounce interval for live uploads in seconds
//
// os.Args is filtered with flagx.FilterArgs first, so flags owned by other
// loaders do not interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-u", "-l", "-m", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.APIBaseURL, "u", cfg.APIBaseURL, "hypothes.is API base URL")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "metrics listen address")
	debounce := fs.Int("i", int(cfg.DebounceInterval.Seconds()), "debounce interval for live uploads (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			cfg.DebounceInterval = time.Duration(*debounce) * time.Second
		}
	})
}
