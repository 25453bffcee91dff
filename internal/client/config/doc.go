// Package config loads runtime configuration for the annosync CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Environment, after loading a dotenv file (see parseEnv). The file is
//     taken from -e or -env, or ".env" in the working directory if present.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-d string   data directory (database and device key)
//	-u string   hypothes.is API base URL
//	-l string   log level (debug, info, warn, error)
//	-m string   listen address for the Prometheus /metrics endpoint
//	-i int      debounce interval for live uploads (seconds)
//
// Environment
//
//	ANNOSYNC_DATA_DIR, ANNOSYNC_API_URL, ANNOSYNC_AUTHORITY,
//	ANNOSYNC_REQUEST_TIMEOUT, ANNOSYNC_REQUESTS_PER_SECOND, ANNOSYNC_BURST,
//	ANNOSYNC_PAGE_SIZE, ANNOSYNC_DEBOUNCE_INTERVAL, ANNOSYNC_UPLOAD_CONCURRENCY,
//	ANNOSYNC_DELETE_CONCURRENCY, ANNOSYNC_LOG_LEVEL, ANNOSYNC_METRICS_ADDR,
//	HYPOTHESIS_USERNAME, HYPOTHESIS_API_TOKEN
//
// Durations in the environment use time.ParseDuration syntax.
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "10s" or integer nanoseconds:
//
//	{
//	  "data_dir": "/home/me/.annosync",
//	  "api_base_url": "https://api.hypothes.is",
//	  "authority": "hypothes.is",
//	  "request_timeout": "30s",
//	  "requests_per_second": 5,
//	  "burst": 5,
//	  "page_size": 10000,
//	  "debounce_interval": "10s",
//	  "upload_concurrency": 4,
//	  "delete_concurrency": 8,
//	  "log_level": "info",
//	  "metrics_addr": "127.0.0.1:9464"
//	}
//
// Fields missing from the file keep their earlier values. Credentials are
// not read from JSON.
package config
