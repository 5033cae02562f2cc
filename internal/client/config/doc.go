// Package config loads runtime configuration for the catalog admin CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via flags: -c or -config.
//  3. Environment variables: API_URL, STORAGE_DSN, REVALIDATE_INTERVAL, LOG_LEVEL.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   base URL of the REST API
//	-s string   SQLite file for the session
//	-r int      product list revalidation interval (seconds)
//	-l string   log level
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be either strings like "30s"
// or integer nanoseconds:
//
//	{
//	  "api_url": "http://localhost:8000/api/",
//	  "storage_dsn": "session.db",
//	  "revalidate_interval": "30s",
//	  "dedupe_interval": "5s",
//	  "http_timeout": "15s",
//	  "log_level": "warn"
//	}
package config
