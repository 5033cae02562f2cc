package config

import (
	"time"

	"github.com/dmitrijs2005/foamyadmin/internal/common"
)

// Config holds runtime settings for the catalog admin CLI.
//
// Fields:
//   - APIBaseURL: absolute base URL of the REST API, ending with "/api/".
//   - StorageDSN: SQLite file keeping the session between runs.
//   - RevalidateInterval: how often the product list is re-fetched.
//   - DedupeInterval: how long a product list fetch satisfies repeated loads.
//   - HTTPTimeout: per-request timeout of the API client.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	APIBaseURL         string
	StorageDSN         string
	RevalidateInterval time.Duration
	DedupeInterval     time.Duration
	HTTPTimeout        time.Duration
	LogLevel           string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = common.DefaultAPIBaseURL
	c.StorageDSN = "session.db"
	c.RevalidateInterval = 30 * time.Second
	c.DedupeInterval = 5 * time.Second
	c.HTTPTimeout = 15 * time.Second
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
