package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/foamyadmin/internal/flagx"
	"github.com/dmitrijs2005/foamyadmin/internal/timex"
)

// JSONConfig is a DTO used exclusively for JSON unmarshalling. Intervals are
// timex.Duration, so JSON may hold strings like "30s" or integer nanoseconds.
// Absent keys leave the current values alone.
type JSONConfig struct {
	APIBaseURL         string         `json:"api_url"`
	StorageDSN         string         `json:"storage_dsn"`
	RevalidateInterval timex.Duration `json:"revalidate_interval"`
	DedupeInterval     timex.Duration `json:"dedupe_interval"`
	HTTPTimeout        timex.Duration `json:"http_timeout"`
	LogLevel           string         `json:"log_level"`
}

// parseJSON overlays cfg with the file named by -c / -config, if any.
func parseJSON(cfg *Config) error {
	path := flagx.ConfigPath()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	setString(&cfg.StorageDSN, jc.StorageDSN)
	setString(&cfg.LogLevel, jc.LogLevel)
	setDuration(&cfg.RevalidateInterval, jc.RevalidateInterval.Duration)
	setDuration(&cfg.DedupeInterval, jc.DedupeInterval.Duration)
	setDuration(&cfg.HTTPTimeout, jc.HTTPTimeout.Duration)
	return nil
}
