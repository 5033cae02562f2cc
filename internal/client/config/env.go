package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig lists the environment variables understood by the CLI. There are
// no env-default tags: unset variables keep the values of earlier sources.
type envConfig struct {
	APIBaseURL         string        `env:"API_URL" env-description:"base URL of the REST API"`
	StorageDSN         string        `env:"STORAGE_DSN" env-description:"SQLite file for the session"`
	RevalidateInterval time.Duration `env:"REVALIDATE_INTERVAL" env-description:"product list refresh period"`
	LogLevel           string        `env:"LOG_LEVEL" env-description:"debug, info, warn or error"`
}

func parseEnv(cfg *Config) error {
	var ec envConfig
	if err := cleanenv.ReadEnv(&ec); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	setString(&cfg.APIBaseURL, ec.APIBaseURL)
	setString(&cfg.StorageDSN, ec.StorageDSN)
	setString(&cfg.LogLevel, ec.LogLevel)
	setDuration(&cfg.RevalidateInterval, ec.RevalidateInterval)
	return nil
}

// EnvUsage describes the environment variables, for -h output.
func EnvUsage() string {
	var ec envConfig
	usage, err := cleanenv.GetDescription(&ec, nil)
	if err != nil {
		return ""
	}
	return usage
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
