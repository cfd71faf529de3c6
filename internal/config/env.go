package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvAPIURL        = "VIVA_API_URL"
	EnvLanguage      = "VIVA_LANGUAGE"
	EnvMetricsListen = "VIVA_METRICS_LISTEN"
)

// LoadDotEnv loads each existing file into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %q: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overrides file values with VIVA_* environment variables.
func ApplyEnv(cfg *Config) []Warning {
	var warnings []Warning

	if value, ok := lookupEnv(EnvAPIURL); ok {
		cfg.API.BaseURL = value
		warnings = append(warnings, Warning{Message: fmt.Sprintf("api.base_url overridden by %s", EnvAPIURL)})
	}
	if value, ok := lookupEnv(EnvLanguage); ok {
		cfg.Session.Language = value
	}
	if value, ok := lookupEnv(EnvMetricsListen); ok {
		cfg.Metrics.Listen = value
	}
	return warnings
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
