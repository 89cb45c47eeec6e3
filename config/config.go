// Package config reads the service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jupark12/fiado/ledger"
)

type Config struct {
	HTTPAddr           string
	DatabaseURL        string
	DataDir            string
	UploadDir          string
	NumWorkers         int
	WorkerPollInterval time.Duration
	SuggestionLimit    int
	PrometheusEnabled  bool
	LogDevelopment     bool
	PortalBaseURL      string
	EntrySessionTTL    time.Duration
}

// Load reads the configuration. An empty DATABASE_URL selects the in-memory store.
func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DataDir:       getEnv("DATA_DIR", ".data"),
		UploadDir:     getEnv("UPLOAD_DIR", ".uploads"),
		PortalBaseURL: getEnv("PORTAL_BASE_URL", "http://localhost:8080"),
	}

	var err error
	if cfg.NumWorkers, err = getEnvInt("NUM_WORKERS", 4); err != nil {
		return Config{}, err
	}
	if cfg.NumWorkers < 1 {
		return Config{}, fmt.Errorf("NUM_WORKERS must be at least 1, got %d", cfg.NumWorkers)
	}
	if cfg.SuggestionLimit, err = getEnvInt("SUGGESTION_LIMIT", ledger.DefaultSuggestionLimit); err != nil {
		return Config{}, err
	}
	if cfg.SuggestionLimit < 1 {
		return Config{}, fmt.Errorf("SUGGESTION_LIMIT must be at least 1, got %d", cfg.SuggestionLimit)
	}
	if cfg.WorkerPollInterval, err = getEnvDuration("WORKER_POLL_INTERVAL", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.EntrySessionTTL, err = getEnvDuration("ENTRY_SESSION_TTL", 30*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.PrometheusEnabled, err = getEnvBool("PROMETHEUS_ENABLED", false); err != nil {
		return Config{}, err
	}
	if cfg.LogDevelopment, err = getEnvBool("LOG_DEVELOPMENT", false); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// getEnv returns the variable or defaultValue when it is unset or empty
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}
