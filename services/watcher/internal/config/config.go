package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultCatalogPath    = "sensors.yaml"
	defaultKeyHeader      = "x-api-key"
	defaultRequestTimeout = 30 * time.Second
	defaultFetchLimit     = 60
)

// Config holds runtime configuration for the watcher service.
type Config struct {
	DatabaseURL        string
	SensorAPIBaseURL   string
	SensorAPIKey       string
	SensorAPIKeyHeader string
	CatalogPath        string
	RequestTimeout     time.Duration
	FetchLimit         int
	DryRun             bool
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	cfg.SensorAPIBaseURL = strings.TrimSpace(os.Getenv("SENSOR_API_BASE_URL"))
	if cfg.SensorAPIBaseURL == "" {
		return cfg, errors.New("SENSOR_API_BASE_URL is required")
	}
	cfg.SensorAPIKey = strings.TrimSpace(os.Getenv("SENSOR_API_KEY"))

	cfg.SensorAPIKeyHeader = strings.TrimSpace(os.Getenv("SENSOR_API_KEY_HEADER"))
	if cfg.SensorAPIKeyHeader == "" {
		cfg.SensorAPIKeyHeader = defaultKeyHeader
	}

	cfg.CatalogPath = strings.TrimSpace(os.Getenv("SENSOR_CATALOG"))
	if cfg.CatalogPath == "" {
		cfg.CatalogPath = defaultCatalogPath
	}

	cfg.RequestTimeout = defaultRequestTimeout
	if v := strings.TrimSpace(os.Getenv("WATCHER_REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid WATCHER_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}

	cfg.FetchLimit = defaultFetchLimit
	if v := strings.TrimSpace(os.Getenv("WATCHER_FETCH_LIMIT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid WATCHER_FETCH_LIMIT: %w", err)
		}
		if n <= 0 {
			return cfg, fmt.Errorf("invalid WATCHER_FETCH_LIMIT: %d", n)
		}
		cfg.FetchLimit = n
	}

	dryRun := strings.TrimSpace(os.Getenv("DRY_RUN"))
	cfg.DryRun = dryRun == "1" || strings.EqualFold(dryRun, "true")

	return cfg, nil
}
