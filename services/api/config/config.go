package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the REST API.
type Config struct {
	DatabaseURL  string
	Port         int
	DefaultLimit int
	JWTSecret    string

	SensorAPIBaseURL   string
	SensorAPIKey       string
	SensorAPIKeyHeader string
	CatalogPath        string

	PollInterval    time.Duration
	PollAlignOffset time.Duration
	PollTimeout     time.Duration
	SeriesWindow    int
	SeriesSkew      time.Duration
	TrendThreshold  float64
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		Port:               8080,
		DefaultLimit:       200,
		SensorAPIKeyHeader: "x-api-key",
		CatalogPath:        "sensors.yaml",
		PollInterval:       time.Minute,
		PollAlignOffset:    30 * time.Second,
		PollTimeout:        20 * time.Second,
		SeriesWindow:       60,
		SeriesSkew:         time.Minute,
		TrendThreshold:     0.01,
	}

	// optional: history and access logs are disabled without it
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	cfg.SensorAPIBaseURL = os.Getenv("SENSOR_API_BASE_URL")
	if cfg.SensorAPIBaseURL == "" {
		return cfg, errors.New("SENSOR_API_BASE_URL is required")
	}
	cfg.SensorAPIKey = os.Getenv("SENSOR_API_KEY")
	if header := os.Getenv("SENSOR_API_KEY_HEADER"); header != "" {
		cfg.SensorAPIKeyHeader = header
	}
	if path := os.Getenv("SENSOR_CATALOG"); path != "" {
		cfg.CatalogPath = path
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := os.Getenv("API_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid API_PORT: %s", portStr)
		}
	}

	if limitStr := os.Getenv("API_DEFAULT_LIMIT"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			cfg.DefaultLimit = limit
		} else {
			return cfg, fmt.Errorf("invalid API_DEFAULT_LIMIT: %s", limitStr)
		}
	}

	cfg.JWTSecret = os.Getenv("AUTH_JWT_SECRET")

	var err error
	if cfg.PollInterval, err = durationEnv("POLL_INTERVAL", cfg.PollInterval, false); err != nil {
		return cfg, err
	}
	if cfg.PollAlignOffset, err = durationEnv("POLL_ALIGN_OFFSET", cfg.PollAlignOffset, true); err != nil {
		return cfg, err
	}
	if cfg.PollAlignOffset >= cfg.PollInterval {
		return cfg, fmt.Errorf("invalid POLL_ALIGN_OFFSET: %s must be shorter than POLL_INTERVAL", cfg.PollAlignOffset)
	}
	if cfg.PollTimeout, err = durationEnv("POLL_TIMEOUT", cfg.PollTimeout, false); err != nil {
		return cfg, err
	}
	if cfg.SeriesSkew, err = durationEnv("SERIES_SKEW", cfg.SeriesSkew, true); err != nil {
		return cfg, err
	}

	if windowStr := os.Getenv("SERIES_WINDOW"); windowStr != "" {
		if window, err := strconv.Atoi(windowStr); err == nil && window > 0 {
			cfg.SeriesWindow = window
		} else {
			return cfg, fmt.Errorf("invalid SERIES_WINDOW: %s", windowStr)
		}
	}

	if thresholdStr := os.Getenv("TREND_THRESHOLD"); thresholdStr != "" {
		if threshold, err := strconv.ParseFloat(thresholdStr, 64); err == nil && threshold > 0 {
			cfg.TrendThreshold = threshold
		} else {
			return cfg, fmt.Errorf("invalid TREND_THRESHOLD: %s", thresholdStr)
		}
	}

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// HasDatabase reports whether archival features are enabled.
func (c Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

func durationEnv(key string, fallback time.Duration, allowZero bool) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 || (d == 0 && !allowZero) {
		return fallback, fmt.Errorf("invalid %s: %s", key, raw)
	}
	return d, nil
}
