package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setBase(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/wardmon")
	t.Setenv("SENSOR_API_BASE_URL", "http://sensors.local")
	for _, key := range []string{"SENSOR_API_KEY", "SENSOR_API_KEY_HEADER", "SENSOR_CATALOG", "WATCHER_REQUEST_TIMEOUT", "WATCHER_FETCH_LIMIT", "DRY_RUN"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	setBase(t)
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "x-api-key", cfg.SensorAPIKeyHeader)
	require.Equal(t, "sensors.yaml", cfg.CatalogPath)
	require.Equal(t, 30*time.Second, cfg.RequestTimeout)
	require.Equal(t, 60, cfg.FetchLimit)
	require.False(t, cfg.DryRun)
}

func TestLoadDryRunAndLimit(t *testing.T) {
	setBase(t)
	t.Setenv("DRY_RUN", "TRUE")
	t.Setenv("WATCHER_FETCH_LIMIT", "120")
	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.DryRun)
	require.Equal(t, 120, cfg.FetchLimit)
}

func TestLoadRequiresDatabase(t *testing.T) {
	setBase(t)
	t.Setenv("DATABASE_URL", "")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsBadLimit(t *testing.T) {
	setBase(t)
	t.Setenv("WATCHER_FETCH_LIMIT", "0")
	_, err := Load()
	require.Error(t, err)
}
