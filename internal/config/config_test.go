package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_STORE", "")
	t.Setenv("SYNC_INTERVAL_MS", "")
	t.Setenv("API_BASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, StoreFile, cfg.Session.Store)
	require.Equal(t, 3*time.Second, cfg.Sync.Interval())
	require.Equal(t, "http://localhost:8080", cfg.API.BaseURL)
	require.Equal(t, "127.0.0.1:8090", cfg.App.Addr())
}

func TestLoad_ReadsEnv(t *testing.T) {
	t.Setenv("SESSION_STORE", "Redis")
	t.Setenv("SYNC_INTERVAL_MS", "1500")
	t.Setenv("API_BASE_URL", "http://coffee.local:9000/")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("QUEUE_USERNAME", "alice")
	t.Setenv("QUEUE_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, StoreRedis, cfg.Session.Store)
	require.Equal(t, 1500*time.Millisecond, cfg.Sync.Interval())
	require.Equal(t, "http://coffee.local:9000", cfg.API.BaseURL)
	require.Equal(t, 3, cfg.Redis.DB)
	require.True(t, cfg.Session.HasAutoLogin())
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Run("redis db", func(t *testing.T) {
		t.Setenv("REDIS_DB", "zero")
		_, err := Load()
		require.Error(t, err)
	})
	t.Run("session store", func(t *testing.T) {
		t.Setenv("REDIS_DB", "")
		t.Setenv("SESSION_STORE", "localstorage")
		_, err := Load()
		require.Error(t, err)
	})
}

func TestSyncInterval_NonPositiveFallsBack(t *testing.T) {
	t.Parallel()

	require.Equal(t, 3*time.Second, SyncConfig{IntervalMs: 0}.Interval())
	require.Equal(t, 3*time.Second, SyncConfig{IntervalMs: -10}.Interval())
	require.Equal(t, 250*time.Millisecond, SyncConfig{IntervalMs: 250}.Interval())
}

func TestLoad_ReportsEveryMalformedValue(t *testing.T) {
	t.Setenv("SESSION_STORE", "")
	t.Setenv("REDIS_DB", "")
	t.Setenv("SYNC_INTERVAL_MS", "fast")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "maybe")

	_, err := Load()
	require.Error(t, err)
	require.ErrorContains(t, err, "SYNC_INTERVAL_MS")
	require.ErrorContains(t, err, "POSTGRES_RUN_MIGRATIONS")
}
