package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("BOSSTRACK_DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/bosstrack")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.TickInterval)
	assert.Equal(t, 30*time.Second, cfg.DispatchInterval)
	assert.Equal(t, 4, cfg.SchedulerWorkers)
	assert.Equal(t, 10, cfg.DefaultPreMin)
	assert.Equal(t, 0, cfg.DefaultWindowMin)
	assert.False(t, cfg.CatchupSilent)
	assert.Equal(t, 100, cfg.DispatchBatchSize)
	assert.Equal(t, 10*time.Second, cfg.DeliveryTimeout)
	assert.Equal(t, 5.0, cfg.SendRatePerSec)
	assert.Equal(t, 8000, cfg.APIPort)
	assert.True(t, cfg.RateLimitEnabled)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/bosstrack")
	t.Setenv("TICK_INTERVAL_SECONDS", "5")
	t.Setenv("CATCHUP_SILENT", "true")
	t.Setenv("SCHEDULER_WORKERS", "8")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.TickInterval)
	assert.True(t, cfg.CatchupSilent)
	assert.Equal(t, 8, cfg.SchedulerWorkers)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
}

func TestLoad_FallbackURLVariable(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("BOSSTRACK_DATABASE_URL", "postgres://localhost/alt")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/alt", cfg.DatabaseURL)
}

func TestEnvHelpers_IgnoreGarbage(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/bosstrack")
	t.Setenv("DB_POOL_MAX_CONNS", "not-a-number")
	t.Setenv("DEBUG", "not-a-bool")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.DBPoolMaxConns)
	assert.False(t, cfg.Debug)
}
