package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/profit-ledger/config"
	"github.com/warp/profit-ledger/store/sqlstore"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := config.FromEnv()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, sqlstore.DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, "profit.db", cfg.DB.DSN)
	assert.Equal(t, 15*time.Minute, cfg.DB.ConnMaxIdleTime)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 4, cfg.Retry.MaxAttempts)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("RETRY_INITIAL_INTERVAL", "10ms")
	t.Setenv("LOG_DEV", "true")

	cfg := config.FromEnv()

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, sqlstore.DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, 10*time.Millisecond, cfg.Retry.InitialInterval)
	assert.True(t, cfg.LogDev)
}

func TestGetters_FallBackOnGarbage(t *testing.T) {
	t.Setenv("PL_TEST_INT", "many")
	t.Setenv("PL_TEST_DUR", "soon")
	t.Setenv("PL_TEST_BOOL", "perhaps")

	assert.Equal(t, 7, config.GetInt("PL_TEST_INT", 7))
	assert.Equal(t, time.Second, config.GetDuration("PL_TEST_DUR", time.Second))
	assert.False(t, config.GetBool("PL_TEST_BOOL", false))
	assert.Equal(t, "x", config.GetString("PL_TEST_MISSING", "x"))
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("REDIS_ADDR=cache:6379\nLOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("REDIS_ADDR") })
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := config.Load(path)

	require.NoError(t, err)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}
