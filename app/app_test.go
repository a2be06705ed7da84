package app_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/profit-ledger/app"
	"github.com/warp/profit-ledger/cache"
	"github.com/warp/profit-ledger/config"
	"github.com/warp/profit-ledger/ledger"
	"github.com/warp/profit-ledger/store/sqlstore"
)

func testConfig() config.Config {
	cfg := config.FromEnv()
	cfg.DB = sqlstore.Config{Driver: sqlstore.DriverSQLite, DSN: ":memory:"}
	cfg.RedisAddr = ""
	cfg.Retry = ledger.DefaultRetryPolicy
	return cfg
}

func TestNew_InProcessCache(t *testing.T) {
	a, err := app.New(context.Background(), testConfig(), nil)
	require.NoError(t, err)
	defer a.Close()

	_, ok := a.Cache.(*cache.Memory)
	assert.True(t, ok)
}

func TestNew_RedisCacheEndToEnd(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisAddr = mr.Addr()
	ctx := context.Background()

	a, err := app.New(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	// GIVEN: a scenario loaded through the handler on SQLite
	require.NoError(t, a.Handler().Load(ctx, "vesting-ladder"))

	// WHEN
	pct, err := a.Vesting.GetVestingPercent(ctx, ledger.ScheduleNewPlan, 5)

	// THEN: the lookup went through redis
	require.NoError(t, err)
	assert.Equal(t, "80", pct.String())
	assert.NotEmpty(t, mr.Keys())
}

func TestNew_UnreachableRedis(t *testing.T) {
	cfg := testConfig()
	cfg.RedisAddr = "127.0.0.1:1"

	_, err := app.New(context.Background(), cfg, nil)

	assert.Error(t, err)
}

func TestNew_BadDriver(t *testing.T) {
	cfg := testConfig()
	cfg.DB.Driver = "oracle"

	_, err := app.New(context.Background(), cfg, nil)

	assert.Error(t, err)
}
