/*
Package app wires storage, cache and services from a Config.

PURPOSE:
  cmd/server and cmd/psctl build the same object graph. This package owns
  that graph so both binaries agree on it.

WIRING:
  sqlstore.Open(cfg.DB)                 ledger.Gateway
  ledger.NewUnitOfWork(store, retry)    every service's transaction boundary
  cache.DialRedis or cache.NewMemory    vesting cache backend
  vesting / beneficiary / disbursement / inquiry services
  api.NewHandler                        HTTP surface

SEE ALSO:
  - config/config.go: settings
  - cmd/server/main.go, cmd/psctl/main.go: callers
*/
package app

import (
	"context"
	"fmt"

	"github.com/warp/profit-ledger/api"
	"github.com/warp/profit-ledger/beneficiary"
	"github.com/warp/profit-ledger/cache"
	"github.com/warp/profit-ledger/config"
	"github.com/warp/profit-ledger/disbursement"
	"github.com/warp/profit-ledger/inquiry"
	"github.com/warp/profit-ledger/ledger"
	"github.com/warp/profit-ledger/store/sqlstore"
	"github.com/warp/profit-ledger/vesting"
	"go.uber.org/zap"
)

// App is the fully wired engine.
type App struct {
	Store    *sqlstore.Store
	Cache    cache.Store
	UoW      ledger.UnitOfWork
	Vesting  *vesting.Cache
	Registry *beneficiary.Registry
	Alloc    *disbursement.Allocator
	Inquiry  *inquiry.Service
	Log      *zap.Logger

	closers []func() error
}

// New opens storage and the cache and builds the services. An empty
// RedisAddr selects the in-process cache.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	st, err := sqlstore.Open(cfg.DB)
	if err != nil {
		return nil, err
	}
	a := &App{Store: st, Log: log, closers: []func() error{st.Close}}

	if cfg.RedisAddr != "" {
		rc, err := cache.DialRedis(ctx, cfg.RedisAddr)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to cache: %w", err)
		}
		a.Cache = rc
		a.closers = append(a.closers, rc.Close)
		log.Info("vesting cache on redis", zap.String("addr", cfg.RedisAddr))
	} else {
		a.Cache = cache.NewMemory()
		log.Info("vesting cache in process")
	}

	a.UoW = ledger.NewUnitOfWork(st, cfg.Retry, log)
	a.Vesting = vesting.New(cache.NewNamespace(a.Cache, vesting.NamespaceName), a.UoW, log)
	a.Registry = beneficiary.NewRegistry(a.UoW, log)
	a.Alloc = disbursement.New(a.UoW, log)
	a.Inquiry = inquiry.New(a.UoW, a.Vesting, log)

	log.Info("storage ready", zap.String("driver", st.Driver()))
	return a, nil
}

// Handler builds the HTTP handler over the wired services.
func (a *App) Handler() *api.Handler {
	return api.NewHandler(api.Deps{
		UoW:      a.UoW,
		Store:    a.Store,
		Vesting:  a.Vesting,
		Registry: a.Registry,
		Alloc:    a.Alloc,
		Inquiry:  a.Inquiry,
		Log:      a.Log,
	})
}

// Close releases the cache and the database, newest first.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
