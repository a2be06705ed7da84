/*
Package vesting resolves vesting percentages through a versioned cache.

PURPOSE:
  Vesting schedules change rarely and are read on every balance inquiry.
  Breakpoints are cached with no expiration under a key that embeds the
  vesting namespace version. An administrator bumps the version after
  editing a schedule, which orphans every cached entry at once.

LOOKUP:
  percent(n) = percent of the greatest breakpoint with YearsOfService <= n,
               or 0 when there is none

FAILURE MODE:
  The cache is an optimization. Any cache error is logged at Warn and the
  value is read from storage instead, so a Redis outage degrades latency,
  not correctness.

SEE ALSO:
  - cache/namespace.go: version handling and key layout
  - inquiry/inquiry.go: vesting-aware balances
*/
package vesting

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/warp/profit-ledger/cache"
	"github.com/warp/profit-ledger/ledger"
	"go.uber.org/zap"
)

// NamespaceName is the cache namespace holding vesting lookups.
const NamespaceName = "vesting"

// DefaultNewPlanEffectiveYear is used when the new plan schedule is not on file.
const DefaultNewPlanEffectiveYear = 2007

// Cache serves vesting lookups.
type Cache struct {
	ns  *cache.Namespace
	uow ledger.UnitOfWork
	log *zap.Logger
}

// New creates a Cache. ns is the process-wide handle for NamespaceName.
func New(ns *cache.Namespace, uow ledger.UnitOfWork, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{ns: ns, uow: uow, log: log.Named("vesting")}
}

// GetVestingPercent returns the vesting percent (0-100) for years of service
// under scheduleID.
func (c *Cache) GetVestingPercent(ctx context.Context, scheduleID, yearsOfService int) (decimal.Decimal, error) {
	points, err := c.Breakpoints(ctx, scheduleID)
	if err != nil {
		return decimal.Zero, err
	}
	return PercentFor(points, yearsOfService), nil
}

// Breakpoints returns the schedule's breakpoints in ascending order.
func (c *Cache) Breakpoints(ctx context.Context, scheduleID int) ([]ledger.Breakpoint, error) {
	return cached(ctx, c, []string{"schedule", strconv.Itoa(scheduleID)},
		func(ctx context.Context, tx ledger.Tx) ([]ledger.Breakpoint, error) {
			return tx.VestingBreakpoints(ctx, scheduleID)
		})
}

// GetNewPlanEffectiveYear returns the calendar year the new plan took effect.
func (c *Cache) GetNewPlanEffectiveYear(ctx context.Context) (int, error) {
	return cached(ctx, c, []string{"new_plan_year"},
		func(ctx context.Context, tx ledger.Tx) (int, error) {
			s, err := tx.VestingSchedule(ctx, ledger.ScheduleNewPlan)
			if err != nil {
				return 0, err
			}
			if s == nil || s.EffectiveDate.IsZero() {
				return DefaultNewPlanEffectiveYear, nil
			}
			return s.EffectiveDate.Year(), nil
		})
}

// Invalidate bumps the namespace version. It is an administrative action:
// lookups never call it.
func (c *Cache) Invalidate(ctx context.Context) (int64, error) {
	v, err := c.ns.Bump(ctx)
	if err != nil {
		return 0, err
	}
	c.log.Info("vesting cache invalidated", zap.Int64("version", v))
	return v, nil
}

// cached reads parts from the current version, loading from storage on a
// miss. Cache failures fall through to storage.
func cached[T any](
	ctx context.Context,
	c *Cache,
	parts []string,
	load func(context.Context, ledger.Tx) (T, error),
) (T, error) {
	var value T

	version, err := c.ns.Version(ctx)
	cacheUp := err == nil
	if !cacheUp {
		c.log.Warn("cache unavailable, reading storage", zap.Strings("key", parts), zap.Error(err))
	}

	var key string
	if cacheUp {
		key = c.ns.DataKey(version, parts...)
		hit, err := c.ns.Load(ctx, key, &value)
		switch {
		case err != nil:
			c.log.Warn("cache read failed, reading storage", zap.String("key", key), zap.Error(err))
			cacheUp = false
		case hit:
			c.log.Debug("cache hit", zap.String("key", key))
			return value, nil
		default:
			c.log.Info("cache miss", zap.String("key", key))
		}
	}

	err = c.uow.Read(ctx, func(tx ledger.Tx) error {
		var err error
		value, err = load(ctx, tx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}

	if cacheUp {
		if err := c.ns.Save(ctx, key, value); err != nil {
			c.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return value, nil
}

// PercentFor applies the breakpoint rule to points sorted by years ascending.
func PercentFor(points []ledger.Breakpoint, yearsOfService int) decimal.Decimal {
	percent := decimal.Zero
	for _, p := range points {
		if p.YearsOfService > yearsOfService {
			break
		}
		percent = p.Percent
	}
	return percent
}
