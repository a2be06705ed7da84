/*
uow.go - Retrying unit of work

PURPOSE:
  Wraps a Gateway with execute-and-retry semantics. The callback is the
  whole unit: on a retryable failure the transaction is rolled back and the
  callback runs again from the start. Nothing is resumed mid-way.

CLASSIFICATION:
  Retryable:     ErrTransient, ErrConcurrentModification (see IsRetryable)
  Not retryable: business rule violations, context cancellation, anything else

  Non-retryable errors are returned after the first attempt. Retryable ones
  are returned once the policy is exhausted and logged at Error.

SEE ALSO:
  - store.go: Gateway and UnitOfWork contracts
  - errors.go: error taxonomy
*/
package ledger

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// RetryPolicy bounds how often a unit of work is attempted.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy is used when a zero policy is given.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:     4,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     time.Second,
}

// RetryingUnitOfWork implements UnitOfWork over a Gateway.
type RetryingUnitOfWork struct {
	gw     Gateway
	policy RetryPolicy
	log    *zap.Logger
}

// NewUnitOfWork creates a RetryingUnitOfWork. A nil logger discards logs.
func NewUnitOfWork(gw Gateway, policy RetryPolicy, log *zap.Logger) *RetryingUnitOfWork {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RetryingUnitOfWork{gw: gw, policy: policy, log: log}
}

// Write runs fn in a read-write transaction, retrying transient failures.
func (u *RetryingUnitOfWork) Write(ctx context.Context, fn func(Tx) error) error {
	return u.run(ctx, "write", u.gw.WithTx, fn)
}

// Read runs fn against a read view, retrying transient failures.
func (u *RetryingUnitOfWork) Read(ctx context.Context, fn func(Tx) error) error {
	return u.run(ctx, "read", u.gw.ReadOnly, fn)
}

func (u *RetryingUnitOfWork) run(
	ctx context.Context,
	kind string,
	exec func(context.Context, func(Tx) error) error,
	fn func(Tx) error,
) error {
	attempt := 0
	op := func() error {
		attempt++
		err := exec(ctx, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		u.log.Warn("retrying unit of work",
			zap.String("kind", kind),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}

	err := backoff.RetryNotify(op, backoff.WithContext(u.newBackOff(), ctx), notify)
	if err != nil && IsRetryable(err) {
		u.log.Error("unit of work failed after retries",
			zap.String("kind", kind),
			zap.Int("attempts", attempt),
			zap.Error(err))
	}
	return err
}

func (u *RetryingUnitOfWork) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = u.policy.InitialInterval
	if u.policy.MaxInterval > 0 {
		b.MaxInterval = u.policy.MaxInterval
	}
	b.MaxElapsedTime = 0
	return backoff.WithMaxRetries(b, uint64(u.policy.MaxAttempts-1))
}
