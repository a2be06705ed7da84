package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/profit-ledger/ledger"
	"github.com/warp/profit-ledger/ledger/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func fastPolicy(attempts int) ledger.RetryPolicy {
	return ledger.RetryPolicy{MaxAttempts: attempts, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func contribution(ssn int, amount string) ledger.Entry {
	return ledger.Entry{SSN: ssn, ProfitYear: 2025, ProfitCode: ledger.CodeIncomingContributions, Contribution: d(amount)}
}

func countEntries(t *testing.T, uow ledger.UnitOfWork, ssn int) int {
	t.Helper()
	var n int
	require.NoError(t, uow.Read(context.Background(), func(tx ledger.Tx) error {
		entries, err := tx.Entries(context.Background(), ssn, 9999)
		n = len(entries)
		return err
	}))
	return n
}

func TestUnitOfWork_RetriesTransientCommitFailure(t *testing.T) {
	// GIVEN: a store whose next two commits fail transiently
	mem := store.NewMemory()
	mem.FailCommits(2, fmt.Errorf("commit: %w", ledger.ErrTransient))
	uow := ledger.NewUnitOfWork(mem, fastPolicy(4), nil)

	// WHEN: a write runs
	calls := 0
	err := uow.Write(context.Background(), func(tx ledger.Tx) error {
		calls++
		_, err := tx.AppendEntries(context.Background(), []ledger.Entry{contribution(7, "10")})
		return err
	})

	// THEN: the whole callback ran three times and only one copy persisted
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, countEntries(t, uow, 7))
}

func TestUnitOfWork_ExhaustedRetriesSurfaceAndLog(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	mem := store.NewMemory()
	mem.FailCommits(10, fmt.Errorf("commit: %w", ledger.ErrTransient))
	uow := ledger.NewUnitOfWork(mem, fastPolicy(3), zap.New(core))

	calls := 0
	err := uow.Write(context.Background(), func(tx ledger.Tx) error {
		calls++
		_, err := tx.AppendEntries(context.Background(), []ledger.Entry{contribution(7, "10")})
		return err
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrTransient)
	assert.False(t, ledger.IsRuleViolation(err))
	assert.Equal(t, 3, calls)
	assert.Equal(t, 0, countEntries(t, uow, 7))
	assert.Equal(t, 2, logs.FilterMessage("retrying unit of work").Len())
	assert.Equal(t, 1, logs.FilterMessage("unit of work failed after retries").Len())
}

func TestUnitOfWork_RuleViolationIsNotRetriedAndRollsBack(t *testing.T) {
	mem := store.NewMemory()
	uow := ledger.NewUnitOfWork(mem, fastPolicy(5), nil)

	calls := 0
	err := uow.Write(context.Background(), func(tx ledger.Tx) error {
		calls++
		// Stage a write, then discover a violation
		if _, err := tx.AppendEntries(context.Background(), []ledger.Entry{contribution(8, "10")}); err != nil {
			return err
		}
		return ledger.NotEnoughFundsToCoverAmounts()
	})

	assert.ErrorIs(t, err, ledger.ErrNotEnoughFunds)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, countEntries(t, uow, 8))
}

func TestUnitOfWork_CancelledContextRollsBack(t *testing.T) {
	mem := store.NewMemory()
	uow := ledger.NewUnitOfWork(mem, fastPolicy(5), nil)
	ctx, cancel := context.WithCancel(context.Background())

	err := uow.Write(ctx, func(tx ledger.Tx) error {
		_, err := tx.AppendEntries(ctx, []ledger.Entry{contribution(9, "10")})
		cancel()
		return err
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, countEntries(t, uow, 9))
}

func TestUnitOfWork_ReadOnlyRejectsWrites(t *testing.T) {
	uow := ledger.NewUnitOfWork(store.NewMemory(), fastPolicy(2), nil)
	err := uow.Read(context.Background(), func(tx ledger.Tx) error {
		_, err := tx.AppendEntries(context.Background(), []ledger.Entry{contribution(1, "1")})
		return err
	})
	assert.Error(t, err)
}

func TestPayProfit_StaleVersionConflicts(t *testing.T) {
	mem := store.NewMemory()
	uow := ledger.NewUnitOfWork(mem, fastPolicy(1), nil)
	ctx := context.Background()

	require.NoError(t, uow.Write(ctx, func(tx ledger.Tx) error {
		return tx.SavePayProfit(ctx, &ledger.PayProfit{MemberID: 1, ProfitYear: 2025, Etva: d("5")})
	}))

	// GIVEN: a row read at version 1 and updated by someone else
	stale := ledger.PayProfit{MemberID: 1, ProfitYear: 2025, Version: 1}
	require.NoError(t, uow.Write(ctx, func(tx ledger.Tx) error {
		pp, err := tx.PayProfit(ctx, 1, 2025)
		if err != nil {
			return err
		}
		pp.Etva = d("6")
		return tx.SavePayProfit(ctx, pp)
	}))

	// WHEN: the stale copy is saved
	err := uow.Write(ctx, func(tx ledger.Tx) error {
		return tx.SavePayProfit(ctx, &stale)
	})

	// THEN: it conflicts and is classified as retryable, not a rule error
	assert.True(t, errors.Is(err, ledger.ErrConcurrentModification))
	assert.True(t, ledger.IsRetryable(err))
	assert.False(t, ledger.IsRuleViolation(err))
}

func TestRuleError_Messages(t *testing.T) {
	err := ledger.BeneficiaryDoesNotExist("706355-1000")
	assert.ErrorIs(t, err, ledger.ErrBeneficiaryDoesNotExist)
	assert.Contains(t, err.Error(), "706355-1000")

	err = ledger.RemainingAmountToDisburse(d("12.5"))
	var rule *ledger.RuleError
	require.ErrorAs(t, err, &rule)
	assert.Equal(t, ledger.RuleRemainingAmountToDisburse, rule.Code)
	assert.Equal(t, "remaining amount to disburse: 12.50", rule.Message())
	assert.False(t, ledger.IsRetryable(err))
}
