package disbursement_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/profit-ledger/disbursement"
	"github.com/warp/profit-ledger/ledger"
	"github.com/warp/profit-ledger/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const (
	badge        = 700100
	disburserSSN = 111000111
	childSSN     = 222000222 // beneficiary 1000, not an employee
	spouseSSN    = 333000333 // beneficiary 2000, also an employee
	year         = 2025
)

var clock = func() time.Time { return time.Date(year, time.June, 15, 10, 0, 0, 0, time.UTC) }

var fastRetry = ledger.RetryPolicy{
	MaxAttempts:     3,
	InitialInterval: time.Millisecond,
	MaxInterval:     time.Millisecond,
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func intp(n int) *int { return &n }

type fixture struct {
	mem       *store.Memory
	uow       ledger.UnitOfWork
	alloc     *disbursement.Allocator
	disburser ledger.Member
	spouse    ledger.Member
}

// newFixture seeds an employee with a 1000.00 balance (Etva 300.00) and two
// beneficiaries under the same badge.
func newFixture(t *testing.T, deceased bool) *fixture {
	t.Helper()
	mem := store.NewMemory()
	uow := ledger.NewUnitOfWork(mem, fastRetry, nil)
	f := &fixture{mem: mem, uow: uow, alloc: disbursement.New(uow, nil, disbursement.WithClock(clock))}

	ctx := context.Background()
	require.NoError(t, uow.Write(ctx, func(tx ledger.Tx) error {
		f.disburser = ledger.Member{SSN: disburserSSN, BadgeNumber: badge, OracleHcmID: 9001, LastName: "Walsh"}
		if deceased {
			f.disburser.TerminationCode = ledger.TerminationDeceased
		}
		if err := tx.SaveMember(ctx, &f.disburser); err != nil {
			return err
		}
		f.spouse = ledger.Member{SSN: spouseSSN, BadgeNumber: 700200, LastName: "Walsh"}
		if err := tx.SaveMember(ctx, &f.spouse); err != nil {
			return err
		}
		if err := tx.SavePayProfit(ctx, &ledger.PayProfit{MemberID: f.disburser.ID, ProfitYear: year, Etva: d("300")}); err != nil {
			return err
		}
		if _, err := tx.AppendEntries(ctx, []ledger.Entry{
			{SSN: disburserSSN, ProfitYear: year - 1, ProfitCode: ledger.CodeIncomingContributions, Contribution: d("1000")},
		}); err != nil {
			return err
		}
		for suffix, ssn := range map[int]int{1000: childSSN, 2000: spouseSSN} {
			c := &ledger.Contact{SSN: ssn, LastName: "Walsh"}
			if err := tx.CreateContact(ctx, c); err != nil {
				return err
			}
			if err := tx.CreateBeneficiary(ctx, &ledger.Beneficiary{
				BadgeNumber: badge, PsnSuffix: suffix, MemberID: f.disburser.ID,
				ContactID: c.ID, Kind: ledger.KindPrimary, Percent: d("50"),
			}); err != nil {
				return err
			}
		}
		return nil
	}))
	return f
}

func (f *fixture) entries(t *testing.T, ssn int) []ledger.Entry {
	t.Helper()
	var out []ledger.Entry
	require.NoError(t, f.uow.Read(context.Background(), func(tx ledger.Tx) error {
		var err error
		out, err = tx.Entries(context.Background(), ssn, year)
		return err
	}))
	return out
}

func (f *fixture) payProfit(t *testing.T, memberID int64) *ledger.PayProfit {
	t.Helper()
	var out *ledger.PayProfit
	require.NoError(t, f.uow.Read(context.Background(), func(tx ledger.Tx) error {
		var err error
		out, err = tx.PayProfit(context.Background(), memberID, year)
		return err
	}))
	return out
}

func (f *fixture) balance(t *testing.T, ssn int) decimal.Decimal {
	t.Helper()
	var out decimal.Decimal
	require.NoError(t, f.uow.Read(context.Background(), func(tx ledger.Tx) error {
		var err error
		out, err = ledger.Balance(context.Background(), tx, ssn, year)
		return err
	}))
	return out
}

// staleGateway hands out a view of storage as it was before every request
// whose id starts with hidePrefix committed, for the next stale write
// transactions. Seeded rows start at version 1, so a row at version n > 1
// is shown at n-1.
type staleGateway struct {
	*store.Memory
	hidePrefix string
	stale      int
}

func (g *staleGateway) WithTx(ctx context.Context, fn func(ledger.Tx) error) error {
	if g.stale == 0 {
		return g.Memory.WithTx(ctx, fn)
	}
	g.stale--
	return g.Memory.WithTx(ctx, func(tx ledger.Tx) error {
		return fn(staleTx{Tx: tx, hidePrefix: g.hidePrefix})
	})
}

type staleTx struct {
	ledger.Tx
	hidePrefix string
}

func (s staleTx) Entries(ctx context.Context, ssn int, throughYear int) ([]ledger.Entry, error) {
	all, err := s.Tx.Entries(ctx, ssn, throughYear)
	if err != nil {
		return nil, err
	}
	var out []ledger.Entry
	for _, e := range all {
		if !strings.HasPrefix(e.IdempotencyKey, s.hidePrefix) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s staleTx) PayProfit(ctx context.Context, memberID int64, year int) (*ledger.PayProfit, error) {
	pp, err := s.Tx.PayProfit(ctx, memberID, year)
	if pp != nil && pp.Version > 1 {
		pp.Version--
	}
	return pp, err
}

func (s staleTx) Beneficiary(ctx context.Context, badge, psnSuffix int) (*ledger.Beneficiary, error) {
	b, err := s.Tx.Beneficiary(ctx, badge, psnSuffix)
	if b != nil && b.Version > 1 {
		b.Version--
	}
	return b, err
}

func (s staleTx) BeneficiariesByContact(ctx context.Context, contactID int64) ([]ledger.Beneficiary, error) {
	list, err := s.Tx.BeneficiariesByContact(ctx, contactID)
	for i := range list {
		if list[i].Version > 1 {
			list[i].Version--
		}
	}
	return list, err
}

// withStaleGateway routes f's allocator through a staleGateway that hides
// requests with id "first".
func (f *fixture) withStaleGateway() *staleGateway {
	gw := &staleGateway{Memory: f.mem, hidePrefix: "first:"}
	f.uow = ledger.NewUnitOfWork(gw, fastRetry, nil)
	f.alloc = disbursement.New(f.uow, nil, disbursement.WithClock(clock))
	return gw
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s, got %s", want, got)
}

func percentShares() []disbursement.Share {
	return []disbursement.Share{
		{PsnSuffix: 1000, Percentage: dp("60")},
		{PsnSuffix: 2000, Percentage: dp("40")},
	}
}

// =============================================================================
// SUCCESSFUL DISBURSEMENTS
// =============================================================================

func TestDisburse_SplitConservesMoney(t *testing.T) {
	f := newFixture(t, false)

	// WHEN: 60% and 40% of a 1000.00 balance are disbursed
	res, err := f.alloc.DisburseFundsToBeneficiaries(context.Background(), disbursement.Request{
		BadgeNumber: badge,
		Shares:      percentShares(),
	})

	// THEN: two entry pairs are posted
	require.NoError(t, err)
	assert.Len(t, res.EntryIDs, 4)
	assert.Equal(t, year, res.ProfitYear)
	assertAmount(t, "1000", res.Balance)
	assertAmount(t, "1000", res.TotalDisbursed)

	debits := decimal.Zero
	for _, e := range f.entries(t, disburserSSN) {
		if e.ProfitCode != ledger.CodeOutgoingXferBeneficiary {
			continue
		}
		debits = debits.Add(e.Forfeiture)
		assert.Equal(t, ledger.CommentQdroOut, e.CommentType)
		assert.Equal(t, "QDRO>7001000000", e.Remark)
		assert.Equal(t, int64(9001), e.CommentRelatedOracleHcmID)
		assert.Equal(t, 6, e.MonthToDate)
		assert.Equal(t, year, e.YearToDate)
		assert.NotEmpty(t, e.IdempotencyKey)
	}
	credits := decimal.Zero
	for _, ssn := range []int{childSSN, spouseSSN} {
		for _, e := range f.entries(t, ssn) {
			require.Equal(t, ledger.CodeIncomingQdroBeneficiary, e.ProfitCode)
			assert.Equal(t, ledger.CommentQdroIn, e.CommentType)
			assert.Equal(t, "QDRO<7001000000", e.Remark)
			assert.Nil(t, e.CommentRelatedPsnSuffix)
			credits = credits.Add(e.Contribution)
		}
	}
	assertAmount(t, "1000", debits)
	assertAmount(t, "1000", credits)

	// AND: balances moved accordingly
	assertAmount(t, "0", f.balance(t, disburserSSN))
	assertAmount(t, "600", f.balance(t, childSSN))
	assertAmount(t, "400", f.balance(t, spouseSSN))
}

func TestDisburse_EtvaAdjustments(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.alloc.DisburseFundsToBeneficiaries(context.Background(), disbursement.Request{
		BadgeNumber: badge,
		Shares:      percentShares(),
	})
	require.NoError(t, err)

	// Disburser: non-Etva 700 cannot cover 1000, Etva clamps to 0
	pp := f.payProfit(t, f.disburser.ID)
	require.NotNil(t, pp)
	assertAmount(t, "0", pp.Etva)
	assert.Equal(t, int64(2), pp.Version)

	// Beneficiary who is also an employee: Etva row created with the amount
	spouse := f.payProfit(t, f.spouse.ID)
	require.NotNil(t, spouse)
	assertAmount(t, "400", spouse.Etva)
}

func TestDisburse_FixedAmountKeepsEtvaWhenCovered(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.alloc.DisburseFundsToBeneficiaries(context.Background(), disbursement.Request{
		BadgeNumber: badge,
		Shares:      []disbursement.Share{{PsnSuffix: 1000, Amount: dp("500")}},
	})
	require.NoError(t, err)

	assertAmount(t, "500", f.balance(t, disburserSSN))
	assertAmount(t, "300", f.payProfit(t, f.disburser.ID).Etva)
	assert.Nil(t, f.payProfit(t, f.spouse.ID))
}

func TestDisburse_DeceasedUsesTransferTags(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.alloc.DisburseFundsToBeneficiaries(context.Background(), disbursement.Request{
		BadgeNumber: badge,
		IsDeceased:  true,
		Shares:      percentShares(),
	})
	require.NoError(t, err)

	for _, e := range f.entries(t, disburserSSN) {
		if e.ProfitCode == ledger.CodeOutgoingXferBeneficiary {
			assert.Equal(t, ledger.CommentTransferOut, e.CommentType)
			assert.Equal(t, "XREF>7001000000", e.Remark)
		}
	}
	child := f.entries(t, childSSN)
	require.Len(t, child, 1)
	assert.Equal(t, ledger.CommentTransferIn, child[0].CommentType)
	assert.Equal(t, "XREF<7001000000", child[0].Remark)
}

func TestDisburse_FromBeneficiarySlice(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	// GIVEN: the child slice holds 500.00
	require.NoError(t, f.uow.Write(ctx, func(tx ledger.Tx) error {
		_, err := tx.AppendEntries(ctx, []ledger.Entry{
			{SSN: childSSN, ProfitYear: year - 1, ProfitCode: ledger.CodeIncomingQdroBeneficiary, Contribution: d("500")},
		})
		return err
	}))

	// WHEN: the slice disburses everything, flagged deceased
	_, err := f.alloc.DisburseFundsToBeneficiaries(ctx, disbursement.Request{
		BadgeNumber: badge,
		PsnSuffix:   intp(1000),
		IsDeceased:  true,
		Shares:      []disbursement.Share{{PsnSuffix: 2000, Amount: dp("500")}},
	})

	// THEN: the deceased check is skipped and the slice is debited
	require.NoError(t, err)
	assertAmount(t, "0", f.balance(t, childSSN))
	assertAmount(t, "500", f.balance(t, spouseSSN))
	assertAmount(t, "1000", f.balance(t, disburserSSN))

	var debit ledger.Entry
	for _, e := range f.entries(t, childSSN) {
		if e.ProfitCode == ledger.CodeOutgoingXferBeneficiary {
			debit = e
		}
	}
	assert.Equal(t, "XREF>7001001000", debit.Remark)
	require.NotNil(t, debit.CommentRelatedPsnSuffix)
	assert.Equal(t, 2000, *debit.CommentRelatedPsnSuffix)

	credit := f.entries(t, spouseSSN)
	require.Len(t, credit, 1)
	require.NotNil(t, credit[0].CommentRelatedPsnSuffix)
	assert.Equal(t, 1000, *credit[0].CommentRelatedPsnSuffix)
}

// =============================================================================
// RULE VIOLATIONS
// =============================================================================

func TestDisburse_RuleViolations(t *testing.T) {
	tests := []struct {
		name     string
		deceased bool
		req      disbursement.Request
		want     error
	}{
		{
			name: "unknown disburser badge",
			req:  disbursement.Request{BadgeNumber: 1, Shares: percentShares()},
			want: ledger.ErrDisburserDoesNotExist,
		},
		{
			name: "unknown disburser slice",
			req:  disbursement.Request{BadgeNumber: badge, PsnSuffix: intp(9000), Shares: percentShares()},
			want: ledger.ErrDisburserDoesNotExist,
		},
		{
			name: "deceased request on a living employee",
			req:  disbursement.Request{BadgeNumber: badge, IsDeceased: true, Shares: percentShares()},
			want: ledger.ErrDisburserIsStillMarkedAlive,
		},
		{
			name: "unknown beneficiary",
			req: disbursement.Request{BadgeNumber: badge, Shares: []disbursement.Share{
				{PsnSuffix: 9000, Percentage: dp("10")},
			}},
			want: ledger.ErrBeneficiaryDoesNotExist,
		},
		{
			name: "percentages over 100",
			req: disbursement.Request{BadgeNumber: badge, Shares: []disbursement.Share{
				{PsnSuffix: 1000, Percentage: dp("61")},
				{PsnSuffix: 2000, Percentage: dp("40")},
			}},
			want: ledger.ErrPercentageMoreThan100,
		},
		{
			name: "mixed percentage and amount",
			req: disbursement.Request{BadgeNumber: badge, Shares: []disbursement.Share{
				{PsnSuffix: 1000, Percentage: dp("10")},
				{PsnSuffix: 2000, Amount: dp("10")},
			}},
			want: ledger.ErrCantMixPercentageAndAmount,
		},
		{
			name: "negative amount",
			req: disbursement.Request{BadgeNumber: badge, Shares: []disbursement.Share{
				{PsnSuffix: 1000, Amount: dp("-1")},
			}},
			want: ledger.ErrPercentageAndAmountsMustBePositive,
		},
		{
			name: "amount above balance",
			req: disbursement.Request{BadgeNumber: badge, Shares: []disbursement.Share{
				{PsnSuffix: 1000, Amount: dp("600")},
				{PsnSuffix: 2000, Amount: dp("400.01")},
			}},
			want: ledger.ErrNotEnoughFunds,
		},
		{
			name:     "deceased with money left over",
			deceased: true,
			req: disbursement.Request{BadgeNumber: badge, IsDeceased: true, Shares: []disbursement.Share{
				{PsnSuffix: 1000, Percentage: dp("50")},
			}},
			want: ledger.ErrRemainingAmountToDisburse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.deceased)

			res, err := f.alloc.DisburseFundsToBeneficiaries(context.Background(), tt.req)

			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, ledger.IsRuleViolation(err))

			// Nothing was written
			assert.Len(t, f.entries(t, disburserSSN), 1)
			assert.Empty(t, f.entries(t, childSSN))
			assert.Empty(t, f.entries(t, spouseSSN))
			pp := f.payProfit(t, f.disburser.ID)
			assertAmount(t, "300", pp.Etva)
			assert.Equal(t, int64(1), pp.Version)
		})
	}
}

func TestDisburse_RuleErrorContext(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.alloc.DisburseFundsToBeneficiaries(ctx, disbursement.Request{
		BadgeNumber: badge,
		IsDeceased:  true,
		Shares:      []disbursement.Share{{PsnSuffix: 1000, Percentage: dp("50")}},
	})
	var rule *ledger.RuleError
	require.ErrorAs(t, err, &rule)
	assertAmount(t, "500", rule.Amount)
	assert.Equal(t, "remaining amount to disburse: 500.00", rule.Message())

	_, err = f.alloc.DisburseFundsToBeneficiaries(ctx, disbursement.Request{
		BadgeNumber: badge,
		Shares:      []disbursement.Share{{PsnSuffix: 4000, Amount: dp("1")}},
	})
	require.ErrorAs(t, err, &rule)
	assert.Equal(t, "700100-4000", rule.Key)
}

// =============================================================================
// CONCURRENCY AND IDEMPOTENCY
// =============================================================================

func TestDisburse_ConflictIsRetriedFromScratch(t *testing.T) {
	f := newFixture(t, false)

	// GIVEN: the first commit loses an optimistic concurrency race
	f.mem.FailCommits(1, ledger.ErrConcurrentModification)

	// WHEN
	res, err := f.alloc.DisburseFundsToBeneficiaries(context.Background(), disbursement.Request{
		BadgeNumber: badge,
		Shares:      percentShares(),
	})

	// THEN: the rerun posts exactly one set of entries
	require.NoError(t, err)
	assert.Len(t, res.EntryIDs, 4)
	assert.Len(t, f.entries(t, disburserSSN), 3)
	assert.Equal(t, int64(2), f.payProfit(t, f.disburser.ID).Version)
}

func TestDisburse_SequentialRequestsCannotOverdraw(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	req := disbursement.Request{
		BadgeNumber: badge,
		Shares:      []disbursement.Share{{PsnSuffix: 1000, Amount: dp("700")}},
	}

	_, err := f.alloc.DisburseFundsToBeneficiaries(ctx, req)
	require.NoError(t, err)

	// A second request validated against the fresh balance is rejected
	_, err = f.alloc.DisburseFundsToBeneficiaries(ctx, req)
	assert.ErrorIs(t, err, ledger.ErrNotEnoughFunds)
	assertAmount(t, "300", f.balance(t, disburserSSN))
}

func TestDisburse_InterleavedRequestsCannotOverdraw(t *testing.T) {
	f := newFixture(t, false)
	gw := f.withStaleGateway()
	ctx := context.Background()
	shares := []disbursement.Share{{PsnSuffix: 1000, Amount: dp("700")}}

	// GIVEN: a first request commits 700.00 of the 1000.00
	_, err := f.alloc.DisburseFundsToBeneficiaries(ctx, disbursement.Request{
		BadgeNumber: badge, RequestID: "first", Shares: shares,
	})
	require.NoError(t, err)

	// WHEN: a second request first runs against the balance it read
	// before the first one committed
	gw.stale = 1
	_, err = f.alloc.DisburseFundsToBeneficiaries(ctx, disbursement.Request{
		BadgeNumber: badge, RequestID: "second", Shares: shares,
	})

	// THEN: the version stamp conflicts, the rerun sees 300.00 and rejects
	assert.ErrorIs(t, err, ledger.ErrNotEnoughFunds)
	assert.Zero(t, gw.stale)
	assertAmount(t, "300", f.balance(t, disburserSSN))
	assertAmount(t, "700", f.balance(t, childSSN))
	assert.Equal(t, int64(2), f.payProfit(t, f.disburser.ID).Version)
}

func TestDisburse_InterleavedSliceRequestsCannotOverdraw(t *testing.T) {
	f := newFixture(t, false)
	gw := f.withStaleGateway()
	ctx := context.Background()

	// GIVEN: the child slice, which is not an employee, holds 600.00
	require.NoError(t, f.uow.Write(ctx, func(tx ledger.Tx) error {
		_, err := tx.AppendEntries(ctx, []ledger.Entry{
			{SSN: childSSN, ProfitYear: year - 1, ProfitCode: ledger.CodeIncomingQdroBeneficiary, Contribution: d("600")},
		})
		return err
	}))
	req := func(id string) disbursement.Request {
		return disbursement.Request{
			BadgeNumber: badge,
			PsnSuffix:   intp(1000),
			RequestID:   id,
			Shares:      []disbursement.Share{{PsnSuffix: 2000, Amount: dp("500")}},
		}
	}

	// AND: a first request moves 500.00 out of it
	_, err := f.alloc.DisburseFundsToBeneficiaries(ctx, req("first"))
	require.NoError(t, err)

	// WHEN: a second request first runs against the stale 600.00
	gw.stale = 1
	_, err = f.alloc.DisburseFundsToBeneficiaries(ctx, req("second"))

	// THEN: the slice stamp conflicts and the rerun rejects
	assert.ErrorIs(t, err, ledger.ErrNotEnoughFunds)
	assert.Zero(t, gw.stale)
	assertAmount(t, "100", f.balance(t, childSSN))
	assertAmount(t, "500", f.balance(t, spouseSSN))
	assertAmount(t, "500", f.payProfit(t, f.spouse.ID).Etva)

	var slice *ledger.Beneficiary
	require.NoError(t, f.uow.Read(ctx, func(tx ledger.Tx) error {
		var err error
		slice, err = tx.Beneficiary(ctx, badge, 1000)
		return err
	}))
	require.NotNil(t, slice)
	assert.Equal(t, int64(2), slice.Version)
}

func TestDisburse_ResubmittedRequestID(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	req := disbursement.Request{
		BadgeNumber: badge,
		RequestID:   "3f1e2d4c-0000-4000-8000-000000000001",
		Shares:      []disbursement.Share{{PsnSuffix: 1000, Amount: dp("100")}},
	}

	res, err := f.alloc.DisburseFundsToBeneficiaries(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, req.RequestID, res.RequestID)

	_, err = f.alloc.DisburseFundsToBeneficiaries(ctx, req)
	assert.ErrorIs(t, err, ledger.ErrDuplicateIdempotencyKey)
	assertAmount(t, "900", f.balance(t, disburserSSN))
}

// =============================================================================
// PURE HELPERS
// =============================================================================

func TestAdjustEtva(t *testing.T) {
	cases := []struct {
		balance, etva, total, want string
	}{
		{"1000", "300", "1000", "0"},
		{"1000", "300", "500", "300"},
		{"1000", "300", "800", "200"},
		{"1000", "0", "100", "0"},
		{"1000", "1000", "250", "750"},
	}
	for _, c := range cases {
		got := disbursement.AdjustEtva(d(c.balance), d(c.etva), d(c.total))
		assertAmount(t, c.want, got)
	}
}

func TestShareAmount(t *testing.T) {
	balance := d("1000")
	assertAmount(t, "333.3", disbursement.ShareAmount(disbursement.Share{Percentage: dp("33.33")}, balance))
	assertAmount(t, "333.33", disbursement.ShareAmount(disbursement.Share{Percentage: dp("33.333")}, balance))
	assertAmount(t, "12.34", disbursement.ShareAmount(disbursement.Share{Amount: dp("12.34")}, balance))
	assertAmount(t, "12.35", disbursement.ShareAmount(disbursement.Share{Amount: dp("12.345")}, balance))
	assertAmount(t, "0", disbursement.ShareAmount(disbursement.Share{}, balance))
}

func TestShareAmounts_RemainderGoesToLastShare(t *testing.T) {
	shares := []disbursement.Share{
		{PsnSuffix: 1000, Percentage: dp("33.333")},
		{PsnSuffix: 2000, Percentage: dp("33.333")},
		{PsnSuffix: 3000, Percentage: dp("33.334")},
	}

	got := disbursement.ShareAmounts(shares, d("1000.01"))

	require.Len(t, got, 3)
	assertAmount(t, "333.34", got[0])
	assertAmount(t, "333.34", got[1])
	assertAmount(t, "333.33", got[2])
	assertAmount(t, "1000.01", got[0].Add(got[1]).Add(got[2]))
	for _, amt := range got {
		assert.LessOrEqual(t, -amt.Exponent(), int32(2), "%s has sub-cent digits", amt)
	}

	// Under 100% nothing is topped up
	partial := disbursement.ShareAmounts(shares[:2], d("1000.01"))
	assertAmount(t, "666.68", partial[0].Add(partial[1]))
}

func TestDisburse_DeceasedThirdsPostWholeCents(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	// GIVEN: the balance is 1000.01 and a third slice exists
	require.NoError(t, f.uow.Write(ctx, func(tx ledger.Tx) error {
		if _, err := tx.AppendEntries(ctx, []ledger.Entry{
			{SSN: disburserSSN, ProfitYear: year - 1, ProfitCode: ledger.CodeIncomingContributions, Contribution: d("0.01")},
		}); err != nil {
			return err
		}
		c := &ledger.Contact{SSN: 444000444, LastName: "Walsh"}
		if err := tx.CreateContact(ctx, c); err != nil {
			return err
		}
		return tx.CreateBeneficiary(ctx, &ledger.Beneficiary{
			BadgeNumber: badge, PsnSuffix: 3000, MemberID: f.disburser.ID,
			ContactID: c.ID, Kind: ledger.KindPrimary,
		})
	}))

	// WHEN
	res, err := f.alloc.DisburseFundsToBeneficiaries(ctx, disbursement.Request{
		BadgeNumber: badge,
		IsDeceased:  true,
		Shares: []disbursement.Share{
			{PsnSuffix: 1000, Percentage: dp("33.333")},
			{PsnSuffix: 2000, Percentage: dp("33.333")},
			{PsnSuffix: 3000, Percentage: dp("33.334")},
		},
	})

	// THEN: the whole balance leaves in cent amounts
	require.NoError(t, err)
	assertAmount(t, "1000.01", res.TotalDisbursed)
	assertAmount(t, "0", f.balance(t, disburserSSN))
	assertAmount(t, "333.34", f.balance(t, childSSN))
	assertAmount(t, "333.34", f.balance(t, spouseSSN))
	assertAmount(t, "333.33", f.balance(t, 444000444))
}
