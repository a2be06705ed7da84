package beneficiary_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/profit-ledger/beneficiary"
	"github.com/warp/profit-ledger/ledger"
	"github.com/warp/profit-ledger/ledger/store"
	"github.com/warp/profit-ledger/store/sqlstore"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const badge = 706355

func intp(n int) *int { return &n }

func newRegistry(t *testing.T, gw ledger.Gateway) (*beneficiary.Registry, ledger.UnitOfWork) {
	uow := ledger.NewUnitOfWork(gw, ledger.DefaultRetryPolicy, nil)
	ctx := context.Background()
	require.NoError(t, uow.Write(ctx, func(tx ledger.Tx) error {
		return tx.SaveMember(ctx, &ledger.Member{SSN: 700000001, BadgeNumber: badge, LastName: "Rivera"})
	}))
	return beneficiary.NewRegistry(uow, nil), uow
}

func request(ssn int, pct int64) beneficiary.Request {
	return beneficiary.Request{
		EmployeeBadgeNumber: badge,
		Contact:             ledger.Contact{SSN: ssn, FirstName: "Sam", LastName: "Rivera"},
		Relationship:        "Child",
		Percentage:          decimal.NewFromInt(pct),
	}
}

func gateways(t *testing.T) map[string]ledger.Gateway {
	sql, err := sqlstore.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sql.Close() })
	return map[string]ledger.Gateway{"memory": store.NewMemory(), "sqlite": sql}
}

// =============================================================================
// SUFFIX NUMBERING
// =============================================================================

func TestSuffixRange(t *testing.T) {
	cases := []struct {
		first, second, third int
		lo, width            int
	}{
		{0, 0, 0, 0, 10000},
		{2, 0, 0, 2000, 1000},
		{2, 3, 0, 2300, 100},
		{2, 3, 4, 2340, 10},
		{0, 5, 0, 500, 100},
		{0, 0, 7, 70, 10},
	}
	for _, c := range cases {
		lo, width := beneficiary.SuffixRange(c.first, c.second, c.third)
		assert.Equal(t, c.lo, lo, "%d/%d/%d", c.first, c.second, c.third)
		assert.Equal(t, c.width, width, "%d/%d/%d", c.first, c.second, c.third)
	}
}

func TestCreateBeneficiary_FirstLevelSuffixesIncrease(t *testing.T) {
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			reg, _ := newRegistry(t, gw)
			ctx := context.Background()

			// GIVEN: three requests at first level 2
			var got []int
			for i := 0; i < 3; i++ {
				req := request(800000001+i, 10)
				req.FirstLevel = intp(2)
				created, err := reg.CreateBeneficiary(ctx, req)
				require.NoError(t, err)
				got = append(got, created.PsnSuffix)
			}

			// THEN: each lands 100 above the previous maximum, inside [2000, 3000)
			assert.Equal(t, []int{2100, 2200, 2300}, got)
		})
	}
}

func TestCreateBeneficiary_DefaultAndNestedLevels(t *testing.T) {
	reg, _ := newRegistry(t, store.NewMemory())
	ctx := context.Background()

	top1, err := reg.CreateBeneficiary(ctx, request(1, 10))
	require.NoError(t, err)
	top2, err := reg.CreateBeneficiary(ctx, request(2, 10))
	require.NoError(t, err)
	assert.Equal(t, 1000, top1.PsnSuffix)
	assert.Equal(t, 2000, top2.PsnSuffix)

	nested := request(3, 10)
	nested.FirstLevel, nested.SecondLevel = intp(1), intp(1)
	sub, err := reg.CreateBeneficiary(ctx, nested)
	require.NoError(t, err)
	assert.Equal(t, 1110, sub.PsnSuffix)

	deepest := request(4, 10)
	deepest.FirstLevel, deepest.SecondLevel, deepest.ThirdLevel = intp(1), intp(1), intp(1)
	leaf, err := reg.CreateBeneficiary(ctx, deepest)
	require.NoError(t, err)
	assert.Equal(t, 1111, leaf.PsnSuffix)
}

// =============================================================================
// CONTACTS
// =============================================================================

func TestCreateBeneficiary_ReusesContactBySSN(t *testing.T) {
	reg, _ := newRegistry(t, store.NewMemory())
	ctx := context.Background()

	first, err := reg.CreateBeneficiary(ctx, request(555, 30))
	require.NoError(t, err)
	assert.False(t, first.ContactExisted)

	second, err := reg.CreateBeneficiary(ctx, request(555, 30))
	require.NoError(t, err)
	assert.True(t, second.ContactExisted)
	assert.Equal(t, first.ContactID, second.ContactID)
	assert.NotEqual(t, first.PsnSuffix, second.PsnSuffix)

	list, err := reg.List(ctx, badge)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ledger.KindPrimary, list[0].Kind)
	require.NotNil(t, list[0].Contact)
	assert.Equal(t, 555, list[0].Contact.SSN)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestCreateBeneficiary_Validation(t *testing.T) {
	reg, uow := newRegistry(t, store.NewMemory())
	ctx := context.Background()

	badLevel := request(1, 10)
	badLevel.SecondLevel = intp(10)
	_, err := reg.CreateBeneficiary(ctx, badLevel)
	assert.ErrorIs(t, err, ledger.ErrInvalidHierarchyLevelNumber)

	negative := request(1, 10)
	negative.FirstLevel = intp(-1)
	_, err = reg.CreateBeneficiary(ctx, negative)
	assert.ErrorIs(t, err, ledger.ErrInvalidHierarchyLevelNumber)

	unknown := request(1, 10)
	unknown.EmployeeBadgeNumber = 999
	_, err = reg.CreateBeneficiary(ctx, unknown)
	assert.ErrorIs(t, err, ledger.ErrEmployeeBadgeInvalid)

	zeroBadge := request(1, 10)
	zeroBadge.EmployeeBadgeNumber = 0
	_, err = reg.CreateBeneficiary(ctx, zeroBadge)
	assert.ErrorIs(t, err, ledger.ErrEmployeeBadgeInvalid)

	_, err = reg.CreateBeneficiary(ctx, request(1, 0))
	assert.ErrorIs(t, err, ledger.ErrBeneficiaryPercentageInvalid)
	_, err = reg.CreateBeneficiary(ctx, request(1, 101))
	assert.ErrorIs(t, err, ledger.ErrBeneficiaryPercentageInvalid)

	// GIVEN: 70% already assigned
	_, err = reg.CreateBeneficiary(ctx, request(1, 70))
	require.NoError(t, err)

	// WHEN: another 40% is requested
	_, err = reg.CreateBeneficiary(ctx, request(2, 40))

	// THEN: it is rejected and no contact was created for it
	assert.ErrorIs(t, err, ledger.ErrBeneficiaryPercentageSumExceeded)
	require.NoError(t, uow.Read(ctx, func(tx ledger.Tx) error {
		c, err := tx.ContactBySSN(ctx, 2)
		assert.Nil(t, c)
		return err
	}))

	// AND: exactly 100 is fine
	_, err = reg.CreateBeneficiary(ctx, request(2, 30))
	assert.NoError(t, err)
}

// =============================================================================
// UPDATE & DELETE
// =============================================================================

func TestUpdate_PercentageAndRelationship(t *testing.T) {
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			reg, _ := newRegistry(t, gw)
			ctx := context.Background()

			first, err := reg.CreateBeneficiary(ctx, request(800000001, 40))
			require.NoError(t, err)
			_, err = reg.CreateBeneficiary(ctx, request(800000002, 50))
			require.NoError(t, err)

			// WHEN: the first slice grows to 50%, which only fits without its old 40%
			pct := decimal.NewFromInt(50)
			got, err := reg.Update(ctx, beneficiary.UpdateRequest{
				BadgeNumber: badge, PsnSuffix: first.PsnSuffix, Relationship: "Spouse", Percentage: &pct,
			})

			// THEN
			require.NoError(t, err)
			assert.True(t, pct.Equal(got.Percent))
			assert.Equal(t, "Spouse", got.Relationship)
			assert.Equal(t, int64(2), got.Version)

			list, err := reg.List(ctx, badge)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.True(t, pct.Equal(list[0].Percent))
			assert.Equal(t, "Spouse", list[0].Relationship)

			// AND: relationship alone keeps the percentage
			got, err = reg.Update(ctx, beneficiary.UpdateRequest{
				BadgeNumber: badge, PsnSuffix: first.PsnSuffix, Relationship: "Child",
			})
			require.NoError(t, err)
			assert.True(t, pct.Equal(got.Percent))
		})
	}
}

func TestUpdate_Validation(t *testing.T) {
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			reg, _ := newRegistry(t, gw)
			ctx := context.Background()

			first, err := reg.CreateBeneficiary(ctx, request(800000001, 40))
			require.NoError(t, err)
			_, err = reg.CreateBeneficiary(ctx, request(800000002, 50))
			require.NoError(t, err)

			over := decimal.NewFromInt(51)
			_, err = reg.Update(ctx, beneficiary.UpdateRequest{BadgeNumber: badge, PsnSuffix: first.PsnSuffix, Percentage: &over})
			assert.ErrorIs(t, err, ledger.ErrBeneficiaryPercentageSumExceeded)

			zero := decimal.Zero
			_, err = reg.Update(ctx, beneficiary.UpdateRequest{BadgeNumber: badge, PsnSuffix: first.PsnSuffix, Percentage: &zero})
			assert.ErrorIs(t, err, ledger.ErrBeneficiaryPercentageInvalid)

			_, err = reg.Update(ctx, beneficiary.UpdateRequest{BadgeNumber: badge, PsnSuffix: 9000, Relationship: "Child"})
			assert.ErrorIs(t, err, ledger.ErrNotFound)

			// Nothing changed
			list, err := reg.List(ctx, badge)
			require.NoError(t, err)
			assert.True(t, decimal.NewFromInt(40).Equal(list[0].Percent))
			assert.Equal(t, int64(1), list[0].Version)
		})
	}
}

func TestDelete_ContactGoesWithLastSlice(t *testing.T) {
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			reg, uow := newRegistry(t, gw)
			ctx := context.Background()

			// GIVEN: one contact behind two slices
			a, err := reg.CreateBeneficiary(ctx, request(800000001, 10))
			require.NoError(t, err)
			b, err := reg.CreateBeneficiary(ctx, request(800000001, 10))
			require.NoError(t, err)
			require.Equal(t, a.ContactID, b.ContactID)

			// WHEN / THEN: the first delete keeps the contact, the second removes it
			contactDeleted, err := reg.Delete(ctx, badge, a.PsnSuffix)
			require.NoError(t, err)
			assert.False(t, contactDeleted)

			contactDeleted, err = reg.Delete(ctx, badge, b.PsnSuffix)
			require.NoError(t, err)
			assert.True(t, contactDeleted)

			list, err := reg.List(ctx, badge)
			require.NoError(t, err)
			assert.Empty(t, list)
			require.NoError(t, uow.Read(ctx, func(tx ledger.Tx) error {
				c, err := tx.ContactBySSN(ctx, 800000001)
				assert.Nil(t, c)
				return err
			}))

			_, err = reg.Delete(ctx, badge, a.PsnSuffix)
			assert.ErrorIs(t, err, ledger.ErrNotFound)
		})
	}
}

func TestDelete_RefusesNonZeroBalance(t *testing.T) {
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			_, uow := newRegistry(t, gw)
			reg := beneficiary.NewRegistry(uow, nil, beneficiary.WithClock(func() time.Time {
				return time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
			}))
			ctx := context.Background()

			created, err := reg.CreateBeneficiary(ctx, request(800000001, 10))
			require.NoError(t, err)
			require.NoError(t, uow.Write(ctx, func(tx ledger.Tx) error {
				_, err := tx.AppendEntries(ctx, []ledger.Entry{{
					SSN: 800000001, ProfitYear: 2024, ProfitCode: ledger.CodeIncomingQdroBeneficiary,
					Contribution: decimal.NewFromInt(125),
				}})
				return err
			}))

			// WHEN
			_, err = reg.Delete(ctx, badge, created.PsnSuffix)

			// THEN
			assert.ErrorIs(t, err, ledger.ErrBeneficiaryBalanceNotZero)
			var rule *ledger.RuleError
			require.ErrorAs(t, err, &rule)
			assert.True(t, decimal.NewFromInt(125).Equal(rule.Amount))
			assert.Equal(t, "balance is not zero, cannot delete beneficiary: 706355-1000 holds 125.00", rule.Message())

			err = reg.DeleteContact(ctx, created.ContactID)
			assert.ErrorIs(t, err, ledger.ErrBeneficiaryBalanceNotZero)

			list, err := reg.List(ctx, badge)
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestDeleteContact(t *testing.T) {
	for name, gw := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			reg, uow := newRegistry(t, gw)
			ctx := context.Background()

			shared, err := reg.CreateBeneficiary(ctx, request(800000001, 10))
			require.NoError(t, err)
			_, err = reg.CreateBeneficiary(ctx, request(800000001, 10))
			require.NoError(t, err)
			single, err := reg.CreateBeneficiary(ctx, request(800000002, 10))
			require.NoError(t, err)

			// A contact behind two slices stays
			err = reg.DeleteContact(ctx, shared.ContactID)
			assert.ErrorIs(t, err, ledger.ErrContactInUse)

			// A contact behind one slice takes the slice with it
			require.NoError(t, reg.DeleteContact(ctx, single.ContactID))
			list, err := reg.List(ctx, badge)
			require.NoError(t, err)
			assert.Len(t, list, 2)
			require.NoError(t, uow.Read(ctx, func(tx ledger.Tx) error {
				c, err := tx.Contact(ctx, single.ContactID)
				assert.Nil(t, c)
				return err
			}))

			err = reg.DeleteContact(ctx, single.ContactID)
			assert.ErrorIs(t, err, ledger.ErrNotFound)
		})
	}
}
