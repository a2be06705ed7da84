/*
Package inquiry answers balance questions for a ledger subject.

PURPOSE:
  Combines the ledger summary (ledger.LoadSummary) with the vesting cache to
  produce the vesting-aware view shown to participants and administrators.

VESTED BALANCE:
  vested = (total + distributions - etva) x ratio + etva - distributions

RATIO:
  1 (fully vested) when any of:
    - the subject is a beneficiary slice with no employee record
    - the member is terminated as deceased
    - the member is 65 or older at year end and is either still employed
      or was terminated before the year began
    - the year's enrollment is a forfeiture-record one (3 or 4)
    - the zero-contribution reason is 6 (65+, first contribution 5+ years ago)
  otherwise percent(schedule, years) / 100 from the vesting cache, where
  years is YearsInPlan plus one when the member logged 1000+ hours this
  year, plus one more for a new-plan enrollment with contributions (2).

SEE ALSO:
  - vesting/cache.go
  - ledger/aggregate.go: Summary.VestedBalance
*/
package inquiry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/profit-ledger/ledger"
	"go.uber.org/zap"
)

var (
	hundred       = decimal.NewFromInt(100)
	thousandHours = decimal.NewFromInt(1000)
)

// VestingSource resolves vesting percentages. *vesting.Cache satisfies it.
type VestingSource interface {
	GetVestingPercent(ctx context.Context, scheduleID, yearsOfService int) (decimal.Decimal, error)
}

// Balance is the vesting-aware balance of one subject for a profit year.
type Balance struct {
	BadgeNumber int
	PsnSuffix   int
	SSN         int
	ProfitYear  int

	ledger.Summary

	YearsInPlan       int
	VestingScheduleID int
	// VestingPercent is 0-100.
	VestingPercent decimal.Decimal
	Vested         decimal.Decimal
}

// Service answers balance inquiries.
type Service struct {
	uow     ledger.UnitOfWork
	vesting VestingSource
	log     *zap.Logger
}

func New(uow ledger.UnitOfWork, vesting VestingSource, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{uow: uow, vesting: vesting, log: log.Named("inquiry")}
}

// MemberBalance returns the employee's balance. It returns ledger.ErrNotFound
// when no member has the badge.
func (s *Service) MemberBalance(ctx context.Context, badge, year int) (*Balance, error) {
	var (
		member  *ledger.Member
		pp      *ledger.PayProfit
		summary ledger.Summary
	)
	err := s.uow.Read(ctx, func(tx ledger.Tx) error {
		var err error
		if member, err = tx.MemberByBadge(ctx, badge); err != nil || member == nil {
			return err
		}
		if pp, err = tx.PayProfit(ctx, member.ID, year); err != nil {
			return err
		}
		summary, err = ledger.LoadSummary(ctx, tx, member.SSN, year)
		return err
	})
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ledger.ErrNotFound
	}

	out := &Balance{
		BadgeNumber:       badge,
		SSN:               member.SSN,
		ProfitYear:        year,
		Summary:           summary,
		VestingScheduleID: ledger.ScheduleNewPlan,
	}
	if pp != nil {
		out.YearsInPlan = pp.YearsInPlan
		if pp.VestingScheduleID != 0 {
			out.VestingScheduleID = pp.VestingScheduleID
		}
	}

	// The vesting lookup runs outside the read transaction.
	if FullyVested(*member, year) || EnrollmentFullyVested(pp) {
		out.VestingPercent = hundred
	} else {
		out.VestingPercent, err = s.vesting.GetVestingPercent(ctx, out.VestingScheduleID, ServiceYears(pp))
		if err != nil {
			return nil, err
		}
	}
	out.Vested = summary.VestedBalance(out.VestingPercent.Div(hundred))

	s.log.Debug("member balance",
		zap.Int("badge", badge),
		zap.Int("year", year),
		zap.String("total", summary.Total.StringFixed(2)),
		zap.String("vesting_percent", out.VestingPercent.String()))
	return out, nil
}

// BeneficiaryBalance returns the balance of a beneficiary slice. A slice
// whose contact is also an employee is vested like that employee.
func (s *Service) BeneficiaryBalance(ctx context.Context, badge, psnSuffix, year int) (*Balance, error) {
	var (
		b        *ledger.Beneficiary
		employee *ledger.Member
		summary  ledger.Summary
	)
	err := s.uow.Read(ctx, func(tx ledger.Tx) error {
		var err error
		if b, err = tx.Beneficiary(ctx, badge, psnSuffix); err != nil || b == nil || b.Contact == nil {
			return err
		}
		if employee, err = tx.MemberBySSN(ctx, b.Contact.SSN); err != nil {
			return err
		}
		summary, err = ledger.LoadSummary(ctx, tx, b.Contact.SSN, year)
		return err
	})
	if err != nil {
		return nil, err
	}
	if b == nil || b.Contact == nil {
		return nil, ledger.ErrNotFound
	}
	if employee != nil {
		out, err := s.MemberBalance(ctx, employee.BadgeNumber, year)
		if err != nil {
			return nil, err
		}
		out.BadgeNumber, out.PsnSuffix = badge, psnSuffix
		return out, nil
	}

	return &Balance{
		BadgeNumber:    badge,
		PsnSuffix:      psnSuffix,
		SSN:            b.Contact.SSN,
		ProfitYear:     year,
		Summary:        summary,
		VestingPercent: hundred,
		Vested:         summary.VestedBalance(decimal.NewFromInt(1)),
	}, nil
}

// FullyVested reports whether m is vested at 100% for year regardless of
// the schedule.
func FullyVested(m ledger.Member, year int) bool {
	if m.IsDeceased() {
		return true
	}
	if m.DateOfBirth.IsZero() {
		return false
	}
	yearEnd := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	if m.DateOfBirth.After(yearEnd.AddDate(-65, 0, 0)) {
		return false
	}
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return m.TerminationDate == nil || m.TerminationDate.Before(yearStart)
}

// EnrollmentFullyVested reports whether the year's PayProfit row alone makes
// the member fully vested.
func EnrollmentFullyVested(pp *ledger.PayProfit) bool {
	if pp == nil {
		return false
	}
	switch pp.EnrollmentID {
	case ledger.EnrollmentOldPlanForfeitures, ledger.EnrollmentNewPlanForfeitures:
		return true
	}
	return pp.ZeroContributionReason == ledger.ZeroContributionSixtyFiveFullyVested
}

// ServiceYears is the years-of-service input to the vesting schedule.
func ServiceYears(pp *ledger.PayProfit) int {
	if pp == nil {
		return 0
	}
	years := pp.YearsInPlan
	if pp.CurrentHoursYear.GreaterThanOrEqual(thousandHours) {
		years++
	}
	if pp.EnrollmentID == ledger.EnrollmentNewPlanContributions {
		years++
	}
	return years
}
