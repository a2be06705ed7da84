/*
Package ledger provides the profit-sharing ledger engine.

PURPOSE:
  This package holds the plan's core data model and the pure algorithms that
  turn a participant's ledger history into balances. Contributions, earnings,
  forfeitures, distributions and beneficiary transfers are all recorded as
  immutable entries; every balance is derived from them.

KEY CONCEPTS IN THIS FILE (types.go):
  - Entry: one immutable ledger record against a subject's account (by SSN)
  - ProfitCode: the economic meaning of an entry (see codes.go)
  - Member: an employee identity (badge number + SSN)
  - PayProfit: the per-member, per-year aggregate row carrying Etva
  - Beneficiary / Contact: beneficiary slices hanging off an employee badge
  - Breakpoint / VestingSchedule: years-of-service to vesting percent tables

DESIGN PRINCIPLES:
  1. Immutability: entries are never modified, corrections are new offsetting entries
  2. Precision: every amount is a decimal.Decimal
  3. Purity: aggregation functions do no I/O (aggregate.go)

SEE ALSO:
  - codes.go: profit code classification
  - aggregate.go: aggregation and balance formulas
  - store.go: storage gateway and unit of work
  - errors.go: business rule taxonomy
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEDGER ENTRY - Append-only record
// =============================================================================

// EntryID identifies a persisted ledger entry.
type EntryID int64

// Entry is one immutable transaction against a subject's account.
//
// The subject is identified by SSN only. An employee slice and a beneficiary
// slice of the same person are distinct subjects unless merged elsewhere.
type Entry struct {
	ID           EntryID
	SSN          int
	ProfitYear   int
	ProfitCode   ProfitCode
	Contribution decimal.Decimal
	Earnings     decimal.Decimal
	Forfeiture   decimal.Decimal
	FederalTaxes decimal.Decimal
	StateTaxes   decimal.Decimal

	MonthToDate int
	YearToDate  int

	CommentType CommentType
	Remark      string

	// Cross references linking the two legs of a transfer.
	CommentRelatedOracleHcmID int64
	CommentRelatedPsnSuffix   *int

	// Set when this entry reverses an earlier one.
	ReversedFromID *EntryID

	IdempotencyKey string
	CreatedAt      time.Time
}

// CommentType tags the business reason behind an entry.
type CommentType int

const (
	CommentNone        CommentType = 0
	CommentTransferOut CommentType = 1
	CommentTransferIn  CommentType = 2
	CommentQdroOut     CommentType = 3
	CommentQdroIn      CommentType = 4
)

func (c CommentType) String() string {
	switch c {
	case CommentTransferOut:
		return "transfer_out"
	case CommentTransferIn:
		return "transfer_in"
	case CommentQdroOut:
		return "qdro_out"
	case CommentQdroIn:
		return "qdro_in"
	default:
		return "none"
	}
}

// =============================================================================
// MEMBERS
// =============================================================================

// TerminationDeceased is the termination code recorded for deceased members.
const TerminationDeceased = "Z"

// Member is an employee identity.
type Member struct {
	ID              int64
	OracleHcmID     int64
	SSN             int
	BadgeNumber     int
	FirstName       string
	LastName        string
	DateOfBirth     time.Time
	TerminationCode string
	TerminationDate *time.Time
}

// IsDeceased reports whether the member is terminated as deceased.
func (m Member) IsDeceased() bool { return m.TerminationCode == TerminationDeceased }

// PayProfit is the per-member, per-year aggregate row.
//
// Etva is the part of the balance that is fully vested regardless of the
// vesting schedule. Version is an optimistic concurrency stamp: writers must
// present the version they read.
type PayProfit struct {
	MemberID          int64
	ProfitYear        int
	Etva              decimal.Decimal
	CurrentHoursYear  decimal.Decimal
	CurrentIncomeYear decimal.Decimal
	YearsInPlan       int
	VestingScheduleID int

	// Set by the year-end run. See the Enrollment* and ZeroContribution*
	// constants.
	EnrollmentID           int
	ZeroContributionReason int

	Version int64
}

// =============================================================================
// BENEFICIARIES
// =============================================================================

// Contact holds a beneficiary's personal data, keyed by SSN.
type Contact struct {
	ID          int64
	SSN         int
	FirstName   string
	LastName    string
	MiddleName  string
	DateOfBirth time.Time
	Street      string
	City        string
	State       string
	PostalCode  string
	Phone       string
	Email       string
	CreatedAt   time.Time
}

// BeneficiaryKind distinguishes primary from contingent beneficiaries.
type BeneficiaryKind string

const (
	KindPrimary   BeneficiaryKind = "P"
	KindSecondary BeneficiaryKind = "S"
)

// Beneficiary links a Contact to an employee badge under a PSN suffix.
//
// Version is an optimistic concurrency stamp, as on PayProfit. A slice that
// pays out is re-stamped in the same transaction.
type Beneficiary struct {
	ID           int64
	BadgeNumber  int
	PsnSuffix    int
	MemberID     int64
	ContactID    int64
	Contact      *Contact
	Relationship string
	Kind         BeneficiaryKind
	Percent      decimal.Decimal
	Version      int64
}

// =============================================================================
// VESTING
// =============================================================================

// Well-known vesting schedule ids.
const (
	ScheduleOldPlan = 1
	ScheduleNewPlan = 2
)

// Enrollment ids on PayProfit. Forfeiture-record enrollments are fully
// vested; a new-plan enrollment with contributions earns an extra year.
const (
	EnrollmentNone                 = 0
	EnrollmentOldPlanContributions = 1
	EnrollmentNewPlanContributions = 2
	EnrollmentOldPlanForfeitures   = 3
	EnrollmentNewPlanForfeitures   = 4
)

// ZeroContributionSixtyFiveFullyVested marks a member of 65 or over whose
// first contribution is more than five years old. Such a member is fully
// vested.
const ZeroContributionSixtyFiveFullyVested = 6

// VestingSchedule is a named breakpoint table.
type VestingSchedule struct {
	ID            int
	Name          string
	EffectiveDate time.Time
}

// Breakpoint maps a years-of-service threshold to a vesting percent (0-100).
type Breakpoint struct {
	YearsOfService int             `json:"years"`
	Percent        decimal.Decimal `json:"percent"`
}

// =============================================================================
// BALANCE SNAPSHOT - Frozen year-end total
// =============================================================================

// BalanceSnapshot is a frozen year-end total for a subject. Entries with a
// profit year at or before ProfitYear are already included in Total.
type BalanceSnapshot struct {
	SSN        int
	ProfitYear int
	Total      decimal.Decimal
}
