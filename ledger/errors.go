/*
errors.go - Error taxonomy for the ledger engine

PURPOSE:
  All error types in one place. Two families that callers must never mix:

  1. Business rule violations (RuleError): expected outcomes of validating a
     request. Each carries a RuleCode plus enough context to render a message.
     They are never retried and always roll back the unit of work.
  2. Infrastructure errors (ErrTransient, ErrConcurrentModification, ...):
     storage trouble. Transient ones are retried by the unit of work; once
     retries are exhausted they surface unchanged and are logged.

USAGE:
  if errors.Is(err, ledger.ErrNotEnoughFunds) { ... }

  var rule *ledger.RuleError
  if errors.As(err, &rule) {
      render(rule.Code, rule.Message())
  }

SEE ALSO:
  - uow.go: retry classification via IsRetryable
  - api/handlers.go: HTTP status mapping
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INFRASTRUCTURE ERRORS
// =============================================================================

var (
	// ErrTransient marks a storage failure that may succeed on retry
	// (locked database, serialization failure, dropped connection).
	ErrTransient = errors.New("transient storage failure")

	// ErrConcurrentModification is returned when an optimistic concurrency
	// stamp no longer matches. The whole unit of work is retried.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrNotFound is returned when a row the caller required is missing.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateIdempotencyKey is returned when an entry with the same
	// idempotency key already exists.
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)

// IsRetryable returns true if the unit of work should be attempted again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrConcurrentModification)
}

// IsRuleViolation returns true if err is a business rule violation.
func IsRuleViolation(err error) bool {
	var rule *RuleError
	return errors.As(err, &rule)
}

// =============================================================================
// BUSINESS RULE TAXONOMY
// =============================================================================

// RuleCode identifies a business rule violation.
type RuleCode string

const (
	RuleDisburserDoesNotExist              RuleCode = "disburser_does_not_exist"
	RuleDisburserIsStillMarkedAlive        RuleCode = "disburser_still_marked_alive"
	RuleBeneficiaryDoesNotExist            RuleCode = "beneficiary_does_not_exist"
	RulePercentageMoreThan100              RuleCode = "percentage_more_than_100"
	RuleCantMixPercentageAndAmount         RuleCode = "cant_mix_percentage_and_amount"
	RulePercentageAndAmountsMustBePositive RuleCode = "percentage_and_amounts_must_be_positive"
	RuleNotEnoughFundsToCoverAmounts       RuleCode = "not_enough_funds"
	RuleRemainingAmountToDisburse          RuleCode = "remaining_amount_to_disburse"
	RuleInvalidHierarchyLevelNumber        RuleCode = "invalid_hierarchy_level_number"
	RuleEmployeeBadgeInvalid               RuleCode = "employee_badge_invalid"
	RuleBeneficiaryPercentageInvalid       RuleCode = "beneficiary_percentage_invalid"
	RuleBeneficiaryPercentageSumExceeded   RuleCode = "beneficiary_percentage_sum_exceeded"
	RuleBeneficiaryBalanceNotZero          RuleCode = "beneficiary_balance_not_zero"
	RuleContactInUse                       RuleCode = "contact_in_use"
)

// Sentinels for errors.Is. RuleError unwraps to the sentinel of its code.
var (
	ErrDisburserDoesNotExist              = errors.New("disburser does not exist")
	ErrDisburserIsStillMarkedAlive        = errors.New("disburser is still marked alive")
	ErrBeneficiaryDoesNotExist            = errors.New("beneficiary does not exist")
	ErrPercentageMoreThan100              = errors.New("percentages add up to more than 100")
	ErrCantMixPercentageAndAmount         = errors.New("cannot mix percentages and amounts")
	ErrPercentageAndAmountsMustBePositive = errors.New("percentages and amounts must be positive")
	ErrNotEnoughFunds                     = errors.New("not enough funds to cover amounts")
	ErrRemainingAmountToDisburse          = errors.New("remaining amount to disburse")
	ErrInvalidHierarchyLevelNumber        = errors.New("hierarchy level number must be between 0 and 9")
	ErrEmployeeBadgeInvalid               = errors.New("employee badge number is invalid")
	ErrBeneficiaryPercentageInvalid       = errors.New("beneficiary percentage must be greater than 0 and at most 100")
	ErrBeneficiaryPercentageSumExceeded   = errors.New("beneficiary percentages would exceed 100")
	ErrBeneficiaryBalanceNotZero          = errors.New("balance is not zero, cannot delete beneficiary")
	ErrContactInUse                       = errors.New("contact is used by more than one beneficiary")
)

var ruleSentinels = map[RuleCode]error{
	RuleDisburserDoesNotExist:              ErrDisburserDoesNotExist,
	RuleDisburserIsStillMarkedAlive:        ErrDisburserIsStillMarkedAlive,
	RuleBeneficiaryDoesNotExist:            ErrBeneficiaryDoesNotExist,
	RulePercentageMoreThan100:              ErrPercentageMoreThan100,
	RuleCantMixPercentageAndAmount:         ErrCantMixPercentageAndAmount,
	RulePercentageAndAmountsMustBePositive: ErrPercentageAndAmountsMustBePositive,
	RuleNotEnoughFundsToCoverAmounts:       ErrNotEnoughFunds,
	RuleRemainingAmountToDisburse:          ErrRemainingAmountToDisburse,
	RuleInvalidHierarchyLevelNumber:        ErrInvalidHierarchyLevelNumber,
	RuleEmployeeBadgeInvalid:               ErrEmployeeBadgeInvalid,
	RuleBeneficiaryPercentageInvalid:       ErrBeneficiaryPercentageInvalid,
	RuleBeneficiaryPercentageSumExceeded:   ErrBeneficiaryPercentageSumExceeded,
	RuleBeneficiaryBalanceNotZero:          ErrBeneficiaryBalanceNotZero,
	RuleContactInUse:                       ErrContactInUse,
}

// RuleError is a business rule violation.
type RuleError struct {
	Code RuleCode
	// Key names the offending record, e.g. "706355-1000" for a beneficiary.
	Key string
	// Amount carries a shortfall when the rule is about money.
	Amount decimal.Decimal
}

func (e *RuleError) Error() string {
	return e.Message()
}

// Message renders a user-facing message.
func (e *RuleError) Message() string {
	base := e.Unwrap().Error()
	switch e.Code {
	case RuleBeneficiaryDoesNotExist, RuleContactInUse:
		return fmt.Sprintf("%s: %s", base, e.Key)
	case RuleBeneficiaryBalanceNotZero:
		return fmt.Sprintf("%s: %s holds %s", base, e.Key, e.Amount.StringFixed(2))
	case RuleRemainingAmountToDisburse:
		return fmt.Sprintf("%s: %s", base, e.Amount.StringFixed(2))
	case RuleInvalidHierarchyLevelNumber:
		if e.Key != "" {
			return fmt.Sprintf("%s (%s)", base, e.Key)
		}
	}
	return base
}

func (e *RuleError) Unwrap() error {
	if s, ok := ruleSentinels[e.Code]; ok {
		return s
	}
	return errors.New(string(e.Code))
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

func DisburserDoesNotExist() error {
	return &RuleError{Code: RuleDisburserDoesNotExist}
}

func DisburserIsStillMarkedAlive() error {
	return &RuleError{Code: RuleDisburserIsStillMarkedAlive}
}

func BeneficiaryDoesNotExist(key string) error {
	return &RuleError{Code: RuleBeneficiaryDoesNotExist, Key: key}
}

func PercentageMoreThan100() error {
	return &RuleError{Code: RulePercentageMoreThan100}
}

func CantMixPercentageAndAmount() error {
	return &RuleError{Code: RuleCantMixPercentageAndAmount}
}

func PercentageAndAmountsMustBePositive() error {
	return &RuleError{Code: RulePercentageAndAmountsMustBePositive}
}

func NotEnoughFundsToCoverAmounts() error {
	return &RuleError{Code: RuleNotEnoughFundsToCoverAmounts}
}

// RemainingAmountToDisburse carries balance minus the requested total.
func RemainingAmountToDisburse(shortfall decimal.Decimal) error {
	return &RuleError{Code: RuleRemainingAmountToDisburse, Amount: shortfall}
}

// InvalidHierarchyLevelNumber names the offending level ("first", "second", "third").
func InvalidHierarchyLevelNumber(level string) error {
	return &RuleError{Code: RuleInvalidHierarchyLevelNumber, Key: level}
}

func EmployeeBadgeInvalid(badge int) error {
	return &RuleError{Code: RuleEmployeeBadgeInvalid, Key: fmt.Sprint(badge)}
}

func BeneficiaryPercentageInvalid() error {
	return &RuleError{Code: RuleBeneficiaryPercentageInvalid}
}

func BeneficiaryPercentageSumExceeded() error {
	return &RuleError{Code: RuleBeneficiaryPercentageSumExceeded}
}

// BeneficiaryBalanceNotZero names the slice and the balance still on it.
func BeneficiaryBalanceNotZero(key string, balance decimal.Decimal) error {
	return &RuleError{Code: RuleBeneficiaryBalanceNotZero, Key: key, Amount: balance}
}

func ContactInUse(contactID int64) error {
	return &RuleError{Code: RuleContactInUse, Key: fmt.Sprint(contactID)}
}
