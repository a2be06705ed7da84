/*
Package disbursement splits a disburser's balance across beneficiaries.

PURPOSE:
  A disbursement moves money from one ledger subject (an employee, or a
  beneficiary slice) to one or more beneficiary slices under the same badge.
  Each share becomes a pair of ledger entries. Money is conserved: the debit
  leg and the credit leg always carry the same amount.

VALIDATION ORDER (first failure wins, nothing is written):
  1. disburser exists                       DisburserDoesNotExist
     deceased request on a living employee  DisburserIsStillMarkedAlive
  2. every share's beneficiary exists       BeneficiaryDoesNotExist(badge-suffix)
  3. percentages sum to at most 100         PercentageMoreThan100
  4. percentages and amounts not mixed      CantMixPercentageAndAmount
  5. no negative percentage or amount       PercentageAndAmountsMustBePositive
  6. requested total <= balance             NotEnoughFundsToCoverAmounts
  7. deceased: requested total == balance   RemainingAmountToDisburse(shortfall)

ENTRY PAIR PER SHARE:
  debit  (disburser)    code 5  Forfeiture   = amount  TransferOut | QdroOut  "XREF>" | "QDRO>"
  credit (beneficiary)  code 6  Contribution = amount  TransferIn  | QdroIn   "XREF<" | "QDRO<"

  The remark tag is followed by the badge and the disburser's 4-digit suffix
  (0000 for an employee).

ETVA:
  A beneficiary who is also an employee gets the amount added to their Etva
  for the profit year. The disburser's Etva is then pulled down so it never
  exceeds the remaining balance and never goes negative:

    nonEtva = balance - etva
    if nonEtva - total < 0 { etva += max(-etva, nonEtva - total) }

ROUNDING:
  Every share is rounded to cents. When percentages add up to exactly 100
  the last share takes the rounding remainder, so the shares sum to the
  balance.

CONCURRENCY:
  Every debited subject is re-stamped in the same transaction. An employee
  disburser stamps its PayProfit row. A slice disburser stamps every
  beneficiary row that points at its contact, plus the PayProfit row when
  the contact is also an employee. Two disbursements that validated against
  the same balance cannot both commit: the loser gets
  ErrConcurrentModification and the unit of work reruns it from the start
  against the new balance.

SEE ALSO:
  - ledger/aggregate.go: balance formula
  - ledger/uow.go: retry policy
*/
package disbursement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/profit-ledger/ledger"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// =============================================================================
// REQUEST / RESULT
// =============================================================================

// Share is one beneficiary's portion. Exactly one of Percentage or Amount
// is expected. A share with neither moves nothing.
type Share struct {
	PsnSuffix  int
	Percentage *decimal.Decimal
	Amount     *decimal.Decimal
}

// Request asks to disburse funds from BadgeNumber (or its PsnSuffix slice).
type Request struct {
	BadgeNumber int
	PsnSuffix   *int
	IsDeceased  bool
	Shares      []Share

	// RequestID seeds the idempotency keys of the posted entries.
	// Resubmitting the same RequestID fails with ErrDuplicateIdempotencyKey.
	// Empty means a fresh random id.
	RequestID string
}

// Result summarizes a committed disbursement.
type Result struct {
	RequestID      string
	ProfitYear     int
	Balance        decimal.Decimal
	TotalDisbursed decimal.Decimal
	EntryIDs       []ledger.EntryID
}

// =============================================================================
// ALLOCATOR
// =============================================================================

// Allocator executes disbursements.
type Allocator struct {
	uow ledger.UnitOfWork
	log *zap.Logger
	now func() time.Time
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithClock overrides the clock used for the profit year and the
// month/year-to-date stamps.
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) { a.now = now }
}

func New(uow ledger.UnitOfWork, log *zap.Logger, opts ...Option) *Allocator {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Allocator{uow: uow, log: log.Named("disbursement"), now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// disburser is the resolved paying subject.
type disburser struct {
	ssn         int
	oracleHcmID int64
	// member is nil for a beneficiary slice that is not also an employee.
	member *ledger.Member
	// slices holds every beneficiary row of the paying contact on the
	// suffix path. They carry the version stamp when member is nil.
	slices []ledger.Beneficiary
}

// DisburseFundsToBeneficiaries validates req and posts every entry pair and
// Etva adjustment in one unit of work. Rule violations come back as
// *ledger.RuleError and leave storage untouched.
func (a *Allocator) DisburseFundsToBeneficiaries(ctx context.Context, req Request) (*Result, error) {
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	now := a.now()
	year := now.Year()

	var res *Result
	err := a.uow.Write(ctx, func(tx ledger.Tx) error {
		res = nil

		d, err := a.resolveDisburser(ctx, tx, req)
		if err != nil {
			return err
		}

		targets := make([]ledger.Beneficiary, len(req.Shares))
		for i, s := range req.Shares {
			b, err := tx.Beneficiary(ctx, req.BadgeNumber, s.PsnSuffix)
			if err != nil {
				return err
			}
			if b == nil || b.Contact == nil {
				return ledger.BeneficiaryDoesNotExist(fmt.Sprintf("%d-%d", req.BadgeNumber, s.PsnSuffix))
			}
			targets[i] = *b
		}

		if err := validateShares(req.Shares); err != nil {
			return err
		}

		balance, err := ledger.Balance(ctx, tx, d.ssn, year)
		if err != nil {
			return err
		}
		amounts := ShareAmounts(req.Shares, balance)
		total := decimal.Zero
		for _, amt := range amounts {
			total = total.Add(amt)
		}
		if total.GreaterThan(balance) {
			return ledger.NotEnoughFundsToCoverAmounts()
		}
		if req.IsDeceased && !total.Equal(balance) {
			return ledger.RemainingAmountToDisburse(balance.Sub(total))
		}

		rows := newPayProfits(tx, year)
		entries := make([]ledger.Entry, 0, 2*len(req.Shares))
		for i, b := range targets {
			out, in := legs(req, d, b, amounts[i], now)
			out.IdempotencyKey = fmt.Sprintf("%s:%d:out", requestID, i)
			in.IdempotencyKey = fmt.Sprintf("%s:%d:in", requestID, i)
			entries = append(entries, out, in)

			employee, err := tx.MemberBySSN(ctx, b.Contact.SSN)
			if err != nil {
				return err
			}
			if employee != nil {
				pp, err := rows.get(ctx, employee.ID)
				if err != nil {
					return err
				}
				pp.Etva = pp.Etva.Add(amounts[i])
			}
		}

		if d.member != nil {
			pp, err := rows.get(ctx, d.member.ID)
			if err != nil {
				return err
			}
			pp.Etva = AdjustEtva(balance, pp.Etva, total)
		}

		ids, err := tx.AppendEntries(ctx, entries)
		if err != nil {
			return err
		}
		if err := rows.save(ctx); err != nil {
			return err
		}
		for i := range d.slices {
			if err := tx.UpdateBeneficiary(ctx, &d.slices[i]); err != nil {
				return fmt.Errorf("stamp beneficiary %d-%d: %w", d.slices[i].BadgeNumber, d.slices[i].PsnSuffix, err)
			}
		}

		res = &Result{
			RequestID:      requestID,
			ProfitYear:     year,
			Balance:        balance,
			TotalDisbursed: total,
			EntryIDs:       ids,
		}
		return nil
	})
	if err != nil {
		if ledger.IsRuleViolation(err) {
			a.log.Info("disbursement rejected",
				zap.Int("badge", req.BadgeNumber),
				zap.String("request_id", requestID),
				zap.Error(err))
		}
		return nil, err
	}

	a.log.Info("disbursement posted",
		zap.Int("badge", req.BadgeNumber),
		zap.String("request_id", requestID),
		zap.Int("shares", len(req.Shares)),
		zap.String("total", res.TotalDisbursed.StringFixed(2)))
	return res, nil
}

// resolveDisburser applies validation step 1. On the suffix path the paying
// subject is the slice's contact and the deceased check does not apply.
func (a *Allocator) resolveDisburser(ctx context.Context, tx ledger.Tx, req Request) (*disburser, error) {
	if req.PsnSuffix != nil {
		slice, err := tx.Beneficiary(ctx, req.BadgeNumber, *req.PsnSuffix)
		if err != nil {
			return nil, err
		}
		if slice == nil || slice.Contact == nil {
			return nil, ledger.DisburserDoesNotExist()
		}
		employee, err := tx.MemberByBadge(ctx, req.BadgeNumber)
		if err != nil {
			return nil, err
		}
		d := &disburser{ssn: slice.Contact.SSN}
		if employee != nil {
			d.oracleHcmID = employee.OracleHcmID
		}
		d.member, err = tx.MemberBySSN(ctx, slice.Contact.SSN)
		if err != nil {
			return nil, err
		}
		d.slices, err = tx.BeneficiariesByContact(ctx, slice.ContactID)
		if err != nil {
			return nil, err
		}
		return d, nil
	}

	m, err := tx.MemberByBadge(ctx, req.BadgeNumber)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ledger.DisburserDoesNotExist()
	}
	if req.IsDeceased && !m.IsDeceased() {
		return nil, ledger.DisburserIsStillMarkedAlive()
	}
	return &disburser{ssn: m.SSN, oracleHcmID: m.OracleHcmID, member: m}, nil
}

// validateShares applies validation steps 3 to 5.
func validateShares(shares []Share) error {
	pctSum := decimal.Zero
	var hasPct, hasAmt bool
	for _, s := range shares {
		if s.Percentage != nil {
			hasPct = true
			pctSum = pctSum.Add(*s.Percentage)
		}
		if s.Amount != nil {
			hasAmt = true
		}
	}
	if pctSum.GreaterThan(hundred) {
		return ledger.PercentageMoreThan100()
	}
	if hasPct && hasAmt {
		return ledger.CantMixPercentageAndAmount()
	}
	for _, s := range shares {
		if (s.Percentage != nil && s.Percentage.IsNegative()) || (s.Amount != nil && s.Amount.IsNegative()) {
			return ledger.PercentageAndAmountsMustBePositive()
		}
	}
	return nil
}

// ShareAmount is the concrete amount for s rounded to cents: the fixed
// amount, or balance x percentage / 100.
func ShareAmount(s Share, balance decimal.Decimal) decimal.Decimal {
	if s.Amount != nil {
		return s.Amount.Round(2)
	}
	if s.Percentage != nil {
		return balance.Mul(*s.Percentage).Div(hundred).Round(2)
	}
	return decimal.Zero
}

// ShareAmounts resolves every share with ShareAmount. When all shares are
// percentages summing to exactly 100, the last one is balance minus the
// others so nothing is lost to rounding.
func ShareAmounts(shares []Share, balance decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(shares))
	pctSum := decimal.Zero
	allPct := len(shares) > 0
	for i, s := range shares {
		out[i] = ShareAmount(s, balance)
		if s.Percentage == nil {
			allPct = false
			continue
		}
		pctSum = pctSum.Add(*s.Percentage)
	}
	if !allPct || !pctSum.Equal(hundred) {
		return out
	}
	rest := balance
	for _, amt := range out[:len(out)-1] {
		rest = rest.Sub(amt)
	}
	out[len(out)-1] = rest
	return out
}

// AdjustEtva returns the disburser's Etva after total leaves a balance.
// The result is max(0, balance-total) whenever the non-Etva part cannot
// cover total, and etva unchanged otherwise.
func AdjustEtva(balance, etva, total decimal.Decimal) decimal.Decimal {
	nonEtva := balance.Sub(etva)
	gap := nonEtva.Sub(total)
	if gap.IsNegative() {
		return etva.Add(decimal.Max(etva.Neg(), gap))
	}
	return etva
}

// legs builds the debit and credit entries for one share.
func legs(req Request, d *disburser, b ledger.Beneficiary, amount decimal.Decimal, now time.Time) (out, in ledger.Entry) {
	outTag, inTag := "QDRO>", "QDRO<"
	outType, inType := ledger.CommentQdroOut, ledger.CommentQdroIn
	if req.IsDeceased {
		outTag, inTag = "XREF>", "XREF<"
		outType, inType = ledger.CommentTransferOut, ledger.CommentTransferIn
	}
	suffix := 0
	if req.PsnSuffix != nil {
		suffix = *req.PsnSuffix
	}
	ref := fmt.Sprintf("%d%04d", req.BadgeNumber, suffix)
	targetSuffix := b.PsnSuffix

	out = ledger.Entry{
		SSN:                       d.ssn,
		ProfitYear:                now.Year(),
		ProfitCode:                ledger.CodeOutgoingXferBeneficiary,
		Forfeiture:                amount,
		MonthToDate:               int(now.Month()),
		YearToDate:                now.Year(),
		CommentType:               outType,
		Remark:                    outTag + ref,
		CommentRelatedOracleHcmID: d.oracleHcmID,
		CommentRelatedPsnSuffix:   &targetSuffix,
	}
	in = ledger.Entry{
		SSN:                       b.Contact.SSN,
		ProfitYear:                now.Year(),
		ProfitCode:                ledger.CodeIncomingQdroBeneficiary,
		Contribution:              amount,
		MonthToDate:               int(now.Month()),
		YearToDate:                now.Year(),
		CommentType:               inType,
		Remark:                    inTag + ref,
		CommentRelatedOracleHcmID: d.oracleHcmID,
		CommentRelatedPsnSuffix:   req.PsnSuffix,
	}
	return out, in
}

// =============================================================================
// PAYPROFIT STAGING
// =============================================================================

// payProfits stages member-year rows so each is loaded and saved once per
// transaction, even when the disburser is also a beneficiary employee.
type payProfits struct {
	tx    ledger.Tx
	year  int
	rows  map[int64]*ledger.PayProfit
	order []int64
}

func newPayProfits(tx ledger.Tx, year int) *payProfits {
	return &payProfits{tx: tx, year: year, rows: make(map[int64]*ledger.PayProfit)}
}

// get returns the staged row, loading it or starting a new one.
func (p *payProfits) get(ctx context.Context, memberID int64) (*ledger.PayProfit, error) {
	if pp, ok := p.rows[memberID]; ok {
		return pp, nil
	}
	pp, err := p.tx.PayProfit(ctx, memberID, p.year)
	if err != nil {
		return nil, err
	}
	if pp == nil {
		pp = &ledger.PayProfit{MemberID: memberID, ProfitYear: p.year, VestingScheduleID: ledger.ScheduleNewPlan}
	}
	p.rows[memberID] = pp
	p.order = append(p.order, memberID)
	return pp, nil
}

func (p *payProfits) save(ctx context.Context) error {
	for _, id := range p.order {
		if err := p.tx.SavePayProfit(ctx, p.rows[id]); err != nil {
			return fmt.Errorf("save pay profit %d/%d: %w", id, p.year, err)
		}
	}
	return nil
}
