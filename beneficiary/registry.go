/*
Package beneficiary registers beneficiaries against employee badges.

PURPOSE:
  A beneficiary is a (badge, psn suffix) slice pointing at a contact record.
  The suffix is allocated from a three-level hierarchy so that nested
  beneficiaries (a beneficiary's own beneficiaries) number under their parent.

SUFFIX NUMBERING:
  Digits of the 4-digit suffix: thousands = level 1, hundreds = level 2,
  tens = level 3, ones reserved.

  deepest level given   base (minPsn)                     width
  third  (> 0)          L1*1000 + L2*100 + L3*10          10
  second (> 0)          L1*1000 + L2*100                  100
  first  (> 0)          L1*1000                           1000
  none                  0                                 10000

  next = minPsn + (max existing in (minPsn, minPsn+width) - minPsn, or 0) + width/10

  Example: three beneficiaries created with first level 2 get 2100, 2200, 2300.

VALIDATION (first failure wins, nothing is written):
  1. each level number in [0, 9]              InvalidHierarchyLevelNumber
  2. badge > 0 and the employee exists        EmployeeBadgeInvalid
  3. percentage in (0, 100]                   BeneficiaryPercentageInvalid
  4. badge's percentage total stays <= 100    BeneficiaryPercentageSumExceeded

UPDATE:
  Relationship is replaced when non-empty. A new percentage is checked
  against rule 3, and against rule 4 with the slice's own old percentage
  left out of the total.

DELETE:
  A slice whose contact still has a balance this year cannot be removed
  (BeneficiaryBalanceNotZero). The contact goes with the last slice that
  uses it. DeleteContact refuses a contact shared by several slices
  (ContactInUse) and otherwise removes its only slice too.

SEE ALSO:
  - disbursement/allocator.go: consumes beneficiary slices
*/
package beneficiary

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/profit-ledger/ledger"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// Request creates one beneficiary slice.
type Request struct {
	EmployeeBadgeNumber int

	// Optional hierarchy level numbers, each 0-9.
	FirstLevel  *int
	SecondLevel *int
	ThirdLevel  *int

	// Contact is matched by SSN. ID and CreatedAt are ignored.
	Contact ledger.Contact

	Relationship string
	Kind         ledger.BeneficiaryKind
	Percentage   decimal.Decimal
}

// Created describes the registered slice.
type Created struct {
	BeneficiaryID  int64
	PsnSuffix      int
	ContactID      int64
	ContactExisted bool
}

// UpdateRequest changes one slice. Empty Relationship and nil Percentage
// leave the stored values alone.
type UpdateRequest struct {
	BadgeNumber  int
	PsnSuffix    int
	Relationship string
	Percentage   *decimal.Decimal
}

// Registry creates, changes, lists and removes beneficiaries.
type Registry struct {
	uow ledger.UnitOfWork
	log *zap.Logger
	now func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the clock that picks the profit year for the
// balance check on delete.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(uow ledger.UnitOfWork, log *zap.Logger, opts ...Option) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Registry{uow: uow, log: log.Named("beneficiary"), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateBeneficiary validates req, allocates the next suffix and persists the
// beneficiary together with any new contact in one unit of work.
func (r *Registry) CreateBeneficiary(ctx context.Context, req Request) (*Created, error) {
	levels := []struct {
		name  string
		value *int
	}{
		{"first", req.FirstLevel},
		{"second", req.SecondLevel},
		{"third", req.ThirdLevel},
	}
	for _, l := range levels {
		if l.value != nil && (*l.value < 0 || *l.value > 9) {
			return nil, ledger.InvalidHierarchyLevelNumber(l.name)
		}
	}
	if req.EmployeeBadgeNumber <= 0 {
		return nil, ledger.EmployeeBadgeInvalid(req.EmployeeBadgeNumber)
	}
	if !req.Percentage.IsPositive() || req.Percentage.GreaterThan(hundred) {
		return nil, ledger.BeneficiaryPercentageInvalid()
	}
	kind := req.Kind
	if kind == "" {
		kind = ledger.KindPrimary
	}

	var out *Created
	err := r.uow.Write(ctx, func(tx ledger.Tx) error {
		out = nil

		member, err := tx.MemberByBadge(ctx, req.EmployeeBadgeNumber)
		if err != nil {
			return err
		}
		if member == nil {
			return ledger.EmployeeBadgeInvalid(req.EmployeeBadgeNumber)
		}

		existing, err := tx.Beneficiaries(ctx, req.EmployeeBadgeNumber)
		if err != nil {
			return err
		}
		total := req.Percentage
		for _, b := range existing {
			total = total.Add(b.Percent)
		}
		if total.GreaterThan(hundred) {
			return ledger.BeneficiaryPercentageSumExceeded()
		}

		contact, err := tx.ContactBySSN(ctx, req.Contact.SSN)
		if err != nil {
			return err
		}
		contactExisted := contact != nil
		if !contactExisted {
			c := req.Contact
			c.ID = 0
			if err := tx.CreateContact(ctx, &c); err != nil {
				return err
			}
			contact = &c
		}

		suffix, err := NextPsnSuffix(ctx, tx, req.EmployeeBadgeNumber, deref(req.FirstLevel), deref(req.SecondLevel), deref(req.ThirdLevel))
		if err != nil {
			return err
		}

		b := &ledger.Beneficiary{
			BadgeNumber:  req.EmployeeBadgeNumber,
			PsnSuffix:    suffix,
			MemberID:     member.ID,
			ContactID:    contact.ID,
			Relationship: req.Relationship,
			Kind:         kind,
			Percent:      req.Percentage,
		}
		if err := tx.CreateBeneficiary(ctx, b); err != nil {
			return err
		}

		out = &Created{
			BeneficiaryID:  b.ID,
			PsnSuffix:      suffix,
			ContactID:      contact.ID,
			ContactExisted: contactExisted,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("beneficiary created",
		zap.Int("badge", req.EmployeeBadgeNumber),
		zap.Int("psn_suffix", out.PsnSuffix),
		zap.Bool("contact_existed", out.ContactExisted))
	return out, nil
}

// Update applies req to an existing slice and returns it as stored.
// A missing slice is ledger.ErrNotFound.
func (r *Registry) Update(ctx context.Context, req UpdateRequest) (*ledger.Beneficiary, error) {
	if req.Percentage != nil && (!req.Percentage.IsPositive() || req.Percentage.GreaterThan(hundred)) {
		return nil, ledger.BeneficiaryPercentageInvalid()
	}

	var out *ledger.Beneficiary
	err := r.uow.Write(ctx, func(tx ledger.Tx) error {
		out = nil

		b, err := tx.Beneficiary(ctx, req.BadgeNumber, req.PsnSuffix)
		if err != nil {
			return err
		}
		if b == nil {
			return fmt.Errorf("beneficiary %d-%d: %w", req.BadgeNumber, req.PsnSuffix, ledger.ErrNotFound)
		}

		if req.Relationship != "" {
			b.Relationship = req.Relationship
		}
		if req.Percentage != nil {
			siblings, err := tx.Beneficiaries(ctx, req.BadgeNumber)
			if err != nil {
				return err
			}
			total := *req.Percentage
			for _, s := range siblings {
				if s.ID != b.ID {
					total = total.Add(s.Percent)
				}
			}
			if total.GreaterThan(hundred) {
				return ledger.BeneficiaryPercentageSumExceeded()
			}
			b.Percent = *req.Percentage
		}

		if err := tx.UpdateBeneficiary(ctx, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("beneficiary updated",
		zap.Int("badge", req.BadgeNumber),
		zap.Int("psn_suffix", req.PsnSuffix),
		zap.String("percent", out.Percent.String()))
	return out, nil
}

// Delete removes one slice, and its contact when no other slice uses it.
// It reports whether the contact was removed.
func (r *Registry) Delete(ctx context.Context, badge, psnSuffix int) (contactDeleted bool, err error) {
	year := r.now().Year()

	err = r.uow.Write(ctx, func(tx ledger.Tx) error {
		contactDeleted = false

		b, err := tx.Beneficiary(ctx, badge, psnSuffix)
		if err != nil {
			return err
		}
		if b == nil || b.Contact == nil {
			return fmt.Errorf("beneficiary %d-%d: %w", badge, psnSuffix, ledger.ErrNotFound)
		}
		if err := checkZeroBalance(ctx, tx, b, year); err != nil {
			return err
		}
		if err := tx.DeleteBeneficiary(ctx, b.ID); err != nil {
			return err
		}

		rest, err := tx.BeneficiariesByContact(ctx, b.ContactID)
		if err != nil {
			return err
		}
		if len(rest) > 0 {
			return nil
		}
		if err := tx.DeleteContact(ctx, b.ContactID); err != nil {
			return err
		}
		contactDeleted = true
		return nil
	})
	if err != nil {
		return false, err
	}

	r.log.Info("beneficiary deleted",
		zap.Int("badge", badge),
		zap.Int("psn_suffix", psnSuffix),
		zap.Bool("contact_deleted", contactDeleted))
	return contactDeleted, nil
}

// DeleteContact removes a contact and the single slice that points at it.
// A missing contact is ledger.ErrNotFound.
func (r *Registry) DeleteContact(ctx context.Context, contactID int64) error {
	year := r.now().Year()

	err := r.uow.Write(ctx, func(tx ledger.Tx) error {
		c, err := tx.Contact(ctx, contactID)
		if err != nil {
			return err
		}
		if c == nil {
			return fmt.Errorf("contact %d: %w", contactID, ledger.ErrNotFound)
		}

		slices, err := tx.BeneficiariesByContact(ctx, contactID)
		if err != nil {
			return err
		}
		if len(slices) > 1 {
			return ledger.ContactInUse(contactID)
		}
		if len(slices) == 1 {
			if err := checkZeroBalance(ctx, tx, &slices[0], year); err != nil {
				return err
			}
			if err := tx.DeleteBeneficiary(ctx, slices[0].ID); err != nil {
				return err
			}
		}
		return tx.DeleteContact(ctx, contactID)
	})
	if err != nil {
		return err
	}

	r.log.Info("beneficiary contact deleted", zap.Int64("contact_id", contactID))
	return nil
}

func checkZeroBalance(ctx context.Context, tx ledger.Tx, b *ledger.Beneficiary, year int) error {
	balance, err := ledger.Balance(ctx, tx, b.Contact.SSN, year)
	if err != nil {
		return err
	}
	if !balance.IsZero() {
		return ledger.BeneficiaryBalanceNotZero(fmt.Sprintf("%d-%d", b.BadgeNumber, b.PsnSuffix), balance)
	}
	return nil
}

// List returns a badge's beneficiaries ordered by suffix.
func (r *Registry) List(ctx context.Context, badge int) ([]ledger.Beneficiary, error) {
	var out []ledger.Beneficiary
	err := r.uow.Read(ctx, func(tx ledger.Tx) error {
		var err error
		out, err = tx.Beneficiaries(ctx, badge)
		return err
	})
	return out, err
}

// SuffixRange returns the base and width of the range selected by the
// deepest non-zero level number.
func SuffixRange(first, second, third int) (minPsn, width int) {
	switch {
	case third > 0:
		return first*1000 + second*100 + third*10, 10
	case second > 0:
		return first*1000 + second*100, 100
	case first > 0:
		return first * 1000, 1000
	default:
		return 0, 10000
	}
}

// NextPsnSuffix allocates the next suffix for badge within the selected range.
func NextPsnSuffix(ctx context.Context, tx ledger.Tx, badge, first, second, third int) (int, error) {
	minPsn, width := SuffixRange(first, second, third)
	top, found, err := tx.MaxPsnSuffix(ctx, badge, minPsn, minPsn+width)
	if err != nil {
		return 0, fmt.Errorf("max psn suffix: %w", err)
	}
	offset := 0
	if found {
		offset = top - minPsn
	}
	return minPsn + offset + width/10, nil
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
