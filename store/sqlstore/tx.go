package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/warp/profit-ledger/ledger"
)

// txView implements ledger.Tx over one *sqlx.Tx.
type txView struct {
	tx *sqlx.Tx
}

func (v *txView) get(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	err := v.tx.GetContext(ctx, dest, v.tx.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classify(err)
	}
	return true, nil
}

func (v *txView) selectRows(ctx context.Context, dest any, query string, args ...any) error {
	if err := v.tx.SelectContext(ctx, dest, v.tx.Rebind(query), args...); err != nil {
		return classify(err)
	}
	return nil
}

func (v *txView) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := v.tx.ExecContext(ctx, v.tx.Rebind(query), args...)
	if err != nil {
		return nil, classify(err)
	}
	return res, nil
}

// insertID runs an INSERT ... RETURNING id.
func (v *txView) insertID(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := v.tx.QueryRowxContext(ctx, v.tx.Rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
		return 0, classify(err)
	}
	return id, nil
}

// =============================================================================
// MEMBERS
// =============================================================================

type memberRow struct {
	ID              int64      `db:"id"`
	OracleHcmID     int64      `db:"oracle_hcm_id"`
	SSN             int        `db:"ssn"`
	BadgeNumber     int        `db:"badge_number"`
	FirstName       string     `db:"first_name"`
	LastName        string     `db:"last_name"`
	DateOfBirth     *time.Time `db:"date_of_birth"`
	TerminationCode string     `db:"termination_code"`
	TerminationDate *time.Time `db:"termination_date"`
}

func (r memberRow) toMember() *ledger.Member {
	m := &ledger.Member{
		ID:              r.ID,
		OracleHcmID:     r.OracleHcmID,
		SSN:             r.SSN,
		BadgeNumber:     r.BadgeNumber,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		TerminationCode: r.TerminationCode,
		TerminationDate: r.TerminationDate,
	}
	if r.DateOfBirth != nil {
		m.DateOfBirth = *r.DateOfBirth
	}
	return m
}

const memberColumns = `id, oracle_hcm_id, ssn, badge_number, first_name, last_name,
	date_of_birth, termination_code, termination_date`

func (v *txView) member(ctx context.Context, where string, arg any) (*ledger.Member, error) {
	var row memberRow
	ok, err := v.get(ctx, &row, "SELECT "+memberColumns+" FROM members WHERE "+where+" ORDER BY id LIMIT 1", arg)
	if err != nil || !ok {
		return nil, err
	}
	return row.toMember(), nil
}

func (v *txView) MemberByBadge(ctx context.Context, badge int) (*ledger.Member, error) {
	return v.member(ctx, "badge_number = ?", badge)
}

func (v *txView) MemberBySSN(ctx context.Context, ssn int) (*ledger.Member, error) {
	return v.member(ctx, "ssn = ?", ssn)
}

func (v *txView) SaveMember(ctx context.Context, m *ledger.Member) error {
	dob := nullTime(m.DateOfBirth)
	if m.ID == 0 {
		id, err := v.insertID(ctx, `
			INSERT INTO members (oracle_hcm_id, ssn, badge_number, first_name, last_name,
				date_of_birth, termination_code, termination_date)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.OracleHcmID, m.SSN, m.BadgeNumber, m.FirstName, m.LastName,
			dob, m.TerminationCode, m.TerminationDate)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
		m.ID = id
		return nil
	}
	_, err := v.exec(ctx, `
		UPDATE members SET oracle_hcm_id = ?, ssn = ?, badge_number = ?, first_name = ?,
			last_name = ?, date_of_birth = ?, termination_code = ?, termination_date = ?
		WHERE id = ?`,
		m.OracleHcmID, m.SSN, m.BadgeNumber, m.FirstName, m.LastName,
		dob, m.TerminationCode, m.TerminationDate, m.ID)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	return nil
}

// =============================================================================
// PAY PROFITS
// =============================================================================

type payProfitRow struct {
	MemberID               int64           `db:"member_id"`
	ProfitYear             int             `db:"profit_year"`
	Etva                   decimal.Decimal `db:"etva"`
	CurrentHoursYear       decimal.Decimal `db:"current_hours_year"`
	CurrentIncomeYear      decimal.Decimal `db:"current_income_year"`
	YearsInPlan            int             `db:"years_in_plan"`
	VestingScheduleID      int             `db:"vesting_schedule_id"`
	EnrollmentID           int             `db:"enrollment_id"`
	ZeroContributionReason int             `db:"zero_contribution_reason"`
	Version                int64           `db:"version"`
}

func (v *txView) PayProfit(ctx context.Context, memberID int64, year int) (*ledger.PayProfit, error) {
	var row payProfitRow
	ok, err := v.get(ctx, &row, `
		SELECT member_id, profit_year, etva, current_hours_year, current_income_year,
			years_in_plan, vesting_schedule_id, enrollment_id, zero_contribution_reason, version
		FROM pay_profits WHERE member_id = ? AND profit_year = ?`, memberID, year)
	if err != nil || !ok {
		return nil, err
	}
	pp := ledger.PayProfit(row)
	return &pp, nil
}

func (v *txView) SavePayProfit(ctx context.Context, pp *ledger.PayProfit) error {
	if pp.Version == 0 {
		_, err := v.exec(ctx, `
			INSERT INTO pay_profits (member_id, profit_year, etva, current_hours_year,
				current_income_year, years_in_plan, vesting_schedule_id, enrollment_id,
				zero_contribution_reason, version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
			pp.MemberID, pp.ProfitYear, pp.Etva, pp.CurrentHoursYear,
			pp.CurrentIncomeYear, pp.YearsInPlan, pp.VestingScheduleID, pp.EnrollmentID,
			pp.ZeroContributionReason)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("pay_profits %d/%d: %w", pp.MemberID, pp.ProfitYear, ledger.ErrConcurrentModification)
			}
			return fmt.Errorf("failed to insert pay_profits: %w", err)
		}
		pp.Version = 1
		return nil
	}

	res, err := v.exec(ctx, `
		UPDATE pay_profits SET etva = ?, current_hours_year = ?, current_income_year = ?,
			years_in_plan = ?, vesting_schedule_id = ?, enrollment_id = ?,
			zero_contribution_reason = ?, version = version + 1
		WHERE member_id = ? AND profit_year = ? AND version = ?`,
		pp.Etva, pp.CurrentHoursYear, pp.CurrentIncomeYear, pp.YearsInPlan,
		pp.VestingScheduleID, pp.EnrollmentID, pp.ZeroContributionReason,
		pp.MemberID, pp.ProfitYear, pp.Version)
	if err != nil {
		return fmt.Errorf("failed to update pay_profits: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return fmt.Errorf("pay_profits %d/%d version %d: %w", pp.MemberID, pp.ProfitYear, pp.Version, ledger.ErrConcurrentModification)
	}
	pp.Version++
	return nil
}

// =============================================================================
// LEDGER ENTRIES (append-only)
// =============================================================================

type entryRow struct {
	ID                        int64           `db:"id"`
	SSN                       int             `db:"ssn"`
	ProfitYear                int             `db:"profit_year"`
	ProfitCode                int             `db:"profit_code"`
	Contribution              decimal.Decimal `db:"contribution"`
	Earnings                  decimal.Decimal `db:"earnings"`
	Forfeiture                decimal.Decimal `db:"forfeiture"`
	FederalTaxes              decimal.Decimal `db:"federal_taxes"`
	StateTaxes                decimal.Decimal `db:"state_taxes"`
	MonthToDate               int             `db:"month_to_date"`
	YearToDate                int             `db:"year_to_date"`
	CommentType               int             `db:"comment_type"`
	Remark                    string          `db:"remark"`
	CommentRelatedOracleHcmID int64           `db:"comment_related_oracle_hcm_id"`
	CommentRelatedPsnSuffix   sql.NullInt64   `db:"comment_related_psn_suffix"`
	ReversedFromID            sql.NullInt64   `db:"reversed_from_id"`
	IdempotencyKey            sql.NullString  `db:"idempotency_key"`
	CreatedAt                 time.Time       `db:"created_at"`
}

func (r entryRow) toEntry() ledger.Entry {
	e := ledger.Entry{
		ID:                        ledger.EntryID(r.ID),
		SSN:                       r.SSN,
		ProfitYear:                r.ProfitYear,
		ProfitCode:                ledger.ProfitCode(r.ProfitCode),
		Contribution:              r.Contribution,
		Earnings:                  r.Earnings,
		Forfeiture:                r.Forfeiture,
		FederalTaxes:              r.FederalTaxes,
		StateTaxes:                r.StateTaxes,
		MonthToDate:               r.MonthToDate,
		YearToDate:                r.YearToDate,
		CommentType:               ledger.CommentType(r.CommentType),
		Remark:                    r.Remark,
		CommentRelatedOracleHcmID: r.CommentRelatedOracleHcmID,
		IdempotencyKey:            r.IdempotencyKey.String,
		CreatedAt:                 r.CreatedAt,
	}
	if r.CommentRelatedPsnSuffix.Valid {
		s := int(r.CommentRelatedPsnSuffix.Int64)
		e.CommentRelatedPsnSuffix = &s
	}
	if r.ReversedFromID.Valid {
		id := ledger.EntryID(r.ReversedFromID.Int64)
		e.ReversedFromID = &id
	}
	return e
}

func (v *txView) Entries(ctx context.Context, ssn int, throughYear int) ([]ledger.Entry, error) {
	var rows []entryRow
	err := v.selectRows(ctx, &rows, `
		SELECT id, ssn, profit_year, profit_code, contribution, earnings, forfeiture,
			federal_taxes, state_taxes, month_to_date, year_to_date, comment_type, remark,
			comment_related_oracle_hcm_id, comment_related_psn_suffix, reversed_from_id,
			idempotency_key, created_at
		FROM profit_details
		WHERE ssn = ? AND profit_year <= ?
		ORDER BY profit_year ASC, id ASC`, ssn, throughYear)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	entries := make([]ledger.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toEntry())
	}
	return entries, nil
}

func (v *txView) AppendEntries(ctx context.Context, entries []ledger.Entry) ([]ledger.EntryID, error) {
	// Check for duplicate idempotency keys within the batch first
	keys := make(map[string]bool)
	for _, e := range entries {
		if e.IdempotencyKey == "" {
			continue
		}
		if keys[e.IdempotencyKey] {
			return nil, ledger.ErrDuplicateIdempotencyKey
		}
		keys[e.IdempotencyKey] = true
	}

	ids := make([]ledger.EntryID, 0, len(entries))
	for _, e := range entries {
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		var reversed *int64
		if e.ReversedFromID != nil {
			id := int64(*e.ReversedFromID)
			reversed = &id
		}
		id, err := v.insertID(ctx, `
			INSERT INTO profit_details (ssn, profit_year, profit_code, contribution, earnings,
				forfeiture, federal_taxes, state_taxes, month_to_date, year_to_date, comment_type,
				remark, comment_related_oracle_hcm_id, comment_related_psn_suffix, reversed_from_id,
				idempotency_key, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.SSN, e.ProfitYear, int(e.ProfitCode), e.Contribution, e.Earnings,
			e.Forfeiture, e.FederalTaxes, e.StateTaxes, e.MonthToDate, e.YearToDate, int(e.CommentType),
			e.Remark, e.CommentRelatedOracleHcmID, e.CommentRelatedPsnSuffix, reversed,
			nullString(e.IdempotencyKey), createdAt)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, ledger.ErrDuplicateIdempotencyKey
			}
			return nil, fmt.Errorf("failed to append entry: %w", err)
		}
		ids = append(ids, ledger.EntryID(id))
	}
	return ids, nil
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

type snapshotRow struct {
	SSN        int             `db:"ssn"`
	ProfitYear int             `db:"profit_year"`
	Total      decimal.Decimal `db:"total"`
}

func (v *txView) LatestSnapshot(ctx context.Context, ssn int, throughYear int) (*ledger.BalanceSnapshot, error) {
	var row snapshotRow
	ok, err := v.get(ctx, &row, `
		SELECT ssn, profit_year, total FROM balance_snapshots
		WHERE ssn = ? AND profit_year <= ?
		ORDER BY profit_year DESC LIMIT 1`, ssn, throughYear)
	if err != nil || !ok {
		return nil, err
	}
	snap := ledger.BalanceSnapshot(row)
	return &snap, nil
}

func (v *txView) SaveSnapshot(ctx context.Context, s ledger.BalanceSnapshot) error {
	_, err := v.exec(ctx, `
		INSERT INTO balance_snapshots (ssn, profit_year, total) VALUES (?, ?, ?)
		ON CONFLICT (ssn, profit_year) DO UPDATE SET total = excluded.total`,
		s.SSN, s.ProfitYear, s.Total)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// =============================================================================
// BENEFICIARIES
// =============================================================================

type contactRow struct {
	ID          int64      `db:"id"`
	SSN         int        `db:"ssn"`
	FirstName   string     `db:"first_name"`
	LastName    string     `db:"last_name"`
	MiddleName  string     `db:"middle_name"`
	DateOfBirth *time.Time `db:"date_of_birth"`
	Street      string     `db:"street"`
	City        string     `db:"city"`
	State       string     `db:"state"`
	PostalCode  string     `db:"postal_code"`
	Phone       string     `db:"phone"`
	Email       string     `db:"email"`
	CreatedAt   time.Time  `db:"created_at"`
}

func (r contactRow) toContact() *ledger.Contact {
	c := &ledger.Contact{
		ID: r.ID, SSN: r.SSN, FirstName: r.FirstName, LastName: r.LastName,
		MiddleName: r.MiddleName, Street: r.Street, City: r.City, State: r.State,
		PostalCode: r.PostalCode, Phone: r.Phone, Email: r.Email, CreatedAt: r.CreatedAt,
	}
	if r.DateOfBirth != nil {
		c.DateOfBirth = *r.DateOfBirth
	}
	return c
}

type beneficiaryRow struct {
	ID           int64           `db:"id"`
	BadgeNumber  int             `db:"badge_number"`
	PsnSuffix    int             `db:"psn_suffix"`
	MemberID     int64           `db:"member_id"`
	ContactID    int64           `db:"contact_id"`
	Relationship string          `db:"relationship"`
	Kind         string          `db:"kind"`
	Percent      decimal.Decimal `db:"percent"`
	Version      int64           `db:"version"`
	Contact      contactRow      `db:"c"`
}

func (r beneficiaryRow) toBeneficiary() ledger.Beneficiary {
	return ledger.Beneficiary{
		ID:           r.ID,
		BadgeNumber:  r.BadgeNumber,
		PsnSuffix:    r.PsnSuffix,
		MemberID:     r.MemberID,
		ContactID:    r.ContactID,
		Contact:      r.Contact.toContact(),
		Relationship: r.Relationship,
		Kind:         ledger.BeneficiaryKind(r.Kind),
		Percent:      r.Percent,
		Version:      r.Version,
	}
}

const beneficiarySelect = `
	SELECT b.id, b.badge_number, b.psn_suffix, b.member_id, b.contact_id, b.relationship,
		b.kind, b.percent, b.version,
		c.id AS "c.id", c.ssn AS "c.ssn", c.first_name AS "c.first_name",
		c.last_name AS "c.last_name", c.middle_name AS "c.middle_name",
		c.date_of_birth AS "c.date_of_birth", c.street AS "c.street", c.city AS "c.city",
		c.state AS "c.state", c.postal_code AS "c.postal_code", c.phone AS "c.phone",
		c.email AS "c.email", c.created_at AS "c.created_at"
	FROM beneficiaries b
	JOIN beneficiary_contacts c ON c.id = b.contact_id`

func (v *txView) Beneficiary(ctx context.Context, badge, psnSuffix int) (*ledger.Beneficiary, error) {
	var row beneficiaryRow
	ok, err := v.get(ctx, &row, beneficiarySelect+` WHERE b.badge_number = ? AND b.psn_suffix = ?`, badge, psnSuffix)
	if err != nil || !ok {
		return nil, err
	}
	b := row.toBeneficiary()
	return &b, nil
}

func (v *txView) Beneficiaries(ctx context.Context, badge int) ([]ledger.Beneficiary, error) {
	var rows []beneficiaryRow
	if err := v.selectRows(ctx, &rows, beneficiarySelect+` WHERE b.badge_number = ? ORDER BY b.psn_suffix`, badge); err != nil {
		return nil, fmt.Errorf("failed to query beneficiaries: %w", err)
	}
	out := make([]ledger.Beneficiary, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toBeneficiary())
	}
	return out, nil
}

func (v *txView) MaxPsnSuffix(ctx context.Context, badge, lo, hi int) (int, bool, error) {
	var top sql.NullInt64
	_, err := v.get(ctx, &top, `
		SELECT MAX(psn_suffix) FROM beneficiaries
		WHERE badge_number = ? AND psn_suffix > ? AND psn_suffix < ?`, badge, lo, hi)
	if err != nil {
		return 0, false, err
	}
	return int(top.Int64), top.Valid, nil
}

func (v *txView) BeneficiariesByContact(ctx context.Context, contactID int64) ([]ledger.Beneficiary, error) {
	var rows []beneficiaryRow
	if err := v.selectRows(ctx, &rows, beneficiarySelect+` WHERE b.contact_id = ? ORDER BY b.id`, contactID); err != nil {
		return nil, fmt.Errorf("failed to query beneficiaries: %w", err)
	}
	out := make([]ledger.Beneficiary, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toBeneficiary())
	}
	return out, nil
}

const contactSelect = `
	SELECT id, ssn, first_name, last_name, middle_name, date_of_birth, street, city,
		state, postal_code, phone, email, created_at
	FROM beneficiary_contacts`

func (v *txView) Contact(ctx context.Context, id int64) (*ledger.Contact, error) {
	var row contactRow
	ok, err := v.get(ctx, &row, contactSelect+` WHERE id = ?`, id)
	if err != nil || !ok {
		return nil, err
	}
	return row.toContact(), nil
}

func (v *txView) ContactBySSN(ctx context.Context, ssn int) (*ledger.Contact, error) {
	var row contactRow
	ok, err := v.get(ctx, &row, contactSelect+` WHERE ssn = ?`, ssn)
	if err != nil || !ok {
		return nil, err
	}
	return row.toContact(), nil
}

func (v *txView) DeleteContact(ctx context.Context, id int64) error {
	res, err := v.exec(ctx, `DELETE FROM beneficiary_contacts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	return requireOneRow(res, fmt.Sprintf("contact %d", id))
}

func (v *txView) CreateContact(ctx context.Context, c *ledger.Contact) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	id, err := v.insertID(ctx, `
		INSERT INTO beneficiary_contacts (ssn, first_name, last_name, middle_name, date_of_birth,
			street, city, state, postal_code, phone, email, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.SSN, c.FirstName, c.LastName, c.MiddleName, nullTime(c.DateOfBirth),
		c.Street, c.City, c.State, c.PostalCode, c.Phone, c.Email, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("contact ssn %d: %w", c.SSN, ledger.ErrConcurrentModification)
		}
		return fmt.Errorf("failed to insert contact: %w", err)
	}
	c.ID = id
	return nil
}

func (v *txView) CreateBeneficiary(ctx context.Context, b *ledger.Beneficiary) error {
	id, err := v.insertID(ctx, `
		INSERT INTO beneficiaries (badge_number, psn_suffix, member_id, contact_id,
			relationship, kind, percent)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.BadgeNumber, b.PsnSuffix, b.MemberID, b.ContactID, b.Relationship, string(b.Kind), b.Percent)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("beneficiary %d-%d: %w", b.BadgeNumber, b.PsnSuffix, ledger.ErrConcurrentModification)
		}
		return fmt.Errorf("failed to insert beneficiary: %w", err)
	}
	b.ID = id
	b.Version = 1
	return nil
}

func (v *txView) UpdateBeneficiary(ctx context.Context, b *ledger.Beneficiary) error {
	res, err := v.exec(ctx, `
		UPDATE beneficiaries SET relationship = ?, kind = ?, percent = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		b.Relationship, string(b.Kind), b.Percent, b.ID, b.Version)
	if err != nil {
		return fmt.Errorf("failed to update beneficiary: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return fmt.Errorf("beneficiary %d-%d version %d: %w", b.BadgeNumber, b.PsnSuffix, b.Version, ledger.ErrConcurrentModification)
	}
	b.Version++
	return nil
}

func (v *txView) DeleteBeneficiary(ctx context.Context, id int64) error {
	res, err := v.exec(ctx, `DELETE FROM beneficiaries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete beneficiary: %w", err)
	}
	return requireOneRow(res, fmt.Sprintf("beneficiary %d", id))
}

// requireOneRow maps a delete that matched nothing to ErrNotFound.
func requireOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ledger.ErrNotFound)
	}
	return nil
}

// =============================================================================
// VESTING
// =============================================================================

type scheduleRow struct {
	ID            int       `db:"id"`
	Name          string    `db:"name"`
	EffectiveDate time.Time `db:"effective_date"`
}

type breakpointRow struct {
	YearsOfService int             `db:"years_of_service"`
	Percent        decimal.Decimal `db:"percent"`
}

func (v *txView) VestingSchedule(ctx context.Context, id int) (*ledger.VestingSchedule, error) {
	var row scheduleRow
	ok, err := v.get(ctx, &row, `SELECT id, name, effective_date FROM vesting_schedules WHERE id = ?`, id)
	if err != nil || !ok {
		return nil, err
	}
	s := ledger.VestingSchedule(row)
	return &s, nil
}

func (v *txView) VestingBreakpoints(ctx context.Context, scheduleID int) ([]ledger.Breakpoint, error) {
	var rows []breakpointRow
	err := v.selectRows(ctx, &rows, `
		SELECT years_of_service, percent FROM vesting_breakpoints
		WHERE schedule_id = ? ORDER BY years_of_service ASC`, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query breakpoints: %w", err)
	}
	out := make([]ledger.Breakpoint, 0, len(rows))
	for _, r := range rows {
		out = append(out, ledger.Breakpoint(r))
	}
	return out, nil
}

func (v *txView) SaveVestingSchedule(ctx context.Context, s ledger.VestingSchedule, points []ledger.Breakpoint) error {
	_, err := v.exec(ctx, `
		INSERT INTO vesting_schedules (id, name, effective_date) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, effective_date = excluded.effective_date`,
		s.ID, s.Name, s.EffectiveDate)
	if err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}
	if _, err := v.exec(ctx, `DELETE FROM vesting_breakpoints WHERE schedule_id = ?`, s.ID); err != nil {
		return fmt.Errorf("failed to clear breakpoints: %w", err)
	}
	for _, p := range points {
		if _, err := v.exec(ctx, `
			INSERT INTO vesting_breakpoints (schedule_id, years_of_service, percent) VALUES (?, ?, ?)`,
			s.ID, p.YearsOfService, p.Percent); err != nil {
			return fmt.Errorf("failed to save breakpoint: %w", err)
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
