/*
store.go - Storage gateway consumed by the engine

PURPOSE:
  Defines the boundary between the business components and durable storage.
  Components never talk to a database directly: they receive a Tx inside a
  unit of work and read or stage writes through it.

KEY INTERFACES:
  Tx:         scoped read/write access to entries, member-year rows,
              beneficiaries and vesting tables within one transaction
  Gateway:    opens transactions (WithTx for writes, ReadOnly for reads)
  UnitOfWork: what components depend on; adds retry on top of a Gateway

APPEND-ONLY CONTRACT:
  Entries have AppendEntries and nothing else. There is no update or delete.
  Corrections are new offsetting entries (ReversedFromID).

NOT FOUND:
  Single-row lookups return (nil, nil) when the row does not exist. Callers
  turn that into the business error that fits their context.

OPTIMISTIC CONCURRENCY:
  SavePayProfit inserts when Version is 0. Otherwise it updates only if the
  stored version still equals Version, then bumps it. UpdateBeneficiary does
  the same for beneficiary slices. A mismatch returns
  ErrConcurrentModification, which the unit of work retries.

IMPLEMENTATIONS:
  - ledger/store/memory.go: in-memory, snapshot rollback
  - store/sqlstore/sqlstore.go: sqlx over sqlite3 or postgres

SEE ALSO:
  - uow.go: retrying unit of work
*/
package ledger

import "context"

// =============================================================================
// TX - Scoped access inside one transaction
// =============================================================================

// Tx is the storage view handed to a unit-of-work callback.
// It must not be retained after the callback returns.
type Tx interface {
	// Members
	MemberByBadge(ctx context.Context, badge int) (*Member, error)
	MemberBySSN(ctx context.Context, ssn int) (*Member, error)
	SaveMember(ctx context.Context, m *Member) error

	// Member-year rows
	PayProfit(ctx context.Context, memberID int64, year int) (*PayProfit, error)
	SavePayProfit(ctx context.Context, pp *PayProfit) error

	// Ledger entries, ordered by profit year then id.
	Entries(ctx context.Context, ssn int, throughYear int) ([]Entry, error)
	AppendEntries(ctx context.Context, entries []Entry) ([]EntryID, error)

	// Year-end snapshots
	LatestSnapshot(ctx context.Context, ssn int, throughYear int) (*BalanceSnapshot, error)
	SaveSnapshot(ctx context.Context, s BalanceSnapshot) error

	// Beneficiaries. Beneficiary and Beneficiaries populate Contact.
	Beneficiary(ctx context.Context, badge, psnSuffix int) (*Beneficiary, error)
	Beneficiaries(ctx context.Context, badge int) ([]Beneficiary, error)
	// MaxPsnSuffix returns the largest suffix for badge strictly inside (lo, hi).
	MaxPsnSuffix(ctx context.Context, badge, lo, hi int) (int, bool, error)
	// BeneficiariesByContact lists every slice that points at contactID.
	BeneficiariesByContact(ctx context.Context, contactID int64) ([]Beneficiary, error)
	// CreateBeneficiary stores b with Version 1.
	CreateBeneficiary(ctx context.Context, b *Beneficiary) error
	// UpdateBeneficiary writes Relationship, Kind and Percent when the stored
	// version equals b.Version, then bumps it.
	UpdateBeneficiary(ctx context.Context, b *Beneficiary) error
	DeleteBeneficiary(ctx context.Context, id int64) error

	Contact(ctx context.Context, id int64) (*Contact, error)
	ContactBySSN(ctx context.Context, ssn int) (*Contact, error)
	CreateContact(ctx context.Context, c *Contact) error
	DeleteContact(ctx context.Context, id int64) error

	// Vesting tables. Breakpoints are ordered by years of service ascending.
	VestingSchedule(ctx context.Context, id int) (*VestingSchedule, error)
	VestingBreakpoints(ctx context.Context, scheduleID int) ([]Breakpoint, error)
	SaveVestingSchedule(ctx context.Context, s VestingSchedule, points []Breakpoint) error
}

// =============================================================================
// GATEWAY
// =============================================================================

// Gateway opens transactions against durable storage.
type Gateway interface {
	// WithTx runs fn in a read-write transaction. A nil return commits,
	// anything else rolls back.
	WithTx(ctx context.Context, fn func(Tx) error) error

	// ReadOnly runs fn against a consistent read view. Writes through the
	// Tx are not allowed.
	ReadOnly(ctx context.Context, fn func(Tx) error) error
}

// UnitOfWork is the transactional contract the business components use.
type UnitOfWork interface {
	Write(ctx context.Context, fn func(Tx) error) error
	Read(ctx context.Context, fn func(Tx) error) error
}
