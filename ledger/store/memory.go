// Package store provides an in-memory ledger.Gateway.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/profit-ledger/ledger"
)

// =============================================================================
// MEMORY GATEWAY - In-memory implementation (for testing/dev)
// =============================================================================

var errReadOnly = errors.New("memory store: write in read-only transaction")

type ppKey struct {
	MemberID int64
	Year     int
}

type state struct {
	members       map[int64]ledger.Member
	payProfits    map[ppKey]ledger.PayProfit
	entries       []ledger.Entry
	idempotency   map[string]bool
	snapshots     map[int][]ledger.BalanceSnapshot
	contacts      map[int64]ledger.Contact
	beneficiaries []ledger.Beneficiary
	schedules     map[int]ledger.VestingSchedule
	breakpoints   map[int][]ledger.Breakpoint
	seq           int64
}

func newState() *state {
	return &state{
		members:     make(map[int64]ledger.Member),
		payProfits:  make(map[ppKey]ledger.PayProfit),
		idempotency: make(map[string]bool),
		snapshots:   make(map[int][]ledger.BalanceSnapshot),
		contacts:    make(map[int64]ledger.Contact),
		schedules:   make(map[int]ledger.VestingSchedule),
		breakpoints: make(map[int][]ledger.Breakpoint),
	}
}

// clone copies every collection so a rollback can restore it.
func (s *state) clone() *state {
	c := newState()
	for k, v := range s.members {
		c.members[k] = v
	}
	for k, v := range s.payProfits {
		c.payProfits[k] = v
	}
	c.entries = append([]ledger.Entry(nil), s.entries...)
	for k, v := range s.idempotency {
		c.idempotency[k] = v
	}
	for k, v := range s.snapshots {
		c.snapshots[k] = append([]ledger.BalanceSnapshot(nil), v...)
	}
	for k, v := range s.contacts {
		c.contacts[k] = v
	}
	c.beneficiaries = append([]ledger.Beneficiary(nil), s.beneficiaries...)
	for k, v := range s.schedules {
		c.schedules[k] = v
	}
	for k, v := range s.breakpoints {
		c.breakpoints[k] = append([]ledger.Breakpoint(nil), v...)
	}
	c.seq = s.seq
	return c
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// Memory is a ledger.Gateway backed by maps. Write transactions hold an
// exclusive lock, so they are serialized.
type Memory struct {
	mu sync.RWMutex
	st *state

	// fault injection
	failCommits int
	failErr     error
	now         func() time.Time
}

func NewMemory() *Memory {
	return &Memory{st: newState(), now: time.Now}
}

// FailCommits makes the next n write transactions roll back and return err
// after fn succeeds, as if the commit itself failed.
func (m *Memory) FailCommits(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCommits = n
	m.failErr = err
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(ledger.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := m.st.clone()
	if err := fn(&view{m: m}); err != nil {
		m.st = saved
		return err
	}
	if err := ctx.Err(); err != nil {
		m.st = saved
		return err
	}
	if m.failCommits > 0 {
		m.failCommits--
		m.st = saved
		return m.failErr
	}
	return nil
}

// Reset drops all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = newState()
	return nil
}

// ReadOnly executes fn under a shared lock.
func (m *Memory) ReadOnly(_ context.Context, fn func(ledger.Tx) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&view{m: m, readOnly: true})
}

// =============================================================================
// VIEW - ledger.Tx over the locked state
// =============================================================================

type view struct {
	m        *Memory
	readOnly bool
}

func (v *view) st() *state { return v.m.st }

func (v *view) MemberByBadge(_ context.Context, badge int) (*ledger.Member, error) {
	for _, mem := range v.st().members {
		if mem.BadgeNumber == badge {
			out := mem
			return &out, nil
		}
	}
	return nil, nil
}

func (v *view) MemberBySSN(_ context.Context, ssn int) (*ledger.Member, error) {
	var found *ledger.Member
	for _, mem := range v.st().members {
		if mem.SSN == ssn && (found == nil || mem.ID < found.ID) {
			out := mem
			found = &out
		}
	}
	return found, nil
}

func (v *view) SaveMember(_ context.Context, mem *ledger.Member) error {
	if v.readOnly {
		return errReadOnly
	}
	if mem.ID == 0 {
		mem.ID = v.st().nextID()
	}
	v.st().members[mem.ID] = *mem
	return nil
}

func (v *view) PayProfit(_ context.Context, memberID int64, year int) (*ledger.PayProfit, error) {
	pp, ok := v.st().payProfits[ppKey{memberID, year}]
	if !ok {
		return nil, nil
	}
	return &pp, nil
}

func (v *view) SavePayProfit(_ context.Context, pp *ledger.PayProfit) error {
	if v.readOnly {
		return errReadOnly
	}
	k := ppKey{pp.MemberID, pp.ProfitYear}
	cur, exists := v.st().payProfits[k]
	switch {
	case pp.Version == 0 && exists:
		return ledger.ErrConcurrentModification
	case pp.Version != 0 && (!exists || cur.Version != pp.Version):
		return ledger.ErrConcurrentModification
	}
	pp.Version++
	v.st().payProfits[k] = *pp
	return nil
}

func (v *view) Entries(_ context.Context, ssn int, throughYear int) ([]ledger.Entry, error) {
	var out []ledger.Entry
	for _, e := range v.st().entries {
		if e.SSN == ssn && e.ProfitYear <= throughYear {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ProfitYear != out[j].ProfitYear {
			return out[i].ProfitYear < out[j].ProfitYear
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v *view) AppendEntries(_ context.Context, entries []ledger.Entry) ([]ledger.EntryID, error) {
	if v.readOnly {
		return nil, errReadOnly
	}
	st := v.st()
	// Check all idempotency keys first (atomic check)
	seen := make(map[string]bool)
	for _, e := range entries {
		if e.IdempotencyKey == "" {
			continue
		}
		if st.idempotency[e.IdempotencyKey] || seen[e.IdempotencyKey] {
			return nil, ledger.ErrDuplicateIdempotencyKey
		}
		seen[e.IdempotencyKey] = true
	}

	ids := make([]ledger.EntryID, 0, len(entries))
	for _, e := range entries {
		e.ID = ledger.EntryID(st.nextID())
		if e.CreatedAt.IsZero() {
			e.CreatedAt = v.m.now()
		}
		st.entries = append(st.entries, e)
		if e.IdempotencyKey != "" {
			st.idempotency[e.IdempotencyKey] = true
		}
		ids = append(ids, e.ID)
	}
	return ids, nil
}

func (v *view) LatestSnapshot(_ context.Context, ssn int, throughYear int) (*ledger.BalanceSnapshot, error) {
	var best *ledger.BalanceSnapshot
	for _, s := range v.st().snapshots[ssn] {
		if s.ProfitYear <= throughYear && (best == nil || s.ProfitYear > best.ProfitYear) {
			out := s
			best = &out
		}
	}
	return best, nil
}

func (v *view) SaveSnapshot(_ context.Context, s ledger.BalanceSnapshot) error {
	if v.readOnly {
		return errReadOnly
	}
	list := v.st().snapshots[s.SSN]
	for i := range list {
		if list[i].ProfitYear == s.ProfitYear {
			list[i] = s
			return nil
		}
	}
	v.st().snapshots[s.SSN] = append(list, s)
	return nil
}

func (v *view) withContact(b ledger.Beneficiary) ledger.Beneficiary {
	if c, ok := v.st().contacts[b.ContactID]; ok {
		b.Contact = &c
	}
	return b
}

func (v *view) Beneficiary(_ context.Context, badge, psnSuffix int) (*ledger.Beneficiary, error) {
	for _, b := range v.st().beneficiaries {
		if b.BadgeNumber == badge && b.PsnSuffix == psnSuffix {
			out := v.withContact(b)
			return &out, nil
		}
	}
	return nil, nil
}

func (v *view) Beneficiaries(_ context.Context, badge int) ([]ledger.Beneficiary, error) {
	var out []ledger.Beneficiary
	for _, b := range v.st().beneficiaries {
		if b.BadgeNumber == badge {
			out = append(out, v.withContact(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PsnSuffix < out[j].PsnSuffix })
	return out, nil
}

func (v *view) MaxPsnSuffix(_ context.Context, badge, lo, hi int) (int, bool, error) {
	best, found := 0, false
	for _, b := range v.st().beneficiaries {
		if b.BadgeNumber != badge || b.PsnSuffix <= lo || b.PsnSuffix >= hi {
			continue
		}
		if !found || b.PsnSuffix > best {
			best, found = b.PsnSuffix, true
		}
	}
	return best, found, nil
}

func (v *view) ContactBySSN(_ context.Context, ssn int) (*ledger.Contact, error) {
	for _, c := range v.st().contacts {
		if c.SSN == ssn {
			out := c
			return &out, nil
		}
	}
	return nil, nil
}

func (v *view) CreateContact(_ context.Context, c *ledger.Contact) error {
	if v.readOnly {
		return errReadOnly
	}
	c.ID = v.st().nextID()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = v.m.now()
	}
	v.st().contacts[c.ID] = *c
	return nil
}

func (v *view) CreateBeneficiary(_ context.Context, b *ledger.Beneficiary) error {
	if v.readOnly {
		return errReadOnly
	}
	for _, existing := range v.st().beneficiaries {
		if existing.BadgeNumber == b.BadgeNumber && existing.PsnSuffix == b.PsnSuffix {
			return ledger.ErrConcurrentModification
		}
	}
	b.ID = v.st().nextID()
	b.Version = 1
	stored := *b
	stored.Contact = nil
	v.st().beneficiaries = append(v.st().beneficiaries, stored)
	return nil
}

func (v *view) UpdateBeneficiary(_ context.Context, b *ledger.Beneficiary) error {
	if v.readOnly {
		return errReadOnly
	}
	list := v.st().beneficiaries
	for i := range list {
		if list[i].ID != b.ID {
			continue
		}
		if list[i].Version != b.Version {
			return ledger.ErrConcurrentModification
		}
		list[i].Relationship = b.Relationship
		list[i].Kind = b.Kind
		list[i].Percent = b.Percent
		list[i].Version++
		b.Version = list[i].Version
		return nil
	}
	return ledger.ErrConcurrentModification
}

func (v *view) DeleteBeneficiary(_ context.Context, id int64) error {
	if v.readOnly {
		return errReadOnly
	}
	list := v.st().beneficiaries
	for i := range list {
		if list[i].ID == id {
			v.st().beneficiaries = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return ledger.ErrNotFound
}

func (v *view) BeneficiariesByContact(_ context.Context, contactID int64) ([]ledger.Beneficiary, error) {
	var out []ledger.Beneficiary
	for _, b := range v.st().beneficiaries {
		if b.ContactID == contactID {
			out = append(out, v.withContact(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *view) Contact(_ context.Context, id int64) (*ledger.Contact, error) {
	c, ok := v.st().contacts[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (v *view) DeleteContact(_ context.Context, id int64) error {
	if v.readOnly {
		return errReadOnly
	}
	if _, ok := v.st().contacts[id]; !ok {
		return ledger.ErrNotFound
	}
	for _, b := range v.st().beneficiaries {
		if b.ContactID == id {
			return fmt.Errorf("memory store: contact %d still referenced by beneficiary %d", id, b.ID)
		}
	}
	delete(v.st().contacts, id)
	return nil
}

func (v *view) VestingSchedule(_ context.Context, id int) (*ledger.VestingSchedule, error) {
	s, ok := v.st().schedules[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (v *view) VestingBreakpoints(_ context.Context, scheduleID int) ([]ledger.Breakpoint, error) {
	out := append([]ledger.Breakpoint(nil), v.st().breakpoints[scheduleID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].YearsOfService < out[j].YearsOfService })
	return out, nil
}

func (v *view) SaveVestingSchedule(_ context.Context, s ledger.VestingSchedule, points []ledger.Breakpoint) error {
	if v.readOnly {
		return errReadOnly
	}
	v.st().schedules[s.ID] = s
	v.st().breakpoints[s.ID] = append([]ledger.Breakpoint(nil), points...)
	return nil
}
