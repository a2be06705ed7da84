/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate storage with realistic data
	for demos and integration tests. Each scenario creates members, ledger
	history, vesting schedules and beneficiaries that exercise one flow.

AVAILABLE SCENARIOS:

	deceased-member:  Deceased employee with two beneficiaries (60/40)
	qdro-split:       Living employee, alternate payee who is also an employee
	vesting-ladder:   Three employees at different years of service

HOW SCENARIOS WORK:
 1. Reset storage (clear all data)
 2. Seed vesting schedules
 3. Create members, PayProfit rows and ledger history
 4. Register beneficiaries through the registry
 5. Bump the vesting cache version so cached lookups are recomputed

Ledger history is posted in earlier profit years so it counts toward the
current year's balance.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "deceased-member"}

NOTE:

	Scenarios reset storage. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler dependencies
  - cmd/psctl: "seed" subcommand
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/profit-ledger/beneficiary"
	"github.com/warp/profit-ledger/ledger"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "deceased-member",
		Name:        "Deceased Member",
		Description: "Deceased employee (badge 700100) with two beneficiaries at 60% and 40%",
	},
	{
		ID:          "qdro-split",
		Name:        "QDRO Split",
		Description: "Living employee (badge 700200) whose alternate payee is also an employee (badge 700300)",
	},
	{
		ID:          "vesting-ladder",
		Name:        "Vesting Ladder",
		Description: "Employees 700401-700403 at 1, 4 and 7 years of service on the new plan",
	},
}

// Scenarios returns the available scenarios.
func Scenarios() []ScenarioDTO { return scenarios }

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Load(r.Context(), req.ScenarioID); err != nil {
		if errors.Is(err, errUnknownScenario) {
			writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

var errUnknownScenario = errors.New("unknown scenario")

// Load resets storage and seeds the scenario with the given id.
func (h *Handler) Load(ctx context.Context, id string) error {
	var load func(context.Context) error
	switch id {
	case "deceased-member":
		load = h.loadDeceasedMemberScenario
	case "qdro-split":
		load = h.loadQdroSplitScenario
	case "vesting-ladder":
		load = h.loadVestingLadderScenario
	default:
		return errUnknownScenario
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	h.currentScenario = ""

	if err := h.seedSchedules(ctx); err != nil {
		return err
	}
	if err := load(ctx); err != nil {
		return err
	}
	if _, err := h.Vesting.Invalidate(ctx); err != nil {
		h.Log.Warn("vesting cache not invalidated after scenario load", zap.String("scenario", id), zap.Error(err))
	}

	h.currentScenario = id
	h.Log.Info("scenario loaded", zap.String("scenario", id))
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func pct(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seedSchedules stores the graded old plan and the 2007 new plan.
func (h *Handler) seedSchedules(ctx context.Context) error {
	return h.UoW.Write(ctx, func(tx ledger.Tx) error {
		err := tx.SaveVestingSchedule(ctx,
			ledger.VestingSchedule{ID: ledger.ScheduleOldPlan, Name: "Old Plan"},
			[]ledger.Breakpoint{
				{YearsOfService: 0, Percent: pct(0)},
				{YearsOfService: 3, Percent: pct(20)},
				{YearsOfService: 4, Percent: pct(40)},
				{YearsOfService: 5, Percent: pct(60)},
				{YearsOfService: 6, Percent: pct(80)},
				{YearsOfService: 7, Percent: pct(100)},
			})
		if err != nil {
			return err
		}
		return tx.SaveVestingSchedule(ctx,
			ledger.VestingSchedule{
				ID:            ledger.ScheduleNewPlan,
				Name:          "New Plan",
				EffectiveDate: time.Date(2007, time.January, 1, 0, 0, 0, 0, time.UTC),
			},
			[]ledger.Breakpoint{
				{YearsOfService: 0, Percent: pct(0)},
				{YearsOfService: 2, Percent: pct(20)},
				{YearsOfService: 3, Percent: pct(40)},
				{YearsOfService: 4, Percent: pct(60)},
				{YearsOfService: 5, Percent: pct(80)},
				{YearsOfService: 6, Percent: pct(100)},
			})
	})
}

// seedMember stores m, its PayProfit row for the current year and history.
func (h *Handler) seedMember(ctx context.Context, m *ledger.Member, pp ledger.PayProfit, history []ledger.Entry) error {
	return h.UoW.Write(ctx, func(tx ledger.Tx) error {
		if err := tx.SaveMember(ctx, m); err != nil {
			return err
		}
		pp.MemberID = m.ID
		pp.ProfitYear = h.Now().Year()
		pp.Version = 0
		if err := tx.SavePayProfit(ctx, &pp); err != nil {
			return err
		}
		for i := range history {
			history[i].SSN = m.SSN
			history[i].IdempotencyKey = fmt.Sprintf("seed-%d-%d", m.SSN, i)
		}
		_, err := tx.AppendEntries(ctx, history)
		return err
	})
}

func (h *Handler) addBeneficiary(ctx context.Context, badge int, c ledger.Contact, relationship string, percent int64) error {
	_, err := h.Registry.CreateBeneficiary(ctx, beneficiary.Request{
		EmployeeBadgeNumber: badge,
		Contact:             c,
		Relationship:        relationship,
		Kind:                ledger.KindPrimary,
		Percentage:          pct(percent),
	})
	return err
}

func (h *Handler) loadDeceasedMemberScenario(ctx context.Context) error {
	year := h.Now().Year()
	died := time.Date(year, time.February, 3, 0, 0, 0, 0, time.UTC)

	m := &ledger.Member{
		OracleHcmID:     880100,
		SSN:             100000001,
		BadgeNumber:     700100,
		FirstName:       "Harold",
		LastName:        "Brennan",
		DateOfBirth:     time.Date(1961, time.August, 9, 0, 0, 0, 0, time.UTC),
		TerminationCode: ledger.TerminationDeceased,
		TerminationDate: &died,
	}
	history := []ledger.Entry{
		{ProfitYear: year - 3, ProfitCode: ledger.CodeIncomingContributions, Contribution: amt("2500.00"), Earnings: amt("310.25")},
		{ProfitYear: year - 2, ProfitCode: ledger.CodeIncomingContributions, Contribution: amt("2500.00"), Earnings: amt("640.25")},
		{ProfitYear: year - 1, ProfitCode: ledger.CodeIncoming100PercentVestedEarnings, Earnings: amt("200.00")},
		{ProfitYear: year - 1, ProfitCode: ledger.CodeOutgoingPaymentsPartialWithdrawal, Forfeiture: amt("150.00")},
	}
	pp := ledger.PayProfit{Etva: amt("200.00"), YearsInPlan: 8, VestingScheduleID: ledger.ScheduleNewPlan}
	if err := h.seedMember(ctx, m, pp, history); err != nil {
		return err
	}

	if err := h.addBeneficiary(ctx, m.BadgeNumber, ledger.Contact{
		SSN: 200000001, FirstName: "Margaret", LastName: "Brennan",
		City: "Andover", State: "MA",
	}, "Spouse", 60); err != nil {
		return err
	}
	return h.addBeneficiary(ctx, m.BadgeNumber, ledger.Contact{
		SSN: 200000002, FirstName: "Owen", LastName: "Brennan",
		City: "Lowell", State: "MA",
	}, "Son", 40)
}

func (h *Handler) loadQdroSplitScenario(ctx context.Context) error {
	year := h.Now().Year()

	payer := &ledger.Member{
		OracleHcmID: 880200,
		SSN:         100000002,
		BadgeNumber: 700200,
		FirstName:   "Dana",
		LastName:    "Costa",
		DateOfBirth: time.Date(1975, time.March, 14, 0, 0, 0, 0, time.UTC),
	}
	if err := h.seedMember(ctx, payer, ledger.PayProfit{
		Etva: amt("500.00"), YearsInPlan: 12, CurrentHoursYear: amt("1840"), VestingScheduleID: ledger.ScheduleNewPlan,
	}, []ledger.Entry{
		{ProfitYear: year - 2, ProfitCode: ledger.CodeIncomingContributions, Contribution: amt("6000.00"), Earnings: amt("1200.00")},
		{ProfitYear: year - 1, ProfitCode: ledger.CodeIncomingContributions, Contribution: amt("2300.00")},
		{ProfitYear: year - 1, ProfitCode: ledger.CodeIncoming100PercentVestedEarnings, Earnings: amt("500.00")},
	}); err != nil {
		return err
	}

	payee := &ledger.Member{
		OracleHcmID: 880300,
		SSN:         100000003,
		BadgeNumber: 700300,
		FirstName:   "Sam",
		LastName:    "Costa",
		DateOfBirth: time.Date(1977, time.June, 2, 0, 0, 0, 0, time.UTC),
	}
	if err := h.seedMember(ctx, payee, ledger.PayProfit{
		YearsInPlan: 3, CurrentHoursYear: amt("1200"), VestingScheduleID: ledger.ScheduleNewPlan,
	}, []ledger.Entry{
		{ProfitYear: year - 1, ProfitCode: ledger.CodeIncomingContributions, Contribution: amt("900.00")},
	}); err != nil {
		return err
	}

	return h.addBeneficiary(ctx, payer.BadgeNumber, ledger.Contact{
		SSN: payee.SSN, FirstName: payee.FirstName, LastName: payee.LastName,
	}, "Former Spouse", 50)
}

func (h *Handler) loadVestingLadderScenario(ctx context.Context) error {
	year := h.Now().Year()
	for i, years := range []int{1, 4, 7} {
		m := &ledger.Member{
			OracleHcmID: int64(880401 + i),
			SSN:         100000401 + i,
			BadgeNumber: 700401 + i,
			FirstName:   fmt.Sprintf("Member%d", i+1),
			LastName:    "Ladder",
			DateOfBirth: time.Date(1985+i, time.January, 1, 0, 0, 0, 0, time.UTC),
		}
		err := h.seedMember(ctx, m, ledger.PayProfit{
			YearsInPlan: years, CurrentHoursYear: amt("1500"), VestingScheduleID: ledger.ScheduleNewPlan,
		}, []ledger.Entry{
			{ProfitYear: year - 1, ProfitCode: ledger.CodeIncomingContributions, Contribution: amt("1000.00")},
		})
		if err != nil {
			return err
		}
	}
	return nil
}
