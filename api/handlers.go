/*
handlers.go - HTTP API handlers for the profit-sharing ledger

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine services.

ENDPOINTS:
  Members:
    GET    /api/members/{badge}/balance?year=             Vesting-aware balance
    GET    /api/members/{badge}/entries?year=             Ledger history

  Beneficiaries:
    GET    /api/members/{badge}/beneficiaries             List slices
    POST   /api/members/{badge}/beneficiaries             Create slice
    GET    /api/members/{badge}/beneficiaries/{suffix}/balance?year=

  Disbursements:
    POST   /api/members/{badge}/disbursements             Split funds

  Vesting:
    GET    /api/vesting/{schedule}/percent?years=         Lookup
    GET    /api/vesting/new-plan-year                     Effective year
    POST   /api/admin/vesting/invalidate                  Bump cache version

  Scenarios:
    GET    /api/scenarios                                 List demo scenarios
    POST   /api/scenarios/load                            Load a demo scenario

ERROR HANDLING:
  - 400: Malformed input
  - 404: Member or beneficiary not found
  - 409: Conflict that survived retries, or a resubmitted request_id
  - 422: Business rule violation, with the rule code in "code"
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/profit-ledger/beneficiary"
	"github.com/warp/profit-ledger/disbursement"
	"github.com/warp/profit-ledger/inquiry"
	"github.com/warp/profit-ledger/ledger"
	"github.com/warp/profit-ledger/vesting"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Resetter wipes storage before a scenario is loaded.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Deps are the services a Handler serves.
type Deps struct {
	UoW      ledger.UnitOfWork
	Store    Resetter
	Vesting  *vesting.Cache
	Registry *beneficiary.Registry
	Alloc    *disbursement.Allocator
	Inquiry  *inquiry.Service
	Log      *zap.Logger
	// Now defaults to time.Now. It picks the default profit year.
	Now func() time.Time
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Deps

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler.
func NewHandler(deps Deps) *Handler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Handler{Deps: deps}
}

// =============================================================================
// MEMBER HANDLERS
// =============================================================================

// GetMemberBalance returns the vesting-aware balance of an employee.
func (h *Handler) GetMemberBalance(w http.ResponseWriter, r *http.Request) {
	badge, ok := h.badgeParam(w, r)
	if !ok {
		return
	}
	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}

	bal, err := h.Inquiry.MemberBalance(r.Context(), badge, year)
	if err != nil {
		h.writeDomainError(w, "Failed to get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(bal))
}

// GetEntries returns an employee's ledger entries through a profit year.
func (h *Handler) GetEntries(w http.ResponseWriter, r *http.Request) {
	badge, ok := h.badgeParam(w, r)
	if !ok {
		return
	}
	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	var entries []ledger.Entry
	err := h.UoW.Read(ctx, func(tx ledger.Tx) error {
		m, err := tx.MemberByBadge(ctx, badge)
		if err != nil {
			return err
		}
		if m == nil {
			return ledger.ErrNotFound
		}
		entries, err = tx.Entries(ctx, m.SSN, year)
		return err
	})
	if err != nil {
		h.writeDomainError(w, "Failed to get entries", err)
		return
	}

	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// BENEFICIARY HANDLERS
// =============================================================================

// ListBeneficiaries returns every slice under a badge.
func (h *Handler) ListBeneficiaries(w http.ResponseWriter, r *http.Request) {
	badge, ok := h.badgeParam(w, r)
	if !ok {
		return
	}
	list, err := h.Registry.List(r.Context(), badge)
	if err != nil {
		h.writeDomainError(w, "Failed to list beneficiaries", err)
		return
	}
	dtos := make([]BeneficiaryDTO, len(list))
	for i, b := range list {
		dtos[i] = toBeneficiaryDTO(b)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateBeneficiary adds a slice under a badge.
func (h *Handler) CreateBeneficiary(w http.ResponseWriter, r *http.Request) {
	badge, ok := h.badgeParam(w, r)
	if !ok {
		return
	}
	var req CreateBeneficiaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	contact := ledger.Contact{
		SSN:        req.SSN,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		MiddleName: req.MiddleName,
		Street:     req.Street,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Phone:      req.Phone,
		Email:      req.Email,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date_of_birth format (use YYYY-MM-DD)", err)
			return
		}
		contact.DateOfBirth = dob
	}

	created, err := h.Registry.CreateBeneficiary(r.Context(), beneficiary.Request{
		EmployeeBadgeNumber: badge,
		FirstLevel:          req.FirstLevel,
		SecondLevel:         req.SecondLevel,
		ThirdLevel:          req.ThirdLevel,
		Contact:             contact,
		Relationship:        req.Relationship,
		Kind:                ledger.BeneficiaryKind(req.Kind),
		Percentage:          req.Percentage,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to create beneficiary", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCreatedDTO(created))
}

// GetBeneficiaryBalance returns the balance of one slice.
func (h *Handler) GetBeneficiaryBalance(w http.ResponseWriter, r *http.Request) {
	badge, ok := h.badgeParam(w, r)
	if !ok {
		return
	}
	suffix, err := strconv.Atoi(chi.URLParam(r, "suffix"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid psn suffix", err)
		return
	}
	year, ok := h.yearParam(w, r)
	if !ok {
		return
	}

	bal, err := h.Inquiry.BeneficiaryBalance(r.Context(), badge, suffix, year)
	if err != nil {
		h.writeDomainError(w, "Failed to get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(bal))
}

// UpdateBeneficiary changes a slice's relationship or percentage.
func (h *Handler) UpdateBeneficiary(w http.ResponseWriter, r *http.Request) {
	badge, suffix, ok := h.sliceParams(w, r)
	if !ok {
		return
	}
	var req UpdateBeneficiaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	b, err := h.Registry.Update(r.Context(), beneficiary.UpdateRequest{
		BadgeNumber:  badge,
		PsnSuffix:    suffix,
		Relationship: req.Relationship,
		Percentage:   req.Percentage,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to update beneficiary", err)
		return
	}
	writeJSON(w, http.StatusOK, toBeneficiaryDTO(*b))
}

// DeleteBeneficiary removes a slice with no balance left.
func (h *Handler) DeleteBeneficiary(w http.ResponseWriter, r *http.Request) {
	badge, suffix, ok := h.sliceParams(w, r)
	if !ok {
		return
	}
	contactDeleted, err := h.Registry.Delete(r.Context(), badge, suffix)
	if err != nil {
		h.writeDomainError(w, "Failed to delete beneficiary", err)
		return
	}
	writeJSON(w, http.StatusOK, BeneficiaryDeletedDTO{ContactDeleted: contactDeleted})
}

// DeleteContact removes a beneficiary contact and its only slice.
func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contact id", err)
		return
	}
	if err := h.Registry.DeleteContact(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete contact", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// DISBURSEMENT HANDLERS
// =============================================================================

// Disburse splits a badge's funds across its beneficiaries.
func (h *Handler) Disburse(w http.ResponseWriter, r *http.Request) {
	badge, ok := h.badgeParam(w, r)
	if !ok {
		return
	}
	var req DisburseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	res, err := h.Alloc.DisburseFundsToBeneficiaries(r.Context(), disbursement.Request{
		BadgeNumber: badge,
		PsnSuffix:   req.PsnSuffix,
		IsDeceased:  req.IsDeceased,
		Shares:      toShares(req.Beneficiaries),
		RequestID:   req.RequestID,
	})
	if err != nil {
		h.writeDomainError(w, "Disbursement failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDisbursementDTO(res))
}

// =============================================================================
// VESTING HANDLERS
// =============================================================================

// GetVestingPercent looks up a schedule's percent for years of service.
func (h *Handler) GetVestingPercent(w http.ResponseWriter, r *http.Request) {
	schedule, err := strconv.Atoi(chi.URLParam(r, "schedule"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid schedule id", err)
		return
	}
	years, err := strconv.Atoi(r.URL.Query().Get("years"))
	if err != nil || years < 0 {
		writeError(w, http.StatusBadRequest, "years must be a non-negative integer", err)
		return
	}

	pct, err := h.Vesting.GetVestingPercent(r.Context(), schedule, years)
	if err != nil {
		h.writeDomainError(w, "Vesting lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, VestingPercentDTO{ScheduleID: schedule, YearsOfService: years, Percent: pct.String()})
}

// GetNewPlanEffectiveYear returns the year the new plan took effect.
func (h *Handler) GetNewPlanEffectiveYear(w http.ResponseWriter, r *http.Request) {
	year, err := h.Vesting.GetNewPlanEffectiveYear(r.Context())
	if err != nil {
		h.writeDomainError(w, "Vesting lookup failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"year": year})
}

// InvalidateVesting bumps the vesting cache version.
func (h *Handler) InvalidateVesting(w http.ResponseWriter, r *http.Request) {
	v, err := h.Vesting.Invalidate(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Cache unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"version": v})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) badgeParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	badge, err := strconv.Atoi(chi.URLParam(r, "badge"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid badge number", err)
		return 0, false
	}
	return badge, true
}

func (h *Handler) sliceParams(w http.ResponseWriter, r *http.Request) (badge, suffix int, ok bool) {
	if badge, ok = h.badgeParam(w, r); !ok {
		return 0, 0, false
	}
	suffix, err := strconv.Atoi(chi.URLParam(r, "suffix"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid psn suffix", err)
		return 0, 0, false
	}
	return badge, suffix, true
}

// yearParam reads ?year=, defaulting to the current calendar year.
func (h *Handler) yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return h.Now().Year(), true
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return 0, false
	}
	return year, true
}

// writeDomainError maps engine errors to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	var rule *ledger.RuleError
	switch {
	case errors.As(err, &rule):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: rule.Message(),
			Code:  string(rule.Code),
		})
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", nil)
	case errors.Is(err, ledger.ErrDuplicateIdempotencyKey):
		writeError(w, http.StatusConflict, "Request already processed", err)
	case errors.Is(err, ledger.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "Concurrent modification, try again", err)
	default:
		h.Log.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
