/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's types from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Money goes out as fixed two-decimal strings ("1000.00") plus a display
  string where useful ("$1,000.00"). Amounts and percentages come in as
  JSON strings or numbers; both decode into decimal.Decimal.

SSN:
  Never returned in full. maskSSN keeps the last four digits.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/profit-ledger/beneficiary"
	"github.com/warp/profit-ledger/disbursement"
	"github.com/warp/profit-ledger/inquiry"
	"github.com/warp/profit-ledger/ledger"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// BalanceDTO is a vesting-aware balance.
type BalanceDTO struct {
	BadgeNumber       int    `json:"badge_number"`
	PsnSuffix         int    `json:"psn_suffix,omitempty"`
	SSN               string `json:"ssn"`
	ProfitYear        int    `json:"profit_year"`
	Total             string `json:"total"`
	TotalDisplay      string `json:"total_display"`
	Etva              string `json:"etva"`
	Distributions     string `json:"distributions"`
	Contributions     string `json:"contributions"`
	Earnings          string `json:"earnings"`
	Forfeitures       string `json:"forfeitures"`
	YearsInPlan       int    `json:"years_in_plan"`
	VestingScheduleID int    `json:"vesting_schedule_id,omitempty"`
	VestingPercent    string `json:"vesting_percent"`
	VestedBalance     string `json:"vested_balance"`
	VestedDisplay     string `json:"vested_display"`
}

// EntryDTO is one ledger entry.
type EntryDTO struct {
	ID           int64  `json:"id"`
	ProfitYear   int    `json:"profit_year"`
	ProfitCode   int    `json:"profit_code"`
	CodeName     string `json:"code_name"`
	Contribution string `json:"contribution"`
	Earnings     string `json:"earnings"`
	Forfeiture   string `json:"forfeiture"`
	Delta        string `json:"delta"`
	CommentType  string `json:"comment_type,omitempty"`
	Remark       string `json:"remark,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// CreateBeneficiaryRequest is the request to add a beneficiary to a badge.
type CreateBeneficiaryRequest struct {
	FirstLevel  *int `json:"first_level,omitempty"`
	SecondLevel *int `json:"second_level,omitempty"`
	ThirdLevel  *int `json:"third_level,omitempty"`

	SSN         int    `json:"ssn"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	MiddleName  string `json:"middle_name,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"` // YYYY-MM-DD
	Street      string `json:"street,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`

	Relationship string          `json:"relationship"`
	Kind         string          `json:"kind,omitempty"` // "P" or "S"
	Percentage   decimal.Decimal `json:"percentage"`
}

// BeneficiaryCreatedDTO is returned after creating a beneficiary.
type BeneficiaryCreatedDTO struct {
	BeneficiaryID  int64 `json:"beneficiary_id"`
	PsnSuffix      int   `json:"psn_suffix"`
	ContactID      int64 `json:"contact_id"`
	ContactExisted bool  `json:"contact_existed"`
}

// BeneficiaryDTO is one beneficiary slice of a badge.
type BeneficiaryDTO struct {
	ID           int64  `json:"id"`
	BadgeNumber  int    `json:"badge_number"`
	PsnSuffix    int    `json:"psn_suffix"`
	Name         string `json:"name"`
	SSN          string `json:"ssn"`
	Relationship string `json:"relationship,omitempty"`
	Kind         string `json:"kind"`
	Percentage   string `json:"percentage"`
}

// UpdateBeneficiaryRequest changes a slice. Omitted fields are kept.
type UpdateBeneficiaryRequest struct {
	Relationship string           `json:"relationship,omitempty"`
	Percentage   *decimal.Decimal `json:"percentage,omitempty"`
}

// BeneficiaryDeletedDTO is returned after removing a slice.
type BeneficiaryDeletedDTO struct {
	ContactDeleted bool `json:"contact_deleted"`
}

// ShareDTO is one beneficiary's portion of a disbursement.
type ShareDTO struct {
	PsnSuffix  int              `json:"psn_suffix"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
}

// DisburseRequest is the request to disburse a badge's funds.
type DisburseRequest struct {
	PsnSuffix     *int       `json:"psn_suffix,omitempty"`
	IsDeceased    bool       `json:"is_deceased"`
	RequestID     string     `json:"request_id,omitempty"`
	Beneficiaries []ShareDTO `json:"beneficiaries"`
}

// DisbursementDTO is returned after a committed disbursement.
type DisbursementDTO struct {
	RequestID      string  `json:"request_id"`
	ProfitYear     int     `json:"profit_year"`
	Balance        string  `json:"balance"`
	TotalDisbursed string  `json:"total_disbursed"`
	EntryIDs       []int64 `json:"entry_ids"`
}

// VestingPercentDTO is a single vesting lookup.
type VestingPercentDTO struct {
	ScheduleID     int    `json:"schedule_id"`
	YearsOfService int    `json:"years_of_service"`
	Percent        string `json:"percent"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func money2(d decimal.Decimal) string { return d.StringFixed(2) }

// maskSSN renders 123456789 as "***-**-6789".
func maskSSN(ssn int) string {
	return fmt.Sprintf("***-**-%04d", ssn%10000)
}

func toBalanceDTO(b *inquiry.Balance) BalanceDTO {
	return BalanceDTO{
		BadgeNumber:       b.BadgeNumber,
		PsnSuffix:         b.PsnSuffix,
		SSN:               maskSSN(b.SSN),
		ProfitYear:        b.ProfitYear,
		Total:             money2(b.Total),
		TotalDisplay:      ledger.FormatUSD(b.Total),
		Etva:              money2(b.Etva),
		Distributions:     money2(b.Distributions),
		Contributions:     money2(b.Contributions),
		Earnings:          money2(b.Earnings),
		Forfeitures:       money2(b.Forfeitures),
		YearsInPlan:       b.YearsInPlan,
		VestingScheduleID: b.VestingScheduleID,
		VestingPercent:    b.VestingPercent.String(),
		VestedBalance:     money2(b.Vested),
		VestedDisplay:     ledger.FormatUSD(b.Vested),
	}
}

func toEntryDTO(e ledger.Entry) EntryDTO {
	dto := EntryDTO{
		ID:           int64(e.ID),
		ProfitYear:   e.ProfitYear,
		ProfitCode:   int(e.ProfitCode),
		CodeName:     e.ProfitCode.String(),
		Contribution: money2(e.Contribution),
		Earnings:     money2(e.Earnings),
		Forfeiture:   money2(e.Forfeiture),
		Delta:        money2(ledger.BalanceDelta(e)),
		Remark:       e.Remark,
	}
	if e.CommentType != ledger.CommentNone {
		dto.CommentType = e.CommentType.String()
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return dto
}

func toBeneficiaryDTO(b ledger.Beneficiary) BeneficiaryDTO {
	dto := BeneficiaryDTO{
		ID:           b.ID,
		BadgeNumber:  b.BadgeNumber,
		PsnSuffix:    b.PsnSuffix,
		Relationship: b.Relationship,
		Kind:         string(b.Kind),
		Percentage:   b.Percent.String(),
	}
	if b.Contact != nil {
		dto.Name = b.Contact.FirstName + " " + b.Contact.LastName
		dto.SSN = maskSSN(b.Contact.SSN)
	}
	return dto
}

func toCreatedDTO(c *beneficiary.Created) BeneficiaryCreatedDTO {
	return BeneficiaryCreatedDTO{
		BeneficiaryID:  c.BeneficiaryID,
		PsnSuffix:      c.PsnSuffix,
		ContactID:      c.ContactID,
		ContactExisted: c.ContactExisted,
	}
}

func toDisbursementDTO(r *disbursement.Result) DisbursementDTO {
	ids := make([]int64, len(r.EntryIDs))
	for i, id := range r.EntryIDs {
		ids[i] = int64(id)
	}
	return DisbursementDTO{
		RequestID:      r.RequestID,
		ProfitYear:     r.ProfitYear,
		Balance:        money2(r.Balance),
		TotalDisbursed: money2(r.TotalDisbursed),
		EntryIDs:       ids,
	}
}

func toShares(in []ShareDTO) []disbursement.Share {
	out := make([]disbursement.Share, len(in))
	for i, s := range in {
		out[i] = disbursement.Share{PsnSuffix: s.PsnSuffix, Percentage: s.Percentage, Amount: s.Amount}
	}
	return out
}
