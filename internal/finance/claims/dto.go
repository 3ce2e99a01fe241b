package claims

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusOpen      = "OFFEN"
	StatusPaid      = "BEZAHLT"
	StatusCancelled = "STORNIERT"

	TypeFee    = "BEITRAG"
	TypeEvent  = "VERANSTALTUNG"
	TypeCharge = "GEBUEHR"
	TypeOther  = "SONSTIGES"
)

func validType(t string) bool {
	switch t {
	case TypeFee, TypeEvent, TypeCharge, TypeOther:
		return true
	}
	return false
}

// ===== Requests =====

type CreateClaimRequest struct {
	AssociationID int64           `json:"association_id" binding:"required"`
	MemberID      int64           `json:"member_id" binding:"required"`
	ClaimNumber   *string         `json:"claim_number,omitempty"`
	ClaimType     *string         `json:"claim_type,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      *string         `json:"currency,omitempty"`
	DueDate       string          `json:"due_date" binding:"required"` // YYYY-MM-DD
	PeriodYear    *int            `json:"period_year,omitempty"`
	PeriodQuarter *int            `json:"period_quarter,omitempty"`
	PeriodMonth   *int            `json:"period_month,omitempty"`
	Description   *string         `json:"description,omitempty"`
}

type UpdateClaimRequest struct {
	ClaimType     *string          `json:"claim_type,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	DueDate       *string          `json:"due_date,omitempty"`
	PeriodYear    *int             `json:"period_year,omitempty"`
	PeriodQuarter *int             `json:"period_quarter,omitempty"`
	PeriodMonth   *int             `json:"period_month,omitempty"`
	Description   *string          `json:"description,omitempty"`
}

// BatchRequest drives a fee run (Beitragslauf) over the active members of an
// association.
type BatchRequest struct {
	AssociationID int64            `json:"association_id" binding:"required"`
	Year          int              `json:"year" binding:"required"`
	Quarter       *int             `json:"quarter,omitempty"`
	Month         *int             `json:"month,omitempty"`
	ClaimType     *string          `json:"claim_type,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"` // default: member fee
	DueDate       string           `json:"due_date" binding:"required"`
	Description   *string          `json:"description,omitempty"`
	MemberIDs     []int64          `json:"member_ids,omitempty"` // default: all active members
}

// ===== Responses =====

type AllocationResponse struct {
	AllocationID int64           `json:"allocation_id"`
	PaymentID    int64           `json:"payment_id"`
	PaymentRef   string          `json:"payment_ref"`
	Amount       decimal.Decimal `json:"amount"`
	PaidOn       string          `json:"paid_on"`
	CreatedAt    time.Time       `json:"created_at"`
}

type ClaimResponse struct {
	ClaimID         int64                `json:"claim_id"`
	AssociationID   int64                `json:"association_id"`
	MemberID        int64                `json:"member_id"`
	MemberNumber    string               `json:"member_number"`
	MemberName      string               `json:"member_name"`
	ClaimNumber     string               `json:"claim_number"`
	ClaimType       string               `json:"claim_type"`
	Amount          decimal.Decimal      `json:"amount"`
	Currency        string               `json:"currency"`
	DueDate         string               `json:"due_date"`
	Status          string               `json:"status"`
	State           string               `json:"state"` // derived: OFFEN, TEILBEZAHLT, BEZAHLT, STORNIERT
	PaidAmount      decimal.Decimal      `json:"paid_amount"`
	RemainingAmount decimal.Decimal      `json:"remaining_amount"`
	Overdue         bool                 `json:"overdue"`
	PeriodYear      *int                 `json:"period_year,omitempty"`
	PeriodQuarter   *int                 `json:"period_quarter,omitempty"`
	PeriodMonth     *int                 `json:"period_month,omitempty"`
	Description     *string              `json:"description,omitempty"`
	PaidAt          *time.Time           `json:"paid_at,omitempty"`
	Allocations     []AllocationResponse `json:"allocations,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	CreatedBy       *string              `json:"created_by,omitempty"`
	UpdatedAt       *time.Time           `json:"updated_at,omitempty"`
}

type BatchItem struct {
	MemberID     int64   `json:"member_id"`
	MemberNumber string  `json:"member_number"`
	Result       string  `json:"result"` // Created, Skipped, Failed
	ClaimID      *int64  `json:"claim_id,omitempty"`
	Message      *string `json:"message,omitempty"`
}

type BatchResult struct {
	Created int         `json:"created"`
	Skipped int         `json:"skipped"`
	Failed  int         `json:"failed"`
	Items   []BatchItem `json:"items"`
}

type SearchQuery struct {
	AssociationID *int64
	MemberID      *int64
	Status        *string // stored status or TEILBEZAHLT
	ClaimType     *string
	Year          *int
	Overdue       bool
}
