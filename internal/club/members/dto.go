package members

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusActive  = "AKTIV"
	StatusPassive = "PASSIV"
	StatusLeft    = "AUSGETRETEN"

	PeriodMonthly   = "MONATLICH"
	PeriodQuarterly = "QUARTALSWEISE"
	PeriodYearly    = "JAEHRLICH"
)

func validStatus(s string) bool {
	return s == StatusActive || s == StatusPassive || s == StatusLeft
}

func validPeriod(s string) bool {
	return s == PeriodMonthly || s == PeriodQuarterly || s == PeriodYearly
}

// ===== Requests =====

type CreateMemberRequest struct {
	AssociationID int64            `json:"association_id" binding:"required"`
	MemberNumber  *string          `json:"member_number,omitempty"`
	FirstName     string           `json:"first_name" binding:"required"`
	LastName      string           `json:"last_name" binding:"required"`
	Email         *string          `json:"email,omitempty"`
	Phone         *string          `json:"phone,omitempty"`
	BirthDate     *string          `json:"birth_date,omitempty"`
	JoinedOn      *string          `json:"joined_on,omitempty"`
	LeftOn        *string          `json:"left_on,omitempty"`
	Status        *string          `json:"status,omitempty"`
	FeeAmount     *decimal.Decimal `json:"fee_amount,omitempty"`
	FeePeriod     *string          `json:"fee_period,omitempty"`
	Note          *string          `json:"note,omitempty"`
}

type UpdateMemberRequest struct {
	MemberNumber *string          `json:"member_number,omitempty"`
	FirstName    *string          `json:"first_name,omitempty"`
	LastName     *string          `json:"last_name,omitempty"`
	Email        *string          `json:"email,omitempty"`
	Phone        *string          `json:"phone,omitempty"`
	BirthDate    *string          `json:"birth_date,omitempty"`
	JoinedOn     *string          `json:"joined_on,omitempty"`
	LeftOn       *string          `json:"left_on,omitempty"`
	Status       *string          `json:"status,omitempty"`
	FeeAmount    *decimal.Decimal `json:"fee_amount,omitempty"`
	FeePeriod    *string          `json:"fee_period,omitempty"`
	Note         *string          `json:"note,omitempty"`
}

// ===== Responses =====

type MemberResponse struct {
	MemberID      int64            `json:"member_id"`
	AssociationID int64            `json:"association_id"`
	MemberNumber  string           `json:"member_number"`
	FirstName     string           `json:"first_name"`
	LastName      string           `json:"last_name"`
	FullName      string           `json:"full_name"`
	Email         *string          `json:"email,omitempty"`
	Phone         *string          `json:"phone,omitempty"`
	BirthDate     *string          `json:"birth_date,omitempty"`
	JoinedOn      *string          `json:"joined_on,omitempty"`
	LeftOn        *string          `json:"left_on,omitempty"`
	Status        string           `json:"status"`
	FeeAmount     *decimal.Decimal `json:"fee_amount,omitempty"`
	FeePeriod     *string          `json:"fee_period,omitempty"`
	Note          *string          `json:"note,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     *time.Time       `json:"updated_at,omitempty"`
}

type SearchQuery struct {
	AssociationID *int64
	Status        *string
	Q             *string // name, number or email
}
