package claims

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"verein-backend/internal/finance/allocation"
	"verein-backend/internal/platform/db"
)

// Claim is one row of claims (MitgliedForderung) joined with its allocation
// totals from v_claim_totals.
type Claim struct {
	ClaimID       int64
	AssociationID int64
	MemberID      int64
	ClaimNumber   string
	ClaimType     string
	Amount        decimal.Decimal
	Currency      string
	DueDate       time.Time
	Status        string
	PeriodYear    sql.NullInt32
	PeriodQuarter sql.NullInt32
	PeriodMonth   sql.NullInt32
	Description   sql.NullString
	PaidAt        sql.NullTime
	CreatedAt     time.Time
	CreatedBy     sql.NullString
	UpdatedAt     sql.NullTime

	// joined
	MemberNumber    string
	MemberName      string
	Paid            decimal.Decimal
	AllocationCount int64
}

type Allocation struct {
	AllocationID int64
	PaymentID    int64
	PaymentRef   string
	Amount       decimal.Decimal
	PaidOn       time.Time
	CreatedAt    time.Time
}

func (c *Claim) toResponse(today time.Time) ClaimResponse {
	cancelled := c.Status == StatusCancelled
	remaining := c.Amount.Sub(c.Paid)
	if remaining.IsNegative() || cancelled {
		remaining = decimal.Zero
	}
	state := allocation.ClaimState(c.Amount, c.Paid, cancelled)
	return ClaimResponse{
		ClaimID:         c.ClaimID,
		AssociationID:   c.AssociationID,
		MemberID:        c.MemberID,
		MemberNumber:    c.MemberNumber,
		MemberName:      c.MemberName,
		ClaimNumber:     c.ClaimNumber,
		ClaimType:       c.ClaimType,
		Amount:          c.Amount,
		Currency:        c.Currency,
		DueDate:         c.DueDate.Format("2006-01-02"),
		Status:          c.Status,
		State:           string(state),
		PaidAmount:      c.Paid,
		RemainingAmount: remaining,
		Overdue:         remaining.IsPositive() && c.DueDate.Before(today),
		PeriodYear:      db.IntPtr(c.PeriodYear),
		PeriodQuarter:   db.IntPtr(c.PeriodQuarter),
		PeriodMonth:     db.IntPtr(c.PeriodMonth),
		Description:     db.StringPtr(c.Description),
		PaidAt:          db.TimePtr(c.PaidAt),
		CreatedAt:       c.CreatedAt,
		CreatedBy:       db.StringPtr(c.CreatedBy),
		UpdatedAt:       db.TimePtr(c.UpdatedAt),
	}
}

func (a *Allocation) toResponse() AllocationResponse {
	return AllocationResponse{
		AllocationID: a.AllocationID,
		PaymentID:    a.PaymentID,
		PaymentRef:   a.PaymentRef,
		Amount:       a.Amount,
		PaidOn:       a.PaidOn.Format("2006-01-02"),
		CreatedAt:    a.CreatedAt,
	}
}
