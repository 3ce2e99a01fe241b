package payments

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"verein-backend/internal/finance/allocation"
	"verein-backend/internal/platform/db"
)

// Payment is one row of payments with its totals from v_payment_totals.
type Payment struct {
	PaymentID         int64
	PaymentRef        string
	AssociationID     int64
	MemberID          int64
	ClaimID           sql.NullInt64
	PaymentType       string
	Amount            decimal.Decimal
	Currency          string
	PaidOn            time.Time
	Method            string
	BankAccountID     sql.NullInt64
	BankTransactionID sql.NullInt64
	Reference         sql.NullString
	Note              sql.NullString
	Status            string
	CreatedAt         time.Time
	CreatedBy         sql.NullString

	// joined
	MemberNumber string
	MemberName   string
	Allocated    decimal.Decimal
	Credit       decimal.Decimal
}

// Free is the part of the payment that is neither allocated nor held as credit.
func (p *Payment) Free() decimal.Decimal {
	f := p.Amount.Sub(p.Allocated).Sub(p.Credit)
	if f.IsNegative() {
		return decimal.Zero
	}
	return f
}

type AllocationRow struct {
	AllocationID int64
	ClaimID      int64
	ClaimNumber  string
	DueDate      time.Time
	Amount       decimal.Decimal
	CreatedAt    time.Time
}

func (p *Payment) toResponse() PaymentResponse {
	return PaymentResponse{
		PaymentID:         p.PaymentID,
		PaymentRef:        p.PaymentRef,
		AssociationID:     p.AssociationID,
		MemberID:          p.MemberID,
		MemberNumber:      p.MemberNumber,
		MemberName:        p.MemberName,
		ClaimID:           db.Int64Ptr(p.ClaimID),
		PaymentType:       p.PaymentType,
		Currency:          p.Currency,
		PaidOn:            p.PaidOn.Format("2006-01-02"),
		Method:            p.Method,
		BankAccountID:     db.Int64Ptr(p.BankAccountID),
		BankTransactionID: db.Int64Ptr(p.BankTransactionID),
		Reference:         db.StringPtr(p.Reference),
		Note:              db.StringPtr(p.Note),
		Status:            p.Status,
		Amount:            p.Amount,
		Summary:           allocation.Summarize(p.Amount, p.Allocated),
		CreditAmount:      p.Credit,
		FreeAmount:        p.Free(),
		CreatedAt:         p.CreatedAt,
		CreatedBy:         db.StringPtr(p.CreatedBy),
	}
}

func (a *AllocationRow) toLine() AllocationLine {
	return AllocationLine{
		AllocationID: a.AllocationID,
		ClaimID:      a.ClaimID,
		ClaimNumber:  a.ClaimNumber,
		DueDate:      a.DueDate.Format("2006-01-02"),
		Amount:       a.Amount,
		CreatedAt:    a.CreatedAt,
	}
}
