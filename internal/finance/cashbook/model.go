package cashbook

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/db"
)

type LedgerAccount struct {
	LedgerAccountID int64
	Number          string
	Name            string
	Area            sql.NullString
	Kind            sql.NullString
	MainArea        sql.NullString
	MainAreaName    sql.NullString
	SortOrder       int
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       sql.NullTime
}

func (l *LedgerAccount) toResponse() LedgerAccountResponse {
	return LedgerAccountResponse{
		LedgerAccountID: l.LedgerAccountID,
		Number:          l.Number,
		Name:            l.Name,
		Area:            db.StringPtr(l.Area),
		Kind:            db.StringPtr(l.Kind),
		MainArea:        db.StringPtr(l.MainArea),
		MainAreaName:    db.StringPtr(l.MainAreaName),
		SortOrder:       l.SortOrder,
		IsActive:        l.IsActive,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       db.TimePtr(l.UpdatedAt),
	}
}

func (e *Entry) toResponse() EntryResponse {
	return EntryResponse{
		EntryID:           e.EntryID,
		AssociationID:     e.AssociationID,
		VoucherNo:         e.VoucherNo,
		VoucherDate:       e.VoucherDate.Format("2006-01-02"),
		FiscalYear:        e.FiscalYear,
		LedgerNumber:      e.LedgerNumber,
		LedgerName:        db.StringPtr(e.LedgerName),
		Purpose:           e.Purpose,
		CashIn:            db.DecimalPtr(e.CashIn),
		CashOut:           db.DecimalPtr(e.CashOut),
		BankIn:            db.DecimalPtr(e.BankIn),
		BankOut:           db.DecimalPtr(e.BankOut),
		Method:            db.StringPtr(e.Method),
		Note:              db.StringPtr(e.Note),
		MemberID:          db.Int64Ptr(e.MemberID),
		PaymentID:         db.Int64Ptr(e.PaymentID),
		BankTransactionID: db.Int64Ptr(e.BankTransactionID),
		CreatedAt:         e.CreatedAt,
		CreatedBy:         db.StringPtr(e.CreatedBy),
		UpdatedAt:         db.TimePtr(e.UpdatedAt),
	}
}

type Closing struct {
	ClosingID      int64
	AssociationID  int64
	Year           int
	CashOpening    decimal.Decimal
	BankOpening    decimal.Decimal
	CashClosing    decimal.Decimal
	BankClosing    decimal.Decimal
	SavingsClosing decimal.NullDecimal
	ClosedOn       time.Time
	Audited        bool
	AuditedBy      sql.NullString
	AuditedAt      sql.NullTime
	Note           sql.NullString
	CreatedAt      time.Time
}

func (c *Closing) toResponse() ClosingResponse {
	total := c.CashClosing.Add(c.BankClosing)
	if c.SavingsClosing.Valid {
		total = total.Add(c.SavingsClosing.Decimal)
	}
	return ClosingResponse{
		ClosingID:      c.ClosingID,
		AssociationID:  c.AssociationID,
		Year:           c.Year,
		CashOpening:    c.CashOpening,
		BankOpening:    c.BankOpening,
		CashClosing:    c.CashClosing,
		BankClosing:    c.BankClosing,
		SavingsClosing: db.DecimalPtr(c.SavingsClosing),
		Total:          total,
		ClosedOn:       c.ClosedOn.Format("2006-01-02"),
		Audited:        c.Audited,
		AuditedBy:      db.StringPtr(c.AuditedBy),
		AuditedAt:      db.TimePtr(c.AuditedAt),
		Note:           db.StringPtr(c.Note),
		CreatedAt:      c.CreatedAt,
	}
}
