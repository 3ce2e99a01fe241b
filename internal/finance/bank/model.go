package bank

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/db"
)

type Account struct {
	BankAccountID int64
	AssociationID int64
	IBAN          string
	BIC           sql.NullString
	AccountHolder sql.NullString
	BankName      sql.NullString
	Description   sql.NullString
	ValidFrom     sql.NullTime
	ValidTo       sql.NullTime
	IsDefault     bool
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     sql.NullTime
}

func (a *Account) toResponse() AccountResponse {
	return AccountResponse{
		BankAccountID: a.BankAccountID,
		AssociationID: a.AssociationID,
		IBAN:          a.IBAN,
		BIC:           db.StringPtr(a.BIC),
		AccountHolder: db.StringPtr(a.AccountHolder),
		BankName:      db.StringPtr(a.BankName),
		Description:   db.StringPtr(a.Description),
		ValidFrom:     db.DatePtr(a.ValidFrom),
		ValidTo:       db.DatePtr(a.ValidTo),
		IsDefault:     a.IsDefault,
		IsActive:      a.IsActive,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     db.TimePtr(a.UpdatedAt),
	}
}

// Transaction is one imported statement line (BankBuchung).
type Transaction struct {
	BankTransactionID int64
	AssociationID     int64
	BankAccountID     int64
	ImportBatch       sql.NullString
	BookedOn          time.Time
	Amount            decimal.Decimal
	Currency          string
	Counterparty      sql.NullString
	Purpose           sql.NullString
	Reference         sql.NullString
	Status            string
	CreatedAt         time.Time

	// joined
	IBAN      string
	PaymentID sql.NullInt64
	MemberID  sql.NullInt64
}

func (t *Transaction) toResponse() TransactionResponse {
	return TransactionResponse{
		BankTransactionID: t.BankTransactionID,
		AssociationID:     t.AssociationID,
		BankAccountID:     t.BankAccountID,
		IBAN:              t.IBAN,
		ImportBatch:       db.StringPtr(t.ImportBatch),
		BookedOn:          t.BookedOn.Format("2006-01-02"),
		Amount:            t.Amount,
		Currency:          t.Currency,
		Counterparty:      db.StringPtr(t.Counterparty),
		Purpose:           db.StringPtr(t.Purpose),
		Reference:         db.StringPtr(t.Reference),
		Status:            t.Status,
		PaymentID:         db.Int64Ptr(t.PaymentID),
		MemberID:          db.Int64Ptr(t.MemberID),
		CreatedAt:         t.CreatedAt,
	}
}
