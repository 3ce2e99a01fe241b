package cashbook

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/db"
)

// Entry is one row of cashbook_entries (Kassenbuch). Exactly one of the four
// amount columns is set.
type Entry struct {
	EntryID           int64
	AssociationID     int64
	VoucherNo         int
	VoucherDate       time.Time
	FiscalYear        int
	LedgerNumber      string
	Purpose           string
	CashIn            decimal.NullDecimal
	CashOut           decimal.NullDecimal
	BankIn            decimal.NullDecimal
	BankOut           decimal.NullDecimal
	Method            sql.NullString
	Note              sql.NullString
	MemberID          sql.NullInt64
	PaymentID         sql.NullInt64
	BankTransactionID sql.NullInt64
	CreatedAt         time.Time
	CreatedBy         sql.NullString
	UpdatedAt         sql.NullTime

	// joined
	LedgerName sql.NullString
}

// NextVoucherTx returns the next voucher number of the association and year.
// The MAX is read with a locking read so concurrent bookings serialise on
// the index range.
func NextVoucherTx(ctx context.Context, tx db.DBTX, associationID int64, year int) (int, error) {
	const q = `
	SELECT COALESCE(MAX(voucher_no), 0) FROM cashbook_entries
	WHERE association_id = ? AND fiscal_year = ?
	FOR UPDATE`
	var last int
	if err := tx.QueryRowContext(ctx, q, associationID, year).Scan(&last); err != nil {
		return 0, err
	}
	return last + 1, nil
}

// ClosedTx reports whether a year-end closing exists for the year. The
// closing row is read with a shared lock so a concurrent closing waits.
func ClosedTx(ctx context.Context, tx db.DBTX, associationID int64, year int) (bool, error) {
	const q = `
	SELECT COUNT(*) FROM cashbook_closings
	WHERE association_id = ? AND fiscal_year = ? AND deleted_flag = 0
	FOR SHARE`
	var n int
	err := tx.QueryRowContext(ctx, q, associationID, year).Scan(&n)
	return n > 0, err
}

// InsertTx numbers and inserts an entry. VoucherNo and FiscalYear are derived
// from the voucher date. Closed years take no new entries.
func InsertTx(ctx context.Context, tx db.DBTX, e *Entry) error {
	e.FiscalYear = e.VoucherDate.Year()
	closed, err := ClosedTx(ctx, tx, e.AssociationID, e.FiscalYear)
	if err != nil {
		return err
	}
	if closed {
		return apierr.Conflict("fiscal year is closed")
	}
	no, err := NextVoucherTx(ctx, tx, e.AssociationID, e.FiscalYear)
	if err != nil {
		return err
	}
	e.VoucherNo = no

	const q = `
	INSERT INTO cashbook_entries
	(association_id, voucher_no, voucher_date, fiscal_year, ledger_number, purpose,
	 cash_in, cash_out, bank_in, bank_out, method, note, member_id, payment_id,
	 bank_transaction_id, created_by)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		e.AssociationID, e.VoucherNo, e.VoucherDate, e.FiscalYear, e.LedgerNumber, e.Purpose,
		e.CashIn, e.CashOut, e.BankIn, e.BankOut, e.Method, e.Note, e.MemberID, e.PaymentID,
		e.BankTransactionID, e.CreatedBy,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.EntryID = id
	return nil
}

// Incoming builds an income entry for a received payment: cash for BAR,
// bank for everything else.
func Incoming(method string, amount decimal.Decimal) (cashIn, bankIn decimal.NullDecimal) {
	v := decimal.NullDecimal{Decimal: amount, Valid: true}
	if method == "BAR" {
		return v, decimal.NullDecimal{}
	}
	return decimal.NullDecimal{}, v
}

// Outgoing is the expense counterpart of Incoming.
func Outgoing(method string, amount decimal.Decimal) (cashOut, bankOut decimal.NullDecimal) {
	return Incoming(method, amount)
}
