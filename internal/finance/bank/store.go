package bank

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/web"
)

type Store struct{}

func NewStore() *Store { return &Store{} }

type scanner interface {
	Scan(dest ...any) error
}

// ===== accounts =====

const accountCols = `
	bank_account_id, association_id, iban, bic, account_holder, bank_name, description,
	valid_from, valid_to, is_default, is_active, created_at, updated_at`

func scanAccount(r scanner) (*Account, error) {
	var a Account
	err := r.Scan(
		&a.BankAccountID, &a.AssociationID, &a.IBAN, &a.BIC, &a.AccountHolder, &a.BankName, &a.Description,
		&a.ValidFrom, &a.ValidTo, &a.IsDefault, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) GetAccount(ctx context.Context, conn db.DBTX, id int64) (*Account, error) {
	q := `SELECT ` + accountCols + ` FROM bank_accounts WHERE bank_account_id = ? AND deleted_flag = 0`
	return scanAccount(conn.QueryRowContext(ctx, q, id))
}

func (s *Store) ListAccounts(ctx context.Context, conn db.DBTX, associationID *int64, activeOnly bool) ([]Account, error) {
	var where strings.Builder
	args := []any{}
	where.WriteString(" WHERE deleted_flag = 0")
	if associationID != nil {
		where.WriteString(" AND association_id = ?")
		args = append(args, *associationID)
	}
	if activeOnly {
		where.WriteString(" AND is_active = 1")
	}
	q := `SELECT ` + accountCols + ` FROM bank_accounts` + where.String() + ` ORDER BY association_id, is_default DESC, bank_account_id`
	rows, err := conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) InsertAccount(ctx context.Context, tx db.DBTX, a *Account) error {
	const q = `
	INSERT INTO bank_accounts
	(association_id, iban, bic, account_holder, bank_name, description, valid_from, valid_to, is_default, is_active)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		a.AssociationID, a.IBAN, a.BIC, a.AccountHolder, a.BankName, a.Description,
		a.ValidFrom, a.ValidTo, a.IsDefault, a.IsActive,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.BankAccountID = id
	return nil
}

func (s *Store) UpdateAccount(ctx context.Context, tx db.DBTX, a *Account) error {
	const q = `
	UPDATE bank_accounts SET iban = ?, bic = ?, account_holder = ?, bank_name = ?, description = ?,
	  valid_from = ?, valid_to = ?, is_default = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP(6)
	WHERE bank_account_id = ? AND deleted_flag = 0`
	_, err := tx.ExecContext(ctx, q,
		a.IBAN, a.BIC, a.AccountHolder, a.BankName, a.Description,
		a.ValidFrom, a.ValidTo, a.IsDefault, a.IsActive, a.BankAccountID,
	)
	return err
}

// ClearDefault unsets the default flag on every other account of the association.
func (s *Store) ClearDefault(ctx context.Context, tx db.DBTX, associationID, keepID int64) error {
	const q = `
	UPDATE bank_accounts SET is_default = 0, updated_at = CURRENT_TIMESTAMP(6)
	WHERE association_id = ? AND bank_account_id <> ? AND is_default = 1 AND deleted_flag = 0`
	_, err := tx.ExecContext(ctx, q, associationID, keepID)
	return err
}

func (s *Store) SoftDeleteAccount(ctx context.Context, conn db.DBTX, id int64) error {
	const q = `
	UPDATE bank_accounts SET deleted_flag = 1, is_default = 0, updated_at = CURRENT_TIMESTAMP(6)
	WHERE bank_account_id = ? AND deleted_flag = 0`
	res, err := conn.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ===== transactions =====

const txCols = `
	t.bank_transaction_id, t.association_id, t.bank_account_id, t.import_batch, t.booked_on,
	t.amount, t.currency, t.counterparty, t.purpose, t.reference, t.status, t.created_at,
	a.iban, p.payment_id, p.member_id`

const txFrom = `
	FROM bank_transactions t
	JOIN bank_accounts a ON a.bank_account_id = t.bank_account_id
	LEFT JOIN payments p ON p.bank_transaction_id = t.bank_transaction_id`

func scanTransaction(r scanner) (*Transaction, error) {
	var t Transaction
	err := r.Scan(
		&t.BankTransactionID, &t.AssociationID, &t.BankAccountID, &t.ImportBatch, &t.BookedOn,
		&t.Amount, &t.Currency, &t.Counterparty, &t.Purpose, &t.Reference, &t.Status, &t.CreatedAt,
		&t.IBAN, &t.PaymentID, &t.MemberID,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) GetTransaction(ctx context.Context, conn db.DBTX, id int64) (*Transaction, error) {
	q := `SELECT ` + txCols + txFrom + ` WHERE t.bank_transaction_id = ? AND t.deleted_flag = 0`
	return scanTransaction(conn.QueryRowContext(ctx, q, id))
}

// LockTransaction locks the bank row and reads it.
func (s *Store) LockTransaction(ctx context.Context, tx db.DBTX, id int64) (*Transaction, error) {
	var locked int64
	err := tx.QueryRowContext(ctx,
		`SELECT bank_transaction_id FROM bank_transactions WHERE bank_transaction_id = ? AND deleted_flag = 0 FOR UPDATE`,
		id).Scan(&locked)
	if err != nil {
		return nil, err
	}
	return s.GetTransaction(ctx, tx, id)
}

func (s *Store) ListTransactions(ctx context.Context, conn db.DBTX, q TxSearchQuery, p web.Page) ([]Transaction, int64, error) {
	var where strings.Builder
	args := []any{}
	where.WriteString(" WHERE t.deleted_flag = 0")
	if q.AssociationID != nil {
		where.WriteString(" AND t.association_id = ?")
		args = append(args, *q.AssociationID)
	}
	if q.BankAccountID != nil {
		where.WriteString(" AND t.bank_account_id = ?")
		args = append(args, *q.BankAccountID)
	}
	if q.Status != nil {
		where.WriteString(" AND t.status = ?")
		args = append(args, *q.Status)
	}
	if q.From != nil {
		where.WriteString(" AND t.booked_on >= ?")
		args = append(args, *q.From)
	}
	if q.To != nil {
		where.WriteString(" AND t.booked_on <= ?")
		args = append(args, *q.To)
	}
	if q.Unmatched {
		where.WriteString(" AND t.status = 'IMPORTIERT' AND t.amount > 0")
	}

	var total int64
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*)`+txFrom+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + txCols + txFrom + where.String() +
		` ORDER BY t.booked_on ` + p.SQLOrder() + `, t.bank_transaction_id ` + p.SQLOrder() + ` LIMIT ? OFFSET ?`
	rows, err := conn.QueryContext(ctx, query, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]Transaction, 0, p.Limit)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	return out, total, rows.Err()
}

// Duplicate reports whether the account already has a row with the same
// booking date, amount and reference. A missing reference matches NULL.
func (s *Store) Duplicate(ctx context.Context, tx db.DBTX, accountID int64, r StatementRow) (bool, error) {
	const q = `
	SELECT COUNT(*) FROM bank_transactions
	WHERE bank_account_id = ? AND booked_on = ? AND amount = ? AND reference <=> ? AND deleted_flag = 0`
	var n int64
	ref := r.Reference
	err := tx.QueryRowContext(ctx, q, accountID, r.BookedOn, r.Amount, db.NullString(&ref)).Scan(&n)
	return n > 0, err
}

func (s *Store) InsertTransaction(ctx context.Context, tx db.DBTX, t *Transaction) error {
	const q = `
	INSERT INTO bank_transactions
	(association_id, bank_account_id, import_batch, booked_on, amount, currency, counterparty, purpose, reference, status)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		t.AssociationID, t.BankAccountID, t.ImportBatch, t.BookedOn, t.Amount, t.Currency,
		t.Counterparty, t.Purpose, t.Reference, t.Status,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.BankTransactionID = id
	return nil
}

func (s *Store) SetStatus(ctx context.Context, tx db.DBTX, id int64, status string) error {
	_, err := tx.ExecContext(ctx, `UPDATE bank_transactions SET status = ? WHERE bank_transaction_id = ?`, status, id)
	return err
}

// Candidates loads the active members of an association for matching.
func (s *Store) Candidates(ctx context.Context, conn db.DBTX, associationID int64) ([]Candidate, error) {
	const q = `
	SELECT member_id, member_number, first_name, last_name FROM members
	WHERE association_id = ? AND status = 'AKTIV' AND deleted_flag = 0
	ORDER BY member_id`
	rows, err := conn.QueryContext(ctx, q, associationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.MemberID, &c.MemberNumber, &c.FirstName, &c.LastName); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UnmatchedSummary counts unmatched incoming rows of an association.
func (s *Store) UnmatchedSummary(ctx context.Context, conn db.DBTX, associationID int64) (int64, decimal.Decimal, error) {
	const q = `
	SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM bank_transactions
	WHERE association_id = ? AND status = 'IMPORTIERT' AND amount > 0 AND deleted_flag = 0`
	var n int64
	var sum decimal.Decimal
	err := conn.QueryRowContext(ctx, q, associationID).Scan(&n, &sum)
	return n, sum, err
}
