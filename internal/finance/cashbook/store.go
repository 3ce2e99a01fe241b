package cashbook

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/web"
)

type Store struct{}

func NewStore() *Store { return &Store{} }

type scanner interface {
	Scan(dest ...any) error
}

// ===== ledger accounts =====

const ledgerCols = `
	ledger_account_id, number, name, area, kind, main_area, main_area_name,
	sort_order, is_active, created_at, updated_at`

func scanLedger(r scanner) (*LedgerAccount, error) {
	var l LedgerAccount
	err := r.Scan(&l.LedgerAccountID, &l.Number, &l.Name, &l.Area, &l.Kind, &l.MainArea, &l.MainAreaName,
		&l.SortOrder, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) GetLedger(ctx context.Context, conn db.DBTX, id int64) (*LedgerAccount, error) {
	q := `SELECT ` + ledgerCols + ` FROM ledger_accounts WHERE ledger_account_id = ? AND deleted_flag = 0`
	return scanLedger(conn.QueryRowContext(ctx, q, id))
}

func (s *Store) ListLedgers(ctx context.Context, conn db.DBTX, activeOnly bool, area *string) ([]LedgerAccount, error) {
	var where strings.Builder
	args := []any{}
	where.WriteString(" WHERE deleted_flag = 0")
	if activeOnly {
		where.WriteString(" AND is_active = 1")
	}
	if area != nil {
		where.WriteString(" AND area = ?")
		args = append(args, *area)
	}
	rows, err := conn.QueryContext(ctx, `SELECT `+ledgerCols+` FROM ledger_accounts`+where.String()+` ORDER BY sort_order, number`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LedgerAccount{}
	for rows.Next() {
		l, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (s *Store) InsertLedger(ctx context.Context, conn db.DBTX, l *LedgerAccount) (int64, error) {
	const q = `
	INSERT INTO ledger_accounts (number, name, area, kind, main_area, main_area_name, sort_order, is_active)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := conn.ExecContext(ctx, q, l.Number, l.Name, l.Area, l.Kind, l.MainArea, l.MainAreaName, l.SortOrder, l.IsActive)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) UpdateLedger(ctx context.Context, conn db.DBTX, l *LedgerAccount) error {
	const q = `
	UPDATE ledger_accounts SET number = ?, name = ?, area = ?, kind = ?, main_area = ?, main_area_name = ?,
	  sort_order = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP(6)
	WHERE ledger_account_id = ? AND deleted_flag = 0`
	res, err := conn.ExecContext(ctx, q, l.Number, l.Name, l.Area, l.Kind, l.MainArea, l.MainAreaName,
		l.SortOrder, l.IsActive, l.LedgerAccountID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		if _, err := s.GetLedger(ctx, conn, l.LedgerAccountID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) LedgerInUse(ctx context.Context, conn db.DBTX, number string) (bool, error) {
	var n int64
	err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cashbook_entries WHERE ledger_number = ? AND deleted_flag = 0`, number).Scan(&n)
	return n > 0, err
}

func (s *Store) SoftDeleteLedger(ctx context.Context, conn db.DBTX, id int64) error {
	res, err := conn.ExecContext(ctx,
		`UPDATE ledger_accounts SET deleted_flag = 1, is_active = 0, updated_at = CURRENT_TIMESTAMP(6) WHERE ledger_account_id = ? AND deleted_flag = 0`, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ActiveLedger checks that a ledger number exists and is active.
func (s *Store) ActiveLedger(ctx context.Context, conn db.DBTX, number string) (bool, error) {
	var n int64
	err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_accounts WHERE number = ? AND is_active = 1 AND deleted_flag = 0`, number).Scan(&n)
	return n > 0, err
}

// ===== entries =====

const entryCols = `
	e.entry_id, e.association_id, e.voucher_no, e.voucher_date, e.fiscal_year, e.ledger_number, e.purpose,
	e.cash_in, e.cash_out, e.bank_in, e.bank_out, e.method, e.note, e.member_id, e.payment_id,
	e.bank_transaction_id, e.created_at, e.created_by, e.updated_at, l.name`

const entryFrom = `
	FROM cashbook_entries e
	LEFT JOIN ledger_accounts l ON l.number = e.ledger_number`

func scanEntry(r scanner) (*Entry, error) {
	var e Entry
	err := r.Scan(
		&e.EntryID, &e.AssociationID, &e.VoucherNo, &e.VoucherDate, &e.FiscalYear, &e.LedgerNumber, &e.Purpose,
		&e.CashIn, &e.CashOut, &e.BankIn, &e.BankOut, &e.Method, &e.Note, &e.MemberID, &e.PaymentID,
		&e.BankTransactionID, &e.CreatedAt, &e.CreatedBy, &e.UpdatedAt, &e.LedgerName,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) GetEntry(ctx context.Context, conn db.DBTX, id int64) (*Entry, error) {
	q := `SELECT ` + entryCols + entryFrom + ` WHERE e.entry_id = ? AND e.deleted_flag = 0`
	return scanEntry(conn.QueryRowContext(ctx, q, id))
}

func (s *Store) LockEntry(ctx context.Context, tx db.DBTX, id int64) (*Entry, error) {
	var locked int64
	if err := tx.QueryRowContext(ctx,
		`SELECT entry_id FROM cashbook_entries WHERE entry_id = ? AND deleted_flag = 0 FOR UPDATE`, id).Scan(&locked); err != nil {
		return nil, err
	}
	return s.GetEntry(ctx, tx, id)
}

func entryWhere(q EntrySearchQuery) (string, []any) {
	var where strings.Builder
	args := []any{}
	where.WriteString(" WHERE e.deleted_flag = 0")
	if q.AssociationID != nil {
		where.WriteString(" AND e.association_id = ?")
		args = append(args, *q.AssociationID)
	}
	if q.Year != nil {
		where.WriteString(" AND e.fiscal_year = ?")
		args = append(args, *q.Year)
	}
	if q.From != nil {
		where.WriteString(" AND e.voucher_date >= ?")
		args = append(args, *q.From)
	}
	if q.To != nil {
		where.WriteString(" AND e.voucher_date <= ?")
		args = append(args, *q.To)
	}
	if q.LedgerNumber != nil {
		where.WriteString(" AND e.ledger_number = ?")
		args = append(args, *q.LedgerNumber)
	}
	if q.Method != nil {
		where.WriteString(" AND e.method = ?")
		args = append(args, *q.Method)
	}
	return where.String(), args
}

func (s *Store) ListEntries(ctx context.Context, conn db.DBTX, q EntrySearchQuery, p web.Page) ([]Entry, int64, error) {
	where, args := entryWhere(q)
	var total int64
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*)`+entryFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + entryCols + entryFrom + where +
		` ORDER BY e.voucher_date ` + p.SQLOrder() + `, e.voucher_no ` + p.SQLOrder() + ` LIMIT ? OFFSET ?`
	rows, err := conn.QueryContext(ctx, query, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]Entry, 0, p.Limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

func (s *Store) UpdateEntry(ctx context.Context, tx db.DBTX, e *Entry, at time.Time) error {
	const q = `
	UPDATE cashbook_entries SET voucher_date = ?, ledger_number = ?, purpose = ?,
	  cash_in = ?, cash_out = ?, bank_in = ?, bank_out = ?, method = ?, note = ?, member_id = ?,
	  updated_at = ?
	WHERE entry_id = ? AND deleted_flag = 0`
	_, err := tx.ExecContext(ctx, q, e.VoucherDate, e.LedgerNumber, e.Purpose,
		e.CashIn, e.CashOut, e.BankIn, e.BankOut, e.Method, e.Note, e.MemberID, at, e.EntryID)
	return err
}

func (s *Store) SoftDeleteEntry(ctx context.Context, tx db.DBTX, id int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE cashbook_entries SET deleted_flag = 1, updated_at = CURRENT_TIMESTAMP(6) WHERE entry_id = ?`, id)
	return err
}

// Totals sums the four amount columns of a year.
func (s *Store) Totals(ctx context.Context, conn db.DBTX, associationID int64, year int) (cashIn, cashOut, bankIn, bankOut decimal.Decimal, err error) {
	const q = `
	SELECT COALESCE(SUM(cash_in), 0), COALESCE(SUM(cash_out), 0),
	       COALESCE(SUM(bank_in), 0), COALESCE(SUM(bank_out), 0)
	FROM cashbook_entries
	WHERE association_id = ? AND fiscal_year = ? AND deleted_flag = 0`
	err = conn.QueryRowContext(ctx, q, associationID, year).Scan(&cashIn, &cashOut, &bankIn, &bankOut)
	return
}

func (s *Store) TotalsByAccount(ctx context.Context, conn db.DBTX, associationID int64, year int) ([]AccountTotal, error) {
	const q = `
	SELECT e.ledger_number, COALESCE(l.name, ''),
	       COALESCE(SUM(e.cash_in), 0) + COALESCE(SUM(e.bank_in), 0),
	       COALESCE(SUM(e.cash_out), 0) + COALESCE(SUM(e.bank_out), 0),
	       COUNT(*)
	FROM cashbook_entries e
	LEFT JOIN ledger_accounts l ON l.number = e.ledger_number
	WHERE e.association_id = ? AND e.fiscal_year = ? AND e.deleted_flag = 0
	GROUP BY e.ledger_number, l.name, l.sort_order
	ORDER BY l.sort_order, e.ledger_number`
	rows, err := conn.QueryContext(ctx, q, associationID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []AccountTotal{}
	for rows.Next() {
		var t AccountTotal
		if err := rows.Scan(&t.LedgerNumber, &t.LedgerName, &t.Income, &t.Expenses, &t.Entries); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ===== closings =====

const closingCols = `
	closing_id, association_id, fiscal_year, cash_opening, bank_opening, cash_closing, bank_closing,
	savings_closing, closed_on, audited, audited_by, audited_at, note, created_at`

func scanClosing(r scanner) (*Closing, error) {
	var c Closing
	err := r.Scan(&c.ClosingID, &c.AssociationID, &c.Year, &c.CashOpening, &c.BankOpening, &c.CashClosing, &c.BankClosing,
		&c.SavingsClosing, &c.ClosedOn, &c.Audited, &c.AuditedBy, &c.AuditedAt, &c.Note, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetClosing(ctx context.Context, conn db.DBTX, id int64) (*Closing, error) {
	q := `SELECT ` + closingCols + ` FROM cashbook_closings WHERE closing_id = ? AND deleted_flag = 0`
	return scanClosing(conn.QueryRowContext(ctx, q, id))
}

func (s *Store) ClosingForYear(ctx context.Context, conn db.DBTX, associationID int64, year int) (*Closing, error) {
	q := `SELECT ` + closingCols + ` FROM cashbook_closings WHERE association_id = ? AND fiscal_year = ? AND deleted_flag = 0`
	return scanClosing(conn.QueryRowContext(ctx, q, associationID, year))
}

func (s *Store) ListClosings(ctx context.Context, conn db.DBTX, associationID *int64) ([]Closing, error) {
	q := `SELECT ` + closingCols + ` FROM cashbook_closings WHERE deleted_flag = 0`
	args := []any{}
	if associationID != nil {
		q += ` AND association_id = ?`
		args = append(args, *associationID)
	}
	rows, err := conn.QueryContext(ctx, q+` ORDER BY fiscal_year DESC, association_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Closing{}
	for rows.Next() {
		c, err := scanClosing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *Store) InsertClosing(ctx context.Context, tx db.DBTX, c *Closing) (int64, error) {
	const q = `
	INSERT INTO cashbook_closings
	(association_id, fiscal_year, cash_opening, bank_opening, cash_closing, bank_closing, savings_closing, closed_on, note)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, c.AssociationID, c.Year, c.CashOpening, c.BankOpening,
		c.CashClosing, c.BankClosing, c.SavingsClosing, c.ClosedOn, c.Note)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) MarkAudited(ctx context.Context, conn db.DBTX, id int64, by string, at time.Time) error {
	const q = `
	UPDATE cashbook_closings SET audited = 1, audited_by = ?, audited_at = ?
	WHERE closing_id = ? AND deleted_flag = 0 AND audited = 0`
	res, err := conn.ExecContext(ctx, q, by, at, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteClosing removes an unaudited closing. The row is deleted so the year
// can be closed again under the unique key.
func (s *Store) DeleteClosing(ctx context.Context, conn db.DBTX, id int64) error {
	res, err := conn.ExecContext(ctx,
		`DELETE FROM cashbook_closings WHERE closing_id = ? AND deleted_flag = 0 AND audited = 0`, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}
