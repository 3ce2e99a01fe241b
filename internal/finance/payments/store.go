package payments

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

const selectCols = `
	p.payment_id, p.payment_ref, p.association_id, p.member_id, p.claim_id, p.payment_type,
	p.amount, p.currency, p.paid_on, p.method, p.bank_account_id, p.bank_transaction_id,
	p.reference, p.note, p.status, p.created_at, p.created_by,
	m.member_number, CONCAT(m.first_name, ' ', m.last_name), t.allocated_amount, t.credit_amount`

const fromJoin = `
	FROM payments p
	JOIN members m ON m.member_id = p.member_id
	JOIN v_payment_totals t ON t.payment_id = p.payment_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanPayment(r scanner) (*Payment, error) {
	var p Payment
	err := r.Scan(
		&p.PaymentID, &p.PaymentRef, &p.AssociationID, &p.MemberID, &p.ClaimID, &p.PaymentType,
		&p.Amount, &p.Currency, &p.PaidOn, &p.Method, &p.BankAccountID, &p.BankTransactionID,
		&p.Reference, &p.Note, &p.Status, &p.CreatedAt, &p.CreatedBy,
		&p.MemberNumber, &p.MemberName, &p.Allocated, &p.Credit,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetByID(ctx context.Context, conn db.DBTX, id int64) (*Payment, error) {
	q := `SELECT ` + selectCols + fromJoin + ` WHERE p.payment_id = ? AND p.deleted_flag = 0`
	return scanPayment(conn.QueryRowContext(ctx, q, id))
}

func (s *Store) GetByRef(ctx context.Context, conn db.DBTX, ref string) (*Payment, error) {
	q := `SELECT ` + selectCols + fromJoin + ` WHERE p.payment_ref = ? AND p.deleted_flag = 0`
	return scanPayment(conn.QueryRowContext(ctx, q, ref))
}

// LockTx locks the payment row and reads it with current totals.
func (s *Store) LockTx(ctx context.Context, tx db.DBTX, id int64) (*Payment, error) {
	const lock = `SELECT payment_id FROM payments WHERE payment_id = ? AND deleted_flag = 0 FOR UPDATE`
	var locked int64
	if err := tx.QueryRowContext(ctx, lock, id).Scan(&locked); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, tx, id)
}

func (s *Store) Allocations(ctx context.Context, conn db.DBTX, paymentID int64) ([]AllocationRow, error) {
	const q = `
	SELECT a.allocation_id, a.claim_id, c.claim_number, c.due_date, a.amount, a.created_at
	FROM claim_allocations a
	JOIN claims c ON c.claim_id = a.claim_id
	WHERE a.payment_id = ?
	ORDER BY c.due_date, a.allocation_id`
	rows, err := conn.QueryContext(ctx, q, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []AllocationRow{}
	for rows.Next() {
		var a AllocationRow
		if err := rows.Scan(&a.AllocationID, &a.ClaimID, &a.ClaimNumber, &a.DueDate, &a.Amount, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) List(ctx context.Context, conn db.DBTX, q SearchQuery, p web.Page) ([]Payment, int64, error) {
	var where strings.Builder
	args := []any{}
	where.WriteString(" WHERE p.deleted_flag = 0")
	if q.AssociationID != nil {
		where.WriteString(" AND p.association_id = ?")
		args = append(args, *q.AssociationID)
	}
	if q.MemberID != nil {
		where.WriteString(" AND p.member_id = ?")
		args = append(args, *q.MemberID)
	}
	if q.Status != nil {
		where.WriteString(" AND p.status = ?")
		args = append(args, *q.Status)
	}
	if q.Method != nil {
		where.WriteString(" AND p.method = ?")
		args = append(args, *q.Method)
	}
	if q.From != nil {
		where.WriteString(" AND p.paid_on >= ?")
		args = append(args, *q.From)
	}
	if q.To != nil {
		where.WriteString(" AND p.paid_on <= ?")
		args = append(args, *q.To)
	}
	if q.HasUnallocated {
		where.WriteString(" AND p.status = 'GEBUCHT' AND t.amount > t.allocated_amount + t.credit_amount")
	}

	var total int64
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*)`+fromJoin+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + selectCols + fromJoin + where.String() +
		` ORDER BY p.paid_on ` + p.SQLOrder() + `, p.payment_id ` + p.SQLOrder() + ` LIMIT ? OFFSET ?`
	rows, err := conn.QueryContext(ctx, query, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Payment, 0, p.Limit)
	for rows.Next() {
		pay, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *pay)
	}
	return out, total, rows.Err()
}

// ===== writes (inside a transaction) =====

func (s *Store) Insert(ctx context.Context, tx db.DBTX, p *Payment) error {
	const q = `
	INSERT INTO payments
	(payment_ref, association_id, member_id, claim_id, payment_type, amount, currency, paid_on,
	 method, bank_account_id, bank_transaction_id, reference, note, status, created_by)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'GEBUCHT', ?)`
	res, err := tx.ExecContext(ctx, q,
		p.PaymentRef, p.AssociationID, p.MemberID, p.ClaimID, p.PaymentType, p.Amount, p.Currency, p.PaidOn,
		p.Method, p.BankAccountID, p.BankTransactionID, p.Reference, p.Note, p.CreatedBy,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.PaymentID = id
	p.Status = StatusBooked
	return nil
}

// InsertAllocation writes one claim_allocations row.
func InsertAllocation(ctx context.Context, tx db.DBTX, claimID, paymentID int64, amount decimal.Decimal, actor string) (int64, error) {
	const q = `INSERT INTO claim_allocations (claim_id, payment_id, amount, created_by) VALUES (?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, claimID, paymentID, amount, db.NullString(&actor))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) InsertCredit(ctx context.Context, tx db.DBTX, p *Payment, amount decimal.Decimal, description string) (int64, error) {
	const q = `
	INSERT INTO credits (association_id, member_id, payment_id, original_amount, amount, currency, description)
	VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, p.AssociationID, p.MemberID, p.PaymentID, amount, amount, p.Currency, description)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AllocationClaim returns the claim of an allocation that belongs to the payment.
func (s *Store) AllocationClaim(ctx context.Context, tx db.DBTX, paymentID, allocationID int64) (int64, error) {
	const q = `SELECT claim_id FROM claim_allocations WHERE allocation_id = ? AND payment_id = ? FOR UPDATE`
	var claimID int64
	err := tx.QueryRowContext(ctx, q, allocationID, paymentID).Scan(&claimID)
	return claimID, err
}

func (s *Store) DeleteAllocation(ctx context.Context, tx db.DBTX, allocationID int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM claim_allocations WHERE allocation_id = ?`, allocationID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return sql.ErrNoRows
	}
	return nil
}

// AllocatedClaims lists the distinct claims a payment is allocated to.
func (s *Store) AllocatedClaims(ctx context.Context, tx db.DBTX, paymentID int64) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT DISTINCT claim_id FROM claim_allocations WHERE payment_id = ? ORDER BY claim_id`, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) DeleteAllocations(ctx context.Context, tx db.DBTX, paymentID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM claim_allocations WHERE payment_id = ?`, paymentID)
	return err
}

func (s *Store) VoidCredits(ctx context.Context, tx db.DBTX, paymentID int64) error {
	const q = `UPDATE credits SET amount = 0, deleted_flag = 1, updated_at = CURRENT_TIMESTAMP(6) WHERE payment_id = ? AND deleted_flag = 0`
	_, err := tx.ExecContext(ctx, q, paymentID)
	return err
}

// MarkReversed sets STORNIERT and releases the bank transaction so it can be
// matched again.
func (s *Store) MarkReversed(ctx context.Context, tx db.DBTX, p *Payment, note string, actor string, at time.Time) error {
	if p.BankTransactionID.Valid {
		const bq = `UPDATE bank_transactions SET status = 'IMPORTIERT' WHERE bank_transaction_id = ?`
		if _, err := tx.ExecContext(ctx, bq, p.BankTransactionID.Int64); err != nil {
			return err
		}
	}
	const q = `
	UPDATE payments SET status = 'STORNIERT', bank_transaction_id = NULL,
	  note = ?, updated_at = ?, updated_by = ?
	WHERE payment_id = ? AND status = 'GEBUCHT'`
	res, err := tx.ExecContext(ctx, q, note, at, db.NullString(&actor), p.PaymentID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return sql.ErrNoRows
	}
	return nil
}
