package credits

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/db"
)

type Store struct{}

func NewStore() *Store { return &Store{} }

const selectCols = `
	cr.credit_id, cr.association_id, cr.member_id, cr.payment_id, cr.original_amount,
	cr.amount, cr.currency, cr.description, cr.created_at, p.payment_ref`

const fromJoin = `
	FROM credits cr
	JOIN payments p ON p.payment_id = cr.payment_id`

func scanCredits(rows *sql.Rows) ([]Credit, error) {
	defer rows.Close()
	out := []Credit{}
	for rows.Next() {
		var c Credit
		if err := rows.Scan(
			&c.CreditID, &c.AssociationID, &c.MemberID, &c.PaymentID, &c.OriginalAmount,
			&c.Amount, &c.Currency, &c.Description, &c.CreatedAt, &c.PaymentRef,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) MemberAssociation(ctx context.Context, conn db.DBTX, memberID int64) (int64, error) {
	var id int64
	err := conn.QueryRowContext(ctx,
		`SELECT association_id FROM members WHERE member_id = ? AND deleted_flag = 0`, memberID).Scan(&id)
	return id, err
}

func (s *Store) List(ctx context.Context, conn db.DBTX, q SearchQuery) ([]Credit, error) {
	query := `SELECT ` + selectCols + fromJoin + ` WHERE cr.member_id = ? AND cr.deleted_flag = 0`
	if !q.IncludeUsed {
		query += ` AND cr.amount > 0`
	}
	query += ` ORDER BY cr.created_at, cr.credit_id`
	rows, err := conn.QueryContext(ctx, query, q.MemberID)
	if err != nil {
		return nil, err
	}
	return scanCredits(rows)
}

func (s *Store) Balance(ctx context.Context, conn db.DBTX, memberID int64) (decimal.Decimal, int64, error) {
	const q = `
	SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM credits
	WHERE member_id = ? AND deleted_flag = 0 AND amount > 0`
	var sum decimal.Decimal
	var n int64
	err := conn.QueryRowContext(ctx, q, memberID).Scan(&sum, &n)
	return sum, n, err
}

// LockOpenTx locks the member's usable credits, oldest first.
func (s *Store) LockOpenTx(ctx context.Context, tx db.DBTX, memberID int64) ([]Credit, error) {
	query := `SELECT ` + selectCols + fromJoin + `
	WHERE cr.member_id = ? AND cr.deleted_flag = 0 AND cr.amount > 0
	ORDER BY cr.created_at, cr.credit_id
	FOR UPDATE OF cr`
	rows, err := tx.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	return scanCredits(rows)
}

func (s *Store) ReduceTx(ctx context.Context, tx db.DBTX, creditID int64, by decimal.Decimal) error {
	const q = `
	UPDATE credits SET amount = amount - ?, updated_at = CURRENT_TIMESTAMP(6)
	WHERE credit_id = ? AND amount >= ?`
	res, err := tx.ExecContext(ctx, q, by, creditID, by)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return sql.ErrNoRows
	}
	return nil
}
