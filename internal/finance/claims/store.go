package claims

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"verein-backend/internal/finance/allocation"
	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/web"
)

type Store struct{}

func NewStore() *Store { return &Store{} }

const selectCols = `
	c.claim_id, c.association_id, c.member_id, c.claim_number, c.claim_type, c.amount,
	c.currency, c.due_date, c.status, c.period_year, c.period_quarter, c.period_month,
	c.description, c.paid_at, c.created_at, c.created_by, c.updated_at,
	m.member_number, CONCAT(m.first_name, ' ', m.last_name), t.paid_amount, t.allocation_count`

const fromJoin = `
	FROM claims c
	JOIN members m ON m.member_id = c.member_id
	JOIN v_claim_totals t ON t.claim_id = c.claim_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanClaim(r scanner) (*Claim, error) {
	var c Claim
	err := r.Scan(
		&c.ClaimID, &c.AssociationID, &c.MemberID, &c.ClaimNumber, &c.ClaimType, &c.Amount,
		&c.Currency, &c.DueDate, &c.Status, &c.PeriodYear, &c.PeriodQuarter, &c.PeriodMonth,
		&c.Description, &c.PaidAt, &c.CreatedAt, &c.CreatedBy, &c.UpdatedAt,
		&c.MemberNumber, &c.MemberName, &c.Paid, &c.AllocationCount,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetByID(ctx context.Context, conn db.DBTX, id int64) (*Claim, error) {
	q := `SELECT ` + selectCols + fromJoin + ` WHERE c.claim_id = ? AND c.deleted_flag = 0`
	return scanClaim(conn.QueryRowContext(ctx, q, id))
}

// GetForUpdate locks the claim row, then reads it with its totals.
func (s *Store) GetForUpdate(ctx context.Context, tx db.DBTX, id int64) (*Claim, error) {
	const lock = `SELECT claim_id FROM claims WHERE claim_id = ? AND deleted_flag = 0 FOR UPDATE`
	var locked int64
	if err := tx.QueryRowContext(ctx, lock, id).Scan(&locked); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, tx, id)
}

func (s *Store) Allocations(ctx context.Context, conn db.DBTX, claimID int64) ([]Allocation, error) {
	const q = `
	SELECT a.allocation_id, a.payment_id, p.payment_ref, a.amount, p.paid_on, a.created_at
	FROM claim_allocations a
	JOIN payments p ON p.payment_id = a.payment_id
	WHERE a.claim_id = ?
	ORDER BY a.created_at, a.allocation_id`
	rows, err := conn.QueryContext(ctx, q, claimID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Allocation{}
	for rows.Next() {
		var a Allocation
		if err := rows.Scan(&a.AllocationID, &a.PaymentID, &a.PaymentRef, &a.Amount, &a.PaidOn, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) List(ctx context.Context, conn db.DBTX, q SearchQuery, today time.Time, p web.Page) ([]Claim, int64, error) {
	var where strings.Builder
	args := []any{}
	where.WriteString(" WHERE c.deleted_flag = 0")
	if q.AssociationID != nil {
		where.WriteString(" AND c.association_id = ?")
		args = append(args, *q.AssociationID)
	}
	if q.MemberID != nil {
		where.WriteString(" AND c.member_id = ?")
		args = append(args, *q.MemberID)
	}
	if q.Status != nil {
		switch *q.Status {
		case string(allocation.StateOpen):
			where.WriteString(" AND c.status = 'OFFEN' AND t.paid_amount = 0")
		case string(allocation.StatePartial):
			where.WriteString(" AND c.status = 'OFFEN' AND t.paid_amount > 0")
		default:
			where.WriteString(" AND c.status = ?")
			args = append(args, *q.Status)
		}
	}
	if q.ClaimType != nil {
		where.WriteString(" AND c.claim_type = ?")
		args = append(args, *q.ClaimType)
	}
	if q.Year != nil {
		where.WriteString(" AND COALESCE(c.period_year, YEAR(c.due_date)) = ?")
		args = append(args, *q.Year)
	}
	if q.Overdue {
		where.WriteString(" AND c.status = 'OFFEN' AND t.remaining_amount > 0 AND c.due_date < ?")
		args = append(args, today)
	}

	var total int64
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*)`+fromJoin+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + selectCols + fromJoin + where.String() +
		` ORDER BY c.due_date ` + p.SQLOrder() + `, c.claim_id ` + p.SQLOrder() + ` LIMIT ? OFFSET ?`
	rows, err := conn.QueryContext(ctx, query, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Claim, 0, p.Limit)
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

func (s *Store) Update(ctx context.Context, tx db.DBTX, c *Claim, actor string) error {
	const q = `
	UPDATE claims SET
	  claim_type = ?, amount = ?, due_date = ?, period_year = ?, period_quarter = ?,
	  period_month = ?, description = ?, updated_at = CURRENT_TIMESTAMP(6), updated_by = ?
	WHERE claim_id = ? AND deleted_flag = 0`
	_, err := tx.ExecContext(ctx, q,
		c.ClaimType, c.Amount, c.DueDate, c.PeriodYear, c.PeriodQuarter,
		c.PeriodMonth, c.Description, db.NullString(&actor), c.ClaimID,
	)
	return err
}

func (s *Store) SetCancelled(ctx context.Context, tx db.DBTX, id int64, actor string) error {
	const q = `
	UPDATE claims SET status = 'STORNIERT', updated_at = CURRENT_TIMESTAMP(6), updated_by = ?
	WHERE claim_id = ? AND status = 'OFFEN' AND deleted_flag = 0`
	res, err := tx.ExecContext(ctx, q, db.NullString(&actor), id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) SoftDelete(ctx context.Context, tx db.DBTX, id int64, actor string) error {
	const q = `
	UPDATE claims SET deleted_flag = 1, updated_at = CURRENT_TIMESTAMP(6), updated_by = ?
	WHERE claim_id = ? AND deleted_flag = 0`
	res, err := tx.ExecContext(ctx, q, db.NullString(&actor), id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return sql.ErrNoRows
	}
	return nil
}

// ===== fee run =====

type FeeMember struct {
	MemberID     int64
	MemberNumber string
	Fee          decimal.NullDecimal
}

// ActiveMembers returns the active members of an association, optionally
// limited to ids.
func (s *Store) ActiveMembers(ctx context.Context, conn db.DBTX, associationID int64, ids []int64) ([]FeeMember, error) {
	q := `SELECT member_id, member_number, fee_amount FROM members
	WHERE association_id = ? AND status = 'AKTIV' AND deleted_flag = 0`
	args := []any{associationID}
	if len(ids) > 0 {
		in, idArgs := db.InClause(ids)
		q += ` AND member_id IN (` + in + `)`
		args = append(args, idArgs...)
	}
	q += ` ORDER BY member_number`
	rows, err := conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FeeMember
	for rows.Next() {
		var m FeeMember
		if err := rows.Scan(&m.MemberID, &m.MemberNumber, &m.Fee); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ExistsForPeriod reports whether the member already has a live claim of the
// type for the period. NULL quarter/month match NULL.
func (s *Store) ExistsForPeriod(ctx context.Context, conn db.DBTX, memberID int64, claimType string, year int, quarter, month sql.NullInt32) (bool, error) {
	const q = `
	SELECT COUNT(*) FROM claims
	WHERE member_id = ? AND claim_type = ? AND period_year = ?
	  AND period_quarter <=> ? AND period_month <=> ?
	  AND status <> 'STORNIERT' AND deleted_flag = 0`
	var n int64
	if err := conn.QueryRowContext(ctx, q, memberID, claimType, year, quarter, month).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
