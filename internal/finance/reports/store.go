package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/db"
)

type Store struct{}

func NewStore() *Store { return &Store{} }

type MemberHeader struct {
	AssociationID int64
	MemberNumber  string
	Name          string
}

func (s *Store) Member(ctx context.Context, conn db.DBTX, memberID int64) (*MemberHeader, error) {
	const q = `
	SELECT association_id, member_number, CONCAT(first_name, ' ', last_name)
	FROM members WHERE member_id = ? AND deleted_flag = 0`
	var m MemberHeader
	if err := conn.QueryRowContext(ctx, q, memberID).Scan(&m.AssociationID, &m.MemberNumber, &m.Name); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) MemberClaims(ctx context.Context, conn db.DBTX, memberID int64) ([]ClaimRow, error) {
	const q = `
	SELECT c.claim_id, c.claim_number, c.claim_type, c.description, c.amount, t.paid_amount,
	       c.due_date, c.status, c.period_year, c.period_month
	FROM claims c
	JOIN v_claim_totals t ON t.claim_id = c.claim_id
	WHERE c.member_id = ? AND c.deleted_flag = 0
	ORDER BY c.due_date, c.claim_id`
	rows, err := conn.QueryContext(ctx, q, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ClaimRow{}
	for rows.Next() {
		var c ClaimRow
		if err := rows.Scan(&c.ClaimID, &c.ClaimNumber, &c.ClaimType, &c.Description, &c.Amount, &c.Paid,
			&c.DueDate, &c.Status, &c.PeriodYear, &c.PeriodMonth); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MemberPayments lists booked payments since the given date.
func (s *Store) MemberPayments(ctx context.Context, conn db.DBTX, memberID int64, since time.Time) ([]PaymentRow, error) {
	const q = `
	SELECT paid_on, amount, method FROM payments
	WHERE member_id = ? AND status = 'GEBUCHT' AND deleted_flag = 0 AND paid_on >= ?
	ORDER BY paid_on`
	rows, err := conn.QueryContext(ctx, q, memberID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []PaymentRow{}
	for rows.Next() {
		var p PaymentRow
		if err := rows.Scan(&p.PaidOn, &p.Amount, &p.Method); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) MemberCredit(ctx context.Context, conn db.DBTX, memberID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := conn.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM credits WHERE member_id = ? AND deleted_flag = 0`, memberID).Scan(&sum)
	return sum, err
}

// ===== association dashboard =====

func (s *Store) ActiveMembers(ctx context.Context, conn db.DBTX, associationID int64) (int64, error) {
	var n int64
	err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM members WHERE association_id = ? AND status = 'AKTIV' AND deleted_flag = 0`, associationID).Scan(&n)
	return n, err
}

// OpenClaims returns count and remaining sum of open claims, all and overdue,
// plus the number of members that owe anything.
func (s *Store) OpenClaims(ctx context.Context, conn db.DBTX, associationID int64, today time.Time) (open, overdue, debtors int64, openSum, overdueSum decimal.Decimal, err error) {
	const q = `
	SELECT COUNT(*),
	       COALESCE(SUM(t.remaining_amount), 0),
	       COALESCE(SUM(CASE WHEN c.due_date < ? THEN 1 ELSE 0 END), 0),
	       COALESCE(SUM(CASE WHEN c.due_date < ? THEN t.remaining_amount ELSE 0 END), 0),
	       COUNT(DISTINCT c.member_id)
	FROM claims c
	JOIN v_claim_totals t ON t.claim_id = c.claim_id
	WHERE c.association_id = ? AND c.deleted_flag = 0
	  AND c.status <> 'STORNIERT' AND t.remaining_amount > 0`
	err = conn.QueryRowContext(ctx, q, today, today, associationID).Scan(&open, &openSum, &overdue, &overdueSum, &debtors)
	return
}

func (s *Store) PaymentsBetween(ctx context.Context, conn db.DBTX, associationID int64, from, to time.Time) (int64, decimal.Decimal, error) {
	const q = `
	SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM payments
	WHERE association_id = ? AND status = 'GEBUCHT' AND deleted_flag = 0
	  AND paid_on >= ? AND paid_on < ?`
	var n int64
	var sum decimal.Decimal
	err := conn.QueryRowContext(ctx, q, associationID, from, to).Scan(&n, &sum)
	return n, sum, err
}

func (s *Store) CreditTotal(ctx context.Context, conn db.DBTX, associationID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := conn.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM credits WHERE association_id = ? AND deleted_flag = 0`, associationID).Scan(&sum)
	return sum, err
}
