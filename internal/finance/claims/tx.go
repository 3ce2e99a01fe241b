package claims

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"verein-backend/internal/finance/allocation"
	"verein-backend/internal/platform/db"
)

// Functions in this file run inside a caller's transaction. Payments, credits,
// bank import and event registration share them.

// Balance is a locked claim with the sum of its allocations.
type Balance struct {
	ClaimID       int64
	MemberID      int64
	AssociationID int64
	Amount        decimal.Decimal
	Paid          decimal.Decimal
	DueDate       time.Time
	Status        string
}

func (b Balance) Allocatable() allocation.Claim {
	return allocation.Claim{
		ID:        b.ClaimID,
		Amount:    b.Amount,
		Allocated: b.Paid,
		DueDate:   b.DueDate,
		Cancelled: b.Status == StatusCancelled,
	}
}

// Allocatable converts balances for the allocation planner.
func Allocatable(bs []Balance) []allocation.Claim {
	out := make([]allocation.Claim, len(bs))
	for i, b := range bs {
		out[i] = b.Allocatable()
	}
	return out
}

const balanceCols = `
	c.claim_id, c.member_id, c.association_id, c.amount,
	COALESCE((SELECT SUM(a.amount) FROM claim_allocations a WHERE a.claim_id = c.claim_id), 0),
	c.due_date, c.status`

func queryBalances(ctx context.Context, tx db.DBTX, q string, args ...any) ([]Balance, error) {
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Balance
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.ClaimID, &b.MemberID, &b.AssociationID, &b.Amount, &b.Paid, &b.DueDate, &b.Status); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// LockByIDsTx locks the given claims. Missing or deleted ids are simply absent
// from the result.
func LockByIDsTx(ctx context.Context, tx db.DBTX, ids []int64) ([]Balance, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	in, args := db.InClause(ids)
	q := `SELECT ` + balanceCols + ` FROM claims c
	WHERE c.claim_id IN (` + in + `) AND c.deleted_flag = 0
	ORDER BY c.claim_id
	FOR UPDATE`
	return queryBalances(ctx, tx, q, args...)
}

// LockOpenByMemberTx locks every open claim of a member, oldest due first.
func LockOpenByMemberTx(ctx context.Context, tx db.DBTX, memberID int64) ([]Balance, error) {
	q := `SELECT ` + balanceCols + ` FROM claims c
	WHERE c.member_id = ? AND c.status = 'OFFEN' AND c.deleted_flag = 0
	ORDER BY c.due_date, c.claim_id
	FOR UPDATE`
	return queryBalances(ctx, tx, q, memberID)
}

// MarkPaidTx flips open claims to BEZAHLT.
func MarkPaidTx(ctx context.Context, tx db.DBTX, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	in, args := db.InClause(ids)
	q := `UPDATE claims SET status = 'BEZAHLT', paid_at = ?, updated_at = CURRENT_TIMESTAMP(6)
	WHERE claim_id IN (` + in + `) AND status = 'OFFEN'`
	_, err := tx.ExecContext(ctx, q, append([]any{at}, args...)...)
	return err
}

// ReopenTx sets paid claims back to OFFEN after allocations were removed.
func ReopenTx(ctx context.Context, tx db.DBTX, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	in, args := db.InClause(ids)
	q := `UPDATE claims SET status = 'OFFEN', paid_at = NULL, updated_at = CURRENT_TIMESTAMP(6)
	WHERE claim_id IN (` + in + `) AND status = 'BEZAHLT'`
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}

// InsertTx inserts a claim row and sets c.ClaimID.
func InsertTx(ctx context.Context, tx db.DBTX, c *Claim) error {
	const q = `
	INSERT INTO claims
	(association_id, member_id, claim_number, claim_type, amount, currency, due_date, status,
	 period_year, period_quarter, period_month, description, created_by)
	VALUES (?, ?, ?, ?, ?, ?, ?, 'OFFEN', ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		c.AssociationID, c.MemberID, c.ClaimNumber, c.ClaimType, c.Amount, c.Currency, c.DueDate,
		c.PeriodYear, c.PeriodQuarter, c.PeriodMonth, c.Description, c.CreatedBy,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ClaimID = id
	c.Status = StatusOpen
	return nil
}

// LockMemberTx locks a live member row and returns its association.
func LockMemberTx(ctx context.Context, tx db.DBTX, memberID int64) (int64, error) {
	const q = `SELECT association_id FROM members WHERE member_id = ? AND deleted_flag = 0 FOR UPDATE`
	var id int64
	err := tx.QueryRowContext(ctx, q, memberID).Scan(&id)
	return id, err
}

// CancelUnpaidTx cancels an open claim that has no allocations yet. It
// reports false when the claim was already paid in part or in full.
func CancelUnpaidTx(ctx context.Context, tx db.DBTX, claimID int64, actor string) (bool, error) {
	const q = `
	UPDATE claims c SET c.status = 'STORNIERT', c.updated_at = CURRENT_TIMESTAMP(6), c.updated_by = ?
	WHERE c.claim_id = ? AND c.status = 'OFFEN' AND c.deleted_flag = 0
	  AND NOT EXISTS (SELECT 1 FROM claim_allocations a WHERE a.claim_id = c.claim_id)`
	res, err := tx.ExecContext(ctx, q, db.NullString(&actor), claimID)
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	return aff > 0, err
}
