package members

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/web"
)

type Store struct{}

func NewStore() *Store { return &Store{} }

const selectCols = `
	member_id, association_id, member_number, first_name, last_name, email, phone,
	birth_date, joined_on, left_on, status, fee_amount, fee_period, note,
	created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(r scanner) (*Member, error) {
	var m Member
	err := r.Scan(
		&m.MemberID, &m.AssociationID, &m.MemberNumber, &m.FirstName, &m.LastName,
		&m.Email, &m.Phone, &m.BirthDate, &m.JoinedOn, &m.LeftOn, &m.Status,
		&m.FeeAmount, &m.FeePeriod, &m.Note, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// LockAssociation serialises number generation per association.
func (s *Store) LockAssociation(ctx context.Context, tx db.DBTX, associationID int64) error {
	const q = `SELECT association_id FROM associations WHERE association_id = ? AND deleted_flag = 0 FOR UPDATE`
	var id int64
	return tx.QueryRowContext(ctx, q, associationID).Scan(&id)
}

// NextNumber returns the next generated member number (M-00001, M-00002, ...).
// Call with the association row locked.
func (s *Store) NextNumber(ctx context.Context, tx db.DBTX, associationID int64) (string, error) {
	const q = `
	SELECT COALESCE(MAX(CAST(SUBSTRING(member_number, 3) AS UNSIGNED)), 0)
	FROM members
	WHERE association_id = ? AND member_number REGEXP '^M-[0-9]+$'`
	var max int64
	if err := tx.QueryRowContext(ctx, q, associationID).Scan(&max); err != nil {
		return "", err
	}
	return fmt.Sprintf("M-%05d", max+1), nil
}

func (s *Store) Insert(ctx context.Context, tx db.DBTX, m *Member) (int64, error) {
	const q = `
	INSERT INTO members
	(association_id, member_number, first_name, last_name, email, phone,
	 birth_date, joined_on, left_on, status, fee_amount, fee_period, note)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		m.AssociationID, m.MemberNumber, m.FirstName, m.LastName, m.Email, m.Phone,
		m.BirthDate, m.JoinedOn, m.LeftOn, m.Status, m.FeeAmount, m.FeePeriod, m.Note,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetByID(ctx context.Context, q db.DBTX, id int64) (*Member, error) {
	query := `SELECT ` + selectCols + ` FROM members WHERE member_id = ? AND deleted_flag = 0`
	return scanMember(q.QueryRowContext(ctx, query, id))
}

func (s *Store) List(ctx context.Context, conn db.DBTX, q SearchQuery, p web.Page) ([]Member, int64, error) {
	var where strings.Builder
	args := []any{}
	where.WriteString(" WHERE deleted_flag = 0")
	if q.AssociationID != nil {
		where.WriteString(" AND association_id = ?")
		args = append(args, *q.AssociationID)
	}
	if q.Status != nil {
		where.WriteString(" AND status = ?")
		args = append(args, *q.Status)
	}
	if q.Q != nil {
		where.WriteString(" AND (first_name LIKE ? OR last_name LIKE ? OR member_number LIKE ? OR email LIKE ?" +
			" OR CONCAT(first_name, ' ', last_name) LIKE ?)")
		like := "%" + *q.Q + "%"
		args = append(args, like, like, like, like, like)
	}

	var total int64
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM members`+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + selectCols + ` FROM members` + where.String() +
		` ORDER BY last_name ` + p.SQLOrder() + `, first_name ` + p.SQLOrder() + `, member_id LIMIT ? OFFSET ?`
	rows, err := conn.QueryContext(ctx, query, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Member, 0, p.Limit)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *m)
	}
	return out, total, rows.Err()
}

func (s *Store) Update(ctx context.Context, tx db.DBTX, m *Member) error {
	const q = `
	UPDATE members SET
	  member_number = ?, first_name = ?, last_name = ?, email = ?, phone = ?,
	  birth_date = ?, joined_on = ?, left_on = ?, status = ?, fee_amount = ?,
	  fee_period = ?, note = ?, updated_at = CURRENT_TIMESTAMP(6)
	WHERE member_id = ? AND deleted_flag = 0`
	_, err := tx.ExecContext(ctx, q,
		m.MemberNumber, m.FirstName, m.LastName, m.Email, m.Phone,
		m.BirthDate, m.JoinedOn, m.LeftOn, m.Status, m.FeeAmount,
		m.FeePeriod, m.Note, m.MemberID,
	)
	return err
}

// OpenClaimCount counts claims that still block removal of a member.
func (s *Store) OpenClaimCount(ctx context.Context, conn db.DBTX, memberID int64) (int64, error) {
	const q = `
	SELECT COUNT(*) FROM claims c
	JOIN v_claim_totals t ON t.claim_id = c.claim_id
	WHERE c.member_id = ? AND c.deleted_flag = 0 AND c.status <> 'STORNIERT' AND t.remaining_amount > 0`
	var n int64
	err := conn.QueryRowContext(ctx, q, memberID).Scan(&n)
	return n, err
}

func (s *Store) SoftDelete(ctx context.Context, conn db.DBTX, id int64) error {
	const q = `UPDATE members SET deleted_flag = 1, updated_at = CURRENT_TIMESTAMP(6) WHERE member_id = ? AND deleted_flag = 0`
	res, err := conn.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return sql.ErrNoRows
	}
	return nil
}
