package families

import (
	"context"
	"database/sql"

	"verein-backend/internal/platform/db"
)

type Store struct{}

func NewStore() *Store { return &Store{} }

const selectCols = `
	f.family_id, f.association_id, f.member_id, f.parent_member_id, f.relation, f.status,
	f.valid_from, f.valid_to, f.note, f.created_at, f.updated_at,
	CONCAT(m.first_name, ' ', m.last_name), CONCAT(p.first_name, ' ', p.last_name)`

const fromJoined = `
	FROM member_families f
	JOIN members m ON m.member_id = f.member_id
	JOIN members p ON p.member_id = f.parent_member_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanLink(r scanner) (*Link, error) {
	var l Link
	err := r.Scan(&l.FamilyID, &l.AssociationID, &l.MemberID, &l.ParentMemberID, &l.Relation, &l.Status,
		&l.ValidFrom, &l.ValidTo, &l.Note, &l.CreatedAt, &l.UpdatedAt, &l.MemberName, &l.ParentName)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) query(ctx context.Context, conn db.DBTX, q string, args ...any) ([]Link, error) {
	rows, err := conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Link{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (s *Store) GetByID(ctx context.Context, conn db.DBTX, id int64) (*Link, error) {
	q := `SELECT ` + selectCols + fromJoined + ` WHERE f.family_id = ? AND f.deleted_flag = 0`
	return scanLink(conn.QueryRowContext(ctx, q, id))
}

func (s *Store) Lock(ctx context.Context, tx db.DBTX, id int64) (*Link, error) {
	var got int64
	if err := tx.QueryRowContext(ctx,
		`SELECT family_id FROM member_families WHERE family_id = ? AND deleted_flag = 0 FOR UPDATE`, id).Scan(&got); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, tx, id)
}

// ByMember lists the links a member takes part in on either side.
func (s *Store) ByMember(ctx context.Context, conn db.DBTX, memberID int64) ([]Link, error) {
	q := `SELECT ` + selectCols + fromJoined + `
	WHERE (f.member_id = ? OR f.parent_member_id = ?) AND f.deleted_flag = 0
	ORDER BY f.relation, f.family_id`
	return s.query(ctx, conn, q, memberID, memberID)
}

func (s *Store) Children(ctx context.Context, conn db.DBTX, parentID int64) ([]Link, error) {
	q := `SELECT ` + selectCols + fromJoined + `
	WHERE f.parent_member_id = ? AND f.relation = 'KIND' AND f.deleted_flag = 0
	ORDER BY m.birth_date, f.family_id`
	return s.query(ctx, conn, q, parentID)
}

// Exists reports a live link between the two members with the relation.
// Symmetric relations are matched in both directions.
func (s *Store) Exists(ctx context.Context, tx db.DBTX, memberID, parentID int64, relation string, both bool) (bool, error) {
	q := `SELECT COUNT(*) FROM member_families
	WHERE relation = ? AND deleted_flag = 0 AND ((member_id = ? AND parent_member_id = ?)`
	args := []any{relation, memberID, parentID}
	if both {
		q += ` OR (member_id = ? AND parent_member_id = ?)`
		args = append(args, parentID, memberID)
	}
	var n int64
	err := tx.QueryRowContext(ctx, q+`)`, args...).Scan(&n)
	return n > 0, err
}

func (s *Store) Insert(ctx context.Context, tx db.DBTX, l *Link) (int64, error) {
	const q = `
	INSERT INTO member_families (association_id, member_id, parent_member_id, relation, status, valid_from, valid_to, note)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, l.AssociationID, l.MemberID, l.ParentMemberID, l.Relation, l.Status,
		l.ValidFrom, l.ValidTo, l.Note)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) Update(ctx context.Context, tx db.DBTX, l *Link) error {
	const q = `
	UPDATE member_families SET relation = ?, status = ?, valid_from = ?, valid_to = ?, note = ?,
	  updated_at = CURRENT_TIMESTAMP(6)
	WHERE family_id = ? AND deleted_flag = 0`
	_, err := tx.ExecContext(ctx, q, l.Relation, l.Status, l.ValidFrom, l.ValidTo, l.Note, l.FamilyID)
	return err
}

func (s *Store) SoftDelete(ctx context.Context, conn db.DBTX, id int64) error {
	res, err := conn.ExecContext(ctx,
		`UPDATE member_families SET deleted_flag = 1, updated_at = CURRENT_TIMESTAMP(6) WHERE family_id = ? AND deleted_flag = 0`, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) MemberAssociation(ctx context.Context, conn db.DBTX, memberID int64) (int64, error) {
	var assoc int64
	err := conn.QueryRowContext(ctx,
		`SELECT association_id FROM members WHERE member_id = ? AND deleted_flag = 0`, memberID).Scan(&assoc)
	return assoc, err
}
