package associations

import (
	"context"
	"database/sql"
	"strings"

	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/web"
)

type Store struct {
	db db.DBTX
}

func NewStore(conn db.DBTX) *Store { return &Store{db: conn} }

const selectCols = `
	a.association_id, a.name, a.short_name, a.register_number, a.tax_number,
	a.founded_on, a.purpose, a.email, a.phone, a.website, a.chairperson,
	a.sepa_creditor_id,
	(SELECT COUNT(*) FROM members m
	  WHERE m.association_id = a.association_id AND m.status = 'AKTIV' AND m.deleted_flag = 0),
	a.created_at, a.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAssociation(r scanner) (*Association, error) {
	var a Association
	err := r.Scan(
		&a.AssociationID, &a.Name, &a.ShortName, &a.RegisterNumber, &a.TaxNumber,
		&a.FoundedOn, &a.Purpose, &a.Email, &a.Phone, &a.Website, &a.Chairperson,
		&a.SEPACreditorID, &a.ActiveMembers, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) Insert(ctx context.Context, a *Association) (int64, error) {
	const q = `
	INSERT INTO associations
	(name, short_name, register_number, tax_number, founded_on, purpose,
	 email, phone, website, chairperson, sepa_creditor_id)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, q,
		a.Name, a.ShortName, a.RegisterNumber, a.TaxNumber, a.FoundedOn, a.Purpose,
		a.Email, a.Phone, a.Website, a.Chairperson, a.SEPACreditorID,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetByID(ctx context.Context, id int64) (*Association, error) {
	q := `SELECT ` + selectCols + ` FROM associations a WHERE a.association_id = ? AND a.deleted_flag = 0`
	return scanAssociation(s.db.QueryRowContext(ctx, q, id))
}

func (s *Store) List(ctx context.Context, q SearchQuery, scope *int64, p web.Page) ([]Association, int64, error) {
	var where strings.Builder
	args := []any{}
	where.WriteString(" WHERE a.deleted_flag = 0")
	if scope != nil {
		where.WriteString(" AND a.association_id = ?")
		args = append(args, *scope)
	}
	if q.Name != nil {
		where.WriteString(" AND (a.name LIKE ? OR a.short_name LIKE ?)")
		like := "%" + *q.Name + "%"
		args = append(args, like, like)
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM associations a`+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + selectCols + ` FROM associations a` + where.String() +
		` ORDER BY a.name ` + p.SQLOrder() + `, a.association_id LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Association, 0, p.Limit)
	for rows.Next() {
		a, err := scanAssociation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

// Update applies the non-nil fields of in. Returns sql.ErrNoRows when the row
// does not exist.
func (s *Store) Update(ctx context.Context, id int64, in UpdateAssociationRequest, foundedOn sql.NullTime) error {
	sets := []string{}
	args := []any{}
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if in.Name != nil {
		add("name", strings.TrimSpace(*in.Name))
	}
	if in.ShortName != nil {
		add("short_name", db.NullString(in.ShortName))
	}
	if in.RegisterNumber != nil {
		add("register_number", db.NullString(in.RegisterNumber))
	}
	if in.TaxNumber != nil {
		add("tax_number", db.NullString(in.TaxNumber))
	}
	if in.FoundedOn != nil {
		add("founded_on", foundedOn)
	}
	if in.Purpose != nil {
		add("purpose", db.NullString(in.Purpose))
	}
	if in.Email != nil {
		add("email", db.NullString(in.Email))
	}
	if in.Phone != nil {
		add("phone", db.NullString(in.Phone))
	}
	if in.Website != nil {
		add("website", db.NullString(in.Website))
	}
	if in.Chairperson != nil {
		add("chairperson", db.NullString(in.Chairperson))
	}
	if in.SEPACreditorID != nil {
		add("sepa_creditor_id", db.NullString(in.SEPACreditorID))
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP(6)")

	q := `UPDATE associations SET ` + strings.Join(sets, ", ") + ` WHERE association_id = ? AND deleted_flag = 0`
	res, err := s.db.ExecContext(ctx, q, append(args, id)...)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		// MySQL reports 0 for unchanged rows too, so check existence.
		var one int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM associations WHERE association_id = ? AND deleted_flag = 0`, id).Scan(&one)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) CountActiveMembers(ctx context.Context, id int64) (int64, error) {
	const q = `SELECT COUNT(*) FROM members WHERE association_id = ? AND status = 'AKTIV' AND deleted_flag = 0`
	var n int64
	err := s.db.QueryRowContext(ctx, q, id).Scan(&n)
	return n, err
}

func (s *Store) SoftDelete(ctx context.Context, id int64) error {
	const q = `UPDATE associations SET deleted_flag = 1, updated_at = CURRENT_TIMESTAMP(6) WHERE association_id = ? AND deleted_flag = 0`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return sql.ErrNoRows
	}
	return nil
}
