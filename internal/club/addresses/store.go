package addresses

import (
	"context"
	"database/sql"
	"strings"

	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/web"
)

type Store struct{}

func NewStore() *Store { return &Store{} }

const selectCols = `
	address_id, association_id, member_id, address_type, street, house_number, address_extra,
	postal_code, city, district, state, country, po_box, phone, fax, email, contact_person, note,
	latitude, longitude, valid_from, valid_to, is_default, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAddress(r scanner) (*Address, error) {
	var a Address
	err := r.Scan(&a.AddressID, &a.AssociationID, &a.MemberID, &a.AddressType, &a.Street, &a.HouseNumber, &a.AddressExtra,
		&a.PostalCode, &a.City, &a.District, &a.State, &a.Country, &a.POBox, &a.Phone, &a.Fax, &a.Email, &a.ContactPerson, &a.Note,
		&a.Latitude, &a.Longitude, &a.ValidFrom, &a.ValidTo, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) GetByID(ctx context.Context, conn db.DBTX, id int64) (*Address, error) {
	q := `SELECT ` + selectCols + ` FROM addresses WHERE address_id = ? AND deleted_flag = 0`
	return scanAddress(conn.QueryRowContext(ctx, q, id))
}

func (s *Store) LockByID(ctx context.Context, tx db.DBTX, id int64) (*Address, error) {
	q := `SELECT ` + selectCols + ` FROM addresses WHERE address_id = ? AND deleted_flag = 0 FOR UPDATE`
	return scanAddress(tx.QueryRowContext(ctx, q, id))
}

func (s *Store) LockAssociation(ctx context.Context, tx db.DBTX, id int64) error {
	var got int64
	return tx.QueryRowContext(ctx,
		`SELECT association_id FROM associations WHERE association_id = ? AND deleted_flag = 0 FOR UPDATE`, id).Scan(&got)
}

func ownerWhere(where *strings.Builder, assoc int64, member sql.NullInt64) []any {
	where.WriteString(" WHERE association_id = ? AND member_id <=> ? AND deleted_flag = 0")
	return []any{assoc, member}
}

func (s *Store) List(ctx context.Context, conn db.DBTX, q SearchQuery, p web.Page) ([]Address, int64, error) {
	var where strings.Builder
	args := []any{}
	where.WriteString(" WHERE deleted_flag = 0")
	if q.AssociationID != nil {
		where.WriteString(" AND association_id = ?")
		args = append(args, *q.AssociationID)
	}
	if q.MemberID != nil {
		where.WriteString(" AND member_id = ?")
		args = append(args, *q.MemberID)
	} else {
		where.WriteString(" AND member_id IS NULL")
	}
	if q.AddressType != nil {
		where.WriteString(" AND address_type = ?")
		args = append(args, *q.AddressType)
	}
	var total int64
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM addresses`+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + selectCols + ` FROM addresses` + where.String() +
		` ORDER BY is_default DESC, address_id ` + p.SQLOrder() + ` LIMIT ? OFFSET ?`
	rows, err := conn.QueryContext(ctx, query, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]Address, 0, p.Limit)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

// Default returns the default address of an owner, or the oldest one when
// none is flagged.
func (s *Store) Default(ctx context.Context, conn db.DBTX, assoc int64, member sql.NullInt64) (*Address, error) {
	var where strings.Builder
	args := ownerWhere(&where, assoc, member)
	q := `SELECT ` + selectCols + ` FROM addresses` + where.String() + ` ORDER BY is_default DESC, address_id LIMIT 1`
	return scanAddress(conn.QueryRowContext(ctx, q, args...))
}

func (s *Store) CountForOwner(ctx context.Context, tx db.DBTX, assoc int64, member sql.NullInt64) (int64, error) {
	var where strings.Builder
	args := ownerWhere(&where, assoc, member)
	var n int64
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM addresses`+where.String(), args...).Scan(&n)
	return n, err
}

// ClearDefault drops the default flag of every address of the owner.
func (s *Store) ClearDefault(ctx context.Context, tx db.DBTX, assoc int64, member sql.NullInt64) error {
	var where strings.Builder
	args := ownerWhere(&where, assoc, member)
	_, err := tx.ExecContext(ctx, `UPDATE addresses SET is_default = 0`+where.String()+` AND is_default = 1`, args...)
	return err
}

func (s *Store) SetDefault(ctx context.Context, tx db.DBTX, id int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE addresses SET is_default = 1, updated_at = CURRENT_TIMESTAMP(6) WHERE address_id = ?`, id)
	return err
}

func (s *Store) Insert(ctx context.Context, tx db.DBTX, a *Address) (int64, error) {
	const q = `
	INSERT INTO addresses
	(association_id, member_id, address_type, street, house_number, address_extra, postal_code, city,
	 district, state, country, po_box, phone, fax, email, contact_person, note, latitude, longitude,
	 valid_from, valid_to, is_default)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		a.AssociationID, a.MemberID, a.AddressType, a.Street, a.HouseNumber, a.AddressExtra, a.PostalCode, a.City,
		a.District, a.State, a.Country, a.POBox, a.Phone, a.Fax, a.Email, a.ContactPerson, a.Note, a.Latitude, a.Longitude,
		a.ValidFrom, a.ValidTo, a.IsDefault,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Update replaces the address data. The owner never changes.
func (s *Store) Update(ctx context.Context, tx db.DBTX, a *Address) error {
	const q = `
	UPDATE addresses SET address_type = ?, street = ?, house_number = ?, address_extra = ?, postal_code = ?, city = ?,
	  district = ?, state = ?, country = ?, po_box = ?, phone = ?, fax = ?, email = ?, contact_person = ?, note = ?,
	  latitude = ?, longitude = ?, valid_from = ?, valid_to = ?, is_default = ?, updated_at = CURRENT_TIMESTAMP(6)
	WHERE address_id = ? AND deleted_flag = 0`
	_, err := tx.ExecContext(ctx, q,
		a.AddressType, a.Street, a.HouseNumber, a.AddressExtra, a.PostalCode, a.City,
		a.District, a.State, a.Country, a.POBox, a.Phone, a.Fax, a.Email, a.ContactPerson, a.Note,
		a.Latitude, a.Longitude, a.ValidFrom, a.ValidTo, a.IsDefault, a.AddressID,
	)
	return err
}

func (s *Store) SoftDelete(ctx context.Context, conn db.DBTX, id int64) error {
	res, err := conn.ExecContext(ctx,
		`UPDATE addresses SET deleted_flag = 1, is_default = 0, updated_at = CURRENT_TIMESTAMP(6) WHERE address_id = ? AND deleted_flag = 0`, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}
