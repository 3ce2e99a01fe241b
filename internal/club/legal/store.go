package legal

import (
	"context"
	"database/sql"
	"time"

	"verein-backend/internal/platform/db"
)

type Store struct{}

func NewStore() *Store { return &Store{} }

const selectCols = `
	l.legal_id, l.association_id, l.court_name, l.court_register_number, l.court_city, l.registered_on,
	l.tax_office_name, l.tax_office_number, l.tax_office_city, l.tax_liable, l.tax_exempt,
	l.non_profit, l.non_profit_until, l.register_doc_path, l.non_profit_doc_path, l.tax_return_year,
	l.note, l.created_at, l.updated_at, a.name`

const fromJoined = `
	FROM legal_data l
	JOIN associations a ON a.association_id = l.association_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanLegal(r scanner) (*LegalData, error) {
	var l LegalData
	err := r.Scan(&l.LegalID, &l.AssociationID, &l.CourtName, &l.CourtRegisterNumber, &l.CourtCity, &l.RegisteredOn,
		&l.TaxOfficeName, &l.TaxOfficeNumber, &l.TaxOfficeCity, &l.TaxLiable, &l.TaxExempt,
		&l.NonProfit, &l.NonProfitUntil, &l.RegisterDocPath, &l.NonProfitDocPath, &l.TaxReturnYear,
		&l.Note, &l.CreatedAt, &l.UpdatedAt, &l.AssociationName)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) GetByID(ctx context.Context, conn db.DBTX, id int64) (*LegalData, error) {
	q := `SELECT ` + selectCols + fromJoined + ` WHERE l.legal_id = ? AND l.deleted_flag = 0`
	return scanLegal(conn.QueryRowContext(ctx, q, id))
}

func (s *Store) GetByAssociation(ctx context.Context, conn db.DBTX, associationID int64) (*LegalData, error) {
	q := `SELECT ` + selectCols + fromJoined + ` WHERE l.association_id = ? AND l.deleted_flag = 0`
	return scanLegal(conn.QueryRowContext(ctx, q, associationID))
}

// LockAssociation locks the association row so concurrent creates of the
// same legal record serialise.
func (s *Store) LockAssociation(ctx context.Context, tx db.DBTX, id int64) error {
	var got int64
	return tx.QueryRowContext(ctx,
		`SELECT association_id FROM associations WHERE association_id = ? AND deleted_flag = 0 FOR UPDATE`, id).Scan(&got)
}

// Existing returns the id of any legal record of the association, deleted
// ones included. The unique key spans deleted rows.
func (s *Store) Existing(ctx context.Context, tx db.DBTX, associationID int64) (int64, bool, error) {
	var id int64
	var deleted bool
	err := tx.QueryRowContext(ctx,
		`SELECT legal_id, deleted_flag FROM legal_data WHERE association_id = ?`, associationID).Scan(&id, &deleted)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, !deleted, nil
}

func (s *Store) Insert(ctx context.Context, tx db.DBTX, l *LegalData) (int64, error) {
	const q = `
	INSERT INTO legal_data
	(association_id, court_name, court_register_number, court_city, registered_on,
	 tax_office_name, tax_office_number, tax_office_city, tax_liable, tax_exempt,
	 non_profit, non_profit_until, register_doc_path, non_profit_doc_path, tax_return_year, note)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, l.AssociationID, l.CourtName, l.CourtRegisterNumber, l.CourtCity, l.RegisteredOn,
		l.TaxOfficeName, l.TaxOfficeNumber, l.TaxOfficeCity, l.TaxLiable, l.TaxExempt,
		l.NonProfit, l.NonProfitUntil, l.RegisterDocPath, l.NonProfitDocPath, l.TaxReturnYear, l.Note)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// Update writes all data fields. Revive also clears the deleted flag.
func (s *Store) Update(ctx context.Context, tx db.DBTX, l *LegalData, revive bool) error {
	q := `
	UPDATE legal_data SET court_name = ?, court_register_number = ?, court_city = ?, registered_on = ?,
	  tax_office_name = ?, tax_office_number = ?, tax_office_city = ?, tax_liable = ?, tax_exempt = ?,
	  non_profit = ?, non_profit_until = ?, register_doc_path = ?, non_profit_doc_path = ?, tax_return_year = ?,
	  note = ?, deleted_flag = 0, updated_at = CURRENT_TIMESTAMP(6)
	WHERE legal_id = ?`
	if !revive {
		q += ` AND deleted_flag = 0`
	}
	res, err := tx.ExecContext(ctx, q, l.CourtName, l.CourtRegisterNumber, l.CourtCity, l.RegisteredOn,
		l.TaxOfficeName, l.TaxOfficeNumber, l.TaxOfficeCity, l.TaxLiable, l.TaxExempt,
		l.NonProfit, l.NonProfitUntil, l.RegisterDocPath, l.NonProfitDocPath, l.TaxReturnYear,
		l.Note, l.LegalID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) SoftDelete(ctx context.Context, conn db.DBTX, id int64) error {
	res, err := conn.ExecContext(ctx,
		`UPDATE legal_data SET deleted_flag = 1, updated_at = CURRENT_TIMESTAMP(6) WHERE legal_id = ? AND deleted_flag = 0`, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Expiring lists recognised non-profit records ending on or before the
// threshold, soonest first.
func (s *Store) Expiring(ctx context.Context, conn db.DBTX, threshold time.Time, associationID *int64) ([]LegalData, error) {
	q := `SELECT ` + selectCols + fromJoined + `
	WHERE l.deleted_flag = 0 AND a.deleted_flag = 0 AND l.non_profit = 1
	  AND l.non_profit_until IS NOT NULL AND l.non_profit_until <= ?`
	args := []any{threshold}
	if associationID != nil {
		q += ` AND l.association_id = ?`
		args = append(args, *associationID)
	}
	rows, err := conn.QueryContext(ctx, q+` ORDER BY l.non_profit_until, l.legal_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []LegalData{}
	for rows.Next() {
		l, err := scanLegal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}
