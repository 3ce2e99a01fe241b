package donations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/web"
)

type Store struct{}

func NewStore() *Store { return &Store{} }

const selectCols = `
	protocol_id, association_id, donated_on, purpose, category, amount, recorded_by,
	witness1_name, witness1_signed, witness2_name, witness2_signed, witness3_name, witness3_signed,
	entry_id, note, created_at, created_by, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProtocol(r scanner) (*Protocol, error) {
	var p Protocol
	w := &p.Witnesses
	err := r.Scan(&p.ProtocolID, &p.AssociationID, &p.DonatedOn, &p.Purpose, &p.Category, &p.Amount, &p.RecordedBy,
		&w[0].Name, &w[0].Signed, &w[1].Name, &w[1].Signed, &w[2].Name, &w[2].Signed,
		&p.EntryID, &p.Note, &p.CreatedAt, &p.CreatedBy, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetByID(ctx context.Context, conn db.DBTX, id int64) (*Protocol, error) {
	q := `SELECT ` + selectCols + ` FROM donation_protocols WHERE protocol_id = ? AND deleted_flag = 0`
	return scanProtocol(conn.QueryRowContext(ctx, q, id))
}

func (s *Store) Lock(ctx context.Context, tx db.DBTX, id int64) (*Protocol, error) {
	q := `SELECT ` + selectCols + ` FROM donation_protocols WHERE protocol_id = ? AND deleted_flag = 0 FOR UPDATE`
	return scanProtocol(tx.QueryRowContext(ctx, q, id))
}

func (s *Store) Details(ctx context.Context, conn db.DBTX, protocolID int64) ([]Detail, error) {
	rows, err := conn.QueryContext(ctx,
		`SELECT detail_id, protocol_id, description, unit_value, quantity, total
		FROM donation_details WHERE protocol_id = ? ORDER BY detail_id`, protocolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Detail
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.DetailID, &d.ProtocolID, &d.Description, &d.UnitValue, &d.Quantity, &d.Total); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func searchWhere(q SearchQuery) (string, []any) {
	var where strings.Builder
	args := []any{}
	where.WriteString(" WHERE deleted_flag = 0")
	if q.AssociationID != nil {
		where.WriteString(" AND association_id = ?")
		args = append(args, *q.AssociationID)
	}
	if q.From != nil {
		where.WriteString(" AND donated_on >= ?")
		args = append(args, *q.From)
	}
	if q.To != nil {
		where.WriteString(" AND donated_on <= ?")
		args = append(args, *q.To)
	}
	if q.Category != nil {
		if strings.EqualFold(*q.Category, CategoryOther) {
			where.WriteString(" AND (category IS NULL OR category = ?)")
		} else {
			where.WriteString(" AND category = ?")
		}
		args = append(args, *q.Category)
	}
	return where.String(), args
}

func (s *Store) List(ctx context.Context, conn db.DBTX, q SearchQuery, p web.Page) ([]Protocol, int64, error) {
	where, args := searchWhere(q)
	var total int64
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM donation_protocols`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + selectCols + ` FROM donation_protocols` + where +
		` ORDER BY donated_on ` + p.SQLOrder() + `, protocol_id ` + p.SQLOrder() + ` LIMIT ? OFFSET ?`
	rows, err := conn.QueryContext(ctx, query, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]Protocol, 0, p.Limit)
	for rows.Next() {
		pr, err := scanProtocol(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *pr)
	}
	return out, total, rows.Err()
}

func (s *Store) Insert(ctx context.Context, tx db.DBTX, p *Protocol) (int64, error) {
	const q = `
	INSERT INTO donation_protocols
	(association_id, donated_on, purpose, category, amount, recorded_by,
	 witness1_name, witness2_name, witness3_name, note, created_by)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	w := p.Witnesses
	res, err := tx.ExecContext(ctx, q, p.AssociationID, p.DonatedOn, p.Purpose, p.Category, p.Amount, p.RecordedBy,
		w[0].Name, w[1].Name, w[2].Name, p.Note, p.CreatedBy)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) Update(ctx context.Context, tx db.DBTX, p *Protocol) error {
	const q = `
	UPDATE donation_protocols SET donated_on = ?, purpose = ?, category = ?, amount = ?, recorded_by = ?,
	  witness1_name = ?, witness2_name = ?, witness3_name = ?, note = ?, updated_at = CURRENT_TIMESTAMP(6)
	WHERE protocol_id = ? AND deleted_flag = 0`
	w := p.Witnesses
	_, err := tx.ExecContext(ctx, q, p.DonatedOn, p.Purpose, p.Category, p.Amount, p.RecordedBy,
		w[0].Name, w[1].Name, w[2].Name, p.Note, p.ProtocolID)
	return err
}

// ReplaceDetails drops and re-inserts the detail lines of a protocol.
func (s *Store) ReplaceDetails(ctx context.Context, tx db.DBTX, protocolID int64, details []Detail) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM donation_details WHERE protocol_id = ?`, protocolID); err != nil {
		return err
	}
	return s.InsertDetails(ctx, tx, protocolID, details)
}

func (s *Store) InsertDetails(ctx context.Context, tx db.DBTX, protocolID int64, details []Detail) error {
	for _, d := range details {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO donation_details (protocol_id, description, unit_value, quantity, total) VALUES (?, ?, ?, ?, ?)`,
			protocolID, d.Description, d.UnitValue, d.Quantity, d.Total)
		if err != nil {
			return err
		}
	}
	return nil
}

// Sign marks a witness signature. position is 1..3 and checked by the caller.
func (s *Store) Sign(ctx context.Context, tx db.DBTX, id int64, position int) error {
	q := fmt.Sprintf(`UPDATE donation_protocols SET witness%d_signed = 1, updated_at = CURRENT_TIMESTAMP(6) WHERE protocol_id = ?`, position)
	_, err := tx.ExecContext(ctx, q, id)
	return err
}

func (s *Store) LinkEntry(ctx context.Context, tx db.DBTX, id, entryID int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE donation_protocols SET entry_id = ?, updated_at = CURRENT_TIMESTAMP(6) WHERE protocol_id = ?`, entryID, id)
	return err
}

// EntryLinked reports whether another protocol already uses the entry.
func (s *Store) EntryLinked(ctx context.Context, tx db.DBTX, entryID int64) (bool, error) {
	var n int64
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM donation_protocols WHERE entry_id = ? AND deleted_flag = 0`, entryID).Scan(&n)
	return n > 0, err
}

func (s *Store) SoftDelete(ctx context.Context, tx db.DBTX, id int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE donation_protocols SET deleted_flag = 1, updated_at = CURRENT_TIMESTAMP(6) WHERE protocol_id = ?`, id)
	return err
}

func (s *Store) Total(ctx context.Context, conn db.DBTX, associationID int64, from, to *time.Time) (int64, decimal.Decimal, error) {
	where, args := searchWhere(SearchQuery{AssociationID: &associationID, From: from, To: to})
	var n int64
	var sum decimal.Decimal
	err := conn.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM donation_protocols`+where, args...).Scan(&n, &sum)
	return n, sum, err
}

// ByCategory sums a year's protocols per category. NULL categories count as
// SONSTIGE.
func (s *Store) ByCategory(ctx context.Context, conn db.DBTX, associationID int64, year int) ([]CategoryTotal, error) {
	const q = `
	SELECT COALESCE(category, 'SONSTIGE') AS cat, COUNT(*), COALESCE(SUM(amount), 0)
	FROM donation_protocols
	WHERE association_id = ? AND YEAR(donated_on) = ? AND deleted_flag = 0
	GROUP BY cat
	ORDER BY SUM(amount) DESC, cat`
	rows, err := conn.QueryContext(ctx, q, associationID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CategoryTotal{}
	for rows.Next() {
		var c CategoryTotal
		if err := rows.Scan(&c.Category, &c.Count, &c.Total); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
