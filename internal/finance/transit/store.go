package transit

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/web"
)

type Store struct{}

func NewStore() *Store { return &Store{} }

const selectCols = `
	t.item_id, t.association_id, t.ledger_number, t.title, t.received_on, t.received_amount,
	t.paid_on, t.paid_amount, t.recipient, t.reference, t.status, t.in_entry_id, t.out_entry_id,
	t.note, t.created_at, t.updated_at, l.name`

const fromJoined = `
	FROM transit_items t
	LEFT JOIN ledger_accounts l ON l.number = t.ledger_number`

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(r scanner) (*Item, error) {
	var i Item
	err := r.Scan(&i.ItemID, &i.AssociationID, &i.LedgerNumber, &i.Title, &i.ReceivedOn, &i.ReceivedAmount,
		&i.PaidOn, &i.PaidAmount, &i.Recipient, &i.Reference, &i.Status, &i.InEntryID, &i.OutEntryID,
		&i.Note, &i.CreatedAt, &i.UpdatedAt, &i.LedgerName)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (s *Store) GetByID(ctx context.Context, conn db.DBTX, id int64) (*Item, error) {
	q := `SELECT ` + selectCols + fromJoined + ` WHERE t.item_id = ? AND t.deleted_flag = 0`
	return scanItem(conn.QueryRowContext(ctx, q, id))
}

func (s *Store) Lock(ctx context.Context, tx db.DBTX, id int64) (*Item, error) {
	var got int64
	err := tx.QueryRowContext(ctx,
		`SELECT item_id FROM transit_items WHERE item_id = ? AND deleted_flag = 0 FOR UPDATE`, id).Scan(&got)
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, tx, id)
}

func searchWhere(q SearchQuery) (string, []any) {
	var b strings.Builder
	args := []any{}
	b.WriteString(" WHERE t.deleted_flag = 0")
	if q.AssociationID != nil {
		b.WriteString(" AND t.association_id = ?")
		args = append(args, *q.AssociationID)
	}
	if q.Status != nil {
		b.WriteString(" AND t.status = ?")
		args = append(args, strings.ToUpper(*q.Status))
	}
	if q.LedgerNumber != nil {
		b.WriteString(" AND t.ledger_number = ?")
		args = append(args, *q.LedgerNumber)
	}
	if q.OpenOnly {
		b.WriteString(" AND t.status <> ?")
		args = append(args, StatusClosed)
	}
	return b.String(), args
}

func (s *Store) List(ctx context.Context, conn db.DBTX, q SearchQuery, p web.Page) ([]Item, int64, error) {
	where, args := searchWhere(q)
	var total int64
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM transit_items t`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + selectCols + fromJoined + where +
		` ORDER BY t.received_on ` + p.SQLOrder() + `, t.item_id ` + p.SQLOrder() + ` LIMIT ? OFFSET ?`
	rows, err := conn.QueryContext(ctx, query, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]Item, 0, p.Limit)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *it)
	}
	return out, total, rows.Err()
}

func (s *Store) Insert(ctx context.Context, tx db.DBTX, i *Item) (int64, error) {
	const q = `
	INSERT INTO transit_items
	(association_id, ledger_number, title, received_on, received_amount, recipient, reference, status, in_entry_id, note)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, i.AssociationID, i.LedgerNumber, i.Title, i.ReceivedOn, i.ReceivedAmount,
		i.Recipient, i.Reference, i.Status, i.InEntryID, i.Note)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) Update(ctx context.Context, tx db.DBTX, i *Item) error {
	const q = `
	UPDATE transit_items SET ledger_number = ?, title = ?, received_on = ?, received_amount = ?,
	  paid_on = ?, paid_amount = ?, recipient = ?, reference = ?, status = ?, out_entry_id = ?, note = ?,
	  updated_at = CURRENT_TIMESTAMP(6)
	WHERE item_id = ? AND deleted_flag = 0`
	res, err := tx.ExecContext(ctx, q, i.LedgerNumber, i.Title, i.ReceivedOn, i.ReceivedAmount,
		i.PaidOn, i.PaidAmount, i.Recipient, i.Reference, i.Status, i.OutEntryID, i.Note, i.ItemID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) SoftDelete(ctx context.Context, tx db.DBTX, id int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE transit_items SET deleted_flag = 1, updated_at = CURRENT_TIMESTAMP(6) WHERE item_id = ? AND deleted_flag = 0`, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// OpenTotal sums what is still owed to recipients.
func (s *Store) OpenTotal(ctx context.Context, conn db.DBTX, associationID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := conn.QueryRowContext(ctx, `
	SELECT COALESCE(SUM(received_amount - COALESCE(paid_amount, 0)), 0)
	FROM transit_items
	WHERE association_id = ? AND status <> ? AND deleted_flag = 0`, associationID, StatusClosed).Scan(&total)
	return total, err
}

func (s *Store) ByRecipient(ctx context.Context, conn db.DBTX, associationID int64) ([]RecipientSummary, error) {
	rows, err := conn.QueryContext(ctx, `
	SELECT COALESCE(recipient, ?) AS r,
	       SUM(received_amount), COALESCE(SUM(paid_amount), 0),
	       SUM(received_amount - COALESCE(paid_amount, 0)) AS open_amount, COUNT(*)
	FROM transit_items
	WHERE association_id = ? AND deleted_flag = 0
	GROUP BY r
	ORDER BY open_amount DESC, r`, UnknownRecipient, associationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []RecipientSummary{}
	for rows.Next() {
		var r RecipientSummary
		if err := rows.Scan(&r.Recipient, &r.TotalReceived, &r.TotalPaid, &r.OpenAmount, &r.Items); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
