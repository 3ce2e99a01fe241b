package messages

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/web"
)

type Store struct{}

func NewStore() *Store { return &Store{} }

const selectCols = `
	n.message_id, n.message_ref, n.letter_id, n.association_id, n.member_id, n.subject, n.body,
	n.sent_at, n.is_read, n.read_at, CONCAT(m.first_name, ' ', m.last_name)`

const fromJoin = `
	FROM messages n
	JOIN members m ON m.member_id = n.member_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(r scanner) (*Message, error) {
	var m Message
	err := r.Scan(&m.MessageID, &m.MessageRef, &m.LetterID, &m.AssociationID, &m.MemberID, &m.Subject, &m.Body,
		&m.SentAt, &m.IsRead, &m.ReadAt, &m.MemberName)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// InsertTx writes one message. Letters call it while sending.
func InsertTx(ctx context.Context, tx db.DBTX, m *Message) error {
	const q = `
	INSERT INTO messages (message_ref, letter_id, association_id, member_id, subject, body, sent_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, m.MessageRef, m.LetterID, m.AssociationID, m.MemberID, m.Subject, m.Body, m.SentAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.MessageID = id
	return nil
}

func (s *Store) GetByID(ctx context.Context, conn db.DBTX, id int64) (*Message, error) {
	q := `SELECT ` + selectCols + fromJoin + ` WHERE n.message_id = ? AND n.deleted_flag = 0`
	return scanMessage(conn.QueryRowContext(ctx, q, id))
}

func (s *Store) List(ctx context.Context, conn db.DBTX, q SearchQuery, p web.Page) ([]Message, int64, error) {
	var where strings.Builder
	args := []any{}
	where.WriteString(" WHERE n.deleted_flag = 0")
	if q.AssociationID != nil {
		where.WriteString(" AND n.association_id = ?")
		args = append(args, *q.AssociationID)
	}
	if q.MemberID != nil {
		where.WriteString(" AND n.member_id = ?")
		args = append(args, *q.MemberID)
	}
	if q.LetterID != nil {
		where.WriteString(" AND n.letter_id = ?")
		args = append(args, *q.LetterID)
	}
	if q.UnreadOnly {
		where.WriteString(" AND n.is_read = 0")
	}

	var total int64
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*)`+fromJoin+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + selectCols + fromJoin + where.String() +
		` ORDER BY n.sent_at ` + p.SQLOrder() + `, n.message_id ` + p.SQLOrder() + ` LIMIT ? OFFSET ?`
	rows, err := conn.QueryContext(ctx, query, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]Message, 0, p.Limit)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *m)
	}
	return out, total, rows.Err()
}

func (s *Store) MemberAssociation(ctx context.Context, conn db.DBTX, memberID int64) (int64, error) {
	var id int64
	err := conn.QueryRowContext(ctx, `SELECT association_id FROM members WHERE member_id = ? AND deleted_flag = 0`, memberID).Scan(&id)
	return id, err
}

func (s *Store) UnreadCount(ctx context.Context, conn db.DBTX, memberID int64) (int64, error) {
	var n int64
	err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE member_id = ? AND is_read = 0 AND deleted_flag = 0`, memberID).Scan(&n)
	return n, err
}

// MarkRead is idempotent: an already read message keeps its read_at.
func (s *Store) MarkRead(ctx context.Context, conn db.DBTX, id int64, at time.Time) error {
	const q = `
	UPDATE messages SET is_read = 1, read_at = COALESCE(read_at, ?)
	WHERE message_id = ? AND deleted_flag = 0`
	res, err := conn.ExecContext(ctx, q, at, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		if _, err := s.GetByID(ctx, conn, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) MarkAllRead(ctx context.Context, conn db.DBTX, memberID int64, at time.Time) (int64, error) {
	const q = `
	UPDATE messages SET is_read = 1, read_at = ?
	WHERE member_id = ? AND is_read = 0 AND deleted_flag = 0`
	res, err := conn.ExecContext(ctx, q, at, memberID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) SoftDelete(ctx context.Context, conn db.DBTX, id int64) error {
	res, err := conn.ExecContext(ctx, `UPDATE messages SET deleted_flag = 1 WHERE message_id = ? AND deleted_flag = 0`, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Counts returns total and unread messages of an association.
func (s *Store) Counts(ctx context.Context, conn db.DBTX, associationID int64) (total, unread int64, err error) {
	const q = `
	SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_read = 0 THEN 1 ELSE 0 END), 0)
	FROM messages WHERE association_id = ? AND deleted_flag = 0`
	err = conn.QueryRowContext(ctx, q, associationID).Scan(&total, &unread)
	return
}
