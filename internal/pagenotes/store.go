package pagenotes

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
	note_id, page_url, page_title, entity_type, entity_id, title, content, category, priority,
	user_id, user_email, status, completed_by, completed_at, admin_notes, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(r scanner) (*Note, error) {
	var n Note
	err := r.Scan(&n.NoteID, &n.PageURL, &n.PageTitle, &n.EntityType, &n.EntityID, &n.Title, &n.Content, &n.Category, &n.Priority,
		&n.UserID, &n.UserEmail, &n.Status, &n.CompletedBy, &n.CompletedAt, &n.AdminNotes, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Store) GetByID(ctx context.Context, conn db.DBTX, id int64) (*Note, error) {
	q := `SELECT ` + selectCols + ` FROM page_notes WHERE note_id = ? AND deleted_flag = 0`
	return scanNote(conn.QueryRowContext(ctx, q, id))
}

func (s *Store) List(ctx context.Context, conn db.DBTX, q SearchQuery, p web.Page) ([]Note, int64, error) {
	var where strings.Builder
	args := []any{}
	where.WriteString(" WHERE deleted_flag = 0")
	add := func(cond string, v any) {
		where.WriteString(" AND " + cond + " = ?")
		args = append(args, v)
	}
	if q.Status != nil {
		add("status", *q.Status)
	}
	if q.Category != nil {
		add("category", *q.Category)
	}
	if q.Priority != nil {
		add("priority", *q.Priority)
	}
	if q.PageURL != nil {
		add("page_url", *q.PageURL)
	}
	if q.UserID != nil {
		add("user_id", *q.UserID)
	}
	if q.EntityType != nil {
		add("entity_type", *q.EntityType)
	}
	if q.EntityID != nil {
		add("entity_id", *q.EntityID)
	}

	var total int64
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM page_notes`+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + selectCols + ` FROM page_notes` + where.String() +
		` ORDER BY created_at ` + p.SQLOrder() + `, note_id ` + p.SQLOrder() + ` LIMIT ? OFFSET ?`
	rows, err := conn.QueryContext(ctx, query, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]Note, 0, p.Limit)
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *n)
	}
	return out, total, rows.Err()
}

func (s *Store) Insert(ctx context.Context, conn db.DBTX, n *Note) (int64, error) {
	const q = `
	INSERT INTO page_notes (page_url, page_title, entity_type, entity_id, title, content, category, priority, user_id, user_email)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := conn.ExecContext(ctx, q, n.PageURL, n.PageTitle, n.EntityType, n.EntityID, n.Title, n.Content,
		n.Category, n.Priority, n.UserID, n.UserEmail)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) Update(ctx context.Context, conn db.DBTX, n *Note, at time.Time) error {
	const q = `
	UPDATE page_notes SET title = ?, content = ?, category = ?, priority = ?, updated_at = ?
	WHERE note_id = ? AND deleted_flag = 0 AND status IN ('Pending', 'InProgress')`
	res, err := conn.ExecContext(ctx, q, n.Title, n.Content, n.Category, n.Priority, at, n.NoteID)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetStatus records the triage result. completed_by/at stay empty while the
// note is still open.
func (s *Store) SetStatus(ctx context.Context, conn db.DBTX, id int64, status string, notes sql.NullString,
	by sql.NullString, at time.Time) error {
	const q = `
	UPDATE page_notes SET status = ?, admin_notes = COALESCE(?, admin_notes),
	  completed_by = ?, completed_at = ?, updated_at = ?
	WHERE note_id = ? AND deleted_flag = 0`
	var doneAt sql.NullTime
	if by.Valid {
		doneAt = sql.NullTime{Time: at, Valid: true}
	}
	res, err := conn.ExecContext(ctx, q, status, notes, by, doneAt, at, id)
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
		`UPDATE page_notes SET deleted_flag = 1, updated_at = CURRENT_TIMESTAMP(6) WHERE note_id = ? AND deleted_flag = 0`, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountBy groups live notes by one of status, category or priority.
func (s *Store) CountBy(ctx context.Context, conn db.DBTX, column string) (map[string]int64, error) {
	switch column {
	case "status", "category", "priority":
	default:
		panic("pagenotes: cannot group by " + column)
	}
	rows, err := conn.QueryContext(ctx,
		`SELECT `+column+`, COUNT(*) FROM page_notes WHERE deleted_flag = 0 GROUP BY `+column)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var k string
		var n int64
		if err := rows.Scan(&k, &n); err != nil {
			return nil, err
		}
		out[k] = n
	}
	return out, rows.Err()
}

func (s *Store) CountByUser(ctx context.Context, conn db.DBTX, limit int) ([]UserCount, error) {
	const q = `
	SELECT user_id, MAX(user_email), COUNT(*) AS n FROM page_notes
	WHERE deleted_flag = 0
	GROUP BY user_id
	ORDER BY n DESC, user_id
	LIMIT ?`
	rows, err := conn.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []UserCount{}
	for rows.Next() {
		var u UserCount
		var email sql.NullString
		if err := rows.Scan(&u.UserID, &email, &u.Count); err != nil {
			return nil, err
		}
		u.UserEmail = db.StringPtr(email)
		out = append(out, u)
	}
	return out, rows.Err()
}
