package letters

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

type scanner interface {
	Scan(dest ...any) error
}

// ===== templates =====

const templateCols = `
	template_id, association_id, name, description, subject, body, category, is_system, is_active,
	created_at, updated_at`

func scanTemplate(r scanner) (*Template, error) {
	var t Template
	err := r.Scan(&t.TemplateID, &t.AssociationID, &t.Name, &t.Description, &t.Subject, &t.Body, &t.Category,
		&t.IsSystem, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) GetTemplate(ctx context.Context, conn db.DBTX, id int64) (*Template, error) {
	q := `SELECT ` + templateCols + ` FROM letter_templates WHERE template_id = ? AND deleted_flag = 0`
	return scanTemplate(conn.QueryRowContext(ctx, q, id))
}

func (s *Store) ListTemplates(ctx context.Context, conn db.DBTX, q TemplateQuery) ([]Template, error) {
	var where strings.Builder
	args := []any{}
	where.WriteString(" WHERE deleted_flag = 0")
	if q.AssociationID != nil {
		where.WriteString(" AND association_id = ?")
		args = append(args, *q.AssociationID)
	}
	if q.Category != nil {
		where.WriteString(" AND category = ?")
		args = append(args, *q.Category)
	}
	if q.ActiveOnly {
		where.WriteString(" AND is_active = 1")
	}
	rows, err := conn.QueryContext(ctx, `SELECT `+templateCols+` FROM letter_templates`+where.String()+` ORDER BY category, name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Store) InsertTemplate(ctx context.Context, conn db.DBTX, t *Template) (int64, error) {
	const q = `
	INSERT INTO letter_templates (association_id, name, description, subject, body, category, is_active)
	VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := conn.ExecContext(ctx, q, t.AssociationID, t.Name, t.Description, t.Subject, t.Body, t.Category, t.IsActive)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) UpdateTemplate(ctx context.Context, conn db.DBTX, t *Template) error {
	const q = `
	UPDATE letter_templates SET name = ?, description = ?, subject = ?, body = ?, category = ?, is_active = ?,
	  updated_at = CURRENT_TIMESTAMP(6)
	WHERE template_id = ? AND deleted_flag = 0`
	_, err := conn.ExecContext(ctx, q, t.Name, t.Description, t.Subject, t.Body, t.Category, t.IsActive, t.TemplateID)
	return err
}

func (s *Store) SoftDeleteTemplate(ctx context.Context, conn db.DBTX, id int64) error {
	res, err := conn.ExecContext(ctx,
		`UPDATE letter_templates SET deleted_flag = 1, updated_at = CURRENT_TIMESTAMP(6) WHERE template_id = ? AND deleted_flag = 0 AND is_system = 0`, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ===== letters =====

const letterCols = `
	b.letter_id, b.letter_ref, b.association_id, b.template_id, b.title, b.subject, b.body, b.status,
	b.sent_at, b.created_at, b.created_by, b.updated_at,
	(SELECT COUNT(*) FROM messages n WHERE n.letter_id = b.letter_id AND n.deleted_flag = 0)`

func scanLetter(r scanner) (*Letter, error) {
	var l Letter
	err := r.Scan(&l.LetterID, &l.LetterRef, &l.AssociationID, &l.TemplateID, &l.Title, &l.Subject, &l.Body, &l.Status,
		&l.SentAt, &l.CreatedAt, &l.CreatedBy, &l.UpdatedAt, &l.Recipients)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) GetLetter(ctx context.Context, conn db.DBTX, id int64) (*Letter, error) {
	q := `SELECT ` + letterCols + ` FROM letters b WHERE b.letter_id = ? AND b.deleted_flag = 0`
	return scanLetter(conn.QueryRowContext(ctx, q, id))
}

func (s *Store) LockLetter(ctx context.Context, tx db.DBTX, id int64) (*Letter, error) {
	var locked int64
	if err := tx.QueryRowContext(ctx,
		`SELECT letter_id FROM letters WHERE letter_id = ? AND deleted_flag = 0 FOR UPDATE`, id).Scan(&locked); err != nil {
		return nil, err
	}
	return s.GetLetter(ctx, tx, id)
}

func (s *Store) ListLetters(ctx context.Context, conn db.DBTX, q LetterQuery, p web.Page) ([]Letter, int64, error) {
	var where strings.Builder
	args := []any{}
	where.WriteString(" WHERE b.deleted_flag = 0")
	if q.AssociationID != nil {
		where.WriteString(" AND b.association_id = ?")
		args = append(args, *q.AssociationID)
	}
	if q.Status != nil {
		where.WriteString(" AND b.status = ?")
		args = append(args, *q.Status)
	}
	var total int64
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM letters b`+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + letterCols + ` FROM letters b` + where.String() +
		` ORDER BY b.created_at ` + p.SQLOrder() + `, b.letter_id ` + p.SQLOrder() + ` LIMIT ? OFFSET ?`
	rows, err := conn.QueryContext(ctx, query, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]Letter, 0, p.Limit)
	for rows.Next() {
		l, err := scanLetter(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *l)
	}
	return out, total, rows.Err()
}

func (s *Store) InsertLetter(ctx context.Context, tx db.DBTX, l *Letter) (int64, error) {
	const q = `
	INSERT INTO letters (letter_ref, association_id, template_id, title, subject, body, status, created_by)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, l.LetterRef, l.AssociationID, l.TemplateID, l.Title, l.Subject, l.Body, l.Status, l.CreatedBy)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) UpdateDraft(ctx context.Context, conn db.DBTX, l *Letter) error {
	const q = `
	UPDATE letters SET template_id = ?, title = ?, subject = ?, body = ?, updated_at = CURRENT_TIMESTAMP(6)
	WHERE letter_id = ? AND deleted_flag = 0 AND status = 'Entwurf'`
	_, err := conn.ExecContext(ctx, q, l.TemplateID, l.Title, l.Subject, l.Body, l.LetterID)
	return err
}

func (s *Store) MarkSent(ctx context.Context, tx db.DBTX, id int64, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE letters SET status = 'Gesendet', sent_at = ?, updated_at = ? WHERE letter_id = ?`, at, at, id)
	return err
}

func (s *Store) SoftDeleteLetter(ctx context.Context, conn db.DBTX, id int64) error {
	res, err := conn.ExecContext(ctx,
		`UPDATE letters SET deleted_flag = 1, updated_at = CURRENT_TIMESTAMP(6) WHERE letter_id = ? AND deleted_flag = 0`, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ===== recipients =====

// Recipients loads the members with their association. Missing or deleted
// members are simply absent from the result.
func (s *Store) Recipients(ctx context.Context, conn db.DBTX, memberIDs []int64) ([]Recipient, error) {
	in, args := db.InClause(memberIDs)
	q := `
	SELECT m.member_id, m.association_id, m.member_number, m.first_name, m.last_name,
	       COALESCE(m.email, ''), m.fee_amount, a.name, COALESCE(a.short_name, '')
	FROM members m
	JOIN associations a ON a.association_id = m.association_id
	WHERE m.member_id IN (` + in + `) AND m.deleted_flag = 0
	ORDER BY m.member_id`
	rows, err := conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Recipient{}
	for rows.Next() {
		var r Recipient
		if err := rows.Scan(&r.MemberID, &r.AssociationID, &r.MemberNumber, &r.FirstName, &r.LastName,
			&r.Email, &r.FeeAmount, &r.AssociationName, &r.AssociationShortName); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Counts(ctx context.Context, conn db.DBTX, associationID int64) (templates, drafts, sent int64, err error) {
	const q = `
	SELECT
	  (SELECT COUNT(*) FROM letter_templates WHERE association_id = ? AND deleted_flag = 0),
	  (SELECT COUNT(*) FROM letters WHERE association_id = ? AND deleted_flag = 0 AND status = 'Entwurf'),
	  (SELECT COUNT(*) FROM letters WHERE association_id = ? AND deleted_flag = 0 AND status = 'Gesendet')`
	err = conn.QueryRowContext(ctx, q, associationID, associationID, associationID).Scan(&templates, &drafts, &sent)
	return
}
