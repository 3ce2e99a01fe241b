package events

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

// ===== events =====

const eventCols = `
	e.event_id, e.association_id, e.title, e.description, e.starts_at, e.ends_at, e.location, e.price,
	e.max_participants, e.members_only, e.registration_required, e.created_at, e.updated_at,
	COALESCE((SELECT SUM(r.participants) FROM event_registrations r WHERE r.event_id = e.event_id AND r.status = 'ANGEMELDET'), 0),
	COALESCE((SELECT SUM(r.participants) FROM event_registrations r WHERE r.event_id = e.event_id AND r.status = 'WARTELISTE'), 0)`

func scanEvent(r scanner) (*Event, error) {
	var e Event
	err := r.Scan(&e.EventID, &e.AssociationID, &e.Title, &e.Description, &e.StartsAt, &e.EndsAt, &e.Location, &e.Price,
		&e.MaxParticipants, &e.MembersOnly, &e.RegistrationRequired, &e.CreatedAt, &e.UpdatedAt,
		&e.Participants, &e.Waitlisted)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) GetEvent(ctx context.Context, conn db.DBTX, id int64) (*Event, error) {
	q := `SELECT ` + eventCols + ` FROM events e WHERE e.event_id = ? AND e.deleted_flag = 0`
	return scanEvent(conn.QueryRowContext(ctx, q, id))
}

// LockEvent serialises registrations of one event.
func (s *Store) LockEvent(ctx context.Context, tx db.DBTX, id int64) (*Event, error) {
	var locked int64
	if err := tx.QueryRowContext(ctx,
		`SELECT event_id FROM events WHERE event_id = ? AND deleted_flag = 0 FOR UPDATE`, id).Scan(&locked); err != nil {
		return nil, err
	}
	return s.GetEvent(ctx, tx, id)
}

func (s *Store) ListEvents(ctx context.Context, conn db.DBTX, q EventQuery, now time.Time, p web.Page) ([]Event, int64, error) {
	var where strings.Builder
	args := []any{}
	where.WriteString(" WHERE e.deleted_flag = 0")
	if q.AssociationID != nil {
		where.WriteString(" AND e.association_id = ?")
		args = append(args, *q.AssociationID)
	}
	if q.From != nil {
		where.WriteString(" AND e.starts_at >= ?")
		args = append(args, *q.From)
	}
	if q.To != nil {
		where.WriteString(" AND e.starts_at < DATE_ADD(?, INTERVAL 1 DAY)")
		args = append(args, *q.To)
	}
	if q.Upcoming {
		where.WriteString(" AND e.starts_at >= ?")
		args = append(args, now)
	}
	var total int64
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM events e`+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + eventCols + ` FROM events e` + where.String() +
		` ORDER BY e.starts_at ` + p.SQLOrder() + `, e.event_id ` + p.SQLOrder() + ` LIMIT ? OFFSET ?`
	rows, err := conn.QueryContext(ctx, query, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]Event, 0, p.Limit)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *e)
	}
	return out, total, rows.Err()
}

func (s *Store) InsertEvent(ctx context.Context, conn db.DBTX, e *Event) (int64, error) {
	const q = `
	INSERT INTO events (association_id, title, description, starts_at, ends_at, location, price,
	  max_participants, members_only, registration_required)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := conn.ExecContext(ctx, q, e.AssociationID, e.Title, e.Description, e.StartsAt, e.EndsAt, e.Location, e.Price,
		e.MaxParticipants, e.MembersOnly, e.RegistrationRequired)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) UpdateEvent(ctx context.Context, tx db.DBTX, e *Event) error {
	const q = `
	UPDATE events SET title = ?, description = ?, starts_at = ?, ends_at = ?, location = ?, price = ?,
	  max_participants = ?, members_only = ?, registration_required = ?, updated_at = CURRENT_TIMESTAMP(6)
	WHERE event_id = ? AND deleted_flag = 0`
	_, err := tx.ExecContext(ctx, q, e.Title, e.Description, e.StartsAt, e.EndsAt, e.Location, e.Price,
		e.MaxParticipants, e.MembersOnly, e.RegistrationRequired, e.EventID)
	return err
}

func (s *Store) SoftDeleteEvent(ctx context.Context, conn db.DBTX, id int64) error {
	res, err := conn.ExecContext(ctx,
		`UPDATE events SET deleted_flag = 1, updated_at = CURRENT_TIMESTAMP(6) WHERE event_id = ? AND deleted_flag = 0`, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ===== registrations =====

const regCols = `
	registration_id, event_id, member_id, name, email, phone, participants, note, status, claim_id,
	registered_at, cancelled_at, cancel_reason`

func scanRegistration(r scanner) (*Registration, error) {
	var g Registration
	err := r.Scan(&g.RegistrationID, &g.EventID, &g.MemberID, &g.Name, &g.Email, &g.Phone, &g.Participants, &g.Note,
		&g.Status, &g.ClaimID, &g.RegisteredAt, &g.CancelledAt, &g.CancelReason)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) queryRegistrations(ctx context.Context, conn db.DBTX, q string, args ...any) ([]Registration, error) {
	rows, err := conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Registration{}
	for rows.Next() {
		g, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (s *Store) GetRegistration(ctx context.Context, conn db.DBTX, id int64) (*Registration, error) {
	q := `SELECT ` + regCols + ` FROM event_registrations WHERE registration_id = ?`
	return scanRegistration(conn.QueryRowContext(ctx, q, id))
}

func (s *Store) ListRegistrations(ctx context.Context, conn db.DBTX, eventID int64, status *string) ([]Registration, error) {
	q := `SELECT ` + regCols + ` FROM event_registrations WHERE event_id = ?`
	args := []any{eventID}
	if status != nil {
		q += ` AND status = ?`
		args = append(args, *status)
	}
	return s.queryRegistrations(ctx, conn, q+` ORDER BY registered_at, registration_id`, args...)
}

func (s *Store) MemberRegistrations(ctx context.Context, conn db.DBTX, memberID int64) ([]Registration, error) {
	q := `SELECT ` + regCols + ` FROM event_registrations WHERE member_id = ? ORDER BY registered_at DESC, registration_id DESC`
	return s.queryRegistrations(ctx, conn, q, memberID)
}

// Waitlist returns waiting registrations, oldest first.
func (s *Store) Waitlist(ctx context.Context, tx db.DBTX, eventID int64) ([]Registration, error) {
	q := `SELECT ` + regCols + ` FROM event_registrations WHERE event_id = ? AND status = 'WARTELISTE' ORDER BY registered_at, registration_id`
	return s.queryRegistrations(ctx, tx, q, eventID)
}

func (s *Store) IsRegistered(ctx context.Context, tx db.DBTX, eventID, memberID int64) (bool, error) {
	var n int64
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_registrations WHERE event_id = ? AND member_id = ? AND status <> 'STORNIERT'`,
		eventID, memberID).Scan(&n)
	return n > 0, err
}

func (s *Store) InsertRegistration(ctx context.Context, tx db.DBTX, g *Registration) (int64, error) {
	const q = `
	INSERT INTO event_registrations (event_id, member_id, name, email, phone, participants, note, status, claim_id, registered_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, g.EventID, g.MemberID, g.Name, g.Email, g.Phone, g.Participants, g.Note, g.Status,
		g.ClaimID, g.RegisteredAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) Confirm(ctx context.Context, tx db.DBTX, id int64, claimID sql.NullInt64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE event_registrations SET status = 'ANGEMELDET', claim_id = ? WHERE registration_id = ?`, claimID, id)
	return err
}

func (s *Store) Cancel(ctx context.Context, tx db.DBTX, id int64, reason sql.NullString, at time.Time) error {
	const q = `
	UPDATE event_registrations SET status = 'STORNIERT', cancelled_at = ?, cancel_reason = ?
	WHERE registration_id = ? AND status <> 'STORNIERT'`
	_, err := tx.ExecContext(ctx, q, at, reason, id)
	return err
}

// Owner returns the association of the registration's event and its member (0 for guests).
func (s *Store) Owner(ctx context.Context, conn db.DBTX, registrationID int64) (int64, int64, error) {
	const q = `
	SELECT e.association_id, COALESCE(r.member_id, 0)
	FROM event_registrations r JOIN events e ON e.event_id = r.event_id
	WHERE r.registration_id = ?`
	var assoc, member int64
	err := conn.QueryRowContext(ctx, q, registrationID).Scan(&assoc, &member)
	return assoc, member, err
}

// ===== payments =====

const paymentCols = `
	ep.event_payment_id, ep.event_id, ep.registration_id, ep.member_id, ep.name, ep.email, ep.amount,
	ep.currency, ep.paid_on, ep.method, ep.reference, ep.note, ep.payment_id, ep.entry_id,
	ep.created_at, ep.created_by, p.status`

const paymentFrom = `
	FROM event_payments ep
	LEFT JOIN payments p ON p.payment_id = ep.payment_id`

func scanPayment(r scanner) (*EventPayment, error) {
	var p EventPayment
	err := r.Scan(&p.EventPaymentID, &p.EventID, &p.RegistrationID, &p.MemberID, &p.Name, &p.Email, &p.Amount,
		&p.Currency, &p.PaidOn, &p.Method, &p.Reference, &p.Note, &p.PaymentID, &p.EntryID,
		&p.CreatedAt, &p.CreatedBy, &p.PaymentStatus)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetPayment(ctx context.Context, conn db.DBTX, id int64) (*EventPayment, error) {
	q := `SELECT ` + paymentCols + paymentFrom + ` WHERE ep.event_payment_id = ? AND ep.deleted_flag = 0`
	return scanPayment(conn.QueryRowContext(ctx, q, id))
}

func (s *Store) ListPayments(ctx context.Context, conn db.DBTX, eventID int64) ([]EventPayment, error) {
	q := `SELECT ` + paymentCols + paymentFrom + `
	WHERE ep.event_id = ? AND ep.deleted_flag = 0
	ORDER BY ep.paid_on, ep.event_payment_id`
	rows, err := conn.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []EventPayment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) InsertPayment(ctx context.Context, tx db.DBTX, p *EventPayment) (int64, error) {
	const q = `
	INSERT INTO event_payments
	(event_id, registration_id, member_id, name, email, amount, currency, paid_on, method,
	 reference, note, payment_id, entry_id, created_by)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, p.EventID, p.RegistrationID, p.MemberID, p.Name, p.Email, p.Amount,
		p.Currency, p.PaidOn, p.Method, p.Reference, p.Note, p.PaymentID, p.EntryID, p.CreatedBy)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) SoftDeletePayment(ctx context.Context, conn db.DBTX, id int64) error {
	res, err := conn.ExecContext(ctx,
		`UPDATE event_payments SET deleted_flag = 1 WHERE event_payment_id = ? AND deleted_flag = 0`, id)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PaymentOwner returns the association of the payment's event.
func (s *Store) PaymentOwner(ctx context.Context, conn db.DBTX, id int64) (int64, error) {
	var assoc int64
	err := conn.QueryRowContext(ctx, `
	SELECT e.association_id
	FROM event_payments ep JOIN events e ON e.event_id = ep.event_id
	WHERE ep.event_payment_id = ? AND ep.deleted_flag = 0`, id).Scan(&assoc)
	return assoc, err
}

func (s *Store) PaymentTotal(ctx context.Context, conn db.DBTX, eventID int64) (EventPaymentTotal, error) {
	t := EventPaymentTotal{EventID: eventID}
	err := conn.QueryRowContext(ctx, `
	SELECT COALESCE(SUM(ep.amount), 0), COUNT(*),
	       COALESCE(SUM(CASE WHEN ep.member_id IS NOT NULL THEN ep.amount END), 0),
	       COALESCE(SUM(CASE WHEN ep.member_id IS NULL THEN ep.amount END), 0)`+paymentFrom+`
	WHERE ep.event_id = ? AND ep.deleted_flag = 0 AND (p.status IS NULL OR p.status <> 'STORNIERT')`,
		eventID).Scan(&t.Total, &t.Payments, &t.Members, &t.Guests)
	return t, err
}
