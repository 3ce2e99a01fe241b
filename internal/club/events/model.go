package events

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/db"
)

type Event struct {
	EventID              int64
	AssociationID        int64
	Title                string
	Description          sql.NullString
	StartsAt             time.Time
	EndsAt               sql.NullTime
	Location             sql.NullString
	Price                decimal.NullDecimal
	MaxParticipants      sql.NullInt32
	MembersOnly          bool
	RegistrationRequired bool
	CreatedAt            time.Time
	UpdatedAt            sql.NullTime

	// joined
	Participants int
	Waitlisted   int
}

// Free returns the open places, or -1 when the event has no limit.
func (e *Event) Free() int {
	if !e.MaxParticipants.Valid {
		return -1
	}
	f := int(e.MaxParticipants.Int32) - e.Participants
	if f < 0 {
		return 0
	}
	return f
}

// Fits reports whether n more participants can be confirmed.
func (e *Event) Fits(n int) bool {
	free := e.Free()
	return free < 0 || n <= free
}

func (e *Event) priced() bool {
	return e.Price.Valid && e.Price.Decimal.IsPositive()
}

func (e *Event) toResponse() EventResponse {
	r := EventResponse{
		EventID:              e.EventID,
		AssociationID:        e.AssociationID,
		Title:                e.Title,
		Description:          db.StringPtr(e.Description),
		StartsAt:             e.StartsAt,
		EndsAt:               db.TimePtr(e.EndsAt),
		Location:             db.StringPtr(e.Location),
		Price:                db.DecimalPtr(e.Price),
		MaxParticipants:      db.IntPtr(e.MaxParticipants),
		MembersOnly:          e.MembersOnly,
		RegistrationRequired: e.RegistrationRequired,
		Participants:         e.Participants,
		Waitlisted:           e.Waitlisted,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            db.TimePtr(e.UpdatedAt),
	}
	if free := e.Free(); free >= 0 {
		r.FreePlaces = &free
	}
	return r
}

type Registration struct {
	RegistrationID int64
	EventID        int64
	MemberID       sql.NullInt64
	Name           sql.NullString
	Email          sql.NullString
	Phone          sql.NullString
	Participants   int
	Note           sql.NullString
	Status         string
	ClaimID        sql.NullInt64
	RegisteredAt   time.Time
	CancelledAt    sql.NullTime
	CancelReason   sql.NullString
}

func (r *Registration) toResponse() RegistrationResponse {
	return RegistrationResponse{
		RegistrationID: r.RegistrationID,
		EventID:        r.EventID,
		MemberID:       db.Int64Ptr(r.MemberID),
		Name:           db.StringPtr(r.Name),
		Email:          db.StringPtr(r.Email),
		Phone:          db.StringPtr(r.Phone),
		Participants:   r.Participants,
		Note:           db.StringPtr(r.Note),
		Status:         r.Status,
		ClaimID:        db.Int64Ptr(r.ClaimID),
		RegisteredAt:   r.RegisteredAt,
		CancelledAt:    db.TimePtr(r.CancelledAt),
		CancelReason:   db.StringPtr(r.CancelReason),
	}
}

type EventPayment struct {
	EventPaymentID int64
	EventID        int64
	RegistrationID sql.NullInt64
	MemberID       sql.NullInt64
	Name           sql.NullString
	Email          sql.NullString
	Amount         decimal.Decimal
	Currency       string
	PaidOn         time.Time
	Method         string
	Reference      sql.NullString
	Note           sql.NullString
	PaymentID      sql.NullInt64
	EntryID        sql.NullInt64
	CreatedAt      time.Time
	CreatedBy      sql.NullString

	// joined
	PaymentStatus sql.NullString
}

func (p *EventPayment) toResponse() EventPaymentResponse {
	return EventPaymentResponse{
		EventPaymentID: p.EventPaymentID,
		EventID:        p.EventID,
		RegistrationID: db.Int64Ptr(p.RegistrationID),
		MemberID:       db.Int64Ptr(p.MemberID),
		Name:           db.StringPtr(p.Name),
		Email:          db.StringPtr(p.Email),
		Amount:         p.Amount,
		Currency:       p.Currency,
		PaidOn:         p.PaidOn.Format("2006-01-02"),
		Method:         p.Method,
		Reference:      db.StringPtr(p.Reference),
		Note:           db.StringPtr(p.Note),
		PaymentID:      db.Int64Ptr(p.PaymentID),
		PaymentStatus:  db.StringPtr(p.PaymentStatus),
		EntryID:        db.Int64Ptr(p.EntryID),
		CreatedAt:      p.CreatedAt,
		CreatedBy:      db.StringPtr(p.CreatedBy),
	}
}
