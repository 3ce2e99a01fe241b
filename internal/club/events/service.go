package events

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"verein-backend/internal/finance/allocation"
	"verein-backend/internal/finance/cashbook"
	"verein-backend/internal/finance/claims"
	"verein-backend/internal/finance/payments"
	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/ids"
	"verein-backend/internal/platform/web"
)

type Service struct {
	db       *sql.DB
	store    *Store
	payments *payments.Service
	ids      ids.IDGen
	clock    ids.Clock
}

func NewService(conn *sql.DB, pay *payments.Service) *Service {
	return &Service{db: conn, store: NewStore(), payments: pay, ids: ids.ULIDGen{}, clock: ids.RealClock{}}
}

// ===== events =====

func eventFrom(in EventRequest) (*Event, error) {
	e := &Event{
		AssociationID:        in.AssociationID,
		Title:                strings.TrimSpace(in.Title),
		Description:          db.NullString(in.Description),
		StartsAt:             in.StartsAt,
		EndsAt:               db.NullTime(in.EndsAt),
		Location:             db.NullString(in.Location),
		Price:                db.NullDecimal(in.Price),
		MaxParticipants:      db.NullInt32(in.MaxParticipants),
		MembersOnly:          in.MembersOnly,
		RegistrationRequired: in.RegistrationRequired,
	}
	if e.Title == "" {
		return nil, apierr.Invalid("title is required")
	}
	if e.StartsAt.IsZero() {
		return nil, apierr.Invalid("starts_at is required")
	}
	if e.EndsAt.Valid && e.EndsAt.Time.Before(e.StartsAt) {
		return nil, apierr.Invalid("ends_at is before starts_at")
	}
	if e.Price.Valid && e.Price.Decimal.IsNegative() {
		return nil, apierr.Invalid("price must not be negative")
	}
	if in.MaxParticipants != nil && *in.MaxParticipants < 1 {
		return nil, apierr.Invalid("max_participants must be positive")
	}
	return e, nil
}

func (s *Service) CreateEvent(ctx context.Context, in EventRequest) (EventResponse, error) {
	if in.AssociationID == 0 {
		return EventResponse{}, apierr.Invalid("association_id is required")
	}
	e, err := eventFrom(in)
	if err != nil {
		return EventResponse{}, err
	}
	id, err := s.store.InsertEvent(ctx, s.db, e)
	if err != nil {
		return EventResponse{}, apierr.FromDB(err, "association")
	}
	zerolog.Ctx(ctx).Info().Int64("event_id", id).Str("title", e.Title).Msg("event created")
	return s.GetEvent(ctx, id)
}

func (s *Service) GetEvent(ctx context.Context, id int64) (EventResponse, error) {
	e, err := s.store.GetEvent(ctx, s.db, id)
	if err != nil {
		return EventResponse{}, apierr.FromDB(err, "event")
	}
	return e.toResponse(), nil
}

// EventOwner returns the association of an event for access checks.
func (s *Service) EventOwner(ctx context.Context, id int64) (int64, error) {
	e, err := s.store.GetEvent(ctx, s.db, id)
	if err != nil {
		return 0, apierr.FromDB(err, "event")
	}
	return e.AssociationID, nil
}

func (s *Service) ListEvents(ctx context.Context, q EventQuery, p web.Page) ([]EventResponse, int64, error) {
	rows, total, err := s.store.ListEvents(ctx, s.db, q, s.clock.Now(), p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]EventResponse, len(rows))
	for i := range rows {
		out[i] = rows[i].toResponse()
	}
	return out, total, nil
}

// UpdateEvent replaces the event data. A raised limit confirms waiting
// registrations.
func (s *Service) UpdateEvent(ctx context.Context, id int64, in EventRequest, actor string) (EventResponse, error) {
	upd, err := eventFrom(in)
	if err != nil {
		return EventResponse{}, err
	}
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		cur, err := s.store.LockEvent(ctx, tx, id)
		if err != nil {
			return apierr.FromDB(err, "event")
		}
		if upd.MaxParticipants.Valid && int(upd.MaxParticipants.Int32) < cur.Participants {
			return apierr.Unprocessablef("max_participants is below the %d confirmed participants", cur.Participants)
		}
		upd.EventID, upd.AssociationID = cur.EventID, cur.AssociationID
		upd.Participants, upd.Waitlisted = cur.Participants, cur.Waitlisted
		if err := s.store.UpdateEvent(ctx, tx, upd); err != nil {
			return err
		}
		_, err = s.promote(ctx, tx, upd, actor)
		return err
	})
	if err != nil {
		return EventResponse{}, err
	}
	return s.GetEvent(ctx, id)
}

func (s *Service) DeleteEvent(ctx context.Context, id int64) error {
	e, err := s.store.GetEvent(ctx, s.db, id)
	if err != nil {
		return apierr.FromDB(err, "event")
	}
	if e.Participants > 0 || e.Waitlisted > 0 {
		return apierr.Conflict("event has active registrations")
	}
	return apierr.FromDB(s.store.SoftDeleteEvent(ctx, s.db, id), "event")
}

// ===== registrations =====

func dueDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// charge books the participation fee of a confirmed member registration.
func (s *Service) charge(ctx context.Context, tx db.DBTX, e *Event, memberID int64, participants int, actor string) (sql.NullInt64, error) {
	if !e.priced() {
		return sql.NullInt64{}, nil
	}
	c := &claims.Claim{
		AssociationID: e.AssociationID,
		MemberID:      memberID,
		ClaimNumber:   claims.NewClaimNumber(s.ids),
		ClaimType:     claims.TypeEvent,
		Amount:        e.Price.Decimal.Mul(decimal.NewFromInt(int64(participants))),
		Currency:      "EUR",
		DueDate:       dueDate(e.StartsAt),
		Description:   sql.NullString{String: e.Title, Valid: true},
		CreatedBy:     db.NullString(&actor),
	}
	if err := claims.InsertTx(ctx, tx, c); err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: c.ClaimID, Valid: true}, nil
}

func (s *Service) Register(ctx context.Context, eventID int64, in RegisterRequest, actor string) (RegistrationResponse, error) {
	g := &Registration{
		EventID:      eventID,
		MemberID:     db.NullInt64(in.MemberID),
		Name:         db.NullString(in.Name),
		Email:        db.NullString(in.Email),
		Phone:        db.NullString(in.Phone),
		Participants: 1,
		Note:         db.NullString(in.Note),
		RegisteredAt: s.clock.Now(),
	}
	if in.Participants != nil {
		g.Participants = *in.Participants
	}
	if g.Participants < 1 {
		return RegistrationResponse{}, apierr.Invalid("participants must be at least 1")
	}
	if !g.MemberID.Valid && strings.TrimSpace(g.Name.String) == "" {
		return RegistrationResponse{}, apierr.Invalid("name is required for guests")
	}

	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		e, err := s.store.LockEvent(ctx, tx, eventID)
		if err != nil {
			return apierr.FromDB(err, "event")
		}
		if !e.RegistrationRequired {
			return apierr.Unprocessable("event does not take registrations")
		}
		if !e.StartsAt.After(g.RegisteredAt) {
			return apierr.Unprocessable("event has already started")
		}
		if g.MemberID.Valid {
			assoc, err := claims.LockMemberTx(ctx, tx, g.MemberID.Int64)
			if err != nil {
				return apierr.FromDB(err, "member")
			}
			if assoc != e.AssociationID {
				return apierr.Unprocessable("member belongs to another association")
			}
			dup, err := s.store.IsRegistered(ctx, tx, eventID, g.MemberID.Int64)
			if err != nil {
				return err
			}
			if dup {
				return apierr.Conflict("member is already registered")
			}
		} else if e.MembersOnly {
			return apierr.Unprocessable("event is for members only")
		}

		g.Status = StatusWaitlisted
		if e.Fits(g.Participants) {
			g.Status = StatusRegistered
			if g.MemberID.Valid {
				if g.ClaimID, err = s.charge(ctx, tx, e, g.MemberID.Int64, g.Participants, actor); err != nil {
					return err
				}
			}
		}
		g.RegistrationID, err = s.store.InsertRegistration(ctx, tx, g)
		return err
	})
	if err != nil {
		return RegistrationResponse{}, err
	}
	zerolog.Ctx(ctx).Info().
		Int64("event_id", eventID).
		Int64("registration_id", g.RegistrationID).
		Str("status", g.Status).
		Msg("event registration")
	return s.GetRegistration(ctx, g.RegistrationID)
}

// promote confirms waiting registrations in order of arrival as long as the
// next one fits.
func (s *Service) promote(ctx context.Context, tx db.DBTX, e *Event, actor string) ([]int64, error) {
	waiting, err := s.store.Waitlist(ctx, tx, e.EventID)
	if err != nil {
		return nil, err
	}
	promoted := []int64{}
	for _, w := range waiting {
		if !e.Fits(w.Participants) {
			break
		}
		var claimID sql.NullInt64
		if w.MemberID.Valid {
			if claimID, err = s.charge(ctx, tx, e, w.MemberID.Int64, w.Participants, actor); err != nil {
				return nil, err
			}
		}
		if err := s.store.Confirm(ctx, tx, w.RegistrationID, claimID); err != nil {
			return nil, err
		}
		e.Participants += w.Participants
		e.Waitlisted -= w.Participants
		promoted = append(promoted, w.RegistrationID)
	}
	return promoted, nil
}

// Cancel withdraws a registration. An unpaid event claim is cancelled with
// it; a paid one stays for a manual refund.
func (s *Service) Cancel(ctx context.Context, id int64, reason *string, actor string) (CancelResult, error) {
	var res CancelResult
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		g, err := s.store.GetRegistration(ctx, tx, id)
		if err != nil {
			return apierr.FromDB(err, "registration")
		}
		e, err := s.store.LockEvent(ctx, tx, g.EventID)
		if err != nil {
			return apierr.FromDB(err, "event")
		}
		if g, err = s.store.GetRegistration(ctx, tx, id); err != nil {
			return err
		}
		if g.Status == StatusCancelled {
			return apierr.Conflict("registration is already cancelled")
		}
		if err := s.store.Cancel(ctx, tx, id, db.NullString(reason), s.clock.Now()); err != nil {
			return err
		}
		if g.ClaimID.Valid {
			if res.ClaimCancelled, err = claims.CancelUnpaidTx(ctx, tx, g.ClaimID.Int64, actor); err != nil {
				return err
			}
		}
		res.Promoted = []int64{}
		if g.Status == StatusRegistered {
			e.Participants -= g.Participants
			res.Promoted, err = s.promote(ctx, tx, e, actor)
		}
		return err
	})
	if err != nil {
		return CancelResult{}, err
	}
	if res.Registration, err = s.GetRegistration(ctx, id); err != nil {
		return CancelResult{}, err
	}
	if !res.ClaimCancelled && res.Registration.ClaimID != nil {
		zerolog.Ctx(ctx).Warn().Int64("claim_id", *res.Registration.ClaimID).Msg("event claim already paid, not cancelled")
	}
	return res, nil
}

func (s *Service) GetRegistration(ctx context.Context, id int64) (RegistrationResponse, error) {
	g, err := s.store.GetRegistration(ctx, s.db, id)
	if err != nil {
		return RegistrationResponse{}, apierr.FromDB(err, "registration")
	}
	return g.toResponse(), nil
}

// RegistrationOwner returns association and member (0 for guests).
func (s *Service) RegistrationOwner(ctx context.Context, id int64) (int64, int64, error) {
	assoc, member, err := s.store.Owner(ctx, s.db, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, apierr.NotFound("registration not found")
	}
	return assoc, member, err
}

func (s *Service) ListRegistrations(ctx context.Context, eventID int64, status *string) ([]RegistrationResponse, error) {
	rows, err := s.store.ListRegistrations(ctx, s.db, eventID, status)
	if err != nil {
		return nil, err
	}
	return toResponses(rows), nil
}

func (s *Service) MemberRegistrations(ctx context.Context, memberID int64) ([]RegistrationResponse, error) {
	rows, err := s.store.MemberRegistrations(ctx, s.db, memberID)
	if err != nil {
		return nil, err
	}
	return toResponses(rows), nil
}

func toResponses(rows []Registration) []RegistrationResponse {
	out := make([]RegistrationResponse, len(rows))
	for i := range rows {
		out[i] = rows[i].toResponse()
	}
	return out
}

// ===== payments =====

func paymentMethod(m string) (string, error) {
	m = strings.ToUpper(strings.TrimSpace(m))
	switch m {
	case payments.MethodCash, payments.MethodTransfer, payments.MethodDebit, payments.MethodCard, payments.MethodOther:
		return m, nil
	}
	return "", apierr.Invalid("method must be BAR, UEBERWEISUNG, LASTSCHRIFT, KARTE or SONSTIGE")
}

func eventPaymentFrom(eventID int64, in EventPaymentRequest, actor string) (*EventPayment, error) {
	if err := allocation.CheckAmount(in.Amount); err != nil {
		return nil, apierr.Invalid("amount: " + err.Error())
	}
	paidOn, err := time.Parse(web.DateLayout, strings.TrimSpace(in.PaidOn))
	if err != nil {
		return nil, apierr.Invalid("paid_on must be YYYY-MM-DD")
	}
	method, err := paymentMethod(in.Method)
	if err != nil {
		return nil, err
	}
	p := &EventPayment{
		EventID:        eventID,
		RegistrationID: db.NullInt64(in.RegistrationID),
		MemberID:       db.NullInt64(in.MemberID),
		Name:           db.NullString(in.Name),
		Email:          db.NullString(in.Email),
		Amount:         in.Amount,
		Currency:       "EUR",
		PaidOn:         paidOn,
		Method:         method,
		Reference:      db.NullString(in.Reference),
		Note:           db.NullString(in.Note),
		CreatedBy:      db.NullString(&actor),
	}
	if in.Currency != nil {
		p.Currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
		if len(p.Currency) != 3 {
			return nil, apierr.Invalid("currency must be a 3-letter code")
		}
	}
	if !p.RegistrationID.Valid && !p.MemberID.Valid && !p.Name.Valid {
		return nil, apierr.Invalid("registration_id, member_id or name is required")
	}
	return p, nil
}

// RecordPayment records a payment for an event. A member payment is booked
// against the claim of the member's registration; the remainder becomes
// credit.
func (s *Service) RecordPayment(ctx context.Context, eventID int64, in EventPaymentRequest, actor string) (EventPaymentResponse, error) {
	p, err := eventPaymentFrom(eventID, in, actor)
	if err != nil {
		return EventPaymentResponse{}, err
	}
	ledger := db.NullString(in.LedgerNumber)

	var booked *payments.BookResult
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		e, err := s.store.LockEvent(ctx, tx, eventID)
		if err != nil {
			return apierr.FromDB(err, "event")
		}
		var claimID *int64
		if p.RegistrationID.Valid {
			g, err := s.store.GetRegistration(ctx, tx, p.RegistrationID.Int64)
			if err != nil {
				return apierr.FromDB(err, "registration")
			}
			if g.EventID != eventID {
				return apierr.Unprocessable("registration belongs to another event")
			}
			if g.Status == StatusCancelled {
				return apierr.Unprocessable("registration is cancelled")
			}
			if p.MemberID.Valid && p.MemberID != g.MemberID {
				return apierr.Unprocessable("member_id differs from the registration")
			}
			p.MemberID = g.MemberID
			if !p.Name.Valid {
				p.Name = g.Name
			}
			if !p.Email.Valid {
				p.Email = g.Email
			}
			if g.ClaimID.Valid {
				claimID = &g.ClaimID.Int64
			}
		}

		if p.MemberID.Valid {
			res, err := s.payments.BookTx(ctx, tx, payments.Booking{
				AssociationID:     e.AssociationID,
				MemberID:          p.MemberID.Int64,
				ClaimID:           claimID,
				PaymentType:       claims.TypeEvent,
				Amount:            p.Amount,
				Currency:          p.Currency,
				PaidOn:            p.PaidOn,
				Method:            p.Method,
				Reference:         db.StringPtr(p.Reference),
				Note:              db.StringPtr(p.Note),
				RemainderAsCredit: claimID != nil,
				LedgerNumber:      db.StringPtr(ledger),
				Actor:             actor,
			})
			if err != nil {
				return err
			}
			booked = &res
			p.PaymentID = sql.NullInt64{Int64: res.PaymentID, Valid: true}
			p.EntryID = db.NullInt64(res.EntryID)
		} else {
			if !p.Name.Valid {
				return apierr.Invalid("name is required for guests")
			}
			if ledger.Valid {
				cashIn, bankIn := cashbook.Incoming(p.Method, p.Amount)
				entry := &cashbook.Entry{
					AssociationID: e.AssociationID,
					VoucherDate:   p.PaidOn,
					LedgerNumber:  ledger.String,
					Purpose:       e.Title + " " + p.Name.String,
					CashIn:        cashIn,
					BankIn:        bankIn,
					Method:        sql.NullString{String: p.Method, Valid: true},
					Note:          p.Reference,
					CreatedBy:     p.CreatedBy,
				}
				if err := cashbook.InsertTx(ctx, tx, entry); err != nil {
					return apierr.FromDB(err, "cash book entry")
				}
				p.EntryID = sql.NullInt64{Int64: entry.EntryID, Valid: true}
			}
		}
		p.EventPaymentID, err = s.store.InsertPayment(ctx, tx, p)
		return apierr.FromDB(err, "event payment")
	})
	if err != nil {
		return EventPaymentResponse{}, err
	}
	if booked != nil {
		s.payments.Booked(ctx, *booked, "event")
	}
	zerolog.Ctx(ctx).Info().
		Int64("event_id", eventID).
		Int64("event_payment_id", p.EventPaymentID).
		Str("amount", p.Amount.StringFixed(2)).
		Bool("member", p.MemberID.Valid).
		Msg("event payment recorded")
	return s.GetPayment(ctx, p.EventPaymentID)
}

func (s *Service) GetPayment(ctx context.Context, id int64) (EventPaymentResponse, error) {
	p, err := s.store.GetPayment(ctx, s.db, id)
	if err != nil {
		return EventPaymentResponse{}, apierr.FromDB(err, "event payment")
	}
	return p.toResponse(), nil
}

func (s *Service) PaymentOwner(ctx context.Context, id int64) (int64, error) {
	assoc, err := s.store.PaymentOwner(ctx, s.db, id)
	if err != nil {
		return 0, apierr.FromDB(err, "event payment")
	}
	return assoc, nil
}

func (s *Service) ListPayments(ctx context.Context, eventID int64) ([]EventPaymentResponse, error) {
	rows, err := s.store.ListPayments(ctx, s.db, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]EventPaymentResponse, len(rows))
	for i := range rows {
		out[i] = rows[i].toResponse()
	}
	return out, nil
}

func (s *Service) PaymentTotal(ctx context.Context, eventID int64) (EventPaymentTotal, error) {
	return s.store.PaymentTotal(ctx, s.db, eventID)
}

// DeletePayment removes a guest payment without cash book entry. Booked
// member payments are reversed through the payment instead.
func (s *Service) DeletePayment(ctx context.Context, id int64) error {
	p, err := s.store.GetPayment(ctx, s.db, id)
	if err != nil {
		return apierr.FromDB(err, "event payment")
	}
	if p.PaymentID.Valid {
		return apierr.Conflict("event payment is booked as a payment, reverse that payment instead")
	}
	if p.EntryID.Valid {
		return apierr.Conflict("event payment has a cash book entry")
	}
	if err := s.store.SoftDeletePayment(ctx, s.db, id); err != nil {
		return apierr.FromDB(err, "event payment")
	}
	zerolog.Ctx(ctx).Info().Int64("event_payment_id", id).Msg("event payment deleted")
	return nil
}
