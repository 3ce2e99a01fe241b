package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusRegistered = "ANGEMELDET"
	StatusWaitlisted = "WARTELISTE"
	StatusCancelled  = "STORNIERT"
)

// ===== Events (Veranstaltung) =====

type EventRequest struct {
	AssociationID        int64            `json:"association_id"`
	Title                string           `json:"title" binding:"required"`
	Description          *string          `json:"description,omitempty"`
	StartsAt             time.Time        `json:"starts_at" binding:"required"`
	EndsAt               *time.Time       `json:"ends_at,omitempty"`
	Location             *string          `json:"location,omitempty"`
	Price                *decimal.Decimal `json:"price,omitempty"`
	MaxParticipants      *int             `json:"max_participants,omitempty"`
	MembersOnly          bool             `json:"members_only"`
	RegistrationRequired bool             `json:"registration_required"`
}

type EventResponse struct {
	EventID              int64            `json:"event_id"`
	AssociationID        int64            `json:"association_id"`
	Title                string           `json:"title"`
	Description          *string          `json:"description,omitempty"`
	StartsAt             time.Time        `json:"starts_at"`
	EndsAt               *time.Time       `json:"ends_at,omitempty"`
	Location             *string          `json:"location,omitempty"`
	Price                *decimal.Decimal `json:"price,omitempty"`
	MaxParticipants      *int             `json:"max_participants,omitempty"`
	MembersOnly          bool             `json:"members_only"`
	RegistrationRequired bool             `json:"registration_required"`
	Participants         int              `json:"participants"`
	Waitlisted           int              `json:"waitlisted"`
	FreePlaces           *int             `json:"free_places,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            *time.Time       `json:"updated_at,omitempty"`
}

type EventQuery struct {
	AssociationID *int64
	From          *time.Time
	To            *time.Time
	Upcoming      bool
}

// ===== Registrations (Anmeldung) =====

type RegisterRequest struct {
	MemberID     *int64  `json:"member_id,omitempty"`
	Name         *string `json:"name,omitempty"`
	Email        *string `json:"email,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Participants *int    `json:"participants,omitempty"`
	Note         *string `json:"note,omitempty"`
}

type CancelRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type RegistrationResponse struct {
	RegistrationID int64      `json:"registration_id"`
	EventID        int64      `json:"event_id"`
	MemberID       *int64     `json:"member_id,omitempty"`
	Name           *string    `json:"name,omitempty"`
	Email          *string    `json:"email,omitempty"`
	Phone          *string    `json:"phone,omitempty"`
	Participants   int        `json:"participants"`
	Note           *string    `json:"note,omitempty"`
	Status         string     `json:"status"`
	ClaimID        *int64     `json:"claim_id,omitempty"`
	RegisteredAt   time.Time  `json:"registered_at"`
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`
	CancelReason   *string    `json:"cancel_reason,omitempty"`
}

type CancelResult struct {
	Registration   RegistrationResponse `json:"registration"`
	ClaimCancelled bool                 `json:"claim_cancelled"`
	Promoted       []int64              `json:"promoted_registration_ids"`
}

// ===== Payments (VeranstaltungZahlung) =====

// EventPaymentRequest records money paid for an event. Member payments are
// booked as payments against the registration's claim; guest payments are
// recorded with name and email. LedgerNumber books the income into the cash
// book.
type EventPaymentRequest struct {
	RegistrationID *int64          `json:"registration_id,omitempty"`
	MemberID       *int64          `json:"member_id,omitempty"`
	Name           *string         `json:"name,omitempty"`
	Email          *string         `json:"email,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       *string         `json:"currency,omitempty"`
	PaidOn         string          `json:"paid_on" binding:"required"` // YYYY-MM-DD
	Method         string          `json:"method" binding:"required"`
	Reference      *string         `json:"reference,omitempty"`
	Note           *string         `json:"note,omitempty"`
	LedgerNumber   *string         `json:"ledger_number,omitempty"`
}

type EventPaymentResponse struct {
	EventPaymentID int64           `json:"event_payment_id"`
	EventID        int64           `json:"event_id"`
	RegistrationID *int64          `json:"registration_id,omitempty"`
	MemberID       *int64          `json:"member_id,omitempty"`
	Name           *string         `json:"name,omitempty"`
	Email          *string         `json:"email,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	PaidOn         string          `json:"paid_on"`
	Method         string          `json:"method"`
	Reference      *string         `json:"reference,omitempty"`
	Note           *string         `json:"note,omitempty"`
	PaymentID      *int64          `json:"payment_id,omitempty"`
	PaymentStatus  *string         `json:"payment_status,omitempty"`
	EntryID        *int64          `json:"entry_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	CreatedBy      *string         `json:"created_by,omitempty"`
}

// EventPaymentTotal leaves out reversed member payments.
type EventPaymentTotal struct {
	EventID  int64           `json:"event_id"`
	Total    decimal.Decimal `json:"total"`
	Payments int64           `json:"payments"`
	Members  decimal.Decimal `json:"members"`
	Guests   decimal.Decimal `json:"guests"`
}
