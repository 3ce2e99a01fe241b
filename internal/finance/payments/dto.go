package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"verein-backend/internal/finance/allocation"
)

const (
	StatusBooked   = "GEBUCHT"
	StatusReversed = "STORNIERT"

	MethodCash     = "BAR"
	MethodTransfer = "UEBERWEISUNG"
	MethodDebit    = "LASTSCHRIFT"
	MethodCard     = "KARTE"
	MethodOther    = "SONSTIGE"
)

var (
	methods      = map[string]bool{MethodCash: true, MethodTransfer: true, MethodDebit: true, MethodCard: true, MethodOther: true}
	paymentTypes = map[string]bool{"BEITRAG": true, "SPENDE": true, "VERANSTALTUNG": true, "SONSTIGES": true}
)

// ===== Requests =====

type AllocationInput struct {
	ClaimID int64           `json:"claim_id" binding:"required"`
	Amount  decimal.Decimal `json:"amount"`
}

// CreatePaymentRequest books a payment (MitgliedZahlung). Allocations are
// either listed explicitly, derived from claim_id, or planned oldest due
// first with auto_allocate. Everything is committed together or not at all.
type CreatePaymentRequest struct {
	AssociationID     int64             `json:"association_id" binding:"required"`
	MemberID          int64             `json:"member_id" binding:"required"`
	ClaimID           *int64            `json:"claim_id,omitempty"`
	PaymentType       *string           `json:"payment_type,omitempty"`
	Amount            decimal.Decimal   `json:"amount"`
	Currency          *string           `json:"currency,omitempty"`
	PaidOn            string            `json:"paid_on" binding:"required"`
	Method            string            `json:"method" binding:"required"`
	BankAccountID     *int64            `json:"bank_account_id,omitempty"`
	Reference         *string           `json:"reference,omitempty"`
	Note              *string           `json:"note,omitempty"`
	Allocations       []AllocationInput `json:"allocations,omitempty"`
	AutoAllocate      bool              `json:"auto_allocate"`
	RemainderAsCredit *bool             `json:"remainder_as_credit,omitempty"`
	LedgerNumber      *string           `json:"ledger_number,omitempty"` // also book into the cash book
}

type AddAllocationsRequest struct {
	Allocations  []AllocationInput `json:"allocations,omitempty"`
	AutoAllocate bool              `json:"auto_allocate"`
}

// ===== Responses =====

type AllocationLine struct {
	AllocationID int64           `json:"allocation_id"`
	ClaimID      int64           `json:"claim_id"`
	ClaimNumber  string          `json:"claim_number"`
	DueDate      string          `json:"due_date"`
	Amount       decimal.Decimal `json:"amount"`
	CreatedAt    time.Time       `json:"created_at"`
}

type PaymentResponse struct {
	PaymentID         int64   `json:"payment_id"`
	PaymentRef        string  `json:"payment_ref"`
	AssociationID     int64   `json:"association_id"`
	MemberID          int64   `json:"member_id"`
	MemberNumber      string  `json:"member_number"`
	MemberName        string  `json:"member_name"`
	ClaimID           *int64  `json:"claim_id,omitempty"`
	PaymentType       string  `json:"payment_type"`
	Currency          string  `json:"currency"`
	PaidOn            string  `json:"paid_on"`
	Method            string  `json:"method"`
	BankAccountID     *int64  `json:"bank_account_id,omitempty"`
	BankTransactionID *int64  `json:"bank_transaction_id,omitempty"`
	Reference         *string `json:"reference,omitempty"`
	Note              *string `json:"note,omitempty"`
	Status            string  `json:"status"`

	// server-derived totals
	Amount decimal.Decimal `json:"amount"`
	allocation.Summary
	CreditAmount decimal.Decimal `json:"credit_amount"`
	FreeAmount   decimal.Decimal `json:"free_amount"` // neither allocated nor held as credit

	Allocations []AllocationLine `json:"allocations,omitempty"`
	CreditID    *int64           `json:"credit_id,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	CreatedBy   *string          `json:"created_by,omitempty"`
}

type SearchQuery struct {
	AssociationID  *int64
	MemberID       *int64
	Status         *string
	Method         *string
	From           *time.Time
	To             *time.Time
	HasUnallocated bool
}
