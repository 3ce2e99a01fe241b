package transit

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transit item states. OFFEN until something is paid out, TEILWEISE while
// the payout is below the received amount.
const (
	StatusOpen    = "OFFEN"
	StatusPartial = "TEILWEISE"
	StatusClosed  = "ABGESCHLOSSEN"
)

// UnknownRecipient groups items without a recipient in the summary.
const UnknownRecipient = "Unbekannt"

// ItemRequest records money received on behalf of a third party
// (durchlaufender Posten). Method books the receipt into the cash book.
type ItemRequest struct {
	AssociationID  int64           `json:"association_id"`
	LedgerNumber   string          `json:"ledger_number" binding:"required"`
	Title          string          `json:"title" binding:"required"`
	ReceivedOn     string          `json:"received_on" binding:"required"` // YYYY-MM-DD
	ReceivedAmount decimal.Decimal `json:"received_amount"`
	Recipient      *string         `json:"recipient,omitempty"`
	Reference      *string         `json:"reference,omitempty"`
	Note           *string         `json:"note,omitempty"`
	Method         *string         `json:"method,omitempty"` // BAR | UEBERWEISUNG
}

// UpdateItemRequest changes the given fields only.
type UpdateItemRequest struct {
	LedgerNumber   *string          `json:"ledger_number,omitempty"`
	Title          *string          `json:"title,omitempty"`
	ReceivedOn     *string          `json:"received_on,omitempty"`
	ReceivedAmount *decimal.Decimal `json:"received_amount,omitempty"`
	PaidOn         *string          `json:"paid_on,omitempty"`
	PaidAmount     *decimal.Decimal `json:"paid_amount,omitempty"`
	Recipient      *string          `json:"recipient,omitempty"`
	Reference      *string          `json:"reference,omitempty"`
	Note           *string          `json:"note,omitempty"`
}

// CloseRequest records the payout to the recipient. Method books it into
// the cash book.
type CloseRequest struct {
	PaidOn     string          `json:"paid_on" binding:"required"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	Reference  *string         `json:"reference,omitempty"`
	Method     *string         `json:"method,omitempty"`
}

type ItemResponse struct {
	ItemID         int64            `json:"item_id"`
	AssociationID  int64            `json:"association_id"`
	LedgerNumber   string           `json:"ledger_number"`
	LedgerName     *string          `json:"ledger_name,omitempty"`
	Title          string           `json:"title"`
	ReceivedOn     string           `json:"received_on"`
	ReceivedAmount decimal.Decimal  `json:"received_amount"`
	PaidOn         *string          `json:"paid_on,omitempty"`
	PaidAmount     *decimal.Decimal `json:"paid_amount,omitempty"`
	OpenAmount     decimal.Decimal  `json:"open_amount"`
	Recipient      *string          `json:"recipient,omitempty"`
	Reference      *string          `json:"reference,omitempty"`
	Status         string           `json:"status"`
	InEntryID      *int64           `json:"in_entry_id,omitempty"`
	OutEntryID     *int64           `json:"out_entry_id,omitempty"`
	Note           *string          `json:"note,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      *time.Time       `json:"updated_at,omitempty"`
}

type SearchQuery struct {
	AssociationID *int64
	Status        *string
	LedgerNumber  *string
	OpenOnly      bool
}

type OpenTotalResponse struct {
	AssociationID int64           `json:"association_id"`
	OpenAmount    decimal.Decimal `json:"open_amount"`
}

type RecipientSummary struct {
	Recipient     string          `json:"recipient"`
	TotalReceived decimal.Decimal `json:"total_received"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	OpenAmount    decimal.Decimal `json:"open_amount"`
	Items         int64           `json:"items"`
}
