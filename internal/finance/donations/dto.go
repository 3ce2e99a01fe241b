package donations

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryOther collects protocols without a category in summaries.
const CategoryOther = "SONSTIGE"

const maxWitnesses = 3

// ===== Protocols (SpendenProtokoll) =====

type DetailInput struct {
	Description string          `json:"description" binding:"required"`
	UnitValue   decimal.Decimal `json:"unit_value"`
	Quantity    int             `json:"quantity"`
}

// ProtocolRequest records a collected donation. With details the amount is
// their sum; a given amount must match it.
type ProtocolRequest struct {
	AssociationID int64            `json:"association_id"`
	DonatedOn     string           `json:"donated_on" binding:"required"` // YYYY-MM-DD
	Purpose       *string          `json:"purpose,omitempty"`
	Category      *string          `json:"category,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	RecordedBy    *string          `json:"recorded_by,omitempty"`
	Witnesses     []string         `json:"witnesses,omitempty"` // up to three names
	Details       []DetailInput    `json:"details,omitempty"`
	Note          *string          `json:"note,omitempty"`
}

type SignRequest struct {
	Witness int `json:"witness" binding:"required"` // 1..3
}

// BookRequest links the protocol to an existing cash book entry, or books a
// new income entry on the ledger account.
type BookRequest struct {
	EntryID      *int64  `json:"entry_id,omitempty"`
	LedgerNumber *string `json:"ledger_number,omitempty"`
	Method       *string `json:"method,omitempty"` // BAR (default) or UEBERWEISUNG
}

type WitnessResponse struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Signed   bool   `json:"signed"`
}

type DetailResponse struct {
	DetailID    int64           `json:"detail_id"`
	Description string          `json:"description"`
	UnitValue   decimal.Decimal `json:"unit_value"`
	Quantity    int             `json:"quantity"`
	Total       decimal.Decimal `json:"total"`
}

type ProtocolResponse struct {
	ProtocolID    int64             `json:"protocol_id"`
	AssociationID int64             `json:"association_id"`
	DonatedOn     string            `json:"donated_on"`
	Purpose       *string           `json:"purpose,omitempty"`
	Category      *string           `json:"category,omitempty"`
	Amount        decimal.Decimal   `json:"amount"`
	RecordedBy    *string           `json:"recorded_by,omitempty"`
	Witnesses     []WitnessResponse `json:"witnesses"`
	FullySigned   bool              `json:"fully_signed"`
	EntryID       *int64            `json:"entry_id,omitempty"`
	Note          *string           `json:"note,omitempty"`
	Details       []DetailResponse  `json:"details,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	CreatedBy     *string           `json:"created_by,omitempty"`
	UpdatedAt     *time.Time        `json:"updated_at,omitempty"`
}

type SearchQuery struct {
	AssociationID *int64
	From          *time.Time
	To            *time.Time
	Category      *string
}

// ===== Summaries =====

type TotalResponse struct {
	AssociationID int64           `json:"association_id"`
	From          *string         `json:"from,omitempty"`
	To            *string         `json:"to,omitempty"`
	Count         int64           `json:"count"`
	Total         decimal.Decimal `json:"total"`
}

type CategoryTotal struct {
	Category string          `json:"category"`
	Count    int64           `json:"count"`
	Total    decimal.Decimal `json:"total"`
}

type CategorySummary struct {
	AssociationID int64           `json:"association_id"`
	Year          int             `json:"year"`
	Categories    []CategoryTotal `json:"categories"`
	Total         decimal.Decimal `json:"total"`
}
