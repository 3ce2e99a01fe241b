package transit

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/web"
)

type Item struct {
	ItemID         int64
	AssociationID  int64
	LedgerNumber   string
	Title          string
	ReceivedOn     time.Time
	ReceivedAmount decimal.Decimal
	PaidOn         sql.NullTime
	PaidAmount     decimal.NullDecimal
	Recipient      sql.NullString
	Reference      sql.NullString
	Status         string
	InEntryID      sql.NullInt64
	OutEntryID     sql.NullInt64
	Note           sql.NullString
	CreatedAt      time.Time
	UpdatedAt      sql.NullTime

	// joined
	LedgerName sql.NullString
}

// statusFor derives the state from the paid amount.
func statusFor(received decimal.Decimal, paid decimal.NullDecimal) string {
	switch {
	case !paid.Valid || !paid.Decimal.IsPositive():
		return StatusOpen
	case paid.Decimal.GreaterThanOrEqual(received):
		return StatusClosed
	default:
		return StatusPartial
	}
}

func (i *Item) Open() decimal.Decimal {
	return i.ReceivedAmount.Sub(i.PaidAmount.Decimal)
}

func (i *Item) toResponse() ItemResponse {
	return ItemResponse{
		ItemID:         i.ItemID,
		AssociationID:  i.AssociationID,
		LedgerNumber:   i.LedgerNumber,
		LedgerName:     db.StringPtr(i.LedgerName),
		Title:          i.Title,
		ReceivedOn:     i.ReceivedOn.Format(web.DateLayout),
		ReceivedAmount: i.ReceivedAmount,
		PaidOn:         db.DatePtr(i.PaidOn),
		PaidAmount:     db.DecimalPtr(i.PaidAmount),
		OpenAmount:     i.Open(),
		Recipient:      db.StringPtr(i.Recipient),
		Reference:      db.StringPtr(i.Reference),
		Status:         i.Status,
		InEntryID:      db.Int64Ptr(i.InEntryID),
		OutEntryID:     db.Int64Ptr(i.OutEntryID),
		Note:           db.StringPtr(i.Note),
		CreatedAt:      i.CreatedAt,
		UpdatedAt:      db.TimePtr(i.UpdatedAt),
	}
}
