package credits

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/db"
)

// Credit is an advance payment (Guthaben) held for a member. Amount is what
// is still available; OriginalAmount is what the payment left over.
type Credit struct {
	CreditID       int64
	AssociationID  int64
	MemberID       int64
	PaymentID      int64
	OriginalAmount decimal.Decimal
	Amount         decimal.Decimal
	Currency       string
	Description    sql.NullString
	CreatedAt      time.Time

	// joined
	PaymentRef string
}

func (c *Credit) toResponse() CreditResponse {
	return CreditResponse{
		CreditID:       c.CreditID,
		AssociationID:  c.AssociationID,
		MemberID:       c.MemberID,
		PaymentID:      c.PaymentID,
		PaymentRef:     c.PaymentRef,
		OriginalAmount: c.OriginalAmount,
		Amount:         c.Amount,
		UsedAmount:     c.OriginalAmount.Sub(c.Amount),
		Currency:       c.Currency,
		Description:    db.StringPtr(c.Description),
		CreatedAt:      c.CreatedAt,
	}
}
