package credits

import (
	"time"

	"github.com/shopspring/decimal"
)

type ApplyRequest struct {
	// ClaimIDs limits the claims the credits may settle; empty means every
	// open claim of the member, oldest due first.
	ClaimIDs []int64 `json:"claim_ids,omitempty"`
}

type CreditResponse struct {
	CreditID       int64           `json:"credit_id"`
	AssociationID  int64           `json:"association_id"`
	MemberID       int64           `json:"member_id"`
	PaymentID      int64           `json:"payment_id"`
	PaymentRef     string          `json:"payment_ref"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	Amount         decimal.Decimal `json:"amount"`
	UsedAmount     decimal.Decimal `json:"used_amount"`
	Currency       string          `json:"currency"`
	Description    *string         `json:"description,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type BalanceResponse struct {
	MemberID int64           `json:"member_id"`
	Balance  decimal.Decimal `json:"balance"`
	Credits  int64           `json:"open_credits"`
}

type AppliedLine struct {
	CreditID  int64           `json:"credit_id"`
	PaymentID int64           `json:"payment_id"`
	ClaimID   int64           `json:"claim_id"`
	Amount    decimal.Decimal `json:"amount"`
	Settles   bool            `json:"settles_claim"`
}

type ApplyResult struct {
	MemberID         int64           `json:"member_id"`
	Applied          decimal.Decimal `json:"applied_amount"`
	Lines            []AppliedLine   `json:"allocations"`
	SettledClaimIDs  []int64         `json:"settled_claim_ids"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

type SearchQuery struct {
	MemberID    int64
	IncludeUsed bool
}
