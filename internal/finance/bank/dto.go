package bank

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusImported = "IMPORTIERT"
	StatusMatched  = "ZUGEORDNET"

	RowSuccess   = "Success"
	RowSkipped   = "Skipped"
	RowUnmatched = "Unmatched"
	RowFailed    = "Failed"
)

// ===== Bank accounts =====

type CreateAccountRequest struct {
	AssociationID int64   `json:"association_id" binding:"required"`
	IBAN          string  `json:"iban" binding:"required"`
	BIC           *string `json:"bic,omitempty"`
	AccountHolder *string `json:"account_holder,omitempty"`
	BankName      *string `json:"bank_name,omitempty"`
	Description   *string `json:"description,omitempty"`
	ValidFrom     *string `json:"valid_from,omitempty"`
	ValidTo       *string `json:"valid_to,omitempty"`
	IsDefault     bool    `json:"is_default"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

type UpdateAccountRequest struct {
	IBAN          *string `json:"iban,omitempty"`
	BIC           *string `json:"bic,omitempty"`
	AccountHolder *string `json:"account_holder,omitempty"`
	BankName      *string `json:"bank_name,omitempty"`
	Description   *string `json:"description,omitempty"`
	ValidFrom     *string `json:"valid_from,omitempty"`
	ValidTo       *string `json:"valid_to,omitempty"`
	IsDefault     *bool   `json:"is_default,omitempty"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

type AccountResponse struct {
	BankAccountID int64      `json:"bank_account_id"`
	AssociationID int64      `json:"association_id"`
	IBAN          string     `json:"iban"`
	BIC           *string    `json:"bic,omitempty"`
	AccountHolder *string    `json:"account_holder,omitempty"`
	BankName      *string    `json:"bank_name,omitempty"`
	Description   *string    `json:"description,omitempty"`
	ValidFrom     *string    `json:"valid_from,omitempty"`
	ValidTo       *string    `json:"valid_to,omitempty"`
	IsDefault     bool       `json:"is_default"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// ===== Bank transactions =====

type TransactionResponse struct {
	BankTransactionID int64           `json:"bank_transaction_id"`
	AssociationID     int64           `json:"association_id"`
	BankAccountID     int64           `json:"bank_account_id"`
	IBAN              string          `json:"iban"`
	ImportBatch       *string         `json:"import_batch,omitempty"`
	BookedOn          string          `json:"booked_on"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Counterparty      *string         `json:"counterparty,omitempty"`
	Purpose           *string         `json:"purpose,omitempty"`
	Reference         *string         `json:"reference,omitempty"`
	Status            string          `json:"status"`
	PaymentID         *int64          `json:"payment_id,omitempty"`
	MemberID          *int64          `json:"member_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

type TxSearchQuery struct {
	AssociationID *int64
	BankAccountID *int64
	Status        *string
	From          *time.Time
	To            *time.Time
	Unmatched     bool
}

// ===== Import =====

type ImportDetail struct {
	Row               int              `json:"row"`
	BookedOn          *string          `json:"booked_on,omitempty"`
	Amount            *decimal.Decimal `json:"amount,omitempty"`
	Counterparty      string           `json:"counterparty,omitempty"`
	Purpose           string           `json:"purpose,omitempty"`
	Reference         string           `json:"reference,omitempty"`
	Status            string           `json:"status"`
	Message           string           `json:"message"`
	BankTransactionID *int64           `json:"bank_transaction_id,omitempty"`
	MemberID          *int64           `json:"member_id,omitempty"`
	MemberName        string           `json:"member_name,omitempty"`
	PaymentID         *int64           `json:"payment_id,omitempty"`
	Allocated         *decimal.Decimal `json:"allocated_amount,omitempty"`
}

type ImportResponse struct {
	ImportBatch    string         `json:"import_batch"`
	TotalRows      int            `json:"total_rows"`
	SuccessCount   int            `json:"success_count"`
	SkippedCount   int            `json:"skipped_count"`
	UnmatchedCount int            `json:"unmatched_count"`
	FailedCount    int            `json:"failed_count"`
	Details        []ImportDetail `json:"details"`
}

func (r *ImportResponse) add(d ImportDetail) {
	r.Details = append(r.Details, d)
	switch d.Status {
	case RowSuccess:
		r.SuccessCount++
	case RowSkipped:
		r.SkippedCount++
	case RowUnmatched:
		r.UnmatchedCount++
	default:
		r.FailedCount++
	}
}

// ===== Manual match =====

type MatchRequest struct {
	MemberID          int64             `json:"member_id" binding:"required"`
	ClaimIDs          []int64           `json:"claim_ids,omitempty"`
	Amounts           []decimal.Decimal `json:"amounts,omitempty"`
	RemainderAsCredit *bool             `json:"remainder_as_credit,omitempty"` // default true
	LedgerNumber      *string           `json:"ledger_number,omitempty"`
}

type MatchResponse struct {
	BankTransactionID int64           `json:"bank_transaction_id"`
	PaymentID         int64           `json:"payment_id"`
	PaymentRef        string          `json:"payment_ref"`
	MatchedClaimIDs   []int64         `json:"matched_claim_ids"`
	AllocatedAmount   decimal.Decimal `json:"allocated_amount"`
	RemainingAmount   decimal.Decimal `json:"remaining_amount"`
	CreditID          *int64          `json:"credit_id,omitempty"`
}
