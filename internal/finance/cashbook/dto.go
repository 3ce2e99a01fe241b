package cashbook

import (
	"time"

	"github.com/shopspring/decimal"
)

// ===== Ledger accounts (FiBu-Konten) =====

type LedgerAccountRequest struct {
	Number       string  `json:"number" binding:"required"`
	Name         string  `json:"name" binding:"required"`
	Area         *string `json:"area,omitempty"`
	Kind         *string `json:"kind,omitempty"`
	MainArea     *string `json:"main_area,omitempty"`
	MainAreaName *string `json:"main_area_name,omitempty"`
	SortOrder    *int    `json:"sort_order,omitempty"`
	IsActive     *bool   `json:"is_active,omitempty"`
}

type LedgerAccountResponse struct {
	LedgerAccountID int64      `json:"ledger_account_id"`
	Number          string     `json:"number"`
	Name            string     `json:"name"`
	Area            *string    `json:"area,omitempty"`
	Kind            *string    `json:"kind,omitempty"`
	MainArea        *string    `json:"main_area,omitempty"`
	MainAreaName    *string    `json:"main_area_name,omitempty"`
	SortOrder       int        `json:"sort_order"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// ===== Entries (Kassenbuch) =====

type EntryRequest struct {
	AssociationID int64            `json:"association_id"`
	VoucherDate   string           `json:"voucher_date" binding:"required"` // YYYY-MM-DD
	LedgerNumber  string           `json:"ledger_number" binding:"required"`
	Purpose       string           `json:"purpose" binding:"required"`
	CashIn        *decimal.Decimal `json:"cash_in,omitempty"`
	CashOut       *decimal.Decimal `json:"cash_out,omitempty"`
	BankIn        *decimal.Decimal `json:"bank_in,omitempty"`
	BankOut       *decimal.Decimal `json:"bank_out,omitempty"`
	Method        *string          `json:"method,omitempty"`
	Note          *string          `json:"note,omitempty"`
	MemberID      *int64           `json:"member_id,omitempty"`
}

type EntryResponse struct {
	EntryID           int64            `json:"entry_id"`
	AssociationID     int64            `json:"association_id"`
	VoucherNo         int              `json:"voucher_no"`
	VoucherDate       string           `json:"voucher_date"`
	FiscalYear        int              `json:"fiscal_year"`
	LedgerNumber      string           `json:"ledger_number"`
	LedgerName        *string          `json:"ledger_name,omitempty"`
	Purpose           string           `json:"purpose"`
	CashIn            *decimal.Decimal `json:"cash_in,omitempty"`
	CashOut           *decimal.Decimal `json:"cash_out,omitempty"`
	BankIn            *decimal.Decimal `json:"bank_in,omitempty"`
	BankOut           *decimal.Decimal `json:"bank_out,omitempty"`
	Method            *string          `json:"method,omitempty"`
	Note              *string          `json:"note,omitempty"`
	MemberID          *int64           `json:"member_id,omitempty"`
	PaymentID         *int64           `json:"payment_id,omitempty"`
	BankTransactionID *int64           `json:"bank_transaction_id,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	CreatedBy         *string          `json:"created_by,omitempty"`
	UpdatedAt         *time.Time       `json:"updated_at,omitempty"`
}

type EntrySearchQuery struct {
	AssociationID *int64
	Year          *int
	From          *time.Time
	To            *time.Time
	LedgerNumber  *string
	Method        *string
}

// ===== Summary =====

type AccountTotal struct {
	LedgerNumber string          `json:"ledger_number"`
	LedgerName   string          `json:"ledger_name"`
	Income       decimal.Decimal `json:"income"`
	Expenses     decimal.Decimal `json:"expenses"`
	Entries      int64           `json:"entries"`
}

type YearSummary struct {
	AssociationID int64           `json:"association_id"`
	Year          int             `json:"year"`
	CashIn        decimal.Decimal `json:"cash_in"`
	CashOut       decimal.Decimal `json:"cash_out"`
	BankIn        decimal.Decimal `json:"bank_in"`
	BankOut       decimal.Decimal `json:"bank_out"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	Result        decimal.Decimal `json:"result"`
	CashBalance   decimal.Decimal `json:"cash_balance"`
	BankBalance   decimal.Decimal `json:"bank_balance"`
	ByAccount     []AccountTotal  `json:"by_account"`
}

// ===== Closings (Jahresabschluss) =====

type ClosingRequest struct {
	AssociationID  int64            `json:"association_id" binding:"required"`
	Year           int              `json:"year" binding:"required"`
	CashOpening    *decimal.Decimal `json:"cash_opening,omitempty"` // default: previous closing
	BankOpening    *decimal.Decimal `json:"bank_opening,omitempty"`
	SavingsClosing *decimal.Decimal `json:"savings_closing,omitempty"`
	ClosedOn       *string          `json:"closed_on,omitempty"`
	Note           *string          `json:"note,omitempty"`
}

type AuditRequest struct {
	AuditedBy string `json:"audited_by" binding:"required"`
}

type ClosingResponse struct {
	ClosingID      int64            `json:"closing_id"`
	AssociationID  int64            `json:"association_id"`
	Year           int              `json:"year"`
	CashOpening    decimal.Decimal  `json:"cash_opening"`
	BankOpening    decimal.Decimal  `json:"bank_opening"`
	CashClosing    decimal.Decimal  `json:"cash_closing"`
	BankClosing    decimal.Decimal  `json:"bank_closing"`
	SavingsClosing *decimal.Decimal `json:"savings_closing,omitempty"`
	Total          decimal.Decimal  `json:"total"`
	ClosedOn       string           `json:"closed_on"`
	Audited        bool             `json:"audited"`
	AuditedBy      *string          `json:"audited_by,omitempty"`
	AuditedAt      *time.Time       `json:"audited_at,omitempty"`
	Note           *string          `json:"note,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}
