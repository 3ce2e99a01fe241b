package reports

import (
	"github.com/shopspring/decimal"
)

type MonthTotal struct {
	Year   int             `json:"year"`
	Month  int             `json:"month"`
	Label  string          `json:"label"` // "Jan 24"
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

type UpcomingClaim struct {
	ClaimID     int64           `json:"claim_id"`
	ClaimNumber string          `json:"claim_number"`
	Description string          `json:"description"`
	DueDate     string          `json:"due_date"`
	DaysUntil   int             `json:"days_until"`
	Remaining   decimal.Decimal `json:"remaining"`
}

type ClaimLine struct {
	ClaimID     int64           `json:"claim_id"`
	ClaimNumber string          `json:"claim_number"`
	ClaimType   string          `json:"claim_type"`
	Description string          `json:"description"`
	DueDate     string          `json:"due_date"`
	Status      string          `json:"status"`
	Amount      decimal.Decimal `json:"amount"`
	Paid        decimal.Decimal `json:"paid"`
	Remaining   decimal.Decimal `json:"remaining"`
	Overdue     bool            `json:"overdue"`
}

type MemberSummary struct {
	MemberID        int64           `json:"member_id"`
	MemberNumber    string          `json:"member_number"`
	MemberName      string          `json:"member_name"`
	TotalDebt       decimal.Decimal `json:"total_debt"`
	OverdueDebt     decimal.Decimal `json:"overdue_debt"`
	OpenClaims      int             `json:"open_claims"`
	OverdueClaims   int             `json:"overdue_claims"`
	TotalPaid       decimal.Decimal `json:"total_paid"`
	CreditBalance   decimal.Decimal `json:"credit_balance"`
	NextDue         *UpcomingClaim  `json:"next_due,omitempty"`
	YearPaid        decimal.Decimal `json:"year_paid"`
	YearPayments    int             `json:"year_payments"`
	PreferredMethod *string         `json:"preferred_method,omitempty"`
	Trend           []MonthTotal    `json:"trend"`
	Upcoming        []UpcomingClaim `json:"upcoming"`
	Claims          []ClaimLine     `json:"claims"`
}

type Dashboard struct {
	AssociationID     int64           `json:"association_id"`
	Year              int             `json:"year"`
	ActiveMembers     int64           `json:"active_members"`
	OpenClaims        int64           `json:"open_claims"`
	OpenAmount        decimal.Decimal `json:"open_amount"`
	OverdueClaims     int64           `json:"overdue_claims"`
	OverdueAmount     decimal.Decimal `json:"overdue_amount"`
	PaymentsThisYear  int64           `json:"payments_this_year"`
	PaidThisYear      decimal.Decimal `json:"paid_this_year"`
	CreditTotal       decimal.Decimal `json:"credit_total"`
	UnmatchedBookings int64           `json:"unmatched_bookings"`
	UnmatchedAmount   decimal.Decimal `json:"unmatched_amount"`
	MembersWithDebt   int64           `json:"members_with_debt"`
}
