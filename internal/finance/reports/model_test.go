package reports

import (
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestBuildMemberSummary(t *testing.T) {
	today := day("2024-06-15")
	claims := []ClaimRow{
		{ClaimID: 3, ClaimNumber: "F-3", Amount: d("30"), Paid: d("0"), DueDate: day("2024-07-01"), Status: "OFFEN"},
		{ClaimID: 1, ClaimNumber: "F-1", Amount: d("30"), Paid: d("30"), DueDate: day("2024-01-31"), Status: "BEZAHLT"},
		{ClaimID: 2, ClaimNumber: "F-2", Amount: d("30"), Paid: d("10"), DueDate: day("2024-04-30"), Status: "OFFEN",
			PeriodYear: sql.NullInt32{Int32: 2024, Valid: true}, PeriodMonth: sql.NullInt32{Int32: 4, Valid: true}},
		{ClaimID: 4, ClaimNumber: "F-4", Amount: d("30"), Paid: d("0"), DueDate: day("2024-03-31"), Status: "STORNIERT"},
		{ClaimID: 5, ClaimNumber: "F-5", Amount: d("30"), Paid: d("0"), DueDate: day("2024-12-31"), Status: "OFFEN"},
	}
	pays := []PaymentRow{
		{PaidOn: day("2023-07-02"), Amount: d("15"), Method: "BAR"},
		{PaidOn: day("2024-01-20"), Amount: d("30"), Method: "UEBERWEISUNG"},
		{PaidOn: day("2024-05-03"), Amount: d("10"), Method: "UEBERWEISUNG"},
	}

	s := BuildMemberSummary(claims, pays, d("5"), today)

	if !s.TotalDebt.Equal(d("80")) || s.OpenClaims != 3 {
		t.Errorf("debt = %s open = %d", s.TotalDebt, s.OpenClaims)
	}
	if !s.OverdueDebt.Equal(d("20")) || s.OverdueClaims != 1 {
		t.Errorf("overdue = %s count = %d", s.OverdueDebt, s.OverdueClaims)
	}
	if !s.TotalPaid.Equal(d("40")) {
		t.Errorf("paid = %s", s.TotalPaid)
	}
	if s.NextDue == nil || s.NextDue.ClaimID != 3 || s.NextDue.DaysUntil != 16 {
		t.Errorf("next due = %+v", s.NextDue)
	}
	if len(s.Upcoming) != 1 || s.Upcoming[0].ClaimID != 3 {
		t.Errorf("upcoming = %+v", s.Upcoming)
	}
	if s.Claims[1].Description != "2024/04" || !s.Claims[1].Overdue {
		t.Errorf("claim line = %+v", s.Claims[1])
	}
	if len(s.Trend) != 12 || s.Trend[0].Label != "Jul 23" || s.Trend[11].Label != "Jun 24" {
		t.Fatalf("trend = %+v", s.Trend)
	}
	if !s.Trend[0].Amount.Equal(d("15")) || s.Trend[6].Count != 1 || !s.Trend[10].Amount.Equal(d("10")) {
		t.Errorf("trend amounts = %+v", s.Trend)
	}
	if !s.YearPaid.Equal(d("40")) || s.YearPayments != 2 {
		t.Errorf("year = %s/%d", s.YearPaid, s.YearPayments)
	}
	if s.PreferredMethod == nil || *s.PreferredMethod != "UEBERWEISUNG" {
		t.Errorf("method = %v", s.PreferredMethod)
	}
	if len(s.Claims) != 5 || s.Claims[0].ClaimID != 1 {
		t.Errorf("claims = %+v", s.Claims)
	}
}

func TestBuildMemberSummaryEmpty(t *testing.T) {
	s := BuildMemberSummary(nil, nil, decimal.Zero, day("2024-01-10"))
	if s.NextDue != nil || len(s.Upcoming) != 0 || !s.TotalDebt.IsZero() {
		t.Errorf("summary = %+v", s)
	}
	if s.Trend[0].Label != "Feb 23" || s.Trend[11].Label != "Jan 24" {
		t.Errorf("trend window = %s..%s", s.Trend[0].Label, s.Trend[11].Label)
	}
}

func TestBuildMemberSummaryOverdueIsNotUpcoming(t *testing.T) {
	today := day("2025-06-15")
	claims := []ClaimRow{
		{ClaimID: 7, ClaimNumber: "F-7", Amount: d("50"), Paid: d("0"), DueDate: day("2023-01-01"), Status: "OFFEN"},
		{ClaimID: 8, ClaimNumber: "F-8", Amount: d("20"), Paid: d("0"), DueDate: day("2025-06-15"), Status: "OFFEN"},
	}

	s := BuildMemberSummary(claims, nil, decimal.Zero, today)

	if s.OverdueClaims != 1 || !s.OverdueDebt.Equal(d("50")) {
		t.Errorf("overdue = %d/%s", s.OverdueClaims, s.OverdueDebt)
	}
	if len(s.Upcoming) != 1 || s.Upcoming[0].ClaimID != 8 {
		t.Errorf("upcoming = %+v", s.Upcoming)
	}
	if s.NextDue == nil || s.NextDue.ClaimID != 8 || s.NextDue.DaysUntil != 0 {
		t.Errorf("next due = %+v", s.NextDue)
	}

	onlyOverdue := BuildMemberSummary(claims[:1], nil, decimal.Zero, today)
	if onlyOverdue.NextDue != nil || len(onlyOverdue.Upcoming) != 0 {
		t.Errorf("next due = %+v upcoming = %+v", onlyOverdue.NextDue, onlyOverdue.Upcoming)
	}
}
