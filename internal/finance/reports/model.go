package reports

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"verein-backend/internal/finance/allocation"
)

// ClaimRow is a claim of the member with its allocated total.
type ClaimRow struct {
	ClaimID     int64
	ClaimNumber string
	ClaimType   string
	Description sql.NullString
	Amount      decimal.Decimal
	Paid        decimal.Decimal
	DueDate     time.Time
	Status      string
	PeriodYear  sql.NullInt32
	PeriodMonth sql.NullInt32
}

func (c ClaimRow) remaining() decimal.Decimal {
	r := c.Amount.Sub(c.Paid)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

func (c ClaimRow) open() bool {
	return c.Status != string(allocation.StateCancelled) && c.remaining().IsPositive()
}

func (c ClaimRow) description() string {
	if c.Description.Valid && c.Description.String != "" {
		return c.Description.String
	}
	if c.PeriodYear.Valid && c.PeriodMonth.Valid {
		return fmt.Sprintf("%d/%02d", c.PeriodYear.Int32, c.PeriodMonth.Int32)
	}
	if c.PeriodYear.Valid {
		return fmt.Sprintf("%d", c.PeriodYear.Int32)
	}
	return c.ClaimNumber
}

// PaymentRow is a booked payment of the member.
type PaymentRow struct {
	PaidOn time.Time
	Amount decimal.Decimal
	Method string
}

var monthLabels = [...]string{"Jan", "Feb", "Mär", "Apr", "Mai", "Jun", "Jul", "Aug", "Sep", "Okt", "Nov", "Dez"}

func daysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// BuildMemberSummary aggregates a member's claims and payments as of today.
func BuildMemberSummary(claims []ClaimRow, pays []PaymentRow, credit decimal.Decimal, today time.Time) MemberSummary {
	s := MemberSummary{
		TotalDebt:     decimal.Zero,
		OverdueDebt:   decimal.Zero,
		TotalPaid:     decimal.Zero,
		CreditBalance: credit,
		YearPaid:      decimal.Zero,
		Trend:         make([]MonthTotal, 0, 12),
		Upcoming:      []UpcomingClaim{},
		Claims:        make([]ClaimLine, 0, len(claims)),
	}
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	sorted := append([]ClaimRow(nil), claims...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].DueDate.Equal(sorted[j].DueDate) {
			return sorted[i].DueDate.Before(sorted[j].DueDate)
		}
		return sorted[i].ClaimID < sorted[j].ClaimID
	})

	horizon := today.AddDate(0, 3, 0)
	for _, c := range sorted {
		s.TotalPaid = s.TotalPaid.Add(c.Paid)
		overdue := c.open() && c.DueDate.Before(today)
		s.Claims = append(s.Claims, ClaimLine{
			ClaimID:     c.ClaimID,
			ClaimNumber: c.ClaimNumber,
			ClaimType:   c.ClaimType,
			Description: c.description(),
			DueDate:     c.DueDate.Format("2006-01-02"),
			Status:      c.Status,
			Amount:      c.Amount,
			Paid:        c.Paid,
			Remaining:   c.remaining(),
			Overdue:     overdue,
		})
		if !c.open() {
			continue
		}
		s.OpenClaims++
		s.TotalDebt = s.TotalDebt.Add(c.remaining())
		if overdue {
			s.OverdueClaims++
			s.OverdueDebt = s.OverdueDebt.Add(c.remaining())
		}
		u := UpcomingClaim{
			ClaimID:     c.ClaimID,
			ClaimNumber: c.ClaimNumber,
			Description: c.description(),
			DueDate:     c.DueDate.Format("2006-01-02"),
			DaysUntil:   daysBetween(today, c.DueDate),
			Remaining:   c.remaining(),
		}
		// overdue claims are reported through OverdueClaims only
		if overdue {
			continue
		}
		if s.NextDue == nil {
			next := u
			s.NextDue = &next
		}
		if !c.DueDate.After(horizon) && len(s.Upcoming) < 6 {
			s.Upcoming = append(s.Upcoming, u)
		}
	}

	start := time.Date(today.Year(), today.Month()-11, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		m := start.AddDate(0, i, 0)
		s.Trend = append(s.Trend, MonthTotal{
			Year:   m.Year(),
			Month:  int(m.Month()),
			Label:  fmt.Sprintf("%s %02d", monthLabels[m.Month()-1], m.Year()%100),
			Amount: decimal.Zero,
		})
	}
	methods := map[string]int{}
	for _, p := range pays {
		if p.PaidOn.Year() == today.Year() {
			s.YearPaid = s.YearPaid.Add(p.Amount)
			s.YearPayments++
			methods[p.Method]++
		}
		if p.PaidOn.Before(start) {
			continue
		}
		idx := (p.PaidOn.Year()-start.Year())*12 + int(p.PaidOn.Month()) - int(start.Month())
		if idx >= 0 && idx < len(s.Trend) {
			s.Trend[idx].Amount = s.Trend[idx].Amount.Add(p.Amount)
			s.Trend[idx].Count++
		}
	}
	best, bestN := "", 0
	for m, n := range methods {
		if n > bestN || (n == bestN && m < best) {
			best, bestN = m, n
		}
	}
	if best != "" {
		s.PreferredMethod = &best
	}
	return s
}
