// Package allocation distributes payment amounts over member claims
// (MitgliedForderungZahlung rows) and derives claim and payment totals.
// It does no I/O; callers lock the rows and persist the plan.
package allocation

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNonPositive    = errors.New("allocation amount must be greater than zero")
	ErrPrecision      = errors.New("amount must not have more than two decimal places")
	ErrDuplicateClaim = errors.New("claim listed more than once")
	ErrUnknownClaim   = errors.New("claim not available for allocation")
	ErrClaimCancelled = errors.New("claim is cancelled")
	ErrClaimSettled   = errors.New("claim is already fully paid")
	ErrExceedsClaim   = errors.New("allocation exceeds remaining claim amount")
	ErrExceedsPayment = errors.New("allocations exceed payment amount")
)

var hundred = decimal.NewFromInt(100)

// Claim is the allocation view of one claim row.
type Claim struct {
	ID        int64
	Amount    decimal.Decimal
	Allocated decimal.Decimal
	DueDate   time.Time
	Cancelled bool
}

// Remaining is Amount - Allocated, never negative.
func (c Claim) Remaining() decimal.Decimal {
	r := c.Amount.Sub(c.Allocated)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

type Request struct {
	ClaimID int64
	Amount  decimal.Decimal
}

// Line is one allocation row to insert. Settles is set when the line
// brings the claim to its full amount.
type Line struct {
	ClaimID int64
	Amount  decimal.Decimal
	Settles bool
}

type Plan struct {
	Lines       []Line
	Allocated   decimal.Decimal
	Unallocated decimal.Decimal
}

// CheckAmount validates a money amount: positive with at most two decimals.
func CheckAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrNonPositive
	}
	if !d.Round(2).Equal(d) {
		return ErrPrecision
	}
	return nil
}

// Explicit validates caller supplied allocations against the claims and the
// amount available on the payment.
func Explicit(available decimal.Decimal, claims []Claim, reqs []Request) (Plan, error) {
	byID := make(map[int64]Claim, len(claims))
	for _, c := range claims {
		byID[c.ID] = c
	}

	plan := Plan{Allocated: decimal.Zero}
	seen := make(map[int64]struct{}, len(reqs))
	for _, r := range reqs {
		if err := CheckAmount(r.Amount); err != nil {
			return Plan{}, fmt.Errorf("claim %d: %w", r.ClaimID, err)
		}
		if _, dup := seen[r.ClaimID]; dup {
			return Plan{}, fmt.Errorf("claim %d: %w", r.ClaimID, ErrDuplicateClaim)
		}
		seen[r.ClaimID] = struct{}{}

		c, ok := byID[r.ClaimID]
		if !ok {
			return Plan{}, fmt.Errorf("claim %d: %w", r.ClaimID, ErrUnknownClaim)
		}
		if c.Cancelled {
			return Plan{}, fmt.Errorf("claim %d: %w", r.ClaimID, ErrClaimCancelled)
		}
		remaining := c.Remaining()
		if remaining.IsZero() {
			return Plan{}, fmt.Errorf("claim %d: %w", r.ClaimID, ErrClaimSettled)
		}
		if r.Amount.GreaterThan(remaining) {
			return Plan{}, fmt.Errorf("claim %d: %w (remaining %s, requested %s)",
				r.ClaimID, ErrExceedsClaim, remaining.StringFixed(2), r.Amount.StringFixed(2))
		}

		plan.Lines = append(plan.Lines, Line{
			ClaimID: r.ClaimID,
			Amount:  r.Amount,
			Settles: r.Amount.Equal(remaining),
		})
		plan.Allocated = plan.Allocated.Add(r.Amount)
	}

	if plan.Allocated.GreaterThan(available) {
		return Plan{}, fmt.Errorf("%w (available %s, requested %s)",
			ErrExceedsPayment, available.StringFixed(2), plan.Allocated.StringFixed(2))
	}
	plan.Unallocated = available.Sub(plan.Allocated)
	return plan, nil
}

// FIFO settles the oldest due claims first. Cancelled and settled claims are
// skipped. Whatever cannot be placed stays unallocated.
func FIFO(available decimal.Decimal, claims []Claim) Plan {
	ordered := make([]Claim, len(claims))
	copy(ordered, claims)
	SortByDue(ordered)

	plan := Plan{Allocated: decimal.Zero, Unallocated: available}
	if !available.IsPositive() {
		plan.Unallocated = decimal.Zero
		return plan
	}
	for _, c := range ordered {
		if !plan.Unallocated.IsPositive() {
			break
		}
		if c.Cancelled {
			continue
		}
		remaining := c.Remaining()
		if !remaining.IsPositive() {
			continue
		}
		amt := decimal.Min(plan.Unallocated, remaining)
		plan.Lines = append(plan.Lines, Line{
			ClaimID: c.ID,
			Amount:  amt,
			Settles: amt.Equal(remaining),
		})
		plan.Allocated = plan.Allocated.Add(amt)
		plan.Unallocated = plan.Unallocated.Sub(amt)
	}
	return plan
}

// SortByDue orders claims by due date, then id.
func SortByDue(claims []Claim) {
	sort.SliceStable(claims, func(i, j int) bool {
		if !claims[i].DueDate.Equal(claims[j].DueDate) {
			return claims[i].DueDate.Before(claims[j].DueDate)
		}
		return claims[i].ID < claims[j].ID
	})
}

// Apply returns claims with the plan's lines added to Allocated. Callers that
// plan several payments against the same claims in one transaction chain it.
func Apply(claims []Claim, plan Plan) []Claim {
	add := make(map[int64]decimal.Decimal, len(plan.Lines))
	for _, l := range plan.Lines {
		add[l.ClaimID] = add[l.ClaimID].Add(l.Amount)
	}
	out := make([]Claim, len(claims))
	for i, c := range claims {
		if a, ok := add[c.ID]; ok {
			c.Allocated = c.Allocated.Add(a)
		}
		out[i] = c
	}
	return out
}

// ===== derived views =====

type Summary struct {
	Total       decimal.Decimal `json:"total_amount"`
	Allocated   decimal.Decimal `json:"total_allocated"`
	Unallocated decimal.Decimal `json:"unallocated_amount"`
	Percentage  decimal.Decimal `json:"allocation_percentage"`
}

// Summarize derives the allocation totals of a payment. Percentage is rounded
// to two decimals and is zero for a zero total.
func Summarize(total, allocated decimal.Decimal) Summary {
	s := Summary{
		Total:       total,
		Allocated:   allocated,
		Unallocated: total.Sub(allocated),
		Percentage:  decimal.Zero,
	}
	if s.Unallocated.IsNegative() {
		s.Unallocated = decimal.Zero
	}
	if total.IsPositive() {
		s.Percentage = allocated.Mul(hundred).DivRound(total, 2)
	}
	return s
}

type State string

const (
	StateOpen      State = "OFFEN"
	StatePartial   State = "TEILBEZAHLT"
	StatePaid      State = "BEZAHLT"
	StateCancelled State = "STORNIERT"
)

// ClaimState derives the payment state of a claim from its allocations.
func ClaimState(amount, paid decimal.Decimal, cancelled bool) State {
	switch {
	case cancelled:
		return StateCancelled
	case !paid.IsPositive():
		return StateOpen
	case paid.GreaterThanOrEqual(amount):
		return StatePaid
	default:
		return StatePartial
	}
}
