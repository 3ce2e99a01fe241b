package allocation

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestExplicit(t *testing.T) {
	claims := []Claim{
		{ID: 1, Amount: d("30"), Allocated: d("0"), DueDate: day("2024-01-31")},
		{ID: 2, Amount: d("30"), Allocated: d("10"), DueDate: day("2024-02-29")},
		{ID: 3, Amount: d("30"), Allocated: d("30"), DueDate: day("2024-03-31")},
		{ID: 4, Amount: d("30"), Allocated: d("0"), DueDate: day("2024-04-30"), Cancelled: true},
	}

	tests := []struct {
		name        string
		available   string
		reqs        []Request
		wantErr     error
		wantLines   int
		wantUnalloc string
		wantSettles []bool
	}{
		{
			name:        "split across two claims",
			available:   "50",
			reqs:        []Request{{ClaimID: 1, Amount: d("30")}, {ClaimID: 2, Amount: d("20")}},
			wantLines:   2,
			wantUnalloc: "0",
			wantSettles: []bool{true, true},
		},
		{
			name:        "partial leaves remainder",
			available:   "100",
			reqs:        []Request{{ClaimID: 1, Amount: d("12.50")}},
			wantLines:   1,
			wantUnalloc: "87.5",
			wantSettles: []bool{false},
		},
		{
			name:      "sum exceeds payment",
			available: "40",
			reqs:      []Request{{ClaimID: 1, Amount: d("30")}, {ClaimID: 2, Amount: d("20")}},
			wantErr:   ErrExceedsPayment,
		},
		{
			name:      "exceeds remaining of partially paid claim",
			available: "100",
			reqs:      []Request{{ClaimID: 2, Amount: d("25")}},
			wantErr:   ErrExceedsClaim,
		},
		{
			name:      "claim already settled",
			available: "100",
			reqs:      []Request{{ClaimID: 3, Amount: d("1")}},
			wantErr:   ErrClaimSettled,
		},
		{
			name:      "cancelled claim",
			available: "100",
			reqs:      []Request{{ClaimID: 4, Amount: d("1")}},
			wantErr:   ErrClaimCancelled,
		},
		{
			name:      "unknown claim",
			available: "100",
			reqs:      []Request{{ClaimID: 99, Amount: d("1")}},
			wantErr:   ErrUnknownClaim,
		},
		{
			name:      "duplicate claim",
			available: "100",
			reqs:      []Request{{ClaimID: 1, Amount: d("1")}, {ClaimID: 1, Amount: d("2")}},
			wantErr:   ErrDuplicateClaim,
		},
		{
			name:      "zero amount",
			available: "100",
			reqs:      []Request{{ClaimID: 1, Amount: d("0")}},
			wantErr:   ErrNonPositive,
		},
		{
			name:      "three decimals",
			available: "100",
			reqs:      []Request{{ClaimID: 1, Amount: d("1.005")}},
			wantErr:   ErrPrecision,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := Explicit(d(tc.available), claims, tc.reqs)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Explicit() err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Explicit() unexpected err: %v", err)
			}
			if len(plan.Lines) != tc.wantLines {
				t.Fatalf("lines = %d, want %d", len(plan.Lines), tc.wantLines)
			}
			if !plan.Unallocated.Equal(d(tc.wantUnalloc)) {
				t.Errorf("unallocated = %s, want %s", plan.Unallocated, tc.wantUnalloc)
			}
			for i, want := range tc.wantSettles {
				if plan.Lines[i].Settles != want {
					t.Errorf("line %d settles = %v, want %v", i, plan.Lines[i].Settles, want)
				}
			}
			if !plan.Allocated.Add(plan.Unallocated).Equal(d(tc.available)) {
				t.Errorf("allocated + unallocated != available")
			}
		})
	}
}

func TestFIFO(t *testing.T) {
	claims := []Claim{
		{ID: 7, Amount: d("20"), Allocated: d("0"), DueDate: day("2024-03-01")},
		{ID: 5, Amount: d("20"), Allocated: d("5"), DueDate: day("2024-01-01")},
		{ID: 6, Amount: d("20"), Allocated: d("0"), DueDate: day("2024-01-01")},
		{ID: 8, Amount: d("20"), Allocated: d("0"), DueDate: day("2023-12-01"), Cancelled: true},
	}

	t.Run("oldest first with partial tail", func(t *testing.T) {
		plan := FIFO(d("40"), claims)
		want := []Line{
			{ClaimID: 5, Amount: d("15"), Settles: true},
			{ClaimID: 6, Amount: d("20"), Settles: true},
			{ClaimID: 7, Amount: d("5"), Settles: false},
		}
		if len(plan.Lines) != len(want) {
			t.Fatalf("lines = %+v, want %+v", plan.Lines, want)
		}
		for i, w := range want {
			got := plan.Lines[i]
			if got.ClaimID != w.ClaimID || !got.Amount.Equal(w.Amount) || got.Settles != w.Settles {
				t.Errorf("line %d = %+v, want %+v", i, got, w)
			}
		}
		if !plan.Unallocated.IsZero() {
			t.Errorf("unallocated = %s, want 0", plan.Unallocated)
		}
	})

	t.Run("overpayment stays unallocated", func(t *testing.T) {
		plan := FIFO(d("100"), claims)
		if !plan.Allocated.Equal(d("55")) {
			t.Errorf("allocated = %s, want 55", plan.Allocated)
		}
		if !plan.Unallocated.Equal(d("45")) {
			t.Errorf("unallocated = %s, want 45", plan.Unallocated)
		}
	})

	t.Run("no claims", func(t *testing.T) {
		plan := FIFO(d("10"), nil)
		if len(plan.Lines) != 0 || !plan.Unallocated.Equal(d("10")) {
			t.Errorf("plan = %+v", plan)
		}
	})

	t.Run("input order untouched", func(t *testing.T) {
		_ = FIFO(d("10"), claims)
		if claims[0].ID != 7 {
			t.Errorf("FIFO reordered the caller's slice")
		}
	})
}

func TestApply(t *testing.T) {
	claims := []Claim{{ID: 1, Amount: d("10")}, {ID: 2, Amount: d("10")}}
	plan := FIFO(d("15"), claims)
	after := Apply(claims, plan)
	if !after[0].Remaining().IsZero() || !after[1].Remaining().Equal(d("5")) {
		t.Fatalf("after = %+v", after)
	}
	second := FIFO(d("10"), after)
	if len(second.Lines) != 1 || second.Lines[0].ClaimID != 2 || !second.Unallocated.Equal(d("5")) {
		t.Fatalf("second plan = %+v", second)
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name                 string
		total, allocated     string
		wantUnalloc, wantPct string
	}{
		{"fully allocated", "50", "50", "0", "100"},
		{"one third", "30", "10", "20", "33.33"},
		{"nothing allocated", "80", "0", "80", "0"},
		{"zero payment", "0", "0", "0", "0"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := Summarize(d(tc.total), d(tc.allocated))
			if !s.Unallocated.Equal(d(tc.wantUnalloc)) {
				t.Errorf("unallocated = %s, want %s", s.Unallocated, tc.wantUnalloc)
			}
			if !s.Percentage.Equal(d(tc.wantPct)) {
				t.Errorf("percentage = %s, want %s", s.Percentage, tc.wantPct)
			}
		})
	}
}

func TestClaimState(t *testing.T) {
	tests := []struct {
		amount, paid string
		cancelled    bool
		want         State
	}{
		{"30", "0", false, StateOpen},
		{"30", "10", false, StatePartial},
		{"30", "30", false, StatePaid},
		{"30", "10", true, StateCancelled},
	}
	for _, tc := range tests {
		if got := ClaimState(d(tc.amount), d(tc.paid), tc.cancelled); got != tc.want {
			t.Errorf("ClaimState(%s, %s, %v) = %s, want %s", tc.amount, tc.paid, tc.cancelled, got, tc.want)
		}
	}
}
