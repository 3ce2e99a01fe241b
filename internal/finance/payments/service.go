package payments

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"verein-backend/internal/finance/allocation"
	"verein-backend/internal/finance/cashbook"
	"verein-backend/internal/finance/claims"
	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/ids"
	"verein-backend/internal/platform/metrics"
	"verein-backend/internal/platform/web"
)

type Service struct {
	db      *sql.DB
	store   *Store
	ids     ids.IDGen
	clock   ids.Clock
	metrics *metrics.Registry
}

func NewService(conn *sql.DB, m *metrics.Registry) *Service {
	return &Service{db: conn, store: NewStore(), ids: ids.ULIDGen{}, clock: ids.RealClock{}, metrics: m}
}

// Booking is a payment to book inside a caller's transaction.
type Booking struct {
	AssociationID     int64
	MemberID          int64
	ClaimID           *int64
	PaymentType       string
	Amount            decimal.Decimal
	Currency          string
	PaidOn            time.Time
	Method            string
	BankAccountID     *int64
	BankTransactionID *int64
	Reference         *string
	Note              *string
	Allocations       []allocation.Request
	AutoAllocate      bool
	RemainderAsCredit bool
	LedgerNumber      *string
	Actor             string
}

type BookResult struct {
	PaymentID  int64
	PaymentRef string
	Plan       allocation.Plan
	Settled    []int64
	CreditID   *int64
	EntryID    *int64
}

// planError maps allocation errors to API errors.
func planError(err error) error {
	if errors.Is(err, allocation.ErrNonPositive) || errors.Is(err, allocation.ErrPrecision) {
		return apierr.Invalid(err.Error())
	}
	return apierr.Unprocessable(err.Error())
}

func checkOwned(bals []claims.Balance, memberID int64) error {
	for _, b := range bals {
		if b.MemberID != memberID {
			return apierr.Unprocessablef("claim %d does not belong to member %d", b.ClaimID, memberID)
		}
	}
	return nil
}

// planTx locks the claims involved and plans the allocation of available.
// The member row must already be locked.
func (s *Service) planTx(ctx context.Context, tx db.DBTX, memberID int64, available decimal.Decimal,
	claimID *int64, reqs []allocation.Request, auto bool) (allocation.Plan, error) {
	switch {
	case len(reqs) > 0:
		idList := make([]int64, 0, len(reqs))
		for _, r := range reqs {
			idList = append(idList, r.ClaimID)
		}
		bals, err := claims.LockByIDsTx(ctx, tx, idList)
		if err != nil {
			return allocation.Plan{}, err
		}
		if err := checkOwned(bals, memberID); err != nil {
			return allocation.Plan{}, err
		}
		plan, err := allocation.Explicit(available, claims.Allocatable(bals), reqs)
		if err != nil {
			return allocation.Plan{}, planError(err)
		}
		return plan, nil

	case claimID != nil && !auto:
		bals, err := claims.LockByIDsTx(ctx, tx, []int64{*claimID})
		if err != nil {
			return allocation.Plan{}, err
		}
		if len(bals) == 0 {
			return allocation.Plan{}, apierr.NotFound("claim not found")
		}
		if err := checkOwned(bals, memberID); err != nil {
			return allocation.Plan{}, err
		}
		c := bals[0].Allocatable()
		if c.Cancelled {
			return allocation.Plan{}, planError(allocation.ErrClaimCancelled)
		}
		if !c.Remaining().IsPositive() {
			return allocation.Plan{}, planError(allocation.ErrClaimSettled)
		}
		return allocation.FIFO(available, []allocation.Claim{c}), nil

	case auto:
		bals, err := claims.LockOpenByMemberTx(ctx, tx, memberID)
		if err != nil {
			return allocation.Plan{}, err
		}
		return allocation.FIFO(available, claims.Allocatable(bals)), nil
	}
	return allocation.Plan{Allocated: decimal.Zero, Unallocated: available}, nil
}

// applyPlanTx writes the allocation rows of plan and closes settled claims.
func applyPlanTx(ctx context.Context, tx db.DBTX, paymentID int64, plan allocation.Plan, actor string, at time.Time) ([]int64, error) {
	var settled []int64
	for _, l := range plan.Lines {
		if _, err := InsertAllocation(ctx, tx, l.ClaimID, paymentID, l.Amount, actor); err != nil {
			return nil, apierr.FromDB(err, "allocation")
		}
		if l.Settles {
			settled = append(settled, l.ClaimID)
		}
	}
	if err := claims.MarkPaidTx(ctx, tx, settled, at); err != nil {
		return nil, err
	}
	return settled, nil
}

// BookTx books a payment with its allocations inside tx. Either every row is
// written or the caller rolls back.
func (s *Service) BookTx(ctx context.Context, tx db.DBTX, b Booking) (BookResult, error) {
	if err := allocation.CheckAmount(b.Amount); err != nil {
		return BookResult{}, apierr.Invalid("amount: " + err.Error())
	}
	assoc, err := claims.LockMemberTx(ctx, tx, b.MemberID)
	if err != nil {
		return BookResult{}, apierr.FromDB(err, "member")
	}
	if assoc != b.AssociationID {
		return BookResult{}, apierr.Invalid("member does not belong to the association")
	}

	plan, err := s.planTx(ctx, tx, b.MemberID, b.Amount, b.ClaimID, b.Allocations, b.AutoAllocate)
	if err != nil {
		return BookResult{}, err
	}

	p := &Payment{
		PaymentRef:        s.ids.New(),
		AssociationID:     b.AssociationID,
		MemberID:          b.MemberID,
		ClaimID:           db.NullInt64(b.ClaimID),
		PaymentType:       b.PaymentType,
		Amount:            b.Amount,
		Currency:          b.Currency,
		PaidOn:            b.PaidOn,
		Method:            b.Method,
		BankAccountID:     db.NullInt64(b.BankAccountID),
		BankTransactionID: db.NullInt64(b.BankTransactionID),
		Reference:         db.NullString(b.Reference),
		Note:              db.NullString(b.Note),
		CreatedBy:         db.NullString(&b.Actor),
	}
	if err := s.store.Insert(ctx, tx, p); err != nil {
		return BookResult{}, apierr.FromDB(err, "payment")
	}

	now := s.clock.Now()
	settled, err := applyPlanTx(ctx, tx, p.PaymentID, plan, b.Actor, now)
	if err != nil {
		return BookResult{}, err
	}
	res := BookResult{PaymentID: p.PaymentID, PaymentRef: p.PaymentRef, Plan: plan, Settled: settled}

	if b.RemainderAsCredit && plan.Unallocated.IsPositive() {
		creditID, err := s.store.InsertCredit(ctx, tx, p, plan.Unallocated, "Guthaben aus Zahlung "+p.PaymentRef)
		if err != nil {
			return BookResult{}, apierr.FromDB(err, "credit")
		}
		res.CreditID = &creditID
	}

	if b.LedgerNumber != nil && strings.TrimSpace(*b.LedgerNumber) != "" {
		cashIn, bankIn := cashbook.Incoming(b.Method, b.Amount)
		purpose := "Zahlung " + p.PaymentRef
		if p.Reference.Valid {
			purpose += " " + p.Reference.String
		}
		e := &cashbook.Entry{
			AssociationID:     b.AssociationID,
			VoucherDate:       b.PaidOn,
			LedgerNumber:      strings.TrimSpace(*b.LedgerNumber),
			Purpose:           purpose,
			CashIn:            cashIn,
			BankIn:            bankIn,
			Method:            sql.NullString{String: b.Method, Valid: true},
			MemberID:          sql.NullInt64{Int64: b.MemberID, Valid: true},
			PaymentID:         sql.NullInt64{Int64: p.PaymentID, Valid: true},
			BankTransactionID: db.NullInt64(b.BankTransactionID),
			CreatedBy:         db.NullString(&b.Actor),
		}
		if err := cashbook.InsertTx(ctx, tx, e); err != nil {
			return BookResult{}, apierr.FromDB(err, "cash book entry")
		}
		res.EntryID = &e.EntryID
	}
	return res, nil
}

// Book runs BookTx in its own transaction and records metrics.
func (s *Service) Book(ctx context.Context, b Booking, source string) (BookResult, error) {
	var res BookResult
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		var err error
		res, err = s.BookTx(ctx, tx, b)
		return err
	})
	if err != nil {
		return BookResult{}, err
	}
	s.Booked(ctx, res, source)
	return res, nil
}

// Booked logs and counts a committed booking.
func (s *Service) Booked(ctx context.Context, res BookResult, source string) {
	alloc, _ := res.Plan.Allocated.Float64()
	s.metrics.PaymentBooked(source, alloc)
	zerolog.Ctx(ctx).Info().
		Int64("payment_id", res.PaymentID).
		Str("payment_ref", res.PaymentRef).
		Str("allocated", res.Plan.Allocated.StringFixed(2)).
		Str("unallocated", res.Plan.Unallocated.StringFixed(2)).
		Int("settled_claims", len(res.Settled)).
		Str("source", source).
		Msg("payment booked")
}

func toRequests(in []AllocationInput) []allocation.Request {
	out := make([]allocation.Request, 0, len(in))
	for _, a := range in {
		out = append(out, allocation.Request{ClaimID: a.ClaimID, Amount: a.Amount})
	}
	return out
}

// bookingFrom validates an API request.
func bookingFrom(in CreatePaymentRequest, actor string) (Booking, error) {
	if err := allocation.CheckAmount(in.Amount); err != nil {
		return Booking{}, apierr.Invalid("amount: " + err.Error())
	}
	paidOn, err := time.Parse(web.DateLayout, strings.TrimSpace(in.PaidOn))
	if err != nil {
		return Booking{}, apierr.Invalid("paid_on must be YYYY-MM-DD")
	}
	method := strings.ToUpper(strings.TrimSpace(in.Method))
	if !methods[method] {
		return Booking{}, apierr.Invalid("method must be BAR, UEBERWEISUNG, LASTSCHRIFT, KARTE or SONSTIGE")
	}
	ptype := "BEITRAG"
	if in.PaymentType != nil {
		ptype = strings.ToUpper(strings.TrimSpace(*in.PaymentType))
		if !paymentTypes[ptype] {
			return Booking{}, apierr.Invalid("unknown payment_type")
		}
	}
	currency := "EUR"
	if in.Currency != nil {
		currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
		if len(currency) != 3 {
			return Booking{}, apierr.Invalid("currency must be an ISO 4217 code")
		}
	}
	if len(in.Allocations) > 0 && in.AutoAllocate {
		return Booking{}, apierr.Invalid("allocations and auto_allocate are exclusive")
	}
	remainder := in.AutoAllocate
	if in.RemainderAsCredit != nil {
		remainder = *in.RemainderAsCredit
	}
	return Booking{
		AssociationID:     in.AssociationID,
		MemberID:          in.MemberID,
		ClaimID:           in.ClaimID,
		PaymentType:       ptype,
		Amount:            in.Amount,
		Currency:          currency,
		PaidOn:            paidOn,
		Method:            method,
		BankAccountID:     in.BankAccountID,
		Reference:         in.Reference,
		Note:              in.Note,
		Allocations:       toRequests(in.Allocations),
		AutoAllocate:      in.AutoAllocate,
		RemainderAsCredit: remainder,
		LedgerNumber:      in.LedgerNumber,
		Actor:             actor,
	}, nil
}

// Create books a payment and its allocations atomically.
func (s *Service) Create(ctx context.Context, in CreatePaymentRequest, actor string) (PaymentResponse, error) {
	b, err := bookingFrom(in, actor)
	if err != nil {
		return PaymentResponse{}, err
	}
	res, err := s.Book(ctx, b, "manual")
	if err != nil {
		return PaymentResponse{}, err
	}
	out, err := s.Get(ctx, res.PaymentID)
	if err != nil {
		return PaymentResponse{}, err
	}
	out.CreditID = res.CreditID
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (PaymentResponse, error) {
	p, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return PaymentResponse{}, apierr.FromDB(err, "payment")
	}
	rows, err := s.store.Allocations(ctx, s.db, id)
	if err != nil {
		return PaymentResponse{}, err
	}
	res := p.toResponse()
	res.Allocations = make([]AllocationLine, 0, len(rows))
	for i := range rows {
		res.Allocations = append(res.Allocations, rows[i].toLine())
	}
	return res, nil
}

func (s *Service) GetByRef(ctx context.Context, ref string) (PaymentResponse, error) {
	p, err := s.store.GetByRef(ctx, s.db, strings.ToUpper(strings.TrimSpace(ref)))
	if err != nil {
		return PaymentResponse{}, apierr.FromDB(err, "payment")
	}
	return s.Get(ctx, p.PaymentID)
}

// Owner returns association and member of a payment for access checks.
func (s *Service) Owner(ctx context.Context, id int64) (associationID, memberID int64, err error) {
	p, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return 0, 0, apierr.FromDB(err, "payment")
	}
	return p.AssociationID, p.MemberID, nil
}

func (s *Service) List(ctx context.Context, q SearchQuery, p web.Page) ([]PaymentResponse, int64, error) {
	if q.Method != nil {
		m := strings.ToUpper(*q.Method)
		q.Method = &m
	}
	rows, total, err := s.store.List(ctx, s.db, q, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]PaymentResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toResponse())
	}
	return out, total, nil
}

// lockBooked locks member and payment, in that order, and rejects reversed
// payments.
func (s *Service) lockBooked(ctx context.Context, tx db.DBTX, id int64) (*Payment, error) {
	p, err := s.store.GetByID(ctx, tx, id)
	if err != nil {
		return nil, apierr.FromDB(err, "payment")
	}
	if _, err := claims.LockMemberTx(ctx, tx, p.MemberID); err != nil {
		return nil, apierr.FromDB(err, "member")
	}
	p, err = s.store.LockTx(ctx, tx, id)
	if err != nil {
		return nil, apierr.FromDB(err, "payment")
	}
	if p.Status != StatusBooked {
		return nil, apierr.Conflict("payment is reversed")
	}
	return p, nil
}

// AddAllocations allocates the free part of an existing payment.
func (s *Service) AddAllocations(ctx context.Context, id int64, in AddAllocationsRequest, actor string) (PaymentResponse, error) {
	if len(in.Allocations) == 0 && !in.AutoAllocate {
		return PaymentResponse{}, apierr.Invalid("allocations or auto_allocate is required")
	}
	if len(in.Allocations) > 0 && in.AutoAllocate {
		return PaymentResponse{}, apierr.Invalid("allocations and auto_allocate are exclusive")
	}
	var plan allocation.Plan
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		p, err := s.lockBooked(ctx, tx, id)
		if err != nil {
			return err
		}
		free := p.Free()
		if !free.IsPositive() {
			return apierr.Unprocessable("payment has no unallocated amount")
		}
		plan, err = s.planTx(ctx, tx, p.MemberID, free, nil, toRequests(in.Allocations), in.AutoAllocate)
		if err != nil {
			return err
		}
		if len(plan.Lines) == 0 {
			return apierr.Unprocessable("no open claims to allocate to")
		}
		_, err = applyPlanTx(ctx, tx, p.PaymentID, plan, actor, s.clock.Now())
		return err
	})
	if err != nil {
		return PaymentResponse{}, err
	}
	alloc, _ := plan.Allocated.Float64()
	s.metrics.Allocated(alloc)
	zerolog.Ctx(ctx).Info().Int64("payment_id", id).Str("allocated", plan.Allocated.StringFixed(2)).Msg("allocations added")
	return s.Get(ctx, id)
}

// DeleteAllocation removes one allocation and reopens its claim.
func (s *Service) DeleteAllocation(ctx context.Context, paymentID, allocationID int64) (PaymentResponse, error) {
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		if _, err := s.lockBooked(ctx, tx, paymentID); err != nil {
			return err
		}
		claimID, err := s.store.AllocationClaim(ctx, tx, paymentID, allocationID)
		if err != nil {
			return apierr.FromDB(err, "allocation")
		}
		if _, err := claims.LockByIDsTx(ctx, tx, []int64{claimID}); err != nil {
			return err
		}
		if err := s.store.DeleteAllocation(ctx, tx, allocationID); err != nil {
			return apierr.FromDB(err, "allocation")
		}
		return claims.ReopenTx(ctx, tx, []int64{claimID})
	})
	if err != nil {
		return PaymentResponse{}, err
	}
	zerolog.Ctx(ctx).Info().Int64("payment_id", paymentID).Int64("allocation_id", allocationID).Msg("allocation removed")
	return s.Get(ctx, paymentID)
}

// Reverse cancels a payment (Storno): its allocations are removed, settled
// claims reopen, its credits are voided and a linked bank transaction is
// released for matching.
func (s *Service) Reverse(ctx context.Context, id int64, reason *string, actor string) (PaymentResponse, error) {
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		p, err := s.lockBooked(ctx, tx, id)
		if err != nil {
			return err
		}
		claimIDs, err := s.store.AllocatedClaims(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := claims.LockByIDsTx(ctx, tx, claimIDs); err != nil {
			return err
		}
		if err := s.store.DeleteAllocations(ctx, tx, id); err != nil {
			return err
		}
		if err := claims.ReopenTx(ctx, tx, claimIDs); err != nil {
			return err
		}
		if err := s.store.VoidCredits(ctx, tx, id); err != nil {
			return err
		}
		note := "Storno"
		if reason != nil && strings.TrimSpace(*reason) != "" {
			note += ": " + strings.TrimSpace(*reason)
		}
		if p.Note.Valid {
			note = p.Note.String + " | " + note
		}
		if r := []rune(note); len(r) > 250 {
			note = string(r[:250])
		}
		return s.store.MarkReversed(ctx, tx, p, note, actor, s.clock.Now())
	})
	if err != nil {
		return PaymentResponse{}, err
	}
	zerolog.Ctx(ctx).Info().Int64("payment_id", id).Str("actor", actor).Msg("payment reversed")
	return s.Get(ctx, id)
}
