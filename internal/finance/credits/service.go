package credits

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"verein-backend/internal/finance/allocation"
	"verein-backend/internal/finance/claims"
	"verein-backend/internal/finance/payments"
	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/ids"
	"verein-backend/internal/platform/metrics"
)

type Service struct {
	db      *sql.DB
	store   *Store
	clock   ids.Clock
	metrics *metrics.Registry
}

func NewService(conn *sql.DB, m *metrics.Registry) *Service {
	return &Service{db: conn, store: NewStore(), clock: ids.RealClock{}, metrics: m}
}

// Owner returns the association of a member for access checks.
func (s *Service) Owner(ctx context.Context, memberID int64) (int64, error) {
	id, err := s.store.MemberAssociation(ctx, s.db, memberID)
	if err != nil {
		return 0, apierr.FromDB(err, "member")
	}
	return id, nil
}

func (s *Service) List(ctx context.Context, q SearchQuery) ([]CreditResponse, error) {
	rows, err := s.store.List(ctx, s.db, q)
	if err != nil {
		return nil, err
	}
	out := make([]CreditResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toResponse())
	}
	return out, nil
}

func (s *Service) Balance(ctx context.Context, memberID int64) (BalanceResponse, error) {
	sum, n, err := s.store.Balance(ctx, s.db, memberID)
	if err != nil {
		return BalanceResponse{}, err
	}
	return BalanceResponse{MemberID: memberID, Balance: sum, Credits: n}, nil
}

// Apply spends the member's credits on open claims. Credits are used oldest
// first and each one is planned FIFO over the claims that are still open
// after the previous credit. Every applied amount becomes an allocation row
// against the payment the credit came from.
func (s *Service) Apply(ctx context.Context, memberID int64, in ApplyRequest, actor string) (ApplyResult, error) {
	res := ApplyResult{MemberID: memberID, Applied: decimal.Zero, Lines: []AppliedLine{}, SettledClaimIDs: []int64{}}
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		if _, err := claims.LockMemberTx(ctx, tx, memberID); err != nil {
			return apierr.FromDB(err, "member")
		}
		credits, err := s.store.LockOpenTx(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if len(credits) == 0 {
			return apierr.Unprocessable("member has no credit balance")
		}

		var bals []claims.Balance
		if len(in.ClaimIDs) > 0 {
			bals, err = claims.LockByIDsTx(ctx, tx, in.ClaimIDs)
			if err != nil {
				return err
			}
			if len(bals) != len(uniq(in.ClaimIDs)) {
				return apierr.NotFound("claim not found")
			}
			for _, b := range bals {
				if b.MemberID != memberID {
					return apierr.Unprocessablef("claim %d does not belong to member %d", b.ClaimID, memberID)
				}
			}
		} else {
			bals, err = claims.LockOpenByMemberTx(ctx, tx, memberID)
			if err != nil {
				return err
			}
		}
		open := claims.Allocatable(bals)
		allocation.SortByDue(open)

		var settled []int64
		for _, cr := range credits {
			plan := allocation.FIFO(cr.Amount, open)
			if len(plan.Lines) == 0 {
				break
			}
			for _, l := range plan.Lines {
				if _, err := payments.InsertAllocation(ctx, tx, l.ClaimID, cr.PaymentID, l.Amount, actor); err != nil {
					return apierr.FromDB(err, "allocation")
				}
				if l.Settles {
					settled = append(settled, l.ClaimID)
				}
				res.Lines = append(res.Lines, AppliedLine{
					CreditID:  cr.CreditID,
					PaymentID: cr.PaymentID,
					ClaimID:   l.ClaimID,
					Amount:    l.Amount,
					Settles:   l.Settles,
				})
			}
			if err := s.store.ReduceTx(ctx, tx, cr.CreditID, plan.Allocated); err != nil {
				return apierr.FromDB(err, "credit")
			}
			res.Applied = res.Applied.Add(plan.Allocated)
			open = allocation.Apply(open, plan)
		}
		if len(res.Lines) == 0 {
			return apierr.Unprocessable("no open claims to apply credit to")
		}
		if err := claims.MarkPaidTx(ctx, tx, settled, s.clock.Now()); err != nil {
			return err
		}
		res.SettledClaimIDs = append(res.SettledClaimIDs, settled...)

		bal, _, err := s.store.Balance(ctx, tx, memberID)
		if err != nil {
			return err
		}
		res.RemainingBalance = bal
		return nil
	})
	if err != nil {
		return ApplyResult{}, err
	}

	applied, _ := res.Applied.Float64()
	s.metrics.Allocated(applied)
	zerolog.Ctx(ctx).Info().
		Int64("member_id", memberID).
		Str("applied", res.Applied.StringFixed(2)).
		Int("settled_claims", len(res.SettledClaimIDs)).
		Msg("credit applied")
	return res, nil
}

func uniq(in []int64) []int64 {
	seen := make(map[int64]struct{}, len(in))
	out := make([]int64, 0, len(in))
	for _, id := range in {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
