package reports

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/ids"
)

// UnmatchedSource reports incoming bank rows that still need a member.
type UnmatchedSource interface {
	Unmatched(ctx context.Context, associationID int64) (int64, decimal.Decimal, error)
}

type Service struct {
	db    *sql.DB
	store *Store
	bank  UnmatchedSource
	clock ids.Clock
}

func NewService(conn *sql.DB, bank UnmatchedSource) *Service {
	return &Service{db: conn, store: NewStore(), bank: bank, clock: ids.RealClock{}}
}

func (s *Service) today() time.Time {
	n := s.clock.Now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// MemberOwner returns the association of a member for access checks.
func (s *Service) MemberOwner(ctx context.Context, memberID int64) (int64, error) {
	m, err := s.store.Member(ctx, s.db, memberID)
	if err != nil {
		return 0, apierr.FromDB(err, "member")
	}
	return m.AssociationID, nil
}

// MemberSummary reads everything in one read-only transaction so the
// figures are consistent with each other.
func (s *Service) MemberSummary(ctx context.Context, memberID int64) (MemberSummary, error) {
	today := s.today()
	var (
		head   *MemberHeader
		claims []ClaimRow
		pays   []PaymentRow
		credit decimal.Decimal
	)
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		var err error
		if head, err = s.store.Member(ctx, tx, memberID); err != nil {
			return err
		}
		if claims, err = s.store.MemberClaims(ctx, tx, memberID); err != nil {
			return err
		}
		// the trend window always starts on or before January 1st
		since := time.Date(today.Year(), today.Month()-11, 1, 0, 0, 0, 0, time.UTC)
		if pays, err = s.store.MemberPayments(ctx, tx, memberID, since); err != nil {
			return err
		}
		credit, err = s.store.MemberCredit(ctx, tx, memberID)
		return err
	})
	if err != nil {
		return MemberSummary{}, apierr.FromDB(err, "member")
	}
	out := BuildMemberSummary(claims, pays, credit, today)
	out.MemberID = memberID
	out.MemberNumber = head.MemberNumber
	out.MemberName = head.Name
	return out, nil
}

func (s *Service) Dashboard(ctx context.Context, associationID int64) (Dashboard, error) {
	today := s.today()
	out := Dashboard{AssociationID: associationID, Year: today.Year()}
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		var err error
		if out.ActiveMembers, err = s.store.ActiveMembers(ctx, tx, associationID); err != nil {
			return err
		}
		out.OpenClaims, out.OverdueClaims, out.MembersWithDebt, out.OpenAmount, out.OverdueAmount, err =
			s.store.OpenClaims(ctx, tx, associationID, today)
		if err != nil {
			return err
		}
		jan := time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		out.PaymentsThisYear, out.PaidThisYear, err = s.store.PaymentsBetween(ctx, tx, associationID, jan, jan.AddDate(1, 0, 0))
		if err != nil {
			return err
		}
		out.CreditTotal, err = s.store.CreditTotal(ctx, tx, associationID)
		return err
	})
	if err != nil {
		return Dashboard{}, err
	}
	if s.bank != nil {
		if out.UnmatchedBookings, out.UnmatchedAmount, err = s.bank.Unmatched(ctx, associationID); err != nil {
			return Dashboard{}, err
		}
	}
	return out, nil
}
