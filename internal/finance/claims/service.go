package claims

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"verein-backend/internal/finance/allocation"
	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/ids"
	"verein-backend/internal/platform/web"
)

type Service struct {
	db    *sql.DB
	store *Store
	ids   ids.IDGen
	clock ids.Clock
}

func NewService(conn *sql.DB) *Service {
	return &Service{db: conn, store: NewStore(), ids: ids.ULIDGen{}, clock: ids.RealClock{}}
}

func (s *Service) today() time.Time {
	return s.clock.Now().Truncate(24 * time.Hour)
}

// NewClaimNumber builds a public claim number.
func NewClaimNumber(gen ids.IDGen) string {
	return "F-" + gen.New()
}

type period struct {
	year, quarter, month sql.NullInt32
}

func checkPeriod(year, quarter, month *int) (period, error) {
	var p period
	if year != nil {
		if *year < 1900 || *year > 2200 {
			return p, apierr.Invalid("period_year is out of range")
		}
		p.year = db.NullInt32(year)
	}
	if quarter != nil {
		if *quarter < 1 || *quarter > 4 {
			return p, apierr.Invalid("period_quarter must be 1..4")
		}
		p.quarter = db.NullInt32(quarter)
	}
	if month != nil {
		if *month < 1 || *month > 12 {
			return p, apierr.Invalid("period_month must be 1..12")
		}
		p.month = db.NullInt32(month)
	}
	if p.quarter.Valid && p.month.Valid {
		return p, apierr.Invalid("period_quarter and period_month are exclusive")
	}
	if (p.quarter.Valid || p.month.Valid) && !p.year.Valid {
		return p, apierr.Invalid("period_year is required with quarter or month")
	}
	return p, nil
}

func checkMoney(field string, d decimal.Decimal) error {
	switch err := allocation.CheckAmount(d); {
	case errors.Is(err, allocation.ErrNonPositive):
		return apierr.Invalid(field + " must be greater than zero")
	case errors.Is(err, allocation.ErrPrecision):
		return apierr.Invalid(field + " must not have more than two decimal places")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in CreateClaimRequest, actor string) (ClaimResponse, error) {
	if err := checkMoney("amount", in.Amount); err != nil {
		return ClaimResponse{}, err
	}
	due, err := time.Parse(web.DateLayout, strings.TrimSpace(in.DueDate))
	if err != nil {
		return ClaimResponse{}, apierr.Invalid("due_date must be YYYY-MM-DD")
	}
	claimType := TypeFee
	if in.ClaimType != nil {
		claimType = strings.ToUpper(strings.TrimSpace(*in.ClaimType))
		if !validType(claimType) {
			return ClaimResponse{}, apierr.Invalid("unknown claim_type")
		}
	}
	currency := "EUR"
	if in.Currency != nil {
		currency = strings.ToUpper(strings.TrimSpace(*in.Currency))
		if len(currency) != 3 {
			return ClaimResponse{}, apierr.Invalid("currency must be an ISO 4217 code")
		}
	}
	per, err := checkPeriod(in.PeriodYear, in.PeriodQuarter, in.PeriodMonth)
	if err != nil {
		return ClaimResponse{}, err
	}

	c := &Claim{
		AssociationID: in.AssociationID,
		MemberID:      in.MemberID,
		ClaimType:     claimType,
		Amount:        in.Amount,
		Currency:      currency,
		DueDate:       due,
		PeriodYear:    per.year,
		PeriodQuarter: per.quarter,
		PeriodMonth:   per.month,
		Description:   db.NullString(in.Description),
		CreatedBy:     db.NullString(&actor),
	}
	if in.ClaimNumber != nil && strings.TrimSpace(*in.ClaimNumber) != "" {
		c.ClaimNumber = strings.TrimSpace(*in.ClaimNumber)
	} else {
		c.ClaimNumber = NewClaimNumber(s.ids)
	}

	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		assoc, err := LockMemberTx(ctx, tx, c.MemberID)
		if err != nil {
			return apierr.FromDB(err, "member")
		}
		if assoc != c.AssociationID {
			return apierr.Invalid("member does not belong to the association")
		}
		if err := InsertTx(ctx, tx, c); err != nil {
			return apierr.FromDB(err, "claim number")
		}
		return nil
	})
	if err != nil {
		return ClaimResponse{}, err
	}
	zerolog.Ctx(ctx).Info().Int64("claim_id", c.ClaimID).Str("claim_number", c.ClaimNumber).
		Str("amount", c.Amount.StringFixed(2)).Msg("claim created")
	return s.Get(ctx, c.ClaimID)
}

// Get returns a claim with its allocations and derived totals.
func (s *Service) Get(ctx context.Context, id int64) (ClaimResponse, error) {
	c, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return ClaimResponse{}, apierr.FromDB(err, "claim")
	}
	allocs, err := s.store.Allocations(ctx, s.db, id)
	if err != nil {
		return ClaimResponse{}, err
	}
	res := c.toResponse(s.today())
	res.Allocations = make([]AllocationResponse, 0, len(allocs))
	for i := range allocs {
		res.Allocations = append(res.Allocations, allocs[i].toResponse())
	}
	return res, nil
}

// Owner returns association and member of a claim for access checks.
func (s *Service) Owner(ctx context.Context, id int64) (associationID, memberID int64, err error) {
	c, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return 0, 0, apierr.FromDB(err, "claim")
	}
	return c.AssociationID, c.MemberID, nil
}

func (s *Service) List(ctx context.Context, q SearchQuery, p web.Page) ([]ClaimResponse, int64, error) {
	if q.Status != nil {
		st := strings.ToUpper(*q.Status)
		switch allocation.State(st) {
		case allocation.StateOpen, allocation.StatePartial, allocation.StatePaid, allocation.StateCancelled:
		default:
			return nil, 0, apierr.Invalid("status must be OFFEN, TEILBEZAHLT, BEZAHLT or STORNIERT")
		}
		q.Status = &st
	}
	today := s.today()
	rows, total, err := s.store.List(ctx, s.db, q, today, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ClaimResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toResponse(today))
	}
	return out, total, nil
}

// Update changes an open claim. The amount is frozen once payments have been
// allocated to the claim.
func (s *Service) Update(ctx context.Context, id int64, in UpdateClaimRequest, actor string) (ClaimResponse, error) {
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		c, err := s.store.GetForUpdate(ctx, tx, id)
		if err != nil {
			return apierr.FromDB(err, "claim")
		}
		if c.Status == StatusCancelled {
			return apierr.Conflict("cancelled claims cannot be changed")
		}
		if in.Amount != nil && !in.Amount.Equal(c.Amount) {
			if c.AllocationCount > 0 {
				return apierr.Conflict("amount cannot change after payments were allocated")
			}
			if err := checkMoney("amount", *in.Amount); err != nil {
				return err
			}
			c.Amount = *in.Amount
		}
		if in.DueDate != nil {
			due, err := time.Parse(web.DateLayout, strings.TrimSpace(*in.DueDate))
			if err != nil {
				return apierr.Invalid("due_date must be YYYY-MM-DD")
			}
			c.DueDate = due
		}
		if in.ClaimType != nil {
			t := strings.ToUpper(strings.TrimSpace(*in.ClaimType))
			if !validType(t) {
				return apierr.Invalid("unknown claim_type")
			}
			c.ClaimType = t
		}
		if in.PeriodYear != nil || in.PeriodQuarter != nil || in.PeriodMonth != nil {
			per, err := checkPeriod(in.PeriodYear, in.PeriodQuarter, in.PeriodMonth)
			if err != nil {
				return err
			}
			c.PeriodYear, c.PeriodQuarter, c.PeriodMonth = per.year, per.quarter, per.month
		}
		if in.Description != nil {
			c.Description = db.NullString(in.Description)
		}
		return s.store.Update(ctx, tx, c, actor)
	})
	if err != nil {
		return ClaimResponse{}, err
	}
	return s.Get(ctx, id)
}

// Cancel marks an open claim without allocations as STORNIERT.
func (s *Service) Cancel(ctx context.Context, id int64, actor string) (ClaimResponse, error) {
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		c, err := s.store.GetForUpdate(ctx, tx, id)
		if err != nil {
			return apierr.FromDB(err, "claim")
		}
		if c.Status != StatusOpen {
			return apierr.Conflict("only open claims can be cancelled")
		}
		if c.AllocationCount > 0 {
			return apierr.Conflict("claim has allocated payments; reverse them first")
		}
		return s.store.SetCancelled(ctx, tx, id, actor)
	})
	if err != nil {
		return ClaimResponse{}, err
	}
	zerolog.Ctx(ctx).Info().Int64("claim_id", id).Str("actor", actor).Msg("claim cancelled")
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64, actor string) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		c, err := s.store.GetForUpdate(ctx, tx, id)
		if err != nil {
			return apierr.FromDB(err, "claim")
		}
		if c.AllocationCount > 0 {
			return apierr.Conflict("claim has allocated payments")
		}
		if err := s.store.SoftDelete(ctx, tx, id, actor); err != nil {
			return apierr.FromDB(err, "claim")
		}
		return nil
	})
}

// ===== fee run =====

const (
	BatchCreated = "Created"
	BatchSkipped = "Skipped"
	BatchFailed  = "Failed"
)

// RunBatch creates one claim per active member for the period. Each member is
// booked in its own transaction so one failure does not stop the run.
func (s *Service) RunBatch(ctx context.Context, in BatchRequest, actor string) (BatchResult, error) {
	due, err := time.Parse(web.DateLayout, strings.TrimSpace(in.DueDate))
	if err != nil {
		return BatchResult{}, apierr.Invalid("due_date must be YYYY-MM-DD")
	}
	year := in.Year
	per, err := checkPeriod(&year, in.Quarter, in.Month)
	if err != nil {
		return BatchResult{}, err
	}
	claimType := TypeFee
	if in.ClaimType != nil {
		claimType = strings.ToUpper(strings.TrimSpace(*in.ClaimType))
		if !validType(claimType) {
			return BatchResult{}, apierr.Invalid("unknown claim_type")
		}
	}
	if in.Amount != nil {
		if err := checkMoney("amount", *in.Amount); err != nil {
			return BatchResult{}, err
		}
	}

	members, err := s.store.ActiveMembers(ctx, s.db, in.AssociationID, in.MemberIDs)
	if err != nil {
		return BatchResult{}, err
	}

	log := zerolog.Ctx(ctx)
	res := BatchResult{Items: make([]BatchItem, 0, len(members))}
	for _, m := range members {
		item := BatchItem{MemberID: m.MemberID, MemberNumber: m.MemberNumber}
		amount := decimal.Zero
		switch {
		case in.Amount != nil:
			amount = *in.Amount
		case m.Fee.Valid:
			amount = m.Fee.Decimal
		}
		if !amount.IsPositive() {
			msg := "member has no fee amount"
			item.Result, item.Message = BatchSkipped, &msg
			res.Skipped++
			res.Items = append(res.Items, item)
			continue
		}

		c := &Claim{
			AssociationID: in.AssociationID,
			MemberID:      m.MemberID,
			ClaimNumber:   NewClaimNumber(s.ids),
			ClaimType:     claimType,
			Amount:        amount,
			Currency:      "EUR",
			DueDate:       due,
			PeriodYear:    per.year,
			PeriodQuarter: per.quarter,
			PeriodMonth:   per.month,
			Description:   db.NullString(in.Description),
			CreatedBy:     db.NullString(&actor),
		}
		skipped := false
		err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
			if _, err := LockMemberTx(ctx, tx, m.MemberID); err != nil {
				return err
			}
			exists, err := s.store.ExistsForPeriod(ctx, tx, m.MemberID, claimType, year, per.quarter, per.month)
			if err != nil {
				return err
			}
			if exists {
				skipped = true
				return nil
			}
			return InsertTx(ctx, tx, c)
		})
		switch {
		case err != nil:
			log.Warn().Err(err).Int64("member_id", m.MemberID).Msg("fee run: claim not created")
			msg := err.Error()
			item.Result, item.Message = BatchFailed, &msg
			res.Failed++
		case skipped:
			msg := "claim for this period already exists"
			item.Result, item.Message = BatchSkipped, &msg
			res.Skipped++
		default:
			id := c.ClaimID
			item.Result, item.ClaimID = BatchCreated, &id
			res.Created++
		}
		res.Items = append(res.Items, item)
	}
	log.Info().Int64("association_id", in.AssociationID).Int("year", year).
		Int("created", res.Created).Int("skipped", res.Skipped).Int("failed", res.Failed).
		Msg("fee run finished")
	return res, nil
}
