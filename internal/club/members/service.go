package members

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/ids"
	"verein-backend/internal/platform/web"
)

type Service struct {
	db    *sql.DB
	store *Store
	clock ids.Clock
}

func NewService(conn *sql.DB) *Service {
	return &Service{db: conn, store: NewStore(), clock: ids.RealClock{}}
}

func (s *Service) Create(ctx context.Context, in CreateMemberRequest) (MemberResponse, error) {
	m := &Member{
		AssociationID: in.AssociationID,
		Status:        StatusActive,
	}
	if err := applyCreate(m, in, s.clock.Now()); err != nil {
		return MemberResponse{}, err
	}

	var id int64
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		if err := s.store.LockAssociation(ctx, tx, m.AssociationID); err != nil {
			return apierr.FromDB(err, "association")
		}
		if m.MemberNumber == "" {
			n, err := s.store.NextNumber(ctx, tx, m.AssociationID)
			if err != nil {
				return err
			}
			m.MemberNumber = n
		}
		var err error
		id, err = s.store.Insert(ctx, tx, m)
		if err != nil {
			return apierr.FromDB(err, "member number")
		}
		return nil
	})
	if err != nil {
		return MemberResponse{}, err
	}
	zerolog.Ctx(ctx).Info().Int64("member_id", id).Str("member_number", m.MemberNumber).Msg("member created")
	return s.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (MemberResponse, error) {
	m, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return MemberResponse{}, apierr.FromDB(err, "member")
	}
	return m.toResponse(), nil
}

// Lookup loads the raw member row, for access checks in handlers.
func (s *Service) Lookup(ctx context.Context, id int64) (*Member, error) {
	m, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, apierr.FromDB(err, "member")
	}
	return m, nil
}

func (s *Service) List(ctx context.Context, q SearchQuery, p web.Page) ([]MemberResponse, int64, error) {
	if q.Status != nil && !validStatus(*q.Status) {
		return nil, 0, apierr.Invalid("status must be AKTIV, PASSIV or AUSGETRETEN")
	}
	rows, total, err := s.store.List(ctx, s.db, q, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]MemberResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toResponse())
	}
	return out, total, nil
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateMemberRequest) (MemberResponse, error) {
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		m, err := s.store.GetByID(ctx, tx, id)
		if err != nil {
			return apierr.FromDB(err, "member")
		}
		if err := applyUpdate(m, in, s.clock.Now()); err != nil {
			return err
		}
		if err := s.store.Update(ctx, tx, m); err != nil {
			return apierr.FromDB(err, "member number")
		}
		return nil
	})
	if err != nil {
		return MemberResponse{}, err
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes a member without outstanding claims.
func (s *Service) Delete(ctx context.Context, id int64) error {
	n, err := s.store.OpenClaimCount(ctx, s.db, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apierr.Conflict("member has open claims")
	}
	if err := s.store.SoftDelete(ctx, s.db, id); err != nil {
		return apierr.FromDB(err, "member")
	}
	return nil
}

// ===== field rules =====

func applyCreate(m *Member, in CreateMemberRequest, now time.Time) error {
	return applyUpdate(m, UpdateMemberRequest{
		MemberNumber: in.MemberNumber,
		FirstName:    &in.FirstName,
		LastName:     &in.LastName,
		Email:        in.Email,
		Phone:        in.Phone,
		BirthDate:    in.BirthDate,
		JoinedOn:     in.JoinedOn,
		LeftOn:       in.LeftOn,
		Status:       in.Status,
		FeeAmount:    in.FeeAmount,
		FeePeriod:    in.FeePeriod,
		Note:         in.Note,
	}, now)
}

func parseDateField(name string, p *string, dst *sql.NullTime) error {
	if p == nil {
		return nil
	}
	t, err := db.ParseDate(p)
	if err != nil {
		return apierr.Invalid(name + " must be YYYY-MM-DD")
	}
	*dst = t
	return nil
}

// applyUpdate merges the non-nil fields of in into m and validates the result.
// Leaving the association sets left_on to today when no date is given.
func applyUpdate(m *Member, in UpdateMemberRequest, now time.Time) error {
	if in.MemberNumber != nil {
		m.MemberNumber = strings.TrimSpace(*in.MemberNumber)
	}
	if in.FirstName != nil {
		m.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		m.LastName = strings.TrimSpace(*in.LastName)
	}
	if m.FirstName == "" || m.LastName == "" {
		return apierr.Invalid("first_name and last_name are required")
	}
	if in.Email != nil {
		m.Email = db.NullString(in.Email)
		if m.Email.Valid && !strings.Contains(m.Email.String, "@") {
			return apierr.Invalid("email is not valid")
		}
	}
	if in.Phone != nil {
		m.Phone = db.NullString(in.Phone)
	}
	if err := parseDateField("birth_date", in.BirthDate, &m.BirthDate); err != nil {
		return err
	}
	if err := parseDateField("joined_on", in.JoinedOn, &m.JoinedOn); err != nil {
		return err
	}
	if err := parseDateField("left_on", in.LeftOn, &m.LeftOn); err != nil {
		return err
	}
	if in.Status != nil {
		st := strings.ToUpper(strings.TrimSpace(*in.Status))
		if !validStatus(st) {
			return apierr.Invalid("status must be AKTIV, PASSIV or AUSGETRETEN")
		}
		m.Status = st
	}
	if m.Status == StatusLeft && !m.LeftOn.Valid {
		m.LeftOn = sql.NullTime{Time: now.Truncate(24 * time.Hour), Valid: true}
	}
	if m.JoinedOn.Valid && m.LeftOn.Valid && m.LeftOn.Time.Before(m.JoinedOn.Time) {
		return apierr.Invalid("left_on must not be before joined_on")
	}
	if in.FeeAmount != nil {
		if in.FeeAmount.IsNegative() || !in.FeeAmount.Round(2).Equal(*in.FeeAmount) {
			return apierr.Invalid("fee_amount must be >= 0 with at most two decimals")
		}
		m.FeeAmount = decimal.NullDecimal{Decimal: *in.FeeAmount, Valid: true}
	}
	if in.FeePeriod != nil {
		m.FeePeriod = db.NullString(in.FeePeriod)
		if m.FeePeriod.Valid {
			m.FeePeriod.String = strings.ToUpper(m.FeePeriod.String)
			if !validPeriod(m.FeePeriod.String) {
				return apierr.Invalid("fee_period must be MONATLICH, QUARTALSWEISE or JAEHRLICH")
			}
		}
	}
	if in.Note != nil {
		m.Note = db.NullString(in.Note)
	}
	return nil
}
