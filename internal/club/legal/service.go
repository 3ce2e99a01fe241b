package legal

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/ids"
)

type Service struct {
	db    *sql.DB
	store *Store
	clock ids.Clock
}

func NewService(conn *sql.DB) *Service {
	return &Service{db: conn, store: NewStore(), clock: ids.RealClock{}}
}

func legalFrom(in LegalRequest) (*LegalData, error) {
	if in.AssociationID <= 0 {
		return nil, apierr.Invalid("association_id is required")
	}
	registered, err := db.ParseDate(in.RegisteredOn)
	if err != nil {
		return nil, apierr.Invalid("registered_on must be YYYY-MM-DD")
	}
	until, err := db.ParseDate(in.NonProfitUntil)
	if err != nil {
		return nil, apierr.Invalid("non_profit_until must be YYYY-MM-DD")
	}
	if until.Valid && !in.NonProfit {
		return nil, apierr.Invalid("non_profit_until needs non_profit")
	}
	if in.TaxLiable && in.TaxExempt {
		return nil, apierr.Invalid("tax_liable and tax_exempt exclude each other")
	}
	if in.TaxReturnYear != nil && (*in.TaxReturnYear < 1900 || *in.TaxReturnYear > 2100) {
		return nil, apierr.Invalid("tax_return_year out of range")
	}
	return &LegalData{
		AssociationID:       in.AssociationID,
		CourtName:           db.NullString(in.CourtName),
		CourtRegisterNumber: db.NullString(in.CourtRegisterNumber),
		CourtCity:           db.NullString(in.CourtCity),
		RegisteredOn:        registered,
		TaxOfficeName:       db.NullString(in.TaxOfficeName),
		TaxOfficeNumber:     db.NullString(in.TaxOfficeNumber),
		TaxOfficeCity:       db.NullString(in.TaxOfficeCity),
		TaxLiable:           in.TaxLiable,
		TaxExempt:           in.TaxExempt,
		NonProfit:           in.NonProfit,
		NonProfitUntil:      until,
		RegisterDocPath:     db.NullString(in.RegisterDocPath),
		NonProfitDocPath:    db.NullString(in.NonProfitDocPath),
		TaxReturnYear:       db.NullInt32(in.TaxReturnYear),
		Note:                db.NullString(in.Note),
	}, nil
}

// Create stores the legal data of an association. There is at most one
// record per association; a previously deleted record is revived.
func (s *Service) Create(ctx context.Context, in LegalRequest) (*LegalResponse, error) {
	l, err := legalFrom(in)
	if err != nil {
		return nil, err
	}
	var id int64
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		if err := s.store.LockAssociation(ctx, tx, l.AssociationID); err != nil {
			return apierr.FromDB(err, "association")
		}
		existing, active, err := s.store.Existing(ctx, tx, l.AssociationID)
		if err != nil {
			return err
		}
		if active {
			return apierr.Conflict("legal data for this association already exists")
		}
		if existing > 0 {
			id = existing
			l.LegalID = existing
			return s.store.Update(ctx, tx, l, true)
		}
		id, err = s.store.Insert(ctx, tx, l)
		return apierr.FromDB(err, "legal data")
	})
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().Int64("legal_id", id).Int64("association_id", l.AssociationID).Msg("legal data created")
	return s.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*LegalResponse, error) {
	l, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, apierr.FromDB(err, "legal data")
	}
	res := l.toResponse()
	return &res, nil
}

func (s *Service) GetByAssociation(ctx context.Context, associationID int64) (*LegalResponse, error) {
	l, err := s.store.GetByAssociation(ctx, s.db, associationID)
	if err != nil {
		return nil, apierr.FromDB(err, "legal data")
	}
	res := l.toResponse()
	return &res, nil
}

// Owner returns the association of a legal record for access checks.
func (s *Service) Owner(ctx context.Context, id int64) (int64, error) {
	l, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return 0, apierr.FromDB(err, "legal data")
	}
	return l.AssociationID, nil
}

// Update replaces the data fields. The association of a record is fixed.
func (s *Service) Update(ctx context.Context, id int64, in LegalRequest) (*LegalResponse, error) {
	cur, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, apierr.FromDB(err, "legal data")
	}
	if in.AssociationID == 0 {
		in.AssociationID = cur.AssociationID
	}
	if in.AssociationID != cur.AssociationID {
		return nil, apierr.Unprocessable("association_id cannot change")
	}
	l, err := legalFrom(in)
	if err != nil {
		return nil, err
	}
	l.LegalID = id
	if err := s.store.Update(ctx, s.db, l, false); err != nil {
		return nil, apierr.FromDB(err, "legal data")
	}
	zerolog.Ctx(ctx).Info().Int64("legal_id", id).Msg("legal data updated")
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.SoftDelete(ctx, s.db, id); err != nil {
		return apierr.FromDB(err, "legal data")
	}
	zerolog.Ctx(ctx).Info().Int64("legal_id", id).Msg("legal data deleted")
	return nil
}

// Expiring lists non-profit recognitions ending within days from today,
// including those already ended.
func (s *Service) Expiring(ctx context.Context, days int, associationID *int64) ([]ExpiringResponse, error) {
	if days <= 0 {
		days = DefaultExpiryDays
	}
	if days > 3660 {
		return nil, apierr.Invalid("days out of range")
	}
	now := s.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	rows, err := s.store.Expiring(ctx, s.db, today.AddDate(0, 0, days), associationID)
	if err != nil {
		return nil, err
	}
	out := make([]ExpiringResponse, 0, len(rows))
	for i := range rows {
		left := daysLeft(rows[i].NonProfitUntil.Time, today)
		out = append(out, ExpiringResponse{
			LegalResponse:   rows[i].toResponse(),
			AssociationName: rows[i].AssociationName,
			DaysLeft:        left,
			Expired:         left < 0,
		})
	}
	return out, nil
}
