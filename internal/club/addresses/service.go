package addresses

import (
	"context"
	"database/sql"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"verein-backend/internal/finance/claims"
	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/web"
)

type Service struct {
	db    *sql.DB
	store *Store
}

func NewService(conn *sql.DB) *Service {
	return &Service{db: conn, store: NewStore()}
}

var (
	germanPostalCode = regexp.MustCompile(`^\d{5}$`)
	maxLatitude      = decimal.NewFromInt(90)
	maxLongitude     = decimal.NewFromInt(180)
)

func validType(t string) bool {
	switch t {
	case TypePostal, TypeBilling, TypeVisit, TypeOther:
		return true
	}
	return false
}

func inRange(d *decimal.Decimal, limit decimal.Decimal) bool {
	return d == nil || (d.GreaterThanOrEqual(limit.Neg()) && d.LessThanOrEqual(limit))
}

func addressFrom(in AddressRequest) (*Address, error) {
	a := &Address{
		AssociationID: in.AssociationID,
		MemberID:      db.NullInt64(in.MemberID),
		AddressType:   TypePostal,
		Street:        db.NullString(in.Street),
		HouseNumber:   db.NullString(in.HouseNumber),
		AddressExtra:  db.NullString(in.AddressExtra),
		PostalCode:    db.NullString(in.PostalCode),
		City:          db.NullString(in.City),
		District:      db.NullString(in.District),
		State:         db.NullString(in.State),
		Country:       db.NullString(in.Country),
		POBox:         db.NullString(in.POBox),
		Phone:         db.NullString(in.Phone),
		Fax:           db.NullString(in.Fax),
		Email:         db.NullString(in.Email),
		ContactPerson: db.NullString(in.ContactPerson),
		Note:          db.NullString(in.Note),
		Latitude:      db.NullDecimal(in.Latitude),
		Longitude:     db.NullDecimal(in.Longitude),
		IsDefault:     in.IsDefault,
	}
	if in.AddressType != nil {
		a.AddressType = strings.ToUpper(strings.TrimSpace(*in.AddressType))
		if !validType(a.AddressType) {
			return nil, apierr.Invalid("address_type must be POST, RECHNUNG, BESUCH or SONSTIGE")
		}
	}
	if !a.Street.Valid && !a.POBox.Valid {
		return nil, apierr.Invalid("street or po_box is required")
	}
	if !a.City.Valid {
		return nil, apierr.Invalid("city is required")
	}
	if a.PostalCode.Valid && domestic(a.Country.String) && !germanPostalCode.MatchString(a.PostalCode.String) {
		return nil, apierr.Invalid("postal_code must have five digits")
	}
	if !inRange(in.Latitude, maxLatitude) || !inRange(in.Longitude, maxLongitude) {
		return nil, apierr.Invalid("coordinates are out of range")
	}
	var err error
	if a.ValidFrom, err = db.ParseDate(in.ValidFrom); err != nil {
		return nil, apierr.Invalid("valid_from must be YYYY-MM-DD")
	}
	if a.ValidTo, err = db.ParseDate(in.ValidTo); err != nil {
		return nil, apierr.Invalid("valid_to must be YYYY-MM-DD")
	}
	if a.ValidFrom.Valid && a.ValidTo.Valid && a.ValidTo.Time.Before(a.ValidFrom.Time) {
		return nil, apierr.Invalid("valid_to is before valid_from")
	}
	return a, nil
}

// lockOwner checks the owner exists and that a member belongs to the
// association.
func (s *Service) lockOwner(ctx context.Context, tx db.DBTX, a *Address) error {
	if !a.MemberID.Valid {
		return apierr.FromDB(s.store.LockAssociation(ctx, tx, a.AssociationID), "association")
	}
	assoc, err := claims.LockMemberTx(ctx, tx, a.MemberID.Int64)
	if err != nil {
		return apierr.FromDB(err, "member")
	}
	if assoc != a.AssociationID {
		return apierr.Unprocessable("member belongs to another association")
	}
	return nil
}

// Create stores an address. The first address of an owner becomes its
// default; a new default replaces the old one.
func (s *Service) Create(ctx context.Context, in AddressRequest) (AddressResponse, error) {
	if in.AssociationID == 0 {
		return AddressResponse{}, apierr.Invalid("association_id is required")
	}
	a, err := addressFrom(in)
	if err != nil {
		return AddressResponse{}, err
	}
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		if err := s.lockOwner(ctx, tx, a); err != nil {
			return err
		}
		n, err := s.store.CountForOwner(ctx, tx, a.AssociationID, a.MemberID)
		if err != nil {
			return err
		}
		if n == 0 {
			a.IsDefault = true
		} else if a.IsDefault {
			if err := s.store.ClearDefault(ctx, tx, a.AssociationID, a.MemberID); err != nil {
				return err
			}
		}
		a.AddressID, err = s.store.Insert(ctx, tx, a)
		return apierr.FromDB(err, "address")
	})
	if err != nil {
		return AddressResponse{}, err
	}
	zerolog.Ctx(ctx).Info().Int64("address_id", a.AddressID).Int64("association_id", a.AssociationID).
		Bool("default", a.IsDefault).Msg("address created")
	return s.Get(ctx, a.AddressID)
}

func (s *Service) Get(ctx context.Context, id int64) (AddressResponse, error) {
	a, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return AddressResponse{}, apierr.FromDB(err, "address")
	}
	return a.toResponse(), nil
}

// Owner returns association and member (0 for association addresses).
func (s *Service) Owner(ctx context.Context, id int64) (int64, int64, error) {
	a, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return 0, 0, apierr.FromDB(err, "address")
	}
	return a.AssociationID, a.MemberID.Int64, nil
}

func (s *Service) List(ctx context.Context, q SearchQuery, p web.Page) ([]AddressResponse, int64, error) {
	if q.AddressType != nil {
		t := strings.ToUpper(*q.AddressType)
		q.AddressType = &t
	}
	rows, total, err := s.store.List(ctx, s.db, q, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]AddressResponse, len(rows))
	for i := range rows {
		out[i] = rows[i].toResponse()
	}
	return out, total, nil
}

// Default returns the default address of a member, or of the association
// when memberID is nil.
func (s *Service) Default(ctx context.Context, associationID int64, memberID *int64) (AddressResponse, error) {
	a, err := s.store.Default(ctx, s.db, associationID, db.NullInt64(memberID))
	if err != nil {
		return AddressResponse{}, apierr.FromDB(err, "address")
	}
	return a.toResponse(), nil
}

func (s *Service) Update(ctx context.Context, id int64, in AddressRequest) (AddressResponse, error) {
	upd, err := addressFrom(in)
	if err != nil {
		return AddressResponse{}, err
	}
	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		cur, err := s.store.LockByID(ctx, tx, id)
		if err != nil {
			return apierr.FromDB(err, "address")
		}
		upd.AddressID, upd.AssociationID, upd.MemberID = cur.AddressID, cur.AssociationID, cur.MemberID
		if upd.IsDefault && !cur.IsDefault {
			if err := s.store.ClearDefault(ctx, tx, cur.AssociationID, cur.MemberID); err != nil {
				return err
			}
		}
		return s.store.Update(ctx, tx, upd)
	})
	if err != nil {
		return AddressResponse{}, err
	}
	return s.Get(ctx, id)
}

// SetDefault makes the address the only default of its owner.
func (s *Service) SetDefault(ctx context.Context, id int64) (AddressResponse, error) {
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		a, err := s.store.LockByID(ctx, tx, id)
		if err != nil {
			return apierr.FromDB(err, "address")
		}
		if a.IsDefault {
			return nil
		}
		if err := s.store.ClearDefault(ctx, tx, a.AssociationID, a.MemberID); err != nil {
			return err
		}
		return s.store.SetDefault(ctx, tx, id)
	})
	if err != nil {
		return AddressResponse{}, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return apierr.FromDB(s.store.SoftDelete(ctx, s.db, id), "address")
}
