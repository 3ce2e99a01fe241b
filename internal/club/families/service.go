package families

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rs/zerolog"

	"verein-backend/internal/finance/claims"
	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/db"
)

type Service struct {
	db    *sql.DB
	store *Store
}

func NewService(conn *sql.DB) *Service {
	return &Service{db: conn, store: NewStore()}
}

func normRelation(r string) (string, error) {
	r = strings.ToUpper(strings.TrimSpace(r))
	if !validRelation(r) {
		return "", apierr.Invalid("relation must be KIND, EHEPARTNER, GESCHWISTER or SONSTIGE")
	}
	return r, nil
}

func validity(from, to *string) (sql.NullTime, sql.NullTime, error) {
	vf, err := db.ParseDate(from)
	if err != nil {
		return vf, sql.NullTime{}, apierr.Invalid("valid_from must be YYYY-MM-DD")
	}
	vt, err := db.ParseDate(to)
	if err != nil {
		return vf, vt, apierr.Invalid("valid_to must be YYYY-MM-DD")
	}
	if vf.Valid && vt.Valid && vt.Time.Before(vf.Time) {
		return vf, vt, apierr.Invalid("valid_to is before valid_from")
	}
	return vf, vt, nil
}

// lockPair locks both members in id order and returns their common
// association.
func lockPair(ctx context.Context, tx db.DBTX, a, b int64) (int64, error) {
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	assocFirst, err := claims.LockMemberTx(ctx, tx, first)
	if err != nil {
		return 0, apierr.FromDB(err, "member")
	}
	assocSecond, err := claims.LockMemberTx(ctx, tx, second)
	if err != nil {
		return 0, apierr.FromDB(err, "member")
	}
	if assocFirst != assocSecond {
		return 0, apierr.Unprocessable("members belong to different associations")
	}
	return assocFirst, nil
}

// Create links two members of the same association.
func (s *Service) Create(ctx context.Context, in LinkRequest) (LinkResponse, error) {
	relation, err := normRelation(in.Relation)
	if err != nil {
		return LinkResponse{}, err
	}
	if in.MemberID == in.ParentMemberID {
		return LinkResponse{}, apierr.Invalid("a member cannot be linked to itself")
	}
	l := &Link{
		MemberID:       in.MemberID,
		ParentMemberID: in.ParentMemberID,
		Relation:       relation,
		Status:         StatusActive,
		Note:           db.NullString(in.Note),
	}
	if l.ValidFrom, l.ValidTo, err = validity(in.ValidFrom, in.ValidTo); err != nil {
		return LinkResponse{}, err
	}

	err = db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		assoc, err := lockPair(ctx, tx, l.MemberID, l.ParentMemberID)
		if err != nil {
			return err
		}
		l.AssociationID = assoc
		if relation == RelationChild {
			reverse, err := s.store.Exists(ctx, tx, l.ParentMemberID, l.MemberID, RelationChild, false)
			if err != nil {
				return err
			}
			if reverse {
				return apierr.Unprocessable("parent is already registered as a child of the member")
			}
		}
		dup, err := s.store.Exists(ctx, tx, l.MemberID, l.ParentMemberID, relation, symmetric(relation))
		if err != nil {
			return err
		}
		if dup {
			return apierr.Conflict("family link already exists")
		}
		l.FamilyID, err = s.store.Insert(ctx, tx, l)
		return apierr.FromDB(err, "family link")
	})
	if err != nil {
		return LinkResponse{}, err
	}
	zerolog.Ctx(ctx).Info().Int64("family_id", l.FamilyID).Int64("member_id", l.MemberID).
		Int64("parent_member_id", l.ParentMemberID).Str("relation", relation).Msg("family link created")
	return s.Get(ctx, l.FamilyID)
}

func (s *Service) Get(ctx context.Context, id int64) (LinkResponse, error) {
	l, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return LinkResponse{}, apierr.FromDB(err, "family link")
	}
	return l.toResponse(), nil
}

// Owner returns the association and the linked member of a family link.
func (s *Service) Owner(ctx context.Context, id int64) (int64, int64, error) {
	l, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return 0, 0, apierr.FromDB(err, "family link")
	}
	return l.AssociationID, l.MemberID, nil
}

// MemberAssociation resolves the association of a member for access checks.
func (s *Service) MemberAssociation(ctx context.Context, memberID int64) (int64, error) {
	assoc, err := s.store.MemberAssociation(ctx, s.db, memberID)
	if err != nil {
		return 0, apierr.FromDB(err, "member")
	}
	return assoc, nil
}

func (s *Service) ByMember(ctx context.Context, memberID int64) ([]LinkResponse, error) {
	rows, err := s.store.ByMember(ctx, s.db, memberID)
	if err != nil {
		return nil, err
	}
	return toResponses(rows), nil
}

func (s *Service) Children(ctx context.Context, parentID int64) ([]LinkResponse, error) {
	rows, err := s.store.Children(ctx, s.db, parentID)
	if err != nil {
		return nil, err
	}
	return toResponses(rows), nil
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateLinkRequest) (LinkResponse, error) {
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		l, err := s.store.Lock(ctx, tx, id)
		if err != nil {
			return apierr.FromDB(err, "family link")
		}
		if in.Relation != nil {
			if l.Relation, err = normRelation(*in.Relation); err != nil {
				return err
			}
		}
		if in.Status != nil {
			st := strings.ToUpper(strings.TrimSpace(*in.Status))
			if st != StatusActive && st != StatusInactive {
				return apierr.Invalid("status must be AKTIV or INAKTIV")
			}
			l.Status = st
		}
		if in.ValidFrom != nil || in.ValidTo != nil {
			from, to := db.DatePtr(l.ValidFrom), db.DatePtr(l.ValidTo)
			if in.ValidFrom != nil {
				from = in.ValidFrom
			}
			if in.ValidTo != nil {
				to = in.ValidTo
			}
			if l.ValidFrom, l.ValidTo, err = validity(from, to); err != nil {
				return err
			}
		}
		if in.Note != nil {
			l.Note = db.NullString(in.Note)
		}
		return s.store.Update(ctx, tx, l)
	})
	if err != nil {
		return LinkResponse{}, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return apierr.FromDB(s.store.SoftDelete(ctx, s.db, id), "family link")
}

func toResponses(rows []Link) []LinkResponse {
	out := make([]LinkResponse, len(rows))
	for i := range rows {
		out[i] = rows[i].toResponse()
	}
	return out
}
