package associations

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rs/zerolog"

	"verein-backend/internal/platform/apierr"
	"verein-backend/internal/platform/db"
	"verein-backend/internal/platform/web"
)

type Service struct {
	store *Store
}

func NewService(conn *sql.DB) *Service { return &Service{store: NewStore(conn)} }

func (s *Service) Create(ctx context.Context, in CreateAssociationRequest) (AssociationResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return AssociationResponse{}, apierr.Invalid("name is required")
	}
	founded, err := db.ParseDate(in.FoundedOn)
	if err != nil {
		return AssociationResponse{}, apierr.Invalid("founded_on must be YYYY-MM-DD")
	}
	a := &Association{
		Name:           name,
		ShortName:      db.NullString(in.ShortName),
		RegisterNumber: db.NullString(in.RegisterNumber),
		TaxNumber:      db.NullString(in.TaxNumber),
		FoundedOn:      founded,
		Purpose:        db.NullString(in.Purpose),
		Email:          db.NullString(in.Email),
		Phone:          db.NullString(in.Phone),
		Website:        db.NullString(in.Website),
		Chairperson:    db.NullString(in.Chairperson),
		SEPACreditorID: db.NullString(in.SEPACreditorID),
	}
	id, err := s.store.Insert(ctx, a)
	if err != nil {
		return AssociationResponse{}, apierr.FromDB(err, "association")
	}
	zerolog.Ctx(ctx).Info().Int64("association_id", id).Msg("association created")
	return s.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (AssociationResponse, error) {
	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		return AssociationResponse{}, apierr.FromDB(err, "association")
	}
	return a.toResponse(), nil
}

func (s *Service) List(ctx context.Context, q SearchQuery, scope *int64, p web.Page) ([]AssociationResponse, int64, error) {
	rows, total, err := s.store.List(ctx, q, scope, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]AssociationResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toResponse())
	}
	return out, total, nil
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateAssociationRequest) (AssociationResponse, error) {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return AssociationResponse{}, apierr.Invalid("name must not be empty")
	}
	founded, err := db.ParseDate(in.FoundedOn)
	if err != nil {
		return AssociationResponse{}, apierr.Invalid("founded_on must be YYYY-MM-DD")
	}
	if err := s.store.Update(ctx, id, in, founded); err != nil {
		return AssociationResponse{}, apierr.FromDB(err, "association")
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes an association. Associations with active members are
// kept.
func (s *Service) Delete(ctx context.Context, id int64) error {
	n, err := s.store.CountActiveMembers(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apierr.Conflict("association still has active members")
	}
	if err := s.store.SoftDelete(ctx, id); err != nil {
		return apierr.FromDB(err, "association")
	}
	return nil
}
