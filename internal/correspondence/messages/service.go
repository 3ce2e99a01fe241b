package messages

import (
	"context"
	"database/sql"

	"verein-backend/internal/platform/apierr"
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

// Owner returns association and member of a message for access checks.
func (s *Service) Owner(ctx context.Context, id int64) (associationID, memberID int64, err error) {
	m, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return 0, 0, apierr.FromDB(err, "message")
	}
	return m.AssociationID, m.MemberID, nil
}

func (s *Service) MemberOwner(ctx context.Context, memberID int64) (int64, error) {
	id, err := s.store.MemberAssociation(ctx, s.db, memberID)
	if err != nil {
		return 0, apierr.FromDB(err, "member")
	}
	return id, nil
}

func (s *Service) Get(ctx context.Context, id int64) (MessageResponse, error) {
	m, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return MessageResponse{}, apierr.FromDB(err, "message")
	}
	return m.toResponse(), nil
}

func (s *Service) List(ctx context.Context, q SearchQuery, p web.Page) ([]MessageResponse, int64, error) {
	rows, total, err := s.store.List(ctx, s.db, q, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]MessageResponse, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toResponse())
	}
	return out, total, nil
}

func (s *Service) UnreadCount(ctx context.Context, memberID int64) (int64, error) {
	return s.store.UnreadCount(ctx, s.db, memberID)
}

func (s *Service) MarkRead(ctx context.Context, id int64) (MessageResponse, error) {
	if err := s.store.MarkRead(ctx, s.db, id, s.clock.Now()); err != nil {
		return MessageResponse{}, apierr.FromDB(err, "message")
	}
	return s.Get(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context, memberID int64) (int64, error) {
	return s.store.MarkAllRead(ctx, s.db, memberID, s.clock.Now())
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return apierr.FromDB(s.store.SoftDelete(ctx, s.db, id), "message")
}

// Counts is used by the letter statistics.
func (s *Service) Counts(ctx context.Context, associationID int64) (total, unread int64, err error) {
	return s.store.Counts(ctx, s.db, associationID)
}
