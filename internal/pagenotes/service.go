package pagenotes

import (
	"context"
	"database/sql"
	"slices"
	"strings"

	"github.com/rs/zerolog"

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

func pick(v *string, allowed []string, def, field string) (string, error) {
	if v == nil || *v == "" {
		return def, nil
	}
	if !slices.Contains(allowed, *v) {
		return "", apierr.Invalidf("%s must be one of %s", field, strings.Join(allowed, ", "))
	}
	return *v, nil
}

func (s *Service) Create(ctx context.Context, in CreateRequest, userID string) (NoteResponse, error) {
	n := &Note{
		PageURL:    strings.TrimSpace(in.PageURL),
		PageTitle:  db.NullString(in.PageTitle),
		EntityType: db.NullString(in.EntityType),
		EntityID:   db.NullInt64(in.EntityID),
		Title:      strings.TrimSpace(in.Title),
		Content:    strings.TrimSpace(in.Content),
		UserID:     userID,
		UserEmail:  db.NullString(in.UserEmail),
	}
	if n.PageURL == "" || n.Title == "" || n.Content == "" {
		return NoteResponse{}, apierr.Invalid("page_url, title and content are required")
	}
	var err error
	if n.Category, err = pick(in.Category, Categories, "General", "category"); err != nil {
		return NoteResponse{}, err
	}
	if n.Priority, err = pick(in.Priority, Priorities, "Medium", "priority"); err != nil {
		return NoteResponse{}, err
	}
	id, err := s.store.Insert(ctx, s.db, n)
	if err != nil {
		return NoteResponse{}, err
	}
	zerolog.Ctx(ctx).Info().Int64("note_id", id).Str("page_url", n.PageURL).Msg("page note created")
	return s.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (NoteResponse, error) {
	n, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return NoteResponse{}, apierr.FromDB(err, "page note")
	}
	return n.toResponse(), nil
}

// Owner returns the user who wrote the note.
func (s *Service) Owner(ctx context.Context, id int64) (string, error) {
	n, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return "", apierr.FromDB(err, "page note")
	}
	return n.UserID, nil
}

func (s *Service) List(ctx context.Context, q SearchQuery, p web.Page) ([]NoteResponse, int64, error) {
	rows, total, err := s.store.List(ctx, s.db, q, p)
	if err != nil {
		return nil, 0, err
	}
	out := make([]NoteResponse, len(rows))
	for i := range rows {
		out[i] = rows[i].toResponse()
	}
	return out, total, nil
}

// Update edits an open note. Triaged notes are frozen.
func (s *Service) Update(ctx context.Context, id int64, in UpdateRequest) (NoteResponse, error) {
	n, err := s.store.GetByID(ctx, s.db, id)
	if err != nil {
		return NoteResponse{}, apierr.FromDB(err, "page note")
	}
	if !n.open() {
		return NoteResponse{}, apierr.Conflict("page note is already " + n.Status)
	}
	if in.Title != nil {
		n.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		n.Content = strings.TrimSpace(*in.Content)
	}
	if n.Title == "" || n.Content == "" {
		return NoteResponse{}, apierr.Invalid("title and content must not be empty")
	}
	if n.Category, err = pick(in.Category, Categories, n.Category, "category"); err != nil {
		return NoteResponse{}, err
	}
	if n.Priority, err = pick(in.Priority, Priorities, n.Priority, "priority"); err != nil {
		return NoteResponse{}, err
	}
	if err := s.store.Update(ctx, s.db, n, s.clock.Now()); err != nil {
		return NoteResponse{}, apierr.FromDB(err, "page note")
	}
	return s.Get(ctx, id)
}

// Complete sets the triage status. Completed and Rejected record who closed
// the note and when.
func (s *Service) Complete(ctx context.Context, id int64, in CompleteRequest, actor string) (NoteResponse, error) {
	if !slices.Contains(Statuses, in.Status) {
		return NoteResponse{}, apierr.Invalidf("status must be one of %s", strings.Join(Statuses, ", "))
	}
	var by sql.NullString
	if in.Status == StatusCompleted || in.Status == StatusRejected {
		by = sql.NullString{String: actor, Valid: true}
	}
	if err := s.store.SetStatus(ctx, s.db, id, in.Status, db.NullString(in.AdminNotes), by, s.clock.Now()); err != nil {
		return NoteResponse{}, apierr.FromDB(err, "page note")
	}
	zerolog.Ctx(ctx).Info().Int64("note_id", id).Str("status", in.Status).Msg("page note triaged")
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return apierr.FromDB(s.store.SoftDelete(ctx, s.db, id), "page note")
}

func (s *Service) Statistics(ctx context.Context) (Statistics, error) {
	var st Statistics
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		var err error
		if st.ByStatus, err = s.store.CountBy(ctx, tx, "status"); err != nil {
			return err
		}
		if st.ByCategory, err = s.store.CountBy(ctx, tx, "category"); err != nil {
			return err
		}
		if st.ByPriority, err = s.store.CountBy(ctx, tx, "priority"); err != nil {
			return err
		}
		if st.ByUser, err = s.store.CountByUser(ctx, tx, 10); err != nil {
			return err
		}
		recent, _, err := s.store.List(ctx, tx, SearchQuery{}, web.Page{Limit: 5, Order: "desc"})
		if err != nil {
			return err
		}
		st.Recent = make([]NoteResponse, len(recent))
		for i := range recent {
			st.Recent[i] = recent[i].toResponse()
		}
		return nil
	})
	if err != nil {
		return Statistics{}, err
	}
	for _, status := range Statuses {
		st.Total += st.ByStatus[status]
		if _, ok := st.ByStatus[status]; !ok {
			st.ByStatus[status] = 0
		}
	}
	return st, nil
}
