package letters

import (
	"database/sql"
	"time"

	"verein-backend/internal/platform/db"
)

type Template struct {
	TemplateID    int64
	AssociationID int64
	Name          string
	Description   sql.NullString
	Subject       string
	Body          string
	Category      string
	IsSystem      bool
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     sql.NullTime
}

func (t *Template) toResponse() TemplateResponse {
	return TemplateResponse{
		TemplateID:    t.TemplateID,
		AssociationID: t.AssociationID,
		Name:          t.Name,
		Description:   db.StringPtr(t.Description),
		Subject:       t.Subject,
		Body:          t.Body,
		Category:      t.Category,
		IsSystem:      t.IsSystem,
		IsActive:      t.IsActive,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     db.TimePtr(t.UpdatedAt),
	}
}

type Letter struct {
	LetterID      int64
	LetterRef     string
	AssociationID int64
	TemplateID    sql.NullInt64
	Title         string
	Subject       string
	Body          string
	Status        string
	SentAt        sql.NullTime
	CreatedAt     time.Time
	CreatedBy     sql.NullString
	UpdatedAt     sql.NullTime

	// joined
	Recipients int64
}

func (l *Letter) toResponse() LetterResponse {
	return LetterResponse{
		LetterID:      l.LetterID,
		LetterRef:     l.LetterRef,
		AssociationID: l.AssociationID,
		TemplateID:    db.Int64Ptr(l.TemplateID),
		Title:         l.Title,
		Subject:       l.Subject,
		Body:          l.Body,
		Status:        l.Status,
		SentAt:        db.TimePtr(l.SentAt),
		Recipients:    l.Recipients,
		CreatedAt:     l.CreatedAt,
		CreatedBy:     db.StringPtr(l.CreatedBy),
		UpdatedAt:     db.TimePtr(l.UpdatedAt),
	}
}
