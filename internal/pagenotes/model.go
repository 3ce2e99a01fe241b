package pagenotes

import (
	"database/sql"
	"time"

	"verein-backend/internal/platform/db"
)

// Note is feedback a user left on a page of the web client.
type Note struct {
	NoteID      int64
	PageURL     string
	PageTitle   sql.NullString
	EntityType  sql.NullString
	EntityID    sql.NullInt64
	Title       string
	Content     string
	Category    string
	Priority    string
	UserID      string
	UserEmail   sql.NullString
	Status      string
	CompletedBy sql.NullString
	CompletedAt sql.NullTime
	AdminNotes  sql.NullString
	CreatedAt   time.Time
	UpdatedAt   sql.NullTime
}

func (n *Note) open() bool {
	return n.Status == StatusPending || n.Status == StatusInProgress
}

func (n *Note) toResponse() NoteResponse {
	return NoteResponse{
		NoteID:      n.NoteID,
		PageURL:     n.PageURL,
		PageTitle:   db.StringPtr(n.PageTitle),
		EntityType:  db.StringPtr(n.EntityType),
		EntityID:    db.Int64Ptr(n.EntityID),
		Title:       n.Title,
		Content:     n.Content,
		Category:    n.Category,
		Priority:    n.Priority,
		UserID:      n.UserID,
		UserEmail:   db.StringPtr(n.UserEmail),
		Status:      n.Status,
		CompletedBy: db.StringPtr(n.CompletedBy),
		CompletedAt: db.TimePtr(n.CompletedAt),
		AdminNotes:  db.StringPtr(n.AdminNotes),
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   db.TimePtr(n.UpdatedAt),
	}
}
