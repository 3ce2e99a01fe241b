package messages

import (
	"database/sql"
	"time"

	"verein-backend/internal/platform/db"
)

// Message is one rendered copy of a letter for a single member (Nachricht).
type Message struct {
	MessageID     int64
	MessageRef    string
	LetterID      int64
	AssociationID int64
	MemberID      int64
	Subject       string
	Body          string
	SentAt        time.Time
	IsRead        bool
	ReadAt        sql.NullTime

	// joined
	MemberName string
}

func (m *Message) toResponse() MessageResponse {
	return MessageResponse{
		MessageID:     m.MessageID,
		MessageRef:    m.MessageRef,
		LetterID:      m.LetterID,
		AssociationID: m.AssociationID,
		MemberID:      m.MemberID,
		MemberName:    m.MemberName,
		Subject:       m.Subject,
		Body:          m.Body,
		SentAt:        m.SentAt,
		IsRead:        m.IsRead,
		ReadAt:        db.TimePtr(m.ReadAt),
	}
}
