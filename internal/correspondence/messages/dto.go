package messages

import "time"

type MessageResponse struct {
	MessageID     int64      `json:"message_id"`
	MessageRef    string     `json:"message_ref"`
	LetterID      int64      `json:"letter_id"`
	AssociationID int64      `json:"association_id"`
	MemberID      int64      `json:"member_id"`
	MemberName    string     `json:"member_name"`
	Subject       string     `json:"subject"`
	Body          string     `json:"body"`
	SentAt        time.Time  `json:"sent_at"`
	IsRead        bool       `json:"is_read"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
}

type SearchQuery struct {
	AssociationID *int64
	MemberID      *int64
	LetterID      *int64
	UnreadOnly    bool
}
