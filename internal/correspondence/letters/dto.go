package letters

import "time"

const (
	StatusDraft = "Entwurf"
	StatusSent  = "Gesendet"
)

var categories = map[string]bool{
	"Allgemein":      true,
	"Willkommen":     true,
	"Mitgliedschaft": true,
	"Veranstaltung":  true,
	"Finanzen":       true,
	"Mahnung":        true,
	"Sonstiges":      true,
}

// ===== Templates (BriefVorlage) =====

type TemplateRequest struct {
	AssociationID int64   `json:"association_id"`
	Name          string  `json:"name" binding:"required"`
	Description   *string `json:"description,omitempty"`
	Subject       string  `json:"subject" binding:"required"`
	Body          string  `json:"body" binding:"required"`
	Category      *string `json:"category,omitempty"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

type TemplateResponse struct {
	TemplateID    int64      `json:"template_id"`
	AssociationID int64      `json:"association_id"`
	Name          string     `json:"name"`
	Description   *string    `json:"description,omitempty"`
	Subject       string     `json:"subject"`
	Body          string     `json:"body"`
	Category      string     `json:"category"`
	IsSystem      bool       `json:"is_system"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

type TemplateQuery struct {
	AssociationID *int64
	Category      *string
	ActiveOnly    bool
}

// ===== Letters (Brief) =====

type LetterRequest struct {
	AssociationID int64  `json:"association_id"`
	TemplateID    *int64 `json:"template_id,omitempty"`
	Title         string `json:"title" binding:"required"`
	Subject       string `json:"subject"`
	Body          string `json:"body"`
}

type LetterResponse struct {
	LetterID      int64      `json:"letter_id"`
	LetterRef     string     `json:"letter_ref"`
	AssociationID int64      `json:"association_id"`
	TemplateID    *int64     `json:"template_id,omitempty"`
	Title         string     `json:"title"`
	Subject       string     `json:"subject"`
	Body          string     `json:"body"`
	Status        string     `json:"status"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	Recipients    int64      `json:"recipients"`
	CreatedAt     time.Time  `json:"created_at"`
	CreatedBy     *string    `json:"created_by,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

type LetterQuery struct {
	AssociationID *int64
	Status        *string
}

type SendRequest struct {
	MemberIDs []int64 `json:"member_ids" binding:"required"`
}

type QuickSendRequest struct {
	LetterRequest
	MemberIDs []int64 `json:"member_ids" binding:"required"`
}

type SentMessage struct {
	MessageID  int64  `json:"message_id"`
	MemberID   int64  `json:"member_id"`
	MemberName string `json:"member_name"`
	Subject    string `json:"subject"`
	Mailed     bool   `json:"mailed"`
}

type SendResponse struct {
	LetterID int64         `json:"letter_id"`
	Status   string        `json:"status"`
	Sent     int           `json:"sent"`
	Mailed   int           `json:"mailed"`
	Messages []SentMessage `json:"messages"`
}

type PreviewResponse struct {
	LetterID int64  `json:"letter_id"`
	MemberID int64  `json:"member_id"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
}

type Statistics struct {
	AssociationID  int64 `json:"association_id"`
	Templates      int64 `json:"templates"`
	Drafts         int64 `json:"drafts"`
	Sent           int64 `json:"sent"`
	Messages       int64 `json:"messages"`
	UnreadMessages int64 `json:"unread_messages"`
	ReadMessages   int64 `json:"read_messages"`
}
