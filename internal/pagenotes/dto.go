package pagenotes

import "time"

const (
	StatusPending    = "Pending"
	StatusInProgress = "InProgress"
	StatusCompleted  = "Completed"
	StatusRejected   = "Rejected"
)

var (
	Statuses   = []string{StatusPending, StatusInProgress, StatusCompleted, StatusRejected}
	Categories = []string{"General", "Bug", "Feature", "Question", "Improvement", "DataCorrection"}
	Priorities = []string{"Low", "Medium", "High", "Critical"}
)

type CreateRequest struct {
	PageURL    string  `json:"page_url" binding:"required"`
	PageTitle  *string `json:"page_title,omitempty"`
	EntityType *string `json:"entity_type,omitempty"`
	EntityID   *int64  `json:"entity_id,omitempty"`
	Title      string  `json:"title" binding:"required"`
	Content    string  `json:"content" binding:"required"`
	Category   *string `json:"category,omitempty"`
	Priority   *string `json:"priority,omitempty"`
	UserEmail  *string `json:"user_email,omitempty"`
}

type UpdateRequest struct {
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	Category *string `json:"category,omitempty"`
	Priority *string `json:"priority,omitempty"`
}

type CompleteRequest struct {
	Status     string  `json:"status" binding:"required"`
	AdminNotes *string `json:"admin_notes,omitempty"`
}

type NoteResponse struct {
	NoteID      int64      `json:"note_id"`
	PageURL     string     `json:"page_url"`
	PageTitle   *string    `json:"page_title,omitempty"`
	EntityType  *string    `json:"entity_type,omitempty"`
	EntityID    *int64     `json:"entity_id,omitempty"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	UserID      string     `json:"user_id"`
	UserEmail   *string    `json:"user_email,omitempty"`
	Status      string     `json:"status"`
	CompletedBy *string    `json:"completed_by,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	AdminNotes  *string    `json:"admin_notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

type SearchQuery struct {
	Status     *string
	Category   *string
	Priority   *string
	PageURL    *string
	UserID     *string
	EntityType *string
	EntityID   *int64
}

type UserCount struct {
	UserID    string  `json:"user_id"`
	UserEmail *string `json:"user_email,omitempty"`
	Count     int64   `json:"count"`
}

type Statistics struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByCategory map[string]int64 `json:"by_category"`
	ByPriority map[string]int64 `json:"by_priority"`
	ByUser     []UserCount      `json:"by_user"`
	Recent     []NoteResponse   `json:"recent"`
}
