package families

import "time"

const (
	RelationChild   = "KIND"
	RelationSpouse  = "EHEPARTNER"
	RelationSibling = "GESCHWISTER"
	RelationOther   = "SONSTIGE"

	StatusActive   = "AKTIV"
	StatusInactive = "INAKTIV"
)

// LinkRequest ties a member to a related member, e.g. a child to the
// parent who holds the family membership.
type LinkRequest struct {
	MemberID       int64   `json:"member_id" binding:"required"`
	ParentMemberID int64   `json:"parent_member_id" binding:"required"`
	Relation       string  `json:"relation" binding:"required"`
	ValidFrom      *string `json:"valid_from,omitempty"`
	ValidTo        *string `json:"valid_to,omitempty"`
	Note           *string `json:"note,omitempty"`
}

type UpdateLinkRequest struct {
	Relation  *string `json:"relation,omitempty"`
	Status    *string `json:"status,omitempty"`
	ValidFrom *string `json:"valid_from,omitempty"`
	ValidTo   *string `json:"valid_to,omitempty"`
	Note      *string `json:"note,omitempty"`
}

type LinkResponse struct {
	FamilyID       int64      `json:"family_id"`
	AssociationID  int64      `json:"association_id"`
	MemberID       int64      `json:"member_id"`
	MemberName     string     `json:"member_name"`
	ParentMemberID int64      `json:"parent_member_id"`
	ParentName     string     `json:"parent_name"`
	Relation       string     `json:"relation"`
	Status         string     `json:"status"`
	ValidFrom      *string    `json:"valid_from,omitempty"`
	ValidTo        *string    `json:"valid_to,omitempty"`
	Note           *string    `json:"note,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}
