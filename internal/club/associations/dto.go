package associations

import "time"

// ===== Requests =====

type CreateAssociationRequest struct {
	Name           string  `json:"name" binding:"required"`
	ShortName      *string `json:"short_name,omitempty"`
	RegisterNumber *string `json:"register_number,omitempty"`
	TaxNumber      *string `json:"tax_number,omitempty"`
	FoundedOn      *string `json:"founded_on,omitempty"` // YYYY-MM-DD
	Purpose        *string `json:"purpose,omitempty"`
	Email          *string `json:"email,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Website        *string `json:"website,omitempty"`
	Chairperson    *string `json:"chairperson,omitempty"`
	SEPACreditorID *string `json:"sepa_creditor_id,omitempty"`
}

type UpdateAssociationRequest struct {
	Name           *string `json:"name,omitempty"`
	ShortName      *string `json:"short_name,omitempty"`
	RegisterNumber *string `json:"register_number,omitempty"`
	TaxNumber      *string `json:"tax_number,omitempty"`
	FoundedOn      *string `json:"founded_on,omitempty"`
	Purpose        *string `json:"purpose,omitempty"`
	Email          *string `json:"email,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Website        *string `json:"website,omitempty"`
	Chairperson    *string `json:"chairperson,omitempty"`
	SEPACreditorID *string `json:"sepa_creditor_id,omitempty"`
}

// ===== Responses =====

type AssociationResponse struct {
	AssociationID  int64      `json:"association_id"`
	Name           string     `json:"name"`
	ShortName      *string    `json:"short_name,omitempty"`
	RegisterNumber *string    `json:"register_number,omitempty"`
	TaxNumber      *string    `json:"tax_number,omitempty"`
	FoundedOn      *string    `json:"founded_on,omitempty"`
	Purpose        *string    `json:"purpose,omitempty"`
	Email          *string    `json:"email,omitempty"`
	Phone          *string    `json:"phone,omitempty"`
	Website        *string    `json:"website,omitempty"`
	Chairperson    *string    `json:"chairperson,omitempty"`
	SEPACreditorID *string    `json:"sepa_creditor_id,omitempty"`
	ActiveMembers  int64      `json:"active_members"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

type SearchQuery struct {
	Name *string
}
