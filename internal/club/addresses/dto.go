package addresses

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypePostal  = "POST"
	TypeBilling = "RECHNUNG"
	TypeVisit   = "BESUCH"
	TypeOther   = "SONSTIGE"
)

// AddressRequest creates or replaces an address. Without member_id the
// address belongs to the association itself.
type AddressRequest struct {
	AssociationID int64            `json:"association_id"`
	MemberID      *int64           `json:"member_id,omitempty"`
	AddressType   *string          `json:"address_type,omitempty"` // POST (default), RECHNUNG, BESUCH, SONSTIGE
	Street        *string          `json:"street,omitempty"`
	HouseNumber   *string          `json:"house_number,omitempty"`
	AddressExtra  *string          `json:"address_extra,omitempty"`
	PostalCode    *string          `json:"postal_code,omitempty"`
	City          *string          `json:"city,omitempty"`
	District      *string          `json:"district,omitempty"`
	State         *string          `json:"state,omitempty"`
	Country       *string          `json:"country,omitempty"`
	POBox         *string          `json:"po_box,omitempty"`
	Phone         *string          `json:"phone,omitempty"`
	Fax           *string          `json:"fax,omitempty"`
	Email         *string          `json:"email,omitempty"`
	ContactPerson *string          `json:"contact_person,omitempty"`
	Note          *string          `json:"note,omitempty"`
	Latitude      *decimal.Decimal `json:"latitude,omitempty"`
	Longitude     *decimal.Decimal `json:"longitude,omitempty"`
	ValidFrom     *string          `json:"valid_from,omitempty"` // YYYY-MM-DD
	ValidTo       *string          `json:"valid_to,omitempty"`
	IsDefault     bool             `json:"is_default"`
}

type AddressResponse struct {
	AddressID     int64            `json:"address_id"`
	AssociationID int64            `json:"association_id"`
	MemberID      *int64           `json:"member_id,omitempty"`
	AddressType   string           `json:"address_type"`
	Street        *string          `json:"street,omitempty"`
	HouseNumber   *string          `json:"house_number,omitempty"`
	AddressExtra  *string          `json:"address_extra,omitempty"`
	PostalCode    *string          `json:"postal_code,omitempty"`
	City          *string          `json:"city,omitempty"`
	District      *string          `json:"district,omitempty"`
	State         *string          `json:"state,omitempty"`
	Country       *string          `json:"country,omitempty"`
	POBox         *string          `json:"po_box,omitempty"`
	Phone         *string          `json:"phone,omitempty"`
	Fax           *string          `json:"fax,omitempty"`
	Email         *string          `json:"email,omitempty"`
	ContactPerson *string          `json:"contact_person,omitempty"`
	Note          *string          `json:"note,omitempty"`
	Latitude      *decimal.Decimal `json:"latitude,omitempty"`
	Longitude     *decimal.Decimal `json:"longitude,omitempty"`
	ValidFrom     *string          `json:"valid_from,omitempty"`
	ValidTo       *string          `json:"valid_to,omitempty"`
	IsDefault     bool             `json:"is_default"`
	Label         string           `json:"label"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     *time.Time       `json:"updated_at,omitempty"`
}

// SearchQuery selects the addresses of one owner. MemberID nil means the
// association's own addresses.
type SearchQuery struct {
	AssociationID *int64
	MemberID      *int64
	AddressType   *string
}
