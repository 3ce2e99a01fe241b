package legal

import "time"

// DefaultExpiryDays is the look-ahead of the non-profit expiry list.
const DefaultExpiryDays = 30

// LegalRequest carries the register and tax data of an association
// (RechtlicheDaten). Update replaces all fields.
type LegalRequest struct {
	AssociationID       int64   `json:"association_id"`
	CourtName           *string `json:"court_name,omitempty"`
	CourtRegisterNumber *string `json:"court_register_number,omitempty"`
	CourtCity           *string `json:"court_city,omitempty"`
	RegisteredOn        *string `json:"registered_on,omitempty"` // YYYY-MM-DD
	TaxOfficeName       *string `json:"tax_office_name,omitempty"`
	TaxOfficeNumber     *string `json:"tax_office_number,omitempty"`
	TaxOfficeCity       *string `json:"tax_office_city,omitempty"`
	TaxLiable           bool    `json:"tax_liable"`
	TaxExempt           bool    `json:"tax_exempt"`
	NonProfit           bool    `json:"non_profit"`
	NonProfitUntil      *string `json:"non_profit_until,omitempty"`
	RegisterDocPath     *string `json:"register_doc_path,omitempty"`
	NonProfitDocPath    *string `json:"non_profit_doc_path,omitempty"`
	TaxReturnYear       *int    `json:"tax_return_year,omitempty"`
	Note                *string `json:"note,omitempty"`
}

type LegalResponse struct {
	LegalID             int64      `json:"legal_id"`
	AssociationID       int64      `json:"association_id"`
	CourtName           *string    `json:"court_name,omitempty"`
	CourtRegisterNumber *string    `json:"court_register_number,omitempty"`
	CourtCity           *string    `json:"court_city,omitempty"`
	RegisteredOn        *string    `json:"registered_on,omitempty"`
	TaxOfficeName       *string    `json:"tax_office_name,omitempty"`
	TaxOfficeNumber     *string    `json:"tax_office_number,omitempty"`
	TaxOfficeCity       *string    `json:"tax_office_city,omitempty"`
	TaxLiable           bool       `json:"tax_liable"`
	TaxExempt           bool       `json:"tax_exempt"`
	NonProfit           bool       `json:"non_profit"`
	NonProfitUntil      *string    `json:"non_profit_until,omitempty"`
	RegisterDocPath     *string    `json:"register_doc_path,omitempty"`
	NonProfitDocPath    *string    `json:"non_profit_doc_path,omitempty"`
	TaxReturnYear       *int       `json:"tax_return_year,omitempty"`
	Note                *string    `json:"note,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           *time.Time `json:"updated_at,omitempty"`
}

// ExpiringResponse is one association whose non-profit recognition ends
// within the look-ahead or has already ended.
type ExpiringResponse struct {
	LegalResponse
	AssociationName string `json:"association_name"`
	DaysLeft        int    `json:"days_left"`
	Expired         bool   `json:"expired"`
}
