package addresses

import (
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/db"
)

type Address struct {
	AddressID     int64
	AssociationID int64
	MemberID      sql.NullInt64
	AddressType   string
	Street        sql.NullString
	HouseNumber   sql.NullString
	AddressExtra  sql.NullString
	PostalCode    sql.NullString
	City          sql.NullString
	District      sql.NullString
	State         sql.NullString
	Country       sql.NullString
	POBox         sql.NullString
	Phone         sql.NullString
	Fax           sql.NullString
	Email         sql.NullString
	ContactPerson sql.NullString
	Note          sql.NullString
	Latitude      decimal.NullDecimal
	Longitude     decimal.NullDecimal
	ValidFrom     sql.NullTime
	ValidTo       sql.NullTime
	IsDefault     bool
	CreatedAt     time.Time
	UpdatedAt     sql.NullTime
}

// Label renders the address on one line, e.g. "Hauptstr. 5, 50667 Köln".
func (a *Address) Label() string {
	var parts []string
	street := strings.TrimSpace(a.Street.String + " " + a.HouseNumber.String)
	if street != "" {
		parts = append(parts, street)
	} else if a.POBox.Valid {
		parts = append(parts, "Postfach "+a.POBox.String)
	}
	if a.AddressExtra.Valid {
		parts = append(parts, a.AddressExtra.String)
	}
	if city := strings.TrimSpace(a.PostalCode.String + " " + a.City.String); city != "" {
		parts = append(parts, city)
	}
	if a.Country.Valid && !domestic(a.Country.String) {
		parts = append(parts, a.Country.String)
	}
	return strings.Join(parts, ", ")
}

func domestic(country string) bool {
	switch strings.ToUpper(strings.TrimSpace(country)) {
	case "", "DE", "DEU", "DEUTSCHLAND", "GERMANY":
		return true
	}
	return false
}

func (a *Address) toResponse() AddressResponse {
	return AddressResponse{
		AddressID:     a.AddressID,
		AssociationID: a.AssociationID,
		MemberID:      db.Int64Ptr(a.MemberID),
		AddressType:   a.AddressType,
		Street:        db.StringPtr(a.Street),
		HouseNumber:   db.StringPtr(a.HouseNumber),
		AddressExtra:  db.StringPtr(a.AddressExtra),
		PostalCode:    db.StringPtr(a.PostalCode),
		City:          db.StringPtr(a.City),
		District:      db.StringPtr(a.District),
		State:         db.StringPtr(a.State),
		Country:       db.StringPtr(a.Country),
		POBox:         db.StringPtr(a.POBox),
		Phone:         db.StringPtr(a.Phone),
		Fax:           db.StringPtr(a.Fax),
		Email:         db.StringPtr(a.Email),
		ContactPerson: db.StringPtr(a.ContactPerson),
		Note:          db.StringPtr(a.Note),
		Latitude:      db.DecimalPtr(a.Latitude),
		Longitude:     db.DecimalPtr(a.Longitude),
		ValidFrom:     db.DatePtr(a.ValidFrom),
		ValidTo:       db.DatePtr(a.ValidTo),
		IsDefault:     a.IsDefault,
		Label:         a.Label(),
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     db.TimePtr(a.UpdatedAt),
	}
}
