package associations

import (
	"database/sql"
	"time"

	"verein-backend/internal/platform/db"
)

// Association is one row of associations (Verein), the tenant root.
type Association struct {
	AssociationID  int64
	Name           string
	ShortName      sql.NullString
	RegisterNumber sql.NullString
	TaxNumber      sql.NullString
	FoundedOn      sql.NullTime
	Purpose        sql.NullString
	Email          sql.NullString
	Phone          sql.NullString
	Website        sql.NullString
	Chairperson    sql.NullString
	SEPACreditorID sql.NullString
	ActiveMembers  int64
	CreatedAt      time.Time
	UpdatedAt      sql.NullTime
}

func (a *Association) toResponse() AssociationResponse {
	return AssociationResponse{
		AssociationID:  a.AssociationID,
		Name:           a.Name,
		ShortName:      db.StringPtr(a.ShortName),
		RegisterNumber: db.StringPtr(a.RegisterNumber),
		TaxNumber:      db.StringPtr(a.TaxNumber),
		FoundedOn:      db.DatePtr(a.FoundedOn),
		Purpose:        db.StringPtr(a.Purpose),
		Email:          db.StringPtr(a.Email),
		Phone:          db.StringPtr(a.Phone),
		Website:        db.StringPtr(a.Website),
		Chairperson:    db.StringPtr(a.Chairperson),
		SEPACreditorID: db.StringPtr(a.SEPACreditorID),
		ActiveMembers:  a.ActiveMembers,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      db.TimePtr(a.UpdatedAt),
	}
}
