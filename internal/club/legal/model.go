package legal

import (
	"database/sql"
	"time"

	"verein-backend/internal/platform/db"
)

type LegalData struct {
	LegalID             int64
	AssociationID       int64
	CourtName           sql.NullString
	CourtRegisterNumber sql.NullString
	CourtCity           sql.NullString
	RegisteredOn        sql.NullTime
	TaxOfficeName       sql.NullString
	TaxOfficeNumber     sql.NullString
	TaxOfficeCity       sql.NullString
	TaxLiable           bool
	TaxExempt           bool
	NonProfit           bool
	NonProfitUntil      sql.NullTime
	RegisterDocPath     sql.NullString
	NonProfitDocPath    sql.NullString
	TaxReturnYear       sql.NullInt32
	Note                sql.NullString
	CreatedAt           time.Time
	UpdatedAt           sql.NullTime

	// joined
	AssociationName string
}

func (l *LegalData) toResponse() LegalResponse {
	return LegalResponse{
		LegalID:             l.LegalID,
		AssociationID:       l.AssociationID,
		CourtName:           db.StringPtr(l.CourtName),
		CourtRegisterNumber: db.StringPtr(l.CourtRegisterNumber),
		CourtCity:           db.StringPtr(l.CourtCity),
		RegisteredOn:        db.DatePtr(l.RegisteredOn),
		TaxOfficeName:       db.StringPtr(l.TaxOfficeName),
		TaxOfficeNumber:     db.StringPtr(l.TaxOfficeNumber),
		TaxOfficeCity:       db.StringPtr(l.TaxOfficeCity),
		TaxLiable:           l.TaxLiable,
		TaxExempt:           l.TaxExempt,
		NonProfit:           l.NonProfit,
		NonProfitUntil:      db.DatePtr(l.NonProfitUntil),
		RegisterDocPath:     db.StringPtr(l.RegisterDocPath),
		NonProfitDocPath:    db.StringPtr(l.NonProfitDocPath),
		TaxReturnYear:       db.IntPtr(l.TaxReturnYear),
		Note:                db.StringPtr(l.Note),
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           db.TimePtr(l.UpdatedAt),
	}
}

// daysLeft counts calendar days from today to the end of the recognition.
func daysLeft(until, today time.Time) int {
	u := time.Date(until.Year(), until.Month(), until.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(u.Sub(t).Hours() / 24)
}
