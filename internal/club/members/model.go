package members

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/db"
)

// Member is one row of members (Mitglied).
type Member struct {
	MemberID      int64
	AssociationID int64
	MemberNumber  string
	FirstName     string
	LastName      string
	Email         sql.NullString
	Phone         sql.NullString
	BirthDate     sql.NullTime
	JoinedOn      sql.NullTime
	LeftOn        sql.NullTime
	Status        string
	FeeAmount     decimal.NullDecimal
	FeePeriod     sql.NullString
	Note          sql.NullString
	CreatedAt     time.Time
	UpdatedAt     sql.NullTime
}

func (m *Member) FullName() string {
	return m.FirstName + " " + m.LastName
}

func (m *Member) toResponse() MemberResponse {
	return MemberResponse{
		MemberID:      m.MemberID,
		AssociationID: m.AssociationID,
		MemberNumber:  m.MemberNumber,
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		FullName:      m.FullName(),
		Email:         db.StringPtr(m.Email),
		Phone:         db.StringPtr(m.Phone),
		BirthDate:     db.DatePtr(m.BirthDate),
		JoinedOn:      db.DatePtr(m.JoinedOn),
		LeftOn:        db.DatePtr(m.LeftOn),
		Status:        m.Status,
		FeeAmount:     db.DecimalPtr(m.FeeAmount),
		FeePeriod:     db.StringPtr(m.FeePeriod),
		Note:          db.StringPtr(m.Note),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     db.TimePtr(m.UpdatedAt),
	}
}
