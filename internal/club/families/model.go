package families

import (
	"database/sql"
	"time"

	"verein-backend/internal/platform/db"
)

type Link struct {
	FamilyID       int64
	AssociationID  int64
	MemberID       int64
	ParentMemberID int64
	Relation       string
	Status         string
	ValidFrom      sql.NullTime
	ValidTo        sql.NullTime
	Note           sql.NullString
	CreatedAt      time.Time
	UpdatedAt      sql.NullTime

	// joined
	MemberName string
	ParentName string
}

func (l *Link) toResponse() LinkResponse {
	return LinkResponse{
		FamilyID:       l.FamilyID,
		AssociationID:  l.AssociationID,
		MemberID:       l.MemberID,
		MemberName:     l.MemberName,
		ParentMemberID: l.ParentMemberID,
		ParentName:     l.ParentName,
		Relation:       l.Relation,
		Status:         l.Status,
		ValidFrom:      db.DatePtr(l.ValidFrom),
		ValidTo:        db.DatePtr(l.ValidTo),
		Note:           db.StringPtr(l.Note),
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      db.TimePtr(l.UpdatedAt),
	}
}

func validRelation(r string) bool {
	switch r {
	case RelationChild, RelationSpouse, RelationSibling, RelationOther:
		return true
	}
	return false
}

// symmetric relations hold in both directions.
func symmetric(r string) bool {
	return r == RelationSpouse || r == RelationSibling
}
