package donations

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"verein-backend/internal/platform/db"
)

type Witness struct {
	Name   sql.NullString
	Signed bool
}

type Detail struct {
	DetailID    int64
	ProtocolID  int64
	Description string
	UnitValue   decimal.Decimal
	Quantity    int
	Total       decimal.Decimal
}

type Protocol struct {
	ProtocolID    int64
	AssociationID int64
	DonatedOn     time.Time
	Purpose       sql.NullString
	Category      sql.NullString
	Amount        decimal.Decimal
	RecordedBy    sql.NullString
	Witnesses     [maxWitnesses]Witness
	EntryID       sql.NullInt64
	Note          sql.NullString
	CreatedAt     time.Time
	CreatedBy     sql.NullString
	UpdatedAt     sql.NullTime

	Details []Detail
}

// FullySigned reports whether every named witness has signed. A protocol
// without witnesses is never signed.
func (p *Protocol) FullySigned() bool {
	named := 0
	for _, w := range p.Witnesses {
		if !w.Name.Valid {
			continue
		}
		named++
		if !w.Signed {
			return false
		}
	}
	return named > 0
}

// Fixed reports whether the protocol can no longer be edited.
func (p *Protocol) Fixed() bool {
	if p.EntryID.Valid {
		return true
	}
	for _, w := range p.Witnesses {
		if w.Signed {
			return true
		}
	}
	return false
}

func (p *Protocol) toResponse() ProtocolResponse {
	r := ProtocolResponse{
		ProtocolID:    p.ProtocolID,
		AssociationID: p.AssociationID,
		DonatedOn:     p.DonatedOn.Format("2006-01-02"),
		Purpose:       db.StringPtr(p.Purpose),
		Category:      db.StringPtr(p.Category),
		Amount:        p.Amount,
		RecordedBy:    db.StringPtr(p.RecordedBy),
		Witnesses:     []WitnessResponse{},
		FullySigned:   p.FullySigned(),
		EntryID:       db.Int64Ptr(p.EntryID),
		Note:          db.StringPtr(p.Note),
		CreatedAt:     p.CreatedAt,
		CreatedBy:     db.StringPtr(p.CreatedBy),
		UpdatedAt:     db.TimePtr(p.UpdatedAt),
	}
	for i, w := range p.Witnesses {
		if w.Name.Valid {
			r.Witnesses = append(r.Witnesses, WitnessResponse{Position: i + 1, Name: w.Name.String, Signed: w.Signed})
		}
	}
	for _, d := range p.Details {
		r.Details = append(r.Details, DetailResponse{
			DetailID: d.DetailID, Description: d.Description, UnitValue: d.UnitValue, Quantity: d.Quantity, Total: d.Total,
		})
	}
	return r
}
