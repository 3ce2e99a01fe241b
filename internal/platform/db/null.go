package db

import (
	"database/sql"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NullString maps nil and blank strings to NULL.
func NullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}

func StringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

func NullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func Int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func NullInt32(p *int) sql.NullInt32 {
	if p == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*p), Valid: true}
}

func IntPtr(n sql.NullInt32) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int32)
	return &v
}

func NullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p, Valid: true}
}

func TimePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time
	return &v
}

// DatePtr formats a nullable DATE column as YYYY-MM-DD.
func DatePtr(n sql.NullTime) *string {
	if !n.Valid {
		return nil
	}
	v := n.Time.Format("2006-01-02")
	return &v
}

func NullDecimal(p *decimal.Decimal) decimal.NullDecimal {
	if p == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *p, Valid: true}
}

func DecimalPtr(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	v := n.Decimal
	return &v
}

// ParseDate parses an optional YYYY-MM-DD string.
func ParseDate(p *string) (sql.NullTime, error) {
	if p == nil || strings.TrimSpace(*p) == "" {
		return sql.NullTime{}, nil
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(*p))
	if err != nil {
		return sql.NullTime{}, err
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}
