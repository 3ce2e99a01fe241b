package letters

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Recipient carries the member and association fields a letter can refer to.
type Recipient struct {
	MemberID      int64
	AssociationID int64
	MemberNumber  string
	FirstName     string
	LastName      string
	Email         string
	FeeAmount     decimal.NullDecimal

	AssociationName      string
	AssociationShortName string
}

// FormatEuro renders an amount the German way, e.g. 1.234,50. The digits
// come from the decimal itself so no cent is lost on large amounts.
func FormatEuro(d decimal.Decimal) string {
	d = d.Round(2)
	whole, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")
	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

// Placeholders lists the supported {{...}} keys.
var Placeholders = []string{
	"{{vorname}}", "{{nachname}}", "{{vollname}}", "{{email}}", "{{mitgliedsnummer}}",
	"{{vereinName}}", "{{vereinKurzname}}", "{{beitragBetrag}}", "{{datum}}",
}

// Render replaces the placeholders in text. Unknown placeholders are left as
// they are.
func Render(text string, r Recipient, today time.Time) string {
	short := r.AssociationShortName
	if short == "" {
		short = r.AssociationName
	}
	fee := "0,00"
	if r.FeeAmount.Valid {
		fee = FormatEuro(r.FeeAmount.Decimal)
	}
	return strings.NewReplacer(
		"{{vorname}}", r.FirstName,
		"{{nachname}}", r.LastName,
		"{{vollname}}", strings.TrimSpace(r.FirstName+" "+r.LastName),
		"{{email}}", r.Email,
		"{{mitgliedsnummer}}", r.MemberNumber,
		"{{vereinName}}", r.AssociationName,
		"{{vereinKurzname}}", short,
		"{{beitragBetrag}}", fee,
		"{{datum}}", today.Format("02.01.2006"),
	).Replace(text)
}
