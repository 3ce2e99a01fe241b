package letters

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestRender(t *testing.T) {
	r := Recipient{
		MemberNumber:    "M-00042",
		FirstName:       "Erika",
		LastName:        "Muster",
		Email:           "erika@example.org",
		FeeAmount:       decimal.NewNullDecimal(decimal.RequireFromString("1234.5")),
		AssociationName: "Turnverein Beispielstadt e.V.",
	}
	today := time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		in, want string
	}{
		{"Hallo {{vorname}} {{nachname}}", "Hallo Erika Muster"},
		{"{{vollname}} <{{email}}>", "Erika Muster <erika@example.org>"},
		{"Nr. {{mitgliedsnummer}}", "Nr. M-00042"},
		{"{{vereinKurzname}}", "Turnverein Beispielstadt e.V."},
		{"Beitrag: {{beitragBetrag}} EUR", "Beitrag: 1.234,50 EUR"},
		{"Stand {{datum}}", "Stand 07.03.2024"},
		{"{{unbekannt}}", "{{unbekannt}}"},
	}
	for _, tc := range tests {
		if got := Render(tc.in, r, today); got != tc.want {
			t.Errorf("Render(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRenderWithoutFee(t *testing.T) {
	r := Recipient{FirstName: "Max", AssociationName: "Verein", AssociationShortName: "TV"}
	got := Render("{{vollname}}/{{vereinKurzname}}/{{beitragBetrag}}", r, time.Now())
	if got != "Max/TV/0,00" {
		t.Errorf("got %q", got)
	}
}

func TestFormatEuro(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0", "0,00"},
		{"5.5", "5,50"},
		{"999.994", "999,99"},
		{"1000", "1.000,00"},
		{"-1234.5", "-1.234,50"},
		{"123456789012345678.91", "123.456.789.012.345.678,91"},
	}
	for _, tc := range tests {
		if got := FormatEuro(decimal.RequireFromString(tc.in)); got != tc.want {
			t.Errorf("FormatEuro(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
