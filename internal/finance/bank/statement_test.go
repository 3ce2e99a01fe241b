package bank

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

const sampleStatement = "Kontonummer;DE89370400440532013000\n" +
	";\n" +
	"Buchungstag;Valuta;Auftraggeber/Empfänger;Verwendungszweck;Betrag;Kundenreferenz\n" +
	"02.01.2024;02.01.2024;Müller, Hans;Beitrag M-00007 Januar;1.234,56;REF1\n" +
	"03.01.2024;03.01.2024;Stadtwerke;Strom;-45,00;\n" +
	"xx.01.2024;;A;B;1,00;\n"

func TestParseStatementWindows1252(t *testing.T) {
	raw, err := charmap.Windows1252.NewEncoder().String(sampleStatement)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := ParseStatement(strings.NewReader(raw), "windows-1252")
	if err != nil {
		t.Fatalf("ParseStatement: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	first := rows[0]
	if first.Err != nil {
		t.Fatalf("row 1: %v", first.Err)
	}
	if first.Line != 4 {
		t.Errorf("line = %d, want 4", first.Line)
	}
	if !first.BookedOn.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("booked on = %v", first.BookedOn)
	}
	if !first.Amount.Equal(decimal.RequireFromString("1234.56")) {
		t.Errorf("amount = %s", first.Amount)
	}
	if first.Counterparty != "Müller, Hans" || first.Reference != "REF1" {
		t.Errorf("counterparty = %q reference = %q", first.Counterparty, first.Reference)
	}

	if !rows[1].Amount.Equal(decimal.RequireFromString("-45")) || rows[1].Reference != "" {
		t.Errorf("row 2 = %+v", rows[1])
	}
	if rows[2].Err == nil {
		t.Error("row 3: expected date error")
	}
}

func TestParseStatementErrors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		charset string
		want    error
	}{
		{"unknown charset", "Buchungsdatum;Betrag\n", "ebcdic", ErrCharset},
		{"no header", "a;b\n1;2\n", "", ErrNoHeader},
		{"header only", "Buchungsdatum;Betrag\n", "utf-8", ErrEmptyFile},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseStatement(strings.NewReader(tc.in), tc.charset)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestParseGermanAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"12,50", "12.5", false},
		{"-1.000,00", "-1000", false},
		{"+30,00 EUR", "30", false},
		{"99.99", "99.99", false},
		{"1,234", "", true},
		{"", "", true},
		{"abc", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseGermanAmount(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if err == nil && !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Errorf("got %s, want %s", got, tc.want)
			}
		})
	}
}
