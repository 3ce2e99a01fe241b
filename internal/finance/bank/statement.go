package bank

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	maxHeaderScan   = 20
	maxCounterparty = 100
	maxPurpose      = 250
	maxReference    = 100
)

var (
	ErrCharset   = errors.New("unsupported charset")
	ErrNoHeader  = errors.New("no header row with Buchungsdatum and Betrag found")
	ErrEmptyFile = errors.New("statement contains no rows")
)

// StatementRow is one parsed line of a bank statement. Err is set when the
// line could not be parsed; Line is the 1-based line of the record.
type StatementRow struct {
	Line         int
	BookedOn     time.Time
	Amount       decimal.Decimal
	Counterparty string
	Purpose      string
	Reference    string
	Err          error
}

type column int

const (
	colBookedOn column = iota
	colAmount
	colCounterparty
	colPurpose
	colReference
)

var headerAliases = map[string]column{
	"buchungsdatum":                    colBookedOn,
	"buchungstag":                      colBookedOn,
	"betrag":                           colAmount,
	"betrageur":                        colAmount,
	"umsatz":                           colAmount,
	"empfaenger":                       colCounterparty,
	"auftraggeberempfaenger":           colCounterparty,
	"namezahlungsbeteiligter":          colCounterparty,
	"beguenstigterzahlungspflichtiger": colCounterparty,
	"verwendungszweck":                 colPurpose,
	"referenz":                         colReference,
	"kundenreferenz":                   colReference,
	"endtoendreferenz":                 colReference,
}

var (
	folder  = cases.Fold()
	umlauts = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss")
)

// headerKey folds a header cell to its lookup form: lower case, umlauts
// spelled out, letters only.
func headerKey(s string) string {
	s = umlauts.Replace(folder.String(strings.TrimSpace(s)))
	var b strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func decoderFor(charset string) (*encoding.Decoder, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return unicode.UTF8BOM.NewDecoder(), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "iso-8859-15":
		return charmap.ISO8859_15.NewDecoder(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCharset, charset)
}

// ParseStatement reads a ';'-separated bank statement export. Lines before
// the header row (account preambles some banks write) are ignored.
func ParseStatement(r io.Reader, charset string) ([]StatementRow, error) {
	dec, err := decoderFor(charset)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(transform.NewReader(r, dec))
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var cols map[column]int
	for i := 0; i < maxHeaderScan && cols == nil; i++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		if err != nil {
			return nil, err
		}
		cols = headerColumns(rec)
	}
	if cols == nil {
		return nil, ErrNoHeader
	}

	var out []StatementRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				out = append(out, StatementRow{Line: pe.Line, Err: err})
				continue
			}
			return nil, err
		}
		if blank(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)
		out = append(out, parseRecord(line, rec, cols))
	}
	if len(out) == 0 {
		return nil, ErrEmptyFile
	}
	return out, nil
}

func headerColumns(rec []string) map[column]int {
	cols := map[column]int{}
	for i, cell := range rec {
		if c, ok := headerAliases[headerKey(cell)]; ok {
			if _, dup := cols[c]; !dup {
				cols[c] = i
			}
		}
	}
	_, hasDate := cols[colBookedOn]
	_, hasAmount := cols[colAmount]
	if !hasDate || !hasAmount {
		return nil
	}
	return cols
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func cell(rec []string, cols map[column]int, c column) string {
	i, ok := cols[c]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseRecord(line int, rec []string, cols map[column]int) StatementRow {
	row := StatementRow{
		Line:         line,
		Counterparty: truncate(cell(rec, cols, colCounterparty), maxCounterparty),
		Purpose:      truncate(cell(rec, cols, colPurpose), maxPurpose),
		Reference:    truncate(cell(rec, cols, colReference), maxReference),
	}
	d, err := ParseGermanDate(cell(rec, cols, colBookedOn))
	if err != nil {
		row.Err = err
		return row
	}
	row.BookedOn = d
	a, err := ParseGermanAmount(cell(rec, cols, colAmount))
	if err != nil {
		row.Err = err
		return row
	}
	row.Amount = a
	return row
}

var dateLayouts = []string{"02.01.2006", "2.1.2006", "02.01.06", "2006-01-02"}

func ParseGermanDate(s string) (time.Time, error) {
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// ParseGermanAmount accepts "1.234,56", "-12,50", "12.50" and a trailing
// currency marker.
func ParseGermanAmount(s string) (decimal.Decimal, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimSuffix(v, "EUR")
	v = strings.TrimSuffix(v, "€")
	v = strings.ReplaceAll(strings.TrimSpace(v), " ", "")
	v = strings.TrimPrefix(v, "+")
	if strings.Contains(v, ",") {
		v = strings.ReplaceAll(v, ".", "")
		v = strings.Replace(v, ",", ".", 1)
	}
	d, err := decimal.NewFromString(v)
	if err != nil || v == "" {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	if !d.Round(2).Equal(d) {
		return decimal.Decimal{}, fmt.Errorf("amount %q has more than two decimals", s)
	}
	return d, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
