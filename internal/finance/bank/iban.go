package bank

import (
	"errors"
	"strings"
)

var ErrIBAN = errors.New("invalid IBAN")

// NormalizeIBAN removes blanks and upper-cases.
func NormalizeIBAN(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// CheckIBAN validates length, country code and the ISO 13616 mod-97 checksum
// of a normalized IBAN.
func CheckIBAN(iban string) error {
	if len(iban) < 15 || len(iban) > 34 {
		return ErrIBAN
	}
	for i := 0; i < 2; i++ {
		if iban[i] < 'A' || iban[i] > 'Z' {
			return ErrIBAN
		}
	}
	for i := 2; i < 4; i++ {
		if iban[i] < '0' || iban[i] > '9' {
			return ErrIBAN
		}
	}
	rearranged := iban[4:] + iban[:4]
	rem := 0
	for i := 0; i < len(rearranged); i++ {
		ch := rearranged[i]
		switch {
		case ch >= '0' && ch <= '9':
			rem = (rem*10 + int(ch-'0')) % 97
		case ch >= 'A' && ch <= 'Z':
			v := int(ch-'A') + 10
			rem = (rem*100 + v) % 97
		default:
			return ErrIBAN
		}
	}
	if rem != 1 {
		return ErrIBAN
	}
	return nil
}
