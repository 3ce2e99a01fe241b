package bank

import "testing"

func TestCheckIBAN(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"DE89 3704 0044 0532 0130 00", true},
		{"de89370400440532013000", true},
		{"GB82WEST12345698765432", true},
		{"DE88370400440532013000", false},
		{"DE8937040044053201300", false},
		{"1289370400440532013000", false},
		{"DE89-3704-0044-0532-0130-00", false},
		{"", false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			err := CheckIBAN(NormalizeIBAN(tc.in))
			if (err == nil) != tc.want {
				t.Errorf("CheckIBAN(%q) = %v, want valid=%v", tc.in, err, tc.want)
			}
		})
	}
}
