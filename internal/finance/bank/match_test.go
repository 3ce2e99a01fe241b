package bank

import "testing"

func TestMatcher(t *testing.T) {
	m := NewMatcher([]Candidate{
		{MemberID: 1, MemberNumber: "M-0001", FirstName: "Hans", LastName: "Müller"},
		{MemberID: 2, MemberNumber: "M-00012", FirstName: "Eva", LastName: "Schmidt"},
		{MemberID: 3, MemberNumber: "", FirstName: "Ali", LastName: "Yilmaz"},
		{MemberID: 4, MemberNumber: "M-10", FirstName: "Jan", LastName: "Berg"},
	})
	tests := []struct {
		name         string
		counterparty string
		purpose      string
		reference    string
		wantID       int64
		wantOK       bool
	}{
		{"number in purpose", "Irgendwer", "Beitrag m-0001 2024", "", 1, true},
		{"longer number wins", "", "Beitrag M-00012", "", 2, true},
		{"number in reference", "", "", "M-00012", 2, true},
		{"name in counterparty", "HANS MÜLLER", "Spende", "", 1, true},
		{"last name only", "Müller GmbH", "", "", 0, false},
		{"member without number", "Yilmaz, Ali", "", "", 3, true},
		{"nothing", "Stadtwerke", "Strom", "", 0, false},
		{"former member number", "", "Beitrag M-100 Mai", "", 0, false},
		{"number next to punctuation", "", "Nr.M-10,Beitrag", "", 4, true},
		{"number glued to letters", "", "XM-10", "", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := m.Match(tc.counterparty, tc.purpose, tc.reference)
			if ok != tc.wantOK || got.MemberID != tc.wantID {
				t.Errorf("Match = (%d, %v), want (%d, %v)", got.MemberID, ok, tc.wantID, tc.wantOK)
			}
		})
	}
}
