package bank

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Candidate is an active member that statement lines can be matched to.
type Candidate struct {
	MemberID     int64
	MemberNumber string
	FirstName    string
	LastName     string
}

func (c Candidate) Name() string { return c.FirstName + " " + c.LastName }

// Matcher finds the member a statement line belongs to. Member numbers in
// reference or purpose win over names in the counterparty field. Comparison
// is case folded.
type Matcher struct {
	cands []Candidate
	keys  []candidateKey
	// candidate indexes, longest member number first so "M-00012" is
	// tried before "M-0001"
	byNumber []int
}

type candidateKey struct {
	number string
	first  string
	last   string
}

func fold(s string) string { return folder.String(strings.TrimSpace(s)) }

func NewMatcher(cands []Candidate) *Matcher {
	m := &Matcher{cands: cands, keys: make([]candidateKey, len(cands)), byNumber: make([]int, len(cands))}
	for i, c := range cands {
		m.keys[i] = candidateKey{number: fold(c.MemberNumber), first: fold(c.FirstName), last: fold(c.LastName)}
		m.byNumber[i] = i
	}
	sort.SliceStable(m.byNumber, func(a, b int) bool {
		return len(m.keys[m.byNumber[a]].number) > len(m.keys[m.byNumber[b]].number)
	})
	return m
}

func (m *Matcher) Match(counterparty, purpose, reference string) (Candidate, bool) {
	text := fold(reference + " " + purpose)
	for _, i := range m.byNumber {
		if n := m.keys[i].number; n != "" && containsWord(text, n) {
			return m.cands[i], true
		}
	}
	cp := fold(counterparty)
	if cp == "" {
		return Candidate{}, false
	}
	for i, k := range m.keys {
		if k.first != "" && k.last != "" && strings.Contains(cp, k.last) && strings.Contains(cp, k.first) {
			return m.cands[i], true
		}
	}
	return Candidate{}, false
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

// containsWord reports whether word occurs in text without a letter or digit
// directly before or after it, so "m-10" is not found in "m-100".
func containsWord(text, word string) bool {
	for start := 0; start <= len(text)-len(word); {
		i := strings.Index(text[start:], word)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(word)
		before, _ := utf8.DecodeLastRuneInString(text[:i])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if (i == 0 || !isWordRune(before)) && (end == len(text) || !isWordRune(after)) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		start = i + size
	}
	return false
}
