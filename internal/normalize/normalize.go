// Package normalize canonicalizes free-text school and tutor names into lookup keys.
//
// School keys keep single spaces between words ("st marys school northcote").
// Tutor keys drop all whitespace ("jordanmorrison"). The two are not
// interchangeable: a tutor key never matches a school key and vice versa.
package normalize

import (
	"strings"
	"unicode"
)

// dropped characters are removed outright rather than turned into spaces,
// so "St Mary's (Northcote)" becomes "st marys northcote".
func dropped(r rune) bool {
	switch r {
	case '\'', '’', '‘', '`', '(', ')', '[', ']', '{', '}', ',', '.':
		return true
	}
	return false
}

// School returns the lookup key for a school or room name.
func School(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false

	for _, r := range s {
		if dropped(r) {
			continue
		}
		isWord := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isWord {
			pendingSpace = true
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteRune(r)
	}

	return b.String()
}

// Tutor returns the lookup key for a tutor or franchisee name.
func Tutor(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return ""
	}

	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
