package regatta

import (
	"strings"
	"unicode"
)

// NormalizeSailNumber uppercases s and removes all whitespace. It is
// idempotent.
func NormalizeSailNumber(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
}

// SailDigits is the digits-only projection used when sheets print bare numbers.
func SailDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
