// Package phone canonicalizes raw phone numbers into comparable keys.
//
// The directory and roster both store Indian subscriber numbers in whatever
// shape the operator typed: bare ten digits, "+91 " prefixed, zero-prefixed
// trunk form, with spaces, dashes, or stray punctuation. Matching compares
// canonical keys, never raw strings.
package phone

import "strings"

// Key is a canonical digit-string representation of a phone number:
// country prefix followed by the ten-digit national number.
type Key string

// countryPrefix is the international prefix for the Indian numbering plan,
// the only plan the upstream datasets use.
const countryPrefix = "91"

// Normalize derives a canonical Key from a raw phone string.
//
// Recognized shapes after stripping non-digits:
//   - 10 digits: national number, prefixed with "91"
//   - 12 digits starting "91": already canonical
//   - 13 digits starting "091": trunk zero dropped
//
// Anything else returns ("", false). The strict policy is deliberate:
// a best-effort key for unrecognized shapes would silently match garbage
// against garbage, while rejection lets the resolver fall back to verbatim
// raw-string comparison where at least both sides stored the same garbage.
// The ok result distinguishes "no key" from a key that happens to be empty;
// callers must never index an empty Key.
func Normalize(raw string) (Key, bool) {
	digits := stripNonDigits(raw)

	switch {
	case len(digits) == 10:
		return Key(countryPrefix + digits), true
	case len(digits) == 12 && strings.HasPrefix(digits, countryPrefix):
		return Key(digits), true
	case len(digits) == 13 && strings.HasPrefix(digits, "0"+countryPrefix):
		return Key(digits[1:]), true
	default:
		return "", false
	}
}

func stripNonDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
