// Package normalize converts raw spreadsheet cell strings into canonical
// typed values. Spreadsheet exports are loosely typed: booleans arrive as
// "TRUE", "X" or "x", nulls as "N/A", and numeric years as plain digits.
// Every input maps to a defined output; this package never fails.
package normalize

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Normalizer holds the whitelist of numeric values that are allowed to
// survive as numbers. Anything numeric outside the whitelist stays a string,
// which keeps measure identifiers like "046" intact.
type Normalizer struct {
	validYears map[int]struct{}
}

// New builds a Normalizer that treats the given years as valid numbers.
func New(validYears []int) *Normalizer {
	m := make(map[int]struct{}, len(validYears))
	for _, y := range validYears {
		m[y] = struct{}{}
	}
	return &Normalizer{validYears: m}
}

// Value converts one raw cell into its canonical form:
//
//	"true", "x"   -> true
//	"false"       -> false
//	"null", "n/a" -> nil
//	whitelisted year -> int
//	anything else -> trimmed string, case preserved
//
// Comparison is case-insensitive and whitespace-trimmed. The empty string
// normalizes to the empty string; "present but empty" versus "absent" is the
// caller's distinction, not this package's.
func (n *Normalizer) Value(raw string) any {
	s := raw
	if hasEdgeSpace(s) {
		s = strings.TrimSpace(s)
	}

	switch strings.ToLower(s) {
	case "true", "x":
		return true
	case "false":
		return false
	case "null", "n/a":
		return nil
	}

	if y, err := strconv.Atoi(s); err == nil {
		if _, ok := n.validYears[y]; ok {
			return y
		}
	}

	return s
}

// Truthy reports whether a raw cell normalizes to boolean true.
func (n *Normalizer) Truthy(raw string) bool {
	v, ok := n.Value(raw).(bool)
	return ok && v
}

// FoldKey canonicalizes a string for translation-table lookups: trim,
// lowercase, strip diacritics, collapse interior whitespace. Spreadsheet
// authors are not consistent about any of these.
func FoldKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}

	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))

	space := false
	for _, r := range decomposed {
		// Drop combining marks left over from NFD decomposition.
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// hasEdgeSpace avoids the TrimSpace allocation on the common clean path.
func hasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsSpace(first) || unicode.IsSpace(last)
}
