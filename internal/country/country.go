// Package country defines the region codes a product variant can belong to
// and the lenient parsing rules for operator-supplied country tokens.
package country

import "strings"

// Code is a canonical region code. Only PL, DE and UK exist; the synonyms
// GB and DEU are folded into UK and DE during parsing.
type Code string

const (
	PL Code = "PL"
	DE Code = "DE"
	UK Code = "UK"
)

// All returns the canonical codes in display order.
func All() []Code {
	return []Code{PL, DE, UK}
}

// Valid reports whether c is one of the canonical codes.
func Valid(c Code) bool {
	switch c {
	case PL, DE, UK:
		return true
	}
	return false
}

// Parse maps a raw token to a canonical code. Matching is case-insensitive
// and tolerates surrounding whitespace. Unknown tokens report ok=false.
func Parse(token string) (Code, bool) {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case "UK", "GB":
		return UK, true
	case "PL":
		return PL, true
	case "DE", "DEU":
		return DE, true
	}
	return "", false
}

// ParseList splits a comma-separated country field and maps every token
// through Parse. Unrecognized tokens are dropped silently rather than
// failing the whole field.
func ParseList(raw string) []Code {
	parts := strings.Split(raw, ",")
	out := make([]Code, 0, len(parts))
	for _, part := range parts {
		if c, ok := Parse(part); ok {
			out = append(out, c)
		}
	}
	return out
}

// Overlap reports whether a and b share at least one code.
func Overlap(a, b []Code) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// ContainsAll reports whether set contains every code in want.
func ContainsAll(set, want []Code) bool {
	for _, w := range want {
		found := false
		for _, s := range set {
			if s == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
