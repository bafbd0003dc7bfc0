package domain

import "strings"

// SanitizeText trims surrounding whitespace and caps the result at max
// runes. An all-whitespace input collapses to the empty string, which
// callers treat as "nothing to do".
func SanitizeText(s string, max int) string {
	s = strings.TrimSpace(s)
	if max > 0 {
		runes := []rune(s)
		if len(runes) > max {
			s = strings.TrimSpace(string(runes[:max]))
		}
	}
	return s
}
