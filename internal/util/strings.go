package util

import (
	"strings"
	"unicode"
)

// SnakeCase converts an arbitrary display name into snake_case suitable for
// tool identifiers: "Billing Agent" -> "billing_agent", "FAQAgent" ->
// "faq_agent". Consecutive separators collapse into a single underscore.
func SnakeCase(name string) string {
	var sb strings.Builder
	runes := []rune(name)
	lastUnderscore := true // suppress a leading underscore

	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			// Boundary before an upper rune that follows a lower rune or
			// precedes a lower rune in an acronym run ("FAQAgent").
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			prevUpper := i > 0 && unicode.IsUpper(runes[i-1])
			if !lastUnderscore && (prevLower || (prevUpper && nextLower)) {
				sb.WriteRune('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			lastUnderscore = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				sb.WriteRune('_')
				lastUnderscore = true
			}
		}
	}

	return strings.TrimRight(sb.String(), "_")
}
