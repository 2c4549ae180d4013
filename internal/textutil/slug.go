// Package textutil provides filename-safe text helpers.
package textutil

import (
	"strings"
)

const defaultSlugWords = 4

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}

// Slug derives a short filename fragment from free text, using at most
// the first few words. Returns "" when no word survives sanitizing.
func Slug(text string) string {
	words := strings.Fields(text)
	if len(words) > defaultSlugWords {
		words = words[:defaultSlugWords]
	}
	parts := make([]string, 0, len(words))
	for _, word := range words {
		token := SanitizeToken(word)
		if token == "unknown" {
			continue
		}
		parts = append(parts, token)
	}
	return strings.Join(parts, "-")
}
