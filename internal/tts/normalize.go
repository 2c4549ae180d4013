package tts

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText applies NFKC normalization and collapses runs of
// whitespace. The server performs its own linguistic normalization; this
// keeps the wire text canonical so memory-cache lookups for repeated
// requests hit reliably.
func NormalizeText(text string) string {
	normalized := norm.NFKC.String(text)
	return strings.Join(strings.Fields(normalized), " ")
}
