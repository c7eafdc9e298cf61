package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName folds a card name read by a vision model into NFC form and
// collapses runs of whitespace. Accented names such as "Flabébé" arrive in
// either composed or decomposed form depending on the model.
func NormalizeName(name string) string {
	name = norm.NFC.String(name)
	return strings.Join(strings.Fields(name), " ")
}

// Snippet flattens content to a single line capped at limit runes.
func Snippet(content string, limit int) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	if limit <= 0 {
		return clean
	}
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
