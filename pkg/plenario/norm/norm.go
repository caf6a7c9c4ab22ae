// Package norm provides the canonical text forms used for keyword matching.
package norm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	textnorm "golang.org/x/text/unicode/norm"
)

// stripMarks decomposes accented characters and removes the combining marks,
// so "Educação" folds to "Educacao".
var stripMarks = transform.Chain(textnorm.NFD, runes.Remove(runes.In(unicode.Mn)))

// Normalize returns the text decomposed, accent-stripped, lowercased and
// trimmed. Empty input yields an empty string.
func Normalize(text string) string {
	folded, _, err := transform.String(stripMarks, text)
	if err != nil {
		folded = text
	}
	return strings.TrimSpace(strings.ToLower(folded))
}

// NormalizeWS is the stricter form used for token-boundary matching: every
// maximal run of non-alphanumeric characters collapses to a single space.
func NormalizeWS(text string) string {
	t := Normalize(text)
	var b strings.Builder
	b.Grow(len(t))
	pending := false
	for _, r := range t {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pending = false
			b.WriteRune(r)
		} else {
			pending = true
		}
	}
	return b.String()
}

// Tokens splits a phrase into its normalized words.
func Tokens(text string) []string {
	return strings.Fields(NormalizeWS(text))
}
