// Package normalize implements the text normalization law shared by
// transcripts, chunks, and ASR output before matching: lowercase, Unicode
// NFC, punctuation stripped, hyphens mapped to spaces.
//
// golang.org/x/text/unicode/norm supplies NFC — the standard library has no
// Unicode normalization form, and x/text is the ecosystem's answer for it.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Text normalizes s: lowercase, NFC, strip Unicode punctuation (category
// P*), map hyphens to spaces, and collapse to single-space-separated words.
// Text is idempotent: Text(Text(s)) == Text(s).
func Text(s string) string {
	s = strings.ToLower(s)
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "—", " ") // em dash separates words rather than vanishing

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.Is(unicode.P, r) {
			continue
		}
		b.WriteRune(r)
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
