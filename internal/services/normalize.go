package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeOpenAnswer canonicalizes free text for comparison: NFC composition,
// case folding, trimming and removal of combining marks.
func NormalizeOpenAnswer(s string) string {
	s = norm.NFC.String(s)
	s = cases.Fold().String(s)
	s = strings.TrimSpace(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return stripped
}
