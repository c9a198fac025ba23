// Package normalize produces the folded variants of raw listing text.
//
// A folded value is lower-cased, diacritics-stripped, and whitespace-collapsed
// so that search and dedup are robust to casing and formatting differences
// ("Škoda Octavia" and "skoda  octavia" fold to the same string). In seed
// mode the upstream pipeline may have produced *_fold columns already; in
// live mode the scraper computes them here at ingest time.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD, removes combining marks, and recomposes.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold returns the canonical folded form of s: diacritics removed,
// lower-cased, inner whitespace collapsed to single spaces, trimmed.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		// Transform only fails on malformed UTF-8; fold what we got.
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// FoldBase returns the folded base model name: the fold of the first token,
// so "Octavia III Combi" folds to "octavia". Matches the model_base column
// produced by the upstream normalization step.
func FoldBase(s string) string {
	folded := Fold(s)
	if i := strings.IndexByte(folded, ' '); i >= 0 {
		return folded[:i]
	}
	return folded
}
