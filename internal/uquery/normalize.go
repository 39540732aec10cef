package uquery

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining marks after NFD decomposition, turning
// e.g. "café" into "cafe". This is the golang.org/x/text equivalent of
// the unidecode-style transliteration original_source's cache_str
// performs before lowercasing and whitespace-stripping.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// extraFold covers the handful of Latin letters that do not decompose
// into base+mark under NFD (so stripMarks leaves them untouched) but
// that the original's transliteration table still folds to ASCII.
var extraFold = map[rune]rune{
	'ø': 'o', 'Ø': 'o',
	'đ': 'd', 'Đ': 'd',
	'ß': 's',
	'æ': 'a', 'Æ': 'a',
	'ł': 'l', 'Ł': 'l',
}

// Normalize folds s to ASCII (best-effort transliteration), lowercases
// it, and drops whitespace, matching original_source's cache_str used
// by every filter and song-order comparison (§3/§4.4 of SPEC_FULL.md).
func Normalize(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if replacement, ok := extraFold[r]; ok {
			r = replacement
		}
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
