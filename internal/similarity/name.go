package similarity

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Apartment names in the feed are free text: the same building shows up as
// "센트럴파크아파트", "센트럴파크APT 101동", "센트럴파크 2단지" and so on.
// NormalizeName strips the noise tokens so the comparison sees only the
// distinctive part of the name.
var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	aptTokenPattern   = regexp.MustCompile(`(?i)(아파트|apt)`)
	// Trailing block/phase/building markers: "2단지", "3차", "101동". Real
	// names stack these ("한양 1차 2단지"), so the whole trailing run goes.
	unitSuffixPattern = regexp.MustCompile(`(?:[0-9]+(?:단지|차|동))+$`)
)

// NormalizeName canonicalizes a free-text apartment or complex name.
// Whitespace is collapsed before token stripping so that spaced-out forms
// like "A P T" cannot survive a single pass.
func NormalizeName(name string) string {
	s := strings.ToLower(name)
	s = whitespacePattern.ReplaceAllString(s, "")
	s = aptTokenPattern.ReplaceAllString(s, "")
	s = unitSuffixPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// NameScore compares two free-text names and returns a similarity in [0, 100].
//
// Both names are normalized first. Equal normalized forms score 100, a
// containment in either direction scores 80, and everything else falls back
// to the Levenshtein ratio 1 - dist/maxLen scaled to 0-100. Two names that
// normalize to nothing score 0.
func NameScore(a, b string) float64 {
	na := NormalizeName(a)
	nb := NormalizeName(b)

	if na == "" && nb == "" {
		return 0
	}
	if na == nb {
		return 100
	}
	if na != "" && nb != "" && (strings.Contains(na, nb) || strings.Contains(nb, na)) {
		return 80
	}

	// levenshtein.ComputeDistance counts runes, so the denominator must too.
	dist := levenshtein.ComputeDistance(na, nb)
	maxLen := utf8.RuneCountInString(na)
	if l := utf8.RuneCountInString(nb); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 0
	}

	ratio := 1.0 - float64(dist)/float64(maxLen)
	if ratio < 0 {
		ratio = 0
	}
	return ratio * 100
}
