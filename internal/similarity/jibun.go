package similarity

import (
	"regexp"
	"strconv"
)

// Jibun score levels. The scorer is deliberately coarse: every result is one
// of these values, so there is no floating-point ambiguity to threshold over.
const (
	jibunExactMatch = 100 // main and sub number both equal
	jibunMainMatch  = 80  // main number equal, sub numbers absent or different
	jibunNearBase   = 50  // base for close main numbers: 50 - 10*diff
	jibunNearStep   = 10
	jibunMaxDiff    = 2
)

var digitRunPattern = regexp.MustCompile(`[0-9]+`)

// jibunTokens extracts the ordered numeric tokens from a lot-number string.
// Token 0 is the main number, token 1 (if present) the sub number.
// "산123-45" yields [123 45]; free text without digits yields nothing.
func jibunTokens(s string) []int {
	runs := digitRunPattern.FindAllString(s, -1)
	tokens := make([]int, 0, len(runs))
	for _, run := range runs {
		n, err := strconv.Atoi(run)
		if err != nil {
			// Absurdly long digit runs overflow int; treat them as noise.
			continue
		}
		tokens = append(tokens, n)
	}
	return tokens
}

// JibunScore compares two lot-number strings via their numeric tokens and
// returns one of {0, 30, 40, 50, 80, 100}. The comparison is symmetric and
// tolerates malformed input: a side with no numeric tokens scores 0.
func JibunScore(a, b string) float64 {
	ta := jibunTokens(a)
	tb := jibunTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	mainA, mainB := ta[0], tb[0]
	if mainA == mainB {
		if len(ta) > 1 && len(tb) > 1 && ta[1] == tb[1] {
			return jibunExactMatch
		}
		return jibunMainMatch
	}

	diff := mainA - mainB
	if diff < 0 {
		diff = -diff
	}
	if diff <= jibunMaxDiff {
		return float64(jibunNearBase - jibunNearStep*diff)
	}
	return 0
}
