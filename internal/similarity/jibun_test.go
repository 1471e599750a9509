package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJibunScore_ExactMatch(t *testing.T) {
	// Main and sub numbers equal
	assert.Equal(t, 100.0, JibunScore("123-45", "123-45"))
}

func TestJibunScore_MainMatch(t *testing.T) {
	// Main numbers equal, sub numbers differ
	assert.Equal(t, 80.0, JibunScore("123-45", "123-99"))

	// Main numbers equal, one side has no sub number
	assert.Equal(t, 80.0, JibunScore("123-45", "123"))
	assert.Equal(t, 80.0, JibunScore("123", "123"))
}

func TestJibunScore_NearMiss(t *testing.T) {
	testCases := []struct {
		name     string
		a        string
		b        string
		expected float64
	}{
		{name: "difference of 1", a: "123", b: "124", expected: 40},
		{name: "difference of 2", a: "123", b: "125", expected: 30},
		{name: "difference of 3", a: "123", b: "126", expected: 0},
		{name: "far apart", a: "123", b: "200", expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, JibunScore(tc.a, tc.b))
		})
	}
}

func TestJibunScore_MalformedInput(t *testing.T) {
	assert.Equal(t, 0.0, JibunScore("", "123-45"))
	assert.Equal(t, 0.0, JibunScore("123-45", ""))
	assert.Equal(t, 0.0, JibunScore("", ""))
	assert.Equal(t, 0.0, JibunScore("산", "123"))
	assert.Equal(t, 0.0, JibunScore("no digits here", "none here either"))
}

func TestJibunScore_PrefixedLotNumbers(t *testing.T) {
	// Mountain-lot prefixes and unit markers around the digits are ignored;
	// only the digit runs matter.
	assert.Equal(t, 100.0, JibunScore("산123-45", "123-45번지"))
	assert.Equal(t, 80.0, JibunScore("역삼동 123", "123-7"))
}

func TestJibunScore_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"123-45", "123-45"},
		{"123-45", "123-99"},
		{"123", "124"},
		{"123", "125"},
		{"123", "200"},
		{"", "123"},
		{"산77-3", "79"},
	}

	for _, pair := range pairs {
		assert.Equal(t, JibunScore(pair[0], pair[1]), JibunScore(pair[1], pair[0]),
			"score(%q,%q) must equal score(%q,%q)", pair[0], pair[1], pair[1], pair[0])
	}
}

func TestJibunScore_RangeBounded(t *testing.T) {
	// Every possible result is one of the six fixed levels.
	allowed := map[float64]bool{0: true, 30: true, 40: true, 50: true, 80: true, 100: true}

	inputs := []string{"", "1", "99", "100", "101", "102", "123-45", "123-46", "산123", "777-7", "abc"}
	for _, a := range inputs {
		for _, b := range inputs {
			score := JibunScore(a, b)
			assert.True(t, allowed[score], "score(%q,%q) = %v is not a fixed level", a, b, score)
		}
	}
}

func TestJibunScore_SameMainSameSub(t *testing.T) {
	// diff 0 between mains with matching subs hits 100, not the near-miss base
	assert.Equal(t, 100.0, JibunScore("77-1", "77-1"))
	// diff 0 without subs hits 80, never 50
	assert.Equal(t, 80.0, JibunScore("77", "77"))
}
