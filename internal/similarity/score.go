package similarity

import (
	"strings"

	"github.com/jwlee-kr/danjilink/api/internal/models"
)

// ScoreWeights is the weighting scheme for a composite transaction/complex
// score. The automatic decision loop and the operator-facing ranking use
// different schemes on purpose; keeping both as named presets of one struct
// makes that divergence deliberate instead of accidental.
type ScoreWeights struct {
	// Legal-dong agreement bonuses (automatic path).
	DongExactBonus   float64
	DongContainBonus float64
	// Scaled similarity weights: contribution is score/100 * weight.
	JibunWeight float64
	NameWeight  float64
	// Ranking bonuses (manual path).
	NameContainBonus  float64
	RegionPrefixBonus float64
	DongEqualBonus    float64
}

// AutoMatchWeights is the scheme the automatic decision loop thresholds over.
var AutoMatchWeights = ScoreWeights{
	DongExactBonus:   30,
	DongContainBonus: 20,
	JibunWeight:      40,
	NameWeight:       30,
}

// ManualRankWeights is the display-oriented scheme used to rank candidates
// for an operator. It leans almost entirely on the name because the operator
// searches by name and supplies region context only optionally.
var ManualRankWeights = ScoreWeights{
	NameWeight:        60,
	NameContainBonus:  20,
	RegionPrefixBonus: 15,
	DongEqualBonus:    5,
}

// SigunguPrefixLen is the number of leading region-code characters that
// identify the city/county/district.
const SigunguPrefixLen = 5

// CompositeScore scores a candidate complex against a transaction for the
// automatic decision loop. The result is bounded to [0, 100].
func CompositeScore(tx models.TransactionRecord, c *models.Complex, w ScoreWeights) float64 {
	var score float64

	switch {
	case tx.LegalDong != "" && tx.LegalDong == c.LegalDong:
		score += w.DongExactBonus
	case tx.LegalDong != "" && c.LegalDong != "" &&
		(strings.Contains(tx.LegalDong, c.LegalDong) || strings.Contains(c.LegalDong, tx.LegalDong)):
		score += w.DongContainBonus
	}

	score += JibunScore(tx.Jibun, c.LotNumber()) / 100 * w.JibunWeight
	score += NameScore(tx.AptName, c.Name) / 100 * w.NameWeight

	return clampScore(score)
}

// RankScore scores a candidate complex against an operator's search input.
// Unlike CompositeScore it is tuned for ordering a result list, not for
// crossing an auto-accept threshold.
func RankScore(query, regionCode, legalDong string, c *models.Complex, w ScoreWeights) float64 {
	score := NameScore(query, c.Name) / 100 * w.NameWeight

	nq := NormalizeName(query)
	nc := NormalizeName(c.Name)
	if nq != "" && nc != "" && (strings.Contains(nq, nc) || strings.Contains(nc, nq)) {
		score += w.NameContainBonus
	}
	if len(regionCode) >= SigunguPrefixLen && strings.HasPrefix(c.RegionCode, regionCode[:SigunguPrefixLen]) {
		score += w.RegionPrefixBonus
	}
	if legalDong != "" && legalDong == c.LegalDong {
		score += w.DongEqualBonus
	}

	return clampScore(score)
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
