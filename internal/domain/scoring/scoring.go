// Package scoring converts finishing ranks into season points.
//
// The curve is piecewise: ranks 1..10 share 40000 points inversely, every
// further order of magnitude halves the base and scales it by how close the
// rank is to the start of its tier. Ranks beyond one million score nothing.
// Tier boundaries are discontinuous.
package scoring

import (
	"math"
	"strconv"
)

const (
	topTierPoints = 40000.0
	basePoints    = 4000.0
	rankBonus     = 0.9

	flatTierLimit = 2 // tiers below use topTierPoints / rank
	maxTier       = 7 // tiers from here on score zero
)

// Scorer maps a rank to points.
type Scorer interface {
	Points(rank int) float64
}

// SeasonCurve is the default Scorer.
type SeasonCurve struct{}

// Points implements Scorer.
func (SeasonCurve) Points(rank int) float64 { return CalculatePoint(rank) }

// Tier returns ceil(log10(rank)) for rank >= 1.
//
// It counts the digits of rank-1 instead of calling math.Log10 so exact
// powers of ten never land in the next tier through rounding.
func Tier(rank int) int {
	if rank <= 1 {
		return 0
	}
	tier := 0
	for n := rank - 1; n > 0; n /= 10 {
		tier++
	}
	return tier
}

// CalculatePoint returns the points awarded for rank. Absent (0) and
// negative ranks score 0.
func CalculatePoint(rank int) float64 {
	if rank <= 0 {
		return 0
	}

	tier := Tier(rank)
	switch {
	case tier < flatTierLimit:
		return topTierPoints / float64(rank)
	case tier < maxTier:
		base := basePoints / math.Pow(2, float64(tier-1))
		multiplier := math.Pow(10, float64(tier-1))/float64(rank) + rankBonus
		return base * multiplier
	default:
		return 0
	}
}

// Label is the per-rank display text: whole points with the fraction
// dropped, or empty when the rank earns nothing.
func Label(rank int) string {
	return FormatPoints(CalculatePoint(rank))
}

// FormatPoints truncates p to whole points; zero renders as empty.
func FormatPoints(p float64) string {
	p = math.Trunc(p)
	if p == 0 {
		return ""
	}
	return strconv.FormatFloat(p, 'f', 0, 64)
}

// Round rounds a total half away from zero for display.
func Round(total float64) int {
	return int(math.Round(total))
}
