package simulator

import (
	"math"

	"github.com/stitts-dev/gridiron-sim/internal/models"
)

// lineEpsilon absorbs float representation error when a result sits exactly on a line.
const lineEpsilon = 1e-9

// FairAmericanOdds converts a probability to a vig-free American price.
// p <= 0 yields +Inf and p >= 1 yields -Inf.
func FairAmericanOdds(p float64) models.AmericanOdds {
	switch {
	case math.IsNaN(p) || p <= 0:
		return models.AmericanOdds(math.Inf(1))
	case p >= 1:
		return models.AmericanOdds(math.Inf(-1))
	case p >= 0.5:
		return models.AmericanOdds(-math.Round(p / (1 - p) * 100))
	default:
		return models.AmericanOdds(math.Round((1 - p) / p * 100))
	}
}

// ImpliedProbability is the inverse of FairAmericanOdds
func ImpliedProbability(o models.AmericanOdds) float64 {
	v := float64(o)
	switch {
	case math.IsInf(v, 1):
		return 0
	case math.IsInf(v, -1):
		return 1
	case v < 0:
		return -v / (-v + 100)
	case v > 0:
		return 100 / (v + 100)
	default:
		return 0.5
	}
}

// compareToLine returns 1 above the line, -1 below and 0 on it.
func compareToLine(x, line float64) int {
	d := x - line
	switch {
	case d > lineEpsilon:
		return 1
	case d < -lineEpsilon:
		return -1
	default:
		return 0
	}
}
