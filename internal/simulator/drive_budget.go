package simulator

import (
	"math"

	"github.com/stitts-dev/gridiron-sim/internal/calibration"
)

// DriveBudget turns continuous expected-drive estimates into integer drive
// counts for one game.
type DriveBudget struct {
	bounds calibration.DriveBounds
}

func NewDriveBudget(bounds calibration.DriveBounds) DriveBudget {
	return DriveBudget{bounds: bounds}
}

// Allocate splits the game's drives. u is a uniform draw in [0,1) used to
// round the home share, so odd totals favor neither side on average.
// home+away always equals the clamped total.
func (b DriveBudget) Allocate(homeExpected, awayExpected, u float64) (home, away int) {
	homeExpected = finiteOr(homeExpected, 0)
	awayExpected = finiteOr(awayExpected, 0)

	total := b.Total(homeExpected, awayExpected)

	tilt := clamp((homeExpected-awayExpected)/2, -b.bounds.MaxTilt, b.bounds.MaxTilt)
	share := float64(total)/2 + tilt
	home = int(math.Floor(share))
	if u < share-float64(home) {
		home++
	}

	// Feasible home range that also keeps away inside its window.
	lo := max(b.bounds.PerTeamMin, total-b.bounds.PerTeamMax)
	hi := min(b.bounds.PerTeamMax, total-b.bounds.PerTeamMin)
	if lo <= hi {
		home = min(max(home, lo), hi)
	} else {
		home = min(max(home, 0), total)
	}
	return home, total - home
}

// Total is the clamped, rounded drive count for the whole game.
func (b DriveBudget) Total(homeExpected, awayExpected float64) int {
	total := int(math.Round(finiteOr(homeExpected, 0) + finiteOr(awayExpected, 0)))
	return min(max(total, b.bounds.TotalMin), b.bounds.TotalMax)
}

func finiteOr(x, fallback float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return fallback
	}
	return x
}
