package simulator

import (
	"math"

	"github.com/stitts-dev/gridiron-sim/internal/calibration"
	"github.com/stitts-dev/gridiron-sim/internal/models"
)

// Home and Away sign the home-field logit offset.
const (
	Home = 1.0
	Away = -1.0
)

const shiftIterations = 80

// DriveModel maps matchup differentials to per-drive outcome probabilities
// through two logistic regressions.
type DriveModel struct {
	coef         calibration.Coefficients
	threeOutMean float64
}

func NewDriveModel(preset calibration.Preset) *DriveModel {
	return &DriveModel{
		coef:         preset.Coefficients,
		threeOutMean: preset.Baseline.ThreeOutRate.Mean,
	}
}

// Probabilities evaluates one team's drive. side is Home or Away; envShift
// is an extra touchdown-logit offset from the playing environment.
func (m *DriveModel) Probabilities(t models.TeamMatchup, hfaLogit, side, envShift float64) models.DriveProbabilities {
	c := m.coef
	hfa := side * hfaLogit

	logit3 := c.A0 - c.A1*t.EPADiff - c.A2*t.SuccessRateDiff + c.A3*(t.OpponentThreeOutRate-m.threeOutMean) - hfa
	logitTD := c.B0 + c.B1*t.EPADiff + c.B2*t.SuccessRateDiff + c.B3*t.RedZoneDiff + t.Strength + hfa + envShift

	p3 := sigmoid(clampLogit(logit3, c.LogitClamp))
	pTD := sigmoid(clampLogit(logitTD, c.LogitClamp))

	rzFactor := clamp(1-c.RZFactorSlope*t.RedZoneDiff, c.RZFactorMin, c.RZFactorMax)
	if math.IsNaN(rzFactor) {
		rzFactor = 1
	}
	pFG := clamp(c.FGPhi*rzFactor*(1-pTD), 0, 1-pTD)

	sustained := 1 - p3
	td := sustained * pTD
	fg := sustained * pFG

	return models.DriveProbabilities{
		ThreeOut:                p3,
		TouchdownGivenSustained: pTD,
		FieldGoalGivenSustained: pFG,
		Touchdown:               td,
		FieldGoal:               fg,
		Empty:                   math.Max(0, 1-p3-td-fg),
	}
}

// EnvironmentShift finds the touchdown-logit offset that moves the expected
// points of one drive by perDrive. Targets beyond what the clamped logit can
// reach resolve to the nearest reachable shift.
func (m *DriveModel) EnvironmentShift(t models.TeamMatchup, hfaLogit, side, perDrive float64) float64 {
	if perDrive == 0 || math.IsNaN(perDrive) {
		return 0
	}

	target := m.Probabilities(t, hfaLogit, side, 0).ExpectedPoints() + perDrive
	lo, hi := -2*m.coef.LogitClamp, 2*m.coef.LogitClamp
	for i := 0; i < shiftIterations; i++ {
		mid := (lo + hi) / 2
		if m.Probabilities(t, hfaLogit, side, mid).ExpectedPoints() < target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// clampLogit also maps NaN to 0 so the probability stays defined.
func clampLogit(x, limit float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return clamp(x, -limit, limit)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
