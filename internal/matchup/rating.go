package matchup

import (
	"math"

	"github.com/stitts-dev/gridiron-sim/internal/calibration"
	"github.com/stitts-dev/gridiron-sim/internal/models"
)

// Rate builds the read-only per-game context for home against away.
// Weather in cfg is expected to have been sanitized already (see SanitizeWeather).
func Rate(home, away models.TeamProfile, preset calibration.Preset, cfg models.SimulationConfig) models.MatchupContext {
	hfa := cfg.HomeFieldAdvantagePoints
	if math.IsNaN(hfa) || math.IsInf(hfa, 0) {
		hfa = 0
	}

	homeSide := RateSide(home.Team, home.Offense, away.Defense, preset)
	awaySide := RateSide(away.Team, away.Offense, home.Defense, preset)

	// Second home-field channel: a slight drive-count shift.
	shift := preset.Weights.HFADriveShift * hfa
	homeSide.ExpectedDrives = math.Max(0, homeSide.ExpectedDrives+shift)
	awaySide.ExpectedDrives = math.Max(0, awaySide.ExpectedDrives-shift)

	return models.MatchupContext{
		Home:              homeSide,
		Away:              awaySide,
		HFAPoints:         hfa,
		HFALogit:          hfa / preset.Coefficients.HFADivisor,
		WeatherAdjustment: EnvironmentAdjustment(cfg.Weather, preset.Environment),
		Weather:           cfg.Weather,
	}
}

// RateSide rates one offense against the opposing defense. Differentials stay
// on their native scale; only the composites are standardized.
func RateSide(team string, offense, opposingDefense models.SideStats, preset calibration.Preset) models.TeamMatchup {
	b := preset.Baseline
	w := preset.Weights

	offComposite := Composite(offense, b, w)
	defComposite := Composite(opposingDefense, b, w)

	avgPace := (offense.SecondsPerSnap + opposingDefense.SecondsPerSnap) / 2
	drives := 0.5*(offense.DrivesPerGame+opposingDefense.DrivesPerGame) - w.PaceDriveCoef*b.SecondsPerSnap.Z(avgPace)

	return models.TeamMatchup{
		Team:                 team,
		EPADiff:              (offense.EPAPerPlay - b.EPAPerPlay.Mean) + (opposingDefense.EPAPerPlay - b.EPAPerPlay.Mean),
		SuccessRateDiff:      (offense.SuccessRate - b.SuccessRate.Mean) + (opposingDefense.SuccessRate - b.SuccessRate.Mean),
		RedZoneDiff:          (offense.RedZoneTDRate - b.RedZoneTDRate.Mean) + (opposingDefense.RedZoneTDRate - b.RedZoneTDRate.Mean),
		OpponentThreeOutRate: opposingDefense.ThreeOutRate,
		OffenseComposite:     offComposite,
		DefenseComposite:     defComposite,
		Strength:             Strength(offComposite, defComposite, w),
		ExpectedDrives:       math.Max(0, drives),
		PassRate:             offense.PassRate,
		ExplosiveRate:        (offense.ExplosiveRate + opposingDefense.ExplosiveRate) / 2,
		SecondsPerSnap:       offense.SecondsPerSnap,
	}
}

// Composite is the weighted z-score efficiency of one side of the ball.
// Applied to a defense's allowed numbers, a porous unit scores high.
func Composite(s models.SideStats, b calibration.LeagueBaseline, w calibration.RatingWeights) float64 {
	return w.PointsPerDrive*b.PointsPerDrive.Z(s.PointsPerDrive) +
		w.EPAPerPlay*b.EPAPerPlay.Z(s.EPAPerPlay) +
		w.SuccessRate*b.SuccessRate.Z(s.SuccessRate) +
		w.ExplosiveRate*b.ExplosiveRate.Z(s.ExplosiveRate) +
		w.RedZoneTDRate*b.RedZoneTDRate.Z(s.RedZoneTDRate) -
		w.ThreeOutRate*b.ThreeOutRate.Z(s.ThreeOutRate)
}

// Strength squashes the two composites into a bounded logit adjustment.
func Strength(offComposite, defComposite float64, w calibration.RatingWeights) float64 {
	x := (offComposite + defComposite) / 2
	if math.IsNaN(x) {
		return 0
	}
	s := w.StrengthScale * x / (1 + math.Abs(x))
	if math.IsInf(x, 0) {
		s = math.Copysign(w.StrengthScale, x)
	}
	return clamp(s, -w.StrengthCap, w.StrengthCap)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
