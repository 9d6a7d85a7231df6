package matchup

import (
	"math"

	"github.com/stitts-dev/gridiron-sim/internal/calibration"
	"github.com/stitts-dev/gridiron-sim/internal/models"
)

// EstimateRho returns the within-game correlation between the two teams'
// draws. spread is from the home perspective; only its magnitude matters.
func EstimateRho(mc models.MatchupContext, spread float64, p calibration.CorrelationParams) float64 {
	rho := p.Base

	s := math.Abs(spread)
	switch {
	case math.IsNaN(s):
	case s <= p.CloseSpread:
		rho += p.CloseSpreadBonus
	case s <= p.ModerateSpread:
		rho += p.ModerateSpreadBonus
	case s >= p.LopsidedSpread:
		rho -= p.LopsidedSpreadPenalty
	}

	passGap := math.Abs(mc.Home.PassRate - mc.Away.PassRate)
	switch {
	case passGap <= p.PassRateSimilar:
		rho += p.PassRateSimilarBonus
	case passGap >= p.PassRateDivergent:
		rho -= p.PassRateDivergentPenalty
	}

	explosive := mc.Home.ExplosiveRate + mc.Away.ExplosiveRate
	switch {
	case explosive >= p.ExplosiveHigh:
		rho += p.ExplosiveHighBonus
	case explosive <= p.ExplosiveLow:
		rho -= p.ExplosiveLowPenalty
	}

	if mc.Weather.IsDome {
		rho += p.DomeBonus
	} else {
		if mc.Weather.WindMph >= p.WindThreshold {
			rho += p.WindBonus
		}
		switch mc.Weather.Precipitation {
		case models.PrecipitationLightRain:
			rho += p.LightRainBonus
		case models.PrecipitationHeavyRain, models.PrecipitationSnow:
			rho += p.HeavyWeatherBonus
		}
	}

	paceGap := math.Abs(mc.Home.SecondsPerSnap - mc.Away.SecondsPerSnap)
	switch {
	case paceGap <= p.PaceSimilar:
		rho += p.PaceSimilarBonus
	case paceGap >= p.PaceDivergent:
		rho -= p.PaceDivergentPenalty
	}

	if math.IsNaN(rho) {
		return p.Base
	}
	return clamp(rho, p.Min, p.Max)
}
