package matchup

import (
	"math"

	"github.com/stitts-dev/gridiron-sim/internal/calibration"
	"github.com/stitts-dev/gridiron-sim/internal/models"
)

const neutralTemperatureF = 60

// SanitizeWeather clamps out-of-range fields to the nearest valid value and
// returns the names of the fields it touched.
func SanitizeWeather(w models.Weather) (models.Weather, []string) {
	var clamped []string

	if math.IsNaN(w.WindMph) || w.WindMph < 0 {
		w.WindMph = 0
		clamped = append(clamped, "wind_mph")
	} else if math.IsInf(w.WindMph, 1) {
		w.WindMph = 100
		clamped = append(clamped, "wind_mph")
	}

	if math.IsNaN(w.TemperatureF) || math.IsInf(w.TemperatureF, 0) {
		w.TemperatureF = neutralTemperatureF
		clamped = append(clamped, "temperature_f")
	}

	if w.Precipitation == "" {
		w.Precipitation = models.PrecipitationNone
	} else if !w.Precipitation.Valid() {
		if p := models.ParsePrecipitation(string(w.Precipitation)); p != models.PrecipitationNone {
			w.Precipitation = p
		} else {
			w.Precipitation = models.PrecipitationNone
			clamped = append(clamped, "precipitation")
		}
	}

	return w, clamped
}

// EnvironmentAdjustment converts weather into a whole-game points shift.
// Indoors the weather outside is irrelevant, so a dome gets only its bonus.
func EnvironmentAdjustment(w models.Weather, env calibration.Environment) float64 {
	if w.IsDome {
		return clamp(env.DomeBonus, env.MinAdjustment, env.MaxAdjustment)
	}

	adj := 0.0
	if w.WindMph > env.WindThreshold {
		adj -= env.WindPenaltyPerMph * (w.WindMph - env.WindThreshold)
	}

	switch w.Precipitation {
	case models.PrecipitationLightRain:
		adj += env.LightRain
	case models.PrecipitationHeavyRain:
		adj += env.HeavyRain
	case models.PrecipitationSnow:
		adj += env.Snow
	}

	if w.TemperatureF < env.ColdThreshold {
		adj -= math.Min(env.ColdPenaltyCap, env.ColdPenaltyPerDegree*(env.ColdThreshold-w.TemperatureF))
	}

	return clamp(adj, env.MinAdjustment, env.MaxAdjustment)
}
