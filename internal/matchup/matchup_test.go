package matchup

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/gridiron-sim/internal/calibration"
	"github.com/stitts-dev/gridiron-sim/internal/models"
)

func defaultPreset(t *testing.T) calibration.Preset {
	t.Helper()
	r, err := calibration.LoadDefaults()
	require.NoError(t, err)
	return r.Default()
}

func averageTeam(name string, b calibration.LeagueBaseline) models.TeamProfile {
	return models.TeamProfile{Team: name, Offense: b.Means(), Defense: b.Means()}
}

// shifted moves every statistic of s by z standard deviations
func shifted(b calibration.LeagueBaseline, z float64) models.SideStats {
	at := func(sb calibration.StatBaseline) float64 { return sb.Mean + z*sb.SD }
	return models.SideStats{
		PointsPerDrive:    at(b.PointsPerDrive),
		EPAPerPlay:        at(b.EPAPerPlay),
		SuccessRate:       at(b.SuccessRate),
		ExplosiveRate:     at(b.ExplosiveRate),
		RedZoneTDRate:     at(b.RedZoneTDRate),
		ThreeOutRate:      at(b.ThreeOutRate),
		PenaltiesPerDrive: at(b.PenaltiesPerDrive),
		DrivesPerGame:     at(b.DrivesPerGame),
		SecondsPerSnap:    at(b.SecondsPerSnap),
		PassRate:          at(b.PassRate),
		DVOA:              at(b.DVOA),
	}
}

func TestRate_NeutralTeams(t *testing.T) {
	p := defaultPreset(t)
	cfg := models.DefaultSimulationConfig()

	mc := Rate(averageTeam("A", p.Baseline), averageTeam("B", p.Baseline), p, cfg)

	for _, side := range []models.TeamMatchup{mc.Home, mc.Away} {
		assert.InDelta(t, 0, side.EPADiff, 1e-12)
		assert.InDelta(t, 0, side.SuccessRateDiff, 1e-12)
		assert.InDelta(t, 0, side.RedZoneDiff, 1e-12)
		assert.InDelta(t, 0, side.Strength, 1e-12)
		assert.InDelta(t, 11.0, side.ExpectedDrives, 1e-9)
		assert.InDelta(t, p.Baseline.ThreeOutRate.Mean, side.OpponentThreeOutRate, 1e-12)
	}
	assert.Equal(t, "A", mc.Home.Team)
	assert.Equal(t, "B", mc.Away.Team)
	assert.Zero(t, mc.HFALogit)
	assert.Zero(t, mc.WeatherAdjustment)
}

func TestRate_HomeFieldChannels(t *testing.T) {
	p := defaultPreset(t)
	cfg := models.DefaultSimulationConfig()
	cfg.HomeFieldAdvantagePoints = 2.5

	mc := Rate(averageTeam("A", p.Baseline), averageTeam("B", p.Baseline), p, cfg)

	assert.InDelta(t, 2.5/12, mc.HFALogit, 1e-12)
	assert.InDelta(t, 11.05, mc.Home.ExpectedDrives, 1e-9)
	assert.InDelta(t, 10.95, mc.Away.ExpectedDrives, 1e-9)
}

func TestRateSide_StrongOffense(t *testing.T) {
	p := defaultPreset(t)
	b := p.Baseline

	side := RateSide("Strong", shifted(b, 1), b.Means(), p)

	assert.InDelta(t, 0.80, side.OffenseComposite, 1e-9)
	assert.InDelta(t, 0, side.DefenseComposite, 1e-9)
	assert.InDelta(t, 0.3*0.4/1.4, side.Strength, 1e-9)
	assert.InDelta(t, b.EPAPerPlay.SD, side.EPADiff, 1e-12, "differentials stay on native scale")
	assert.InDelta(t, b.SuccessRate.SD, side.SuccessRateDiff, 1e-12)
}

func TestRateSide_PorousDefenseHelpsOffense(t *testing.T) {
	p := defaultPreset(t)
	b := p.Baseline

	vsAverage := RateSide("X", b.Means(), b.Means(), p)
	vsPorous := RateSide("X", b.Means(), shifted(b, 1.5), p)

	assert.Greater(t, vsPorous.DefenseComposite, vsAverage.DefenseComposite)
	assert.Greater(t, vsPorous.Strength, vsAverage.Strength)
	assert.Greater(t, vsPorous.EPADiff, vsAverage.EPADiff)
}

func TestStrength_Bounded(t *testing.T) {
	w := defaultPreset(t).Weights

	for _, x := range []float64{-1e9, -50, -1, 0, 1, 50, 1e9, math.Inf(1), math.Inf(-1)} {
		s := Strength(x, x, w)
		assert.LessOrEqual(t, math.Abs(s), w.StrengthCap+1e-12, "x=%v", x)
	}
	assert.Zero(t, Strength(math.NaN(), 0, w))
	assert.InDelta(t, w.StrengthCap, Strength(1e9, 1e9, w), 1e-12)
}

func TestEnvironmentAdjustment(t *testing.T) {
	env := defaultPreset(t).Environment

	tests := []struct {
		name    string
		weather models.Weather
		want    float64
	}{
		{"neutral", models.Weather{TemperatureF: 60, Precipitation: models.PrecipitationNone}, 0},
		{"dome ignores outside", models.Weather{IsDome: true, WindMph: 30, TemperatureF: 5, Precipitation: models.PrecipitationSnow}, 1.5},
		{"wind", models.Weather{WindMph: 20, TemperatureF: 60}, -1.5},
		{"wind at threshold", models.Weather{WindMph: 10, TemperatureF: 60}, 0},
		{"light rain", models.Weather{TemperatureF: 60, Precipitation: models.PrecipitationLightRain}, -1},
		{"heavy rain and cold", models.Weather{TemperatureF: 10, Precipitation: models.PrecipitationHeavyRain}, -3 - 1.1},
		{"cold capped", models.Weather{TemperatureF: -40}, -2},
		{"floor", models.Weather{WindMph: 80, TemperatureF: -10, Precipitation: models.PrecipitationSnow}, -8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EnvironmentAdjustment(tt.weather, env), 1e-9)
		})
	}
}

func TestSanitizeWeather(t *testing.T) {
	w, clamped := SanitizeWeather(models.Weather{WindMph: -5, TemperatureF: math.NaN(), Precipitation: "hail"})
	assert.Equal(t, 0.0, w.WindMph)
	assert.Equal(t, float64(neutralTemperatureF), w.TemperatureF)
	assert.Equal(t, models.PrecipitationNone, w.Precipitation)
	assert.ElementsMatch(t, []string{"wind_mph", "temperature_f", "precipitation"}, clamped)

	w, clamped = SanitizeWeather(models.Weather{WindMph: 12, TemperatureF: 40, Precipitation: "Heavy Rain"})
	assert.Equal(t, models.PrecipitationHeavyRain, w.Precipitation)
	assert.Empty(t, clamped)

	w, clamped = SanitizeWeather(models.Weather{TemperatureF: 70})
	assert.Equal(t, models.PrecipitationNone, w.Precipitation)
	assert.Empty(t, clamped)
}

func TestEstimateRho(t *testing.T) {
	p := defaultPreset(t)
	cfg := models.DefaultSimulationConfig()
	neutral := Rate(averageTeam("A", p.Baseline), averageTeam("B", p.Baseline), p, cfg)

	// base + close spread + similar pass rate + similar pace
	assert.InDelta(t, 0.20+0.08+0.05+0.04, EstimateRho(neutral, 0, p.Correlation), 1e-9)
	assert.InDelta(t, 0.20+0.04+0.05+0.04, EstimateRho(neutral, -6.5, p.Correlation), 1e-9)
	assert.InDelta(t, 0.20-0.06+0.05+0.04, EstimateRho(neutral, 17, p.Correlation), 1e-9)

	dome := neutral
	dome.Weather = models.Weather{IsDome: true, WindMph: 25, Precipitation: models.PrecipitationSnow}
	assert.InDelta(t, 0.37+0.03, EstimateRho(dome, 0, p.Correlation), 1e-9)

	storm := neutral
	storm.Weather = models.Weather{WindMph: 20, Precipitation: models.PrecipitationHeavyRain}
	assert.InDelta(t, 0.37+0.05+0.06, EstimateRho(storm, 0, p.Correlation), 1e-9)

	divergent := neutral
	divergent.Home.PassRate, divergent.Away.PassRate = 0.66, 0.50
	divergent.Home.SecondsPerSnap, divergent.Away.SecondsPerSnap = 25, 31
	divergent.Home.ExplosiveRate, divergent.Away.ExplosiveRate = 0.07, 0.07
	assert.InDelta(t, 0.20+0.08-0.03-0.03-0.03, EstimateRho(divergent, 0, p.Correlation), 1e-9)
}

func TestEstimateRho_Clamped(t *testing.T) {
	p := defaultPreset(t)
	mc := Rate(averageTeam("A", p.Baseline), averageTeam("B", p.Baseline), p, models.DefaultSimulationConfig())

	high := p.Correlation
	high.Base = 0.95
	assert.Equal(t, p.Correlation.Max, EstimateRho(mc, 0, high))

	low := p.Correlation
	low.Base = -0.9
	assert.Equal(t, p.Correlation.Min, EstimateRho(mc, 0, low))

	for _, spread := range []float64{-30, -3, 0, 2.5, 7, 10, 14, 40} {
		rho := EstimateRho(mc, spread, p.Correlation)
		assert.GreaterOrEqual(t, rho, -0.05)
		assert.LessOrEqual(t, rho, 0.60)
	}
}
