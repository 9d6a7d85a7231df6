package calibration

import (
	"fmt"
	"math"

	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/pkg/utils"
)

// sdEpsilon stands in for a configured standard deviation of zero.
const sdEpsilon = 1e-6

// StatBaseline is the league mean and standard deviation of one statistic.
type StatBaseline struct {
	Mean float64 `yaml:"mean" json:"mean"`
	SD   float64 `yaml:"sd" json:"sd"`
}

// Z standardizes x against the baseline
func (b StatBaseline) Z(x float64) float64 {
	sd := b.SD
	if sd <= 0 {
		sd = sdEpsilon
	}
	return (x - b.Mean) / sd
}

// LeagueBaseline is the immutable league-wide reference for every tracked stat.
type LeagueBaseline struct {
	PointsPerDrive    StatBaseline `yaml:"points_per_drive" json:"points_per_drive"`
	EPAPerPlay        StatBaseline `yaml:"epa_per_play" json:"epa_per_play"`
	SuccessRate       StatBaseline `yaml:"success_rate" json:"success_rate"`
	ExplosiveRate     StatBaseline `yaml:"explosive_rate" json:"explosive_rate"`
	RedZoneTDRate     StatBaseline `yaml:"red_zone_td_rate" json:"red_zone_td_rate"`
	ThreeOutRate      StatBaseline `yaml:"three_out_rate" json:"three_out_rate"`
	PenaltiesPerDrive StatBaseline `yaml:"penalties_per_drive" json:"penalties_per_drive"`
	DrivesPerGame     StatBaseline `yaml:"drives_per_game" json:"drives_per_game"`
	SecondsPerSnap    StatBaseline `yaml:"seconds_per_snap" json:"seconds_per_snap"`
	PassRate          StatBaseline `yaml:"pass_rate" json:"pass_rate"`
	DVOA              StatBaseline `yaml:"dvoa" json:"dvoa"`
}

// Means returns a side of the ball sitting exactly on the league average
func (b LeagueBaseline) Means() models.SideStats {
	return models.SideStats{
		PointsPerDrive:    b.PointsPerDrive.Mean,
		EPAPerPlay:        b.EPAPerPlay.Mean,
		SuccessRate:       b.SuccessRate.Mean,
		ExplosiveRate:     b.ExplosiveRate.Mean,
		RedZoneTDRate:     b.RedZoneTDRate.Mean,
		ThreeOutRate:      b.ThreeOutRate.Mean,
		PenaltiesPerDrive: b.PenaltiesPerDrive.Mean,
		DrivesPerGame:     b.DrivesPerGame.Mean,
		SecondsPerSnap:    b.SecondsPerSnap.Mean,
		PassRate:          b.PassRate.Mean,
		DVOA:              b.DVOA.Mean,
	}
}

func (b LeagueBaseline) all() map[string]StatBaseline {
	return map[string]StatBaseline{
		"points_per_drive":    b.PointsPerDrive,
		"epa_per_play":        b.EPAPerPlay,
		"success_rate":        b.SuccessRate,
		"explosive_rate":      b.ExplosiveRate,
		"red_zone_td_rate":    b.RedZoneTDRate,
		"three_out_rate":      b.ThreeOutRate,
		"penalties_per_drive": b.PenaltiesPerDrive,
		"drives_per_game":     b.DrivesPerGame,
		"seconds_per_snap":    b.SecondsPerSnap,
		"pass_rate":           b.PassRate,
		"dvoa":                b.DVOA,
	}
}

// Coefficients of the per-drive logistic model.
//
//	logit_3out = A0 - A1*EPA - A2*SR + A3*(opp3out - mean3out) -/+ hfa
//	logit_td   = B0 + B1*EPA + B2*SR + B3*RZ + strength +/- hfa
type Coefficients struct {
	A0    float64 `yaml:"a0" json:"a0"`
	A1    float64 `yaml:"a1" json:"a1"`
	A2    float64 `yaml:"a2" json:"a2"`
	A3    float64 `yaml:"a3" json:"a3"`
	B0    float64 `yaml:"b0" json:"b0"`
	B1    float64 `yaml:"b1" json:"b1"`
	B2    float64 `yaml:"b2" json:"b2"`
	B3    float64 `yaml:"b3" json:"b3"`
	FGPhi float64 `yaml:"fg_phi" json:"fg_phi"`

	LogitClamp    float64 `yaml:"logit_clamp" json:"logit_clamp"`
	RZFactorSlope float64 `yaml:"rz_factor_slope" json:"rz_factor_slope"`
	RZFactorMin   float64 `yaml:"rz_factor_min" json:"rz_factor_min"`
	RZFactorMax   float64 `yaml:"rz_factor_max" json:"rz_factor_max"`
	HFADivisor    float64 `yaml:"hfa_divisor" json:"hfa_divisor"`
}

// RatingWeights drive the composite efficiency scores and expected drives.
type RatingWeights struct {
	PointsPerDrive float64 `yaml:"points_per_drive" json:"points_per_drive"`
	EPAPerPlay     float64 `yaml:"epa_per_play" json:"epa_per_play"`
	SuccessRate    float64 `yaml:"success_rate" json:"success_rate"`
	ExplosiveRate  float64 `yaml:"explosive_rate" json:"explosive_rate"`
	RedZoneTDRate  float64 `yaml:"red_zone_td_rate" json:"red_zone_td_rate"`
	ThreeOutRate   float64 `yaml:"three_out_rate" json:"three_out_rate"`

	StrengthScale float64 `yaml:"strength_scale" json:"strength_scale"`
	StrengthCap   float64 `yaml:"strength_cap" json:"strength_cap"`
	PaceDriveCoef float64 `yaml:"pace_drive_coef" json:"pace_drive_coef"`
	HFADriveShift float64 `yaml:"hfa_drive_shift" json:"hfa_drive_shift"`
}

type DriveBounds struct {
	TotalMin   int     `yaml:"total_min" json:"total_min"`
	TotalMax   int     `yaml:"total_max" json:"total_max"`
	PerTeamMin int     `yaml:"per_team_min" json:"per_team_min"`
	PerTeamMax int     `yaml:"per_team_max" json:"per_team_max"`
	MaxTilt    float64 `yaml:"max_tilt" json:"max_tilt"`
}

// Environment converts weather into a whole-game points adjustment.
type Environment struct {
	DomeBonus            float64 `yaml:"dome_bonus" json:"dome_bonus"`
	WindThreshold        float64 `yaml:"wind_threshold" json:"wind_threshold"`
	WindPenaltyPerMph    float64 `yaml:"wind_penalty_per_mph" json:"wind_penalty_per_mph"`
	LightRain            float64 `yaml:"light_rain" json:"light_rain"`
	HeavyRain            float64 `yaml:"heavy_rain" json:"heavy_rain"`
	Snow                 float64 `yaml:"snow" json:"snow"`
	ColdThreshold        float64 `yaml:"cold_threshold" json:"cold_threshold"`
	ColdPenaltyPerDegree float64 `yaml:"cold_penalty_per_degree" json:"cold_penalty_per_degree"`
	ColdPenaltyCap       float64 `yaml:"cold_penalty_cap" json:"cold_penalty_cap"`
	MinAdjustment        float64 `yaml:"min_adjustment" json:"min_adjustment"`
	MaxAdjustment        float64 `yaml:"max_adjustment" json:"max_adjustment"`
}

// CorrelationParams are the fixed increments applied to the baseline rho.
type CorrelationParams struct {
	Base float64 `yaml:"base" json:"base"`
	Min  float64 `yaml:"min" json:"min"`
	Max  float64 `yaml:"max" json:"max"`

	CloseSpread           float64 `yaml:"close_spread" json:"close_spread"`
	CloseSpreadBonus      float64 `yaml:"close_spread_bonus" json:"close_spread_bonus"`
	ModerateSpread        float64 `yaml:"moderate_spread" json:"moderate_spread"`
	ModerateSpreadBonus   float64 `yaml:"moderate_spread_bonus" json:"moderate_spread_bonus"`
	LopsidedSpread        float64 `yaml:"lopsided_spread" json:"lopsided_spread"`
	LopsidedSpreadPenalty float64 `yaml:"lopsided_spread_penalty" json:"lopsided_spread_penalty"`

	PassRateSimilar          float64 `yaml:"pass_rate_similar" json:"pass_rate_similar"`
	PassRateSimilarBonus     float64 `yaml:"pass_rate_similar_bonus" json:"pass_rate_similar_bonus"`
	PassRateDivergent        float64 `yaml:"pass_rate_divergent" json:"pass_rate_divergent"`
	PassRateDivergentPenalty float64 `yaml:"pass_rate_divergent_penalty" json:"pass_rate_divergent_penalty"`

	ExplosiveHigh        float64 `yaml:"explosive_high" json:"explosive_high"`
	ExplosiveHighBonus   float64 `yaml:"explosive_high_bonus" json:"explosive_high_bonus"`
	ExplosiveLow         float64 `yaml:"explosive_low" json:"explosive_low"`
	ExplosiveLowPenalty  float64 `yaml:"explosive_low_penalty" json:"explosive_low_penalty"`
	DomeBonus            float64 `yaml:"dome_bonus" json:"dome_bonus"`
	WindThreshold        float64 `yaml:"wind_threshold" json:"wind_threshold"`
	WindBonus            float64 `yaml:"wind_bonus" json:"wind_bonus"`
	LightRainBonus       float64 `yaml:"light_rain_bonus" json:"light_rain_bonus"`
	HeavyWeatherBonus    float64 `yaml:"heavy_weather_bonus" json:"heavy_weather_bonus"`
	PaceSimilar          float64 `yaml:"pace_similar" json:"pace_similar"`
	PaceSimilarBonus     float64 `yaml:"pace_similar_bonus" json:"pace_similar_bonus"`
	PaceDivergent        float64 `yaml:"pace_divergent" json:"pace_divergent"`
	PaceDivergentPenalty float64 `yaml:"pace_divergent_penalty" json:"pace_divergent_penalty"`
}

// NormalNoise bounds the heteroskedastic sigma of the continuous strategy.
type NormalNoise struct {
	SigmaBase  float64 `yaml:"sigma_base" json:"sigma_base"`
	SigmaSlope float64 `yaml:"sigma_slope" json:"sigma_slope"`
	SigmaMin   float64 `yaml:"sigma_min" json:"sigma_min"`
	SigmaMax   float64 `yaml:"sigma_max" json:"sigma_max"`
}

// Preset is one named, versioned calibration.
type Preset struct {
	Name        string              `yaml:"-" json:"name"`
	Extends     string              `yaml:"extends,omitempty" json:"-"`
	Version     string              `yaml:"version" json:"version"`
	Description string              `yaml:"description" json:"description"`
	Strategy    models.GameStrategy `yaml:"strategy" json:"strategy"`

	Baseline     LeagueBaseline    `yaml:"baseline" json:"baseline"`
	Coefficients Coefficients      `yaml:"coefficients" json:"coefficients"`
	Weights      RatingWeights     `yaml:"weights" json:"weights"`
	Drives       DriveBounds       `yaml:"drives" json:"drives"`
	Environment  Environment       `yaml:"environment" json:"environment"`
	Correlation  CorrelationParams `yaml:"correlation" json:"correlation"`
	Noise        NormalNoise       `yaml:"noise" json:"noise"`
}

// Validate checks internal consistency of a preset
func (p Preset) Validate() error {
	for name, sb := range p.Baseline.all() {
		if sb.SD < 0 || math.IsNaN(sb.SD) || math.IsNaN(sb.Mean) || math.IsInf(sb.Mean, 0) {
			return fmt.Errorf("preset %s: baseline %s is invalid: %w", p.Name, name, utils.ErrConfiguration)
		}
	}

	c := p.Coefficients
	if c.FGPhi < 0 || c.FGPhi > 1 {
		return fmt.Errorf("preset %s: fg_phi %.3f outside [0,1]: %w", p.Name, c.FGPhi, utils.ErrConfiguration)
	}
	if c.LogitClamp <= 0 || c.HFADivisor <= 0 {
		return fmt.Errorf("preset %s: logit_clamp and hfa_divisor must be positive: %w", p.Name, utils.ErrConfiguration)
	}
	if c.RZFactorMin > c.RZFactorMax {
		return fmt.Errorf("preset %s: rz factor bounds inverted: %w", p.Name, utils.ErrConfiguration)
	}

	d := p.Drives
	if d.PerTeamMin <= 0 || d.PerTeamMin > d.PerTeamMax || d.TotalMin > d.TotalMax {
		return fmt.Errorf("preset %s: drive bounds inverted: %w", p.Name, utils.ErrConfiguration)
	}
	if d.TotalMin > 2*d.PerTeamMax || d.TotalMax < 2*d.PerTeamMin {
		return fmt.Errorf("preset %s: drive totals [%d,%d] unreachable with per-team [%d,%d]: %w",
			p.Name, d.TotalMin, d.TotalMax, d.PerTeamMin, d.PerTeamMax, utils.ErrConfiguration)
	}
	if d.MaxTilt < 0 {
		return fmt.Errorf("preset %s: max_tilt cannot be negative: %w", p.Name, utils.ErrConfiguration)
	}

	if p.Weights.StrengthCap < 0 {
		return fmt.Errorf("preset %s: strength_cap cannot be negative: %w", p.Name, utils.ErrConfiguration)
	}
	if p.Environment.MinAdjustment > p.Environment.MaxAdjustment {
		return fmt.Errorf("preset %s: environment bounds inverted: %w", p.Name, utils.ErrConfiguration)
	}

	r := p.Correlation
	if r.Min > r.Max || r.Min < -1 || r.Max > 1 {
		return fmt.Errorf("preset %s: correlation bounds [%.2f,%.2f] invalid: %w", p.Name, r.Min, r.Max, utils.ErrConfiguration)
	}

	n := p.Noise
	if n.SigmaMin <= 0 || n.SigmaMin > n.SigmaMax {
		return fmt.Errorf("preset %s: sigma bounds invalid: %w", p.Name, utils.ErrConfiguration)
	}

	if !p.Strategy.Valid() {
		return fmt.Errorf("preset %s: unknown strategy %q: %w", p.Name, p.Strategy, utils.ErrConfiguration)
	}
	return nil
}
