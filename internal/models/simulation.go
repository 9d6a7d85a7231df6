package models

import "strings"

// Precipitation is the game-time precipitation state.
type Precipitation string

const (
	PrecipitationNone      Precipitation = "none"
	PrecipitationLightRain Precipitation = "light_rain"
	PrecipitationHeavyRain Precipitation = "heavy_rain"
	PrecipitationSnow      Precipitation = "snow"
)

// Valid reports whether p is one of the known precipitation states
func (p Precipitation) Valid() bool {
	switch p {
	case PrecipitationNone, PrecipitationLightRain, PrecipitationHeavyRain, PrecipitationSnow:
		return true
	}
	return false
}

// ParsePrecipitation accepts loose spellings ("Light Rain", "heavy-rain").
// Unknown values resolve to none.
func ParsePrecipitation(s string) Precipitation {
	p := Precipitation(strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(s))))
	if p.Valid() {
		return p
	}
	return PrecipitationNone
}

// GameStrategy selects the game-generation family.
type GameStrategy string

const (
	// StrategyDrive samples every drive against the discrete outcome model.
	StrategyDrive GameStrategy = "drive"
	// StrategyNormal draws correlated normal noise around expected team totals.
	StrategyNormal GameStrategy = "normal"
)

func (s GameStrategy) Valid() bool {
	return s == StrategyDrive || s == StrategyNormal
}

type Weather struct {
	IsDome        bool          `json:"is_dome" yaml:"is_dome"`
	WindMph       float64       `json:"wind_mph" yaml:"wind_mph"`
	TemperatureF  float64       `json:"temperature_f" yaml:"temperature_f"`
	Precipitation Precipitation `json:"precipitation" yaml:"precipitation"`
}

// SimulationConfig holds the caller's choices for one simulation run.
// Market lines are optional; MarketSpread is from the home team's
// perspective (negative = home favored).
type SimulationConfig struct {
	NumSimulations           int          `json:"num_simulations" yaml:"num_simulations"`
	HomeFieldAdvantagePoints float64      `json:"home_field_advantage_points" yaml:"home_field_advantage_points"`
	Weather                  Weather      `json:"weather" yaml:"weather"`
	MarketTotal              *float64     `json:"market_total,omitempty" yaml:"market_total,omitempty"`
	MarketSpread             *float64     `json:"market_spread,omitempty" yaml:"market_spread,omitempty"`
	MarketHomeTeamTotal      *float64     `json:"market_home_team_total,omitempty" yaml:"market_home_team_total,omitempty"`
	MarketAwayTeamTotal      *float64     `json:"market_away_team_total,omitempty" yaml:"market_away_team_total,omitempty"`
	Strategy                 GameStrategy `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Seed                     int64        `json:"seed,omitempty" yaml:"seed,omitempty"`
	Workers                  int          `json:"workers,omitempty" yaml:"workers,omitempty"`
	Percentiles              []float64    `json:"percentiles,omitempty" yaml:"percentiles,omitempty"`
}

// DefaultSimulationConfig returns a neutral outdoor configuration. Decoders
// unmarshal into it so omitted fields keep sensible values.
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		NumSimulations: 10000,
		Weather: Weather{
			TemperatureF:  60,
			Precipitation: PrecipitationNone,
		},
	}
}

// DriveProbabilities are one team's per-drive outcome probabilities. The
// conditional values apply to sustained drives; Touchdown and FieldGoal are
// unconditional and feed the cumulative sampling thresholds.
type DriveProbabilities struct {
	ThreeOut                float64 `json:"three_out"`
	TouchdownGivenSustained float64 `json:"touchdown_given_sustained"`
	FieldGoalGivenSustained float64 `json:"field_goal_given_sustained"`
	Touchdown               float64 `json:"touchdown"`
	FieldGoal               float64 `json:"field_goal"`
	Empty                   float64 `json:"empty"`
}

// ExpectedPoints is the mean score of one drive
func (p DriveProbabilities) ExpectedPoints() float64 {
	return 7*p.Touchdown + 3*p.FieldGoal
}

// TeamMatchup is one offense against the opposing defense.
type TeamMatchup struct {
	Team                 string  `json:"team"`
	EPADiff              float64 `json:"epa_diff"`
	SuccessRateDiff      float64 `json:"success_rate_diff"`
	RedZoneDiff          float64 `json:"red_zone_diff"`
	OpponentThreeOutRate float64 `json:"opponent_three_out_rate"`
	OffenseComposite     float64 `json:"offense_composite"`
	DefenseComposite     float64 `json:"defense_composite"`
	Strength             float64 `json:"strength"`
	ExpectedDrives       float64 `json:"expected_drives"`
	PassRate             float64 `json:"pass_rate"`
	ExplosiveRate        float64 `json:"explosive_rate"`
	SecondsPerSnap       float64 `json:"seconds_per_snap"`
}

// MatchupContext is the read-only per-game view shared by every trial.
type MatchupContext struct {
	Home              TeamMatchup `json:"home"`
	Away              TeamMatchup `json:"away"`
	HFAPoints         float64     `json:"hfa_points"`
	HFALogit          float64     `json:"hfa_logit"`
	WeatherAdjustment float64     `json:"weather_adjustment"`
	Weather           Weather     `json:"weather"`
}

// SimulationSample is one trial's final score.
type SimulationSample struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

func (s SimulationSample) Total() int  { return s.Home + s.Away }
func (s SimulationSample) Margin() int { return s.Home - s.Away }

type PercentilePoint struct {
	Percentile float64 `json:"percentile"`
	Value      float64 `json:"value"`
}

type ScoreSummary struct {
	Mean        float64           `json:"mean"`
	Median      float64           `json:"median"`
	StdDev      float64           `json:"std_dev"`
	Min         float64           `json:"min"`
	Max         float64           `json:"max"`
	Percentiles []PercentilePoint `json:"percentiles"`
}

// At returns the value recorded for percentile p
func (s ScoreSummary) At(p float64) (float64, bool) {
	for _, pp := range s.Percentiles {
		if pp.Percentile == p {
			return pp.Value, true
		}
	}
	return 0, false
}

// Bucket is one bar of a discrete score histogram.
type Bucket struct {
	Value int     `json:"value"`
	Count int     `json:"count"`
	Pct   float64 `json:"pct"`
}

// LineResult compares a simulated quantity against an over/under line.
type LineResult struct {
	Line          float64      `json:"line"`
	OverCount     int          `json:"over_count"`
	UnderCount    int          `json:"under_count"`
	PushCount     int          `json:"push_count"`
	OverPct       float64      `json:"over_pct"`
	UnderPct      float64      `json:"under_pct"`
	PushPct       float64      `json:"push_pct"`
	FairOverOdds  AmericanOdds `json:"fair_over_odds"`
	FairUnderOdds AmericanOdds `json:"fair_under_odds"`
	ModelMean     float64      `json:"model_mean"`
	Edge          float64      `json:"edge"`
}

// SpreadResult compares the simulated margin against a home-perspective spread.
type SpreadResult struct {
	Line              float64      `json:"line"`
	HomeCoverCount    int          `json:"home_cover_count"`
	AwayCoverCount    int          `json:"away_cover_count"`
	PushCount         int          `json:"push_count"`
	HomeCoverPct      float64      `json:"home_cover_pct"`
	AwayCoverPct      float64      `json:"away_cover_pct"`
	PushPct           float64      `json:"push_pct"`
	FairHomeCoverOdds AmericanOdds `json:"fair_home_cover_odds"`
	FairAwayCoverOdds AmericanOdds `json:"fair_away_cover_odds"`
	ModelMargin       float64      `json:"model_margin"`
	Edge              float64      `json:"edge"`
}

// SimulationResult is the reduction of every trial in a run.
type SimulationResult struct {
	HomeTeam           string       `json:"home_team"`
	AwayTeam           string       `json:"away_team"`
	NumSimulations     int          `json:"num_simulations"`
	Seed               int64        `json:"seed"`
	Workers            int          `json:"workers"`
	Strategy           GameStrategy `json:"strategy"`
	CalibrationPreset  string       `json:"calibration_preset"`
	CalibrationVersion string       `json:"calibration_version"`
	Rho                float64      `json:"rho"`

	Matchup      MatchupContext     `json:"matchup"`
	HomeDrive    DriveProbabilities `json:"home_drive"`
	AwayDrive    DriveProbabilities `json:"away_drive"`
	HomeExpected float64            `json:"home_expected_points"`
	AwayExpected float64            `json:"away_expected_points"`

	Home   ScoreSummary `json:"home"`
	Away   ScoreSummary `json:"away"`
	Total  ScoreSummary `json:"total"`
	Margin ScoreSummary `json:"margin"`

	HomeWinPct   float64      `json:"home_win_pct"`
	AwayWinPct   float64      `json:"away_win_pct"`
	TiePct       float64      `json:"tie_pct"`
	HomeFairOdds AmericanOdds `json:"home_fair_odds"`
	AwayFairOdds AmericanOdds `json:"away_fair_odds"`

	TotalDistribution  []Bucket `json:"total_distribution"`
	MarginDistribution []Bucket `json:"margin_distribution"`

	TotalLine         *LineResult   `json:"total_line,omitempty"`
	SpreadLine        *SpreadResult `json:"spread_line,omitempty"`
	HomeTeamTotalLine *LineResult   `json:"home_team_total_line,omitempty"`
	AwayTeamTotalLine *LineResult   `json:"away_team_total_line,omitempty"`
}
