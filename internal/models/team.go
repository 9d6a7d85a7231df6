package models

// RawRecord is one team's statistics as handed over by ingestion: field name
// to string or numeric value, spellings not yet canonicalized.
type RawRecord map[string]interface{}

// SideStats holds one side of the ball. Rates are fractions in [0,1]; DVOA
// stays on its native percentage-point scale. Defensive values are what the
// unit allowed (or, for ThreeOutRate, forced).
type SideStats struct {
	PointsPerDrive    float64 `json:"points_per_drive" yaml:"points_per_drive"`
	EPAPerPlay        float64 `json:"epa_per_play" yaml:"epa_per_play"`
	SuccessRate       float64 `json:"success_rate" yaml:"success_rate"`
	ExplosiveRate     float64 `json:"explosive_rate" yaml:"explosive_rate"`
	RedZoneTDRate     float64 `json:"red_zone_td_rate" yaml:"red_zone_td_rate"`
	ThreeOutRate      float64 `json:"three_out_rate" yaml:"three_out_rate"`
	PenaltiesPerDrive float64 `json:"penalties_per_drive" yaml:"penalties_per_drive"`
	DrivesPerGame     float64 `json:"drives_per_game" yaml:"drives_per_game"`
	SecondsPerSnap    float64 `json:"seconds_per_snap" yaml:"seconds_per_snap"`
	PassRate          float64 `json:"pass_rate" yaml:"pass_rate"`
	DVOA              float64 `json:"dvoa" yaml:"dvoa"`
}

// TeamProfile is the canonical, immutable statistical view of a team.
type TeamProfile struct {
	Team    string    `json:"team"`
	Offense SideStats `json:"offense"`
	Defense SideStats `json:"defense"`

	// Defaulted lists canonical keys that fell back to the league mean.
	Defaulted []string `json:"defaulted,omitempty"`
	// Flagged lists canonical keys whose value was present but unusable.
	Flagged []string `json:"flagged,omitempty"`
}
