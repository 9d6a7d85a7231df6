package stats

import (
	"fmt"
	"strings"

	"github.com/stitts-dev/gridiron-sim/internal/models"
)

type fieldKind int

const (
	// kindRate values are fractions; percent spellings are rescaled.
	kindRate fieldKind = iota
	// kindScalar values are used as-is apart from a literal percent sign.
	kindScalar
	// kindIndex values are whole-number indices and never rescaled.
	kindIndex
)

type statSpec struct {
	name    string
	kind    fieldKind
	aliases []string
	set     func(*models.SideStats, float64)
}

type fieldSpec struct {
	key     string // canonical, e.g. off_epa_per_play
	stat    statSpec
	defense bool
}

var statSpecs = []statSpec{
	{
		name:    "points_per_drive",
		kind:    kindScalar,
		aliases: []string{"points_per_drive", "ppd", "pts_per_drive", "pts_drive"},
		set:     func(s *models.SideStats, v float64) { s.PointsPerDrive = v },
	},
	{
		name:    "epa_per_play",
		kind:    kindScalar,
		aliases: []string{"epa_per_play", "epa", "epa_play"},
		set:     func(s *models.SideStats, v float64) { s.EPAPerPlay = v },
	},
	{
		name:    "success_rate",
		kind:    kindRate,
		aliases: []string{"success_rate", "sr", "success", "success_pct"},
		set:     func(s *models.SideStats, v float64) { s.SuccessRate = v },
	},
	{
		name:    "explosive_rate",
		kind:    kindRate,
		aliases: []string{"explosive_rate", "explosive", "explosive_play_rate", "explosive_pct"},
		set:     func(s *models.SideStats, v float64) { s.ExplosiveRate = v },
	},
	{
		name:    "red_zone_td_rate",
		kind:    kindRate,
		aliases: []string{"red_zone_td_rate", "rz_td_rate", "rz_td", "rz", "rz_pct", "red_zone", "red_zone_td", "red_zone_td_pct", "redzone_td_rate"},
		set:     func(s *models.SideStats, v float64) { s.RedZoneTDRate = v },
	},
	{
		name:    "three_out_rate",
		kind:    kindRate,
		aliases: []string{"three_out_rate", "three_out", "three_and_out", "three_and_out_rate", "3out", "3_out", "3_out_rate", "3_and_out"},
		set:     func(s *models.SideStats, v float64) { s.ThreeOutRate = v },
	},
	{
		name:    "penalties_per_drive",
		kind:    kindScalar,
		aliases: []string{"penalties_per_drive", "pen_per_drive", "penalties_drive"},
		set:     func(s *models.SideStats, v float64) { s.PenaltiesPerDrive = v },
	},
	{
		name:    "drives_per_game",
		kind:    kindScalar,
		aliases: []string{"drives_per_game", "drives", "drives_game"},
		set:     func(s *models.SideStats, v float64) { s.DrivesPerGame = v },
	},
	{
		name:    "seconds_per_snap",
		kind:    kindScalar,
		aliases: []string{"seconds_per_snap", "sec_per_snap", "secs_per_snap", "seconds_per_play", "pace"},
		set:     func(s *models.SideStats, v float64) { s.SecondsPerSnap = v },
	},
	{
		name:    "pass_rate",
		kind:    kindRate,
		aliases: []string{"pass_rate", "pass_pct", "pass_rate_neutral"},
		set:     func(s *models.SideStats, v float64) { s.PassRate = v },
	},
	{
		name:    "dvoa",
		kind:    kindIndex,
		aliases: []string{"dvoa"},
		set:     func(s *models.SideStats, v float64) { s.DVOA = v },
	},
}

var teamNameKeys = []string{"team", "team_name", "name", "club", "franchise", "tm"}

var (
	fieldSpecs []fieldSpec
	aliasIndex map[string]int
)

func init() {
	var err error
	fieldSpecs, aliasIndex, err = buildAliasIndex(statSpecs)
	if err != nil {
		panic(err)
	}
}

func buildAliasIndex(specs []statSpec) ([]fieldSpec, map[string]int, error) {
	fields := make([]fieldSpec, 0, 2*len(specs))
	index := make(map[string]int)

	add := func(alias string, idx int) error {
		alias = normalizeKey(alias)
		if prev, ok := index[alias]; ok && prev != idx {
			return fmt.Errorf("alias %q maps to both %s and %s", alias, fields[prev].key, fields[idx].key)
		}
		index[alias] = idx
		return nil
	}

	for _, spec := range specs {
		off := len(fields)
		fields = append(fields, fieldSpec{key: "off_" + spec.name, stat: spec})
		def := len(fields)
		fields = append(fields, fieldSpec{key: "def_" + spec.name, stat: spec, defense: true})

		for _, a := range spec.aliases {
			// A bare spelling refers to the offense.
			for _, form := range []string{a, "off_" + a, a + "_off", "offense_" + a, "offensive_" + a} {
				if err := add(form, off); err != nil {
					return nil, nil, err
				}
			}
			for _, form := range []string{"def_" + a, a + "_def", "defense_" + a, "defensive_" + a, a + "_allowed", "opp_" + a} {
				if err := add(form, def); err != nil {
					return nil, nil, err
				}
			}
		}
	}
	return fields, index, nil
}

// normalizeKey lower-cases a column name and collapses every run of
// separators or punctuation into a single underscore.
func normalizeKey(k string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(k)) {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !isAlnum {
			pendingSep = true
			continue
		}
		if pendingSep && b.Len() > 0 {
			b.WriteByte('_')
		}
		pendingSep = false
		b.WriteRune(r)
	}
	return b.String()
}

// CanonicalKeys lists every canonical statistic key in a stable order
func CanonicalKeys() []string {
	keys := make([]string, len(fieldSpecs))
	for i, f := range fieldSpecs {
		keys[i] = f.key
	}
	return keys
}
