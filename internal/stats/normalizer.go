package stats

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gridiron-sim/internal/calibration"
	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/pkg/logger"
	"github.com/stitts-dev/gridiron-sim/pkg/utils"
)

type parseStatus int

const (
	statusAbsent parseStatus = iota
	statusInvalid
	statusOK
)

var absentMarkers = map[string]bool{
	"": true, "n/a": true, "na": true, "-": true, "--": true, "null": true, "none": true, "nan": true,
}

// Normalizer turns raw team records into canonical TeamProfiles.
type Normalizer struct {
	baseline calibration.LeagueBaseline
	logger   *logrus.Logger
}

func NewNormalizer(baseline calibration.LeagueBaseline, log *logrus.Logger) *Normalizer {
	return &Normalizer{
		baseline: baseline,
		logger:   logger.OrDefault(log),
	}
}

// BuildTeamProfile normalizes one record against the given baseline
func BuildTeamProfile(raw models.RawRecord, baseline calibration.LeagueBaseline) (models.TeamProfile, error) {
	return NewNormalizer(baseline, nil).Build(raw)
}

// Build converts a raw record. Every missing or unusable statistic falls back
// to the league mean; only a record without a team name is rejected.
func (n *Normalizer) Build(raw models.RawRecord) (models.TeamProfile, error) {
	team, ok := ResolveTeamName(raw)
	if !ok {
		return models.TeamProfile{}, fmt.Errorf("no team name among %d fields: %w", len(raw), utils.ErrInvalidRecord)
	}

	profile := models.TeamProfile{
		Team:    team,
		Offense: n.baseline.Means(),
		Defense: n.baseline.Means(),
	}

	status := make([]parseStatus, len(fieldSpecs))

	// Sorted so duplicate spellings resolve the same way every time.
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		idx, ok := aliasIndex[normalizeKey(k)]
		if !ok || status[idx] == statusOK {
			continue
		}
		spec := fieldSpecs[idx]
		v, st := parseValue(raw[k], spec.stat.kind)
		if st < status[idx] {
			continue
		}
		status[idx] = st
		if st != statusOK {
			continue
		}
		if spec.defense {
			spec.stat.set(&profile.Defense, v)
		} else {
			spec.stat.set(&profile.Offense, v)
		}
	}

	for i, st := range status {
		switch st {
		case statusAbsent:
			profile.Defaulted = append(profile.Defaulted, fieldSpecs[i].key)
		case statusInvalid:
			profile.Defaulted = append(profile.Defaulted, fieldSpecs[i].key)
			profile.Flagged = append(profile.Flagged, fieldSpecs[i].key)
		}
	}

	entry := n.logger.WithField("team", team)
	if len(profile.Defaulted) > 0 {
		entry.WithField("fields", profile.Defaulted).Debug("Statistics defaulted to league mean")
	}
	if len(profile.Flagged) > 0 {
		entry.WithField("fields", profile.Flagged).Warn("Unparseable statistics replaced by league mean")
	}

	return profile, nil
}

// ResolveTeamName finds the team name in a raw record
func ResolveTeamName(raw models.RawRecord) (string, bool) {
	byKey := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		byKey[normalizeKey(k)] = v
	}
	for _, k := range teamNameKeys {
		if s, ok := byKey[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s, true
			}
		}
	}
	return "", false
}

func parseValue(v interface{}, kind fieldKind) (float64, parseStatus) {
	var (
		f      float64
		hasPct bool
	)

	switch val := v.(type) {
	case nil:
		return 0, statusAbsent
	case string:
		s := strings.TrimSpace(val)
		if absentMarkers[strings.ToLower(s)] {
			return 0, statusAbsent
		}
		hasPct = strings.Contains(s, "%")
		s = strings.NewReplacer("%", "", ",", "", " ", "").Replace(s)
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, statusInvalid
		}
		f = parsed
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return 0, statusInvalid
		}
		f = parsed
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int32:
		f = float64(val)
	case int64:
		f = float64(val)
	case uint:
		f = float64(val)
	case uint32:
		f = float64(val)
	case uint64:
		f = float64(val)
	default:
		return 0, statusInvalid
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, statusInvalid
	}

	switch kind {
	case kindRate:
		if hasPct || (f > 1 && f <= 100) {
			f /= 100
		}
		if f < 0 || f > 1 {
			return 0, statusInvalid
		}
	case kindScalar:
		if hasPct {
			f /= 100
		}
	case kindIndex:
	}

	return f, statusOK
}
