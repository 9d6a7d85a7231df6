package simulator

import (
	"context"
	"encoding/json"
	"math"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/gridiron-sim/internal/calibration"
	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/pkg/utils"
)

func newTestEngine(t *testing.T, preset calibration.Preset, opts ...EngineOption) *Engine {
	t.Helper()
	log, _ := test.NewNullLogger()
	engine, err := NewEngine(preset, append([]EngineOption{WithLogger(log)}, opts...)...)
	require.NoError(t, err)
	return engine
}

func leagueAverage(name string, b calibration.LeagueBaseline) models.TeamProfile {
	return models.TeamProfile{Team: name, Offense: b.Means(), Defense: b.Means()}
}

func neutralConfig(n int, seed int64) models.SimulationConfig {
	cfg := models.DefaultSimulationConfig()
	cfg.NumSimulations = n
	cfg.Seed = seed
	cfg.Workers = 4
	return cfg
}

func TestSimulate_EvenMatchupIsBalanced(t *testing.T) {
	p := testPreset(t)
	engine := newTestEngine(t, p)

	cfg := neutralConfig(10000, 101)
	cfg.MarketSpread = ptr(0)

	r, err := engine.Simulate(context.Background(), leagueAverage("Home", p.Baseline), leagueAverage("Away", p.Baseline), cfg)
	require.NoError(t, err)

	assert.Equal(t, 10000, r.NumSimulations)
	assert.InDelta(t, 50, r.HomeWinPct+r.TiePct/2, 3)
	assert.InDelta(t, 50, r.AwayWinPct+r.TiePct/2, 3)
	assert.InDelta(t, r.HomeWinPct, r.AwayWinPct, 3)
	assert.Greater(t, r.TiePct, 0.0, "discrete scores tie")
	assert.InDelta(t, 0, r.Margin.Mean, 0.6)
	assert.InDelta(t, 44, r.Total.Mean, 1.5)
	assert.InDelta(t, 0.37, r.Rho, 1e-9)
}

func TestSimulate_StrongOffenseOutscores(t *testing.T) {
	p := testPreset(t)
	engine := newTestEngine(t, p)
	b := p.Baseline

	home := leagueAverage("Home", b)
	at := func(sb calibration.StatBaseline) float64 { return sb.Mean + 2*sb.SD }
	home.Offense = models.SideStats{
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

	for _, strategy := range []models.GameStrategy{models.StrategyDrive, models.StrategyNormal} {
		cfg := neutralConfig(5000, 7)
		cfg.Strategy = strategy

		r, err := engine.Simulate(context.Background(), home, leagueAverage("Away", b), cfg)
		require.NoError(t, err)
		assert.Greater(t, r.Home.Mean, r.Away.Mean, "strategy %s", strategy)
		assert.Greater(t, r.HomeWinPct, r.AwayWinPct)
		assert.Greater(t, r.HomeExpected, r.AwayExpected)
	}
}

func TestSimulate_DomeRaisesTotal(t *testing.T) {
	p := testPreset(t)
	engine := newTestEngine(t, p)
	home, away := leagueAverage("Home", p.Baseline), leagueAverage("Away", p.Baseline)

	outdoor := neutralConfig(20000, 33)
	dome := outdoor
	dome.Weather.IsDome = true

	ro, err := engine.Simulate(context.Background(), home, away, outdoor)
	require.NoError(t, err)
	rd, err := engine.Simulate(context.Background(), home, away, dome)
	require.NoError(t, err)

	assert.InDelta(t, p.Environment.DomeBonus, rd.Matchup.WeatherAdjustment, 1e-12)
	assert.InDelta(t, p.Environment.DomeBonus, (rd.HomeExpected+rd.AwayExpected)-(ro.HomeExpected+ro.AwayExpected), 1e-4)
	assert.Greater(t, rd.Total.Mean, ro.Total.Mean)
	assert.InDelta(t, p.Environment.DomeBonus, rd.Total.Mean-ro.Total.Mean, 0.6)
}

func TestSimulate_Deterministic(t *testing.T) {
	p := testPreset(t)
	engine := newTestEngine(t, p)
	home, away := leagueAverage("Home", p.Baseline), leagueAverage("Away", p.Baseline)

	cfg := neutralConfig(3000, 424242)
	cfg.MarketTotal = ptr(43.5)
	cfg.MarketSpread = ptr(-2.5)
	cfg.HomeFieldAdvantagePoints = 1.8

	first, err := engine.Simulate(context.Background(), home, away, cfg)
	require.NoError(t, err)
	second, err := engine.Simulate(context.Background(), home, away, cfg)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	cfg.Seed = 424243
	third, err := engine.Simulate(context.Background(), home, away, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, first.Home, third.Home)
}

func TestSimulate_ZeroSeedIsReported(t *testing.T) {
	p := testPreset(t)
	engine := newTestEngine(t, p)

	r, err := engine.Simulate(context.Background(), leagueAverage("H", p.Baseline), leagueAverage("A", p.Baseline), neutralConfig(200, 0))
	require.NoError(t, err)
	assert.NotZero(t, r.Seed)
	assert.Equal(t, "w13", r.CalibrationPreset)
	assert.Equal(t, "2024.w13", r.CalibrationVersion)
	assert.Equal(t, models.StrategyDrive, r.Strategy)
}

func TestSimulate_ConfigErrors(t *testing.T) {
	p := testPreset(t)
	engine := newTestEngine(t, p)
	home, away := leagueAverage("H", p.Baseline), leagueAverage("A", p.Baseline)

	for _, n := range []int{0, -5} {
		_, err := engine.Simulate(context.Background(), home, away, neutralConfig(n, 1))
		require.Error(t, err)
		assert.ErrorIs(t, err, utils.ErrConfiguration)
	}

	cfg := neutralConfig(100, 1)
	cfg.Strategy = "poisson"
	_, err := engine.Simulate(context.Background(), home, away, cfg)
	assert.ErrorIs(t, err, utils.ErrConfiguration)
}

func TestSimulate_ClampsOutOfRangeFields(t *testing.T) {
	p := testPreset(t)
	log, hook := test.NewNullLogger()
	engine, err := NewEngine(p, WithLogger(log), WithMaxSimulations(500))
	require.NoError(t, err)

	cfg := neutralConfig(10000, 3)
	cfg.Weather.WindMph = -12
	cfg.Weather.Precipitation = "hail"
	cfg.HomeFieldAdvantagePoints = math.Inf(1)

	r, err := engine.Simulate(context.Background(), leagueAverage("H", p.Baseline), leagueAverage("A", p.Baseline), cfg)
	require.NoError(t, err)

	assert.Equal(t, 500, r.NumSimulations)
	assert.Equal(t, 0.0, r.Matchup.Weather.WindMph)
	assert.Equal(t, models.PrecipitationNone, r.Matchup.Weather.Precipitation)
	assert.Zero(t, r.Matchup.HFAPoints)

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warnings++
		}
	}
	assert.GreaterOrEqual(t, warnings, 3)
}

func TestSimulate_IgnoresNonFiniteMarketLines(t *testing.T) {
	p := testPreset(t)
	log, hook := test.NewNullLogger()
	engine, err := NewEngine(p, WithLogger(log))
	require.NoError(t, err)

	cfg := neutralConfig(2000, 8)
	cfg.MarketSpread = ptr(math.NaN())
	cfg.MarketTotal = ptr(math.Inf(1))
	cfg.MarketHomeTeamTotal = ptr(math.Inf(-1))
	cfg.MarketAwayTeamTotal = ptr(20.5)

	r, err := engine.Simulate(context.Background(), leagueAverage("H", p.Baseline), leagueAverage("A", p.Baseline), cfg)
	require.NoError(t, err)

	assert.Nil(t, r.SpreadLine)
	assert.Nil(t, r.TotalLine)
	assert.Nil(t, r.HomeTeamTotalLine)
	require.NotNil(t, r.AwayTeamTotalLine)
	assert.Less(t, r.AwayTeamTotalLine.PushPct, 100.0)
	assert.True(t, math.IsNaN(*cfg.MarketSpread), "caller's config is left alone")

	ignored := 0
	for _, e := range hook.AllEntries() {
		if e.Message == "Ignoring non-finite market line" {
			ignored++
		}
	}
	assert.Equal(t, 3, ignored)

	_, err = json.Marshal(r)
	assert.NoError(t, err)
}

func TestSimulate_Cancelled(t *testing.T) {
	p := testPreset(t)
	engine := newTestEngine(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Simulate(ctx, leagueAverage("H", p.Baseline), leagueAverage("A", p.Baseline), neutralConfig(5000, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrSimulationFailed)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulateWithProgress(t *testing.T) {
	p := testPreset(t)
	engine := newTestEngine(t, p)

	var (
		mu       sync.Mutex
		calls    int
		last     int
		reported int
	)
	progress := func(completed, total int) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		assert.Equal(t, 9000, total)
		if completed > reported {
			reported = completed
		}
		last = completed
	}

	cfg := neutralConfig(9000, 5)
	cfg.Workers = 3
	_, err := engine.SimulateWithProgress(context.Background(), leagueAverage("H", p.Baseline), leagueAverage("A", p.Baseline), cfg, progress)
	require.NoError(t, err)

	assert.Greater(t, calls, 3)
	assert.Equal(t, 9000, reported)
	assert.LessOrEqual(t, last, 9000)
}

func TestSimulate_WorkerCountBeyondTrials(t *testing.T) {
	p := testPreset(t)
	engine := newTestEngine(t, p)

	cfg := neutralConfig(3, 12)
	cfg.Workers = 16
	r, err := engine.Simulate(context.Background(), leagueAverage("H", p.Baseline), leagueAverage("A", p.Baseline), cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, r.NumSimulations)
	assert.Equal(t, 3, r.Workers)
}

func TestPackageSimulateUsesDefaultPreset(t *testing.T) {
	p := testPreset(t)
	r, err := Simulate(context.Background(), leagueAverage("H", p.Baseline), leagueAverage("A", p.Baseline), neutralConfig(100, 9))
	require.NoError(t, err)
	assert.Equal(t, calibration.DefaultPresetName, r.CalibrationPreset)
}
