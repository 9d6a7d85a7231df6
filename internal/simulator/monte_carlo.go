package simulator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gridiron-sim/internal/calibration"
	"github.com/stitts-dev/gridiron-sim/internal/matchup"
	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/pkg/logger"
	"github.com/stitts-dev/gridiron-sim/pkg/utils"
)

const (
	// workerSeedStride separates the rng streams of neighbouring workers.
	workerSeedStride = 7919
	// checkEvery is how many trials a worker runs between deadline checks.
	checkEvery = 1024
)

// ProgressFunc receives the running trial count. It is called from worker
// goroutines and must be safe for concurrent use.
type ProgressFunc func(completed, total int)

// Engine runs Monte Carlo simulations of one game under a fixed calibration.
type Engine struct {
	preset         calibration.Preset
	logger         *logrus.Logger
	maxSimulations int
	workers        int
}

type EngineOption func(*Engine)

// WithLogger sets the engine's logger
func WithLogger(l *logrus.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger.OrDefault(l) }
}

// WithMaxSimulations caps the trial count of a single run; 0 disables the cap
func WithMaxSimulations(n int) EngineOption {
	return func(e *Engine) { e.maxSimulations = n }
}

// WithWorkers sets the worker count used when a config doesn't name one
func WithWorkers(n int) EngineOption {
	return func(e *Engine) { e.workers = n }
}

// NewEngine creates an engine for the given calibration preset
func NewEngine(preset calibration.Preset, opts ...EngineOption) (*Engine, error) {
	if err := preset.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		preset: preset,
		logger: logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers <= 0 {
		e.workers = runtime.NumCPU()
	}
	return e, nil
}

// Preset returns the calibration the engine runs under
func (e *Engine) Preset() calibration.Preset {
	return e.preset
}

// Simulate runs the default calibration on home against away.
func Simulate(ctx context.Context, home, away models.TeamProfile, cfg models.SimulationConfig) (*models.SimulationResult, error) {
	registry, err := calibration.LoadDefaults()
	if err != nil {
		return nil, err
	}
	engine, err := NewEngine(registry.Default())
	if err != nil {
		return nil, err
	}
	return engine.Simulate(ctx, home, away, cfg)
}

// Simulate runs cfg.NumSimulations trials and reduces them.
func (e *Engine) Simulate(ctx context.Context, home, away models.TeamProfile, cfg models.SimulationConfig) (*models.SimulationResult, error) {
	return e.SimulateWithProgress(ctx, home, away, cfg, nil)
}

// SimulateWithProgress is Simulate with a progress callback, which may be nil.
func (e *Engine) SimulateWithProgress(ctx context.Context, home, away models.TeamProfile, cfg models.SimulationConfig, progress ProgressFunc) (*models.SimulationResult, error) {
	cfg, err := e.prepare(cfg)
	if err != nil {
		return nil, err
	}

	log := e.logger.WithFields(logrus.Fields{
		"home_team":   home.Team,
		"away_team":   away.Team,
		"simulations": cfg.NumSimulations,
		"workers":     cfg.Workers,
		"seed":        cfg.Seed,
		"strategy":    cfg.Strategy,
		"preset":      e.preset.Name,
	})

	plan := e.Plan(home, away, cfg)
	log.WithField("rho", plan.Rho).Info("Starting game simulation")

	start := time.Now()
	samples, err := e.run(ctx, plan.Sampler, cfg.NumSimulations, cfg.Workers, cfg.Seed, progress)
	if err != nil {
		log.WithError(err).Warn("Simulation aborted")
		return nil, err
	}

	result := Summarize(samples, cfg)
	result.HomeTeam = home.Team
	result.AwayTeam = away.Team
	result.Seed = cfg.Seed
	result.Workers = cfg.Workers
	result.Strategy = cfg.Strategy
	result.CalibrationPreset = e.preset.Name
	result.CalibrationVersion = e.preset.Version
	result.Rho = plan.Rho
	result.Matchup = plan.Matchup
	result.HomeDrive = plan.Home.Drive
	result.AwayDrive = plan.Away.Drive
	result.HomeExpected = plan.Home.ExpectedPoints
	result.AwayExpected = plan.Away.ExpectedPoints

	log.WithFields(logrus.Fields{
		"elapsed":      time.Since(start),
		"home_win_pct": result.HomeWinPct,
		"mean_total":   result.Total.Mean,
	}).Info("Game simulation completed")

	return result, nil
}

// GamePlan is the per-game state shared read-only by every trial.
type GamePlan struct {
	Matchup models.MatchupContext
	Home    TeamPlan
	Away    TeamPlan
	Rho     float64
	Sampler GameSampler
}

// Plan rates the matchup and builds the sampler for cfg.Strategy. cfg must
// already be sanitized.
func (e *Engine) Plan(home, away models.TeamProfile, cfg models.SimulationConfig) GamePlan {
	mc := matchup.Rate(home, away, e.preset, cfg)
	model := NewDriveModel(e.preset)

	plan := GamePlan{Matchup: mc}
	halfAdj := mc.WeatherAdjustment / 2

	sides := []struct {
		side float64
		tm   models.TeamMatchup
		dst  *TeamPlan
	}{
		{Home, mc.Home, &plan.Home},
		{Away, mc.Away, &plan.Away},
	}
	for _, s := range sides {
		if cfg.Strategy == models.StrategyNormal {
			*s.dst = e.normalPlan(model, s.tm, mc.HFALogit, s.side, halfAdj)
		} else {
			*s.dst = e.drivePlan(model, s.tm, mc.HFALogit, s.side, halfAdj)
		}
	}

	// Without a market spread the model's own margin stands in.
	spread := plan.Away.ExpectedPoints - plan.Home.ExpectedPoints
	if cfg.MarketSpread != nil {
		spread = *cfg.MarketSpread
	}
	plan.Rho = matchup.EstimateRho(mc, spread, e.preset.Correlation)

	if cfg.Strategy == models.StrategyNormal {
		plan.Sampler = NewNormalSampler(plan.Home, plan.Away, plan.Rho, e.preset.Noise)
	} else {
		plan.Sampler = NewDriveSampler(plan.Home, plan.Away, plan.Rho, NewDriveBudget(e.preset.Drives))
	}
	return plan
}

// drivePlan folds the environment into the touchdown logit so the team's
// expected points move by envPoints over its expected drives.
func (e *Engine) drivePlan(model *DriveModel, tm models.TeamMatchup, hfaLogit, side, envPoints float64) TeamPlan {
	shift := 0.0
	if tm.ExpectedDrives > 0 {
		shift = model.EnvironmentShift(tm, hfaLogit, side, envPoints/tm.ExpectedDrives)
	}
	p := model.Probabilities(tm, hfaLogit, side, shift)
	return TeamPlan{
		Drive:          p,
		ExpectedDrives: tm.ExpectedDrives,
		ExpectedPoints: tm.ExpectedDrives * p.ExpectedPoints(),
	}
}

// normalPlan adds the environment straight onto the expected total.
func (e *Engine) normalPlan(model *DriveModel, tm models.TeamMatchup, hfaLogit, side, envPoints float64) TeamPlan {
	bounds := e.preset.Drives
	drives := clamp(tm.ExpectedDrives, float64(bounds.PerTeamMin), float64(bounds.PerTeamMax))
	p := model.Probabilities(tm, hfaLogit, side, 0)
	return TeamPlan{
		Drive:          p,
		ExpectedDrives: drives,
		ExpectedPoints: math.Max(0, drives*p.ExpectedPoints()+envPoints),
	}
}

// prepare rejects unusable configs and clamps out-of-range fields.
func (e *Engine) prepare(cfg models.SimulationConfig) (models.SimulationConfig, error) {
	if cfg.NumSimulations <= 0 {
		return cfg, fmt.Errorf("num_simulations must be positive, got %d: %w", cfg.NumSimulations, utils.ErrConfiguration)
	}
	if e.maxSimulations > 0 && cfg.NumSimulations > e.maxSimulations {
		e.logger.WithFields(logrus.Fields{
			"requested": cfg.NumSimulations,
			"max":       e.maxSimulations,
		}).Warn("Clamping num_simulations to configured maximum")
		cfg.NumSimulations = e.maxSimulations
	}

	if cfg.Strategy == "" {
		cfg.Strategy = e.preset.Strategy
	}
	if !cfg.Strategy.Valid() {
		return cfg, fmt.Errorf("unknown strategy %q: %w", cfg.Strategy, utils.ErrConfiguration)
	}

	weather, clamped := matchup.SanitizeWeather(cfg.Weather)
	if len(clamped) > 0 {
		e.logger.WithField("fields", clamped).Warn("Clamped out-of-range weather fields")
	}
	cfg.Weather = weather

	if math.IsNaN(cfg.HomeFieldAdvantagePoints) || math.IsInf(cfg.HomeFieldAdvantagePoints, 0) {
		e.logger.Warn("Non-finite home field advantage replaced by 0")
		cfg.HomeFieldAdvantagePoints = 0
	}

	lines := []struct {
		name string
		line **float64
	}{
		{"market_total", &cfg.MarketTotal},
		{"market_spread", &cfg.MarketSpread},
		{"market_home_team_total", &cfg.MarketHomeTeamTotal},
		{"market_away_team_total", &cfg.MarketAwayTeamTotal},
	}
	for _, l := range lines {
		if v := *l.line; v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			e.logger.WithField("field", l.name).Warn("Ignoring non-finite market line")
			*l.line = nil
		}
	}

	if cfg.Workers <= 0 {
		cfg.Workers = e.workers
	}
	cfg.Workers = min(cfg.Workers, cfg.NumSimulations)

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return cfg, nil
}

// run fans trials out over contiguous ranges, one rng stream per worker.
// Each worker writes only its own range of the result slice.
func (e *Engine) run(ctx context.Context, sampler GameSampler, n, workers int, seed int64, progress ProgressFunc) ([]models.SimulationSample, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	samples := make([]models.SimulationSample, n)
	errs := make([]error, workers)
	chunk := (n + workers - 1) / workers

	var (
		wg        sync.WaitGroup
		completed int64
	)
	report := func(batch int) {
		c := atomic.AddInt64(&completed, int64(batch))
		if progress != nil {
			progress(int(c), n)
		}
	}

	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, n)
		if start >= end {
			break
		}

		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed + int64(w)*workerSeedStride))

			done := start
			for i := start; i < end; i++ {
				if (i-start)%checkEvery == 0 {
					if err := ctx.Err(); err != nil {
						errs[w] = err
						return
					}
					if i > done {
						report(i - done)
						done = i
					}
				}
				samples[i] = sampler.Sample(rng)
			}
			report(end - done)
		}(w, start, end)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("%w: %w", utils.ErrSimulationFailed, err)
		}
	}
	return samples, nil
}
