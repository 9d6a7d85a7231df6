package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/stitts-dev/gridiron-sim/internal/calibration"
	"github.com/stitts-dev/gridiron-sim/internal/ingest"
	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/internal/simulator"
	"github.com/stitts-dev/gridiron-sim/internal/stats"
	"github.com/stitts-dev/gridiron-sim/pkg/logger"
)

// scenario is the optional YAML file describing game conditions and lines
type scenario struct {
	Preset                  string `yaml:"preset,omitempty"`
	models.SimulationConfig `yaml:",inline"`
}

type options struct {
	statsPath    string
	home, away   string
	scenarioPath string
	simulations  int
	seed         int64
	strategy     string
	preset       string
	workers      int
	calibration  string
	asJSON       bool
	logLevel     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.statsPath, "stats", "", "team stats table (csv, semicolon or tab separated)")
	fs.StringVar(&opts.home, "home", "", "home team name")
	fs.StringVar(&opts.away, "away", "", "away team name")
	fs.StringVar(&opts.scenarioPath, "scenario", "", "YAML file with weather, market lines and other settings")
	fs.IntVar(&opts.simulations, "n", 0, "number of simulations (overrides the scenario)")
	fs.Int64Var(&opts.seed, "seed", 0, "random seed; 0 picks one from the clock")
	fs.StringVar(&opts.strategy, "strategy", "", "game generator: drive or normal")
	fs.StringVar(&opts.preset, "preset", "", "calibration preset name")
	fs.IntVar(&opts.workers, "workers", 0, "worker goroutines; 0 uses one per CPU")
	fs.StringVar(&opts.calibration, "calibration", "", "extra calibration presets YAML file")
	fs.BoolVar(&opts.asJSON, "json", false, "print the full result as JSON")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if opts.statsPath == "" || opts.home == "" || opts.away == "" {
		fmt.Fprintln(stderr, "simulate: -stats, -home and -away are required")
		fs.Usage()
		return 2
	}

	log := logger.InitLogger(opts.logLevel, false)
	log.SetOutput(stderr)

	result, err := simulate(ctx, opts, log)
	if err != nil {
		fmt.Fprintf(stderr, "simulate: %v\n", err)
		return 1
	}

	if opts.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(stderr, "simulate: %v\n", err)
			return 1
		}
		return 0
	}

	printResult(stdout, result)
	return 0
}

func simulate(ctx context.Context, opts options, log *logrus.Logger) (*models.SimulationResult, error) {
	registry, err := calibration.LoadDefaults()
	if err != nil {
		return nil, err
	}
	if opts.calibration != "" {
		if err := registry.MergeFile(opts.calibration); err != nil {
			return nil, err
		}
	}

	sc := scenario{SimulationConfig: models.DefaultSimulationConfig()}
	if opts.scenarioPath != "" {
		raw, err := os.ReadFile(opts.scenarioPath)
		if err != nil {
			return nil, fmt.Errorf("can't read scenario: %w", err)
		}
		if err := yaml.Unmarshal(raw, &sc); err != nil {
			return nil, fmt.Errorf("invalid scenario %s: %w", opts.scenarioPath, err)
		}
	}

	cfg := sc.SimulationConfig
	if opts.simulations > 0 {
		cfg.NumSimulations = opts.simulations
	}
	if opts.seed != 0 {
		cfg.Seed = opts.seed
	}
	if opts.strategy != "" {
		cfg.Strategy = models.GameStrategy(strings.ToLower(opts.strategy))
	}
	if opts.workers > 0 {
		cfg.Workers = opts.workers
	}

	presetName := sc.Preset
	if opts.preset != "" {
		presetName = opts.preset
	}
	preset, err := registry.Get(presetName)
	if err != nil {
		return nil, err
	}

	home, away, err := loadTeams(opts.statsPath, opts.home, opts.away, preset.Baseline, log)
	if err != nil {
		return nil, err
	}

	engine, err := simulator.NewEngine(preset, simulator.WithLogger(log))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := engine.Simulate(ctx, home, away, cfg)
	if err != nil {
		return nil, err
	}
	log.WithField("elapsed", time.Since(start)).Info("Simulation finished")
	return result, nil
}

func loadTeams(path, homeName, awayName string, baseline calibration.LeagueBaseline, log *logrus.Logger) (models.TeamProfile, models.TeamProfile, error) {
	var none models.TeamProfile

	f, err := os.Open(path)
	if err != nil {
		return none, none, err
	}
	defer f.Close()

	records, err := ingest.ParseTeamStats(f)
	if err != nil {
		return none, none, fmt.Errorf("%s: %w", path, err)
	}
	index, err := ingest.IndexByTeam(records)
	if err != nil {
		return none, none, fmt.Errorf("%s: %w", path, err)
	}

	normalizer := stats.NewNormalizer(baseline, log)
	profiles := make([]models.TeamProfile, 0, 2)
	for _, name := range []string{homeName, awayName} {
		rec, ok := ingest.FindTeam(index, name)
		if !ok {
			return none, none, fmt.Errorf("team %q not found in %s", name, path)
		}
		profile, err := normalizer.Build(rec)
		if err != nil {
			return none, none, err
		}
		profiles = append(profiles, profile)
	}
	if strings.EqualFold(profiles[0].Team, profiles[1].Team) {
		return none, none, errors.New("home and away must be different teams")
	}
	return profiles[0], profiles[1], nil
}

func printResult(w io.Writer, r *models.SimulationResult) {
	fmt.Fprintf(w, "%s vs %s (home)\n", r.AwayTeam, r.HomeTeam)
	fmt.Fprintf(w, "preset %s (%s), strategy %s, %d simulations, seed %d, rho %.3f\n\n",
		r.CalibrationPreset, r.CalibrationVersion, r.Strategy, r.NumSimulations, r.Seed, r.Rho)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	header := "\tmean\tsd"
	for _, p := range r.Home.Percentiles {
		header += fmt.Sprintf("\tp%g", p.Percentile)
	}
	fmt.Fprintln(tw, header+"\t")

	rows := []struct {
		label   string
		summary models.ScoreSummary
	}{
		{r.HomeTeam, r.Home},
		{r.AwayTeam, r.Away},
		{"total", r.Total},
		{"margin", r.Margin},
	}
	for _, row := range rows {
		line := fmt.Sprintf("%s\t%.2f\t%.2f", row.label, row.summary.Mean, row.summary.StdDev)
		for _, p := range row.summary.Percentiles {
			line += fmt.Sprintf("\t%g", p.Value)
		}
		fmt.Fprintln(tw, line+"\t")
	}
	tw.Flush()
	fmt.Fprintln(w)

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "outcome\tpct\tfair odds")
	fmt.Fprintf(tw, "%s win\t%.2f%%\t%s\n", r.HomeTeam, r.HomeWinPct, r.HomeFairOdds)
	fmt.Fprintf(tw, "%s win\t%.2f%%\t%s\n", r.AwayTeam, r.AwayWinPct, r.AwayFairOdds)
	fmt.Fprintf(tw, "tie\t%.2f%%\t\n", r.TiePct)
	tw.Flush()

	if r.TotalLine == nil && r.SpreadLine == nil && r.HomeTeamTotalLine == nil && r.AwayTeamTotalLine == nil {
		return
	}

	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "market\tline\tover/home\tunder/away\tpush\tfair over/home\tfair under/away\tedge")
	printLine := func(name string, l *models.LineResult) {
		if l == nil {
			return
		}
		fmt.Fprintf(tw, "%s\t%g\t%.2f%%\t%.2f%%\t%.2f%%\t%s\t%s\t%+.2f\n",
			name, l.Line, l.OverPct, l.UnderPct, l.PushPct, l.FairOverOdds, l.FairUnderOdds, l.Edge)
	}
	printLine("total", r.TotalLine)
	if s := r.SpreadLine; s != nil {
		fmt.Fprintf(tw, "spread\t%+g\t%.2f%%\t%.2f%%\t%.2f%%\t%s\t%s\t%+.2f\n",
			s.Line, s.HomeCoverPct, s.AwayCoverPct, s.PushPct, s.FairHomeCoverOdds, s.FairAwayCoverOdds, s.Edge)
	}
	printLine(r.HomeTeam+" total", r.HomeTeamTotalLine)
	printLine(r.AwayTeam+" total", r.AwayTeamTotalLine)
	tw.Flush()
}
