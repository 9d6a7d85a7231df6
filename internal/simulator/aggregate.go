package simulator

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/gridiron-sim/internal/models"
)

// DefaultPercentiles are always reported; SimulationConfig.Percentiles adds to them.
var DefaultPercentiles = []float64{5, 10, 25, 50, 75, 90, 95}

// Summarize reduces trial scores to a SimulationResult. It fills the score
// summaries, win probabilities, distributions and any market line blocks;
// run metadata is left to the caller.
func Summarize(samples []models.SimulationSample, cfg models.SimulationConfig) *models.SimulationResult {
	n := len(samples)
	result := &models.SimulationResult{NumSimulations: n}
	if n == 0 {
		return result
	}

	home := make([]float64, n)
	away := make([]float64, n)
	total := make([]float64, n)
	margin := make([]float64, n)

	var homeWins, awayWins, ties int
	for i, s := range samples {
		home[i] = float64(s.Home)
		away[i] = float64(s.Away)
		total[i] = float64(s.Total())
		margin[i] = float64(s.Margin())

		switch {
		case s.Home > s.Away:
			homeWins++
		case s.Away > s.Home:
			awayWins++
		default:
			ties++
		}
	}

	percentiles := mergePercentiles(cfg.Percentiles)

	result.Home = summarizeScores(home, percentiles)
	result.Away = summarizeScores(away, percentiles)
	result.Total = summarizeScores(total, percentiles)
	result.Margin = summarizeScores(margin, percentiles)

	result.HomeWinPct = pct(homeWins, n)
	result.AwayWinPct = pct(awayWins, n)
	result.TiePct = pct(ties, n)
	result.HomeFairOdds = FairAmericanOdds(float64(homeWins) / float64(n))
	result.AwayFairOdds = FairAmericanOdds(float64(awayWins) / float64(n))

	result.TotalDistribution = histogram(samples, models.SimulationSample.Total)
	result.MarginDistribution = histogram(samples, models.SimulationSample.Margin)

	if cfg.MarketTotal != nil {
		result.TotalLine = lineResult(total, *cfg.MarketTotal, result.Total.Mean)
	}
	if cfg.MarketHomeTeamTotal != nil {
		result.HomeTeamTotalLine = lineResult(home, *cfg.MarketHomeTeamTotal, result.Home.Mean)
	}
	if cfg.MarketAwayTeamTotal != nil {
		result.AwayTeamTotalLine = lineResult(away, *cfg.MarketAwayTeamTotal, result.Away.Mean)
	}
	if cfg.MarketSpread != nil {
		result.SpreadLine = spreadResult(margin, *cfg.MarketSpread, result.Margin.Mean)
	}

	return result
}

// Percentile interpolates linearly between the order statistics of sorted.
// p is in [0,100] and clamped to it.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	rank := clamp(p, 0, 100) / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (rank-float64(lo))*(sorted[hi]-sorted[lo])
}

func summarizeScores(values []float64, percentiles []float64) models.ScoreSummary {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	summary := models.ScoreSummary{
		Mean:        stat.Mean(sorted, nil),
		Median:      Percentile(sorted, 50),
		Min:         floats.Min(sorted),
		Max:         floats.Max(sorted),
		Percentiles: make([]models.PercentilePoint, 0, len(percentiles)),
	}
	if len(sorted) > 1 {
		summary.StdDev = stat.StdDev(sorted, nil)
	}

	for _, p := range percentiles {
		summary.Percentiles = append(summary.Percentiles, models.PercentilePoint{
			Percentile: p,
			Value:      Percentile(sorted, p),
		})
	}
	return summary
}

// mergePercentiles adds caller percentiles to the defaults, dropping
// duplicates and values outside [0,100].
func mergePercentiles(extra []float64) []float64 {
	seen := make(map[float64]bool, len(DefaultPercentiles)+len(extra))
	out := make([]float64, 0, len(DefaultPercentiles)+len(extra))
	for _, p := range append(append([]float64{}, DefaultPercentiles...), extra...) {
		if math.IsNaN(p) || p < 0 || p > 100 || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Float64s(out)
	return out
}

func histogram(samples []models.SimulationSample, value func(models.SimulationSample) int) []models.Bucket {
	counts := make(map[int]int)
	for _, s := range samples {
		counts[value(s)]++
	}

	buckets := make([]models.Bucket, 0, len(counts))
	for v, c := range counts {
		buckets = append(buckets, models.Bucket{Value: v, Count: c, Pct: pct(c, len(samples))})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Value < buckets[j].Value })
	return buckets
}

func lineResult(values []float64, line, mean float64) *models.LineResult {
	r := &models.LineResult{Line: line, ModelMean: mean, Edge: mean - line}
	for _, v := range values {
		switch compareToLine(v, line) {
		case 1:
			r.OverCount++
		case -1:
			r.UnderCount++
		default:
			r.PushCount++
		}
	}

	n := len(values)
	r.OverPct = pct(r.OverCount, n)
	r.UnderPct = pct(r.UnderCount, n)
	r.PushPct = pct(r.PushCount, n)
	r.FairOverOdds = FairAmericanOdds(ratio(r.OverCount, r.OverCount+r.UnderCount))
	r.FairUnderOdds = FairAmericanOdds(ratio(r.UnderCount, r.OverCount+r.UnderCount))
	return r
}

// spreadResult grades the home side: it covers when margin + line > 0.
func spreadResult(margins []float64, line, meanMargin float64) *models.SpreadResult {
	r := &models.SpreadResult{Line: line, ModelMargin: meanMargin, Edge: meanMargin + line}
	for _, m := range margins {
		switch compareToLine(m+line, 0) {
		case 1:
			r.HomeCoverCount++
		case -1:
			r.AwayCoverCount++
		default:
			r.PushCount++
		}
	}

	n := len(margins)
	r.HomeCoverPct = pct(r.HomeCoverCount, n)
	r.AwayCoverPct = pct(r.AwayCoverCount, n)
	r.PushPct = pct(r.PushCount, n)
	r.FairHomeCoverOdds = FairAmericanOdds(ratio(r.HomeCoverCount, r.HomeCoverCount+r.AwayCoverCount))
	r.FairAwayCoverOdds = FairAmericanOdds(ratio(r.AwayCoverCount, r.HomeCoverCount+r.AwayCoverCount))
	return r
}

func pct(count, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(count) / float64(n) * 100
}

// ratio is count/of with pushes excluded by the caller; 0 when nothing was decided.
func ratio(count, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(count) / float64(of)
}
