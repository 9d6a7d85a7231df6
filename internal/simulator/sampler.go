package simulator

import (
	"math"
	"math/rand"

	"github.com/stitts-dev/gridiron-sim/internal/calibration"
	"github.com/stitts-dev/gridiron-sim/internal/models"
)

// GameSampler draws one simulated final score. Implementations are read-only
// after construction and safe to share between workers; every random draw
// comes from the rng passed in.
type GameSampler interface {
	Sample(rng *rand.Rand) models.SimulationSample
}

// TeamPlan is everything a sampler needs to know about one team.
type TeamPlan struct {
	Drive          models.DriveProbabilities
	ExpectedDrives float64
	ExpectedPoints float64
}

// DriveSampler plays every drive against the discrete outcome model.
type DriveSampler struct {
	home   TeamPlan
	away   TeamPlan
	rho    float64
	budget DriveBudget
}

func NewDriveSampler(home, away TeamPlan, rho float64, budget DriveBudget) *DriveSampler {
	return &DriveSampler{home: home, away: away, rho: rho, budget: budget}
}

func (s *DriveSampler) Sample(rng *rand.Rand) models.SimulationSample {
	homeDrives, awayDrives := s.budget.Allocate(s.home.ExpectedDrives, s.away.ExpectedDrives, rng.Float64())

	var out models.SimulationSample

	// Drives paired by index share a correlated draw.
	paired := min(homeDrives, awayDrives)
	for i := 0; i < paired; i++ {
		z1, z2 := CorrelatedNormals(rng, s.rho)
		out.Home += DrivePoints(s.home.Drive, NormalCDF(z1))
		out.Away += DrivePoints(s.away.Drive, NormalCDF(z2))
	}
	for i := paired; i < homeDrives; i++ {
		out.Home += DrivePoints(s.home.Drive, rng.Float64())
	}
	for i := paired; i < awayDrives; i++ {
		out.Away += DrivePoints(s.away.Drive, rng.Float64())
	}

	return out
}

// DrivePoints resolves a uniform draw against the cumulative outcome
// thresholds: three-out, touchdown, field goal, then empty.
func DrivePoints(p models.DriveProbabilities, u float64) int {
	switch {
	case u < p.ThreeOut:
		return 0
	case u < p.ThreeOut+p.Touchdown:
		return 7
	case u < p.ThreeOut+p.Touchdown+p.FieldGoal:
		return 3
	default:
		return 0
	}
}

// NormalSampler draws correlated normal noise around each team's expected
// total, with sigma growing mildly with the expectation.
type NormalSampler struct {
	homeMean  float64
	awayMean  float64
	homeSigma float64
	awaySigma float64
	rho       float64
}

func NewNormalSampler(home, away TeamPlan, rho float64, noise calibration.NormalNoise) *NormalSampler {
	return &NormalSampler{
		homeMean:  home.ExpectedPoints,
		awayMean:  away.ExpectedPoints,
		homeSigma: Sigma(home.ExpectedPoints, noise),
		awaySigma: Sigma(away.ExpectedPoints, noise),
		rho:       rho,
	}
}

func (s *NormalSampler) Sample(rng *rand.Rand) models.SimulationSample {
	z1, z2 := CorrelatedNormals(rng, s.rho)
	return models.SimulationSample{
		Home: int(math.Round(math.Max(0, s.homeMean+s.homeSigma*z1))),
		Away: int(math.Round(math.Max(0, s.awayMean+s.awaySigma*z2))),
	}
}

// Sigma is the score standard deviation for a team expected to score mean.
func Sigma(mean float64, noise calibration.NormalNoise) float64 {
	return clamp(noise.SigmaBase+noise.SigmaSlope*mean, noise.SigmaMin, noise.SigmaMax)
}
