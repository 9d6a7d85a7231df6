package simulator

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// CorrelatedNormals draws a pair of standard normals with correlation rho
// using the Box-Muller transform on two independent uniforms.
func CorrelatedNormals(rng *rand.Rand, rho float64) (float64, float64) {
	rho = clamp(rho, -1, 1)

	u1 := rng.Float64()
	for u1 == 0 {
		u1 = rng.Float64()
	}
	u2 := rng.Float64()

	r := math.Sqrt(-2 * math.Log(u1))
	z1 := r * math.Cos(2*math.Pi*u2)
	z2 := r * math.Sin(2*math.Pi*u2)

	return z1, rho*z1 + math.Sqrt(1-rho*rho)*z2
}

// NormalCDF maps a standard normal draw onto a uniform in [0,1].
func NormalCDF(z float64) float64 {
	return distuv.UnitNormal.CDF(z)
}
