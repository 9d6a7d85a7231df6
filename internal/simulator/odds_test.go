package simulator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stitts-dev/gridiron-sim/internal/models"
)

func TestFairAmericanOdds(t *testing.T) {
	tests := []struct {
		p    float64
		want float64
	}{
		{0.5, -100},
		{0.6, -150},
		{0.75, -300},
		{0.4, 150},
		{0.2, 400},
		{0.4999, 100},
		{0, math.Inf(1)},
		{-0.1, math.Inf(1)},
		{1, math.Inf(-1)},
		{1.2, math.Inf(-1)},
	}

	for _, tt := range tests {
		got := FairAmericanOdds(tt.p)
		assert.Equal(t, tt.want, float64(got), "p=%v", tt.p)
	}

	assert.True(t, FairAmericanOdds(math.NaN()).IsDegenerate())
}

func TestFairOddsRoundTrip(t *testing.T) {
	for p := 0.01; p < 0.995; p += 0.01 {
		o := FairAmericanOdds(p)
		assert.False(t, o.IsDegenerate())
		assert.InDelta(t, p, ImpliedProbability(o), 0.002, "p=%v odds=%v", p, o)
	}

	assert.Equal(t, 0.0, ImpliedProbability(models.AmericanOdds(math.Inf(1))))
	assert.Equal(t, 1.0, ImpliedProbability(models.AmericanOdds(math.Inf(-1))))
}

func TestCompareToLine(t *testing.T) {
	assert.Equal(t, 0, compareToLine(44, 44))
	assert.Equal(t, 0, compareToLine(0.1+0.2, 0.3))
	assert.Equal(t, 1, compareToLine(45, 44.5))
	assert.Equal(t, -1, compareToLine(44, 44.5))
}
