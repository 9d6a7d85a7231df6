package simulator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stitts-dev/gridiron-sim/internal/calibration"
)

func TestDriveBudget_Invariants(t *testing.T) {
	bounds := testPreset(t).Drives
	budget := NewDriveBudget(bounds)

	for h := 0.0; h <= 20; h += 0.5 {
		for a := 0.0; a <= 20; a += 0.5 {
			for _, u := range []float64{0, 0.3, 0.5, 0.99} {
				home, away := budget.Allocate(h, a, u)
				total := budget.Total(h, a)

				assert.Equal(t, total, home+away, "h=%v a=%v u=%v", h, a, u)
				assert.GreaterOrEqual(t, total, bounds.TotalMin)
				assert.LessOrEqual(t, total, bounds.TotalMax)
				assert.GreaterOrEqual(t, home, bounds.PerTeamMin)
				assert.LessOrEqual(t, home, bounds.PerTeamMax)
				assert.GreaterOrEqual(t, away, bounds.PerTeamMin)
				assert.LessOrEqual(t, away, bounds.PerTeamMax)
			}
		}
	}
}

func TestDriveBudget_TiltAndRounding(t *testing.T) {
	budget := NewDriveBudget(testPreset(t).Drives)

	tests := []struct {
		name     string
		h, a, u  float64
		wantHome int
		wantAway int
	}{
		{"even", 11, 11, 0.5, 11, 11},
		{"tilt capped, rounds up", 13, 9, 0, 12, 10},
		{"tilt capped, rounds down", 13, 9, 0.9, 11, 11},
		{"odd total, low draw", 10.5, 10.5, 0.2, 11, 10},
		{"odd total, high draw", 10.5, 10.5, 0.7, 10, 11},
		{"total clamped up", 4, 4, 0.5, 9, 9},
		{"total clamped down", 20, 20, 0.5, 15, 15},
		{"non-finite input", math.NaN(), math.Inf(1), 0.5, 9, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home, away := budget.Allocate(tt.h, tt.a, tt.u)
			assert.Equal(t, tt.wantHome, home)
			assert.Equal(t, tt.wantAway, away)
		})
	}
}

func TestDriveBudget_PerTeamClampPreservesTotal(t *testing.T) {
	budget := NewDriveBudget(calibration.DriveBounds{
		TotalMin: 18, TotalMax: 30, PerTeamMin: 9, PerTeamMax: 15, MaxTilt: 10,
	})

	home, away := budget.Allocate(25, 5, 0.5)
	assert.Equal(t, 15, home)
	assert.Equal(t, 15, away)

	home, away = budget.Allocate(2, 17, 0.5)
	assert.Equal(t, 19, home+away)
	assert.Equal(t, 9, home)
	assert.Equal(t, 10, away)
}

func TestDriveBudget_InfeasibleTotalKeepsSum(t *testing.T) {
	budget := NewDriveBudget(calibration.DriveBounds{
		TotalMin: 10, TotalMax: 40, PerTeamMin: 9, PerTeamMax: 12, MaxTilt: 0.6,
	})

	home, away := budget.Allocate(20, 20, 0.5)
	assert.Equal(t, 40, home+away)
}
