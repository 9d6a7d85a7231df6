package calibration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/gridiron-sim/internal/models"
	"github.com/stitts-dev/gridiron-sim/pkg/utils"
)

func TestLoadDefaults(t *testing.T) {
	r, err := LoadDefaults()
	require.NoError(t, err)

	assert.Equal(t, []string{"continuous", "w11", "w13"}, r.Names())
	assert.Equal(t, DefaultPresetName, r.DefaultName())

	def := r.Default()
	assert.Equal(t, "w13", def.Name)
	assert.Equal(t, "2024.w13", def.Version)
	assert.Equal(t, models.StrategyDrive, def.Strategy)
	assert.InDelta(t, 0.28, def.Coefficients.FGPhi, 1e-12)
	assert.InDelta(t, 0.22, def.Baseline.ThreeOutRate.Mean, 1e-12)
	assert.Equal(t, 9, def.Drives.PerTeamMin)
	assert.Equal(t, 30, def.Drives.TotalMax)
}

func TestExtendsOverridesOnlyGivenKeys(t *testing.T) {
	r := MustLoadDefaults()

	w11, err := r.Get("w11")
	require.NoError(t, err)
	w13 := r.Default()

	assert.Equal(t, "2024.w11", w11.Version)
	assert.InDelta(t, 2.05, w11.Baseline.PointsPerDrive.Mean, 1e-12)
	// not overridden, inherited from w13
	assert.Equal(t, w13.Baseline.SecondsPerSnap, w11.Baseline.SecondsPerSnap)
	assert.Equal(t, w13.Correlation, w11.Correlation)
	assert.Equal(t, w13.Coefficients.LogitClamp, w11.Coefficients.LogitClamp)

	cont, err := r.Get("continuous")
	require.NoError(t, err)
	assert.Equal(t, models.StrategyNormal, cont.Strategy)
	assert.Equal(t, w13.Coefficients, cont.Coefficients)
}

func TestGetUnknownPreset(t *testing.T) {
	r := MustLoadDefaults()

	_, err := r.Get("w99")
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrConfiguration)

	p, err := r.Get("")
	require.NoError(t, err)
	assert.Equal(t, "w13", p.Name)
}

func TestSetDefault(t *testing.T) {
	r := MustLoadDefaults()

	require.NoError(t, r.SetDefault("continuous"))
	assert.Equal(t, "continuous", r.DefaultName())
	assert.Equal(t, "continuous", r.Default().Name)

	assert.ErrorIs(t, r.SetDefault("w99"), utils.ErrConfiguration)
	assert.Equal(t, "continuous", r.DefaultName())

	require.NoError(t, r.SetDefault(""))
	assert.Equal(t, "continuous", r.DefaultName())
}

func TestMergeFile(t *testing.T) {
	r := MustLoadDefaults()

	path := filepath.Join(t.TempDir(), "calibration.yaml")
	content := `
default: w14
presets:
  w14:
    extends: w13
    version: "2024.w14"
    coefficients:
      fg_phi: 0.3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	require.NoError(t, r.MergeFile(path))

	assert.Equal(t, "w14", r.DefaultName())
	p := r.Default()
	assert.Equal(t, "2024.w14", p.Version)
	assert.InDelta(t, 0.3, p.Coefficients.FGPhi, 1e-12)
	assert.InDelta(t, -1.2657, p.Coefficients.A0, 1e-12)
}

func TestParseRejectsInvalidPresets(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "cycle",
			yaml: "default: a\npresets:\n  a: {extends: b}\n  b: {extends: a}\n",
		},
		{
			name: "missing parent",
			yaml: "default: a\npresets:\n  a: {extends: nope}\n",
		},
		{
			name: "missing default",
			yaml: "default: zzz\npresets: {}\n",
		},
		{
			name: "malformed",
			yaml: "presets: [1, 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, utils.ErrConfiguration)
		})
	}
}

func TestPresetValidate(t *testing.T) {
	base := MustLoadDefaults().Default()
	require.NoError(t, base.Validate())

	p := base
	p.Coefficients.FGPhi = 1.2
	assert.ErrorIs(t, p.Validate(), utils.ErrConfiguration)

	p = base
	p.Drives.TotalMin = 31
	assert.ErrorIs(t, p.Validate(), utils.ErrConfiguration)

	p = base
	p.Drives.PerTeamMin, p.Drives.PerTeamMax = 16, 20
	assert.ErrorIs(t, p.Validate(), utils.ErrConfiguration, "2*16 > total max 30")

	p = base
	p.Correlation.Min, p.Correlation.Max = 0.5, 0.1
	assert.ErrorIs(t, p.Validate(), utils.ErrConfiguration)

	p = base
	p.Strategy = "poisson"
	assert.ErrorIs(t, p.Validate(), utils.ErrConfiguration)
}

func TestStatBaselineZ(t *testing.T) {
	sb := StatBaseline{Mean: 0.44, SD: 0.03}
	assert.InDelta(t, 2.0, sb.Z(0.50), 1e-9)
	assert.InDelta(t, 0.0, sb.Z(0.44), 1e-12)

	zeroSD := StatBaseline{Mean: 1, SD: 0}
	assert.InDelta(t, 0.0, zeroSD.Z(1), 1e-12)
	assert.Greater(t, zeroSD.Z(1.001), 100.0)
}
