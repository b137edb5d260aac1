package doorframe

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/doorflow/internal/experiment"
	"github.com/roman-kulish/doorflow/internal/signal"
	"github.com/roman-kulish/doorflow/internal/table"
)

func TestZero_IsLinear(t *testing.T) {
	config, err := experiment.Default()
	require.NoError(t, err)

	tbl, err := table.New([]float64{-3, -2, -1, 0, 1, 2})
	require.NoError(t, err)
	require.NoError(t, tbl.Set("P1.20", []float64{1, 2, 3, 10, 11, math.NaN()}))
	require.NoError(t, tbl.Set("P7.100", []float64{-1, -1, -1, 4, 5, 6}))
	require.NoError(t, tbl.Set("TDD.60", []float64{20, 20, 20, 30, 30, 30}))

	probes, err := Zero(tbl, &config.Constants)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1.20", "P7.100"}, probes)

	omega, _ := tbl.Column("P1.20_DeltaP")
	assert.InDeltaSlice(t, []float64{-2.49, 0, 2.49, 8 * 2.49, 9 * 2.49}, omega[:5], 1e-12)
	assert.True(t, math.IsNaN(omega[5]))

	gems, _ := tbl.Column("P7.100_DeltaP")
	assert.InDeltaSlice(t, []float64{0, 0, 0, 50, 60, 70}, gems, 1e-12)

	zeroed, _ := tbl.Column("P7.100_zeroed")
	assert.InDeltaSlice(t, []float64{0, 0, 0, 5, 6, 7}, zeroed, 1e-12)

	for _, probe := range probes {
		b, err := Baseline(tbl, probe+deltaPSuffix)
		require.NoError(t, err)
		assert.InDelta(t, 0, b, 1e-12)
	}
}

func TestZero_Errors(t *testing.T) {
	config, err := experiment.Default()
	require.NoError(t, err)

	tbl, err := table.New([]float64{-1, 0})
	require.NoError(t, err)
	require.NoError(t, tbl.Set("TDD.60", []float64{20, 20}))

	_, err = Zero(tbl, &config.Constants)
	assert.ErrorIs(t, err, table.ErrColumnNotFound)

	require.NoError(t, tbl.Set("P20.40", []float64{1, 1}))
	_, err = Zero(tbl, &config.Constants)
	assert.ErrorIs(t, err, experiment.ErrUnknownProbe)
}

func TestSmooth(t *testing.T) {
	tbl, err := table.New([]float64{0, 1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	require.NoError(t, tbl.Set("P1.20_DeltaP", []float64{0, 1, 4, 9, 16, 25, 36}))

	f, err := signal.NewSavitzkyGolay(5, 2)
	require.NoError(t, err)

	require.NoError(t, Smooth(tbl, f, []string{"P1.20"}))
	smoothed, err := tbl.Column("P1.20_DeltaP_smooth")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1, 4, 9, 16, 25, 36}, smoothed, 1e-9)

	assert.ErrorIs(t, Smooth(tbl, f, []string{"P2.40"}), table.ErrColumnNotFound)
}

func TestAmbientTemperature(t *testing.T) {
	tbl, err := table.New([]float64{-2, -1, 0})
	require.NoError(t, err)
	require.NoError(t, tbl.Set("TDD.40", []float64{20, 22, 300}))
	require.NoError(t, tbl.Set("TDD.60", []float64{24, math.NaN(), 400}))

	ambient, err := AmbientTemperature(tbl)
	require.NoError(t, err)
	assert.InDelta(t, 22.5, ambient, 1e-12)

	empty, err := table.New([]float64{0})
	require.NoError(t, err)
	_, err = AmbientTemperature(empty)
	assert.ErrorIs(t, err, table.ErrColumnNotFound)
}
