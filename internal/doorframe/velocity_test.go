package doorframe

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/doorflow/internal/experiment"
	"github.com/roman-kulish/doorflow/internal/signal"
	"github.com/roman-kulish/doorflow/internal/table"
)

func TestDensity(t *testing.T) {
	prev := math.Inf(1)
	for temp := -250.0; temp <= 1200; temp += 10 {
		rho := Density(temp)
		assert.Greater(t, rho, 0.0)
		assert.Less(t, rho, prev)
		prev = rho
	}
	assert.InDelta(t, 353.0/293, Density(20), 1e-12)
}

func TestVelocity_SignFollowsPressure(t *testing.T) {
	for _, p := range []float64{-50, -5, -0.01, 0.01, 5, 50} {
		v := Velocity(p, Density(200), 0.94)
		assert.Equal(t, signal.Sign(p), signal.Sign(v), "p=%v", p)
		assert.InDelta(t, 0.94*math.Sqrt(2*math.Abs(p)/Density(200)), math.Abs(v), 1e-12)
	}
	assert.Zero(t, Velocity(0, Density(20), 0.94))
}

func TestVelocities_TemperatureSelection(t *testing.T) {
	tbl, err := table.New([]float64{0, 1})
	require.NoError(t, err)
	require.NoError(t, tbl.Set("PP_60", []float64{3, -3}))
	require.NoError(t, tbl.Set("TDD.60", []float64{150, 150}))

	require.NoError(t, Velocities(tbl, []int{60}, 18, 0.94))

	tc, _ := tbl.Column("TC_60")
	assert.Equal(t, []float64{18, 150}, tc)

	rho, _ := tbl.Column("Rho_60")
	assert.InDeltaSlice(t, []float64{Density(18), Density(150)}, rho, 1e-12)
}

// Two rows at +5 Pa and 20 °C on every height: identical inflow everywhere.
func TestVelocityToMassFlow_UniformInflow(t *testing.T) {
	config, err := experiment.Default()
	require.NoError(t, err)
	constants := &config.Constants
	heights := constants.Door.Heights

	tbl, err := table.New([]float64{0, 1})
	require.NoError(t, err)
	for _, h := range heights {
		require.NoError(t, tbl.Set(table.HeightName(PressureQuantity, h), []float64{5, 5}))
		require.NoError(t, tbl.Set(TemperaturePrefix+strconv.Itoa(h), []float64{20, 20}))
	}

	require.NoError(t, Velocities(tbl, heights, 20, constants.Door.ProbeCoefficient))
	require.NoError(t, MassFlow(tbl, heights, &constants.Door, &constants.Calorimetry))

	want := 0.94 * math.Sqrt(2*5/Density(20))
	for _, h := range heights {
		v, _ := tbl.Column(table.HeightName(VelocityQuantity, h))
		for _, x := range v {
			assert.Greater(t, x, 0.0)
			assert.InDelta(t, want, x, 1e-12)
		}
	}

	in, _ := tbl.Column(MassInColumn)
	out, _ := tbl.Column(MassOutColumn)
	for i := range in {
		assert.Zero(t, out[i])
		assert.InDelta(t, 9*0.68*Density(20)*want*0.16, in[i], 1e-9)
	}
}

func TestMassFlow_SplitIdentity(t *testing.T) {
	config, err := experiment.Default()
	require.NoError(t, err)
	constants := &config.Constants
	heights := []int{20, 40, 60, 80}

	tbl, err := table.New([]float64{0, 1, 2})
	require.NoError(t, err)
	velocities := map[int][]float64{
		20: {2, -1, 0},
		40: {1, -2, 0},
		60: {-1, 3, 0},
		80: {-3, 0.5, 0},
	}
	for _, h := range heights {
		require.NoError(t, tbl.Set(table.HeightName(DensityQuantity, h), []float64{1.2, 0.9, 1.0}))
		require.NoError(t, tbl.Set(table.HeightName(VelocityQuantity, h), velocities[h]))
	}

	require.NoError(t, MassFlow(tbl, heights, &constants.Door, &constants.Calorimetry))

	in, _ := tbl.Column(MassInColumn)
	out, _ := tbl.Column(MassOutColumn)
	for row := range in {
		var sum float64
		for _, h := range heights {
			m, _ := tbl.Column(table.HeightName(MassQuantity, h))
			sum += m[row]
		}
		assert.GreaterOrEqual(t, in[row], 0.0)
		assert.GreaterOrEqual(t, out[row], 0.0)
		assert.InDelta(t, sum, in[row]-out[row], 1e-12)
	}
	assert.Zero(t, in[2])
	assert.Zero(t, out[2])
}
