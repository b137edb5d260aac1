package doorframe

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/doorflow/internal/experiment"
	"github.com/roman-kulish/doorflow/internal/table"
)

var allProbes = []string{
	"P1.20", "P2.40", "P3.40", "P4.40", "P5.60", "P6.80",
	"P7.100", "P8.120", "P9.140", "P10.160", "P11.160", "P12.160", "P13.180",
}

// syntheticDoor builds a 1 Hz door table starting at -pre seconds. Before the test
// every probe reads 1 and every thermocouple 20 °C. During the test the probes up to
// 80 cm read 3 (inflow), those above read 0.5 (outflow) and the thermocouples 100 °C.
func syntheticDoor(t *testing.T, pre, rows int, withTDD40 bool) *table.Table {
	t.Helper()

	ts := make([]float64, rows)
	for i := range ts {
		ts[i] = float64(i - pre)
	}
	tbl, err := table.New(ts)
	require.NoError(t, err)

	for _, probe := range allProbes {
		h, err := table.Height(probe)
		require.NoError(t, err)

		during := 3.0
		if h > 80 {
			during = 0.5
		}
		require.NoError(t, tbl.Set(probe, stepSeries(ts, 1, during)))
	}

	for h := 40; h <= 180; h += 20 {
		if h == 40 && !withTDD40 {
			continue
		}
		require.NoError(t, tbl.Set(fmt.Sprintf("TDD.%d", h), stepSeries(ts, 20, 100)))
	}
	return tbl
}

func stepSeries(ts []float64, before, after float64) []float64 {
	out := make([]float64, len(ts))
	for i, v := range ts {
		out[i] = before
		if v >= 0 {
			out[i] = after
		}
	}
	return out
}

func processor(t *testing.T, name string, policy Policy) *Processor {
	t.Helper()

	config, err := experiment.Default()
	require.NoError(t, err)
	e, err := config.Lookup(name)
	require.NoError(t, err)

	p, err := NewProcessor(config, e, policy)
	require.NoError(t, err)
	return p
}

func rowAt(t *testing.T, tbl *table.Table, seconds float64) int {
	t.Helper()

	for i, ts := range tbl.Time() {
		if ts == seconds {
			return i
		}
	}
	require.FailNow(t, "no row", "t=%v", seconds)
	return -1
}

func column(t *testing.T, tbl *table.Table, name string) []float64 {
	t.Helper()

	values, err := tbl.Column(name)
	require.NoError(t, err)
	return values
}

func TestProcessor_Process(t *testing.T) {
	raw := syntheticDoor(t, 60, 200, true)

	res, err := processor(t, "Gamma", PolicyNaN).Process(raw)
	require.NoError(t, err)

	assert.Equal(t, 200, res.RawRows)
	assert.Equal(t, 200, res.Table.Len())
	assert.InDelta(t, 20, res.AmbientTemperature, 1e-12)
	assert.Len(t, res.Probes, len(allProbes))

	// raw input is left untouched
	assert.False(t, raw.Has("PP_20"))

	tbl := res.Table
	row := rowAt(t, tbl, 100)

	assert.InDelta(t, 2*2.49, column(t, tbl, "PP_20")[row], 1e-9)
	assert.InDelta(t, -0.5*10, column(t, tbl, "PP_100")[row], 1e-9)
	assert.InDelta(t, 20, column(t, tbl, "TC_20")[row], 1e-12)
	assert.InDelta(t, 100, column(t, tbl, "TC_100")[row], 1e-12)

	v20 := column(t, tbl, "V_20")[row]
	assert.InDelta(t, 0.94*math.Sqrt(2*4.98/Density(20)), v20, 1e-9)
	assert.Less(t, column(t, tbl, "V_100")[row], 0.0)

	plane := column(t, tbl, NeutralPlaneColumn)[row]
	assert.Greater(t, plane, 0.8)
	assert.Less(t, plane, 1.0)

	smooth := column(t, tbl, NeutralPlaneSmoothColumn)
	assert.True(t, math.IsNaN(smooth[0]))
	assert.False(t, math.IsNaN(smooth[row]))

	in := column(t, tbl, MassInColumn)[row]
	out := column(t, tbl, MassOutColumn)[row]
	assert.Greater(t, in, 0.0)
	assert.Greater(t, out, 0.0)
	assert.InDelta(t, (in+out)/2, column(t, tbl, MassAverageColumn)[row], 1e-12)
	assert.InDelta(t, 0.233*in*13100, column(t, tbl, HRRAllMassInColumn)[row], 1e-9)
}

func TestProcessor_DropsIncompleteRows(t *testing.T) {
	raw := syntheticDoor(t, 60, 200, true)

	p5, err := raw.Column("P5.60")
	require.NoError(t, err)
	p5[150] = math.NaN()

	res, err := processor(t, "Gamma", PolicyNaN).Process(raw)
	require.NoError(t, err)
	assert.Equal(t, 199, res.Table.Len())
}

func TestProcessor_NoBaseline(t *testing.T) {
	raw := syntheticDoor(t, 0, 100, true)

	res, err := processor(t, "Gamma", PolicyNaN).Process(raw)
	require.NoError(t, err)

	assert.Equal(t, 100, res.Table.Len())
	assert.True(t, math.IsNaN(res.AmbientTemperature))
	assert.True(t, math.IsNaN(column(t, res.Table, "V_100")[50]))

	// an undefined baseline leaves every total undefined
	for _, name := range []string{MassInColumn, MassOutColumn, MassAverageColumn, HRRAllMassInColumn} {
		assert.True(t, math.IsNaN(column(t, res.Table, name)[50]), name)
	}

	profiles, err := res.Profiles()
	require.NoError(t, err)
	assert.Nil(t, profiles[50].MassIn)
	assert.Nil(t, profiles[50].HRRAllMassIn)
}

func TestProcessor_RawCorrection(t *testing.T) {
	raw := syntheticDoor(t, 60, 200, false)

	_, err := processor(t, "Gamma", PolicyNaN).Process(raw)
	assert.ErrorIs(t, err, table.ErrColumnNotFound)

	res, err := processor(t, "Beta2", PolicyNaN).Process(raw)
	require.NoError(t, err)

	tdd40 := column(t, res.Table, "TDD.40")
	assert.InDelta(t, 20, tdd40[0], 1e-9)
	assert.InDelta(t, 100, tdd40[rowAt(t, res.Table, 100)], 1e-9)
}

func TestProcessor_UnknownProbe(t *testing.T) {
	raw := syntheticDoor(t, 60, 100, true)
	require.NoError(t, raw.Set("P14.200", make([]float64, raw.Len())))

	_, err := processor(t, "Gamma", PolicyNaN).Process(raw)
	assert.ErrorIs(t, err, experiment.ErrUnknownProbe)
}

func TestResult_Profiles(t *testing.T) {
	res, err := processor(t, "Gamma", PolicyNaN).Process(syntheticDoor(t, 60, 200, true))
	require.NoError(t, err)

	profiles, err := res.Profiles()
	require.NoError(t, err)
	require.Len(t, profiles, 200)

	p := profiles[rowAt(t, res.Table, 100)]
	assert.Equal(t, 100.0, p.TestingTime)
	require.Len(t, p.Heights, 9)
	assert.Equal(t, 20, p.Heights[0].Height)
	assert.Equal(t, 180, p.Heights[8].Height)
	require.NotNil(t, p.Heights[0].Velocity)
	assert.Greater(t, *p.Heights[0].Velocity, 0.0)
	require.NotNil(t, p.NeutralPlane)

	// the smoothed neutral plane is undefined until the window fills
	assert.Nil(t, profiles[0].NeutralPlaneSmooth)
}
