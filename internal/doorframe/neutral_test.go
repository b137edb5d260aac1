package doorframe

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/doorflow/internal/table"
)

var profileHeights = []float64{0.2, 0.4, 0.6, 0.8, 1.0, 1.2, 1.4, 1.6, 1.8}

func TestLocate(t *testing.T) {
	h, ok := Locate([]float64{1, 1, 1, -1, -1, -1, -1, -1, -1}, profileHeights)
	require.True(t, ok)
	assert.Greater(t, h, 0.6)
	assert.Less(t, h, 0.8)
	assert.InDelta(t, 0.7, h, 1e-12)

	h, ok = Locate([]float64{3, 2, 1, 0, -3, -3, -3, -3, -3}, profileHeights)
	require.True(t, ok)
	assert.InDelta(t, 0.8, h, 1e-12)

	// inflow at the bottom probe only is fine
	h, ok = Locate([]float64{-1, 1, -1, -1, -1, -1, -1, -1, -1}, profileHeights)
	require.True(t, ok)
	assert.InDelta(t, 0.5, h, 1e-12)
}

func TestLocate_Undefined(t *testing.T) {
	tests := []struct {
		name     string
		velocity []float64
	}{
		{"no outflow", []float64{1, 1, 1, 1, 1, 1, 1, 1, 1}},
		{"outflow only at the bottom", []float64{-1, 1, 1, 1, 1, 1, 1, 1, 1}},
		{"bottom two out", []float64{-2, -1, 1, 1, 1, -1, -1, -1, -1}},
		{"missing sample before the crossing", []float64{1, math.NaN(), -1, -1, -1, -1, -1, -1, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := Locate(tt.velocity, profileHeights)
			assert.False(t, ok)
			assert.True(t, math.IsNaN(h))
		})
	}
}

func TestPolicy_Resolve(t *testing.T) {
	noOutflow := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1}
	bottomOut := []float64{-2, -1, 1, 1, 1, 1, 1, 1, 1}
	defined := []float64{1, 1, 1, -1, -1, -1, -1, -1, -1}

	assert.True(t, math.IsNaN(PolicyNaN.Resolve(noOutflow, profileHeights)))
	assert.True(t, math.IsNaN(PolicyNaN.Resolve(bottomOut, profileHeights)))

	assert.Equal(t, 1.8, PolicyClamp.Resolve(noOutflow, profileHeights))
	assert.Equal(t, 0.2, PolicyClamp.Resolve(bottomOut, profileHeights))
	// outflow at the floor only still pins to the bottom edge
	floorOnly := []float64{-1, 1, 1, 1, 1, 1, 1, 1, 1}
	assert.Equal(t, 0.2, PolicyClamp.Resolve(floorOnly, profileHeights))
	assert.True(t, math.IsNaN(PolicyExtrapolate.Resolve(floorOnly, profileHeights)))

	assert.True(t, math.IsNaN(PolicyExtrapolate.Resolve(noOutflow, profileHeights)))
	// line through (-2, 0.2) and (-1, 0.4) crosses zero at 0.6
	assert.InDelta(t, 0.6, PolicyExtrapolate.Resolve(bottomOut, profileHeights), 1e-12)

	for _, p := range []Policy{PolicyNaN, PolicyClamp, PolicyExtrapolate} {
		assert.InDelta(t, 0.7, p.Resolve(defined, profileHeights), 1e-12)
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyNaN, p)

	p, err = ParsePolicy("clamp")
	require.NoError(t, err)
	assert.Equal(t, PolicyClamp, p)

	_, err = ParsePolicy("nearest")
	assert.Error(t, err)
}

func TestNeutralPlane_TrailingMean(t *testing.T) {
	const rows = 40
	ts := make([]float64, rows)
	for i := range ts {
		ts[i] = float64(i)
	}
	tbl, err := table.New(ts)
	require.NoError(t, err)

	heights := []int{20, 40, 60}
	require.NoError(t, tbl.Set("V_20", constantSeries(rows, 1)))
	require.NoError(t, tbl.Set("V_40", constantSeries(rows, 1)))
	require.NoError(t, tbl.Set("V_60", constantSeries(rows, -1)))

	undefined, err := NeutralPlane(tbl, heights, PolicyNaN, 30)
	require.NoError(t, err)
	assert.Zero(t, undefined)

	plane, _ := tbl.Column(NeutralPlaneColumn)
	smooth, _ := tbl.Column(NeutralPlaneSmoothColumn)
	for i := range plane {
		assert.InDelta(t, 0.5, plane[i], 1e-12)
		if i < 29 {
			assert.True(t, math.IsNaN(smooth[i]), "row %d", i)
		} else {
			assert.InDelta(t, 0.5, smooth[i], 1e-12, "row %d", i)
		}
	}
}
