package signal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSavitzkyGolay_Validation(t *testing.T) {
	_, err := NewSavitzkyGolay(30, 2)
	assert.Error(t, err)

	_, err = NewSavitzkyGolay(3, 3)
	assert.Error(t, err)

	f, err := NewSavitzkyGolay(31, 2)
	require.NoError(t, err)
	assert.Equal(t, 31, f.Window())
	assert.Equal(t, 2, f.Order())
}

func TestSavitzkyGolay_ReferenceValues(t *testing.T) {
	f, err := NewSavitzkyGolay(5, 2)
	require.NoError(t, err)

	got := f.Smooth([]float64{2, 2, 5, 2, 1, 0, 1, 4, 9})
	want := []float64{1.65714286, 3.17142857, 3.54285714, 2.85714286, 0.65714286, 0.17142857, 1, 4, 9}

	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-6, "sample %d", i)
	}
}

func TestSavitzkyGolay_PreservesQuadratic(t *testing.T) {
	f, err := NewSavitzkyGolay(31, 2)
	require.NoError(t, err)

	y := make([]float64, 120)
	for i := range y {
		x := float64(i) / 10
		y[i] = 0.5*x*x - 3*x + 7
	}

	got := f.Smooth(y)
	require.Len(t, got, len(y))
	for i := range y {
		assert.InDelta(t, y[i], got[i], 1e-8, "sample %d", i)
	}
}

func TestSavitzkyGolay_ShortSeries(t *testing.T) {
	f, err := NewSavitzkyGolay(31, 2)
	require.NoError(t, err)

	assert.Equal(t, []float64{5, 5}, f.Smooth([]float64{5, 5}))

	// shrinks to a window of 9 and still reproduces a line
	y := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	got := f.Smooth(y)
	for i := range y {
		assert.InDelta(t, y[i], got[i], 1e-9)
	}
}

func TestSavitzkyGolay_NaNPropagates(t *testing.T) {
	f, err := NewSavitzkyGolay(5, 2)
	require.NoError(t, err)

	got := f.Smooth([]float64{1, 1, 1, math.NaN(), 1, 1, 1, 1, 1, 1, 1, 1})
	assert.True(t, math.IsNaN(got[3]))
	assert.InDelta(t, 1, got[11], 1e-12)
}
