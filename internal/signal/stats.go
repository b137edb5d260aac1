package signal

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NanMean returns the mean of the non-NaN values of y selected by mask (nil selects
// every value). It returns NaN when nothing is selected.
func NanMean(y []float64, mask []bool) float64 {
	valid := make([]float64, 0, len(y))
	for i, v := range y {
		if mask != nil && !mask[i] {
			continue
		}
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return math.NaN()
	}
	return stat.Mean(valid, nil)
}

// RowMean averages several equally long series element-wise, skipping NaN entries.
func RowMean(series ...[]float64) []float64 {
	if len(series) == 0 {
		return nil
	}

	out := make([]float64, len(series[0]))
	row := make([]float64, len(series))
	for i := range out {
		for j, s := range series {
			row[j] = s[i]
		}
		out[i] = NanMean(row, nil)
	}
	return out
}

// TrailingMean is a moving average over the current and the window-1 previous samples.
// The first window-1 outputs and any window containing NaN are NaN.
func TrailingMean(y []float64, window int) []float64 {
	out := make([]float64, len(y))
	for i := range y {
		if window <= 0 || i < window-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = floats.Sum(y[i-window+1:i+1]) / float64(window)
	}
	return out
}

// Sign returns -1, 0 or +1 following the sign of x, and NaN for NaN.
func Sign(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return math.NaN()
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
