package signal

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// ErrTooFewPoints is returned when fewer than two knots are given to an interpolator.
var ErrTooFewPoints = errors.New("at least two points are required")

// Interpolate evaluates the piecewise-linear function through (xp, fp) at x. Outside
// the knot range the end values are held. xp must be strictly increasing.
func Interpolate(x float64, xp, fp []float64) (float64, error) {
	if err := checkKnots(xp, fp); err != nil {
		return math.NaN(), err
	}
	var pl interp.PiecewiseLinear
	if err := pl.Fit(xp, fp); err != nil {
		return math.NaN(), fmt.Errorf("fitting piecewise linear: %w", err)
	}
	if math.IsNaN(x) {
		return math.NaN(), nil
	}
	return pl.Predict(x), nil
}

// Extrapolate evaluates the piecewise-linear function through (xp, fp) at x. Outside
// the knot range the first/last segment is extended linearly. xp must be strictly
// increasing.
func Extrapolate(x float64, xp, fp []float64) (float64, error) {
	if err := checkKnots(xp, fp); err != nil {
		return math.NaN(), err
	}
	return extrapolate(x, xp, fp), nil
}

func checkKnots(xp, fp []float64) error {
	if len(xp) != len(fp) {
		return fmt.Errorf("%d knots for %d values", len(xp), len(fp))
	}
	if len(xp) < 2 {
		return ErrTooFewPoints
	}
	for i := 1; i < len(xp); i++ {
		if !(xp[i] > xp[i-1]) {
			return fmt.Errorf("knots are not strictly increasing at %d", i)
		}
	}
	return nil
}

func extrapolate(x float64, xp, fp []float64) float64 {
	hi := sort.SearchFloat64s(xp, x)
	hi = min(max(hi, 1), len(xp)-1)
	lo := hi - 1

	slope := (fp[hi] - fp[lo]) / (xp[hi] - xp[lo])
	return slope*(x-xp[lo]) + fp[lo]
}

// Resample evaluates the series (xp, fp) at every x. With extend set the end segments
// are extended linearly, otherwise the end values are held.
func Resample(x, xp, fp []float64, extend bool) ([]float64, error) {
	if err := checkKnots(xp, fp); err != nil {
		return nil, err
	}

	out := make([]float64, len(x))
	if extend {
		for i, v := range x {
			out[i] = extrapolate(v, xp, fp)
		}
		return out, nil
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xp, fp); err != nil {
		return nil, fmt.Errorf("fitting piecewise linear: %w", err)
	}
	for i, v := range x {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		out[i] = pl.Predict(v)
	}
	return out, nil
}
