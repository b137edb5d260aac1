package signal

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// SavitzkyGolay is a local least-squares polynomial smoothing filter. The output has
// the input's length: interior samples use the centred convolution coefficients and the
// first/last half windows are evaluated on the polynomial fitted to the first/last full
// window.
type SavitzkyGolay struct {
	window int
	order  int

	// fit maps a window of samples to polynomial coefficients in powers of the
	// centred offset (x = -half..half); row 0 is the smoothing kernel.
	fit *mat.Dense
}

// NewSavitzkyGolay builds a filter with an odd window length and a polynomial order
// lower than the window.
func NewSavitzkyGolay(window, order int) (*SavitzkyGolay, error) {
	if window <= 0 || window%2 == 0 {
		return nil, fmt.Errorf("savitzky-golay: window must be a positive odd number: %d given", window)
	}
	if order < 0 || order >= window {
		return nil, fmt.Errorf("savitzky-golay: order must be in [0, %d): %d given", window, order)
	}

	half := window / 2
	vandermonde := mat.NewDense(window, order+1, nil)
	for i := 0; i < window; i++ {
		x := float64(i - half)
		p := 1.0
		for j := 0; j <= order; j++ {
			vandermonde.Set(i, j, p)
			p *= x
		}
	}

	identity := mat.NewDiagDense(window, slices.Repeat([]float64{1}, window))

	var fit mat.Dense
	if err := fit.Solve(vandermonde, identity); err != nil {
		return nil, fmt.Errorf("savitzky-golay: solving least squares design: %w", err)
	}

	return &SavitzkyGolay{
		window: window,
		order:  order,
		fit:    &fit,
	}, nil
}

// Window returns the filter window length.
func (f *SavitzkyGolay) Window() int {
	return f.window
}

// Order returns the fitted polynomial order.
func (f *SavitzkyGolay) Order() int {
	return f.order
}

// Smooth filters y. When y is shorter than the window, the window shrinks to the
// largest odd length that fits; if that is not longer than the polynomial order the
// polynomial fits the samples exactly and a copy of y is returned.
func (f *SavitzkyGolay) Smooth(y []float64) []float64 {
	n := len(y)
	if n < f.window {
		w := n
		if w%2 == 0 {
			w--
		}
		if w <= f.order {
			return slices.Clone(y)
		}

		shrunk, err := NewSavitzkyGolay(w, f.order)
		if err != nil {
			return slices.Clone(y)
		}
		return shrunk.Smooth(y)
	}

	half := f.window / 2
	out := make([]float64, n)

	kernel := f.fit.RawRowView(0)
	for i := half; i < n-half; i++ {
		var acc float64
		for j, k := range kernel {
			acc += k * y[i-half+j]
		}
		out[i] = acc
	}

	// edges: evaluate the polynomial fitted to the first/last window
	left := f.coefficients(y[:f.window])
	for i := 0; i < half; i++ {
		out[i] = polyval(left, float64(i-half))
	}

	right := f.coefficients(y[n-f.window:])
	for j := half + 1; j < f.window; j++ {
		out[n-f.window+j] = polyval(right, float64(j-half))
	}

	return out
}

func (f *SavitzkyGolay) coefficients(window []float64) []float64 {
	var c mat.VecDense
	c.MulVec(f.fit, mat.NewVecDense(len(window), slices.Clone(window)))
	return c.RawVector().Data
}

func polyval(c []float64, x float64) float64 {
	var acc float64
	for i := len(c) - 1; i >= 0; i-- {
		acc = acc*x + c[i]
	}
	return acc
}
