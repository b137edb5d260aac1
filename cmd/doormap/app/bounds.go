package app

import "math"

const (
	binWidth = 0.01 // m/s

	defaultMaxVelocity = 2.0 // m/s
	minimumMaxVelocity = 0.5 // m/s

	// For 20 samples the 95th percentile is the 19th sample
	minimumSampleCount = 20
)

// VelocityBounds is the symmetric colour scale range. Zero velocity sits in the
// middle of the scale so inflow and outflow read as opposite colours.
type VelocityBounds struct {
	Min  float64 // m/s, negative (outflow)
	Max  float64 // m/s, positive (inflow)
	Mean float64 // m/s, mean signed velocity
}

func symmetricBounds(limit, mean float64) VelocityBounds {
	return VelocityBounds{Min: -limit, Max: limit, Mean: mean}
}

func defaultVelocityBounds() VelocityBounds {
	return symmetricBounds(defaultMaxVelocity, 0)
}

// VelocityHistogram maintains a histogram of absolute velocities in 0.01 m/s bins
type VelocityHistogram struct {
	bins       map[int]uint64 // Map of bin index to count
	totalCount uint64
	maxBin     int
	sum        float64
}

// NewVelocityHistogram creates a new histogram
func NewVelocityHistogram() *VelocityHistogram {
	return &VelocityHistogram{
		bins:   make(map[int]uint64),
		maxBin: math.MinInt32,
	}
}

func getBinIndex(velocity float64) int {
	return int(math.Floor(math.Abs(velocity) / binWidth))
}

// Update adds a velocity reading to the histogram
func (h *VelocityHistogram) Update(velocity *float64) {
	if velocity == nil || math.IsNaN(*velocity) || math.IsInf(*velocity, 0) {
		return
	}

	bin := getBinIndex(*velocity)
	h.bins[bin]++
	h.totalCount++
	h.sum += *velocity

	h.maxBin = max(h.maxBin, bin)
}

// Count returns the number of readings.
func (h *VelocityHistogram) Count() uint64 {
	return h.totalCount
}

// GetPercentileBounds returns symmetric bounds at the 95th percentile of the absolute
// velocity plus a 10% margin, never narrower than ±0.5 m/s.
func (h *VelocityHistogram) GetPercentileBounds() VelocityBounds {
	if h.totalCount < minimumSampleCount {
		return defaultVelocityBounds()
	}

	target95th := (h.totalCount*95 + 99) / 100

	var count uint64
	max95th := h.maxBin
	for bin := 0; bin <= h.maxBin; bin++ {
		count += h.bins[bin]
		if count >= target95th {
			max95th = bin
			break
		}
	}

	limit := float64(max95th+1) * binWidth * 1.1 // 10% margin
	return symmetricBounds(max(limit, minimumMaxVelocity), h.sum/float64(h.totalCount))
}
