package doorframe

import (
	"fmt"
	"math"

	"github.com/roman-kulish/doorflow/internal/signal"
	"github.com/roman-kulish/doorflow/internal/table"
)

// Policy decides the neutral plane height for profiles where it is undefined.
type Policy string

const (
	// PolicyNaN reports undefined profiles as NaN.
	PolicyNaN Policy = "nan"

	// PolicyClamp pins undefined profiles to the door edge the flow points to: the
	// bottom height when the bottom probe flows out, the top height when no probe does.
	PolicyClamp Policy = "clamp"

	// PolicyExtrapolate extends the line through the two lowest probes when both flow
	// out; profiles without outflow stay NaN.
	PolicyExtrapolate Policy = "extrapolate"
)

// ParsePolicy validates a policy name. An empty name selects PolicyNaN.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case "":
		return PolicyNaN, nil
	case PolicyNaN, PolicyClamp, PolicyExtrapolate:
		return p, nil
	}
	return "", fmt.Errorf("unknown neutral plane policy %q", s)
}

// Locate finds the neutral plane of a velocity profile ordered bottom to top: the
// height where the velocity crosses zero between the last inflow probe and the first
// outflow probe above the bottom one. It reports false when there is no outflow above
// the bottom probe, when both bottom probes flow out, or when the crossing involves a
// missing value.
func Locate(velocity, heights []float64) (float64, bool) {
	for i := 1; i < len(velocity); i++ {
		if !(velocity[i] < 0) {
			continue
		}

		v0, v1 := velocity[i-1], velocity[i]
		if !(v0 >= 0) {
			return math.NaN(), false
		}
		h := heights[i-1] + (0-v0)*(heights[i]-heights[i-1])/(v1-v0)
		return h, true
	}
	return math.NaN(), false
}

// Resolve returns the neutral plane height, applying the policy to undefined profiles.
func (p Policy) Resolve(velocity, heights []float64) float64 {
	if h, ok := Locate(velocity, heights); ok {
		return h
	}
	if len(velocity) < 2 || p == PolicyNaN || math.IsNaN(velocity[0]) || math.IsNaN(velocity[1]) {
		return math.NaN()
	}

	switch p {
	case PolicyClamp:
		if velocity[0] < 0 {
			return heights[0]
		}
		if !hasOutflow(velocity) {
			return heights[len(heights)-1]
		}
	case PolicyExtrapolate:
		if velocity[0] < 0 && velocity[1] < 0 && velocity[1] != velocity[0] {
			return heights[0] + (0-velocity[0])*(heights[1]-heights[0])/(velocity[1]-velocity[0])
		}
	}
	return math.NaN()
}

func hasOutflow(velocity []float64) bool {
	for _, v := range velocity {
		if v < 0 || math.IsNaN(v) {
			return true
		}
	}
	return false
}

// NeutralPlane adds Neutral_Plane (m) for every row and its trailing mean over window
// samples, Neutral_Plane_Smooth.
func NeutralPlane(t *table.Table, heights []int, policy Policy, window int) (undefined int, err error) {
	columns := make([][]float64, len(heights))
	metres := make([]float64, len(heights))
	for i, h := range heights {
		if columns[i], err = t.Column(table.HeightName(VelocityQuantity, h)); err != nil {
			return 0, err
		}
		metres[i] = float64(h) / 100
	}

	plane := make([]float64, t.Len())
	profile := make([]float64, len(heights))
	for row := range plane {
		for i, c := range columns {
			profile[i] = c[row]
		}
		if _, ok := Locate(profile, metres); !ok {
			undefined++
		}
		plane[row] = policy.Resolve(profile, metres)
	}

	if err = t.Set(NeutralPlaneColumn, plane); err != nil {
		return 0, err
	}
	if err = t.Set(NeutralPlaneSmoothColumn, signal.TrailingMean(plane, window)); err != nil {
		return 0, err
	}
	return undefined, nil
}
