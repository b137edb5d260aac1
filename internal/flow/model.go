package flow

import (
	"math"
	"time"
)

// Run is a single invocation of the door flow reduction. Each run processes one or
// more experiments with the same configuration.
type Run struct {
	ID        string    `json:"id"`                      // UUID of the run
	StartTime time.Time `json:"startTime"`               // When the run began
	Config    *string   `json:"config,string,omitempty"` // Optional run configuration in JSON format
}

// Experiment describes one processed fire test within a run.
type Experiment struct {
	ID                 int64    `json:"id"`
	RunID              string   `json:"runID"`
	Name               string   `json:"name"`                         // Experiment name, e.g. "Beta1"
	Rows               int      `json:"rows"`                         // Door samples kept after cleaning
	AmbientTemperature *float64 `json:"ambientTemperature,omitempty"` // °C, nil when no pre-test samples exist
	Policy             string   `json:"policy"`                       // Neutral plane policy used
}

// HeightReading holds the derived quantities at one door height. Nil marks a value
// that could not be computed.
type HeightReading struct {
	Height      int      `json:"height"`                // Nominal height in cm
	Pressure    *float64 `json:"pressure,omitempty"`    // Pressure differential in Pa
	Temperature *float64 `json:"temperature,omitempty"` // Gas temperature in °C
	Density     *float64 `json:"density,omitempty"`     // kg/m³
	Velocity    *float64 `json:"velocity,omitempty"`    // m/s, positive inflow
	MassFlow    *float64 `json:"massFlow,omitempty"`    // kg/s
}

// Profile is the doorway state at one testing time: the per-height readings, bottom
// to top, and the door totals.
type Profile struct {
	TestingTime        float64         `json:"testingTime"` // Seconds since test start
	Heights            []HeightReading `json:"heights,omitempty"`
	MassIn             *float64        `json:"massIn,omitempty"`
	MassOut            *float64        `json:"massOut,omitempty"`
	MassAverage        *float64        `json:"massAverage,omitempty"`
	NeutralPlane       *float64        `json:"neutralPlane,omitempty"`       // m
	NeutralPlaneSmooth *float64        `json:"neutralPlaneSmooth,omitempty"` // m
	HRRAllMassIn       *float64        `json:"hrrAllMassIn,omitempty"`       // kW
}

// GasSample is one gas analyser reading with the calorimetry derived from it.
type GasSample struct {
	TestingTime     float64  `json:"testingTime"`           // Seconds since test start, on the door clock
	O2              *float64 `json:"o2,omitempty"`          // Smoothed, % volume
	CO              *float64 `json:"co,omitempty"`          // Smoothed, % volume
	CO2             *float64 `json:"co2,omitempty"`         // Smoothed, % volume
	MassAverage     *float64 `json:"massAverage,omitempty"` // kg/s, resampled from the door clock
	DepletionFactor *float64 `json:"depletionFactor,omitempty"`
	HRR             *float64 `json:"hrr,omitempty"` // kW
}

// Value converts a NaN-as-missing float to an optional value.
func Value(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Float converts an optional value back to NaN-as-missing.
func Float(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
