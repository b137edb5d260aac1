// Package doorframe reduces doorway pressure probe and thermocouple readings to flow
// velocities, mass flows, the neutral plane height and an all-mass-in heat release rate.
package doorframe

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/roman-kulish/doorflow/internal/experiment"
	"github.com/roman-kulish/doorflow/internal/signal"
	"github.com/roman-kulish/doorflow/internal/table"
)

// Per-height quantities, suffixed with the height in cm (V_100).
const (
	PressureQuantity    = "PP"  // Pa
	TemperatureQuantity = "TC"  // °C
	DensityQuantity     = "Rho" // kg/m³
	VelocityQuantity    = "V"   // m/s
	MassQuantity        = "M"   // kg/s
)

// Door totals.
const (
	MassInColumn             = "mass_in"
	MassOutColumn            = "mass_out"
	MassAverageColumn        = "mass_average"
	NeutralPlaneColumn       = "Neutral_Plane"
	NeutralPlaneSmoothColumn = "Neutral_Plane_Smooth"
	HRRAllMassInColumn       = "hrr_internal_allmassin"
)

// ErrNoData is returned when no rows survive missing value removal.
var ErrNoData = errors.New("no complete rows")

// Result is a processed experiment.
type Result struct {
	Table *table.Table

	AmbientTemperature float64 // °C
	Heights            []int   // cm
	Probes             []string

	RawRows                int
	UndefinedNeutralPlanes int
}

// Processor runs the door flow reduction for one experiment.
type Processor struct {
	config     *experiment.Config
	experiment *experiment.Experiment
	groups     map[int][]string
	smoother   *signal.SavitzkyGolay
	policy     Policy
}

func NewProcessor(config *experiment.Config, e *experiment.Experiment, policy Policy) (*Processor, error) {
	s := config.Constants.Smoothing
	smoother, err := signal.NewSavitzkyGolay(s.Window, s.Order)
	if err != nil {
		return nil, fmt.Errorf("creating smoother: %w", err)
	}

	return &Processor{
		config:     config,
		experiment: e,
		groups:     config.Groups(e),
		smoother:   smoother,
		policy:     policy,
	}, nil
}

// Smoother returns the filter shared with the gas analysis.
func (p *Processor) Smoother() *signal.SavitzkyGolay {
	return p.smoother
}

// Process runs every stage on a copy of the raw door table.
func (p *Processor) Process(raw *table.Table) (*Result, error) {
	constants := &p.config.Constants
	heights := constants.Door.Heights
	t := raw.Clone()

	if err := Correct(t, p.experiment.Corrections, false); err != nil {
		return nil, err
	}

	ambient, err := AmbientTemperature(t)
	if err != nil {
		return nil, fmt.Errorf("estimating ambient temperature: %w", err)
	}
	ambientChannel := fmt.Sprintf("%s%d", TemperaturePrefix, heights[0])
	if err = t.Set(ambientChannel, constantSeries(t.Len(), ambient)); err != nil {
		return nil, err
	}

	// rows with a missing reading are dropped after zeroing so that every pre-test
	// sample still counts towards the baseline; an undefined baseline propagates as NaN
	measured := slices.DeleteFunc(t.Columns(), func(name string) bool { return name == ambientChannel })
	probes, err := Zero(t, constants)
	if err != nil {
		return nil, fmt.Errorf("zeroing pressure probes: %w", err)
	}

	t = t.DropNaN(measured...)
	if t.Len() == 0 {
		return nil, ErrNoData
	}

	if err = Smooth(t, p.smoother, probes); err != nil {
		return nil, fmt.Errorf("smoothing: %w", err)
	}
	if err = AssignHeights(t, heights, p.groups); err != nil {
		return nil, fmt.Errorf("assigning heights: %w", err)
	}
	if err = Correct(t, p.experiment.Corrections, true); err != nil {
		return nil, err
	}
	if err = Velocities(t, heights, ambient, constants.Door.ProbeCoefficient); err != nil {
		return nil, fmt.Errorf("computing velocities: %w", err)
	}

	undefined, err := NeutralPlane(t, heights, p.policy, constants.Door.NeutralPlaneWindow)
	if err != nil {
		return nil, fmt.Errorf("locating neutral plane: %w", err)
	}
	if err = MassFlow(t, heights, &constants.Door, &constants.Calorimetry); err != nil {
		return nil, fmt.Errorf("computing mass flow: %w", err)
	}

	return &Result{
		Table:                  t,
		AmbientTemperature:     ambient,
		Heights:                slices.Clone(heights),
		Probes:                 probes,
		RawRows:                raw.Len(),
		UndefinedNeutralPlanes: undefined,
	}, nil
}

func constantSeries(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}

func nanSeries(n int) []float64 {
	return constantSeries(n, math.NaN())
}
