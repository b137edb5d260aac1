// Package calorimetry estimates the internal heat release rate by oxygen consumption
// calorimetry from gas analyser readings and the doorway mass flow.
package calorimetry

import (
	"fmt"

	"github.com/roman-kulish/doorflow/internal/doorframe"
	"github.com/roman-kulish/doorflow/internal/experiment"
	"github.com/roman-kulish/doorflow/internal/signal"
	"github.com/roman-kulish/doorflow/internal/table"
)

// Gas analyser channels, in % volume.
const (
	O2  = "O2"
	CO  = "CO"
	CO2 = "CO2"
)

// Derived channels.
const (
	DepletionFactorColumn = "oxygen_depletion_factor"
	HRRColumn             = "hrr_internal"

	smoothedSuffix = "_smooth"
	moleSuffix     = "_smooth_mol"
)

// Analyser computes the heat release rate on the gas analyser clock.
type Analyser struct {
	constants *experiment.Calorimetry
	smoother  *signal.SavitzkyGolay
}

func NewAnalyser(constants *experiment.Calorimetry, smoother *signal.SavitzkyGolay) *Analyser {
	return &Analyser{
		constants: constants,
		smoother:  smoother,
	}
}

// Analyse shifts the gas table by offsetMinutes to align it with the door clock,
// resamples the door mass_average onto it and adds the smoothed mole fractions, the
// oxygen depletion factor and hrr_internal (kW). It returns a new table.
func (a *Analyser) Analyse(gas, door *table.Table, offsetMinutes float64) (*table.Table, error) {
	t := gas.Clone()
	t.Shift(offsetMinutes * 60)

	massAverage, err := door.Column(doorframe.MassAverageColumn)
	if err != nil {
		return nil, err
	}
	mass, err := signal.Resample(t.Time(), door.Time(), massAverage, true)
	if err != nil {
		return nil, fmt.Errorf("resampling mass flow onto the gas clock: %w", err)
	}
	if err = t.Set(doorframe.MassAverageColumn, mass); err != nil {
		return nil, err
	}

	fractions := make(map[string][]float64, 3)
	for _, name := range []string{CO2, CO, O2} {
		values, err := t.Column(name)
		if err != nil {
			return nil, err
		}

		smoothed := a.smoother.Smooth(values)
		mol := make([]float64, len(smoothed))
		for i, v := range smoothed {
			mol[i] = v / 100
		}
		if err = t.Set(name+smoothedSuffix, smoothed); err != nil {
			return nil, err
		}
		if err = t.Set(name+moleSuffix, mol); err != nil {
			return nil, err
		}
		fractions[name] = mol
	}

	n := t.Len()
	phi := make([]float64, n)
	hrr := make([]float64, n)
	for i := range phi {
		xO2, xCO, xCO2 := fractions[O2][i], fractions[CO][i], fractions[CO2][i]
		phi[i] = a.DepletionFactor(xO2, xCO, xCO2)
		hrr[i] = a.HeatReleaseRate(phi[i], xO2, xCO, mass[i])
	}

	if err = t.Set(DepletionFactorColumn, phi); err != nil {
		return nil, err
	}
	if err = t.Set(HRRColumn, hrr); err != nil {
		return nil, err
	}
	return t, nil
}

// DepletionFactor returns the oxygen depletion factor for measured mole fractions.
func (a *Analyser) DepletionFactor(xO2, xCO, xCO2 float64) float64 {
	k := a.constants
	return (k.AmbientO2*(1-xCO2-xCO) - xO2*(1-k.AmbientCO2)) / (k.AmbientO2 * (1 - xO2 - xCO2 - xCO))
}

// HeatReleaseRate returns the heat release rate in kW, correcting for incomplete
// combustion to CO, for an exhaust mass flow in kg/s.
func (a *Analyser) HeatReleaseRate(phi, xO2, xCO, massFlow float64) float64 {
	k := a.constants
	heat := k.HeatO2*phi - (k.HeatCOToCO2-k.HeatO2)*((1-phi)/2)*(xCO/xO2)
	return heat * (massFlow / (1 + phi*(k.Alpha-1))) * (k.MolarMassO2 / k.MolarMassAir) * k.AmbientO2
}
