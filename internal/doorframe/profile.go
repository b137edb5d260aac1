package doorframe

import (
	"github.com/roman-kulish/doorflow/internal/flow"
	"github.com/roman-kulish/doorflow/internal/table"
)

// Profiles converts the processed table to one profile per row.
func (r *Result) Profiles() ([]flow.Profile, error) {
	t := r.Table

	type heightColumns struct {
		pressure, temperature, density, velocity, mass []float64
	}
	heights := make([]heightColumns, len(r.Heights))
	for i, h := range r.Heights {
		var err error
		hc := &heights[i]
		for _, c := range []struct {
			quantity string
			dst      *[]float64
		}{
			{PressureQuantity, &hc.pressure},
			{TemperatureQuantity, &hc.temperature},
			{DensityQuantity, &hc.density},
			{VelocityQuantity, &hc.velocity},
			{MassQuantity, &hc.mass},
		} {
			if *c.dst, err = t.Column(table.HeightName(c.quantity, h)); err != nil {
				return nil, err
			}
		}
	}

	totals := make(map[string][]float64)
	for _, name := range []string{
		MassInColumn, MassOutColumn, MassAverageColumn,
		NeutralPlaneColumn, NeutralPlaneSmoothColumn, HRRAllMassInColumn,
	} {
		values, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		totals[name] = values
	}

	profiles := make([]flow.Profile, t.Len())
	for row, ts := range t.Time() {
		readings := make([]flow.HeightReading, len(r.Heights))
		for i, h := range r.Heights {
			hc := &heights[i]
			readings[i] = flow.HeightReading{
				Height:      h,
				Pressure:    flow.Value(hc.pressure[row]),
				Temperature: flow.Value(hc.temperature[row]),
				Density:     flow.Value(hc.density[row]),
				Velocity:    flow.Value(hc.velocity[row]),
				MassFlow:    flow.Value(hc.mass[row]),
			}
		}

		profiles[row] = flow.Profile{
			TestingTime:        ts,
			Heights:            readings,
			MassIn:             flow.Value(totals[MassInColumn][row]),
			MassOut:            flow.Value(totals[MassOutColumn][row]),
			MassAverage:        flow.Value(totals[MassAverageColumn][row]),
			NeutralPlane:       flow.Value(totals[NeutralPlaneColumn][row]),
			NeutralPlaneSmooth: flow.Value(totals[NeutralPlaneSmoothColumn][row]),
			HRRAllMassIn:       flow.Value(totals[HRRAllMassInColumn][row]),
		}
	}
	return profiles, nil
}
