package doorframe

import (
	"math"

	"github.com/roman-kulish/doorflow/internal/experiment"
	"github.com/roman-kulish/doorflow/internal/table"
)

// MassFlow adds M_<h> for every height, the inflow and outflow totals, their average,
// and the heat release rate assuming all oxygen flowing in is consumed.
func MassFlow(t *table.Table, heights []int, door *experiment.Door, k *experiment.Calorimetry) error {
	area := door.Area()
	n := t.Len()
	in := make([]float64, n)
	out := make([]float64, n)

	for _, h := range heights {
		density, err := t.Column(table.HeightName(DensityQuantity, h))
		if err != nil {
			return err
		}
		velocity, err := t.Column(table.HeightName(VelocityQuantity, h))
		if err != nil {
			return err
		}

		mass := make([]float64, n)
		for i := range mass {
			mass[i] = door.DischargeCoefficient * density[i] * velocity[i] * area
			switch {
			case math.IsNaN(mass[i]):
				in[i], out[i] = math.NaN(), math.NaN()
			case mass[i] > 0:
				in[i] += mass[i]
			default:
				out[i] += math.Abs(mass[i])
			}
		}
		if err = t.Set(table.HeightName(MassQuantity, h), mass); err != nil {
			return err
		}
	}

	average := make([]float64, n)
	hrr := make([]float64, n)
	for i := range average {
		average[i] = (in[i] + out[i]) / 2
		hrr[i] = k.OxygenMassFraction * in[i] * k.HeatO2
	}

	for _, c := range []struct {
		name   string
		values []float64
	}{
		{MassInColumn, in},
		{MassOutColumn, out},
		{MassAverageColumn, average},
		{HRRAllMassInColumn, hrr},
	} {
		if err := t.Set(c.name, c.values); err != nil {
			return err
		}
	}
	return nil
}
