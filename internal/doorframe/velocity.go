package doorframe

import (
	"fmt"
	"math"

	"github.com/roman-kulish/doorflow/internal/signal"
	"github.com/roman-kulish/doorflow/internal/table"
)

// AmbientTemperature averages the pre-test means of every door thermocouple, in °C.
func AmbientTemperature(t *table.Table) (float64, error) {
	channels := t.ColumnsWithPrefix(TemperaturePrefix)
	if len(channels) == 0 {
		return math.NaN(), fmt.Errorf("no %s* channels: %w", TemperaturePrefix, table.ErrColumnNotFound)
	}

	mask := preTest(t)
	means := make([]float64, len(channels))
	for i, name := range channels {
		values, _ := t.Column(name)
		means[i] = signal.NanMean(values, mask)
	}
	return signal.NanMean(means, nil), nil
}

// Density returns the gas density in kg/m³ at a temperature in °C.
func Density(celsius float64) float64 {
	return 353 / (celsius + 273)
}

// Velocity returns the bidirectional probe velocity in m/s for a pressure differential
// in Pa. The sign follows the pressure; positive velocities count towards mass_in.
func Velocity(pressure, density, coefficient float64) float64 {
	return signal.Sign(pressure) * coefficient * math.Sqrt(2*math.Abs(pressure)/density)
}

// Velocities adds TC_<h>, Rho_<h> and V_<h> for every height. Where the pressure
// differential is positive the gas flows in and is taken at ambient temperature;
// elsewhere the thermocouple at that height is used.
func Velocities(t *table.Table, heights []int, ambient, coefficient float64) error {
	for _, h := range heights {
		pressure, err := t.Column(table.HeightName(PressureQuantity, h))
		if err != nil {
			return err
		}
		thermocouple, err := t.Column(fmt.Sprintf("%s%d", TemperaturePrefix, h))
		if err != nil {
			return err
		}

		n := t.Len()
		temperature := make([]float64, n)
		density := make([]float64, n)
		velocity := make([]float64, n)
		for i, p := range pressure {
			temperature[i] = thermocouple[i]
			if p > 0 {
				temperature[i] = ambient
			}
			density[i] = Density(temperature[i])
			velocity[i] = Velocity(p, density[i], coefficient)
		}

		if err = t.Set(table.HeightName(TemperatureQuantity, h), temperature); err != nil {
			return err
		}
		if err = t.Set(table.HeightName(DensityQuantity, h), density); err != nil {
			return err
		}
		if err = t.Set(table.HeightName(VelocityQuantity, h), velocity); err != nil {
			return err
		}
	}
	return nil
}
