package doorframe

import (
	"fmt"
	"regexp"

	"github.com/roman-kulish/doorflow/internal/experiment"
	"github.com/roman-kulish/doorflow/internal/signal"
	"github.com/roman-kulish/doorflow/internal/table"
)

const (
	// TemperaturePrefix starts every door thermocouple channel (TDD.60).
	TemperaturePrefix = "TDD."

	zeroedSuffix   = "_zeroed"
	deltaPSuffix   = "_DeltaP"
	smoothedSuffix = "_DeltaP_smooth"
)

var pressureChannel = regexp.MustCompile(`^P\d+\.\d+$`)

// PressureProbes returns the raw pressure probe channels of a table, in column order.
func PressureProbes(t *table.Table) []string {
	var probes []string
	for _, name := range t.Columns() {
		if pressureChannel.MatchString(name) {
			probes = append(probes, name)
		}
	}
	return probes
}

// Baseline returns the mean of the pre-test (negative testing time) samples of a
// channel, skipping NaN. It is NaN when the table has no pre-test samples.
func Baseline(t *table.Table, name string) (float64, error) {
	values, err := t.Column(name)
	if err != nil {
		return 0, err
	}
	return signal.NanMean(values, preTest(t)), nil
}

func preTest(t *table.Table) []bool {
	return t.Mask(func(ts float64) bool { return ts < 0 })
}

// Zero subtracts the pre-test baseline from every pressure probe and converts the result
// to a pressure differential with the probe's transducer factor. It adds the
// <probe>_zeroed and <probe>_DeltaP channels and returns the converted probes.
func Zero(t *table.Table, c *experiment.Constants) ([]string, error) {
	probes := PressureProbes(t)
	if len(probes) == 0 {
		return nil, fmt.Errorf("no pressure probes: %w", table.ErrColumnNotFound)
	}

	mask := preTest(t)
	for _, probe := range probes {
		factor, err := c.Factor(probe)
		if err != nil {
			return nil, err
		}

		raw, _ := t.Column(probe)
		baseline := signal.NanMean(raw, mask)

		zeroed := make([]float64, len(raw))
		deltaP := make([]float64, len(raw))
		for i, v := range raw {
			zeroed[i] = v - baseline
			deltaP[i] = zeroed[i] * factor
		}

		if err = t.Set(probe+zeroedSuffix, zeroed); err != nil {
			return nil, err
		}
		if err = t.Set(probe+deltaPSuffix, deltaP); err != nil {
			return nil, err
		}
	}
	return probes, nil
}
