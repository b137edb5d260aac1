package calorimetry

import (
	"github.com/roman-kulish/doorflow/internal/doorframe"
	"github.com/roman-kulish/doorflow/internal/flow"
	"github.com/roman-kulish/doorflow/internal/table"
)

// Samples converts an analysed gas table to gas samples.
func Samples(t *table.Table) ([]flow.GasSample, error) {
	names := []string{
		O2 + smoothedSuffix, CO + smoothedSuffix, CO2 + smoothedSuffix,
		doorframe.MassAverageColumn, DepletionFactorColumn, HRRColumn,
	}
	columns := make([][]float64, len(names))
	for i, name := range names {
		var err error
		if columns[i], err = t.Column(name); err != nil {
			return nil, err
		}
	}

	samples := make([]flow.GasSample, t.Len())
	for row, ts := range t.Time() {
		samples[row] = flow.GasSample{
			TestingTime:     ts,
			O2:              flow.Value(columns[0][row]),
			CO:              flow.Value(columns[1][row]),
			CO2:             flow.Value(columns[2][row]),
			MassAverage:     flow.Value(columns[3][row]),
			DepletionFactor: flow.Value(columns[4][row]),
			HRR:             flow.Value(columns[5][row]),
		}
	}
	return samples, nil
}
