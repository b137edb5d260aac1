package doorframe

import (
	"github.com/roman-kulish/doorflow/internal/signal"
	"github.com/roman-kulish/doorflow/internal/table"
)

// Smooth applies the Savitzky-Golay filter to the pressure differential of every probe,
// adding <probe>_DeltaP_smooth. Rows with a missing value must be dropped first.
func Smooth(t *table.Table, f *signal.SavitzkyGolay, probes []string) error {
	for _, probe := range probes {
		deltaP, err := t.Column(probe + deltaPSuffix)
		if err != nil {
			return err
		}
		if err = t.Set(probe+smoothedSuffix, f.Smooth(deltaP)); err != nil {
			return err
		}
	}
	return nil
}
