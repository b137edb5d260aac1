package doorframe

import (
	"fmt"
	"slices"

	"github.com/roman-kulish/doorflow/internal/experiment"
	"github.com/roman-kulish/doorflow/internal/signal"
	"github.com/roman-kulish/doorflow/internal/table"
)

// AssignHeights averages the smoothed probes of each height group into PP_<height>.
func AssignHeights(t *table.Table, heights []int, groups map[int][]string) error {
	for _, h := range heights {
		probes := groups[h]
		if len(probes) == 0 {
			return fmt.Errorf("height %d: no probes assigned", h)
		}

		series := make([][]float64, len(probes))
		for i, probe := range probes {
			values, err := t.Column(probe + smoothedSuffix)
			if err != nil {
				return fmt.Errorf("height %d: %w", h, err)
			}
			series[i] = values
		}

		if err := t.Set(table.HeightName(PressureQuantity, h), signal.RowMean(series...)); err != nil {
			return err
		}
	}
	return nil
}

// Correct applies the corrections, in order, whose stage matches: raw sensor
// channels when onHeights is false, averaged height channels otherwise. Each
// correction rewrites its target inside its windows from a linear fit across the
// donors at the same row. Later corrections see the values written by earlier ones.
func Correct(t *table.Table, corrections []experiment.Correction, onHeights bool) error {
	for i := range corrections {
		c := &corrections[i]
		if c.OnHeights() != onHeights {
			continue
		}
		if err := apply(t, c); err != nil {
			return fmt.Errorf("correcting %s: %w", c.Target, err)
		}
	}
	return nil
}

func apply(t *table.Table, c *experiment.Correction) error {
	x, err := table.Height(c.Target)
	if err != nil {
		return err
	}

	xp := make([]float64, len(c.Donors))
	donors := make([][]float64, len(c.Donors))
	for i, name := range c.Donors {
		h, err := table.Height(name)
		if err != nil {
			return err
		}
		xp[i] = float64(h)

		if donors[i], err = t.Column(name); err != nil {
			return err
		}
	}

	fit := signal.Interpolate
	if c.Mode == experiment.ModeExtrapolate {
		fit = signal.Extrapolate
	}

	// a raw target may be absent (a dead sensor that was never logged)
	var target []float64
	if current, err := t.Column(c.Target); err == nil {
		target = slices.Clone(current)
	} else {
		target = nanSeries(t.Len())
	}

	fp := make([]float64, len(donors))
	for row, ts := range t.Time() {
		if !c.Applies(ts) {
			continue
		}
		for i, d := range donors {
			fp[i] = d[row]
		}
		if target[row], err = fit(float64(x), xp, fp); err != nil {
			return err
		}
	}
	return t.Set(c.Target, target)
}
