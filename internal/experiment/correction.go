package experiment

import "strings"

// Mode selects how a corrected value is computed from its donor channels.
type Mode string

const (
	// ModeInterpolate holds the end values outside the donor heights.
	ModeInterpolate Mode = "interpolate"

	// ModeExtrapolate extends the first/last donor segment linearly.
	ModeExtrapolate Mode = "extrapolate"
)

// HeightPrefix marks the per-height pressure channels produced by probe averaging.
const HeightPrefix = "PP_"

// Window is an open interval of testing time in minutes. A nil bound is unbounded.
type Window struct {
	FromMinutes *float64 `yaml:"fromMinutes" json:"fromMinutes,omitempty"`
	ToMinutes   *float64 `yaml:"toMinutes" json:"toMinutes,omitempty"`
}

// Contains reports whether a testing time, in seconds, falls strictly inside the window.
func (w Window) Contains(seconds float64) bool {
	minutes := seconds / 60
	if w.FromMinutes != nil && !(minutes > *w.FromMinutes) {
		return false
	}
	if w.ToMinutes != nil && !(minutes < *w.ToMinutes) {
		return false
	}
	return true
}

// Correction replaces a damaged channel inside a set of time windows with values
// interpolated or extrapolated across the donor channels. Donor and target heights
// are taken from the channel names.
type Correction struct {
	Target  string   `yaml:"target" json:"target"`
	Donors  []string `yaml:"donors" json:"donors"`
	Windows []Window `yaml:"windows" json:"windows,omitempty"`
	Mode    Mode     `yaml:"mode" json:"mode"`
}

// Applies reports whether the correction is active at a testing time in seconds.
// A correction without windows applies to every row.
func (c *Correction) Applies(seconds float64) bool {
	if len(c.Windows) == 0 {
		return true
	}
	for _, w := range c.Windows {
		if w.Contains(seconds) {
			return true
		}
	}
	return false
}

// OnHeights reports whether the correction operates on averaged height channels
// rather than raw sensor channels.
func (c *Correction) OnHeights() bool {
	return strings.HasPrefix(c.Target, HeightPrefix)
}
