package app

import (
	"fmt"
	"slices"

	"github.com/roman-kulish/doorflow/internal/flow"
)

// VelocityMap collects the velocity profiles of an experiment: one column per testing
// time, one row per door height.
type VelocityMap struct {
	Heights            []int // cm, bottom to top
	TimeStart, TimeEnd float64
	Columns            [][]*float64 // per profile, velocities in Heights order
	NeutralPlane       []*float64   // m, smoothed, per profile
	Histogram          *VelocityHistogram
}

func NewVelocityMap(h *VelocityHistogram) *VelocityMap {
	return &VelocityMap{Histogram: h}
}

// Width returns the number of profiles.
func (m *VelocityMap) Width() int {
	return len(m.Columns)
}

// Update appends a profile. The first profile fixes the heights; later profiles must
// not introduce new ones.
func (m *VelocityMap) Update(p *flow.Profile) error {
	if m.Heights == nil {
		for _, r := range p.Heights {
			m.Heights = append(m.Heights, r.Height)
		}
		slices.Sort(m.Heights)
		m.TimeStart = p.TestingTime
	}

	column := make([]*float64, len(m.Heights))
	for _, r := range p.Heights {
		i, ok := slices.BinarySearch(m.Heights, r.Height)
		if !ok {
			return fmt.Errorf("profile at %gs: unexpected height %d", p.TestingTime, r.Height)
		}
		column[i] = r.Velocity
		m.Histogram.Update(r.Velocity)
	}

	m.TimeEnd = p.TestingTime
	m.Columns = append(m.Columns, column)
	m.NeutralPlane = append(m.NeutralPlane, p.NeutralPlaneSmooth)
	return nil
}
