package experiment

import (
	_ "embed"
	"fmt"
	"maps"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/doorflow/internal/table"
)

// Version is the experiments file format understood by this package.
const Version = 1

//go:embed experiments.yaml
var defaultConfig []byte

// Family is a pressure transducer family: the probes wired to it and the factor that
// converts a zeroed reading to a pressure differential in Pa.
type Family struct {
	Factor float64  `yaml:"factor" json:"factor"`
	Probes []string `yaml:"probes" json:"probes"`
}

// Smoothing configures the Savitzky-Golay filter.
type Smoothing struct {
	Window int `yaml:"window" json:"window"`
	Order  int `yaml:"order" json:"order"`
}

// Door describes the doorway geometry and the probe model.
type Door struct {
	Heights              []int   `yaml:"heights" json:"heights"` // cm, bottom to top
	Width                float64 `yaml:"width" json:"width"`     // m
	DeltaHeight          float64 `yaml:"deltaHeight" json:"deltaHeight"`
	ProbeCoefficient     float64 `yaml:"probeCoefficient" json:"probeCoefficient"`
	DischargeCoefficient float64 `yaml:"dischargeCoefficient" json:"dischargeCoefficient"`
	NeutralPlaneWindow   int     `yaml:"neutralPlaneWindow" json:"neutralPlaneWindow"`
}

// Area returns the door area attributed to a single height band, in m².
func (d *Door) Area() float64 {
	return d.DeltaHeight * d.Width
}

// Calorimetry holds the oxygen consumption calorimetry constants.
type Calorimetry struct {
	Alpha              float64 `yaml:"alpha" json:"alpha"`                           // expansion factor
	AmbientO2          float64 `yaml:"ambientO2" json:"ambientO2"`                   // mole fraction
	AmbientCO2         float64 `yaml:"ambientCO2" json:"ambientCO2"`                 // mole fraction
	HeatO2             float64 `yaml:"heatO2" json:"heatO2"`                         // kJ/kg O2
	HeatCOToCO2        float64 `yaml:"heatCOToCO2" json:"heatCOToCO2"`               // kJ/kg O2
	MolarMassAir       float64 `yaml:"molarMassAir" json:"molarMassAir"`             // g/mol
	MolarMassO2        float64 `yaml:"molarMassO2" json:"molarMassO2"`               // g/mol
	OxygenMassFraction float64 `yaml:"oxygenMassFraction" json:"oxygenMassFraction"` // in air
}

// Constants are shared by every experiment.
type Constants struct {
	Omega       Family           `yaml:"omega" json:"omega"`
	Gems        Family           `yaml:"gems" json:"gems"`
	Smoothing   Smoothing        `yaml:"smoothing" json:"smoothing"`
	Door        Door             `yaml:"door" json:"door"`
	Calorimetry Calorimetry      `yaml:"calorimetry" json:"calorimetry"`
	Groups      map[int][]string `yaml:"groups" json:"groups"` // height (cm) -> averaged probes
}

// Factor returns the conversion factor of the probe's transducer family.
func (c *Constants) Factor(probe string) (float64, error) {
	switch {
	case slices.Contains(c.Omega.Probes, probe):
		return c.Omega.Factor, nil
	case slices.Contains(c.Gems.Probes, probe):
		return c.Gems.Factor, nil
	}
	return math.NaN(), fmt.Errorf("%q: %w", probe, ErrUnknownProbe)
}

// Probes returns every pressure probe of both families.
func (c *Constants) Probes() []string {
	return slices.Concat(c.Omega.Probes, c.Gems.Probes)
}

// Experiment is the record of one fire test: the data that makes the test differ
// from the others.
type Experiment struct {
	Name             string           `yaml:"name" json:"name"`
	Groups           map[int][]string `yaml:"groups" json:"groups,omitempty"`
	Corrections      []Correction     `yaml:"corrections" json:"corrections,omitempty"`
	GasOffsetMinutes float64          `yaml:"gasOffsetMinutes" json:"gasOffsetMinutes"`
	StartTime        *time.Time       `yaml:"startTime" json:"startTime,omitempty"`
}

// Config is the experiments file.
type Config struct {
	Version     int          `yaml:"version" json:"version"`
	Constants   Constants    `yaml:"constants" json:"constants"`
	Experiments []Experiment `yaml:"experiments" json:"experiments"`
}

// Default returns the embedded experiments configuration.
func Default() (*Config, error) {
	return Parse(defaultConfig)
}

// Load reads an experiments file. An empty path loads the embedded configuration.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading experiments file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates an experiments file.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing experiments file: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Lookup returns the experiment with the given name.
func (c *Config) Lookup(name string) (*Experiment, error) {
	for i := range c.Experiments {
		if c.Experiments[i].Name == name {
			return &c.Experiments[i], nil
		}
	}
	return nil, fmt.Errorf("%q: %w", name, ErrUnknownExperiment)
}

// Names returns experiment names in file order.
func (c *Config) Names() []string {
	names := make([]string, len(c.Experiments))
	for i, e := range c.Experiments {
		names[i] = e.Name
	}
	return names
}

// Groups returns the height groups for an experiment: the shared groups with the
// experiment's overrides applied.
func (c *Config) Groups(e *Experiment) map[int][]string {
	groups := maps.Clone(c.Constants.Groups)
	if groups == nil {
		groups = make(map[int][]string)
	}
	maps.Copy(groups, e.Groups)
	return groups
}

func (c *Config) Validate() error {
	if c.Version != Version {
		return NewConfigError("experiment.Config: unsupported version %d, want %d", c.Version, Version)
	}
	if err := c.Constants.validate(); err != nil {
		return err
	}
	if len(c.Experiments) == 0 {
		return NewConfigError("experiment.Config: no experiments defined")
	}

	seen := make(map[string]bool, len(c.Experiments))
	for i := range c.Experiments {
		e := &c.Experiments[i]
		if e.Name == "" {
			return NewConfigError("experiment.Config: experiment %d has no name", i)
		}
		if seen[e.Name] {
			return NewConfigError("experiment.Config: duplicate experiment %q", e.Name)
		}
		seen[e.Name] = true

		if err := c.validateExperiment(e); err != nil {
			return err
		}
	}
	return nil
}

func (c *Constants) validate() error {
	for _, f := range []struct {
		name string
		*Family
	}{{"omega", &c.Omega}, {"gems", &c.Gems}} {
		if !(f.Factor > 0) {
			return NewConfigError("experiment.Config: %s factor must be positive: %v given", f.name, f.Factor)
		}
		if len(f.Probes) == 0 {
			return NewConfigError("experiment.Config: %s family has no probes", f.name)
		}
	}
	for _, p := range c.Omega.Probes {
		if slices.Contains(c.Gems.Probes, p) {
			return NewConfigError("experiment.Config: probe %q belongs to both families", p)
		}
	}

	if c.Smoothing.Window <= 0 || c.Smoothing.Window%2 == 0 {
		return NewConfigError("experiment.Config: smoothing window must be a positive odd number: %d given", c.Smoothing.Window)
	}
	if c.Smoothing.Order < 0 || c.Smoothing.Order >= c.Smoothing.Window {
		return NewConfigError("experiment.Config: smoothing order must be in [0, %d): %d given", c.Smoothing.Window, c.Smoothing.Order)
	}

	d := &c.Door
	if len(d.Heights) < 2 {
		return NewConfigError("experiment.Config: at least two door heights are required")
	}
	for i, h := range d.Heights {
		if h <= 0 || (i > 0 && h <= d.Heights[i-1]) {
			return NewConfigError("experiment.Config: door heights must be positive and increasing")
		}
	}
	if !(d.Width > 0) || !(d.DeltaHeight > 0) {
		return NewConfigError("experiment.Config: door width and height band must be positive")
	}
	if !(d.ProbeCoefficient > 0) || !(d.DischargeCoefficient > 0) {
		return NewConfigError("experiment.Config: probe and discharge coefficients must be positive")
	}
	if d.NeutralPlaneWindow <= 0 {
		return NewConfigError("experiment.Config: neutral plane window must be positive: %d given", d.NeutralPlaneWindow)
	}

	k := &c.Calorimetry
	if !(k.AmbientO2 > 0 && k.AmbientO2 < 1) || !(k.AmbientCO2 >= 0 && k.AmbientCO2 < 1) {
		return NewConfigError("experiment.Config: ambient mole fractions must be in [0, 1)")
	}
	if !(k.MolarMassAir > 0) || !(k.MolarMassO2 > 0) || !(k.HeatO2 > 0) {
		return NewConfigError("experiment.Config: molar masses and heat of combustion must be positive")
	}
	return nil
}

func (c *Config) validateExperiment(e *Experiment) error {
	groups := c.Groups(e)
	for _, h := range c.Constants.Door.Heights {
		probes := groups[h]
		if len(probes) == 0 {
			return NewConfigError("experiment.Config: %s: no probes for height %d", e.Name, h)
		}
		for _, p := range probes {
			if _, err := c.Constants.Factor(p); err != nil {
				return NewConfigError("experiment.Config: %s: height %d: %v", e.Name, h, err)
			}
		}
	}
	for h := range groups {
		if !slices.Contains(c.Constants.Door.Heights, h) {
			return NewConfigError("experiment.Config: %s: group for unknown height %d", e.Name, h)
		}
	}

	for i, corr := range e.Corrections {
		if err := validateCorrection(&corr); err != nil {
			return NewConfigError("experiment.Config: %s: correction %d: %v", e.Name, i, err)
		}
	}
	return nil
}

func validateCorrection(c *Correction) error {
	if c.Mode != ModeInterpolate && c.Mode != ModeExtrapolate {
		return fmt.Errorf("mode must be %q or %q: %q given", ModeInterpolate, ModeExtrapolate, c.Mode)
	}
	if len(c.Donors) < 2 {
		return fmt.Errorf("%s needs at least two donors", c.Target)
	}

	if _, err := table.Height(c.Target); err != nil {
		return err
	}
	prev := math.MinInt
	for _, d := range c.Donors {
		if d == c.Target {
			return fmt.Errorf("%s is its own donor", d)
		}
		if strings.HasPrefix(d, HeightPrefix) != c.OnHeights() {
			return fmt.Errorf("donor %s and target %s are on different stages", d, c.Target)
		}
		h, err := table.Height(d)
		if err != nil {
			return err
		}
		if h <= prev {
			return fmt.Errorf("donor heights must be increasing")
		}
		prev = h
	}

	for _, w := range c.Windows {
		if w.FromMinutes != nil && w.ToMinutes != nil && *w.FromMinutes >= *w.ToMinutes {
			return fmt.Errorf("window [%v, %v] is empty", *w.FromMinutes, *w.ToMinutes)
		}
	}
	return nil
}
