package experiment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, []string{"Alpha1", "Alpha2", "Beta1", "Beta2", "Gamma"}, c.Names())
	assert.Equal(t, 31, c.Constants.Smoothing.Window)
	assert.InDelta(t, 0.16, c.Constants.Door.Area(), 1e-12)

	k, err := c.Constants.Factor("P3.40")
	require.NoError(t, err)
	assert.Equal(t, 2.49, k)

	k, err = c.Constants.Factor("P11.160")
	require.NoError(t, err)
	assert.Equal(t, 10.0, k)

	_, err = c.Constants.Factor("P14.200")
	assert.ErrorIs(t, err, ErrUnknownProbe)
}

func TestConfig_Groups(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	tests := []struct {
		name  string
		pp40  []string
		pp160 []string
	}{
		{"Alpha1", []string{"P2.40", "P3.40", "P4.40"}, []string{"P12.160"}},
		{"Alpha2", []string{"P2.40", "P3.40", "P4.40"}, []string{"P12.160"}},
		{"Beta1", []string{"P2.40", "P4.40"}, []string{"P10.160"}},
		{"Beta2", []string{"P2.40", "P3.40", "P4.40"}, []string{"P10.160", "P12.160"}},
		{"Gamma", []string{"P2.40", "P3.40", "P4.40"}, []string{"P10.160", "P11.160", "P12.160"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := c.Lookup(tt.name)
			require.NoError(t, err)

			groups := c.Groups(e)
			assert.Equal(t, tt.pp40, groups[40])
			assert.Equal(t, tt.pp160, groups[160])
			assert.Equal(t, []string{"P13.180"}, groups[180])
		})
	}

	// overrides must not leak into the shared groups
	assert.Equal(t, []string{"P10.160", "P11.160", "P12.160"}, c.Constants.Groups[160])
}

func TestConfig_Lookup(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	e, err := c.Lookup("Beta2")
	require.NoError(t, err)
	assert.Equal(t, -18.0, e.GasOffsetMinutes)
	require.Len(t, e.Corrections, 3)
	assert.Equal(t, "TDD.40", e.Corrections[0].Target)
	assert.False(t, e.Corrections[0].OnHeights())
	assert.True(t, e.Corrections[1].OnHeights())

	_, err = c.Lookup("Delta")
	assert.ErrorIs(t, err, ErrUnknownExperiment)
}

func TestCorrection_Applies(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	e, err := c.Lookup("Alpha2")
	require.NoError(t, err)
	pp180 := e.Corrections[2]

	tests := []struct {
		seconds float64
		want    bool
	}{
		{0, false},
		{60, true},
		{6 * 60, false},
		{10 * 60, false},
		{15 * 60, true},
		{21 * 60, false},
		{40 * 60, false},
		{41 * 60, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pp180.Applies(tt.seconds), "t=%v", tt.seconds)
	}

	always := Correction{Target: "TDD.40"}
	assert.True(t, always.Applies(-100))
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Len(t, c.Experiments, 5)

	path := filepath.Join(t.TempDir(), "experiments.yaml")
	require.NoError(t, os.WriteFile(path, defaultConfig, 0o644))

	c, err = Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Experiments, 5)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"version", func(c *Config) { c.Version = 2 }},
		{"even window", func(c *Config) { c.Constants.Smoothing.Window = 30 }},
		{"order too high", func(c *Config) { c.Constants.Smoothing.Order = 31 }},
		{"shared probe", func(c *Config) { c.Constants.Gems.Probes = append(c.Constants.Gems.Probes, "P1.20") }},
		{"unknown probe in group", func(c *Config) { c.Experiments[0].Groups[160] = []string{"P99.160"} }},
		{"missing height group", func(c *Config) { delete(c.Constants.Groups, 60) }},
		{"duplicate name", func(c *Config) { c.Experiments[1].Name = "Alpha1" }},
		{"bad mode", func(c *Config) { c.Experiments[1].Corrections[0].Mode = "nearest" }},
		{"single donor", func(c *Config) { c.Experiments[1].Corrections[0].Donors = []string{"PP_100"} }},
		{"mixed stages", func(c *Config) { c.Experiments[1].Corrections[0].Donors = []string{"TDD.100", "PP_160"} }},
		{"empty window", func(c *Config) {
			from, to := 5.0, 5.0
			c.Experiments[1].Corrections[0].Windows = []Window{{FromMinutes: &from, ToMinutes: &to}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Default()
			require.NoError(t, err)

			tt.mutate(c)

			err = c.Validate()
			var cfgErr *ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}
