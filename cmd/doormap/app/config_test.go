package app

import (
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(args ...string) (*Config, error) {
	fs := flag.NewFlagSet("doormap", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return parseFlags(fs, args)
}

func TestParseFlags_Defaults(t *testing.T) {
	c, err := parse("-db", "results.sqlite", "-e", "Gamma", "-o", "gamma")
	require.NoError(t, err)

	assert.Equal(t, "results.sqlite", c.DBPath)
	assert.Equal(t, "Gamma", c.Experiment)
	assert.Empty(t, c.RunID)
	assert.Equal(t, "gamma.png", c.OutputFile)
	assert.Equal(t, ImagePNG, c.Format)
	assert.Equal(t, CoolWarmTheme, c.Theme)
	assert.Nil(t, c.StartTime)
	assert.Nil(t, c.EndTime)
	assert.Nil(t, c.MaxVelocity)
	assert.False(t, c.NoAnnotations)
	assert.False(t, c.Verbose)
}

func TestParseFlags_All(t *testing.T) {
	c, err := parse("-db", "results.sqlite", "-e", "Gamma", "-r", "run-1", "-o", "gamma",
		"-f", "JPEG", "-theme", "Spectral", "-start=-10", "-end", "600",
		"-max-velocity", "1.5", "-no-annotations", "-v")
	require.NoError(t, err)

	assert.Equal(t, "run-1", c.RunID)
	assert.Equal(t, "gamma.jpeg", c.OutputFile)
	assert.Equal(t, ImageJPEG, c.Format)
	assert.Equal(t, SpectralTheme, c.Theme)
	require.NotNil(t, c.StartTime)
	assert.Equal(t, -10.0, *c.StartTime)
	require.NotNil(t, c.EndTime)
	assert.Equal(t, 600.0, *c.EndTime)
	require.NotNil(t, c.MaxVelocity)
	assert.Equal(t, 1.5, *c.MaxVelocity)
	assert.True(t, c.NoAnnotations)
	assert.True(t, c.Verbose)
}

func TestParseFlags_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing db", []string{"-e", "Gamma", "-o", "gamma"}},
		{"missing experiment", []string{"-db", "results.sqlite", "-o", "gamma"}},
		{"missing output", []string{"-db", "results.sqlite", "-e", "Gamma"}},
		{"format", []string{"-db", "results.sqlite", "-e", "Gamma", "-o", "gamma", "-f", "gif"}},
		{"theme", []string{"-db", "results.sqlite", "-e", "Gamma", "-o", "gamma", "-theme", "jet"}},
		{"max velocity", []string{"-db", "results.sqlite", "-e", "Gamma", "-o", "gamma", "-max-velocity", "0"}},
		{"time range", []string{"-db", "results.sqlite", "-e", "Gamma", "-o", "gamma", "-start", "10", "-end", "5"}},
		{"unknown flag", []string{"-db", "results.sqlite", "-e", "Gamma", "-o", "gamma", "-x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(tt.args...)
			assert.Error(t, err)
		})
	}
}
