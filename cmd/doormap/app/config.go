package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
)

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"
)

type ImageFormat string

type Config struct {
	DBPath        string
	Experiment    string
	RunID         string // empty selects the latest run of the experiment
	OutputFile    string
	Format        ImageFormat
	Theme         ColorTheme
	StartTime     *float64 // seconds
	EndTime       *float64 // seconds
	MaxVelocity   *float64 // m/s, symmetric colour scale bound
	NoAnnotations bool
	Verbose       bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

var validThemes = map[ColorTheme]struct{}{
	CoolWarmTheme:  {},
	SpectralTheme:  {},
	GrayscaleTheme: {},
}

func NewConfig() *Config {
	return &Config{
		Format: ImagePNG,
		Theme:  CoolWarmTheme,
	}
}

func NewConfigFromCLI() (*Config, error) {
	return parseFlags(flag.CommandLine, os.Args[1:])
}

func parseFlags(fs *flag.FlagSet, args []string) (*Config, error) {
	c := NewConfig()

	var imageFormat, theme string
	var startTime, endTime, maxVelocity float64
	fs.StringVar(&c.DBPath, "db", "", "Path to the database file")
	fs.StringVar(&c.Experiment, "e", "", "Experiment name")
	fs.StringVar(&c.RunID, "r", "", "Run ID, defaults to the latest run of the experiment")
	fs.StringVar(&c.OutputFile, "o", "", "Path to the output file, without extension")
	fs.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	fs.StringVar(&theme, "theme", string(CoolWarmTheme), "Colour theme. [coolwarm, spectral, grayscale]")
	fs.Float64Var(&startTime, "start", 0, "First testing time to render, in seconds")
	fs.Float64Var(&endTime, "end", 0, "Last testing time to render, in seconds")
	fs.Float64Var(&maxVelocity, "max-velocity", 0, "Define a manual colour scale bound in m/s")
	fs.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as time and height scales")
	fs.BoolVar(&c.Verbose, "v", false, "Log reader and rendering details")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	imageFormat = strings.ToLower(imageFormat)
	theme = strings.ToLower(theme)

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "start":
			c.StartTime = &startTime
		case "end":
			c.EndTime = &endTime
		case "max-velocity":
			c.MaxVelocity = &maxVelocity
		}
	})

	var err error
	if c.DBPath == "" {
		err = errors.New("db path is required")
	} else if c.Experiment == "" {
		err = errors.New("experiment name is required")
	} else if c.OutputFile == "" {
		err = errors.New("output file is required")
	} else if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
		err = fmt.Errorf("invalid image format: %s", imageFormat)
	} else if _, ok := validThemes[ColorTheme(theme)]; !ok {
		err = fmt.Errorf("invalid colour theme: %s", theme)
	} else if c.MaxVelocity != nil && !(*c.MaxVelocity > 0) {
		err = fmt.Errorf("max velocity must be positive: %v given", *c.MaxVelocity)
	} else if c.StartTime != nil && c.EndTime != nil && *c.StartTime > *c.EndTime {
		err = fmt.Errorf("start time %v is after end time %v", *c.StartTime, *c.EndTime)
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.Theme = ColorTheme(theme)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}
