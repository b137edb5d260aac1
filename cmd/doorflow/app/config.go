package app

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roman-kulish/doorflow/internal/doorframe"
	"github.com/roman-kulish/doorflow/internal/influx"
	"github.com/roman-kulish/doorflow/internal/workbook"
)

const (
	defaultWorkers  = 1
	defaultDataDir  = "data"
	defaultExcluded = "Alpha1"
)

var defaultColumns = []string{
	doorframe.VelocityQuantity + "_",
	doorframe.MassInColumn,
	doorframe.MassOutColumn,
	doorframe.NeutralPlaneSmoothColumn,
	doorframe.HRRAllMassInColumn,
}

// Config represents the main application configuration
type Config struct {
	Settings    Settings          `yaml:"settings" json:"settings"`
	Input       InputConfig       `yaml:"input" json:"input"`
	Experiments ExperimentsConfig `yaml:"experiments" json:"experiments"`
	Storage     StorageConfig     `yaml:"storage" json:"storage"`
	Export      *ExportConfig     `yaml:"export" json:"export,omitempty"`
	Influx      *influx.Config    `yaml:"influx" json:"influx,omitempty"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel slog.Level `yaml:"logLevel" json:"logLevel"`
	Workers  int        `yaml:"workers" json:"workers"` // experiments processed concurrently
}

// InputConfig locates the raw experiment workbook.
type InputConfig struct {
	Workbook string          `yaml:"workbook" json:"workbook"`
	Layout   workbook.Layout `yaml:"layout" json:"layout"`
}

// ExperimentsConfig selects the experiments to process.
type ExperimentsConfig struct {
	File         string   `yaml:"file" json:"file,omitempty"`    // empty selects the built-in table
	Names        []string `yaml:"names" json:"names,omitempty"` // empty selects every known sheet
	NeutralPlane string   `yaml:"neutralPlane" json:"neutralPlane"`
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory" json:"dataDirectory"`
}

// ExportConfig describes the consolidated workbook.
type ExportConfig struct {
	Path    string        `yaml:"path" json:"path"`
	Grid    workbook.Grid `yaml:"grid" json:"grid"`
	Columns []string      `yaml:"columns" json:"columns"`
	Exclude []string      `yaml:"exclude" json:"exclude"`
}

// LoadConfig reads and validates the YAML configuration at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	config := Config{
		Input: InputConfig{Layout: workbook.DefaultLayout()},
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err = dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the configuration and fills defaults.
func (c *Config) Validate() error {
	if c.Settings.Workers < 0 {
		return fmt.Errorf("settings: workers must not be negative: %d given", c.Settings.Workers)
	}
	if c.Settings.Workers == 0 {
		c.Settings.Workers = defaultWorkers
	}

	if c.Input.Workbook == "" {
		return errors.New("input: workbook is required")
	}
	if err := c.Input.Layout.Validate(); err != nil {
		return fmt.Errorf("input: %w", err)
	}

	if _, err := doorframe.ParsePolicy(c.Experiments.NeutralPlane); err != nil {
		return fmt.Errorf("experiments: %w", err)
	}

	if c.Storage.DataDirectory == "" {
		c.Storage.DataDirectory = defaultDataDir
	}

	if c.Export != nil {
		if err := c.Export.Validate(); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}

	if c.Influx != nil {
		if err := c.Influx.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the export settings and fills defaults. A zero grid selects the
// default 1 Hz grid; a nil exclusion list excludes Alpha1, an empty one excludes nothing.
func (c *ExportConfig) Validate() error {
	if c.Path == "" {
		return errors.New("path is required")
	}
	if c.Grid == (workbook.Grid{}) {
		c.Grid = workbook.DefaultGrid()
	}
	if err := c.Grid.Validate(); err != nil {
		return err
	}
	if len(c.Columns) == 0 {
		c.Columns = defaultColumns
	}
	if c.Exclude == nil {
		c.Exclude = []string{defaultExcluded}
	}
	return nil
}
