// Package influx exports processed door flow results to an InfluxDB v2 bucket.
package influx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	influxhttp "github.com/influxdata/influxdb-client-go/v2/api/http"

	"github.com/roman-kulish/doorflow/internal/flow"
)

const (
	DoorMeasurement = "door_flow"
	GasMeasurement  = "gas_analysis"

	defaultTokenEnv   = "INFLUX_TOKEN"
	defaultBatchSize  = 1000
	defaultMaxRetries = 4
)

// Config of the export sink. The token is never part of the file; it is read from the
// environment variable named by TokenEnv.
type Config struct {
	URL           string        `yaml:"url"`
	Org           string        `yaml:"org"`
	Bucket        string        `yaml:"bucket"`
	TokenEnv      string        `yaml:"tokenEnv"`
	BatchSize     int           `yaml:"batchSize"`
	MaxRetries    int           `yaml:"maxRetries"`
	RetryInterval time.Duration `yaml:"retryInterval"`
}

// Validate checks the configuration and fills defaults.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("influx: url is required")
	}
	if c.Org == "" {
		return errors.New("influx: org is required")
	}
	if c.Bucket == "" {
		return errors.New("influx: bucket is required")
	}
	if c.TokenEnv == "" {
		c.TokenEnv = defaultTokenEnv
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("influx: batchSize must not be negative: %d given", c.BatchSize)
	}
	if c.BatchSize == 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("influx: maxRetries must not be negative: %d given", c.MaxRetries)
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryInterval < 0 {
		return fmt.Errorf("influx: retryInterval must not be negative: %s given", c.RetryInterval)
	}
	return nil
}

// Exporter writes door profiles and gas samples as points, tagged with the run and
// the experiment.
type Exporter struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
	config Config
	logger *slog.Logger
}

// NewExporter connects to the configured server using the token from the environment.
func NewExporter(config Config, logger *slog.Logger) (*Exporter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	token := os.Getenv(config.TokenEnv)
	if token == "" {
		return nil, fmt.Errorf("influx: environment variable %s is not set", config.TokenEnv)
	}

	client := influxdb2.NewClient(config.URL, token)

	return &Exporter{
		client: client,
		writer: client.WriteAPIBlocking(config.Org, config.Bucket),
		config: config,
		logger: logger.With("sink", "influx"),
	}, nil
}

// Export writes all points of one experiment. start anchors testing time zero; a nil
// start uses the Unix epoch.
func (e *Exporter) Export(ctx context.Context, runID string, experiment *flow.Experiment, start *time.Time, profiles []flow.Profile, gas []flow.GasSample) error {
	points := Points(runID, experiment.Name, start, profiles, gas)

	for from := 0; from < len(points); from += e.config.BatchSize {
		to := min(from+e.config.BatchSize, len(points))
		if err := e.writeBatch(ctx, points[from:to]); err != nil {
			return fmt.Errorf("writing points %d-%d of %s: %w", from, to-1, experiment.Name, err)
		}
	}

	e.logger.Debug("experiment exported",
		slog.String("experiment", experiment.Name),
		slog.Int("points", len(points)))
	return nil
}

func (e *Exporter) writeBatch(ctx context.Context, points []*write.Point) error {
	bo := backoff.NewExponentialBackOff()
	if e.config.RetryInterval > 0 {
		bo.InitialInterval = e.config.RetryInterval
	}

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := e.writer.WritePoint(ctx, points...)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		e.logger.Warn("write failed, retrying", slog.Int("attempt", attempt), slog.Any("error", err))
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(e.config.MaxRetries)), ctx))
}

// retryable reports whether a failed write may succeed later: server errors, rate
// limiting and transport failures are retried, other client errors are not.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var herr *influxhttp.Error
	if errors.As(err, &herr) {
		return herr.StatusCode == http.StatusTooManyRequests || herr.StatusCode >= http.StatusInternalServerError
	}
	return true
}

// Close releases the client.
func (e *Exporter) Close() {
	e.client.Close()
}

// Points converts an experiment's results into points. Missing values are left out
// of the fields; a point without any field is skipped.
func Points(runID, experiment string, start *time.Time, profiles []flow.Profile, gas []flow.GasSample) []*write.Point {
	origin := time.Unix(0, 0).UTC()
	if start != nil {
		origin = *start
	}

	tags := map[string]string{
		"run":        runID,
		"experiment": experiment,
	}

	points := make([]*write.Point, 0, len(profiles)+len(gas))
	for _, p := range profiles {
		fields := make(map[string]any)
		addField(fields, "mass_in", p.MassIn)
		addField(fields, "mass_out", p.MassOut)
		addField(fields, "mass_average", p.MassAverage)
		addField(fields, "neutral_plane", p.NeutralPlane)
		addField(fields, "neutral_plane_smooth", p.NeutralPlaneSmooth)
		addField(fields, "hrr_all_mass_in", p.HRRAllMassIn)
		for _, h := range p.Heights {
			addField(fields, fmt.Sprintf("V_%d", h.Height), h.Velocity)
		}

		if len(fields) > 0 {
			points = append(points, influxdb2.NewPoint(DoorMeasurement, tags, fields, at(origin, p.TestingTime)))
		}
	}

	for _, s := range gas {
		fields := make(map[string]any)
		addField(fields, "o2", s.O2)
		addField(fields, "co", s.CO)
		addField(fields, "co2", s.CO2)
		addField(fields, "mass_average", s.MassAverage)
		addField(fields, "depletion_factor", s.DepletionFactor)
		addField(fields, "hrr", s.HRR)

		if len(fields) > 0 {
			points = append(points, influxdb2.NewPoint(GasMeasurement, tags, fields, at(origin, s.TestingTime)))
		}
	}
	return points
}

func addField(fields map[string]any, key string, v *float64) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return
	}
	fields[key] = *v
}

func at(origin time.Time, seconds float64) time.Time {
	return origin.Add(time.Duration(math.Round(seconds * float64(time.Second))))
}
