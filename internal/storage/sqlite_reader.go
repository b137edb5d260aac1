package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roman-kulish/doorflow/internal/flow"
)

// ErrNoData indicates that all available profiles have been read from the reader.
var ErrNoData = errors.New("no data available")

// ProfileReader provides an iterator-based interface for reading the door profiles of
// an experiment, one testing time at a time, with optional time filtering.
type ProfileReader interface {
	// Experiment returns metadata about the experiment this reader is accessing.
	Experiment() *flow.Experiment

	// Next advances the iterator and returns true if there is another profile
	// to read, false when the iteration is complete or if an error occurred.
	Next(context.Context) bool

	// Current returns the current profile in the iteration.
	// If called after Next() returns false, the behavior is undefined.
	Current() *flow.Profile

	// Error returns any error that occurred during iteration.
	// If Next() returns false, Error() should be checked to distinguish between
	// end of data and an error condition.
	Error() error

	// Close releases any resources associated with the reader.
	// After Close is called, the reader should not be used.
	Close() error
}

// ReaderOption configures a ProfileReader with specific filtering criteria.
type ReaderOption func(*SqliteProfileReader)

// WithStartTime excludes profiles before the given testing time in seconds.
func WithStartTime(seconds float64) ReaderOption {
	return func(r *SqliteProfileReader) {
		r.startTime = &seconds
	}
}

// WithEndTime excludes profiles after the given testing time in seconds.
func WithEndTime(seconds float64) ReaderOption {
	return func(r *SqliteProfileReader) {
		r.endTime = &seconds
	}
}

// WithTimeRange sets both start and end time filters.
// This is a convenience function equivalent to applying both WithStartTime
// and WithEndTime.
func WithTimeRange(start, end float64) ReaderOption {
	return func(r *SqliteProfileReader) {
		r.startTime = &start
		r.endTime = &end
	}
}

func newSqliteProfileReader(ctx context.Context, db *sql.DB, experimentID int64, opts ...ReaderOption) (*SqliteProfileReader, error) {
	pr := &SqliteProfileReader{
		db:           db,
		experimentID: experimentID,
	}
	for _, opt := range opts {
		opt(pr)
	}
	if err := pr.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return pr, nil
}

// SqliteProfileReader implements ProfileReader for SQLite database backend.
type SqliteProfileReader struct {
	db *sql.DB

	experimentID int64
	experiment   *flow.Experiment

	startTime *float64 // Optional start of time range filter
	endTime   *float64 // Optional end of time range filter

	current    *flow.Profile
	next       *flow.Profile // First row of the next profile
	nextHeight *flow.HeightReading
	rows       *sql.Rows
	err        error
}

func (pr *SqliteProfileReader) init(ctx context.Context) error {
	if pr.db == nil {
		return errors.New("database connection required")
	}
	if pr.experimentID <= 0 {
		return errors.New("experiment ID required")
	}

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "loading experiment", fn: pr.loadExperiment},
		{msg: "initializing filters", fn: pr.initFilters},
		{msg: "initializing query", fn: pr.initQuery},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (pr *SqliteProfileReader) loadExperiment(ctx context.Context) (err error) {
	stmt, err := pr.db.PrepareContext(ctx, selectExperimentByIDSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	var data experimentData
	err = stmt.QueryRowContext(ctx, pr.experimentID).Scan(
		&data.ID,
		&data.RunID,
		&data.Name,
		&data.Rows,
		&data.AmbientTemperature,
		&data.Policy,
	)
	if err != nil {
		return fmt.Errorf("querying experiment: %w", err)
	}

	pr.experiment = toExperiment(&data)
	return
}

func (pr *SqliteProfileReader) initFilters(ctx context.Context) (err error) {
	if pr.startTime != nil && pr.endTime != nil {
		if *pr.startTime > *pr.endTime {
			return fmt.Errorf("start time %g is after end time %g", *pr.startTime, *pr.endTime)
		}
		return nil
	}

	stmt, err := pr.db.PrepareContext(ctx, selectTimeRangeSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	var startTime, endTime sql.NullFloat64
	if err = stmt.QueryRowContext(ctx, pr.experimentID).Scan(&startTime, &endTime); err != nil {
		return fmt.Errorf("scanning time range: %w", err)
	}

	// no profiles stored: an empty range selects nothing
	if !startTime.Valid || !endTime.Valid {
		startTime = sql.NullFloat64{Float64: 1, Valid: true}
		endTime = sql.NullFloat64{Float64: 0, Valid: true}
	}

	if pr.startTime == nil {
		pr.startTime = &startTime.Float64
	}
	if pr.endTime == nil {
		pr.endTime = &endTime.Float64
	}
	return nil
}

func (pr *SqliteProfileReader) initQuery(ctx context.Context) (err error) {
	stmt, err := pr.db.PrepareContext(ctx, selectProfilesSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	if pr.rows, err = stmt.QueryContext(ctx, pr.experimentID, *pr.startTime, *pr.endTime); err != nil {
		return err
	}
	return nil
}

func (pr *SqliteProfileReader) scanRow() (*flow.Profile, *flow.HeightReading, error) {
	var s summaryData
	var h heightData
	var height sql.NullInt64

	err := pr.rows.Scan(
		&s.TestingTime,
		&s.MassIn,
		&s.MassOut,
		&s.MassAverage,
		&s.NeutralPlane,
		&s.NeutralPlaneSmooth,
		&s.HRRAllMassIn,
		&height,
		&h.Pressure,
		&h.Temperature,
		&h.Density,
		&h.Velocity,
		&h.MassFlow,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("scanning profile: %w", err)
	}

	profile := &flow.Profile{
		TestingTime:        s.TestingTime,
		MassIn:             fromSQLNullFloat(s.MassIn),
		MassOut:            fromSQLNullFloat(s.MassOut),
		MassAverage:        fromSQLNullFloat(s.MassAverage),
		NeutralPlane:       fromSQLNullFloat(s.NeutralPlane),
		NeutralPlaneSmooth: fromSQLNullFloat(s.NeutralPlaneSmooth),
		HRRAllMassIn:       fromSQLNullFloat(s.HRRAllMassIn),
	}
	if !height.Valid {
		return profile, nil, nil
	}

	return profile, &flow.HeightReading{
		Height:      int(height.Int64),
		Pressure:    fromSQLNullFloat(h.Pressure),
		Temperature: fromSQLNullFloat(h.Temperature),
		Density:     fromSQLNullFloat(h.Density),
		Velocity:    fromSQLNullFloat(h.Velocity),
		MassFlow:    fromSQLNullFloat(h.MassFlow),
	}, nil
}

func (pr *SqliteProfileReader) Experiment() *flow.Experiment {
	return pr.experiment
}

func (pr *SqliteProfileReader) Next(ctx context.Context) bool {
	if pr.err != nil || pr.rows == nil {
		return false
	}

	pr.current = nil
	if pr.next != nil {
		pr.current = pr.next
		if pr.nextHeight != nil {
			pr.current.Heights = append(pr.current.Heights, *pr.nextHeight)
		}
		pr.next, pr.nextHeight = nil, nil
	}

	for {
		select {
		case <-ctx.Done():
			pr.err = ctx.Err()
			return false
		default:
		}

		if !pr.rows.Next() {
			if pr.current != nil {
				pr.err = ErrNoData
				return true
			}
			return false
		}

		var profile *flow.Profile
		var reading *flow.HeightReading
		if profile, reading, pr.err = pr.scanRow(); pr.err != nil {
			return false
		}

		if pr.current == nil {
			pr.current = profile
			if reading != nil {
				pr.current.Heights = append(pr.current.Heights, *reading)
			}
			continue
		}

		// Testing time changed - complete current profile
		if profile.TestingTime != pr.current.TestingTime {
			pr.next = profile
			pr.nextHeight = reading
			return true
		}

		if reading != nil {
			pr.current.Heights = append(pr.current.Heights, *reading)
		}
	}
}

func (pr *SqliteProfileReader) Current() *flow.Profile {
	return pr.current
}

func (pr *SqliteProfileReader) Error() error {
	if pr.err != nil && !errors.Is(pr.err, ErrNoData) {
		return pr.err
	}
	if pr.rows != nil {
		return pr.rows.Err()
	}
	return nil
}

func (pr *SqliteProfileReader) Close() error {
	if pr.rows != nil {
		err := pr.rows.Close()
		pr.current = nil
		pr.next = nil
		pr.rows = nil
		return err
	}
	return nil
}
