package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/roman-kulish/doorflow/internal/flow"
)

// batchRows bounds the number of rows per multi-row INSERT, keeping every statement
// well below the SQLite bound variable limit.
const batchRows = 500

// SqliteStore handles database operations
type SqliteStore struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewSqliteStore creates a store backed by the Sqlite database at dbPath. Connections
// are opened on first use; the schema is created by the first write.
func NewSqliteStore(dbPath string) *SqliteStore {
	return &SqliteStore{dbPath: dbPath}
}

func runSQLCommand(db *sql.DB, sql string) error {
	_, err := db.Exec(sql)
	return err
}

func (s *SqliteStore) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = runSQLCommand(db, initSchemaSQL); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *SqliteStore) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

func (s *SqliteStore) CreateRun(ctx context.Context, runID string, config any) (err error) {
	if runID == "" {
		return errors.New("run ID required")
	}

	var configData sql.NullString

	if config != nil {
		switch c := config.(type) {
		case string:
			configData.Valid = true
			configData.String = c

		case []byte:
			configData.Valid = true
			configData.String = string(c)

		default:
			var p []byte
			if p, err = json.Marshal(config); err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}

			configData.Valid = true
			configData.String = string(p)
		}
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	stmt, err := db.PrepareContext(ctx, insertRunSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	if _, err = stmt.ExecContext(ctx, runID, time.Now().UTC(), configData); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

func (s *SqliteStore) Run(ctx context.Context, runID string) (run *flow.Run, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectRunSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var data runData
	if err = stmt.QueryRowContext(ctx, runID).Scan(&data.ID, &data.StartTime, &data.Config); err != nil {
		err = fmt.Errorf("scanning run: %w", err)
		return
	}

	return toRun(&data), nil
}

func (s *SqliteStore) Runs(ctx context.Context) (runs []*flow.Run, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectRunsSQL)
	if err != nil {
		err = fmt.Errorf("querying runs: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var data runData
		if err = rows.Scan(&data.ID, &data.StartTime, &data.Config); err != nil {
			err = fmt.Errorf("scanning run: %w", err)
			return
		}
		runs = append(runs, toRun(&data))
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) StoreExperiment(ctx context.Context, e *flow.Experiment, profiles []flow.Profile, gas []flow.GasSample) (experimentID int64, err error) {
	if e == nil || e.RunID == "" || e.Name == "" {
		return 0, errors.New("experiment with run ID and name required")
	}

	db, err := s.getWriteDB()
	if err != nil {
		return 0, fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	result, err := tx.ExecContext(ctx, insertExperimentSQL,
		e.RunID,
		e.Name,
		e.Rows,
		toSQLNullFloat(e.AmbientTemperature),
		e.Policy,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting experiment: %w", err)
	}
	if experimentID, err = result.LastInsertId(); err != nil {
		return 0, fmt.Errorf("getting experiment ID: %w", err)
	}

	if err = insertBatches(ctx, tx, insertSummarySQL, 8, len(profiles), func(i int) []any {
		d := toSummaryData(&profiles[i])
		return []any{
			experimentID,
			d.TestingTime,
			d.MassIn,
			d.MassOut,
			d.MassAverage,
			d.NeutralPlane,
			d.NeutralPlaneSmooth,
			d.HRRAllMassIn,
		}
	}); err != nil {
		return 0, fmt.Errorf("batch inserting door summary: %w", err)
	}

	// one row per profile and height
	type heightRef struct{ profile, height int }
	var refs []heightRef
	for i := range profiles {
		for j := range profiles[i].Heights {
			refs = append(refs, heightRef{i, j})
		}
	}
	if err = insertBatches(ctx, tx, insertHeightSQL, 8, len(refs), func(i int) []any {
		p := &profiles[refs[i].profile]
		d := toHeightData(&p.Heights[refs[i].height])
		return []any{
			experimentID,
			p.TestingTime,
			d.Height,
			d.Pressure,
			d.Temperature,
			d.Density,
			d.Velocity,
			d.MassFlow,
		}
	}); err != nil {
		return 0, fmt.Errorf("batch inserting door heights: %w", err)
	}

	if err = insertBatches(ctx, tx, insertGasSampleSQL, 8, len(gas), func(i int) []any {
		d := toGasSampleData(&gas[i])
		return []any{
			experimentID,
			d.TestingTime,
			d.O2,
			d.CO,
			d.CO2,
			d.MassAverage,
			d.DepletionFactor,
			d.HRR,
		}
	}); err != nil {
		return 0, fmt.Errorf("batch inserting gas samples: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}

	e.ID = experimentID
	return experimentID, nil
}

// insertBatches runs prefix with up to batchRows value tuples per statement. row
// returns the bound values of row i; every row has width values.
func insertBatches(ctx context.Context, tx *sql.Tx, prefix string, width, n int, row func(i int) []any) error {
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", width), ", ") + ")"

	for start := 0; start < n; start += batchRows {
		end := min(start+batchRows, n)

		values := make([]any, 0, (end-start)*width)

		var sb strings.Builder
		sb.WriteString(prefix)

		for i := start; i < end; i++ {
			values = append(values, row(i)...)

			if i > start {
				sb.WriteString(", ")
			}
			sb.WriteString(placeholder)
		}

		if _, err := tx.ExecContext(ctx, sb.String(), values...); err != nil {
			return fmt.Errorf("rows %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

func (s *SqliteStore) Experiment(ctx context.Context, runID, name string) (experiment *flow.Experiment, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectExperimentSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var data experimentData
	err = stmt.QueryRowContext(ctx, name, runID, runID).Scan(
		&data.ID,
		&data.RunID,
		&data.Name,
		&data.Rows,
		&data.AmbientTemperature,
		&data.Policy,
	)
	if err != nil {
		err = fmt.Errorf("scanning experiment %q: %w", name, err)
		return
	}

	return toExperiment(&data), nil
}

func (s *SqliteStore) Experiments(ctx context.Context, runID string) (experiments []*flow.Experiment, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectExperimentsSQL, runID)
	if err != nil {
		err = fmt.Errorf("querying experiments: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var data experimentData
		if err = rows.Scan(&data.ID, &data.RunID, &data.Name, &data.Rows, &data.AmbientTemperature, &data.Policy); err != nil {
			err = fmt.Errorf("scanning experiment: %w", err)
			return
		}
		experiments = append(experiments, toExperiment(&data))
	}
	err = rows.Err()
	return
}

func (s *SqliteStore) GasSamples(ctx context.Context, experimentID int64) (samples []flow.GasSample, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectGasSamplesSQL, experimentID)
	if err != nil {
		err = fmt.Errorf("querying gas samples: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var data gasSampleData
		if err = rows.Scan(&data.TestingTime, &data.O2, &data.CO, &data.CO2, &data.MassAverage, &data.DepletionFactor, &data.HRR); err != nil {
			err = fmt.Errorf("scanning gas sample: %w", err)
			return
		}
		samples = append(samples, flow.GasSample{
			TestingTime:     data.TestingTime,
			O2:              fromSQLNullFloat(data.O2),
			CO:              fromSQLNullFloat(data.CO),
			CO2:             fromSQLNullFloat(data.CO2),
			MassAverage:     fromSQLNullFloat(data.MassAverage),
			DepletionFactor: fromSQLNullFloat(data.DepletionFactor),
			HRR:             fromSQLNullFloat(data.HRR),
		})
	}
	err = rows.Err()
	return
}

// ReadProfiles creates a new ProfileReader over the door profiles of an experiment.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - experimentID: Unique identifier of the stored experiment
//   - opts: Optional configuration parameters for the reader (WithStartTime, WithEndTime,
//     WithTimeRange)
//
// The returned reader must be closed after use to release database resources. Each
// reader instance should only be used from a single goroutine.
func (s *SqliteStore) ReadProfiles(ctx context.Context, experimentID int64, opts ...ReaderOption) (ProfileReader, error) {
	db, err := s.getReadDB()
	if err != nil {
		return nil, fmt.Errorf("getting read connection: %w", err)
	}
	return newSqliteProfileReader(ctx, db, experimentID, opts...)
}

func (s *SqliteStore) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			_ = runSQLCommand(s.writeDB, initIndexesSQL)

			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		s.closeErr = errors.Join(writeErr, readErr)
	})

	return s.closeErr
}
