package storage

import (
	"context"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roman-kulish/doorflow/internal/flow"
)

// Store provides an interface for persisting and reading door flow results.
// All operations that write to the database should be considered atomic.
type Store interface {
	// CreateRun records a new run.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - runID: Unique identifier of the run (a UUID)
	//   - config: Optional run configuration. Can be string, []byte, or JSON-serializable object
	//
	// Returns:
	//   - error: If run creation fails or context is cancelled
	CreateRun(ctx context.Context, runID string, config any) error

	// Run retrieves a run by its ID.
	Run(ctx context.Context, runID string) (*flow.Run, error)

	// Runs returns all runs ordered by start time in ascending order.
	Runs(ctx context.Context) ([]*flow.Run, error)

	// StoreExperiment saves a processed experiment: its metadata, the door profiles
	// and the gas samples. Everything is stored in a single transaction, so a failed
	// or cancelled call leaves nothing behind.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - e: Experiment metadata; RunID and Name are required, ID is assigned
	//   - profiles: Door profiles ordered by testing time
	//   - gas: Optional gas samples ordered by testing time
	//
	// Returns:
	//   - experimentID: Unique identifier of the stored experiment
	//   - error: If storage fails or context is cancelled
	StoreExperiment(ctx context.Context, e *flow.Experiment, profiles []flow.Profile, gas []flow.GasSample) (experimentID int64, err error)

	// Experiment returns the named experiment of a run. An empty runID selects the
	// most recent run that processed the experiment.
	Experiment(ctx context.Context, runID, name string) (*flow.Experiment, error)

	// Experiments returns the experiments of a run in processing order.
	Experiments(ctx context.Context, runID string) ([]*flow.Experiment, error)

	// GasSamples returns the gas samples of an experiment ordered by testing time.
	GasSamples(ctx context.Context, experimentID int64) ([]flow.GasSample, error)

	// ReadProfiles creates a reader over the door profiles of an experiment.
	// The returned reader must be closed after use.
	ReadProfiles(ctx context.Context, experimentID int64, opts ...ReaderOption) (ProfileReader, error)

	// Close releases all database connections and resources.
	// It is safe to call Close multiple times.
	Close() error
}
