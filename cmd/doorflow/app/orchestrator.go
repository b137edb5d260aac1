package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/doorflow/internal/calorimetry"
	"github.com/roman-kulish/doorflow/internal/doorframe"
	"github.com/roman-kulish/doorflow/internal/experiment"
	"github.com/roman-kulish/doorflow/internal/flow"
	"github.com/roman-kulish/doorflow/internal/storage"
	"github.com/roman-kulish/doorflow/internal/table"
	"github.com/roman-kulish/doorflow/internal/workbook"
)

// Exporter publishes the results of a stored experiment to an external sink.
type Exporter interface {
	Export(ctx context.Context, runID string, e *flow.Experiment, start *time.Time, profiles []flow.Profile, gas []flow.GasSample) error
}

// WithWorkers sets the number of experiments processed concurrently.
func WithWorkers(n int) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.workers = max(n, 1)
	}
}

// WithExporter publishes every stored experiment to the given sink.
func WithExporter(e Exporter) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.exporter = e
	}
}

// WithConsolidation resamples every stored experiment for the consolidated workbook.
func WithConsolidation(config *ExportConfig) func(*Orchestrator) {
	return func(o *Orchestrator) {
		o.consolidation = config
	}
}

// outcome is a processed experiment on its way to the store.
type outcome struct {
	index      int
	experiment *experiment.Experiment
	result     *doorframe.Result
	gas        *table.Table
}

// Orchestrator processes experiments with a bounded number of workers and hands the
// results to a single goroutine that persists them. The first failure cancels the
// whole run.
type Orchestrator struct {
	runID       string
	experiments *experiment.Config
	policy      doorframe.Policy

	logger   *slog.Logger
	store    storage.Store
	exporter Exporter

	workers       int
	consolidation *ExportConfig
	consolidated  []workbook.NamedTable
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(runID string, experiments *experiment.Config, policy doorframe.Policy, store storage.Store, logger *slog.Logger, options ...func(*Orchestrator)) *Orchestrator {
	o := Orchestrator{
		runID:       runID,
		experiments: experiments,
		policy:      policy,
		logger:      logger,
		store:       store,
		workers:     defaultWorkers,
	}

	for _, option := range options {
		option(&o)
	}

	return &o
}

// Run processes the sheets and stores every result. It returns the first error,
// after all goroutines have stopped.
func (o *Orchestrator) Run(ctx context.Context, sheets []*workbook.Sheet) error {
	if len(sheets) == 0 {
		return errors.New("no experiments to process")
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	o.consolidated = make([]workbook.NamedTable, len(sheets))

	jobs := make(chan int)
	results := make(chan outcome, o.workers)

	var wg sync.WaitGroup
	for range o.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for i := range jobs {
				r, err := o.process(sheets[i])
				if err != nil {
					cancel(fmt.Errorf("experiment %s: %w", sheets[i].Name, err))
					return
				}
				r.index = i

				select {
				case results <- r:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	stored := make(chan struct{})
	go func() {
		defer close(stored)
		o.handleResults(ctx, cancel, results)
	}()

feed:
	for i := range sheets {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)

	wg.Wait()
	close(results) // signal the persisting goroutine to stop
	<-stored

	if err := context.Cause(ctx); err != nil {
		return err
	}

	o.consolidated = slices.DeleteFunc(o.consolidated, func(t workbook.NamedTable) bool {
		return t.Table == nil
	})
	return nil
}

// Consolidated returns the resampled experiments, in input order, after Run.
func (o *Orchestrator) Consolidated() []workbook.NamedTable {
	return o.consolidated
}

func (o *Orchestrator) process(sheet *workbook.Sheet) (outcome, error) {
	e, err := o.experiments.Lookup(sheet.Name)
	if err != nil {
		return outcome{}, err
	}

	processor, err := doorframe.NewProcessor(o.experiments, e, o.policy)
	if err != nil {
		return outcome{}, err
	}

	result, err := processor.Process(sheet.Door)
	if err != nil {
		return outcome{}, err
	}

	r := outcome{experiment: e, result: result}
	if sheet.Gas != nil {
		analyser := calorimetry.NewAnalyser(&o.experiments.Constants.Calorimetry, processor.Smoother())
		if r.gas, err = analyser.Analyse(sheet.Gas, result.Table, e.GasOffsetMinutes); err != nil {
			return outcome{}, fmt.Errorf("analysing gas: %w", err)
		}
	}
	return r, nil
}

func (o *Orchestrator) handleResults(ctx context.Context, cancel context.CancelCauseFunc, results <-chan outcome) {
	for r := range results {
		if ctx.Err() != nil {
			continue // drain
		}
		if err := o.storeResult(ctx, r); err != nil {
			cancel(fmt.Errorf("experiment %s: %w", r.experiment.Name, err))
		}
	}
}

func (o *Orchestrator) storeResult(ctx context.Context, r outcome) error {
	logger := o.logger.With("experiment", r.experiment.Name)

	profiles, err := r.result.Profiles()
	if err != nil {
		return fmt.Errorf("building profiles: %w", err)
	}

	var samples []flow.GasSample
	if r.gas != nil {
		if samples, err = calorimetry.Samples(r.gas); err != nil {
			return fmt.Errorf("building gas samples: %w", err)
		}
	}

	e := &flow.Experiment{
		RunID:              o.runID,
		Name:               r.experiment.Name,
		Rows:               r.result.Table.Len(),
		AmbientTemperature: flow.Value(r.result.AmbientTemperature),
		Policy:             string(o.policy),
	}
	if _, err = o.store.StoreExperiment(ctx, e, profiles, samples); err != nil {
		return fmt.Errorf("storing: %w", err)
	}

	if o.exporter != nil {
		if err = o.exporter.Export(ctx, o.runID, e, r.experiment.StartTime, profiles, samples); err != nil {
			return fmt.Errorf("exporting: %w", err)
		}
	}

	if o.consolidation != nil && !slices.Contains(o.consolidation.Exclude, e.Name) {
		grid, err := workbook.Consolidate(r.result.Table, o.consolidation.Grid, o.consolidation.Columns)
		if err != nil {
			return fmt.Errorf("consolidating: %w", err)
		}
		o.consolidated[r.index] = workbook.NamedTable{Name: e.Name, Table: grid}
	}

	logger.Info("experiment stored",
		slog.Int64("id", e.ID),
		slog.Group("rows",
			slog.String("raw", humanize.Comma(int64(r.result.RawRows))),
			slog.String("kept", humanize.Comma(int64(e.Rows)))),
		slog.Int("gasSamples", len(samples)),
		slog.Float64("ambientTemperature", r.result.AmbientTemperature),
		slog.Int("undefinedNeutralPlanes", r.result.UndefinedNeutralPlanes))
	return nil
}
