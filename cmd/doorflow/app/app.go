package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/roman-kulish/doorflow/internal/doorframe"
	"github.com/roman-kulish/doorflow/internal/experiment"
	"github.com/roman-kulish/doorflow/internal/influx"
	"github.com/roman-kulish/doorflow/internal/storage"
	"github.com/roman-kulish/doorflow/internal/workbook"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) (err error) {
	runID := uuid.NewString()
	logger = logger.With("run", runID)

	experiments, err := experiment.Load(config.Experiments.File)
	if err != nil {
		return fmt.Errorf("loading experiments: %w", err)
	}

	policy, err := doorframe.ParsePolicy(config.Experiments.NeutralPlane)
	if err != nil {
		return err
	}

	sheets, err := readSheets(config, experiments, logger)
	if err != nil {
		return err
	}

	dbPath, err := storagePath(&config.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage: %w", err)
	}
	store := storage.NewSqliteStore(dbPath)
	defer closeWithError(store, &err)

	if err = store.CreateRun(ctx, runID, config); err != nil {
		return fmt.Errorf("creating run: %w", err)
	}

	options := []func(*Orchestrator){
		WithWorkers(config.Settings.Workers),
	}
	if config.Export != nil {
		options = append(options, WithConsolidation(config.Export))
	}
	if config.Influx != nil {
		exporter, err := influx.NewExporter(*config.Influx, logger)
		if err != nil {
			return fmt.Errorf("creating influx exporter: %w", err)
		}
		defer exporter.Close()

		options = append(options, WithExporter(exporter))
	}

	logger.Info("run started",
		slog.String("database", dbPath),
		slog.Int("experiments", len(sheets)),
		slog.String("neutralPlane", string(policy)))

	start := time.Now()
	orchestrator := NewOrchestrator(runID, experiments, policy, store, logger, options...)
	if err = orchestrator.Run(ctx, sheets); err != nil {
		return err
	}

	if config.Export != nil {
		if err = writeConsolidated(config.Export.Path, orchestrator.Consolidated(), logger); err != nil {
			return err
		}
	}

	logger.Info("run finished", slog.Duration("elapsed", time.Since(start).Round(time.Millisecond)))
	return nil
}

// readSheets reads the selected experiment sheets. Without an explicit selection every
// sheet named after a known experiment is read and other sheets are skipped.
func readSheets(config *Config, experiments *experiment.Config, logger *slog.Logger) (sheets []*workbook.Sheet, err error) {
	reader, err := workbook.Open(config.Input.Workbook, config.Input.Layout)
	if err != nil {
		return nil, err
	}
	defer closeWithError(reader, &err)

	available := reader.Sheets()

	names := config.Experiments.Names
	if len(names) == 0 {
		for _, name := range available {
			if _, lookupErr := experiments.Lookup(name); lookupErr != nil {
				logger.Warn("skipping sheet without experiment configuration", slog.String("sheet", name))
				continue
			}
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no experiments to process in %s", config.Input.Workbook)
	}

	for _, name := range names {
		if !slices.Contains(available, name) {
			return nil, fmt.Errorf("experiment %s: no such sheet in %s", name, config.Input.Workbook)
		}
		if _, err = experiments.Lookup(name); err != nil {
			return nil, err
		}

		var sheet *workbook.Sheet
		if sheet, err = reader.Read(name); err != nil {
			return nil, err
		}

		logger.Debug("sheet read",
			slog.String("experiment", name),
			slog.String("doorRows", humanize.Comma(int64(sheet.Door.Len()))),
			slog.Bool("gas", sheet.Gas != nil))
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

func storagePath(config *StorageConfig) (string, error) {
	dir := config.DataDirectory
	if !filepath.IsAbs(dir) {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current working directory: %w", err)
		}
		dir = filepath.Join(wd, dir)
	}

	stat, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("storage directory '%s' does not exist: %w", dir, err)
		}
		return "", err
	}
	if !stat.IsDir() {
		return "", fmt.Errorf("invalid storage directory '%s'", dir)
	}

	return filepath.Join(dir, fmt.Sprintf("doorflow_%s.sqlite", time.Now().UTC().Format("20060102_150405"))), nil
}

func writeConsolidated(path string, sheets []workbook.NamedTable, logger *slog.Logger) error {
	if len(sheets) == 0 {
		logger.Warn("nothing to consolidate", slog.String("path", path))
		return nil
	}

	if err := workbook.Write(path, sheets); err != nil {
		return fmt.Errorf("writing consolidated workbook: %w", err)
	}

	attrs := []any{slog.String("path", path), slog.Int("sheets", len(sheets))}
	if info, err := os.Stat(path); err == nil {
		attrs = append(attrs, slog.String("size", humanize.Bytes(uint64(info.Size()))))
	}
	logger.Info("consolidated workbook written", attrs...)
	return nil
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
