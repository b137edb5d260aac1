package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/doorflow/internal/storage"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	return renderExperiment(ctx, store, config, logger)
}

func renderExperiment(ctx context.Context, store storage.Store, config *Config, logger *slog.Logger) (err error) {
	e, err := store.Experiment(ctx, config.RunID, config.Experiment)
	if err != nil {
		return fmt.Errorf("finding experiment: %w", err)
	}

	var opts []storage.ReaderOption
	var filters []any
	switch {
	case config.StartTime != nil && config.EndTime != nil:
		opts = append(opts, storage.WithTimeRange(*config.StartTime, *config.EndTime))
		filters = append(filters,
			slog.String("startTime", formatTestingTime(*config.StartTime)),
			slog.String("endTime", formatTestingTime(*config.EndTime)))

	case config.StartTime != nil:
		opts = append(opts, storage.WithStartTime(*config.StartTime))
		filters = append(filters, slog.String("startTime", formatTestingTime(*config.StartTime)))

	case config.EndTime != nil:
		opts = append(opts, storage.WithEndTime(*config.EndTime))
		filters = append(filters, slog.String("endTime", formatTestingTime(*config.EndTime)))
	}

	logger.Debug("iterator configuration",
		append(filters, slog.String("experiment", e.Name), slog.String("run", e.RunID))...)

	iter, err := store.ReadProfiles(ctx, e.ID, opts...)
	if err != nil {
		return err
	}
	defer closeWithError(iter, &err)

	vm := NewVelocityMap(NewVelocityHistogram())
	for iter.Next(ctx) {
		if err = vm.Update(iter.Current()); err != nil {
			return err
		}
	}
	if err = iter.Error(); err != nil {
		return err
	}
	if vm.Width() == 0 {
		return fmt.Errorf("experiment %s has no profiles in the selected time range", e.Name)
	}

	bounds := vm.Histogram.GetPercentileBounds()
	if config.MaxVelocity != nil {
		bounds = symmetricBounds(*config.MaxVelocity, bounds.Mean)
	}

	logger.Info("finished reading profiles",
		slog.Group("stats",
			slog.String("profiles", humanize.Comma(int64(vm.Width()))),
			slog.String("readings", humanize.Comma(int64(vm.Histogram.Count()))),
			slog.String("startTime", formatTestingTime(vm.TimeStart)),
			slog.String("endTime", formatTestingTime(vm.TimeEnd)),
			slog.String("maxVelocity", fmt.Sprintf("%0.2fm/s", bounds.Max)),
			slog.String("meanVelocity", fmt.Sprintf("%0.2fm/s", bounds.Mean)),
		))

	renderer := NewMapRenderer(RenderConfig{
		ColorTheme:    config.Theme,
		NoAnnotations: config.NoAnnotations,
	})

	img, err := renderer.Render(vm, bounds, Caption{Experiment: e.Name, RunID: e.RunID})
	if err != nil {
		return fmt.Errorf("rendering velocity map: %w", err)
	}

	logger.Info("rendering velocity map",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
			slog.Int("width", img.Bounds().Dx()),
			slog.Int("height", img.Bounds().Dy()),
		))

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer closeWithError(out, &err)

	switch config.Format {
	case ImagePNG:
		err = png.Encode(out, img)

	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})
	}
	return err
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
