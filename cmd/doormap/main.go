package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/roman-kulish/doorflow/cmd/doormap/app"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	config, err := app.NewConfigFromCLI()
	if err != nil {
		logger.Error("invalid arguments", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logLevel.Set(slog.LevelInfo)
	if config.Verbose {
		logLevel.Set(slog.LevelDebug)
	}

	run := config.RunID
	if run == "" {
		run = "latest"
	}
	logger.Debug("velocity map requested",
		slog.String("db", config.DBPath),
		slog.String("experiment", config.Experiment),
		slog.String("run", run),
		slog.String("output", config.OutputFile))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = app.Run(ctx, config, logger); err != nil {
		logger.Error("rendering failed", slog.String("experiment", config.Experiment), slog.String("error", err.Error()))

		cancel()
		os.Exit(1)
	}
}
