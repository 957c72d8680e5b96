package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"rentpulse/internal/batch"
	"rentpulse/internal/config"
	"rentpulse/internal/infrastructure"
)

func main() {
	configFile := flag.String("config", "rentpulse.yaml", "path to YAML config file (optional)")
	datasetPath := flag.String("dataset", "", "dataset location: a CSV/XLSX file or a directory of partitions")
	geoLevel := flag.String("geo-level", "", "geography level: state, zip, metro, or a literal column name")
	geos := flag.String("geos", "", "comma-separated region list; empty or ALL processes every region")
	valueCol := flag.String("value-col", "", "value column to forecast")
	horizon := flag.Int("horizon", 0, "forecast horizon in months")
	mode := flag.String("mode", "", "volatility mode: forecast or residual")
	window := flag.Int("window", 0, "rolling window for residual-mode volatility")
	workers := flag.Int("workers", 0, "worker count; 0 uses the CPU count")
	forecastsDir := flag.String("forecasts-dir", "", "output root for forecast artifacts")
	volatilityDir := flag.String("volatility-dir", "", "output root for volatility artifacts")
	flag.Parse()

	// Validation runs after the flag overrides, since flags may supply
	// required fields like the dataset path.
	cfg, err := config.LoadUnvalidated(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if *datasetPath != "" {
		cfg.Dataset.Path = *datasetPath
	}
	if *geoLevel != "" {
		cfg.Dataset.GeoLevel = *geoLevel
	}
	if *valueCol != "" {
		cfg.Dataset.ValueColumn = *valueCol
	}
	if *geos != "" {
		cfg.Batch.Regions = splitList(*geos)
	}
	if *horizon > 0 {
		cfg.Batch.Horizon = *horizon
	}
	if *mode != "" {
		cfg.Batch.Mode = *mode
	}
	if *window > 0 {
		cfg.Batch.Window = *window
	}
	if *workers > 0 {
		cfg.Batch.Workers = *workers
	}
	if *forecastsDir != "" {
		cfg.Output.ForecastsDir = *forecastsDir
	}
	if *volatilityDir != "" {
		cfg.Output.VolatilityDir = *volatilityDir
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.SetupLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}

	orchestrator := batch.New(cfg, logger)
	report, err := orchestrator.Run(context.Background())
	if err != nil {
		logger.Error("Batch aborted", "error", err)
		os.Exit(1)
	}

	printReport(report)
	if len(report.Succeeded()) == 0 && len(report.Failed()) > 0 {
		os.Exit(1)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printReport(report *batch.Report) {
	succeeded := report.Succeeded()
	failed := report.Failed()

	fmt.Printf("\nRun %s finished: %d succeeded, %d failed (%s)\n",
		report.RunID, len(succeeded), len(failed),
		report.Finished.Sub(report.Started).Round(time.Millisecond))

	if len(failed) > 0 {
		fmt.Println("\nFailed regions:")
		for _, o := range failed {
			fmt.Printf("  %-12s %s\n", o.Region, o.Error)
		}
	}
}
