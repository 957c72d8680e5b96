// Package batch iterates regions and runs the per-region pipeline —
// extraction, forecasting, volatility — with bounded concurrency.
// Region-level failures are recorded and the batch continues; only
// dataset-level failures abort the run.
package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"rentpulse/internal/config"
	"rentpulse/internal/dataset"
	"rentpulse/internal/exporter"
	"rentpulse/internal/forecast"
	"rentpulse/internal/series"
	"rentpulse/internal/volatility"
)

// RegionOutcome records what happened to one region: the artifact
// paths on success, or the error that stopped it.
type RegionOutcome struct {
	Region         string `json:"region"`
	ForecastPath   string `json:"forecast_path,omitempty"`
	VolatilityPath string `json:"volatility_path,omitempty"`
	Err            error  `json:"-"`
	Error          string `json:"error,omitempty"`
}

// Report is the batch accounting: every region appears exactly once.
type Report struct {
	RunID    string          `json:"run_id"`
	Mode     volatility.Mode `json:"mode"`
	Started  time.Time       `json:"started"`
	Finished time.Time       `json:"finished"`
	Outcomes []RegionOutcome `json:"outcomes"`
}

// Succeeded returns the outcomes without an error.
func (r *Report) Succeeded() []RegionOutcome {
	var out []RegionOutcome
	for _, o := range r.Outcomes {
		if o.Err == nil {
			out = append(out, o)
		}
	}
	return out
}

// Failed returns the outcomes that recorded an error.
func (r *Report) Failed() []RegionOutcome {
	var out []RegionOutcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o)
		}
	}
	return out
}

// Orchestrator runs the batch for a fixed configuration.
type Orchestrator struct {
	cfg    *config.Config
	logger *slog.Logger
}

// New creates an orchestrator.
func New(cfg *config.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{cfg: cfg, logger: logger}
}

// Run executes the batch. The returned error is non-nil only for
// dataset-level failures (unreadable dataset, missing column), which
// abort before any region work; per-region failures live in the report.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:   uuid.NewString(),
		Mode:    volatility.Mode(o.cfg.Batch.Mode),
		Started: time.Now(),
	}
	logger := o.logger.With("run_id", report.RunID)

	geoColumn := dataset.GeoColumn(o.cfg.Dataset.GeoLevel)

	regions := o.cfg.Batch.Regions
	if o.cfg.AllRegions() {
		discovered, err := dataset.ListGeos(ctx, o.cfg.Dataset.Path, geoColumn)
		if err != nil {
			return nil, err
		}
		regions = discovered
	}

	// One shared read-only load; a schema fault surfaces here, before
	// any region work starts.
	frame, err := dataset.Select(ctx, o.cfg.Dataset.Path, geoColumn, series.DateColumn, o.cfg.Dataset.ValueColumn)
	if err != nil {
		return nil, err
	}

	writer := exporter.NewWriter(o.cfg.Output.ForecastsDir, o.cfg.Output.VolatilityDir, o.cfg.Dataset.GeoLevel, logger)
	engine := forecast.NewEngine(o.cfg.Batch.Horizon, logger)
	workers := o.cfg.WorkerCount()

	logger.InfoContext(ctx, "starting batch",
		"dataset", o.cfg.Dataset.Path,
		"geo_level", o.cfg.Dataset.GeoLevel,
		"value_column", o.cfg.Dataset.ValueColumn,
		"regions", len(regions),
		"mode", o.cfg.Batch.Mode,
		"workers", workers,
	)

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for _, region := range regions {
		region := region
		group.Go(func() error {
			outcome := o.processRegion(groupCtx, frame, region, engine, writer)
			if outcome.Err != nil {
				outcome.Error = outcome.Err.Error()
				logger.WarnContext(groupCtx, "region failed",
					"region", region,
					"error", outcome.Err,
				)
			}
			mu.Lock()
			report.Outcomes = append(report.Outcomes, outcome)
			mu.Unlock()
			return nil // region failures never stop the batch
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	report.Finished = time.Now()

	logger.InfoContext(ctx, "batch finished",
		"succeeded", len(report.Succeeded()),
		"failed", len(report.Failed()),
		"duration", report.Finished.Sub(report.Started),
	)
	return report, nil
}

// processRegion runs one region end to end. In forecast mode the
// volatility index is derived from the persisted forecast artifact
// read back from disk, so the artifact is what gets measured, not the
// in-memory result. In residual mode the index comes straight from the
// raw series and no forecast is attempted.
func (o *Orchestrator) processRegion(ctx context.Context, frame *dataset.Frame, region string, engine *forecast.Engine, writer *exporter.Writer) RegionOutcome {
	outcome := RegionOutcome{Region: region}
	geoColumn := dataset.GeoColumn(o.cfg.Dataset.GeoLevel)

	s, err := series.FromFrame(frame, geoColumn, region, o.cfg.Dataset.ValueColumn)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	var vol *volatility.Result
	switch volatility.Mode(o.cfg.Batch.Mode) {
	case volatility.ModeResidual:
		vol, err = volatility.FromResiduals(s, o.cfg.Batch.Window)
		if err != nil {
			outcome.Err = err
			return outcome
		}

	default:
		fc, err := engine.Forecast(ctx, s)
		if err != nil {
			outcome.Err = err
			return outcome
		}

		path, err := writer.WriteForecast(fc)
		if err != nil {
			outcome.Err = err
			return outcome
		}
		outcome.ForecastPath = path

		persisted, err := exporter.ReadForecast(path, region)
		if err != nil {
			outcome.Err = err
			return outcome
		}
		vol = volatility.FromForecast(persisted)
	}

	path, err := writer.WriteVolatility(vol)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.VolatilityPath = path
	return outcome
}
