// Package forecast fits a fixed-order seasonal ARIMA model to a
// region's monthly history and produces point forecasts with 95%
// confidence bands.
package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rentpulse/internal/series"
)

const (
	// DefaultHorizon is the number of future months forecast when the
	// caller does not say otherwise.
	DefaultHorizon = 9

	// MinHistoryMonths is the minimum count of non-missing observations
	// required to support one seasonal cycle plus differencing.
	MinHistoryMonths = 24

	// ConfidenceLevel of the two-sided forecast interval.
	ConfidenceLevel = 0.95
)

// InsufficientHistoryError reports a region with too few observations
// for the fixed model order. Fatal to that region's forecast only.
type InsufficientHistoryError struct {
	Region   string
	Observed int
	Required int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("region %q has %d non-missing months, need at least %d",
		e.Region, e.Observed, e.Required)
}

// FitError reports numerical non-convergence of the model fit for one
// region. Fatal to that region's forecast only.
type FitError struct {
	Region string
	Err    error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("region %q: forecast fit failed: %v", e.Region, e.Err)
}

func (e *FitError) Unwrap() error {
	return e.Err
}

// Point is one forecast period: a point estimate with its two-sided
// interval. Degenerate fits may place Mean outside [Lower, Upper];
// that is tolerated, not corrected.
type Point struct {
	Month time.Time `json:"month"`
	Mean  float64   `json:"mean"`
	Lower float64   `json:"ci95_lo"`
	Upper float64   `json:"ci95_hi"`
}

// Result is a region's forecast over the requested horizon.
type Result struct {
	Region  string  `json:"region"`
	Horizon int     `json:"horizon"`
	Points  []Point `json:"points"`
}

// Engine produces forecasts for region series. It holds no per-region
// state and is safe for concurrent use.
type Engine struct {
	order   Order
	horizon int
	logger  *slog.Logger
}

// NewEngine creates a forecast engine with the given horizon. A
// non-positive horizon falls back to DefaultHorizon.
func NewEngine(horizon int, logger *slog.Logger) *Engine {
	if horizon < 1 {
		horizon = DefaultHorizon
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		order:   DefaultOrder(),
		horizon: horizon,
		logger:  logger,
	}
}

// Forecast fits the model to one region's history and forecasts the
// next horizon months. The fit itself is CPU-bound and runs to
// completion; cancellation is only observed before it starts.
func (e *Engine) Forecast(ctx context.Context, s *series.RegionSeries) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	history := s.Trim()
	observed := history.NonMissing()
	if observed < MinHistoryMonths {
		return nil, &InsufficientHistoryError{
			Region:   s.Region,
			Observed: observed,
			Required: MinHistoryMonths,
		}
	}

	// Interior gaps are bridged so the CSS recursions see a dense
	// sequence; the raw series keeps its missing markers.
	values := history.Interpolated().Values()

	start := time.Now()
	m, err := fitModel(values, e.order)
	if err != nil {
		return nil, &FitError{Region: s.Region, Err: err}
	}

	means, lower, upper, err := m.predict(e.horizon, ConfidenceLevel)
	if err != nil {
		return nil, &FitError{Region: s.Region, Err: err}
	}

	e.logger.DebugContext(ctx, "forecast fitted",
		"region", s.Region,
		"order", e.order.String(),
		"observations", observed,
		"horizon", e.horizon,
		"duration", time.Since(start),
	)

	result := &Result{Region: s.Region, Horizon: e.horizon}
	last := history.LastMonth()
	for h := 0; h < e.horizon; h++ {
		result.Points = append(result.Points, Point{
			Month: last.AddDate(0, h+1, 0),
			Mean:  means[h],
			Lower: lower[h],
			Upper: upper[h],
		})
	}
	return result, nil
}
