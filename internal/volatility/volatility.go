// Package volatility derives a dimensionless per-month dispersion
// index for a region, either from a forecast's confidence band or from
// residuals around a rolling trend of the raw series.
package volatility

import (
	"fmt"
	"math"
	"time"

	"rentpulse/internal/forecast"
	"rentpulse/internal/series"
)

// Mode selects the estimation algorithm. The two modes take different
// inputs and have different missing-value behavior, so callers dispatch
// on the mode once at this package's boundary.
type Mode string

const (
	// ModeForecast derives the index from a forecast interval width.
	ModeForecast Mode = "forecast"
	// ModeResidual derives the index from rolling residual dispersion.
	ModeResidual Mode = "residual"
)

// Valid reports whether the mode is one of the two known variants.
func (m Mode) Valid() bool {
	return m == ModeForecast || m == ModeResidual
}

// DefaultWindow is the rolling window width for residual mode.
const DefaultWindow = 12

// nearZero is the denominator threshold below which the index is
// undefined rather than allowed to blow up.
const nearZero = 1e-12

// Point is one period of the volatility index. In forecast mode a NaN
// index marks a period whose normalizing denominator was zero.
type Point struct {
	Month time.Time `json:"month"`
	Index float64   `json:"volatility_index"`
}

// IsMissing reports whether the index is undefined for this period.
func (p Point) IsMissing() bool {
	return math.IsNaN(p.Index)
}

// Result is a region's volatility index, sorted ascending by month.
type Result struct {
	Region string  `json:"region"`
	Mode   Mode    `json:"mode"`
	Points []Point `json:"points"`
}

// FromForecast computes the index for every forecast period as the
// interval width normalized by the absolute point estimate. A zero or
// near-zero point estimate makes that period's index explicitly
// missing; every forecast period stays present in the output.
func FromForecast(fc *forecast.Result) *Result {
	result := &Result{Region: fc.Region, Mode: ModeForecast}
	for _, p := range fc.Points {
		index := math.NaN()
		if denom := math.Abs(p.Mean); denom > nearZero {
			index = math.Abs(p.Upper-p.Lower) / denom
		}
		result.Points = append(result.Points, Point{Month: p.Month, Index: index})
	}
	return result
}

// FromResiduals computes the index from the raw series: a trailing
// rolling mean of width window is the trend, the rolling standard
// deviation of the detrended residuals is the dispersion, and the
// index is their ratio. Periods without enough trailing history for
// both rolling statistics are dropped from the output entirely, unlike
// forecast mode which keeps explicit missing markers.
func FromResiduals(s *series.RegionSeries, window int) (*Result, error) {
	if window < 2 {
		return nil, fmt.Errorf("rolling window must be at least 2, got %d", window)
	}

	minPeriods := window / 2
	if minPeriods < 3 {
		minPeriods = 3
	}

	values := s.Values()
	months := s.Months()
	trend := series.RollingMean(values, window, minPeriods)

	// Residuals exist only where both the raw value and the trend are
	// defined; the rolling std then runs positionally over that
	// compacted sequence.
	var residuals []float64
	var residualIdx []int
	for i := range values {
		if math.IsNaN(values[i]) || math.IsNaN(trend[i]) {
			continue
		}
		residuals = append(residuals, values[i]-trend[i])
		residualIdx = append(residualIdx, i)
	}

	stds := series.RollingStd(residuals, window, minPeriods)

	result := &Result{Region: s.Region, Mode: ModeResidual}
	for j, std := range stds {
		if math.IsNaN(std) {
			continue
		}
		i := residualIdx[j]
		if math.Abs(trend[i]) <= nearZero {
			continue
		}
		result.Points = append(result.Points, Point{
			Month: months[i],
			Index: std / trend[i],
		})
	}
	return result, nil
}
