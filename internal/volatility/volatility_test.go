package volatility

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentpulse/internal/forecast"
	"rentpulse/internal/series"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestModeValid(t *testing.T) {
	assert.True(t, ModeForecast.Valid())
	assert.True(t, ModeResidual.Valid())
	assert.False(t, Mode("").Valid())
	assert.False(t, Mode("garch").Valid())
}

func TestFromForecast(t *testing.T) {
	t.Run("normalized interval width", func(t *testing.T) {
		fc := &forecast.Result{
			Region: "30301",
			Points: []forecast.Point{
				{Month: month(2024, 1), Mean: 100, Lower: 90, Upper: 110},
				{Month: month(2024, 2), Mean: 200, Lower: 190, Upper: 210},
			},
		}

		result := FromForecast(fc)
		assert.Equal(t, "30301", result.Region)
		assert.Equal(t, ModeForecast, result.Mode)
		require.Len(t, result.Points, 2)

		assert.InDelta(t, 0.2, result.Points[0].Index, 1e-12)
		assert.InDelta(t, 0.1, result.Points[1].Index, 1e-12)
	})

	t.Run("zero mean is missing not infinite", func(t *testing.T) {
		fc := &forecast.Result{
			Region: "GA",
			Points: []forecast.Point{
				{Month: month(2024, 1), Mean: 0, Lower: -5, Upper: 5},
				{Month: month(2024, 2), Mean: 100, Lower: 95, Upper: 105},
			},
		}

		result := FromForecast(fc)
		require.Len(t, result.Points, 2)

		// The degenerate period stays in the output as an explicit gap.
		assert.True(t, result.Points[0].IsMissing())
		assert.Equal(t, month(2024, 1), result.Points[0].Month)
		assert.InDelta(t, 0.1, result.Points[1].Index, 1e-12)
	})

	t.Run("negative mean normalizes by magnitude", func(t *testing.T) {
		fc := &forecast.Result{
			Region: "GA",
			Points: []forecast.Point{
				{Month: month(2024, 1), Mean: -50, Lower: -60, Upper: -40},
			},
		}

		result := FromForecast(fc)
		require.Len(t, result.Points, 1)
		assert.InDelta(t, 0.4, result.Points[0].Index, 1e-12)
	})
}

func residualFixture(region string, values []float64) *series.RegionSeries {
	s := &series.RegionSeries{Region: region, Column: "zori"}
	start := month(2023, 1)
	for i, v := range values {
		s.Obs = append(s.Obs, series.Observation{Month: start.AddDate(0, i, 0), Value: v})
	}
	return s
}

func TestFromResiduals(t *testing.T) {
	t.Run("leading undefined periods are dropped", func(t *testing.T) {
		values := make([]float64, 20)
		for i := range values {
			values[i] = 100
		}
		s := residualFixture("TX", values)

		result, err := FromResiduals(s, 12)
		require.NoError(t, err)
		assert.Equal(t, ModeResidual, result.Mode)

		// The trend needs 6 trailing observations and the residual std
		// another 6, so the first defined period is month index 10.
		require.Len(t, result.Points, 10)
		assert.Equal(t, month(2023, 11), result.Points[0].Month)
		for _, p := range result.Points {
			assert.InDelta(t, 0.0, p.Index, 1e-12)
		}
	})

	t.Run("dispersion scales the index", func(t *testing.T) {
		// Alternate around a flat level of 100.
		values := make([]float64, 24)
		for i := range values {
			values[i] = 100
			if i%2 == 0 {
				values[i] = 104
			} else {
				values[i] = 96
			}
		}
		s := residualFixture("GA", values)

		result, err := FromResiduals(s, 12)
		require.NoError(t, err)
		require.NotEmpty(t, result.Points)

		for _, p := range result.Points {
			assert.False(t, p.IsMissing())
			assert.Greater(t, p.Index, 0.0)
			assert.Less(t, p.Index, 0.1)
		}

		// Output is sorted ascending by month.
		for i := 1; i < len(result.Points); i++ {
			assert.True(t, result.Points[i-1].Month.Before(result.Points[i].Month))
		}
	})

	t.Run("gaps in the raw series are skipped", func(t *testing.T) {
		values := make([]float64, 24)
		for i := range values {
			values[i] = 100 + float64(i%3)
		}
		values[14] = math.NaN()
		s := residualFixture("CA", values)

		result, err := FromResiduals(s, 12)
		require.NoError(t, err)

		for _, p := range result.Points {
			assert.NotEqual(t, month(2023, 1).AddDate(0, 14, 0), p.Month)
			assert.False(t, p.IsMissing())
		}
	})

	t.Run("window too small", func(t *testing.T) {
		s := residualFixture("GA", []float64{1, 2, 3})
		_, err := FromResiduals(s, 1)
		assert.Error(t, err)
	})
}
