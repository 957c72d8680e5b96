package exporter

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentpulse/internal/forecast"
	"rentpulse/internal/volatility"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestWriterPaths(t *testing.T) {
	w := NewWriter("out/forecasts", "out/volatility", "zip", nil)

	assert.Equal(t,
		filepath.Join("out", "forecasts", "zip=30301", "forecast.csv"),
		w.ForecastPath("30301"))
	assert.Equal(t,
		filepath.Join("out", "volatility", "zip=30301", "volatility.csv"),
		w.VolatilityPath("30301"))
}

func TestForecastRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(filepath.Join(dir, "forecasts"), filepath.Join(dir, "volatility"), "state", nil)

	fc := &forecast.Result{
		Region:  "GA",
		Horizon: 3,
		Points: []forecast.Point{
			{Month: month(2024, 10), Mean: 1850.123456789, Lower: 1800.5, Upper: 1899.75},
			{Month: month(2024, 11), Mean: 1852, Lower: 1795.25, Upper: 1908.0000001},
			{Month: month(2024, 12), Mean: 1853.5, Lower: 1790, Upper: 1917},
		},
	}

	path, err := w.WriteForecast(fc)
	require.NoError(t, err)
	assert.Equal(t, w.ForecastPath("GA"), path)

	got, err := ReadForecast(path, "GA")
	require.NoError(t, err)

	assert.Equal(t, "GA", got.Region)
	assert.Equal(t, 3, got.Horizon)
	require.Len(t, got.Points, 3)
	for i, p := range got.Points {
		assert.Equal(t, fc.Points[i].Month, p.Month, "row %d", i)
		assert.Equal(t, fc.Points[i].Mean, p.Mean, "row %d", i)
		assert.Equal(t, fc.Points[i].Lower, p.Lower, "row %d", i)
		assert.Equal(t, fc.Points[i].Upper, p.Upper, "row %d", i)
	}
}

func TestWriteForecastHeader(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, dir, "state", nil)

	path, err := w.WriteForecast(&forecast.Result{Region: "TX", Horizon: 1, Points: []forecast.Point{
		{Month: month(2025, 1), Mean: 100, Lower: 95, Upper: 105},
	}})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "date,mean,ci95_lo,ci95_hi\n2025-01-01,100,95,105\n", string(data))
}

func TestWriteVolatility(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, dir, "zip", nil)

	v := &volatility.Result{
		Region: "30301",
		Mode:   volatility.ModeForecast,
		Points: []volatility.Point{
			{Month: month(2024, 10), Index: 0.0534},
			{Month: month(2024, 11), Index: math.NaN()},
			{Month: month(2024, 12), Index: 0.0621},
		},
	}

	path, err := w.WriteVolatility(v)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// Missing periods stay in the file as empty fields.
	assert.Equal(t,
		"date,volatility_index\n"+
			"2024-10-01,0.0534\n"+
			"2024-11-01,\n"+
			"2024-12-01,0.0621\n",
		string(data))
}

func TestReadForecastErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := ReadForecast(filepath.Join(t.TempDir(), "absent.csv"), "GA")
		assert.Error(t, err)
	})

	t.Run("malformed row", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "forecast.csv")
		content := "date,mean,ci95_lo,ci95_hi\n2024-10-01,abc,95,105\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		_, err := ReadForecast(path, "GA")
		assert.Error(t, err)
	})
}
