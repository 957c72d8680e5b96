// Package exporter persists per-region forecast and volatility
// artifacts as CSV files under region-keyed directories, and reads
// forecast artifacts back for forecast-mode volatility.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"rentpulse/internal/forecast"
	"rentpulse/internal/volatility"
)

const (
	// ForecastFile is the artifact file name inside a region directory.
	ForecastFile = "forecast.csv"
	// VolatilityFile is the artifact file name inside a region directory.
	VolatilityFile = "volatility.csv"

	dateLayout = "2006-01-02"
)

// Writer writes per-region artifacts under configured root
// directories. Each region owns a distinct directory named
// <level>=<region>, so concurrent writers never share a path.
type Writer struct {
	forecastsRoot  string
	volatilityRoot string
	level          string
	logger         *slog.Logger
}

// NewWriter creates an artifact writer for the given output roots and
// geography level.
func NewWriter(forecastsRoot, volatilityRoot, level string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		forecastsRoot:  forecastsRoot,
		volatilityRoot: volatilityRoot,
		level:          level,
		logger:         logger,
	}
}

// ForecastPath returns the artifact path for a region's forecast.
func (w *Writer) ForecastPath(region string) string {
	return filepath.Join(w.forecastsRoot, w.regionDir(region), ForecastFile)
}

// VolatilityPath returns the artifact path for a region's volatility index.
func (w *Writer) VolatilityPath(region string) string {
	return filepath.Join(w.volatilityRoot, w.regionDir(region), VolatilityFile)
}

func (w *Writer) regionDir(region string) string {
	return fmt.Sprintf("%s=%s", w.level, region)
}

// WriteForecast persists a forecast result and returns the artifact path.
func (w *Writer) WriteForecast(fc *forecast.Result) (string, error) {
	path := w.ForecastPath(fc.Region)

	records := make([][]string, 0, len(fc.Points))
	for _, p := range fc.Points {
		records = append(records, []string{
			p.Month.Format(dateLayout),
			formatValue(p.Mean),
			formatValue(p.Lower),
			formatValue(p.Upper),
		})
	}

	header := []string{"date", "mean", "ci95_lo", "ci95_hi"}
	if err := writeCSV(path, header, records); err != nil {
		return "", fmt.Errorf("write forecast artifact for %s: %w", fc.Region, err)
	}

	w.logger.Debug("wrote forecast artifact",
		"region", fc.Region,
		"path", path,
		"periods", len(fc.Points),
	)
	return path, nil
}

// WriteVolatility persists a volatility result and returns the
// artifact path. Missing index values become empty fields.
func (w *Writer) WriteVolatility(v *volatility.Result) (string, error) {
	path := w.VolatilityPath(v.Region)

	records := make([][]string, 0, len(v.Points))
	for _, p := range v.Points {
		index := ""
		if !p.IsMissing() {
			index = formatValue(p.Index)
		}
		records = append(records, []string{p.Month.Format(dateLayout), index})
	}

	header := []string{"date", "volatility_index"}
	if err := writeCSV(path, header, records); err != nil {
		return "", fmt.Errorf("write volatility artifact for %s: %w", v.Region, err)
	}

	w.logger.Debug("wrote volatility artifact",
		"region", v.Region,
		"path", path,
		"mode", string(v.Mode),
		"periods", len(v.Points),
	)
	return path, nil
}

// ReadForecast loads a forecast artifact back into a Result. The
// month, mean, and interval bounds round-trip exactly.
func ReadForecast(path, region string) (*forecast.Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open forecast artifact: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read forecast artifact: %w", err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("forecast artifact %s is empty", path)
	}

	result := &forecast.Result{Region: region, Horizon: len(rows) - 1}
	for i, row := range rows[1:] {
		if len(row) < 4 {
			return nil, fmt.Errorf("forecast artifact %s row %d: expected 4 fields, got %d", path, i+2, len(row))
		}

		month, err := time.Parse(dateLayout, row[0])
		if err != nil {
			return nil, fmt.Errorf("forecast artifact %s row %d: parse date: %w", path, i+2, err)
		}
		mean, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("forecast artifact %s row %d: parse mean: %w", path, i+2, err)
		}
		lower, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("forecast artifact %s row %d: parse ci95_lo: %w", path, i+2, err)
		}
		upper, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("forecast artifact %s row %d: parse ci95_hi: %w", path, i+2, err)
		}

		result.Points = append(result.Points, forecast.Point{
			Month: month.UTC(),
			Mean:  mean,
			Lower: lower,
			Upper: upper,
		})
	}

	return result, nil
}

// writeCSV writes a header and records to a freshly created file,
// making parent directories as needed.
func writeCSV(path string, header []string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create artifact file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	return writer.Error()
}

// formatValue renders a float with the fewest digits that still parse
// back to the identical value.
func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
