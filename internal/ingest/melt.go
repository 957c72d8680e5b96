// Package ingest reshapes the upstream wide-format rent index export
// (one column per month) into the long-format dataset the pipeline
// consumes: one row per (zip, state, month) with a numeric value.
package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"rentpulse/internal/dataset"
)

// DefaultValueName is the value column written when none is configured.
const DefaultValueName = "zori_smoothed_seasonal"

// idColumns are the identifier columns of the upstream wide export;
// every other date-parseable header is a month of values.
var idColumns = map[string]struct{}{
	"RegionID":   {},
	"SizeRank":   {},
	"RegionName": {},
	"RegionType": {},
	"StateName":  {},
	"State":      {},
	"City":       {},
	"Metro":      {},
	"CountyName": {},
}

// zipPattern accepts only region ids that are exactly five digits;
// anything longer, shorter, or non-numeric is dropped, not truncated.
var zipPattern = regexp.MustCompile(`^\d{5}$`)

// Options controls the melt and the optional commit-safe subsetting.
type Options struct {
	ValueName    string
	SubsetStates []string // keep only these state codes; empty keeps all
	LastNMonths  int      // keep only the trailing N months; 0 keeps all
	MaxRows      int      // hard row cap after sorting; 0 means no cap
}

// Row is one long-format observation.
type Row struct {
	Date  time.Time
	Zip   string
	State string
	Value float64
}

// MeltWideToLong reads a wide CSV/XLSX export and melts it into sorted
// long rows. Rows without a parseable date, numeric value, and clean
// 5-digit zip are dropped.
func MeltWideToLong(path string, opts Options) ([]Row, error) {
	rows, err := dataset.ReadAll(path)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("wide input %s has no data rows", path)
	}

	header := rows[0]
	zipIdx, stateIdx := -1, -1
	type dateCol struct {
		idx   int
		month time.Time
	}
	var dateCols []dateCol

	for i, name := range header {
		switch name {
		case "RegionName":
			zipIdx = i
		case "State":
			stateIdx = i
		}
		if _, ok := idColumns[name]; ok {
			continue
		}
		if month, err := parseDateLabel(name); err == nil {
			dateCols = append(dateCols, dateCol{idx: i, month: month})
		}
	}

	if len(dateCols) == 0 {
		return nil, fmt.Errorf("wide input %s has no date columns in its header", path)
	}
	if zipIdx < 0 {
		return nil, fmt.Errorf("wide input %s has no RegionName column", path)
	}

	keepStates := make(map[string]struct{}, len(opts.SubsetStates))
	for _, s := range opts.SubsetStates {
		keepStates[strings.ToUpper(s)] = struct{}{}
	}

	var out []Row
	for _, record := range rows[1:] {
		if zipIdx >= len(record) {
			continue
		}
		zip := strings.TrimSpace(record[zipIdx])
		if !zipPattern.MatchString(zip) {
			continue
		}

		state := ""
		if stateIdx >= 0 && stateIdx < len(record) {
			state = strings.ToUpper(strings.TrimSpace(record[stateIdx]))
		}
		if len(keepStates) > 0 {
			if _, ok := keepStates[state]; !ok {
				continue
			}
		}

		for _, dc := range dateCols {
			if dc.idx >= len(record) {
				continue
			}
			value, err := strconv.ParseFloat(strings.TrimSpace(record[dc.idx]), 64)
			if err != nil {
				continue
			}
			out = append(out, Row{Date: dc.month, Zip: zip, State: state, Value: value})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Zip != out[j].Zip {
			return out[i].Zip < out[j].Zip
		}
		return out[i].Date.Before(out[j].Date)
	})

	if opts.LastNMonths > 0 && len(out) > 0 {
		var latest time.Time
		for _, r := range out {
			if r.Date.After(latest) {
				latest = r.Date
			}
		}
		cutoff := latest.AddDate(0, -(opts.LastNMonths - 1), 0)
		kept := out[:0]
		for _, r := range out {
			if !r.Date.Before(cutoff) {
				kept = append(kept, r)
			}
		}
		out = kept
	}

	if opts.MaxRows > 0 && len(out) > opts.MaxRows {
		out = out[:opts.MaxRows]
	}

	return out, nil
}

// WriteLongCSV writes melted rows as the long-format dataset with
// columns date, zip, state, and the configured value column.
func WriteLongCSV(rows []Row, valueName, outPath string) error {
	if valueName == "" {
		valueName = DefaultValueName
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"date", "zip", "state", valueName}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		record := []string{
			r.Date.Format("2006-01-02"),
			r.Zip,
			r.State,
			strconv.FormatFloat(r.Value, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	return writer.Error()
}

// parseDateLabel treats a header cell as a date column if it parses in
// any of the upstream export's date spellings.
func parseDateLabel(label string) (time.Time, error) {
	label = strings.TrimSpace(label)
	formats := []string{
		"2006-01-02",
		"1/2/2006",
		"01/02/2006",
		"2006-01",
		"Jan-2006",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, label); err == nil {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("not a date label: %s", label)
}
