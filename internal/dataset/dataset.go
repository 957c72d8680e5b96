// Package dataset provides read-only access to the long-format rent
// index dataset: a single CSV/XLSX file or a directory of partitioned
// files, treated as one table.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// AccessError reports a dataset that cannot be read or a required
// column that does not exist. It is fatal to the whole batch since
// nothing downstream can proceed without the data.
type AccessError struct {
	Location string
	Column   string
	Err      error
}

func (e *AccessError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("dataset %s: column %q not found", e.Location, e.Column)
	}
	return fmt.Sprintf("dataset %s: %v", e.Location, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// asAccessError wraps a read failure for one part file, passing through
// errors that already carry their location.
func asAccessError(path string, err error) error {
	var accessErr *AccessError
	if errors.As(err, &accessErr) {
		return err
	}
	return &AccessError{Location: path, Err: err}
}

// Frame is a minimal in-memory table: a header and row-major string
// records. Values stay untyped; coercion happens at the series
// extractor boundary.
type Frame struct {
	Columns []string
	Records [][]string
}

// ColumnIndex returns the position of a named column, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// GeoColumn maps a geography level to its dataset column name. Levels
// without a fixed mapping are treated as literal column names.
func GeoColumn(level string) string {
	switch strings.ToLower(level) {
	case "state":
		return "state"
	case "zip":
		return "zip"
	case "metro":
		return "RegionName"
	default:
		return level
	}
}

// partFiles resolves a dataset location to the ordered list of files
// that make it up. A plain file is a single-part dataset; a directory
// is walked for CSV and XLSX partitions.
func partFiles(location string) ([]string, error) {
	info, err := os.Stat(location)
	if err != nil {
		return nil, &AccessError{Location: location, Err: err}
	}

	if !info.IsDir() {
		return []string{location}, nil
	}

	var files []string
	err = filepath.Walk(location, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(info.Name())) {
		case ".csv", ".xlsx":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, &AccessError{Location: location, Err: err}
	}
	if len(files) == 0 {
		return nil, &AccessError{Location: location, Err: fmt.Errorf("no CSV or XLSX files found")}
	}

	sort.Strings(files)
	return files, nil
}

// ReadAll loads every row of a single CSV or XLSX file, header first.
// Wide-format inputs are reshaped by the ingest package, which needs
// the full table rather than a column selection.
func ReadAll(path string) ([][]string, error) {
	var rows [][]string
	var err error
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err = readXLSXRows(path)
	} else {
		rows, err = readCSVRows(path)
	}
	if err != nil {
		return nil, &AccessError{Location: path, Err: err}
	}
	return rows, nil
}

// scanFile streams one part file through the callbacks: onHeader once
// with the header row, then onRow per data row. CSV parts are read
// record by record, so a caller holds only the cells it retains rather
// than the whole table. XLSX parts go through excelize, which loads
// the sheet as a unit. A file without rows invokes neither callback.
func scanFile(path string, onHeader func([]string) error, onRow func([]string) error) error {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err := readXLSXRows(path)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		if err := onHeader(rows[0]); err != nil {
			return err
		}
		for _, row := range rows[1:] {
			if err := onRow(row); err != nil {
				return err
			}
		}
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read CSV header: %w", err)
	}
	if err := onHeader(header); err != nil {
		return err
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read CSV record: %w", err)
		}
		if err := onRow(row); err != nil {
			return err
		}
	}
}

func readCSVRows(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV records: %w", err)
	}
	return rows, nil
}

func readXLSXRows(path string) ([][]string, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open XLSX file: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("XLSX file has no sheets")
	}

	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read XLSX rows: %w", err)
	}
	return rows, nil
}

// isNull reports whether a raw cell should be treated as absent.
func isNull(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "na", "n/a", "nan", "null":
		return true
	}
	return false
}
