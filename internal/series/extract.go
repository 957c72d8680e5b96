package series

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"rentpulse/internal/dataset"
)

// EmptySeriesError reports a region with no rows in the dataset. The
// available regions are carried as a diagnostic aid.
type EmptySeriesError struct {
	Region    string
	Available []string
}

func (e *EmptySeriesError) Error() string {
	return fmt.Sprintf("region %q has no rows; available regions: %s",
		e.Region, strings.Join(e.Available, ", "))
}

// DuplicateMonthError reports two source rows for the same region and
// month. Duplicates are resolved by the upstream reshaping stage, so a
// violation here is a data-quality fault, not something to average away.
type DuplicateMonthError struct {
	Region string
	Month  time.Time
}

func (e *DuplicateMonthError) Error() string {
	return fmt.Sprintf("region %q has duplicate rows for month %s",
		e.Region, e.Month.Format("2006-01"))
}

// DateColumn is the dataset column holding the observation date.
const DateColumn = "date"

// FromDataset extracts the monthly series for one region directly from
// a dataset location, loading only the needed columns.
func FromDataset(ctx context.Context, location, geoColumn, region, valueColumn string) (*RegionSeries, error) {
	frame, err := dataset.Select(ctx, location, geoColumn, DateColumn, valueColumn)
	if err != nil {
		return nil, err
	}
	return FromFrame(frame, geoColumn, region, valueColumn)
}

// FromFrame extracts the monthly series for one region from an already
// loaded table. Rows are filtered by region, dates parsed to month
// granularity, values coerced to float64 (unparseable values become
// missing), sorted ascending, checked for duplicate months, and
// reindexed onto a gap-free monthly calendar.
func FromFrame(frame *dataset.Frame, geoColumn, region, valueColumn string) (*RegionSeries, error) {
	geoIdx := frame.ColumnIndex(geoColumn)
	dateIdx := frame.ColumnIndex(DateColumn)
	valueIdx := frame.ColumnIndex(valueColumn)
	if geoIdx < 0 || dateIdx < 0 || valueIdx < 0 {
		return nil, fmt.Errorf("frame is missing one of columns %q, %q, %q",
			geoColumn, DateColumn, valueColumn)
	}

	s := &RegionSeries{Region: region, Column: valueColumn}
	available := make(map[string]struct{})

	for _, row := range frame.Records {
		if geoIdx >= len(row) || dateIdx >= len(row) || valueIdx >= len(row) {
			continue
		}
		available[row[geoIdx]] = struct{}{}
		if row[geoIdx] != region {
			continue
		}

		month, err := parseMonth(row[dateIdx])
		if err != nil {
			continue // undated rows carry no usable observation
		}

		value := math.NaN()
		if v, err := strconv.ParseFloat(strings.TrimSpace(row[valueIdx]), 64); err == nil {
			value = v
		}

		s.Obs = append(s.Obs, Observation{Month: month, Value: value})
	}

	if len(s.Obs) == 0 {
		regions := make([]string, 0, len(available))
		for r := range available {
			if r != "" {
				regions = append(regions, r)
			}
		}
		sort.Strings(regions)
		return nil, &EmptySeriesError{Region: region, Available: regions}
	}

	sort.Slice(s.Obs, func(i, j int) bool {
		return s.Obs[i].Month.Before(s.Obs[j].Month)
	})

	for i := 1; i < len(s.Obs); i++ {
		if s.Obs[i].Month.Equal(s.Obs[i-1].Month) {
			return nil, &DuplicateMonthError{Region: region, Month: s.Obs[i].Month}
		}
	}

	return s.Reindex(), nil
}

// parseMonth parses a date string in any of the common dataset formats
// and truncates it to month granularity.
func parseMonth(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)
	formats := []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006/01/02",
		"1/2/2006",
		"01/02/2006",
		"2006-01",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return MonthOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}
