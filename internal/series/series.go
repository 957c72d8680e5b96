package series

import (
	"math"
	"time"
)

// Observation is a single monthly data point. A missing month carries
// NaN so gaps stay visible to downstream rolling statistics.
type Observation struct {
	Month time.Time `json:"month"`
	Value float64   `json:"value"`
}

// IsMissing reports whether the observation carries no value.
func (o Observation) IsMissing() bool {
	return math.IsNaN(o.Value)
}

// RegionSeries is one region's monthly value history. After Reindex the
// months are strictly increasing, deduplicated, and contiguous at
// calendar-month granularity with explicit missing markers for gaps.
type RegionSeries struct {
	Region string        `json:"region"`
	Column string        `json:"column"`
	Obs    []Observation `json:"observations"`
}

// Len returns the number of observations, missing entries included.
func (s *RegionSeries) Len() int {
	return len(s.Obs)
}

// NonMissing returns the count of observations that carry a value.
func (s *RegionSeries) NonMissing() int {
	count := 0
	for _, o := range s.Obs {
		if !o.IsMissing() {
			count++
		}
	}
	return count
}

// Values returns the value sequence, NaN for missing months.
func (s *RegionSeries) Values() []float64 {
	values := make([]float64, len(s.Obs))
	for i, o := range s.Obs {
		values[i] = o.Value
	}
	return values
}

// Months returns the month sequence.
func (s *RegionSeries) Months() []time.Time {
	months := make([]time.Time, len(s.Obs))
	for i, o := range s.Obs {
		months[i] = o.Month
	}
	return months
}

// LastMonth returns the final month of the series, or the zero time for
// an empty series.
func (s *RegionSeries) LastMonth() time.Time {
	if len(s.Obs) == 0 {
		return time.Time{}
	}
	return s.Obs[len(s.Obs)-1].Month
}

// Reindex maps the series onto a fixed-frequency monthly calendar
// spanning the observed min/max month, inserting a missing marker for
// any calendar month with no observation. Reindexing an already
// contiguous series returns an identical copy, so the operation is
// idempotent. Observations are assumed sorted with unique months, which
// the extractor guarantees.
func (s *RegionSeries) Reindex() *RegionSeries {
	out := &RegionSeries{Region: s.Region, Column: s.Column}
	if len(s.Obs) == 0 {
		return out
	}

	first := MonthOf(s.Obs[0].Month)
	last := MonthOf(s.Obs[len(s.Obs)-1].Month)

	byMonth := make(map[time.Time]float64, len(s.Obs))
	for _, o := range s.Obs {
		byMonth[MonthOf(o.Month)] = o.Value
	}

	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		value := math.NaN()
		if v, ok := byMonth[m]; ok {
			value = v
		}
		out.Obs = append(out.Obs, Observation{Month: m, Value: value})
	}

	return out
}

// Interpolated returns a copy with interior missing values filled by
// linear interpolation between the nearest observed neighbours. Leading
// and trailing gaps stay missing. Model fitting requires a dense value
// sequence while the raw series keeps its gaps explicit.
func (s *RegionSeries) Interpolated() *RegionSeries {
	out := &RegionSeries{Region: s.Region, Column: s.Column, Obs: make([]Observation, len(s.Obs))}
	copy(out.Obs, s.Obs)

	prev := -1
	for i, o := range out.Obs {
		if o.IsMissing() {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			step := (o.Value - out.Obs[prev].Value) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				out.Obs[j].Value = out.Obs[prev].Value + step*float64(j-prev)
			}
		}
		prev = i
	}

	return out
}

// Trim returns a copy with leading and trailing missing observations
// removed. Interior gaps are preserved.
func (s *RegionSeries) Trim() *RegionSeries {
	start, end := 0, len(s.Obs)
	for start < end && s.Obs[start].IsMissing() {
		start++
	}
	for end > start && s.Obs[end-1].IsMissing() {
		end--
	}
	out := &RegionSeries{Region: s.Region, Column: s.Column, Obs: make([]Observation, end-start)}
	copy(out.Obs, s.Obs[start:end])
	return out
}

// MonthOf truncates a timestamp to month granularity (first day, UTC).
func MonthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
