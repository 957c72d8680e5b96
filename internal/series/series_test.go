package series

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestMonthOf(t *testing.T) {
	got := MonthOf(time.Date(2024, 3, 31, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, month(2024, 3), got)
}

func TestReindexFillsGaps(t *testing.T) {
	s := &RegionSeries{
		Region: "GA",
		Column: "zori",
		Obs: []Observation{
			{Month: month(2024, 1), Value: 100},
			{Month: month(2024, 4), Value: 103},
		},
	}

	out := s.Reindex()
	require.Equal(t, 4, out.Len())

	assert.Equal(t, month(2024, 1), out.Obs[0].Month)
	assert.Equal(t, month(2024, 2), out.Obs[1].Month)
	assert.Equal(t, month(2024, 3), out.Obs[2].Month)
	assert.Equal(t, month(2024, 4), out.Obs[3].Month)

	assert.False(t, out.Obs[0].IsMissing())
	assert.True(t, out.Obs[1].IsMissing())
	assert.True(t, out.Obs[2].IsMissing())
	assert.Equal(t, 103.0, out.Obs[3].Value)
}

func TestReindexIsIdempotent(t *testing.T) {
	s := &RegionSeries{
		Region: "TX",
		Obs: []Observation{
			{Month: month(2023, 11), Value: 95},
			{Month: month(2024, 2), Value: 98},
			{Month: month(2024, 3), Value: math.NaN()},
			{Month: month(2024, 6), Value: 101},
		},
	}

	once := s.Reindex()
	twice := once.Reindex()

	require.Equal(t, once.Len(), twice.Len())
	for i := range once.Obs {
		assert.Equal(t, once.Obs[i].Month, twice.Obs[i].Month)
		if once.Obs[i].IsMissing() {
			assert.True(t, twice.Obs[i].IsMissing())
		} else {
			assert.Equal(t, once.Obs[i].Value, twice.Obs[i].Value)
		}
	}
}

func TestReindexEmptySeries(t *testing.T) {
	s := &RegionSeries{Region: "CA"}
	out := s.Reindex()
	assert.Equal(t, 0, out.Len())
}

func TestNonMissing(t *testing.T) {
	s := &RegionSeries{
		Obs: []Observation{
			{Month: month(2024, 1), Value: 1},
			{Month: month(2024, 2), Value: math.NaN()},
			{Month: month(2024, 3), Value: 3},
		},
	}
	assert.Equal(t, 2, s.NonMissing())
	assert.Equal(t, 3, s.Len())
}

func TestInterpolatedBridgesInteriorGaps(t *testing.T) {
	s := &RegionSeries{
		Obs: []Observation{
			{Month: month(2024, 1), Value: math.NaN()},
			{Month: month(2024, 2), Value: 100},
			{Month: month(2024, 3), Value: math.NaN()},
			{Month: month(2024, 4), Value: math.NaN()},
			{Month: month(2024, 5), Value: 130},
			{Month: month(2024, 6), Value: math.NaN()},
		},
	}

	out := s.Interpolated()

	// Leading and trailing gaps stay missing.
	assert.True(t, out.Obs[0].IsMissing())
	assert.True(t, out.Obs[5].IsMissing())

	assert.InDelta(t, 110.0, out.Obs[2].Value, 1e-9)
	assert.InDelta(t, 120.0, out.Obs[3].Value, 1e-9)

	// The source is untouched.
	assert.True(t, s.Obs[2].IsMissing())
}

func TestTrim(t *testing.T) {
	s := &RegionSeries{
		Obs: []Observation{
			{Month: month(2024, 1), Value: math.NaN()},
			{Month: month(2024, 2), Value: 100},
			{Month: month(2024, 3), Value: math.NaN()},
			{Month: month(2024, 4), Value: 104},
			{Month: month(2024, 5), Value: math.NaN()},
		},
	}

	out := s.Trim()
	require.Equal(t, 3, out.Len())
	assert.Equal(t, month(2024, 2), out.Obs[0].Month)
	assert.Equal(t, month(2024, 4), out.Obs[2].Month)
	assert.True(t, out.Obs[1].IsMissing())
}

func TestLastMonth(t *testing.T) {
	empty := &RegionSeries{}
	assert.True(t, empty.LastMonth().IsZero())

	s := &RegionSeries{Obs: []Observation{
		{Month: month(2024, 1), Value: 1},
		{Month: month(2024, 7), Value: 2},
	}}
	assert.Equal(t, month(2024, 7), s.LastMonth())
}
