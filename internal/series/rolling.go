package series

import "math"

// RollingMean computes a trailing rolling mean of the given width over
// a value sequence that may contain NaN gaps. A position needs at least
// minPeriods non-missing values inside its window to produce a result;
// otherwise it yields NaN.
func RollingMean(values []float64, window, minPeriods int) []float64 {
	return rollingApply(values, window, minPeriods, func(w []float64) float64 {
		sum := 0.0
		for _, v := range w {
			sum += v
		}
		return sum / float64(len(w))
	})
}

// RollingStd computes a trailing rolling sample standard deviation
// (n-1 denominator) with the same window and minimum-periods rules as
// RollingMean.
func RollingStd(values []float64, window, minPeriods int) []float64 {
	return rollingApply(values, window, minPeriods, func(w []float64) float64 {
		if len(w) < 2 {
			return math.NaN()
		}
		mean := 0.0
		for _, v := range w {
			mean += v
		}
		mean /= float64(len(w))

		sumSq := 0.0
		for _, v := range w {
			diff := v - mean
			sumSq += diff * diff
		}
		return math.Sqrt(sumSq / float64(len(w)-1))
	})
}

// rollingApply evaluates fn over the non-missing values of each
// trailing window. The window covers positions [i-window+1, i].
func rollingApply(values []float64, window, minPeriods int, fn func([]float64) float64) []float64 {
	out := make([]float64, len(values))
	present := make([]float64, 0, window)

	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}

		present = present[:0]
		for j := start; j <= i; j++ {
			if !math.IsNaN(values[j]) {
				present = append(present, values[j])
			}
		}

		if len(present) < minPeriods {
			out[i] = math.NaN()
			continue
		}
		out[i] = fn(present)
	}

	return out
}
