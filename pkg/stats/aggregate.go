package stats

import (
	mstats "github.com/montanaflynn/stats"
)

// Mean returns the arithmetic mean of values. The second return is
// false for an empty input: a population with no members has no
// average, and the engines must report absence rather than zero.
func Mean(values []float64) (float64, bool) {
	m, err := mstats.Mean(mstats.Float64Data(values))
	if err != nil {
		return 0, false
	}
	return m, true
}

// Min returns the smallest value, or false for an empty input.
func Min(values []float64) (float64, bool) {
	m, err := mstats.Min(mstats.Float64Data(values))
	if err != nil {
		return 0, false
	}
	return m, true
}

// Max returns the largest value, or false for an empty input.
func Max(values []float64) (float64, bool) {
	m, err := mstats.Max(mstats.Float64Data(values))
	if err != nil {
		return 0, false
	}
	return m, true
}
