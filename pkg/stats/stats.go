// Package stats provides the statistical primitives used by the report
// engines: percentile ranking, least-squares slope, and the banding rules
// that turn raw numbers into risk and trend labels.
// Pure functions, no I/O.
package stats

import "math"

// RiskLevel categorizes an attrition percentile.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskVeryHigh RiskLevel = "Very High"
)

// TrendDirection describes the movement of a rate over time.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendWorsening TrendDirection = "worsening"
	TrendStable    TrendDirection = "stable"
	TrendUnknown   TrendDirection = "unknown"
)

// DefaultTrendEpsilon is the slope dead zone below which a series counts
// as stable.
const DefaultTrendEpsilon = 0.3

// PercentileRank returns the percentile (0-100) of value within population
// using the mid-rank tie convention: (below + 0.5·equal) / n · 100.
//
// An empty population returns 50, a neutral "unknown" signal, never an
// error, so a lone institution is neither best nor worst in class.
func PercentileRank(value float64, population []float64) float64 {
	if len(population) == 0 {
		return 50.0
	}
	var below, equal int
	for _, v := range population {
		switch {
		case v < value:
			below++
		case v == value:
			equal++
		}
	}
	return (float64(below) + 0.5*float64(equal)) / float64(len(population)) * 100
}

// LinearSlope computes the ordinary least-squares slope
// Σ(x-x̄)(y-ȳ) / Σ(x-x̄)².
//
// Fewer than two points, or zero variance in xs, yields slope 0: "no
// discernible trend", never a division by zero.
func LinearSlope(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || len(ys) != n {
		return 0.0
	}
	var xMean, yMean float64
	for i := 0; i < n; i++ {
		xMean += xs[i]
		yMean += ys[i]
	}
	xMean /= float64(n)
	yMean /= float64(n)

	var num, den float64
	for i := 0; i < n; i++ {
		dx := xs[i] - xMean
		num += dx * (ys[i] - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0.0
	}
	return num / den
}

// RiskFromPercentile maps an attrition percentile to a risk band.
// Band edges are inclusive on the upper band: exactly 25 is Medium,
// exactly 50 is High, exactly 75 is Very High.
func RiskFromPercentile(percentile float64) RiskLevel {
	switch {
	case percentile < 25:
		return RiskLow
	case percentile < 50:
		return RiskMedium
	case percentile < 75:
		return RiskHigh
	default:
		return RiskVeryHigh
	}
}

// DirectionFromSlope maps a slope to a trend direction using epsilon as
// the dead zone. Negative slopes are improving because the series these
// engines trend is attrition, where down is good.
func DirectionFromSlope(slope, epsilon float64) TrendDirection {
	switch {
	case slope < -epsilon:
		return TrendImproving
	case slope > epsilon:
		return TrendWorsening
	default:
		return TrendStable
	}
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 { return roundTo(v, 10) }

// Round2 rounds to two decimal places.
func Round2(v float64) float64 { return roundTo(v, 100) }

// Round3 rounds to three decimal places.
func Round3(v float64) float64 { return roundTo(v, 1000) }

func roundTo(v float64, factor float64) float64 {
	return math.Round(v*factor) / factor
}
