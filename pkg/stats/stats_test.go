package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentileRank_EmptyPopulation(t *testing.T) {
	assert.Equal(t, 50.0, PercentileRank(0, nil))
	assert.Equal(t, 50.0, PercentileRank(99.9, []float64{}))
}

func TestPercentileRank_MidRankTies(t *testing.T) {
	// (1 below + 0.5·2 equal) / 4 · 100 = 50
	assert.Equal(t, 50.0, PercentileRank(2, []float64{1, 2, 2, 3}))
}

func TestPercentileRank_Extremes(t *testing.T) {
	pop := []float64{10, 20, 30, 40}
	assert.Equal(t, 12.5, PercentileRank(10, pop))
	assert.Equal(t, 100.0, PercentileRank(50, pop))
	assert.Equal(t, 0.0, PercentileRank(5, pop))
}

func TestLinearSlope(t *testing.T) {
	assert.Equal(t, 2.0, LinearSlope([]float64{1, 2, 3}, []float64{2, 4, 6}))
	assert.Equal(t, 0.0, LinearSlope([]float64{1}, []float64{1}))
	// Zero x-variance guard.
	assert.Equal(t, 0.0, LinearSlope([]float64{1, 1, 1}, []float64{1, 2, 3}))
	// Mismatched lengths produce no trend rather than a panic.
	assert.Equal(t, 0.0, LinearSlope([]float64{1, 2}, []float64{1}))
}

func TestLinearSlope_Declining(t *testing.T) {
	slope := LinearSlope([]float64{2018, 2019, 2020, 2021}, []float64{20, 18, 16, 14})
	assert.InDelta(t, -2.0, slope, 1e-9)
}

func TestRiskFromPercentile_Boundaries(t *testing.T) {
	cases := []struct {
		percentile float64
		want       RiskLevel
	}{
		{24.999, RiskLow},
		{25.0, RiskMedium},
		{49.999, RiskMedium},
		{50.0, RiskHigh},
		{74.999, RiskHigh},
		{75.0, RiskVeryHigh},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RiskFromPercentile(tc.percentile), "percentile %v", tc.percentile)
	}
}

func TestDirectionFromSlope(t *testing.T) {
	eps := DefaultTrendEpsilon
	assert.Equal(t, TrendImproving, DirectionFromSlope(-0.31, eps))
	assert.Equal(t, TrendStable, DirectionFromSlope(-0.3, eps))
	assert.Equal(t, TrendStable, DirectionFromSlope(0.3, eps))
	assert.Equal(t, TrendWorsening, DirectionFromSlope(0.31, eps))
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 12.3, Round1(12.34))
	assert.Equal(t, 12.35, Round2(12.3456))
	assert.Equal(t, -0.123, Round3(-0.1234))
}
