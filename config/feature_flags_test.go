package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureFlagsDefaultToEnabled(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.True(t, ff.IsEnabled(FeatureReportInternational, nil))
	assert.True(t, ff.IsEnabled(FeatureHeatmap, nil))
	assert.True(t, ff.IsEnabled(FeatureResponseCache, nil))
}

func TestFeatureFlagsUnknownFlagIsDisabled(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.False(t, ff.IsEnabled("report.does_not_exist", nil))
}

func TestFeatureFlagsEnvOverride(t *testing.T) {
	t.Setenv("FEATURE_ANALYTICS_HEATMAP", "false")

	ff := LoadFeatureFlags()

	assert.False(t, ff.IsEnabled(FeatureHeatmap, nil))
	assert.True(t, ff.IsEnabled(FeatureEquity, nil))
}

func TestFeatureFlagsPercentRollout(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureCatalogComparison, 50))

	// Bucketing is a consistent hash of (feature, institution), so the
	// same institution always lands on the same side.
	ctx := &FeatureContext{InstitutionID: 3001}
	first := ff.IsEnabled(FeatureCatalogComparison, ctx)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ff.IsEnabled(FeatureCatalogComparison, ctx))
	}
}

func TestFeatureFlagsInstitutionOverrideWins(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.DisableFeature(FeatureReportStaffRatio))

	ff.SetInstitutionOverride(3001, FeatureReportStaffRatio, true)

	assert.True(t, ff.IsEnabled(FeatureReportStaffRatio, &FeatureContext{InstitutionID: 3001}))
	assert.False(t, ff.IsEnabled(FeatureReportStaffRatio, &FeatureContext{InstitutionID: 3002}))

	ff.ClearInstitutionOverrides(3001)
	assert.False(t, ff.IsEnabled(FeatureReportStaffRatio, &FeatureContext{InstitutionID: 3001}))
}

func TestFeatureFlagsAdminSeesEverything(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.DisableFeature(FeatureCatalogATARTrends))

	assert.True(t, ff.IsEnabled(FeatureCatalogATARTrends, &FeatureContext{IsAdmin: true}))
}

func TestSetRolloutPercentValidation(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.ErrorIs(t, ff.SetRolloutPercent("no.such.flag", 10), ErrFeatureNotFound)
	assert.ErrorIs(t, ff.SetRolloutPercent(FeatureHeatmap, 101), ErrInvalidRolloutPercent)
}
