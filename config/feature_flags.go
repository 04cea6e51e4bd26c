package config

import (
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages report-section toggles and staged rollouts.
// New data collections land mid-year and are often published for a
// subset of institutions first; flags let a section ship dark and be
// rolled out per institution without a deploy.
type FeatureFlags struct {
	mu sync.RWMutex

	// Core features
	features map[string]*Feature

	// Override rules (for testing/debugging)
	institutionOverrides map[int64]map[string]bool // institutionID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	// Institutions are assigned based on hash of their ID
	RolloutPercent int

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	InstitutionID int64
	IsAdmin       bool
}

// Predefined feature flag names.
const (
	// === Report sections ===
	FeatureReportInternational  = "report.international"     // International student outcomes
	FeatureReportStaffRatio     = "report.staff_ratio"       // Student-staff ratio section
	FeatureReportCourseLevelMix = "report.course_level_mix"  // Enrolment/completion mix by level
	FeatureReportTimeline       = "report.timeline"          // Multi-duration completion timeline

	// === Course catalog ===
	FeatureCatalogComparison    = "catalog.comparison"     // Cross-institution ATAR comparison
	FeatureCatalogATARTrends    = "catalog.atar_trends"    // Historical cutoff series
	FeatureCatalogSectorProfile = "catalog.sector_profile" // Sector admission-basis profile

	// === Analytics ===
	FeatureHeatmap = "analytics.heatmap" // Field risk heatmap
	FeatureEquity  = "analytics.equity"  // Equity gap reports

	// === Infrastructure ===
	FeatureResponseCache = "infra.response_cache" // Redis report memoization
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:             make(map[string]*Feature),
		institutionOverrides: make(map[int64]map[string]bool),
	}

	// Initialize all features with defaults
	ff.initializeDefaults()

	// Load overrides from environment
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	// Report sections ship enabled; flags exist to pull one quickly
	// when a collection publishes broken data.
	for name, desc := range map[string]string{
		FeatureReportInternational:  "International student outcomes section",
		FeatureReportStaffRatio:     "Student-staff ratio section",
		FeatureReportCourseLevelMix: "Course-level enrolment and completion mix",
		FeatureReportTimeline:       "Multi-duration completion timeline",
		FeatureCatalogComparison:    "Cross-institution ATAR comparison",
		FeatureCatalogATARTrends:    "Historical ATAR cutoff series",
		FeatureCatalogSectorProfile: "Sector admission-basis profile",
		FeatureHeatmap:              "Field risk heatmap",
		FeatureEquity:               "Equity gap reports",
		FeatureResponseCache:        "Redis response memoization",
	} {
		ff.features[name] = &Feature{
			Name:           name,
			Description:    desc,
			Enabled:        true,
			RolloutPercent: 100,
		}
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_ANALYTICS_HEATMAP=false
// Example: FEATURE_CATALOG_COMPARISON=50 (50% rollout)
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			// Try parsing as boolean
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
				if b {
					feature.RolloutPercent = 100
				} else {
					feature.RolloutPercent = 0
				}
				continue
			}

			// Try parsing as percentage
			if p, err := strconv.Atoi(val); err == nil && p >= 0 && p <= 100 {
				feature.Enabled = p > 0
				feature.RolloutPercent = p
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "analytics.heatmap" -> "FEATURE_ANALYTICS_HEATMAP"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	// Check institution overrides first
	if ctx != nil && ctx.InstitutionID != 0 {
		if overrides, ok := ff.institutionOverrides[ctx.InstitutionID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok {
		return false
	}

	// Admin requests see everything
	if ctx != nil && ctx.IsAdmin {
		return true
	}

	// Check if feature is enabled at all
	if !feature.Enabled {
		return false
	}

	// Check time-based activation
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Check rollout percentage
	if feature.RolloutPercent < 100 && ctx != nil && ctx.InstitutionID != 0 {
		return ff.isInRollout(ctx.InstitutionID, featureName, feature.RolloutPercent)
	}

	return feature.RolloutPercent > 0
}

// isInRollout determines if an institution is in the rollout
// percentage. Uses consistent hashing so institutions stay in their
// bucket across restarts.
func (ff *FeatureFlags) isInRollout(institutionID int64, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(strconv.FormatInt(institutionID, 10)))
	hash := h.Sum32()

	// Map to 0-99 range
	bucket := int(hash % 100)

	return bucket < percent
}

// SetInstitutionOverride sets a feature override for a specific
// institution. Useful for testing and debugging.
func (ff *FeatureFlags) SetInstitutionOverride(institutionID int64, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.institutionOverrides[institutionID]; !ok {
		ff.institutionOverrides[institutionID] = make(map[string]bool)
	}
	ff.institutionOverrides[institutionID][featureName] = enabled
}

// ClearInstitutionOverrides removes all overrides for an institution.
func (ff *FeatureFlags) ClearInstitutionOverrides(institutionID int64) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.institutionOverrides, institutionID)
}

// SetRolloutPercent updates the rollout percentage for a feature.
// Thread-safe for live updates.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}

	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0

	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]*Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]*Feature, len(ff.features))
	for k, v := range ff.features {
		// Return a copy
		featureCopy := *v
		result[k] = &featureCopy
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
