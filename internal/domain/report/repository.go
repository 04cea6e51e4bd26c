package report

import "context"

// StatsRepository defines parameterized read access to the time-series
// statistical tables. The store is populated once by ETL and is
// immutable for the duration of any report computation, so every method
// is a snapshot-consistent read.
//
// Row-shaped results carry institution names so that the engines can
// apply the reportable-name policy themselves; no method pre-filters
// noise rows. Methods that select a single latest record return
// (nil, nil) when no qualifying row exists; the engines translate
// that into explicit per-section "no data" markers.
type StatsRepository interface {
	// ──────────────────────────────────────────────────────────────────────────
	// ATTRITION / RETENTION / SUCCESS
	// ──────────────────────────────────────────────────────────────────────────

	// LatestRate returns the most recent observation for one
	// (institution, student type, measure) series, or nil if the series
	// is empty.
	LatestRate(ctx context.Context, institutionID int64, st StudentType, m Measure) (*RateRecord, error)

	// RateHistory returns up to limit observations for a series,
	// most recent first.
	RateHistory(ctx context.Context, institutionID int64, st StudentType, m Measure, limit int) ([]RateRecord, error)

	// RatesForYear returns every institution's observation for one
	// (year, student type, measure), with institution names attached.
	RatesForYear(ctx context.Context, year int, st StudentType, m Measure) ([]InstitutionRate, error)

	// LatestYearWithRates returns the most recent year holding any
	// observation for (student type, measure) across all institutions,
	// or 0 if none exists.
	LatestYearWithRates(ctx context.Context, st StudentType, m Measure) (int, error)

	// HasRates reports whether the institution has any observation at
	// all for the given student type.
	HasRates(ctx context.Context, institutionID int64, st StudentType) (bool, error)

	// ──────────────────────────────────────────────────────────────────────────
	// COMPLETION COHORTS
	// ──────────────────────────────────────────────────────────────────────────

	// LatestCompletionCohort returns the most recent cohort (by start
	// year) with a published completion percentage for one duration
	// window, or nil.
	LatestCompletionCohort(ctx context.Context, institutionID int64, durationYears int) (*CompletionCohort, error)

	// CompletionRatesForCohort returns all institutions' completion
	// percentages for one (duration, cohort start year).
	CompletionRatesForCohort(ctx context.Context, durationYears, cohortStart int) ([]float64, error)

	// LatestCohortStart returns the most recent cohort start year with
	// any published completion percentage for one duration, or 0.
	LatestCohortStart(ctx context.Context, durationYears int) (int, error)

	// ──────────────────────────────────────────────────────────────────────────
	// ENROLMENTS / COMPLETIONS BY FIELD
	// ──────────────────────────────────────────────────────────────────────────

	// LatestEnrolmentYear returns the most recent year with enrolment
	// data for the institution, or 0.
	LatestEnrolmentYear(ctx context.Context, institutionID int64) (int, error)

	// FieldEnrolment returns the maximum non-commencing headcount for
	// (institution, field, year). The max guards against duplicate
	// snapshot rows for the same cell.
	FieldEnrolment(ctx context.Context, institutionID, fieldID int64, year int) (int64, error)

	// TotalEnrolment returns the sum, across fields, of each field's
	// maximum non-commencing headcount for (institution, year).
	TotalEnrolment(ctx context.Context, institutionID int64, year int) (int64, error)

	// FieldCompletions returns summed completion headcounts for
	// (institution, field, year).
	FieldCompletions(ctx context.Context, institutionID, fieldID int64, year int) (int64, error)

	// TotalCompletions returns summed completion headcounts across all
	// fields for (institution, year).
	TotalCompletions(ctx context.Context, institutionID int64, year int) (int64, error)

	// FieldEnrolmentTrend returns the per-year maximum non-commencing
	// headcount for (institution, field), oldest first.
	FieldEnrolmentTrend(ctx context.Context, institutionID, fieldID int64) ([]YearValue, error)

	// FieldCompletionsTrend returns the per-year summed completions for
	// (institution, field), oldest first.
	FieldCompletionsTrend(ctx context.Context, institutionID, fieldID int64) ([]YearValue, error)

	// FieldEnrolmentsByInstitution returns each institution's maximum
	// non-commencing enrolment headcount for (field, year).
	FieldEnrolmentsByInstitution(ctx context.Context, fieldID int64, year int) ([]InstitutionHeadcount, error)

	// FieldCompletionsByInstitution returns each institution's summed
	// completions for (field, year).
	FieldCompletionsByInstitution(ctx context.Context, fieldID int64, year int) ([]InstitutionHeadcount, error)

	// ──────────────────────────────────────────────────────────────────────────
	// COURSE-LEVEL MIX
	// ──────────────────────────────────────────────────────────────────────────

	// LatestCourseLevelMix returns the institution's most recent
	// course-level mix row for one measure, or nil.
	LatestCourseLevelMix(ctx context.Context, institutionID int64, m CourseLevelMeasure) (*CourseLevelMix, error)

	// NationalCourseLevelMix returns sector-wide summed level counts
	// for the latest year with data for one measure, or nil.
	NationalCourseLevelMix(ctx context.Context, m CourseLevelMeasure) (*CourseLevelMix, error)

	// ──────────────────────────────────────────────────────────────────────────
	// STUDENT-STAFF RATIOS
	// ──────────────────────────────────────────────────────────────────────────

	// LatestStaffRatio returns the institution's most recent ratio row
	// with a present academic ratio, or nil.
	LatestStaffRatio(ctx context.Context, institutionID int64) (*StaffRatioRecord, error)

	// StaffRatiosForYear returns every institution's academic ratio for
	// one year, with names attached.
	StaffRatiosForYear(ctx context.Context, year int) ([]InstitutionRatio, error)

	// StaffRatioTrend returns all of the institution's ratio rows with
	// a present academic ratio, oldest first.
	StaffRatioTrend(ctx context.Context, institutionID int64) ([]StaffRatioRecord, error)
}
