package equity

import "context"

// Repository defines read access to the equity-cohort rate tables.
// Single-record lookups return (nil, nil) when no qualifying row
// exists; the engine turns that into explicit absence in the report.
type Repository interface {
	// HasData reports whether the institution has any equity-group
	// observation at all.
	HasData(ctx context.Context, institutionID int64) (bool, error)

	// LatestYear returns the institution's most recent year with a
	// present rate for one measure, across all groups. Zero means the
	// measure was never published for the institution.
	LatestYear(ctx context.Context, institutionID int64, m Measure) (int, error)

	// RateAt returns the institution's rate for one
	// (group, measure, year), or nil.
	RateAt(ctx context.Context, institutionID int64, g Group, m Measure, year int) (*RateRecord, error)

	// RatesForYear returns every institution's rate for one
	// (year, group, measure), with institution names attached.
	RatesForYear(ctx context.Context, year int, g Group, m Measure) ([]InstitutionRate, error)

	// RateHistory returns up to limit observations for one
	// (institution, group, measure) series, most recent first.
	RateHistory(ctx context.Context, institutionID int64, g Group, m Measure, limit int) ([]RateRecord, error)
}
