package postgres

import (
	"context"
	"fmt"

	"github.com/survival-hub/course-survival-hub/internal/domain/report"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StatsRepository implements report.StatsRepository for PostgreSQL.
// Single-record lookups translate pgx.ErrNoRows into (nil, nil): an
// empty series is a published fact, not a storage failure.
type StatsRepository struct {
	conn *Connection
}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(conn *Connection) *StatsRepository {
	return &StatsRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// Attrition / retention / success
// ─────────────────────────────────────────────────────────────────────────────

// LatestRate returns the most recent observation for one series.
func (r *StatsRepository) LatestRate(ctx context.Context, institutionID int64, st report.StudentType, m report.Measure) (*report.RateRecord, error) {
	query := `
		SELECT year, rate
		FROM rate_observations
		WHERE institution_id = $1 AND student_type = $2 AND measure = $3
		ORDER BY year DESC
		LIMIT 1
	`

	var rec report.RateRecord
	err := r.conn.QueryRow(ctx, query, institutionID, string(st), string(m)).Scan(&rec.Year, &rec.Rate)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest rate: %w", err)
	}

	return &rec, nil
}

// RateHistory returns up to limit observations, most recent first.
func (r *StatsRepository) RateHistory(ctx context.Context, institutionID int64, st report.StudentType, m report.Measure, limit int) ([]report.RateRecord, error) {
	query := `
		SELECT year, rate
		FROM rate_observations
		WHERE institution_id = $1 AND student_type = $2 AND measure = $3
		ORDER BY year DESC
		LIMIT $4
	`

	rows, err := r.conn.Query(ctx, query, institutionID, string(st), string(m), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get rate history: %w", err)
	}
	defer rows.Close()

	var out []report.RateRecord
	for rows.Next() {
		var rec report.RateRecord
		if err := rows.Scan(&rec.Year, &rec.Rate); err != nil {
			return nil, fmt.Errorf("failed to scan rate: %w", err)
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

// RatesForYear returns every institution's observation for one
// (year, student type, measure), names attached.
func (r *StatsRepository) RatesForYear(ctx context.Context, year int, st report.StudentType, m report.Measure) ([]report.InstitutionRate, error) {
	query := `
		SELECT o.institution_id, i.name, o.rate
		FROM rate_observations o
		JOIN institutions i ON i.id = o.institution_id
		WHERE o.year = $1 AND o.student_type = $2 AND o.measure = $3
	`

	rows, err := r.conn.Query(ctx, query, year, string(st), string(m))
	if err != nil {
		return nil, fmt.Errorf("failed to get rates for year: %w", err)
	}
	defer rows.Close()

	var out []report.InstitutionRate
	for rows.Next() {
		var rec report.InstitutionRate
		if err := rows.Scan(&rec.InstitutionID, &rec.InstitutionName, &rec.Rate); err != nil {
			return nil, fmt.Errorf("failed to scan institution rate: %w", err)
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

// LatestYearWithRates returns the most recent year holding any
// observation for (student type, measure), or 0.
func (r *StatsRepository) LatestYearWithRates(ctx context.Context, st report.StudentType, m report.Measure) (int, error) {
	query := `
		SELECT COALESCE(MAX(year), 0)
		FROM rate_observations
		WHERE student_type = $1 AND measure = $2
	`

	var year int
	if err := r.conn.QueryRow(ctx, query, string(st), string(m)).Scan(&year); err != nil {
		return 0, fmt.Errorf("failed to get latest rate year: %w", err)
	}
	return year, nil
}

// HasRates reports whether the institution has any observation for the
// given student type.
func (r *StatsRepository) HasRates(ctx context.Context, institutionID int64, st report.StudentType) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM rate_observations
			WHERE institution_id = $1 AND student_type = $2
		)
	`

	var has bool
	if err := r.conn.QueryRow(ctx, query, institutionID, string(st)).Scan(&has); err != nil {
		return false, fmt.Errorf("failed to check rates: %w", err)
	}
	return has, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Completion cohorts
// ─────────────────────────────────────────────────────────────────────────────

// LatestCompletionCohort returns the most recent cohort for one
// duration window, or nil.
func (r *StatsRepository) LatestCompletionCohort(ctx context.Context, institutionID int64, durationYears int) (*report.CompletionCohort, error) {
	query := `
		SELECT institution_id, cohort_start, cohort_end, duration_years, completed_pct,
		       still_enrolled_pct, dropped_out_pct, never_returned_pct
		FROM completion_cohorts
		WHERE institution_id = $1 AND duration_years = $2
		ORDER BY cohort_start DESC
		LIMIT 1
	`

	var c report.CompletionCohort
	err := r.conn.QueryRow(ctx, query, institutionID, durationYears).Scan(
		&c.InstitutionID,
		&c.CohortStart,
		&c.CohortEnd,
		&c.DurationYears,
		&c.CompletedPct,
		&c.StillEnrolledPct,
		&c.DroppedOutPct,
		&c.NeverReturnedPct,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get completion cohort: %w", err)
	}

	return &c, nil
}

// CompletionRatesForCohort returns all institutions' completion
// percentages for one (duration, cohort start year).
func (r *StatsRepository) CompletionRatesForCohort(ctx context.Context, durationYears, cohortStart int) ([]float64, error) {
	query := `
		SELECT completed_pct
		FROM completion_cohorts
		WHERE duration_years = $1 AND cohort_start = $2
	`

	rows, err := r.conn.Query(ctx, query, durationYears, cohortStart)
	if err != nil {
		return nil, fmt.Errorf("failed to get cohort rates: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var rate float64
		if err := rows.Scan(&rate); err != nil {
			return nil, fmt.Errorf("failed to scan cohort rate: %w", err)
		}
		out = append(out, rate)
	}

	return out, rows.Err()
}

// LatestCohortStart returns the most recent cohort start year with any
// published completion percentage for one duration, or 0.
func (r *StatsRepository) LatestCohortStart(ctx context.Context, durationYears int) (int, error) {
	query := `
		SELECT COALESCE(MAX(cohort_start), 0)
		FROM completion_cohorts
		WHERE duration_years = $1
	`

	var year int
	if err := r.conn.QueryRow(ctx, query, durationYears).Scan(&year); err != nil {
		return 0, fmt.Errorf("failed to get latest cohort start: %w", err)
	}
	return year, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Enrolments / completions by field
// ─────────────────────────────────────────────────────────────────────────────

// LatestEnrolmentYear returns the most recent year with enrolment data
// for the institution, or 0.
func (r *StatsRepository) LatestEnrolmentYear(ctx context.Context, institutionID int64) (int, error) {
	query := `
		SELECT COALESCE(MAX(year), 0)
		FROM field_enrolments
		WHERE institution_id = $1 AND commencing = FALSE
	`

	var year int
	if err := r.conn.QueryRow(ctx, query, institutionID).Scan(&year); err != nil {
		return 0, fmt.Errorf("failed to get latest enrolment year: %w", err)
	}
	return year, nil
}

// FieldEnrolment returns the maximum non-commencing headcount for
// (institution, field, year). MAX guards against duplicate snapshot
// rows for the same cell.
func (r *StatsRepository) FieldEnrolment(ctx context.Context, institutionID, fieldID int64, year int) (int64, error) {
	query := `
		SELECT COALESCE(MAX(headcount), 0)
		FROM field_enrolments
		WHERE institution_id = $1 AND field_id = $2 AND year = $3
		  AND commencing = FALSE
	`

	var headcount int64
	if err := r.conn.QueryRow(ctx, query, institutionID, fieldID, year).Scan(&headcount); err != nil {
		return 0, fmt.Errorf("failed to get field enrolment: %w", err)
	}
	return headcount, nil
}

// TotalEnrolment sums each field's maximum headcount for
// (institution, year).
func (r *StatsRepository) TotalEnrolment(ctx context.Context, institutionID int64, year int) (int64, error) {
	query := `
		SELECT COALESCE(SUM(headcount), 0)
		FROM (
			SELECT MAX(headcount) AS headcount
			FROM field_enrolments
			WHERE institution_id = $1 AND year = $2
			  AND commencing = FALSE
			GROUP BY field_id
		) per_field
	`

	var total int64
	if err := r.conn.QueryRow(ctx, query, institutionID, year).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to get total enrolment: %w", err)
	}
	return total, nil
}

// FieldCompletions returns summed completion headcounts for
// (institution, field, year).
func (r *StatsRepository) FieldCompletions(ctx context.Context, institutionID, fieldID int64, year int) (int64, error) {
	query := `
		SELECT COALESCE(SUM(headcount), 0)
		FROM field_completions
		WHERE institution_id = $1 AND field_id = $2 AND year = $3
	`

	var headcount int64
	if err := r.conn.QueryRow(ctx, query, institutionID, fieldID, year).Scan(&headcount); err != nil {
		return 0, fmt.Errorf("failed to get field completions: %w", err)
	}
	return headcount, nil
}

// TotalCompletions returns summed completion headcounts across all
// fields for (institution, year).
func (r *StatsRepository) TotalCompletions(ctx context.Context, institutionID int64, year int) (int64, error) {
	query := `
		SELECT COALESCE(SUM(headcount), 0)
		FROM field_completions
		WHERE institution_id = $1 AND year = $2
	`

	var total int64
	if err := r.conn.QueryRow(ctx, query, institutionID, year).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to get total completions: %w", err)
	}
	return total, nil
}

// FieldEnrolmentTrend returns the per-year maximum headcount for
// (institution, field), oldest first.
func (r *StatsRepository) FieldEnrolmentTrend(ctx context.Context, institutionID, fieldID int64) ([]report.YearValue, error) {
	query := `
		SELECT year, MAX(headcount)
		FROM field_enrolments
		WHERE institution_id = $1 AND field_id = $2 AND commencing = FALSE
		GROUP BY year
		ORDER BY year
	`

	return r.queryYearValues(ctx, query, institutionID, fieldID)
}

// FieldCompletionsTrend returns the per-year summed completions for
// (institution, field), oldest first.
func (r *StatsRepository) FieldCompletionsTrend(ctx context.Context, institutionID, fieldID int64) ([]report.YearValue, error) {
	query := `
		SELECT year, SUM(headcount)
		FROM field_completions
		WHERE institution_id = $1 AND field_id = $2
		GROUP BY year
		ORDER BY year
	`

	return r.queryYearValues(ctx, query, institutionID, fieldID)
}

func (r *StatsRepository) queryYearValues(ctx context.Context, query string, args ...interface{}) ([]report.YearValue, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query year series: %w", err)
	}
	defer rows.Close()

	var out []report.YearValue
	for rows.Next() {
		var p report.YearValue
		if err := rows.Scan(&p.Year, &p.Value); err != nil {
			return nil, fmt.Errorf("failed to scan year value: %w", err)
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

// FieldEnrolmentsByInstitution returns each institution's maximum
// enrolment headcount for (field, year).
func (r *StatsRepository) FieldEnrolmentsByInstitution(ctx context.Context, fieldID int64, year int) ([]report.InstitutionHeadcount, error) {
	query := `
		SELECT e.institution_id, i.name, i.state, MAX(e.headcount)
		FROM field_enrolments e
		JOIN institutions i ON i.id = e.institution_id
		WHERE e.field_id = $1 AND e.year = $2 AND e.commencing = FALSE
		GROUP BY e.institution_id, i.name, i.state
	`

	return r.queryHeadcounts(ctx, query, fieldID, year)
}

// FieldCompletionsByInstitution returns each institution's summed
// completions for (field, year).
func (r *StatsRepository) FieldCompletionsByInstitution(ctx context.Context, fieldID int64, year int) ([]report.InstitutionHeadcount, error) {
	query := `
		SELECT c.institution_id, i.name, i.state, SUM(c.headcount)
		FROM field_completions c
		JOIN institutions i ON i.id = c.institution_id
		WHERE c.field_id = $1 AND c.year = $2
		GROUP BY c.institution_id, i.name, i.state
	`

	return r.queryHeadcounts(ctx, query, fieldID, year)
}

func (r *StatsRepository) queryHeadcounts(ctx context.Context, query string, args ...interface{}) ([]report.InstitutionHeadcount, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query headcounts: %w", err)
	}
	defer rows.Close()

	var out []report.InstitutionHeadcount
	for rows.Next() {
		var h report.InstitutionHeadcount
		if err := rows.Scan(&h.InstitutionID, &h.InstitutionName, &h.State, &h.Headcount); err != nil {
			return nil, fmt.Errorf("failed to scan headcount: %w", err)
		}
		out = append(out, h)
	}

	return out, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Course-level mix
// ─────────────────────────────────────────────────────────────────────────────

// LatestCourseLevelMix returns the institution's most recent mix row
// for one measure, or nil.
func (r *StatsRepository) LatestCourseLevelMix(ctx context.Context, institutionID int64, m report.CourseLevelMeasure) (*report.CourseLevelMix, error) {
	query := `
		SELECT year, postgrad_research, postgrad_coursework, bachelor, sub_bachelor, total
		FROM course_level_mix
		WHERE institution_id = $1 AND measure = $2
		ORDER BY year DESC
		LIMIT 1
	`

	var mix report.CourseLevelMix
	err := r.conn.QueryRow(ctx, query, institutionID, string(m)).Scan(
		&mix.Year,
		&mix.PostgradResearch,
		&mix.PostgradCoursework,
		&mix.Bachelor,
		&mix.SubBachelor,
		&mix.Total,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get course-level mix: %w", err)
	}

	return &mix, nil
}

// NationalCourseLevelMix sums level counts across the sector for the
// latest year with data, or nil.
func (r *StatsRepository) NationalCourseLevelMix(ctx context.Context, m report.CourseLevelMeasure) (*report.CourseLevelMix, error) {
	query := `
		SELECT year, SUM(postgrad_research), SUM(postgrad_coursework),
		       SUM(bachelor), SUM(sub_bachelor), SUM(total)
		FROM course_level_mix
		WHERE measure = $1
		  AND year = (SELECT MAX(year) FROM course_level_mix WHERE measure = $1)
		GROUP BY year
	`

	var mix report.CourseLevelMix
	err := r.conn.QueryRow(ctx, query, string(m)).Scan(
		&mix.Year,
		&mix.PostgradResearch,
		&mix.PostgradCoursework,
		&mix.Bachelor,
		&mix.SubBachelor,
		&mix.Total,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get national course-level mix: %w", err)
	}

	return &mix, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Student-staff ratios
// ─────────────────────────────────────────────────────────────────────────────

// LatestStaffRatio returns the institution's most recent ratio row with
// a present academic ratio, or nil.
func (r *StatsRepository) LatestStaffRatio(ctx context.Context, institutionID int64) (*report.StaffRatioRecord, error) {
	query := `
		SELECT year, academic_ratio, non_academic_ratio, eftsl, academic_fte, non_academic_fte
		FROM staff_ratios
		WHERE institution_id = $1 AND academic_ratio IS NOT NULL
		ORDER BY year DESC
		LIMIT 1
	`

	var rec report.StaffRatioRecord
	err := r.conn.QueryRow(ctx, query, institutionID).Scan(
		&rec.Year,
		&rec.AcademicRatio,
		&rec.NonAcademicRatio,
		&rec.EFTSL,
		&rec.AcademicFTE,
		&rec.NonAcademicFTE,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get staff ratio: %w", err)
	}

	return &rec, nil
}

// StaffRatiosForYear returns every institution's academic ratio for one
// year, names attached.
func (r *StatsRepository) StaffRatiosForYear(ctx context.Context, year int) ([]report.InstitutionRatio, error) {
	query := `
		SELECT s.institution_id, i.name, s.academic_ratio, s.non_academic_ratio
		FROM staff_ratios s
		JOIN institutions i ON i.id = s.institution_id
		WHERE s.year = $1 AND s.academic_ratio IS NOT NULL
	`

	rows, err := r.conn.Query(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("failed to get staff ratios: %w", err)
	}
	defer rows.Close()

	var out []report.InstitutionRatio
	for rows.Next() {
		var rec report.InstitutionRatio
		if err := rows.Scan(&rec.InstitutionID, &rec.InstitutionName, &rec.AcademicRatio, &rec.NonAcademicRatio); err != nil {
			return nil, fmt.Errorf("failed to scan staff ratio: %w", err)
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

// StaffRatioTrend returns all of the institution's ratio rows with a
// present academic ratio, oldest first.
func (r *StatsRepository) StaffRatioTrend(ctx context.Context, institutionID int64) ([]report.StaffRatioRecord, error) {
	query := `
		SELECT year, academic_ratio, non_academic_ratio, eftsl, academic_fte, non_academic_fte
		FROM staff_ratios
		WHERE institution_id = $1 AND academic_ratio IS NOT NULL
		ORDER BY year
	`

	rows, err := r.conn.Query(ctx, query, institutionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get staff ratio trend: %w", err)
	}
	defer rows.Close()

	var out []report.StaffRatioRecord
	for rows.Next() {
		var rec report.StaffRatioRecord
		if err := rows.Scan(&rec.Year, &rec.AcademicRatio, &rec.NonAcademicRatio, &rec.EFTSL, &rec.AcademicFTE, &rec.NonAcademicFTE); err != nil {
			return nil, fmt.Errorf("failed to scan staff ratio: %w", err)
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}
