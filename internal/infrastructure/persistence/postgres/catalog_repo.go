package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/survival-hub/course-survival-hub/internal/domain/catalog"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CatalogRepository implements catalog.Repository for PostgreSQL. Rows
// come back raw; ATAR parsing and consolidation belong to the engine.
type CatalogRepository struct {
	conn *Connection
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(conn *Connection) *CatalogRepository {
	return &CatalogRepository{conn: conn}
}

const courseRowColumns = `
	institution_id, course_code, title, course_level, fee_type,
	campus_code, campus_name, status, level, areas_of_study,
	atar_lowest, atar_median, atar_highest, atar_year,
	selection_rank_lowest, selection_rank_median,
	duration, mode_of_attendance, start_months, further_info_url,
	profile_year, total_students, pct_atar_based, pct_higher_ed,
	pct_vet, pct_work_life, pct_international
`

// CurrentCourses returns every current-status course row for the
// institution, across all disclosure levels.
func (r *CatalogRepository) CurrentCourses(ctx context.Context, institutionID int64) ([]catalog.CourseRow, error) {
	query := `
		SELECT ` + courseRowColumns + `
		FROM courses
		WHERE institution_id = $1 AND status = 'C'
		ORDER BY title, course_code
	`

	rows, err := r.conn.Query(ctx, query, institutionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get current courses: %w", err)
	}
	defer rows.Close()

	return scanCourseRows(rows)
}

// ComparableBachelorCourses returns current bachelor-degree rows at
// other institutions that disclose a lowest ATAR.
func (r *CatalogRepository) ComparableBachelorCourses(ctx context.Context, excludeInstitutionID int64) ([]catalog.ExternalCourseRow, error) {
	query := `
		SELECT c.institution_id, i.name, c.course_code, c.title,
		       c.areas_of_study, c.atar_lowest, c.pct_atar_based
		FROM courses c
		JOIN institutions i ON i.id = c.institution_id
		WHERE c.institution_id <> $1
		  AND c.status = 'C'
		  AND c.course_level = 'TBP'
		  AND c.atar_lowest IS NOT NULL
	`

	rows, err := r.conn.Query(ctx, query, excludeInstitutionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comparable courses: %w", err)
	}
	defer rows.Close()

	var out []catalog.ExternalCourseRow
	for rows.Next() {
		var row catalog.ExternalCourseRow
		err := rows.Scan(
			&row.InstitutionID,
			&row.InstitutionName,
			&row.CourseCode,
			&row.Title,
			&row.AreasOfStudy,
			&row.ATARLowest,
			&row.PctATARBased,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comparable course: %w", err)
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

// ATARHistory returns every current course row for the institution that
// carries both an ATAR year and a lowest ATAR.
func (r *CatalogRepository) ATARHistory(ctx context.Context, institutionID int64) ([]catalog.CourseRow, error) {
	query := `
		SELECT ` + courseRowColumns + `
		FROM courses
		WHERE institution_id = $1
		  AND status = 'C'
		  AND atar_year > 0
		  AND atar_lowest IS NOT NULL
		ORDER BY course_code, atar_year
	`

	rows, err := r.conn.Query(ctx, query, institutionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cutoff history: %w", err)
	}
	defer rows.Close()

	return scanCourseRows(rows)
}

// AdmissionProfiles returns every current undergraduate course row's
// published admission profile, across all institutions.
func (r *CatalogRepository) AdmissionProfiles(ctx context.Context) ([]catalog.AdmissionProfileRow, error) {
	query := `
		SELECT profile_year, total_students, pct_atar_based, pct_higher_ed,
		       pct_vet, pct_work_life, pct_international
		FROM courses
		WHERE status = 'C'
		  AND level = 'undergraduate'
		  AND total_students IS NOT NULL
	`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get admission profiles: %w", err)
	}
	defer rows.Close()

	var out []catalog.AdmissionProfileRow
	for rows.Next() {
		var row catalog.AdmissionProfileRow
		err := rows.Scan(
			&row.ProfileYear,
			&row.TotalStudents,
			&row.PctATARBased,
			&row.PctHigherEd,
			&row.PctVET,
			&row.PctWorkLife,
			&row.PctInternational,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan admission profile: %w", err)
		}
		out = append(out, row)
	}

	return out, rows.Err()
}

func scanCourseRows(rows pgx.Rows) ([]catalog.CourseRow, error) {
	var out []catalog.CourseRow
	for rows.Next() {
		var row catalog.CourseRow
		err := rows.Scan(
			&row.InstitutionID,
			&row.CourseCode,
			&row.Title,
			&row.CourseLevel,
			&row.FeeType,
			&row.CampusCode,
			&row.CampusName,
			&row.Status,
			&row.Level,
			&row.AreasOfStudy,
			&row.ATARLowest,
			&row.ATARMedian,
			&row.ATARHighest,
			&row.ATARYear,
			&row.SelectionRankLowest,
			&row.SelectionRankMedian,
			&row.Duration,
			&row.ModeOfAttendance,
			&row.StartMonths,
			&row.FurtherInfoURL,
			&row.ProfileYear,
			&row.TotalStudents,
			&row.PctATARBased,
			&row.PctHigherEd,
			&row.PctVET,
			&row.PctWorkLife,
			&row.PctInternational,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course row: %w", err)
		}
		out = append(out, row)
	}

	return out, rows.Err()
}
