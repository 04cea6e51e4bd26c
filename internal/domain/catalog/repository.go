package catalog

import "context"

// Repository defines read access to the admissions-transparency course
// tables. Rows come back raw; consolidation, dedup, and ATAR parsing
// are the catalog engine's job.
type Repository interface {
	// CurrentCourses returns every current-status course row for the
	// institution, across all disclosure levels.
	CurrentCourses(ctx context.Context, institutionID int64) ([]CourseRow, error)

	// ComparableBachelorCourses returns current bachelor-degree rows at
	// other institutions that disclose a lowest ATAR, with institution
	// names attached.
	ComparableBachelorCourses(ctx context.Context, excludeInstitutionID int64) ([]ExternalCourseRow, error)

	// ATARHistory returns every current course row for the institution
	// that carries both an ATAR year and a lowest ATAR, for building
	// per-course cutoff trend series.
	ATARHistory(ctx context.Context, institutionID int64) ([]CourseRow, error)

	// AdmissionProfiles returns every current undergraduate course
	// row's published admission profile, across all institutions.
	AdmissionProfiles(ctx context.Context) ([]AdmissionProfileRow, error)
}
