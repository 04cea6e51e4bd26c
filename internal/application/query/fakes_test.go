package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/survival-hub/course-survival-hub/config"
	"github.com/survival-hub/course-survival-hub/internal/domain/catalog"
	"github.com/survival-hub/course-survival-hub/internal/domain/equity"
	"github.com/survival-hub/course-survival-hub/internal/domain/institution"
	"github.com/survival-hub/course-survival-hub/internal/domain/report"
	"github.com/survival-hub/course-survival-hub/internal/domain/shared"
)

// testEngineConfig mirrors the production defaults the engines are
// deployed with.
func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		NoiseNameTokens:         []string{"Total", "Provider"},
		MinNameLength:           5,
		MinEnrolment:            50,
		EnrolmentReferenceYear:  2024,
		ExcludedFieldIDs:        []int64{11, 12, 13},
		HeatmapLowMax:           10,
		HeatmapMediumMax:        18,
		MinAcademicRatio:        3,
		TrendEpsilon:            0.3,
		AttritionTrendYears:     8,
		TrendSlopePoints:        5,
		InternationalTrendYears: 5,
		EquityTrendYears:        5,
		EquityStrongShare:       0.7,
		EquityMixedShare:        0.4,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Institution repository fake
// ─────────────────────────────────────────────────────────────────────────────

type fakeInstRepo struct {
	institutions map[int64]*institution.Institution
	fields       map[int64]*institution.FieldOfEducation
	listed       []institution.Institution
	fieldList    []institution.FieldOfEducation
}

func newFakeInstRepo() *fakeInstRepo {
	return &fakeInstRepo{
		institutions: make(map[int64]*institution.Institution),
		fields:       make(map[int64]*institution.FieldOfEducation),
	}
}

func (f *fakeInstRepo) GetInstitution(_ context.Context, id int64) (*institution.Institution, error) {
	if inst, ok := f.institutions[id]; ok {
		return inst, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeInstRepo) GetField(_ context.Context, id int64) (*institution.FieldOfEducation, error) {
	if field, ok := f.fields[id]; ok {
		return field, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeInstRepo) ListInstitutionsWithAttrition(_ context.Context) ([]institution.Institution, error) {
	return f.listed, nil
}

func (f *fakeInstRepo) ListFields(_ context.Context) ([]institution.FieldOfEducation, error) {
	return f.fieldList, nil
}

// outageInstRepo fails every lookup with a plain driver error, the way
// a dead connection pool does.
type outageInstRepo struct{}

var errStoreDown = errors.New("connection refused")

func (outageInstRepo) GetInstitution(context.Context, int64) (*institution.Institution, error) {
	return nil, errStoreDown
}

func (outageInstRepo) GetField(context.Context, int64) (*institution.FieldOfEducation, error) {
	return nil, errStoreDown
}

func (outageInstRepo) ListInstitutionsWithAttrition(context.Context) ([]institution.Institution, error) {
	return nil, errStoreDown
}

func (outageInstRepo) ListFields(context.Context) ([]institution.FieldOfEducation, error) {
	return nil, errStoreDown
}

// ─────────────────────────────────────────────────────────────────────────────
// Stats repository fake
// ─────────────────────────────────────────────────────────────────────────────

type fakeStatsRepo struct {
	latestRates  map[string]*report.RateRecord
	histories    map[string][]report.RateRecord
	ratesForYear map[string][]report.InstitutionRate
	latestYears  map[string]int
	hasRates     map[string]bool

	cohorts           map[string]*report.CompletionCohort
	cohortRates       map[string][]float64
	latestCohortStart map[int]int

	latestEnrolYear map[int64]int
	fieldEnrolment  map[string]int64
	totalEnrolment  map[string]int64
	fieldCompl      map[string]int64
	totalCompl      map[string]int64
	enrolTrend      map[string][]report.YearValue
	complTrend      map[string][]report.YearValue
	enrolByInst     map[string][]report.InstitutionHeadcount
	complByInst     map[string][]report.InstitutionHeadcount

	mixes    map[string]*report.CourseLevelMix
	natMixes map[report.CourseLevelMeasure]*report.CourseLevelMix

	staffLatest map[int64]*report.StaffRatioRecord
	staffByYear map[int][]report.InstitutionRatio
	staffTrend  map[int64][]report.StaffRatioRecord
}

func newFakeStatsRepo() *fakeStatsRepo {
	return &fakeStatsRepo{
		latestRates:       make(map[string]*report.RateRecord),
		histories:         make(map[string][]report.RateRecord),
		ratesForYear:      make(map[string][]report.InstitutionRate),
		latestYears:       make(map[string]int),
		hasRates:          make(map[string]bool),
		cohorts:           make(map[string]*report.CompletionCohort),
		cohortRates:       make(map[string][]float64),
		latestCohortStart: make(map[int]int),
		latestEnrolYear:   make(map[int64]int),
		fieldEnrolment:    make(map[string]int64),
		totalEnrolment:    make(map[string]int64),
		fieldCompl:        make(map[string]int64),
		totalCompl:        make(map[string]int64),
		enrolTrend:        make(map[string][]report.YearValue),
		complTrend:        make(map[string][]report.YearValue),
		enrolByInst:       make(map[string][]report.InstitutionHeadcount),
		complByInst:       make(map[string][]report.InstitutionHeadcount),
		mixes:             make(map[string]*report.CourseLevelMix),
		natMixes:          make(map[report.CourseLevelMeasure]*report.CourseLevelMix),
		staffLatest:       make(map[int64]*report.StaffRatioRecord),
		staffByYear:       make(map[int][]report.InstitutionRatio),
		staffTrend:        make(map[int64][]report.StaffRatioRecord),
	}
}

func rateKey(instID int64, st report.StudentType, m report.Measure) string {
	return fmt.Sprintf("%d/%s/%s", instID, st, m)
}

func yearKey(year int, st report.StudentType, m report.Measure) string {
	return fmt.Sprintf("%d/%s/%s", year, st, m)
}

func (f *fakeStatsRepo) LatestRate(_ context.Context, instID int64, st report.StudentType, m report.Measure) (*report.RateRecord, error) {
	return f.latestRates[rateKey(instID, st, m)], nil
}

func (f *fakeStatsRepo) RateHistory(_ context.Context, instID int64, st report.StudentType, m report.Measure, limit int) ([]report.RateRecord, error) {
	history := f.histories[rateKey(instID, st, m)]
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

func (f *fakeStatsRepo) RatesForYear(_ context.Context, year int, st report.StudentType, m report.Measure) ([]report.InstitutionRate, error) {
	return f.ratesForYear[yearKey(year, st, m)], nil
}

func (f *fakeStatsRepo) LatestYearWithRates(_ context.Context, st report.StudentType, m report.Measure) (int, error) {
	return f.latestYears[fmt.Sprintf("%s/%s", st, m)], nil
}

func (f *fakeStatsRepo) HasRates(_ context.Context, instID int64, st report.StudentType) (bool, error) {
	return f.hasRates[fmt.Sprintf("%d/%s", instID, st)], nil
}

func (f *fakeStatsRepo) LatestCompletionCohort(_ context.Context, instID int64, duration int) (*report.CompletionCohort, error) {
	return f.cohorts[fmt.Sprintf("%d/%d", instID, duration)], nil
}

func (f *fakeStatsRepo) CompletionRatesForCohort(_ context.Context, duration, cohortStart int) ([]float64, error) {
	return f.cohortRates[fmt.Sprintf("%d/%d", duration, cohortStart)], nil
}

func (f *fakeStatsRepo) LatestCohortStart(_ context.Context, duration int) (int, error) {
	return f.latestCohortStart[duration], nil
}

func (f *fakeStatsRepo) LatestEnrolmentYear(_ context.Context, instID int64) (int, error) {
	return f.latestEnrolYear[instID], nil
}

func (f *fakeStatsRepo) FieldEnrolment(_ context.Context, instID, fieldID int64, year int) (int64, error) {
	return f.fieldEnrolment[fmt.Sprintf("%d/%d/%d", instID, fieldID, year)], nil
}

func (f *fakeStatsRepo) TotalEnrolment(_ context.Context, instID int64, year int) (int64, error) {
	return f.totalEnrolment[fmt.Sprintf("%d/%d", instID, year)], nil
}

func (f *fakeStatsRepo) FieldCompletions(_ context.Context, instID, fieldID int64, year int) (int64, error) {
	return f.fieldCompl[fmt.Sprintf("%d/%d/%d", instID, fieldID, year)], nil
}

func (f *fakeStatsRepo) TotalCompletions(_ context.Context, instID int64, year int) (int64, error) {
	return f.totalCompl[fmt.Sprintf("%d/%d", instID, year)], nil
}

func (f *fakeStatsRepo) FieldEnrolmentTrend(_ context.Context, instID, fieldID int64) ([]report.YearValue, error) {
	return f.enrolTrend[fmt.Sprintf("%d/%d", instID, fieldID)], nil
}

func (f *fakeStatsRepo) FieldCompletionsTrend(_ context.Context, instID, fieldID int64) ([]report.YearValue, error) {
	return f.complTrend[fmt.Sprintf("%d/%d", instID, fieldID)], nil
}

func (f *fakeStatsRepo) FieldEnrolmentsByInstitution(_ context.Context, fieldID int64, year int) ([]report.InstitutionHeadcount, error) {
	return f.enrolByInst[fmt.Sprintf("%d/%d", fieldID, year)], nil
}

func (f *fakeStatsRepo) FieldCompletionsByInstitution(_ context.Context, fieldID int64, year int) ([]report.InstitutionHeadcount, error) {
	return f.complByInst[fmt.Sprintf("%d/%d", fieldID, year)], nil
}

func (f *fakeStatsRepo) LatestCourseLevelMix(_ context.Context, instID int64, m report.CourseLevelMeasure) (*report.CourseLevelMix, error) {
	return f.mixes[fmt.Sprintf("%d/%s", instID, m)], nil
}

func (f *fakeStatsRepo) NationalCourseLevelMix(_ context.Context, m report.CourseLevelMeasure) (*report.CourseLevelMix, error) {
	return f.natMixes[m], nil
}

func (f *fakeStatsRepo) LatestStaffRatio(_ context.Context, instID int64) (*report.StaffRatioRecord, error) {
	return f.staffLatest[instID], nil
}

func (f *fakeStatsRepo) StaffRatiosForYear(_ context.Context, year int) ([]report.InstitutionRatio, error) {
	return f.staffByYear[year], nil
}

func (f *fakeStatsRepo) StaffRatioTrend(_ context.Context, instID int64) ([]report.StaffRatioRecord, error) {
	return f.staffTrend[instID], nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Equity repository fake
// ─────────────────────────────────────────────────────────────────────────────

type fakeEquityRepo struct {
	hasData      map[int64]bool
	latestYears  map[string]int
	rates        map[string]*equity.RateRecord
	ratesForYear map[string][]equity.InstitutionRate
	histories    map[string][]equity.RateRecord
}

func newFakeEquityRepo() *fakeEquityRepo {
	return &fakeEquityRepo{
		hasData:      make(map[int64]bool),
		latestYears:  make(map[string]int),
		rates:        make(map[string]*equity.RateRecord),
		ratesForYear: make(map[string][]equity.InstitutionRate),
		histories:    make(map[string][]equity.RateRecord),
	}
}

func (f *fakeEquityRepo) HasData(_ context.Context, instID int64) (bool, error) {
	return f.hasData[instID], nil
}

func (f *fakeEquityRepo) LatestYear(_ context.Context, instID int64, m equity.Measure) (int, error) {
	return f.latestYears[fmt.Sprintf("%d/%s", instID, m)], nil
}

func (f *fakeEquityRepo) RateAt(_ context.Context, instID int64, g equity.Group, m equity.Measure, year int) (*equity.RateRecord, error) {
	return f.rates[fmt.Sprintf("%d/%s/%s/%d", instID, g, m, year)], nil
}

func (f *fakeEquityRepo) RatesForYear(_ context.Context, year int, g equity.Group, m equity.Measure) ([]equity.InstitutionRate, error) {
	return f.ratesForYear[fmt.Sprintf("%d/%s/%s", year, g, m)], nil
}

func (f *fakeEquityRepo) RateHistory(_ context.Context, instID int64, g equity.Group, m equity.Measure, limit int) ([]equity.RateRecord, error) {
	history := f.histories[fmt.Sprintf("%d/%s/%s", instID, g, m)]
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Catalog repository fake
// ─────────────────────────────────────────────────────────────────────────────

type fakeCatalogRepo struct {
	courses  map[int64][]catalog.CourseRow
	external []catalog.ExternalCourseRow
	history  map[int64][]catalog.CourseRow
	profiles []catalog.AdmissionProfileRow
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		courses: make(map[int64][]catalog.CourseRow),
		history: make(map[int64][]catalog.CourseRow),
	}
}

func (f *fakeCatalogRepo) CurrentCourses(_ context.Context, instID int64) ([]catalog.CourseRow, error) {
	return f.courses[instID], nil
}

func (f *fakeCatalogRepo) ComparableBachelorCourses(_ context.Context, _ int64) ([]catalog.ExternalCourseRow, error) {
	return f.external, nil
}

func (f *fakeCatalogRepo) ATARHistory(_ context.Context, instID int64) ([]catalog.CourseRow, error) {
	return f.history[instID], nil
}

func (f *fakeCatalogRepo) AdmissionProfiles(_ context.Context) ([]catalog.AdmissionProfileRow, error) {
	return f.profiles, nil
}

func strPtr(s string) *string { return &s }

func floatPtr(v float64) *float64 { return &v }
