package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/survival-hub/course-survival-hub/internal/domain/institution"
	"github.com/survival-hub/course-survival-hub/internal/domain/report"
	"github.com/survival-hub/course-survival-hub/internal/domain/shared"
)

func TestGetReportValidation(t *testing.T) {
	handler := NewGetReportHandler(newFakeInstRepo(), newFakeStatsRepo(), testEngineConfig(), nil)

	_, err := handler.Handle(context.Background(), GetReportQuery{InstitutionID: 0})
	assert.True(t, shared.IsValidation(err))

	_, err = handler.Handle(context.Background(), GetReportQuery{InstitutionID: 1, FieldID: -1})
	assert.True(t, shared.IsValidation(err))
}

func TestGetReportUnknownInstitution(t *testing.T) {
	handler := NewGetReportHandler(newFakeInstRepo(), newFakeStatsRepo(), testEngineConfig(), nil)

	result, err := handler.Handle(context.Background(), GetReportQuery{InstitutionID: 999})
	assert.Nil(t, result)
	assert.True(t, shared.IsNotFound(err))
	assert.False(t, shared.IsNoData(err))
}

func TestGetReportAbsentSectionsStayNil(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University", State: "NSW"}

	handler := NewGetReportHandler(instRepo, newFakeStatsRepo(), testEngineConfig(), nil)

	result, err := handler.Handle(context.Background(), GetReportQuery{InstitutionID: 1})
	assert.NoError(t, err)

	// An institution with no published statistics still resolves; every
	// section reads as absent, never as zero.
	assert.Nil(t, result.Completion)
	assert.Nil(t, result.Attrition)
	assert.Nil(t, result.Retention)
	assert.Nil(t, result.Success)
	assert.Nil(t, result.International)
	assert.Nil(t, result.CourseLevelMix)
	assert.Nil(t, result.StaffRatio)
	assert.Equal(t, "unknown", result.Trend.Direction)
	assert.Empty(t, result.Trend.Years)
}

func TestGetReportAttritionPercentileAndRisk(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University"}

	statsRepo := newFakeStatsRepo()
	statsRepo.latestRates[rateKey(1, report.StudentDomestic, report.MeasureAttrition)] =
		&report.RateRecord{Year: 2023, Rate: 15}
	statsRepo.ratesForYear[yearKey(2023, report.StudentDomestic, report.MeasureAttrition)] = []report.InstitutionRate{
		{InstitutionID: 1, InstitutionName: "Example University", Rate: 15},
		{InstitutionID: 2, InstitutionName: "Another University", Rate: 10},
		{InstitutionID: 3, InstitutionName: "Third University", Rate: 12},
		{InstitutionID: 4, InstitutionName: "Fourth University", Rate: 20},
		{InstitutionID: 5, InstitutionName: "Total universities", Rate: 99},
	}

	handler := NewGetReportHandler(instRepo, statsRepo, testEngineConfig(), nil)

	result, err := handler.Handle(context.Background(), GetReportQuery{InstitutionID: 1})
	assert.NoError(t, err)
	assert.NotNil(t, result.Attrition)

	// The aggregate "Total universities" row must not dilute the
	// population: mid-rank of 15 within {10, 12, 15, 20}.
	assert.Equal(t, 15.0, result.Attrition.Rate)
	assert.Equal(t, 2023, result.Attrition.Year)
	assert.Equal(t, 62.5, result.Attrition.Percentile)
	assert.Equal(t, "High", result.Attrition.RiskLevel)
	assert.NotNil(t, result.Attrition.NationalAvg)
	assert.Equal(t, 14.25, *result.Attrition.NationalAvg)
}

func TestGetReportCompletion(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University"}

	still := 20.5
	statsRepo := newFakeStatsRepo()
	statsRepo.cohorts["1/4"] = &report.CompletionCohort{
		InstitutionID:    1,
		CohortStart:      2017,
		CohortEnd:        2020,
		DurationYears:    4,
		CompletedPct:     45.67,
		StillEnrolledPct: &still,
	}
	statsRepo.cohortRates["4/2017"] = []float64{40, 50}

	handler := NewGetReportHandler(instRepo, statsRepo, testEngineConfig(), nil)

	result, err := handler.Handle(context.Background(), GetReportQuery{InstitutionID: 1})
	assert.NoError(t, err)
	assert.NotNil(t, result.Completion)
	assert.Equal(t, 45.7, *result.Completion.CompletedPct)
	assert.Equal(t, "2017-2020", result.Completion.CohortPeriod)
	assert.Equal(t, 20.5, *result.Completion.StillEnrolledPct)
	assert.Nil(t, result.Completion.DroppedOutPct)
	assert.Equal(t, 45.0, *result.Completion.NationalAvg)
}

func TestGetReportCompletionNationalAvgFallsBackToLatestCohort(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University"}

	// No peer published the 2017 cohort; the sector mean falls back to
	// the latest cohort any institution published.
	statsRepo := newFakeStatsRepo()
	statsRepo.cohorts["1/4"] = &report.CompletionCohort{
		InstitutionID: 1, CohortStart: 2017, CohortEnd: 2020, DurationYears: 4, CompletedPct: 45,
	}
	statsRepo.latestCohortStart[4] = 2016
	statsRepo.cohortRates["4/2016"] = []float64{42, 44}

	handler := NewGetReportHandler(instRepo, statsRepo, testEngineConfig(), nil)

	result, err := handler.Handle(context.Background(), GetReportQuery{InstitutionID: 1})
	assert.NoError(t, err)
	assert.Equal(t, 43.0, *result.Completion.NationalAvg)
}

func TestGetReportCompletionSectorMeanWithoutOwnCohort(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University"}

	// A provider too new for a tracked cohort still gets the sector
	// mean for the latest cohort anyone published; its own figures
	// stay absent.
	statsRepo := newFakeStatsRepo()
	statsRepo.latestCohortStart[4] = 2017
	statsRepo.cohortRates["4/2017"] = []float64{40, 50}

	handler := NewGetReportHandler(instRepo, statsRepo, testEngineConfig(), nil)

	result, err := handler.Handle(context.Background(), GetReportQuery{InstitutionID: 1})
	assert.NoError(t, err)
	assert.NotNil(t, result.Completion)
	assert.Nil(t, result.Completion.CompletedPct)
	assert.Empty(t, result.Completion.CohortPeriod)
	assert.Equal(t, 45.0, *result.Completion.NationalAvg)
}

func TestGetReportInstitutionLookupOutage(t *testing.T) {
	handler := NewGetReportHandler(outageInstRepo{}, newFakeStatsRepo(), testEngineConfig(), nil)

	// A dead store during the lookup is an outage, never an unknown
	// institution.
	_, err := handler.Handle(context.Background(), GetReportQuery{InstitutionID: 1})
	assert.False(t, shared.IsNotFound(err))
	assert.ErrorIs(t, err, shared.ErrStoreUnavailable)
}

func TestGetReportTrendDirection(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University"}

	// History arrives newest first and a falling attrition rate reads as
	// improving.
	statsRepo := newFakeStatsRepo()
	statsRepo.histories[rateKey(1, report.StudentDomestic, report.MeasureAttrition)] = []report.RateRecord{
		{Year: 2023, Rate: 10},
		{Year: 2022, Rate: 12},
		{Year: 2021, Rate: 14},
	}

	handler := NewGetReportHandler(instRepo, statsRepo, testEngineConfig(), nil)

	result, err := handler.Handle(context.Background(), GetReportQuery{InstitutionID: 1})
	assert.NoError(t, err)
	assert.Equal(t, "improving", result.Trend.Direction)
	assert.Equal(t, -2.0, result.Trend.Slope)
	assert.Equal(t, []TrendPointDTO{
		{Year: 2021, Rate: 14},
		{Year: 2022, Rate: 12},
		{Year: 2023, Rate: 10},
	}, result.Trend.Years)
}

func TestGetReportTrendStableWithinEpsilon(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University"}

	statsRepo := newFakeStatsRepo()
	statsRepo.histories[rateKey(1, report.StudentDomestic, report.MeasureAttrition)] = []report.RateRecord{
		{Year: 2023, Rate: 12.2},
		{Year: 2022, Rate: 12.0},
	}

	handler := NewGetReportHandler(instRepo, statsRepo, testEngineConfig(), nil)

	result, err := handler.Handle(context.Background(), GetReportQuery{InstitutionID: 1})
	assert.NoError(t, err)
	assert.Equal(t, "stable", result.Trend.Direction)
}

func TestGetReportInternationalAbsentWithoutOverseasRates(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University"}

	handler := NewGetReportHandler(instRepo, newFakeStatsRepo(), testEngineConfig(), nil)

	result, err := handler.Handle(context.Background(), GetReportQuery{InstitutionID: 1})
	assert.NoError(t, err)
	assert.Nil(t, result.International)
}

func TestGetReportInternational(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University"}

	statsRepo := newFakeStatsRepo()
	statsRepo.hasRates["1/overseas"] = true
	statsRepo.latestRates[rateKey(1, report.StudentOverseas, report.MeasureRetention)] =
		&report.RateRecord{Year: 2023, Rate: 88.4}
	statsRepo.ratesForYear[yearKey(2023, report.StudentOverseas, report.MeasureRetention)] = []report.InstitutionRate{
		{InstitutionID: 1, InstitutionName: "Example University", Rate: 88.4},
		{InstitutionID: 2, InstitutionName: "Another University", Rate: 90.0},
	}

	handler := NewGetReportHandler(instRepo, statsRepo, testEngineConfig(), nil)

	result, err := handler.Handle(context.Background(), GetReportQuery{InstitutionID: 1})
	assert.NoError(t, err)
	assert.NotNil(t, result.International)
	assert.NotNil(t, result.International.Retention)
	assert.Equal(t, 88.4, result.International.Retention.Rate)
	assert.Equal(t, 89.2, *result.International.Retention.NationalAvg)

	// Measures with no observation stay absent.
	assert.Nil(t, result.International.Attrition)
	assert.Nil(t, result.International.Success)
}

func TestGetReportStaffRatio(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University"}

	nonAcad := 55.27
	eftsl := 25000.0
	acadFTE := 830.0
	nonAcadFTE := 452.0
	statsRepo := newFakeStatsRepo()
	statsRepo.staffLatest[1] = &report.StaffRatioRecord{
		Year:             2023,
		AcademicRatio:    30,
		NonAcademicRatio: &nonAcad,
		EFTSL:            &eftsl,
		AcademicFTE:      &acadFTE,
		NonAcademicFTE:   &nonAcadFTE,
	}
	statsRepo.staffByYear[2023] = []report.InstitutionRatio{
		{InstitutionID: 1, InstitutionName: "Example University", AcademicRatio: 30},
		{InstitutionID: 2, InstitutionName: "Another University", AcademicRatio: 20},
		{InstitutionID: 3, InstitutionName: "Third University", AcademicRatio: 40},
		{InstitutionID: 4, InstitutionName: "Fourth University", AcademicRatio: 50},
		{InstitutionID: 5, InstitutionName: "Stub University", AcademicRatio: 1.5},
	}
	statsRepo.staffTrend[1] = []report.StaffRatioRecord{
		{Year: 2022, AcademicRatio: 29},
		{Year: 2023, AcademicRatio: 30},
	}

	handler := NewGetReportHandler(instRepo, statsRepo, testEngineConfig(), nil)

	result, err := handler.Handle(context.Background(), GetReportQuery{InstitutionID: 1})
	assert.NoError(t, err)
	assert.NotNil(t, result.StaffRatio)

	// The 1.5 ratio is a partial-return artifact and sits below the
	// floor, so the population is {30, 20, 40, 50}.
	assert.Equal(t, 30.0, result.StaffRatio.AcademicRatio)
	assert.Equal(t, 35.0, *result.StaffRatio.NationalAvg)
	assert.Equal(t, 37.5, result.StaffRatio.Percentile)

	// The published staffing figures ride along with the ratio.
	assert.Equal(t, 55.3, *result.StaffRatio.NonAcademicRatio)
	assert.Equal(t, 25000.0, *result.StaffRatio.EFTSL)
	assert.Equal(t, 830.0, *result.StaffRatio.AcademicFTE)
	assert.Equal(t, 452.0, *result.StaffRatio.NonAcademicFTE)

	// Fewer students per academic than most peers means higher staffing
	// intensity; the band is inverted relative to risk.
	assert.Equal(t, "High", result.StaffRatio.Intensity)

	// Two observations never earn a direction.
	assert.Len(t, result.StaffRatio.Trend, 2)
	assert.Empty(t, result.StaffRatio.Direction)
}

func TestCourseLevelShares(t *testing.T) {
	shares := courseLevelShares(&report.CourseLevelMix{
		Year:               2024,
		PostgradResearch:   100,
		PostgradCoursework: 300,
		Bachelor:           500,
		SubBachelor:        100,
		Total:              1100,
	})
	assert.NotNil(t, shares)
	assert.Equal(t, 10.0, shares.PostgradResearchPct)
	assert.Equal(t, 30.0, shares.PostgradCourseworkPct)
	assert.Equal(t, 50.0, shares.BachelorPct)
	assert.Equal(t, 10.0, shares.SubBachelorPct)

	// A provider with no students across the displayed levels has no
	// mix, not an all-zero one.
	assert.Nil(t, courseLevelShares(&report.CourseLevelMix{Year: 2024, Total: 40}))
	assert.Nil(t, courseLevelShares(nil))
}

func TestCourseLevelEfficiency(t *testing.T) {
	enrol := &report.CourseLevelMix{Bachelor: 1000, PostgradCoursework: 0, Total: 1000}
	compl := &report.CourseLevelMix{Bachelor: 250, PostgradCoursework: 10, Total: 260}

	eff := courseLevelEfficiency(enrol, compl)
	assert.NotNil(t, eff)
	assert.Equal(t, 25.0, *eff.Bachelor)
	assert.Equal(t, 26.0, *eff.Overall)

	// Completions without enrolment leave efficiency undefined.
	assert.Nil(t, eff.PostgradCoursework)
	assert.Nil(t, eff.PostgradResearch)
}

func TestGetReportFieldContext(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University"}
	instRepo.fields[7] = &institution.FieldOfEducation{ID: 7, Name: "Health"}

	statsRepo := newFakeStatsRepo()
	statsRepo.latestEnrolYear[1] = 2024
	statsRepo.fieldEnrolment["1/7/2024"] = 400
	statsRepo.totalEnrolment["1/2024"] = 2000
	statsRepo.fieldCompl["1/7/2024"] = 100
	// The second campus trades under the same name; position matching
	// must go by id, not name.
	statsRepo.enrolByInst["7/2024"] = []report.InstitutionHeadcount{
		{InstitutionID: 1, InstitutionName: "Example University", Headcount: 400},
		{InstitutionID: 2, InstitutionName: "Example University", Headcount: 600},
	}
	statsRepo.complByInst["7/2024"] = []report.InstitutionHeadcount{
		{InstitutionID: 1, InstitutionName: "Example University", Headcount: 100},
		{InstitutionID: 2, InstitutionName: "Example University", Headcount: 300},
	}

	handler := NewGetReportHandler(instRepo, statsRepo, testEngineConfig(), nil)

	result, err := handler.Handle(context.Background(), GetReportQuery{InstitutionID: 1, FieldID: 7})
	assert.NoError(t, err)
	assert.NotNil(t, result.FieldContext)
	assert.Equal(t, 2024, result.FieldContext.Year)
	assert.Equal(t, int64(400), result.FieldContext.Enrolment)
	assert.Equal(t, 20.0, result.FieldContext.SharePct)
	assert.Equal(t, 25.0, *result.FieldContext.CompletionRatio)
	assert.NotNil(t, result.FieldContext.Ranking)
	assert.Equal(t, 1, result.FieldContext.Ranking.Institutions[0].Rank)

	// Institution 2 leads at 50%; the reported provider sits second of
	// two with its own ratio.
	position := result.FieldContext.Ranking.ThisInstitution
	assert.NotNil(t, position)
	assert.Equal(t, 2, position.Rank)
	assert.Equal(t, 2, position.Of)
	assert.Equal(t, 25.0, position.Ratio)
}

func TestGetReportFieldContextUnknownField(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University"}

	handler := NewGetReportHandler(instRepo, newFakeStatsRepo(), testEngineConfig(), nil)

	_, err := handler.Handle(context.Background(), GetReportQuery{InstitutionID: 1, FieldID: 99})
	assert.True(t, shared.IsNotFound(err))
}
