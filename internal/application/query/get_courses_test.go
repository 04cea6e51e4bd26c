package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/survival-hub/course-survival-hub/internal/domain/catalog"
	"github.com/survival-hub/course-survival-hub/internal/domain/institution"
	"github.com/survival-hub/course-survival-hub/internal/domain/shared"
)

func TestGetCoursesUnknownInstitution(t *testing.T) {
	handler := NewGetCoursesHandler(newFakeInstRepo(), newFakeCatalogRepo(), nil)

	_, err := handler.Handle(context.Background(), GetCoursesQuery{InstitutionID: 999})
	assert.True(t, shared.IsNotFound(err))
}

func TestGetCoursesNoData(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University"}

	handler := NewGetCoursesHandler(instRepo, newFakeCatalogRepo(), nil)

	_, err := handler.Handle(context.Background(), GetCoursesQuery{InstitutionID: 1})
	assert.True(t, shared.IsNoData(err))
}

func nursingRow(code, campusCode, campusName string, atar *string) catalog.CourseRow {
	return catalog.CourseRow{
		InstitutionID: 1,
		CourseCode:    code,
		Title:         "Bachelor of Nursing",
		CourseLevel:   "TBP",
		FeeType:       "CSP",
		CampusCode:    campusCode,
		CampusName:    campusName,
		Status:        "C",
		Level:         "undergraduate",
		AreasOfStudy:  "Nursing",
		ATARLowest:    atar,
		ATARYear:      2024,
	}
}

func TestConsolidateCoursesMultiCampus(t *testing.T) {
	rows := []catalog.CourseRow{
		nursingRow("N1", "CA", "City Campus", strPtr("65.00")),
		nursingRow("N2", "CB", "Regional Campus", strPtr("60.50")),
		nursingRow("N3", "CC", "Coastal Campus", strPtr("NC")),
	}

	// The same (course, campus) row repeats under the postgraduate
	// disclosure; only the level list grows.
	pgDup := nursingRow("N2", "CB", "Regional Campus", strPtr("60.50"))
	pgDup.Level = "postgraduate"
	rows = append(rows, pgDup)

	courses, codeToPrimary := consolidateCourses(rows)
	assert.Len(t, courses, 1)

	course := courses[0]
	assert.Equal(t, "Bachelor of Nursing", course.Title)
	assert.Equal(t, 3, course.CampusCount)
	assert.Equal(t, []string{"undergraduate", "postgraduate"}, course.Levels)

	// Every campus code maps to the lowest-cutoff entry.
	assert.Equal(t, "N2", course.CourseCode)
	assert.Equal(t, "N2", codeToPrimary["N1"])
	assert.Equal(t, "N2", codeToPrimary["N3"])

	// Multi-campus cards carry the group minimum and no single campus
	// name; per-campus detail lives in Campuses, valid cutoffs first.
	assert.Nil(t, course.CampusName)
	assert.Equal(t, 60.5, *course.ATARLowestNum)
	assert.Equal(t, "Regional Campus", course.Campuses[0].CampusName)
	assert.Equal(t, "City Campus", course.Campuses[1].CampusName)
	assert.Equal(t, "Coastal Campus", course.Campuses[2].CampusName)
	assert.Nil(t, course.Campuses[2].ATARLowestNum)
}

func TestConsolidateCoursesSingleCampus(t *testing.T) {
	courses, _ := consolidateCourses([]catalog.CourseRow{
		nursingRow("N1", "CA", "City Campus", strPtr("71.05")),
	})
	assert.Len(t, courses, 1)
	assert.Equal(t, "City Campus", *courses[0].CampusName)
	assert.Equal(t, 1, courses[0].CampusCount)
	assert.Equal(t, 71.05, *courses[0].ATARLowestNum)
	assert.Equal(t, "Health", courses[0].Field)
	assert.Equal(t, "Nursing", courses[0].Discipline)
}

func TestConsolidateCoursesLowerLevelReplaces(t *testing.T) {
	intl := nursingRow("N1", "CA", "City Campus", strPtr("NC"))
	intl.Level = "international"
	ug := nursingRow("N1", "CA", "City Campus", strPtr("64.00"))

	// The undergraduate disclosure outranks the international one and
	// wins every attribute conflict, but the level list is still the
	// union of the disclosures seen, in either arrival order.
	courses, _ := consolidateCourses([]catalog.CourseRow{intl, ug})
	assert.Len(t, courses, 1)
	assert.ElementsMatch(t, []string{"undergraduate", "international"}, courses[0].Levels)
	assert.Equal(t, 64.0, *courses[0].ATARLowestNum)
}

func TestConsolidateCoursesCampusNameFallsBackToCode(t *testing.T) {
	courses, _ := consolidateCourses([]catalog.CourseRow{
		nursingRow("N1", "CA", "", strPtr("64.00")),
	})
	assert.Equal(t, "CA", *courses[0].CampusName)
}

func TestSummarizeCourses(t *testing.T) {
	rows := []catalog.CourseRow{
		nursingRow("N1", "CA", "City Campus", strPtr("65.00")),
		{
			InstitutionID: 1, CourseCode: "L1", Title: "Bachelor of Laws",
			CourseLevel: "TBP", FeeType: "DFEE", CampusCode: "CA", CampusName: "City Campus",
			Status: "C", Level: "undergraduate", AreasOfStudy: "Law",
			ATARLowest: strPtr("90.00"), ATARYear: 2024,
		},
		{
			InstitutionID: 1, CourseCode: "G1", Title: "Graduate Certificate in Management",
			CourseLevel: "TGC", FeeType: "DFEE", CampusCode: "CA", CampusName: "City Campus",
			Status: "C", Level: "postgraduate",
		},
	}

	courses, _ := consolidateCourses(rows)
	summary := summarizeCourses(courses)

	assert.Equal(t, 3, summary.TotalCourses)
	assert.Equal(t, 2, summary.CoursesWithATAR)
	assert.Equal(t, 65.0, summary.ATARRange.Low)
	assert.Equal(t, 90.0, summary.ATARRange.High)
	assert.Equal(t, 2024, summary.ATARYear)
	assert.Equal(t, map[string]int{"TBP": 2, "TGC": 1}, summary.ByCourseLevel)
	assert.Equal(t, map[string]int{"CSP": 1, "DFEE": 2}, summary.ByFeeType)
	assert.Equal(t, 1, summary.ByFieldOfStudy["Health"])
}

func TestGetCoursesComparisonMatchesDiscipline(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University"}

	catalogRepo := newFakeCatalogRepo()
	catalogRepo.courses[1] = []catalog.CourseRow{
		nursingRow("N1", "CA", "City Campus", strPtr("65.00")),
	}
	catalogRepo.external = []catalog.ExternalCourseRow{
		{
			InstitutionID: 2, InstitutionName: "Another University",
			CourseCode: "X1", Title: "Bachelor of Nursing",
			ATARLowest: strPtr("70.00"), PctATARBased: strPtr("80"),
		},
		{
			// Same broad field, different discipline: must not appear
			// against a discipline-matched course.
			InstitutionID: 3, InstitutionName: "Third University",
			CourseCode: "X2", Title: "Bachelor of Physiotherapy",
			ATARLowest: strPtr("50.00"), PctATARBased: strPtr("80"),
		},
		{
			// Cutoff backed by a sliver of ATAR-based admissions.
			InstitutionID: 4, InstitutionName: "Fourth University",
			CourseCode: "X3", Title: "Bachelor of Nursing",
			ATARLowest: strPtr("40.00"), PctATARBased: strPtr("10"),
		},
		{
			// Suppressed cutoff.
			InstitutionID: 5, InstitutionName: "Fifth University",
			CourseCode: "X4", Title: "Bachelor of Nursing",
			ATARLowest: strPtr("NC"), PctATARBased: strPtr("80"),
		},
	}

	handler := NewGetCoursesHandler(instRepo, catalogRepo, nil)

	result, err := handler.Handle(context.Background(), GetCoursesQuery{InstitutionID: 1})
	assert.NoError(t, err)

	comparison := result.FieldComparison["N1"]
	assert.Len(t, comparison, 1)
	assert.Equal(t, "Another University", comparison[0].Institution)
	assert.Equal(t, 70.0, comparison[0].ATAR)
}

func TestGetCoursesComparisonKeepsLowestPerInstitution(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University"}

	catalogRepo := newFakeCatalogRepo()
	catalogRepo.courses[1] = []catalog.CourseRow{
		nursingRow("N1", "CA", "City Campus", strPtr("65.00")),
	}
	catalogRepo.external = []catalog.ExternalCourseRow{
		{
			InstitutionID: 2, InstitutionName: "Another University",
			CourseCode: "X1", Title: "Bachelor of Nursing",
			ATARLowest: strPtr("75.00"), PctATARBased: strPtr("80"),
		},
		{
			InstitutionID: 2, InstitutionName: "Another University",
			CourseCode: "X2", Title: "Bachelor of Nursing (Advanced)",
			ATARLowest: strPtr("68.00"), PctATARBased: strPtr("80"),
		},
		{
			InstitutionID: 3, InstitutionName: "Third University",
			CourseCode: "X3", Title: "Bachelor of Nursing",
			ATARLowest: strPtr("72.00"), PctATARBased: strPtr("80"),
		},
	}

	handler := NewGetCoursesHandler(instRepo, catalogRepo, nil)

	result, err := handler.Handle(context.Background(), GetCoursesQuery{InstitutionID: 1})
	assert.NoError(t, err)

	// One entry per institution, cheapest entry first.
	comparison := result.FieldComparison["N1"]
	assert.Len(t, comparison, 2)
	assert.Equal(t, "Another University", comparison[0].Institution)
	assert.Equal(t, 68.0, comparison[0].ATAR)
	assert.Equal(t, "Third University", comparison[1].Institution)
	assert.Equal(t, 72.0, comparison[1].ATAR)
}

func TestGetCoursesATARTrends(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University"}

	catalogRepo := newFakeCatalogRepo()
	catalogRepo.courses[1] = []catalog.CourseRow{
		nursingRow("N1", "CA", "City Campus", strPtr("65.00")),
		nursingRow("N2", "CB", "Regional Campus", strPtr("60.50")),
	}

	h1 := nursingRow("N1", "CA", "City Campus", strPtr("65.00"))
	h2 := nursingRow("N1", "CA", "City Campus", strPtr("67.00"))
	h2.ATARYear = 2023
	h3 := nursingRow("N2", "CB", "Regional Campus", strPtr("60.50"))
	h4 := nursingRow("N2", "CB", "Regional Campus", strPtr("62.00"))
	h4.ATARYear = 2023
	h5 := nursingRow("N2", "CB", "Regional Campus", strPtr("63.00"))
	h5.ATARYear = 2022
	catalogRepo.history[1] = []catalog.CourseRow{h1, h2, h3, h4, h5}

	handler := NewGetCoursesHandler(instRepo, catalogRepo, nil)

	result, err := handler.Handle(context.Background(), GetCoursesQuery{InstitutionID: 1})
	assert.NoError(t, err)

	// Both campus series merge under the primary code; the longer one
	// wins.
	assert.Len(t, result.ATARTrends, 1)
	assert.Len(t, result.ATARTrends["N2"], 3)

	// The series charts oldest first even though the store handed the
	// rows back newest first.
	years := make([]int, 0, 3)
	for _, p := range result.ATARTrends["N2"] {
		years = append(years, p.Year)
	}
	assert.Equal(t, []int{2022, 2023, 2024}, years)
}

func TestGetCoursesATARTrendsDropSinglePoints(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University"}

	catalogRepo := newFakeCatalogRepo()
	catalogRepo.courses[1] = []catalog.CourseRow{
		nursingRow("N1", "CA", "City Campus", strPtr("65.00")),
	}
	catalogRepo.history[1] = []catalog.CourseRow{
		nursingRow("N1", "CA", "City Campus", strPtr("65.00")),
	}

	handler := NewGetCoursesHandler(instRepo, catalogRepo, nil)

	// A single observation is a data point, not a trend.
	result, err := handler.Handle(context.Background(), GetCoursesQuery{InstitutionID: 1})
	assert.NoError(t, err)
	assert.Nil(t, result.ATARTrends)
}
