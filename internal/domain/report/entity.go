// Package report contains the read model for institutional report
// cards: the typed records served by the statistics store and the
// repository contract the engines consume.
//
// Every record is a strongly-typed snapshot of one relational row; the
// engines never touch dynamically-keyed data. A rate is a *float64;
// nil means "not measured", which is a different fact from a measured
// zero and must stay distinct through the whole pipeline.
package report

// StudentType selects a cohort slice of the attrition/retention tables.
type StudentType string

const (
	StudentDomestic StudentType = "domestic"
	StudentOverseas StudentType = "overseas"
	StudentAll      StudentType = "all"
)

// Measure names one of the tracked attrition/retention series.
type Measure string

const (
	MeasureAttrition Measure = "attrition"
	MeasureRetention Measure = "retention"
	MeasureSuccess   Measure = "success"
)

// CourseLevelMeasure selects the enrolment or completion side of the
// course-level mix table.
type CourseLevelMeasure string

const (
	CourseLevelEnrolment  CourseLevelMeasure = "enrolment"
	CourseLevelCompletion CourseLevelMeasure = "completion"
)

// RateRecord is one (year, rate) observation for a single institution.
// Only rows with a present rate are served; absence is expressed by the
// row not existing.
type RateRecord struct {
	Year int
	Rate float64
}

// InstitutionRate is a rate observation joined with the institution it
// belongs to, used to build national populations. The engine applies
// the reportable-name filter; the store does not.
type InstitutionRate struct {
	InstitutionID   int64
	InstitutionName string
	Rate            float64
}

// CompletionCohort is one completion-rate row: a cohort tracked over a
// fixed duration window.
type CompletionCohort struct {
	InstitutionID int64
	CohortStart   int
	CohortEnd     int
	DurationYears int
	CompletedPct  float64

	// Breakdown percentages are only published for the 4-year window.
	StillEnrolledPct *float64
	DroppedOutPct    *float64
	NeverReturnedPct *float64
}

// YearValue is a generic (year, headcount) point for trend series.
type YearValue struct {
	Year  int
	Value int64
}

// InstitutionHeadcount is a per-institution headcount for one field and
// year, used by the ranking and heatmap joins.
type InstitutionHeadcount struct {
	InstitutionID   int64
	InstitutionName string
	State           string
	Headcount       int64
}

// CourseLevelMix is one course-level-mix row: headcounts across the
// four displayed broad levels plus the grand total (which may include
// enabling and non-award courses).
type CourseLevelMix struct {
	Year               int
	PostgradResearch   int64
	PostgradCoursework int64
	Bachelor           int64
	SubBachelor        int64
	Total              int64
}

// DisplayedSum is the four-category denominator used for percentage
// shares so a stacked bar always fills to 100%.
func (m CourseLevelMix) DisplayedSum() int64 {
	return m.PostgradResearch + m.PostgradCoursework + m.Bachelor + m.SubBachelor
}

// StaffRatioRecord is one student-staff ratio row for an institution.
type StaffRatioRecord struct {
	Year             int
	AcademicRatio    float64
	NonAcademicRatio *float64
	EFTSL            *float64
	AcademicFTE      *float64
	NonAcademicFTE   *float64
}

// InstitutionRatio joins an academic staff ratio with its institution,
// for national averages and percentile populations.
type InstitutionRatio struct {
	InstitutionID    int64
	InstitutionName  string
	AcademicRatio    float64
	NonAcademicRatio *float64
}
