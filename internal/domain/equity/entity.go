// Package equity models the equity-cohort performance tables: retention,
// success, and attainment rates broken down by designated equity group.
package equity

// Group identifies one designated equity cohort tracked by the national
// collection, plus the all-domestic baseline every gap is measured
// against.
type Group string

const (
	GroupAllDomestic  Group = "all_domestic"
	GroupLowSES       Group = "low_ses"
	GroupRegional     Group = "regional"
	GroupFirstNations Group = "first_nations"
	GroupDisability   Group = "disability"
	GroupNESB         Group = "nesb"
	GroupRemote       Group = "remote"
)

// Measure names one of the per-group outcome series.
type Measure string

const (
	MeasureRetention  Measure = "retention"
	MeasureSuccess    Measure = "success"
	MeasureAttainment Measure = "attainment"
)

// ReportedGroups is the fixed presentation order of the equity cohorts
// in a gap report. The all-domestic baseline is reported separately.
var ReportedGroups = []Group{
	GroupLowSES,
	GroupRegional,
	GroupFirstNations,
	GroupDisability,
	GroupNESB,
	GroupRemote,
}

// ReportedMeasures is the fixed presentation order of the measures.
var ReportedMeasures = []Measure{
	MeasureRetention,
	MeasureSuccess,
	MeasureAttainment,
}

// GroupLabels maps group codes to their display names.
var GroupLabels = map[Group]string{
	GroupAllDomestic:  "All Domestic Students",
	GroupLowSES:       "Low Socioeconomic Status",
	GroupRegional:     "Regional Students",
	GroupRemote:       "Remote Students",
	GroupFirstNations: "First Nations Students",
	GroupDisability:   "Students with Disability",
	GroupNESB:         "Non-English Speaking Background",
}

// Label returns the display name for a group, falling back to the raw
// code for groups the collection adds later.
func (g Group) Label() string {
	if l, ok := GroupLabels[g]; ok {
		return l
	}
	return string(g)
}

// RateRecord is one (year, rate) observation for a single
// (institution, group, measure) series.
type RateRecord struct {
	Year int
	Rate float64
}

// InstitutionRate joins a group rate with the institution it belongs
// to, for building national populations. Name filtering is the
// engine's concern.
type InstitutionRate struct {
	InstitutionID   int64
	InstitutionName string
	Rate            float64
}
