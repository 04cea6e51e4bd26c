// Package catalog models the admissions-transparency course data: the
// raw per-campus course rows scraped from provider disclosures, the
// typed views the catalog engine assembles from them, and the ATAR
// parsing rules the whole pipeline shares.
package catalog

import (
	"strconv"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// RAW ROWS
// ══════════════════════════════════════════════════════════════════════════════

// CourseRow is one per-campus course offering as disclosed by a
// provider. Strings are kept raw: ATAR and percentage columns mix
// numbers with sentinel codes and only the parse helpers decide which
// is which.
type CourseRow struct {
	InstitutionID int64
	CourseCode    string
	Title         string
	CourseLevel   string // TBP, TGC, ... (see CourseLevelLabels)
	FeeType       string // CSP, DFEE, ... (see FeeTypeLabels)
	CampusCode    string
	CampusName    string
	Status        string // "C" = current
	Level         string // undergraduate / postgraduate / international
	AreasOfStudy  string

	ATARLowest  *string
	ATARMedian  *string
	ATARHighest *string
	ATARYear    int

	SelectionRankLowest *string
	SelectionRankMedian *string

	Duration         *string
	ModeOfAttendance *string
	StartMonths      *string
	FurtherInfoURL   *string

	// Published student admission profile for the offering's cohort.
	ProfileYear      int
	TotalStudents    *string
	PctATARBased     *string
	PctHigherEd      *string
	PctVET           *string
	PctWorkLife      *string
	PctInternational *string
}

// ExternalCourseRow is a bachelor-degree offering at another
// institution, used for cross-institution ATAR comparison.
type ExternalCourseRow struct {
	InstitutionID   int64
	InstitutionName string
	CourseCode      string
	Title           string
	AreasOfStudy    string
	ATARLowest      *string
	PctATARBased    *string
}

// AdmissionProfileRow is one undergraduate admission-basis disclosure,
// a projection of the course rows used by the sector profile.
type AdmissionProfileRow struct {
	ProfileYear      int
	TotalStudents    *string
	PctATARBased     *string
	PctHigherEd      *string
	PctVET           *string
	PctWorkLife      *string
	PctInternational *string
}

// ══════════════════════════════════════════════════════════════════════════════
// ASSEMBLED VIEWS
// ══════════════════════════════════════════════════════════════════════════════

// CampusOffering is one campus entry under a consolidated course.
type CampusOffering struct {
	CampusName          string   `json:"campus_name"`
	CourseCode          string   `json:"course_code"`
	ATARLowest          *string  `json:"atar_lowest"`
	ATARLowestNum       *float64 `json:"atar_lowest_num"`
	SelectionRankLowest *string  `json:"selection_rank_lowest"`
	SelectionRankMedian *string  `json:"selection_rank_median"`
	FurtherInfoURL      *string  `json:"further_info_url"`
}

// Course is a consolidated course: per-campus rows grouped by title and
// course level, with the lowest-ATAR campus promoted as the primary
// entry point.
type Course struct {
	CourseCode    string   `json:"course_code"`
	Title         string   `json:"title"`
	Levels        []string `json:"levels"`
	CourseLevel   string   `json:"course_level"`
	LevelLabel    string   `json:"course_level_label"`
	FeeType       string   `json:"fee_type"`
	FeeLabel      string   `json:"fee_type_label"`
	Field         string   `json:"field_of_study"`
	FieldLabel    string   `json:"field_of_study_label"`
	Discipline    string   `json:"discipline,omitempty"`
	ATARYear      int      `json:"atar_year,omitempty"`
	ATARLowest    *string  `json:"atar_lowest"`
	ATARLowestNum *float64 `json:"atar_lowest_num"`
	ATARMedian    *string  `json:"atar_median"`
	ATARHighest   *string  `json:"atar_highest"`

	// CampusName is nil when the course runs on several campuses; the
	// per-campus detail then lives in Campuses.
	CampusName  *string          `json:"campus_name"`
	CampusCount int              `json:"campus_count"`
	Campuses    []CampusOffering `json:"campuses"`

	Duration         *string `json:"duration,omitempty"`
	ModeOfAttendance *string `json:"mode_of_attendance,omitempty"`
	StartMonths      *string `json:"start_months,omitempty"`
	FurtherInfoURL   *string `json:"further_info_url,omitempty"`
}

// ComparableCourse is one cross-institution comparison entry: the
// lowest ATAR a discipline peer asks at another provider.
type ComparableCourse struct {
	Institution string  `json:"institution"`
	ATAR        float64 `json:"atar"`
	Title       string  `json:"title"`
	CourseCode  string  `json:"course_code"`
}

// ATARPoint is one (year, lowest ATAR) observation in a course's
// cutoff history.
type ATARPoint struct {
	Year int     `json:"year"`
	ATAR float64 `json:"atar"`
}

// ══════════════════════════════════════════════════════════════════════════════
// LABEL MAPS
// ══════════════════════════════════════════════════════════════════════════════

// CourseLevelLabels maps collection course-level codes to display names.
var CourseLevelLabels = map[string]string{
	"TBP": "Bachelor",
	"TBH": "Bachelor (Honours)",
	"TBG": "Bachelor (Grad Entry)",
	"TCM": "Bachelor/Master",
	"TAB": "Associate Degree",
	"TXD": "Diploma",
	"TZD": "Advanced Diploma",
	"TOA": "Undergraduate Certificate",
	"TEN": "Enabling/Preparation",
	"TNA": "Bridging",
	"TGC": "Graduate Certificate",
	"TGD": "Graduate Diploma",
	"TRM": "Research Masters",
	"TMC": "Masters (Coursework)",
}

// FeeTypeLabels maps fee-type codes to display names.
var FeeTypeLabels = map[string]string{
	"CSP":  "Commonwealth Supported",
	"DFEE": "Domestic Fee-Paying",
	"INT":  "International Fee-Paying",
	"ADF":  "Australian Defence Force",
	"CBF":  "Commonwealth Bonded",
	"VET":  "VET Student Loan",
	"ENA":  "Enabling (No Fee)",
	"OTH":  "Other",
}

// CourseLevelLabel returns the display name for a course-level code,
// falling back to the raw code.
func CourseLevelLabel(code string) string {
	if l, ok := CourseLevelLabels[code]; ok {
		return l
	}
	return code
}

// FeeTypeLabel returns the display name for a fee-type code, falling
// back to the raw code.
func FeeTypeLabel(code string) string {
	if l, ok := FeeTypeLabels[code]; ok {
		return l
	}
	return code
}

// levelPriority ranks the disclosure levels a duplicate
// (course, campus) row may appear under; the lowest-ranked row wins
// attribute conflicts.
var levelPriority = map[string]int{
	"undergraduate": 0,
	"international": 1,
	"postgraduate":  2,
}

// LevelPriority returns the dedup rank for a disclosure level; unknown
// levels sort last.
func LevelPriority(level string) int {
	if p, ok := levelPriority[level]; ok {
		return p
	}
	return len(levelPriority)
}

// ══════════════════════════════════════════════════════════════════════════════
// ATAR PARSING
// ══════════════════════════════════════════════════════════════════════════════

// atarSentinels are the published codes meaning "no ATAR": not
// offered, not calculated, suppressed small cohorts, and blank cells.
var atarSentinels = map[string]struct{}{
	"NO": {}, "NC": {}, "NS": {}, "NR": {}, "NP": {}, "NN": {},
	"N/A": {}, "N/P": {}, "<5": {}, "--": {}, "": {},
}

// ParseATAR converts a raw ATAR cell to a numeric cutoff. Sentinel
// codes and unparseable strings return (0, false).
func ParseATAR(raw *string) (float64, bool) {
	if raw == nil {
		return 0, false
	}
	s := strings.ToUpper(strings.TrimSpace(*raw))
	if _, sentinel := atarSentinels[s]; sentinel {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParsePercent converts a raw percentage cell to a number. Suppressed
// cells ("<5" and friends) return false rather than a fake value.
func ParsePercent(raw *string) (float64, bool) {
	if raw == nil {
		return 0, false
	}
	s := strings.TrimSpace(*raw)
	if s == "" || strings.HasPrefix(s, "<") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseCount converts a raw student-count cell ("12,345") to an
// integer.
func ParseCount(raw *string) (int64, bool) {
	if raw == nil {
		return 0, false
	}
	s := strings.ReplaceAll(strings.TrimSpace(*raw), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
