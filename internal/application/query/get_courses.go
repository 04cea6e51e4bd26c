package query

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/survival-hub/course-survival-hub/config"
	"github.com/survival-hub/course-survival-hub/internal/domain/catalog"
	"github.com/survival-hub/course-survival-hub/internal/domain/institution"
	"github.com/survival-hub/course-survival-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET COURSES QUERY
// Consolidates an institution's raw per-campus course rows into one
// card per course: level variants merged, campus offerings grouped,
// the lowest-ATAR campus promoted, plus cross-institution discipline
// comparison and historical cutoff series.
// ══════════════════════════════════════════════════════════════════════════════

// coverageNote explains the admission-centre scope of the course data.
const coverageNote = "Course data covers NSW and ACT institutions only " +
	"(sourced from UAC). Other states have separate admission " +
	"centres which will be integrated in future updates."

// minComparablePctATAR is the floor share of ATAR-based admissions an
// external course needs before its cutoff is comparable; below it the
// published ATAR reflects a handful of students.
const minComparablePctATAR = 25

// GetCoursesQuery holds the parameters for a course catalog.
type GetCoursesQuery struct {
	// InstitutionID identifies the provider.
	InstitutionID int64
}

// Validate checks the query parameters.
func (q *GetCoursesQuery) Validate() error {
	if q.InstitutionID <= 0 {
		return errors.New("institution_id must be positive")
	}
	return nil
}

// ATARRangeDTO is the spread of numeric cutoffs across the catalog.
type ATARRangeDTO struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// CourseSummaryDTO aggregates the consolidated catalog.
type CourseSummaryDTO struct {
	TotalCourses    int            `json:"total_courses"`
	CoursesWithATAR int            `json:"courses_with_atar"`
	ATARRange       *ATARRangeDTO  `json:"atar_range"`
	ByCourseLevel   map[string]int `json:"by_course_level"`
	ByFeeType       map[string]int `json:"by_fee_type"`
	ByFieldOfStudy  map[string]int `json:"by_field_of_study"`
	ATARYear        int            `json:"atar_year,omitempty"`
}

// GetCoursesResult is the assembled course catalog.
type GetCoursesResult struct {
	Institution  InstitutionDTO `json:"institution"`
	CoverageNote string         `json:"coverage_note"`

	// Courses is one consolidated card per course, sorted by title.
	Courses []catalog.Course `json:"courses"`

	Summary CourseSummaryDTO `json:"summary"`

	// FieldComparison maps course code to discipline-matched peer
	// cutoffs at other institutions, cheapest entry first.
	FieldComparison map[string][]catalog.ComparableCourse `json:"field_comparison,omitempty"`

	// ATARTrends maps primary course code to its cutoff history.
	ATARTrends map[string][]catalog.ATARPoint `json:"atar_trends,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// GetCoursesHandler answers course catalog queries.
type GetCoursesHandler struct {
	instRepo    institution.Repository
	catalogRepo catalog.Repository
	flags       *config.FeatureFlags
}

// NewGetCoursesHandler creates a new handler. Flags may be nil; the
// comparison and trend sections are then enabled.
func NewGetCoursesHandler(
	instRepo institution.Repository,
	catalogRepo catalog.Repository,
	flags *config.FeatureFlags,
) *GetCoursesHandler {
	return &GetCoursesHandler{
		instRepo:    instRepo,
		catalogRepo: catalogRepo,
		flags:       flags,
	}
}

// Handle executes a course catalog query. Institutions with no
// current course rows yield a no-data error.
func (h *GetCoursesHandler) Handle(ctx context.Context, query GetCoursesQuery) (*GetCoursesResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("catalog", "GetCourses", shared.ErrValidation, err.Error(), err)
	}

	inst, err := h.instRepo.GetInstitution(ctx, query.InstitutionID)
	if err != nil {
		return nil, lookupErr("catalog", "GetCourses", "institution", err)
	}

	rows, err := h.catalogRepo.CurrentCourses(ctx, inst.ID)
	if err != nil {
		return nil, h.storeErr("courses query failed", err)
	}
	if len(rows) == 0 {
		return nil, shared.WrapError("catalog", "GetCourses", shared.ErrNoData, "no course data for institution", nil)
	}

	courses, codeToPrimary := consolidateCourses(rows)

	result := &GetCoursesResult{
		Institution:  InstitutionDTO{ID: inst.ID, Name: inst.Name, State: inst.State},
		CoverageNote: coverageNote,
		Courses:      courses,
		Summary:      summarizeCourses(courses),
		GeneratedAt:  time.Now().UTC(),
	}

	fctx := &config.FeatureContext{InstitutionID: inst.ID}

	if h.enabled(config.FeatureCatalogComparison, fctx) {
		result.FieldComparison, err = h.buildComparison(ctx, inst.ID, courses)
		if err != nil {
			return nil, err
		}
	}

	if h.enabled(config.FeatureCatalogATARTrends, fctx) {
		result.ATARTrends, err = h.buildATARTrends(ctx, inst.ID, codeToPrimary)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (h *GetCoursesHandler) enabled(name string, fctx *config.FeatureContext) bool {
	if h.flags == nil {
		return true
	}
	return h.flags.IsEnabled(name, fctx)
}

// ─────────────────────────────────────────────────────────────────────────────
// Consolidation
// ─────────────────────────────────────────────────────────────────────────────

type dedupKey struct {
	courseCode string
	campusCode string
}

type groupKey struct {
	title       string
	courseLevel string
}

// consolidateCourses merges level variants of each (course, campus)
// row, groups campus offerings of the same course, and promotes the
// lowest-ATAR campus as the primary entry. Returns the title-sorted
// cards plus the campus-code to primary-code mapping used to merge
// cutoff histories.
func consolidateCourses(rows []catalog.CourseRow) ([]catalog.Course, map[string]string) {
	// A course appears once per disclosure level; the undergraduate
	// row carries the ATAR profile and wins attribute conflicts.
	type variant struct {
		priority int
		course   catalog.Course
	}
	seen := make(map[dedupKey]*variant)
	var order []dedupKey

	for _, r := range rows {
		key := dedupKey{r.CourseCode, r.CampusCode}
		priority := catalog.LevelPriority(r.Level)

		existing, ok := seen[key]
		if ok && priority >= existing.priority {
			merged := false
			for _, l := range existing.course.Levels {
				if l == r.Level {
					merged = true
					break
				}
			}
			if !merged {
				existing.course.Levels = append(existing.course.Levels, r.Level)
			}
			continue
		}
		if !ok {
			order = append(order, key)
		}

		// A replacement wins attribute conflicts but the level list is
		// still the union of every disclosure seen so far.
		levels := []string{r.Level}
		if ok {
			for _, l := range existing.course.Levels {
				if l != r.Level {
					levels = append(levels, l)
				}
			}
		}

		campusName := r.CampusName
		if campusName == "" {
			campusName = r.CampusCode
		}
		field := catalog.ClassifyField(r.Title, r.AreasOfStudy)

		name := campusName
		seen[key] = &variant{
			priority: priority,
			course: catalog.Course{
				CourseCode:       r.CourseCode,
				Title:            r.Title,
				Levels:           levels,
				CourseLevel:      r.CourseLevel,
				LevelLabel:       catalog.CourseLevelLabel(r.CourseLevel),
				FeeType:          r.FeeType,
				FeeLabel:         catalog.FeeTypeLabel(r.FeeType),
				Field:            field,
				FieldLabel:       catalog.FieldLabel(field),
				Discipline:       catalog.ClassifyDiscipline(r.Title),
				ATARYear:         r.ATARYear,
				ATARLowest:       r.ATARLowest,
				ATARLowestNum:    parseATARPtr(r.ATARLowest),
				ATARMedian:       r.ATARMedian,
				ATARHighest:      r.ATARHighest,
				CampusName:       &name,
				Duration:         r.Duration,
				ModeOfAttendance: r.ModeOfAttendance,
				StartMonths:      r.StartMonths,
				FurtherInfoURL:   r.FurtherInfoURL,
				Campuses: []catalog.CampusOffering{{
					CampusName:          campusName,
					CourseCode:          r.CourseCode,
					ATARLowest:          r.ATARLowest,
					ATARLowestNum:       parseATARPtr(r.ATARLowest),
					SelectionRankLowest: r.SelectionRankLowest,
					SelectionRankMedian: r.SelectionRankMedian,
					FurtherInfoURL:      r.FurtherInfoURL,
				}},
			},
		}
	}

	// Group campus variants of the same programme: admission centres
	// assign a distinct code per campus offering.
	groups := make(map[groupKey][]*catalog.Course)
	var groupOrder []groupKey
	for _, key := range order {
		c := &seen[key].course
		gk := groupKey{c.Title, c.CourseLevel}
		if _, ok := groups[gk]; !ok {
			groupOrder = append(groupOrder, gk)
		}
		groups[gk] = append(groups[gk], c)
	}

	codeToPrimary := make(map[string]string)
	courses := make([]catalog.Course, 0, len(groupOrder))

	for _, gk := range groupOrder {
		entries := groups[gk]

		// Valid cutoffs first, then by code, for deterministic output.
		sort.Slice(entries, func(i, j int) bool {
			vi, vj := entries[i].ATARLowestNum, entries[j].ATARLowestNum
			if (vi != nil) != (vj != nil) {
				return vi != nil
			}
			if vi != nil && *vi != *vj {
				return *vi > *vj
			}
			return entries[i].CourseCode < entries[j].CourseCode
		})

		campuses := make([]catalog.CampusOffering, 0, len(entries))
		for _, e := range entries {
			campuses = append(campuses, e.Campuses[0])
		}
		sort.Slice(campuses, func(i, j int) bool {
			vi, vj := campuses[i].ATARLowestNum, campuses[j].ATARLowestNum
			if (vi != nil) != (vj != nil) {
				return vi != nil
			}
			if vi == nil {
				return false
			}
			return *vi < *vj
		})

		// The primary card is the easiest entry point.
		primary := entries[0]
		for _, e := range entries {
			if e.ATARLowestNum == nil {
				continue
			}
			if primary.ATARLowestNum == nil || *e.ATARLowestNum < *primary.ATARLowestNum {
				primary = e
			}
		}

		for _, e := range entries {
			codeToPrimary[e.CourseCode] = primary.CourseCode
		}

		card := *primary
		card.Campuses = campuses
		card.CampusCount = len(campuses)

		if len(campuses) > 1 {
			if c := campuses[0]; c.ATARLowestNum != nil {
				card.ATARLowest = c.ATARLowest
				card.ATARLowestNum = c.ATARLowestNum
			}
			card.CampusName = nil
		}

		courses = append(courses, card)
	}

	sort.Slice(courses, func(i, j int) bool { return courses[i].Title < courses[j].Title })

	return courses, codeToPrimary
}

func parseATARPtr(raw *string) *float64 {
	if v, ok := catalog.ParseATAR(raw); ok {
		return &v
	}
	return nil
}

// summarizeCourses computes the catalog summary over the consolidated
// cards.
func summarizeCourses(courses []catalog.Course) CourseSummaryDTO {
	summary := CourseSummaryDTO{
		TotalCourses:   len(courses),
		ByCourseLevel:  make(map[string]int),
		ByFeeType:      make(map[string]int),
		ByFieldOfStudy: make(map[string]int),
	}

	var atars []float64
	for _, c := range courses {
		if c.ATARLowestNum != nil {
			atars = append(atars, *c.ATARLowestNum)
		}
		if summary.ATARYear == 0 && c.ATARYear != 0 {
			summary.ATARYear = c.ATARYear
		}

		level := c.CourseLevel
		if level == "" {
			level = "Unknown"
		}
		summary.ByCourseLevel[level]++

		fee := c.FeeType
		if fee == "" {
			fee = "Unknown"
		}
		summary.ByFeeType[fee]++

		field := c.Field
		if field == "" {
			field = "Mixed Field Programs"
		}
		summary.ByFieldOfStudy[field]++
	}

	summary.CoursesWithATAR = len(atars)
	if len(atars) > 0 {
		r := &ATARRangeDTO{Low: atars[0], High: atars[0]}
		for _, a := range atars[1:] {
			if a < r.Low {
				r.Low = a
			}
			if a > r.High {
				r.High = a
			}
		}
		summary.ATARRange = r
	}

	return summary
}

// ─────────────────────────────────────────────────────────────────────────────
// Cross-institution comparison
// ─────────────────────────────────────────────────────────────────────────────

type comparisonEntry struct {
	atar       float64
	title      string
	courseCode string
}

// buildComparison matches each of our courses against discipline peers
// at other institutions, keeping the lowest comparable cutoff per
// institution. Courses with no discipline fall back to broad-field
// matching; broad fields mix unlike degrees, so discipline wins when
// available.
func (h *GetCoursesHandler) buildComparison(
	ctx context.Context,
	instID int64,
	courses []catalog.Course,
) (map[string][]catalog.ComparableCourse, error) {
	external, err := h.catalogRepo.ComparableBachelorCourses(ctx, instID)
	if err != nil {
		return nil, h.storeErr("comparable courses query failed", err)
	}

	// Index comparable external offerings by every discipline their
	// title matches, so double degrees are found from either side.
	externalByDiscipline := make(map[string][]catalog.ExternalCourseRow)
	for _, row := range external {
		if !comparable(row) {
			continue
		}
		for _, disc := range catalog.AllDisciplines(row.Title) {
			externalByDiscipline[disc] = append(externalByDiscipline[disc], row)
		}
	}

	bestByInstitution := make(map[string]map[string]comparisonEntry) // courseCode -> institution -> best

	ourByDiscipline := make(map[string][]string) // discipline -> our course codes
	for _, c := range courses {
		if c.Field == "" || c.Field == "Mixed Field Programs" || c.Discipline == "" {
			continue
		}
		ourByDiscipline[c.Discipline] = append(ourByDiscipline[c.Discipline], c.CourseCode)
	}

	for disc, codes := range ourByDiscipline {
		instBest := make(map[string]comparisonEntry)
		for _, ext := range externalByDiscipline[disc] {
			atar, _ := catalog.ParseATAR(ext.ATARLowest)
			if best, ok := instBest[ext.InstitutionName]; !ok || atar < best.atar {
				instBest[ext.InstitutionName] = comparisonEntry{
					atar:       atar,
					title:      ext.Title,
					courseCode: ext.CourseCode,
				}
			}
		}
		// Assigned even when empty: a discipline course must never
		// fall through to the broad-field fallback.
		for _, code := range codes {
			bestByInstitution[code] = instBest
		}
	}

	// Broad-field fallback for courses without a discipline.
	fieldLevel := make(map[string]map[string]comparisonEntry)
	for _, c := range courses {
		if _, done := bestByInstitution[c.CourseCode]; done {
			continue
		}
		if c.Field == "" || c.Field == "Mixed Field Programs" {
			continue
		}
		instBest, ok := fieldLevel[c.Field]
		if !ok {
			instBest = make(map[string]comparisonEntry)
			for _, ext := range external {
				if !comparable(ext) {
					continue
				}
				if catalog.ClassifyField(ext.Title, ext.AreasOfStudy) != c.Field {
					continue
				}
				atar, _ := catalog.ParseATAR(ext.ATARLowest)
				if best, exists := instBest[ext.InstitutionName]; !exists || atar < best.atar {
					instBest[ext.InstitutionName] = comparisonEntry{
						atar:       atar,
						title:      ext.Title,
						courseCode: ext.CourseCode,
					}
				}
			}
			fieldLevel[c.Field] = instBest
		}
		bestByInstitution[c.CourseCode] = instBest
	}

	out := make(map[string][]catalog.ComparableCourse, len(bestByInstitution))
	for code, instBest := range bestByInstitution {
		entries := make([]catalog.ComparableCourse, 0, len(instBest))
		for name, e := range instBest {
			entries = append(entries, catalog.ComparableCourse{
				Institution: name,
				ATAR:        e.atar,
				Title:       e.title,
				CourseCode:  e.courseCode,
			})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].ATAR != entries[j].ATAR {
				return entries[i].ATAR < entries[j].ATAR
			}
			return entries[i].Institution < entries[j].Institution
		})
		out[code] = entries
	}
	return out, nil
}

// comparable reports whether an external offering's cutoff is worth
// comparing: a real numeric ATAR backed by a meaningfully ATAR-based
// intake.
func comparable(row catalog.ExternalCourseRow) bool {
	atar, ok := catalog.ParseATAR(row.ATARLowest)
	if !ok || atar < 1 {
		return false
	}
	pct, ok := catalog.ParsePercent(row.PctATARBased)
	return ok && pct >= minComparablePctATAR
}

// ─────────────────────────────────────────────────────────────────────────────
// ATAR trends
// ─────────────────────────────────────────────────────────────────────────────

// buildATARTrends builds per-course cutoff histories, merged under
// each course's primary code. When campus variants both carry a
// series, the longer one wins.
func (h *GetCoursesHandler) buildATARTrends(
	ctx context.Context,
	instID int64,
	codeToPrimary map[string]string,
) (map[string][]catalog.ATARPoint, error) {
	rows, err := h.catalogRepo.ATARHistory(ctx, instID)
	if err != nil {
		return nil, h.storeErr("cutoff history query failed", err)
	}

	raw := make(map[string][]catalog.ATARPoint)
	for _, r := range rows {
		atar, ok := catalog.ParseATAR(r.ATARLowest)
		if !ok {
			continue
		}
		raw[r.CourseCode] = append(raw[r.CourseCode], catalog.ATARPoint{Year: r.ATARYear, ATAR: atar})
	}

	// Histories chart oldest first, whatever order the store returns.
	for _, points := range raw {
		sort.Slice(points, func(i, j int) bool { return points[i].Year < points[j].Year })
	}

	trends := make(map[string][]catalog.ATARPoint)
	for code, points := range raw {
		primary, ok := codeToPrimary[code]
		if !ok {
			primary = code
		}
		if existing, ok := trends[primary]; !ok || len(points) > len(existing) {
			trends[primary] = points
		}
	}

	// A single point is a data point, not a trend.
	for code, points := range trends {
		if len(points) < 2 {
			delete(trends, code)
		}
	}
	if len(trends) == 0 {
		return nil, nil
	}
	return trends, nil
}

func (h *GetCoursesHandler) storeErr(msg string, err error) error {
	return shared.WrapError("catalog", "GetCourses", shared.ErrStoreUnavailable, msg, err)
}
