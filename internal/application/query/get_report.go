// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/survival-hub/course-survival-hub/config"
	"github.com/survival-hub/course-survival-hub/internal/domain/institution"
	"github.com/survival-hub/course-survival-hub/internal/domain/report"
	"github.com/survival-hub/course-survival-hub/internal/domain/shared"
	"github.com/survival-hub/course-survival-hub/pkg/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET REPORT QUERY
// Assembles the full institutional report card: completion outcomes,
// attrition risk against the national population, retention and
// success, trend direction, international outcomes, course-level mix,
// staff ratios, and an optional field-of-education context.
// ══════════════════════════════════════════════════════════════════════════════

// completionDurations are the cohort windows the collection tracks.
var completionDurations = []int{4, 6, 9}

// GetReportQuery holds the parameters for a report card.
type GetReportQuery struct {
	// InstitutionID identifies the provider.
	InstitutionID int64

	// FieldID optionally scopes the report with a field-of-education
	// context. Zero means no field context.
	FieldID int64
}

// Validate checks the query parameters.
func (q *GetReportQuery) Validate() error {
	if q.InstitutionID <= 0 {
		return errors.New("institution_id must be positive")
	}
	if q.FieldID < 0 {
		return errors.New("field_id cannot be negative")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Section DTOs. A nil section means the collection has no data for it;
// that is a published fact, not an error, and is never rendered as zero.
// ─────────────────────────────────────────────────────────────────────────────

// InstitutionDTO identifies the reported provider.
type InstitutionDTO struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	State string `json:"state,omitempty"`
}

// CompletionDTO is the headline 4-year completion outcome.
type CompletionDTO struct {
	// CompletedPct is the share of the cohort that completed within
	// the window, or nil for a provider too new to have a tracked
	// cohort. The section then carries the sector mean alone.
	CompletedPct *float64 `json:"completed_pct"`

	// CohortPeriod is the tracked window, e.g. "2017-2020". Empty
	// when the institution has no cohort of its own.
	CohortPeriod string `json:"cohort_period,omitempty"`

	// Breakdown of the non-completing remainder. Only published for
	// the 4-year window.
	StillEnrolledPct *float64 `json:"still_enrolled_pct"`
	DroppedOutPct    *float64 `json:"dropped_out_pct"`
	NeverReturnedPct *float64 `json:"never_returned_pct"`

	// NationalAvg is the sector mean for the same cohort, or nil when
	// no peer published the cohort.
	NationalAvg *float64 `json:"national_avg"`
}

// AttritionDTO positions the latest domestic attrition rate against
// the national population.
type AttritionDTO struct {
	Rate        float64  `json:"rate"`
	Year        int      `json:"year"`
	NationalAvg *float64 `json:"national_avg"`

	// Percentile is the mid-rank percentile of the rate within the
	// reportable population; higher means more attrition than peers.
	Percentile float64 `json:"percentile"`

	// RiskLevel is the percentile band: Low, Medium, High, Very High.
	RiskLevel string `json:"risk_level"`
}

// RateDTO is a bare (rate, year) observation for retention and
// success.
type RateDTO struct {
	Rate float64 `json:"rate"`
	Year int     `json:"year"`
}

// TrendPointDTO is one year of a rate series.
type TrendPointDTO struct {
	Year int     `json:"year"`
	Rate float64 `json:"rate"`
}

// TrendDTO is the multi-year attrition trajectory.
type TrendDTO struct {
	// Years holds the series oldest first.
	Years []TrendPointDTO `json:"years"`

	// Direction reads the recent slope: improving, worsening, stable,
	// or unknown when the series is empty.
	Direction string `json:"direction"`

	// Slope is the fitted rate change per year over the recent window.
	Slope float64 `json:"slope"`
}

// TimelineEntryDTO is one duration window of the completion timeline.
type TimelineEntryDTO struct {
	CompletedPct float64  `json:"completed_pct"`
	CohortPeriod string   `json:"cohort_period"`
	NationalAvg  *float64 `json:"national_avg"`
}

// InternationalDTO is the overseas-student outcome section.
type InternationalDTO struct {
	Attrition *InternationalRateDTO `json:"attrition"`
	Retention *InternationalRateDTO `json:"retention"`
	Success   *InternationalRateDTO `json:"success"`

	// Trend is the recent overseas attrition series, oldest first.
	Trend []TrendPointDTO `json:"trend,omitempty"`
}

// InternationalRateDTO is one overseas measure with its same-year
// sector average.
type InternationalRateDTO struct {
	Rate        float64  `json:"rate"`
	Year        int      `json:"year"`
	NationalAvg *float64 `json:"national_avg"`
}

// CourseLevelSharesDTO is one side (enrolment or completion) of the
// course-level mix as percentage shares.
type CourseLevelSharesDTO struct {
	Year                  int     `json:"year"`
	PostgradResearchPct   float64 `json:"postgrad_research_pct"`
	PostgradCourseworkPct float64 `json:"postgrad_coursework_pct"`
	BachelorPct           float64 `json:"bachelor_pct"`
	SubBachelorPct        float64 `json:"sub_bachelor_pct"`
	Total                 int64   `json:"total"`
}

// CourseLevelEfficiencyDTO relates completions to enrolments per
// level.
type CourseLevelEfficiencyDTO struct {
	PostgradResearch   *float64 `json:"postgrad_research"`
	PostgradCoursework *float64 `json:"postgrad_coursework"`
	Bachelor           *float64 `json:"bachelor"`
	SubBachelor        *float64 `json:"sub_bachelor"`
	Overall            *float64 `json:"overall"`
}

// CourseLevelMixDTO is the full course-level mix section.
type CourseLevelMixDTO struct {
	Enrolment          *CourseLevelSharesDTO     `json:"enrolment"`
	Completion         *CourseLevelSharesDTO     `json:"completion"`
	NationalEnrolment  *CourseLevelSharesDTO     `json:"national_enrolment"`
	NationalCompletion *CourseLevelSharesDTO     `json:"national_completion"`
	Efficiency         *CourseLevelEfficiencyDTO `json:"efficiency"`
}

// StaffRatioPointDTO is one year of the staff ratio series.
type StaffRatioPointDTO struct {
	Year  int     `json:"year"`
	Ratio float64 `json:"ratio"`
}

// StaffRatioDTO is the student-staff ratio section. Intensity is
// inverted relative to risk: a low ratio percentile means fewer
// students per academic, i.e. higher staffing intensity.
type StaffRatioDTO struct {
	AcademicRatio float64  `json:"academic_ratio"`
	Year          int      `json:"year"`
	NationalAvg   *float64 `json:"national_avg"`
	Percentile    float64  `json:"percentile"`
	Intensity     string   `json:"intensity"`

	// Underlying staffing figures for the same year, as published.
	NonAcademicRatio *float64 `json:"non_academic_ratio"`
	EFTSL            *float64 `json:"eftsl"`
	AcademicFTE      *float64 `json:"academic_fte"`
	NonAcademicFTE   *float64 `json:"non_academic_fte"`

	Trend     []StaffRatioPointDTO `json:"trend,omitempty"`
	Direction string               `json:"direction,omitempty"`
	Slope     float64              `json:"slope,omitempty"`
}

// FieldContextDTO scopes the report to one field of education.
type FieldContextDTO struct {
	Field FieldDTO `json:"field"`

	// Year is the institution's latest enrolment data year.
	Year int `json:"year"`

	// Enrolment is the field headcount at the institution.
	Enrolment int64 `json:"enrolment"`

	// SharePct is the field's share of the institution's enrolment.
	SharePct float64 `json:"share_pct"`

	// Completions is the summed field completions for the year.
	Completions int64 `json:"completions"`

	// CompletionRatio is completions over enrolment, or nil when the
	// field has no enrolment.
	CompletionRatio *float64 `json:"completion_ratio"`

	EnrolmentTrend   []YearCountDTO `json:"enrolment_trend,omitempty"`
	CompletionsTrend []YearCountDTO `json:"completions_trend,omitempty"`

	// Ranking positions every eligible institution in this field.
	Ranking *FieldRankingDTO `json:"ranking"`
}

// FieldDTO identifies a broad field of education.
type FieldDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// YearCountDTO is one (year, headcount) point.
type YearCountDTO struct {
	Year  int   `json:"year"`
	Count int64 `json:"count"`
}

// GetReportResult is the assembled report card.
type GetReportResult struct {
	Institution InstitutionDTO `json:"institution"`

	Completion *CompletionDTO `json:"completion"`
	Attrition  *AttritionDTO  `json:"attrition"`
	Retention  *RateDTO       `json:"retention"`
	Success    *RateDTO       `json:"success"`
	Trend      *TrendDTO      `json:"trend"`

	// Timeline maps duration window (years) to its completion entry.
	Timeline map[int]TimelineEntryDTO `json:"timeline,omitempty"`

	International  *InternationalDTO  `json:"international"`
	CourseLevelMix *CourseLevelMixDTO `json:"course_level_mix"`
	StaffRatio     *StaffRatioDTO     `json:"staff_ratio"`

	FieldContext *FieldContextDTO `json:"field_context,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// GetReportHandler assembles report cards.
type GetReportHandler struct {
	instRepo  institution.Repository
	statsRepo report.StatsRepository
	policy    institution.NamePolicy
	engine    config.EngineConfig
	flags     *config.FeatureFlags
}

// NewGetReportHandler creates a new handler. Flags may be nil; every
// section is then enabled.
func NewGetReportHandler(
	instRepo institution.Repository,
	statsRepo report.StatsRepository,
	engine config.EngineConfig,
	flags *config.FeatureFlags,
) *GetReportHandler {
	return &GetReportHandler{
		instRepo:  instRepo,
		statsRepo: statsRepo,
		policy:    namePolicyFrom(engine),
		engine:    engine,
		flags:     flags,
	}
}

// Handle assembles the report card for one institution.
func (h *GetReportHandler) Handle(ctx context.Context, query GetReportQuery) (*GetReportResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("report", "GetReport", shared.ErrValidation, err.Error(), err)
	}

	inst, err := h.instRepo.GetInstitution(ctx, query.InstitutionID)
	if err != nil {
		return nil, lookupErr("report", "GetReport", "institution", err)
	}

	result := &GetReportResult{
		Institution: InstitutionDTO{ID: inst.ID, Name: inst.Name, State: inst.State},
		GeneratedAt: time.Now().UTC(),
	}

	fctx := &config.FeatureContext{InstitutionID: inst.ID}

	if result.Completion, err = h.buildCompletion(ctx, inst.ID); err != nil {
		return nil, err
	}
	if result.Attrition, err = h.buildAttrition(ctx, inst.ID); err != nil {
		return nil, err
	}
	if result.Retention, err = h.buildSimpleRate(ctx, inst.ID, report.MeasureRetention); err != nil {
		return nil, err
	}
	if result.Success, err = h.buildSimpleRate(ctx, inst.ID, report.MeasureSuccess); err != nil {
		return nil, err
	}
	if result.Trend, err = h.buildTrend(ctx, inst.ID); err != nil {
		return nil, err
	}

	if h.enabled(config.FeatureReportTimeline, fctx) {
		if result.Timeline, err = h.buildTimeline(ctx, inst.ID); err != nil {
			return nil, err
		}
	}
	if h.enabled(config.FeatureReportInternational, fctx) {
		if result.International, err = h.buildInternational(ctx, inst.ID); err != nil {
			return nil, err
		}
	}
	if h.enabled(config.FeatureReportCourseLevelMix, fctx) {
		if result.CourseLevelMix, err = h.buildCourseLevelMix(ctx, inst.ID); err != nil {
			return nil, err
		}
	}
	if h.enabled(config.FeatureReportStaffRatio, fctx) {
		if result.StaffRatio, err = h.buildStaffRatio(ctx, inst.ID); err != nil {
			return nil, err
		}
	}

	if query.FieldID != 0 {
		if result.FieldContext, err = h.buildFieldContext(ctx, inst.ID, query.FieldID); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (h *GetReportHandler) enabled(name string, fctx *config.FeatureContext) bool {
	if h.flags == nil {
		return true
	}
	return h.flags.IsEnabled(name, fctx)
}

// ─────────────────────────────────────────────────────────────────────────────
// Completion
// ─────────────────────────────────────────────────────────────────────────────

func (h *GetReportHandler) buildCompletion(ctx context.Context, instID int64) (*CompletionDTO, error) {
	cohort, err := h.statsRepo.LatestCompletionCohort(ctx, instID, 4)
	if err != nil {
		return nil, storeErr("GetReport", "completion cohort query failed", err)
	}
	if cohort == nil {
		// No cohort of its own yet; the section still carries the
		// sector mean for the latest cohort anyone published.
		avg, err := h.latestNationalCompletionAvg(ctx, 4)
		if err != nil || avg == nil {
			return nil, err
		}
		return &CompletionDTO{NationalAvg: avg}, nil
	}

	completed := stats.Round1(cohort.CompletedPct)
	dto := &CompletionDTO{
		CompletedPct:     &completed,
		CohortPeriod:     fmt.Sprintf("%d-%d", cohort.CohortStart, cohort.CohortEnd),
		StillEnrolledPct: cohort.StillEnrolledPct,
		DroppedOutPct:    cohort.DroppedOutPct,
		NeverReturnedPct: cohort.NeverReturnedPct,
	}

	dto.NationalAvg, err = h.nationalCompletionAvg(ctx, 4, cohort.CohortStart)
	if err != nil {
		return nil, err
	}

	return dto, nil
}

// nationalCompletionAvg averages the sector's completion rates for one
// cohort, falling back to the latest cohort any institution published
// when the requested cohort is empty.
func (h *GetReportHandler) nationalCompletionAvg(ctx context.Context, duration, cohortStart int) (*float64, error) {
	rates, err := h.statsRepo.CompletionRatesForCohort(ctx, duration, cohortStart)
	if err != nil {
		return nil, storeErr("GetReport", "completion rates query failed", err)
	}
	if len(rates) == 0 {
		return h.latestNationalCompletionAvg(ctx, duration)
	}

	if avg, ok := stats.Mean(rates); ok {
		v := stats.Round1(avg)
		return &v, nil
	}
	return nil, nil
}

// latestNationalCompletionAvg averages the sector's completion rates
// for the most recent cohort any institution published.
func (h *GetReportHandler) latestNationalCompletionAvg(ctx context.Context, duration int) (*float64, error) {
	latest, err := h.statsRepo.LatestCohortStart(ctx, duration)
	if err != nil {
		return nil, storeErr("GetReport", "latest cohort query failed", err)
	}
	if latest == 0 {
		return nil, nil
	}
	rates, err := h.statsRepo.CompletionRatesForCohort(ctx, duration, latest)
	if err != nil {
		return nil, storeErr("GetReport", "completion rates query failed", err)
	}

	if avg, ok := stats.Mean(rates); ok {
		v := stats.Round1(avg)
		return &v, nil
	}
	return nil, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Attrition / retention / success
// ─────────────────────────────────────────────────────────────────────────────

func (h *GetReportHandler) buildAttrition(ctx context.Context, instID int64) (*AttritionDTO, error) {
	rec, err := h.statsRepo.LatestRate(ctx, instID, report.StudentDomestic, report.MeasureAttrition)
	if err != nil {
		return nil, storeErr("GetReport", "attrition query failed", err)
	}
	if rec == nil {
		return nil, nil
	}

	population, err := h.reportablePopulation(ctx, rec.Year, report.StudentDomestic, report.MeasureAttrition)
	if err != nil {
		return nil, err
	}

	dto := &AttritionDTO{
		Rate: stats.Round2(rec.Rate),
		Year: rec.Year,
	}

	if avg, ok := stats.Mean(population); ok {
		v := stats.Round2(avg)
		dto.NationalAvg = &v
	}

	dto.Percentile = stats.Round1(stats.PercentileRank(rec.Rate, population))
	dto.RiskLevel = string(stats.RiskFromPercentile(dto.Percentile))

	return dto, nil
}

func (h *GetReportHandler) buildSimpleRate(ctx context.Context, instID int64, m report.Measure) (*RateDTO, error) {
	rec, err := h.statsRepo.LatestRate(ctx, instID, report.StudentDomestic, m)
	if err != nil {
		return nil, storeErr("GetReport", "rate query failed", err)
	}
	if rec == nil {
		return nil, nil
	}
	return &RateDTO{Rate: stats.Round2(rec.Rate), Year: rec.Year}, nil
}

// reportablePopulation collects one year's rates across institutions
// that pass the name policy.
func (h *GetReportHandler) reportablePopulation(ctx context.Context, year int, st report.StudentType, m report.Measure) ([]float64, error) {
	rows, err := h.statsRepo.RatesForYear(ctx, year, st, m)
	if err != nil {
		return nil, storeErr("GetReport", "population query failed", err)
	}

	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		if h.policy.IsReportable(r.InstitutionName) {
			values = append(values, r.Rate)
		}
	}
	return values, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Trend
// ─────────────────────────────────────────────────────────────────────────────

func (h *GetReportHandler) buildTrend(ctx context.Context, instID int64) (*TrendDTO, error) {
	history, err := h.statsRepo.RateHistory(ctx, instID, report.StudentDomestic, report.MeasureAttrition, h.engine.AttritionTrendYears)
	if err != nil {
		return nil, storeErr("GetReport", "trend query failed", err)
	}

	dto := &TrendDTO{Direction: string(stats.TrendUnknown)}
	if len(history) == 0 {
		return dto, nil
	}

	// History arrives newest first; the series reads oldest first.
	points := make([]TrendPointDTO, len(history))
	for i, rec := range history {
		points[len(history)-1-i] = TrendPointDTO{Year: rec.Year, Rate: rec.Rate}
	}
	dto.Years = points

	slope := h.recentSlope(points)
	dto.Slope = stats.Round3(slope)
	dto.Direction = string(stats.DirectionFromSlope(slope, h.engine.TrendEpsilon))

	return dto, nil
}

// recentSlope fits the last few points of a series; early history is
// deliberately excluded so old regimes do not mask a recent turn.
func (h *GetReportHandler) recentSlope(points []TrendPointDTO) float64 {
	window := points
	if n := h.engine.TrendSlopePoints; n > 0 && len(points) > n {
		window = points[len(points)-n:]
	}

	xs := make([]float64, len(window))
	ys := make([]float64, len(window))
	for i, p := range window {
		xs[i] = float64(p.Year)
		ys[i] = p.Rate
	}
	return stats.LinearSlope(xs, ys)
}

// ─────────────────────────────────────────────────────────────────────────────
// Timeline
// ─────────────────────────────────────────────────────────────────────────────

func (h *GetReportHandler) buildTimeline(ctx context.Context, instID int64) (map[int]TimelineEntryDTO, error) {
	timeline := make(map[int]TimelineEntryDTO)

	for _, d := range completionDurations {
		cohort, err := h.statsRepo.LatestCompletionCohort(ctx, instID, d)
		if err != nil {
			return nil, storeErr("GetReport", "timeline query failed", err)
		}
		if cohort == nil {
			continue
		}

		entry := TimelineEntryDTO{
			CompletedPct: stats.Round1(cohort.CompletedPct),
			CohortPeriod: fmt.Sprintf("%d-%d", cohort.CohortStart, cohort.CohortEnd),
		}
		entry.NationalAvg, err = h.nationalCompletionAvg(ctx, d, cohort.CohortStart)
		if err != nil {
			return nil, err
		}
		timeline[d] = entry
	}

	if len(timeline) == 0 {
		return nil, nil
	}
	return timeline, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// International
// ─────────────────────────────────────────────────────────────────────────────

func (h *GetReportHandler) buildInternational(ctx context.Context, instID int64) (*InternationalDTO, error) {
	has, err := h.statsRepo.HasRates(ctx, instID, report.StudentOverseas)
	if err != nil {
		return nil, storeErr("GetReport", "overseas presence query failed", err)
	}
	if !has {
		return nil, nil
	}

	dto := &InternationalDTO{}
	for _, m := range []report.Measure{report.MeasureAttrition, report.MeasureRetention, report.MeasureSuccess} {
		rate, err := h.buildInternationalRate(ctx, instID, m)
		if err != nil {
			return nil, err
		}
		switch m {
		case report.MeasureAttrition:
			dto.Attrition = rate
		case report.MeasureRetention:
			dto.Retention = rate
		case report.MeasureSuccess:
			dto.Success = rate
		}
	}

	history, err := h.statsRepo.RateHistory(ctx, instID, report.StudentOverseas, report.MeasureAttrition, h.engine.InternationalTrendYears)
	if err != nil {
		return nil, storeErr("GetReport", "overseas trend query failed", err)
	}
	for i := len(history) - 1; i >= 0; i-- {
		dto.Trend = append(dto.Trend, TrendPointDTO{Year: history[i].Year, Rate: history[i].Rate})
	}

	return dto, nil
}

func (h *GetReportHandler) buildInternationalRate(ctx context.Context, instID int64, m report.Measure) (*InternationalRateDTO, error) {
	rec, err := h.statsRepo.LatestRate(ctx, instID, report.StudentOverseas, m)
	if err != nil {
		return nil, storeErr("GetReport", "overseas rate query failed", err)
	}
	if rec == nil {
		return nil, nil
	}

	population, err := h.reportablePopulation(ctx, rec.Year, report.StudentOverseas, m)
	if err != nil {
		return nil, err
	}

	dto := &InternationalRateDTO{Rate: stats.Round2(rec.Rate), Year: rec.Year}
	if avg, ok := stats.Mean(population); ok {
		v := stats.Round2(avg)
		dto.NationalAvg = &v
	}
	return dto, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Course-level mix
// ─────────────────────────────────────────────────────────────────────────────

func (h *GetReportHandler) buildCourseLevelMix(ctx context.Context, instID int64) (*CourseLevelMixDTO, error) {
	enrol, err := h.statsRepo.LatestCourseLevelMix(ctx, instID, report.CourseLevelEnrolment)
	if err != nil {
		return nil, storeErr("GetReport", "course-level enrolment query failed", err)
	}
	compl, err := h.statsRepo.LatestCourseLevelMix(ctx, instID, report.CourseLevelCompletion)
	if err != nil {
		return nil, storeErr("GetReport", "course-level completion query failed", err)
	}
	if enrol == nil && compl == nil {
		return nil, nil
	}

	natEnrol, err := h.statsRepo.NationalCourseLevelMix(ctx, report.CourseLevelEnrolment)
	if err != nil {
		return nil, storeErr("GetReport", "national course-level query failed", err)
	}
	natCompl, err := h.statsRepo.NationalCourseLevelMix(ctx, report.CourseLevelCompletion)
	if err != nil {
		return nil, storeErr("GetReport", "national course-level query failed", err)
	}

	dto := &CourseLevelMixDTO{
		Enrolment:          courseLevelShares(enrol),
		Completion:         courseLevelShares(compl),
		NationalEnrolment:  courseLevelShares(natEnrol),
		NationalCompletion: courseLevelShares(natCompl),
		Efficiency:         courseLevelEfficiency(enrol, compl),
	}
	return dto, nil
}

// courseLevelShares converts a mix row to percentage shares over the
// four displayed categories. A zero row yields nil: a provider with no
// students has no mix, not an all-zero one.
func courseLevelShares(mix *report.CourseLevelMix) *CourseLevelSharesDTO {
	if mix == nil {
		return nil
	}
	denom := mix.DisplayedSum()
	if denom == 0 {
		return nil
	}

	pct := func(v int64) float64 {
		return stats.Round1(float64(v) / float64(denom) * 100)
	}
	return &CourseLevelSharesDTO{
		Year:                  mix.Year,
		PostgradResearchPct:   pct(mix.PostgradResearch),
		PostgradCourseworkPct: pct(mix.PostgradCoursework),
		BachelorPct:           pct(mix.Bachelor),
		SubBachelorPct:        pct(mix.SubBachelor),
		Total:                 mix.Total,
	}
}

// courseLevelEfficiency relates completions to enrolments per level.
// A level with no enrolment has undefined efficiency, not zero.
func courseLevelEfficiency(enrol, compl *report.CourseLevelMix) *CourseLevelEfficiencyDTO {
	if enrol == nil || compl == nil {
		return nil
	}

	ratio := func(c, e int64) *float64 {
		if e == 0 {
			return nil
		}
		v := stats.Round1(float64(c) / float64(e) * 100)
		return &v
	}
	return &CourseLevelEfficiencyDTO{
		PostgradResearch:   ratio(compl.PostgradResearch, enrol.PostgradResearch),
		PostgradCoursework: ratio(compl.PostgradCoursework, enrol.PostgradCoursework),
		Bachelor:           ratio(compl.Bachelor, enrol.Bachelor),
		SubBachelor:        ratio(compl.SubBachelor, enrol.SubBachelor),
		Overall:            ratio(compl.Total, enrol.Total),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Staff ratio
// ─────────────────────────────────────────────────────────────────────────────

func (h *GetReportHandler) buildStaffRatio(ctx context.Context, instID int64) (*StaffRatioDTO, error) {
	rec, err := h.statsRepo.LatestStaffRatio(ctx, instID)
	if err != nil {
		return nil, storeErr("GetReport", "staff ratio query failed", err)
	}
	if rec == nil {
		return nil, nil
	}

	rows, err := h.statsRepo.StaffRatiosForYear(ctx, rec.Year)
	if err != nil {
		return nil, storeErr("GetReport", "staff ratio population query failed", err)
	}

	// Ratios below the floor are data artifacts from partial staff
	// returns, not real institutions.
	population := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.AcademicRatio < h.engine.MinAcademicRatio {
			continue
		}
		if !h.policy.IsReportable(r.InstitutionName) {
			continue
		}
		population = append(population, r.AcademicRatio)
	}

	dto := &StaffRatioDTO{
		AcademicRatio:  stats.Round1(rec.AcademicRatio),
		Year:           rec.Year,
		EFTSL:          rec.EFTSL,
		AcademicFTE:    rec.AcademicFTE,
		NonAcademicFTE: rec.NonAcademicFTE,
	}
	if rec.NonAcademicRatio != nil {
		v := stats.Round1(*rec.NonAcademicRatio)
		dto.NonAcademicRatio = &v
	}
	if avg, ok := stats.Mean(population); ok {
		v := stats.Round1(avg)
		dto.NationalAvg = &v
	}
	dto.Percentile = stats.Round1(stats.PercentileRank(rec.AcademicRatio, population))
	dto.Intensity = staffIntensity(dto.Percentile)

	trend, err := h.statsRepo.StaffRatioTrend(ctx, instID)
	if err != nil {
		return nil, storeErr("GetReport", "staff ratio trend query failed", err)
	}
	for _, t := range trend {
		dto.Trend = append(dto.Trend, StaffRatioPointDTO{Year: t.Year, Ratio: stats.Round1(t.AcademicRatio)})
	}

	// A direction needs at least three observations; two points always
	// slope somewhere.
	if len(dto.Trend) >= 3 {
		points := dto.Trend
		if n := h.engine.TrendSlopePoints; n > 0 && len(points) > n {
			points = points[len(points)-n:]
		}
		xs := make([]float64, len(points))
		ys := make([]float64, len(points))
		for i, p := range points {
			xs[i] = float64(p.Year)
			ys[i] = p.Ratio
		}
		slope := stats.LinearSlope(xs, ys)
		dto.Slope = stats.Round3(slope)
		switch {
		case slope > h.engine.TrendEpsilon:
			dto.Direction = "increasing"
		case slope < -h.engine.TrendEpsilon:
			dto.Direction = "decreasing"
		default:
			dto.Direction = "stable"
		}
	}

	return dto, nil
}

// staffIntensity maps the ratio percentile to a staffing intensity
// band. The scale is inverted relative to risk: a low percentile means
// few students per academic.
func staffIntensity(percentile float64) string {
	switch {
	case percentile < 25:
		return "Very High"
	case percentile < 50:
		return "High"
	case percentile < 75:
		return "Moderate"
	default:
		return "Low"
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Field context
// ─────────────────────────────────────────────────────────────────────────────

func (h *GetReportHandler) buildFieldContext(ctx context.Context, instID, fieldID int64) (*FieldContextDTO, error) {
	field, err := h.instRepo.GetField(ctx, fieldID)
	if err != nil {
		return nil, lookupErr("report", "GetReport", "field", err)
	}

	year, err := h.statsRepo.LatestEnrolmentYear(ctx, instID)
	if err != nil {
		return nil, storeErr("GetReport", "enrolment year query failed", err)
	}
	if year == 0 {
		return nil, nil
	}

	enrolment, err := h.statsRepo.FieldEnrolment(ctx, instID, fieldID, year)
	if err != nil {
		return nil, storeErr("GetReport", "field enrolment query failed", err)
	}
	total, err := h.statsRepo.TotalEnrolment(ctx, instID, year)
	if err != nil {
		return nil, storeErr("GetReport", "total enrolment query failed", err)
	}
	completions, err := h.statsRepo.FieldCompletions(ctx, instID, fieldID, year)
	if err != nil {
		return nil, storeErr("GetReport", "field completions query failed", err)
	}

	dto := &FieldContextDTO{
		Field:       FieldDTO{ID: field.ID, Name: field.Name},
		Year:        year,
		Enrolment:   enrolment,
		Completions: completions,
	}

	if total > 0 {
		dto.SharePct = stats.Round1(float64(enrolment) / float64(total) * 100)
	}
	if enrolment > 0 {
		v := stats.Round1(float64(completions) / float64(enrolment) * 100)
		dto.CompletionRatio = &v
	}

	enrolTrend, err := h.statsRepo.FieldEnrolmentTrend(ctx, instID, fieldID)
	if err != nil {
		return nil, storeErr("GetReport", "field enrolment trend query failed", err)
	}
	for _, p := range enrolTrend {
		dto.EnrolmentTrend = append(dto.EnrolmentTrend, YearCountDTO{Year: p.Year, Count: p.Value})
	}

	complTrend, err := h.statsRepo.FieldCompletionsTrend(ctx, instID, fieldID)
	if err != nil {
		return nil, storeErr("GetReport", "field completions trend query failed", err)
	}
	for _, p := range complTrend {
		dto.CompletionsTrend = append(dto.CompletionsTrend, YearCountDTO{Year: p.Year, Count: p.Value})
	}

	dto.Ranking, err = buildFieldRanking(ctx, h.statsRepo, h.policy, h.engine, fieldID, year)
	if err != nil {
		return nil, err
	}

	// Position this institution inside the list by id; names collide
	// across aggregate rows.
	if dto.Ranking != nil {
		for _, row := range dto.Ranking.Institutions {
			if row.InstitutionID == instID {
				dto.Ranking.ThisInstitution = &RankPositionDTO{
					Rank:  row.Rank,
					Of:    len(dto.Ranking.Institutions),
					Ratio: row.CompletionRatio,
				}
				break
			}
		}
	}

	return dto, nil
}

// storeErr wraps a storage failure in the report domain.
func storeErr(op, msg string, err error) error {
	return shared.WrapError("report", op, shared.ErrStoreUnavailable, msg, err)
}

// lookupErr distinguishes an unknown id from a store failure during an
// entity lookup, so an outage never reads as "no such thing".
func lookupErr(domain, op, entity string, err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.WrapError(domain, op, shared.ErrNotFound, entity+" not found", err)
	}
	return shared.WrapError(domain, op, shared.ErrStoreUnavailable, entity+" lookup failed", err)
}
