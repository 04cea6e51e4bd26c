package query

import (
	"context"
	"errors"
	"time"

	"github.com/survival-hub/course-survival-hub/config"
	"github.com/survival-hub/course-survival-hub/internal/domain/equity"
	"github.com/survival-hub/course-survival-hub/internal/domain/institution"
	"github.com/survival-hub/course-survival-hub/internal/domain/shared"
	"github.com/survival-hub/course-survival-hub/pkg/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET EQUITY QUERY
// Measures how an institution's designated equity cohorts perform
// against the sector average, per group and measure, with a summary
// score over retention gaps.
// ══════════════════════════════════════════════════════════════════════════════

// GetEquityQuery holds the parameters for an equity gap report.
type GetEquityQuery struct {
	// InstitutionID identifies the provider.
	InstitutionID int64
}

// Validate checks the query parameters.
func (q *GetEquityQuery) Validate() error {
	if q.InstitutionID <= 0 {
		return errors.New("institution_id must be positive")
	}
	return nil
}

// EquityMeasureDTO is one (group, measure) cell. All three values are
// nil when the institution did not publish the cell; a missing rate is
// never rendered as zero.
type EquityMeasureDTO struct {
	Rate        *float64 `json:"rate"`
	NationalAvg *float64 `json:"national_avg"`

	// Gap is institution minus national average; positive means the
	// cohort does better here than in the sector.
	Gap *float64 `json:"gap"`
}

// EquityTrendPointDTO is one year of a group's retention series.
type EquityTrendPointDTO struct {
	Year      int     `json:"year"`
	Retention float64 `json:"retention"`
}

// EquityGroupDTO is one equity cohort's full panel.
type EquityGroupDTO struct {
	Label string `json:"label"`

	Retention  EquityMeasureDTO `json:"retention"`
	Success    EquityMeasureDTO `json:"success"`
	Attainment EquityMeasureDTO `json:"attainment"`

	// Trend is the recent retention series, oldest first.
	Trend []EquityTrendPointDTO `json:"trend"`
}

// EquitySummaryDTO scores the institution's equity support using
// retention gaps.
type EquitySummaryDTO struct {
	GroupsAboveAvg int    `json:"groups_above_avg"`
	GroupsTotal    int    `json:"groups_total"`
	OverallLabel   string `json:"overall_label"`
}

// GetEquityResult is the assembled equity gap report.
type GetEquityResult struct {
	Institution InstitutionDTO `json:"institution"`

	// LatestYear maps each measure to the institution's latest data
	// year for it.
	LatestYear map[string]int `json:"latest_year"`

	// Groups maps group code to its panel, in ReportedGroups order.
	Groups map[string]EquityGroupDTO `json:"groups"`

	// AllDomestic is the baseline panel without a trend.
	AllDomestic map[string]EquityMeasureDTO `json:"all_domestic"`

	SupportSummary EquitySummaryDTO `json:"support_summary"`

	GeneratedAt time.Time `json:"generated_at"`
}

// GetEquityHandler answers equity gap queries.
type GetEquityHandler struct {
	instRepo   institution.Repository
	equityRepo equity.Repository
	policy     institution.NamePolicy
	engine     config.EngineConfig
}

// NewGetEquityHandler creates a new handler.
func NewGetEquityHandler(
	instRepo institution.Repository,
	equityRepo equity.Repository,
	engine config.EngineConfig,
) *GetEquityHandler {
	return &GetEquityHandler{
		instRepo:   instRepo,
		equityRepo: equityRepo,
		policy:     namePolicyFrom(engine),
		engine:     engine,
	}
}

// Handle executes an equity query. Institutions without any equity
// rows yield a no-data error, distinct from an unknown institution.
func (h *GetEquityHandler) Handle(ctx context.Context, query GetEquityQuery) (*GetEquityResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("equity", "GetEquity", shared.ErrValidation, err.Error(), err)
	}

	inst, err := h.instRepo.GetInstitution(ctx, query.InstitutionID)
	if err != nil {
		return nil, lookupErr("equity", "GetEquity", "institution", err)
	}

	has, err := h.equityRepo.HasData(ctx, inst.ID)
	if err != nil {
		return nil, h.storeErr("equity presence query failed", err)
	}
	if !has {
		return nil, shared.WrapError("equity", "GetEquity", shared.ErrNoData, "no equity data for institution", nil)
	}

	// Each measure is pinned to the institution's own latest year for
	// it; collections publish measures on different cadences.
	latestYears := make(map[equity.Measure]int)
	for _, m := range equity.ReportedMeasures {
		year, err := h.equityRepo.LatestYear(ctx, inst.ID, m)
		if err != nil {
			return nil, h.storeErr("latest year query failed", err)
		}
		if year != 0 {
			latestYears[m] = year
		}
	}
	if len(latestYears) == 0 {
		return nil, shared.WrapError("equity", "GetEquity", shared.ErrNoData, "no equity data for institution", nil)
	}

	nationalAvgs, err := h.nationalAverages(ctx, latestYears)
	if err != nil {
		return nil, err
	}

	reported := h.reportedGroups()
	groups := make(map[string]EquityGroupDTO, len(reported))
	for _, g := range reported {
		dto := EquityGroupDTO{Label: g.Label()}

		for _, m := range equity.ReportedMeasures {
			cell, err := h.buildCell(ctx, inst.ID, g, m, latestYears, nationalAvgs)
			if err != nil {
				return nil, err
			}
			switch m {
			case equity.MeasureRetention:
				dto.Retention = cell
			case equity.MeasureSuccess:
				dto.Success = cell
			case equity.MeasureAttainment:
				dto.Attainment = cell
			}
		}

		history, err := h.equityRepo.RateHistory(ctx, inst.ID, g, equity.MeasureRetention, h.engine.EquityTrendYears)
		if err != nil {
			return nil, h.storeErr("retention trend query failed", err)
		}
		dto.Trend = make([]EquityTrendPointDTO, 0, len(history))
		for i := len(history) - 1; i >= 0; i-- {
			dto.Trend = append(dto.Trend, EquityTrendPointDTO{
				Year:      history[i].Year,
				Retention: stats.Round2(history[i].Rate),
			})
		}

		groups[string(g)] = dto
	}

	allDomestic := make(map[string]EquityMeasureDTO, len(equity.ReportedMeasures))
	for _, m := range equity.ReportedMeasures {
		cell, err := h.buildCell(ctx, inst.ID, equity.GroupAllDomestic, m, latestYears, nationalAvgs)
		if err != nil {
			return nil, err
		}
		allDomestic[string(m)] = cell
	}

	latestYearOut := make(map[string]int, len(latestYears))
	for m, y := range latestYears {
		latestYearOut[string(m)] = y
	}

	return &GetEquityResult{
		Institution:    InstitutionDTO{ID: inst.ID, Name: inst.Name, State: inst.State},
		LatestYear:     latestYearOut,
		Groups:         groups,
		AllDomestic:    allDomestic,
		SupportSummary: h.summarize(groups),
		GeneratedAt:    time.Now().UTC(),
	}, nil
}

// nationalAverages computes the sector mean per (measure, group) at
// each measure's pinned year, over reportable institutions only.
func (h *GetEquityHandler) nationalAverages(
	ctx context.Context,
	latestYears map[equity.Measure]int,
) (map[equity.Measure]map[equity.Group]float64, error) {
	avgs := make(map[equity.Measure]map[equity.Group]float64, len(latestYears))

	allGroups := append([]equity.Group{equity.GroupAllDomestic}, h.reportedGroups()...)
	for m, year := range latestYears {
		avgs[m] = make(map[equity.Group]float64)
		for _, g := range allGroups {
			rows, err := h.equityRepo.RatesForYear(ctx, year, g, m)
			if err != nil {
				return nil, h.storeErr("national average query failed", err)
			}
			values := make([]float64, 0, len(rows))
			for _, r := range rows {
				if h.policy.IsReportable(r.InstitutionName) {
					values = append(values, r.Rate)
				}
			}
			if avg, ok := stats.Mean(values); ok {
				avgs[m][g] = stats.Round2(avg)
			}
		}
	}
	return avgs, nil
}

// buildCell assembles one (group, measure) cell.
func (h *GetEquityHandler) buildCell(
	ctx context.Context,
	instID int64,
	g equity.Group,
	m equity.Measure,
	latestYears map[equity.Measure]int,
	nationalAvgs map[equity.Measure]map[equity.Group]float64,
) (EquityMeasureDTO, error) {
	year, ok := latestYears[m]
	if !ok {
		return EquityMeasureDTO{}, nil
	}

	rec, err := h.equityRepo.RateAt(ctx, instID, g, m, year)
	if err != nil {
		return EquityMeasureDTO{}, h.storeErr("rate query failed", err)
	}

	var cell EquityMeasureDTO
	if avg, ok := nationalAvgs[m][g]; ok {
		v := avg
		cell.NationalAvg = &v
	}
	if rec != nil {
		rate := stats.Round2(rec.Rate)
		cell.Rate = &rate
		if cell.NationalAvg != nil {
			gap := stats.Round2(rate - *cell.NationalAvg)
			cell.Gap = &gap
		}
	}
	return cell, nil
}

// summarize counts groups whose retention gap is non-negative and
// labels the overall equity support.
func (h *GetEquityHandler) summarize(groups map[string]EquityGroupDTO) EquitySummaryDTO {
	var above, total int
	for _, g := range h.reportedGroups() {
		gap := groups[string(g)].Retention.Gap
		if gap == nil {
			continue
		}
		total++
		if *gap >= 0 {
			above++
		}
	}

	var label string
	switch {
	case total == 0:
		label = "No Data"
	case float64(above) >= float64(total)*h.engine.EquityStrongShare:
		label = "Strong"
	case float64(above) >= float64(total)*h.engine.EquityMixedShare:
		label = "Mixed"
	default:
		label = "Weak"
	}

	return EquitySummaryDTO{
		GroupsAboveAvg: above,
		GroupsTotal:    total,
		OverallLabel:   label,
	}
}

// reportedGroups resolves the configured group list, defaulting to the
// collection's standard six when the configuration names none.
func (h *GetEquityHandler) reportedGroups() []equity.Group {
	if len(h.engine.EquityGroups) == 0 {
		return equity.ReportedGroups
	}
	groups := make([]equity.Group, len(h.engine.EquityGroups))
	for i, code := range h.engine.EquityGroups {
		groups[i] = equity.Group(code)
	}
	return groups
}

func (h *GetEquityHandler) storeErr(msg string, err error) error {
	return shared.WrapError("equity", "GetEquity", shared.ErrStoreUnavailable, msg, err)
}
