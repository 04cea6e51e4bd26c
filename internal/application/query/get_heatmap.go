package query

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/survival-hub/course-survival-hub/config"
	"github.com/survival-hub/course-survival-hub/internal/domain/institution"
	"github.com/survival-hub/course-survival-hub/internal/domain/report"
	"github.com/survival-hub/course-survival-hub/internal/domain/shared"
	"github.com/survival-hub/course-survival-hub/pkg/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET HEATMAP QUERY
// Scores every eligible institution in one field by a composite of
// institution-wide attrition and field completion ratio: the expected
// share of a starting cohort that neither completes the field nor
// stays enrolled.
// ══════════════════════════════════════════════════════════════════════════════

// GetHeatmapQuery holds the parameters for a field risk heatmap.
type GetHeatmapQuery struct {
	// FieldID identifies the broad field of education.
	FieldID int64
}

// Validate checks the query parameters.
func (q *GetHeatmapQuery) Validate() error {
	if q.FieldID <= 0 {
		return errors.New("field_id must be positive")
	}
	return nil
}

// HeatmapCellDTO is one institution's risk score within the field.
type HeatmapCellDTO struct {
	Institution string `json:"institution"`
	State       string `json:"state,omitempty"`

	// Enrolment is the field headcount in the reference year.
	Enrolment int64 `json:"enrolment"`

	// AttritionRate is the institution-wide (all-students) attrition.
	AttritionRate float64 `json:"attrition_rate"`

	// GradRatio is field completions over enrolment, capped at 100:
	// pipeline effects can push raw ratios past it.
	GradRatio float64 `json:"grad_ratio"`

	// Composite is attrition scaled by the non-completing share.
	Composite float64 `json:"composite"`

	// Tier is the composite band: low, medium, high.
	Tier string `json:"tier"`
}

// HeatmapSummaryDTO aggregates the scored cells.
type HeatmapSummaryDTO struct {
	NumInstitutions int     `json:"num_institutions"`
	AvgComposite    float64 `json:"avg_composite"`
	MinComposite    float64 `json:"min_composite"`
	MaxComposite    float64 `json:"max_composite"`

	// Best and Worst are the institutions at the extremes of the
	// sorted list.
	Best  string `json:"best"`
	Worst string `json:"worst"`

	// The two data years deliberately differ: enrolment is pinned to
	// the reference year while attrition floats to the latest
	// collection.
	AttritionYear int `json:"attrition_year"`
	EnrolmentYear int `json:"enrolment_year"`
}

// GetHeatmapResult is the assembled heatmap for one field.
type GetHeatmapResult struct {
	FieldID   int64  `json:"field_id"`
	FieldName string `json:"field_name"`

	// Cells is sorted by composite ascending, safest first.
	Cells []HeatmapCellDTO `json:"cells"`

	Summary HeatmapSummaryDTO `json:"summary"`

	GeneratedAt time.Time `json:"generated_at"`
}

// GetHeatmapHandler answers heatmap queries.
type GetHeatmapHandler struct {
	instRepo  institution.Repository
	statsRepo report.StatsRepository
	policy    institution.NamePolicy
	engine    config.EngineConfig
}

// NewGetHeatmapHandler creates a new handler.
func NewGetHeatmapHandler(
	instRepo institution.Repository,
	statsRepo report.StatsRepository,
	engine config.EngineConfig,
) *GetHeatmapHandler {
	return &GetHeatmapHandler{
		instRepo:  instRepo,
		statsRepo: statsRepo,
		policy:    namePolicyFrom(engine),
		engine:    engine,
	}
}

// Handle executes a heatmap query. Returns a no-data error for
// excluded fields and for fields where no institution qualifies.
func (h *GetHeatmapHandler) Handle(ctx context.Context, query GetHeatmapQuery) (*GetHeatmapResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("heatmap", "GetHeatmap", shared.ErrValidation, err.Error(), err)
	}

	// Mixed-field and non-award codes have no meaningful completion
	// pipeline to score.
	for _, excluded := range h.engine.ExcludedFieldIDs {
		if query.FieldID == excluded {
			return nil, shared.WrapError("heatmap", "GetHeatmap", shared.ErrNoData, "field excluded from heatmap", nil)
		}
	}

	field, err := h.instRepo.GetField(ctx, query.FieldID)
	if err != nil {
		return nil, lookupErr("heatmap", "GetHeatmap", "field", err)
	}

	enrolYear := h.engine.EnrolmentReferenceYear

	attrYear, err := h.statsRepo.LatestYearWithRates(ctx, report.StudentAll, report.MeasureAttrition)
	if err != nil {
		return nil, shared.WrapError("heatmap", "GetHeatmap", shared.ErrStoreUnavailable, "attrition year query failed", err)
	}
	if attrYear == 0 {
		return nil, shared.WrapError("heatmap", "GetHeatmap", shared.ErrNoData, "no attrition data", nil)
	}

	attritionRows, err := h.statsRepo.RatesForYear(ctx, attrYear, report.StudentAll, report.MeasureAttrition)
	if err != nil {
		return nil, shared.WrapError("heatmap", "GetHeatmap", shared.ErrStoreUnavailable, "attrition query failed", err)
	}
	attritionByInst := make(map[int64]float64, len(attritionRows))
	for _, r := range attritionRows {
		attritionByInst[r.InstitutionID] = r.Rate
	}

	enrolments, err := h.statsRepo.FieldEnrolmentsByInstitution(ctx, query.FieldID, enrolYear)
	if err != nil {
		return nil, shared.WrapError("heatmap", "GetHeatmap", shared.ErrStoreUnavailable, "enrolments query failed", err)
	}
	completions, err := h.statsRepo.FieldCompletionsByInstitution(ctx, query.FieldID, enrolYear)
	if err != nil {
		return nil, shared.WrapError("heatmap", "GetHeatmap", shared.ErrStoreUnavailable, "completions query failed", err)
	}
	completionsByInst := make(map[int64]int64, len(completions))
	for _, c := range completions {
		completionsByInst[c.InstitutionID] = c.Headcount
	}

	var cells []HeatmapCellDTO
	for _, e := range enrolments {
		if e.Headcount < int64(h.engine.MinEnrolment) {
			continue
		}
		if !h.policy.IsReportable(e.InstitutionName) {
			continue
		}
		attrition, ok := attritionByInst[e.InstitutionID]
		if !ok {
			// No attrition record means no composite; skipping beats
			// scoring with an invented rate.
			continue
		}

		gradRatio := float64(completionsByInst[e.InstitutionID]) / float64(e.Headcount) * 100
		if gradRatio > 100 {
			gradRatio = 100
		}

		composite := stats.Round2(attrition * (1 - gradRatio/100))
		cells = append(cells, HeatmapCellDTO{
			Institution:   e.InstitutionName,
			State:         e.State,
			Enrolment:     e.Headcount,
			AttritionRate: stats.Round2(attrition),
			GradRatio:     stats.Round1(gradRatio),
			Composite:     composite,
			Tier:          h.tier(composite),
		})
	}

	if len(cells) == 0 {
		return nil, shared.WrapError("heatmap", "GetHeatmap", shared.ErrNoData, "no institutions qualify", nil)
	}

	sort.Slice(cells, func(i, j int) bool { return cells[i].Composite < cells[j].Composite })

	composites := make([]float64, len(cells))
	for i, c := range cells {
		composites[i] = c.Composite
	}
	avg, _ := stats.Mean(composites)
	minC, _ := stats.Min(composites)
	maxC, _ := stats.Max(composites)

	return &GetHeatmapResult{
		FieldID:   field.ID,
		FieldName: field.Name,
		Cells:     cells,
		Summary: HeatmapSummaryDTO{
			NumInstitutions: len(cells),
			AvgComposite:    stats.Round2(avg),
			MinComposite:    stats.Round2(minC),
			MaxComposite:    stats.Round2(maxC),
			Best:            cells[0].Institution,
			Worst:           cells[len(cells)-1].Institution,
			AttritionYear:   attrYear,
			EnrolmentYear:   enrolYear,
		},
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// tier maps a composite score to its display band.
func (h *GetHeatmapHandler) tier(composite float64) string {
	switch {
	case composite < h.engine.HeatmapLowMax:
		return "low"
	case composite < h.engine.HeatmapMediumMax:
		return "medium"
	default:
		return "high"
	}
}
