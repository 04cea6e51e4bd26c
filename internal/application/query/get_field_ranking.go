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
// GET FIELD RANKING QUERY
// Ranks every eligible institution in one field of education by
// completions-to-enrolment ratio. Eligibility: the enrolment floor and
// the reportable-name policy; aggregate rows never outrank a provider.
// ══════════════════════════════════════════════════════════════════════════════

// GetFieldRankingQuery holds the parameters for a field ranking.
type GetFieldRankingQuery struct {
	// FieldID identifies the broad field of education.
	FieldID int64

	// Year is the data year. Zero means the latest year with national
	// enrolment data.
	Year int
}

// Validate checks the query parameters.
func (q *GetFieldRankingQuery) Validate() error {
	if q.FieldID <= 0 {
		return errors.New("field_id must be positive")
	}
	if q.Year < 0 {
		return errors.New("year cannot be negative")
	}
	return nil
}

// RankedInstitutionDTO is one row of a field ranking.
type RankedInstitutionDTO struct {
	// Rank is the 1-based position, best ratio first.
	Rank int `json:"rank"`

	// InstitutionID identifies the provider.
	InstitutionID int64 `json:"institution_id"`

	// Institution is the provider name.
	Institution string `json:"institution"`

	// State is the provider's state/territory code.
	State string `json:"state,omitempty"`

	// Enrolment is the field headcount backing the ratio.
	Enrolment int64 `json:"enrolment"`

	// Completions is the summed completions for the same year.
	Completions int64 `json:"completions"`

	// CompletionRatio is completions over enrolment as a percentage.
	CompletionRatio float64 `json:"completion_ratio"`
}

// FieldRankingDTO is the assembled ranking for one field and year.
type FieldRankingDTO struct {
	// Year is the data year the ranking was computed for.
	Year int `json:"year"`

	// Top5 holds the best-performing institutions.
	Top5 []RankedInstitutionDTO `json:"top_5"`

	// Bottom5 holds the worst performers. Empty when five or fewer
	// institutions qualify; a full list has no meaningful bottom.
	Bottom5 []RankedInstitutionDTO `json:"bottom_5"`

	// Institutions is the complete ranked list.
	Institutions []RankedInstitutionDTO `json:"institutions"`

	// NationalAvg is total completions over total enrolment across the
	// ranked institutions, as a percentage.
	NationalAvg float64 `json:"national_avg"`

	// ThisInstitution positions the reported provider inside the list
	// when the ranking is embedded in a report card. Nil for the
	// standalone ranking query and when the provider did not qualify.
	ThisInstitution *RankPositionDTO `json:"this_institution,omitempty"`
}

// RankPositionDTO places one institution inside a ranking.
type RankPositionDTO struct {
	Rank  int     `json:"rank"`
	Of    int     `json:"of"`
	Ratio float64 `json:"ratio"`
}

// GetFieldRankingResult wraps a ranking with its field identity.
type GetFieldRankingResult struct {
	// FieldID identifies the ranked field.
	FieldID int64 `json:"field_id"`

	// FieldName is the field's display name.
	FieldName string `json:"field_name"`

	// Ranking is the assembled ranking, or nil when no institution
	// qualifies for the field and year.
	Ranking *FieldRankingDTO `json:"ranking"`

	// GeneratedAt is when the result was computed.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetFieldRankingHandler answers field ranking queries.
type GetFieldRankingHandler struct {
	instRepo  institution.Repository
	statsRepo report.StatsRepository
	policy    institution.NamePolicy
	engine    config.EngineConfig
}

// NewGetFieldRankingHandler creates a new handler.
func NewGetFieldRankingHandler(
	instRepo institution.Repository,
	statsRepo report.StatsRepository,
	engine config.EngineConfig,
) *GetFieldRankingHandler {
	return &GetFieldRankingHandler{
		instRepo:  instRepo,
		statsRepo: statsRepo,
		policy:    namePolicyFrom(engine),
		engine:    engine,
	}
}

// Handle executes a field ranking query.
func (h *GetFieldRankingHandler) Handle(ctx context.Context, query GetFieldRankingQuery) (*GetFieldRankingResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("ranking", "GetFieldRanking", shared.ErrValidation, err.Error(), err)
	}

	field, err := h.instRepo.GetField(ctx, query.FieldID)
	if err != nil {
		return nil, lookupErr("ranking", "GetFieldRanking", "field", err)
	}

	year := query.Year
	if year == 0 {
		year = h.engine.EnrolmentReferenceYear
	}

	ranking, err := buildFieldRanking(ctx, h.statsRepo, h.policy, h.engine, query.FieldID, year)
	if err != nil {
		return nil, err
	}

	return &GetFieldRankingResult{
		FieldID:     field.ID,
		FieldName:   field.Name,
		Ranking:     ranking,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// buildFieldRanking computes the ranked list shared by the ranking
// query and the report's field context. Returns nil when no
// institution qualifies.
func buildFieldRanking(
	ctx context.Context,
	statsRepo report.StatsRepository,
	policy institution.NamePolicy,
	engine config.EngineConfig,
	fieldID int64,
	year int,
) (*FieldRankingDTO, error) {
	enrolments, err := statsRepo.FieldEnrolmentsByInstitution(ctx, fieldID, year)
	if err != nil {
		return nil, shared.WrapError("ranking", "buildFieldRanking", shared.ErrStoreUnavailable, "enrolments query failed", err)
	}

	completions, err := statsRepo.FieldCompletionsByInstitution(ctx, fieldID, year)
	if err != nil {
		return nil, shared.WrapError("ranking", "buildFieldRanking", shared.ErrStoreUnavailable, "completions query failed", err)
	}

	completionsByInst := make(map[int64]int64, len(completions))
	for _, c := range completions {
		completionsByInst[c.InstitutionID] = c.Headcount
	}

	var rows []RankedInstitutionDTO
	var totalEnrolled, totalCompleted int64

	for _, e := range enrolments {
		if e.Headcount < int64(engine.MinEnrolment) {
			continue
		}
		if !policy.IsReportable(e.InstitutionName) {
			continue
		}

		comps := completionsByInst[e.InstitutionID]
		rows = append(rows, RankedInstitutionDTO{
			InstitutionID:   e.InstitutionID,
			Institution:     e.InstitutionName,
			State:           e.State,
			Enrolment:       e.Headcount,
			Completions:     comps,
			CompletionRatio: stats.Round1(float64(comps) / float64(e.Headcount) * 100),
		})
		totalEnrolled += e.Headcount
		totalCompleted += comps
	}

	if len(rows) == 0 {
		return nil, nil
	}

	// Name sort first, then a stable ratio sort: equal ratios keep
	// alphabetical order so ranks are deterministic.
	sort.Slice(rows, func(i, j int) bool { return rows[i].Institution < rows[j].Institution })
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].CompletionRatio > rows[j].CompletionRatio })

	for i := range rows {
		rows[i].Rank = i + 1
	}

	dto := &FieldRankingDTO{
		Year:         year,
		Institutions: rows,
		NationalAvg:  stats.Round1(float64(totalCompleted) / float64(totalEnrolled) * 100),
	}

	if len(rows) > 5 {
		dto.Top5 = rows[:5]
		dto.Bottom5 = rows[len(rows)-5:]
	} else {
		dto.Top5 = rows
		dto.Bottom5 = []RankedInstitutionDTO{}
	}

	return dto, nil
}

// namePolicyFrom builds the reportable-name predicate from engine
// configuration.
func namePolicyFrom(engine config.EngineConfig) institution.NamePolicy {
	if len(engine.NoiseNameTokens) == 0 && engine.MinNameLength == 0 {
		return institution.DefaultNamePolicy()
	}
	return institution.NamePolicy{
		NoiseTokens: engine.NoiseNameTokens,
		MinLength:   engine.MinNameLength,
	}
}
