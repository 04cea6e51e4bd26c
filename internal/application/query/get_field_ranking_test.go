package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/survival-hub/course-survival-hub/internal/domain/institution"
	"github.com/survival-hub/course-survival-hub/internal/domain/report"
	"github.com/survival-hub/course-survival-hub/internal/domain/shared"
)

func TestGetFieldRankingValidation(t *testing.T) {
	handler := NewGetFieldRankingHandler(newFakeInstRepo(), newFakeStatsRepo(), testEngineConfig())

	_, err := handler.Handle(context.Background(), GetFieldRankingQuery{FieldID: 0})
	assert.True(t, shared.IsValidation(err))
}

func TestGetFieldRankingUnknownField(t *testing.T) {
	handler := NewGetFieldRankingHandler(newFakeInstRepo(), newFakeStatsRepo(), testEngineConfig())

	_, err := handler.Handle(context.Background(), GetFieldRankingQuery{FieldID: 42})
	assert.True(t, shared.IsNotFound(err))
}

func TestGetFieldRankingFiltersAndRanks(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.fields[7] = &institution.FieldOfEducation{ID: 7, Name: "Health"}

	statsRepo := newFakeStatsRepo()
	statsRepo.enrolByInst["7/2024"] = []report.InstitutionHeadcount{
		{InstitutionID: 1, InstitutionName: "Alpha University", State: "NSW", Headcount: 1000},
		{InstitutionID: 2, InstitutionName: "Beta University", State: "VIC", Headcount: 500},
		{InstitutionID: 3, InstitutionName: "Gamma University", Headcount: 200},
		{InstitutionID: 4, InstitutionName: "Tiny College", Headcount: 40},
		{InstitutionID: 5, InstitutionName: "Total universities", Headcount: 9999},
	}
	statsRepo.complByInst["7/2024"] = []report.InstitutionHeadcount{
		{InstitutionID: 1, InstitutionName: "Alpha University", Headcount: 250},
		{InstitutionID: 2, InstitutionName: "Beta University", Headcount: 150},
		// Gamma has no completions row: counted as zero, not skipped.
	}

	handler := NewGetFieldRankingHandler(instRepo, statsRepo, testEngineConfig())

	result, err := handler.Handle(context.Background(), GetFieldRankingQuery{FieldID: 7, Year: 2024})
	assert.NoError(t, err)
	assert.Equal(t, "Health", result.FieldName)
	assert.NotNil(t, result.Ranking)

	ranking := result.Ranking
	assert.Equal(t, 2024, ranking.Year)

	// Tiny College sits below the enrolment floor and the aggregate row
	// fails the name policy; three institutions rank.
	assert.Len(t, ranking.Institutions, 3)
	assert.Equal(t, "Beta University", ranking.Institutions[0].Institution)
	assert.Equal(t, int64(2), ranking.Institutions[0].InstitutionID)
	assert.Equal(t, 30.0, ranking.Institutions[0].CompletionRatio)
	assert.Equal(t, 1, ranking.Institutions[0].Rank)

	// The standalone query carries no provider to position.
	assert.Nil(t, ranking.ThisInstitution)
	assert.Equal(t, "Alpha University", ranking.Institutions[1].Institution)
	assert.Equal(t, 25.0, ranking.Institutions[1].CompletionRatio)
	assert.Equal(t, "Gamma University", ranking.Institutions[2].Institution)
	assert.Equal(t, 0.0, ranking.Institutions[2].CompletionRatio)

	// National average is headcount-weighted: 400 / 1700.
	assert.Equal(t, 23.5, ranking.NationalAvg)

	// With five or fewer institutions the bottom list is meaningless.
	assert.Len(t, ranking.Top5, 3)
	assert.Empty(t, ranking.Bottom5)
}

func TestGetFieldRankingTieBreaksAlphabetically(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.fields[7] = &institution.FieldOfEducation{ID: 7, Name: "Health"}

	statsRepo := newFakeStatsRepo()
	statsRepo.enrolByInst["7/2024"] = []report.InstitutionHeadcount{
		{InstitutionID: 2, InstitutionName: "Zeta University", Headcount: 100},
		{InstitutionID: 1, InstitutionName: "Alpha University", Headcount: 100},
	}
	statsRepo.complByInst["7/2024"] = []report.InstitutionHeadcount{
		{InstitutionID: 1, InstitutionName: "Alpha University", Headcount: 25},
		{InstitutionID: 2, InstitutionName: "Zeta University", Headcount: 25},
	}

	handler := NewGetFieldRankingHandler(instRepo, statsRepo, testEngineConfig())

	result, err := handler.Handle(context.Background(), GetFieldRankingQuery{FieldID: 7, Year: 2024})
	assert.NoError(t, err)
	assert.Equal(t, "Alpha University", result.Ranking.Institutions[0].Institution)
	assert.Equal(t, "Zeta University", result.Ranking.Institutions[1].Institution)
}

func TestGetFieldRankingBottomFive(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.fields[7] = &institution.FieldOfEducation{ID: 7, Name: "Health"}

	statsRepo := newFakeStatsRepo()
	names := []string{"University A", "University B", "University C", "University D", "University E", "University F", "University G"}
	var enrolments, completions []report.InstitutionHeadcount
	for i, name := range names {
		enrolments = append(enrolments, report.InstitutionHeadcount{
			InstitutionID: int64(i + 1), InstitutionName: name, Headcount: 100,
		})
		completions = append(completions, report.InstitutionHeadcount{
			InstitutionID: int64(i + 1), InstitutionName: name, Headcount: int64(10 * (i + 1)),
		})
	}
	statsRepo.enrolByInst["7/2024"] = enrolments
	statsRepo.complByInst["7/2024"] = completions

	handler := NewGetFieldRankingHandler(instRepo, statsRepo, testEngineConfig())

	result, err := handler.Handle(context.Background(), GetFieldRankingQuery{FieldID: 7, Year: 2024})
	assert.NoError(t, err)

	ranking := result.Ranking
	assert.Len(t, ranking.Institutions, 7)
	assert.Len(t, ranking.Top5, 5)
	assert.Len(t, ranking.Bottom5, 5)
	assert.Equal(t, "University G", ranking.Top5[0].Institution)
	assert.Equal(t, "University A", ranking.Bottom5[4].Institution)
	assert.Equal(t, 7, ranking.Bottom5[4].Rank)
}

func TestGetFieldRankingDefaultYear(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.fields[7] = &institution.FieldOfEducation{ID: 7, Name: "Health"}

	statsRepo := newFakeStatsRepo()
	statsRepo.enrolByInst["7/2024"] = []report.InstitutionHeadcount{
		{InstitutionID: 1, InstitutionName: "Alpha University", Headcount: 100},
	}

	handler := NewGetFieldRankingHandler(instRepo, statsRepo, testEngineConfig())

	// Year zero resolves to the configured reference year.
	result, err := handler.Handle(context.Background(), GetFieldRankingQuery{FieldID: 7})
	assert.NoError(t, err)
	assert.NotNil(t, result.Ranking)
	assert.Equal(t, 2024, result.Ranking.Year)
}

func TestGetFieldRankingNoQualifiers(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.fields[7] = &institution.FieldOfEducation{ID: 7, Name: "Health"}

	handler := NewGetFieldRankingHandler(instRepo, newFakeStatsRepo(), testEngineConfig())

	result, err := handler.Handle(context.Background(), GetFieldRankingQuery{FieldID: 7, Year: 2024})
	assert.NoError(t, err)
	assert.Nil(t, result.Ranking)
}
