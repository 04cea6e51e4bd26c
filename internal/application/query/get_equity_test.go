package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/survival-hub/course-survival-hub/internal/domain/equity"
	"github.com/survival-hub/course-survival-hub/internal/domain/institution"
	"github.com/survival-hub/course-survival-hub/internal/domain/shared"
)

func TestGetEquityUnknownInstitution(t *testing.T) {
	handler := NewGetEquityHandler(newFakeInstRepo(), newFakeEquityRepo(), testEngineConfig())

	_, err := handler.Handle(context.Background(), GetEquityQuery{InstitutionID: 999})
	assert.True(t, shared.IsNotFound(err))
}

func TestGetEquityNoData(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University"}

	handler := NewGetEquityHandler(instRepo, newFakeEquityRepo(), testEngineConfig())

	// The institution resolves but publishes no equity rows: "nothing
	// to show", not "no such thing".
	_, err := handler.Handle(context.Background(), GetEquityQuery{InstitutionID: 1})
	assert.True(t, shared.IsNoData(err))
	assert.False(t, shared.IsNotFound(err))
}

func TestGetEquityGapsAndSummary(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University"}

	equityRepo := newFakeEquityRepo()
	equityRepo.hasData[1] = true
	equityRepo.latestYears["1/retention"] = 2023

	equityRepo.rates["1/low_ses/retention/2023"] = &equity.RateRecord{Year: 2023, Rate: 82.5}
	equityRepo.ratesForYear["2023/low_ses/retention"] = []equity.InstitutionRate{
		{InstitutionID: 1, InstitutionName: "Example University", Rate: 82.5},
		{InstitutionID: 2, InstitutionName: "Another University", Rate: 82.5},
	}

	equityRepo.rates["1/regional/retention/2023"] = &equity.RateRecord{Year: 2023, Rate: 70}
	equityRepo.ratesForYear["2023/regional/retention"] = []equity.InstitutionRate{
		{InstitutionID: 2, InstitutionName: "Another University", Rate: 75},
		{InstitutionID: 3, InstitutionName: "Third University", Rate: 85},
		{InstitutionID: 4, InstitutionName: "Total universities", Rate: 10},
	}

	equityRepo.rates["1/all_domestic/retention/2023"] = &equity.RateRecord{Year: 2023, Rate: 90}
	equityRepo.ratesForYear["2023/all_domestic/retention"] = []equity.InstitutionRate{
		{InstitutionID: 1, InstitutionName: "Example University", Rate: 90},
		{InstitutionID: 2, InstitutionName: "Another University", Rate: 88},
	}

	equityRepo.histories["1/low_ses/retention"] = []equity.RateRecord{
		{Year: 2023, Rate: 82.5},
		{Year: 2022, Rate: 80},
	}

	handler := NewGetEquityHandler(instRepo, equityRepo, testEngineConfig())

	result, err := handler.Handle(context.Background(), GetEquityQuery{InstitutionID: 1})
	assert.NoError(t, err)

	assert.Equal(t, map[string]int{"retention": 2023}, result.LatestYear)

	lowSES := result.Groups["low_ses"]
	assert.Equal(t, "Low Socioeconomic Status", lowSES.Label)
	assert.Equal(t, 82.5, *lowSES.Retention.Rate)
	assert.Equal(t, 82.5, *lowSES.Retention.NationalAvg)
	assert.Equal(t, 0.0, *lowSES.Retention.Gap)

	// Trend reads oldest first.
	assert.Equal(t, []EquityTrendPointDTO{
		{Year: 2022, Retention: 80},
		{Year: 2023, Retention: 82.5},
	}, lowSES.Trend)

	// The aggregate row is excluded from the national population, so
	// regional averages {75, 85} and the gap is -10.
	regional := result.Groups["regional"]
	assert.Equal(t, 70.0, *regional.Retention.Rate)
	assert.Equal(t, 80.0, *regional.Retention.NationalAvg)
	assert.Equal(t, -10.0, *regional.Retention.Gap)

	// A group the institution never published stays fully absent.
	remote := result.Groups["remote"]
	assert.Nil(t, remote.Retention.Rate)
	assert.Nil(t, remote.Retention.Gap)

	// Measures without a latest year have no cells at all.
	assert.Nil(t, lowSES.Success.Rate)
	assert.Nil(t, lowSES.Success.NationalAvg)

	baseline := result.AllDomestic["retention"]
	assert.Equal(t, 90.0, *baseline.Rate)
	assert.Equal(t, 1.0, *baseline.Gap)

	// One of two measured retention gaps is non-negative: 0.5 clears the
	// mixed share but not the strong one.
	assert.Equal(t, 1, result.SupportSummary.GroupsAboveAvg)
	assert.Equal(t, 2, result.SupportSummary.GroupsTotal)
	assert.Equal(t, "Mixed", result.SupportSummary.OverallLabel)
}

func TestGetEquityConfiguredGroups(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University"}

	equityRepo := newFakeEquityRepo()
	equityRepo.hasData[1] = true
	equityRepo.latestYears["1/retention"] = 2023
	equityRepo.rates["1/low_ses/retention/2023"] = &equity.RateRecord{Year: 2023, Rate: 82.5}
	equityRepo.rates["1/regional/retention/2023"] = &equity.RateRecord{Year: 2023, Rate: 70}

	// The configuration names the groups to report; the rest of the
	// taxonomy never appears.
	engine := testEngineConfig()
	engine.EquityGroups = []string{"low_ses", "regional"}

	handler := NewGetEquityHandler(instRepo, equityRepo, engine)

	result, err := handler.Handle(context.Background(), GetEquityQuery{InstitutionID: 1})
	assert.NoError(t, err)
	assert.Len(t, result.Groups, 2)
	assert.Contains(t, result.Groups, "low_ses")
	assert.Contains(t, result.Groups, "regional")
	assert.NotContains(t, result.Groups, "remote")
}

func TestGetEquityStrongSummary(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University"}

	equityRepo := newFakeEquityRepo()
	equityRepo.hasData[1] = true
	equityRepo.latestYears["1/retention"] = 2023

	// Every reported group retains at or above the sector average.
	for _, g := range equity.ReportedGroups {
		equityRepo.rates[fmt.Sprintf("1/%s/retention/2023", g)] = &equity.RateRecord{Year: 2023, Rate: 85}
		equityRepo.ratesForYear[fmt.Sprintf("2023/%s/retention", g)] = []equity.InstitutionRate{
			{InstitutionID: 2, InstitutionName: "Another University", Rate: 80},
		}
	}

	handler := NewGetEquityHandler(instRepo, equityRepo, testEngineConfig())

	result, err := handler.Handle(context.Background(), GetEquityQuery{InstitutionID: 1})
	assert.NoError(t, err)
	assert.Equal(t, 6, result.SupportSummary.GroupsAboveAvg)
	assert.Equal(t, 6, result.SupportSummary.GroupsTotal)
	assert.Equal(t, "Strong", result.SupportSummary.OverallLabel)
}

func TestGetEquityNoMeasuredGaps(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.institutions[1] = &institution.Institution{ID: 1, Name: "Example University"}

	// Data exists for the baseline only; no group earns a gap, and the
	// summary says so instead of calling the support weak.
	equityRepo := newFakeEquityRepo()
	equityRepo.hasData[1] = true
	equityRepo.latestYears["1/attainment"] = 2022
	equityRepo.rates["1/all_domestic/attainment/2022"] = &equity.RateRecord{Year: 2022, Rate: 40}

	handler := NewGetEquityHandler(instRepo, equityRepo, testEngineConfig())

	result, err := handler.Handle(context.Background(), GetEquityQuery{InstitutionID: 1})
	assert.NoError(t, err)
	assert.Equal(t, 0, result.SupportSummary.GroupsTotal)
	assert.Equal(t, "No Data", result.SupportSummary.OverallLabel)
}
