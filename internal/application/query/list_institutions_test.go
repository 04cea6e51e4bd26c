package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/survival-hub/course-survival-hub/internal/domain/institution"
)

func TestListInstitutionsFiltersNoiseNames(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.listed = []institution.Institution{
		{ID: 1, Name: "Alpha University", State: "NSW"},
		{ID: 2, Name: "Total universities"},
		{ID: 3, Name: "4."},
		{ID: 4, Name: "Beta University", State: "VIC"},
	}

	handler := NewListInstitutionsHandler(instRepo, testEngineConfig())

	result, err := handler.Handle(context.Background(), ListInstitutionsQuery{})
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, "Alpha University", result.Institutions[0].Name)
	assert.Equal(t, "Beta University", result.Institutions[1].Name)
}

func TestListFields(t *testing.T) {
	instRepo := newFakeInstRepo()
	instRepo.fieldList = []institution.FieldOfEducation{
		{ID: 1, Name: "Agriculture"},
		{ID: 7, Name: "Health"},
	}

	handler := NewListFieldsHandler(instRepo)

	result, err := handler.Handle(context.Background(), ListFieldsQuery{})
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, int64(7), result.Fields[1].ID)
}
