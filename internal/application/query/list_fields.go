package query

import (
	"context"
	"time"

	"github.com/survival-hub/course-survival-hub/internal/domain/institution"
	"github.com/survival-hub/course-survival-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST FIELDS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ListFieldsQuery holds the (empty) parameters for the field list.
type ListFieldsQuery struct{}

// ListFieldsResult is the broad field-of-education list.
type ListFieldsResult struct {
	Fields      []FieldDTO `json:"fields"`
	Total       int        `json:"total"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// ListFieldsHandler answers field list queries.
type ListFieldsHandler struct {
	instRepo institution.Repository
}

// NewListFieldsHandler creates a new handler.
func NewListFieldsHandler(instRepo institution.Repository) *ListFieldsHandler {
	return &ListFieldsHandler{instRepo: instRepo}
}

// Handle lists the broad fields of education.
func (h *ListFieldsHandler) Handle(ctx context.Context, _ ListFieldsQuery) (*ListFieldsResult, error) {
	rows, err := h.instRepo.ListFields(ctx)
	if err != nil {
		return nil, shared.WrapError("institution", "ListFields", shared.ErrStoreUnavailable, "list query failed", err)
	}

	out := make([]FieldDTO, 0, len(rows))
	for _, f := range rows {
		out = append(out, FieldDTO{ID: f.ID, Name: f.Name})
	}

	return &ListFieldsResult{
		Fields:      out,
		Total:       len(out),
		GeneratedAt: time.Now().UTC(),
	}, nil
}
