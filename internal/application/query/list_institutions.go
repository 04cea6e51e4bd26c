package query

import (
	"context"
	"time"

	"github.com/survival-hub/course-survival-hub/config"
	"github.com/survival-hub/course-survival-hub/internal/domain/institution"
	"github.com/survival-hub/course-survival-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST INSTITUTIONS QUERY
// The picker list: institutions that can actually produce a report,
// i.e. carry at least one domestic attrition record and pass the
// reportable-name policy.
// ══════════════════════════════════════════════════════════════════════════════

// ListInstitutionsQuery holds the (empty) parameters for the
// institution list.
type ListInstitutionsQuery struct{}

// ListInstitutionsResult is the reportable institution list.
type ListInstitutionsResult struct {
	Institutions []InstitutionDTO `json:"institutions"`
	Total        int              `json:"total"`
	GeneratedAt  time.Time        `json:"generated_at"`
}

// ListInstitutionsHandler answers institution list queries.
type ListInstitutionsHandler struct {
	instRepo institution.Repository
	policy   institution.NamePolicy
}

// NewListInstitutionsHandler creates a new handler.
func NewListInstitutionsHandler(instRepo institution.Repository, engine config.EngineConfig) *ListInstitutionsHandler {
	return &ListInstitutionsHandler{
		instRepo: instRepo,
		policy:   namePolicyFrom(engine),
	}
}

// Handle lists the reportable institutions.
func (h *ListInstitutionsHandler) Handle(ctx context.Context, _ ListInstitutionsQuery) (*ListInstitutionsResult, error) {
	rows, err := h.instRepo.ListInstitutionsWithAttrition(ctx)
	if err != nil {
		return nil, shared.WrapError("institution", "ListInstitutions", shared.ErrStoreUnavailable, "list query failed", err)
	}

	out := make([]InstitutionDTO, 0, len(rows))
	for _, inst := range rows {
		if !h.policy.IsReportable(inst.Name) {
			continue
		}
		out = append(out, InstitutionDTO{ID: inst.ID, Name: inst.Name, State: inst.State})
	}

	return &ListInstitutionsResult{
		Institutions: out,
		Total:        len(out),
		GeneratedAt:  time.Now().UTC(),
	}, nil
}
