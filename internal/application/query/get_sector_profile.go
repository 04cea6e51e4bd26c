package query

import (
	"context"
	"time"

	"github.com/survival-hub/course-survival-hub/internal/domain/catalog"
	"github.com/survival-hub/course-survival-hub/internal/domain/shared"
	"github.com/survival-hub/course-survival-hub/pkg/stats"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET SECTOR PROFILE QUERY
// Aggregates published per-course admission profiles into one
// sector-wide picture: how undergraduate students were admitted,
// weighted by cohort size.
// ══════════════════════════════════════════════════════════════════════════════

// GetSectorProfileQuery holds the (empty) parameters for the sector
// admission profile.
type GetSectorProfileQuery struct{}

// GetSectorProfileResult is the enrolment-weighted sector admission
// profile.
type GetSectorProfileResult struct {
	ProfileYear   int   `json:"profile_year,omitempty"`
	TotalStudents int64 `json:"total_students"`

	PctATARBased     float64 `json:"pct_atar_based"`
	PctHigherEd      float64 `json:"pct_higher_ed"`
	PctVET           float64 `json:"pct_vet"`
	PctWorkLife      float64 `json:"pct_work_life"`
	PctInternational float64 `json:"pct_international"`

	GeneratedAt time.Time `json:"generated_at"`
}

// GetSectorProfileHandler answers sector admission profile queries.
type GetSectorProfileHandler struct {
	catalogRepo catalog.Repository
}

// NewGetSectorProfileHandler creates a new handler.
func NewGetSectorProfileHandler(catalogRepo catalog.Repository) *GetSectorProfileHandler {
	return &GetSectorProfileHandler{catalogRepo: catalogRepo}
}

// profileKey is the dedup signature of one published cohort profile.
// Admission centres duplicate the same profile across campus and
// variant listings; identical raw values mean the same cohort.
type profileKey struct {
	totalStudents    string
	pctATARBased     string
	pctHigherEd      string
	pctVET           string
	pctWorkLife      string
	pctInternational string
}

// Handle aggregates the sector admission profile. Returns a no-data
// error when no usable profile row exists.
func (h *GetSectorProfileHandler) Handle(ctx context.Context, _ GetSectorProfileQuery) (*GetSectorProfileResult, error) {
	rows, err := h.catalogRepo.AdmissionProfiles(ctx)
	if err != nil {
		return nil, shared.WrapError("catalog", "GetSectorProfile", shared.ErrStoreUnavailable, "profile query failed", err)
	}

	seen := make(map[profileKey]struct{})

	var totalStudents int64
	var wATAR, wHigherEd, wVET, wWorkLife, wInternational float64
	profileYear := 0

	for _, r := range rows {
		n, ok := catalog.ParseCount(r.TotalStudents)
		if !ok || n <= 0 {
			continue
		}

		// A suppressed ATAR share makes the whole profile unusable;
		// the other shares degrade to zero weight individually.
		pctATAR, ok := catalog.ParsePercent(r.PctATARBased)
		if !ok {
			continue
		}

		key := profileKey{
			totalStudents:    deref(r.TotalStudents),
			pctATARBased:     deref(r.PctATARBased),
			pctHigherEd:      deref(r.PctHigherEd),
			pctVET:           deref(r.PctVET),
			pctWorkLife:      deref(r.PctWorkLife),
			pctInternational: deref(r.PctInternational),
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		totalStudents += n
		weight := float64(n)
		wATAR += pctATAR * weight
		wHigherEd += percentOrZero(r.PctHigherEd) * weight
		wVET += percentOrZero(r.PctVET) * weight
		wWorkLife += percentOrZero(r.PctWorkLife) * weight
		wInternational += percentOrZero(r.PctInternational) * weight

		if profileYear == 0 && r.ProfileYear != 0 {
			profileYear = r.ProfileYear
		}
	}

	if totalStudents == 0 {
		return nil, shared.WrapError("catalog", "GetSectorProfile", shared.ErrNoData, "no admission profile data", nil)
	}

	denom := float64(totalStudents)
	return &GetSectorProfileResult{
		ProfileYear:      profileYear,
		TotalStudents:    totalStudents,
		PctATARBased:     stats.Round1(wATAR / denom),
		PctHigherEd:      stats.Round1(wHigherEd / denom),
		PctVET:           stats.Round1(wVET / denom),
		PctWorkLife:      stats.Round1(wWorkLife / denom),
		PctInternational: stats.Round1(wInternational / denom),
		GeneratedAt:      time.Now().UTC(),
	}, nil
}

func percentOrZero(raw *string) float64 {
	v, ok := catalog.ParsePercent(raw)
	if !ok {
		return 0
	}
	return v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
