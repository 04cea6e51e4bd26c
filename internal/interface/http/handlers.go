package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/survival-hub/course-survival-hub/internal/application/query"
	"github.com/survival-hub/course-survival-hub/internal/domain/shared"
	"github.com/survival-hub/course-survival-hub/internal/infrastructure/persistence/redis"
	"github.com/survival-hub/course-survival-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Course Survival Hub API",
		"version":     "v1",
		"description": "Institutional report cards built from published higher education statistics",
		"endpoints": map[string]string{
			"health":       "/health",
			"institutions": "/api/v1/institutions",
			"fields":       "/api/v1/fields",
			"report":       "/api/v1/institutions/{id}/report",
			"equity":       "/api/v1/institutions/{id}/equity",
			"courses":      "/api/v1/institutions/{id}/courses",
			"ranking":      "/api/v1/fields/{id}/ranking",
			"heatmap":      "/api/v1/fields/{id}/heatmap",
			"sector":       "/api/v1/sector/admission-profile",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	// Default health response
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// LIST HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListInstitutions handles GET /api/v1/institutions
func (s *Server) handleListInstitutions(w http.ResponseWriter, r *http.Request) {
	if s.deps.ListInstitutionsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Institution list handler not configured")
		return
	}

	key := redis.ListKey("institutions")
	if s.serveCached(w, r, key) {
		return
	}

	result, err := s.deps.ListInstitutionsHandler.Handle(r.Context(), query.ListInstitutionsQuery{})
	if err != nil {
		s.writeQueryError(w, r, "list institutions", err)
		return
	}

	s.writeAndCache(w, r, key, result)
}

// handleListFields handles GET /api/v1/fields
func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	if s.deps.ListFieldsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Field list handler not configured")
		return
	}

	key := redis.ListKey("fields")
	if s.serveCached(w, r, key) {
		return
	}

	result, err := s.deps.ListFieldsHandler.Handle(r.Context(), query.ListFieldsQuery{})
	if err != nil {
		s.writeQueryError(w, r, "list fields", err)
		return
	}

	s.writeAndCache(w, r, key, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// REPORT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetReport handles GET /api/v1/institutions/{id}/report
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetReportHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Report handler not configured")
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	fieldID := int64(getQueryParamInt(r, "field_id", 0))

	key := redis.ReportKey(id, fieldID)
	if s.serveCached(w, r, key) {
		return
	}

	result, err := s.deps.GetReportHandler.Handle(r.Context(), query.GetReportQuery{
		InstitutionID: id,
		FieldID:       fieldID,
	})
	if err != nil {
		s.writeQueryError(w, r, "get report", err)
		return
	}

	s.writeAndCache(w, r, key, result)
}

// handleGetEquity handles GET /api/v1/institutions/{id}/equity
func (s *Server) handleGetEquity(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetEquityHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Equity handler not configured")
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	key := redis.EquityKey(id)
	if s.serveCached(w, r, key) {
		return
	}

	result, err := s.deps.GetEquityHandler.Handle(r.Context(), query.GetEquityQuery{InstitutionID: id})
	if err != nil {
		s.writeQueryError(w, r, "get equity", err)
		return
	}

	s.writeAndCache(w, r, key, result)
}

// handleGetCourses handles GET /api/v1/institutions/{id}/courses
func (s *Server) handleGetCourses(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetCoursesHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Course catalog handler not configured")
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	key := redis.CoursesKey(id)
	if s.serveCached(w, r, key) {
		return
	}

	result, err := s.deps.GetCoursesHandler.Handle(r.Context(), query.GetCoursesQuery{InstitutionID: id})
	if err != nil {
		s.writeQueryError(w, r, "get courses", err)
		return
	}

	s.writeAndCache(w, r, key, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// FIELD ANALYTICS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetFieldRanking handles GET /api/v1/fields/{id}/ranking
func (s *Server) handleGetFieldRanking(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetFieldRankingHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Ranking handler not configured")
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	year := getQueryParamInt(r, "year", 0)

	key := redis.RankingKey(id, year)
	if s.serveCached(w, r, key) {
		return
	}

	result, err := s.deps.GetFieldRankingHandler.Handle(r.Context(), query.GetFieldRankingQuery{
		FieldID: id,
		Year:    year,
	})
	if err != nil {
		s.writeQueryError(w, r, "get field ranking", err)
		return
	}

	s.writeAndCache(w, r, key, result)
}

// handleGetHeatmap handles GET /api/v1/fields/{id}/heatmap
func (s *Server) handleGetHeatmap(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetHeatmapHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Heatmap handler not configured")
		return
	}

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	key := redis.HeatmapKey(id)
	if s.serveCached(w, r, key) {
		return
	}

	result, err := s.deps.GetHeatmapHandler.Handle(r.Context(), query.GetHeatmapQuery{FieldID: id})
	if err != nil {
		s.writeQueryError(w, r, "get heatmap", err)
		return
	}

	s.writeAndCache(w, r, key, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// SECTOR HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetSectorProfile handles GET /api/v1/sector/admission-profile
func (s *Server) handleGetSectorProfile(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetSectorProfileHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Sector profile handler not configured")
		return
	}

	key := redis.SectorProfileKey()
	if s.serveCached(w, r, key) {
		return
	}

	result, err := s.deps.GetSectorProfileHandler.Handle(r.Context(), query.GetSectorProfileQuery{})
	if err != nil {
		s.writeQueryError(w, r, "get sector profile", err)
		return
	}

	s.writeAndCache(w, r, key, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED HANDLER HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// pathID parses the {id} path segment. Writes a 400 and returns false
// when it is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// writeQueryError maps domain errors onto HTTP responses. A missing
// institution or field is not_found; an institution the collection
// never published data for is no_data. The two are deliberately kept
// apart so clients can tell a bad id from an absent section.
func (s *Server) writeQueryError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsNoData(err):
		writeJSONError(w, http.StatusNotFound, "no_data", err.Error())
	default:
		s.logger.Error("query failed",
			logger.Err(err),
			logger.Operation(op),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// serveCached replays a memoized response. Returns false on a miss so
// the caller recomputes.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, key string) bool {
	payload, ok := s.deps.ResponseCache.Get(r.Context(), key)
	if !ok {
		return false
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Cache", "HIT")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
	return true
}

// writeAndCache writes a successful response and memoizes its body.
// The envelope is cached whole; the request id travels in the
// X-Request-ID header, not the body, so replays stay valid.
func (s *Server) writeAndCache(w http.ResponseWriter, r *http.Request, key string, data interface{}) {
	response := JSONResponse{
		Success: true,
		Data:    data,
		Meta: &ResponseMeta{
			Timestamp: time.Now().UTC(),
			Version:   "v1",
		},
	}

	body, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("failed to encode response", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to encode response")
		return
	}

	s.deps.ResponseCache.Set(r.Context(), key, body)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Cache", "MISS")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
