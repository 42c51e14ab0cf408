package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arifalam4785/AEO-Audit-Engine/internal/analyzer"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/cache"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/db"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/metrics"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/models"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/tracing"
)

// AnalyzeHandler runs the citation analysis over a session's stored
// responses. Analysis is pure recomputation, so results for finished
// sessions are cached per (session, company) pair.
type AnalyzeHandler struct {
	sessions  *db.SessionStore
	responses *db.ResponseStore
	cache     *cache.AnalysisCache
	logger    *zap.Logger
}

// NewAnalyzeHandler creates a new handler. cache may be nil.
func NewAnalyzeHandler(sessions *db.SessionStore, responses *db.ResponseStore, c *cache.AnalysisCache, logger *zap.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{sessions: sessions, responses: responses, cache: c, logger: logger}
}

// RegisterRoutes registers the analyze route on the provided mux.
func (h *AnalyzeHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/analyze", h.handleAnalyze)
}

type analyzeRequest struct {
	SessionID   string `json:"sessionId"`
	CompanyName string `json:"companyName"`
}

type analyzeResponse struct {
	SessionID      string                                       `json:"sessionId"`
	CompanyName    string                                       `json:"companyName"`
	TotalResponses int                                          `json:"totalResponses"`
	Results        []analyzer.AnalyzedRow                       `json:"results"`
	Summary        map[models.Platform]analyzer.PlatformSummary `json:"summary"`
}

func (h *AnalyzeHandler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.CompanyName) == "" {
		writeError(w, http.StatusBadRequest, "companyName is required")
		return
	}
	id, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("Failed to load session", zap.String("session_id", id.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	// Responses for a running session are still growing, so only terminal
	// sessions are cache-eligible.
	cacheable := session.Status.IsTerminal()
	key := cache.Key(id.String(), req.CompanyName)
	if cacheable {
		var cached analyzeResponse
		if h.cache.Get(r.Context(), key, &cached) {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	stored, err := h.responses.ListBySession(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to list responses", zap.String("session_id", id.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list responses")
		return
	}

	if len(stored) == 0 {
		writeError(w, http.StatusNotFound, "no responses found for this session")
		return
	}

	_, span := tracing.StartSpan(r.Context(), "analyze.session")
	rows := analyzer.AnalyzeFullAudit(stored, req.CompanyName)
	summary := analyzer.Summarize(rows)
	span.End()
	result := analyzeResponse{
		SessionID:      id.String(),
		CompanyName:    req.CompanyName,
		TotalResponses: len(stored),
		Results:        rows,
		Summary:        summary,
	}
	metrics.AnalysesRun.Inc()

	if cacheable {
		h.cache.Set(r.Context(), key, result)
	}
	writeJSON(w, http.StatusOK, result)
}
