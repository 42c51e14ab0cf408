package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arifalam4785/AEO-Audit-Engine/internal/cache"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/db"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/models"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/runner"
)

// SessionHandler handles audit session lifecycle: create, inspect, cancel.
type SessionHandler struct {
	sessions     *db.SessionStore
	supervisor   *runner.Supervisor
	cache        *cache.AnalysisCache
	maxQuestions func() int
	logger       *zap.Logger
}

// NewSessionHandler creates a new handler. maxQuestions is read per request
// so config reloads take effect without a restart. cache may be nil.
func NewSessionHandler(sessions *db.SessionStore, supervisor *runner.Supervisor, c *cache.AnalysisCache, maxQuestions func() int, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, supervisor: supervisor, cache: c, maxQuestions: maxQuestions, logger: logger}
}

// RegisterRoutes registers session routes on the provided mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", h.handleCreate)
	mux.HandleFunc("GET /api/sessions/{id}", h.handleGet)
	mux.HandleFunc("POST /api/sessions/{id}/cancel", h.handleCancel)
}

// createSessionRequest is the expected payload for starting an audit.
type createSessionRequest struct {
	Questions []string          `json:"questions"`
	APIKeys   map[string]string `json:"apiKeys"`
}

// platformProgress is one platform's slice of the progress payload.
type platformProgress struct {
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	State     string `json:"state"` // pending, active, done
}

// sessionView is the JSON shape for a session.
type sessionView struct {
	SessionID      string                        `json:"sessionId"`
	Status         models.Status                 `json:"status"`
	QuestionCount  int                           `json:"questionCount"`
	ActivePlatform *models.Platform              `json:"activePlatform,omitempty"`
	Progress       map[string]platformProgress   `json:"progress"`
	AuditErrors    []models.AuditError           `json:"auditErrors"`
	CreatedAt      time.Time                     `json:"createdAt"`
	UpdatedAt      time.Time                     `json:"updatedAt"`
}

func viewOf(s *models.Session) sessionView {
	done := make(map[string]bool, len(s.DonePlatforms))
	for _, p := range s.DonePlatforms {
		done[p] = true
	}
	progress := make(map[string]platformProgress, 3)
	for _, p := range models.AllPlatforms() {
		state := "pending"
		switch {
		case done[string(p)]:
			state = "done"
		case s.ActivePlatform != nil && *s.ActivePlatform == p:
			state = "active"
		}
		progress[string(p)] = platformProgress{
			Completed: s.ProgressFor(p),
			Total:     s.QuestionCount,
			State:     state,
		}
	}
	auditErrors := []models.AuditError(s.AuditErrors)
	if auditErrors == nil {
		auditErrors = []models.AuditError{}
	}
	return sessionView{
		SessionID:      s.ID.String(),
		Status:         s.Status,
		QuestionCount:  s.QuestionCount,
		ActivePlatform: s.ActivePlatform,
		Progress:       progress,
		AuditErrors:    auditErrors,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	// Blank entries are dropped, not rejected; only an empty remainder fails.
	questions := make([]string, 0, len(req.Questions))
	for _, q := range req.Questions {
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
	}
	if len(questions) == 0 {
		writeError(w, http.StatusBadRequest, "questions are required")
		return
	}
	if max := h.maxQuestions(); len(questions) > max {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("maximum %d questions per audit", max))
		return
	}

	apiKeys := make(map[models.Platform]string, len(req.APIKeys))
	anyKey := false
	for name, key := range req.APIKeys {
		p, err := models.ParsePlatform(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown platform %q", name))
			return
		}
		apiKeys[p] = key
		if strings.TrimSpace(key) != "" {
			anyKey = true
		}
	}
	if !anyKey {
		writeError(w, http.StatusBadRequest, "at least one API key is required")
		return
	}

	session, err := h.sessions.Create(r.Context(), questions)
	if err != nil {
		h.logger.Error("Failed to create session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	// Keys are handed to the run goroutine and never persisted.
	h.supervisor.Start(session.ID, apiKeys)

	h.logger.Info("Audit session started",
		zap.String("session_id", session.ID.String()),
		zap.Int("questions", len(questions)),
	)
	writeJSON(w, http.StatusCreated, viewOf(session))
}

func (h *SessionHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
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
	writeJSON(w, http.StatusOK, viewOf(session))
}

func (h *SessionHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := h.sessions.Cancel(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		h.logger.Error("Failed to cancel session", zap.String("session_id", id.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to cancel session")
		return
	}

	// Nudge the run goroutine too; the status row above is what actually
	// stops it. An in-flight call may still persist one more response, so
	// any analysis cached for the session is dropped once the run exits.
	if h.supervisor.Cancel(id) {
		go func() {
			h.supervisor.Wait(id)
			h.cache.InvalidateSession(context.Background(), id.String())
		}()
	}

	h.logger.Info("Session cancelled", zap.String("session_id", id.String()))
	writeJSON(w, http.StatusOK, viewOf(session))
}
