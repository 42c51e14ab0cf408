package httpapi

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arifalam4785/AEO-Audit-Engine/internal/db"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/models"
)

// ResponseHandler serves the raw stored answers for a session.
type ResponseHandler struct {
	sessions  *db.SessionStore
	responses *db.ResponseStore
	logger    *zap.Logger
}

// NewResponseHandler creates a new handler.
func NewResponseHandler(sessions *db.SessionStore, responses *db.ResponseStore, logger *zap.Logger) *ResponseHandler {
	return &ResponseHandler{sessions: sessions, responses: responses, logger: logger}
}

// RegisterRoutes registers response routes on the provided mux.
func (h *ResponseHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/responses/{id}", h.handleList)
	mux.HandleFunc("GET /api/responses/{id}/{platform}", h.handleListPlatform)
}

func (h *ResponseHandler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return uuid.Nil, false
	}
	if _, err := h.sessions.Get(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
		} else {
			h.logger.Error("Failed to load session", zap.String("session_id", id.String()), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to load session")
		}
		return uuid.Nil, false
	}
	return id, true
}

func (h *ResponseHandler) handleList(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	list, err := h.responses.ListBySession(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to list responses", zap.String("session_id", id.String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list responses")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId": id.String(),
		"count":     len(list),
		"responses": list,
	})
}

func (h *ResponseHandler) handleListPlatform(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	platform, err := models.ParsePlatform(r.PathValue("platform"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := h.responses.ListBySessionPlatform(r.Context(), id, platform)
	if err != nil {
		h.logger.Error("Failed to list responses",
			zap.String("session_id", id.String()),
			zap.String("platform", string(platform)),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to list responses")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId": id.String(),
		"platform":  platform,
		"count":     len(list),
		"responses": list,
	})
}
