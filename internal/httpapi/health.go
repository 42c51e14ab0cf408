package httpapi

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/arifalam4785/AEO-Audit-Engine/internal/cache"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/circuitbreaker"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/runner"
)

// HealthHandler reports liveness plus dependency status. Degraded
// dependencies report 200 with per-component detail; only a dead database
// flips the overall status, since every audit operation needs it.
type HealthHandler struct {
	db         *circuitbreaker.DatabaseWrapper
	cache      *cache.AnalysisCache
	supervisor *runner.Supervisor
	logger     *zap.Logger
}

// NewHealthHandler creates a new handler. cache may be nil.
func NewHealthHandler(db *circuitbreaker.DatabaseWrapper, c *cache.AnalysisCache, supervisor *runner.Supervisor, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, cache: c, supervisor: supervisor, logger: logger}
}

// RegisterRoutes registers the health route on the provided mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", h.handleHealth)
}

func (h *HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK

	dbStatus := "ok"
	if h.db.IsOpen() {
		dbStatus = "circuit open"
	} else if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn("Health check database ping failed", zap.Error(err))
		dbStatus = "unreachable"
	}
	if dbStatus != "ok" {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	cacheStatus := "disabled"
	if h.cache != nil {
		cacheStatus = "ok"
		if err := h.cache.Ping(ctx); err != nil {
			cacheStatus = "unreachable"
		}
	}

	writeJSON(w, code, map[string]interface{}{
		"status":       status,
		"database":     dbStatus,
		"cache":        cacheStatus,
		"activeAudits": h.supervisor.ActiveCount(),
		"timestamp":    time.Now().UTC(),
	})
}
