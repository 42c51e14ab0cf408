package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/arifalam4785/AEO-Audit-Engine/internal/cache"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/circuitbreaker"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/db"
	"github.com/arifalam4785/AEO-Audit-Engine/internal/runner"
)

// Deps collects everything the API needs.
type Deps struct {
	Sessions     *db.SessionStore
	Responses    *db.ResponseStore
	Cache        *cache.AnalysisCache // optional
	Supervisor   *runner.Supervisor
	DB           *circuitbreaker.DatabaseWrapper
	MaxQuestions func() int
	Logger       *zap.Logger
}

// NewRouter wires every handler onto one mux with observability middleware.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	NewSessionHandler(d.Sessions, d.Supervisor, d.Cache, d.MaxQuestions, d.Logger).RegisterRoutes(mux)
	NewResponseHandler(d.Sessions, d.Responses, d.Logger).RegisterRoutes(mux)
	NewAnalyzeHandler(d.Sessions, d.Responses, d.Cache, d.Logger).RegisterRoutes(mux)
	NewHealthHandler(d.DB, d.Cache, d.Supervisor, d.Logger).RegisterRoutes(mux)

	return withObservability(mux, d.Logger)
}

// NewServer builds the API server with sane timeouts. Write timeout stays
// generous because list endpoints can return full audit payloads.
func NewServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
