package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/arifalam4785/AEO-Audit-Engine/internal/metrics"
)

// statusRecorder captures the status code a handler writes.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withObservability wraps a mux with request logging and metrics. The route
// pattern, not the raw URL, labels the metric so cardinality stays bounded.
func withObservability(next *http.ServeMux, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		pattern := "unmatched"
		if _, p := next.Handler(r); p != "" {
			pattern = p
		}
		metrics.HTTPRequests.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()

		logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
