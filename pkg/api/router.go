package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/dittoftp/internal/logger"
	"github.com/marmos91/dittoftp/pkg/api/handlers"
	"github.com/marmos91/dittoftp/pkg/metrics"
)

const requestTimeout = 30 * time.Second

// NewRouter builds the HTTP handler:
//
//	GET /health         liveness
//	GET /health/ready   readiness (FTP listener up, user store reachable)
//	GET /health/status  server and store details
//	GET /metrics        Prometheus exposition, 404 when metrics are off
func NewRouter(status handlers.StatusProvider, store handlers.Pinger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, accessLog, middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Mount("/health", healthRoutes(handlers.NewHealthHandler(status, store)))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

func healthRoutes(h *handlers.HealthHandler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Liveness)
	r.Get("/ready", h.Readiness)
	r.Get("/status", h.Status)
	return r
}

// accessLog logs one line per request. Probes and scrapes hit these paths
// every few seconds, so they go to debug unless they fail.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		args := []any{
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		}
		if ww.Status() < http.StatusBadRequest && isProbe(r.URL.Path) {
			logger.Debug("API request", args...)
			return
		}
		logger.Info("API request", args...)
	})
}

func isProbe(path string) bool {
	return path == "/metrics" || strings.HasPrefix(path, "/health")
}
