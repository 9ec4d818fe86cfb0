package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck probes one dependency for the readiness endpoint.
type HealthCheck func(ctx context.Context) error

// RouterConfig carries the optional pieces of the router.
type RouterConfig struct {
	// Download serves signed document downloads; nil disables the route.
	Download http.Handler
	// ReadyChecks gate /readyz, keyed by dependency name.
	ReadyChecks map[string]HealthCheck
}

// NewRouter wires all endpoints with middleware.
func NewRouter(h *Handler, logger *slog.Logger, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(cfg.ReadyChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/registrations", func(r chi.Router) {
		r.Post("/", h.handleStart)
		r.Route("/{id}", func(r chi.Router) {
			r.Post("/verify-email", h.handleVerifyEmail)
			r.Put("/details", h.handleSubmitDetails)
			r.Post("/documents", h.handleUploadDocument)
			r.Get("/documents", h.handleListDocuments)
			r.Put("/financial", h.handleSubmitFinancial)
			r.Post("/submit", h.handleSubmitForReview)
			r.Get("/status", h.handleStatus)
			r.Post("/decision", h.handleDecision)
			r.Get("/risk-assessment", h.handleRiskAssessment)
		})
	})

	if cfg.Download != nil {
		r.Method(http.MethodGet, "/documents", cfg.Download)
	}

	return r
}

func readiness(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		failures := map[string]string{}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				failures[name] = err.Error()
			}
		}
		if len(failures) > 0 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":   "degraded",
				"failures": failures,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
