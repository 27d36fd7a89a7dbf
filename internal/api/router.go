package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Default mount points when the config leaves them empty.
const (
	defaultWSPath      = "/ws"
	defaultMetricsPath = "/metrics"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(s.corsMiddleware())
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, msgRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	})

	// Sensor registry
	r.Route("/sensors", func(r chi.Router) {
		r.Get("/", s.handleListSensors)
		r.Post("/", s.handleCreateSensor)
		r.Get("/online", s.handleListOnlineSensors)

		r.Route("/{id:[0-9]+}", func(r chi.Router) {
			r.Get("/", s.handleGetSensor)
			r.Delete("/", s.handleDeleteSensor)
		})
	})

	// Operations
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/audit", s.handleListAudit)

	if s.metricCfg.Enabled {
		r.Handle(pathOr(s.metricCfg.Path, defaultMetricsPath), promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	}

	r.Get(pathOr(s.wsCfg.Path, defaultWSPath), s.handleWebSocket)

	return r
}

func pathOr(path, fallback string) string {
	if path == "" {
		return fallback
	}
	return path
}
