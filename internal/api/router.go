package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/dropdash/internal/panel"
)

// healthCheckTimeout bounds each dependency check in /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Handle("/panel/*", http.StripPrefix("/panel", panel.Handler(s.cfg.PanelDir)))
	r.Handle("/panel", http.RedirectHandler("/panel/", http.StatusMovedPermanently))
	r.Handle("/", http.RedirectHandler("/panel/", http.StatusFound))

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/system", s.handleSystem)

		r.Get("/state", s.handleGetState)
		r.Get("/layout", s.handleGetLayout)

		r.Route("/selection", func(r chi.Router) {
			r.Post("/click", s.handleClick)
			r.Post("/key", s.handleKey)
			r.Put("/brush", s.handleSetBrush)
			r.Get("/hover", s.handleHover)
		})

		r.Get("/frame", s.handleGetFrame)
		r.Get("/frame/{id}", s.handleGetFrame)

		r.Get("/arrangement", s.handleGetArrangement)
		r.Put("/arrangement", s.handlePutArrangement)

		r.Route("/parameters", func(r chi.Router) {
			r.Get("/", s.handleListParameters)
			r.Post("/save", s.handleSaveParameters)
			r.Put("/{id}", s.handleSetParameter)
		})
		r.Post("/calibrate", s.handleCalibrate)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status. Any failing dependency
// turns the status to "degraded" without failing the request.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	components := make(map[string]string, len(s.checks))
	for name, c := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := c.HealthCheck(ctx)
		cancel()
		if err != nil {
			status = "degraded"
			components[name] = err.Error()
			continue
		}
		components[name] = "ok"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     status,
		"version":    s.version,
		"stream":     s.dash.Snapshot().Stream,
		"components": components,
	})
}
