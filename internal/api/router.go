package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Axis read model and commands
		r.Route("/axes", func(r chi.Router) {
			r.Get("/", s.handleListAxes)

			r.Route("/{axis}", func(r chi.Router) {
				r.Get("/", s.handleGetAxis)
				r.Put("/voltage", s.handleSetVoltage)
				r.Put("/jog-step", s.handleSetJogStep)
				r.Post("/jog/increase", s.handleJogIncrease)
				r.Post("/jog/decrease", s.handleJogDecrease)
				r.Post("/zero", s.handleZero)
				r.Post("/enable", s.handleEnable)
				r.Post("/disable", s.handleDisable)
				r.Post("/connect", s.handleConnect)
				r.Post("/disconnect", s.handleDisconnect)
				r.Post("/direction/toggle", s.handleToggleDirection)
			})
		})

		// Axis-to-serial assignment
		r.Route("/assignment", func(r chi.Router) {
			r.Get("/", s.handleGetAssignment)
			r.Put("/", s.handleSetAssignment)
		})

		// Command audit trail
		r.Get("/audit", s.handleListAudit)

		// WebSocket state stream
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
