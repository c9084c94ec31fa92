package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-snooze/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.rateLimitMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// WebSocket (auth via token query parameter, validated in handler)
		r.Get(s.wsPath(), s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Route("/snooze", func(r chi.Router) {
				r.With(requirePermission(auth.PermSnoozeRead)).Get("/", s.handleGetSnooze)

				r.Group(func(r chi.Router) {
					r.Use(requirePermission(auth.PermSnoozeOperate))
					r.Post("/pause", s.handlePause)
					r.Post("/cancel", s.handleCancel)
					r.Post("/cancel-all", s.handleCancelAll)
					r.Post("/scheduled/cancel", s.handleCancelScheduled)
					r.Post("/scheduled/cancel-all", s.handleCancelAllScheduled)
					r.Post("/adjust", s.handleAdjust)
				})
			})

			r.Route("/automations", func(r chi.Router) {
				r.With(requirePermission(auth.PermAutomationRead)).Get("/", s.handleListAutomations)

				r.Group(func(r chi.Router) {
					r.Use(requirePermission(auth.PermAutomationManage))
					r.Post("/", s.handleRegisterAutomation)
					r.Delete("/{id}", s.handleDeleteAutomation)
				})
			})
		})
	})

	return r
}

// defaultWSPath is used when websocket.path is not configured.
const defaultWSPath = "/ws"

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return defaultWSPath
	}
	return s.wsCfg.Path
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"paused":  s.snooze.State().PausedCount(),
	})
}
