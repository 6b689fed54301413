package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/hookrelay/internal/middleware"
)

// RouteOptions carries the guards applied to individual routes.
type RouteOptions struct {
	AdminToken func() string           // guards POST /webhooks/test; nil or "" disables it
	Limiter    *middleware.RateLimiter // applied to the webhook route when set
}

// MountRoutes registers all routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers, opts RouteOptions) {
	r.Get("/health", h.Health)

	if opts.Limiter != nil {
		r.With(opts.Limiter.Handler).Post("/webhook/github/{destinationId}", h.HandleGitHubWebhook)
	} else {
		r.Post("/webhook/github/{destinationId}", h.HandleGitHubWebhook)
	}

	r.With(middleware.AdminToken(opts.AdminToken)).Post("/webhooks/test", h.SendPreview)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}
