package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Strob0t/hookrelay/internal/service"
)

const defaultMaxBodyBytes = 1 << 20 // 1 MB

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the services the HTTP routes call into.
type Handlers struct {
	Relay        *service.RelayService
	Preview      *service.PreviewService
	Store        Pinger
	MaxBodyBytes int64

	Now func() time.Time // defaults to time.Now
}

func (h *Handlers) bodyLimit() int64 {
	if h.MaxBodyBytes > 0 {
		return h.MaxBodyBytes
	}
	return defaultMaxBodyBytes
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database,omitempty"`
}

// Health handles GET /health. A failed store ping answers 503 so load
// balancers stop routing webhooks to an instance that cannot look up
// destinations.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Timestamp: h.now().UTC()}
	if h.Store == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		slog.WarnContext(r.Context(), "health check: database unreachable", "error", err)
		resp.Status = "degraded"
		resp.Database = "unreachable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Database = "ok"
	writeJSON(w, http.StatusOK, resp)
}
