package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/hookrelay/internal/service"
)

// Inbound webhook headers.
const (
	HeaderEvent     = "X-GitHub-Event"
	HeaderSignature = "X-Hub-Signature-256"
	HeaderDelivery  = "X-GitHub-Delivery"
)

type sentResponse struct {
	Sent   bool   `json:"sent"`
	Event  string `json:"event"`
	Action string `json:"action"`
	Repo   string `json:"repo"`
	Pinged bool   `json:"pinged"`
}

type ignoredResponse struct {
	Ignored bool   `json:"ignored"`
	Reason  string `json:"reason"`
}

// HandleGitHubWebhook handles POST /webhook/github/{destinationId}.
func (h *Handlers) HandleGitHubWebhook(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r, h.bodyLimit())
	if !ok {
		return
	}
	slog.DebugContext(r.Context(), "webhook received",
		"event", r.Header.Get(HeaderEvent),
		"delivery", r.Header.Get(HeaderDelivery),
		"bytes", len(body),
	)

	out := h.Relay.Handle(r.Context(), service.Request{
		DestinationID: chi.URLParam(r, "destinationId"),
		EventType:     r.Header.Get(HeaderEvent),
		Signature:     r.Header.Get(HeaderSignature),
		Body:          body,
	})
	writeOutcome(w, out)
}

// outcomeStatus maps every pipeline stage to its HTTP status.
var outcomeStatus = map[service.Stage]int{
	service.StageDelivered:        http.StatusOK,
	service.StageIgnored:          http.StatusOK,
	service.StageMissingEvent:     http.StatusBadRequest,
	service.StageInvalidPayload:   http.StatusBadRequest,
	service.StageNotFound:         http.StatusNotFound,
	service.StageMissingSignature: http.StatusUnauthorized,
	service.StageInvalidSignature: http.StatusUnauthorized,
	service.StageDeliveryFailed:   http.StatusBadGateway,
	service.StageInternalError:    http.StatusInternalServerError,
}

func writeOutcome(w http.ResponseWriter, out service.Outcome) {
	status, known := outcomeStatus[out.Stage]
	if !known {
		writeError(w, http.StatusInternalServerError, service.MsgInternalError)
		return
	}

	switch out.Stage {
	case service.StageDelivered:
		writeJSON(w, status, sentResponse{
			Sent:   true,
			Event:  out.EventType,
			Action: out.Action,
			Repo:   out.Repo,
			Pinged: out.Pinged,
		})
	case service.StageIgnored:
		writeJSON(w, status, ignoredResponse{Ignored: true, Reason: out.Reason})
	case service.StageDeliveryFailed:
		writeJSON(w, status, errorResponse{Error: out.Reason, Status: out.StatusCode})
	default:
		writeError(w, status, out.Reason)
	}
}
