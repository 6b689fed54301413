package http

import (
	"errors"
	"net/http"

	"github.com/Strob0t/hookrelay/internal/domain"
	"github.com/Strob0t/hookrelay/internal/domain/notification"
	"github.com/Strob0t/hookrelay/internal/service"
)

type previewRequest struct {
	WebhookURL string                 `json:"webhookUrl"`
	Embed      *notification.Document `json:"embed"`
}

type previewResponse struct {
	Sent   bool `json:"sent"`
	Status int  `json:"status"`
}

// SendPreview handles POST /webhooks/test. It posts the given document to
// the given endpoint once and reports the endpoint's status.
func (h *Handlers) SendPreview(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[previewRequest](w, r, h.bodyLimit())
	if !ok {
		return
	}
	if req.WebhookURL == "" {
		writeError(w, http.StatusBadRequest, "Missing or invalid 'webhookUrl' field")
		return
	}
	if req.Embed == nil {
		writeError(w, http.StatusBadRequest, "Missing 'embed' field")
		return
	}

	res, err := h.Preview.Send(r.Context(), req.WebhookURL, *req.Embed)
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeDomainError(w, err, "")
		return
	case err != nil || !res.OK:
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: service.MsgDeliveryFailed, Status: res.StatusCode})
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{Sent: true, Status: res.StatusCode})
}
