package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Strob0t/hookrelay/internal/domain"
	"github.com/Strob0t/hookrelay/internal/domain/destination"
	"github.com/Strob0t/hookrelay/internal/domain/notification"
	"github.com/Strob0t/hookrelay/internal/port/notifier"
)

// PreviewService sends an operator-supplied document to an endpoint so a
// webhook URL can be checked before a destination is registered.
type PreviewService struct {
	dispatcher    notifier.Dispatcher
	allowedPrefix string
}

// NewPreviewService creates a preview sender restricted to allowedPrefix.
func NewPreviewService(dispatcher notifier.Dispatcher, allowedPrefix string) *PreviewService {
	return &PreviewService{dispatcher: dispatcher, allowedPrefix: allowedPrefix}
}

// Send posts doc to url. Validation failures wrap domain.ErrValidation.
func (s *PreviewService) Send(ctx context.Context, url string, doc notification.Document) (notifier.Result, error) {
	if url == "" {
		return notifier.Result{}, fmt.Errorf("%w: webhook url is required", domain.ErrValidation)
	}
	if !destination.HasPrefix(url, s.allowedPrefix) {
		return notifier.Result{}, fmt.Errorf("%w: webhook url must start with %s", domain.ErrValidation, s.allowedPrefix)
	}
	if doc.Empty() {
		return notifier.Result{}, fmt.Errorf("%w: document needs a title, description or fields", domain.ErrValidation)
	}

	res, err := s.dispatcher.Deliver(ctx, url, notifier.Message{Embeds: []notification.Document{doc}})
	if err != nil {
		return res, fmt.Errorf("send preview: %w", err)
	}
	slog.InfoContext(ctx, "preview sent", "url", destination.RedactURL(url), "status", res.StatusCode)
	return res, nil
}
