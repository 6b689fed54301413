package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Strob0t/hookrelay/internal/logger"
	"github.com/Strob0t/hookrelay/internal/port/messagequeue"
)

// AuditPublisher emits one relay.outcome event per handled delivery.
// Publishing is best-effort: failures are logged and never change the
// outcome. A nil *AuditPublisher publishes nothing.
type AuditPublisher struct {
	queue   messagequeue.Publisher
	subject string
	now     func() time.Time
}

// NewAuditPublisher creates a publisher. An empty subject falls back to
// messagequeue.SubjectRelayOutcome.
func NewAuditPublisher(queue messagequeue.Publisher, subject string) *AuditPublisher {
	if subject == "" {
		subject = messagequeue.SubjectRelayOutcome
	}
	return &AuditPublisher{queue: queue, subject: subject, now: time.Now}
}

// Publish sends out as a RelayOutcomePayload on <subject>.<stage>.
func (a *AuditPublisher) Publish(ctx context.Context, out Outcome) {
	if a == nil || a.queue == nil {
		return
	}

	payload := messagequeue.RelayOutcomePayload{
		RequestID:     logger.RequestID(ctx),
		DestinationID: out.DestinationID,
		Repo:          out.Repo,
		EventType:     out.EventType,
		Action:        out.Action,
		EventKey:      string(out.EventKey),
		Stage:         string(out.Stage),
		Reason:        out.Reason,
		Pinged:        out.Pinged,
		StatusCode:    out.StatusCode,
		OccurredAt:    a.now().UTC(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "marshal relay outcome", "error", err)
		return
	}

	subject := a.subject + "." + string(out.Stage)
	if err := a.queue.Publish(ctx, subject, data); err != nil {
		slog.WarnContext(ctx, "publish relay outcome", "subject", subject, "error", err)
	}
}
