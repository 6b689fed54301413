// Package service contains the relay pipeline and the admin services.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	hrotel "github.com/Strob0t/hookrelay/internal/adapter/otel"
	"github.com/Strob0t/hookrelay/internal/domain"
	"github.com/Strob0t/hookrelay/internal/domain/mention"
	"github.com/Strob0t/hookrelay/internal/domain/notification"
	"github.com/Strob0t/hookrelay/internal/domain/webhook"
	"github.com/Strob0t/hookrelay/internal/port/notifier"
)

// Stage is the point at which a delivery's processing ended.
type Stage string

const (
	StageDelivered        Stage = "delivered"
	StageIgnored          Stage = "ignored"
	StageMissingEvent     Stage = "missing_event"
	StageNotFound         Stage = "not_found"
	StageMissingSignature Stage = "missing_signature"
	StageInvalidSignature Stage = "invalid_signature"
	StageInvalidPayload   Stage = "invalid_payload"
	StageDeliveryFailed   Stage = "delivery_failed"
	StageInternalError    Stage = "internal_error"
)

// Response messages, shared with the HTTP layer.
const (
	MsgMissingEvent     = "Missing X-GitHub-Event header"
	MsgNotFound         = "Webhook not found"
	MsgMissingSignature = "Missing X-Hub-Signature-256 header"
	MsgInvalidSignature = "Invalid signature"
	MsgInvalidJSON      = "Invalid JSON payload"
	MsgInvalidPayload   = "Invalid payload"
	MsgDeliveryFailed   = "Failed to send Discord notification"
	MsgInternalError    = "internal server error"
)

// Request is one inbound delivery.
type Request struct {
	DestinationID string
	EventType     string
	Signature     string
	Body          []byte
}

// Outcome describes how a delivery ended. It is a value, not an error: every
// terminal state of the pipeline is an Outcome.
type Outcome struct {
	Stage         Stage
	Reason        string // client-facing message for rejections and ignores
	DestinationID string
	Repo          string
	EventType     string
	Action        string
	EventKey      mention.EventKey
	Pinged        bool
	StatusCode    int // endpoint status on delivery, 0 when none was obtained
}

// RelayService runs the webhook ingestion and notification pipeline.
type RelayService struct {
	verifier   *SignatureVerifier
	mentions   *MentionResolver
	dispatcher notifier.Dispatcher
	audit      *AuditPublisher
	metrics    *hrotel.Metrics
	now        func() time.Time
}

// NewRelayService wires the pipeline. audit and metrics may be nil.
func NewRelayService(
	verifier *SignatureVerifier,
	mentions *MentionResolver,
	dispatcher notifier.Dispatcher,
	audit *AuditPublisher,
	metrics *hrotel.Metrics,
) *RelayService {
	return &RelayService{
		verifier:   verifier,
		mentions:   mentions,
		dispatcher: dispatcher,
		audit:      audit,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Handle runs req through verification, parsing, mapping, mention
// resolution and dispatch, stopping at the first terminal state.
func (s *RelayService) Handle(ctx context.Context, req Request) Outcome {
	ctx, span := hrotel.StartRelaySpan(ctx, req.DestinationID, req.EventType)
	defer span.End()

	out := s.handle(ctx, req)

	s.metrics.RecordOutcome(ctx, string(out.Stage))
	s.audit.Publish(ctx, out)
	return out
}

func (s *RelayService) handle(ctx context.Context, req Request) Outcome {
	out := Outcome{DestinationID: req.DestinationID, EventType: req.EventType}

	if req.EventType == "" {
		return out.end(StageMissingEvent, MsgMissingEvent)
	}
	s.metrics.RecordReceived(ctx, req.EventType)

	verified, err := s.verifier.Verify(ctx, req.DestinationID, req.Body, req.Signature)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		slog.InfoContext(ctx, "webhook for unknown destination", "destination_id", req.DestinationID)
		return out.end(StageNotFound, MsgNotFound)
	case errors.Is(err, ErrMissingSignature):
		slog.WarnContext(ctx, "webhook without signature", "destination_id", req.DestinationID)
		return out.end(StageMissingSignature, MsgMissingSignature)
	case errors.Is(err, ErrInvalidSignature):
		slog.WarnContext(ctx, "webhook signature mismatch", "destination_id", req.DestinationID)
		return out.end(StageInvalidSignature, MsgInvalidSignature)
	default:
		slog.ErrorContext(ctx, "destination lookup failed", "destination_id", req.DestinationID, "error", err)
		return out.end(StageInternalError, MsgInternalError)
	}

	dest := verified.Destination
	out.Repo = dest.RepoIdentifier

	variant, err := verified.Parse(req.EventType)
	if err != nil {
		return s.rejectParse(ctx, out, err)
	}
	out.Action = variant.Action()

	mapped, err := notification.Map(variant, s.now())
	if err != nil {
		return s.rejectParse(ctx, out, err)
	}
	out.EventKey = mapped.Key

	content := s.resolveMention(ctx, dest.ID, mapped)
	out.Pinged = content != ""

	dctx, dspan := hrotel.StartDeliverySpan(ctx, string(mapped.Key))
	started := time.Now()
	res, err := s.dispatcher.Deliver(dctx, dest.NotificationURL, notifier.Message{
		Embeds:  []notification.Document{mapped.Document},
		Content: content,
	})
	dspan.End()
	s.metrics.RecordDelivery(ctx, err == nil && res.OK, res.StatusCode, time.Since(started).Seconds())

	out.StatusCode = res.StatusCode
	if err != nil || !res.OK {
		slog.ErrorContext(ctx, "notification delivery failed",
			"destination", dest,
			"event_key", mapped.Key,
			"status", res.StatusCode,
			"error", err,
		)
		return out.end(StageDeliveryFailed, MsgDeliveryFailed)
	}

	slog.InfoContext(ctx, "notification relayed",
		"destination", dest,
		"event_key", mapped.Key,
		"pinged", out.Pinged,
		"status", res.StatusCode,
	)
	out.Stage = StageDelivered
	return out
}

// rejectParse classifies parse and mapping errors as ignored or invalid.
func (s *RelayService) rejectParse(ctx context.Context, out Outcome, err error) Outcome {
	var unhandled *webhook.UnhandledError
	if errors.As(err, &unhandled) {
		slog.DebugContext(ctx, "webhook ignored", "destination_id", out.DestinationID, "reason", unhandled.Reason)
		return out.end(StageIgnored, unhandled.Reason)
	}

	var invalid *webhook.InvalidError
	msg := MsgInvalidPayload
	if errors.As(err, &invalid) && invalid.Reason == "malformed json" {
		msg = MsgInvalidJSON
	}
	slog.WarnContext(ctx, "webhook payload rejected",
		"destination_id", out.DestinationID,
		"event_type", out.EventType,
		"reason", err.Error(),
	)
	return out.end(StageInvalidPayload, msg)
}

// resolveMention never fails the delivery; lookup errors are logged and the
// notification goes out without a mention.
func (s *RelayService) resolveMention(ctx context.Context, destinationID string, mapped notification.Mapped) string {
	ctx, span := hrotel.StartMentionSpan(ctx, string(mapped.Key))
	defer span.End()

	content, err := s.mentions.Resolve(ctx, destinationID, mapped.Key, mapped.Actor)
	switch {
	case err != nil:
		slog.WarnContext(ctx, "mention resolution failed",
			"destination_id", destinationID,
			"event_key", mapped.Key,
			"error", err,
		)
		s.metrics.RecordMention(ctx, "error")
		return ""
	case content == "":
		s.metrics.RecordMention(ctx, "none")
	default:
		s.metrics.RecordMention(ctx, "pinged")
	}
	return content
}

func (o Outcome) end(stage Stage, reason string) Outcome {
	o.Stage = stage
	o.Reason = reason
	return o
}
