package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "hookrelay"

// StartRelaySpan starts the span covering one inbound delivery.
func StartRelaySpan(ctx context.Context, destinationID, eventType string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "relay",
		trace.WithAttributes(
			attribute.String("destination.id", destinationID),
			attribute.String("github.event", eventType),
		),
	)
}

// StartMentionSpan starts a span for mention resolution.
func StartMentionSpan(ctx context.Context, eventKey string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "mention.resolve",
		trace.WithAttributes(attribute.String("event.key", eventKey)),
	)
}

// StartDeliverySpan starts a span for the outbound notification.
func StartDeliverySpan(ctx context.Context, eventKey string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "delivery",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("event.key", eventKey)),
	)
}
