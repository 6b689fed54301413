package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "hookrelay"

// Metrics holds the relay's metric instruments. A nil *Metrics records
// nothing.
type Metrics struct {
	Received         metric.Int64Counter
	Outcomes         metric.Int64Counter
	Deliveries       metric.Int64Counter
	DeliveryDuration metric.Float64Histogram
	Mentions         metric.Int64Counter
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Received, err = meter.Int64Counter("hookrelay.webhooks.received",
		metric.WithDescription("Inbound webhook deliveries by event type"))
	if err != nil {
		return nil, err
	}

	m.Outcomes, err = meter.Int64Counter("hookrelay.webhooks.outcome",
		metric.WithDescription("Terminal pipeline stage per inbound delivery"))
	if err != nil {
		return nil, err
	}

	m.Deliveries, err = meter.Int64Counter("hookrelay.deliveries",
		metric.WithDescription("Outbound notification attempts by result"))
	if err != nil {
		return nil, err
	}

	m.DeliveryDuration, err = meter.Float64Histogram("hookrelay.delivery.duration_seconds",
		metric.WithDescription("Outbound notification latency in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	m.Mentions, err = meter.Int64Counter("hookrelay.mentions",
		metric.WithDescription("Mention resolution results"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordReceived counts an inbound delivery.
func (m *Metrics) RecordReceived(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	m.Received.Add(ctx, 1, metric.WithAttributes(attribute.String("event", eventType)))
}

// RecordOutcome counts the terminal stage of a delivery.
func (m *Metrics) RecordOutcome(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.Outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordDelivery counts an outbound attempt and its latency.
func (m *Metrics) RecordDelivery(ctx context.Context, ok bool, status int, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("ok", ok), attribute.Int("status", status))
	m.Deliveries.Add(ctx, 1, attrs)
	m.DeliveryDuration.Record(ctx, seconds, attrs)
}

// RecordMention counts a mention resolution ("pinged", "none" or "error").
func (m *Metrics) RecordMention(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.Mentions.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
