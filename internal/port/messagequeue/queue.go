// Package messagequeue defines the message queue port (interface) used for
// relay audit events.
package messagequeue

import "context"

// Handler processes a message received from the queue.
// The context carries request-scoped values such as the request ID.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Publisher is the publish-only subset of Queue.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// SubjectRelayOutcome is the default subject for relay outcome events. The
// outcome stage is appended as a final token, e.g. relay.outcome.delivered.
const SubjectRelayOutcome = "relay.outcome"

// HeaderRequestID carries the originating HTTP request ID on messages.
const HeaderRequestID = "X-Request-ID"
