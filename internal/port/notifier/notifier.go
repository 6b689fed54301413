// Package notifier defines the outbound notification port (interface).
package notifier

import (
	"context"
	"errors"

	"github.com/Strob0t/hookrelay/internal/domain/notification"
)

// ErrNotConfigured is returned when a dispatcher has no usable endpoint.
var ErrNotConfigured = errors.New("notifier: not configured")

// ErrCircuitOpen is returned without sending when recent deliveries to the
// same endpoint kept failing.
var ErrCircuitOpen = errors.New("notifier: circuit open")

// Message is the payload posted to a notification endpoint.
type Message struct {
	Embeds  []notification.Document `json:"embeds"`
	Content string                  `json:"content,omitempty"`
}

// Result classifies the endpoint's answer. OK is true for any 2xx status.
type Result struct {
	OK         bool `json:"ok"`
	StatusCode int  `json:"status"`
}

// Dispatcher delivers one message with a single attempt. A non-nil error
// means no HTTP status was obtained; a non-2xx status is reported through
// Result with a nil error.
type Dispatcher interface {
	Deliver(ctx context.Context, url string, msg Message) (Result, error)
}
