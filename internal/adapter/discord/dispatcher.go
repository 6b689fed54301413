// Package discord implements a notifier.Dispatcher for Discord webhooks.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	neturl "net/url"
	"time"

	hrotel "github.com/Strob0t/hookrelay/internal/adapter/otel"
	"github.com/Strob0t/hookrelay/internal/domain/destination"
	"github.com/Strob0t/hookrelay/internal/port/notifier"
	"github.com/Strob0t/hookrelay/internal/resilience"
)

// maxErrorBody bounds how much of an error response is read for logging.
const maxErrorBody = 512

// statusError marks a response that counts against the endpoint's breaker.
type statusError struct {
	code int
}

func (e *statusError) Error() string { return fmt.Sprintf("discord API %d", e.code) }

// Dispatcher posts messages to Discord webhook URLs. Each URL has its own
// circuit breaker; a single delivery is never retried.
type Dispatcher struct {
	httpClient *http.Client
	breakers   *resilience.Set
	limiter    *resilience.Limiter
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithBreakers enables per-URL circuit breaking.
func WithBreakers(s *resilience.Set) Option {
	return func(d *Dispatcher) { d.breakers = s }
}

// WithLimiter bounds concurrent requests.
func WithLimiter(l *resilience.Limiter) Option {
	return func(d *Dispatcher) { d.limiter = l }
}

// NewDispatcher creates a dispatcher whose requests time out after timeout.
func NewDispatcher(timeout time.Duration, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: hrotel.Transport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deliver posts msg to url once. Transport errors, 5xx and 429 responses
// count as breaker failures; other non-2xx responses do not, since they
// indicate a bad request rather than an unhealthy endpoint.
func (d *Dispatcher) Deliver(ctx context.Context, url string, msg notifier.Message) (notifier.Result, error) {
	if url == "" {
		return notifier.Result{}, notifier.ErrNotConfigured
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return notifier.Result{}, fmt.Errorf("discord marshal: %w", err)
	}

	var res notifier.Result
	send := func() error {
		return d.limiter.Run(ctx, func() error {
			var err error
			res, err = d.post(ctx, url, body)
			if err != nil {
				return err
			}
			if res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests {
				return &statusError{code: res.StatusCode}
			}
			return nil
		})
	}

	if d.breakers == nil {
		err = send()
	} else {
		err = d.breakers.Execute(url, send)
	}

	var se *statusError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &se):
		return res, nil
	case errors.Is(err, resilience.ErrCircuitOpen):
		slog.WarnContext(ctx, "discord circuit open", "url", destination.RedactURL(url))
		return notifier.Result{}, notifier.ErrCircuitOpen
	default:
		return notifier.Result{}, err
	}
}

func (d *Dispatcher) post(ctx context.Context, url string, body []byte) (notifier.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return notifier.Result{}, fmt.Errorf("discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req) //nolint:gosec // URL is validated against the allowed prefix at registration
	if err != nil {
		// *url.Error includes the full URL, which embeds the webhook token.
		return notifier.Result{}, fmt.Errorf("discord send to %s: %w", destination.RedactURL(url), unwrapURLError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		slog.WarnContext(ctx, "discord rejected notification",
			"url", destination.RedactURL(url),
			"status", resp.StatusCode,
			"body", string(snippet),
		)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return notifier.Result{OK: ok, StatusCode: resp.StatusCode}, nil
}

func unwrapURLError(err error) error {
	var ue *neturl.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}
