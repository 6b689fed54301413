package messagequeue

import "time"

// RelayOutcomePayload is the schema for relay.outcome.* messages. It never
// contains secrets, signatures or notification URLs.
type RelayOutcomePayload struct {
	RequestID     string    `json:"request_id,omitempty"`
	DestinationID string    `json:"destination_id"`
	Repo          string    `json:"repo,omitempty"`
	EventType     string    `json:"event_type,omitempty"`
	Action        string    `json:"action,omitempty"`
	EventKey      string    `json:"event_key,omitempty"`
	Stage         string    `json:"stage"`
	Reason        string    `json:"reason,omitempty"`
	Pinged        bool      `json:"pinged"`
	StatusCode    int       `json:"status_code,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
