// Package mention defines event keys, per-destination mention preferences and
// the mapping from source usernames to chat handles.
package mention

import (
	"fmt"
	"time"
)

// EventKey identifies the logical kind of a relayed event.
type EventKey string

const (
	KeyPROpened               EventKey = "pr_opened"
	KeyPRClosed               EventKey = "pr_closed"
	KeyPRMerged               EventKey = "pr_merged"
	KeyPRConvertedToDraft     EventKey = "pr_converted_to_draft"
	KeyPRReadyForReview       EventKey = "pr_ready_for_review"
	KeyReviewApproved         EventKey = "review_approved"
	KeyReviewChangesRequested EventKey = "review_changes_requested"
	KeyReviewCommented        EventKey = "review_commented"
)

// AllEventKeys lists every event key in display order.
var AllEventKeys = []EventKey{
	KeyPROpened,
	KeyPRClosed,
	KeyPRMerged,
	KeyPRConvertedToDraft,
	KeyPRReadyForReview,
	KeyReviewApproved,
	KeyReviewChangesRequested,
	KeyReviewCommented,
}

// Valid reports whether k is one of the known event keys.
func (k EventKey) Valid() bool {
	for _, known := range AllEventKeys {
		if k == known {
			return true
		}
	}
	return false
}

// ParseEventKey validates a string as an event key.
func ParseEventKey(s string) (EventKey, error) {
	k := EventKey(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown event key %q", s)
	}
	return k, nil
}

// Preferences maps every event key to whether a mention is wanted.
type Preferences map[EventKey]bool

// DefaultPreferences returns the preferences used when a destination has no
// stored rows: only reviews that need the author's attention mention.
func DefaultPreferences() Preferences {
	p := make(Preferences, len(AllEventKeys))
	for _, k := range AllEventKeys {
		p[k] = false
	}
	p[KeyReviewApproved] = true
	p[KeyReviewChangesRequested] = true
	return p
}

// Merge overlays stored rows onto the defaults. Unknown keys are ignored.
func Merge(stored map[EventKey]bool) Preferences {
	p := DefaultPreferences()
	for k, v := range stored {
		if k.Valid() {
			p[k] = v
		}
	}
	return p
}

// Enabled returns the preference for k, falling back to the default.
func (p Preferences) Enabled(k EventKey) bool {
	if v, ok := p[k]; ok {
		return v
	}
	return DefaultPreferences()[k]
}

// Identity maps a source username to a chat handle within one destination.
type Identity struct {
	ID             string    `json:"id"`
	DestinationID  string    `json:"destination_id"`
	SourceUsername string    `json:"source_username"`
	TargetHandle   string    `json:"target_handle"`
	LinkedOwnerID  string    `json:"linked_owner_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Token renders the chat mention for the identity.
func (i Identity) Token() string {
	return Token(i.TargetHandle)
}

// Token renders a chat mention for a handle.
func Token(handle string) string {
	return "<@" + handle + ">"
}

// IdentityRequest holds the fields to add a username mapping.
type IdentityRequest struct {
	DestinationID  string `json:"destination_id" validate:"required,uuid"`
	SourceUsername string `json:"source_username" validate:"required,max=255"`
	TargetHandle   string `json:"target_handle" validate:"required,numeric,max=255"`
	LinkedOwnerID  string `json:"linked_owner_id" validate:"omitempty,uuid"`
}
