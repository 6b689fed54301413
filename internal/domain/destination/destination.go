// Package destination defines the mapping from a source repository to a chat
// notification endpoint, together with the shared secret used to authenticate
// inbound deliveries for that repository.
package destination

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// secretBytes is the entropy of generated secrets before hex encoding.
const secretBytes = 32

// Destination routes events of one repository to one notification URL.
type Destination struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	RepoIdentifier  string    `json:"repo"`
	NotificationURL string    `json:"-"`
	Secret          string    `json:"-"` // plaintext; never serialized
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// LogValue keeps the secret and the notification URL out of log records.
func (d Destination) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", d.ID),
		slog.String("repo", d.RepoIdentifier),
	)
}

// RedactedSecret returns a display form of the secret that reveals at most
// its last four characters.
func (d Destination) RedactedSecret() string {
	return RedactSecret(d.Secret)
}

// RedactedURL returns the notification URL with its token path hidden.
func (d Destination) RedactedURL() string {
	return RedactURL(d.NotificationURL)
}

// RedactSecret masks a secret for display.
func RedactSecret(secret string) string {
	if len(secret) <= 8 {
		return "********"
	}
	return "********" + secret[len(secret)-4:]
}

var webhookPathRe = regexp.MustCompile(`/webhooks/\d+/.*$`)

// RedactURL hides the id/token part of a Discord webhook URL.
func RedactURL(u string) string {
	return webhookPathRe.ReplaceAllString(u, "/webhooks/***")
}

// GenerateSecret returns a random hex secret suitable for an upstream webhook.
func GenerateSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// CreateRequest holds the fields to register a new destination.
type CreateRequest struct {
	OwnerID         string `json:"owner_id" validate:"required,uuid"`
	RepoIdentifier  string `json:"repo" validate:"required,max=500,contains=/"`
	NotificationURL string `json:"notification_url" validate:"required,url"`
	Secret          string `json:"secret" validate:"omitempty,min=8,max=256"` // generated when empty
}

// UpdateRequest changes the notification URL and/or the secret. Empty fields
// are left unchanged.
type UpdateRequest struct {
	NotificationURL string `json:"notification_url" validate:"omitempty,url"`
	Secret          string `json:"secret" validate:"omitempty,min=8,max=256"`
}

// HasPrefix reports whether the notification URL starts with the allowed
// endpoint prefix. An empty prefix allows any URL.
func HasPrefix(url, prefix string) bool {
	return prefix == "" || strings.HasPrefix(url, prefix)
}
