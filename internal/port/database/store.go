// Package database defines the database store ports (interfaces). The relay
// pipeline depends only on the narrow read capabilities; the admin surface
// uses the full Store.
package database

import (
	"context"

	"github.com/Strob0t/hookrelay/internal/domain/account"
	"github.com/Strob0t/hookrelay/internal/domain/destination"
	"github.com/Strob0t/hookrelay/internal/domain/mention"
)

// DestinationStore looks up a destination, including its plaintext secret.
type DestinationStore interface {
	// GetDestination returns domain.ErrNotFound when no destination has id.
	GetDestination(ctx context.Context, id string) (*destination.Destination, error)
}

// PreferenceStore reads mention preferences.
type PreferenceStore interface {
	// GetMentionPreferences returns every event key, with defaults filled in
	// for keys that have no stored row.
	GetMentionPreferences(ctx context.Context, destinationID string) (mention.Preferences, error)
}

// IdentityStore reads username mappings.
type IdentityStore interface {
	// GetMentionIdentity returns domain.ErrNotFound when the username has no
	// mapping for the destination.
	GetMentionIdentity(ctx context.Context, destinationID, username string) (*mention.Identity, error)
}

// Store is the full port used by the admin surface.
type Store interface {
	DestinationStore
	PreferenceStore
	IdentityStore

	// Accounts
	CreateAccount(ctx context.Context, req account.CreateRequest) (*account.Account, error)
	ListAccounts(ctx context.Context) ([]account.Account, error)
	DeleteAccount(ctx context.Context, id string) error

	// Destinations
	CreateDestination(ctx context.Context, d *destination.Destination) error
	ListDestinations(ctx context.Context, ownerID string) ([]destination.Destination, error)
	UpdateDestination(ctx context.Context, id string, req destination.UpdateRequest) error
	DeleteDestination(ctx context.Context, id string) error

	// Mention preferences and identities
	SetMentionPreference(ctx context.Context, destinationID string, key mention.EventKey, enabled bool) error
	AddMentionIdentity(ctx context.Context, req mention.IdentityRequest) (*mention.Identity, error)
	ListMentionIdentities(ctx context.Context, destinationID string) ([]mention.Identity, error)
	DeleteMentionIdentity(ctx context.Context, destinationID, username string) error

	Ping(ctx context.Context) error
}
