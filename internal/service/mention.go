package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Strob0t/hookrelay/internal/domain"
	"github.com/Strob0t/hookrelay/internal/domain/mention"
	"github.com/Strob0t/hookrelay/internal/port/database"
)

// MentionResolver decides whether a notification mentions someone, and whom.
type MentionResolver struct {
	prefs      database.PreferenceStore
	identities database.IdentityStore
}

// NewMentionResolver creates a resolver over the given stores.
func NewMentionResolver(prefs database.PreferenceStore, identities database.IdentityStore) *MentionResolver {
	return &MentionResolver{prefs: prefs, identities: identities}
}

// Resolve returns the mention token for username when the destination wants
// mentions for key and the username is mapped. It returns "" with a nil
// error when no mention applies, and a non-nil error only when a lookup
// failed; callers log it and send without a mention.
func (r *MentionResolver) Resolve(ctx context.Context, destinationID string, key mention.EventKey, username string) (string, error) {
	if username == "" {
		return "", nil
	}

	prefs, err := r.prefs.GetMentionPreferences(ctx, destinationID)
	if err != nil {
		return "", fmt.Errorf("get mention preferences: %w", err)
	}
	if !prefs.Enabled(key) {
		return "", nil
	}

	id, err := r.identities.GetMentionIdentity(ctx, destinationID, username)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get mention identity: %w", err)
	}
	return id.Token(), nil
}
