// Package cachedstore decorates a database.Store with a read-through cache
// for the lookups made on every relayed event: mention preferences and
// mention identities. Destinations are never cached, so secrets never reach
// the shared cache.
package cachedstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Strob0t/hookrelay/internal/domain"
	"github.com/Strob0t/hookrelay/internal/domain/mention"
	"github.com/Strob0t/hookrelay/internal/port/cache"
	"github.com/Strob0t/hookrelay/internal/port/database"
)

// Store is a database.Store whose preference and identity reads go through
// a cache. Writes made through it invalidate the affected keys.
type Store struct {
	database.Store

	cache cache.Cache
	ttl   time.Duration
	group singleflight.Group
}

// flightTimeout bounds a shared store read once it no longer follows the
// context of the caller that started it.
const flightTimeout = 5 * time.Second

// New wraps inner. Entries expire after ttl, which also bounds staleness
// for writes made by another process.
func New(inner database.Store, c cache.Cache, ttl time.Duration) *Store {
	return &Store{Store: inner, cache: c, ttl: ttl}
}

func prefsKey(destinationID string) string { return "prefs:" + destinationID }

func identityKey(destinationID, username string) string {
	return "ident:" + destinationID + ":" + username
}

// identityEntry is the cached form of an identity lookup. Found is false
// for a cached miss.
type identityEntry struct {
	Found    bool              `json:"found"`
	Identity *mention.Identity `json:"identity,omitempty"`
}

// GetMentionPreferences reads through the cache.
func (s *Store) GetMentionPreferences(ctx context.Context, destinationID string) (mention.Preferences, error) {
	key := prefsKey(destinationID)

	var cached mention.Preferences
	if s.lookup(ctx, key, &cached) {
		return cached, nil
	}

	v, err := s.shared(ctx, key, func(ctx context.Context) (any, error) {
		prefs, err := s.Store.GetMentionPreferences(ctx, destinationID)
		if err != nil {
			return nil, err
		}
		s.fill(ctx, key, prefs)
		return prefs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(mention.Preferences), nil
}

// GetMentionIdentity reads through the cache. Misses are cached too, since
// most actors have no mapping.
func (s *Store) GetMentionIdentity(ctx context.Context, destinationID, username string) (*mention.Identity, error) {
	key := identityKey(destinationID, username)

	var cached identityEntry
	if s.lookup(ctx, key, &cached) {
		if !cached.Found || cached.Identity == nil {
			return nil, fmt.Errorf("get mention identity %s: %w", username, domain.ErrNotFound)
		}
		return cached.Identity, nil
	}

	v, err := s.shared(ctx, key, func(ctx context.Context) (any, error) {
		id, err := s.Store.GetMentionIdentity(ctx, destinationID, username)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			s.fill(ctx, key, identityEntry{Found: false})
			return nil, err
		case err != nil:
			return nil, err
		}
		s.fill(ctx, key, identityEntry{Found: true, Identity: id})
		return id, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*mention.Identity), nil
}

// SetMentionPreference writes through and invalidates the preferences.
func (s *Store) SetMentionPreference(ctx context.Context, destinationID string, key mention.EventKey, enabled bool) error {
	if err := s.Store.SetMentionPreference(ctx, destinationID, key, enabled); err != nil {
		return err
	}
	s.invalidate(ctx, prefsKey(destinationID))
	return nil
}

// AddMentionIdentity writes through and drops a cached miss.
func (s *Store) AddMentionIdentity(ctx context.Context, req mention.IdentityRequest) (*mention.Identity, error) {
	id, err := s.Store.AddMentionIdentity(ctx, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, identityKey(req.DestinationID, req.SourceUsername))
	return id, nil
}

// DeleteMentionIdentity writes through and invalidates the identity.
func (s *Store) DeleteMentionIdentity(ctx context.Context, destinationID, username string) error {
	if err := s.Store.DeleteMentionIdentity(ctx, destinationID, username); err != nil {
		return err
	}
	s.invalidate(ctx, identityKey(destinationID, username))
	return nil
}

// DeleteDestination drops the cached preferences and mapped identities of
// the destination. Cached misses expire on their own; a deleted
// destination is rejected before any mention lookup.
func (s *Store) DeleteDestination(ctx context.Context, id string) error {
	identities, err := s.Store.ListMentionIdentities(ctx, id)
	if err != nil {
		identities = nil
	}
	if err := s.Store.DeleteDestination(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, prefsKey(id))
	for _, ident := range identities {
		s.invalidate(ctx, identityKey(id, ident.SourceUsername))
	}
	return nil
}

// shared runs fn once per key for all concurrent callers. The read is
// detached from the first caller's cancellation, and each caller stops
// waiting when its own context ends.
func (s *Store) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := s.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()
		return fn(fctx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// lookup decodes a cached value into dst. Cache errors and undecodable
// entries count as misses.
func (s *Store) lookup(ctx context.Context, key string, dst any) bool {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "cache get failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		slog.WarnContext(ctx, "cache entry undecodable", "key", key, "error", err)
		return false
	}
	return true
}

func (s *Store) fill(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		slog.WarnContext(ctx, "cache set failed", "key", key, "error", err)
	}
}

func (s *Store) invalidate(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		slog.WarnContext(ctx, "cache invalidation failed", "key", key, "error", err)
	}
}
